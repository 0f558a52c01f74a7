package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextNumber(t *testing.T) {
	cases := []struct {
		name   string
		latest string
		want   string
	}{
		{name: "first statement", latest: "", want: "P1-WT1-001"},
		{name: "increments", latest: "P1-WT1-007", want: "P1-WT1-008"},
		{name: "grows past padding", latest: "P1-WT1-999", want: "P1-WT1-1000"},
		{name: "foreign prefix", latest: "P2-WT1-004", want: "P1-WT1-001"},
		{name: "unparseable tail", latest: "P1-WT1-abc", want: "P1-WT1-001"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NextNumber("P1", "WT1", tc.latest))
		})
	}
}

func TestLatestNumberIsNumeric(t *testing.T) {
	numbers := []string{"P1-WT1-999", "P1-WT1-1000", "P1-WT1-002", "P1-WT1-x"}
	assert.Equal(t, "P1-WT1-1000", LatestNumber("P1-WT1-", numbers))
	assert.Equal(t, "", LatestNumber("P9-WT1-", numbers))
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "P1-WT1-042", FormatNumber("P1", "WT1", 42))
}
