package domain

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplySlots(t *testing.T) {
	project := snowflake.ID(10)
	cfg := Config{ProjectID: &project, IsDefault: true, Active: true}
	cfg.ApplySlots()
	require.NotNil(t, cfg.ScopeKey)
	assert.Equal(t, "p:10|w:*", *cfg.ScopeKey)
	require.NotNil(t, cfg.DefaultSlot)

	cfg.Active = false
	cfg.ApplySlots()
	assert.Nil(t, cfg.ScopeKey)
	assert.Nil(t, cfg.DefaultSlot)
}
