package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPolicyHolderDefaultsWithoutFile(t *testing.T) {
	holder, err := NewPolicyHolder(Config{PolicyFile: filepath.Join(t.TempDir(), "missing.yml")})
	require.NoError(t, err)

	policy := holder.Get()
	assert.Equal(t, 5.0, policy.DefaultRetentionPercentage)
	require.Len(t, policy.ValueRanges, 4)
	assert.Nil(t, policy.ValueRanges[3].Max)
}

func TestNewPolicyHolderReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statement.yml")
	content := []byte(`statement:
  defaultRetentionPercentage: 10
  valueRanges:
    - label: small
      max: 1000
    - label: big
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	holder, err := NewPolicyHolder(Config{PolicyFile: path})
	require.NoError(t, err)

	policy := holder.Get()
	assert.Equal(t, 10.0, policy.DefaultRetentionPercentage)
	require.Len(t, policy.ValueRanges, 2)
	assert.Equal(t, "big", policy.ValueRanges[1].Label)
}

func TestValidatePolicyRejectsUnorderedRanges(t *testing.T) {
	policy := Policy{
		DefaultRetentionPercentage: 5,
		ValueRanges: []ValueRange{
			{Label: "a", Max: floatPtr(100)},
			{Label: "b", Max: floatPtr(50)},
			{Label: "c"},
		},
	}
	assert.Error(t, validatePolicy(policy))

	policy.ValueRanges[1].Max = floatPtr(150)
	assert.NoError(t, validatePolicy(policy))
}

func TestPolicyHolderNotifiesListeners(t *testing.T) {
	holder := NewStaticPolicyHolder(DefaultPolicy())
	var got Policy
	holder.OnChange(func(p Policy) { got = p })

	updated := DefaultPolicy()
	updated.LogLevel = "debug"
	holder.set(updated)

	assert.Equal(t, "debug", got.LogLevel)
	assert.Equal(t, "debug", holder.Get().LogLevel)
}
