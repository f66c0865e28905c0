package common

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlagValidator(t *testing.T) {
	v := NewFlagValidator().
		ValidateFraction("buy-delta", 0.015).
		ValidateFloat("balance", 500, 0.01, 1e12).
		ValidateInt("workers", 4, 1, 256)
	assert.False(t, v.HasErrors())
	assert.NoError(t, v.GetError())

	v.ValidateFraction("sell-delta", 1).
		ValidateFile("data", filepath.Join(t.TempDir(), "missing.csv"), true)
	assert.True(t, v.HasErrors())
	err := v.GetError()
	assert.Contains(t, err.Error(), "sell-delta must be in [0, 1)")
	assert.Contains(t, err.Error(), "data file does not exist")
}

func TestFlagValidator_RequiredFile(t *testing.T) {
	err := NewFlagValidator().ValidateFile("data", "", true).GetError()
	assert.EqualError(t, err, "validation error: data is required")
	assert.NoError(t, NewFlagValidator().ValidateFile("xlsx", "", false).GetError())
}

func TestVersionInfo(t *testing.T) {
	info := GetVersionInfo()
	assert.Equal(t, ProjectVersion, info.Version)
	assert.Contains(t, GetFullVersion(), ProjectVersion)
	assert.True(t, IsDevBuild())
}
