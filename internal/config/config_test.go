package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfigReadsEnvironment(t *testing.T) {
	t.Setenv("VERILUA_HOME", "/opt/verilua")
	t.Setenv("VERILUA_SCRIPT", "main.lua")
	t.Setenv("VERILUA_X_AS_ZERO", "true")
	t.Setenv("VERILUA_QUIET", "1")

	cfg := DefaultConfig()
	assert.Equal(t, "/opt/verilua", cfg.HomeDir)
	assert.Equal(t, "main.lua", cfg.UserScript)
	assert.True(t, cfg.XAsZero)
	assert.True(t, cfg.Quiet)
	assert.Equal(t, DefaultIDPoolSize, cfg.IDPoolSize)
}

func TestDefaultConfigUnsetBoolsAreFalse(t *testing.T) {
	cfg := DefaultConfig()
	assert.False(t, cfg.Prebuild)
	assert.False(t, cfg.SuppressAtExitFinalize)
}
