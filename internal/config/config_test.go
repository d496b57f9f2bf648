package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	cfg := `{
		"logLevel": "debug",
		"lang": "french",
		"api": { "classInfoUrl": "http://localhost:9000/classinfo" },
		"resolver": { "hoverDelayMs": 50 }
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "loadout_preview.cfg.json"), []byte(cfg), 0644))

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, "french", viper.GetString("lang"))
	assert.Equal(t, "http://localhost:9000/classinfo", viper.GetString("api.classInfoUrl"))
	assert.Equal(t, 50*time.Millisecond, HoverDelay())
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "loadout_preview.cfg.json"), []byte(`{}`), 0644))

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./logs", viper.GetString("logsDir"))
	assert.Equal(t, "english", viper.GetString("lang"))
	assert.Equal(t, "https://tf2content.loadout.tf/", viper.GetString("repository.tf2"))
	assert.Equal(t, "https://cs2content.csloadout.com/", viper.GetString("repository.cs2"))
	assert.Equal(t, "https://workshop.tf/php/workshop/getAllItems.php", viper.GetString("repository.workshop"))
	assert.Equal(t, 200*time.Millisecond, HoverDelay())
	assert.Equal(t, 30*time.Second, APITimeout())
	assert.Equal(t, 2048, viper.GetInt("resolver.textureSize"))
	assert.Equal(t, "./loadout_preview.db", viper.GetString("store.path"))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestGetString(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testKey", "testValue")
	assert.Equal(t, "testValue", GetString("testKey"))
}

func TestGetInt(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testInt", 42)
	assert.Equal(t, 42, GetInt("testInt"))
}

func TestGetBool(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testBool", true)
	assert.Equal(t, true, GetBool("testBool"))
}
