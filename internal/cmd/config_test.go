package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	cfg, err := loadConfig(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.APIURL)
	assert.Equal(t, filepath.Join(home, ".staffdesk", "session.json"), cfg.SessionFile)
	assert.Equal(t, "table", cfg.Output)
}

func TestLoadConfigLayers(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := filepath.Join(home, ".staffdesk")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(
		"api_url: https://staff.example.com/\noutput: yaml\nsession_file: ~/work/session.json\n"), 0o600))

	cfg, err := loadConfig(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "https://staff.example.com", cfg.APIURL)
	assert.Equal(t, "yaml", cfg.Output)
	assert.Equal(t, filepath.Join(home, "work", "session.json"), cfg.SessionFile)

	t.Setenv("STAFFDESK_OUTPUT", "json")
	cfg, err = loadConfig(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Output)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	_, err := loadConfig(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "an explicit config file must exist")

	t.Setenv("STAFFDESK_OUTPUT", "xml")
	_, err = loadConfig(viper.New(), "")
	assert.ErrorContains(t, err, "output must be one of")
}

func TestParsePayItems(t *testing.T) {
	items, err := parsePayItems("bonus", []string{"Night shift=50", " Meal = 12.5"})
	require.NoError(t, err)
	assert.Equal(t, "Night shift", items[0].Description)
	assert.InDelta(t, 12.5, items[1].Amount, 1e-9)
	assert.Equal(t, "Meal", items[1].Description)

	_, err = parsePayItems("bonus", []string{"no amount"})
	assert.ErrorContains(t, err, "description=amount")
	_, err = parsePayItems("deduction", []string{"Loan=abc"})
	assert.Error(t, err)
}

func TestParseOrder(t *testing.T) {
	for in, ok := range map[string]bool{"": true, "asc": true, "DESC": true, "up": false} {
		_, err := parseOrder(in)
		assert.Equal(t, ok, err == nil, in)
	}
}
