package feishu

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feishudocs/feishu.go/pkg/constants"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("FEISHU_APP_ID", "env-app")
	t.Setenv("FEISHU_APP_SECRET", "env-secret")
	t.Setenv("FEISHU_BASE_URL", "https://example.test/open-apis")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, "env-app", cfg.AppID)
	assert.Equal(t, "env-secret", cfg.AppSecret)
	assert.Equal(t, "https://example.test/open-apis", cfg.BaseURL)
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Setenv("FEISHU_APP_ID", "")
	t.Setenv("FEISHU_APP_SECRET", "")
	t.Setenv("FEISHU_BASE_URL", "")

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"feishu": {"app_id": "file-app", "app_secret": "file-secret"}
	}`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "file-app", cfg.AppID)
	assert.Equal(t, "file-secret", cfg.AppSecret)
	assert.Equal(t, constants.DefaultBaseURL, cfg.BaseURL)
}

func TestLoadConfigMissingEverywhere(t *testing.T) {
	t.Setenv("FEISHU_APP_ID", "")
	t.Setenv("FEISHU_APP_SECRET", "")

	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, constants.ErrNoAppCredentials)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	t.Setenv("FEISHU_APP_ID", "")
	t.Setenv("FEISHU_APP_SECRET", "")
	t.Setenv("FEISHU_BASE_URL", "")

	path := filepath.Join(t.TempDir(), "nested", "config.json")
	require.NoError(t, SaveConfig(path, &Config{AppID: "app", AppSecret: "secret"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "app", cfg.AppID)
	assert.Equal(t, "secret", cfg.AppSecret)
}

func TestSaveConfigPreservesForeignSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"other_tool": {"key": "kept"}}`), 0o600))

	require.NoError(t, SaveConfig(path, &Config{AppID: "app", AppSecret: "secret"}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var full map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &full))
	assert.Contains(t, full, "other_tool")
	assert.Contains(t, full, "feishu")
}

func TestNewFromConfig(t *testing.T) {
	c, err := NewFromConfig(&Config{AppID: "app", AppSecret: "secret", BaseURL: "https://example.test"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.test", c.BaseURL)

	_, err = NewFromConfig(nil)
	assert.ErrorIs(t, err, constants.ErrNoAppCredentials)

	_, err = NewFromConfig(&Config{})
	assert.ErrorIs(t, err, constants.ErrNoAppCredentials)
}
