package feishu

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/feishudocs/feishu.go/pkg/constants"
)

// Config holds app credentials and the endpoint root. Environment variables
// win over the credential file so deployments can override a developer's
// local setup.
type Config struct {
	AppID             string `json:"app_id"`
	AppSecret         string `json:"app_secret"`
	TenantAccessToken string `json:"tenant_access_token,omitempty"`
	BaseURL           string `json:"base_url,omitempty"`
}

// configFile is the on-disk shape, namespaced so the file can be shared with
// other tools.
type configFile struct {
	Feishu Config `json:"feishu"`
}

// GetEnvOrDefault reads an environment variable, falling back to def when it
// is unset or empty.
func GetEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// LoadConfig resolves credentials from FEISHU_APP_ID, FEISHU_APP_SECRET and
// FEISHU_BASE_URL, falling back to the credential file at path. An empty path
// means DefaultConfigPath. ErrNoAppCredentials is returned when neither
// source yields a complete credential pair.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		AppID:     os.Getenv("FEISHU_APP_ID"),
		AppSecret: os.Getenv("FEISHU_APP_SECRET"),
		BaseURL:   os.Getenv("FEISHU_BASE_URL"),
	}
	if cfg.AppID != "" && cfg.AppSecret != "" {
		if cfg.BaseURL == "" {
			cfg.BaseURL = constants.DefaultBaseURL
		}
		return cfg, nil
	}

	if path == "" {
		path = DefaultConfigPath()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, constants.ErrNoAppCredentials
		}
		return nil, errors.Wrap(err, "read config file")
	}

	var file configFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, errors.Wrap(err, "parse config file")
	}

	if cfg.AppID == "" {
		cfg.AppID = file.Feishu.AppID
	}
	if cfg.AppSecret == "" {
		cfg.AppSecret = file.Feishu.AppSecret
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = file.Feishu.BaseURL
	}
	cfg.TenantAccessToken = file.Feishu.TenantAccessToken

	if cfg.AppID == "" || cfg.AppSecret == "" {
		return nil, constants.ErrNoAppCredentials
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = constants.DefaultBaseURL
	}
	return cfg, nil
}

// SaveConfig writes cfg to the credential file at path, preserving any other
// top-level sections already present. The file is created mode 0600.
func SaveConfig(path string, cfg *Config) error {
	if path == "" {
		path = DefaultConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create config dir")
	}

	full := map[string]json.RawMessage{}
	if raw, err := os.ReadFile(path); err == nil {
		// Keep foreign sections; a corrupt file is replaced wholesale.
		_ = json.Unmarshal(raw, &full)
	}

	section, err := json.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}
	full["feishu"] = section

	raw, err := json.MarshalIndent(full, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal config file")
	}
	return os.WriteFile(path, raw, 0o600)
}

// DefaultConfigPath is ~/.config/feishu/config.json, or the relative path
// when the home directory cannot be resolved.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "feishu", "config.json")
	}
	return filepath.Join(home, ".config", "feishu", "config.json")
}

// NewFromConfig builds a Client from resolved configuration.
func NewFromConfig(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, constants.ErrNoAppCredentials
	}
	if cfg.BaseURL != "" {
		opts = append([]Option{WithBaseURL(cfg.BaseURL)}, opts...)
	}
	return New(cfg.AppID, cfg.AppSecret, opts...)
}
