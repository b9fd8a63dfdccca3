package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	envConfigPath        = "JAMALEK_CONFIG"
	envPort              = "PORT"
	envGoogleCredentials = "GOOGLE_CREDENTIALS"
	envSpreadsheetID     = "SPREADSHEET_ID"
	envBridgeURL         = "BRIDGE_URL"
	envTelegramBotToken  = "TELEGRAM_BOT_TOKEN"
)

const (
	TransportBridge   = "bridge"
	TransportTelegram = "telegram"

	DirectorySheets = "sheets"
	DirectoryStatic = "static"
)

// Config is the root runtime configuration loaded from config.json.
type Config struct {
	Session   SessionConfig   `json:"session"`
	Transport TransportConfig `json:"transport"`
	Directory DirectoryConfig `json:"directory"`
	Gateway   GatewayConfig   `json:"gateway"`
	Logging   LoggingConfig   `json:"logging,omitempty"`
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `json:"format,omitempty"`
	Level     string `json:"level,omitempty"`
	AddSource bool   `json:"add_source,omitempty"`
}

// SessionConfig controls the connection supervisor.
type SessionConfig struct {
	AuthDir                  string `json:"auth_dir"`
	PrunePattern             string `json:"prune_pattern"`
	ReconnectDelaySeconds    int    `json:"reconnect_delay_seconds"`
	SetupFailureDelaySeconds int    `json:"setup_failure_delay_seconds"`
	AnnounceOnConnect        *bool  `json:"announce_on_connect,omitempty"`
	PairingQRCode            *bool  `json:"pairing_qr_code,omitempty"`
}

// TransportConfig selects and configures the messaging network client.
type TransportConfig struct {
	Kind     string         `json:"kind"`
	Bridge   BridgeConfig   `json:"bridge"`
	Telegram TelegramConfig `json:"telegram"`
}

// BridgeConfig points at the WhatsApp Web bridge process.
type BridgeConfig struct {
	URL                   string `json:"url"`
	ConnectTimeoutSeconds int    `json:"connect_timeout_seconds"`
	SendTimeoutSeconds    int    `json:"send_timeout_seconds"`
	KeepAliveSeconds      int    `json:"keep_alive_seconds"`
	Browser               string `json:"browser"`
}

// TelegramConfig configures the Telegram transport.
type TelegramConfig struct {
	Token     string   `json:"token"`
	AllowFrom []string `json:"allow_from,omitempty"`
}

// DirectoryConfig selects the business directory backend.
type DirectoryConfig struct {
	Backend         string `json:"backend"`
	SpreadsheetID   string `json:"spreadsheet_id"`
	Range           string `json:"range"`
	CredentialsFile string `json:"credentials_file"`
	CredentialsJSON string `json:"-"`
	TokenFile       string `json:"token_file"`
	StaticFile      string `json:"static_file"`
}

// GatewayConfig configures HTTP gateway bind settings.
type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// LoadConfig resolves config.json, unmarshals it, and applies environment overrides.
func LoadConfig() (*Config, error) {
	configPath, err := findConfigPath()
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()

	return &cfg, nil
}

// applyEnvOverrides injects selected env-driven settings on top of file config.
func applyEnvOverrides(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	if rawPort := strings.TrimSpace(os.Getenv(envPort)); rawPort != "" {
		port, err := strconv.Atoi(rawPort)
		if err != nil {
			return fmt.Errorf("parse %s: %w", envPort, err)
		}
		cfg.Gateway.Port = port
	}

	if creds := strings.TrimSpace(os.Getenv(envGoogleCredentials)); creds != "" {
		cfg.Directory.CredentialsJSON = creds
	}

	if id := strings.TrimSpace(os.Getenv(envSpreadsheetID)); id != "" {
		cfg.Directory.SpreadsheetID = id
	}

	if url := strings.TrimSpace(os.Getenv(envBridgeURL)); url != "" {
		cfg.Transport.Bridge.URL = url
	}

	if token := strings.TrimSpace(os.Getenv(envTelegramBotToken)); token != "" {
		cfg.Transport.Telegram.Token = token
	}

	return nil
}

// findConfigPath resolves the active config file location.
//
// Precedence is JAMALEK_CONFIG first, then cwd-local fallback paths.
func findConfigPath() (string, error) {
	if value := strings.TrimSpace(os.Getenv(envConfigPath)); value != "" {
		if info, err := os.Stat(value); err == nil && !info.IsDir() {
			return value, nil
		}
		return "", fmt.Errorf("%s does not point to a file: %s", envConfigPath, value)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current working directory: %w", err)
	}

	candidates := []string{
		filepath.Join(cwd, "config.json"),
		filepath.Join(cwd, "config", "config.json"),
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("config.json not found (checked %s and %s)", candidates[0], candidates[1])
}
