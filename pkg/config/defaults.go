package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	DefaultAuthDir        = "./auth_info"
	DefaultPrunePattern   = "app-state"
	DefaultGatewayHost    = "0.0.0.0"
	DefaultGatewayPort    = 10000
	DefaultBridgeURL      = "ws://127.0.0.1:8765/ws"
	DefaultBrowser        = "Ubuntu/Chrome"
	DefaultCredentialFile = "credentials.json"
	DefaultTokenFile      = "token.json"

	defaultReconnectDelay    = 3 * time.Second
	defaultSetupFailureDelay = 10 * time.Second
	minReconnectDelay        = 3 * time.Second
	maxReconnectDelay        = 10 * time.Second

	defaultConnectTimeout = 60 * time.Second
	defaultSendTimeout    = 60 * time.Second
	defaultKeepAlive      = 30 * time.Second
)

// ApplyDefaults fills every zero value the runtime depends on.
func (c *Config) ApplyDefaults() {
	if strings.TrimSpace(c.Session.AuthDir) == "" {
		c.Session.AuthDir = DefaultAuthDir
	}
	if strings.TrimSpace(c.Session.PrunePattern) == "" {
		c.Session.PrunePattern = DefaultPrunePattern
	}

	c.Transport.Kind = strings.ToLower(strings.TrimSpace(c.Transport.Kind))
	if c.Transport.Kind == "" {
		c.Transport.Kind = TransportBridge
	}
	if strings.TrimSpace(c.Transport.Bridge.URL) == "" {
		c.Transport.Bridge.URL = DefaultBridgeURL
	}
	if strings.TrimSpace(c.Transport.Bridge.Browser) == "" {
		c.Transport.Bridge.Browser = DefaultBrowser
	}

	c.Directory.Backend = strings.ToLower(strings.TrimSpace(c.Directory.Backend))
	if c.Directory.Backend == "" {
		c.Directory.Backend = DirectorySheets
	}
	if strings.TrimSpace(c.Directory.CredentialsFile) == "" {
		c.Directory.CredentialsFile = DefaultCredentialFile
	}
	if strings.TrimSpace(c.Directory.TokenFile) == "" {
		c.Directory.TokenFile = DefaultTokenFile
	}

	if strings.TrimSpace(c.Gateway.Host) == "" {
		c.Gateway.Host = DefaultGatewayHost
	}
	if c.Gateway.Port <= 0 {
		c.Gateway.Port = DefaultGatewayPort
	}
}

// Validate checks the selected backends have what they need.
func (c *Config) Validate() error {
	switch c.Transport.Kind {
	case TransportBridge:
	case TransportTelegram:
		if strings.TrimSpace(c.Transport.Telegram.Token) == "" {
			return fmt.Errorf("transport.telegram.token is required")
		}
	default:
		return fmt.Errorf("unsupported transport kind %q", c.Transport.Kind)
	}

	switch c.Directory.Backend {
	case DirectorySheets:
		if strings.TrimSpace(c.Directory.SpreadsheetID) == "" {
			return fmt.Errorf("directory.spreadsheet_id is required")
		}
	case DirectoryStatic:
		if strings.TrimSpace(c.Directory.StaticFile) == "" {
			return fmt.Errorf("directory.static_file is required")
		}
	default:
		return fmt.Errorf("unsupported directory backend %q", c.Directory.Backend)
	}

	return nil
}

// ReconnectDelay is the fixed wait before reconnecting after a closure.
func (s SessionConfig) ReconnectDelay() time.Duration {
	return clampDelay(s.ReconnectDelaySeconds, defaultReconnectDelay)
}

// SetupFailureDelay is the wait after a connection attempt that never opened.
func (s SessionConfig) SetupFailureDelay() time.Duration {
	return clampDelay(s.SetupFailureDelaySeconds, defaultSetupFailureDelay)
}

func (s SessionConfig) ShouldAnnounce() bool {
	return s.AnnounceOnConnect == nil || *s.AnnounceOnConnect
}

func (s SessionConfig) ShouldRenderQRCode() bool {
	return s.PairingQRCode == nil || *s.PairingQRCode
}

func (b BridgeConfig) ConnectTimeout() time.Duration {
	return secondsOr(b.ConnectTimeoutSeconds, defaultConnectTimeout)
}

func (b BridgeConfig) SendTimeout() time.Duration {
	return secondsOr(b.SendTimeoutSeconds, defaultSendTimeout)
}

func (b BridgeConfig) KeepAlive() time.Duration {
	return secondsOr(b.KeepAliveSeconds, defaultKeepAlive)
}

// GoogleCredentials returns the OAuth client JSON, preferring the env value.
func (d DirectoryConfig) GoogleCredentials() ([]byte, error) {
	if strings.TrimSpace(d.CredentialsJSON) != "" {
		return []byte(d.CredentialsJSON), nil
	}

	content, err := os.ReadFile(d.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read google credentials: %w", err)
	}

	return content, nil
}

// clampDelay keeps reconnect waits in a bounded, non-zero window so a flapping
// endpoint is never hot-looped.
func clampDelay(seconds int, fallback time.Duration) time.Duration {
	if seconds <= 0 {
		return fallback
	}

	delay := time.Duration(seconds) * time.Second
	if delay < minReconnectDelay {
		return minReconnectDelay
	}
	if delay > maxReconnectDelay {
		return maxReconnectDelay
	}

	return delay
}

func secondsOr(seconds int, fallback time.Duration) time.Duration {
	if seconds <= 0 {
		return fallback
	}

	return time.Duration(seconds) * time.Second
}
