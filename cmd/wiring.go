package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"jamalekbot/pkg/config"
	"jamalekbot/pkg/directory"
	"jamalekbot/pkg/directory/sheets"
	"jamalekbot/pkg/directory/static"
	"jamalekbot/pkg/logger"
	"jamalekbot/pkg/transport"
	"jamalekbot/pkg/transport/bridge"
	"jamalekbot/pkg/transport/telegram"
)

// loadRuntime loads config and installs the process logger.
func loadRuntime(component string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	appLogger, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize logger: %w", err)
	}
	slog.SetDefault(appLogger)

	return cfg, appLogger.With("component", component), nil
}

func buildTransport(cfg *config.Config, log *slog.Logger) (transport.Transport, error) {
	switch cfg.Transport.Kind {
	case config.TransportBridge:
		b := cfg.Transport.Bridge
		tr, err := bridge.New(bridge.Config{
			URL:            b.URL,
			ConnectTimeout: b.ConnectTimeout(),
			SendTimeout:    b.SendTimeout(),
			KeepAlive:      b.KeepAlive(),
			Browser:        b.Browser,
		}, log)
		if err != nil {
			return nil, err
		}
		return tr, nil
	case config.TransportTelegram:
		tr, err := telegram.New(telegram.Config{
			Token:     cfg.Transport.Telegram.Token,
			AllowFrom: cfg.Transport.Telegram.AllowFrom,
		}, log)
		if err != nil {
			return nil, err
		}
		return tr, nil
	default:
		return nil, fmt.Errorf("unsupported transport kind %q", cfg.Transport.Kind)
	}
}

func buildDirectory(ctx context.Context, cfg *config.Config, log *slog.Logger) (directory.Directory, error) {
	d := cfg.Directory

	switch d.Backend {
	case config.DirectoryStatic:
		dir, err := static.New(d.StaticFile, log)
		if err != nil {
			return nil, err
		}
		return dir, nil
	case config.DirectorySheets:
		credentials, err := d.GoogleCredentials()
		if err != nil {
			return nil, err
		}

		opts, err := sheets.ClientOptions(ctx, credentials, d.TokenFile)
		if err != nil {
			return nil, fmt.Errorf("google sheets authorization: %w", err)
		}

		dir, err := sheets.New(ctx, sheets.Config{SpreadsheetID: d.SpreadsheetID, Range: d.Range}, log, opts...)
		if err != nil {
			return nil, err
		}
		return dir, nil
	default:
		return nil, fmt.Errorf("unsupported directory backend %q", d.Backend)
	}
}

func describeDirectory(cfg *config.Config) string {
	if cfg.Directory.Backend == config.DirectoryStatic {
		return "static:" + cfg.Directory.StaticFile
	}

	return "sheets:" + cfg.Directory.SpreadsheetID
}
