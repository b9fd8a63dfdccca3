package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	charmLog "github.com/charmbracelet/log"

	"jamalekbot/pkg/config"
)

const (
	envLevel     = "JAMALEK_LOG_LEVEL"
	envFormat    = "JAMALEK_LOG_FORMAT"
	envAddSource = "JAMALEK_LOG_ADD_SOURCE"

	formatText = "text"
	formatJSON = "json"
)

// options is the resolved logging setup after environment overrides.
type options struct {
	format    string
	level     slog.Level
	addSource bool
}

// New builds the process logger on stderr.
func New(cfg config.LoggingConfig) (*slog.Logger, error) {
	return newWithWriter(cfg, os.Stderr)
}

// Discard returns a logger that drops everything. Used by tests and the console UI.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newWithWriter(cfg config.LoggingConfig, writer io.Writer) (*slog.Logger, error) {
	opts, err := resolveOptions(cfg)
	if err != nil {
		return nil, err
	}

	if opts.format == formatJSON {
		return slog.New(newEntryHandler(writer, opts.level, opts.addSource)), nil
	}

	pretty := charmLog.NewWithOptions(writer, charmLog.Options{
		Level:           charmLevel(opts.level),
		ReportTimestamp: true,
		ReportCaller:    opts.addSource,
		Formatter:       charmLog.TextFormatter,
		Prefix:          "jamalek",
	})

	return slog.New(pretty), nil
}

func resolveOptions(cfg config.LoggingConfig) (options, error) {
	format := firstNonEmpty(os.Getenv(envFormat), cfg.Format, formatText)
	if format != formatJSON && format != formatText {
		return options{}, fmt.Errorf("unsupported log format %q", format)
	}

	level, err := parseLevel(firstNonEmpty(os.Getenv(envLevel), cfg.Level, "info"))
	if err != nil {
		return options{}, err
	}

	addSource := cfg.AddSource
	if raw := strings.TrimSpace(os.Getenv(envAddSource)); raw != "" {
		addSource = parseBool(raw)
	}

	return options{format: format, level: level, addSource: addSource}, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.ToLower(strings.TrimSpace(value)); trimmed != "" {
			return trimmed
		}
	}

	return ""
}

func parseLevel(levelText string) (slog.Level, error) {
	switch levelText {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unsupported log level %q", levelText)
	}
}

func charmLevel(level slog.Level) charmLog.Level {
	switch {
	case level <= slog.LevelDebug:
		return charmLog.DebugLevel
	case level <= slog.LevelInfo:
		return charmLog.InfoLevel
	case level <= slog.LevelWarn:
		return charmLog.WarnLevel
	default:
		return charmLog.ErrorLevel
	}
}

func parseBool(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
