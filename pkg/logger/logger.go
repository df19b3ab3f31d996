package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	charmLog "github.com/charmbracelet/log"

	"aquabot/pkg/config"
)

const (
	formatText = "text"
	formatJSON = "json"

	envLogFormat    = "AQUA_LOG_FORMAT"
	envLogLevel     = "AQUA_LOG_LEVEL"
	envLogAddSource = "AQUA_LOG_ADD_SOURCE"
)

// settings is the logging config after AQUA_LOG_* overrides are applied.
type settings struct {
	format    string
	level     charmLog.Level
	addSource bool
}

// New builds the process logger from logging config and AQUA_LOG_* overrides.
func New(cfg config.LoggingConfig) (*slog.Logger, error) {
	return newWithWriter(cfg, os.Stderr)
}

// Component returns log scoped to one component, falling back to the default logger.
func Component(log *slog.Logger, name string) *slog.Logger {
	if log == nil {
		log = slog.Default()
	}
	return log.With("component", name)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func newWithWriter(cfg config.LoggingConfig, writer io.Writer) (*slog.Logger, error) {
	s, err := resolveSettings(cfg)
	if err != nil {
		return nil, err
	}

	if s.format == formatJSON {
		return slog.New(&entryHandler{
			level:     slog.Level(s.level),
			addSource: s.addSource,
			writer:    writer,
			mu:        &sync.Mutex{},
		}), nil
	}

	return slog.New(charmLog.NewWithOptions(writer, charmLog.Options{
		Level:           s.level,
		Prefix:          "aquabot",
		ReportTimestamp: true,
		ReportCaller:    s.addSource,
		Formatter:       charmLog.TextFormatter,
	})), nil
}

// resolveSettings validates cfg; a non-empty AQUA_LOG_* variable replaces the
// matching field before validation.
func resolveSettings(cfg config.LoggingConfig) (settings, error) {
	format := override(envLogFormat, cfg.Format)
	levelText := override(envLogLevel, cfg.Level)
	addSource := override(envLogAddSource, strconv.FormatBool(cfg.AddSource))

	s := settings{format: strings.ToLower(format)}
	switch s.format {
	case "":
		s.format = formatText
	case formatText, formatJSON:
	default:
		return settings{}, fmt.Errorf("unsupported log format %q", format)
	}

	level, err := parseLevel(levelText)
	if err != nil {
		return settings{}, err
	}
	s.level = level

	if s.addSource, err = strconv.ParseBool(addSource); err != nil {
		return settings{}, fmt.Errorf("invalid %s %q", envLogAddSource, addSource)
	}

	return s, nil
}

func override(env string, value string) string {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		return v
	}
	return strings.TrimSpace(value)
}

// parseLevel accepts charm level names plus "warning"; empty means info.
func parseLevel(text string) (charmLog.Level, error) {
	switch text = strings.ToLower(text); text {
	case "":
		return charmLog.InfoLevel, nil
	case "warning":
		return charmLog.WarnLevel, nil
	}

	level, err := charmLog.ParseLevel(text)
	if err != nil {
		return 0, fmt.Errorf("unsupported log level %q", text)
	}
	return level, nil
}
