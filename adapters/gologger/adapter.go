package gologger

import (
	"io"
	"log/slog"
	"strings"

	glog "github.com/goliatone/go-logger/glog"
)

const (
	FormatJSON    = glog.LoggerTypeJSON
	FormatConsole = glog.LoggerTypeConsole
	FormatPretty  = glog.LoggerTypePretty
)

// Resolve uses deterministic precedence provider > logger > nop.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	return glog.Resolve(name, provider, logger)
}

// Root is the process logger plus the slog handler it writes through.
type Root struct {
	*glog.BaseLogger
	handler slog.Handler
}

// New builds the root go-logger for level and format. Unknown formats fall
// back to JSON. Extra options are applied after the defaults.
func New(level string, format string, out io.Writer, opts ...glog.Option) *Root {
	root := &Root{}
	options := []glog.Option{
		glog.WithLevel(strings.ToUpper(strings.TrimSpace(level))),
		glog.WithLoggerType(loggerType(format)),
		glog.WithWriter(out),
		glog.WithHandlerWrapper(func(handler slog.Handler) slog.Handler {
			if root.handler == nil {
				root.handler = handler
			}
			return handler
		}),
	}
	root.BaseLogger = glog.NewLogger(append(options, opts...)...)
	return root
}

// Slog returns a *slog.Logger sharing the root handler, tagged with name.
// It serves middleware that only accepts the standard logger.
func (r *Root) Slog(name string) *slog.Logger {
	if r == nil || r.handler == nil {
		return slog.New(slog.DiscardHandler)
	}
	logger := slog.New(r.handler)
	if name = strings.TrimSpace(name); name != "" {
		logger = logger.With("logger", name)
	}
	return logger
}

func loggerType(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatConsole:
		return FormatConsole
	case FormatPretty:
		return FormatPretty
	default:
		return FormatJSON
	}
}

var (
	_ glog.Logger         = (*Root)(nil)
	_ glog.FieldsLogger   = (*Root)(nil)
	_ glog.LoggerProvider = (*Root)(nil)
)
