package gossip

import (
	"bytes"
	"context"
	"log"
	"log/slog"

	"github.com/hashicorp/go-hclog"
)

// newStdLogger routes memberlist's log output through hclog into slog.
func newStdLogger(logger *slog.Logger) *log.Logger {
	hl := hclog.New(&hclog.LoggerOptions{
		Name:        "memberlist",
		Level:       hclog.Debug,
		Output:      &slogWriter{logger: logger},
		DisableTime: true,
	})
	return hl.StandardLogger(&hclog.StandardLoggerOptions{InferLevels: true})
}

// slogWriter adapts slog.Logger to io.Writer for hclog.
type slogWriter struct {
	logger *slog.Logger
}

// Write implements io.Writer. Lines carry hclog's level tag, which maps
// back to a slog level.
func (w *slogWriter) Write(p []byte) (n int, err error) {
	line := bytes.TrimSpace(p)
	level := slog.LevelDebug
	switch {
	case bytes.HasPrefix(line, []byte("[ERROR]")):
		level = slog.LevelError
	case bytes.HasPrefix(line, []byte("[WARN]")):
		level = slog.LevelWarn
	case bytes.HasPrefix(line, []byte("[INFO]")):
		level = slog.LevelInfo
	}
	w.logger.Log(context.Background(), level, string(line))
	return len(p), nil
}
