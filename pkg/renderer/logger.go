package renderer

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/df07/go-ppm-raytracer/pkg/core"
)

// SlogLogger implements core.Logger on top of a structured logger.
// Each Printf becomes one info record with the trailing newline removed.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger wraps logger; a nil logger uses slog.Default()
func NewSlogLogger(logger *slog.Logger) core.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogLogger{logger: logger}
}

func (sl *SlogLogger) Printf(format string, args ...interface{}) {
	sl.logger.Info(strings.TrimRight(fmt.Sprintf(format, args...), "\n"))
}
