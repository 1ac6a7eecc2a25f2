package badgerlog

import (
	"fmt"
	"log/slog"
	"strings"
)

// slogAdapter routes badger's internal logging through slog.
// Badger's info chatter is demoted to debug.
type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) Errorf(format string, args ...interface{}) {
	a.logger.Error(line(format, args...), "component", "badger")
}

func (a slogAdapter) Warningf(format string, args ...interface{}) {
	a.logger.Warn(line(format, args...), "component", "badger")
}

func (a slogAdapter) Infof(format string, args ...interface{}) {
	a.logger.Debug(line(format, args...), "component", "badger")
}

func (a slogAdapter) Debugf(format string, args ...interface{}) {
	a.logger.Debug(line(format, args...), "component", "badger")
}

func line(format string, args ...interface{}) string {
	return strings.TrimRight(fmt.Sprintf(format, args...), "\n")
}
