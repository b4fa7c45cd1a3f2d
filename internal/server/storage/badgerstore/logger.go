package badgerstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophstream/internal/logging"
)

// badgerLogger forwards badger's printf-style logging to logging.Logger.
// Badger info chatter is demoted to debug.
type badgerLogger struct {
	l logging.Logger
}

func msg(format string, args ...any) string {
	return strings.TrimSpace(fmt.Sprintf(format, args...))
}

func (b *badgerLogger) Errorf(format string, args ...any) {
	b.l.Error(context.Background(), msg(format, args...))
}

func (b *badgerLogger) Warningf(format string, args ...any) {
	b.l.Warn(context.Background(), msg(format, args...))
}

func (b *badgerLogger) Infof(format string, args ...any) {
	b.l.Debug(context.Background(), msg(format, args...))
}

func (b *badgerLogger) Debugf(format string, args ...any) {
	b.l.Debug(context.Background(), msg(format, args...))
}
