package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Options selects the level and output of the process logger.
type Options struct {
	Level  string // debug, info, warn, error; anything else means info
	Format string // console or json
}

var (
	process *Logger
	once    sync.Once
)

// Get returns the process logger. It is built from opts on the first call;
// later calls return the same logger.
func Get(opts Options) *Logger {
	once.Do(func() {
		process = build(opts, zapcore.Lock(os.Stdout))
	})
	return process
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// With returns a child logger carrying the given key/value pairs.
func (l *Logger) With(args ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(args...)}
}
