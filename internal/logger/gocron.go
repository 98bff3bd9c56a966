package logger

import "go.uber.org/zap"

// CronLogger adapts Logger to the gocron.Logger interface.
type CronLogger struct {
	L *Logger
}

// ForCron returns a CronLogger named "cron" whose caller points at gocron, not at this adapter.
func ForCron(l *Logger) CronLogger {
	s := l.Desugar().WithOptions(zap.AddCallerSkip(1)).Named("cron").Sugar()
	return CronLogger{L: &Logger{SugaredLogger: s}}
}

func (c CronLogger) Debug(msg string, args ...any) { c.L.Debugw(msg, args...) }
func (c CronLogger) Info(msg string, args ...any)  { c.L.Infow(msg, args...) }
func (c CronLogger) Warn(msg string, args ...any)  { c.L.Warnw(msg, args...) }
func (c CronLogger) Error(msg string, args ...any) { c.L.Errorw(msg, args...) }
