package core

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

type LogLevel = log.Level

const (
	LogLevelDebug LogLevel = log.DebugLevel
	LogLevelInfo  LogLevel = log.InfoLevel
	LogLevelWarn  LogLevel = log.WarnLevel
	LogLevelError LogLevel = log.ErrorLevel
)

var once sync.Once

type logger struct {
	*log.Logger
	mu     sync.RWMutex
	fields []interface{}
}

var singleton *logger

func getLogger() *logger {
	once.Do(
		func() {
			l := log.NewWithOptions(os.Stderr, log.Options{
				ReportTimestamp: true,
				TimeFormat:      time.RFC3339,
				Prefix:          "batchrender",
			})
			l.SetLevel(log.InfoLevel)
			singleton = &logger{Logger: l}
		})
	return singleton
}

// entry returns the logger decorated with the fields set through SetLogFields.
func (l *logger) entry() *log.Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.fields) == 0 {
		return l.Logger
	}
	return l.Logger.With(l.fields...)
}

// ParseLogLevel accepts debug, info, warn and error (case-insensitive).
func ParseLogLevel(level string) (LogLevel, error) {
	return log.ParseLevel(level)
}

func SetLogLevel(level LogLevel) {
	getLogger().SetLevel(level)
}

// SetLogOutput redirects every log line to w. Tests use it to silence or capture output.
func SetLogOutput(w io.Writer) {
	getLogger().SetOutput(w)
}

// SetLogFields attaches key/value pairs to all following log lines. Passing
// nothing clears them.
func SetLogFields(keyvals ...interface{}) {
	l := getLogger()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fields = keyvals
}

func LogDebug(msg string, args ...interface{}) {
	getLogger().entry().Debugf(msg, args...)
}

func LogInfo(msg string, args ...interface{}) {
	getLogger().entry().Infof(msg, args...)
}

func LogWarn(msg string, args ...interface{}) {
	getLogger().entry().Warnf(msg, args...)
}

func LogError(msg string, args ...interface{}) {
	getLogger().entry().Errorf(msg, args...)
}

func LogFatal(msg string, args ...interface{}) {
	getLogger().entry().Fatalf(msg, args...)
}
