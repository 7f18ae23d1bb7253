// Package applog provides the service-wide leveled logger: a logrus wrapper
// with a single-line formatter shared by every component.
package applog

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// timestampFormat is the shared log line prefix layout.
const timestampFormat = "2006-01-02 15:04:05.000"

// Logger is a leveled printf-style logger.
type Logger struct {
	entry *logrus.Entry
}

// New creates a logger writing single-line records to out (stdout when nil)
// at the given level. An unknown level falls back to info.
func New(level string, out io.Writer) *Logger {
	l := logrus.New()
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	l.SetLevel(parsed)
	l.SetFormatter(&SimpleFormatter{TimestampFormat: timestampFormat})
	if out == nil {
		out = os.Stdout
	}
	l.SetOutput(out)
	return &Logger{entry: logrus.NewEntry(l)}
}

var (
	defaultOnce sync.Once
	defaultLog  *Logger
)

// Default returns the shared info-level stdout logger.
func Default() *Logger {
	defaultOnce.Do(func() {
		defaultLog = New("info", os.Stdout)
	})
	return defaultLog
}

func (l *Logger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }
func (l *Logger) Fatalf(format string, args ...interface{}) { l.entry.Fatalf(format, args...) }

// WithField returns a logger appending key=value to every record.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{entry: l.entry.WithField(key, value)}
}

// SimpleFormatter renders one record per line:
//
//	2026-02-14 09:30:00.000 [INF] message key=value
type SimpleFormatter struct {
	TimestampFormat string
}

// Format implements logrus.Formatter.
func (f *SimpleFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b *bytes.Buffer
	if entry.Buffer != nil {
		b = entry.Buffer
	} else {
		b = &bytes.Buffer{}
	}

	layout := f.TimestampFormat
	if layout == "" {
		layout = timestampFormat
	}
	b.WriteString(entry.Time.Format(layout))

	level := strings.ToUpper(entry.Level.String())
	if len(level) > 3 {
		level = level[:3]
	}
	fmt.Fprintf(b, " [%s] ", level)

	b.WriteString(entry.Message)

	if len(entry.Data) > 0 {
		keys := make([]string, 0, len(entry.Data))
		for k := range entry.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(b, " %s=%v", k, entry.Data[k])
		}
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}
