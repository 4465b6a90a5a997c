package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the process-wide logger. It discards output until InitLogger runs,
// so nothing ever reaches the terminal the TUI owns.
var Logger = newDiscardLogger()

var once sync.Once

// CustomFormatter writes one line per entry with a fresh event id.
type CustomFormatter struct {
	SystemName string
}

// Format implements logrus.Formatter.
func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b *bytes.Buffer
	if entry.Buffer != nil {
		b = entry.Buffer
	} else {
		b = &bytes.Buffer{}
	}

	local := entry.Time.Local()
	fmt.Fprintf(b, "Date: %s, Time: %s, ", local.Format("2006-01-02"), local.Format("15:04:05"))
	fmt.Fprintf(b, "Event Source: %s, ", f.SystemName)
	fmt.Fprintf(b, "Event Type: %s, ", strings.ToUpper(entry.Level.String()))
	fmt.Fprintf(b, "Event ID: %s, ", uuid.New().String())
	fmt.Fprintf(b, "Message: %s", entry.Message)

	if len(entry.Data) > 0 {
		keys := make([]string, 0, len(entry.Data))
		for k := range entry.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(b, ", %s=%v", k, entry.Data[k])
		}
	}

	if entry.HasCaller() {
		fmt.Fprintf(b, ", Location: %s:%d", filepath.Base(entry.Caller.File), entry.Caller.Line)
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}

// InitLogger points the global logger at a rotated log file.
func InitLogger(path, level string) error {
	var initErr error
	once.Do(func() {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			initErr = fmt.Errorf("create log directory: %w", err)
			return
		}

		lvl, err := logrus.ParseLevel(level)
		if err != nil {
			initErr = fmt.Errorf("parse log level: %w", err)
			return
		}

		Logger.SetOutput(&lumberjack.Logger{
			Filename:   path,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		})
		Logger.SetFormatter(&CustomFormatter{SystemName: "taskhub"})
		Logger.SetLevel(lvl)
		Logger.SetReportCaller(true)

		Logger.Infof("Event ID: LOGGER_INITIALIZED, Description: Logger initialized, output to: %s", path)
	})
	return initErr
}

func newDiscardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
