package logging

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestCustomFormatter(t *testing.T) {
	f := &CustomFormatter{SystemName: "taskhub"}
	entry := &logrus.Entry{
		Logger:  logrus.New(),
		Time:    time.Date(2026, 3, 1, 10, 30, 0, 0, time.Local),
		Level:   logrus.WarnLevel,
		Message: "Event ID: API_FAILED, Description: boom",
		Data:    logrus.Fields{"status": 502, "method": "GET"},
	}

	out, err := f.Format(entry)
	if err != nil {
		t.Fatal(err)
	}
	line := string(out)

	for _, want := range []string{
		"Date: 2026-03-01",
		"Time: 10:30:00",
		"Event Source: taskhub",
		"Event Type: WARNING",
		"Event ID: ",
		"Message: Event ID: API_FAILED, Description: boom",
		"method=GET, status=502",
	} {
		if !strings.Contains(line, want) {
			t.Fatalf("formatted line missing %q: %s", want, line)
		}
	}
	if !strings.HasSuffix(line, "\n") {
		t.Fatal("line should end with newline")
	}
}

func TestInitLoggerWritesFile(t *testing.T) {
	path := t.TempDir() + "/logs/taskhub.log"
	if err := InitLogger(path, "debug"); err != nil {
		t.Fatal(err)
	}
	if Logger.GetLevel() != logrus.DebugLevel {
		t.Fatalf("expected debug level, got %s", Logger.GetLevel())
	}

	// Second call is a no-op.
	if err := InitLogger(path, "not-a-level"); err != nil {
		t.Fatal(errors.New("second InitLogger call should be ignored"))
	}
}
