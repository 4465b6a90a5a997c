// Package export writes a project's task list to disk as CSV or JSON.
package export

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/sadopc/taskhub/internal/api"
)

var unsafeChars = regexp.MustCompile(`[^a-z0-9]+`)

// FileName builds "<project>-tasks-<date>.<ext>" inside dir.
func FileName(dir, project, ext string, now time.Time) string {
	slug := strings.Trim(unsafeChars.ReplaceAllString(strings.ToLower(project), "-"), "-")
	if slug == "" {
		slug = "project"
	}
	return filepath.Join(dir, fmt.Sprintf("%s-tasks-%s.%s", slug, now.Format("2006-01-02"), ext))
}

func dueString(t api.Task) string {
	if t.DueDate == nil {
		return ""
	}
	return t.DueDate.String()
}

func progressString(t api.Task) string {
	done, total := t.SubtaskProgress()
	if total == 0 {
		return ""
	}
	return fmt.Sprintf("%d/%d", done, total)
}
