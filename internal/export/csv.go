package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/sadopc/taskhub/internal/api"
)

func ToCSV(tasks []api.Task, project api.Project, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"ID", "Project", "Title", "Status", "Priority", "Due", "Assignees", "Labels", "Subtasks"}); err != nil {
		return err
	}

	for _, t := range tasks {
		row := []string{
			t.ID.String(),
			project.Name,
			t.Title,
			string(t.Status),
			string(t.Priority),
			dueString(t),
			strings.Join(t.AssigneeNames(), "; "),
			strings.Join(t.LabelNames(), "; "),
			progressString(t),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
