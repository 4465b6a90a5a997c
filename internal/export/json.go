package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/taskhub/internal/api"
)

type jsonExport struct {
	ExportedAt string     `json:"exported_at"`
	Project    string     `json:"project"`
	ProjectID  string     `json:"project_id"`
	Count      int        `json:"count"`
	Tasks      []jsonTask `json:"tasks"`
}

type jsonTask struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description,omitempty"`
	Status        string   `json:"status"`
	Priority      string   `json:"priority"`
	DueDate       string   `json:"due_date,omitempty"`
	Assignees     []string `json:"assignees"`
	Labels        []string `json:"labels"`
	SubtasksDone  int      `json:"subtasks_done"`
	SubtasksTotal int      `json:"subtasks_total"`
}

func ToJSON(tasks []api.Task, project api.Project, path string) error {
	export := jsonExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Project:    project.Name,
		ProjectID:  project.ID.String(),
		Count:      len(tasks),
		Tasks:      []jsonTask{},
	}

	for _, t := range tasks {
		done, total := t.SubtaskProgress()
		export.Tasks = append(export.Tasks, jsonTask{
			ID:            t.ID.String(),
			Title:         t.Title,
			Description:   t.Description,
			Status:        string(t.Status),
			Priority:      string(t.Priority),
			DueDate:       dueString(t),
			Assignees:     t.AssigneeNames(),
			Labels:        t.LabelNames(),
			SubtasksDone:  done,
			SubtasksTotal: total,
		})
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}
