package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sadopc/taskhub/internal/api"
)

func sampleData() ([]api.Task, api.Project) {
	due, _ := api.ParseDate("2025-04-01")
	project := api.Project{ID: uuid.New(), Name: "Project Alpha"}

	tasks := []api.Task{
		{
			ID:       uuid.New(),
			Title:    "Write docs",
			Status:   api.StatusInProgress,
			Priority: api.PriorityHigh,
			DueDate:  &due,
			Assignees: []api.Assignee{
				{User: api.User{ID: "1", Username: "ana"}},
				{User: api.User{ID: "2", Username: "marko"}},
			},
			Labels:   []api.Label{{Name: "Docs"}},
			Subtasks: []api.Subtask{{IsDone: true}, {IsDone: false}},
		},
		{
			ID:       uuid.New(),
			Title:    "Fix, \"quoted\" bug",
			Status:   api.StatusTodo,
			Priority: api.PriorityLow,
		},
	}
	return tasks, project
}

// ============================================================
// CSV
// ============================================================

func TestToCSV(t *testing.T) {
	tasks, project := sampleData()
	path := filepath.Join(t.TempDir(), "test.csv")

	if err := ToCSV(tasks, project, path); err != nil {
		t.Fatalf("ToCSV: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}

	if len(records) != 3 {
		t.Fatalf("expected 3 rows (1 header + 2 data), got %d", len(records))
	}
	if records[0][0] != "ID" || records[0][8] != "Subtasks" {
		t.Fatalf("unexpected header: %v", records[0])
	}

	row := records[1]
	if row[1] != "Project Alpha" || row[2] != "Write docs" || row[3] != "IN_PROGRESS" {
		t.Fatalf("unexpected row: %v", row)
	}
	if row[5] != "2025-04-01" || row[6] != "ana; marko" || row[7] != "Docs" || row[8] != "1/2" {
		t.Fatalf("unexpected row: %v", row)
	}
	if records[2][2] != `Fix, "quoted" bug` {
		t.Fatalf("title not round-tripped: %q", records[2][2])
	}
	if records[2][5] != "" || records[2][8] != "" {
		t.Fatalf("expected empty due and progress: %v", records[2])
	}
}

func TestToCSVEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	if err := ToCSV(nil, api.Project{Name: "x"}, path); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if strings.Count(string(data), "\n") != 1 {
		t.Fatalf("expected header only, got %q", data)
	}
}

func TestToCSVBadPath(t *testing.T) {
	tasks, project := sampleData()
	if err := ToCSV(tasks, project, filepath.Join(t.TempDir(), "missing", "x.csv")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

// ============================================================
// JSON
// ============================================================

func TestToJSON(t *testing.T) {
	tasks, project := sampleData()
	path := filepath.Join(t.TempDir(), "test.json")

	if err := ToJSON(tasks, project, path); err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var out jsonExport
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out.Count != 2 || len(out.Tasks) != 2 {
		t.Fatalf("expected 2 tasks, got count=%d len=%d", out.Count, len(out.Tasks))
	}
	if _, err := time.Parse(time.RFC3339, out.ExportedAt); err != nil {
		t.Fatalf("exported_at not RFC3339: %q", out.ExportedAt)
	}
	if out.Project != "Project Alpha" || out.ProjectID != project.ID.String() {
		t.Fatalf("unexpected project: %s %s", out.Project, out.ProjectID)
	}
	first := out.Tasks[0]
	if first.DueDate != "2025-04-01" || first.SubtasksDone != 1 || first.SubtasksTotal != 2 {
		t.Fatalf("unexpected task: %+v", first)
	}
	if out.Tasks[1].DueDate != "" || len(out.Tasks[1].Assignees) != 0 {
		t.Fatalf("unexpected task: %+v", out.Tasks[1])
	}
}

func TestToJSONEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	if err := ToJSON(nil, api.Project{}, path); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `"tasks": []`) {
		t.Fatalf("expected empty tasks array, got %s", data)
	}
}

func TestFileName(t *testing.T) {
	now := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
	got := FileName("/tmp", "Apollo: Launch!", "csv", now)
	if got != filepath.Join("/tmp", "apollo-launch-tasks-2025-03-09.csv") {
		t.Fatalf("unexpected name %s", got)
	}
	if got := FileName("", "???", "json", now); got != "project-tasks-2025-03-09.json" {
		t.Fatalf("unexpected name %s", got)
	}
}
