package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sadopc/taskhub/internal/access"
)

// UserID is a user's primary key. The server sends it as a number; tokens
// may carry it as a string, so both are accepted.
type UserID string

func (id *UserID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if string(b) == "null" {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = UserID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("user id: %w", err)
	}
	*id = UserID(n.String())
	return nil
}

func (id UserID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(strconv.FormatInt(n, 10)), nil
	}
	return json.Marshal(string(id))
}

func (id UserID) String() string { return string(id) }

type User struct {
	ID       UserID `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// Profile is the logged-in user's account. /auth/me/ answers flat, while
// /auth/profile/ nests the account under "user"; both decode here.
type Profile struct {
	ID        UserID `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Timezone  string `json:"timezone"`
	AvatarURL string `json:"avatar_url"`
}

func (p *Profile) UnmarshalJSON(b []byte) error {
	type flat Profile
	var v struct {
		flat
		User *User `json:"user"`
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*p = Profile(v.flat)
	if v.User != nil {
		if p.ID == "" {
			p.ID = v.User.ID
		}
		if p.Username == "" {
			p.Username = v.User.Username
		}
		if p.Email == "" {
			p.Email = v.User.Email
		}
	}
	return nil
}

// ============================================================
// Auth
// ============================================================

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
}

// TokenPair is the login response. Older servers send "token" instead of "access".
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	Token   string `json:"token"`
}

func (t TokenPair) AccessToken() string {
	if t.Access != "" {
		return t.Access
	}
	return t.Token
}

type ProfileUpdate struct {
	Username string
	Email    string
	Phone    string
	Timezone string
	// AvatarPath is a local image file to upload; empty keeps the current avatar.
	AvatarPath string
}

// ============================================================
// Projects
// ============================================================

type Membership struct {
	ID       uuid.UUID   `json:"id"`
	User     User        `json:"user"`
	Role     access.Role `json:"role"`
	JoinedAt time.Time   `json:"joined_at"`
}

func (m Membership) Key() uuid.UUID          { return m.ID }
func (m Membership) MemberUserID() string    { return string(m.User.ID) }
func (m Membership) MemberRole() access.Role { return m.Role }

type Label struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	ColorHex string    `json:"color_hex"`
}

func (l Label) Key() uuid.UUID { return l.ID }

type Project struct {
	ID          uuid.UUID    `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Archived    bool         `json:"is_archived"`
	CreatedBy   UserID       `json:"created_by"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Members     []Membership `json:"members"`
	Labels      []Label      `json:"labels"`
}

func (p Project) Key() uuid.UUID { return p.ID }

type ProjectInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Dashboard holds the aggregate counters of /projects/{id}/dashboard/.
type Dashboard struct {
	ProjectName       string `json:"project_name"`
	TotalTasks        int    `json:"total_tasks"`
	CompletedTasks    int    `json:"completed_tasks"`
	TotalSubtasks     int    `json:"total_subtasks"`
	CompletedSubtasks int    `json:"completed_subtasks"`
	Comments          int    `json:"comments_count"`
	Attachments       int    `json:"attachments_count"`
	Members           int    `json:"members_count"`
	Labels            int    `json:"labels_count"`
	OverdueTasks      int    `json:"overdue_tasks"`
}

// Progress is the rounded percentage of completed tasks.
func (d Dashboard) Progress() int {
	return percent(d.CompletedTasks, d.TotalTasks)
}

func (d Dashboard) SubtaskProgress() int {
	return percent(d.CompletedSubtasks, d.TotalSubtasks)
}

func percent(done, total int) int {
	if total <= 0 {
		return 0
	}
	return (done*100 + total/2) / total
}

type Activity struct {
	ID          int64     `json:"id"`
	User        *User     `json:"user"`
	Action      string    `json:"action"`
	ObjectType  string    `json:"object_type"`
	ObjectID    string    `json:"object_id"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// Actor is the username behind the entry, or "system".
func (a Activity) Actor() string {
	if a.User == nil || a.User.Username == "" {
		return "system"
	}
	return a.User.Username
}

// ============================================================
// Tasks
// ============================================================

type Status string

const (
	StatusTodo       Status = "TODO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
	StatusBlocked    Status = "BLOCKED"
)

func Statuses() []Status {
	return []Status{StatusTodo, StatusInProgress, StatusDone, StatusBlocked}
}

func (s Status) Label() string {
	switch s {
	case StatusTodo:
		return "To Do"
	case StatusInProgress:
		return "In Progress"
	case StatusDone:
		return "Done"
	case StatusBlocked:
		return "Blocked"
	default:
		return string(s)
	}
}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

func Priorities() []Priority {
	return []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}
}

func (p Priority) Label() string {
	if p == "" {
		return ""
	}
	s := string(p)
	return s[:1] + strings.ToLower(s[1:])
}

// Rank orders priorities, URGENT highest.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 3
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

const dateLayout = "2006-01-02"

// Date is a calendar day, encoded as YYYY-MM-DD.
type Date struct {
	time.Time
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("date must look like %s", dateLayout)
	}
	return Date{t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return err
	}
	*d = Date{t}
	return nil
}

type Assignee struct {
	ID         uuid.UUID `json:"id"`
	User       User      `json:"user"`
	AssignedAt time.Time `json:"assigned_at"`
}

type Task struct {
	ID          uuid.UUID  `json:"id"`
	Project     uuid.UUID  `json:"project"`
	Creator     *User      `json:"creator"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	DueDate     *Date      `json:"due_date"`
	Assignees   []Assignee `json:"assignees"`
	Labels      []Label    `json:"labels"`
	Subtasks    []Subtask  `json:"subtasks"`
	Comments    []Comment  `json:"comments"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (t Task) Key() uuid.UUID { return t.ID }

// SubtaskProgress counts finished and total subtasks.
func (t Task) SubtaskProgress() (done, total int) {
	for _, s := range t.Subtasks {
		if s.IsDone {
			done++
		}
	}
	return done, len(t.Subtasks)
}

// Overdue reports whether the task is past due and not done.
func (t Task) Overdue(now time.Time) bool {
	if t.DueDate == nil || t.DueDate.IsZero() || t.Status == StatusDone {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return t.DueDate.Before(today)
}

func (t Task) AssigneeNames() []string {
	names := make([]string, 0, len(t.Assignees))
	for _, a := range t.Assignees {
		names = append(names, a.User.Username)
	}
	return names
}

func (t Task) LabelNames() []string {
	names := make([]string, 0, len(t.Labels))
	for _, l := range t.Labels {
		names = append(names, l.Name)
	}
	return names
}

// TaskInput is the body for creating or replacing a task.
type TaskInput struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Status      Status      `json:"status,omitempty"`
	Priority    Priority    `json:"priority,omitempty"`
	DueDate     *Date       `json:"due_date"`
	LabelIDs    []uuid.UUID `json:"label_ids,omitempty"`
	AssigneeIDs []UserID    `json:"assignee_ids,omitempty"`
}

// TaskFilter narrows ListTasks. Zero values are ignored.
type TaskFilter struct {
	Status    Status
	Assignee  UserID
	Label     uuid.UUID
	DueBefore *Date
	Search    string
	Ordering  string
}

type Subtask struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	IsDone    bool      `json:"is_done"`
	CreatedAt time.Time `json:"created_at"`
}

func (s Subtask) Key() uuid.UUID { return s.ID }

type Comment struct {
	ID        uuid.UUID  `json:"id"`
	Body      string     `json:"body"`
	Author    *User      `json:"author"`
	CreatedAt time.Time  `json:"created_at"`
	EditedAt  *time.Time `json:"edited_at"`
}

func (c Comment) Key() uuid.UUID { return c.ID }

// IsAuthor reports whether userID wrote the comment.
func (c Comment) IsAuthor(userID string) bool {
	return c.Author != nil && userID != "" && string(c.Author.ID) == userID
}

func (c Comment) AuthorName() string {
	if c.Author == nil {
		return "deleted user"
	}
	return c.Author.Username
}

type Attachment struct {
	ID          uuid.UUID `json:"id"`
	Filename    string    `json:"filename"`
	File        string    `json:"file"`
	ContentType string    `json:"content_type"`
	Size        *int64    `json:"size"`
	Uploader    *User     `json:"uploader"`
	CreatedAt   time.Time `json:"created_at"`
}

func (a Attachment) Key() uuid.UUID { return a.ID }

func (a Attachment) Bytes() uint64 {
	if a.Size == nil || *a.Size < 0 {
		return 0
	}
	return uint64(*a.Size)
}
