package api

import (
	"encoding/json"
	"strings"
	"time"
)

// QueryParams holds optional query string filters.
type QueryParams map[string]string

// MutationResult is the {ok, error} body some mutations return.
type MutationResult struct {
	OK    *bool  `json:"ok,omitempty"`
	Error string `json:"error,omitempty"`
}

// --- Task ---

// TaskStatus is the lifecycle state of a queued task.
type TaskStatus string

const (
	TaskQueued    TaskStatus = "queued"
	TaskRunning   TaskStatus = "running"
	TaskDone      TaskStatus = "done"
	TaskFailed    TaskStatus = "failed"
	TaskCancelled TaskStatus = "cancelled"
)

// Live reports whether the task is still producing output.
func (s TaskStatus) Live() bool {
	return s == TaskRunning
}

// Finished reports whether the task reached a terminal state.
func (s TaskStatus) Finished() bool {
	switch s {
	case TaskDone, TaskFailed, TaskCancelled:
		return true
	}
	return false
}

// Task is one unit of work run by the assistant.
type Task struct {
	ID       string     `json:"id"`
	Title    string     `json:"title,omitempty"`
	Prompt   string     `json:"prompt"`
	Status   TaskStatus `json:"status"`
	Source   string     `json:"source,omitempty"`
	Model    string     `json:"model,omitempty"`
	Result   string     `json:"result,omitempty"`
	Error    string     `json:"error,omitempty"`
	Created  time.Time  `json:"created"`
	Started  *time.Time `json:"started,omitempty"`
	Ended    *time.Time `json:"ended,omitempty"`
	CostUSD  float64    `json:"cost_usd,omitempty"`
	Attempts int        `json:"attempts,omitempty"`
}

// DisplayTitle returns the title, falling back to the first prompt line.
func (t Task) DisplayTitle() string {
	if strings.TrimSpace(t.Title) != "" {
		return t.Title
	}
	line, _, _ := strings.Cut(strings.TrimSpace(t.Prompt), "\n")
	return line
}

// Duration returns how long the task ran, or has been running as of now.
func (t Task) Duration(now time.Time) time.Duration {
	if t.Started == nil {
		return 0
	}
	end := now
	if t.Ended != nil {
		end = *t.Ended
	}
	if end.Before(*t.Started) {
		return 0
	}
	return end.Sub(*t.Started)
}

// TaskLog is the captured output of a task.
type TaskLog struct {
	Content string `json:"content"`
}

// CreateTaskInput queues a single task.
type CreateTaskInput struct {
	Prompt string `json:"prompt"`
}

// CreateTaskBatchInput queues several tasks sharing one submission time.
type CreateTaskBatchInput struct {
	Prompts []string `json:"prompts"`
}

// Stats summarises queue and host state.
type Stats struct {
	Running       int     `json:"running"`
	Queued        int     `json:"queued"`
	DoneToday     int     `json:"done_today"`
	FailedToday   int     `json:"failed_today"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	UptimeSeconds int64   `json:"uptime_seconds"`
}

// Uptime returns the host uptime as a duration.
func (s Stats) Uptime() time.Duration {
	return time.Duration(s.UptimeSeconds) * time.Second
}

// --- Inbox ---

// InboxStatus is the triage state of a knowledge inbox item.
type InboxStatus string

const (
	InboxUnset     InboxStatus = ""
	InboxDismissed InboxStatus = "dismissed"
	InboxSaved     InboxStatus = "saved"
	InboxExecuted  InboxStatus = "executed"
)

// UnmarshalJSON maps null and "unset" to InboxUnset.
func (s *InboxStatus) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil || *raw == "unset" {
		*s = InboxUnset
		return nil
	}
	*s = InboxStatus(*raw)
	return nil
}

// Label returns a printable name for the status.
func (s InboxStatus) Label() string {
	if s == InboxUnset {
		return "new"
	}
	return string(s)
}

// InboxAction is a triage decision sent to the backend.
type InboxAction string

const (
	ActionDismiss InboxAction = "dismiss"
	ActionSave    InboxAction = "save"
	ActionExecute InboxAction = "execute"
)

// ResultStatus returns the item status the action produces.
func (a InboxAction) ResultStatus() InboxStatus {
	switch a {
	case ActionDismiss:
		return InboxDismissed
	case ActionSave:
		return InboxSaved
	case ActionExecute:
		return InboxExecuted
	}
	return InboxUnset
}

// InboxItem is one message triaged by the knowledge inbox.
type InboxItem struct {
	ID         string      `json:"id"`
	Subject    string      `json:"subject"`
	From       string      `json:"from"`
	Summary    string      `json:"summary"`
	Category   string      `json:"category,omitempty"`
	Tags       []string    `json:"tags"`
	Status     InboxStatus `json:"status"`
	Processing bool        `json:"processing,omitempty"`
	Date       time.Time   `json:"date"`
}

// InboxQuestion is a follow-up the assistant raised about an item.
type InboxQuestion struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer,omitempty"`
}

// --- Contacts ---

// Contact is a person the assistant knows about.
type Contact struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Email    string    `json:"email,omitempty"`
	Phone    string    `json:"phone,omitempty"`
	Relation string    `json:"relation,omitempty"`
	Notes    string    `json:"notes,omitempty"`
	Birthday string    `json:"birthday,omitempty"`
	Created  time.Time `json:"created"`
}

// CreateContactInput defines the fields for a new contact.
type CreateContactInput struct {
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Relation string `json:"relation,omitempty"`
	Notes    string `json:"notes,omitempty"`
	Birthday string `json:"birthday,omitempty"`
}

// UpdateContactInput defines the fields for updating a contact.
type UpdateContactInput struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Relation *string `json:"relation,omitempty"`
	Notes    *string `json:"notes,omitempty"`
	Birthday *string `json:"birthday,omitempty"`
}

// Preference is something the assistant learned about a contact.
type Preference struct {
	Category string    `json:"category"`
	Value    string    `json:"value"`
	Source   string    `json:"source,omitempty"`
	Updated  time.Time `json:"updated"`
}

// --- Files ---

// UploadResult describes a stored upload.
type UploadResult struct {
	Name string `json:"name"`
	Path string `json:"path,omitempty"`
	Size int64  `json:"size"`
}
