package api

import (
	"fmt"
	"net/url"
	"strings"
)

// --- Task Methods ---

// ListTasks returns every task the backend knows about.
func (c *Client) ListTasks() ([]Task, error) {
	data, err := c.get("/tasks")
	if err != nil {
		return nil, err
	}
	return decodeList[Task](data)
}

// GetStats returns queue and host statistics.
func (c *Client) GetStats() (*Stats, error) {
	data, err := c.get("/stats")
	if err != nil {
		return nil, err
	}
	return decodeOne[Stats](data)
}

// GetTaskLog returns the captured output of a task. A task without a log
// file yields an error matching ErrNotFound.
func (c *Client) GetTaskLog(id string) (*TaskLog, error) {
	data, err := c.get(fmt.Sprintf("/tasks/%s/log", url.PathEscape(id)))
	if err != nil {
		return nil, err
	}
	return decodeOne[TaskLog](data)
}

// CreateTask queues a single prompt.
func (c *Client) CreateTask(input CreateTaskInput) (*Task, error) {
	data, err := c.post("/tasks", input)
	if err != nil {
		return nil, err
	}
	if err := checkResult(data); err != nil {
		return nil, err
	}
	return decodeOne[Task](data)
}

// CreateTaskBatch queues several prompts in one submission.
func (c *Client) CreateTaskBatch(input CreateTaskBatchInput) ([]Task, error) {
	data, err := c.post("/tasks/batch", input)
	if err != nil {
		return nil, err
	}
	if err := checkResult(data); err != nil {
		return nil, err
	}
	return decodeList[Task](data)
}

// KillTask asks the backend to stop a running task.
func (c *Client) KillTask(id string) error {
	data, err := c.post(fmt.Sprintf("/tasks/%s/kill", url.PathEscape(id)), nil)
	if err != nil {
		return err
	}
	return checkResult(data)
}

// DeleteTask removes a task and its log.
func (c *Client) DeleteTask(id string) error {
	data, err := c.del(fmt.Sprintf("/tasks/%s", url.PathEscape(id)))
	if err != nil {
		return err
	}
	return checkResult(data)
}

// SplitPrompts splits text on lines consisting only of "---". Empty
// chunks are dropped.
func SplitPrompts(text string) []string {
	var (
		out     []string
		current []string
	)
	flush := func() {
		chunk := strings.TrimSpace(strings.Join(current, "\n"))
		if chunk != "" {
			out = append(out, chunk)
		}
		current = current[:0]
	}
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "---" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return out
}
