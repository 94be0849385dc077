package api

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListTasks(t *testing.T) {
	_, client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/tasks", r.URL.Path)
		assert.Equal(t, "Bearer cnc_testkey", r.Header.Get("Authorization"))
		w.Write([]byte(`[
			{"id":"t-1","prompt":"summarise inbox","status":"running","created":"2026-03-03T09:00:00Z"},
			{"id":"t-2","prompt":"book table","status":"done","created":"2026-03-02T18:30:00Z","ended":"2026-03-02T18:31:00Z"}
		]`))
	})

	tasks, err := client.ListTasks()
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, TaskRunning, tasks[0].Status)
	assert.True(t, tasks[0].Status.Live())
	assert.Equal(t, time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC), tasks[0].Created)
	assert.NotNil(t, tasks[1].Ended)
	assert.True(t, tasks[1].Status.Finished())
}

func TestGetStats(t *testing.T) {
	_, client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stats", r.URL.Path)
		w.Write(jsonResponse(map[string]any{
			"running":        2,
			"queued":         5,
			"cpu_percent":    12.5,
			"uptime_seconds": 3600,
		}))
	})

	stats, err := client.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Running)
	assert.Equal(t, 5, stats.Queued)
	assert.Equal(t, time.Hour, stats.Uptime())
}

func TestGetTaskLog(t *testing.T) {
	_, client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tasks/t-1/log", r.URL.Path)
		w.Write([]byte(`{"content":"step 1\nstep 2"}`))
	})

	log, err := client.GetTaskLog("t-1")
	require.NoError(t, err)
	assert.Equal(t, "step 1\nstep 2", log.Content)
}

func TestCreateTask(t *testing.T) {
	_, client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/tasks", r.URL.Path)

		var body CreateTaskInput
		json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "water the plants", body.Prompt)

		w.Write(jsonResponse(map[string]any{"id": "t-9", "prompt": body.Prompt, "status": "queued"}))
	})

	task, err := client.CreateTask(CreateTaskInput{Prompt: "water the plants"})
	require.NoError(t, err)
	assert.Equal(t, "t-9", task.ID)
	assert.Equal(t, TaskQueued, task.Status)
}

func TestCreateTaskBatch(t *testing.T) {
	_, client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tasks/batch", r.URL.Path)

		var body CreateTaskBatchInput
		json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, []string{"a", "b"}, body.Prompts)

		w.Write([]byte(`[{"id":"t-1","prompt":"a"},{"id":"t-2","prompt":"b"}]`))
	})

	tasks, err := client.CreateTaskBatch(CreateTaskBatchInput{Prompts: []string{"a", "b"}})
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
}

func TestKillAndDeleteTask(t *testing.T) {
	var seen []string
	_, client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.Path)
		w.Write([]byte(`{"ok":true}`))
	})

	require.NoError(t, client.KillTask("t-1"))
	require.NoError(t, client.DeleteTask("t-1"))
	assert.Equal(t, []string{"POST /tasks/t-1/kill", "DELETE /tasks/t-1"}, seen)
}

func TestSplitPrompts(t *testing.T) {
	text := "first prompt\nstill first\n---\n\n  ---  \nsecond\n---\n"
	assert.Equal(t, []string{"first prompt\nstill first", "second"}, SplitPrompts(text))
	assert.Equal(t, []string{"a --- b"}, SplitPrompts("a --- b"))
	assert.Empty(t, SplitPrompts("---\n---"))
}

func TestTaskDisplayTitleAndDuration(t *testing.T) {
	start := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Second)
	task := Task{Prompt: "  line one\nline two", Started: &start, Ended: &end}
	assert.Equal(t, "line one", task.DisplayTitle())
	assert.Equal(t, 90*time.Second, task.Duration(start.Add(time.Hour)))

	task.Ended = nil
	assert.Equal(t, 10*time.Second, task.Duration(start.Add(10*time.Second)))

	task.Title = "Named"
	assert.Equal(t, "Named", task.DisplayTitle())
}
