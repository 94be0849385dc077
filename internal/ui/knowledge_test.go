package ui

import (
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravitrone/concierge/internal/api"
	"github.com/gravitrone/concierge/internal/listsync"
)

func inboxItems() []api.InboxItem {
	at := func(h int) time.Time { return fixedNow().Add(-time.Duration(h) * time.Hour) }
	return []api.InboxItem{
		{ID: "i3", Subject: "Lease renewal", From: "landlord@example.com", Status: api.InboxSaved, Date: at(5)},
		{ID: "i1", Subject: "Invoice overdue", From: "billing@example.com", Summary: "The **March invoice** is overdue.", Date: at(1)},
		{ID: "i4", Subject: "Newsletter", From: "news@example.com", Status: api.InboxDismissed, Date: at(6)},
		{ID: "i2", Subject: "Dinner Friday?", From: "sam@example.com", Date: at(2)},
		{ID: "i5", Subject: "Flight change", From: "airline@example.com", Processing: true, Date: at(3)},
	}
}

type inboxCall struct {
	method string
	path   string
	action string
}

type inboxServer struct {
	mu    sync.Mutex
	calls []inboxCall
}

func (s *inboxServer) handler(w http.ResponseWriter, r *http.Request) {
	call := inboxCall{method: r.Method, path: r.URL.Path}
	if r.Method == http.MethodPost && r.Body != nil {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		call.action = body["action"]
	}
	s.mu.Lock()
	s.calls = append(s.calls, call)
	s.mu.Unlock()

	switch {
	case r.URL.Path == "/inbox" && r.Method == http.MethodGet:
		writeJSON(w, inboxItems())
	case r.URL.Path == "/inbox/i1/questions":
		writeJSON(w, []api.InboxQuestion{
			{ID: "q1", Question: "Pay from the joint account?", Answer: "yes"},
			{ID: "q2", Question: "Set up autopay?"},
		})
	case r.URL.Path == "/inbox/i2/questions":
		http.NotFound(w, r)
	case r.URL.Path == "/inbox/i5/questions":
		writeJSON(w, []api.InboxQuestion{})
	case r.Method == http.MethodPost || r.Method == http.MethodDelete:
		writeJSON(w, map[string]any{"ok": true})
	default:
		http.NotFound(w, r)
	}
}

func (s *inboxServer) mutations() []inboxCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []inboxCall
	for _, c := range s.calls {
		if c.method != http.MethodGet {
			out = append(out, c)
		}
	}
	return out
}

func newTestKnowledge(t *testing.T) (KnowledgeModel, *inboxServer) {
	t.Helper()
	srv := &inboxServer{}
	m := NewKnowledgeModel(testUIClient(t, srv.handler), testConfig(), testLogger)
	m.now = fixedNow
	m = m.SetSize(160, 40)
	m, cmd := m.Enter()
	loaded, ok := findMsg[inboxLoadedMsg](collectMsgs(t, cmd))
	require.True(t, ok)
	require.NoError(t, loaded.err)
	m, _ = m.Update(loaded)
	return m, srv
}

func TestKnowledgeActionableTabShowsUntriaged(t *testing.T) {
	m, _ := newTestKnowledge(t)

	assert.Equal(t, []string{"i1", "i2", "i5"}, m.visibleIDs())
	view := m.View()
	assert.Contains(t, view, "Inbox (3)")
	assert.Contains(t, view, "checking")

	m, _ = m.Update(keyType(tea.KeyRight))
	assert.Equal(t, []string{"i3"}, m.visibleIDs())

	m, _ = m.Update(keyType(tea.KeyLeft))
	m, _ = m.Update(keyType(tea.KeyLeft))
	assert.Equal(t, []string{"i1", "i2", "i5", "i3", "i4"}, m.visibleIDs())
}

func TestKnowledgeDismissLeavesActionableTab(t *testing.T) {
	m, srv := newTestKnowledge(t)

	m, cmd := m.Update(keyRunes("x"))
	done, ok := findMsg[inboxActionDoneMsg](collectMsgs(t, cmd))
	require.True(t, ok)
	require.NoError(t, done.err)

	m, cmd = m.Update(done)
	item, _ := m.store.Get("i1")
	assert.Equal(t, api.InboxDismissed, item.Status)
	assert.Equal(t, []string{"i2", "i5"}, m.visibleIDs())

	n, ok := findMsg[notifyMsg](collectMsgs(t, cmd))
	require.True(t, ok)
	assert.Equal(t, "Item dismissed", n.text)
	assert.Equal(t, []inboxCall{{method: http.MethodPost, path: "/inbox/i1/action", action: "dismiss"}}, srv.mutations())
}

func TestKnowledgeExecuteNeedsConfirm(t *testing.T) {
	m, srv := newTestKnowledge(t)

	m, cmd := m.Update(keyRunes("e"))
	assert.Nil(t, cmd)
	require.NotNil(t, m.confirm)
	assert.Contains(t, m.View(), "Execute")
	assert.Empty(t, srv.mutations())

	m, cmd = m.Update(keyRunes("y"))
	done, ok := findMsg[inboxActionDoneMsg](collectMsgs(t, cmd))
	require.True(t, ok)
	assert.Equal(t, api.ActionExecute, done.action)
	assert.Equal(t, "execute", srv.mutations()[0].action)

	m, _ = m.Update(done)
	item, _ := m.store.Get("i1")
	assert.Equal(t, api.InboxExecuted, item.Status)
}

func TestKnowledgeOpenItemLoadsQuestions(t *testing.T) {
	m, _ := newTestKnowledge(t)

	m, cmd := m.Update(keyType(tea.KeyEnter))
	assert.Equal(t, "i1", m.selection.Active())
	assert.Equal(t, listsync.PollLoading, m.questions.State())

	res, ok := findMsg[listsync.PollResultMsg[[]api.InboxQuestion]](collectMsgs(t, cmd))
	require.True(t, ok)
	m, cmd = m.Update(res)
	assert.Nil(t, cmd, "settled item does not poll")
	require.Len(t, m.questions.Payload(), 2)

	view := m.View()
	assert.Contains(t, view, "1. Pay from the joint account?")
	assert.Contains(t, view, "→ yes")
	assert.Contains(t, view, "2. Set up autopay?")
	assert.Len(t, m.summaries.rendered, 1)
}

func TestKnowledgeMissingQuestions(t *testing.T) {
	m, _ := newTestKnowledge(t)
	m, _ = m.Update(keyType(tea.KeyDown))
	m, cmd := m.Update(keyType(tea.KeyEnter))
	require.Equal(t, "i2", m.selection.Active())

	res, ok := findMsg[listsync.PollResultMsg[[]api.InboxQuestion]](collectMsgs(t, cmd))
	require.True(t, ok)
	m, _ = m.Update(res)
	assert.Equal(t, listsync.PollNotFound, m.questions.State())
	assert.Contains(t, m.View(), "No questions recorded")
	assert.NotContains(t, m.View(), "No questions yet")
	assert.Contains(t, m.View(), "No summary yet.")
}

func TestKnowledgeEmptyQuestionsDifferFromMissing(t *testing.T) {
	m, _ := newTestKnowledge(t)
	m, _ = m.Update(keyType(tea.KeyDown))
	m, _ = m.Update(keyType(tea.KeyDown))
	m, cmd := m.Update(keyType(tea.KeyEnter))
	require.Equal(t, "i5", m.selection.Active())

	res, ok := findMsg[listsync.PollResultMsg[[]api.InboxQuestion]](collectMsgs(t, cmd))
	require.True(t, ok)
	m, _ = m.Update(res)
	assert.Equal(t, listsync.PollLoaded, m.questions.State())
	rendered := m.renderQuestions(80)
	assert.Contains(t, rendered, "No questions yet")
	assert.NotContains(t, rendered, "recorded")
}

func TestKnowledgeRecheckStartsPolling(t *testing.T) {
	m, srv := newTestKnowledge(t)
	m, _ = m.Update(keyType(tea.KeyEnter))
	require.False(t, m.questions.Live())

	m, cmd := m.Update(keyRunes("R"))
	rechecked, ok := findMsg[inboxRecheckedMsg](collectMsgs(t, cmd))
	require.True(t, ok)
	require.NoError(t, rechecked.err)
	assert.Equal(t, "/inbox/i1/recheck", srv.mutations()[0].path)

	m, _ = m.Update(rechecked)
	item, _ := m.store.Get("i1")
	assert.True(t, item.Processing)
	assert.True(t, m.questions.Live())
	assert.Contains(t, m.View(), "rechecking")
}

func TestKnowledgeReloadSettlesProcessing(t *testing.T) {
	m, _ := newTestKnowledge(t)
	m, _ = m.Update(keyType(tea.KeyDown))
	m, _ = m.Update(keyType(tea.KeyDown))
	m, _ = m.Update(keyType(tea.KeyEnter))
	require.Equal(t, "i5", m.selection.Active())
	require.True(t, m.questions.Live())

	items := inboxItems()
	items[4].Processing = false
	m, _ = m.Update(inboxLoadedMsg{items: items})
	assert.False(t, m.questions.Live())
	assert.Equal(t, "i5", m.selection.Active())
}

func TestKnowledgeBulkDismissSkipsConfirm(t *testing.T) {
	m, srv := newTestKnowledge(t)

	m, _ = m.Update(keyRunes("v"))
	m, _ = m.Update(keyRunes("a"))
	require.Equal(t, 3, m.selection.Count())

	m, cmd := m.Update(keyRunes("x"))
	assert.Nil(t, m.confirm)
	done, ok := findMsg[inboxBulkDoneMsg](collectMsgs(t, cmd))
	require.True(t, ok)
	assert.Equal(t, "Dismissed 3 of 3 items", done.result.Summary())
	assert.Len(t, srv.mutations(), 3)

	m, cmd = m.Update(done)
	assert.Zero(t, m.selection.Count())
	msgs := collectMsgs(t, cmd)
	_, reloaded := findMsg[inboxLoadedMsg](msgs)
	assert.True(t, reloaded)
}

func TestKnowledgeBulkDeleteConfirms(t *testing.T) {
	m, srv := newTestKnowledge(t)

	m, _ = m.Update(keyRunes("v"))
	m, _ = m.Update(keyType(tea.KeySpace))
	m, _ = m.Update(keyType(tea.KeyDown))
	m, _ = m.Update(keyType(tea.KeySpace))
	require.Equal(t, []string{"i1", "i2"}, m.selection.Selected())

	m, _ = m.Update(keyRunes("d"))
	require.NotNil(t, m.confirm)
	assert.Contains(t, m.View(), "2 selected items")

	m, cmd := m.Update(keyRunes("y"))
	done, ok := findMsg[inboxBulkDoneMsg](collectMsgs(t, cmd))
	require.True(t, ok)
	assert.Equal(t, "Deleted 2 of 2 items", done.result.Summary())
	calls := srv.mutations()
	require.Len(t, calls, 2)
	assert.Equal(t, http.MethodDelete, calls[0].method)
	assert.Equal(t, "/inbox/i1", calls[0].path)
}

func TestKnowledgeDeleteOpenItemClosesDetail(t *testing.T) {
	m, _ := newTestKnowledge(t)
	m, _ = m.Update(keyType(tea.KeyEnter))

	m, _ = m.Update(inboxDeletedMsg{id: "i1"})
	assert.Empty(t, m.selection.Active())
	assert.Equal(t, listsync.PollIdle, m.questions.State())
	assert.Equal(t, []string{"i2", "i5"}, m.visibleIDs())
}

func TestKnowledgeLeaveStopsQuestions(t *testing.T) {
	m, _ := newTestKnowledge(t)
	m, cmd := m.Update(keyType(tea.KeyEnter))
	res, ok := findMsg[listsync.PollResultMsg[[]api.InboxQuestion]](collectMsgs(t, cmd))
	require.True(t, ok)

	m = m.Leave()
	m, cmd = m.Update(res)
	assert.Nil(t, cmd)
	assert.Equal(t, listsync.PollIdle, m.questions.State())
	assert.Empty(t, m.selection.Active())
}

func TestSummaryCacheResetsOnWidthChange(t *testing.T) {
	c := &summaryCache{}
	first := c.render("i1", "hello **world**", 60)
	assert.NotEmpty(t, first)
	assert.Equal(t, first, c.render("i1", "hello **world**", 60))
	assert.Len(t, c.rendered, 1)

	_ = c.render("i1", "hello **world**", 40)
	assert.Equal(t, 40, c.width)
	assert.Len(t, c.rendered, 1)
}

func TestKnowledgeFirstLoadFailureShowsError(t *testing.T) {
	m := NewKnowledgeModel(testUIClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		writeJSON(w, map[string]string{"error": "mail sync offline"})
	}), testConfig(), testLogger)
	m.now = fixedNow
	m = m.SetSize(160, 40)
	m, cmd := m.Enter()
	loaded, ok := findMsg[inboxLoadedMsg](collectMsgs(t, cmd))
	require.True(t, ok)
	require.Error(t, loaded.err)

	m, cmd = m.Update(loaded)
	assert.Error(t, m.store.Err())
	view := m.View()
	assert.Contains(t, view, "Could not load inbox")
	assert.Contains(t, view, "mail sync offline")
	assert.NotContains(t, view, "Loading inbox")
	n, ok := findMsg[notifyMsg](collectMsgs(t, cmd))
	require.True(t, ok)
	assert.Equal(t, toastError, n.level)
}
