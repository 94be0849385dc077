package ui

import (
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravitrone/concierge/internal/api"
	"github.com/gravitrone/concierge/internal/listsync"
)

func testContacts() []api.Contact {
	return []api.Contact{
		{ID: "bob", Name: "Bob Stone", Email: "bob@example.com", Relation: "colleague"},
		{ID: "zed", Name: "Zed", Relation: "neighbour"},
		{ID: "alice", Name: "alice Ng", Email: "alice@example.com", Relation: "sister", Birthday: "1990-04-12"},
		{ID: "club", Name: "42 Club", Notes: "monthly dinner"},
	}
}

type contactsServer struct {
	mu     sync.Mutex
	bodies map[string]map[string]any
}

func (s *contactsServer) handler(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost || r.Method == http.MethodPatch {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		s.mu.Lock()
		s.bodies[r.Method+" "+r.URL.Path] = body
		s.mu.Unlock()
	}
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/contacts":
		writeJSON(w, testContacts())
	case r.URL.Path == "/contacts/alice/preferences":
		writeJSON(w, []api.Preference{
			{Category: "drinks", Value: "green tea", Source: "chat"},
			{Category: "gifts", Value: "books"},
		})
	case r.Method == http.MethodPost && r.URL.Path == "/contacts":
		writeJSON(w, api.Contact{ID: "dana", Name: "Dana Scully", Birthday: "1964-02-23"})
	case r.Method == http.MethodPatch, r.Method == http.MethodDelete:
		writeJSON(w, map[string]any{"ok": true})
	default:
		http.NotFound(w, r)
	}
}

func (s *contactsServer) body(key string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bodies[key]
}

func newTestContacts(t *testing.T) (ContactsModel, *contactsServer) {
	t.Helper()
	srv := &contactsServer{bodies: map[string]map[string]any{}}
	m := NewContactsModel(testUIClient(t, srv.handler), testConfig(), testLogger)
	m = m.SetSize(160, 40)
	m, cmd := m.Enter()
	loaded, ok := findMsg[contactsLoadedMsg](collectMsgs(t, cmd))
	require.True(t, ok)
	require.NoError(t, loaded.err)
	m, _ = m.Update(loaded)
	return m, srv
}

func cursorTo(t *testing.T, m ContactsModel, id string) ContactsModel {
	t.Helper()
	for range len(m.page) {
		if m.cursorID() == id {
			return m
		}
		m, _ = m.Update(keyType(tea.KeyDown))
	}
	require.Equal(t, id, m.cursorID())
	return m
}

func TestContactsSortedByNameWithInitials(t *testing.T) {
	m, _ := newTestContacts(t)

	assert.Equal(t, []string{"club", "alice", "bob", "zed"}, m.visibleIDs())
	view := m.View()
	assert.Contains(t, view, "4 contacts")
	assert.Contains(t, view, "Contacts (4)")
	assert.Contains(t, view, "sister · alice@example.com")

	assert.Equal(t, "#", contactInitial("42 Club"))
	assert.Equal(t, "A", contactInitial("  alice"))
	assert.Equal(t, "#", contactInitial(""))
}

func TestContactsSearch(t *testing.T) {
	m, _ := newTestContacts(t)
	m, _ = m.Update(keyRunes("/"))
	require.True(t, m.capturing())
	m, _ = m.Update(keyRunes("neighbour"))
	assert.Equal(t, []string{"zed"}, m.visibleIDs())
	m, _ = m.Update(keyType(tea.KeyEnter))
	assert.False(t, m.capturing())
	assert.Contains(t, m.View(), "search: neighbour")
}

func TestContactsPreferencesTable(t *testing.T) {
	m, _ := newTestContacts(t)
	m = cursorTo(t, m, "alice")

	m, cmd := m.Update(keyType(tea.KeyEnter))
	require.Equal(t, "alice", m.selection.Active())
	res, ok := findMsg[listsync.PollResultMsg[[]api.Preference]](collectMsgs(t, cmd))
	require.True(t, ok)
	m, cmd = m.Update(res)
	assert.Nil(t, cmd, "contacts are never live")

	view := m.View()
	assert.Contains(t, view, "green tea")
	assert.Contains(t, view, "drinks")
	assert.Contains(t, view, "1990-04-12")
}

func TestContactsMissingPreferences(t *testing.T) {
	m, _ := newTestContacts(t)
	m = cursorTo(t, m, "zed")

	m, cmd := m.Update(keyType(tea.KeyEnter))
	res, ok := findMsg[listsync.PollResultMsg[[]api.Preference]](collectMsgs(t, cmd))
	require.True(t, ok)
	m, _ = m.Update(res)
	assert.Equal(t, listsync.PollNotFound, m.preferences.State())
	assert.Contains(t, m.View(), "No preferences recorded")
}

func TestContactFieldsUpdateInputSendsChangedOnly(t *testing.T) {
	before := fieldsOf(testContacts()[0])
	after := before
	after[contactFieldEmail] = "bob@work.example"
	after[contactFieldNotes] = ""

	in := after.updateInput(before)
	require.NotNil(t, in.Email)
	assert.Equal(t, "bob@work.example", *in.Email)
	assert.Nil(t, in.Name)
	assert.Nil(t, in.Relation)
	assert.Nil(t, in.Notes, "unchanged empty field is not sent")

	diffs := after.diff(before)
	require.Len(t, diffs, 1)
	assert.Equal(t, "Email", diffs[0].Label)
	assert.Equal(t, "bob@example.com", diffs[0].From)
}

func TestContactsEditPreviewsAndPatches(t *testing.T) {
	m, srv := newTestContacts(t)
	m = cursorTo(t, m, "bob")

	m, _ = m.Update(keyRunes("e"))
	require.NotNil(t, m.form)
	assert.Equal(t, "bob", m.form.editID)
	assert.False(t, m.hasUnsaved())

	m, _ = m.Update(keyType(tea.KeyTab))
	assert.Equal(t, contactFieldEmail, m.form.focus)
	m.form.inputs[contactFieldEmail].SetValue("bob@work.example")
	assert.True(t, m.hasUnsaved())

	m, cmd := m.Update(keyType(tea.KeyCtrlS))
	assert.Nil(t, cmd)
	require.NotNil(t, m.confirm)
	view := m.View()
	assert.Contains(t, view, "Update Contact")
	assert.Contains(t, view, "bob@work.example")

	m, cmd = m.Update(keyRunes("y"))
	assert.Nil(t, m.confirm)
	require.NotNil(t, m.form)
	assert.True(t, m.form.saving)

	saved, ok := findMsg[contactSavedMsg](collectMsgs(t, cmd))
	require.True(t, ok)
	require.NoError(t, saved.err)
	assert.Equal(t, map[string]any{"email": "bob@work.example"}, srv.body("PATCH /contacts/bob"))

	m, _ = m.Update(saved)
	assert.Nil(t, m.form)
	c, _ := m.store.Get("bob")
	assert.Equal(t, "bob@work.example", c.Email)
	assert.Equal(t, "colleague", c.Relation)
}

func TestContactsCancelEditConfirmKeepsForm(t *testing.T) {
	m, _ := newTestContacts(t)
	m = cursorTo(t, m, "bob")
	m, _ = m.Update(keyRunes("e"))
	m.form.inputs[contactFieldRelation].SetValue("friend")

	m, _ = m.Update(keyType(tea.KeyCtrlS))
	require.NotNil(t, m.confirm)
	m, cmd := m.Update(keyRunes("n"))
	assert.Nil(t, cmd)
	assert.Nil(t, m.confirm)
	require.NotNil(t, m.form)
	assert.False(t, m.form.saving)
	assert.Contains(t, m.View(), "Edit Contact")
}

func TestContactsEditWithoutChanges(t *testing.T) {
	m, _ := newTestContacts(t)
	m, _ = m.Update(keyRunes("e"))
	m, cmd := m.Update(keyType(tea.KeyCtrlS))
	assert.Nil(t, m.form)
	assert.Nil(t, m.confirm)
	n, ok := findMsg[notifyMsg](collectMsgs(t, cmd))
	require.True(t, ok)
	assert.Equal(t, "No changes", n.text)
}

func TestContactsCreate(t *testing.T) {
	m, srv := newTestContacts(t)

	m, _ = m.Update(keyRunes("n"))
	require.NotNil(t, m.form)
	assert.Contains(t, m.View(), "New Contact")

	m, _ = m.Update(keyRunes("Dana Scully"))
	for range contactFieldBirthday {
		m, _ = m.Update(keyType(tea.KeyTab))
	}
	require.Equal(t, contactFieldBirthday, m.form.focus)
	m, _ = m.Update(keyRunes("1964-02-23"))

	m, cmd := m.Update(keyType(tea.KeyCtrlS))
	require.True(t, m.form.saving)
	saved, ok := findMsg[contactSavedMsg](collectMsgs(t, cmd))
	require.True(t, ok)
	require.NoError(t, saved.err)
	body := srv.body("POST /contacts")
	assert.Equal(t, "Dana Scully", body["name"])
	assert.Equal(t, "1964-02-23", body["birthday"])

	m, cmd = m.Update(saved)
	assert.Nil(t, m.form)
	assert.Equal(t, []string{"club", "alice", "bob", "dana", "zed"}, m.visibleIDs())
	n, ok := findMsg[notifyMsg](collectMsgs(t, cmd))
	require.True(t, ok)
	assert.Equal(t, "Contact created", n.text)
}

func TestContactsFormValidation(t *testing.T) {
	m, _ := newTestContacts(t)
	m, _ = m.Update(keyRunes("n"))

	m, cmd := m.Update(keyType(tea.KeyCtrlS))
	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), "name is required")

	m.form.inputs[contactFieldName].SetValue("Eve")
	m.form.inputs[contactFieldBirthday].SetValue("12/01/1990")
	m, cmd = m.Update(keyType(tea.KeyCtrlS))
	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), "birthday must look like 2006-01-02")

	m, _ = m.Update(keyType(tea.KeyEsc))
	assert.Nil(t, m.form)
	assert.False(t, m.capturing())
}

func TestContactsSaveErrorKeepsForm(t *testing.T) {
	m, _ := newTestContacts(t)
	m, _ = m.Update(keyRunes("n"))
	m.form.saving = true

	m, _ = m.Update(contactSavedMsg{created: true, err: assert.AnError})
	require.NotNil(t, m.form)
	assert.False(t, m.form.saving)
	assert.Equal(t, assert.AnError.Error(), m.form.err)
}

func TestContactsDeleteConfirm(t *testing.T) {
	m, _ := newTestContacts(t)
	m = cursorTo(t, m, "zed")

	m, _ = m.Update(keyRunes("d"))
	require.NotNil(t, m.confirm)
	m, cmd := m.Update(keyRunes("y"))
	deleted, ok := findMsg[contactDeletedMsg](collectMsgs(t, cmd))
	require.True(t, ok)
	require.NoError(t, deleted.err)

	m, _ = m.Update(deleted)
	assert.Equal(t, []string{"club", "alice", "bob"}, m.visibleIDs())
}

func TestContactsBulkDelete(t *testing.T) {
	m, _ := newTestContacts(t)
	m, _ = m.Update(keyRunes("v"))
	m, _ = m.Update(keyRunes("a"))
	require.Equal(t, 4, m.selection.Count())

	m, _ = m.Update(keyRunes("d"))
	require.NotNil(t, m.confirm)
	m, cmd := m.Update(keyRunes("y"))
	done, ok := findMsg[contactsBulkDoneMsg](collectMsgs(t, cmd))
	require.True(t, ok)
	assert.Equal(t, "Deleted 4 of 4 contacts", done.result.Summary())

	m, _ = m.Update(done)
	assert.Zero(t, m.selection.Count())
}

func TestContactsFirstLoadFailureShowsError(t *testing.T) {
	m := NewContactsModel(testUIClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		writeJSON(w, map[string]string{"error": "address book locked"})
	}), testConfig(), testLogger)
	m = m.SetSize(160, 40)
	m, cmd := m.Enter()
	loaded, ok := findMsg[contactsLoadedMsg](collectMsgs(t, cmd))
	require.True(t, ok)

	m, _ = m.Update(loaded)
	assert.False(t, m.store.Loaded())
	assert.Error(t, m.store.Err())
	view := m.View()
	assert.Contains(t, view, "Could not load contacts")
	assert.NotContains(t, view, "Loading contacts")
}
