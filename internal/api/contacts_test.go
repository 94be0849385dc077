package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListContacts(t *testing.T) {
	_, client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/contacts", r.URL.Path)
		w.Write(jsonResponse([]map[string]any{
			{"id": "c-1", "name": "Ada", "relation": "friend"},
			{"id": "c-2", "name": "Grace"},
		}))
	})

	contacts, err := client.ListContacts()
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	assert.Equal(t, "friend", contacts[0].Relation)
}

func TestCreateContact(t *testing.T) {
	_, client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body CreateContactInput
		json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "Ada", body.Name)
		w.Write(jsonResponse(map[string]any{"id": "c-3", "name": body.Name}))
	})

	contact, err := client.CreateContact(CreateContactInput{Name: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "c-3", contact.ID)
}

func TestUpdateContactSendsOnlySetFields(t *testing.T) {
	_, client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/contacts/c-1", r.URL.Path)
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, map[string]any{"phone": "555"}, body)
		w.Write(jsonResponse(map[string]any{"id": "c-1", "name": "Ada", "phone": "555"}))
	})

	phone := "555"
	contact, err := client.UpdateContact("c-1", UpdateContactInput{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "555", contact.Phone)
}

func TestDeleteContactRejected(t *testing.T) {
	_, client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false}`))
	})

	err := client.DeleteContact("c-1")
	require.Error(t, err)
	assert.Equal(t, "request rejected", err.Error())
}

func TestGetContactPreferences(t *testing.T) {
	_, client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/contacts/c-1/preferences", r.URL.Path)
		w.Write([]byte(`[{"category":"food","value":"no cilantro"}]`))
	})

	prefs, err := client.GetContactPreferences("c-1")
	require.NoError(t, err)
	require.Len(t, prefs, 1)
	assert.Equal(t, "no cilantro", prefs[0].Value)
}

func TestUploadFile(t *testing.T) {
	_, client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/files/upload", r.URL.Path)
		assert.Equal(t, "tok", r.Header.Get("x-upload-token"))
		assert.Equal(t, "notes%20v2.txt", r.Header.Get("x-file-name"))
		data, _ := io.ReadAll(r.Body)
		assert.Equal(t, "hello world", string(data))
		w.Write([]byte(`{"ok":true,"name":"notes v2.txt","size":11}`))
	})

	var (
		mu    sync.Mutex
		calls [][2]int64
	)
	result, err := client.UploadFile(t.Context(), "tok", "/tmp/notes v2.txt", strings.NewReader("hello world"), 11, func(sent, total int64) {
		mu.Lock()
		calls = append(calls, [2]int64{sent, total})
		mu.Unlock()
	})
	require.NoError(t, err)
	assert.Equal(t, "notes v2.txt", result.Name)
	assert.Equal(t, int64(11), result.Size)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, calls)
	assert.Equal(t, [2]int64{11, 11}, calls[len(calls)-1])
}

func TestUploadFileRequiresToken(t *testing.T) {
	client := NewClient("http://example.com", "")
	_, err := client.UploadFile(t.Context(), "", "a.txt", strings.NewReader("x"), 1, nil)
	require.Error(t, err)
}

func TestUploadFileEmptyResponse(t *testing.T) {
	_, client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusCreated)
	})

	result, err := client.UploadFile(t.Context(), "tok", "a.txt", strings.NewReader("abc"), 3, nil)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", result.Name)
	assert.Equal(t, int64(3), result.Size)
}
