package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viewsmith/viewsmith/internal/syncer"
	"github.com/viewsmith/viewsmith/pkg/model"
)

func newTestServer(t *testing.T) (*Server, *syncer.Engine, string) {
	t.Helper()
	dir := t.TempDir()
	eng, err := syncer.New(syncer.Config{
		ComponentsDir: dir,
		Debounce:      time.Hour,
		Logger:        slog.New(slog.DiscardHandler),
	})
	require.NoError(t, err)
	t.Cleanup(eng.Close)

	srv := New(Config{Engine: eng, Logger: slog.New(slog.DiscardHandler)})
	eng.SetCallbacks(srv.Callbacks())
	return srv, eng, dir
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_ListComponents(t *testing.T) {
	srv, eng, _ := newTestServer(t)
	_, err := eng.Create("hero")
	require.NoError(t, err)
	_, err = eng.Create("cards/stat-card")
	require.NoError(t, err)

	rec := doJSON(t, srv.Routes(), http.MethodGet, "/api/components", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out []componentSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 2)
	assert.Equal(t, "cards/stat-card", out[0].ID, "listing is sorted by identifier")
	assert.Equal(t, "hero", out[1].ID)
	assert.Equal(t, "clean", out[0].State)
}

func TestServer_GetComponent(t *testing.T) {
	srv, eng, _ := newTestServer(t)
	_, err := eng.Create("cards/hero")
	require.NoError(t, err)

	rec := doJSON(t, srv.Routes(), http.MethodGet, "/api/components/cards/hero", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var m model.ComponentModel
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	assert.Equal(t, "cards/hero", m.ID)
	assert.Equal(t, "Hero", m.Signature.Name)
	require.NotNil(t, m.Root)
}

func TestServer_GetMissingComponent(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doJSON(t, srv.Routes(), http.MethodGet, "/api/components/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_PutEditAndFlush(t *testing.T) {
	srv, eng, dir := newTestServer(t)
	m, err := eng.Create("hero")
	require.NoError(t, err)

	m.Root.Children[0].Text = "Edited"
	rec := doJSON(t, srv.Routes(), http.MethodPut, "/api/components/hero", editRequest{Model: m, Flush: true})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "clean", out["state"])

	data, err := os.ReadFile(filepath.Join(dir, "hero.tsx"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Edited")
}

func TestServer_PutWithoutFlushStaysDirty(t *testing.T) {
	srv, eng, _ := newTestServer(t)
	m, err := eng.Create("hero")
	require.NoError(t, err)

	m.Root.Children[0].Text = "Edited"
	rec := doJSON(t, srv.Routes(), http.MethodPut, "/api/components/hero", editRequest{Model: m})
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, syncer.StateDirty, eng.State("hero"))
}

func TestServer_PutRequiresModel(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doJSON(t, srv.Routes(), http.MethodPut, "/api/components/hero", map[string]any{"flush": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_GetWhileConflictedPreservesState(t *testing.T) {
	srv, eng, dir := newTestServer(t)
	m, err := eng.Create("hero")
	require.NoError(t, err)

	m.Root.Children[0].Text = "Pending"
	require.NoError(t, eng.Edit(m))
	external := "export default function Hero({ ctx }) {\n  return (\n    <div>FromDisk</div>\n  );\n}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hero.tsx"), []byte(external), 0o644))
	eng.Flush("hero")
	require.Equal(t, syncer.StateConflicted, eng.State("hero"))

	rec := doJSON(t, srv.Routes(), http.MethodGet, "/api/components/hero", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got model.ComponentModel
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.NotEqual(t, "FromDisk", got.Root.Children[0].Text,
		"reads serve the last synced model, not the divergent file")

	assert.Equal(t, syncer.StateConflicted, eng.State("hero"), "a read never settles a conflict")
	_, ok := eng.Conflict("hero")
	assert.True(t, ok)

	rec = doJSON(t, srv.Routes(), http.MethodPost, "/api/resolve/hero", map[string]string{"strategy": "keep_visual"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_ResolveConflict(t *testing.T) {
	srv, eng, dir := newTestServer(t)
	m, err := eng.Create("hero")
	require.NoError(t, err)

	m.Root.Children[0].Text = "Pending"
	require.NoError(t, eng.Edit(m))
	external := "export default function Hero({ ctx }) {\n  return (\n    <div>FromDisk</div>\n  );\n}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hero.tsx"), []byte(external), 0o644))
	eng.Flush("hero")
	require.Equal(t, syncer.StateConflicted, eng.State("hero"))

	rec := doJSON(t, srv.Routes(), http.MethodPost, "/api/resolve/hero", map[string]string{"strategy": "keep_disk"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resolved model.ComponentModel
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resolved))
	assert.Equal(t, "FromDisk", resolved.Root.Children[0].Text)
	assert.Equal(t, syncer.StateClean, eng.State("hero"))
}

func TestServer_ResolveWithoutConflict(t *testing.T) {
	srv, eng, _ := newTestServer(t)
	_, err := eng.Create("hero")
	require.NoError(t, err)

	rec := doJSON(t, srv.Routes(), http.MethodPost, "/api/resolve/hero", map[string]string{"strategy": "keep_disk"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestServer_EventsStream(t *testing.T) {
	srv, _, _ := newTestServer(t)

	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": connected\n", line)

	// The preamble is written after subscription, so the listener is
	// registered by now.
	srv.Notifier().Broadcast(Event{Type: EventSaved, ID: "hero"})

	var lines []string
	for len(lines) < 3 {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		lines = append(lines, line)
	}
	assert.Equal(t, "\n", lines[0])
	assert.Equal(t, "event: saved\n", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "data: "))
	assert.Contains(t, lines[2], `"id":"hero"`)
}

func TestServer_CallbacksForwardToNotifier(t *testing.T) {
	srv, _, _ := newTestServer(t)
	ch := srv.Notifier().Subscribe()
	defer srv.Notifier().Unsubscribe(ch)

	cb := srv.Callbacks()
	cb.OnConflict(syncer.ConflictInfo{ID: "hero", Reason: syncer.ReasonExternalChange})

	select {
	case ev := <-ch:
		assert.Equal(t, EventConflict, ev.Type)
		assert.Equal(t, "hero", ev.ID)
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestNotifier_BroadcastReachesAllListeners(t *testing.T) {
	n := NewNotifier()
	a := n.Subscribe()
	b := n.Subscribe()
	defer n.Unsubscribe(a)
	defer n.Unsubscribe(b)

	n.Broadcast(Event{Type: EventSaved, ID: "x"})

	for _, ch := range []chan Event{a, b} {
		select {
		case ev := <-ch:
			assert.Equal(t, "x", ev.ID)
		case <-time.After(time.Second):
			t.Fatal("listener did not receive the event")
		}
	}
}

func TestNotifier_UnsubscribeClosesChannel(t *testing.T) {
	n := NewNotifier()
	ch := n.Subscribe()
	n.Unsubscribe(ch)

	_, open := <-ch
	assert.False(t, open)

	// Broadcasting after unsubscribe must not panic.
	n.Broadcast(Event{Type: EventSaved})
}

func TestNotifier_FullListenerSkipped(t *testing.T) {
	n := NewNotifier()
	ch := n.Subscribe()
	defer n.Unsubscribe(ch)

	for i := 0; i < 20; i++ {
		n.Broadcast(Event{Type: EventSaved, ID: "flood"})
	}
	assert.Len(t, ch, 16, "a full listener drops overflow instead of blocking")
}
