package control

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"playerd/internal/playback"
)

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()
	svc, _ := newTestService(t)
	h := NewHandler(svc, testLogger(), nil)
	r := chi.NewRouter()
	h.Routes(r)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func createSession(t *testing.T, r http.Handler) string {
	t.Helper()
	rec := do(r, http.MethodPost, "/sessions", `{"source":"pattern://bars"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", rec.Code)
	}
	var resp CreateSessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if resp.ID == "" {
		t.Fatal("create: empty id")
	}
	return string(resp.ID)
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) playback.State {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != jsonContentType {
		t.Errorf("expected %s, got %q", jsonContentType, ct)
	}
	var s playback.State
	if err := json.Unmarshal(rec.Body.Bytes(), &s); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return s
}

func TestHandler_CreateAndGet(t *testing.T) {
	r := newTestRouter(t)
	id := createSession(t, r)

	s := decodeState(t, do(r, http.MethodGet, "/sessions/"+id, ""))
	if s.ID != id || !s.Opened || s.Duration != 2_000_000 {
		t.Errorf("unexpected state %+v", s)
	}
	if s.Direction != playback.Stopped || s.Mode != playback.Once {
		t.Errorf("expected stopped once, got %v %v", s.Direction, s.Mode)
	}
}

func TestHandler_Create_badRequest(t *testing.T) {
	r := newTestRouter(t)

	if rec := do(r, http.MethodPost, "/sessions", "not json"); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad body, got %d", rec.Code)
	}
	if rec := do(r, http.MethodPost, "/sessions", `{"source":""}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty source, got %d", rec.Code)
	}
}

func TestHandler_unknownSession(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		method, path, body string
	}{
		{http.MethodGet, "/sessions/nope", ""},
		{http.MethodDelete, "/sessions/nope", ""},
		{http.MethodPost, "/sessions/nope/playback", `{"direction":"forward"}`},
		{http.MethodPost, "/sessions/nope/start", ""},
		{http.MethodPut, "/sessions/nope/inout", `{"enabled":true}`},
	}
	for _, tt := range tests {
		if rec := do(r, tt.method, tt.path, tt.body); rec.Code != http.StatusNotFound {
			t.Errorf("%s %s: expected 404, got %d", tt.method, tt.path, rec.Code)
		}
	}
}

func TestHandler_SetPlayback(t *testing.T) {
	r := newTestRouter(t)
	id := createSession(t, r)

	s := decodeState(t, do(r, http.MethodPost, "/sessions/"+id+"/playback", `{"direction":"forward"}`))
	if s.Direction != playback.Forward {
		t.Errorf("expected forward, got %v", s.Direction)
	}

	s = decodeState(t, do(r, http.MethodPost, "/sessions/"+id+"/playback", `{"direction":"stop"}`))
	if s.Direction != playback.Stopped {
		t.Errorf("expected stop, got %v", s.Direction)
	}

	if rec := do(r, http.MethodPost, "/sessions/"+id+"/playback", `{"direction":"sideways"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown direction, got %d", rec.Code)
	}
}

func TestHandler_SetMode(t *testing.T) {
	r := newTestRouter(t)
	id := createSession(t, r)

	s := decodeState(t, do(r, http.MethodPost, "/sessions/"+id+"/mode", `{"mode":"pingpong"}`))
	if s.Mode != playback.PingPong {
		t.Errorf("expected pingpong, got %v", s.Mode)
	}
	if rec := do(r, http.MethodPost, "/sessions/"+id+"/mode", `{"mode":"shuffle"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown mode, got %d", rec.Code)
	}
}

func TestHandler_SeekAndStep(t *testing.T) {
	r := newTestRouter(t)
	id := createSession(t, r)
	base := "/sessions/" + id

	s := decodeState(t, do(r, http.MethodPost, base+"/seek", `{"time":1000000}`))
	if s.CurrentTime != 1_000_000 {
		t.Errorf("expected 1000000 after seek, got %d", s.CurrentTime)
	}

	s = decodeState(t, do(r, http.MethodPost, base+"/step", `{"frames":2}`))
	if s.CurrentTime != 1_080_000 {
		t.Errorf("expected 1080000 after two frames, got %d", s.CurrentTime)
	}

	s = decodeState(t, do(r, http.MethodPost, base+"/step", `{"frames":-1}`))
	if s.CurrentTime != 1_040_000 {
		t.Errorf("expected 1040000 after one frame back, got %d", s.CurrentTime)
	}

	s = decodeState(t, do(r, http.MethodPost, base+"/end", ""))
	if s.CurrentTime != 1_960_000 {
		t.Errorf("expected last frame 1960000, got %d", s.CurrentTime)
	}

	s = decodeState(t, do(r, http.MethodPost, base+"/start", ""))
	if s.CurrentTime != 0 {
		t.Errorf("expected 0 after start, got %d", s.CurrentTime)
	}

	if rec := do(r, http.MethodPost, base+"/seek", `{}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for seek without time, got %d", rec.Code)
	}
	if rec := do(r, http.MethodPost, base+"/step", `{"frames":0}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for zero step, got %d", rec.Code)
	}
}

func TestHandler_SetInOut(t *testing.T) {
	r := newTestRouter(t)
	id := createSession(t, r)

	s := decodeState(t, do(r, http.MethodPut, "/sessions/"+id+"/inout", `{"enabled":true,"in":1200000,"out":400000}`))
	want := playback.InOut{Enabled: true, In: 400_000, Out: 1_200_000}
	if s.InOut != want {
		t.Errorf("expected %+v, got %+v", want, s.InOut)
	}
	if s.CurrentTime != 400_000 {
		t.Errorf("expected seek to in point, got %d", s.CurrentTime)
	}
}

func TestHandler_Delete(t *testing.T) {
	r := newTestRouter(t)
	id := createSession(t, r)

	if rec := do(r, http.MethodDelete, "/sessions/"+id, ""); rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if rec := do(r, http.MethodGet, "/sessions/"+id, ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}
