package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHTTPFlow(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	rec := do(t, h, "POST", "/v1/session/create", `{"session_id":"alice"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status %d: %s", rec.Code, rec.Body)
	}
	var created createResponse
	json.Unmarshal(rec.Body.Bytes(), &created)
	if created.ID != "alice" || created.Greeting != "Hello." {
		t.Errorf("created = %+v", created)
	}

	rec = do(t, h, "POST", "/v1/session/respond", `{"session_id":"alice","text":"rot"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("respond status %d: %s", rec.Code, rec.Body)
	}
	var turn Turn
	json.Unmarshal(rec.Body.Bytes(), &turn)
	if turn.Text != "A" || turn.Source != "key" || turn.Key != "rot" {
		t.Errorf("turn = %+v", turn)
	}

	rec = do(t, h, "GET", "/v1/session/get?session_id=alice", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status %d", rec.Code)
	}
	var info Info
	json.Unmarshal(rec.Body.Bytes(), &info)
	if info.Turns != 1 {
		t.Errorf("info = %+v", info)
	}

	rec = do(t, h, "POST", "/v1/session/get", `{"session_id":"alice"}`)
	if rec.Code != http.StatusOK {
		t.Errorf("post get status %d", rec.Code)
	}

	rec = do(t, h, "GET", "/v1/sessions", "")
	var infos []Info
	json.Unmarshal(rec.Body.Bytes(), &infos)
	if len(infos) != 1 {
		t.Errorf("sessions = %+v", infos)
	}

	rec = do(t, h, "POST", "/v1/session/delete", `{"session_id":"alice"}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Goodbye.") {
		t.Errorf("delete status %d: %s", rec.Code, rec.Body)
	}

	rec = do(t, h, "GET", "/metrics", "")
	if !strings.Contains(rec.Body.String(), `eliza_turns_total{source="key"} 1`) {
		t.Errorf("metrics missing turn counter:\n%s", rec.Body)
	}
}

func TestHTTPErrors(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown session", "POST", "/v1/session/respond", `{"session_id":"nope","text":"hi"}`, http.StatusNotFound},
		{"missing id", "POST", "/v1/session/respond", `{"text":"hi"}`, http.StatusBadRequest},
		{"bad json", "POST", "/v1/session/respond", `{`, http.StatusBadRequest},
		{"get missing id", "GET", "/v1/session/get", "", http.StatusBadRequest},
		{"delete unknown", "POST", "/v1/session/delete", `{"session_id":"nope"}`, http.StatusNotFound},
		{"wrong method", "GET", "/v1/session/respond", "", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body)
			}
		})
	}

	do(t, h, "POST", "/v1/session/create", `{"session_id":"dup"}`)
	if rec := do(t, h, "POST", "/v1/session/create", `{"session_id":"dup"}`); rec.Code != http.StatusConflict {
		t.Errorf("duplicate create status = %d", rec.Code)
	}
}
