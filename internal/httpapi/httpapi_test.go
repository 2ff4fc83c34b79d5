package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/logicfirst/tutor/internal/codeval"
	"github.com/logicfirst/tutor/internal/engine"
	"github.com/logicfirst/tutor/internal/gaming"
	"github.com/logicfirst/tutor/internal/i18n"
	"github.com/logicfirst/tutor/internal/logicval"
	"github.com/logicfirst/tutor/internal/model"
	"github.com/logicfirst/tutor/internal/scenario"
	"github.com/logicfirst/tutor/internal/state"
	"github.com/logicfirst/tutor/internal/store"
	"github.com/logicfirst/tutor/internal/understanding"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	if err := i18n.Init("en"); err != nil {
		t.Fatalf("i18n.Init: %v", err)
	}

	st, err := store.New(filepath.Join(t.TempDir(), "tutor.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	if _, err := st.ImportProblems([]model.ProblemImport{{
		AssignmentID: "lists-101",
		Number:       1,
		Title:        "Create a List with User Input",
		Description:  "Prompt the user to enter 5 numbers one by one, append each to a list, and print the final list.",
	}}); err != nil {
		t.Fatalf("ImportProblems: %v", err)
	}

	states, err := state.New("memory")
	if err != nil {
		t.Fatalf("state.New: %v", err)
	}
	t.Cleanup(func() { states.Close() })

	responder := scenario.NewResponder(nil)
	eng := engine.New(engine.Config{
		Store:         st,
		States:        states,
		Logic:         logicval.NewValidator(gaming.NewDetector(), logicval.NewAnalyzer(nil), responder),
		Code:          codeval.NewValidator(responder),
		Understanding: understanding.NewVerifier(responder),
		Responder:     responder,
	})

	r := chi.NewRouter()
	New(eng, "en").Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, body string) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var payload map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, payload
}

func startSession(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp, payload := postJSON(t, srv.URL+"/sessions", `{"user_id":"alice","assignment_id":"lists-101"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	var sess model.Session
	if err := json.Unmarshal(payload["session"], &sess); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	return sess.ID
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestStartSessionValidation(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := postJSON(t, srv.URL+"/sessions", `{"user_id":"alice"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing assignment: status = %d, want 400", resp.StatusCode)
	}

	resp, _ = postJSON(t, srv.URL+"/sessions", `{"user_id":"alice","assignment_id":"empty-one"}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("empty assignment: status = %d, want 404", resp.StatusCode)
	}
}

func TestStartSessionResume(t *testing.T) {
	srv := newTestServer(t)
	first := startSession(t, srv)

	resp, payload := postJSON(t, srv.URL+"/sessions", `{"user_id":"alice","assignment_id":"lists-101"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("resume status = %d, want 200", resp.StatusCode)
	}
	var sess model.Session
	if err := json.Unmarshal(payload["session"], &sess); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if sess.ID != first {
		t.Errorf("resumed %s, want %s", sess.ID, first)
	}
}

func TestMessageFlow(t *testing.T) {
	srv := newTestServer(t)
	id := startSession(t, srv)

	resp, payload := postJSON(t, srv.URL+"/sessions/"+id+"/messages", `{"text":"ready"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var result model.TurnResult
	raw, _ := json.Marshal(payload)
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("decode turn result: %v", err)
	}
	if result.State != model.StateProblemPresented {
		t.Errorf("State = %s, want problem_presented", result.State)
	}
	if !strings.Contains(result.Response, "Here is the problem:") {
		t.Errorf("presentation missing: %q", result.Response)
	}
}

func TestMessageValidation(t *testing.T) {
	srv := newTestServer(t)
	id := startSession(t, srv)

	resp, _ := postJSON(t, srv.URL+"/sessions/"+id+"/messages", `{}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty text: status = %d, want 400", resp.StatusCode)
	}

	resp, _ = postJSON(t, srv.URL+"/sessions/nope/messages", `{"text":"hi"}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown session: status = %d, want 404", resp.StatusCode)
	}
}

func TestGetSessionTranscript(t *testing.T) {
	srv := newTestServer(t)
	id := startSession(t, srv)
	postJSON(t, srv.URL+"/sessions/"+id+"/messages", `{"text":"ready"}`)

	resp, err := http.Get(srv.URL + "/sessions/" + id)
	if err != nil {
		t.Fatalf("GET session: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var payload sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Session == nil || payload.Session.ID != id {
		t.Fatalf("unexpected session: %+v", payload.Session)
	}
	// Greeting + student turn + tutor reply.
	if len(payload.Turns) != 3 {
		t.Errorf("turns = %d, want 3", len(payload.Turns))
	}

	resp, err = http.Get(srv.URL + "/sessions/nope")
	if err != nil {
		t.Fatalf("GET missing session: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing session status = %d, want 404", resp.StatusCode)
	}
}
