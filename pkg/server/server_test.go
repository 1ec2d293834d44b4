package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/engine"
	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/probe"
	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/replay"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func scriptedEngine() *engine.AnswerEngine {
	client := replay.NewScriptedClient(nil, nil).
		Junior(`{"probe_requests":["system.uptime"],"draft_answer":"Up 3 days."}`).
		Senior(`{"verdict":"approve","scores":{"evidence":0.9,"reasoning":0.9,"coverage":0.9,"overall":0.9}}`)
	exec := replay.NewScriptedExecutor(map[string][]replay.ProbeResponse{
		"system.uptime": {{Stdout: " 10:00:00 up 3 days,  1 user,  load average: 0.10, 0.20, 0.30"}},
	})
	return engine.New(client, exec, probe.StandardCatalog(), engine.Options{Debug: engine.DebugConfig{Enabled: true}})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	h.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	s := New(scriptedEngine(), probe.StandardCatalog(), nil)
	w := do(t, s.Handler(), "GET", "/healthz", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("healthz = %d %s", w.Code, w.Body.String())
	}
}

func TestHandleAsk(t *testing.T) {
	s := New(scriptedEngine(), probe.StandardCatalog(), nil)
	w := do(t, s.Handler(), "POST", "/v1/ask", `{"question":"how long has this machine been up?"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var ans engine.FinalAnswer
	if err := json.Unmarshal(w.Body.Bytes(), &ans); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ans.Answer != "Up 3 days." || ans.IsRefusal || ans.Confidence != engine.Green {
		t.Errorf("answer = %+v", ans)
	}
	if len(ans.Citations) != 1 || ans.Citations[0].ProbeID != "system.uptime" {
		t.Errorf("citations = %+v", ans.Citations)
	}
	if ans.Debug != nil {
		t.Errorf("debug trace returned without being requested")
	}
}

func TestHandleAsk_Debug(t *testing.T) {
	s := New(scriptedEngine(), probe.StandardCatalog(), nil)
	w := do(t, s.Handler(), "POST", "/v1/ask", `{"question":"how long has this machine been up?","debug":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"iterations"`) {
		t.Errorf("debug trace missing: %s", w.Body.String())
	}
}

func TestHandleAsk_BadRequest(t *testing.T) {
	s := New(scriptedEngine(), probe.StandardCatalog(), nil)
	for _, body := range []string{``, `not json`, `["how many cores?"]`} {
		w := do(t, s.Handler(), "POST", "/v1/ask", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, w.Code)
		}
	}
}

func TestHandleAsk_BlankQuestionRefused(t *testing.T) {
	for _, body := range []string{`{}`, `{"question":""}`, `{"question":"   "}`} {
		s := New(scriptedEngine(), probe.StandardCatalog(), nil)
		w := do(t, s.Handler(), "POST", "/v1/ask", body)
		if w.Code != http.StatusOK {
			t.Fatalf("body %q: status = %d, want 200", body, w.Code)
		}
		var ans engine.FinalAnswer
		if err := json.Unmarshal(w.Body.Bytes(), &ans); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !ans.IsRefusal || ans.Confidence != engine.Red || ans.Source != engine.SourceClassifier {
			t.Errorf("body %q: answer = %+v, want classifier refusal", body, ans)
		}
	}
}

type errAsker struct{ err error }

func (e errAsker) Process(context.Context, string) (*engine.FinalAnswer, error) {
	return nil, e.err
}

func TestHandleAsk_EngineErrors(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w after 60s: %w", engine.ErrTimeout, context.DeadlineExceeded), http.StatusGatewayTimeout},
		{errors.New("llm transport: connection refused"), http.StatusBadGateway},
		{context.Canceled, 499},
	}
	for _, tt := range tests {
		s := New(errAsker{tt.err}, probe.StandardCatalog(), nil)
		w := do(t, s.Handler(), "POST", "/v1/ask", `{"question":"how many cores?"}`)
		if w.Code != tt.want {
			t.Errorf("%v: status = %d, want %d", tt.err, w.Code, tt.want)
		}
	}
}

func TestHandleProbes(t *testing.T) {
	cat := probe.StandardCatalog()
	s := New(scriptedEngine(), cat, nil)
	w := do(t, s.Handler(), "GET", "/v1/probes", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body struct {
		Probes []ProbeInfo `json:"probes"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Probes) != cat.Len() {
		t.Errorf("got %d probes, want %d", len(body.Probes), cat.Len())
	}
	if body.Probes[0].ID != cat.AvailableProbes()[0] || body.Probes[0].Timeout == "" {
		t.Errorf("first probe = %+v", body.Probes[0])
	}
}

func TestMetrics(t *testing.T) {
	s := New(scriptedEngine(), probe.StandardCatalog(), nil)
	do(t, s.Handler(), "POST", "/v1/ask", `{"question":"how long has this machine been up?"}`)
	w := do(t, s.Handler(), "GET", "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "anna_questions_total") {
		t.Errorf("metrics missing anna_questions_total")
	}
}
