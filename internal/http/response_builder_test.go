package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTMXResponseBuilderWrite(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Status(http.StatusCreated).
		TriggerAnalysisCompleted("sess-1", 42).
		TriggerSuccessNotification("done").
		BodyHTML(`<div class="success">done</div>`).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}

	var triggers map[string]json.RawMessage
	if err := json.Unmarshal([]byte(w.Header().Get("HX-Trigger")), &triggers); err != nil {
		t.Fatalf("HX-Trigger is not JSON: %v", err)
	}
	if _, ok := triggers["analysis:completed"]; !ok {
		t.Error("missing analysis:completed trigger")
	}
	if _, ok := triggers["show-notification"]; !ok {
		t.Error("missing show-notification trigger")
	}
	if !strings.Contains(w.Body.String(), "done") {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestHTMXResponseBuilderApplyDoesNotWriteStatus(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().TriggerFilterChanged("Food").Apply(w)

	if got := w.Header().Get("HX-Trigger"); !strings.Contains(got, "filter:changed") {
		t.Errorf("HX-Trigger = %q, want filter:changed", got)
	}
	if w.Body.Len() != 0 {
		t.Errorf("Apply must not write a body, got %q", w.Body.String())
	}
}

func TestErrorResponseEscapesHTML(t *testing.T) {
	w := httptest.NewRecorder()

	BadRequestError(`<script>alert("x")</script>`).Write(w)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	body := w.Body.String()
	if strings.Contains(body, "<script>") {
		t.Errorf("body not escaped: %q", body)
	}
	if !strings.Contains(body, "&lt;script&gt;") {
		t.Errorf("expected escaped markup in %q", body)
	}
}

func TestUpstreamDetailPassedVerbatim(t *testing.T) {
	w := httptest.NewRecorder()
	detail := "Could not read page 3 of statement.pdf"

	BadGatewayError(detail).Write(w)

	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
	if !strings.Contains(w.Body.String(), detail) {
		t.Errorf("body %q must carry the upstream detail verbatim", w.Body.String())
	}
}

func TestMethodNotAllowedError(t *testing.T) {
	w := httptest.NewRecorder()

	MethodNotAllowedError("POST").Write(w)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
	if allow := w.Header().Get("Allow"); allow != "POST" {
		t.Errorf("Allow = %q, want POST", allow)
	}
}
