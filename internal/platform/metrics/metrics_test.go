package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHandlerServesRegisteredCounters(t *testing.T) {
	RecordCommand("give", "ok", 5*time.Millisecond)
	RecordDuplicateEvent()
	RecordIntegrationGrant("mapscout")

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"bit_bot_commands_processed_total",
		"bit_bot_events_duplicates_total",
		"bit_bot_integrations_grants_total",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected metrics output to contain %q", want)
		}
	}
}

func TestRecordCommandToleratesEmptyVerb(t *testing.T) {
	RecordCommand("", "error", 0)
}
