package voices

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/murmurware/voice-relay/backend/internal/model/voice"
)

func TestListReturnsCatalog(t *testing.T) {
	store := voice.NewMemoryStore([]voice.Voice{
		{ID: "en-US-natalie", Name: "Natalie", Locale: "en-US", Gender: "female"},
		{ID: "en-US-terrell", Name: "Terrell", Locale: "en-US", Gender: "male"},
	})

	r := chi.NewRouter()
	New(store).RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/voices", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var body struct {
		Voices []voice.Voice `json:"voices"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if len(body.Voices) != 2 {
		t.Fatalf("expected 2 voices, got %d", len(body.Voices))
	}
	if body.Voices[0].ID != "en-US-natalie" {
		t.Fatalf("unexpected first voice: %+v", body.Voices[0])
	}
}
