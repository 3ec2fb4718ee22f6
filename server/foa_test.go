package server_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/calyptra/grantvec/llm"
	"github.com/calyptra/grantvec/store"
)

const foaJSON = `{
	"agency": "NIH",
	"title": "R01 Research Grants",
	"number": "PA-25-301",
	"description": "Supports investigator-initiated health research.",
	"award_floor": 50000,
	"award_ceiling": 250000,
	"deadline": "2026-10-05",
	"eligibility": "US institutions",
	"confidence": 9
}`

func TestCreateFOAPersistsAndIndexes(t *testing.T) {
	stub := &llm.Stub{
		CompleteFunc: func(ctx context.Context, msgs []llm.Message, opts llm.CompleteOptions) (string, error) {
			return foaJSON, nil
		},
	}
	api := newAPI(t, stub)

	resp := api.postJSON(t, "/api/foas", map[string]string{
		"text": "The NIH invites R01 applications for health research. Awards up to $250,000.",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	rec := decode[store.FOA](t, resp)
	if !strings.HasPrefix(rec.ID, "foa_") {
		t.Errorf("id = %q, want foa_ prefix", rec.ID)
	}
	if rec.Title != "R01 Research Grants" {
		t.Errorf("title = %q", rec.Title)
	}
	if rec.VectorizationStatus != store.StatusCompleted {
		t.Errorf("status = %q, want completed", rec.VectorizationStatus)
	}
	if len(rec.VectorIDs) == 0 {
		t.Error("no vector ids returned")
	}

	list := decode[struct {
		FOAs []store.FOA `json:"foas"`
	}](t, api.get(t, "/api/foas"))
	if len(list.FOAs) != 1 {
		t.Fatalf("listed %d foas, want 1", len(list.FOAs))
	}
}

func TestDeleteFOA(t *testing.T) {
	stub := &llm.Stub{
		CompleteFunc: func(ctx context.Context, msgs []llm.Message, opts llm.CompleteOptions) (string, error) {
			return foaJSON, nil
		},
	}
	api := newAPI(t, stub)

	rec := decode[store.FOA](t, api.postJSON(t, "/api/foas", map[string]string{"text": "announcement"}))

	resp := api.do(t, http.MethodDelete, "/api/foas/"+rec.ID)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	got, err := api.store.GetFOA(context.Background(), rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Error("row still present after delete")
	}

	resp = api.do(t, http.MethodDelete, "/api/foas/foa_ghost")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing delete status = %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestCreateFOARequiresBody(t *testing.T) {
	api := newAPI(t, nil)
	resp := api.postJSON(t, "/api/foas", map[string]string{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}
