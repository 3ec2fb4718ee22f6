package embed_test

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/calyptra/grantvec/embed"
)

func TestStatic_Deterministic(t *testing.T) {
	e := embed.NewStatic(64)
	ctx := context.Background()

	a, err := e.Embed(ctx, "hello")
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Embed(ctx, "hello")
	if err != nil {
		t.Fatal(err)
	}
	c, err := e.Embed(ctx, "goodbye")
	if err != nil {
		t.Fatal(err)
	}

	if len(a) != 64 {
		t.Fatalf("dimension = %d, want 64", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("same text produced different vectors")
		}
	}
	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("different texts produced identical vectors")
	}

	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	if math.Abs(math.Sqrt(norm)-1) > 1e-3 {
		t.Errorf("vector norm = %f, want ~1", math.Sqrt(norm))
	}
}

func TestNew_EmptyEndpointIsStatic(t *testing.T) {
	e := embed.New(embed.Config{})
	if e.Model() != "static" {
		t.Errorf("model = %q, want static", e.Model())
	}
	if e.Dimension() != embed.DefaultDimension {
		t.Errorf("dimension = %d, want %d", e.Dimension(), embed.DefaultDimension)
	}
}

func TestHTTPClient_EmbedBatch(t *testing.T) {
	const dim = 8
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("auth header = %q", got)
		}
		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}

		type datum struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		resp := struct {
			Data []datum `json:"data"`
		}{}
		for i := range req.Input {
			vec := make([]float32, dim)
			vec[0] = float32(i + 1)
			resp.Data = append(resp.Data, datum{Embedding: vec, Index: i})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	e := embed.New(embed.Config{
		Endpoint:  srv.URL,
		APIKey:    "sk-test",
		Model:     "text-embedding-3-large",
		Dimension: dim,
		BatchSize: 2,
	})

	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 3 {
		t.Fatalf("got %d vectors, want 3", len(vecs))
	}
	// Batches of 2: indexes restart per request, so first elements are 1,2,1.
	if vecs[0][0] != 1 || vecs[1][0] != 2 || vecs[2][0] != 1 {
		t.Errorf("batch ordering wrong: %v %v %v", vecs[0][0], vecs[1][0], vecs[2][0])
	}
}

func TestHTTPClient_DimensionMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"embedding":[0.1,0.2],"index":0}]}`))
	}))
	defer srv.Close()

	e := embed.New(embed.Config{Endpoint: srv.URL, Dimension: 8})
	if _, err := e.Embed(context.Background(), "x"); err == nil {
		t.Error("expected dimension mismatch error")
	}
}

func TestHTTPClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broke", http.StatusBadGateway)
	}))
	defer srv.Close()

	e := embed.New(embed.Config{Endpoint: srv.URL, Dimension: 4})
	if _, err := e.Embed(context.Background(), "x"); err == nil {
		t.Error("expected error on HTTP 502")
	}
}
