// Package search is the query-time side of the pipeline: it re-embeds a
// natural-language query, runs a filtered nearest-neighbor lookup against
// the vector index, and optionally grounds a chat completion on the matched
// chunks.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/calyptra/grantvec/embed"
	"github.com/calyptra/grantvec/llm"
	"github.com/calyptra/grantvec/vecstore"
)

// Query describes one retrieval request.
type Query struct {
	// Text is the natural-language query. Required.
	Text string `json:"text"`

	// Types restricts results to the given content types. Empty means all.
	Types []string `json:"types,omitempty"`

	// ProjectID restricts results to one project's materials.
	ProjectID string `json:"project_id,omitempty"`

	// AwardMin and AwardMax filter funding-opportunity vectors by award
	// ceiling/floor. Zero means unbounded.
	AwardMin float64 `json:"award_min,omitempty"`
	AwardMax float64 `json:"award_max,omitempty"`

	// TopK bounds the result count. Default: 10.
	TopK int `json:"top_k,omitempty"`
}

// Result is one retrieval hit.
type Result struct {
	ID       string            `json:"id"`
	Score    float64           `json:"score"`
	Text     string            `json:"text"`
	Type     string            `json:"type"`
	Metadata vecstore.Metadata `json:"metadata"`
}

// Service runs retrieval and grounded chat.
type Service struct {
	embed   embed.Embedder
	vectors *vecstore.Store
	llm     llm.Client
	log     *slog.Logger
}

// New creates a Service. The llm client may be nil when only Search is used.
func New(emb embed.Embedder, vectors *vecstore.Store, client llm.Client, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{embed: emb, vectors: vectors, llm: client, log: logger}
}

// Search embeds the query text and returns the nearest chunks that pass the
// metadata filter built from the query's constraints.
func (s *Service) Search(ctx context.Context, q Query) ([]Result, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, fmt.Errorf("empty query text")
	}
	if q.TopK <= 0 {
		q.TopK = 10
	}

	vec, err := s.embed.Embed(ctx, q.Text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := s.vectors.Query(ctx, vec, buildFilter(q), q.TopK)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}

	results := make([]Result, len(matches))
	for i, m := range matches {
		r := Result{ID: m.ID, Score: m.Score, Metadata: m.Metadata}
		if t, ok := m.Metadata["text"].(string); ok {
			r.Text = t
		}
		if t, ok := m.Metadata["type"].(string); ok {
			r.Type = t
		}
		results[i] = r
	}
	s.log.Debug("search", "query_len", len(q.Text), "matches", len(results))
	return results, nil
}

// buildFilter composes the metadata filter for a query. Constraints are
// ANDed together; multiple content types become an $or over equality tests,
// and award bounds become $gte/$lte range tests.
func buildFilter(q Query) vecstore.Filter {
	var clauses []vecstore.Filter

	if q.ProjectID != "" {
		clauses = append(clauses, vecstore.Filter{"owner_id": q.ProjectID})
	}

	switch len(q.Types) {
	case 0:
	case 1:
		clauses = append(clauses, vecstore.Filter{"type": q.Types[0]})
	default:
		alts := make([]vecstore.Filter, len(q.Types))
		for i, t := range q.Types {
			alts[i] = vecstore.Filter{"type": t}
		}
		clauses = append(clauses, vecstore.Filter{"$or": alts})
	}

	if q.AwardMin > 0 {
		clauses = append(clauses, vecstore.Filter{"award_ceiling": map[string]any{"$gte": q.AwardMin}})
	}
	if q.AwardMax > 0 {
		clauses = append(clauses, vecstore.Filter{"award_floor": map[string]any{"$lte": q.AwardMax}})
	}

	switch len(clauses) {
	case 0:
		return nil
	case 1:
		return clauses[0]
	default:
		return vecstore.Filter{"$and": clauses}
	}
}

const answerSystemPrompt = `You help a researcher assemble a grant
application. Answer using only the provided excerpts from their research
materials. When the excerpts do not contain the answer, say so instead of
guessing. Cite nothing outside the excerpts.`

// Answer retrieves the chunks most relevant to the question within a project
// and asks the language model for a grounded answer.
func (s *Service) Answer(ctx context.Context, projectID, question string) (string, error) {
	results, err := s.Search(ctx, Query{Text: question, ProjectID: projectID, TopK: 8})
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "", fmt.Errorf("no indexed materials match the question")
	}

	var b strings.Builder
	b.WriteString("Excerpts from the project's research materials:\n")
	for i, r := range results {
		fmt.Fprintf(&b, "\n[%d] (%s) %s\n", i+1, r.Type, r.Text)
	}
	fmt.Fprintf(&b, "\nQuestion: %s", question)

	answer, err := s.llm.Complete(ctx, []llm.Message{
		{Role: "system", Content: answerSystemPrompt},
		{Role: "user", Content: b.String()},
	}, llm.CompleteOptions{Temperature: 0.3})
	if err != nil {
		return "", fmt.Errorf("answer completion: %w", err)
	}
	return answer, nil
}
