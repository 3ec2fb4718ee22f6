// Package extract holds the single-shot LLM analyzers: prompt, JSON
// completion, parse, validate. Each extractor tolerates the usual model
// response noise (code fences, leading prose) and normalizes the parsed
// fields before returning them.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/calyptra/grantvec/llm"
)

// Equipment is one item of research equipment relevant to a project.
type Equipment struct {
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Specs     string  `json:"specs"`
	Relevance float64 `json:"relevance"` // normalized to [0,1]
}

const maxEquipmentItems = 10

type equipmentResponse struct {
	Equipment []struct {
		Name      string  `json:"name"`
		Category  string  `json:"category"`
		Specs     string  `json:"specs"`
		Relevance float64 `json:"relevance"`
	} `json:"equipment"`
}

// EquipmentExtractor identifies equipment a project needs from catalog or
// proposal text.
type EquipmentExtractor struct {
	client llm.Client
	model  string
	log    *slog.Logger
}

// NewEquipmentExtractor creates an extractor. Model may be empty to use the
// client's default chat model.
func NewEquipmentExtractor(client llm.Client, model string, logger *slog.Logger) *EquipmentExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &EquipmentExtractor{client: client, model: model, log: logger}
}

const equipmentSystemPrompt = `You analyze research equipment needs for grant
applications. Given source text describing a research project, identify
specific equipment items the project requires. For each item report:
- name: the equipment name
- category: a short category (imaging, computing, wet lab, etc.)
- specs: the key specifications mentioned or implied
- relevance: how central the item is to the described work, 0 to 10

Respond with a JSON object: {"equipment": [...]}. Report only equipment
supported by the text.`

// Extract returns the equipment items the model identified in sourceText,
// sorted by descending relevance and capped. An optional context string
// (e.g. the funding opportunity's focus) steers the analysis.
func (e *EquipmentExtractor) Extract(ctx context.Context, sourceText, contextText string) ([]Equipment, error) {
	if strings.TrimSpace(sourceText) == "" {
		return nil, fmt.Errorf("empty source text")
	}

	user := "Source text:\n\n" + sourceText
	if contextText != "" {
		user += "\n\nAdditional context:\n\n" + contextText
	}

	raw, err := e.client.Complete(ctx, []llm.Message{
		{Role: "system", Content: equipmentSystemPrompt},
		{Role: "user", Content: user},
	}, llm.CompleteOptions{
		Model:        e.model,
		Temperature:  0.2,
		JSONResponse: true,
	})
	if err != nil {
		return nil, fmt.Errorf("equipment completion: %w", err)
	}

	var resp equipmentResponse
	if err := parseJSON(raw, &resp); err != nil {
		return nil, fmt.Errorf("equipment extraction: %w", err)
	}

	items := make([]Equipment, 0, len(resp.Equipment))
	for _, it := range resp.Equipment {
		if strings.TrimSpace(it.Name) == "" {
			continue
		}
		items = append(items, Equipment{
			Name:      it.Name,
			Category:  it.Category,
			Specs:     it.Specs,
			Relevance: clamp(it.Relevance, 0, 10) / 10,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Relevance > items[j].Relevance
	})
	if len(items) > maxEquipmentItems {
		items = items[:maxEquipmentItems]
	}

	e.log.Debug("equipment extracted", "items", len(items))
	return items, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
