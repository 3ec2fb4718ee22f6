package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/microcosm-cc/bluemonday"

	"github.com/calyptra/grantvec/llm"
)

// FOA is the structured form of a funding opportunity announcement.
type FOA struct {
	Agency       string  `json:"agency"`
	Title        string  `json:"title"`
	Number       string  `json:"number"`
	Description  string  `json:"description"`
	AwardFloor   float64 `json:"award_floor"`
	AwardCeiling float64 `json:"award_ceiling"`
	Deadline     string  `json:"deadline"`
	Eligibility  string  `json:"eligibility"`
	Confidence   float64 `json:"confidence"` // normalized to [0,1]
}

// FOAExtractor turns a funding announcement page into a structured record.
type FOAExtractor struct {
	client llm.Client
	model  string
	policy *bluemonday.Policy
	log    *slog.Logger
}

// NewFOAExtractor creates an extractor. Model may be empty to use the
// client's default chat model.
func NewFOAExtractor(client llm.Client, model string, logger *slog.Logger) *FOAExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FOAExtractor{
		client: client,
		model:  model,
		policy: bluemonday.UGCPolicy(),
		log:    logger,
	}
}

var foaSchema = llm.GenerateSchema[FOA]()

const foaSystemPrompt = `You extract structured data from funding opportunity
announcements. Given the announcement text, report:
- agency: the funding agency name
- title: the opportunity title
- number: the opportunity number or identifier (e.g. PA-26-123)
- description: a two-to-three sentence summary of what the opportunity funds
- award_floor: the minimum award amount in dollars, 0 if not stated
- award_ceiling: the maximum award amount in dollars, 0 if not stated
- deadline: the application deadline as written, empty if not stated
- eligibility: who may apply, empty if not stated
- confidence: your confidence in the extraction, 0 to 10

Use only information present in the text. Do not invent values.`

// ExtractHTML sanitizes an announcement page, converts it to markdown, and
// extracts the structured record.
func (e *FOAExtractor) ExtractHTML(ctx context.Context, rawHTML string) (*FOA, string, error) {
	clean := e.policy.Sanitize(rawHTML)
	markdown, err := htmltomarkdown.ConvertString(clean)
	if err != nil {
		return nil, "", fmt.Errorf("convert announcement html: %w", err)
	}
	foa, err := e.Extract(ctx, markdown)
	if err != nil {
		return nil, "", err
	}
	return foa, markdown, nil
}

// Extract runs the structured extraction over plain announcement text.
func (e *FOAExtractor) Extract(ctx context.Context, text string) (*FOA, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty announcement text")
	}

	raw, err := e.client.Complete(ctx, []llm.Message{
		{Role: "system", Content: foaSystemPrompt},
		{Role: "user", Content: text},
	}, llm.CompleteOptions{
		Model:       e.model,
		Temperature: 0,
		Schema:      &llm.ResponseSchema{Name: "funding_opportunity", Schema: foaSchema},
	})
	if err != nil {
		return nil, fmt.Errorf("foa completion: %w", err)
	}

	var foa FOA
	if err := parseJSON(raw, &foa); err != nil {
		return nil, fmt.Errorf("foa extraction: %w", err)
	}

	if strings.TrimSpace(foa.Title) == "" {
		return nil, fmt.Errorf("foa extraction produced no title")
	}
	if foa.Agency == "" {
		foa.Agency = "Unknown"
	}
	if foa.AwardFloor < 0 {
		foa.AwardFloor = 0
	}
	if foa.AwardCeiling < 0 {
		foa.AwardCeiling = 0
	}
	if foa.AwardCeiling > 0 && foa.AwardFloor > foa.AwardCeiling {
		foa.AwardFloor, foa.AwardCeiling = foa.AwardCeiling, foa.AwardFloor
	}
	foa.Confidence = clamp(foa.Confidence, 0, 10) / 10

	e.log.Debug("foa extracted", "title", foa.Title, "agency", foa.Agency, "confidence", foa.Confidence)
	return &foa, nil
}
