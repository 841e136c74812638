package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sashabaranov/go-openai"
	"github.com/xeipuuv/gojsonschema"
)

// Enrichment is what the LLM adds to a record.
type Enrichment struct {
	Skills []string `json:"skills"`
	Tags   []string `json:"tags"`
}

// Enricher extracts skills and tags from a record's text.
type Enricher interface {
	Enrich(ctx context.Context, rec Record) (Enrichment, error)
}

const enrichmentSchema = `{
	"type": "object",
	"required": ["skills", "tags"],
	"properties": {
		"skills": {"type": "array", "maxItems": 30, "items": {"type": "string", "minLength": 1, "maxLength": 60}},
		"tags":   {"type": "array", "maxItems": 15, "items": {"type": "string", "minLength": 1, "maxLength": 60}}
	}
}`

var schemaLoader = gojsonschema.NewStringLoader(enrichmentSchema)

const enrichPrompt = `You extract structured metadata from job listings and research paper abstracts.
Reply with a JSON object {"skills": [...], "tags": [...]}. skills are concrete technologies,
languages or methods named in the text; tags are short topic labels. Use lower case. Do not invent
items that are not supported by the text.`

// MaxPromptBytes bounds how much of a description is sent.
const MaxPromptBytes = 6000

// OpenAIEnricher asks a chat model for a JSON enrichment.
type OpenAIEnricher struct {
	client *openai.Client
	model  string
}

// NewOpenAIEnricher returns an Enricher, or nil when apiKey is empty.
func NewOpenAIEnricher(apiKey, model string) Enricher {
	if apiKey == "" {
		return nil
	}
	return &OpenAIEnricher{client: openai.NewClient(apiKey), model: model}
}

// PromptText renders rec for the model, cutting the description to
// MaxPromptBytes on a rune boundary.
func PromptText(rec Record) string {
	body := rec.Description
	if len(body) > MaxPromptBytes {
		cut := MaxPromptBytes
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut]
	}
	return fmt.Sprintf("Kind: %s\nTitle: %s\nCompany: %s\nText:\n%s", rec.Kind, rec.Title, rec.Company, body)
}

func (e *OpenAIEnricher) Enrich(ctx context.Context, rec Record) (Enrichment, error) {
	user := PromptText(rec)

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: enrichPrompt},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		MaxTokens:      400,
		Temperature:    0,
	})
	if err != nil {
		return Enrichment{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Enrichment{}, errors.New("chat completion: no choices")
	}
	return DecodeEnrichment(resp.Choices[0].Message.Content)
}

// DecodeEnrichment validates raw model output against the enrichment schema
// and normalises it.
func DecodeEnrichment(raw string) (Enrichment, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	res, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewStringLoader(raw))
	if err != nil {
		return Enrichment{}, fmt.Errorf("enrichment is not json: %w", err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return Enrichment{}, fmt.Errorf("enrichment schema validation failed: %s", strings.Join(msgs, "; "))
	}

	var out Enrichment
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return Enrichment{}, fmt.Errorf("decode enrichment: %w", err)
	}
	return Enrichment{Skills: mergeTerms(nil, out.Skills), Tags: mergeTerms(nil, out.Tags)}, nil
}

// mergeTerms appends the lower-cased, de-duplicated terms of extra to base.
func mergeTerms(base, extra []string) []string {
	seen := make(map[string]bool, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, t := range list {
			t = strings.ToLower(strings.TrimSpace(t))
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
