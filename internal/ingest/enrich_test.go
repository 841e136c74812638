package ingest_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"jobmate/research-service/internal/ingest"
)

func TestDecodeEnrichment(t *testing.T) {
	got, err := ingest.DecodeEnrichment(`{"skills": ["Go", " go ", "PostgreSQL"], "tags": ["Backend"]}`)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(got.Skills, ",") != "go,postgresql" || strings.Join(got.Tags, ",") != "backend" {
		t.Fatalf("got = %+v", got)
	}
}

func TestDecodeEnrichment_Fenced(t *testing.T) {
	got, err := ingest.DecodeEnrichment("```json\n{\"skills\": [\"rust\"], \"tags\": []}\n```")
	if err != nil || len(got.Skills) != 1 {
		t.Fatalf("got = %+v, %v", got, err)
	}
}

func TestDecodeEnrichment_Rejects(t *testing.T) {
	for _, raw := range []string{
		`not json`,
		`{"skills": ["go"]}`,
		`{"skills": "go", "tags": []}`,
		`{"skills": [""], "tags": []}`,
		`[]`,
	} {
		if _, err := ingest.DecodeEnrichment(raw); err == nil {
			t.Errorf("DecodeEnrichment(%q) expected error", raw)
		}
	}
}

func TestNewOpenAIEnricher_NoKey(t *testing.T) {
	if e := ingest.NewOpenAIEnricher("", "gpt-4o-mini"); e != nil {
		t.Fatal("expected nil enricher without a key")
	}
}

func TestPromptText_CutsOnRuneBoundary(t *testing.T) {
	// One ASCII byte shifts every two-byte rune so the limit lands mid-rune.
	desc := "a" + strings.Repeat("é", ingest.MaxPromptBytes)
	got := ingest.PromptText(ingest.Record{Kind: ingest.KindJob, Title: "Go Dev", Description: desc})

	if !utf8.ValidString(got) {
		t.Fatal("prompt is not valid UTF-8")
	}
	body := got[strings.Index(got, "Text:\n")+len("Text:\n"):]
	if len(body) != ingest.MaxPromptBytes-1 || !strings.HasSuffix(body, "é") {
		t.Fatalf("body length %d", len(body))
	}

	short := ingest.PromptText(ingest.Record{Kind: ingest.KindPaper, Description: "tiny"})
	if !strings.HasSuffix(short, "Text:\ntiny") {
		t.Fatalf("short prompt = %q", short)
	}
}
