package ingest_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"jobmate/research-service/internal/ingest"
)

const listing = `<html><body>
<ul class="jobs">
  <li class="job">
    <h2><a href="/jobs/1">  Senior   Go Engineer </a></h2>
    <span class="company">Acme</span>
    <span class="loc">Berlin</span>
    <span class="pay">€90,000 - €110,000</span>
    <ul><li class="tag">go</li><li class="tag">postgres</li></ul>
  </li>
  <li class="job">
    <h2><a href="https://other.example/x">Data Scientist</a></h2>
    <span class="loc">Remote</span>
  </li>
  <li class="job"><span class="company">NoTitle Inc</span></li>
</ul>
</body></html>`

var jobRule = ingest.Rule{
	Name: "test-board",
	Kind: ingest.KindJob,
	Item: "li.job",
	Fields: ingest.Fields{
		Title: "h2", Link: "h2 a", Company: ".company", Location: ".loc", Salary: ".pay", Tags: ".tag",
	},
	Company: "Fallback Co",
}

func TestParseHTML(t *testing.T) {
	recs, err := ingest.ParseHTML(listing, jobRule, "https://board.example/list?page=1")
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("records = %d, want 2 (untitled item dropped)", len(recs))
	}

	first := recs[0]
	if first.Title != "Senior Go Engineer" || first.Company != "Acme" || first.Location != "Berlin" {
		t.Errorf("first = %+v", first)
	}
	if first.URL != "https://board.example/jobs/1" {
		t.Errorf("url = %s, want resolved against page", first.URL)
	}
	if first.SalaryText != "€90,000 - €110,000" || len(first.Tags) != 2 || first.Source != "test-board" {
		t.Errorf("first = %+v", first)
	}

	if recs[1].Company != "Fallback Co" || recs[1].URL != "https://other.example/x" {
		t.Errorf("second = %+v", recs[1])
	}
}

func TestParseHTML_PaperDates(t *testing.T) {
	rule := ingest.Rule{Name: "lab", Kind: ingest.KindPaper, Item: "article",
		Fields: ingest.Fields{Title: "h1", Date: "time", Authors: ".author"}}
	html := `<article><h1>Attention</h1><time>12 June 2017</time><span class="author">A</span><span class="author">B</span></article>
	         <article><h1>Undated</h1><time>soon</time></article>`
	recs, _ := ingest.ParseHTML(html, rule, "")
	if len(recs) != 2 || recs[0].Published != "2017-06-12" || len(recs[0].Authors) != 2 {
		t.Fatalf("recs = %+v", recs)
	}
	if recs[1].Published != "" {
		t.Errorf("unparseable date kept: %q", recs[1].Published)
	}
}

type stubExtractor struct{ calls []string }

func (s *stubExtractor) Extract(_ context.Context, rule ingest.Rule) ([]ingest.Record, error) {
	s.calls = append(s.calls, rule.Name)
	return nil, nil
}

func TestRouter(t *testing.T) {
	static, rendered := &stubExtractor{}, &stubExtractor{}
	r := &ingest.Router{Static: static, Rendered: rendered}
	r.Extract(context.Background(), ingest.Rule{Name: "plain"})
	r.Extract(context.Background(), ingest.Rule{Name: "spa", Render: true})
	if len(static.calls) != 1 || static.calls[0] != "plain" || len(rendered.calls) != 1 || rendered.calls[0] != "spa" {
		t.Fatalf("static %v rendered %v", static.calls, rendered.calls)
	}
}

func TestStaticExtractor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(listing))
	}))
	defer srv.Close()

	rule := jobRule
	rule.URLs = []string{srv.URL + "/list"}
	recs, err := ingest.StaticExtractor{}.Extract(context.Background(), rule)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 || recs[0].URL != srv.URL+"/jobs/1" {
		t.Fatalf("recs = %+v", recs)
	}
}
