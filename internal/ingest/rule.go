// Package ingest populates jobs and research papers from external sources.
//
// Each source is a declarative Rule: where to fetch, whether the page needs a
// headless browser, and which CSS selectors yield each field. Records pass
// the rule's exclusion filter, optional LLM enrichment, then an upsert. Runs
// are background tasks with a hard wall-clock timeout; rows committed before
// a timeout stay in place and duplicates are left to the dedup endpoints.
package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Kind is what a rule produces.
type Kind string

const (
	KindJob   Kind = "job"
	KindPaper Kind = "paper"
)

// Fields maps record fields to CSS selectors evaluated inside one item.
// Empty selectors leave the field blank. Link reads the href attribute.
type Fields struct {
	Title       string `json:"title"`
	Company     string `json:"company,omitempty"`
	Location    string `json:"location,omitempty"`
	Department  string `json:"department,omitempty"`
	Salary      string `json:"salary,omitempty"`
	Description string `json:"description,omitempty"`
	Link        string `json:"link,omitempty"`
	Authors     string `json:"authors,omitempty"`
	Date        string `json:"date,omitempty"`
	Tags        string `json:"tags,omitempty"`
}

// Rule describes one source.
type Rule struct {
	Name    string   `json:"name"`
	Kind    Kind     `json:"kind"`
	URLs    []string `json:"urls"`
	Render  bool     `json:"render"`
	Item    string   `json:"item"`
	Fields  Fields   `json:"fields"`
	Company string   `json:"company,omitempty"` // used when Fields.Company is empty or finds nothing
	Exclude []string `json:"exclude,omitempty"`
}

// Validate reports the first structural problem with r.
func (r Rule) Validate() error {
	switch {
	case strings.TrimSpace(r.Name) == "":
		return fmt.Errorf("rule: name is required")
	case r.Kind != KindJob && r.Kind != KindPaper:
		return fmt.Errorf("rule %s: kind must be job or paper", r.Name)
	case len(r.URLs) == 0:
		return fmt.Errorf("rule %s: at least one url is required", r.Name)
	case r.Item == "":
		return fmt.Errorf("rule %s: item selector is required", r.Name)
	case r.Fields.Title == "":
		return fmt.Errorf("rule %s: title selector is required", r.Name)
	case r.Kind == KindJob && r.Fields.Company == "" && r.Company == "":
		return fmt.Errorf("rule %s: job rules need a company selector or a fixed company", r.Name)
	}
	return nil
}

// Excluded reports whether any exclusion term appears (case-insensitive) in
// the record's title, company or description.
func Excluded(rec Record, terms []string) bool {
	if len(terms) == 0 {
		return false
	}
	combined := strings.ToLower(rec.Title + " " + rec.Company + " " + rec.Description)
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		if strings.Contains(combined, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

// BuiltinRules is the rule table shipped with the service.
func BuiltinRules() []Rule {
	return []Rule{
		{
			Name:   "arxiv-cs-lg",
			Kind:   KindPaper,
			URLs:   []string{"https://arxiv.org/list/cs.LG/recent"},
			Item:   "dl > dd",
			Fields: Fields{Title: "div.list-title", Authors: "div.list-authors a", Description: "p.mathjax", Tags: "span.primary-subject"},
		},
		{
			Name:   "google-research",
			Kind:   KindPaper,
			URLs:   []string{"https://research.google/pubs/"},
			Render: true,
			Item:   "li.search-result",
			Fields: Fields{Title: ".headline-5", Link: "a", Authors: ".authors span", Date: ".caption", Tags: ".tag"},
			Company: "Google",
		},
		{
			Name: "python-jobs",
			Kind: KindJob,
			URLs: []string{"https://www.python.org/jobs/"},
			Item: "ol.list-recent-jobs > li",
			Fields: Fields{
				Title: "h2 .listing-company-name a", Link: "h2 .listing-company-name a",
				Company: "h2 .listing-company-name", Location: ".listing-location", Tags: ".listing-job-type a",
			},
			Exclude: []string{"unpaid", "internship"},
		},
		{
			Name:   "remoteok-dev",
			Kind:   KindJob,
			URLs:   []string{"https://remoteok.com/remote-dev-jobs"},
			Render: true,
			Item:   "tr.job",
			Fields: Fields{
				Title: "h2", Company: "h3", Location: "div.location", Salary: "div.location:last-child",
				Link: "a.preventLink", Tags: "td.tags h3",
			},
			Exclude: []string{"crypto casino", "commission only"},
		},
	}
}

// LoadRules returns the built-in rules merged with those in path. A file rule
// replaces the built-in rule of the same name. An empty path yields the
// built-ins alone.
func LoadRules(path string) ([]Rule, error) {
	byName := map[string]Rule{}
	for _, r := range BuiltinRules() {
		byName[r.Name] = r
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read rules file: %w", err)
		}
		var extra []Rule
		if err := json.Unmarshal(raw, &extra); err != nil {
			return nil, fmt.Errorf("parse rules file: %w", err)
		}
		for _, r := range extra {
			if err := r.Validate(); err != nil {
				return nil, err
			}
			byName[r.Name] = r
		}
	}

	out := make([]Rule, 0, len(byName))
	for _, r := range byName {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
