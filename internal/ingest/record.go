package ingest

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"

	"jobmate/research-service/internal/jobs"
	"jobmate/research-service/internal/papers"
)

// Record is one normalised item extracted from a source page.
type Record struct {
	Source      string   `json:"source"`
	Kind        Kind     `json:"kind"`
	Title       string   `json:"title"`
	Company     string   `json:"company,omitempty"`
	Location    string   `json:"location,omitempty"`
	Department  string   `json:"department,omitempty"`
	SalaryText  string   `json:"salary_text,omitempty"`
	Description string   `json:"description,omitempty"`
	URL         string   `json:"url,omitempty"`
	Authors     []string `json:"authors,omitempty"`
	Published   string   `json:"published,omitempty"` // YYYY-MM-DD when recognised
	Tags        []string `json:"tags,omitempty"`
}

// JobID derives a stable id from the source and url, so re-ingesting a
// listing updates it in place.
func (r Record) JobID() string {
	key := r.URL
	if key == "" {
		key = strings.ToLower(r.Title + "|" + r.Company + "|" + r.Location)
	}
	sum := sha1.Sum([]byte(key))
	return r.Source + "-" + hex.EncodeToString(sum[:])[:16]
}

// JobCommand converts r into an unowned job save.
func (r Record) JobCommand() jobs.SaveCommand {
	lo, hi := ParseSalary(r.SalaryText)
	return jobs.SaveCommand{
		ID:          r.JobID(),
		Title:       r.Title,
		Company:     r.Company,
		Location:    r.Location,
		Department:  r.Department,
		SalaryMin:   lo,
		SalaryMax:   hi,
		Skills:      r.Tags,
		Description: r.Description,
		URL:         r.URL,
		Source:      r.Source,
	}
}

// PaperCommand converts r into an unowned paper save.
func (r Record) PaperCommand() papers.CreateCommand {
	return papers.CreateCommand{
		Title:           r.Title,
		Authors:         r.Authors,
		PublicationDate: r.Published,
		Abstract:        r.Description,
		URL:             r.URL,
		Company:         r.Company,
		Tags:            r.Tags,
	}
}

var (
	salaryNumber = regexp.MustCompile(`(\d{1,3}(?:[,\s.]\d{3})+|\d+(?:\.\d+)?)\s*([kK])?`)
	hourlyHint   = regexp.MustCompile(`(?i)(/\s*h(ou)?r|per\s+hour|hourly|an hour)`)
)

// ParseSalary reads a free-text salary ("$120k - $150k", "€90,000–110,000",
// "120-150K") into thousands. A single figure sets both bounds. Hourly rates
// and text without a plausible annual figure yield nils.
func ParseSalary(text string) (lo, hi *int) {
	if text == "" || hourlyHint.MatchString(text) {
		return nil, nil
	}
	matches := salaryNumber.FindAllStringSubmatch(text, -1)
	thousands := false
	for _, m := range matches {
		if m[2] != "" {
			thousands = true
		}
	}

	var vals []int
	for _, m := range matches {
		digits := strings.Map(func(r rune) rune {
			if r == ',' || r == ' ' {
				return -1
			}
			return r
		}, m[1])
		if strings.Count(digits, ".") > 1 || (strings.Contains(digits, ".") && len(digits)-strings.Index(digits, ".") == 4) {
			digits = strings.ReplaceAll(digits, ".", "")
		}
		v, err := strconv.ParseFloat(digits, 64)
		if err != nil {
			continue
		}
		switch {
		case v >= 1000:
			v /= 1000
		case thousands:
		default:
			continue
		}
		if v < 10 || v > 5000 {
			continue
		}
		vals = append(vals, int(v+0.5))
		if len(vals) == 2 {
			break
		}
	}

	switch len(vals) {
	case 0:
		return nil, nil
	case 1:
		a, b := vals[0], vals[0]
		return &a, &b
	}
	a, b := vals[0], vals[1]
	if a > b {
		a, b = b, a
	}
	return &a, &b
}
