package recommend_test

import (
	"strings"
	"testing"
	"time"

	"jobmate/research-service/internal/recommend"
)

func intp(n int) *int { return &n }

func TestScore(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	profile := recommend.NewProfile(now)
	profile.Add("Acme", []string{"Go", "postgres"})
	profile.Add("", []string{"kubernetes"})

	recent := now.Add(-10 * 24 * time.Hour)
	stale := now.Add(-45 * 24 * time.Hour)
	future := now.Add(24 * time.Hour)

	cases := []struct {
		name    string
		c       recommend.Candidate
		want    int
		reasons int
	}{
		{"nothing in common", recommend.Candidate{Company: "Other", Skills: []string{"rust"}}, 0, 0},
		{"company only", recommend.Candidate{Company: " acme "}, 30, 1},
		{"company and two skills", recommend.Candidate{Company: "ACME", Skills: []string{"go", "Kubernetes", "rust"}}, 50, 3},
		{"duplicate skills count once", recommend.Candidate{Skills: []string{"Go", "go", " GO "}}, 10, 1},
		{"high salary", recommend.Candidate{SalaryMax: intp(150)}, 5, 1},
		{"salary below threshold", recommend.Candidate{SalaryMax: intp(149)}, 0, 0},
		{"recent paper", recommend.Candidate{Published: &recent}, 5, 1},
		{"stale paper", recommend.Candidate{Published: &stale}, 0, 0},
		{"future-dated paper", recommend.Candidate{Published: &future}, 0, 0},
		{"everything", recommend.Candidate{Company: "Acme", Skills: []string{"postgres"}, SalaryMax: intp(200)}, 45, 3},
	}
	for _, c := range cases {
		got, reasons := recommend.Score(c.c, profile)
		if got != c.want || len(reasons) != c.reasons {
			t.Errorf("%s: Score = %d %v, want %d with %d reasons", c.name, got, reasons, c.want, c.reasons)
		}
	}
}

func TestScore_ReasonsNameTheMatch(t *testing.T) {
	profile := recommend.NewProfile(time.Now())
	profile.Add("Acme", []string{"go"})
	_, reasons := recommend.Score(recommend.Candidate{Company: "Acme", Skills: []string{"Go"}}, profile)
	if strings.Join(reasons, "|") != "company: Acme|skill: Go" {
		t.Fatalf("reasons = %v", reasons)
	}
}

func TestScore_EmptyProfile(t *testing.T) {
	profile := recommend.NewProfile(time.Now())
	if !profile.Empty() {
		t.Fatal("new profile should be empty")
	}
	if got, _ := recommend.Score(recommend.Candidate{Company: "Acme", Skills: []string{"go"}}, profile); got != 0 {
		t.Fatalf("score = %d, want 0", got)
	}
}
