// Package recommend ranks unseen jobs and papers against what a user has
// bookmarked or upvoted. Scoring is a single weighted pass over a few dozen
// candidates; nothing is persisted.
package recommend

import (
	"strings"
	"time"
)

// Weights.
const (
	CompanyWeight = 30
	SkillWeight   = 10
	BonusWeight   = 5

	// HighSalary is the salary_max (in thousands) that earns the job bonus.
	HighSalary = 150
	// RecentWindow is how young a paper must be to earn the paper bonus.
	RecentWindow = 30 * 24 * time.Hour
)

// Profile is the set of companies and skills/tags a user interacted with
// positively. Keys are lower-cased.
type Profile struct {
	Companies map[string]bool
	Skills    map[string]bool
	AsOf      time.Time
}

// NewProfile returns an empty profile evaluated at asOf.
func NewProfile(asOf time.Time) Profile {
	return Profile{Companies: map[string]bool{}, Skills: map[string]bool{}, AsOf: asOf}
}

// Add folds one interacted-with row into p.
func (p Profile) Add(company string, skills []string) {
	if c := normalize(company); c != "" {
		p.Companies[c] = true
	}
	for _, s := range skills {
		if s = normalize(s); s != "" {
			p.Skills[s] = true
		}
	}
}

// Empty reports whether p carries no signal.
func (p Profile) Empty() bool { return len(p.Companies) == 0 && len(p.Skills) == 0 }

// Candidate is the scorable view of a job or paper.
type Candidate struct {
	Company   string
	Skills    []string
	SalaryMax *int
	Published *time.Time
}

// Score rates c against p and explains each contribution.
func Score(c Candidate, p Profile) (int, []string) {
	score := 0
	reasons := []string{}

	if company := normalize(c.Company); company != "" && p.Companies[company] {
		score += CompanyWeight
		reasons = append(reasons, "company: "+strings.TrimSpace(c.Company))
	}

	seen := make(map[string]bool, len(c.Skills))
	for _, s := range c.Skills {
		key := normalize(s)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		if p.Skills[key] {
			score += SkillWeight
			reasons = append(reasons, "skill: "+strings.TrimSpace(s))
		}
	}

	if c.SalaryMax != nil && *c.SalaryMax >= HighSalary {
		score += BonusWeight
		reasons = append(reasons, "high salary")
	}
	if c.Published != nil && !p.AsOf.IsZero() {
		if age := p.AsOf.Sub(*c.Published); age >= 0 && age < RecentWindow {
			score += BonusWeight
			reasons = append(reasons, "recently published")
		}
	}
	return score, reasons
}

func normalize(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
