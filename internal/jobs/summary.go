package jobs

import (
	"math"
	"sort"
	"strings"
)

// topSkillCount bounds Summary.TopSkills.
const topSkillCount = 10

// SkillCount is one entry of Summary.TopSkills.
type SkillCount struct {
	Skill string `json:"skill"`
	Count int    `json:"count"`
}

// Summary aggregates a set of jobs. Averages are nil when no job carries
// the corresponding salary bound.
type Summary struct {
	TotalJobs    int          `json:"total_jobs"`
	Companies    []string     `json:"companies"`
	Locations    []string     `json:"locations"`
	TopSkills    []SkillCount `json:"top_skills"`
	AvgSalaryMin *float64     `json:"avg_salary_min"`
	AvgSalaryMax *float64     `json:"avg_salary_max"`
}

// Summarize aggregates jobs. Skills are counted case-insensitively and
// reported in the casing first seen.
func Summarize(jobs []Job) Summary {
	s := Summary{
		TotalJobs: len(jobs),
		Companies: []string{},
		Locations: []string{},
		TopSkills: []SkillCount{},
	}

	companies := map[string]bool{}
	locations := map[string]bool{}
	counts := map[string]*SkillCount{}
	var minSum, maxSum, minN, maxN int

	for _, j := range jobs {
		if c := strings.TrimSpace(j.Company); c != "" && !companies[c] {
			companies[c] = true
			s.Companies = append(s.Companies, c)
		}
		if l := strings.TrimSpace(j.Location); l != "" && !locations[l] {
			locations[l] = true
			s.Locations = append(s.Locations, l)
		}
		seen := map[string]bool{}
		for _, sk := range j.Skills {
			sk = strings.TrimSpace(sk)
			key := strings.ToLower(sk)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			if c, ok := counts[key]; ok {
				c.Count++
			} else {
				counts[key] = &SkillCount{Skill: sk, Count: 1}
			}
		}
		if j.SalaryMin != nil {
			minSum += *j.SalaryMin
			minN++
		}
		if j.SalaryMax != nil {
			maxSum += *j.SalaryMax
			maxN++
		}
	}

	sort.Strings(s.Companies)
	sort.Strings(s.Locations)
	for _, c := range counts {
		s.TopSkills = append(s.TopSkills, *c)
	}
	sort.Slice(s.TopSkills, func(a, b int) bool {
		if s.TopSkills[a].Count != s.TopSkills[b].Count {
			return s.TopSkills[a].Count > s.TopSkills[b].Count
		}
		return strings.ToLower(s.TopSkills[a].Skill) < strings.ToLower(s.TopSkills[b].Skill)
	})
	if len(s.TopSkills) > topSkillCount {
		s.TopSkills = s.TopSkills[:topSkillCount]
	}
	s.AvgSalaryMin = average(minSum, minN)
	s.AvgSalaryMax = average(maxSum, maxN)
	return s
}

func average(sum, n int) *float64 {
	if n == 0 {
		return nil
	}
	v := math.Round(float64(sum)/float64(n)*10) / 10
	return &v
}
