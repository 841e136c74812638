// Package jobs stores job listings, their links to research papers and the
// per-company summary. Listings come from ingestion (unowned) or from users
// saving them by hand (owned).
package jobs

import (
	"time"

	"jobmate/research-service/internal/papers"
)

// Job is the JSON shape of a jobs row. Salaries are in thousands.
type Job struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Company     string    `json:"company"`
	Location    string    `json:"location"`
	Department  string    `json:"department"`
	SalaryMin   *int      `json:"salary_min"`
	SalaryMax   *int      `json:"salary_max"`
	Skills      []string  `json:"skills"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	CreatedBy   *string   `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Company  string
	Skill    string
	Location string
	Q        string
	Owner    string
	Limit    int
	Offset   int
}

// SaveCommand is the body of POST /jobs. A given id makes the save an upsert.
type SaveCommand struct {
	ID          string   `json:"id" validate:"max=200"`
	Title       string   `json:"title" validate:"required,max=300"`
	Company     string   `json:"company" validate:"required,max=200"`
	Location    string   `json:"location" validate:"max=200"`
	Department  string   `json:"department" validate:"max=200"`
	SalaryMin   *int     `json:"salary_min" validate:"omitempty,gte=0"`
	SalaryMax   *int     `json:"salary_max" validate:"omitempty,gte=0"`
	Skills      []string `json:"skills" validate:"max=100,dive,required"`
	Description string   `json:"description"`
	URL         string   `json:"url" validate:"omitempty,url"`
	Source      string   `json:"source" validate:"max=100"`
}

// Patch is the body of PUT /jobs/{id}. Nil fields are left unchanged.
type Patch struct {
	Title       *string   `json:"title" validate:"omitempty,min=1,max=300"`
	Company     *string   `json:"company" validate:"omitempty,min=1,max=200"`
	Location    *string   `json:"location" validate:"omitempty,max=200"`
	Department  *string   `json:"department" validate:"omitempty,max=200"`
	SalaryMin   *int      `json:"salary_min" validate:"omitempty,gte=0"`
	SalaryMax   *int      `json:"salary_max" validate:"omitempty,gte=0"`
	Skills      *[]string `json:"skills" validate:"omitempty,max=100,dive,required"`
	Description *string   `json:"description"`
	URL         *string   `json:"url" validate:"omitempty,url"`
}

// Empty reports whether p changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Company == nil && p.Location == nil && p.Department == nil &&
		p.SalaryMin == nil && p.SalaryMax == nil && p.Skills == nil && p.Description == nil && p.URL == nil
}

// Relation links a job to a paper.
type Relation struct {
	JobID          string  `json:"job_id"`
	PaperID        string  `json:"paper_id"`
	RelevanceScore float64 `json:"relevance_score"`
	Reason         string  `json:"reason"`
}

// LinkCommand is the body of POST /jobs/{id}/papers.
type LinkCommand struct {
	PaperID        string   `json:"paper_id" validate:"required"`
	RelevanceScore *float64 `json:"relevance_score" validate:"required,gte=0,lte=1"`
	Reason         string   `json:"reason" validate:"max=2000"`
}

// RelatedPaper is a paper linked to a job, with the link's metadata.
type RelatedPaper struct {
	papers.Paper
	RelevanceScore float64 `json:"relevance_score"`
	Reason         string  `json:"reason"`
}
