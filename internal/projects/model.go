// Package projects manages personal research projects. A project links sets
// of jobs, papers and resources; each set is replaced wholesale on update.
package projects

import "time"

// Status values.
const (
	StatusPlanning   = "planning"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusOnHold     = "on_hold"
)

// Progress bounds. Reaching ProgressDone completes the project.
const (
	ProgressMin  = 0
	ProgressDone = 100
)

// Project is the JSON shape of a projects row.
type Project struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Status          string    `json:"status"`
	Priority        string    `json:"priority"`
	Category        string    `json:"category"`
	Progress        int       `json:"progress"`
	Tags            []string  `json:"tags"`
	LinkedJobs      []string  `json:"linked_jobs"`
	LinkedPapers    []string  `json:"linked_papers"`
	LinkedResources []string  `json:"linked_resources"`
	Notes           string    `json:"notes"`
	IsPublic        bool      `json:"is_public"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Filter narrows List. Public lists every public project instead of Owner's.
type Filter struct {
	Owner    string
	Public   bool
	Status   string
	Category string
	Limit    int
	Offset   int
}

// CreateCommand is the body of POST /projects.
type CreateCommand struct {
	Title           string   `json:"title" validate:"required,max=200"`
	Description     string   `json:"description" validate:"max=5000"`
	Status          string   `json:"status" validate:"omitempty,oneof=planning in_progress completed on_hold"`
	Priority        string   `json:"priority" validate:"omitempty,oneof=low medium high"`
	Category        string   `json:"category" validate:"omitempty,oneof=job_search skill_development research networking other"`
	Progress        *int     `json:"progress" validate:"omitempty,gte=0,lte=100"`
	Tags            []string `json:"tags" validate:"max=50,dive,required"`
	LinkedJobs      []string `json:"linked_jobs" validate:"max=200,dive,required"`
	LinkedPapers    []string `json:"linked_papers" validate:"max=200,dive,required"`
	LinkedResources []string `json:"linked_resources" validate:"max=200,dive,required"`
	Notes           string   `json:"notes"`
	IsPublic        bool     `json:"is_public"`
}

// Patch is the body of PUT /projects/{id}. Nil fields are left unchanged; a
// non-nil link set replaces the stored one.
type Patch struct {
	Title           *string   `json:"title" validate:"omitempty,min=1,max=200"`
	Description     *string   `json:"description" validate:"omitempty,max=5000"`
	Status          *string   `json:"status" validate:"omitempty,oneof=planning in_progress completed on_hold"`
	Priority        *string   `json:"priority" validate:"omitempty,oneof=low medium high"`
	Category        *string   `json:"category" validate:"omitempty,oneof=job_search skill_development research networking other"`
	Progress        *int      `json:"progress" validate:"omitempty,gte=0,lte=100"`
	Tags            *[]string `json:"tags" validate:"omitempty,max=50,dive,required"`
	LinkedJobs      *[]string `json:"linked_jobs" validate:"omitempty,max=200,dive,required"`
	LinkedPapers    *[]string `json:"linked_papers" validate:"omitempty,max=200,dive,required"`
	LinkedResources *[]string `json:"linked_resources" validate:"omitempty,max=200,dive,required"`
	Notes           *string   `json:"notes"`
	IsPublic        *bool     `json:"is_public"`
}

// Empty reports whether p changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil && p.Priority == nil &&
		p.Category == nil && p.Progress == nil && p.Tags == nil && p.LinkedJobs == nil &&
		p.LinkedPapers == nil && p.LinkedResources == nil && p.Notes == nil && p.IsPublic == nil
}

// ProgressCommand is the body of PUT /projects/{id}/progress.
type ProgressCommand struct {
	Progress *int `json:"progress" validate:"required,gte=0,lte=100"`
}
