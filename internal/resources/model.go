// Package resources stores the three parallel resource families: resources
// a user keeps for themselves, resources attached to a job, and interview
// preparation material. All share one row shape and one ownership rule.
package resources

import (
	"time"

	"jobmate/research-service/internal/apperr"
)

// Kind selects a resource family.
type Kind string

const (
	KindUser      Kind = "user"
	KindJob       Kind = "job"
	KindInterview Kind = "interview"
)

var tables = map[Kind]string{
	KindUser:      "user_resources",
	KindJob:       "job_resources",
	KindInterview: "interview_resources",
}

// ParseKind validates s as a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := tables[k]; !ok {
		return "", apperr.NotFound("Unknown resource kind")
	}
	return k, nil
}

// Table returns the backing table of k.
func (k Kind) Table() string { return tables[k] }

// Visibility values.
const (
	Public  = "public"
	Private = "private"
)

// Resource is the JSON shape of a resource row.
type Resource struct {
	ID           string    `json:"id"`
	Kind         Kind      `json:"kind"`
	UserID       string    `json:"user_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Content      string    `json:"content"`
	URL          string    `json:"url"`
	ResourceType string    `json:"resource_type"`
	Tags         []string  `json:"tags"`
	Visibility   string    `json:"visibility"`
	JobID        *string   `json:"job_id"`
	Company      string    `json:"company"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Filter narrows List. Viewer sees public rows plus their own.
type Filter struct {
	Viewer  string
	Owner   string
	Tag     string
	Company string
	JobID   string
	Type    string
	Q       string
	Limit   int
	Offset  int
}

// CreateCommand is the body of POST /resources/{kind}.
type CreateCommand struct {
	Title        string   `json:"title" validate:"required,max=300"`
	Description  string   `json:"description" validate:"max=5000"`
	Content      string   `json:"content" validate:"max=100000"`
	URL          string   `json:"url" validate:"omitempty,url"`
	ResourceType string   `json:"resource_type" validate:"omitempty,max=50"`
	Tags         []string `json:"tags" validate:"max=50,dive,required"`
	Visibility   string   `json:"visibility" validate:"omitempty,oneof=public private"`
	JobID        string   `json:"job_id"`
	Company      string   `json:"company" validate:"max=200"`
}

// Patch is the body of PUT /resources/{kind}/{id}. Nil fields are left unchanged.
type Patch struct {
	Title        *string   `json:"title" validate:"omitempty,min=1,max=300"`
	Description  *string   `json:"description" validate:"omitempty,max=5000"`
	Content      *string   `json:"content" validate:"omitempty,max=100000"`
	URL          *string   `json:"url" validate:"omitempty,url"`
	ResourceType *string   `json:"resource_type" validate:"omitempty,max=50"`
	Tags         *[]string `json:"tags" validate:"omitempty,max=50,dive,required"`
	Visibility   *string   `json:"visibility" validate:"omitempty,oneof=public private"`
	Company      *string   `json:"company" validate:"omitempty,max=200"`
}

// Empty reports whether p changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Content == nil && p.URL == nil &&
		p.ResourceType == nil && p.Tags == nil && p.Visibility == nil && p.Company == nil
}
