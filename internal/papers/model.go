// Package papers stores research papers. Papers are keyed for upsert by url,
// so re-ingesting a source refreshes rows instead of duplicating them.
package papers

import "time"

// Paper is the JSON shape of a research_papers row.
type Paper struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Authors         []string   `json:"authors"`
	PublicationDate *time.Time `json:"publication_date"`
	Abstract        string     `json:"abstract"`
	URL             string     `json:"url"`
	Company         string     `json:"company"`
	Tags            []string   `json:"tags"`
	CreatedBy       *string    `json:"created_by"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Company string
	Tag     string
	Author  string
	Q       string
	Owner   string
	Limit   int
	Offset  int
}

// dateLayout is the wire format of publication_date in commands.
const dateLayout = "2006-01-02"

// CreateCommand is the body of POST /papers.
type CreateCommand struct {
	Title           string   `json:"title" validate:"required,max=500"`
	Authors         []string `json:"authors" validate:"max=100,dive,required"`
	PublicationDate string   `json:"publication_date" validate:"omitempty,datetime=2006-01-02"`
	Abstract        string   `json:"abstract"`
	URL             string   `json:"url" validate:"required,url"`
	Company         string   `json:"company" validate:"max=200"`
	Tags            []string `json:"tags" validate:"max=50,dive,required"`
}

// Patch is the body of PUT /papers/{id}. Nil fields are left unchanged.
type Patch struct {
	Title           *string   `json:"title" validate:"omitempty,min=1,max=500"`
	Authors         *[]string `json:"authors" validate:"omitempty,max=100,dive,required"`
	PublicationDate *string   `json:"publication_date" validate:"omitempty,datetime=2006-01-02"`
	Abstract        *string   `json:"abstract"`
	URL             *string   `json:"url" validate:"omitempty,url"`
	Company         *string   `json:"company" validate:"omitempty,max=200"`
	Tags            *[]string `json:"tags" validate:"omitempty,max=50,dive,required"`
}

// Empty reports whether p changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Authors == nil && p.PublicationDate == nil && p.Abstract == nil &&
		p.URL == nil && p.Company == nil && p.Tags == nil
}
