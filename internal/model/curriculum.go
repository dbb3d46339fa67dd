package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Availability is the semester a course is offered in.
type Availability string

const (
	AvailabilityWinter Availability = "W"
	AvailabilitySummer Availability = "S"
	AvailabilityBoth   Availability = "B"
)

// Valid reports whether a is one of the known availability codes.
func (a Availability) Valid() bool {
	switch a {
	case AvailabilityWinter, AvailabilitySummer, AvailabilityBoth:
		return true
	}
	return false
}

// OfferedIn reports whether a course with availability a runs in term.
// term must be W or S.
func (a Availability) OfferedIn(term Availability) bool {
	return a == AvailabilityBoth || a == term
}

// Frequency is how often a course is offered.
type Frequency string

const (
	FrequencyYearly   Frequency = "yearly"
	FrequencyBiyearly Frequency = "biyearly"
)

func (f Frequency) Valid() bool {
	return f == FrequencyYearly || f == FrequencyBiyearly
}

// Module is a unit of study a course can count towards.
type Module struct {
	Code    *string  `json:"code" yaml:"code" validate:"required"`
	Name    *string  `json:"name" yaml:"name" validate:"required"`
	Credits *float64 `json:"credits" yaml:"credits" validate:"required"`
}

// UnmarshalYAML decodes a module and rejects non-string codes and names.
func (m *Module) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	if node.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(node.Content); i += 2 {
			switch node.Content[i].Value {
			case "code", "name":
				if err := checkYAMLString(node.Content[i+1]); err != nil {
					return err
				}
			}
		}
	}
	type plain Module
	return node.Decode((*plain)(m))
}

// CodeOrEmpty returns the module code, or "" when absent.
func (m Module) CodeOrEmpty() string {
	if m.Code == nil {
		return ""
	}
	return *m.Code
}

// Course is a course offering. A course whose descriptive fields are lists
// describes a family of variants sharing one record; list positions line up
// by convention only.
type Course struct {
	ID                  OneOrMany[string]       `json:"id" yaml:"id" validate:"required"`
	Name                OneOrMany[string]       `json:"name" yaml:"name" validate:"required"`
	Module              []Module                `json:"module" yaml:"module" validate:"required,dive"`
	Subcategory         OneOrMany[string]       `json:"subcategory" yaml:"subcategory" validate:"required"`
	Type                OneOrMany[string]       `json:"type" yaml:"type" validate:"required"`
	Credits             OneOrMany[float64]      `json:"credits" yaml:"credits" validate:"required"`
	Required            OneOrMany[float64]      `json:"required" yaml:"required" validate:"required"`
	Availability        OneOrMany[Availability] `json:"availability" yaml:"availability" validate:"required,dive,oneof=W S B"`
	RecommendedSemester OneOrMany[float64]      `json:"recommended_semester" yaml:"recommended_semester" validate:"required"`
	Prerequisites       []Course                `json:"prerequisites" yaml:"prerequisites" validate:"required,dive"`
	Frequency           OneOrMany[Frequency]    `json:"frequency" yaml:"frequency" validate:"required,dive,oneof=yearly biyearly"`
	Language            OneOrMany[string]       `json:"language" yaml:"language" validate:"required"`
	Description         OneOrMany[string]       `json:"description" yaml:"description" validate:"required"`
	URL                 OneOrMany[string]       `json:"url" yaml:"url" validate:"required"`
}

// Key is the identity of a course inside a curriculum: its id, or all of
// its variant ids joined with "/".
func (c Course) Key() string {
	return strings.Join(c.ID.Values(), "/")
}

// Curriculum is the aggregate root of a study programme.
type Curriculum struct {
	Credits *float64 `json:"credits" yaml:"credits" validate:"required"`
	Modules []Module `json:"modules" yaml:"modules" validate:"required,dive"`
	Courses []Course `json:"courses" yaml:"courses" validate:"required,dive"`
}

// CurriculumRecord is a stored curriculum.
type CurriculumRecord struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Credits     float64     `json:"credits"`
	CourseCount int         `json:"course_count"`
	ModuleCount int         `json:"module_count"`
	Document    *Curriculum `json:"document,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// ImportQuery carries the query parameters of an import request.
type ImportQuery struct {
	Name   string `form:"name" json:"name" binding:"required,min=1,max=200"`
	Format string `form:"format" json:"format" binding:"omitempty,oneof=json yaml yml"`
}

// ImportJobStatus enumerates the states of an asynchronous import.
type ImportJobStatus string

const (
	ImportJobQueued ImportJobStatus = "queued"
	ImportJobDone   ImportJobStatus = "done"
	ImportJobFailed ImportJobStatus = "failed"
)

// ImportJob is the status record of an asynchronous import.
type ImportJob struct {
	ID           uuid.UUID       `json:"id"`
	Status       ImportJobStatus `json:"status"`
	CurriculumID *uuid.UUID      `json:"curriculum_id,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// String and Number return pointers for building documents in code.
func String(s string) *string    { return &s }
func Number(n float64) *float64 { return &n }
