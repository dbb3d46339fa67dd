package catalog

import (
	"testing"

	"github.com/stemsi/curriculum-backend/internal/model"
)

func TestVariants_SingleCourse(t *testing.T) {
	c := course("C1")
	vs := Variants(&c)
	if len(vs) != 1 {
		t.Fatalf("expected one variant, got %d", len(vs))
	}
	v := vs[0]
	if v.ID != "C1" || v.Credits != 6 || v.Availability != model.AvailabilityWinter || v.Frequency != model.FrequencyYearly {
		t.Fatalf("unexpected variant %+v", v)
	}
	if v.PlainDescription != "About C1" {
		t.Fatalf("unexpected plain description %q", v.PlainDescription)
	}
}

func TestVariants_Family(t *testing.T) {
	c := course("x")
	c.ID = model.Many("SE1a", "SE1b")
	c.Name = model.Many("Project (Winter)", "Project (Summer)")
	c.Availability = model.Many(model.AvailabilityWinter, model.AvailabilitySummer)
	c.Required = model.Many(1.0, 0)
	c.Language = model.Many("de")
	c.Description = model.One("<p>Team <b>project</b></p>")
	c.URL = model.Many[string]()

	vs := Variants(&c)
	if len(vs) != 2 {
		t.Fatalf("expected two variants, got %d", len(vs))
	}
	if vs[1].ID != "SE1b" || vs[1].Name != "Project (Summer)" || vs[1].Availability != model.AvailabilitySummer {
		t.Fatalf("positional fields not aligned: %+v", vs[1])
	}
	if vs[0].Required != 1 || vs[1].Required != 0 {
		t.Fatalf("unexpected required values %v / %v", vs[0].Required, vs[1].Required)
	}
	// Singular fields broadcast, short lists repeat their last element.
	if vs[1].Credits != 6 || vs[1].Language != "de" {
		t.Fatalf("unexpected broadcast values %+v", vs[1])
	}
	if vs[1].URL != "" {
		t.Fatalf("expected empty list to give zero value, got %q", vs[1].URL)
	}
	if vs[0].PlainDescription != "Team project" {
		t.Fatalf("unexpected plain description %q", vs[0].PlainDescription)
	}
}
