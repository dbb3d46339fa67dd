package validator

import (
	"errors"
	"strings"
	"testing"

	"github.com/stemsi/curriculum-backend/internal/model"
)

func intro() model.Module {
	return model.Module{
		Code:    model.String("CS101"),
		Name:    model.String("Intro to Programming"),
		Credits: model.Number(6),
	}
}

func basics() model.Course {
	return model.Course{
		ID:                  model.One("C1"),
		Name:                model.One("Programming Basics"),
		Module:              []model.Module{intro()},
		Subcategory:         model.One("Core"),
		Type:                model.One("Lecture"),
		Credits:             model.One(6.0),
		Required:            model.One(1.0),
		Availability:        model.One(model.AvailabilityWinter),
		RecommendedSemester: model.One(1.0),
		Prerequisites:       []model.Course{},
		Frequency:           model.One(model.FrequencyYearly),
		Language:            model.One("en"),
		Description:         model.One("Intro course"),
		URL:                 model.One("https://example.edu/c1"),
	}
}

func curriculum(courses ...model.Course) *model.Curriculum {
	return &model.Curriculum{
		Credits: model.Number(180),
		Modules: []model.Module{intro()},
		Courses: courses,
	}
}

func fieldErrors(t *testing.T, err error) []FieldError {
	t.Helper()
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T: %v", err, err)
	}
	return ve.Errors
}

func TestValidate_ExampleCurriculum(t *testing.T) {
	if err := Validate(curriculum(basics())); err != nil {
		t.Fatalf("expected valid curriculum, got %v", err)
	}
}

func TestValidate_EmptyCollectionsAreValid(t *testing.T) {
	cur := &model.Curriculum{
		Credits: model.Number(0),
		Modules: []model.Module{},
		Courses: []model.Course{},
	}
	if err := Validate(cur); err != nil {
		t.Fatalf("expected empty curriculum to be valid, got %v", err)
	}
}

func TestValidate_RejectsUnknownAvailability(t *testing.T) {
	c := basics()
	c.Availability = model.One(model.Availability("X"))

	errs := fieldErrors(t, Validate(curriculum(c)))
	if len(errs) != 1 {
		t.Fatalf("expected one error, got %v", errs)
	}
	if errs[0].Rule != "oneof" || !strings.HasPrefix(errs[0].Field, "courses[0].availability") {
		t.Fatalf("unexpected error %+v", errs[0])
	}
	if !strings.Contains(errs[0].Message, "W S B") {
		t.Fatalf("expected allowed values in message, got %q", errs[0].Message)
	}
}

func TestValidate_ChecksEveryElementOfAList(t *testing.T) {
	c := basics()
	c.Availability = model.Many(model.AvailabilityWinter, "Q")
	c.Frequency = model.Many(model.FrequencyBiyearly, "weekly")

	errs := fieldErrors(t, Validate(curriculum(c)))
	got := map[string]string{}
	for _, fe := range errs {
		got[fe.Field] = fe.Rule
	}
	if got["courses[0].availability[1]"] != "oneof" {
		t.Fatalf("expected availability[1] to fail oneof, got %v", got)
	}
	if got["courses[0].frequency[1]"] != "oneof" {
		t.Fatalf("expected frequency[1] to fail oneof, got %v", got)
	}
	if len(got) != 2 {
		t.Fatalf("expected exactly two errors, got %v", got)
	}
}

func TestValidate_PluralFieldsNeedNoAlignment(t *testing.T) {
	c := basics()
	c.ID = model.Many("SE1a", "SE1b", "SE1c")
	c.Name = model.Many("Only one name")
	c.Credits = model.Many[float64]()
	c.Availability = model.Many(model.AvailabilityWinter, model.AvailabilitySummer)

	if err := Validate(curriculum(c)); err != nil {
		t.Fatalf("expected misaligned lists to be accepted, got %v", err)
	}
}

func TestValidate_MissingFields(t *testing.T) {
	c := basics()
	c.URL = model.OneOrMany[string]{}
	c.Prerequisites = nil
	c.Module[0].Code = nil

	cur := curriculum(c)
	cur.Credits = nil

	errs := fieldErrors(t, Validate(cur))
	want := map[string]bool{
		"credits":                   true,
		"courses[0].url":            true,
		"courses[0].prerequisites":  true,
		"courses[0].module[0].code": true,
	}
	for _, fe := range errs {
		if fe.Rule != "required" {
			t.Fatalf("expected required rule, got %+v", fe)
		}
		if !want[fe.Field] {
			t.Fatalf("unexpected field error %+v", fe)
		}
		delete(want, fe.Field)
	}
	if len(want) != 0 {
		t.Fatalf("missing errors for %v", want)
	}
}

func TestValidate_ZeroValuesArePresent(t *testing.T) {
	c := basics()
	c.Module[0].Name = model.String("")
	c.Module[0].Credits = model.Number(0)
	c.Description = model.One("")

	if err := Validate(curriculum(c)); err != nil {
		t.Fatalf("expected present zero values to be valid, got %v", err)
	}
}

func TestValidate_NestedPrerequisites(t *testing.T) {
	deep := basics()
	deep.ID = model.One("C0")
	deep.Frequency = model.One(model.Frequency("daily"))

	mid := basics()
	mid.ID = model.One("C1")
	mid.Prerequisites = []model.Course{deep}

	top := basics()
	top.ID = model.One("C2")
	top.Prerequisites = []model.Course{mid}

	errs := fieldErrors(t, Validate(curriculum(top)))
	if len(errs) != 1 {
		t.Fatalf("expected one error, got %v", errs)
	}
	if !strings.HasPrefix(errs[0].Field, "courses[0].prerequisites[0].prerequisites[0].frequency") {
		t.Fatalf("unexpected field %q", errs[0].Field)
	}
}

func TestTranslateErrors(t *testing.T) {
	c := basics()
	c.Name = model.OneOrMany[string]{}

	fields := TranslateErrors(Validate(curriculum(c)))
	msg, ok := fields["courses[0].name"]
	if !ok {
		t.Fatalf("expected courses[0].name in %v", fields)
	}
	if msg != "courses[0].name is a required field" {
		t.Fatalf("unexpected message %q", msg)
	}

	fields = TranslateErrors(errors.New("boom"))
	if fields["detail"] != "boom" {
		t.Fatalf("expected detail for plain errors, got %v", fields)
	}
}
