package model

import (
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestOneOrMany_JSONScalar(t *testing.T) {
	var o OneOrMany[string]
	if err := json.Unmarshal([]byte(`"C1"`), &o); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if o.Kind() != KindOne {
		t.Fatalf("expected KindOne, got %v", o.Kind())
	}
	if v, ok := o.First(); !ok || v != "C1" {
		t.Fatalf("unexpected first value %q (%v)", v, ok)
	}
	out, err := json.Marshal(o)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `"C1"` {
		t.Fatalf("expected scalar form back, got %s", out)
	}
}

func TestOneOrMany_JSONSequence(t *testing.T) {
	var o OneOrMany[float64]
	if err := json.Unmarshal([]byte(`[3, 4.5]`), &o); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if o.Kind() != KindMany || o.Len() != 2 {
		t.Fatalf("expected two values, got %v %v", o.Kind(), o.Values())
	}
	if v, _ := o.At(1); v != 4.5 {
		t.Fatalf("expected 4.5 at index 1, got %v", v)
	}
	if _, ok := o.At(2); ok {
		t.Fatalf("expected index 2 to be out of range")
	}
	out, _ := json.Marshal(o)
	if string(out) != `[3,4.5]` {
		t.Fatalf("expected sequence form back, got %s", out)
	}
}

func TestOneOrMany_JSONEmptySequenceIsPresent(t *testing.T) {
	var o OneOrMany[string]
	if err := json.Unmarshal([]byte(`[]`), &o); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !o.IsSet() || !o.IsMany() || o.Len() != 0 {
		t.Fatalf("expected present empty list, got %v len=%d", o.Kind(), o.Len())
	}
	if vs, ok := o.ValidationValue().([]string); !ok || vs == nil {
		t.Fatalf("expected non-nil slice for validation, got %#v", o.ValidationValue())
	}
}

func TestOneOrMany_JSONNullIsAbsent(t *testing.T) {
	o := One("x")
	if err := json.Unmarshal([]byte(`null`), &o); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if o.IsSet() {
		t.Fatalf("expected null to reset to KindNone")
	}
	if vs := o.ValidationValue().([]string); vs != nil {
		t.Fatalf("expected nil slice for absent value, got %v", vs)
	}
}

func TestOneOrMany_JSONWrongShape(t *testing.T) {
	cases := map[string]string{
		"object":          `{"a": 1}`,
		"nested list":     `[["a"]]`,
		"object in list":  `[{"a": 1}]`,
		"number for text": `6`,
		"mixed list":      `["a", 2]`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			var o OneOrMany[string]
			err := json.Unmarshal([]byte(input), &o)
			if err == nil {
				t.Fatalf("expected error for %s", input)
			}
			var typeErr *json.UnmarshalTypeError
			if !asTypeError(err, &typeErr) {
				t.Fatalf("expected *json.UnmarshalTypeError, got %T: %v", err, err)
			}
		})
	}
}

func asTypeError(err error, target **json.UnmarshalTypeError) bool {
	te, ok := err.(*json.UnmarshalTypeError)
	if ok {
		*target = te
	}
	return ok
}

func TestOneOrMany_JSONInStruct(t *testing.T) {
	var doc struct {
		Availability OneOrMany[Availability] `json:"availability"`
		Missing      OneOrMany[Frequency]    `json:"frequency"`
	}
	if err := json.Unmarshal([]byte(`{"availability": ["W", "S"]}`), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got := doc.Availability.Values()
	if len(got) != 2 || got[0] != AvailabilityWinter || got[1] != AvailabilitySummer {
		t.Fatalf("unexpected availability %v", got)
	}
	if doc.Missing.IsSet() {
		t.Fatalf("expected missing field to stay unset")
	}
}

func TestOneOrMany_YAML(t *testing.T) {
	var doc struct {
		ID      OneOrMany[string]  `yaml:"id"`
		Credits OneOrMany[float64] `yaml:"credits"`
		Empty   OneOrMany[string]  `yaml:"empty"`
		Null    OneOrMany[string]  `yaml:"null_value"`
	}
	input := "id: [A, B]\ncredits: 6\nempty: []\nnull_value: ~\n"
	if err := yaml.Unmarshal([]byte(input), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.ID.Kind() != KindMany || strings.Join(doc.ID.Values(), ",") != "A,B" {
		t.Fatalf("unexpected id %v", doc.ID.Values())
	}
	if v, _ := doc.Credits.First(); doc.Credits.Kind() != KindOne || v != 6 {
		t.Fatalf("unexpected credits %v", doc.Credits.Values())
	}
	if !doc.Empty.IsSet() || doc.Empty.Len() != 0 {
		t.Fatalf("expected present empty list")
	}
	if doc.Null.IsSet() {
		t.Fatalf("expected null to be absent")
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(out), "credits: 6\n") {
		t.Fatalf("expected scalar credits in output, got:\n%s", out)
	}
}

func TestOneOrMany_YAMLWrongShape(t *testing.T) {
	var doc struct {
		Credits OneOrMany[float64] `yaml:"credits"`
		Name    OneOrMany[string]  `yaml:"name"`
	}
	err := yaml.Unmarshal([]byte("credits: six\nname: {a: b}\n"), &doc)
	if err == nil {
		t.Fatalf("expected error")
	}
	typeErr, ok := err.(*yaml.TypeError)
	if !ok {
		t.Fatalf("expected *yaml.TypeError, got %T: %v", err, err)
	}
	if len(typeErr.Errors) != 2 {
		t.Fatalf("expected both fields reported, got %v", typeErr.Errors)
	}
}

func TestOneOrMany_YAMLStringsMustBeStrings(t *testing.T) {
	for _, in := range []string{"id: 42", "id: true", "id: 1.5", "id: [A, 2]", "id: [A, ~]", "id: 2024-01-01"} {
		var doc struct {
			ID OneOrMany[string] `yaml:"id"`
		}
		if err := yaml.Unmarshal([]byte(in), &doc); err == nil {
			t.Fatalf("%q: expected error, decoded %v", in, doc.ID.Values())
		}
	}

	var doc struct {
		ID      OneOrMany[string]  `yaml:"id"`
		Credits OneOrMany[float64] `yaml:"credits"`
	}
	if err := yaml.Unmarshal([]byte("id: [\"42\", A]\ncredits: [6, 1.5]\n"), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.ID.Values()[0] != "42" || doc.Credits.Values()[1] != 1.5 {
		t.Fatalf("unexpected values %v %v", doc.ID.Values(), doc.Credits.Values())
	}
}

func TestOneOrMany_NullElements(t *testing.T) {
	var ids OneOrMany[string]
	if err := json.Unmarshal([]byte(`["C1", null]`), &ids); err == nil {
		t.Fatalf("expected null element to be rejected, got %v", ids.Values())
	}
	var credits OneOrMany[float64]
	if err := json.Unmarshal([]byte(`[6, null]`), &credits); err == nil {
		t.Fatalf("expected null element to be rejected, got %v", credits.Values())
	}

	var doc struct {
		Credits OneOrMany[float64] `yaml:"credits"`
	}
	if err := yaml.Unmarshal([]byte("credits: [6, null]\n"), &doc); err == nil {
		t.Fatalf("expected null element to be rejected, got %v", doc.Credits.Values())
	}
}

func TestModule_YAMLStringFields(t *testing.T) {
	var m Module
	if err := yaml.Unmarshal([]byte("{code: CS101, name: Intro, credits: 6}"), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.CodeOrEmpty() != "CS101" || *m.Credits != 6 {
		t.Fatalf("unexpected module %+v", m)
	}

	for _, in := range []string{"{code: 101, name: Intro, credits: 6}", "{code: CS101, name: true, credits: 6}"} {
		var bad Module
		err := yaml.Unmarshal([]byte(in), &bad)
		if _, ok := err.(*yaml.TypeError); !ok {
			t.Fatalf("%q: expected *yaml.TypeError, got %T: %v", in, err, err)
		}
	}

	var absent Module
	if err := yaml.Unmarshal([]byte("{code: ~, credits: 6}"), &absent); err != nil || absent.Code != nil {
		t.Fatalf("expected null code to stay absent, got %v %v", absent.Code, err)
	}
}

func TestOneOrMany_Match(t *testing.T) {
	var one, many int
	One("a").Match(func(string) { one++ }, func([]string) { many++ })
	Many("a", "b").Match(func(string) { one++ }, func(vs []string) { many += len(vs) })
	OneOrMany[string]{}.Match(func(string) { one++ }, func([]string) { many++ })
	if one != 1 || many != 2 {
		t.Fatalf("unexpected dispatch one=%d many=%d", one, many)
	}
}

func TestOneOrMany_SingularAnswersEveryIndex(t *testing.T) {
	o := One(AvailabilityBoth)
	if v, ok := o.At(5); !ok || v != AvailabilityBoth {
		t.Fatalf("expected singular value at any index, got %v %v", v, ok)
	}
}

func TestCourseKey(t *testing.T) {
	if k := (Course{ID: One("C1")}).Key(); k != "C1" {
		t.Fatalf("unexpected key %q", k)
	}
	if k := (Course{ID: Many("SE1a", "SE1b")}).Key(); k != "SE1a/SE1b" {
		t.Fatalf("unexpected key %q", k)
	}
}

func TestAvailability(t *testing.T) {
	for _, a := range []Availability{"W", "S", "B"} {
		if !a.Valid() {
			t.Fatalf("expected %q to be valid", a)
		}
	}
	if Availability("X").Valid() {
		t.Fatalf("expected X to be invalid")
	}
	if !AvailabilityBoth.OfferedIn(AvailabilitySummer) || AvailabilityWinter.OfferedIn(AvailabilitySummer) {
		t.Fatalf("unexpected OfferedIn result")
	}
	if !FrequencyBiyearly.Valid() || Frequency("monthly").Valid() {
		t.Fatalf("unexpected frequency validity")
	}
}
