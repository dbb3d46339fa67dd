package catalog

import (
	"github.com/stemsi/curriculum-backend/internal/htmltext"
	"github.com/stemsi/curriculum-backend/internal/model"
)

// Variant is one member of a course family with every field resolved to a
// single value.
type Variant struct {
	Index               int                `json:"index"`
	ID                  string             `json:"id"`
	Name                string             `json:"name"`
	Subcategory         string             `json:"subcategory"`
	Type                string             `json:"type"`
	Credits             float64            `json:"credits"`
	Required            float64            `json:"required"`
	Availability        model.Availability `json:"availability"`
	RecommendedSemester float64            `json:"recommended_semester"`
	Frequency           model.Frequency    `json:"frequency"`
	Language            string             `json:"language"`
	Description         string             `json:"description"`
	PlainDescription    string             `json:"plain_description"`
	URL                 string             `json:"url"`
}

// Variants expands a course into its variants. The number of variants is
// the length of the longest list field (at least one). Singular fields
// apply to every variant; a list shorter than the family repeats its last
// element, and an empty list yields the zero value.
func Variants(c *model.Course) []Variant {
	n := max(1,
		c.ID.Len(), c.Name.Len(), c.Subcategory.Len(), c.Type.Len(),
		c.Credits.Len(), c.Required.Len(), c.Availability.Len(),
		c.RecommendedSemester.Len(), c.Frequency.Len(), c.Language.Len(),
		c.Description.Len(), c.URL.Len(),
	)

	out := make([]Variant, 0, n)
	for i := 0; i < n; i++ {
		desc := pick(c.Description, i)
		out = append(out, Variant{
			Index:               i,
			ID:                  pick(c.ID, i),
			Name:                pick(c.Name, i),
			Subcategory:         pick(c.Subcategory, i),
			Type:                pick(c.Type, i),
			Credits:             pick(c.Credits, i),
			Required:            pick(c.Required, i),
			Availability:        pick(c.Availability, i),
			RecommendedSemester: pick(c.RecommendedSemester, i),
			Frequency:           pick(c.Frequency, i),
			Language:            pick(c.Language, i),
			Description:         desc,
			PlainDescription:    htmltext.PlainText(desc),
			URL:                 pick(c.URL, i),
		})
	}
	return out
}

func pick[T model.Scalar](o model.OneOrMany[T], i int) T {
	if v, ok := o.At(i); ok {
		return v
	}
	if n := o.Len(); n > 0 {
		v, _ := o.At(n - 1)
		return v
	}
	var zero T
	return zero
}
