// Package catalog indexes the courses of a curriculum by identity.
//
// Courses arrive as a tree: each course embeds its prerequisites as full
// course records. The catalog flattens that tree into a registry where every
// distinct course key appears once and prerequisites are stored as indices,
// so cyclic or shared prerequisites are represented without expanding them.
package catalog

import (
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stemsi/curriculum-backend/internal/model"
)

// Entry is one registered course.
type Entry struct {
	Index  int           `json:"index"`
	Key    string        `json:"key"`
	Nested bool          `json:"nested"`
	Course *model.Course `json:"-"`

	prereqs    []int
	dependents []int
}

// WarningKind classifies a soft problem found while building the catalog.
type WarningKind string

const (
	WarningDuplicateCourse   WarningKind = "duplicate_course"
	WarningPrerequisiteCycle WarningKind = "prerequisite_cycle"
	WarningUnknownModule     WarningKind = "unknown_module"

	// A nested copy of a registered course lists prerequisites the
	// registered entry does not have; they are not linked.
	WarningIgnoredPrerequisites WarningKind = "ignored_prerequisites"

	// The course key is empty, or an id contains the "/" that joins
	// variant ids, so two different courses can share a key.
	WarningAmbiguousKey WarningKind = "ambiguous_key"
)

// Warning is reported but never rejects a curriculum.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
	Courses []string    `json:"courses,omitempty"`
}

// Catalog is an immutable index over one curriculum.
type Catalog struct {
	credits  float64
	modules  []model.Module
	entries  []*Entry
	byKey    map[string]int
	cycle    []string
	warnings []Warning
}

// Build registers every course of cur. Top level courses are registered
// first in document order; nested prerequisites are then walked breadth
// first and resolve to an existing entry when their key is already known.
func Build(cur *model.Curriculum, log zerolog.Logger) *Catalog {
	log = log.With().Str("component", "catalog").Logger()

	c := &Catalog{
		modules: cur.Modules,
		byKey:   make(map[string]int, len(cur.Courses)),
	}
	if cur.Credits != nil {
		c.credits = *cur.Credits
	}

	var queue []int
	for i := range cur.Courses {
		course := &cur.Courses[i]
		key := course.Key()
		if first, ok := c.byKey[key]; ok {
			c.warn(WarningDuplicateCourse,
				fmt.Sprintf("course %q is listed more than once; keeping entry %d", key, first),
				key)
			continue
		}
		queue = append(queue, c.register(course, false))
	}

	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]

		entry := c.entries[idx]
		for j := range entry.Course.Prerequisites {
			pre := &entry.Course.Prerequisites[j]
			target, ok := c.byKey[pre.Key()]
			if !ok {
				target = c.register(pre, true)
				queue = append(queue, target)
			} else {
				c.checkIgnored(target, pre)
			}
			c.link(idx, target)
		}
	}

	c.checkModules()

	if cycle := c.findCycle(); cycle != nil {
		c.cycle = cycle
		c.warn(WarningPrerequisiteCycle,
			"prerequisite cycle: "+strings.Join(cycle, " -> "),
			cycle...)
	}

	for _, w := range c.warnings {
		log.Warn().
			Str("kind", string(w.Kind)).
			Strs("courses", w.Courses).
			Msg(w.Message)
	}
	log.Debug().
		Int("courses", len(c.entries)).
		Int("modules", len(c.modules)).
		Msg("Catalog built")

	return c
}

func (c *Catalog) register(course *model.Course, nested bool) int {
	idx := len(c.entries)
	key := course.Key()
	c.entries = append(c.entries, &Entry{
		Index:  idx,
		Key:    key,
		Nested: nested,
		Course: course,
	})
	c.byKey[key] = idx

	if key == "" {
		c.warn(WarningAmbiguousKey, fmt.Sprintf("course entry %d has no id", idx))
	}
	for _, id := range course.ID.Values() {
		if strings.Contains(id, "/") {
			c.warn(WarningAmbiguousKey,
				fmt.Sprintf("course id %q contains \"/\", which also joins variant ids", id),
				key)
			break
		}
	}
	return idx
}

// checkIgnored warns when dup, a nested copy of the registered course at
// target, lists prerequisites the registered entry does not.
func (c *Catalog) checkIgnored(target int, dup *model.Course) {
	e := c.entries[target]
	if e.Course == dup {
		return
	}
	known := make(map[string]bool, len(e.Course.Prerequisites))
	for i := range e.Course.Prerequisites {
		known[e.Course.Prerequisites[i].Key()] = true
	}

	var ignored []string
	for i := range dup.Prerequisites {
		k := dup.Prerequisites[i].Key()
		if !known[k] && !slices.Contains(ignored, k) {
			ignored = append(ignored, k)
		}
	}
	if len(ignored) == 0 {
		return
	}
	c.warn(WarningIgnoredPrerequisites,
		fmt.Sprintf("a nested copy of course %q lists prerequisites %q that entry %d does not; they are ignored", e.Key, ignored, target),
		e.Key)
}

func (c *Catalog) link(from, to int) {
	e := c.entries[from]
	if slices.Contains(e.prereqs, to) {
		return
	}
	e.prereqs = append(e.prereqs, to)
	c.entries[to].dependents = append(c.entries[to].dependents, from)
}

func (c *Catalog) warn(kind WarningKind, msg string, courses ...string) {
	c.warnings = append(c.warnings, Warning{Kind: kind, Message: msg, Courses: courses})
}

// checkModules reports course module codes that the curriculum does not
// declare.
func (c *Catalog) checkModules() {
	known := make(map[string]bool, len(c.modules))
	for _, m := range c.modules {
		known[m.CodeOrEmpty()] = true
	}
	for _, e := range c.entries {
		for _, m := range e.Course.Module {
			code := m.CodeOrEmpty()
			if !known[code] {
				c.warn(WarningUnknownModule,
					fmt.Sprintf("course %q refers to module %q which the curriculum does not list", e.Key, code),
					e.Key)
			}
		}
	}
}

// Len is the number of registered courses, nested ones included.
func (c *Catalog) Len() int { return len(c.entries) }

// Credits is the curriculum's declared credit requirement.
func (c *Catalog) Credits() float64 { return c.credits }

// Modules returns the curriculum's modules in document order.
func (c *Catalog) Modules() []model.Module { return slices.Clone(c.modules) }

// Courses returns all entries in registration order.
func (c *Catalog) Courses() []*Entry { return slices.Clone(c.entries) }

// Warnings returns the soft problems found while building.
func (c *Catalog) Warnings() []Warning { return slices.Clone(c.warnings) }

// Course looks up an entry by key.
func (c *Catalog) Course(key string) (*Entry, bool) {
	idx, ok := c.byKey[key]
	if !ok {
		return nil, false
	}
	return c.entries[idx], true
}

// Prerequisites returns the direct prerequisites of key in document order.
func (c *Catalog) Prerequisites(key string) ([]*Entry, error) {
	e, ok := c.Course(key)
	if !ok {
		return nil, notFound(key)
	}
	return c.resolve(e.prereqs), nil
}

// AllPrerequisites returns every course reachable through prerequisites,
// nearest first. Each course appears once; key itself appears only when it
// lies on a cycle.
func (c *Catalog) AllPrerequisites(key string) ([]*Entry, error) {
	e, ok := c.Course(key)
	if !ok {
		return nil, notFound(key)
	}
	return c.resolve(c.reach(e.Index, func(x *Entry) []int { return x.prereqs })), nil
}

// Dependents returns the courses that list key as a direct prerequisite.
func (c *Catalog) Dependents(key string) ([]*Entry, error) {
	e, ok := c.Course(key)
	if !ok {
		return nil, notFound(key)
	}
	return c.resolve(e.dependents), nil
}

// CoursesForModule returns every course that counts towards module code.
func (c *Catalog) CoursesForModule(code string) []*Entry {
	var out []*Entry
	for _, e := range c.entries {
		for _, m := range e.Course.Module {
			if m.CodeOrEmpty() == code {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// CoursesOfferedIn returns the courses with at least one variant offered in
// term (W or S).
func (c *Catalog) CoursesOfferedIn(term model.Availability) []*Entry {
	var out []*Entry
	for _, e := range c.entries {
		if slices.ContainsFunc(e.Course.Availability.Values(), func(a model.Availability) bool {
			return a.OfferedIn(term)
		}) {
			out = append(out, e)
		}
	}
	return out
}

// Cycle returns one prerequisite cycle as a closed path of keys, or nil.
func (c *Catalog) Cycle() []string { return slices.Clone(c.cycle) }

// StudyOrder returns all courses ordered so that each course follows its
// prerequisites. Ties keep registration order. It fails with ErrCycle when
// the prerequisite graph is cyclic.
func (c *Catalog) StudyOrder() ([]*Entry, error) {
	order := c.topoOrder()
	if len(order) != len(c.entries) {
		return nil, cycleError(c.cycle)
	}
	return c.resolve(order), nil
}

func (c *Catalog) reach(start int, next func(*Entry) []int) []int {
	seen := make([]bool, len(c.entries))
	var out []int
	queue := slices.Clone(next(c.entries[start]))
	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]
		if seen[idx] {
			continue
		}
		seen[idx] = true
		out = append(out, idx)
		queue = append(queue, next(c.entries[idx])...)
	}
	return out
}

func (c *Catalog) resolve(idx []int) []*Entry {
	out := make([]*Entry, 0, len(idx))
	for _, i := range idx {
		out = append(out, c.entries[i])
	}
	return out
}

// Summary describes a catalog in numbers.
type Summary struct {
	Courses       int       `json:"courses"`
	NestedCourses int       `json:"nested_courses"`
	Modules       int       `json:"modules"`
	Credits       float64   `json:"credits"`
	ModuleCredits float64   `json:"module_credits"`
	Acyclic       bool      `json:"acyclic"`
	Warnings      []Warning `json:"warnings"`
}

func (c *Catalog) Summary() Summary {
	s := Summary{
		Courses:  len(c.entries),
		Modules:  len(c.modules),
		Credits:  c.credits,
		Acyclic:  c.cycle == nil,
		Warnings: c.Warnings(),
	}
	if s.Warnings == nil {
		s.Warnings = []Warning{}
	}
	for _, e := range c.entries {
		if e.Nested {
			s.NestedCourses++
		}
	}
	for _, m := range c.modules {
		if m.Credits != nil {
			s.ModuleCredits += *m.Credits
		}
	}
	return s
}
