package allocation

import (
	"fmt"
	"sort"
)

// Template is a named starter split.
type Template struct {
	Name   string
	Shares []Share // IDs are left empty; callers assign them
}

// DefaultTemplate is used when a project is created without a template.
const DefaultTemplate = "solo"

var templates = map[string]Template{
	"solo": {Name: "solo", Shares: []Share{
		{Name: "Creator", Percent: 100},
	}},
	"duo": {Name: "duo", Shares: []Share{
		{Name: "Creator", Percent: 50},
		{Name: "Collaborator", Percent: 50},
	}},
	"band": {Name: "band", Shares: []Share{
		{Name: "Vocals", Percent: 25},
		{Name: "Guitar", Percent: 25},
		{Name: "Bass", Percent: 25},
		{Name: "Drums", Percent: 25},
	}},
	"film": {Name: "film", Shares: []Share{
		{Name: "Director", Percent: 40},
		{Name: "Writer", Percent: 20},
		{Name: "Producer", Percent: 25},
		{Name: "Crew", Percent: 15},
	}},
}

// LookupTemplate returns the template registered under name.
func LookupTemplate(name string) (Template, error) {
	if name == "" {
		name = DefaultTemplate
	}
	t, ok := templates[name]
	if !ok {
		return Template{}, fmt.Errorf("unknown template %q", name)
	}
	t.Shares = append([]Share(nil), t.Shares...)
	return t, nil
}

// TemplateNames lists the registered templates in alphabetical order.
func TemplateNames() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FromTemplate builds an allocation from t, taking ids from newID in order.
func FromTemplate(t Template, newID func() string) Allocation {
	shares := make([]Share, len(t.Shares))
	for i, s := range t.Shares {
		s.ID = newID()
		shares[i] = s
	}
	return Allocation{shares: shares}
}
