package core

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Taxonomy is the fixed type -> category -> subcategory classification.
// Declaration order is significant: it drives form defaults and the row
// order of the annual summary. A Taxonomy is never mutated after creation.
type Taxonomy struct {
	groups []TypeGroup
	index  map[EntryType]map[string]int
}

// TypeGroup lists the categories of one entry type in declaration order.
type TypeGroup struct {
	Type       EntryType      `yaml:"type"`
	Categories []CategoryNode `yaml:"categories"`
}

// CategoryNode is a category with its ordered subcategories (possibly none).
type CategoryNode struct {
	Name          string   `yaml:"name"`
	Subcategories []string `yaml:"subcategories"`
}

// Selection is the (type, category, subcategory) triple of a blank entry form.
type Selection struct {
	Type        EntryType
	Category    string
	Subcategory string
}

var ErrInvalidTaxonomy = errors.New("invalid taxonomy")

// NewTaxonomy builds an immutable taxonomy from ordered groups.
func NewTaxonomy(groups []TypeGroup) (Taxonomy, error) {
	t := Taxonomy{index: make(map[EntryType]map[string]int)}
	for _, g := range groups {
		if !g.Type.Valid() {
			return Taxonomy{}, fmt.Errorf("%w: unknown type %q", ErrInvalidTaxonomy, g.Type)
		}
		if _, dup := t.index[g.Type]; dup {
			return Taxonomy{}, fmt.Errorf("%w: duplicate type %q", ErrInvalidTaxonomy, g.Type)
		}
		cats := make(map[string]int, len(g.Categories))
		nodes := make([]CategoryNode, 0, len(g.Categories))
		for _, c := range g.Categories {
			if c.Name == "" {
				return Taxonomy{}, fmt.Errorf("%w: empty category under %s", ErrInvalidTaxonomy, g.Type)
			}
			if _, dup := cats[c.Name]; dup {
				return Taxonomy{}, fmt.Errorf("%w: duplicate category %q under %s", ErrInvalidTaxonomy, c.Name, g.Type)
			}
			cats[c.Name] = len(nodes)
			nodes = append(nodes, CategoryNode{
				Name:          c.Name,
				Subcategories: append([]string(nil), c.Subcategories...),
			})
		}
		t.index[g.Type] = cats
		t.groups = append(t.groups, TypeGroup{Type: g.Type, Categories: nodes})
	}
	for _, typ := range EntryTypes() {
		if _, ok := t.index[typ]; !ok {
			return Taxonomy{}, fmt.Errorf("%w: missing type %q", ErrInvalidTaxonomy, typ)
		}
	}
	return t, nil
}

// LoadTaxonomy reads a YAML taxonomy file:
//
//	- type: Egreso
//	  categories:
//	    - name: TARJETAS
//	      subcategories: [Visa, Cabal]
func LoadTaxonomy(path string) (Taxonomy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Taxonomy{}, fmt.Errorf("read taxonomy file: %w", err)
	}
	var groups []TypeGroup
	if err := yaml.Unmarshal(raw, &groups); err != nil {
		return Taxonomy{}, fmt.Errorf("parse taxonomy file: %w", err)
	}
	return NewTaxonomy(groups)
}

// Types returns the entry types present in the taxonomy, in declaration order.
func (t Taxonomy) Types() []EntryType {
	out := make([]EntryType, len(t.groups))
	for i, g := range t.groups {
		out[i] = g.Type
	}
	return out
}

// Categories returns the ordered category names for a type.
func (t Taxonomy) Categories(typ EntryType) []string {
	g, ok := t.group(typ)
	if !ok {
		return nil
	}
	out := make([]string, len(g.Categories))
	for i, c := range g.Categories {
		out[i] = c.Name
	}
	return out
}

// Subcategories returns the ordered subcategories of (type, category); nil
// when the pair is unknown or has no subcategories.
func (t Taxonomy) Subcategories(typ EntryType, category string) []string {
	g, ok := t.group(typ)
	if !ok {
		return nil
	}
	i, ok := t.index[typ][category]
	if !ok {
		return nil
	}
	return append([]string(nil), g.Categories[i].Subcategories...)
}

// Has reports whether category is declared under typ.
func (t Taxonomy) Has(typ EntryType, category string) bool {
	_, ok := t.index[typ][category]
	return ok
}

// FirstSubcategory returns the first subcategory of (type, category) or "".
func (t Taxonomy) FirstSubcategory(typ EntryType, category string) string {
	subs := t.Subcategories(typ, category)
	if len(subs) == 0 {
		return ""
	}
	return subs[0]
}

// Default returns the selection for a new blank form: Egreso with its
// first category and that category's first subcategory.
func (t Taxonomy) Default() Selection {
	return t.Select(Egreso)
}

// Select returns the selection after switching to typ: category and
// subcategory reset to the first entries under the new type.
func (t Taxonomy) Select(typ EntryType) Selection {
	sel := Selection{Type: typ}
	if cats := t.Categories(typ); len(cats) > 0 {
		sel.Category = cats[0]
	}
	sel.Subcategory = t.FirstSubcategory(typ, sel.Category)
	return sel
}

// WithType applies a type change to the selection.
func (s Selection) WithType(t Taxonomy, typ EntryType) Selection {
	return t.Select(typ)
}

// WithCategory applies a category change; the subcategory resets to the
// first one of the new category, or "" when it has none.
func (s Selection) WithCategory(t Taxonomy, category string) Selection {
	s.Category = category
	s.Subcategory = t.FirstSubcategory(s.Type, category)
	return s
}

func (t Taxonomy) group(typ EntryType) (TypeGroup, bool) {
	for _, g := range t.groups {
		if g.Type == typ {
			return g, true
		}
	}
	return TypeGroup{}, false
}

// DefaultTaxonomy returns the organization's classification.
func DefaultTaxonomy() Taxonomy {
	t, err := NewTaxonomy([]TypeGroup{
		{Type: Egreso, Categories: []CategoryNode{
			{Name: "SEDE - Gastos Fijos", Subcategories: []string{"Alquiler", "Otros"}},
			{Name: "SEDE - Servicios", Subcategories: []string{"Fibercoop", "Aysa", "Edesur", "Otros"}},
			{Name: "TARJETAS", Subcategories: []string{"Visa", "Cabal"}},
			{Name: "OTROS EGRESOS", Subcategories: []string{"Gastos varios sede", "Goteros", "Entrevistas"}},
			{Name: "INSUMOS", Subcategories: []string{"Insumos para cultivo", "Insumos laboratorio"}},
			{Name: "EGRESOS DISPENSARIO", Subcategories: []string{"Costos dispensario"}},
			{Name: "EGRESOS CAPACITA", Subcategories: []string{"UMET", "UNPAZ"}},
			{Name: "EGRESOS ECOs", Subcategories: []string{"ECOs"}},
			{Name: "RRHH", Subcategories: []string{"Sueldos", "Honorarios", "Cargas sociales", "Otros"}},
		}},
		{Type: Ingreso, Categories: []CategoryNode{
			{Name: "INGRESOS POR TALLERES", Subcategories: []string{"Talleres", "Otros"}},
			{Name: "INGRESOS POR ECOs", Subcategories: []string{"ECOs", "Otros"}},
			{Name: "INGRESOS POR U.V", Subcategories: []string{
				"U.V.", "Link Donación 25K MP a entrega", "Link Donación 37K MP a entrega",
				"Link Donación OTROS MP a entrega", "Efectivo", "Otros",
			}},
			{Name: "INGRESOS POR CUOTA CLUB", Subcategories: []string{"Comunidad C.T", "Otros"}},
			{Name: "DONACIONES", Subcategories: []string{"Mensual", "Única vez", "Comunidad", "Otros"}},
			{Name: "DISPENSARIO", Subcategories: []string{"Ventas dispensario", "Goteros", "Otros"}},
			{Name: "ENTREVISTAS", Subcategories: []string{"Entrevistas"}},
			{Name: "INGRESOS POR VENTAS", Subcategories: []string{"Ventas sede", "Tienda Nube / Aportes Cope", "Otros"}},
			{Name: "CAPACITA/UNPAZ", Subcategories: []string{"UMET", "UNPAZ", "Guía de Acompañamiento", "Otros"}},
			{Name: "SEMAS", Subcategories: []string{"Semas", "Otros"}},
			{Name: "ACUERDOS", Subcategories: []string{"Acuerdos"}},
		}},
	})
	if err != nil {
		panic(err)
	}
	return t
}
