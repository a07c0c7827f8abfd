package metadata

import (
	"sort"
	"strings"
)

// Kind identifies a node variant. It doubles as the kind of an update target
// on import.
type Kind string

const (
	KindEntity           Kind = "entity"
	KindAttribute        Kind = "attribute"
	KindRelationship     Kind = "relationship"
	KindManyToMany       Kind = "relationship_nn"
	KindOption           Kind = "option"
	KindGlobalOption     Kind = "global_option"
	KindBoolean          Kind = "boolean"
	KindView             Kind = "view"
	KindChart            Kind = "chart"
	KindForm             Kind = "form"
	KindDashboard        Kind = "dashboard"
	KindFormTab          Kind = "form_tab"
	KindFormSection      Kind = "form_section"
	KindFormField        Kind = "form_field"
	KindDashboardTab     Kind = "dashboard_tab"
	KindDashboardSection Kind = "dashboard_section"
	KindDashboardField   Kind = "dashboard_field"
	KindSiteMapArea      Kind = "sitemap_area"
	KindSiteMapGroup     Kind = "sitemap_group"
	KindSiteMapSubArea   Kind = "sitemap_subarea"
)

// IsLayout reports whether targets of this kind live inside a layout
// document rather than in repository metadata.
func (k Kind) IsLayout() bool {
	switch k {
	case KindFormTab, KindFormSection, KindFormField,
		KindDashboardTab, KindDashboardSection, KindDashboardField,
		KindSiteMapArea, KindSiteMapGroup, KindSiteMapSubArea:
		return true
	}
	return false
}

// IsSiteMap reports whether the kind is a site map element.
func (k Kind) IsSiteMap() bool {
	return k == KindSiteMapArea || k == KindSiteMapGroup || k == KindSiteMapSubArea
}

// Node is implemented by every metadata variant.
type Node interface {
	NodeID() string
	NodeKind() Kind
	NodeLabels() *LabelSet
}

// RelationKind tags a relationship's cardinality.
type RelationKind string

const (
	OneToMany  RelationKind = "OneToMany"
	ManyToMany RelationKind = "ManyToMany"
)

// Table is an entity and everything it owns.
type Table struct {
	ID          string   `json:"id"`
	LogicalName string   `json:"logical_name"`
	Labels      LabelSet `json:"labels"` // DisplayName, DisplayCollectionName, Description

	Fields        []*Field        `json:"fields,omitempty"`
	Relationships []*Relationship `json:"relationships,omitempty"`
	Views         []*View         `json:"views,omitempty"`
	Charts        []*Chart        `json:"charts,omitempty"`
	Forms         []*Form         `json:"forms,omitempty"`
}

func (t *Table) NodeID() string        { return t.ID }
func (t *Table) NodeKind() Kind        { return KindEntity }
func (t *Table) NodeLabels() *LabelSet { return &t.Labels }

// DisplayLabel returns the table's display name in lang, falling back to the
// logical name.
func (t *Table) DisplayLabel(lang int) string {
	if s, ok := t.Labels.Get(DisplayName, lang); ok && s != "" {
		return s
	}
	return t.LogicalName
}

// Field returns the field with the given logical name, or nil.
func (t *Table) Field(logicalName string) *Field {
	for _, f := range t.Fields {
		if f.LogicalName == logicalName {
			return f
		}
	}
	return nil
}

// Field is an attribute of a table.
type Field struct {
	ID            string   `json:"id"`
	Entity        string   `json:"entity"`
	LogicalName   string   `json:"logical_name"`
	AttributeType string   `json:"attribute_type"`
	Labels        LabelSet `json:"labels"` // DisplayName, Description

	// Local option set values and boolean options.
	Options []*OptionEntry `json:"options,omitempty"`
	// OptionSetName names the global option set the field is bound to, if any.
	OptionSetName string `json:"option_set_name,omitempty"`
}

func (f *Field) NodeID() string        { return f.ID }
func (f *Field) NodeKind() Kind        { return KindAttribute }
func (f *Field) NodeLabels() *LabelSet { return &f.Labels }

// IsBoolean reports whether the field is a two-option field.
func (f *Field) IsBoolean() bool {
	return strings.EqualFold(f.AttributeType, "Boolean")
}

// IsGlobal reports whether the field's options come from a global set.
func (f *Field) IsGlobal() bool {
	return f.OptionSetName != ""
}

// OptionEntry is one value of an option set.
type OptionEntry struct {
	Value  int      `json:"value"`
	Labels LabelSet `json:"labels"` // Label, Description
}

func (o *OptionEntry) NodeID() string        { return itoa(o.Value) }
func (o *OptionEntry) NodeKind() Kind        { return KindOption }
func (o *OptionEntry) NodeLabels() *LabelSet { return &o.Labels }

// OptionSet is a global option set.
type OptionSet struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Type    string         `json:"type"` // Picklist, MultiSelectPicklist, ...
	Labels  LabelSet       `json:"labels"`
	Options []*OptionEntry `json:"options,omitempty"`
}

func (o *OptionSet) NodeID() string        { return o.ID }
func (o *OptionSet) NodeKind() Kind        { return KindGlobalOption }
func (o *OptionSet) NodeLabels() *LabelSet { return &o.Labels }

// Option returns the entry with the given value, or nil.
func (o *OptionSet) Option(value int) *OptionEntry {
	return findOption(o.Options, value)
}

func findOption(opts []*OptionEntry, value int) *OptionEntry {
	for _, e := range opts {
		if e.Value == value {
			return e
		}
	}
	return nil
}

// Relationship is the associated-menu label of a relationship as seen from
// Entity. A many-to-many relationship yields one node per side.
type Relationship struct {
	ID              string       `json:"id"`
	SchemaName      string       `json:"schema_name"`
	Kind            RelationKind `json:"kind"`
	Entity          string       `json:"entity"`
	RelatedEntity   string       `json:"related_entity,omitempty"`
	IntersectEntity string       `json:"intersect_entity,omitempty"`
	Labels          LabelSet     `json:"labels"` // Label
}

func (r *Relationship) NodeID() string { return r.ID }
func (r *Relationship) NodeKind() Kind {
	if r.Kind == ManyToMany {
		return KindManyToMany
	}
	return KindRelationship
}
func (r *Relationship) NodeLabels() *LabelSet { return &r.Labels }

// View is a saved query.
type View struct {
	ID        string   `json:"id"`
	Entity    string   `json:"entity"`
	Name      string   `json:"name"`
	QueryType int      `json:"query_type"`
	Labels    LabelSet `json:"labels"` // DisplayName, Description
}

func (v *View) NodeID() string        { return v.ID }
func (v *View) NodeKind() Kind        { return KindView }
func (v *View) NodeLabels() *LabelSet { return &v.Labels }

// ViewTypeName renders a query type for the Views sheet.
func ViewTypeName(queryType int) string {
	switch queryType {
	case 0:
		return "Public View"
	case 1:
		return "Advanced Find View"
	case 2:
		return "Associated View"
	case 4:
		return "Quick Find View"
	case 64:
		return "Lookup View"
	default:
		return "Other View (" + itoa(queryType) + ")"
	}
}

// Chart is a saved visualization.
type Chart struct {
	ID     string   `json:"id"`
	Entity string   `json:"entity"`
	Name   string   `json:"name"`
	Labels LabelSet `json:"labels"` // DisplayName, Description
}

func (c *Chart) NodeID() string        { return c.ID }
func (c *Chart) NodeKind() Kind        { return KindChart }
func (c *Chart) NodeLabels() *LabelSet { return &c.Labels }

// Form is a form or dashboard together with its layout document. Language
// records which locale produced XML and the fragment context columns; Base
// is set when that locale is the repository's base language.
type Form struct {
	ID        string   `json:"id"`
	UniqueID  string   `json:"unique_id"`
	Entity    string   `json:"entity,omitempty"` // empty for dashboards
	Name      string   `json:"name"`
	FormType  string   `json:"form_type,omitempty"`
	Dashboard bool     `json:"dashboard,omitempty"`
	Labels    LabelSet `json:"labels"` // DisplayName, Description
	XML       string   `json:"xml"`
	Language  int      `json:"language,omitempty"`
	Base      bool     `json:"base,omitempty"`

	Tabs     []*LayoutFragment `json:"-"`
	Sections []*LayoutFragment `json:"-"`
	Cells    []*LayoutFragment `json:"-"`
}

func (f *Form) NodeID() string { return f.ID }
func (f *Form) NodeKind() Kind {
	if f.Dashboard {
		return KindDashboard
	}
	return KindForm
}
func (f *Form) NodeLabels() *LabelSet { return &f.Labels }

// Fragments returns the fragment list for a layout kind.
func (f *Form) Fragments(kind Kind) *[]*LayoutFragment {
	switch kind {
	case KindFormTab, KindDashboardTab:
		return &f.Tabs
	case KindFormSection, KindDashboardSection:
		return &f.Sections
	default:
		return &f.Cells
	}
}

// LayoutFragment is a tab, section or field caption inside a form layout.
type LayoutFragment struct {
	Kind        Kind     `json:"kind"`
	ID          string   `json:"id"`
	Name        string   `json:"name,omitempty"`
	FormID      string   `json:"form_id"`
	Entity      string   `json:"entity,omitempty"`
	FormName    string   `json:"form_name,omitempty"`
	TabName     string   `json:"tab_name,omitempty"`
	SectionName string   `json:"section_name,omitempty"`
	Attribute   string   `json:"attribute,omitempty"`
	Labels      LabelSet `json:"labels"` // Label
}

func (l *LayoutFragment) NodeID() string        { return l.ID }
func (l *LayoutFragment) NodeKind() Kind        { return l.Kind }
func (l *LayoutFragment) NodeLabels() *LabelSet { return &l.Labels }

// SiteMap is a navigation document.
type SiteMap struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	XML  string `json:"xml"`

	Areas    []*SiteMapElement `json:"-"`
	Groups   []*SiteMapElement `json:"-"`
	SubAreas []*SiteMapElement `json:"-"`
}

// Elements returns the element list for a site map kind.
func (s *SiteMap) Elements(kind Kind) *[]*SiteMapElement {
	switch kind {
	case KindSiteMapArea:
		return &s.Areas
	case KindSiteMapGroup:
		return &s.Groups
	default:
		return &s.SubAreas
	}
}

// SiteMapElement is an Area, Group or SubArea of a site map.
type SiteMapElement struct {
	Kind    Kind     `json:"kind"`
	ID      string   `json:"id"`
	AreaID  string   `json:"area_id,omitempty"`
	GroupID string   `json:"group_id,omitempty"`
	Labels  LabelSet `json:"labels"` // Title, Description
}

func (s *SiteMapElement) NodeID() string        { return s.ID }
func (s *SiteMapElement) NodeKind() Kind        { return s.Kind }
func (s *SiteMapElement) NodeLabels() *LabelSet { return &s.Labels }

// Selection scopes an export. Empty slices select everything of that kind.
// Dashboards and site maps are referenced by id only.
type Selection struct {
	Entities   []string `json:"entities,omitempty" yaml:"entities"`
	Dashboards []string `json:"dashboards,omitempty" yaml:"dashboards"`
	SiteMaps   []string `json:"sitemaps,omitempty" yaml:"sitemaps"`
}

// Tree is the result of a build.
type Tree struct {
	BaseLanguage     int
	Languages        []int
	Tables           []*Table
	GlobalOptionSets []*OptionSet
	Dashboards       []*Form
	SiteMaps         []*SiteMap
}

// Table returns the table with the given logical name, or nil.
func (t *Tree) Table(logicalName string) *Table {
	for _, tbl := range t.Tables {
		if tbl.LogicalName == logicalName {
			return tbl
		}
	}
	return nil
}

// SortTables orders tables by their base-language display label, then by
// logical name.
func (t *Tree) SortTables() {
	base := t.BaseLanguage
	sort.SliceStable(t.Tables, func(i, j int) bool {
		a := strings.ToLower(t.Tables[i].DisplayLabel(base))
		b := strings.ToLower(t.Tables[j].DisplayLabel(base))
		if a != b {
			return a < b
		}
		return t.Tables[i].LogicalName < t.Tables[j].LogicalName
	})
}
