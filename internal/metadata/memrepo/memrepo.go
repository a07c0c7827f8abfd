// Package memrepo is an in-process metadata repository backed by a JSON
// document. It behaves like the hosted repository where it matters for
// translation: label writes merge per language, and form and dashboard
// layouts are served in the caller's active locale only.
package memrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"
	"strconv"
	"sync"

	"github.com/beevik/etree"

	"github.com/JonMunkholm/labelbook/internal/metadata"
)

// ErrNotFound is returned for unknown entities, records and options.
var ErrNotFound = metadata.ErrNotFound

// FormRecord is a stored form or dashboard. XML carries captions in every
// language; Labels holds the localized name and description.
type FormRecord struct {
	ID        string            `json:"id"`
	UniqueID  string            `json:"unique_id"`
	Entity    string            `json:"entity,omitempty"`
	FormType  string            `json:"form_type,omitempty"`
	Dashboard bool              `json:"dashboard,omitempty"`
	Labels    metadata.LabelSet `json:"labels"`
	XML       string            `json:"xml"`
}

// Data is the persisted state of a repository.
type Data struct {
	BaseLanguage int                   `json:"base_language"`
	UserLanguage int                   `json:"user_language"`
	Languages    []int                 `json:"languages"`
	Entities     []*metadata.Table     `json:"entities"`
	OptionSets   []*metadata.OptionSet `json:"option_sets,omitempty"`
	Views        []*metadata.View      `json:"views,omitempty"`
	Charts       []*metadata.Chart     `json:"charts,omitempty"`
	Forms        []*FormRecord         `json:"forms,omitempty"`
	SiteMaps     []*metadata.SiteMap   `json:"sitemaps,omitempty"`
}

// Stats counts calls that tests and the CLI care about.
type Stats struct {
	LabelUpdates   int
	RecordUpdates  int
	Publishes      int
	LocaleSwitches int
}

// Repository implements metadata.Repository over Data.
type Repository struct {
	mu       sync.RWMutex
	data     *Data
	stats    Stats
	failures map[string]error
	offline  bool
}

var _ metadata.Repository = (*Repository)(nil)

// New returns a repository over data. A zero user language defaults to the
// base language.
func New(data *Data) *Repository {
	if data.UserLanguage == 0 {
		data.UserLanguage = data.BaseLanguage
	}
	return &Repository{data: data, failures: make(map[string]error)}
}

// Load reads a repository from a JSON file.
func Load(path string) (*Repository, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read repository file: %w", err)
	}
	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode repository file: %w", err)
	}
	return New(&data), nil
}

// Save writes the repository to a JSON file.
func (r *Repository) Save(path string) error {
	r.mu.RLock()
	raw, err := json.MarshalIndent(r.data, "", "  ")
	r.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode repository: %w", err)
	}
	return os.WriteFile(path, raw, 0o644)
}

// Stats returns call counters.
func (r *Repository) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stats
}

// FailOn makes the operation op fail with err for target. An empty target
// matches every call to op.
func (r *Repository) FailOn(op, target string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[op+"|"+target] = err
}

// SetOffline makes Ping fail.
func (r *Repository) SetOffline(offline bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.offline = offline
}

func (r *Repository) fail(op, target string) error {
	if err, ok := r.failures[op+"|"+target]; ok {
		return err
	}
	if err, ok := r.failures[op+"|"]; ok {
		return err
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.offline {
		return errors.New("repository offline")
	}
	return ctx.Err()
}

func (r *Repository) Languages(ctx context.Context) ([]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.data.Languages), nil
}

func (r *Repository) BaseLanguage(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.data.BaseLanguage, nil
}

func (r *Repository) UserLanguage(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.data.UserLanguage, nil
}

func (r *Repository) SetUserLanguage(ctx context.Context, language int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("SetUserLanguage", strconv.Itoa(language)); err != nil {
		return err
	}
	if language != r.data.BaseLanguage && !slices.Contains(r.data.Languages, language) {
		return fmt.Errorf("language %d is not provisioned", language)
	}
	r.data.UserLanguage = language
	r.stats.LocaleSwitches++
	return nil
}

func (r *Repository) EntityNames(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.data.Entities))
	for i, t := range r.data.Entities {
		names[i] = t.LogicalName
	}
	return names, nil
}

func (r *Repository) table(name string) *metadata.Table {
	for _, t := range r.data.Entities {
		if t.LogicalName == name {
			return t
		}
	}
	return nil
}

func (r *Repository) RetrieveEntity(ctx context.Context, logicalName string) (*metadata.Table, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.fail("RetrieveEntity", logicalName); err != nil {
		return nil, err
	}
	t := r.table(logicalName)
	if t == nil {
		return nil, fmt.Errorf("entity %s: %w", logicalName, ErrNotFound)
	}
	c := t.Clone()
	c.Views, c.Charts, c.Forms = nil, nil, nil
	return c, nil
}

func (r *Repository) RetrieveGlobalOptionSets(ctx context.Context) ([]*metadata.OptionSet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.fail("RetrieveGlobalOptionSets", ""); err != nil {
		return nil, err
	}
	out := make([]*metadata.OptionSet, len(r.data.OptionSets))
	for i, s := range r.data.OptionSets {
		out[i] = s.Clone()
	}
	return out, nil
}

// activeText returns a qualifier's text in the active locale, falling back to
// the base language.
func (r *Repository) activeText(set *metadata.LabelSet, qualifier string) string {
	if s, ok := set.Get(qualifier, r.data.UserLanguage); ok {
		return s
	}
	s, _ := set.Get(qualifier, r.data.BaseLanguage)
	return s
}

func (r *Repository) RetrieveViews(ctx context.Context, entity string) ([]*metadata.View, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.fail("RetrieveViews", entity); err != nil {
		return nil, err
	}
	var out []*metadata.View
	for _, v := range r.data.Views {
		if v.Entity == entity {
			out = append(out, &metadata.View{
				ID:        v.ID,
				Entity:    v.Entity,
				Name:      r.activeText(&v.Labels, metadata.DisplayName),
				QueryType: v.QueryType,
			})
		}
	}
	return out, nil
}

func (r *Repository) RetrieveCharts(ctx context.Context, entity string) ([]*metadata.Chart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.fail("RetrieveCharts", entity); err != nil {
		return nil, err
	}
	var out []*metadata.Chart
	for _, c := range r.data.Charts {
		if c.Entity == entity {
			out = append(out, &metadata.Chart{
				ID:     c.ID,
				Entity: c.Entity,
				Name:   r.activeText(&c.Labels, metadata.DisplayName),
			})
		}
	}
	return out, nil
}

func (r *Repository) RetrieveForms(ctx context.Context, entity string) ([]*metadata.Form, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.fail("RetrieveForms", entity+"@"+strconv.Itoa(r.data.UserLanguage)); err != nil {
		return nil, err
	}
	var out []*metadata.Form
	for _, f := range r.data.Forms {
		if f.Dashboard || f.Entity != entity {
			continue
		}
		form, err := r.localizedForm(f)
		if err != nil {
			return nil, err
		}
		out = append(out, form)
	}
	return out, nil
}

func (r *Repository) RetrieveDashboards(ctx context.Context, ids []string) ([]*metadata.Form, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.fail("RetrieveDashboards", strconv.Itoa(r.data.UserLanguage)); err != nil {
		return nil, err
	}
	var out []*metadata.Form
	for _, f := range r.data.Forms {
		if !f.Dashboard || (len(ids) > 0 && !slices.Contains(ids, f.ID)) {
			continue
		}
		form, err := r.localizedForm(f)
		if err != nil {
			return nil, err
		}
		out = append(out, form)
	}
	return out, nil
}

// localizedForm renders a stored form the way the hosted repository serves
// it: captions and name in the active locale only.
func (r *Repository) localizedForm(f *FormRecord) (*metadata.Form, error) {
	doc, err := localizeLayout(f.XML, r.data.UserLanguage)
	if err != nil {
		return nil, fmt.Errorf("form %s: %w", f.ID, err)
	}
	return &metadata.Form{
		ID:        f.ID,
		UniqueID:  f.UniqueID,
		Entity:    f.Entity,
		Name:      r.activeText(&f.Labels, metadata.DisplayName),
		FormType:  f.FormType,
		Dashboard: f.Dashboard,
		XML:       doc,
	}, nil
}

// localizeLayout drops every caption not in lang.
func localizeLayout(doc string, lang int) (string, error) {
	if doc == "" {
		return "", nil
	}
	d := etree.NewDocument()
	if err := d.ReadFromString(doc); err != nil {
		return "", err
	}
	code := strconv.Itoa(lang)
	for _, labels := range d.FindElements("//labels") {
		for _, label := range labels.SelectElements("label") {
			if label.SelectAttrValue("languagecode", "") != code {
				labels.RemoveChild(label)
			}
		}
	}
	return d.WriteToString()
}

func (r *Repository) RetrieveSiteMaps(ctx context.Context, ids []string) ([]*metadata.SiteMap, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.fail("RetrieveSiteMaps", ""); err != nil {
		return nil, err
	}
	var out []*metadata.SiteMap
	for _, sm := range r.data.SiteMaps {
		if len(ids) > 0 && !slices.Contains(ids, sm.ID) {
			continue
		}
		out = append(out, &metadata.SiteMap{ID: sm.ID, Name: sm.Name, XML: sm.XML})
	}
	return out, nil
}

// labelsFor returns the label set and qualifier backing a record column.
func (r *Repository) labelsFor(ref metadata.RecordRef, column string) (*metadata.LabelSet, string, error) {
	qualifier := metadata.DisplayName
	switch column {
	case metadata.ColumnName:
	case metadata.ColumnDesc:
		qualifier = metadata.Description
	default:
		return nil, "", fmt.Errorf("column %s has no localized labels", column)
	}

	switch ref.Entity {
	case metadata.RecordView:
		for _, v := range r.data.Views {
			if v.ID == ref.ID {
				return &v.Labels, qualifier, nil
			}
		}
	case metadata.RecordChart:
		for _, c := range r.data.Charts {
			if c.ID == ref.ID {
				return &c.Labels, qualifier, nil
			}
		}
	case metadata.RecordForm:
		for _, f := range r.data.Forms {
			if f.ID == ref.ID {
				return &f.Labels, qualifier, nil
			}
		}
	}
	return nil, "", fmt.Errorf("%s %s: %w", ref.Entity, ref.ID, ErrNotFound)
}

func (r *Repository) RetrieveLocLabels(ctx context.Context, ref metadata.RecordRef, column string) ([]metadata.Translation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.fail("RetrieveLocLabels", ref.ID); err != nil {
		return nil, err
	}
	set, qualifier, err := r.labelsFor(ref, column)
	if err != nil {
		return nil, err
	}
	return set.Translations(qualifier), nil
}

func (r *Repository) RetrieveRecord(ctx context.Context, ref metadata.RecordRef, column string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.fail("RetrieveRecord", ref.ID); err != nil {
		return "", err
	}
	switch {
	case ref.Entity == metadata.RecordForm && column == metadata.ColumnFormXML:
		for _, f := range r.data.Forms {
			if f.ID == ref.ID {
				return f.XML, nil
			}
		}
	case ref.Entity == metadata.RecordSiteMap && column == metadata.ColumnSiteMapXML:
		for _, sm := range r.data.SiteMaps {
			if sm.ID == ref.ID {
				return sm.XML, nil
			}
		}
	default:
		return "", fmt.Errorf("unsupported column %s.%s", ref.Entity, column)
	}
	return "", fmt.Errorf("%s %s: %w", ref.Entity, ref.ID, ErrNotFound)
}

func (r *Repository) UpdateEntity(ctx context.Context, logicalName string, labels *metadata.LabelSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("UpdateEntity", logicalName); err != nil {
		return err
	}
	t := r.table(logicalName)
	if t == nil {
		return fmt.Errorf("entity %s: %w", logicalName, ErrNotFound)
	}
	t.Labels.Merge(labels)
	r.stats.LabelUpdates++
	return nil
}

func (r *Repository) UpdateAttribute(ctx context.Context, entity, attribute string, labels *metadata.LabelSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("UpdateAttribute", entity+"."+attribute); err != nil {
		return err
	}
	t := r.table(entity)
	if t == nil {
		return fmt.Errorf("entity %s: %w", entity, ErrNotFound)
	}
	f := t.Field(attribute)
	if f == nil {
		return fmt.Errorf("attribute %s.%s: %w", entity, attribute, ErrNotFound)
	}
	f.Labels.Merge(labels)
	r.stats.LabelUpdates++
	return nil
}

func (r *Repository) UpdateRelationship(ctx context.Context, entity, id string, labels *metadata.LabelSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("UpdateRelationship", id); err != nil {
		return err
	}
	t := r.table(entity)
	if t == nil {
		return fmt.Errorf("entity %s: %w", entity, ErrNotFound)
	}
	for _, rel := range t.Relationships {
		if rel.ID == id {
			rel.Labels.Merge(labels)
			r.stats.LabelUpdates++
			return nil
		}
	}
	return fmt.Errorf("relationship %s on %s: %w", id, entity, ErrNotFound)
}

func (r *Repository) UpdateOptionValue(ctx context.Context, ref metadata.OptionRef, labels *metadata.LabelSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("UpdateOptionValue", strconv.Itoa(ref.Value)); err != nil {
		return err
	}

	var opts []*metadata.OptionEntry
	if ref.OptionSet != "" {
		for _, s := range r.data.OptionSets {
			if s.Name == ref.OptionSet {
				opts = s.Options
			}
		}
	} else if t := r.table(ref.Entity); t != nil {
		if f := t.Field(ref.Attribute); f != nil {
			opts = f.Options
		}
	}
	for _, o := range opts {
		if o.Value == ref.Value {
			o.Labels.Merge(labels)
			r.stats.LabelUpdates++
			return nil
		}
	}
	return fmt.Errorf("option %+v: %w", ref, ErrNotFound)
}

func (r *Repository) SetLocLabels(ctx context.Context, ref metadata.RecordRef, column string, translations []metadata.Translation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("SetLocLabels", ref.ID); err != nil {
		return err
	}
	set, qualifier, err := r.labelsFor(ref, column)
	if err != nil {
		return err
	}
	set.SetAll(qualifier, translations)
	r.stats.LabelUpdates++
	return nil
}

func (r *Repository) UpdateRecord(ctx context.Context, ref metadata.RecordRef, column, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("UpdateRecord", ref.ID); err != nil {
		return err
	}
	switch {
	case ref.Entity == metadata.RecordForm && column == metadata.ColumnFormXML:
		for _, f := range r.data.Forms {
			if f.ID == ref.ID {
				f.XML = value
				r.stats.RecordUpdates++
				return nil
			}
		}
	case ref.Entity == metadata.RecordSiteMap && column == metadata.ColumnSiteMapXML:
		for _, sm := range r.data.SiteMaps {
			if sm.ID == ref.ID {
				sm.XML = value
				r.stats.RecordUpdates++
				return nil
			}
		}
	default:
		return fmt.Errorf("unsupported column %s.%s", ref.Entity, column)
	}
	return fmt.Errorf("%s %s: %w", ref.Entity, ref.ID, ErrNotFound)
}

func (r *Repository) PublishAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("PublishAll", ""); err != nil {
		return err
	}
	r.stats.Publishes++
	return nil
}

// FormXML returns the stored layout of a form or dashboard.
func (r *Repository) FormXML(id string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, f := range r.data.Forms {
		if f.ID == id {
			return f.XML
		}
	}
	return ""
}

// Entity returns a copy of a stored table.
func (r *Repository) Entity(name string) *metadata.Table {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.table(name).Clone()
}

// SortedLanguages returns base plus provisioned languages in ascending order.
func (r *Repository) SortedLanguages() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	langs := slices.Clone(r.data.Languages)
	if !slices.Contains(langs, r.data.BaseLanguage) {
		langs = append(langs, r.data.BaseLanguage)
	}
	sort.Ints(langs)
	return langs
}
