package metadata

import (
	"context"
	"errors"
)

// ErrNotFound is wrapped by repositories when a referenced entity, record,
// relationship or option does not exist.
var ErrNotFound = errors.New("not found")

// RecordRef identifies a repository record by its record type and id.
type RecordRef struct {
	Entity string `json:"entity"` // record type, e.g. "savedquery"
	ID     string `json:"id"`
}

// Record types whose names, descriptions or layout documents are written
// as plain records.
const (
	RecordView       = "savedquery"
	RecordChart      = "savedqueryvisualization"
	RecordForm       = "systemform"
	RecordSiteMap    = "sitemap"
	ColumnName       = "name"
	ColumnDesc       = "description"
	ColumnFormXML    = "formxml"
	ColumnSiteMapXML = "sitemapxml"
)

// OptionRef identifies one option value. OptionSet is set for global option
// sets; Entity and Attribute for local ones and booleans.
type OptionRef struct {
	Entity    string `json:"entity,omitempty"`
	Attribute string `json:"attribute,omitempty"`
	OptionSet string `json:"option_set,omitempty"`
	Value     int    `json:"value"`
}

// Repository is the metadata store being translated. Label writes have
// set-and-merge semantics: only the languages present in the update change.
//
// RetrieveForms and RetrieveDashboards return layouts rendered in the
// caller's active locale only; see Sweeper.
type Repository interface {
	Ping(ctx context.Context) error

	// Locale
	Languages(ctx context.Context) ([]int, error)
	BaseLanguage(ctx context.Context) (int, error)
	UserLanguage(ctx context.Context) (int, error)
	SetUserLanguage(ctx context.Context, language int) error

	// Reads
	EntityNames(ctx context.Context) ([]string, error)
	RetrieveEntity(ctx context.Context, logicalName string) (*Table, error)
	RetrieveGlobalOptionSets(ctx context.Context) ([]*OptionSet, error)
	RetrieveViews(ctx context.Context, entity string) ([]*View, error)
	RetrieveCharts(ctx context.Context, entity string) ([]*Chart, error)
	RetrieveForms(ctx context.Context, entity string) ([]*Form, error)
	RetrieveDashboards(ctx context.Context, ids []string) ([]*Form, error)
	RetrieveSiteMaps(ctx context.Context, ids []string) ([]*SiteMap, error)
	RetrieveLocLabels(ctx context.Context, ref RecordRef, column string) ([]Translation, error)
	RetrieveRecord(ctx context.Context, ref RecordRef, column string) (string, error)

	// Writes
	UpdateEntity(ctx context.Context, logicalName string, labels *LabelSet) error
	UpdateAttribute(ctx context.Context, entity, attribute string, labels *LabelSet) error
	UpdateRelationship(ctx context.Context, entity, id string, labels *LabelSet) error
	UpdateOptionValue(ctx context.Context, ref OptionRef, labels *LabelSet) error
	SetLocLabels(ctx context.Context, ref RecordRef, column string, translations []Translation) error
	UpdateRecord(ctx context.Context, ref RecordRef, column, value string) error
	PublishAll(ctx context.Context) error
}
