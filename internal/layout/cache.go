package layout

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/labelbook/internal/failure"
	"github.com/JonMunkholm/labelbook/internal/metadata"
)

// DocKind is the record type that owns a layout document.
type DocKind string

const (
	DocForm    DocKind = "form" // forms and dashboards
	DocSiteMap DocKind = "sitemap"
)

// DocKey identifies a cached document.
type DocKey struct {
	Kind DocKind
	ID   string
}

// Ref returns the repository record and column holding the document.
func (k DocKey) Ref() (metadata.RecordRef, string) {
	if k.Kind == DocSiteMap {
		return metadata.RecordRef{Entity: metadata.RecordSiteMap, ID: k.ID}, metadata.ColumnSiteMapXML
	}
	return metadata.RecordRef{Entity: metadata.RecordForm, ID: k.ID}, metadata.ColumnFormXML
}

// DocKeyFor returns the document key owning a layout target kind.
func DocKeyFor(kind metadata.Kind, id string) DocKey {
	if kind.IsSiteMap() {
		return DocKey{Kind: DocSiteMap, ID: metadata.NormalizeID(id)}
	}
	return DocKey{Kind: DocForm, ID: metadata.NormalizeID(id)}
}

// FetchFunc loads a document's current text.
type FetchFunc func(ctx context.Context, key DocKey) (string, error)

// WriteFunc stores a document's final text.
type WriteFunc func(ctx context.Context, key DocKey, text string) error

type cacheEntry struct {
	original string
	text     string
	err      error // fetch error, replayed to later patches
	flushed  bool
}

// DocumentCache holds layout documents for one import run. Documents are
// fetched on first use, patched in place across rows and written once by
// Flush. It is not safe for concurrent use.
type DocumentCache struct {
	fetch   FetchFunc
	entries map[DocKey]*cacheEntry
	order   []DocKey
}

// NewDocumentCache creates an empty cache.
func NewDocumentCache(fetch FetchFunc) *DocumentCache {
	return &DocumentCache{fetch: fetch, entries: make(map[DocKey]*cacheEntry)}
}

// RepositoryFetch reads documents through the repository's generic record
// read.
func RepositoryFetch(repo metadata.Repository) FetchFunc {
	return func(ctx context.Context, key DocKey) (string, error) {
		ref, column := key.Ref()
		return repo.RetrieveRecord(ctx, ref, column)
	}
}

// RepositoryWrite writes documents through the repository's generic record
// update.
func RepositoryWrite(repo metadata.Repository) WriteFunc {
	return func(ctx context.Context, key DocKey, text string) error {
		ref, column := key.Ref()
		return repo.UpdateRecord(ctx, ref, column, text)
	}
}

func (c *DocumentCache) entry(ctx context.Context, key DocKey) (*cacheEntry, error) {
	if e, ok := c.entries[key]; ok {
		return e, e.err
	}
	text, err := c.fetch(ctx, key)
	e := &cacheEntry{original: text, text: text}
	if err != nil {
		e.err = failure.Fetch("retrieve layout", fmt.Sprintf("%s %s", key.Kind, key.ID), err)
	}
	c.entries[key] = e
	c.order = append(c.order, key)
	return e, e.err
}

// Text returns the current text of a document, fetching it if needed.
func (c *DocumentCache) Text(ctx context.Context, key DocKey) (string, error) {
	e, err := c.entry(ctx, key)
	if err != nil {
		return "", err
	}
	return e.text, nil
}

// Patch applies one caption edit to a document. The entry's text is
// replaced with the serialized result immediately, so the next patch to the
// same document starts from it. A missing element is ReferenceNotFound and
// leaves the document unchanged.
func (c *DocumentCache) Patch(ctx context.Context, key DocKey, t Target, translations []metadata.Translation) (bool, error) {
	e, err := c.entry(ctx, key)
	if err != nil {
		return false, err
	}
	if e.flushed {
		return false, fmt.Errorf("document %s %s already flushed", key.Kind, key.ID)
	}

	out, changed, err := Patch(e.text, t, translations)
	switch {
	case errors.Is(err, ErrElementNotFound):
		return false, failure.New(failure.ReferenceNotFound, "locate layout element", t.String(), err)
	case err != nil:
		return false, failure.Parse("patch layout", fmt.Sprintf("%s %s", key.Kind, key.ID), err)
	}
	e.text = out
	return changed, nil
}

// Len returns the number of cached documents.
func (c *DocumentCache) Len() int {
	return len(c.entries)
}

// Dirty returns keys of documents whose text differs from what was fetched,
// in first-use order.
func (c *DocumentCache) Dirty() []DocKey {
	var keys []DocKey
	for _, k := range c.order {
		e := c.entries[k]
		if e.err == nil && !e.flushed && e.text != e.original {
			keys = append(keys, k)
		}
	}
	return keys
}

// FlushResult reports the outcome of one document write.
type FlushResult struct {
	Key DocKey
	Err error
}

// Flush writes every changed document exactly once, in first-use order. A
// failed write does not stop the others. Flushed entries are never written
// again.
func (c *DocumentCache) Flush(ctx context.Context, write WriteFunc) []FlushResult {
	var results []FlushResult
	for _, key := range c.Dirty() {
		e := c.entries[key]
		e.flushed = true
		var err error
		if werr := write(ctx, key, e.text); werr != nil {
			err = failure.Update("write layout", fmt.Sprintf("%s %s", key.Kind, key.ID), werr)
		}
		results = append(results, FlushResult{Key: key, Err: err})
	}
	return results
}
