package metadata

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of entries each cache keeps.
const DefaultCacheSize = 1024

type locKey struct {
	ref    RecordRef
	column string
}

// CachedRepository keeps recently read entities, global option sets and
// localized labels in memory. Writes go straight through and evict the
// entries they touch. Cached values are cloned on the way out, so callers
// may mutate what they get.
type CachedRepository struct {
	Repository

	entities   *lru.Cache[string, *Table]
	optionSets *lru.Cache[string, []*OptionSet]
	locLabels  *lru.Cache[locKey, []Translation]
}

// NewCachedRepository wraps repo. size <= 0 uses DefaultCacheSize.
func NewCachedRepository(repo Repository, size int) (*CachedRepository, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entities, err := lru.New[string, *Table](size)
	if err != nil {
		return nil, fmt.Errorf("create entity cache: %w", err)
	}
	optionSets, err := lru.New[string, []*OptionSet](1)
	if err != nil {
		return nil, fmt.Errorf("create option set cache: %w", err)
	}
	locLabels, err := lru.New[locKey, []Translation](size)
	if err != nil {
		return nil, fmt.Errorf("create label cache: %w", err)
	}
	return &CachedRepository{
		Repository: repo,
		entities:   entities,
		optionSets: optionSets,
		locLabels:  locLabels,
	}, nil
}

func (c *CachedRepository) RetrieveEntity(ctx context.Context, logicalName string) (*Table, error) {
	if t, ok := c.entities.Get(logicalName); ok {
		return t.Clone(), nil
	}
	t, err := c.Repository.RetrieveEntity(ctx, logicalName)
	if err != nil {
		return nil, err
	}
	c.entities.Add(logicalName, t.Clone())
	return t, nil
}

func (c *CachedRepository) RetrieveGlobalOptionSets(ctx context.Context) ([]*OptionSet, error) {
	if sets, ok := c.optionSets.Get(""); ok {
		return cloneOptionSets(sets), nil
	}
	sets, err := c.Repository.RetrieveGlobalOptionSets(ctx)
	if err != nil {
		return nil, err
	}
	c.optionSets.Add("", cloneOptionSets(sets))
	return sets, nil
}

func (c *CachedRepository) RetrieveLocLabels(ctx context.Context, ref RecordRef, column string) ([]Translation, error) {
	key := locKey{ref: ref, column: column}
	if ts, ok := c.locLabels.Get(key); ok {
		return append([]Translation(nil), ts...), nil
	}
	ts, err := c.Repository.RetrieveLocLabels(ctx, ref, column)
	if err != nil {
		return nil, err
	}
	c.locLabels.Add(key, append([]Translation(nil), ts...))
	return ts, nil
}

func (c *CachedRepository) UpdateEntity(ctx context.Context, logicalName string, labels *LabelSet) error {
	c.entities.Remove(logicalName)
	return c.Repository.UpdateEntity(ctx, logicalName, labels)
}

func (c *CachedRepository) UpdateAttribute(ctx context.Context, entity, attribute string, labels *LabelSet) error {
	c.entities.Remove(entity)
	return c.Repository.UpdateAttribute(ctx, entity, attribute, labels)
}

func (c *CachedRepository) UpdateRelationship(ctx context.Context, entity, id string, labels *LabelSet) error {
	// Many-to-many menus live on both sides.
	c.entities.Purge()
	return c.Repository.UpdateRelationship(ctx, entity, id, labels)
}

func (c *CachedRepository) UpdateOptionValue(ctx context.Context, ref OptionRef, labels *LabelSet) error {
	if ref.OptionSet != "" {
		c.optionSets.Purge()
	} else {
		c.entities.Remove(ref.Entity)
	}
	return c.Repository.UpdateOptionValue(ctx, ref, labels)
}

func (c *CachedRepository) SetLocLabels(ctx context.Context, ref RecordRef, column string, translations []Translation) error {
	c.locLabels.Remove(locKey{ref: ref, column: column})
	return c.Repository.SetLocLabels(ctx, ref, column, translations)
}

// Purge drops every cached entry.
func (c *CachedRepository) Purge() {
	c.entities.Purge()
	c.optionSets.Purge()
	c.locLabels.Purge()
}

func cloneOptionSets(sets []*OptionSet) []*OptionSet {
	out := make([]*OptionSet, len(sets))
	for i, s := range sets {
		out[i] = s.Clone()
	}
	return out
}
