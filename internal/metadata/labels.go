package metadata

import (
	"encoding/json"
	"sort"
)

// Label qualifiers used across the repository.
const (
	DisplayName           = "DisplayName"
	DisplayCollectionName = "DisplayCollectionName"
	Description           = "Description"
	Label                 = "Label"
	Title                 = "Title"
)

// Translation is one language's text for a qualifier.
type Translation struct {
	Language int    `json:"language"`
	Text     string `json:"text"`
}

type qualifierEntry struct {
	Qualifier    string        `json:"qualifier"`
	Translations []Translation `json:"translations"`
}

// LabelSet maps qualifiers to per-language text. Qualifiers and the
// translations within each keep their insertion order; each language appears
// at most once per qualifier.
//
// The zero value is an empty set ready to use.
type LabelSet struct {
	entries []qualifierEntry
}

// NewLabelSet returns an empty label set.
func NewLabelSet() *LabelSet {
	return &LabelSet{}
}

func (l *LabelSet) index(qualifier string) int {
	for i := range l.entries {
		if l.entries[i].Qualifier == qualifier {
			return i
		}
	}
	return -1
}

// Set stores text for a language, replacing any existing entry for it.
func (l *LabelSet) Set(qualifier string, language int, text string) {
	i := l.index(qualifier)
	if i < 0 {
		l.entries = append(l.entries, qualifierEntry{Qualifier: qualifier})
		i = len(l.entries) - 1
	}
	ts := l.entries[i].Translations
	for j := range ts {
		if ts[j].Language == language {
			ts[j].Text = text
			return
		}
	}
	l.entries[i].Translations = append(ts, Translation{Language: language, Text: text})
}

// SetAll stores every translation under qualifier.
func (l *LabelSet) SetAll(qualifier string, ts []Translation) {
	for _, t := range ts {
		l.Set(qualifier, t.Language, t.Text)
	}
}

// Get returns the text for a language and whether it was present.
func (l *LabelSet) Get(qualifier string, language int) (string, bool) {
	if l == nil {
		return "", false
	}
	i := l.index(qualifier)
	if i < 0 {
		return "", false
	}
	for _, t := range l.entries[i].Translations {
		if t.Language == language {
			return t.Text, true
		}
	}
	return "", false
}

// Has reports whether the qualifier exists, even with no translations.
func (l *LabelSet) Has(qualifier string) bool {
	return l != nil && l.index(qualifier) >= 0
}

// Ensure registers a qualifier without translations so it still gets a
// row on export.
func (l *LabelSet) Ensure(qualifier string) {
	if l.index(qualifier) < 0 {
		l.entries = append(l.entries, qualifierEntry{Qualifier: qualifier})
	}
}

// Qualifiers returns qualifier names in insertion order.
func (l *LabelSet) Qualifiers() []string {
	if l == nil {
		return nil
	}
	out := make([]string, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.Qualifier
	}
	return out
}

// Translations returns a copy of a qualifier's translations in insertion order.
func (l *LabelSet) Translations(qualifier string) []Translation {
	if l == nil {
		return nil
	}
	i := l.index(qualifier)
	if i < 0 {
		return nil
	}
	return append([]Translation(nil), l.entries[i].Translations...)
}

// Sorted returns a qualifier's translations ordered by language code.
func (l *LabelSet) Sorted(qualifier string) []Translation {
	ts := l.Translations(qualifier)
	sort.Slice(ts, func(i, j int) bool { return ts[i].Language < ts[j].Language })
	return ts
}

// Languages returns the distinct languages used by a qualifier.
func (l *LabelSet) Languages(qualifier string) []int {
	ts := l.Translations(qualifier)
	out := make([]int, len(ts))
	for i, t := range ts {
		out[i] = t.Language
	}
	return out
}

// Merge copies every translation from other into l. Existing languages are
// updated, new ones appended; nothing already in l is removed.
func (l *LabelSet) Merge(other *LabelSet) {
	if other == nil {
		return
	}
	for _, e := range other.entries {
		l.Ensure(e.Qualifier)
		l.SetAll(e.Qualifier, e.Translations)
	}
}

// Remove deletes a language from a qualifier. The qualifier is dropped when
// it becomes empty.
func (l *LabelSet) Remove(qualifier string, language int) {
	i := l.index(qualifier)
	if i < 0 {
		return
	}
	ts := l.entries[i].Translations
	for j := range ts {
		if ts[j].Language == language {
			l.entries[i].Translations = append(ts[:j:j], ts[j+1:]...)
			break
		}
	}
	if len(l.entries[i].Translations) == 0 {
		l.entries = append(l.entries[:i:i], l.entries[i+1:]...)
	}
}

// Len returns the number of qualifiers.
func (l *LabelSet) Len() int {
	if l == nil {
		return 0
	}
	return len(l.entries)
}

// IsEmpty reports whether no qualifier carries any translation.
func (l *LabelSet) IsEmpty() bool {
	if l == nil {
		return true
	}
	for _, e := range l.entries {
		if len(e.Translations) > 0 {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (l *LabelSet) Clone() *LabelSet {
	if l == nil {
		return nil
	}
	c := &LabelSet{entries: make([]qualifierEntry, len(l.entries))}
	for i, e := range l.entries {
		c.entries[i] = qualifierEntry{
			Qualifier:    e.Qualifier,
			Translations: append([]Translation(nil), e.Translations...),
		}
	}
	return c
}

// MarshalJSON encodes the set as an ordered list so insertion order survives.
func (l LabelSet) MarshalJSON() ([]byte, error) {
	if l.entries == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l.entries)
}

// UnmarshalJSON decodes a list produced by MarshalJSON.
func (l *LabelSet) UnmarshalJSON(data []byte) error {
	var entries []qualifierEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	l.entries = nil
	for _, e := range entries {
		l.Ensure(e.Qualifier)
		l.SetAll(e.Qualifier, e.Translations)
	}
	return nil
}
