package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/JonMunkholm/labelbook/internal/metadata"
)

var (
	registry   = make(map[string]SheetDefinition)
	registryMu sync.RWMutex
)

// TypeColumn is the identity column naming a row's qualifier.
const TypeColumn = "Type"

// SheetInfo describes one workbook sheet.
type SheetInfo struct {
	Key     string   // Unique identifier: "local_optionsets"
	Group   string   // Export switch: "entities", "optionsets", "forms", "dashboards", "sitemaps"
	Name    string   // Sheet name: "Local OptionSets"
	Aliases []string // Other sheet names accepted on import
	Order   int      // Position in exported workbooks

	// Columns are the identity headers, in order, before the language block.
	// When the last one is TypeColumn each entry is written once per
	// qualifier; otherwise every row carries FixedQualifier.
	Columns        []string
	Qualifiers     []string
	FixedQualifier string

	// Keys are the identity columns an import needs to build a target. A
	// sheet missing one of them is skipped whole.
	Keys []string

	// ScanFrom is the column where language detection starts on import.
	ScanFrom int
}

// Typed reports whether rows carry their qualifier in a Type column.
func (i SheetInfo) Typed() bool {
	return len(i.Columns) > 0 && i.Columns[len(i.Columns)-1] == TypeColumn
}

// Entry is one projected node: its identity cells (without the Type cell)
// and its labels.
type Entry struct {
	Identity []any
	Labels   *metadata.LabelSet
}

// ProjectFunc lists the sheet's entries in output order.
type ProjectFunc func(tree *metadata.Tree) []Entry

// TargetFunc maps an import row's identity cells to its update target.
type TargetFunc func(row RowView) (Target, error)

// SheetDefinition contains everything needed to export and import a sheet.
type SheetDefinition struct {
	Info    SheetInfo
	Project ProjectFunc
	Target  TargetFunc
}

// Register adds a sheet definition to the registry.
// Panics if a sheet with the same key or name is already registered.
func Register(def SheetDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Info.Key]; exists {
		panic(fmt.Sprintf("sheet already registered: %s", def.Info.Key))
	}
	for _, other := range registry {
		for _, name := range def.names() {
			if other.matches(name) {
				panic(fmt.Sprintf("sheet name %q already registered by %s", name, other.Info.Key))
			}
		}
	}
	if def.Info.ScanFrom <= 0 {
		def.Info.ScanFrom = 1
	}
	if !def.Info.Typed() && def.Info.FixedQualifier != "" && len(def.Info.Qualifiers) == 0 {
		def.Info.Qualifiers = []string{def.Info.FixedQualifier}
	}

	registry[def.Info.Key] = def
}

func (d SheetDefinition) names() []string {
	return append([]string{d.Info.Name}, d.Info.Aliases...)
}

func (d SheetDefinition) matches(name string) bool {
	name = strings.TrimSpace(name)
	for _, n := range d.names() {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

// Get returns a sheet definition by key.
// Returns false if not found.
func Get(key string) (SheetDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[key]
	return def, ok
}

// Lookup returns the definition whose sheet name or alias matches name,
// ignoring case.
func Lookup(name string) (SheetDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, def := range registry {
		if def.matches(name) {
			return def, true
		}
	}
	return SheetDefinition{}, false
}

// All returns all registered sheet definitions in workbook order.
func All() []SheetDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]SheetDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Info.Order != result[j].Info.Order {
			return result[i].Info.Order < result[j].Info.Order
		}
		return result[i].Info.Key < result[j].Info.Key
	})

	return result
}

// Select returns the definitions named by keys or groups, in workbook order.
// No keys selects every sheet.
func Select(keys []string) ([]SheetDefinition, error) {
	all := All()
	if len(keys) == 0 {
		return all, nil
	}

	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[strings.ToLower(strings.TrimSpace(k))] = true
	}

	var result []SheetDefinition
	matched := make(map[string]bool)
	for _, def := range all {
		key, group := strings.ToLower(def.Info.Key), strings.ToLower(def.Info.Group)
		if want[key] || want[group] {
			result = append(result, def)
			matched[key] = true
			matched[group] = true
		}
	}
	for k := range want {
		if !matched[k] {
			return nil, fmt.Errorf("unknown sheet or group: %s", k)
		}
	}
	return result, nil
}

// Groups returns all unique group names.
// Sorted alphabetically.
func Groups() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	seen := make(map[string]bool)
	for _, def := range registry {
		seen[def.Info.Group] = true
	}

	groups := make([]string, 0, len(seen))
	for g := range seen {
		groups = append(groups, g)
	}

	sort.Strings(groups)
	return groups
}

// SheetCount returns the number of registered sheets.
func SheetCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered sheets.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]SheetDefinition)
}
