package sheets

import (
	"errors"

	"github.com/JonMunkholm/labelbook/internal/core"
	"github.com/JonMunkholm/labelbook/internal/metadata"
)

// Column headers shared by several sheets.
const (
	colEntity        = "Entity Logical Name"
	colEntityID      = "Entity Id"
	colAttribute     = "Attribute Logical Name"
	colAttributeID   = "Attribute Id"
	colAttributeType = "Attribute Type"
	colValue         = "Value"
	colFormUniqueID  = "Form Unique Id"
	colFormID        = "Form Id"
	colFormName      = "Form Name"
	colFormType      = "Form Type"
	colTabName       = "Tab Name"
	colSectionName   = "Section Name"
	colSiteMapName   = "SiteMap Name"
	colSiteMapID     = "SiteMap Id"
	colAreaID        = "Area Id"
	colGroupID       = "Group Id"
	colSubAreaID     = "SubArea Id"
)

var (
	nameQualifiers   = []string{metadata.DisplayName, metadata.Description}
	optionQualifiers = []string{metadata.Label, metadata.Description}
	siteQualifiers   = []string{metadata.Title, metadata.Description}
)

var errNoElement = errors.New("missing element id and name")

func entry(labels *metadata.LabelSet, identity ...any) core.Entry {
	return core.Entry{Identity: identity, Labels: labels}
}

// idOrName reads a layout element's id and name columns; one of them must
// be set.
func idOrName(row core.RowView, idColumn, nameColumn string) (id, name string, err error) {
	id = row.ID(idColumn)
	if nameColumn != "" {
		name = row.Get(nameColumn)
	}
	if id == "" && name == "" {
		return "", "", errNoElement
	}
	return id, name, nil
}
