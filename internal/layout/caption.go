// Package layout reads and rewrites the captions embedded in form, dashboard
// and site map layout documents.
package layout

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/JonMunkholm/labelbook/internal/metadata"
)

// Caption describes where an element keeps its captions: a container element
// that is a direct child of the captioned element, holding one child per
// language.
type Caption struct {
	Container string
	Child     string
	TextAttr  string
	LangAttr  string
	LangFirst bool // site maps write LCID before the text
}

var (
	formCaption = Caption{Container: "labels", Child: "label", TextAttr: "description", LangAttr: "languagecode"}

	siteMapTitle       = Caption{Container: "Titles", Child: "Title", TextAttr: "Title", LangAttr: "LCID", LangFirst: true}
	siteMapDescription = Caption{Container: "Descriptions", Child: "Description", TextAttr: "Description", LangAttr: "LCID", LangFirst: true}
)

// CaptionFor returns the caption layout for an element kind and qualifier.
// Site map elements keep titles and descriptions in separate containers.
func CaptionFor(kind metadata.Kind, qualifier string) (Caption, error) {
	if !kind.IsLayout() {
		return Caption{}, fmt.Errorf("kind %s is not a layout element", kind)
	}
	if !kind.IsSiteMap() {
		return formCaption, nil
	}
	switch qualifier {
	case metadata.Title, "":
		return siteMapTitle, nil
	case metadata.Description:
		return siteMapDescription, nil
	}
	return Caption{}, fmt.Errorf("site map elements have no %q captions", qualifier)
}

// Tag returns the element tag for a layout kind.
func Tag(kind metadata.Kind) string {
	switch kind {
	case metadata.KindFormTab, metadata.KindDashboardTab:
		return "tab"
	case metadata.KindFormSection, metadata.KindDashboardSection:
		return "section"
	case metadata.KindFormField, metadata.KindDashboardField:
		return "cell"
	case metadata.KindSiteMapArea:
		return "Area"
	case metadata.KindSiteMapGroup:
		return "Group"
	case metadata.KindSiteMapSubArea:
		return "SubArea"
	}
	return ""
}

// elementID returns the element's id attribute with braces stripped. Forms
// use "id", site maps "Id".
func elementID(el *etree.Element) string {
	if v := el.SelectAttrValue("id", ""); v != "" {
		return metadata.NormalizeID(v)
	}
	return metadata.NormalizeID(el.SelectAttrValue("Id", ""))
}

// captions reads every caption child of el's own container. Containers of
// descendants are never consulted.
func captions(el *etree.Element, c Caption) ([]metadata.Translation, bool) {
	container := el.SelectElement(c.Container)
	if container == nil {
		return nil, false
	}
	var out []metadata.Translation
	for _, child := range container.SelectElements(c.Child) {
		lang, err := strconv.Atoi(strings.TrimSpace(child.SelectAttrValue(c.LangAttr, "")))
		if err != nil {
			lang = 0
		}
		out = append(out, metadata.Translation{Language: lang, Text: child.SelectAttrValue(c.TextAttr, "")})
	}
	return out, true
}

// SameCaptions reports whether incoming is exactly the caption set current
// holds. Blank captions in current carry nothing and are ignored.
func SameCaptions(current, incoming []metadata.Translation) bool {
	have := make(map[int]string, len(current))
	for _, t := range current {
		if strings.TrimSpace(t.Text) != "" {
			have[t.Language] = t.Text
		}
	}
	want := make(map[int]string, len(incoming))
	for _, t := range incoming {
		want[t.Language] = t.Text
	}
	if len(have) != len(want) {
		return false
	}
	for lang, text := range want {
		if cur, ok := have[lang]; !ok || cur != text {
			return false
		}
	}
	return true
}

// ancestorAttr returns attr of the nearest ancestor with the given tag.
func ancestorAttr(el *etree.Element, tag, attr string) string {
	for p := el.Parent(); p != nil; p = p.Parent() {
		if p.Tag == tag {
			if attr == "id" || attr == "Id" {
				return elementID(p)
			}
			return p.SelectAttrValue(attr, "")
		}
	}
	return ""
}

func parse(doc string) (*etree.Document, error) {
	d := etree.NewDocument()
	if err := d.ReadFromString(doc); err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	if d.Root() == nil {
		return nil, fmt.Errorf("parse layout: empty document")
	}
	return d, nil
}
