package layout

import (
	"github.com/beevik/etree"

	"github.com/JonMunkholm/labelbook/internal/metadata"
)

var (
	formKinds      = []metadata.Kind{metadata.KindFormTab, metadata.KindFormSection, metadata.KindFormField}
	dashboardKinds = []metadata.Kind{metadata.KindDashboardTab, metadata.KindDashboardSection, metadata.KindDashboardField}
	siteMapKinds   = []metadata.Kind{metadata.KindSiteMapArea, metadata.KindSiteMapGroup, metadata.KindSiteMapSubArea}
)

// Extractor surfaces layout captions as fragments. It holds no state and is
// safe for concurrent use.
type Extractor struct{}

// NewExtractor returns an Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

var _ metadata.LayoutExtractor = (*Extractor)(nil)

// ExtractForm reads tab, section and field captions from doc, a layout
// rendered in snap's locale. The first caption of each element becomes the
// snapshot language's translation on the fragment with the same element id;
// new ids create fragments. Only the base snapshot updates fragment context.
func (x *Extractor) ExtractForm(form *metadata.Form, doc string, snap metadata.Snapshot) error {
	if doc == "" {
		return nil
	}
	d, err := parse(doc)
	if err != nil {
		return err
	}

	kinds := formKinds
	if form.Dashboard {
		kinds = dashboardKinds
	}
	for _, kind := range kinds {
		list := form.Fragments(kind)
		for _, el := range d.FindElements("//" + Tag(kind)) {
			id := elementID(el)
			name := el.SelectAttrValue("name", "")
			if id == "" && name == "" {
				continue
			}

			frag := findFragment(*list, id, name)
			if frag == nil {
				frag = &metadata.LayoutFragment{Kind: kind, ID: id}
				fillContext(frag, form, el)
				*list = append(*list, frag)
			} else if snap.Base {
				fillContext(frag, form, el)
			}

			frag.Labels.Ensure(metadata.Label)
			if ts, ok := captions(el, formCaption); ok && len(ts) > 0 {
				frag.Labels.Set(metadata.Label, snap.Language, ts[0].Text)
			}
		}
	}
	return nil
}

func findFragment(list []*metadata.LayoutFragment, id, name string) *metadata.LayoutFragment {
	for _, f := range list {
		if id != "" && f.ID == id {
			return f
		}
	}
	if id == "" {
		for _, f := range list {
			if f.ID == "" && f.Name == name {
				return f
			}
		}
	}
	return nil
}

func fillContext(frag *metadata.LayoutFragment, form *metadata.Form, el *etree.Element) {
	frag.Name = el.SelectAttrValue("name", "")
	frag.FormID = form.ID
	frag.Entity = form.Entity
	frag.FormName = form.Name

	switch el.Tag {
	case "tab":
		frag.TabName = frag.Name
	case "section":
		frag.TabName = ancestorAttr(el, "tab", "name")
		frag.SectionName = frag.Name
	case "cell":
		frag.TabName = ancestorAttr(el, "tab", "name")
		frag.SectionName = ancestorAttr(el, "section", "name")
		if control := el.SelectElement("control"); control != nil {
			frag.Attribute = control.SelectAttrValue("datafieldname", "")
		}
	}
}

// ExtractSiteMap reads every Area, Group and SubArea caption. Site map
// documents carry all languages, so each caption child contributes its own
// language.
func (x *Extractor) ExtractSiteMap(sm *metadata.SiteMap) error {
	if sm.XML == "" {
		return nil
	}
	d, err := parse(sm.XML)
	if err != nil {
		return err
	}

	for _, kind := range siteMapKinds {
		list := sm.Elements(kind)
		for _, el := range d.FindElements("//" + Tag(kind)) {
			id := elementID(el)
			if id == "" {
				continue
			}

			var node *metadata.SiteMapElement
			for _, e := range *list {
				if e.ID == id {
					node = e
					break
				}
			}
			if node == nil {
				node = &metadata.SiteMapElement{Kind: kind, ID: id}
				switch kind {
				case metadata.KindSiteMapArea:
					node.AreaID = id
				case metadata.KindSiteMapGroup:
					node.AreaID = ancestorAttr(el, "Area", "Id")
					node.GroupID = id
				case metadata.KindSiteMapSubArea:
					node.AreaID = ancestorAttr(el, "Area", "Id")
					node.GroupID = ancestorAttr(el, "Group", "Id")
				}
				*list = append(*list, node)
			}

			for _, q := range []string{metadata.Title, metadata.Description} {
				c, _ := CaptionFor(kind, q)
				node.Labels.Ensure(q)
				ts, _ := captions(el, c)
				for _, t := range ts {
					if t.Language > 0 {
						node.Labels.Set(q, t.Language, t.Text)
					}
				}
			}
		}
	}
	return nil
}
