package layout

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/beevik/etree"

	"github.com/JonMunkholm/labelbook/internal/metadata"
)

// ErrElementNotFound is returned when a patch target is not in the document.
var ErrElementNotFound = errors.New("layout element not found")

// Target identifies one captioned element inside a layout document.
type Target struct {
	Kind      metadata.Kind
	ID        string // element id, braces optional
	Name      string // fallback when no element has the id
	Qualifier string // Label for forms; Title or Description for site maps
}

func (t Target) String() string {
	if t.ID != "" {
		return fmt.Sprintf("%s %s", Tag(t.Kind), t.ID)
	}
	return fmt.Sprintf("%s name=%s", Tag(t.Kind), t.Name)
}

// locate finds the target element by id, then by name. With duplicate
// names the first match in document order wins.
func locate(d *etree.Document, t Target) *etree.Element {
	elements := d.FindElements("//" + Tag(t.Kind))
	if id := metadata.NormalizeID(t.ID); id != "" {
		for _, el := range elements {
			if elementID(el) == id {
				return el
			}
		}
	}
	if t.Name != "" {
		for _, el := range elements {
			if el.SelectAttrValue("name", "") == t.Name {
				return el
			}
		}
	}
	return nil
}

// Read returns the target element's current captions.
func Read(doc string, t Target) ([]metadata.Translation, error) {
	c, err := CaptionFor(t.Kind, t.Qualifier)
	if err != nil {
		return nil, err
	}
	d, err := parse(doc)
	if err != nil {
		return nil, err
	}
	el := locate(d, t)
	if el == nil {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, t)
	}
	ts, _ := captions(el, c)
	return ts, nil
}

// Patch replaces the target element's captions with translations and
// returns the serialized document. Every existing caption child is removed
// and the container, created as a direct child when missing, is rebuilt with
// one caption per language in ascending order. When translations already are
// the element's caption set the input is returned untouched and changed is
// false.
func Patch(doc string, t Target, translations []metadata.Translation) (out string, changed bool, err error) {
	c, err := CaptionFor(t.Kind, t.Qualifier)
	if err != nil {
		return doc, false, err
	}
	d, err := parse(doc)
	if err != nil {
		return doc, false, err
	}
	el := locate(d, t)
	if el == nil {
		return doc, false, fmt.Errorf("%w: %s", ErrElementNotFound, t)
	}

	existing, hadContainer := captions(el, c)
	if hadContainer && SameCaptions(existing, translations) {
		return doc, false, nil
	}

	texts := make(map[int]string, len(translations))
	for _, tr := range translations {
		texts[tr.Language] = tr.Text
	}

	container := el.SelectElement(c.Container)
	if !hadContainer {
		container = etree.NewElement(c.Container)
		el.InsertChildAt(containerIndex(el, c), container)
	} else {
		for _, child := range container.SelectElements(c.Child) {
			container.RemoveChild(child)
		}
	}

	langs := make([]int, 0, len(texts))
	for l := range texts {
		langs = append(langs, l)
	}
	sort.Ints(langs)
	for _, l := range langs {
		caption := container.CreateElement(c.Child)
		if c.LangFirst {
			caption.CreateAttr(c.LangAttr, strconv.Itoa(l))
			caption.CreateAttr(c.TextAttr, texts[l])
		} else {
			caption.CreateAttr(c.TextAttr, texts[l])
			caption.CreateAttr(c.LangAttr, strconv.Itoa(l))
		}
	}

	out, err = d.WriteToString()
	if err != nil {
		return doc, false, fmt.Errorf("serialize layout: %w", err)
	}
	return out, true, nil
}

// containerIndex picks where a new container goes: right after the Titles
// container for site map descriptions, otherwise first.
func containerIndex(el *etree.Element, c Caption) int {
	if c.Container == siteMapDescription.Container {
		if titles := el.SelectElement(siteMapTitle.Container); titles != nil {
			return titles.Index() + 1
		}
	}
	return 0
}
