package cli

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/labelbook/internal/core"
	"github.com/JonMunkholm/labelbook/internal/locale"
	"github.com/JonMunkholm/labelbook/internal/metadata"
)

// Profile is a saved export request. Languages accept LCIDs or tags.
//
//	selection:
//	  entities: [account, contact]
//	languages: [en-US, 1036]
//	filter: names
//	sheets: [entities, attributes]
type Profile struct {
	Selection metadata.Selection `yaml:"selection"`
	Languages []string           `yaml:"languages,omitempty"`
	Filter    string             `yaml:"filter,omitempty"`
	Sheets    []string           `yaml:"sheets,omitempty"`
	FileName  string             `yaml:"file_name,omitempty"`
}

// LoadProfile reads a YAML profile.
func LoadProfile(path string) (*Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	var p Profile
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", path, err)
	}
	return &p, nil
}

// Save writes the profile as YAML.
func (p *Profile) Save(path string) error {
	raw, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	return os.WriteFile(path, raw, 0o644)
}

// Request converts the profile into an export request.
func (p *Profile) Request() (core.ExportRequest, error) {
	req := core.ExportRequest{
		Selection: p.Selection,
		Sheets:    p.Sheets,
		FileName:  p.FileName,
	}

	langs, err := parseLanguages(p.Languages)
	if err != nil {
		return req, err
	}
	req.Languages = langs

	if p.Filter != "" {
		filter, ok := core.ParseLabelFilter(p.Filter)
		if !ok {
			return req, fmt.Errorf("unknown filter %q (want both, names or descriptions)", p.Filter)
		}
		req.Filter = filter
	}
	return req, nil
}

// ProfileFrom is the inverse of Request. Languages are written as tags when
// one is known.
func ProfileFrom(req core.ExportRequest) *Profile {
	p := &Profile{
		Selection: req.Selection,
		Filter:    string(req.Filter),
		Sheets:    req.Sheets,
		FileName:  req.FileName,
	}
	for _, code := range req.Languages {
		if tag, ok := locale.Tag(code); ok {
			p.Languages = append(p.Languages, tag.String())
		} else {
			p.Languages = append(p.Languages, strconv.Itoa(code))
		}
	}
	return p
}

func parseLanguages(values []string) ([]int, error) {
	var out []int
	for _, v := range values {
		code, ok := locale.Parse(v)
		if !ok {
			return nil, fmt.Errorf("unknown language %q", v)
		}
		out = append(out, code)
	}
	return out, nil
}
