package metadata

// Clone returns a deep copy of the table and its children.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	c := &Table{ID: t.ID, LogicalName: t.LogicalName, Labels: *t.Labels.Clone()}
	for _, f := range t.Fields {
		c.Fields = append(c.Fields, f.Clone())
	}
	for _, r := range t.Relationships {
		rc := *r
		rc.Labels = *r.Labels.Clone()
		c.Relationships = append(c.Relationships, &rc)
	}
	for _, v := range t.Views {
		vc := *v
		vc.Labels = *v.Labels.Clone()
		c.Views = append(c.Views, &vc)
	}
	for _, ch := range t.Charts {
		cc := *ch
		cc.Labels = *ch.Labels.Clone()
		c.Charts = append(c.Charts, &cc)
	}
	for _, f := range t.Forms {
		c.Forms = append(c.Forms, f.Clone())
	}
	return c
}

// Clone returns a deep copy of the field and its options.
func (f *Field) Clone() *Field {
	c := *f
	c.Labels = *f.Labels.Clone()
	c.Options = cloneOptions(f.Options)
	return &c
}

// Clone returns a deep copy of the option set.
func (o *OptionSet) Clone() *OptionSet {
	c := *o
	c.Labels = *o.Labels.Clone()
	c.Options = cloneOptions(o.Options)
	return &c
}

// Clone copies the form record. Fragments are not copied.
func (f *Form) Clone() *Form {
	c := *f
	c.Labels = *f.Labels.Clone()
	c.Tabs, c.Sections, c.Cells = nil, nil, nil
	return &c
}

func cloneOptions(opts []*OptionEntry) []*OptionEntry {
	if opts == nil {
		return nil
	}
	out := make([]*OptionEntry, len(opts))
	for i, o := range opts {
		out[i] = &OptionEntry{Value: o.Value, Labels: *o.Labels.Clone()}
	}
	return out
}
