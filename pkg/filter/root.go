package filter

// RootFilter is the top of every query's filter tree: an intersection over
// exactly the recognized top-level members. The query engine consults the
// named members directly, so the root always carries all of them even when
// they are inactive.
type RootFilter struct {
	node
	dataSources *DataSourcesFilter
	tags        *TagsFilter
	hashHits    *HashHitsFilter
	text        *TextFilter
	types       *TypeFilter
	hideKnown   *HideKnownFilter
	annexed     []Filter
}

// NewRootFilter assembles a root from its members plus any annexed
// description filters. Nil members are replaced by their inactive
// equivalents so accessors never return nil.
func NewRootFilter(
	dataSources *DataSourcesFilter,
	tags *TagsFilter,
	hashHits *HashHitsFilter,
	text *TextFilter,
	typeFilter *TypeFilter,
	hideKnown *HideKnownFilter,
	annexed ...Filter,
) *RootFilter {
	if dataSources == nil {
		dataSources = NewDataSourcesFilter()
	}
	if tags == nil {
		tags = NewTagsFilter()
	}
	if hashHits == nil {
		hashHits = NewHashHitsFilter()
	}
	if text == nil {
		text = NewTextFilter("")
	}
	if typeFilter == nil {
		typeFilter = NewTypeFilterRoot()
	}
	if hideKnown == nil {
		hideKnown = NewHideKnownFilter()
	}
	extra := make([]Filter, len(annexed))
	copy(extra, annexed)
	return &RootFilter{
		node:        activeNode(),
		dataSources: dataSources,
		tags:        tags,
		hashHits:    hashHits,
		text:        text,
		types:       typeFilter,
		hideKnown:   hideKnown,
		annexed:     extra,
	}
}

// DefaultRootFilter returns the everything-visible tree: the full type
// hierarchy selected, no data-source restriction, and the tag, hash-hit,
// text, and known-state restrictions off.
func DefaultRootFilter() *RootFilter {
	return NewRootFilter(nil, nil, nil, nil, nil, nil)
}

func (f *RootFilter) isFilter() {}

// Kind returns "root".
func (f *RootFilter) Kind() string { return "root" }

// DataSources returns the data-source member.
func (f *RootFilter) DataSources() *DataSourcesFilter { return f.dataSources }

// Tags returns the tag-restriction member.
func (f *RootFilter) Tags() *TagsFilter { return f.tags }

// HashHits returns the hash-hit-restriction member.
func (f *RootFilter) HashHits() *HashHitsFilter { return f.hashHits }

// Text returns the text member.
func (f *RootFilter) Text() *TextFilter { return f.text }

// Types returns the type-hierarchy member.
func (f *RootFilter) Types() *TypeFilter { return f.types }

// HideKnown returns the known-state member.
func (f *RootFilter) HideKnown() *HideKnownFilter { return f.hideKnown }

// Annexed returns a copy of the additional description filters.
func (f *RootFilter) Annexed() []Filter {
	extra := make([]Filter, len(f.annexed))
	copy(extra, f.annexed)
	return extra
}

// SubFilters returns all members in compilation order.
func (f *RootFilter) SubFilters() []Filter {
	subs := []Filter{f.dataSources, f.tags, f.hashHits, f.text, f.types, f.hideKnown}
	return append(subs, f.Annexed()...)
}

// Copy returns a deep copy of the whole tree.
func (f *RootFilter) Copy() Filter {
	c := &RootFilter{
		node:        f.node,
		dataSources: f.dataSources.Copy().(*DataSourcesFilter),
		tags:        f.tags.Copy().(*TagsFilter),
		hashHits:    f.hashHits.Copy().(*HashHitsFilter),
		text:        f.text.Copy().(*TextFilter),
		types:       f.types.Copy().(*TypeFilter),
		hideKnown:   f.hideKnown.Copy().(*HideKnownFilter),
	}
	for _, a := range f.annexed {
		c.annexed = append(c.annexed, a.Copy())
	}
	return c
}
