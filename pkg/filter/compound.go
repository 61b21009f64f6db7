package filter

// IntersectionFilter matches events matching every active child.
type IntersectionFilter struct {
	node
	subs []Filter
}

// NewIntersectionFilter returns a selected intersection over the given
// children. The child list is fixed at construction.
func NewIntersectionFilter(subs []Filter) *IntersectionFilter {
	children := make([]Filter, len(subs))
	copy(children, subs)
	return &IntersectionFilter{node: activeNode(), subs: children}
}

func (f *IntersectionFilter) isFilter() {}

// Kind returns "intersection".
func (f *IntersectionFilter) Kind() string { return "intersection" }

// SubFilters returns a copy of the children.
func (f *IntersectionFilter) SubFilters() []Filter {
	subs := make([]Filter, len(f.subs))
	copy(subs, f.subs)
	return subs
}

// Copy returns a deep copy.
func (f *IntersectionFilter) Copy() Filter {
	c := &IntersectionFilter{node: f.node}
	for _, sub := range f.subs {
		c.subs = append(c.subs, sub.Copy())
	}
	return c
}

// UnionFilter matches events matching any active child.
type UnionFilter struct {
	node
	subs []Filter
}

// NewUnionFilter returns a selected union over the given children. The
// child list is fixed at construction.
func NewUnionFilter(subs []Filter) *UnionFilter {
	children := make([]Filter, len(subs))
	copy(children, subs)
	return &UnionFilter{node: activeNode(), subs: children}
}

func (f *UnionFilter) isFilter() {}

// Kind returns "union".
func (f *UnionFilter) Kind() string { return "union" }

// SubFilters returns a copy of the children.
func (f *UnionFilter) SubFilters() []Filter {
	subs := make([]Filter, len(f.subs))
	copy(subs, f.subs)
	return subs
}

// Copy returns a deep copy.
func (f *UnionFilter) Copy() Filter {
	c := &UnionFilter{node: f.node}
	for _, sub := range f.subs {
		c.subs = append(c.subs, sub.Copy())
	}
	return c
}

// DataSourcesFilter restricts events to a set of data sources. It is the
// union of its per-source children; with no active children it restricts
// nothing.
type DataSourcesFilter struct {
	node
	subs []*DataSourceFilter
}

// NewDataSourcesFilter returns a selected data-sources filter.
func NewDataSourcesFilter(subs ...*DataSourceFilter) *DataSourcesFilter {
	children := make([]*DataSourceFilter, len(subs))
	copy(children, subs)
	return &DataSourcesFilter{node: activeNode(), subs: children}
}

func (f *DataSourcesFilter) isFilter() {}

// Kind returns "data-sources".
func (f *DataSourcesFilter) Kind() string { return "data-sources" }

// SubFilters returns a copy of the children.
func (f *DataSourcesFilter) SubFilters() []*DataSourceFilter {
	subs := make([]*DataSourceFilter, len(f.subs))
	copy(subs, f.subs)
	return subs
}

// ActiveDataSourceIDs returns the ids of the active children.
func (f *DataSourcesFilter) ActiveDataSourceIDs() []int64 {
	var ids []int64
	for _, sub := range f.subs {
		if sub.IsActive() {
			ids = append(ids, sub.DataSourceID())
		}
	}
	return ids
}

// Copy returns a deep copy.
func (f *DataSourcesFilter) Copy() Filter {
	c := &DataSourcesFilter{node: f.node}
	for _, sub := range f.subs {
		c.subs = append(c.subs, sub.Copy().(*DataSourceFilter))
	}
	return c
}

// TagsFilter restricts events to those tagged with one of a set of tag
// definitions. An active filter with no active children matches nothing.
type TagsFilter struct {
	node
	subs []*TagNameFilter
}

// NewTagsFilter returns a deselected tags filter; selecting it turns the
// restriction on.
func NewTagsFilter(subs ...*TagNameFilter) *TagsFilter {
	children := make([]*TagNameFilter, len(subs))
	copy(children, subs)
	return &TagsFilter{subs: children}
}

func (f *TagsFilter) isFilter() {}

// Kind returns "tags".
func (f *TagsFilter) Kind() string { return "tags" }

// SubFilters returns a copy of the children.
func (f *TagsFilter) SubFilters() []*TagNameFilter {
	subs := make([]*TagNameFilter, len(f.subs))
	copy(subs, f.subs)
	return subs
}

// ActiveTagNameIDs returns the tag definition ids of the active children.
func (f *TagsFilter) ActiveTagNameIDs() []int64 {
	var ids []int64
	for _, sub := range f.subs {
		if sub.IsActive() {
			ids = append(ids, sub.TagNameID())
		}
	}
	return ids
}

// Copy returns a deep copy.
func (f *TagsFilter) Copy() Filter {
	c := &TagsFilter{node: f.node}
	for _, sub := range f.subs {
		c.subs = append(c.subs, sub.Copy().(*TagNameFilter))
	}
	return c
}

// HashHitsFilter restricts events to those whose content hit one of a set
// of hash sets. An active filter with no active children matches nothing.
type HashHitsFilter struct {
	node
	subs []*HashSetFilter
}

// NewHashHitsFilter returns a deselected hash-hits filter; selecting it
// turns the restriction on.
func NewHashHitsFilter(subs ...*HashSetFilter) *HashHitsFilter {
	children := make([]*HashSetFilter, len(subs))
	copy(children, subs)
	return &HashHitsFilter{subs: children}
}

func (f *HashHitsFilter) isFilter() {}

// Kind returns "hash-hits".
func (f *HashHitsFilter) Kind() string { return "hash-hits" }

// SubFilters returns a copy of the children.
func (f *HashHitsFilter) SubFilters() []*HashSetFilter {
	subs := make([]*HashSetFilter, len(f.subs))
	copy(subs, f.subs)
	return subs
}

// ActiveHashSetIDs returns the hash set ids of the active children.
func (f *HashHitsFilter) ActiveHashSetIDs() []int64 {
	var ids []int64
	for _, sub := range f.subs {
		if sub.IsActive() {
			ids = append(ids, sub.HashSetID())
		}
	}
	return ids
}

// Copy returns a deep copy.
func (f *HashHitsFilter) Copy() Filter {
	c := &HashHitsFilter{node: f.node}
	for _, sub := range f.subs {
		c.subs = append(c.subs, sub.Copy().(*HashSetFilter))
	}
	return c
}
