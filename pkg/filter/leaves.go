package filter

import "github.com/chronolith/chronolith/pkg/types"

// TextFilter matches events whose description at any granularity contains
// the given text, case-insensitively. Blank text matches everything.
type TextFilter struct {
	node
	text string
}

// NewTextFilter returns a selected text filter.
func NewTextFilter(text string) *TextFilter {
	return &TextFilter{node: activeNode(), text: text}
}

func (f *TextFilter) isFilter() {}

// Kind returns "text".
func (f *TextFilter) Kind() string { return "text" }

// Text returns the substring the filter matches.
func (f *TextFilter) Text() string { return f.text }

// Copy returns a deep copy.
func (f *TextFilter) Copy() Filter {
	c := *f
	return &c
}

// DescriptionMode says whether a description filter keeps or drops matching
// events.
type DescriptionMode int

const (
	DescriptionInclude DescriptionMode = iota
	DescriptionExclude
)

// String returns the mode name.
func (m DescriptionMode) String() string {
	if m == DescriptionExclude {
		return "exclude"
	}
	return "include"
}

// DescriptionFilter matches events whose description equals the given text
// at the filter's own granularity, including or excluding them per Mode.
type DescriptionFilter struct {
	node
	level       types.DescriptionLevel
	description string
	mode        DescriptionMode
}

// NewDescriptionFilter returns a selected description filter.
func NewDescriptionFilter(level types.DescriptionLevel, description string, mode DescriptionMode) *DescriptionFilter {
	return &DescriptionFilter{
		node:        activeNode(),
		level:       level,
		description: description,
		mode:        mode,
	}
}

func (f *DescriptionFilter) isFilter() {}

// Kind returns "description".
func (f *DescriptionFilter) Kind() string { return "description" }

// Level returns the granularity the filter compares at.
func (f *DescriptionFilter) Level() types.DescriptionLevel { return f.level }

// Description returns the text compared against.
func (f *DescriptionFilter) Description() string { return f.description }

// Mode returns whether matches are kept or dropped.
func (f *DescriptionFilter) Mode() DescriptionMode { return f.mode }

// Copy returns a deep copy.
func (f *DescriptionFilter) Copy() Filter {
	c := *f
	return &c
}

// TagNameFilter matches events carrying a tag created from one tag
// definition.
type TagNameFilter struct {
	node
	displayName string
	tagNameID   int64
}

// NewTagNameFilter returns a selected tag-name filter.
func NewTagNameFilter(displayName string, tagNameID int64) *TagNameFilter {
	return &TagNameFilter{node: activeNode(), displayName: displayName, tagNameID: tagNameID}
}

func (f *TagNameFilter) isFilter() {}

// Kind returns "tag-name".
func (f *TagNameFilter) Kind() string { return "tag-name" }

// DisplayName returns the tag definition's display name.
func (f *TagNameFilter) DisplayName() string { return f.displayName }

// TagNameID returns the tag definition's id.
func (f *TagNameFilter) TagNameID() int64 { return f.tagNameID }

// Copy returns a deep copy.
func (f *TagNameFilter) Copy() Filter {
	c := *f
	return &c
}

// HashSetFilter matches events whose content hit one hash set.
type HashSetFilter struct {
	node
	hashSetName string
	hashSetID   int64
}

// NewHashSetFilter returns a selected hash-set filter.
func NewHashSetFilter(hashSetName string, hashSetID int64) *HashSetFilter {
	return &HashSetFilter{node: activeNode(), hashSetName: hashSetName, hashSetID: hashSetID}
}

func (f *HashSetFilter) isFilter() {}

// Kind returns "hash-set".
func (f *HashSetFilter) Kind() string { return "hash-set" }

// HashSetName returns the hash set's name.
func (f *HashSetFilter) HashSetName() string { return f.hashSetName }

// HashSetID returns the hash set's id.
func (f *HashSetFilter) HashSetID() int64 { return f.hashSetID }

// Copy returns a deep copy.
func (f *HashSetFilter) Copy() Filter {
	c := *f
	return &c
}

// DataSourceFilter matches events from one data source.
type DataSourceFilter struct {
	node
	name         string
	dataSourceID int64
}

// NewDataSourceFilter returns a selected data-source filter.
func NewDataSourceFilter(name string, dataSourceID int64) *DataSourceFilter {
	return &DataSourceFilter{node: activeNode(), name: name, dataSourceID: dataSourceID}
}

func (f *DataSourceFilter) isFilter() {}

// Kind returns "data-source".
func (f *DataSourceFilter) Kind() string { return "data-source" }

// Name returns the data source's display name.
func (f *DataSourceFilter) Name() string { return f.name }

// DataSourceID returns the data source's id.
func (f *DataSourceFilter) DataSourceID() int64 { return f.dataSourceID }

// Copy returns a deep copy.
func (f *DataSourceFilter) Copy() Filter {
	c := *f
	return &c
}

// HideKnownFilter drops events whose backing content matched a known-good
// hash database. Events with no known state stay visible.
type HideKnownFilter struct {
	node
}

// NewHideKnownFilter returns a deselected hide-known filter; selecting it
// turns the exclusion on.
func NewHideKnownFilter() *HideKnownFilter {
	return &HideKnownFilter{}
}

func (f *HideKnownFilter) isFilter() {}

// Kind returns "hide-known".
func (f *HideKnownFilter) Kind() string { return "hide-known" }

// Copy returns a deep copy.
func (f *HideKnownFilter) Copy() Filter {
	c := *f
	return &c
}
