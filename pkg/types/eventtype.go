package types

// EventType identifies an event type at either level of the two-level type
// hierarchy. BaseType and SubType are the only implementations; the
// unexported method keeps the set closed so dispatch over it can be
// exhaustive.
type EventType interface {
	// Ordinal is the stable numeric identity persisted by the store.
	Ordinal() int
	// Base resolves the type to its base category.
	Base() BaseType
	String() string

	eventType()
}

// TypeLevel is the type granularity of a zoomed query: base categories or
// concrete sub-types.
type TypeLevel int

const (
	TypeLevelBase TypeLevel = iota
	TypeLevelSub
)

// String returns the level name.
func (l TypeLevel) String() string {
	if l == TypeLevelBase {
		return "base"
	}
	return "sub"
}

// BaseType is a top-level event category. The numeric values are persisted
// in the base_type column and must not be reordered.
type BaseType int

const (
	BaseFileSystem BaseType = iota
	BaseWebActivity
	BaseMiscellaneous
)

var baseTypeNames = [...]string{
	BaseFileSystem:    "File System",
	BaseWebActivity:   "Web Activity",
	BaseMiscellaneous: "Miscellaneous",
}

func (b BaseType) eventType() {}

// Ordinal returns the persisted numeric value.
func (b BaseType) Ordinal() int { return int(b) }

// Base returns b itself; a base type is its own category.
func (b BaseType) Base() BaseType { return b }

func (b BaseType) String() string {
	if b < 0 || int(b) >= len(baseTypeNames) {
		return "invalid"
	}
	return baseTypeNames[b]
}

// SubTypes returns the sub-types belonging to this base category, in
// ordinal order.
func (b BaseType) SubTypes() []SubType {
	var subs []SubType
	for st := range subTypeTable {
		if subTypeTable[st].base == b {
			subs = append(subs, SubType(st))
		}
	}
	return subs
}

// BaseTypes returns all base categories in ordinal order.
func BaseTypes() []BaseType {
	return []BaseType{BaseFileSystem, BaseWebActivity, BaseMiscellaneous}
}

// BaseTypeFromOrdinal maps a persisted base_type value back to its
// BaseType. The second return is false for unknown ordinals.
func BaseTypeFromOrdinal(ordinal int) (BaseType, bool) {
	if ordinal < 0 || ordinal >= len(baseTypeNames) {
		return 0, false
	}
	return BaseType(ordinal), true
}

// SubType is a concrete event type. The numeric values are persisted in the
// sub_type column and must not be reordered.
type SubType int

const (
	FileModified SubType = iota
	FileAccessed
	FileCreated
	FileChanged
	WebDownload
	WebCookie
	WebBookmark
	WebHistory
	WebSearch
	CallLog
	DeviceAttached
	Email
	ExifMetadata
	GPSRoute
	GPSTrackpoint
	InstalledProgram
	Message
	RecentDocument
)

var subTypeTable = [...]struct {
	name string
	base BaseType
}{
	FileModified:     {"File Modified", BaseFileSystem},
	FileAccessed:     {"File Accessed", BaseFileSystem},
	FileCreated:      {"File Created", BaseFileSystem},
	FileChanged:      {"File Changed", BaseFileSystem},
	WebDownload:      {"Web Downloads", BaseWebActivity},
	WebCookie:        {"Web Cookies", BaseWebActivity},
	WebBookmark:      {"Web Bookmarks", BaseWebActivity},
	WebHistory:       {"Web History", BaseWebActivity},
	WebSearch:        {"Web Searches", BaseWebActivity},
	CallLog:          {"Calls", BaseMiscellaneous},
	DeviceAttached:   {"Devices Attached", BaseMiscellaneous},
	Email:            {"Email", BaseMiscellaneous},
	ExifMetadata:     {"EXIF Metadata", BaseMiscellaneous},
	GPSRoute:         {"GPS Routes", BaseMiscellaneous},
	GPSTrackpoint:    {"GPS Trackpoints", BaseMiscellaneous},
	InstalledProgram: {"Installed Programs", BaseMiscellaneous},
	Message:          {"Messages", BaseMiscellaneous},
	RecentDocument:   {"Recent Documents", BaseMiscellaneous},
}

func (s SubType) eventType() {}

// Ordinal returns the persisted numeric value.
func (s SubType) Ordinal() int { return int(s) }

// Base returns the base category this sub-type belongs to.
func (s SubType) Base() BaseType {
	if s < 0 || int(s) >= len(subTypeTable) {
		return BaseMiscellaneous
	}
	return subTypeTable[s].base
}

func (s SubType) String() string {
	if s < 0 || int(s) >= len(subTypeTable) {
		return "invalid"
	}
	return subTypeTable[s].name
}

// Valid reports whether s is one of the defined sub-types.
func (s SubType) Valid() bool {
	return s >= 0 && int(s) < len(subTypeTable)
}

// SubTypes returns all sub-types in ordinal order.
func SubTypes() []SubType {
	subs := make([]SubType, len(subTypeTable))
	for i := range subs {
		subs[i] = SubType(i)
	}
	return subs
}

// SubTypeFromOrdinal maps a persisted sub_type value back to its SubType.
// The second return is false for unknown ordinals.
func SubTypeFromOrdinal(ordinal int) (SubType, bool) {
	if ordinal < 0 || ordinal >= len(subTypeTable) {
		return 0, false
	}
	return SubType(ordinal), true
}
