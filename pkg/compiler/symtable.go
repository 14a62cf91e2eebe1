package compiler

var defaultTypeNames = []string{"void", "char", "short", "int", "long", "float", "double"}

var defaultTypeModifiers = []string{"signed", "unsigned", "short", "long", "const", "struct", "enum"}

// Type names the device header provides. They are always known to the
// parser so a missing include surfaces as a validation error.
var deviceTypeNames = []string{
	"BlackBox", "Matrix", "Pixel", "Slice", "Piezo",
	"int8_t", "int16_t", "int32_t", "int64_t",
	"uint8_t", "uint16_t", "uint32_t", "uint64_t",
	"bool", "size_t",
}

// TypeTable tracks the type names and modifiers the parser currently
// recognises. Both lists are kept sorted longest first so lookahead never
// matches a name that is a prefix of a longer one.
type TypeTable struct {
	names     []string
	modifiers []string
	structs   map[string]bool
	enums     map[string]bool
}

func NewTypeTable() *TypeTable {
	t := &TypeTable{
		names:     sortLongestFirst(append(append([]string(nil), defaultTypeNames...), deviceTypeNames...)),
		modifiers: sortLongestFirst(append([]string(nil), defaultTypeModifiers...)),
		structs:   make(map[string]bool),
		enums:     make(map[string]bool),
	}
	return t
}

// AddName registers a new type name (from struct, enum, typedef or include).
func (t *TypeTable) AddName(name string) {
	if t.IsName(name) {
		return
	}
	t.names = sortLongestFirst(append(t.names, name))
}

func (t *TypeTable) AddStruct(name string) {
	t.structs[name] = true
	t.AddName(name)
}

func (t *TypeTable) AddEnum(name string) {
	t.enums[name] = true
	t.AddName(name)
}

func (t *TypeTable) IsName(name string) bool {
	for _, n := range t.names {
		if n == name {
			return true
		}
	}
	return false
}

func (t *TypeTable) IsModifier(name string) bool {
	for _, m := range t.modifiers {
		if m == name {
			return true
		}
	}
	return false
}

func (t *TypeTable) IsStruct(name string) bool { return t.structs[name] }

// Names returns the known type names, longest first.
func (t *TypeTable) Names() []string { return append([]string(nil), t.names...) }

// Modifiers returns the known modifiers, longest first.
func (t *TypeTable) Modifiers() []string { return append([]string(nil), t.modifiers...) }
