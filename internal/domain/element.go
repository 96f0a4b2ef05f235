package domain

import (
	"regexp"
	"strconv"
)

// ElementKind tells which TMC node an Element was read from.
type ElementKind string

const (
	KindSymbol   ElementKind = "Symbol"
	KindDataType ElementKind = "DataType"
	KindSubItem  ElementKind = "SubItem"
)

// DataKind classifies user defined data types.
type DataKind string

const (
	DataFunctionBlock DataKind = "FunctionBlock"
	DataStruct        DataKind = "Struct"
	DataEnum          DataKind = "Enum"
)

var reString = regexp.MustCompile(`(STRING)\(([0-9]+)\)`)

// Element is a TwinCAT variable or data structure as it appears in a .tmc
// file. Symbols are instantiated variables, DataTypes are the templates of
// function blocks, structs, enums and aliases, and SubItems are the members
// of a DataType.
type Element struct {
	Kind ElementKind
	Name string

	// Type is the BaseType of a Symbol or the Type of a SubItem.
	Type string

	IsArray     bool
	ArrayLength int

	// DataType-only information.
	DataKind    DataKind
	Extends     string
	HasSubItems bool

	// Parent is the owning DataType name for SubItems.
	Parent string

	// IsEnum is set during isolation for elements whose type is an enum.
	IsEnum bool

	Properties map[string]string
	Pragma     *Configuration
}

// RawConfig returns the pytmc pragma text, if any.
func (e *Element) RawConfig() (string, bool) {
	if e.Properties == nil {
		return "", false
	}
	v, ok := e.Properties[PragmaKey]
	return v, ok
}

// HasConfig reports whether a pytmc pragma is attached.
func (e *Element) HasConfig() bool {
	_, ok := e.RawConfig()
	return ok
}

// StringInfo reports whether the element is a STRING(n) and its length.
func (e *Element) StringInfo() (bool, int) {
	m := reString.FindStringSubmatch(e.Type)
	if m == nil {
		return false, 0
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return false, 0
	}
	return true, n
}

// IsString reports whether the element holds a TwinCAT STRING.
func (e *Element) IsString() bool {
	ok, _ := e.StringInfo()
	return ok
}

// IterableLength is the string length or array element count; 0 otherwise.
func (e *Element) IterableLength() int {
	if ok, n := e.StringInfo(); ok {
		return n
	}
	if e.IsArray {
		return e.ArrayLength
	}
	return 0
}

// TcType returns the TwinCAT type name, normalised for enums and strings.
// DataTypes have no TcType.
func (e *Element) TcType() string {
	if e.Kind == KindDataType {
		return ""
	}
	if e.IsEnum {
		return "ENUM"
	}
	if e.IsString() {
		return "STRING"
	}
	return e.Type
}

// Clone returns a copy with its own pragma and properties.
func (e *Element) Clone() *Element {
	out := *e
	out.Pragma = e.Pragma.Clone()
	if e.Properties != nil {
		out.Properties = make(map[string]string, len(e.Properties))
		for k, v := range e.Properties {
			out.Properties[k] = v
		}
	}
	return &out
}

// PVs lists the PV names declared by the element's pragma.
func (e *Element) PVs() []string {
	if e.Pragma == nil {
		return nil
	}
	return e.Pragma.Names()
}

// Frozen returns a copy whose pragma is cut down to the single PV name.
func (e *Element) Frozen(pv string) *Element {
	out := e.Clone()
	if out.Pragma != nil {
		out.Pragma.FixToName(pv)
	}
	return out
}

// PV returns the first PV of the element's pragma.
func (e *Element) PV() string {
	names := e.PVs()
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

// Collector is an insertion ordered set of elements keyed by name.
type Collector struct {
	order []string
	items map[string]*Element
}

func NewCollector() *Collector {
	return &Collector{items: map[string]*Element{}}
}

// Add stores the element under its name, replacing an earlier entry.
func (c *Collector) Add(e *Element) {
	if c.items == nil {
		c.items = map[string]*Element{}
	}
	if _, ok := c.items[e.Name]; !ok {
		c.order = append(c.order, e.Name)
	}
	c.items[e.Name] = e
}

func (c *Collector) Get(name string) (*Element, bool) {
	if c == nil || c.items == nil {
		return nil, false
	}
	e, ok := c.items[name]
	return e, ok
}

func (c *Collector) Len() int {
	if c == nil {
		return 0
	}
	return len(c.order)
}

// Names returns element names in insertion order.
func (c *Collector) Names() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// All returns elements in insertion order.
func (c *Collector) All() []*Element {
	if c == nil {
		return nil
	}
	out := make([]*Element, 0, len(c.order))
	for _, n := range c.order {
		out = append(out, c.items[n])
	}
	return out
}

// Registered returns only the elements marked with a pytmc pragma.
func (c *Collector) Registered() *Collector {
	out := NewCollector()
	for _, e := range c.All() {
		if e.HasConfig() {
			out.Add(e)
		}
	}
	return out
}

// TmcFile is the interpretation of a .tmc document.
type TmcFile struct {
	Path      string
	Symbols   *Collector
	DataTypes *Collector

	// SubItems is keyed by the owning DataType name.
	SubItems map[string]*Collector
}

// Children returns the SubItems of a DataType in document order.
func (t *TmcFile) Children(dataType string) []*Element {
	if t.SubItems == nil {
		return nil
	}
	return t.SubItems[dataType].All()
}
