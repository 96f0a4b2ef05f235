package tmcfile

import "strings"

// The root element name differs between TwinCAT versions, so it is not
// pinned here.
type xmlDocument struct {
	DataTypes []xmlDataType `xml:"DataTypes>DataType"`
	Modules   []xmlModule   `xml:"Modules>Module"`
}

type xmlModule struct {
	Name      string        `xml:"Name"`
	DataAreas []xmlDataArea `xml:"DataAreas>DataArea"`
}

type xmlDataArea struct {
	Name    string      `xml:"Name"`
	Symbols []xmlSymbol `xml:"Symbol"`
}

type xmlSymbol struct {
	Name       string         `xml:"Name"`
	BaseType   string         `xml:"BaseType"`
	ArrayInfo  []xmlArrayInfo `xml:"ArrayInfo"`
	Properties *xmlProperties `xml:"Properties"`
}

type xmlDataType struct {
	Name        string         `xml:"Name"`
	BaseType    string         `xml:"BaseType"`
	ExtendsType string         `xml:"ExtendsType"`
	ArrayInfo   []xmlArrayInfo `xml:"ArrayInfo"`
	EnumInfo    []xmlEnumInfo  `xml:"EnumInfo"`
	SubItems    []xmlSubItem   `xml:"SubItem"`
	Properties  *xmlProperties `xml:"Properties"`
}

type xmlSubItem struct {
	Name       string         `xml:"Name"`
	Type       string         `xml:"Type"`
	ArrayInfo  []xmlArrayInfo `xml:"ArrayInfo"`
	Properties *xmlProperties `xml:"Properties"`
}

type xmlArrayInfo struct {
	LBound   int `xml:"LBound"`
	Elements int `xml:"Elements"`
}

type xmlEnumInfo struct {
	Text string `xml:"Text"`
	Enum string `xml:"Enum"`
}

type xmlProperties struct {
	Items []xmlProperty `xml:"Property"`
}

type xmlProperty struct {
	Name  string  `xml:"Name"`
	Value *string `xml:"Value"`
}

// toMap keeps only properties that carry a Value element; a pytmc property
// without a value does not count as configuration.
func (p *xmlProperties) toMap() map[string]string {
	out := map[string]string{}
	if p == nil {
		return out
	}
	for _, item := range p.Items {
		name := strings.TrimSpace(item.Name)
		if name == "" || item.Value == nil {
			continue
		}
		out[name] = *item.Value
	}
	return out
}
