package summary

import (
	"github.com/pcdshub/pytmc/internal/domain"
	"github.com/pcdshub/pytmc/internal/usecase/pvpack"
)

// Symbol describes a Symbol or SubItem.
type Symbol struct {
	Name   string   `json:"name" yaml:"name"`
	Type   string   `json:"type" yaml:"type"`
	TcType string   `json:"tc_type" yaml:"tc_type"`
	Array  int      `json:"array,omitempty" yaml:"array,omitempty"`
	PVs    []string `json:"pvs,omitempty" yaml:"pvs,omitempty"`
	Pragma string   `json:"pragma,omitempty" yaml:"pragma,omitempty"`
}

type DataType struct {
	Name     string   `json:"name" yaml:"name"`
	Kind     string   `json:"kind,omitempty" yaml:"kind,omitempty"`
	Extends  string   `json:"extends,omitempty" yaml:"extends,omitempty"`
	SubItems []Symbol `json:"sub_items,omitempty" yaml:"sub_items,omitempty"`
}

type PV struct {
	PV         string   `json:"pv" yaml:"pv"`
	TcPath     string   `json:"tc_path" yaml:"tc_path"`
	RecordType string   `json:"record_type,omitempty" yaml:"record_type,omitempty"`
	IO         string   `json:"io,omitempty" yaml:"io,omitempty"`
	Complete   bool     `json:"complete" yaml:"complete"`
	Missing    []string `json:"missing,omitempty" yaml:"missing,omitempty"`
}

// Summary is the printable view of a .tmc file.
type Summary struct {
	File      string     `json:"file" yaml:"file"`
	Symbols   []Symbol   `json:"symbols" yaml:"symbols"`
	DataTypes []DataType `json:"data_types" yaml:"data_types"`
	PVs       []PV       `json:"pvs" yaml:"pvs"`
}

// Build summarises tmc. Unless all is set only registered symbols and data
// types with at least one registered SubItem are listed.
func Build(tmc *domain.TmcFile, packs []*pvpack.Package, all bool) Summary {
	s := Summary{
		File:      tmc.Path,
		Symbols:   []Symbol{},
		DataTypes: []DataType{},
		PVs:       []PV{},
	}

	symbols := tmc.Symbols
	if !all {
		symbols = symbols.Registered()
	}
	for _, e := range symbols.All() {
		s.Symbols = append(s.Symbols, symbol(e))
	}

	for _, dt := range tmc.DataTypes.All() {
		children := tmc.SubItems[dt.Name]
		if !all {
			children = children.Registered()
			if children.Len() == 0 {
				continue
			}
		}
		d := DataType{Name: dt.Name, Kind: string(dt.DataKind), Extends: dt.Extends}
		for _, si := range children.All() {
			d.SubItems = append(d.SubItems, symbol(si))
		}
		s.DataTypes = append(s.DataTypes, d)
	}

	for _, p := range packs {
		typ, _ := p.Pragma.Value("type")
		var missing []string
		for _, r := range p.MissingLines() {
			missing = append(missing, r.String())
		}
		s.PVs = append(s.PVs, PV{
			PV:         p.PVComplete,
			TcPath:     p.TcPath(),
			RecordType: typ,
			IO:         p.IO(),
			Complete:   len(missing) == 0,
			Missing:    missing,
		})
	}
	return s
}

func symbol(e *domain.Element) Symbol {
	out := Symbol{
		Name:   e.Name,
		Type:   e.Type,
		TcType: e.TcType(),
		PVs:    e.PVs(),
	}
	if e.IsArray {
		out.Array = e.ArrayLength
	}
	if e.Pragma != nil {
		out.Pragma = e.Pragma.String()
	}
	return out
}
