package tmcfile

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"

	"github.com/pcdshub/pytmc/internal/domain"
	"github.com/pcdshub/pytmc/internal/ports"
)

// PlcDataArea is the data area holding the PLC task's symbols.
const PlcDataArea = "PlcTask Internal"

type Loader struct {
	dataArea string
}

type Option func(*Loader)

// WithDataArea selects the data area symbols are read from.
func WithDataArea(name string) Option {
	return func(l *Loader) { l.dataArea = name }
}

func NewLoader(opts ...Option) *Loader {
	l := &Loader{dataArea: PlcDataArea}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

var _ ports.TmcLoader = (*Loader)(nil)

func (l *Loader) LoadTmc(path string) (*domain.TmcFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.OpError{
			Op:   "tmcfile.load",
			Kind: domain.KindNotFound,
			Path: path,
			Err:  err,
		}
	}
	return l.Parse(bytes.NewReader(b), path)
}

// Parse reads a .tmc document from r. path is only used for error context.
func (l *Loader) Parse(r io.Reader, path string) (*domain.TmcFile, error) {
	var doc xmlDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, &domain.OpError{
			Op:   "tmcfile.parse",
			Kind: domain.KindInvalidConfig,
			Path: path,
			Err:  err,
		}
	}

	tmc := &domain.TmcFile{
		Path:      path,
		Symbols:   domain.NewCollector(),
		DataTypes: domain.NewCollector(),
		SubItems:  map[string]*domain.Collector{},
	}

	for _, xdt := range doc.DataTypes {
		dt, err := mapDataType(path, xdt)
		if err != nil {
			return nil, err
		}
		tmc.DataTypes.Add(dt)

		subs := domain.NewCollector()
		for _, xsi := range xdt.SubItems {
			si, err := mapSubItem(path, dt.Name, xsi)
			if err != nil {
				return nil, err
			}
			subs.Add(si)
		}
		tmc.SubItems[dt.Name] = subs
	}

	for _, m := range doc.Modules {
		for _, area := range m.DataAreas {
			if area.Name != l.dataArea {
				continue
			}
			for _, xs := range area.Symbols {
				sym, err := mapSymbol(path, xs)
				if err != nil {
					return nil, err
				}
				tmc.Symbols.Add(sym)
			}
		}
	}

	markEnums(tmc)
	return tmc, nil
}

func markEnums(tmc *domain.TmcFile) {
	isEnum := func(typeName string) bool {
		dt, ok := tmc.DataTypes.Get(typeName)
		return ok && dt.DataKind == domain.DataEnum
	}
	for _, s := range tmc.Symbols.All() {
		s.IsEnum = isEnum(s.Type)
	}
	for _, subs := range tmc.SubItems {
		for _, si := range subs.All() {
			si.IsEnum = isEnum(si.Type)
		}
	}
}

func mapSymbol(path string, xs xmlSymbol) (*domain.Element, error) {
	e := &domain.Element{
		Kind:       domain.KindSymbol,
		Name:       xs.Name,
		Type:       xs.BaseType,
		Properties: xs.Properties.toMap(),
	}
	applyArray(e, xs.ArrayInfo)
	return withPragma(path, e)
}

func mapSubItem(path, parent string, xs xmlSubItem) (*domain.Element, error) {
	e := &domain.Element{
		Kind:       domain.KindSubItem,
		Name:       xs.Name,
		Type:       xs.Type,
		Parent:     parent,
		Properties: xs.Properties.toMap(),
	}
	applyArray(e, xs.ArrayInfo)
	return withPragma(path, e)
}

func mapDataType(path string, xd xmlDataType) (*domain.Element, error) {
	e := &domain.Element{
		Kind:        domain.KindDataType,
		Name:        xd.Name,
		Type:        xd.BaseType,
		Extends:     xd.ExtendsType,
		HasSubItems: len(xd.SubItems) > 0,
		Properties:  xd.Properties.toMap(),
	}
	applyArray(e, xd.ArrayInfo)

	switch {
	case len(xd.EnumInfo) > 0:
		e.DataKind = domain.DataEnum
	case xd.Properties != nil:
		e.DataKind = domain.DataFunctionBlock
	case len(xd.SubItems) > 0:
		e.DataKind = domain.DataStruct
	}
	return withPragma(path, e)
}

func applyArray(e *domain.Element, infos []xmlArrayInfo) {
	if len(infos) == 0 {
		return
	}
	e.IsArray = true
	n := 1
	for _, ai := range infos {
		n *= ai.Elements
	}
	e.ArrayLength = n
}

func withPragma(path string, e *domain.Element) (*domain.Element, error) {
	raw, ok := e.RawConfig()
	if !ok {
		return e, nil
	}
	cfg, err := domain.ParsePragma(raw)
	if err != nil {
		return nil, &domain.OpError{
			Op:   "tmcfile.pragma",
			Kind: domain.KindInvalidPragma,
			Path: path,
			Err:  fmt.Errorf("%s %s: %w", e.Kind, e.Name, err),
		}
	}
	e.Pragma = cfg
	return e, nil
}
