// Package guess completes PV package pragmas from the TwinCAT type of the
// target variable. Lines already present in the pragma are never replaced.
package guess

import (
	"fmt"

	"github.com/pcdshub/pytmc/internal/domain"
	"github.com/pcdshub/pytmc/internal/usecase/pvpack"
)

type kind int

const (
	kindUnknown kind = iota
	kindBinary
	kindInteger
	kindFloat
	kindString
	kindEnum
)

var typeKinds = map[string]kind{
	"BOOL":   kindBinary,
	"BYTE":   kindInteger,
	"WORD":   kindInteger,
	"DWORD":  kindInteger,
	"SINT":   kindInteger,
	"USINT":  kindInteger,
	"INT":    kindInteger,
	"UINT":   kindInteger,
	"DINT":   kindInteger,
	"UDINT":  kindInteger,
	"LINT":   kindInteger,
	"ULINT":  kindInteger,
	"REAL":   kindFloat,
	"LREAL":  kindFloat,
	"STRING": kindString,
	"ENUM":   kindEnum,
}

// record types as (input, output)
var recordTypes = map[kind][2]string{
	kindBinary:  {"bi", "bo"},
	kindInteger: {"longin", "longout"},
	kindFloat:   {"ai", "ao"},
	kindString:  {"stringin", "stringout"},
	kindEnum:    {"mbbi", "mbbo"},
}

var formats = map[kind]string{
	kindBinary:  "%d",
	kindInteger: "%d",
	kindFloat:   "%f",
	kindString:  "%s",
	kindEnum:    "%d",
}

var waveformTypes = map[string]string{
	"BOOL":  "CHAR",
	"BYTE":  "UCHAR",
	"SINT":  "CHAR",
	"USINT": "UCHAR",
	"INT":   "SHORT",
	"UINT":  "USHORT",
	"WORD":  "USHORT",
	"DINT":  "LONG",
	"UDINT": "ULONG",
	"DWORD": "ULONG",
	"REAL":  "FLOAT",
	"LREAL": "DOUBLE",
}

// Apply fills absent io, type, str, DTYP, SCAN and INP/OUT lines.
func Apply(p *pvpack.Package) {
	cfg := p.Pragma
	target := p.Target()
	tcType := target.TcType()
	k := typeKinds[tcType]

	if _, ok := cfg.Value("io"); !ok {
		cfg.AddLine("io", "i", -1, false)
	}
	out := p.IsOutput()

	if _, ok := cfg.Value("type"); !ok {
		if rt := recordType(target, k, out); rt != "" {
			cfg.AddLine("type", rt, -1, false)
		}
	}
	if _, ok := cfg.Value("str"); !ok {
		if f, ok := formats[k]; ok {
			cfg.AddLine("str", f, -1, false)
		}
	}

	if target.IsArray && k != kindUnknown && k != kindString {
		addField(cfg, "NELM", fmt.Sprint(target.ArrayLength))
		if ftvl, ok := waveformTypes[tcType]; ok {
			addField(cfg, "FTVL", ftvl)
		}
	}

	if p.UseProto {
		addField(cfg, "DTYP", "stream")
	} else {
		addField(cfg, "DTYP", "Soft Channel")
	}

	if out {
		addField(cfg, "SCAN", "Passive")
	} else {
		addField(cfg, "SCAN", "1 second")
	}

	// Without a protocol file the link cannot be built; INP/OUT stay missing
	// so the package is reported as incomplete.
	if p.UseProto && p.ProtoName != "" && p.ProtoFile != "" {
		link := fmt.Sprintf("@%s %s($(PORT))", p.ProtoFile, p.ProtoName)
		if out {
			addField(cfg, "OUT", link)
		} else {
			addField(cfg, "INP", link)
		}
	}

	p.GuessingApplied = true
}

// ApplyAll guesses every package in place.
func ApplyAll(packs []*pvpack.Package) {
	for _, p := range packs {
		Apply(p)
	}
}

func recordType(target *domain.Element, k kind, out bool) string {
	if target.IsArray && k != kindUnknown && k != kindString {
		return "waveform"
	}
	pair, ok := recordTypes[k]
	if !ok {
		return ""
	}
	if out {
		return pair[1]
	}
	return pair[0]
}

func addField(cfg *domain.Configuration, name, set string) {
	if len(cfg.Fields(name)) > 0 {
		return
	}
	cfg.AddField(name, set, -1, false)
}
