package guess

import (
	"testing"

	"github.com/pcdshub/pytmc/internal/domain"
	"github.com/pcdshub/pytmc/internal/usecase/pvpack"
)

func pack(t *testing.T, typ, pragma string, opts pvpack.Options) *pvpack.Package {
	t.Helper()
	cfg, err := domain.ParsePragma(pragma)
	if err != nil {
		t.Fatalf("parse pragma: %v", err)
	}
	e := &domain.Element{
		Kind:       domain.KindSymbol,
		Name:       "MAIN.var",
		Type:       typ,
		Properties: map[string]string{domain.PragmaKey: pragma},
		Pragma:     cfg,
	}
	packs := pvpack.FromElementPath([]*domain.Element{e}, opts)
	if len(packs) != 1 {
		t.Fatalf("expected 1 package, got %d", len(packs))
	}
	return packs[0]
}

func value(t *testing.T, p *pvpack.Package, title string) string {
	t.Helper()
	v, ok := p.Pragma.Value(title)
	if !ok {
		t.Fatalf("missing %q line in %s", title, p.Pragma)
	}
	return v
}

func field(t *testing.T, p *pvpack.Package, name string) string {
	t.Helper()
	lines := p.Pragma.Fields(name)
	if len(lines) != 1 {
		t.Fatalf("expected one %s field, got %d", name, len(lines))
	}
	return lines[0].Field.Set
}

func TestApply_RecordTypes(t *testing.T) {
	cases := []struct {
		typ, io, wantType, wantStr string
	}{
		{"BOOL", "i", "bi", "%d"},
		{"BOOL", "o", "bo", "%d"},
		{"DINT", "i", "longin", "%d"},
		{"UINT", "o", "longout", "%d"},
		{"LREAL", "i", "ai", "%f"},
		{"REAL", "o", "ao", "%f"},
		{"STRING(80)", "i", "stringin", "%s"},
		{"STRING(20)", "o", "stringout", "%s"},
	}
	for _, c := range cases {
		p := pack(t, c.typ, "pv: X; io: "+c.io, pvpack.Options{})
		Apply(p)
		if got := value(t, p, "type"); got != c.wantType {
			t.Errorf("%s/%s: type = %q, want %q", c.typ, c.io, got, c.wantType)
		}
		if got := value(t, p, "str"); got != c.wantStr {
			t.Errorf("%s/%s: str = %q, want %q", c.typ, c.io, got, c.wantStr)
		}
	}
}

func TestApply_Enum(t *testing.T) {
	p := pack(t, "E_State", "pv: X; io: o", pvpack.Options{})
	p.Target().IsEnum = true
	Apply(p)
	if got := value(t, p, "type"); got != "mbbo" {
		t.Fatalf("type = %q, want mbbo", got)
	}
}

func TestApply_DefaultsToInput(t *testing.T) {
	p := pack(t, "DINT", "pv: X", pvpack.Options{})
	Apply(p)
	if got := value(t, p, "io"); got != "i" {
		t.Fatalf("io = %q, want i", got)
	}
	if got := field(t, p, "SCAN"); got != `"1 second"` {
		t.Fatalf("SCAN = %s", got)
	}
	if got := field(t, p, "DTYP"); got != `"Soft Channel"` {
		t.Fatalf("DTYP = %s", got)
	}
	if !p.GuessingApplied {
		t.Fatalf("expected GuessingApplied")
	}
}

func TestApply_WithProtoIsComplete(t *testing.T) {
	in := pack(t, "DINT", "pv: X; io: i", pvpack.Options{ProtoName: "Count", ProtoFile: "plc.proto"})
	Apply(in)
	if got := field(t, in, "INP"); got != `"@plc.proto GetCount($(PORT))"` {
		t.Fatalf("INP = %s", got)
	}
	if got := field(t, in, "DTYP"); got != `"stream"` {
		t.Fatalf("DTYP = %s", got)
	}
	if !in.IsConfigComplete() {
		t.Fatalf("expected complete config, missing %v", in.MissingLines())
	}

	out := pack(t, "DINT", "pv: X; io: o", pvpack.Options{ProtoName: "Count", ProtoFile: "plc.proto"})
	Apply(out)
	if got := field(t, out, "OUT"); got != `"@plc.proto SetCount($(PORT))"` {
		t.Fatalf("OUT = %s", got)
	}
	if got := field(t, out, "SCAN"); got != `"Passive"` {
		t.Fatalf("SCAN = %s", got)
	}
	if !out.IsConfigComplete() {
		t.Fatalf("expected complete config, missing %v", out.MissingLines())
	}
}

func TestApply_ProtoWithoutFileLeavesLinkMissing(t *testing.T) {
	in := pack(t, "DINT", "pv: X; io: i", pvpack.Options{ProtoName: "Val"})
	Apply(in)
	if lines := in.Pragma.Fields("INP"); len(lines) != 0 {
		t.Fatalf("expected no INP link without a protocol file, got %v", lines)
	}
	if in.IsConfigComplete() {
		t.Fatalf("expected incomplete config")
	}

	out := pack(t, "DINT", "pv: X; io: o", pvpack.Options{ProtoName: "Val"})
	Apply(out)
	if lines := out.Pragma.Fields("OUT"); len(lines) != 0 {
		t.Fatalf("expected no OUT link without a protocol file, got %v", lines)
	}
}

func TestApply_ExplicitLinesWin(t *testing.T) {
	p := pack(t, "DINT", `pv: X; io: i; type: ai; str: %x; field: SCAN .1 second`, pvpack.Options{})
	Apply(p)
	if got := value(t, p, "type"); got != "ai" {
		t.Fatalf("type overwritten: %q", got)
	}
	if got := value(t, p, "str"); got != "%x" {
		t.Fatalf("str overwritten: %q", got)
	}
	if got := field(t, p, "SCAN"); got != ".1 second" {
		t.Fatalf("SCAN overwritten: %s", got)
	}
}

func TestApply_Waveform(t *testing.T) {
	p := pack(t, "LREAL", "pv: X; io: i", pvpack.Options{})
	p.Target().IsArray = true
	p.Target().ArrayLength = 10
	Apply(p)
	if got := value(t, p, "type"); got != "waveform" {
		t.Fatalf("type = %q", got)
	}
	if got := field(t, p, "NELM"); got != `"10"` {
		t.Fatalf("NELM = %s", got)
	}
	if got := field(t, p, "FTVL"); got != `"DOUBLE"` {
		t.Fatalf("FTVL = %s", got)
	}
}

func TestApply_UnknownTypeLeavesTypeMissing(t *testing.T) {
	p := pack(t, "T_Custom", "pv: X", pvpack.Options{})
	Apply(p)
	if _, ok := p.Pragma.Value("type"); ok {
		t.Fatalf("did not expect a type guess")
	}
	if p.IsConfigComplete() {
		t.Fatalf("expected incomplete config")
	}
}
