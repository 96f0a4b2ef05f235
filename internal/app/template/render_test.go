package template

import (
	"testing"

	"github.com/pcdshub/pytmc/internal/domain"
)

func TestExpandMacrosSingle(t *testing.T) {
	out, err := ExpandMacros(`field(INP, "@test.proto GetX() $(PORT)")`, domain.Vars{"PORT": "ASYN_PLC"}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != `field(INP, "@test.proto GetX() ASYN_PLC")` {
		t.Fatalf("unexpected expansion %q", out)
	}
}

func TestExpandMacrosDefault(t *testing.T) {
	out, err := ExpandMacros("$(P=TST):$(R)", domain.Vars{"R": "MOT"}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "TST:MOT" {
		t.Fatalf("unexpected expansion %q", out)
	}
}

func TestExpandMacrosUndefinedKeptWhenLenient(t *testing.T) {
	out, err := ExpandMacros("A $(PORT) B", nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "A $(PORT) B" {
		t.Fatalf("expected macro kept verbatim, got %q", out)
	}
}

func TestExpandMacrosUndefinedStrict(t *testing.T) {
	_, err := ExpandMacros("$(PORT)", nil, true)
	if !domain.IsKind(err, domain.KindMissingVar) {
		t.Fatalf("expected missing variable error, got %v", err)
	}
}

func TestExpandMacrosMalformed(t *testing.T) {
	if _, err := ExpandMacros("$(PORT", nil, false); !domain.IsKind(err, domain.KindInvalidConfig) {
		t.Fatalf("expected invalid config for unclosed reference, got %v", err)
	}
	if _, err := ExpandMacros("$()", nil, false); !domain.IsKind(err, domain.KindInvalidConfig) {
		t.Fatalf("expected invalid config for empty reference, got %v", err)
	}
}

func TestParseMacros(t *testing.T) {
	m, err := ParseMacros([]string{"PORT=ASYN_PLC", "EMPTY="})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m["PORT"] != "ASYN_PLC" || m["EMPTY"] != "" {
		t.Fatalf("unexpected macros %v", m)
	}
	if _, err := ParseMacros([]string{"novalue"}); err == nil {
		t.Fatalf("expected error for pair without '='")
	}
}
