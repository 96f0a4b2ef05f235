package tui

import (
	"strings"
	"unicode/utf8"

	"github.com/pcdshub/pytmc/internal/usecase/pvpack"
)

func clampString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))

	n := 0
	for _, r := range s {
		if n >= maxLen {
			break
		}
		b.WriteRune(r)
		n++
	}
	return b.String() + "…"
}

func renderPackageDetails(p *pvpack.Package) string {
	if p == nil {
		return "(nothing selected)"
	}

	var b strings.Builder
	b.WriteString("PV: ")
	b.WriteString(p.PVComplete)
	b.WriteString("\nTwinCAT path: ")
	b.WriteString(p.TcPath())
	if p.Prefix != "" {
		b.WriteString("\nPrefix: ")
		b.WriteString(p.Prefix)
	}
	if target := p.Target(); target != nil {
		b.WriteString("\nType: ")
		b.WriteString(target.Type)
	}
	if p.UseProto {
		b.WriteString("\nProtocol: ")
		b.WriteString(p.ProtoName)
		if p.ProtoFile != "" {
			b.WriteString(" (")
			b.WriteString(p.ProtoFile)
			b.WriteString(")")
		}
	}
	if p.GuessingApplied {
		b.WriteString("\nGuessing applied")
	}
	b.WriteString("\n\n")

	b.WriteString("Pragma:\n")
	if p.Pragma == nil || len(p.Pragma.Lines) == 0 {
		b.WriteString("  (none)\n")
	} else {
		for _, l := range p.Pragma.Lines {
			b.WriteString("  - ")
			b.WriteString(clampString(l.String(), 120))
			b.WriteString("\n")
		}
	}

	if missing := p.MissingLines(); len(missing) > 0 {
		b.WriteString("\nMissing:\n")
		for _, r := range missing {
			b.WriteString("  - ")
			b.WriteString(r.String())
			b.WriteString("\n")
		}
		return b.String()
	}

	b.WriteString("\nRecord:\n")
	rec, err := p.Record()
	if err != nil {
		b.WriteString("  ")
		b.WriteString(userMessage(err))
		b.WriteString("\n")
		return b.String()
	}
	b.WriteString(rec.Render())
	b.WriteString("\n")
	if proto, ok := p.Proto(); ok {
		b.WriteString("\nProtocol entry:\n")
		b.WriteString(proto.Render())
		b.WriteString("\n")
	}
	return b.String()
}
