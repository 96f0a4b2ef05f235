package domain

import (
	"fmt"
	"strings"
)

// RecordField is one EPICS record field assignment. Value is rendered as is
// and is expected to be quoted already.
type RecordField struct {
	Name  string
	Value string
}

// Record is an EPICS database record.
type Record struct {
	PV     string
	Type   string
	Fields []RecordField

	// TcPath is the dotted TwinCAT path of the variable behind the record.
	TcPath string
}

// Render produces the db file text of the record.
func (r Record) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "record(%s, \"%s\") {\n", r.Type, r.PV)
	for _, f := range r.Fields {
		fmt.Fprintf(&b, "  field(%s, %s)\n", f.Name, f.Value)
	}
	b.WriteString("}")
	return b.String()
}

// RenderRecords joins records with a blank line between them.
func RenderRecords(records []Record) string {
	parts := make([]string, 0, len(records))
	for _, r := range records {
		parts = append(parts, r.Render())
	}
	return strings.Join(parts, "\n\n")
}

// Proto is a StreamDevice protocol entry.
type Proto struct {
	Name   string
	TcPath string
	Format string
	Output bool
}

// Render produces the protocol file text of the entry.
func (p Proto) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s {\n", p.Name)
	if p.Output {
		fmt.Fprintf(&b, "    out \"%s=%s\";\n", p.TcPath, p.Format)
		b.WriteString("    in \"OK\";\n")
	} else {
		fmt.Fprintf(&b, "    out \"%s?\";\n", p.TcPath)
		fmt.Fprintf(&b, "    in \"%s\";\n", p.Format)
	}
	b.WriteString("}")
	return b.String()
}

// RenderProtos joins protocol entries with a blank line between them.
func RenderProtos(protos []Proto) string {
	parts := make([]string, 0, len(protos))
	for _, p := range protos {
		parts = append(parts, p.Render())
	}
	return strings.Join(parts, "\n\n")
}
