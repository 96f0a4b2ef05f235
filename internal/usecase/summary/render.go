package summary

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// Write prints v in the requested format. pretty is only meaningful for a
// Summary; other values fall back to JSON.
func Write(w io.Writer, v any, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "pretty", "":
		s, ok := v.(Summary)
		if !ok {
			return Write(w, v, "json")
		}
		return writePretty(w, s)
	default:
		return fmt.Errorf("unsupported format %q (expected pretty|json|yaml)", format)
	}
}

func writePretty(w io.Writer, s Summary) error {
	fmt.Fprintf(w, "File: %s\n\n", s.File)

	fmt.Fprintf(w, "Symbols (%d)\n", len(s.Symbols))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, sym := range s.Symbols {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", sym.Name, sym.Type, strings.Join(sym.PVs, ", "))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nData types (%d)\n", len(s.DataTypes))
	for _, dt := range s.DataTypes {
		kind := dt.Kind
		if dt.Extends != "" {
			kind += " extends " + dt.Extends
		}
		fmt.Fprintf(w, "  %s [%s]\n", dt.Name, kind)
		for _, si := range dt.SubItems {
			fmt.Fprintf(w, "    - %s : %s\n", si.Name, si.Type)
		}
	}

	fmt.Fprintf(w, "\nPVs (%d)\n", len(s.PVs))
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, pv := range s.PVs {
		mark := "✓"
		if !pv.Complete {
			mark = "✗"
		}
		fmt.Fprintf(tw, "  %s %s\t%s\t%s\n", mark, pv.PV, pv.RecordType, pv.TcPath)
	}
	return tw.Flush()
}
