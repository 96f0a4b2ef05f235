// Package stcmd renders IOC startup scripts from a .tmc file, its records
// and user supplied template arguments.
package stcmd

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/pcdshub/pytmc/internal/domain"
)

// DefaultTemplate is the name of the built-in startup script template.
const DefaultTemplate = "stcmd_default.cmd"

// Default ports named in the generated script.
const (
	MotorPort = "PLC_ADS"
	AsynPort  = "ASYN_PLC"
)

//go:embed templates/*.cmd
var builtin embed.FS

// Args are the values every template can rely on. Extras are merged on top
// and take precedence.
type Args struct {
	BinaryName string
	Name       string
	Prefix     string
	Delim      string
	User       string

	MotorPort string
	AsynPort  string
	AmsID     string
	IP        string
	AdsPort   int

	DBFiles []DBFile
	Symbols map[string][]*domain.Element
	Records []domain.Record
}

// DBFile is an additional database loaded by the script.
type DBFile struct {
	File   string
	Macros string
}

// Map flattens the arguments into template names.
func (a Args) Map() map[string]any {
	dbFiles := make([]map[string]string, 0, len(a.DBFiles))
	for _, f := range a.DBFiles {
		dbFiles = append(dbFiles, map[string]string{"file": f.File, "macros": f.Macros})
	}
	symbols := a.Symbols
	if symbols == nil {
		symbols = map[string][]*domain.Element{}
	}
	return map[string]any{
		"binary_name":         a.BinaryName,
		"name":                a.Name,
		"prefix":              a.Prefix,
		"delim":               a.Delim,
		"user":                a.User,
		"motor_port":          a.MotorPort,
		"asyn_port":           a.AsynPort,
		"plc_ams_id":          a.AmsID,
		"plc_ip":              a.IP,
		"plc_ads_port":        a.AdsPort,
		"additional_db_files": dbFiles,
		"symbols":             symbols,
		"records":             a.Records,
	}
}

// SymbolsByType groups the symbols of tmc by their TwinCAT type.
func SymbolsByType(tmc *domain.TmcFile) map[string][]*domain.Element {
	out := map[string][]*domain.Element{}
	if tmc == nil {
		return out
	}
	for _, sym := range tmc.Symbols.All() {
		out[sym.Type] = append(out[sym.Type], sym)
	}
	return out
}

// Funcs returns the template helpers bound to a PV delimiter.
func Funcs(delim string) template.FuncMap {
	return template.FuncMap{
		"epics_prefix": func(e *domain.Element) string {
			p, _ := epicsName(e, delim)
			return p
		},
		"epics_suffix": func(e *domain.Element) string {
			_, s := epicsName(e, delim)
			return s
		},
		"pragma": func(e *domain.Element, key string, def ...string) string {
			fallback := ""
			if len(def) > 0 {
				fallback = def[0]
			}
			if e == nil || e.Pragma == nil {
				return fallback
			}
			if key == domain.HeaderTitle {
				if names := e.Pragma.Names(); len(names) > 0 {
					return strings.Join(names, delim)
				}
				return fallback
			}
			if v, ok := e.Pragma.Value(key); ok {
				return v
			}
			return fallback
		},
	}
}

// epicsName splits the record name of an element into prefix and suffix.
// Pragma PV names are joined with delim and carry no prefix; any other
// element keeps its TwinCAT name as is.
func epicsName(e *domain.Element, delim string) (string, string) {
	if e == nil {
		return "", ""
	}
	if names := e.PVs(); len(names) > 0 {
		return "", strings.Join(names, delim)
	}
	return "", e.Name
}

// Renderer loads templates from the built-in set or a directory.
type Renderer struct {
	dir string
}

// NewRenderer looks up templates in dir after the built-in ones.
func NewRenderer(dir string) *Renderer {
	return &Renderer{dir: dir}
}

func (r *Renderer) load(name string) (string, error) {
	if name == "" {
		name = DefaultTemplate
	}
	if data, err := builtin.ReadFile("templates/" + name); err == nil {
		return string(data), nil
	}

	path := name
	if !filepath.IsAbs(path) && r.dir != "" {
		path = filepath.Join(r.dir, name)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &domain.OpError{Op: "stcmd.template", Kind: domain.KindNotFound, Path: path, Err: domain.ErrNotFound}
		}
		return "", &domain.OpError{Op: "stcmd.template", Kind: domain.KindInvalidConfig, Path: path, Err: err}
	}
	return string(data), nil
}

// Render executes the named template with args overlaid by extras.
func (r *Renderer) Render(name string, args Args, extras map[string]any) (string, error) {
	text, err := r.load(name)
	if err != nil {
		return "", err
	}
	if name == "" {
		name = DefaultTemplate
	}

	tpl, err := template.New(name).Funcs(Funcs(args.Delim)).Parse(text)
	if err != nil {
		return "", &domain.OpError{Op: "stcmd.parse", Kind: domain.KindInvalidConfig, Path: name, Err: err}
	}

	data := args.Map()
	for k, v := range extras {
		data[k] = v
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", &domain.OpError{Op: "stcmd.render", Kind: domain.KindExecution, Path: name, Err: err}
	}
	return buf.String(), nil
}

// ExtrasToMap parses VAR=VALUE and VAR:=VALUE settings. Repeated VAR=VALUE
// settings build a list; VAR:=VALUE forces a scalar.
func ExtrasToMap(lines []string) (map[string]any, error) {
	out := map[string]any{}
	for _, line := range lines {
		if !strings.Contains(line, "=") {
			return nil, &domain.OpError{
				Op:   "stcmd.extras",
				Kind: domain.KindInvalidConfig,
				Err:  fmt.Errorf("extras must be in the form of VAR=VALUE, got %q: %w", line, domain.ErrInvalidConfig),
			}
		}
		if name, value, ok := strings.Cut(line, ":="); ok {
			out[name] = value
			continue
		}
		name, value, _ := strings.Cut(line, "=")
		list, _ := out[name].([]string)
		out[name] = append(list, value)
	}
	return out, nil
}

// ExtraJSON reads template arguments from a JSON file, or from the value
// itself when it is an inline JSON object.
func ExtraJSON(value string) (map[string]any, error) {
	if value == "" {
		return map[string]any{}, nil
	}

	var data []byte
	path := expandHome(value)
	if b, err := os.ReadFile(path); err == nil {
		data = b
	} else if strings.HasPrefix(strings.TrimSpace(value), "{") {
		data = []byte(value)
	} else {
		return nil, &domain.OpError{
			Op:   "stcmd.extra_json",
			Kind: domain.KindInvalidConfig,
			Path: value,
			Err:  fmt.Errorf("extra json must be a filename or a JSON object: %w", domain.ErrInvalidConfig),
		}
	}

	out := map[string]any{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &domain.OpError{Op: "stcmd.extra_json", Kind: domain.KindInvalidConfig, Path: value, Err: err}
	}
	return out, nil
}

// MergeExtras applies JSON extras first and command line extras last.
func MergeExtras(jsonValues []string, lines []string) (map[string]any, error) {
	out := map[string]any{}
	for _, v := range jsonValues {
		m, err := ExtraJSON(v)
		if err != nil {
			return nil, err
		}
		for k, val := range m {
			out[k] = val
		}
	}
	m, err := ExtrasToMap(lines)
	if err != nil {
		return nil, err
	}
	for k, val := range m {
		out[k] = val
	}
	return out, nil
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
