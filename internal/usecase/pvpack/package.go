package pvpack

import (
	"fmt"
	"strings"

	"github.com/pcdshub/pytmc/internal/domain"
)

// VersionLegacy is the only supported rule set for completing pragmas.
const VersionLegacy = "legacy"

// Requirement is a pragma line a package must carry. Field is set for
// "field:" requirements and names the EPICS field.
type Requirement struct {
	Title string
	Field string
}

func (r Requirement) String() string {
	if r.Field != "" {
		return r.Title + ": " + r.Field
	}
	return r.Title
}

var legacyRequirements = []Requirement{
	{Title: domain.HeaderTitle},
	{Title: "type"},
	{Title: "str"},
	{Title: "io"},
	{Title: domain.FieldTitle, Field: "DTYP"},
	{Title: domain.FieldTitle, Field: "SCAN"},
	{Title: domain.FieldTitle, Field: "INP"},
}

// Package holds everything needed to emit one EPICS record for one PV.
type Package struct {
	Path   []*domain.Element
	Pragma *domain.Configuration

	PVPartial  string
	Prefix     string
	PVComplete string

	ProtoName string
	ProtoFile string
	UseProto  bool

	Version         string
	GuessingApplied bool
}

// Options control FromElementPath. UseProto nil means "use protocols when a
// proto name or file is given". Without a ProtoName, each package derives its
// protocol stem from the TwinCAT path so protocol names stay unique.
type Options struct {
	ProtoName string
	ProtoFile string
	UseProto  *bool
	Delim     string
}

// New builds a package from a chain of frozen elements.
func New(chain []*domain.Element, delim string) *Package {
	if delim == "" {
		delim = ":"
	}
	last := chain[len(chain)-1]

	p := &Package{
		Path:    chain,
		Pragma:  last.Pragma.Clone(),
		Version: VersionLegacy,
	}
	if p.Pragma == nil {
		p.Pragma = domain.NewConfiguration(nil)
	}
	p.PVPartial, _ = p.Pragma.Value(domain.HeaderTitle)
	p.Prefix, p.PVComplete = joinPVs(chain, p.PVPartial, delim)
	return p
}

// joinPVs concatenates the PVs along the chain. The prefix is made of the
// leading elements' PVs, each followed by delim.
func joinPVs(chain []*domain.Element, partial, delim string) (string, string) {
	acc := domain.NewConfiguration(nil)
	for _, e := range chain[:len(chain)-1] {
		if pv := e.PV(); pv != "" {
			// acc never holds more than one pv line, so Concat cannot fail.
			_ = acc.Concat(pvConfig(pv), delim)
		}
	}

	prefix, _ := acc.Value(domain.HeaderTitle)
	if prefix != "" && !strings.HasSuffix(prefix, delim) {
		prefix += delim
	}
	_ = acc.Concat(pvConfig(partial), delim)
	complete, _ := acc.Value(domain.HeaderTitle)
	return prefix, complete
}

func pvConfig(pv string) *domain.Configuration {
	return domain.NewConfiguration([]domain.Line{MakeConfig(domain.HeaderTitle, pv, false)})
}

// FromElementPath produces one package per unique PV reachable through the
// target path.
func FromElementPath(path []*domain.Element, opts Options) []*Package {
	useProto := opts.ProtoName != "" || opts.ProtoFile != ""
	if opts.UseProto != nil {
		useProto = *opts.UseProto
	}

	var out []*Package
	for _, chain := range Chains(path) {
		p := New(chain, opts.Delim)
		p.UseProto = useProto
		if useProto {
			base := opts.ProtoName
			if base == "" {
				base = protoBase(p.TcPath())
			}
			p.ProtoFile = opts.ProtoFile
			p.ProtoName = protoName(base, p.IO())
		}
		if containsEqual(out, p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// containsEqual reports a package already built for the same PV from an
// identical pragma group, as happens when a pragma repeats a pv block.
func containsEqual(packs []*Package, p *Package) bool {
	for _, q := range packs {
		if q.PVComplete == p.PVComplete && q.Pragma.Equal(p.Pragma) {
			return true
		}
	}
	return false
}

// FromTmc assembles the packages of every target path in the file.
func FromTmc(tmc *domain.TmcFile, opts Options) []*Package {
	var out []*Package
	for _, path := range TargetPaths(tmc) {
		out = append(out, FromElementPath(path, opts)...)
	}
	return out
}

var protoBaseReplacer = strings.NewReplacer(".", "_", "[", "_", "]", "")

// protoBase derives a protocol name stem from a TwinCAT path.
func protoBase(tcPath string) string {
	return protoBaseReplacer.Replace(tcPath)
}

func protoName(base, io string) string {
	switch {
	case strings.Contains(io, "o"):
		return "Set" + base
	case strings.Contains(io, "i"):
		return "Get" + base
	default:
		return base
	}
}

// Target is the TwinCAT variable the package's record is bound to.
func (p *Package) Target() *domain.Element {
	return p.Path[len(p.Path)-1]
}

// TcPath is the dotted TwinCAT path of the target variable.
func (p *Package) TcPath() string {
	names := make([]string, 0, len(p.Path))
	for _, e := range p.Path {
		names = append(names, e.Name)
	}
	return strings.Join(names, ".")
}

// IO returns the pragma's io setting, or "".
func (p *Package) IO() string {
	v, _ := p.Pragma.Value("io")
	return v
}

// IsOutput reports whether the PV writes to the PLC.
func (p *Package) IsOutput() bool {
	return strings.Contains(p.IO(), "o")
}

// Requirements lists the lines this package needs. Outputs require an OUT
// link instead of INP.
func (p *Package) Requirements() []Requirement {
	out := make([]Requirement, len(legacyRequirements))
	copy(out, legacyRequirements)
	if p.IsOutput() {
		out[len(out)-1].Field = "OUT"
	}
	return out
}

// MissingLines returns the unmet requirements in rule order.
func (p *Package) MissingLines() []Requirement {
	var missing []Requirement
	for _, req := range p.Requirements() {
		if !p.has(req) {
			missing = append(missing, req)
		}
	}
	return missing
}

func (p *Package) has(req Requirement) bool {
	if req.Field != "" {
		return len(p.Pragma.Seek(domain.FieldTitle, req.Field)) > 0
	}
	return len(p.Pragma.Get(req.Title)) > 0
}

// IsConfigComplete reports whether every required line is present.
func (p *Package) IsConfigComplete() bool {
	return len(p.MissingLines()) == 0
}

// MakeConfig builds a pragma line. With field set, title is the EPICS
// field name and setting its value.
func MakeConfig(title, setting string, field bool) domain.Line {
	if field {
		return domain.Line{
			Title: domain.FieldTitle,
			Tag:   title + " " + setting,
			Field: &domain.Field{Name: title, Set: setting},
		}
	}
	return domain.Line{Title: title, Tag: setting}
}

// Record renders the package into an EPICS record. Incomplete packages are
// rejected.
func (p *Package) Record() (domain.Record, error) {
	if missing := p.MissingLines(); len(missing) > 0 {
		return domain.Record{}, &domain.OpError{
			Op:   "pvpack.record",
			Kind: domain.KindIncompleteConfig,
			Err:  fmt.Errorf("%s: missing %s: %w", p.PVComplete, joinRequirements(missing), domain.ErrIncompleteConfig),
		}
	}

	typ, _ := p.Pragma.Value("type")
	rec := domain.Record{PV: p.PVComplete, Type: typ, TcPath: p.TcPath()}
	// A field set more than once keeps its first position and its last value.
	pending := p.Pragma.Clone()
	for _, l := range p.Pragma.Lines {
		if l.Field == nil {
			continue
		}
		same := pending.RemoveField(l.Field.Name)
		if len(same) == 0 {
			continue
		}
		last := same[len(same)-1].Field
		rec.Fields = append(rec.Fields, domain.RecordField{Name: last.Name, Value: quoted(last.Set)})
	}
	return rec, nil
}

// Proto returns the StreamDevice protocol entry, when protocols are in use.
func (p *Package) Proto() (domain.Proto, bool) {
	if !p.UseProto || p.ProtoName == "" {
		return domain.Proto{}, false
	}
	format, _ := p.Pragma.Value("str")
	return domain.Proto{
		Name:   p.ProtoName,
		TcPath: p.TcPath(),
		Format: format,
		Output: p.IsOutput(),
	}, true
}

func joinRequirements(reqs []Requirement) string {
	parts := make([]string, 0, len(reqs))
	for _, r := range reqs {
		parts = append(parts, r.String())
	}
	return strings.Join(parts, ", ")
}

func quoted(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return s
	}
	return `"` + s + `"`
}
