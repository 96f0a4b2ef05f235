package usecase

import (
	"context"
	"sort"

	"github.com/pcdshub/pytmc/internal/ctxlog"
	"github.com/pcdshub/pytmc/internal/domain"
	"github.com/pcdshub/pytmc/internal/ports"
	"github.com/pcdshub/pytmc/internal/usecase/guess"
	"github.com/pcdshub/pytmc/internal/usecase/pvpack"
)

// BuildOptions control how PV packages are assembled.
type BuildOptions struct {
	ProtoName string
	ProtoFile string
	UseProto  *bool
	Delim     string

	// NoGuess keeps pragmas exactly as written.
	NoGuess bool
}

func (o BuildOptions) packOptions() pvpack.Options {
	return pvpack.Options{
		ProtoName: o.ProtoName,
		ProtoFile: o.ProtoFile,
		UseProto:  o.UseProto,
		Delim:     o.Delim,
	}
}

// RecordSet is the outcome of building records for one .tmc file.
type RecordSet struct {
	Tmc        *domain.TmcFile
	Packages   []*pvpack.Package
	Records    []domain.Record
	Protos     []domain.Proto
	Incomplete []*pvpack.Package
}

// DB renders the records as a database file.
func (rs RecordSet) DB() string {
	return domain.RenderRecords(rs.Records)
}

// ProtoText renders the protocol entries as a .proto file.
func (rs RecordSet) ProtoText() string {
	return domain.RenderProtos(rs.Protos)
}

type BuildRecords struct {
	loader ports.TmcLoader
}

func NewBuildRecords(loader ports.TmcLoader) *BuildRecords {
	return &BuildRecords{loader: loader}
}

func (uc *BuildRecords) Execute(ctx context.Context, path string, opts BuildOptions) (RecordSet, error) {
	tmc, err := uc.loader.LoadTmc(path)
	if err != nil {
		return RecordSet{}, err
	}
	ctxlog.FromContext(ctx).Info("tmc.loaded",
		"path", path,
		"symbols", tmc.Symbols.Len(),
		"data_types", tmc.DataTypes.Len(),
	)
	return Build(ctx, tmc, opts)
}

// Build assembles, guesses and renders every PV package of tmc. Records come
// out sorted by PV; packages missing required lines are returned in
// Incomplete and produce no record.
func Build(ctx context.Context, tmc *domain.TmcFile, opts BuildOptions) (RecordSet, error) {
	log := ctxlog.FromContext(ctx)
	rs := RecordSet{Tmc: tmc}

	for _, path := range pvpack.TargetPaths(tmc) {
		if err := ctx.Err(); err != nil {
			return rs, err
		}
		rs.Packages = append(rs.Packages, pvpack.FromElementPath(path, opts.packOptions())...)
	}
	if !opts.NoGuess {
		guess.ApplyAll(rs.Packages)
	}

	sort.SliceStable(rs.Packages, func(i, j int) bool {
		return rs.Packages[i].PVComplete < rs.Packages[j].PVComplete
	})

	protoSeen := map[string]bool{}
	for _, p := range rs.Packages {
		rec, err := p.Record()
		if err != nil {
			log.Warn("pvpack.incomplete",
				"pv", p.PVComplete,
				"tc_path", p.TcPath(),
				"missing", requirementNames(p.MissingLines()),
			)
			rs.Incomplete = append(rs.Incomplete, p)
			continue
		}
		rs.Records = append(rs.Records, rec)

		if proto, ok := p.Proto(); ok && !protoSeen[proto.Name+"|"+proto.TcPath] {
			protoSeen[proto.Name+"|"+proto.TcPath] = true
			rs.Protos = append(rs.Protos, proto)
		}
	}

	log.Info("records.built", "records", len(rs.Records), "incomplete", len(rs.Incomplete))
	return rs, nil
}

func requirementNames(reqs []pvpack.Requirement) []string {
	out := make([]string, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, r.String())
	}
	return out
}
