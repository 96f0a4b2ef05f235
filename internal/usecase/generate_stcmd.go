package usecase

import (
	"context"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/pcdshub/pytmc/internal/ctxlog"
	"github.com/pcdshub/pytmc/internal/ports"
	"github.com/pcdshub/pytmc/internal/usecase/stcmd"
)

// StcmdOptions configure startup script generation. Empty values fall back
// to defaults derived from the .tmc file name.
type StcmdOptions struct {
	Build BuildOptions

	Name   string
	Prefix string
	Binary string
	Delim  string
	User   string

	AmsID   string
	IP      string
	AdsPort int

	DBPath string
	NoDB   bool

	Template    string
	TemplateDir string
	Extras      map[string]any
}

// StcmdResult carries the rendered script and what went into it.
type StcmdResult struct {
	Script  string
	DBFile  string
	Args    stcmd.Args
	Records RecordSet
}

type GenerateStcmd struct {
	loader ports.TmcLoader
	store  ports.ArtifactStore
}

func NewGenerateStcmd(loader ports.TmcLoader, store ports.ArtifactStore) *GenerateStcmd {
	return &GenerateStcmd{loader: loader, store: store}
}

// Execute renders the startup script for the .tmc file at path. Unless
// NoDB is set, the records are written to <DBPath>/<stem>.db first and the
// file is listed in additional_db_files. On a render failure the result
// still carries the template arguments.
func (uc *GenerateStcmd) Execute(ctx context.Context, path string, opts StcmdOptions) (StcmdResult, error) {
	log := ctxlog.FromContext(ctx)

	tmc, err := uc.loader.LoadTmc(path)
	if err != nil {
		return StcmdResult{}, err
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if opts.Name == "" {
		opts.Name = stem
	}
	if opts.Prefix == "" {
		opts.Prefix = strings.ToUpper(opts.Name)
	}
	if opts.Delim == "" {
		opts.Delim = ":"
	}
	if opts.Binary == "" {
		opts.Binary = "adsMotion"
	}
	if opts.AdsPort == 0 {
		opts.AdsPort = 851
	}
	if opts.User == "" {
		opts.User = currentUser()
	}
	if opts.Build.Delim == "" {
		opts.Build.Delim = opts.Delim
	}

	res := StcmdResult{
		Args: stcmd.Args{
			BinaryName: opts.Binary,
			Name:       opts.Name,
			Prefix:     opts.Prefix,
			Delim:      opts.Delim,
			User:       opts.User,
			MotorPort:  stcmd.MotorPort,
			AsynPort:   stcmd.AsynPort,
			AmsID:      opts.AmsID,
			IP:         opts.IP,
			AdsPort:    opts.AdsPort,
			Symbols:    stcmd.SymbolsByType(tmc),
		},
	}

	if !opts.NoDB {
		rs, err := Build(ctx, tmc, opts.Build)
		if err != nil {
			return res, err
		}
		res.Records = rs
		res.Args.Records = rs.Records

		if len(rs.Records) == 0 {
			log.Info("stcmd.no_records", "path", path)
		} else {
			dbName := stem + ".db"
			dbPath := dbName
			if opts.DBPath != "" {
				dbPath = filepath.Join(opts.DBPath, dbName)
			}
			written, err := uc.store.WriteFile(dbPath, []byte(rs.DB()+"\n"))
			if err != nil {
				return res, err
			}
			res.DBFile = written
			res.Args.DBFiles = append(res.Args.DBFiles, stcmd.DBFile{File: dbName})
			log.Info("stcmd.db.written", "path", written, "records", len(rs.Records))
		}
	}

	script, err := stcmd.NewRenderer(opts.TemplateDir).Render(opts.Template, res.Args, opts.Extras)
	if err != nil {
		return res, err
	}
	res.Script = script
	return res, nil
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if v := os.Getenv("USER"); v != "" {
		return v
	}
	return "unknown"
}
