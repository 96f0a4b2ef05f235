package usecase

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pcdshub/pytmc/internal/domain"
	"github.com/pcdshub/pytmc/internal/infra/tmcfile"
)

type memStore struct {
	files map[string][]byte
}

func (s *memStore) SaveRun(domain.PipelineRun) (string, error) { return "", nil }

func (s *memStore) WriteFile(name string, data []byte) (string, error) {
	if s.files == nil {
		s.files = map[string][]byte{}
	}
	s.files[name] = data
	return name, nil
}

func TestGenerateStcmd_Defaults(t *testing.T) {
	store := &memStore{}
	uc := NewGenerateStcmd(tmcfile.NewLoader(), store)

	res, err := uc.Execute(context.Background(), genericTmc, StcmdOptions{
		Build:  BuildOptions{ProtoFile: "generic.proto"},
		DBPath: "db",
		User:   "tester",
		AmsID:  "5.21.50.18.1.1",
		IP:     "172.21.148.227",
	})
	require.NoError(t, err)

	assert.Equal(t, "generic", res.Args.Name)
	assert.Equal(t, "GENERIC", res.Args.Prefix)
	assert.Equal(t, "adsMotion", res.Args.BinaryName)
	assert.Equal(t, 851, res.Args.AdsPort)

	dbPath := filepath.Join("db", "generic.db")
	require.Contains(t, store.files, dbPath)
	assert.Equal(t, dbPath, res.DBFile)
	assert.Contains(t, string(store.files[dbPath]), `record(ai, "TEST:MAIN:ULIMIT")`)

	assert.Contains(t, res.Script, `epicsEnvSet("IOCNAME", "generic")`)
	assert.Contains(t, res.Script, `epicsEnvSet("ENGINEER", "tester")`)
	assert.Contains(t, res.Script, `epicsEnvSet("AMSID", "5.21.50.18.1.1")`)
	assert.Contains(t, res.Script, `dbLoadRecords("generic.db", "PORT=$(ASYN_PORT),PREFIX=$(PREFIX)")`)
	assert.Contains(t, res.Script, "#   MAIN.ulimit -> TEST:MAIN:ULIMIT (io: i)")
	assert.Contains(t, res.Script, "# 15 records from pytmc pragmas")
}

func TestGenerateStcmd_NoDB(t *testing.T) {
	store := &memStore{}
	uc := NewGenerateStcmd(tmcfile.NewLoader(), store)

	res, err := uc.Execute(context.Background(), genericTmc, StcmdOptions{NoDB: true, Name: "plc1"})
	require.NoError(t, err)

	assert.Empty(t, store.files)
	assert.Empty(t, res.DBFile)
	assert.Equal(t, "PLC1", res.Args.Prefix)
	assert.NotContains(t, res.Script, "dbLoadRecords(\"generic.db\"")
}

func TestGenerateStcmd_ExtrasOverrideArguments(t *testing.T) {
	uc := NewGenerateStcmd(tmcfile.NewLoader(), &memStore{})

	res, err := uc.Execute(context.Background(), genericTmc, StcmdOptions{
		NoDB:   true,
		Extras: map[string]any{"asyn_port": "MY_PORT"},
	})
	require.NoError(t, err)
	assert.Contains(t, res.Script, `epicsEnvSet("ASYN_PORT", "MY_PORT")`)
}

func TestGenerateStcmd_MissingTemplateKeepsArgs(t *testing.T) {
	uc := NewGenerateStcmd(tmcfile.NewLoader(), &memStore{})

	res, err := uc.Execute(context.Background(), genericTmc, StcmdOptions{
		NoDB:        true,
		Template:    "nope.cmd",
		TemplateDir: t.TempDir(),
	})
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
	assert.Equal(t, "generic", res.Args.Name)
	assert.NotEmpty(t, res.Args.User)
}
