package cidescriptor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pcdshub/pytmc/internal/domain"
)

func TestLoadDescriptor_Travis(t *testing.T) {
	d, err := NewLoader().LoadDescriptor(filepath.Join("testdata", "travis.yml"))
	require.NoError(t, err)

	assert.Equal(t, "python", d.Language)
	assert.Equal(t, domain.Vars{domain.EnvOfficialRepo: "slaclab/pytmc"}, d.GlobalEnv)
	require.Len(t, d.Secrets, 1)

	require.Len(t, d.Matrix, 2)
	assert.Equal(t, "3.6", d.Matrix[0].Python)
	assert.Equal(t, "1", d.Matrix[0].Env[domain.EnvBuildDocs])
	assert.Equal(t, "3.7", d.Matrix[1].Python)
	assert.Empty(t, d.Matrix[1].Env)

	assert.Len(t, d.Steps[domain.PhaseInstall], 3)
	script := d.Steps[domain.PhaseScript]
	require.Len(t, script, 3)
	assert.Equal(t, domain.FailFastMarker, script[1])
	assert.True(t, strings.HasPrefix(script[2], "if [[ -n"))
	assert.Len(t, d.Steps[domain.PhaseAfterSuccess], 2)
	_, ok := d.Steps[domain.PhaseBeforeInstall]
	assert.False(t, ok)
}

func TestLoadDescriptor_TravisJobs(t *testing.T) {
	d, err := NewLoader().LoadDescriptor(filepath.Join("testdata", "travis.yml"))
	require.NoError(t, err)

	jobs := d.Expand()
	require.Len(t, jobs, 2)

	slug := domain.Vars{domain.EnvRepoSlug: "slaclab/pytmc"}
	assert.True(t, jobs[0].ShouldDeploy(slug))
	assert.False(t, jobs[1].ShouldDeploy(slug))
	assert.False(t, jobs[0].ShouldDeploy(domain.Vars{domain.EnvRepoSlug: "someone/pytmc"}))
}

func TestLoadDescriptor_CrossedMatrix(t *testing.T) {
	d, err := NewLoader().LoadDescriptor(filepath.Join("testdata", "crossed.yml"))
	require.NoError(t, err)

	require.Len(t, d.Matrix, 4)
	assert.Equal(t, "3.6", d.Matrix[0].Python)
	assert.Equal(t, "a b", d.Matrix[0].Env["EXTRA"])
	assert.Equal(t, "3.10", d.Matrix[2].Python, "versions keep their literal text")
	assert.Equal(t, "", d.Matrix[1].Env[domain.EnvBuildDocs])
	assert.Equal(t, []string{"pytest"}, d.Steps[domain.PhaseScript])
}

func TestLoadDescriptor_IncludeAddsToExpansion(t *testing.T) {
	d, err := NewLoader().LoadDescriptor(filepath.Join("testdata", "included.yml"))
	require.NoError(t, err)

	require.Len(t, d.Matrix, 4)
	assert.Equal(t, "3.6", d.Matrix[0].Python)
	assert.Equal(t, "3.7", d.Matrix[1].Python)
	assert.Empty(t, d.Matrix[0].Env)
	assert.Equal(t, "3.8", d.Matrix[2].Python)
	assert.Equal(t, "1", d.Matrix[2].Env[domain.EnvBuildDocs])
	assert.Equal(t, "3.6", d.Matrix[3].Python, "include without python takes the first version")
	assert.Equal(t, "1", d.Matrix[3].Env["LINT"])

	assert.Len(t, d.Expand(), 4)
}

func TestLoadDescriptor_Errors(t *testing.T) {
	_, err := NewLoader().LoadDescriptor(filepath.Join(t.TempDir(), "missing.yml"))
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	cases := map[string]string{
		"bad yaml":        "script: [unterminated\n",
		"no steps":        "language: python\n",
		"bad global":      "env:\n  global:\n    - NOT_AN_ASSIGNMENT\nscript: x\n",
		"empty secure":    "env:\n  global:\n    - secure: \"\"\nscript: x\n",
		"bad include env": "matrix:\n  include:\n    - python: 3.6\n      env: oops\nscript: x\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "ci.yml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

			_, err := NewLoader().LoadDescriptor(path)
			require.Error(t, err)
			assert.True(t, domain.IsKind(err, domain.KindInvalidConfig), "got %v", err)
		})
	}
}
