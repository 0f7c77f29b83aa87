package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/cider/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJSON = `{
	"title": "demo",
	"backend": "bash",
	"pipelines": ["build"],
	"actions": ["lint"],
	"build": {
		"actions": ["compile", "test"],
		"requires": ["setup"],
		"test": {"manual": {"zeta": "echo z", "alpha": "echo a", "mid": "echo m"}},
		"compile": {"backend": "docker", "image": "golang:1.25", "manual": {"go": "go build ./..."}}
	},
	"lint": {"manual": {"vet": "go vet ./..."}, "retries": 2, "allowed_failure": true},
	"unused": {"manual": {"never": "echo never"}}
}`

func TestParse_JSON(t *testing.T) {
	tree, err := Parse([]byte(sampleJSON), FormatJSON)
	require.NoError(t, err)

	root := tree.Root
	assert.Equal(t, NodeTop, root.Kind)
	assert.Equal(t, "bash", root.Shared.Backend)
	assert.Equal(t, "demo", root.Decoration.Title)
	assert.Equal(t, []string{"build"}, root.Pipelines)
	assert.Equal(t, []string{"lint"}, root.Actions)
	assert.Equal(t, []string{"build", "lint", "unused"}, root.ChildIDs())

	t.Run("Pipeline keeps its nested actions", func(t *testing.T) {
		build, ok := root.Child("build")
		require.True(t, ok)
		assert.Equal(t, NodePipeline, build.Kind)
		assert.Equal(t, "build", build.Path)
		assert.Equal(t, []string{"compile", "test"}, build.Actions)
		assert.Equal(t, []string{"setup"}, build.Inert.Requires)

		compile, ok := build.Child("compile")
		require.True(t, ok)
		assert.Equal(t, NodeAction, compile.Kind)
		assert.Equal(t, "build.compile", compile.Path)
		assert.Equal(t, "golang:1.25", compile.Shared.Image)
	})

	t.Run("Manual steps keep declaration order", func(t *testing.T) {
		build, _ := root.Child("build")
		test, _ := build.Child("test")
		names := make([]string, 0, len(test.Manual))
		for _, s := range test.Manual {
			names = append(names, s.Name)
		}
		assert.Equal(t, []string{"zeta", "alpha", "mid"}, names)
	})

	t.Run("Inert fields are decoded", func(t *testing.T) {
		lint, _ := root.Child("lint")
		assert.Equal(t, 2, lint.Inert.Retries)
		assert.True(t, lint.Inert.AllowedFailure)
	})
}

func TestParse_YAMLMatchesJSON(t *testing.T) {
	doc := `
backend: bash
pipelines: [build]
build:
  actions: [test]
  test:
    conditions:
      on_main: branch == 'main'
    manual:
      second: echo 2
      first: echo 1
`
	tree, err := Parse([]byte(doc), FormatYAML)
	require.NoError(t, err)

	build, ok := tree.Root.Child("build")
	require.True(t, ok)
	test, ok := build.Child("test")
	require.True(t, ok)

	assert.Equal(t, []domain.ManualStep{
		{Name: "second", Script: "echo 2"},
		{Name: "first", Script: "echo 1"},
	}, test.Manual)
	assert.Equal(t, []domain.Condition{{Name: "on_main", Expression: "branch == 'main'"}}, test.Inert.Conditions)
}

func TestParse_Errors(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want string
	}{
		{"Malformed JSON", `{"pipelines": [`, "malformed json document"},
		{"Root not an object", `["a"]`, "document root must be an object"},
		{"Backend not a string", `{"backend": 3}`, "config backend: must be a string"},
		{"Pipelines not a list", `{"pipelines": "P"}`, "config pipelines: must be a list of ids"},
		{"Manual not an object", `{"A": {"manual": ["echo"]}}`, "config A.manual: must map step names"},
		{"Fractional retries", `{"A": {"manual": {"s": "true"}, "retries": 1.5}}`, "config A.retries: must be an integer"},
		{"Retries as text", `{"A": {"manual": {"s": "true"}, "retries": "3"}}`, "config A: invalid field"},
		{"Allowed failure as text", `{"A": {"manual": {"s": "true"}, "allowed_failure": "yes"}}`, "config A: invalid field"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc), FormatJSON)
			require.Error(t, err)
			assert.True(t, domain.IsConfigError(err))
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestParse_CollectsAllErrors(t *testing.T) {
	_, err := Parse([]byte(`{"backend": 1, "image": false}`), FormatJSON)
	require.Error(t, err)

	var aggr *domain.AggregateError
	require.ErrorAs(t, err, &aggr)
	assert.Len(t, aggr.Errors, 2)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("Detects format by extension", func(t *testing.T) {
		path := filepath.Join(dir, "cider.yml")
		require.NoError(t, os.WriteFile(path, []byte("backend: bash\n"), 0644))

		tree, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, FormatYAML, tree.Format)
		assert.Equal(t, path, tree.Source)
		assert.Equal(t, "bash", tree.Root.Shared.Backend)
	})

	t.Run("Missing file is a config error", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, DefaultFile))
		require.Error(t, err)
		assert.True(t, domain.IsConfigError(err))
	})
}
