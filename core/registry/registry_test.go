package registry_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adalundhe/seam/core/registry"
)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r, err := registry.New([]registry.Component{
		{Name: "web", Paths: []string{"web/**/*.ts"}},
		{Name: "auth", Paths: []string{"internal/auth", "pkg/token.go"}},
		{Name: "shared", Paths: []string{"internal/auth/types.go", "./internal/common/"}},
	})
	require.NoError(t, err)
	return r
}

func TestRegistry_ComponentsOf(t *testing.T) {
	r := testRegistry(t)

	tests := []struct {
		file string
		want []string
	}{
		{"internal/auth/login.go", []string{"auth"}},
		{"internal/auth/types.go", []string{"auth", "shared"}},
		{"./internal/common/x.go", []string{"shared"}},
		{"pkg/token.go", []string{"auth"}},
		{"pkg/token.go.bak", nil},
		{"internal/authz/x.go", nil},
		{"web/src/app/main.ts", []string{"web"}},
		{"web/main.go", nil},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			assert.Equal(t, tt.want, r.ComponentsOf(tt.file))
		})
	}
}

func TestRegistry_SameComponent(t *testing.T) {
	r := testRegistry(t)

	assert.True(t, r.SameComponent("internal/auth/a.go", "pkg/token.go"))
	assert.True(t, r.SameComponent("internal/auth/types.go", "internal/common/y.go"))
	assert.False(t, r.SameComponent("internal/auth/a.go", "web/x/a.ts"))
	assert.False(t, r.SameComponent("README.md", "README.md"))
}

func TestRegistry_Lookups(t *testing.T) {
	r := testRegistry(t)

	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []string{"auth", "shared", "web"}, r.Names())
	assert.True(t, r.Has("auth"))
	assert.False(t, r.Has("billing"))
	assert.True(t, r.Owns("auth", "internal/auth/x.go"))
	assert.False(t, r.Owns("web", "internal/auth/x.go"))

	paths, err := r.Paths("shared")
	require.NoError(t, err)
	assert.Equal(t, []string{"internal/auth/types.go", "internal/common"}, paths)

	_, err = r.Paths("billing")
	assert.ErrorIs(t, err, registry.ErrUnknownComponent)
}

func TestRegistry_NilIsEmpty(t *testing.T) {
	var r *registry.Registry
	assert.Zero(t, r.Len())
	assert.Nil(t, r.ComponentsOf("a.go"))
	assert.False(t, r.SameComponent("a.go", "a.go"))
	assert.False(t, r.Has("x"))
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name       string
		components []registry.Component
		contains   string
	}{
		{"empty name", []registry.Component{{Name: " ", Paths: []string{"a"}}}, "empty name"},
		{"duplicate", []registry.Component{{Name: "a", Paths: []string{"a"}}, {Name: "a", Paths: []string{"b"}}}, "declared twice"},
		{"no paths", []registry.Component{{Name: "a"}}, "no paths"},
		{"absolute", []registry.Component{{Name: "a", Paths: []string{"/etc"}}}, "relative"},
		{"escapes", []registry.Component{{Name: "a", Paths: []string{"../x"}}}, "escapes"},
		{"bad glob", []registry.Component{{Name: "a", Paths: []string{"src/[x"}}}, "pattern"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := registry.New(tt.components)
			require.ErrorIs(t, err, registry.ErrInvalidRegistry)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "components.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
components:
  auth: [internal/auth]
  web:
    - "web/**"
`), 0644))

	r, err := registry.LoadYAML(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"auth", "web"}, r.Names())
	assert.Equal(t, []string{"web"}, r.ComponentsOf("web/index.html"))

	_, err = registry.ParseYAML([]byte("services: {}"))
	assert.ErrorIs(t, err, registry.ErrInvalidRegistry)

	_, err = registry.LoadYAML(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
