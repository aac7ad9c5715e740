package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name   string            `json:"name" validate:"required"`
	Pages  int               `json:"pages" validate:"min=1,max=100"`
	Filter map[string]string `json:"filter"`
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestReadConfigLocalOverride(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "app.json5"), `{
		// comments and trailing commas are fine
		name: "base",
		pages: 3,
	}`)
	write(t, filepath.Join(dir, "app.local.json5"), `{pages: 7}`)

	config, err := ReadConfig[testConfig](filepath.Join(dir, "app.json5"))
	require.NoError(t, err)
	require.Equal(t, "base", config.Name)
	require.Equal(t, 7, config.Pages)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "app.json5"))
	require.True(t, os.IsNotExist(err))
}

func TestReadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.json5")
	write(t, path, `{name: `)
	_, err := ReadConfig[testConfig](path)
	require.Error(t, err)
	require.False(t, os.IsNotExist(err))
}

func TestReadRecursively(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	write(t, filepath.Join(root, "app.json5"), `{name: "found"}`)

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(nested))
	t.Cleanup(func() { os.Chdir(wd) })

	config, path, err := ReadRecursively[testConfig]("app.json5")
	require.NoError(t, err)
	require.Equal(t, "found", config.Name)
	require.Equal(t, "app.json5", filepath.Base(path))
}

func TestLoadDefaults(t *testing.T) {
	defaults := testConfig{Name: "default", Pages: 3, Filter: map[string]string{"modeList": ""}}

	config, err := Load(filepath.Join(t.TempDir(), "app.json5"), false, defaults)
	require.NoError(t, err)
	require.Equal(t, defaults, config)

	path := filepath.Join(t.TempDir(), "app.json5")
	write(t, path, `{pages: 5}`)
	config, err = Load(path, false, defaults)
	require.NoError(t, err)
	require.Equal(t, "default", config.Name)
	require.Equal(t, 5, config.Pages)
}

func TestLoadValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.json5")
	write(t, path, `{pages: 500}`)

	_, err := Load(path, false, testConfig{Name: "default", Pages: 3})
	require.ErrorContains(t, err, "invalid config")
}
