package devenv

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	previous, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		os.Chdir(previous)
	})
}

func TestResolvePath(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module utregister\n\ngo 1.22.2\n"), 0666))

	// a nested module with another name is skipped over
	nested := filepath.Join(root, "cmd", "regcli")
	require.NoError(t, os.MkdirAll(nested, 0777))
	require.NoError(t, os.WriteFile(filepath.Join(root, "cmd", "go.mod"), []byte("module other\n"), 0666))
	chdir(t, nested)

	found, err := GetWorkspaceRoot()
	require.NoError(t, err)
	require.Equal(t, root, found)

	path, err := ResolvePath("<dev_state>/resty/regcli")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "dev", ".state", "resty", "regcli"), path)

	info, err := os.Stat(filepath.Join(root, "dev", ".state"))
	require.NoError(t, err)
	require.True(t, info.IsDir())

	path, err = ResolvePath("cookies.json")
	require.NoError(t, err)
	require.Equal(t, "cookies.json", path)
}
