package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with fresh flag state and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configPath, initPath, initForce, tagsJSON = "", "", false, false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestTagsCommand(t *testing.T) {
	out, err := execute(t, "tags", "AVATAR (SUB 3D XD DBOX)")
	require.NoError(t, err)
	assert.Contains(t, out, "Version:  3D XD")
	assert.Contains(t, out, "Language: SUB")
	assert.Contains(t, out, "Seats:    DBOX")
	assert.NotContains(t, out, "Merged")
}

func TestTagsCommand_Merged(t *testing.T) {
	out, err := execute(t, "tags", "AVATAR (DOB 2D)", "AVATAR (SUB 3D PRE)")
	require.NoError(t, err)
	assert.Contains(t, out, "Merged: 2D 3D | DOB SUB | TRAD PRE")
}

func TestTagsCommand_JSON(t *testing.T) {
	out, err := execute(t, "tags", "--json", "AVATAR")
	require.NoError(t, err)

	var got []map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "AVATAR", got[0]["title"])
	assert.Equal(t, "2D", got[0]["version_tags"])
	assert.Equal(t, "DOB", got[0]["language_tags"])
	assert.Equal(t, "TRAD", got[0]["seats_tags"])
}

func TestTagsCommand_RequiresTitle(t *testing.T) {
	_, err := execute(t, "tags")
	assert.Error(t, err)
}

func TestInitThenConfigTest(t *testing.T) {
	t.Setenv("PORT", "")
	path := filepath.Join(t.TempDir(), "anticine", "config.toml")

	out, err := execute(t, "init", "--path", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)

	_, err = execute(t, "init", "--path", path)
	assert.ErrorContains(t, err, "--force")

	_, err = execute(t, "init", "--path", path, "--force")
	require.NoError(t, err)

	out, err = execute(t, "config", "test", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Server:        0.0.0.0:3000")
	assert.Contains(t, out, "venues every 24h0m0s")
	assert.Contains(t, out, "Configuration valid!")
}

func TestConfigTest_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[session_store]\ndriver = \"etcd\"\n[server]\nport = 70000\n"), 0o644))

	out, err := execute(t, "--config", path, "config", "test")
	require.Error(t, err)
	assert.Contains(t, out, "Validation errors:")
	assert.Contains(t, out, "session_store.driver")
	assert.Contains(t, out, "server.port")
}

func TestConfigTest_MissingEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[geo]\napi_key = \"${ANTICINE_TEST_UNSET_KEY}\"\n"), 0o644))

	out, err := execute(t, "config", "test", path)
	require.Error(t, err)
	assert.Contains(t, out, "Missing environment variables:")
	assert.Contains(t, out, "ANTICINE_TEST_UNSET_KEY")
}

func TestConfigDefault(t *testing.T) {
	out, err := execute(t, "config", "default")
	require.NoError(t, err)
	assert.Contains(t, out, "[session_store]")
}
