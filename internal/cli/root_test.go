package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "edb", cmd.Use)
	assert.Contains(t, cmd.Long, "append-only")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{
		"commit", "get", "history", "log", "query", "diff", "commits", "show",
		"revision", "resurrected", "verify", "export", "import", "schema", "test",
	}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	backendFlag := cmd.PersistentFlags().Lookup("backend")
	require.NotNil(t, backendFlag)
	assert.Equal(t, BackendSQLite, backendFlag.DefValue)

	for _, name := range []string{"db", "schema", "config"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
}

func TestRootRejectsInvalidFlags(t *testing.T) {
	db := seedDB(t)

	_, err := execute(NewRootCommand(), "revision", "--db", db, "--format", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")

	_, err = execute(NewRootCommand(), "revision", "--db", db, "--backend", "postgres")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid backend")
}

func TestRootReadsEnvironment(t *testing.T) {
	db := seedDB(t)
	t.Setenv("EDB_DB", db)
	t.Setenv("EDB_FORMAT", "json")

	out, err := execute(NewRootCommand(), "revision")
	require.NoError(t, err)

	var view RevisionView
	resp := decodeResponse(t, out, &view)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 4, view.Commits)
}

func TestRootReadsConfigFile(t *testing.T) {
	db := seedDB(t)
	config := writeFile(t, "edb.yaml", "db: "+db+"\nformat: json\n")

	out, err := execute(NewRootCommand(), "revision", "--config", config)
	require.NoError(t, err)

	var view RevisionView
	decodeResponse(t, out, &view)
	assert.Equal(t, int64(1030), view.Timestamp)
}

func TestRootFlagOverridesConfig(t *testing.T) {
	db := seedDB(t)
	config := writeFile(t, "edb.yaml", "db: "+db+"\nformat: json\n")

	out, err := execute(NewRootCommand(), "revision", "--config", config, "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "@1030 (4 commits)")
}

func TestRootMissingConfigFile(t *testing.T) {
	_, err := execute(NewRootCommand(), "revision", "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRootDefaultConfigInWorkingDir(t *testing.T) {
	db := seedDB(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "edb.yaml"), []byte("db: "+db+"\n"), 0644))
	t.Chdir(dir)

	out, err := execute(NewRootCommand(), "resurrected")
	require.NoError(t, err)
	assert.Contains(t, out, "/parts/2")
}

func TestNoDatabaseConfigured(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := execute(NewRootCommand(), "revision")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no database")
}
