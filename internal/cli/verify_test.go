package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/edb/internal/store"
)

func TestVerifyCommandConsistentLog(t *testing.T) {
	db := seedDB(t)

	out, err := execute(NewVerifyCommand(&RootOptions{Format: "text", Database: db}))
	require.NoError(t, err)
	assert.Contains(t, out, "4 commits, 2 objects")
	assert.Contains(t, out, "✓ log is consistent")

	out, err = execute(NewVerifyCommand(&RootOptions{Format: "json", Database: db}))
	require.NoError(t, err)

	var result VerifyResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Empty(t, result.Problems)
	require.NotNil(t, result.Integrity, "SQLite logs get an integrity scan")
	assert.Equal(t, 4, result.Integrity.Commits)
	assert.Equal(t, 5, result.Integrity.Entries)
}

func TestVerifyCommandBadger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "badger")
	opts := &RootOptions{Format: "json", Database: dir, Backend: BackendBadger}

	_, err := execute(NewCommitCommand(opts), "-f", writeFile(t, "c.yaml", insertBracket))
	require.NoError(t, err)

	out, err := execute(NewVerifyCommand(opts))
	require.NoError(t, err)

	var result VerifyResult
	decodeResponse(t, out, &result)
	assert.Equal(t, 1, result.Commits)
	assert.Nil(t, result.Integrity)
}

func TestVerifyCommandCorruptLog(t *testing.T) {
	db := seedDB(t)

	st, err := store.Open(db)
	require.NoError(t, err)
	_, err = st.DB().Exec(`UPDATE entries SET timestamp = timestamp + 1 WHERE oid = '/parts/1' AND version = 2`)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := execute(NewVerifyCommand(&RootOptions{Format: "text", Database: db}))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, IsReported(err))
	assert.Contains(t, out, "problem:")
	assert.NotContains(t, out, "consistent")

	out, err = execute(NewVerifyCommand(&RootOptions{Format: "json", Database: db}))
	require.Error(t, err)
	resp := decodeResponse(t, out, nil)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeVerify, resp.Error.Code)
}
