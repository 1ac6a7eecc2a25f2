package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/edb/internal/engine"
	"github.com/roach88/edb/internal/record"
	"github.com/roach88/edb/internal/store"
	"github.com/roach88/edb/internal/testutil"
)

// seedDB writes a small history to a fresh SQLite database:
//
//	1000 alice inserts /parts/1 {name: bracket, qty: 4} and /parts/2 {name: bolt, qty: 10}
//	1010 bob   updates /parts/1 to qty 5
//	1020 bob   deletes /parts/2
//	1030 alice inserts /parts/2 again with qty 12
//
// Revisions are testutil.Revision(1) through testutil.Revision(4).
func seedDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plant.db")
	st, err := store.Open(path)
	require.NoError(t, err)

	ctx := context.Background()
	eng, err := engine.Open(ctx, st,
		engine.WithTimeSource(testutil.NewSteppedClock(1000, 10).Now),
		engine.WithRevisionGenerator(testutil.NewSequentialRevisions()),
	)
	require.NoError(t, err)

	commits := []*record.Commit{
		{Committer: "alice", Comment: "initial import", Inserts: []record.Entry{
			record.NewEntry("/parts/1", record.Attributes{"name": record.String("bracket"), "qty": record.Int(4)}),
			record.NewEntry("/parts/2", record.Attributes{"name": record.String("bolt"), "qty": record.Int(10)}),
		}},
		{Committer: "bob", Updates: []record.Entry{
			{ID: "/parts/1", Version: 1, Attributes: record.Attributes{"name": record.String("bracket"), "qty": record.Int(5)}},
		}},
		{Committer: "bob", Deletions: []string{"/parts/2"}},
		{Committer: "alice", Inserts: []record.Entry{
			record.NewEntry("/parts/2", record.Attributes{"name": record.String("bolt"), "qty": record.Int(12)}),
		}},
	}
	for _, c := range commits {
		_, err := eng.Commit(ctx, c)
		require.NoError(t, err)
	}
	require.NoError(t, eng.Close())
	return path
}

// execute runs cmd with args and returns what it wrote to stdout.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// jsonResponse is CLIResponse with the payload left undecoded.
type jsonResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *CLIError       `json:"error"`
}

func decodeResponse(t *testing.T, out string, data any) jsonResponse {
	t.Helper()
	var resp jsonResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	if data != nil && resp.Data != nil {
		require.NoError(t, json.Unmarshal(resp.Data, data))
	}
	return resp
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
