package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/edb/internal/testutil"
)

func TestMarshalTrace(t *testing.T) {
	result := NewResult()
	result.Trace = []TraceEvent{
		{Step: 0, Type: EventCommit, Timestamp: 1000, Revision: testutil.Revision(1), Deletions: []string{"/d"}},
		{Step: 1, Type: EventRejected, Code: "NOT_FOUND"},
	}

	data, err := MarshalTrace("tiny", result)
	require.NoError(t, err)
	assert.Equal(t, `{
  "scenario_name": "tiny",
  "trace": [
    {
      "deletions": [
        "/d"
      ],
      "revision": "00000000-0000-7000-8000-000000000001",
      "step": 0,
      "timestamp": 1000,
      "type": "commit"
    },
    {
      "code": "NOT_FOUND",
      "step": 1,
      "type": "rejected"
    }
  ]
}
`, string(data))
}

func TestAssertGolden_ExistingFile(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/resurrection.yaml")
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	require.NoError(t, AssertGolden(t, s.Name, result))
}
