package cargo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMetadata = `{
  "packages": [
    {
      "name": "app",
      "targets": [
        {"name": "app", "kind": ["lib"]},
        {"name": "server", "kind": ["bin"]},
        {"name": "worker", "kind": ["bin"]},
        {"name": "bench1", "kind": ["bench"]}
      ]
    }
  ]
}`

func TestParseBinaryTargets(t *testing.T) {
	names, err := parseBinaryTargets([]byte(sampleMetadata))
	require.NoError(t, err)
	assert.Equal(t, []string{"server", "worker"}, names)
}

func TestParseBinaryTargetsNone(t *testing.T) {
	names, err := parseBinaryTargets([]byte(`{"packages": []}`))
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestParseBinaryTargetsBadJSON(t *testing.T) {
	_, err := parseBinaryTargets([]byte("not json"))
	require.Error(t, err)
}
