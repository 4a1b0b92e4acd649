package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Fatalf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Fatalf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}
}

func TestParseAnalysisID(t *testing.T) {
	id := NewAnalysisID()
	parsed, err := ParseAnalysisID(" " + id.String() + " ")
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = ParseAnalysisID("")
	assert.Error(t, err)
	_, err = ParseAnalysisID("not-a-uuid")
	assert.Error(t, err)
}

func TestParseDatasetKey(t *testing.T) {
	key, err := ParseDatasetKey("sales-2024")
	require.NoError(t, err)
	assert.Equal(t, "sales-2024", key.String())

	_, err = ParseDatasetKey("   ")
	assert.Error(t, err)
}

func TestHashSettingsIsOrderIndependent(t *testing.T) {
	a := HashSettings(map[string]interface{}{"threshold": 0.1, "method": "pearson"})
	b := HashSettings(map[string]interface{}{"method": "pearson", "threshold": 0.1})
	c := HashSettings(map[string]interface{}{"method": "spearman", "threshold": 0.1})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a.Short(), 12)
}
