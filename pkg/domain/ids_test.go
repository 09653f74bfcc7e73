package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseEntityID validates the parsing invariant: IDs must be valid,
// non-empty UUID strings.
func TestParseEntityID(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseEntityID("")
		require.Error(t, err)
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseEntityID("not-a-uuid")
		require.Error(t, err)
	})

	t.Run("accepts canonical form and round-trips", func(t *testing.T) {
		want := uuid.New().String()
		id, err := ParseEntityID(want)
		require.NoError(t, err)
		assert.Equal(t, want, id.String())
	})

	t.Run("nil uuid parses but reports IsNil", func(t *testing.T) {
		id, err := ParseEntityID("00000000-0000-0000-0000-000000000000")
		require.NoError(t, err)
		assert.True(t, id.IsNil())
	})
}

func TestNewIDsAreDistinct(t *testing.T) {
	assert.NotEqual(t, NewEntityID(), NewEntityID())
	assert.NotEqual(t, NewSnapshotID(), NewSnapshotID())
	assert.NotEqual(t, NewAffiliationID(), NewAffiliationID())
	assert.False(t, NewEntityID().IsNil())
}

func TestParseSnapshotAndAffiliationIDs(t *testing.T) {
	raw := uuid.New().String()

	sid, err := ParseSnapshotID(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, sid.String())

	aid, err := ParseAffiliationID(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, aid.String())

	_, err = ParseSnapshotID("garbage")
	assert.Error(t, err)
	_, err = ParseAffiliationID("garbage")
	assert.Error(t, err)
}
