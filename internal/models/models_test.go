package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	a, err := NewID()
	require.NoError(t, err)
	b, err := NewID()
	require.NoError(t, err)

	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.NotEqual(t, a, b)
}

func TestBaseBeforeCreateKeepsExistingID(t *testing.T) {
	b := &Base{ID: "fixed"}
	require.NoError(t, b.BeforeCreate(nil))
	assert.Equal(t, "fixed", b.ID)

	empty := &Base{}
	require.NoError(t, empty.BeforeCreate(nil))
	assert.NotEmpty(t, empty.ID)
}

func TestAuditChanges(t *testing.T) {
	t.Run("round_trip", func(t *testing.T) {
		v, err := AuditChanges{"ticker": "ITSA4", "deleted": 1}.Value()
		require.NoError(t, err)

		var got AuditChanges
		require.NoError(t, got.Scan(v))
		assert.Equal(t, "ITSA4", got["ticker"])
		assert.Equal(t, float64(1), got["deleted"])
	})

	t.Run("nil_is_null", func(t *testing.T) {
		v, err := AuditChanges(nil).Value()
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("scan_empty_and_bytes", func(t *testing.T) {
		var got AuditChanges
		require.NoError(t, got.Scan(""))
		assert.Nil(t, got)

		require.NoError(t, got.Scan([]byte(`{"a":"b"}`)))
		assert.Equal(t, "b", got["a"])
	})

	t.Run("scan_rejects_other_types", func(t *testing.T) {
		var got AuditChanges
		assert.Error(t, got.Scan(42))
	})
}
