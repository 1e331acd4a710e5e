package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionEventCarriesSessionID(t *testing.T) {
	data := map[string]interface{}{"risk_level": 3}
	e := NewSessionEvent(TypeSessionRejected, "abc", data)

	assert.NotEmpty(t, e.EventID())
	assert.Equal(t, "abc", e.Payload()["session_id"])
	assert.NotContains(t, data, "session_id", "caller map is not mutated")
	assert.False(t, e.Timestamp().IsZero())
}

func TestEncodeDecode(t *testing.T) {
	e := NewSessionEvent(TypeSessionSummarized, "abc", map[string]interface{}{"length": 12})

	raw, err := Encode(e)
	require.NoError(t, err)

	got, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, TypeSessionSummarized, got.Type)
	assert.Equal(t, "abc", got.SessionID())
	assert.EqualValues(t, 12, got.Data["length"])

	_, err = Decode([]byte(`{"type":""}`))
	assert.Error(t, err)
}
