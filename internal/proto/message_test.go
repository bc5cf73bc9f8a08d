package proto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvelope(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"connect_type":"subscribe","channel":"user-status","user_uid":"u1","reset":true}`))
	require.NoError(t, err)
	assert.Equal(t, ConnectTypeSubscribe, env.ConnectType)
	assert.Equal(t, "user-status", env.Channel)
	assert.Equal(t, "u1", env.UserUID)
	assert.True(t, env.Reset)
}

func TestParseEnvelopeOptionalFields(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"connect_type":"unsubscribe","channel":"user-status"}`))
	require.NoError(t, err)
	assert.Empty(t, env.UserUID)
	assert.False(t, env.Reset)
}

func TestParseEnvelopeRejectsBadJSON(t *testing.T) {
	_, err := ParseEnvelope([]byte(`{"connect_type":`))
	assert.Error(t, err)
}

func TestServerMessageWireShape(t *testing.T) {
	raw, err := json.Marshal(ServerMessage{
		Channel: "user-status",
		Data:    map[string]string{"u1": "online"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"channel":"user-status","data":{"u1":"online"}}`, string(raw))

	raw, err = json.Marshal(ServerMessage{Channel: "user-status", Data: ConnectTypeUnsubscribe})
	require.NoError(t, err)
	assert.JSONEq(t, `{"channel":"user-status","data":"unsubscribe"}`, string(raw))
}
