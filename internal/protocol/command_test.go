package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/roomserver/internal/model"
)

func TestDecodeStringData(t *testing.T) {
	cmd := Decode([]byte(`{"destination":"create-room","data":"{\"jwt\":\"abc\"}"}`))
	assert.Equal(t, CreateRoom{JWT: "abc"}, cmd)
}

func TestDecodeObjectData(t *testing.T) {
	cmd := Decode([]byte(`{"destination":"join-room","data":{"jwt":"def","room_id":"12345"}}`))
	assert.Equal(t, JoinRoom{JWT: "def", RoomID: "12345"}, cmd)
}

func TestDecodeNumericRoomID(t *testing.T) {
	cmd := Decode([]byte(`{"destination":"join-room","data":"{\"jwt\":\"def\",\"room_id\":12345}"}`))
	assert.Equal(t, JoinRoom{JWT: "def", RoomID: "12345"}, cmd)
}

func TestDecodePrivateRoomID(t *testing.T) {
	cmd := Decode([]byte(`{"destination":"leave-room","data":{"jwt":"abc","room_id":"8d0f6a36-6c1e-4b0e-9d4e-0e6f0c1f2a3b"}}`))
	assert.Equal(t, LeaveRoom{JWT: "abc", RoomID: "8d0f6a36-6c1e-4b0e-9d4e-0e6f0c1f2a3b"}, cmd)
}

func TestDecodeStartRoom(t *testing.T) {
	cmd := Decode([]byte(`{"destination":"start-room","data":{"jwt":"abc","room_id":"10001"}}`))
	assert.Equal(t, StartRoom{JWT: "abc", RoomID: "10001"}, cmd)
}

func TestDecodeConfigureRoom(t *testing.T) {
	cmd := Decode([]byte(`{"destination":"configure-room","data":{"jwt":"abc","room_id":"10001","max_players":3,"private":true}}`))

	c, ok := cmd.(ConfigureRoom)
	require.True(t, ok, "got %T", cmd)
	require.NotNil(t, c.MaxPlayers)
	require.NotNil(t, c.Private)
	assert.Equal(t, uint8(3), *c.MaxPlayers)
	assert.True(t, *c.Private)
}

func TestDecodeConfigureRoomPartial(t *testing.T) {
	cmd := Decode([]byte(`{"destination":"configure-room","data":{"jwt":"abc","room_id":"10001","private":false}}`))

	c, ok := cmd.(ConfigureRoom)
	require.True(t, ok, "got %T", cmd)
	assert.Nil(t, c.MaxPlayers)
	require.NotNil(t, c.Private)
	assert.False(t, *c.Private)
}

func TestDecodeMissingJWTIsNotMalformed(t *testing.T) {
	// An absent credential is an auth failure, not a framing one
	cmd := Decode([]byte(`{"destination":"create-room","data":"{}"}`))
	assert.Equal(t, CreateRoom{}, cmd)
}

func TestDecodeUnusableRoomIDLeftEmpty(t *testing.T) {
	for _, raw := range []string{`-5`, `1.5`, `true`, `{}`, `null`, `4294967296`} {
		t.Run(raw, func(t *testing.T) {
			cmd := Decode([]byte(`{"destination":"join-room","data":{"jwt":"a","room_id":` + raw + `}}`))
			assert.Equal(t, JoinRoom{JWT: "a"}, cmd)
		})
	}
}

func TestDecodeUnknownDestination(t *testing.T) {
	cmd := Decode([]byte(`{"destination":"delete-everything","data":"{}"}`))
	assert.Equal(t, Unknown{Name: "delete-everything"}, cmd)
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name  string
		frame string
	}{
		{"not json", `not json`},
		{"empty", ``},
		{"array", `[1,2,3]`},
		{"missing destination", `{"data":"{}"}`},
		{"missing data", `{"destination":"create-room"}`},
		{"null data", `{"destination":"create-room","data":null}`},
		{"data string not json", `{"destination":"create-room","data":"jwt=abc"}`},
		{"data wrong type", `{"destination":"create-room","data":42}`},
		{"jwt wrong type", `{"destination":"create-room","data":{"jwt":7}}`},
		{"max players overflow", `{"destination":"configure-room","data":{"jwt":"a","room_id":"1","max_players":300}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := Decode([]byte(tt.frame))
			m, ok := cmd.(Malformed)
			require.True(t, ok, "got %T", cmd)
			assert.ErrorIs(t, m.Err, model.ErrMalformedFrame)
			assert.Equal(t, StatusBadFrame, StatusFromError(m.Err))
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	maxPlayers := uint8(4)
	commands := []Command{
		CreateRoom{JWT: "abc"},
		JoinRoom{JWT: "def", RoomID: "12345"},
		LeaveRoom{JWT: "def", RoomID: "12345"},
		StartRoom{JWT: "abc", RoomID: "room-1"},
		ConfigureRoom{JWT: "abc", RoomID: "room-1", MaxPlayers: &maxPlayers},
	}

	for _, cmd := range commands {
		t.Run(cmd.Destination(), func(t *testing.T) {
			frame, err := Encode(cmd)
			require.NoError(t, err)

			// data travels as a string
			var env map[string]any
			require.NoError(t, json.Unmarshal(frame, &env))
			assert.IsType(t, "", env["data"])

			assert.Equal(t, cmd, Decode(frame))
		})
	}
}

func TestEncodeRejectsFailureVariants(t *testing.T) {
	_, err := Encode(Unknown{Name: "x"})
	assert.Error(t, err)

	_, err = Encode(Malformed{})
	assert.Error(t, err)
}
