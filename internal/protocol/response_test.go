package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/roomserver/internal/model"
)

func TestFailure(t *testing.T) {
	assert.JSONEq(t, `{"status":401}`, string(Failure(StatusUnauthorized)))
	assert.JSONEq(t, `{"status":400}`, string(Failure(StatusBadFrame)))
}

func TestSuccessCarriesRoomAsString(t *testing.T) {
	alice := model.Player{SUID: "u1", Username: "alice", DisplayName: "Alice"}
	room := model.NewRoom(alice, "room-1", 12345, time.Now())

	b, err := Success(room)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.JSONEq(t, `200`, string(raw["status"]))

	var roomText string
	require.NoError(t, json.Unmarshal(raw["room"], &roomText))

	var fields map[string]any
	require.NoError(t, json.Unmarshal([]byte(roomText), &fields))
	assert.Equal(t, "room-1", fields["private_id"])
	assert.EqualValues(t, 12345, fields["public_id"])
	assert.EqualValues(t, 5, fields["max_players"])
	assert.Equal(t, false, fields["started"])
	assert.NotContains(t, fields, "version")
}

func TestDecodeResponseRoom(t *testing.T) {
	alice := model.Player{SUID: "u1", Username: "alice", DisplayName: "Alice"}
	room := model.NewRoom(alice, "room-1", 12345, time.Now())

	b, err := Success(room)
	require.NoError(t, err)

	resp, err := DecodeResponse(b)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, resp.Status)

	decoded, err := resp.DecodeRoom()
	require.NoError(t, err)
	assert.Equal(t, room.PublicID, decoded.PublicID)
	assert.Equal(t, room.Leader, decoded.Leader)
	assert.Equal(t, room.Players, decoded.Players)
}

func TestDecodeRoomOnFailure(t *testing.T) {
	resp, err := DecodeResponse(Failure(StatusRoomWrite))
	require.NoError(t, err)
	assert.Equal(t, StatusRoomWrite, resp.Status)

	_, err = resp.DecodeRoom()
	assert.Error(t, err)
}
