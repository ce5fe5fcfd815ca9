package model

// SUID is the stable player identifier issued by the Account Manager
type SUID string

// Statistics are the lifetime counters the Account Manager keeps per player
type Statistics struct {
	GamesWon     uint32 `json:"games_won" msgpack:"games_won"`
	GamesPlayed  uint32 `json:"games_played" msgpack:"games_played"`
	WordsWritten uint32 `json:"words_written" msgpack:"words_written"`
}

// Player is the external identity of a participant, as served by the Account Manager
type Player struct {
	SUID        SUID       `json:"suid" msgpack:"suid"`
	Username    string     `json:"username" msgpack:"username"`
	DisplayName string     `json:"displayname" msgpack:"displayname"`
	Statistics  Statistics `json:"statistics" msgpack:"statistics"`
}

// LocalGameData lives only for the duration of one game
type LocalGameData struct {
	// Where this player's sprite sits on the start-screen whiteboard
	BoardPosition [2]uint8 `json:"board_position" msgpack:"board_position"`
}

// Member is a player's slot in a room
type Member struct {
	Player    `msgpack:",inline"`
	LocalData LocalGameData `json:"local_data" msgpack:"local_data"`
}

// NewMember wraps a player with empty per-game data
func NewMember(p Player) Member {
	return Member{Player: p}
}
