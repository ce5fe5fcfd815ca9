package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format, w: os.Stdout}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Room:
		o.printRoom(v)
	case *Room:
		o.printRoom(*v)
	case HealthResult:
		o.printHealthResult(v)
	case Reply:
		o.printReply(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Player response type (matches the room JSON)
type Player struct {
	SUID        string `json:"suid"`
	Username    string `json:"username"`
	DisplayName string `json:"displayname"`
	Statistics  struct {
		GamesWon     uint32 `json:"games_won"`
		GamesPlayed  uint32 `json:"games_played"`
		WordsWritten uint32 `json:"words_written"`
	} `json:"statistics"`
}

// Member is a player's slot in a room
type Member struct {
	Player
	LocalData struct {
		BoardPosition [2]uint8 `json:"board_position"`
	} `json:"local_data"`
}

// Room response type
type Room struct {
	PrivateID  string   `json:"private_id"`
	PublicID   uint32   `json:"public_id"`
	Players    []Member `json:"players"`
	MaxPlayers uint8    `json:"max_players"`
	Leader     Player   `json:"leader"`
	Started    bool     `json:"started"`
	Private    bool     `json:"private"`
}

// HealthResult response type
type HealthResult struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
}

// Reply is a raw socket reply, as printed by the session command
type Reply struct {
	Status int     `json:"status"`
	Room   *string `json:"room,omitempty"`
}

func (o *Output) printRoom(r Room) {
	visibility := "public"
	if r.Private {
		visibility = "private"
	}
	state := "waiting"
	switch {
	case len(r.Players) == 0:
		state = "disbanded"
	case r.Started:
		state = "started"
	}

	fmt.Fprintf(o.w, "Room: %d (%s)\n", r.PublicID, r.PrivateID)
	fmt.Fprintf(o.w, "State: %s, %s\n", state, visibility)
	fmt.Fprintf(o.w, "Players: %d/%d\n", len(r.Players), r.MaxPlayers)
	for _, m := range r.Players {
		marker := " "
		if m.SUID == r.Leader.SUID {
			marker = "*"
		}
		fmt.Fprintf(o.w, "  %s %s (%s)\n", marker, displayName(m.Player), m.SUID)
	}
}

func displayName(p Player) string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Username
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Fprintf(o.w, "Status: %s\n", h.Status)
	fmt.Fprintf(o.w, "Connections: %d\n", h.Connections)
}

func (o *Output) printReply(r Reply) {
	if r.Room == nil {
		fmt.Fprintf(o.w, "<- %d\n", r.Status)
		return
	}
	fmt.Fprintf(o.w, "<- %d %s\n", r.Status, *r.Room)
}
