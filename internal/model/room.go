package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// RoomID is the private, unguessable room identifier
type RoomID string

// PublicID is the short numeric join code shared between humans
type PublicID uint32

// Public join codes are drawn from [PublicIDMin, PublicIDMax)
const (
	PublicIDMin PublicID = 10_000
	PublicIDMax PublicID = 100_000
)

// DefaultMaxPlayers is the capacity of a newly created room
const DefaultMaxPlayers uint8 = 5

// Valid reports whether the code is inside the join code range
func (id PublicID) Valid() bool {
	return id >= PublicIDMin && id < PublicIDMax
}

func (id PublicID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParsePublicID parses a decimal join code and checks its range
func ParsePublicID(s string) (PublicID, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRoomID, s)
	}
	id := PublicID(n)
	if !id.Valid() {
		return 0, fmt.Errorf("%w: %d out of range", ErrInvalidRoomID, n)
	}
	return id, nil
}

// RoomState is derived from membership and the started latch
type RoomState string

const (
	RoomStateCreated   RoomState = "created"
	RoomStateActive    RoomState = "active"
	RoomStateStarted   RoomState = "started"
	RoomStateDisbanded RoomState = "disbanded"
)

// Room is a game lobby and its membership
type Room struct {
	PrivateID  RoomID   `json:"private_id"`
	PublicID   PublicID `json:"public_id"`
	Players    []Member `json:"players"` // insertion ordered, leader's original slot first
	MaxPlayers uint8    `json:"max_players"`
	Leader     Player   `json:"leader"`
	Started    bool     `json:"started"`
	Private    bool     `json:"private"`

	// Version is 1 after creation and bumped on every persisted write
	Version   uint64    `json:"-"`
	CreatedAt time.Time `json:"-"`
}

// NewRoom builds a room with the leader as its only member
func NewRoom(leader Player, privateID RoomID, publicID PublicID, createdAt time.Time) *Room {
	return &Room{
		PrivateID:  privateID,
		PublicID:   publicID,
		Players:    []Member{NewMember(leader)},
		MaxPlayers: DefaultMaxPlayers,
		Leader:     leader,
		CreatedAt:  createdAt,
	}
}

// State reports the lifecycle state of the room
func (r *Room) State() RoomState {
	switch {
	case len(r.Players) == 0:
		return RoomStateDisbanded
	case r.Started:
		return RoomStateStarted
	case len(r.Players) == 1 && r.Version <= 1:
		return RoomStateCreated
	default:
		return RoomStateActive
	}
}

// GetMember returns the member with the given SUID, or nil if not found
func (r *Room) GetMember(suid SUID) *Member {
	for i := range r.Players {
		if r.Players[i].SUID == suid {
			return &r.Players[i]
		}
	}
	return nil
}

// HasMember reports whether a player with the SUID is in the room
func (r *Room) HasMember(suid SUID) bool {
	return r.GetMember(suid) != nil
}

// IsLeader reports whether the SUID belongs to the current leader
func (r *Room) IsLeader(suid SUID) bool {
	return r.Leader.SUID == suid
}

// IsFull reports whether another player would exceed MaxPlayers
func (r *Room) IsFull() bool {
	return len(r.Players) >= int(r.MaxPlayers)
}

// AddPlayer appends a player to the end of the member list
func (r *Room) AddPlayer(p Player) error {
	if r.HasMember(p.SUID) {
		return ErrAlreadyInRoom
	}
	if r.IsFull() {
		return ErrRoomFull
	}
	r.Players = append(r.Players, NewMember(p))
	return nil
}

// RemovePlayer takes a player out of the room. When the leader leaves, the
// next member in list order is promoted. Returns true when the room has no
// members left and should be disbanded.
func (r *Room) RemovePlayer(suid SUID) (bool, error) {
	idx := -1
	for i := range r.Players {
		if r.Players[i].SUID == suid {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, ErrNotInRoom
	}

	r.Players = append(r.Players[:idx], r.Players[idx+1:]...)

	if len(r.Players) == 0 {
		r.Leader = Player{}
		return true, nil
	}
	if r.Leader.SUID == suid {
		r.Leader = r.Players[0].Player
	}
	return false, nil
}

// ChangeMaxPlayers resizes the room; it never evicts members
func (r *Room) ChangeMaxPlayers(maxPlayers uint8) error {
	if maxPlayers == 0 || int(maxPlayers) < len(r.Players) {
		return fmt.Errorf("%w: %d with %d members", ErrInvalidMaxPlayers, maxPlayers, len(r.Players))
	}
	r.MaxPlayers = maxPlayers
	return nil
}

// SetPrivate changes lobby-browser visibility
func (r *Room) SetPrivate(private bool) {
	r.Private = private
}

// Start latches the started flag
func (r *Room) Start() {
	r.Started = true
}

// Validate checks the membership invariants. Persisted rooms that fail it
// are treated as corrupted.
func (r *Room) Validate() error {
	if r.PrivateID == "" {
		return fmt.Errorf("%w: empty private id", ErrCorruptedRoom)
	}
	if !r.PublicID.Valid() {
		return fmt.Errorf("%w: public id %d out of range", ErrCorruptedRoom, r.PublicID)
	}
	if r.MaxPlayers == 0 {
		return fmt.Errorf("%w: max players is zero", ErrCorruptedRoom)
	}
	if len(r.Players) > int(r.MaxPlayers) {
		return fmt.Errorf("%w: %d members exceeds max %d", ErrCorruptedRoom, len(r.Players), r.MaxPlayers)
	}
	seen := make(map[SUID]struct{}, len(r.Players))
	for _, m := range r.Players {
		if _, dup := seen[m.SUID]; dup {
			return fmt.Errorf("%w: duplicate member %s", ErrCorruptedRoom, m.SUID)
		}
		seen[m.SUID] = struct{}{}
	}
	if _, ok := seen[r.Leader.SUID]; !ok {
		return fmt.Errorf("%w: leader %s is not a member", ErrCorruptedRoom, r.Leader.SUID)
	}
	return nil
}

// Clone returns a deep copy so callers can mutate without aliasing storage
func (r *Room) Clone() *Room {
	c := *r
	c.Players = make([]Member, len(r.Players))
	copy(c.Players, r.Players)
	return &c
}

// Canonical renders the room in the JSON form sent to clients
func (r *Room) Canonical() (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRoomEncode, err)
	}
	return string(b), nil
}
