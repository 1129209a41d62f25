package domain

import "time"

type Room string

const (
	RoomAlpha Room = "alpha"
	RoomBeta  Room = "beta"
	RoomGamma Room = "gamma"
	RoomDelta Room = "delta"
)

// Rooms is the fixed set of bookable rooms.
var Rooms = []Room{RoomAlpha, RoomBeta, RoomGamma, RoomDelta}

// Valid reports whether the room is one of the known rooms.
func (r Room) Valid() bool {
	for _, room := range Rooms {
		if r == room {
			return true
		}
	}
	return false
}

type Action string

const (
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

// Valid reports whether the action is one a private key can grant.
func (a Action) Valid() bool {
	return a == ActionEdit || a == ActionDelete
}

// Reservation is a single time-boxed booking of one room.
// Key material is stored hashed; plaintext keys exist only in the
// create result handed back to the organizer.
type Reservation struct {
	ID             int64     `json:"id"`
	Date           Date      `json:"date"`
	StartTime      TimeOfDay `json:"startTime"`
	EndTime        TimeOfDay `json:"endTime"`
	Room           Room      `json:"room"`
	Organizer      string    `json:"organizer"`
	Remarks        string    `json:"remarks"`
	Participants   string    `json:"participants"`
	PrivateKeyHash string    `json:"-"`
	PublicKeyHash  string    `json:"-"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// OverlapsSlot reports whether the reservation's interval conflicts with
// the candidate [start,end) on the same room and day. A reservation that
// ends exactly when the candidate starts (or vice versa) does not conflict.
func (r Reservation) OverlapsSlot(start, end TimeOfDay) bool {
	startsDuring := r.StartTime < end && r.StartTime >= start
	endsDuring := r.EndTime > start && r.EndTime <= end
	contains := r.StartTime <= start && r.EndTime >= end
	return startsDuring || endsDuring || contains
}

// StartsAt returns the instant the reservation begins in the given zone.
func (r Reservation) StartsAt(loc *time.Location) time.Time {
	return r.Date.At(r.StartTime, loc)
}

// Credential is a capability grant produced by successful private-key
// verification. It is scoped to one reservation and one action, and carries
// the verified key so the grant can be re-checked against current storage
// state when it is used.
type Credential struct {
	ReservationID int64     `json:"reservationId"`
	Action        Action    `json:"action"`
	Key           string    `json:"-"`
	ExpiresAt     time.Time `json:"expiresAt"`
}
