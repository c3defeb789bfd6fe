package models

import (
	"fmt"
	"time"
)

// Room is a two-person conversation channel. It carries no name or owner;
// its identity is the canonical pair of its two members.
type Room struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PairKey   string    `gorm:"size:64;not null;uniqueIndex" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Users     []User    `gorm:"many2many:entries;" json:"users,omitempty"`
	Messages  []Message `json:"messages,omitempty"`
}

// Entry is a membership row binding one user to one room. The composite
// primary key makes a duplicate (room, user) pair unrepresentable.
type Entry struct {
	RoomID     uint      `gorm:"primaryKey" json:"room_id"`
	UserID     uint      `gorm:"primaryKey" json:"user_id"`
	LastReadAt time.Time `json:"last_read_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// PairKey returns the canonical key for an unordered user pair, smaller
// id first, so {a,b} and {b,a} map to the same room.
func PairKey(a, b uint) string {
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}
