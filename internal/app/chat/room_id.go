package chat

import (
	"slices"
	"strings"
)

// RoomIDSeparator joins the two participant ids of a room id.
const RoomIDSeparator = "-"

// RoomID returns the canonical id of the room shared by two users: both ids
// sorted lexicographically (byte order, not numeric) and joined by RoomIDSeparator.
// RoomID(a, b) == RoomID(b, a).
func RoomID(a, b string) string {
	ids := []string{a, b}
	slices.Sort(ids)
	return strings.Join(ids, RoomIDSeparator)
}
