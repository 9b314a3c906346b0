package relay

// TargetKind selects how a dispatch resolves its recipients.
type TargetKind int

const (
	// TargetRoom delivers to the current members of one room.
	TargetRoom TargetKind = iota
	// TargetBroadcast delivers to every live connection.
	TargetBroadcast
	// TargetBroadcastExcept delivers to every live connection but the sender.
	TargetBroadcastExcept
	// TargetConnection delivers to a single connection.
	TargetConnection
)

func (k TargetKind) String() string {
	switch k {
	case TargetRoom:
		return "room"
	case TargetBroadcast:
		return "broadcast"
	case TargetBroadcastExcept:
		return "broadcast_except"
	case TargetConnection:
		return "connection"
	default:
		return "unknown"
	}
}

// Target describes the recipients of a dispatch. Exclude names a connection
// that must not receive the event; it is only honored for room and
// broadcast-except targets.
type Target struct {
	Kind       TargetKind
	Room       string
	Connection string
	Exclude    string
}

// ToRoom targets every member of room.
func ToRoom(room string) Target {
	return Target{Kind: TargetRoom, Room: room}
}

// ToRoomExcept targets every member of room other than sender.
func ToRoomExcept(room, sender string) Target {
	return Target{Kind: TargetRoom, Room: room, Exclude: sender}
}

// ToAll targets every live connection.
func ToAll() Target {
	return Target{Kind: TargetBroadcast}
}

// ToAllExcept targets every live connection other than sender.
func ToAllExcept(sender string) Target {
	return Target{Kind: TargetBroadcastExcept, Exclude: sender}
}

// ToConnection targets a single connection.
func ToConnection(connID string) Target {
	return Target{Kind: TargetConnection, Connection: connID}
}
