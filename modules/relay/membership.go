package relay

// MembershipIndex tracks which connections are joined to which rooms.
// Rooms exist only while they have members. A reverse index per connection
// keeps disconnect cleanup proportional to the rooms that connection joined.
// It is owned by the hub loop and is not safe for concurrent use.
type MembershipIndex struct {
	rooms  map[string]map[string]struct{} // roomID -> set of connIDs
	joined map[string]map[string]struct{} // connID -> set of roomIDs
}

// NewMembershipIndex creates an empty index.
func NewMembershipIndex() *MembershipIndex {
	return &MembershipIndex{
		rooms:  make(map[string]map[string]struct{}),
		joined: make(map[string]map[string]struct{}),
	}
}

// Join adds connID to roomID. It reports whether the membership is new.
func (m *MembershipIndex) Join(connID, roomID string) bool {
	members := m.rooms[roomID]
	if members == nil {
		members = make(map[string]struct{})
		m.rooms[roomID] = members
	}
	if _, ok := members[connID]; ok {
		return false
	}
	members[connID] = struct{}{}

	rooms := m.joined[connID]
	if rooms == nil {
		rooms = make(map[string]struct{})
		m.joined[connID] = rooms
	}
	rooms[roomID] = struct{}{}
	return true
}

// Leave removes connID from roomID. It reports whether connID was a member.
func (m *MembershipIndex) Leave(connID, roomID string) bool {
	members, ok := m.rooms[roomID]
	if !ok {
		return false
	}
	if _, ok := members[connID]; !ok {
		return false
	}

	delete(members, connID)
	if len(members) == 0 {
		delete(m.rooms, roomID)
	}

	if rooms := m.joined[connID]; rooms != nil {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(m.joined, connID)
		}
	}
	return true
}

// MembersOf returns a snapshot of the connections in roomID.
func (m *MembershipIndex) MembersOf(roomID string) []string {
	members := m.rooms[roomID]
	result := make([]string, 0, len(members))
	for connID := range members {
		result = append(result, connID)
	}
	return result
}

// IsMember reports whether connID is joined to roomID.
func (m *MembershipIndex) IsMember(connID, roomID string) bool {
	_, ok := m.rooms[roomID][connID]
	return ok
}

// RoomsOf returns the rooms connID is joined to.
func (m *MembershipIndex) RoomsOf(connID string) []string {
	rooms := m.joined[connID]
	result := make([]string, 0, len(rooms))
	for roomID := range rooms {
		result = append(result, roomID)
	}
	return result
}

// RemoveConnectionEverywhere drops connID from every room it joined and
// returns those rooms.
func (m *MembershipIndex) RemoveConnectionEverywhere(connID string) []string {
	rooms, ok := m.joined[connID]
	if !ok {
		return nil
	}
	delete(m.joined, connID)

	left := make([]string, 0, len(rooms))
	for roomID := range rooms {
		if members := m.rooms[roomID]; members != nil {
			delete(members, connID)
			if len(members) == 0 {
				delete(m.rooms, roomID)
			}
		}
		left = append(left, roomID)
	}
	return left
}

// Size returns the member count of roomID.
func (m *MembershipIndex) Size(roomID string) int {
	return len(m.rooms[roomID])
}

// RoomCount returns the number of non-empty rooms.
func (m *MembershipIndex) RoomCount() int {
	return len(m.rooms)
}
