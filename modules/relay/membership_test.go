package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMembershipIndex_JoinIsIdempotent(t *testing.T) {
	m := NewMembershipIndex()

	assert.True(t, m.Join("c1", "presupuesto:42"))
	assert.False(t, m.Join("c1", "presupuesto:42"))

	assert.Equal(t, 1, m.Size("presupuesto:42"))
	assert.Equal(t, []string{"presupuesto:42"}, m.RoomsOf("c1"))
}

func TestMembershipIndex_Leave(t *testing.T) {
	tests := []struct {
		name      string
		join      []string
		leave     string
		wantLeft  bool
		wantRooms int
	}{
		{
			name:      "member leaves and room is pruned",
			join:      []string{"presupuesto:1"},
			leave:     "presupuesto:1",
			wantLeft:  true,
			wantRooms: 0,
		},
		{
			name:      "leaving a room never joined",
			join:      []string{"presupuesto:1"},
			leave:     "presupuesto:2",
			wantLeft:  false,
			wantRooms: 1,
		},
		{
			name:      "leaving unknown room",
			leave:     "presupuesto:9",
			wantLeft:  false,
			wantRooms: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMembershipIndex()
			for _, room := range tt.join {
				m.Join("c1", room)
			}

			assert.Equal(t, tt.wantLeft, m.Leave("c1", tt.leave))
			assert.Equal(t, tt.wantRooms, m.RoomCount())
			assert.False(t, m.IsMember("c1", tt.leave))
		})
	}
}

func TestMembershipIndex_LeaveKeepsOtherMembers(t *testing.T) {
	m := NewMembershipIndex()
	m.Join("c1", "r")
	m.Join("c2", "r")

	m.Leave("c1", "r")

	assert.Equal(t, []string{"c2"}, m.MembersOf("r"))
	assert.Empty(t, m.RoomsOf("c1"))
}

func TestMembershipIndex_MembersOfReturnsCopy(t *testing.T) {
	m := NewMembershipIndex()
	m.Join("c1", "r")

	members := m.MembersOf("r")
	members[0] = "mutated"

	assert.Equal(t, []string{"c1"}, m.MembersOf("r"))
	assert.Empty(t, m.MembersOf("unknown"))
}

func TestMembershipIndex_RemoveConnectionEverywhere(t *testing.T) {
	m := NewMembershipIndex()
	m.Join("c1", "a")
	m.Join("c1", "b")
	m.Join("c2", "b")

	left := m.RemoveConnectionEverywhere("c1")

	assert.ElementsMatch(t, []string{"a", "b"}, left)
	assert.Empty(t, m.MembersOf("a"))
	assert.Equal(t, []string{"c2"}, m.MembersOf("b"))
	assert.Equal(t, 1, m.RoomCount())
	assert.Nil(t, m.RemoveConnectionEverywhere("c1"))
}
