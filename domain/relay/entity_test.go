package relay

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScopeValue(t *testing.T) {
	tests := []struct {
		raw    string
		want   string
		wantOK bool
	}{
		{`42`, "42", true},
		{` "abc" `, "abc", true},
		{`true`, "true", true},
		{`1.5`, "1.5", true},
		{``, "", false},
		{`null`, "", false},
		{`""`, "", false},
		{`0`, "", false},
		{`0.0`, "", false},
		{`false`, "", false},
		{`{"id":1}`, "", false},
		{`[1]`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ScopeValue(json.RawMessage(tt.raw))
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIdentity_Text(t *testing.T) {
	identity := Identity{
		UserID:   json.RawMessage(`15`),
		UserName: json.RawMessage(`"Marta"`),
	}
	assert.Equal(t, "15", identity.Subject())
	assert.Equal(t, "Marta", identity.DisplayName())

	assert.Empty(t, Identity{UserName: json.RawMessage(`null`)}.DisplayName())
}

func TestRoomName(t *testing.T) {
	assert.Equal(t, "presupuesto:42", RoomName("presupuesto", "42"))
}

func TestTargetKind_String(t *testing.T) {
	assert.Equal(t, "room", ToRoom("r").Kind.String())
	assert.Equal(t, "broadcast", ToAll().Kind.String())
	assert.Equal(t, "broadcast_except", ToAllExcept("c").Kind.String())
	assert.Equal(t, "connection", ToConnection("c").Kind.String())
	assert.Equal(t, "unknown", TargetKind(99).String())
}

func TestRoomID(t *testing.T) {
	tests := []struct {
		raw    string
		want   string
		wantOK bool
	}{
		{`42`, "42", true},
		{`0`, "0", true},
		{`""`, "", true},
		{`"abc"`, "abc", true},
		{`false`, "false", true},
		{``, "", false},
		{`null`, "", false},
		{`{"id":1}`, "", false},
		{`[1]`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := RoomID(json.RawMessage(tt.raw))
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
