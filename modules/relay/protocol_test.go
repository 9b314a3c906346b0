package relay

import (
	"encoding/json"
	"testing"

	domain "github.com/example/realtime-relay/domain/relay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		event    string
		wantKind inboundKind
		wantArg  string
	}{
		{"authenticate", "authenticate", inboundAuthenticate, ""},
		{"ping", "ping", inboundPing, ""},
		{"join", "join:presupuesto", inboundJoin, "presupuesto"},
		{"leave", "leave:presupuesto", inboundLeave, "presupuesto"},
		{"updated", "tasacion:updated", inboundUpdated, "tasacion"},
		{"join without kind", "join:", inboundUnknown, ""},
		{"updated without domain", ":updated", inboundUnknown, ""},
		{"changed is not inbound", "tasacion:changed", inboundUnknown, ""},
		{"unknown", "hello", inboundUnknown, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, arg := classify(tt.event)
			assert.Equal(t, tt.wantKind, kind)
			assert.Equal(t, tt.wantArg, arg)
		})
	}
}

func TestParseFrame(t *testing.T) {
	evt, err := ParseFrame([]byte(`{"event":"join:presupuesto","data":42}`))
	require.NoError(t, err)
	assert.Equal(t, "join:presupuesto", evt.Name)
	assert.JSONEq(t, `42`, string(evt.Data))

	for _, bad := range []string{``, `not json`, `[]`, `{"data":1}`, `{"event":""}`} {
		_, err := ParseFrame([]byte(bad))
		assert.ErrorIs(t, err, ErrMalformedFrame, "frame %q", bad)
	}
}

func TestDecodeIdentity(t *testing.T) {
	identity := decodeIdentity(json.RawMessage(`{"userId":7,"userName":"Ana","userRole":null,"extra":true}`))
	assert.Equal(t, "7", identity.Subject())
	assert.Equal(t, "Ana", identity.DisplayName())

	assert.Equal(t, domain.Identity{}, decodeIdentity(json.RawMessage(`"just a string"`)))
	assert.Equal(t, domain.Identity{}, decodeIdentity(nil))
}

func TestRuleSet_RelayTarget(t *testing.T) {
	rules := NewRuleSet([]domain.Rule{
		{Domain: "tasacion", ScopeField: "presupuestoId", RoomKind: "presupuesto"},
		{Domain: "cita", RoomKind: "agenda"},
	})

	tests := []struct {
		name    string
		domain  string
		payload string
		want    domain.Target
	}{
		{
			name:    "configured rule with scope",
			domain:  "tasacion",
			payload: `{"tasacionId":7,"presupuestoId":42}`,
			want:    domain.ToRoomExcept("presupuesto:42", "sender"),
		},
		{
			name:    "configured rule with string scope",
			domain:  "tasacion",
			payload: `{"presupuestoId":"P-9"}`,
			want:    domain.ToRoomExcept("presupuesto:P-9", "sender"),
		},
		{
			name:    "configured rule without scope",
			domain:  "tasacion",
			payload: `{"tasacionId":7}`,
			want:    domain.ToAllExcept("sender"),
		},
		{
			name:    "falsy scope counts as absent",
			domain:  "tasacion",
			payload: `{"presupuestoId":0}`,
			want:    domain.ToAllExcept("sender"),
		},
		{
			name:    "rule without scope field reads roomScopeId",
			domain:  "cita",
			payload: `{"roomScopeId":3}`,
			want:    domain.ToRoomExcept("agenda:3", "sender"),
		},
		{
			name:    "unconfigured domain uses roomScopeId verbatim",
			domain:  "vehiculo",
			payload: `{"entityId":1,"roomScopeId":"vehiculo:5"}`,
			want:    domain.ToRoomExcept("vehiculo:5", "sender"),
		},
		{
			name:    "unconfigured domain without scope",
			domain:  "vehiculo",
			payload: `{"entityId":1}`,
			want:    domain.ToAllExcept("sender"),
		},
		{
			name:    "non-object payload",
			domain:  "tasacion",
			payload: `"42"`,
			want:    domain.ToAllExcept("sender"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rules.RelayTarget(tt.domain, json.RawMessage(tt.payload), "sender")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewRuleSet_SkipsEmptyDomain(t *testing.T) {
	rules := NewRuleSet([]domain.Rule{{RoomKind: "x"}, {Domain: "a", RoomKind: "b"}})
	assert.Len(t, rules, 1)
}
