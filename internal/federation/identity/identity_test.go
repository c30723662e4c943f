package identity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/zonemesh-go/internal/core/domain"
)

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		role Role
	}{
		{"participant", RoleParticipant},
		{"node", RoleNode},
		{"controller", RoleController},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := New("domain", tt.role, "zone1", "7f3a")
			require.NoError(t, err)

			decoded := Decode(Encode(id))
			assert.Equal(t, id, decoded)
			assert.False(t, decoded.Legacy())
		})
	}
}

func TestEncode(t *testing.T) {
	id, err := New("prod", RoleParticipant, "east", "1")
	require.NoError(t, err)
	assert.Equal(t, "prod:participant:east:1", Encode(id))
	assert.Equal(t, "prod:participant:east:1", id.String())
}

func TestNew_Rejects(t *testing.T) {
	tests := []struct {
		name       string
		domainName string
		role       Role
		zone       string
		instance   string
	}{
		{"separator in zone", "d", RoleNode, "a:b", "1"},
		{"separator in domain", "d:x", RoleNode, "z", "1"},
		{"separator in instance", "d", RoleNode, "z", "1:2"},
		{"empty zone", "d", RoleNode, "", "1"},
		{"unknown role", "d", Role("runtime"), "z", "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.domainName, tt.role, tt.zone, tt.instance)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidArgument))
		})
	}
}

func TestDecode_Lenient(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"plain host name", "runtime-42"},
		{"unknown role", "domain:vm:zone1:1"},
		{"too few segments", "domain:participant:zone1"},
		{"too many segments", "a:participant:b:c:d"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := Decode(tt.in)
			assert.True(t, id.Legacy())
			assert.Empty(t, id.ZoneName())
			assert.False(t, id.IsController())
			assert.Equal(t, tt.in, Encode(id))
		})
	}
}

func TestZoneName(t *testing.T) {
	assert.Equal(t, "zone1", Decode("domain:node:zone1:1").ZoneName())
	assert.Equal(t, "zone1", Decode("domain:participant:zone1:1").ZoneName())
	assert.Empty(t, Decode("domain:controller:zone1:1").ZoneName())
	assert.True(t, Decode("domain:controller:zone1:1").IsController())
}
