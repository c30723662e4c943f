package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_PreservesOrder(t *testing.T) {
	v := New(3, "d:participant:z:1", "d:participant:z:2", "d:controller:c:1")

	assert.Equal(t, uint64(3), v.ID())
	assert.Equal(t, 3, v.Len())
	assert.Equal(t, []string{"d:participant:z:1", "d:participant:z:2", "d:controller:c:1"}, v.Names())
	assert.Equal(t, 0, v.Seniority("d:participant:z:1"))
	assert.Equal(t, 2, v.Seniority("d:controller:c:1"))
	assert.Equal(t, -1, v.Seniority("missing"))
}

func TestNew_DropsDuplicates(t *testing.T) {
	v := New(1, "a", "b", "a")
	assert.Equal(t, []string{"a", "b"}, v.Names())
}

func TestMembers_ReturnsCopy(t *testing.T) {
	v := New(1, "d:node:z:1", "d:node:z:2")

	members := v.Members()
	members[0] = NewMember("tampered")

	assert.Equal(t, "d:node:z:1", v.Members()[0].Name)
}

func TestMember_Decoded(t *testing.T) {
	v := New(1, "d:participant:zone1:9")

	m, ok := v.Member("d:participant:zone1:9")
	require.True(t, ok)
	assert.Equal(t, "zone1", m.Identity.ZoneName())
	assert.True(t, v.Contains("d:participant:zone1:9"))
	assert.False(t, v.Contains("d:participant:zone1:8"))
}

func TestNilView(t *testing.T) {
	var v *View
	assert.Equal(t, uint64(0), v.ID())
	assert.Equal(t, 0, v.Len())
	assert.Nil(t, v.Members())
	assert.False(t, v.Contains("a"))
	assert.Equal(t, -1, v.Seniority("a"))
}
