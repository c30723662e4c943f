package zone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/zonemesh-go/internal/federation/view"
)

func names(members []view.Member) []string {
	out := make([]string, 0, len(members))
	for _, m := range members {
		out = append(out, m.Name)
	}
	return out
}

func TestLeaderOf(t *testing.T) {
	tests := []struct {
		name string
		role string
	}{
		{"participant naming", "participant"},
		{"node naming", "node"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a1 := "domain:" + tt.role + ":zone1:1"
			a2 := "domain:" + tt.role + ":zone1:2"
			a3 := "domain:" + tt.role + ":zone2:3"
			v := view.New(123, a1, a2, a3)

			leader, ok := LeaderOf("zone1", v)
			require.True(t, ok)
			assert.Equal(t, a1, leader.Name)

			leader, ok = LeaderOf("zone2", v)
			require.True(t, ok)
			assert.Equal(t, a3, leader.Name)
		})
	}
}

func TestLeaderOf_SkipsController(t *testing.T) {
	v := view.New(1, "domain:controller:zone1:0", "domain:participant:zone1:1")

	leader, ok := LeaderOf("zone1", v)
	require.True(t, ok)
	assert.Equal(t, "domain:participant:zone1:1", leader.Name)
}

func TestLeaderOf_EmptyZone(t *testing.T) {
	v := view.New(1, "domain:participant:zone1:1", "legacy-host")

	_, ok := LeaderOf("zone9", v)
	assert.False(t, ok)

	_, ok = LeaderOf("", v)
	assert.False(t, ok, "legacy members must not form an unnamed zone")

	_, ok = LeaderOf("zone1", nil)
	assert.False(t, ok)
}

func TestMembersOf(t *testing.T) {
	v := view.New(123,
		"domain:participant:zone1:1",
		"domain:participant:zone2:3",
		"domain:controller:zone1:0",
		"domain:participant:zone1:2",
	)

	assert.Equal(t,
		[]string{"domain:participant:zone1:1", "domain:participant:zone1:2"},
		names(MembersOf("zone1", v)))
	assert.Empty(t, MembersOf("zone3", v))
}

func TestControllerOf(t *testing.T) {
	v := view.New(1, "domain:participant:zone1:1", "domain:controller:ctl:1", "domain:controller:ctl:2")

	c, ok := ControllerOf(v)
	require.True(t, ok)
	assert.Equal(t, "domain:controller:ctl:1", c.Name)

	_, ok = ControllerOf(view.New(2, "domain:participant:zone1:1"))
	assert.False(t, ok)
}

func TestDiff_Bootstrap(t *testing.T) {
	a2 := "domain:participant:zone:2"
	a3 := "domain:participant:zone:3"
	a4 := "domain:participant:zone2:3"
	next := view.New(456, a2, a3, a4)

	d := Diff(nil, next)

	assert.Equal(t, []string{a2, a3, a4}, names(d.Joined))
	assert.Empty(t, d.Left)
	assert.ElementsMatch(t, []string{a2, a4}, names(d.NewLeaders))
}

func TestDiff_JoinedAndLeft(t *testing.T) {
	old := view.New(123, "a", "b")
	next := view.New(456, "b", "c")

	d := Diff(old, next)

	assert.Equal(t, []string{"c"}, names(d.Joined))
	assert.Equal(t, []string{"a"}, names(d.Left))
}

func TestDiff_ReorderIsNoChange(t *testing.T) {
	old := view.New(123, "a", "b")
	next := view.New(456, "b", "a")

	d := Diff(old, next)

	assert.Empty(t, d.Joined)
	assert.Empty(t, d.Left)
}

func TestDiff_NewZoneLeaders(t *testing.T) {
	a1 := "domain:participant:zone:1"
	a2 := "domain:participant:zone:2"
	a3 := "domain:participant:zone:3"
	a4 := "domain:participant:zone2:3"
	old := view.New(123, a1)
	next := view.New(456, a2, a3, a4)

	d := Diff(old, next)

	assert.ElementsMatch(t, []string{a2, a4}, names(d.NewLeaders))
}

func TestDiff_IncumbentLeaderKept(t *testing.T) {
	a := "domain:participant:zone1:1"
	b := "domain:participant:zone1:2"
	old := view.New(1, a)
	next := view.New(2, a, b)

	d := Diff(old, next)

	assert.Equal(t, []string{b}, names(d.Joined))
	assert.Empty(t, d.NewLeaders)
}

func TestDiff_LeaderDeparts(t *testing.T) {
	a := "domain:participant:zone1:1"
	b := "domain:participant:zone1:2"
	c := "domain:participant:zone1:3"
	old := view.New(1, a, b, c)
	next := view.New(2, b, c)

	d := Diff(old, next)

	assert.Equal(t, []string{a}, names(d.Left))
	assert.Equal(t, []string{b}, names(d.NewLeaders))
}

func TestDiff_ControllerJoinsZone(t *testing.T) {
	a := "domain:participant:zone1:1"
	b := "domain:participant:zone1:2"
	c := "domain:controller:ctl:1"
	v1 := view.New(1, a)
	v2 := view.New(2, a, b, c)

	d := Diff(v1, v2)

	assert.ElementsMatch(t, []string{b, c}, names(d.Joined))
	leader, ok := LeaderOf("zone1", v2)
	require.True(t, ok)
	assert.Equal(t, a, leader.Name)
	assert.Empty(t, d.NewLeaders)
}

func TestDiff_IsPure(t *testing.T) {
	old := view.New(1, "domain:participant:z:1")
	next := view.New(2, "domain:participant:z:2")

	first := Diff(old, next)
	second := Diff(old, next)

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"domain:participant:z:1"}, old.Names())
}

func TestNamesAndIsLeader(t *testing.T) {
	v := view.New(1,
		"domain:participant:zone2:1",
		"domain:controller:ctl:1",
		"domain:participant:zone1:2",
		"domain:participant:zone2:3",
	)

	assert.Equal(t, []string{"zone2", "zone1"}, Names(v))
	assert.True(t, IsLeader("domain:participant:zone2:1", v))
	assert.True(t, IsLeader("domain:participant:zone1:2", v))
	assert.False(t, IsLeader("domain:participant:zone2:3", v))
	assert.False(t, IsLeader("domain:controller:ctl:1", v))
	assert.False(t, IsLeader("missing", v))
}
