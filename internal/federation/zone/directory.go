// Package zone derives zone leaders, the controller and zone membership from
// membership views, and computes what changed between two views.
//
// All functions are pure: they read the views they are given and never keep
// state, so callers may use them from any goroutine.
package zone

import (
	"github.com/yndnr/zonemesh-go/internal/federation/view"
)

// Delta describes the difference between two consecutive views.
type Delta struct {
	// Joined are members present in the new view only, in new-view order.
	Joined []view.Member
	// Left are members present in the old view only, in old-view order.
	Left []view.Member
	// NewLeaders are zone leaders of the new view that did not lead the
	// same zone in the old view, ordered by seniority in the new view.
	NewLeaders []view.Member
}

// LeaderOf returns the most senior non-controller member of zone.
func LeaderOf(zone string, v *view.View) (view.Member, bool) {
	if zone == "" {
		return view.Member{}, false
	}
	for _, m := range v.Members() {
		if m.Identity.ZoneName() == zone {
			return m, true
		}
	}
	return view.Member{}, false
}

// ControllerOf returns the controller of v. If more than one member claims
// the controller role, the most senior one wins.
func ControllerOf(v *view.View) (view.Member, bool) {
	for _, m := range v.Members() {
		if m.Identity.IsController() {
			return m, true
		}
	}
	return view.Member{}, false
}

// MembersOf returns the members of zone in seniority order.
func MembersOf(zone string, v *view.View) []view.Member {
	if zone == "" {
		return nil
	}
	var out []view.Member
	for _, m := range v.Members() {
		if m.Identity.ZoneName() == zone {
			out = append(out, m)
		}
	}
	return out
}

// Names returns the distinct zones present in v, ordered by the seniority of
// each zone's leader.
func Names(v *view.View) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range v.Members() {
		z := m.Identity.ZoneName()
		if z == "" {
			continue
		}
		if _, ok := seen[z]; ok {
			continue
		}
		seen[z] = struct{}{}
		out = append(out, z)
	}
	return out
}

// Leaders returns the leader of every zone in v keyed by zone name.
func Leaders(v *view.View) map[string]view.Member {
	out := make(map[string]view.Member)
	for _, m := range v.Members() {
		z := m.Identity.ZoneName()
		if z == "" {
			continue
		}
		if _, ok := out[z]; !ok {
			out[z] = m
		}
	}
	return out
}

// Diff computes the changes from old to next. A nil old view means the
// runtime is bootstrapping: every member has joined and every current zone
// leader is new.
func Diff(old, next *view.View) Delta {
	var d Delta

	for _, m := range next.Members() {
		if !old.Contains(m.Name) {
			d.Joined = append(d.Joined, m)
		}
	}
	for _, m := range old.Members() {
		if !next.Contains(m.Name) {
			d.Left = append(d.Left, m)
		}
	}

	before := Leaders(old)
	for _, z := range Names(next) {
		leader, _ := LeaderOf(z, next)
		if prev, ok := before[z]; ok && prev.Name == leader.Name {
			continue
		}
		d.NewLeaders = append(d.NewLeaders, leader)
	}
	return d
}

// IsLeader reports whether name leads its zone in v.
func IsLeader(name string, v *view.View) bool {
	m, ok := v.Member(name)
	if !ok {
		return false
	}
	leader, ok := LeaderOf(m.Identity.ZoneName(), v)
	return ok && leader.Name == name
}
