// Package view holds immutable membership snapshots.
//
// A View is the ordered list of reachable members at one point in time. The
// order encodes seniority: index 0 is the most senior member. Views are never
// modified after construction; the transport replaces the current view with a
// new one carrying a higher id.
package view

import (
	"github.com/yndnr/zonemesh-go/internal/federation/identity"
)

// Member is one reachable runtime in a view.
type Member struct {
	// Name is the opaque transport identity.
	Name string
	// Identity is Name decoded.
	Identity identity.Identity
}

// NewMember decodes name into a Member.
func NewMember(name string) Member {
	return Member{Name: name, Identity: identity.Decode(name)}
}

// View is an immutable, versioned membership snapshot.
type View struct {
	id      uint64
	members []Member
	index   map[string]int
}

// New builds a view from member names in seniority order. Duplicate names
// keep their first (most senior) position.
func New(id uint64, names ...string) *View {
	v := &View{
		id:      id,
		members: make([]Member, 0, len(names)),
		index:   make(map[string]int, len(names)),
	}
	for _, name := range names {
		if _, dup := v.index[name]; dup {
			continue
		}
		v.index[name] = len(v.members)
		v.members = append(v.members, NewMember(name))
	}
	return v
}

// ID returns the view id. Later views have higher ids.
func (v *View) ID() uint64 {
	if v == nil {
		return 0
	}
	return v.id
}

// Len returns the number of members.
func (v *View) Len() int {
	if v == nil {
		return 0
	}
	return len(v.members)
}

// Members returns a copy of the members in seniority order.
func (v *View) Members() []Member {
	if v == nil {
		return nil
	}
	out := make([]Member, len(v.members))
	copy(out, v.members)
	return out
}

// Names returns the member names in seniority order.
func (v *View) Names() []string {
	if v == nil {
		return nil
	}
	out := make([]string, len(v.members))
	for i, m := range v.members {
		out[i] = m.Name
	}
	return out
}

// Contains reports whether name is a member.
func (v *View) Contains(name string) bool {
	_, ok := v.Member(name)
	return ok
}

// Member looks a member up by name.
func (v *View) Member(name string) (Member, bool) {
	if v == nil {
		return Member{}, false
	}
	i, ok := v.index[name]
	if !ok {
		return Member{}, false
	}
	return v.members[i], true
}

// Seniority returns the position of name, or -1 if it is not a member.
func (v *View) Seniority(name string) int {
	if v == nil {
		return -1
	}
	if i, ok := v.index[name]; ok {
		return i
	}
	return -1
}
