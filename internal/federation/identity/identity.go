// Package identity encodes and decodes runtime identities carried by the
// group transport as flat member names.
//
// The wire form is "<domain>:<role>:<zone>:<instanceId>". Names that do not
// follow it (wrong segment count or an unknown role) decode leniently to a
// legacy identity that belongs to no zone.
package identity

import (
	"strings"

	"github.com/yndnr/zonemesh-go/internal/core/domain"
)

// Separator delimits identity segments on the wire.
const Separator = ":"

// Role is the part a runtime plays in the domain.
type Role string

// Known roles.
const (
	RoleController  Role = "controller"
	RoleNode        Role = "node"
	RoleParticipant Role = "participant"
)

// Valid reports whether r is a recognized role.
func (r Role) Valid() bool {
	switch r {
	case RoleController, RoleNode, RoleParticipant:
		return true
	}
	return false
}

// Identity is the structured form of a member name.
type Identity struct {
	Domain     string
	Role       Role
	Zone       string
	InstanceID string

	// raw holds the original name when it did not follow the wire form.
	raw    string
	legacy bool
}

// New builds a structured identity, rejecting segments that would not
// survive an encode/decode round trip.
func New(domainName string, role Role, zone, instanceID string) (Identity, error) {
	if !role.Valid() {
		return Identity{}, domain.ErrInvalidArgument.WithDetailsf("unknown role %q", role)
	}
	for field, v := range map[string]string{"domain": domainName, "zone": zone, "instance id": instanceID} {
		if v == "" {
			return Identity{}, domain.ErrInvalidArgument.WithDetailsf("%s must not be empty", field)
		}
		if strings.Contains(v, Separator) {
			return Identity{}, domain.ErrInvalidArgument.WithDetailsf("%s %q contains %q", field, v, Separator)
		}
	}
	return Identity{Domain: domainName, Role: role, Zone: zone, InstanceID: instanceID}, nil
}

// Encode returns the wire name of id.
func Encode(id Identity) string {
	if id.legacy {
		return id.raw
	}
	return id.Domain + Separator + string(id.Role) + Separator + id.Zone + Separator + id.InstanceID
}

// Decode parses a wire name. It never fails: names that are not in the
// structured form yield a legacy identity.
func Decode(name string) Identity {
	parts := strings.Split(name, Separator)
	if len(parts) != 4 {
		return Identity{raw: name, legacy: true}
	}
	role := Role(parts[1])
	if !role.Valid() {
		return Identity{raw: name, legacy: true}
	}
	return Identity{Domain: parts[0], Role: role, Zone: parts[2], InstanceID: parts[3]}
}

// String implements fmt.Stringer.
func (id Identity) String() string {
	return Encode(id)
}

// Legacy reports whether id was decoded from a name outside the wire form.
func (id Identity) Legacy() bool {
	return id.legacy
}

// IsController reports whether id names the domain controller.
func (id Identity) IsController() bool {
	return !id.Legacy() && id.Role == RoleController
}

// ZoneName returns the zone id belongs to, or "" for controllers and legacy
// identities, which are not part of any zone.
func (id Identity) ZoneName() string {
	if id.Legacy() || id.Role == RoleController {
		return ""
	}
	return id.Zone
}
