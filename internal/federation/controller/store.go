package controller

import (
	"slices"
	"sync"

	"github.com/yndnr/zonemesh-go/internal/federation/command"
)

// Store holds the current deployment of every zone in memory.
type Store struct {
	mu          sync.RWMutex
	deployments map[string]*command.DeploymentCommand
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{deployments: make(map[string]*command.DeploymentCommand)}
}

// Put replaces the units deployed to zone and returns the new deployment.
// Each call bumps the zone's revision.
func (s *Store) Put(zone string, units []command.Unit) *command.DeploymentCommand {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rev uint64
	if prev, ok := s.deployments[zone]; ok {
		rev = prev.Revision
	}
	d := &command.DeploymentCommand{
		Zone:     zone,
		Revision: rev + 1,
		Units:    cloneUnits(units),
	}
	s.deployments[zone] = d
	return clone(d)
}

// Get returns the deployment of zone. A zone nothing was deployed to yields
// an empty deployment at revision 0.
func (s *Store) Get(zone string) *command.DeploymentCommand {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if d, ok := s.deployments[zone]; ok {
		return clone(d)
	}
	return &command.DeploymentCommand{Zone: zone}
}

// Zones returns the zones with a deployment, sorted.
func (s *Store) Zones() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	zones := make([]string, 0, len(s.deployments))
	for z := range s.deployments {
		zones = append(zones, z)
	}
	slices.Sort(zones)
	return zones
}

func clone(d *command.DeploymentCommand) *command.DeploymentCommand {
	out := *d
	out.Units = cloneUnits(d.Units)
	return &out
}

func cloneUnits(units []command.Unit) []command.Unit {
	if units == nil {
		return nil
	}
	out := make([]command.Unit, len(units))
	for i, u := range units {
		out[i] = command.Unit{Name: u.Name, Data: slices.Clone(u.Data)}
	}
	return out
}
