package controller

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/zonemesh-go/internal/core/domain"
	"github.com/yndnr/zonemesh-go/internal/federation/command"
	"github.com/yndnr/zonemesh-go/internal/federation/dispatch"
	"github.com/yndnr/zonemesh-go/internal/federation/event"
	"github.com/yndnr/zonemesh-go/internal/federation/router"
	"github.com/yndnr/zonemesh-go/internal/federation/transport/inproc"
)

const ctrlName = "acme:controller:hq:1"

type member struct {
	name     string
	registry *command.Registry
	router   *router.Router

	mu          sync.Mutex
	deployments []*command.DeploymentCommand
}

func (m *member) received() []*command.DeploymentCommand {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*command.DeploymentCommand(nil), m.deployments...)
}

// startMember joins a plain runtime that records deployments and answers
// metadata queries with its zone.
func startMember(t *testing.T, hub *inproc.Hub, name, zone string) *member {
	t.Helper()
	m := &member{name: name, registry: command.NewRegistry()}
	serializer := command.NewJSONSerializer()
	inbound := command.NewInbound(m.registry, serializer, nil)
	d := dispatch.New(dispatch.Config{Transport: hub.NewTransport(name), Messages: inbound, Requests: inbound})
	m.router = router.New(d, router.Config{})

	m.registry.Register(command.TypeDeployment, command.ExecutorFunc(func(_ context.Context, cmd command.Command) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.deployments = append(m.deployments, cmd.(*command.DeploymentCommand))
		return nil
	}))
	m.registry.Register(command.TypeZoneMetadataUpdate, command.ExecutorFunc(func(_ context.Context, cmd command.Command) error {
		cmd.(*command.ZoneMetadataUpdateCommand).Metadata = &command.ZoneMetadataResponse{
			Zone:              zone,
			TransportMetadata: map[string]string{"name": name},
		}
		return nil
	}))

	require.NoError(t, d.Start(context.Background()))
	t.Cleanup(func() { _ = d.Stop() })
	return m
}

type harness struct {
	service    *Service
	router     *router.Router
	dispatcher *dispatch.Dispatcher
	events     *event.Service
	serializer *command.JSONSerializer
}

func startController(t *testing.T, hub *inproc.Hub) *harness {
	t.Helper()
	registry := command.NewRegistry()
	serializer := command.NewJSONSerializer()
	inbound := command.NewInbound(registry, serializer, nil)
	d := dispatch.New(dispatch.Config{Transport: hub.NewTransport(ctrlName), Messages: inbound, Requests: inbound})
	r := router.New(d, router.Config{DefaultTimeout: time.Second})
	events := event.NewService()
	svc := NewService(d, r, registry, serializer, events, NewStore(), Config{})
	t.Cleanup(func() {
		events.Publish(context.Background(), event.RuntimeStop{})
		svc.Close()
	})
	events.Publish(context.Background(), event.JoinDomain{})
	require.True(t, d.Running())
	return &harness{service: svc, router: r, dispatcher: d, events: events, serializer: serializer}
}

func waitMembers(t *testing.T, r *router.Router, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return r.View().Len() == n }, 2*time.Second, 5*time.Millisecond)
}

func TestService_AnswersRuntimeUpdate(t *testing.T) {
	hub := inproc.NewHub()
	h := startController(t, hub)
	h.service.Store().Put("zone1", []command.Unit{{Name: "orders", Data: []byte("v1")}})
	m := startMember(t, hub, "acme:participant:zone1:1", "zone1")
	waitMembers(t, m.router, 2)

	req, err := h.serializer.Marshal(&command.RuntimeUpdateCommand{RuntimeName: m.name, Zone: "zone1"})
	require.NoError(t, err)
	reply, err := m.router.SendToControllerSynchronous(context.Background(), req, time.Second)
	require.NoError(t, err)

	cmd, err := h.serializer.Unmarshal(reply)
	require.NoError(t, err)
	d, ok := cmd.(*command.DeploymentCommand)
	require.True(t, ok)
	assert.Equal(t, "zone1", d.Zone)
	assert.Equal(t, uint64(1), d.Revision)
	assert.Equal(t, "v1", string(d.Units[0].Data))
	assert.Equal(t, int64(1), h.service.UpdatesServed())
}

func TestService_AnswersUnknownZoneWithEmptyDeployment(t *testing.T) {
	hub := inproc.NewHub()
	h := startController(t, hub)
	m := startMember(t, hub, "acme:participant:zone9:1", "zone9")
	waitMembers(t, m.router, 2)

	req, err := h.serializer.Marshal(&command.RuntimeUpdateCommand{RuntimeName: m.name, Zone: "zone9"})
	require.NoError(t, err)
	reply, err := m.router.SendToControllerSynchronous(context.Background(), req, time.Second)
	require.NoError(t, err)

	cmd, err := h.serializer.Unmarshal(reply)
	require.NoError(t, err)
	assert.Equal(t, &command.DeploymentCommand{Zone: "zone9"}, cmd)
}

func TestService_Deploy(t *testing.T) {
	hub := inproc.NewHub()
	h := startController(t, hub)
	a := startMember(t, hub, "acme:participant:zone1:1", "zone1")
	b := startMember(t, hub, "acme:node:zone1:2", "zone1")
	c := startMember(t, hub, "acme:participant:zone2:1", "zone2")
	waitMembers(t, h.router, 4)

	d, err := h.service.Deploy(context.Background(), "zone1", []command.Unit{{Name: "orders"}})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), d.Revision)

	for _, m := range []*member{a, b} {
		m := m
		assert.Eventually(t, func() bool { return len(m.received()) == 1 }, time.Second, 5*time.Millisecond, m.name)
	}
	assert.Equal(t, "orders", a.received()[0].Units[0].Name)
	assert.Empty(t, c.received())
	assert.Equal(t, d, h.service.Store().Get("zone1"))
}

func TestService_ZoneMetadata(t *testing.T) {
	hub := inproc.NewHub()
	h := startController(t, hub)
	startMember(t, hub, "acme:participant:zone1:1", "zone1")
	startMember(t, hub, "acme:participant:zone1:2", "zone1")
	startMember(t, hub, "acme:participant:zone2:1", "zone2")
	waitMembers(t, h.router, 4)

	got, err := h.service.ZoneMetadata(context.Background(), "zone1", time.Second)
	require.NoError(t, err)
	require.Len(t, got, 2)

	names := []string{got[0].TransportMetadata["name"], got[1].TransportMetadata["name"]}
	sort.Strings(names)
	assert.Equal(t, []string{"acme:participant:zone1:1", "acme:participant:zone1:2"}, names)
	for _, md := range got {
		assert.Equal(t, "zone1", md.Zone)
	}
}

func TestService_ZoneMetadataOmitsSilentMembers(t *testing.T) {
	hub := inproc.NewHub()
	h := startController(t, hub)
	startMember(t, hub, "acme:participant:zone1:1", "zone1")
	startMember(t, hub, "acme:participant:zone1:2", "zone1")
	waitMembers(t, h.router, 3)
	hub.Mute("acme:participant:zone1:2", true)

	got, err := h.service.ZoneMetadata(context.Background(), "zone1", 50*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "acme:participant:zone1:1", got[0].TransportMetadata["name"])
}

func TestService_Close(t *testing.T) {
	hub := inproc.NewHub()
	registry := command.NewRegistry()
	serializer := command.NewJSONSerializer()
	d := dispatch.New(dispatch.Config{Transport: hub.NewTransport(ctrlName)})
	events := event.NewService()
	svc := NewService(d, router.New(d, router.Config{}), registry, serializer, events, NewStore(), Config{})

	svc.Close()
	svc.Close()

	err := registry.Execute(context.Background(), &command.RuntimeUpdateCommand{Zone: "zone1"})
	assert.ErrorIs(t, err, domain.ErrUnknownCommand)
	assert.Zero(t, events.Count(event.TypeJoinDomain))
}

func TestService_StopLeavesDomain(t *testing.T) {
	hub := inproc.NewHub()
	h := startController(t, hub)

	h.events.Publish(context.Background(), event.RuntimeStop{})

	assert.False(t, h.dispatcher.Running())
	assert.Empty(t, hub.Names())
}
