// Package gossip provides a Transport backed by hashicorp/memberlist.
//
// Membership and failure detection come from memberlist's SWIM gossip.
// Frames travel as reliable (TCP) user messages. Every node advertises its
// join time in the node metadata so all members derive the same seniority
// order for a view.
package gossip

import (
	"context"
	"log/slog"
	"net"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/memberlist"

	"github.com/yndnr/zonemesh-go/internal/core/domain"
	"github.com/yndnr/zonemesh-go/internal/federation/transport"
	"github.com/yndnr/zonemesh-go/internal/federation/view"
)

const (
	defaultJoinRetries  = 5
	defaultLeaveTimeout = 5 * time.Second
)

// Config configures the gossip transport.
type Config struct {
	// Name is the member name, normally an encoded identity.
	Name string

	// BindAddr and BindPort select the gossip listener. Port 0 picks a
	// free port.
	BindAddr string
	BindPort int

	// AdvertiseAddr and AdvertisePort override the address other nodes use
	// to reach this one.
	AdvertiseAddr string
	AdvertisePort int

	// Seeds are host:port addresses of existing members to join through.
	Seeds []string

	// JoinRetries bounds the attempts to reach the seeds.
	JoinRetries int

	// LocalNetwork selects memberlist's loopback timings, which suit tests
	// and single-host setups.
	LocalNetwork bool

	// LeaveTimeout bounds the graceful leave broadcast on disconnect.
	LeaveTimeout time.Duration

	Logger *slog.Logger
}

// Transport is a memberlist-backed transport.Transport.
type Transport struct {
	cfg    Config
	logger *slog.Logger

	mu        sync.Mutex
	ml        *memberlist.Memberlist
	receiver  transport.Receiver
	queue     *queue
	nodes     map[string]*memberlist.Node
	metas     map[string]nodeMeta
	revision  uint64
	meta      nodeMeta
	connected bool

	// live is set once the seeds were joined. Views are held back until
	// then so the first one a receiver sees is the joined membership.
	live bool
}

var _ transport.Transport = (*Transport)(nil)

// New creates a transport. It does not touch the network until Connect.
func New(cfg Config) *Transport {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.JoinRetries <= 0 {
		cfg.JoinRetries = defaultJoinRetries
	}
	if cfg.LeaveTimeout <= 0 {
		cfg.LeaveTimeout = defaultLeaveTimeout
	}
	return &Transport{
		cfg:    cfg,
		logger: cfg.Logger.With("component", "gossip"),
	}
}

// LocalName implements transport.Transport.
func (t *Transport) LocalName() string {
	return t.cfg.Name
}

// Addr returns the host:port other nodes can use as a seed, or "" when not
// connected.
func (t *Transport) Addr() string {
	t.mu.Lock()
	ml := t.ml
	t.mu.Unlock()
	if ml == nil {
		return ""
	}
	n := ml.LocalNode()
	return net.JoinHostPort(n.Addr.String(), strconv.Itoa(int(n.Port)))
}

// Connect implements transport.Transport. It creates the memberlist and
// joins the seeds, retrying with exponential backoff.
func (t *Transport) Connect(ctx context.Context, r transport.Receiver) error {
	t.mu.Lock()
	if t.connected {
		t.mu.Unlock()
		return domain.ErrMessaging.WithDetailsf("%s already connected", t.cfg.Name)
	}
	t.receiver = r
	t.queue = newQueue()
	t.nodes = make(map[string]*memberlist.Node)
	t.metas = make(map[string]nodeMeta)
	t.meta = nodeMeta{JoinedAt: time.Now().UnixNano()}
	t.connected = true
	t.mu.Unlock()

	ml, err := memberlist.Create(t.memberlistConfig())
	if err != nil {
		t.reset()
		return domain.ErrMessaging.WithDetails("create memberlist").WithCause(err)
	}
	t.mu.Lock()
	t.ml = ml
	t.mu.Unlock()

	if len(t.cfg.Seeds) == 0 {
		t.logger.Info("started gossip (bootstrap mode)", "node_id", t.cfg.Name, "addr", t.Addr())
	} else if err := t.join(ctx, ml); err != nil {
		_ = ml.Shutdown()
		t.reset()
		return err
	}

	t.mu.Lock()
	t.live = true
	t.publishLocked()
	t.mu.Unlock()
	return nil
}

func (t *Transport) memberlistConfig() *memberlist.Config {
	var mlConfig *memberlist.Config
	if t.cfg.LocalNetwork {
		mlConfig = memberlist.DefaultLocalConfig()
	} else {
		mlConfig = memberlist.DefaultLANConfig()
	}
	mlConfig.Name = t.cfg.Name
	mlConfig.BindAddr = t.cfg.BindAddr
	mlConfig.BindPort = t.cfg.BindPort
	if t.cfg.AdvertiseAddr != "" {
		mlConfig.AdvertiseAddr = t.cfg.AdvertiseAddr
		mlConfig.AdvertisePort = t.cfg.AdvertisePort
	}
	mlConfig.Delegate = &delegate{t: t}
	mlConfig.Events = &eventDelegate{t: t}
	mlConfig.Logger = newStdLogger(t.logger)
	return mlConfig
}

func (t *Transport) join(ctx context.Context, ml *memberlist.Memberlist) error {
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(t.cfg.JoinRetries)),
		ctx,
	)
	var joined int
	op := func() error {
		n, err := ml.Join(t.cfg.Seeds)
		joined = n
		return err
	}
	notify := func(err error, wait time.Duration) {
		t.logger.Warn("failed to join seeds, retrying", "seeds", t.cfg.Seeds, "retry_in", wait, "error", err)
	}
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return domain.ErrMessaging.WithDetailsf("join seeds %s", strings.Join(t.cfg.Seeds, ",")).WithCause(err)
	}
	t.logger.Info("joined cluster",
		"node_id", t.cfg.Name,
		"seed_nodes", t.cfg.Seeds,
		"joined_count", joined)
	return nil
}

// Disconnect implements transport.Transport. It broadcasts a graceful leave
// and shuts memberlist down.
func (t *Transport) Disconnect() error {
	t.mu.Lock()
	if !t.connected {
		t.mu.Unlock()
		return nil
	}
	ml := t.ml
	t.mu.Unlock()

	var err error
	if ml != nil {
		if lerr := ml.Leave(t.cfg.LeaveTimeout); lerr != nil {
			t.logger.Warn("failed to leave cluster", "error", lerr)
		}
		if serr := ml.Shutdown(); serr != nil {
			err = domain.ErrMessaging.WithDetails("shutdown memberlist").WithCause(serr)
		}
	}
	t.reset()
	t.logger.Info("left cluster", "node_id", t.cfg.Name)
	return err
}

func (t *Transport) reset() {
	t.mu.Lock()
	q := t.queue
	t.connected = false
	t.live = false
	t.ml = nil
	t.queue = nil
	t.nodes = nil
	t.metas = nil
	t.mu.Unlock()
	if q != nil {
		q.stop()
	}
}

// Send implements transport.Transport.
func (t *Transport) Send(to string, data []byte) error {
	t.mu.Lock()
	if !t.connected || t.ml == nil {
		t.mu.Unlock()
		return domain.ErrMessaging.WithDetailsf("%s is not connected", t.cfg.Name)
	}
	ml := t.ml
	node, ok := t.nodes[to]
	t.mu.Unlock()
	if !ok {
		return domain.ErrDestinationUnavailable.WithDetails(to)
	}
	if err := ml.SendReliable(node, data); err != nil {
		return domain.ErrMessaging.WithDetailsf("send to %s", to).WithCause(err)
	}
	return nil
}

// Members returns the member names of the latest view in seniority order.
func (t *Transport) Members() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.orderedLocked()
}

func (t *Transport) orderedLocked() []string {
	members := make([]member, 0, len(t.metas))
	for name, m := range t.metas {
		members = append(members, member{name: name, meta: m})
	}
	return seniorityOrder(members)
}

// publishLocked snapshots the membership and queues it for the receiver.
func (t *Transport) publishLocked() {
	if !t.connected || !t.live || t.queue == nil {
		return
	}
	t.revision++
	v := view.New(t.revision, t.orderedLocked()...)
	r := t.receiver
	t.queue.push(func() { r.ViewAccepted(v) })
}

func (t *Transport) nodeJoined(n *memberlist.Node) {
	meta, err := decodeMeta(n.Meta)
	if err != nil {
		t.logger.Warn("node joined with unreadable metadata", "node_id", n.Name, "error", err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.nodes == nil {
		return
	}
	t.nodes[n.Name] = n
	t.metas[n.Name] = meta
	t.publishLocked()
}

func (t *Transport) nodeLeft(n *memberlist.Node) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.nodes == nil {
		return
	}
	if _, ok := t.nodes[n.Name]; !ok {
		return
	}
	delete(t.nodes, n.Name)
	delete(t.metas, n.Name)
	t.publishLocked()
}

func (t *Transport) nodeUpdated(n *memberlist.Node) {
	meta, err := decodeMeta(n.Meta)
	if err != nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.nodes == nil {
		return
	}
	t.nodes[n.Name] = n
	before := t.orderedLocked()
	t.metas[n.Name] = meta
	if !slices.Equal(before, t.orderedLocked()) {
		t.publishLocked()
	}
}

func (t *Transport) deliver(msg []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.connected || t.queue == nil {
		return
	}
	r := t.receiver
	t.queue.push(func() { r.Receive(msg) })
}

func (t *Transport) localMeta() nodeMeta {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.meta
}
