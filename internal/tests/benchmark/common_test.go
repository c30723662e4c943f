package benchmark

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/zonemesh-go/internal/federation/dispatch"
	"github.com/yndnr/zonemesh-go/internal/federation/identity"
	"github.com/yndnr/zonemesh-go/internal/federation/router"
	"github.com/yndnr/zonemesh-go/internal/federation/transport/inproc"
	"github.com/yndnr/zonemesh-go/internal/federation/view"
	"github.com/yndnr/zonemesh-go/internal/telemetry/metric"
)

// MemberCounts defines the view sizes for benchmarking.
var MemberCounts = []int{8, 64, 512, 4096}

// PayloadSizes defines payload sizes in bytes. The larger ones cross the
// default compression threshold.
var PayloadSizes = []int{64, 1024, 8192, 65536}

// newCallID generates a correlation id the way the dispatcher does.
func newCallID() string {
	return strings.ToLower(ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(rand.Reader, 0)).String())
}

// payload returns a compressible payload of n bytes.
func payload(n int) []byte {
	return []byte(strings.Repeat("zonemesh ", n/9+1)[:n])
}

// memberName builds the i-th member name, spreading members over zones of
// zoneSize runtimes each.
func memberName(i, zoneSize int) string {
	id, err := identity.New("acme", identity.RoleParticipant, fmt.Sprintf("zone%d", i/zoneSize), fmt.Sprint(i))
	if err != nil {
		panic(err)
	}
	return identity.Encode(id)
}

// buildView returns a view of n participants in zones of zoneSize.
func buildView(n, zoneSize int) *view.View {
	names := make([]string, n)
	for i := range names {
		names[i] = memberName(i, zoneSize)
	}
	return view.New(1, names...)
}

// reportMemory reports memory usage.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
}

// runWithMemberCounts runs benchFn for each view size.
func runWithMemberCounts(b *testing.B, counts []int, benchFn func(b *testing.B, count int)) {
	for _, count := range counts {
		b.Run(fmt.Sprintf("members_%d", count), func(b *testing.B) {
			benchFn(b, count)
		})
	}
}

// echo answers every request with its payload and drops messages.
type echo struct{}

func (echo) HandleMessage(context.Context, string, []byte) {}

func (echo) HandleRequest(_ context.Context, _ string, p []byte) ([]byte, error) {
	return p, nil
}

// newRouters starts n in-process runtimes in one zone and returns their
// routers once every view is complete.
func newRouters(b *testing.B, n int) []*router.Router {
	b.Helper()
	hub := inproc.NewHub()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	routers := make([]*router.Router, n)
	for i := range routers {
		d := dispatch.New(dispatch.Config{
			Transport: hub.NewTransport(memberName(i, n)),
			Messages:  echo{},
			Requests:  echo{},
			Logger:    logger,
			Metrics:   metric.Discard(),
		})
		if err := d.Start(context.Background()); err != nil {
			b.Fatalf("start dispatcher: %v", err)
		}
		b.Cleanup(func() { _ = d.Stop() })
		routers[i] = router.New(d, router.Config{Logger: logger, Metrics: metric.Discard()})
	}

	deadline := time.Now().Add(5 * time.Second)
	for _, r := range routers {
		for r.View().Len() != n {
			if time.Now().After(deadline) {
				b.Fatalf("views did not converge")
			}
			time.Sleep(time.Millisecond)
		}
	}
	return routers
}
