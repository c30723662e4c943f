// Package shutdown coordinates process termination for zonemesh nodes.
//
// A Handler waits for SIGINT/SIGTERM (or a programmatic Trigger), then runs
// the registered hooks in reverse order under a shared deadline. SIGHUP is
// routed to reload hooks instead.
//
// Usage:
//
//	h := shutdown.NewHandler(10 * time.Second)
//	h.OnShutdown("dispatcher", func(ctx context.Context) error { return d.Stop() })
//	err := h.Wait(ctx)
package shutdown
