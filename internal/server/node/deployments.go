package node

import (
	"context"
	"log/slog"

	"github.com/yndnr/zonemesh-go/internal/core/domain"
	"github.com/yndnr/zonemesh-go/internal/federation/command"
	"github.com/yndnr/zonemesh-go/internal/telemetry/logger"
	"github.com/yndnr/zonemesh-go/pkg/cmap"
)

// Deployments applies deployment commands received from the controller and
// remembers the newest revision per zone. A catch-up reply can arrive after
// a broadcast of a later revision; such stale commands are skipped.
type Deployments struct {
	applied *cmap.Map[string, *command.DeploymentCommand]
	logger  *slog.Logger
}

func newDeployments(l *slog.Logger) *Deployments {
	return &Deployments{
		applied: cmap.New[string, *command.DeploymentCommand](),
		logger:  l,
	}
}

// Execute implements command.Executor.
func (d *Deployments) Execute(ctx context.Context, cmd command.Command) error {
	dep, ok := cmd.(*command.DeploymentCommand)
	if !ok {
		return domain.ErrInvalidArgument.WithDetailsf("unexpected command %T", cmd)
	}

	prev, replaced, applied := d.applied.Upsert(dep.Zone, func(cur *command.DeploymentCommand, loaded bool) (*command.DeploymentCommand, bool) {
		return dep, !loaded || dep.Revision >= cur.Revision
	})

	attrs := append(logger.Attrs(ctx), "zone", dep.Zone, "revision", dep.Revision, "units", len(dep.Units))
	if replaced {
		attrs = append(attrs, "previous_revision", prev.Revision)
	}
	if !applied {
		d.logger.Info("stale deployment skipped", attrs...)
		return nil
	}
	d.logger.Info("deployment applied", attrs...)
	return nil
}

// Get returns the latest deployment applied for zone, or nil.
func (d *Deployments) Get(zone string) *command.DeploymentCommand {
	dep, _ := d.applied.Get(zone)
	return dep
}
