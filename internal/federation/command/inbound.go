package command

import (
	"context"
	"log/slog"

	"github.com/yndnr/zonemesh-go/internal/telemetry/logger"
)

// Inbound executes commands that arrive from other runtimes. It serves as
// both the one-way message handler and the request handler of a dispatcher.
type Inbound struct {
	registry   *Registry
	serializer Serializer
	logger     *slog.Logger
}

// NewInbound creates an inbound command handler.
func NewInbound(registry *Registry, serializer Serializer, logger *slog.Logger) *Inbound {
	if logger == nil {
		logger = slog.Default()
	}
	return &Inbound{
		registry:   registry,
		serializer: serializer,
		logger:     logger,
	}
}

// HandleMessage executes a one-way command. Failures are logged; there is
// nobody to report them to.
func (h *Inbound) HandleMessage(ctx context.Context, from string, payload []byte) {
	cmd, err := h.serializer.Unmarshal(payload)
	if err != nil {
		h.logger.Error("dropping undecodable message", append(logger.Attrs(ctx), "error", err)...)
		return
	}
	if err := h.registry.Execute(ctx, cmd); err != nil {
		h.logger.Error("failed to execute command",
			append(logger.Attrs(ctx), "type", cmd.CommandType(), "error", err)...)
	}
}

// HandleRequest executes a command and returns its serialized response, or
// nil when the command carries none.
func (h *Inbound) HandleRequest(ctx context.Context, from string, payload []byte) ([]byte, error) {
	cmd, err := h.serializer.Unmarshal(payload)
	if err != nil {
		return nil, err
	}
	if err := h.registry.Execute(ctx, cmd); err != nil {
		h.logger.Warn("request failed",
			append(logger.Attrs(ctx), "type", cmd.CommandType(), "error", err)...)
		return nil, err
	}

	carrier, ok := cmd.(ResponseCarrier)
	if !ok {
		return nil, nil
	}
	resp := carrier.Response()
	if resp == nil {
		return nil, nil
	}
	return h.serializer.Marshal(resp)
}
