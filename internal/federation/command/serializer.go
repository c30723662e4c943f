package command

import (
	"encoding/json"
	"sync"

	"github.com/yndnr/zonemesh-go/internal/core/domain"
)

// Serializer converts commands to and from opaque payloads.
type Serializer interface {
	Marshal(cmd Command) ([]byte, error)
	Unmarshal(data []byte) (Command, error)
}

// Factory returns a new zero value of a command type.
type Factory func() Command

// frame is the serialized layout: the type tag travels next to the body so
// the receiver can pick a factory without inspecting the body.
type frame struct {
	Type Type            `json:"type"`
	Body json.RawMessage `json:"body"`
}

// JSONSerializer encodes commands as tagged JSON frames.
type JSONSerializer struct {
	mu        sync.RWMutex
	factories map[Type]Factory
}

var _ Serializer = (*JSONSerializer)(nil)

// NewJSONSerializer returns a serializer that knows the built-in commands.
func NewJSONSerializer() *JSONSerializer {
	s := &JSONSerializer{factories: make(map[Type]Factory)}
	s.Register(TypeRuntimeUpdate, func() Command { return &RuntimeUpdateCommand{} })
	s.Register(TypeDeployment, func() Command { return &DeploymentCommand{} })
	s.Register(TypeControllerAvailable, func() Command { return &ControllerAvailableCommand{} })
	s.Register(TypeZoneMetadataUpdate, func() Command { return &ZoneMetadataUpdateCommand{} })
	s.Register(TypeZoneMetadataResponse, func() Command { return &ZoneMetadataResponse{} })
	return s
}

// Register teaches the serializer a command type.
func (s *JSONSerializer) Register(t Type, f Factory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.factories[t] = f
}

// Marshal implements Serializer.
func (s *JSONSerializer) Marshal(cmd Command) ([]byte, error) {
	if cmd == nil {
		return nil, domain.ErrInvalidArgument.WithDetails("nil command")
	}
	body, err := json.Marshal(cmd)
	if err != nil {
		return nil, domain.ErrInvalidArgument.WithDetailsf("marshal %s", cmd.CommandType()).WithCause(err)
	}
	return json.Marshal(frame{Type: cmd.CommandType(), Body: body})
}

// Unmarshal implements Serializer.
func (s *JSONSerializer) Unmarshal(data []byte) (Command, error) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, domain.ErrMalformedMessage.WithDetails("command frame").WithCause(err)
	}

	s.mu.RLock()
	factory, ok := s.factories[f.Type]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrUnknownCommand.WithDetails(string(f.Type))
	}

	cmd := factory()
	if len(f.Body) > 0 {
		if err := json.Unmarshal(f.Body, cmd); err != nil {
			return nil, domain.ErrMalformedMessage.WithDetailsf("%s body", f.Type).WithCause(err)
		}
	}
	return cmd, nil
}
