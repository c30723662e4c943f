// Package command defines the control commands exchanged between runtimes,
// the registry that executes them and the serializer that turns them into
// opaque payloads.
//
// Dispatch is keyed by an explicit Type tag rather than by Go type, so the
// serializer and the registry agree on a command's identity without
// reflection.
package command

// Type tags a command kind on the wire and in the registry.
type Type string

// Built-in command types.
const (
	TypeRuntimeUpdate        Type = "runtime.update"
	TypeDeployment           Type = "deployment"
	TypeControllerAvailable  Type = "controller.available"
	TypeZoneMetadataUpdate   Type = "zone.metadata.update"
	TypeZoneMetadataResponse Type = "zone.metadata.response"
)

// Command is a serializable unit of work.
type Command interface {
	CommandType() Type
}

// ResponseCarrier is a command whose executor fills in a response that is
// returned to the sender of a synchronous request.
type ResponseCarrier interface {
	Command
	Response() Command
}

// RuntimeUpdateCommand asks the receiver for the deployment state of a zone.
// The executing side fills Deployment.
type RuntimeUpdateCommand struct {
	RuntimeName string             `json:"runtime_name"`
	Zone        string             `json:"zone"`
	Deployment  *DeploymentCommand `json:"deployment,omitempty"`
}

// CommandType implements Command.
func (c *RuntimeUpdateCommand) CommandType() Type { return TypeRuntimeUpdate }

// Response implements ResponseCarrier.
func (c *RuntimeUpdateCommand) Response() Command {
	if c.Deployment == nil {
		return nil
	}
	return c.Deployment
}

// Unit is one opaque deployable artifact. Its contents are produced and
// consumed by the deployment layer.
type Unit struct {
	Name string `json:"name"`
	Data []byte `json:"data,omitempty"`
}

// DeploymentCommand carries the deployment state of a zone.
type DeploymentCommand struct {
	Zone     string `json:"zone"`
	Revision uint64 `json:"revision"`
	Units    []Unit `json:"units,omitempty"`
}

// CommandType implements Command.
func (c *DeploymentCommand) CommandType() Type { return TypeDeployment }

// ControllerAvailableCommand tells a runtime that a controller has appeared.
type ControllerAvailableCommand struct {
	Controller string `json:"controller"`
}

// CommandType implements Command.
func (c *ControllerAvailableCommand) CommandType() Type { return TypeControllerAvailable }

// ZoneMetadataUpdateCommand asks a runtime for its zone metadata.
type ZoneMetadataUpdateCommand struct {
	Metadata *ZoneMetadataResponse `json:"metadata,omitempty"`
}

// CommandType implements Command.
func (c *ZoneMetadataUpdateCommand) CommandType() Type { return TypeZoneMetadataUpdate }

// Response implements ResponseCarrier.
func (c *ZoneMetadataUpdateCommand) Response() Command {
	if c.Metadata == nil {
		return nil
	}
	return c.Metadata
}

// ZoneMetadataResponse reports a runtime's zone and transport metadata.
type ZoneMetadataResponse struct {
	Zone              string            `json:"zone"`
	TransportMetadata map[string]string `json:"transport_metadata,omitempty"`
}

// CommandType implements Command.
func (c *ZoneMetadataResponse) CommandType() Type { return TypeZoneMetadataResponse }
