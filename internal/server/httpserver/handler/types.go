package handler

import "time"

// Response is the standard API response envelope.
// All JSON responses use this format (except /metrics which uses Prometheus format).
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string, details any) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Details:   details,
	}
}

// MemberInfo describes one view member.
type MemberInfo struct {
	Name       string `json:"name"`
	Role       string `json:"role,omitempty"`
	Zone       string `json:"zone,omitempty"`
	InstanceID string `json:"instance_id,omitempty"`
	Legacy     bool   `json:"legacy,omitempty"`
	Seniority  int    `json:"seniority"`
}

// ViewResponse is the body of GET /v1/view.
type ViewResponse struct {
	Local      string            `json:"local"`
	ViewID     uint64            `json:"view_id"`
	Members    []MemberInfo      `json:"members"`
	Controller string            `json:"controller,omitempty"`
	Leaders    map[string]string `json:"leaders,omitempty"`
}

// DeploymentInfo is a zone's deployment as served over HTTP.
type DeploymentInfo struct {
	Zone     string   `json:"zone"`
	Revision uint64   `json:"revision"`
	Units    []string `json:"units"`
}

// DeployRequest is the request body for PUT /v1/deployments/{zone}.
type DeployRequest struct {
	Units []string `json:"units"`
}
