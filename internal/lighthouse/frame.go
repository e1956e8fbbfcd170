// Package lighthouse implements the per-device WebSocket session: one
// long-lived connection per device, multiplexing inbound frames, outbound
// RPC dispatch, and heartbeats.
package lighthouse

import "encoding/json"

// Kind tags a Frame's role in the protocol.
type Kind string

const (
	KindExecute         Kind = "execute"
	KindExecuteResponse Kind = "execute_response"
	KindQuery           Kind = "query"
	KindQueryResponse   Kind = "query_response"
)

// Status is an ExecuteResponse/QueryResponse outcome tag.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Command is one of the device command vocabulary the original hub and
// virtual-device simulator agree on. Houseflow's control plane does not
// interpret command semantics itself — it only routes frames — so this
// list exists for documentation and client-side validation, not dispatch.
type Command string

const (
	CommandOnOff     Command = "OnOff"
	CommandOpenClose Command = "OpenClose"
	CommandSetLevel  Command = "SetLevel"
	CommandSetColor  Command = "SetColor"
)

// ErrFunctionNotSupported is the application-level error a device reports
// in an ExecuteResponse when it does not implement the requested command.
// It is not an HTTP error: the HTTP response carrying it is still a 200,
// since the RPC itself completed successfully.
const ErrFunctionNotSupported = "functionNotSupported"

// Frame is the single wire shape every WebSocket message takes. Only the
// fields relevant to Kind are populated; the rest are omitted.
type Frame struct {
	ID      uint32          `json:"id"`
	Kind    Kind            `json:"kind"`
	Command Command         `json:"command,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Status  Status          `json:"status,omitempty"`
	Error   string          `json:"error,omitempty"`
	State   json.RawMessage `json:"state,omitempty"`
}

// IsResponse reports whether f carries a reply to a previously-dispatched
// request, and so should be correlated against the pending table rather
// than treated as an inbound request.
func (f Frame) IsResponse() bool {
	return f.Kind == KindExecuteResponse || f.Kind == KindQueryResponse
}
