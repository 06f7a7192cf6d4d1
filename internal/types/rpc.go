package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// JSONRPCVersion is the protocol tag sent with every request.
const JSONRPCVersion = "2.0"

// MethodSubscribe is the only method the event stream is asked for.
const MethodSubscribe = "subscribe"

// RPCRequest is a JSON-RPC 2.0 request envelope.
type RPCRequest struct {
	JSONRPC string   `json:"jsonrpc"`
	Method  string   `json:"method"`
	Params  []string `json:"params"`
	ID      int      `json:"id"`
}

// NewSubscribeRequest builds a subscribe envelope carrying a single query.
func NewSubscribeRequest(id int, query string) RPCRequest {
	return RPCRequest{
		JSONRPC: JSONRPCVersion,
		Method:  MethodSubscribe,
		Params:  []string{query},
		ID:      id,
	}
}

// RPCError is the error member of a JSON-RPC response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	if e.Data != "" {
		return fmt.Sprintf("rpc error %d: %s: %s", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// RPCResponse is any frame received from the event stream.
type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// HasResult reports whether the frame carries event data. Subscription
// acknowledgements arrive with an empty object.
func (r RPCResponse) HasResult() bool {
	trimmed := bytes.TrimSpace(r.Result)
	if len(trimmed) == 0 {
		return false
	}
	switch string(trimmed) {
	case "{}", "null":
		return false
	}
	return true
}
