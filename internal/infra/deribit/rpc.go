package deribit

import (
	"encoding/json"
	"sync/atomic"

	"deribit_go/internal/domain"
)

const jsonRPCVersion = "2.0"

// rpcRequest is the JSON-RPC 2.0 wire envelope for an outgoing call.
type rpcRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      int64          `json:"id"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// rpcResponse is a decoded inbound frame: either a correlated reply
// (ID set, exactly one of Result/Error present) or a server notification
// (Method set, no ID).
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id"`
	Method  string          `json:"method,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

func (r *rpcResponse) isNotification() bool {
	return r.ID == nil && r.Method != ""
}

// idSequence issues correlation ids unique within the session lifetime.
// A strictly increasing counter, never raw wall-clock seconds: two calls in
// the same clock tick must still get distinct ids.
type idSequence struct {
	next atomic.Int64
}

func (s *idSequence) Next() int64 {
	return s.next.Add(1)
}

func encodeRequest(id int64, method string, params map[string]any) (string, error) {
	if params == nil {
		params = map[string]any{}
	}
	b, err := json.Marshal(rpcRequest{
		JSONRPC: jsonRPCVersion,
		ID:      id,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return "", &domain.ProtocolError{Reason: "encoding request", Err: err}
	}
	return string(b), nil
}

func decodeResponse(text string) (*rpcResponse, error) {
	var resp rpcResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return nil, &domain.ProtocolError{Reason: "malformed frame", Err: err}
	}

	if resp.ID == nil {
		if resp.Method == "" {
			return nil, &domain.ProtocolError{Reason: "frame is neither a response nor a notification"}
		}
		return &resp, nil
	}

	// Uniform contract: exactly one of result/error per response.
	if resp.Result == nil && resp.Error == nil {
		return nil, &domain.ProtocolError{Reason: "response carries neither result nor error"}
	}
	if resp.Result != nil && resp.Error != nil {
		return nil, &domain.ProtocolError{Reason: "response carries both result and error"}
	}

	return &resp, nil
}
