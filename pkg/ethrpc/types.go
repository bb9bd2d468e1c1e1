/*
Package ethrpc contains an Ethereum JSON-RPC compatibility layer on top of
the VeChainThor REST client. It defines basic request/response types, a set
of errors and the map of supported methods. Methods that can't be expressed
with Thor REST API are present in the map, but fail with
thorerr.NotImplemented.
*/
package ethrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

const (
	// JSONRPCVersion is the only JSON-RPC protocol version supported.
	JSONRPCVersion = "2.0"
)

type (
	// Request represents JSON-RPC request.
	Request struct {
		// JSONRPC is the protocol version, only valid when it contains JSONRPCVersion.
		JSONRPC string `json:"jsonrpc"`
		// Method is the method being called.
		Method string `json:"method"`
		// Params is a set of method-specific positional parameters.
		Params []json.RawMessage `json:"params"`
		// ID is an identifier associated with this request, it's returned
		// as is in the response.
		ID json.RawMessage `json:"id,omitempty"`
	}

	// Response represents a standard JSON-RPC 2.0 response:
	// http://www.jsonrpc.org/specification#response_object.
	Response struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      json.RawMessage `json:"id"`
		Result  any             `json:"result,omitempty"`
		Error   *Error          `json:"error,omitempty"`
	}

	// Batch is a set of requests sent at once.
	Batch []Request
)

// DecodeRequests reads either a single request or a batch from r. isBatch
// is set for batches even if they contain a single request.
func DecodeRequests(r io.Reader) (reqs []Request, isBatch bool, err error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, false, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, false, errors.New("empty request")
	}
	if data[0] == '[' {
		var b Batch
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, true, err
		}
		if len(b) == 0 {
			return nil, true, errors.New("empty batch")
		}
		return b, true, nil
	}
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, false, err
	}
	return []Request{req}, false, nil
}

// NewResponse creates a response to the given request.
func NewResponse(req *Request, result any, err *Error) *Response {
	id := req.ID
	if len(id) == 0 {
		id = json.RawMessage("null")
	}
	resp := &Response{JSONRPC: JSONRPCVersion, ID: id}
	if err != nil {
		resp.Error = err
	} else {
		resp.Result = result
	}
	return resp
}

// param unmarshals the i-th parameter into v, it fails if there is no such
// parameter and required is set.
func param(ps []json.RawMessage, i int, required bool, v any) error {
	if i >= len(ps) || string(ps[i]) == "null" {
		if required {
			return fmt.Errorf("missing parameter #%d", i)
		}
		return nil
	}
	if err := json.Unmarshal(ps[i], v); err != nil {
		return fmt.Errorf("invalid parameter #%d: %w", i, err)
	}
	return nil
}
