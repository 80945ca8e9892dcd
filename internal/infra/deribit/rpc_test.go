package deribit

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"deribit_go/internal/domain"
)

func TestEncodeRequest(t *testing.T) {
	frame, err := encodeRequest(42, "private/buy", map[string]any{
		"instrument_name": "BTC-PERPETUAL",
		"amount":          10.0,
	})
	if err != nil {
		t.Fatalf("encodeRequest failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(frame), &decoded); err != nil {
		t.Fatalf("encoded frame is not valid JSON: %v", err)
	}

	if decoded["jsonrpc"] != "2.0" {
		t.Errorf("jsonrpc = %v, want 2.0", decoded["jsonrpc"])
	}
	if decoded["id"] != float64(42) {
		t.Errorf("id = %v, want 42", decoded["id"])
	}
	if decoded["method"] != "private/buy" {
		t.Errorf("method = %v, want private/buy", decoded["method"])
	}
	params, ok := decoded["params"].(map[string]any)
	if !ok {
		t.Fatal("params missing or not an object")
	}
	if params["instrument_name"] != "BTC-PERPETUAL" {
		t.Errorf("instrument_name = %v", params["instrument_name"])
	}
}

func TestEncodeRequestNilParams(t *testing.T) {
	frame, err := encodeRequest(1, "public/test", nil)
	if err != nil {
		t.Fatalf("encodeRequest failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(frame), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if _, ok := decoded["params"].(map[string]any); !ok {
		t.Error("nil params should encode as an empty object")
	}
}

func TestIDSequenceStrictlyIncreasing(t *testing.T) {
	var seq idSequence
	prev := int64(0)
	for i := 0; i < 1000; i++ {
		id := seq.Next()
		if id <= prev {
			t.Fatalf("id %d not greater than previous %d", id, prev)
		}
		prev = id
	}
}

func TestIDSequenceUniqueUnderConcurrency(t *testing.T) {
	var seq idSequence
	const n = 500

	ids := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- seq.Next()
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool, n)
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id %d", id)
		}
		seen[id] = true
	}
}

func TestDecodeResponse(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		wantErr bool
		notif   bool
	}{
		{"result response", `{"jsonrpc":"2.0","id":1,"result":{"ok":true}}`, false, false},
		{"error response", `{"jsonrpc":"2.0","id":1,"error":{"code":13009,"message":"invalid_credentials"}}`, false, false},
		{"notification", `{"jsonrpc":"2.0","method":"subscription","params":{}}`, false, true},
		{"malformed json", `{"jsonrpc":`, true, false},
		{"neither result nor error", `{"jsonrpc":"2.0","id":1}`, true, false},
		{"both result and error", `{"jsonrpc":"2.0","id":1,"result":{},"error":{"code":1,"message":"x"}}`, true, false},
		{"no id no method", `{"jsonrpc":"2.0"}`, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := decodeResponse(tt.frame)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				var protoErr *domain.ProtocolError
				if !errors.As(err, &protoErr) {
					t.Errorf("expected ProtocolError, got %T", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp.isNotification() != tt.notif {
				t.Errorf("isNotification = %v, want %v", resp.isNotification(), tt.notif)
			}
		})
	}
}
