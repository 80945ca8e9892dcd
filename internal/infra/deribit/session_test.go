package deribit

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"deribit_go/internal/domain"
)

// fakeTransport records sent requests and feeds back scripted frames.
// The responder runs on Send; Receive drains the resulting queue.
type fakeTransport struct {
	mu      sync.Mutex
	sent    []rpcRequest
	pending []string
	respond func(req rpcRequest) []string
}

func (t *fakeTransport) Send(text string) error {
	var req rpcRequest
	if err := json.Unmarshal([]byte(text), &req); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, req)
	if t.respond != nil {
		t.pending = append(t.pending, t.respond(req)...)
	}
	return nil
}

func (t *fakeTransport) Receive() (string, error) {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		t.mu.Lock()
		if len(t.pending) > 0 {
			frame := t.pending[0]
			t.pending = t.pending[1:]
			t.mu.Unlock()
			return frame, nil
		}
		t.mu.Unlock()
		time.Sleep(time.Millisecond)
	}
	return "", &domain.TransportError{Op: "read", Err: errors.New("no frame queued")}
}

func (t *fakeTransport) Close() error { return nil }

func (t *fakeTransport) sentRequests() []rpcRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]rpcRequest(nil), t.sent...)
}

func resultFrame(id int64, result string) string {
	return fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"result":%s}`, id, result)
}

func errorFrame(id int64, code int, message string) string {
	return fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"error":{"code":%d,"message":%q}}`, id, code, message)
}

func notificationFrame(method string) string {
	return fmt.Sprintf(`{"jsonrpc":"2.0","method":%q,"params":{}}`, method)
}

// fakeStore is an in-memory TradeStore for exercising persistence paths.
type fakeStore struct {
	mu    sync.Mutex
	saved []*domain.TradeRecord
	err   error
}

func (f *fakeStore) SaveTrade(rec *domain.TradeRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, rec)
	return nil
}

func (f *fakeStore) records() []*domain.TradeRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*domain.TradeRecord(nil), f.saved...)
}

func connectedSession(tr Transport, store domain.TradeStore) *Session {
	s := NewSession("client-id", "client-secret", "trade:read_write", store)
	s.transport = tr
	s.state = domain.StateConnected
	return s
}

func authedSession(tr Transport, store domain.TradeStore) *Session {
	s := connectedSession(tr, store)
	s.state = domain.StateAuthenticated
	s.token = "test-token"
	return s
}

func TestAuthenticateSuccess(t *testing.T) {
	tr := &fakeTransport{respond: func(req rpcRequest) []string {
		if req.Method != "public/auth" {
			t.Errorf("method = %s, want public/auth", req.Method)
		}
		if req.Params["grant_type"] != "client_credentials" {
			t.Errorf("grant_type = %v", req.Params["grant_type"])
		}
		if req.Params["client_id"] != "client-id" {
			t.Errorf("client_id = %v", req.Params["client_id"])
		}
		return []string{resultFrame(req.ID, `{"access_token":"tok-123","expires_in":900}`)}
	}}
	s := connectedSession(tr, nil)

	if err := s.Authenticate(); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if s.State() != domain.StateAuthenticated {
		t.Errorf("state = %s, want authenticated", s.State())
	}
	if s.token != "tok-123" {
		t.Errorf("token = %q, want tok-123", s.token)
	}
}

func TestAuthenticateRejected(t *testing.T) {
	tr := &fakeTransport{respond: func(req rpcRequest) []string {
		return []string{errorFrame(req.ID, 13004, "invalid_credentials")}
	}}
	s := connectedSession(tr, nil)

	err := s.Authenticate()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var authErr *domain.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %T", err)
	}
	if s.State() != domain.StateFailed {
		t.Errorf("state = %s, want failed", s.State())
	}

	// A failed session is terminal: private calls stay rejected locally.
	if _, err := s.Call("private/buy", nil); !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Errorf("post-failure private call error = %v, want ErrNotAuthenticated", err)
	}
}

func TestAuthenticateMissingToken(t *testing.T) {
	tr := &fakeTransport{respond: func(req rpcRequest) []string {
		return []string{resultFrame(req.ID, `{"expires_in":900}`)}
	}}
	s := connectedSession(tr, nil)

	err := s.Authenticate()
	var authErr *domain.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if s.State() != domain.StateFailed {
		t.Errorf("state = %s, want failed", s.State())
	}
}

func TestPrivateCallRequiresAuth(t *testing.T) {
	tr := &fakeTransport{}
	s := connectedSession(tr, nil)

	_, err := s.Call("private/buy", map[string]any{"amount": 1.0})
	if !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Fatalf("error = %v, want ErrNotAuthenticated", err)
	}
	if len(tr.sentRequests()) != 0 {
		t.Error("rejected call must not touch the transport")
	}
}

func TestPublicCallBypassesAuthGate(t *testing.T) {
	tr := &fakeTransport{respond: func(req rpcRequest) []string {
		return []string{resultFrame(req.ID, `{"instrument_name":"BTC-PERPETUAL"}`)}
	}}
	s := connectedSession(tr, nil) // connected, not authenticated

	result, err := s.Call("public/get_order_book", map[string]any{"instrument_name": "BTC-PERPETUAL"})
	if err != nil {
		t.Fatalf("public call failed: %v", err)
	}
	if result == nil {
		t.Fatal("expected result, got nil")
	}
}

func TestCallNotConnected(t *testing.T) {
	s := NewSession("id", "secret", "", nil)
	if _, err := s.Call("public/get_order_book", nil); !errors.Is(err, domain.ErrNotConnected) {
		t.Fatalf("error = %v, want ErrNotConnected", err)
	}
}

func TestNotificationsDiscardedWhileWaiting(t *testing.T) {
	tr := &fakeTransport{respond: func(req rpcRequest) []string {
		return []string{
			notificationFrame("subscription"),
			notificationFrame("heartbeat"),
			resultFrame(req.ID, `{"ok":true}`),
		}
	}}
	s := authedSession(tr, nil)

	result, err := s.Call("private/get_open_orders_by_currency", map[string]any{"currency": "BTC"})
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	var decoded struct {
		OK bool `json:"ok"`
	}
	if err := json.Unmarshal(result, &decoded); err != nil || !decoded.OK {
		t.Errorf("engine matched the wrong frame: %s", string(result))
	}
}

func TestMismatchedIDIsProtocolError(t *testing.T) {
	tr := &fakeTransport{respond: func(req rpcRequest) []string {
		return []string{resultFrame(req.ID+7, `{"ok":true}`)}
	}}
	s := authedSession(tr, nil)

	_, err := s.Call("private/cancel", map[string]any{"order_id": "1"})
	var protoErr *domain.ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("expected ProtocolError, got %v", err)
	}
	if s.State() != domain.StateFailed {
		t.Errorf("state = %s, want failed", s.State())
	}
}

func TestExchangeErrorSurfaces(t *testing.T) {
	tr := &fakeTransport{respond: func(req rpcRequest) []string {
		return []string{errorFrame(req.ID, 11044, "not_open_order")}
	}}
	s := authedSession(tr, nil)

	_, err := s.Call("private/cancel", map[string]any{"order_id": "123"})
	var exchErr *domain.ExchangeError
	if !errors.As(err, &exchErr) {
		t.Fatalf("expected ExchangeError, got %v", err)
	}
	if exchErr.Code != 11044 || exchErr.Message != "not_open_order" {
		t.Errorf("got code=%d message=%q", exchErr.Code, exchErr.Message)
	}
	if !domain.IsRetriable(err) {
		t.Error("exchange errors should be retriable at the caller's discretion")
	}
	// The session itself is unaffected by an exchange-side rejection.
	if s.State() != domain.StateAuthenticated {
		t.Errorf("state = %s, want authenticated", s.State())
	}
}

func TestSequentialCallsUseDistinctIDs(t *testing.T) {
	tr := &fakeTransport{respond: func(req rpcRequest) []string {
		return []string{resultFrame(req.ID, fmt.Sprintf(`{"echo":%d}`, req.ID))}
	}}
	s := authedSession(tr, nil)

	seen := make(map[int64]bool)
	for i := 0; i < 20; i++ {
		result, err := s.Call("private/get_open_orders_by_currency", nil)
		if err != nil {
			t.Fatalf("call %d failed: %v", i, err)
		}
		var decoded struct {
			Echo int64 `json:"echo"`
		}
		if err := json.Unmarshal(result, &decoded); err != nil {
			t.Fatal(err)
		}
		if seen[decoded.Echo] {
			t.Fatalf("id %d reused", decoded.Echo)
		}
		seen[decoded.Echo] = true
	}

	sent := tr.sentRequests()
	if len(sent) != 20 {
		t.Fatalf("sent %d requests, want 20", len(sent))
	}
}

func TestSingleFlightNeverCrossMatches(t *testing.T) {
	// The responder delays replies so concurrent callers would interleave
	// if the engine allowed more than one outstanding request.
	tr := &fakeTransport{respond: func(req rpcRequest) []string {
		time.Sleep(5 * time.Millisecond)
		return []string{resultFrame(req.ID, fmt.Sprintf(`{"method":%q}`, req.Method))}
	}}
	s := authedSession(tr, nil)

	methods := []string{"private/buy", "private/sell", "private/cancel", "private/get_open_orders_by_currency"}
	var wg sync.WaitGroup
	for _, m := range methods {
		wg.Add(1)
		go func(method string) {
			defer wg.Done()
			result, err := s.Call(method, nil)
			if err != nil {
				t.Errorf("%s failed: %v", method, err)
				return
			}
			var decoded struct {
				Method string `json:"method"`
			}
			if err := json.Unmarshal(result, &decoded); err != nil {
				t.Error(err)
				return
			}
			if decoded.Method != method {
				t.Errorf("cross-matched reply: called %s, got reply for %s", method, decoded.Method)
			}
		}(m)
	}
	wg.Wait()
}

func TestCloseDropsSession(t *testing.T) {
	tr := &fakeTransport{}
	s := authedSession(tr, nil)

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if s.State() != domain.StateDisconnected {
		t.Errorf("state = %s, want disconnected", s.State())
	}
	if _, err := s.Call("public/get_order_book", nil); err == nil {
		t.Error("expected error calling a closed session")
	}
}
