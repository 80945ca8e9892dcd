package deribit

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"deribit_go/internal/domain"
	"deribit_go/internal/infra"
)

// Session is a persistent, authenticated trading connection. It owns the
// transport, the access token and the store handle exclusively; sharing one
// Session across goroutines is safe only because every call is serialized
// through the single-flight engine.
type Session struct {
	clientID     string
	clientSecret string
	scope        string

	transport Transport
	ids       idSequence
	labelSeq  atomic.Uint64
	store     domain.TradeStore
	logger    *slog.Logger

	// callMu serializes calls: at most one outstanding request per session.
	callMu sync.Mutex

	mu     sync.Mutex
	state  domain.ConnState
	token  string
	closed bool
}

// NewSession creates a disconnected session. The store may be nil, in which
// case executed trades are not recorded locally.
func NewSession(clientID, clientSecret, scope string, store domain.TradeStore) *Session {
	return &Session{
		clientID:     clientID,
		clientSecret: clientSecret,
		scope:        scope,
		store:        store,
		state:        domain.StateDisconnected,
		logger:       slog.Default().With("module", "deribit_session"),
	}
}

// Connect opens the WebSocket connection.
func (s *Session) Connect(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrSessionClosed
	}
	if s.transport != nil {
		return nil
	}

	t, err := dialWS(ctx, url)
	if err != nil {
		return err
	}
	s.transport = t
	s.state = domain.StateConnected
	s.logger.Info("connected", slog.String("url", url))
	return nil
}

// State returns the current connection state.
func (s *Session) State() domain.ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Authenticate performs the client-credentials handshake and stores the
// resulting access token. A failed handshake is terminal: the session moves
// to the failed state and must be reconstructed by the caller.
func (s *Session) Authenticate() error {
	if st := s.State(); st != domain.StateConnected {
		if st == domain.StateAuthenticated {
			return nil
		}
		return domain.ErrNotConnected
	}

	params := map[string]any{
		"grant_type":    "client_credentials",
		"client_id":     s.clientID,
		"client_secret": s.clientSecret,
		"scope":         s.scope,
	}

	raw, err := s.roundTrip("public/auth", params)
	if err != nil {
		s.setState(domain.StateFailed)
		var exchErr *domain.ExchangeError
		if errors.As(err, &exchErr) {
			return &domain.AuthError{Reason: exchErr.Message}
		}
		return &domain.AuthError{Reason: "handshake", Err: err}
	}

	var result struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(raw, &result); err != nil || result.AccessToken == "" {
		s.setState(domain.StateFailed)
		return &domain.AuthError{Reason: "auth result missing access_token"}
	}

	s.mu.Lock()
	s.token = result.AccessToken
	s.state = domain.StateAuthenticated
	s.mu.Unlock()

	s.logger.Info("authenticated")
	return nil
}

// Call issues a single correlated request and blocks until its reply
// arrives. Private methods require a completed handshake; public methods
// bypass the gate and work in the connected state. There is no call
// timeout: if the exchange never replies, Call blocks until the transport
// fails or the session is closed.
func (s *Session) Call(method string, params map[string]any) (json.RawMessage, error) {
	if !strings.HasPrefix(method, "public/") && s.State() != domain.StateAuthenticated {
		return nil, domain.ErrNotAuthenticated
	}
	return s.roundTrip(method, params)
}

// roundTrip is the correlated request engine. It sends one request and
// reads frames until the one carrying the matching id arrives. Server
// notifications (frames without an id) are discarded; a response with a
// non-matching id is a protocol error, because with a single request
// outstanding no other id can legitimately appear.
func (s *Session) roundTrip(method string, params map[string]any) (json.RawMessage, error) {
	s.callMu.Lock()
	defer s.callMu.Unlock()

	s.mu.Lock()
	t := s.transport
	s.mu.Unlock()
	if t == nil {
		return nil, domain.ErrNotConnected
	}

	id := s.ids.Next()
	frame, err := encodeRequest(id, method, params)
	if err != nil {
		return nil, err
	}

	infra.GlobalMetrics.RecordRequest()
	if err := t.Send(frame); err != nil {
		s.dropConnection()
		return nil, err
	}

	for {
		text, err := t.Receive()
		if err != nil {
			s.dropConnection()
			return nil, err
		}

		resp, err := decodeResponse(text)
		if err != nil {
			s.setState(domain.StateFailed)
			return nil, err
		}

		if resp.isNotification() {
			infra.GlobalMetrics.RecordDiscardedFrame()
			s.logger.Debug("discarding unsolicited frame", slog.String("method", resp.Method))
			continue
		}

		if *resp.ID != id {
			s.setState(domain.StateFailed)
			return nil, &domain.ProtocolError{Reason: "correlation id mismatch"}
		}

		if resp.Error != nil {
			infra.GlobalMetrics.RecordExchangeError()
			return nil, &domain.ExchangeError{Code: resp.Error.Code, Message: resp.Error.Message}
		}
		return resp.Result, nil
	}
}

// Close releases the transport. The session cannot be reused afterwards.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.state = domain.StateDisconnected
	s.token = ""
	if s.transport == nil {
		return nil
	}
	err := s.transport.Close()
	s.transport = nil
	return err
}

func (s *Session) setState(st domain.ConnState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// dropConnection marks the session disconnected after a transport failure.
func (s *Session) dropConnection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.transport != nil {
		s.transport.Close()
		s.transport = nil
	}
	s.state = domain.StateDisconnected
}
