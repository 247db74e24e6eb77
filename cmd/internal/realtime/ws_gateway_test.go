package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"tock/cmd/identity"
	"tock/cmd/internal/auth/session"
	"tock/cmd/internal/timers"
	v1 "tock/shared/contracts/sync/v1"

	"github.com/coder/websocket"
)

type fakeResolver struct {
	tokens map[string]identity.User
	err    error
}

func (f *fakeResolver) Resolve(_ context.Context, token string) (identity.User, error) {
	if f.err != nil {
		return identity.User{}, f.err
	}
	u, ok := f.tokens[token]
	if !ok {
		return identity.User{}, session.ErrSessionNotFound
	}
	return u, nil
}

type gatewayFixture struct {
	gw       *WSGateway
	registry *Registry
	engine   *timers.Service
	store    *timers.InMemoryStore
}

func newGatewayFixture(t *testing.T, resolver SessionResolver) gatewayFixture {
	t.Helper()
	t.Setenv("TOCK_WS_ORIGIN_REQUIRED", "false")

	log := testLogger()
	registry := NewRegistry(log)
	store := timers.NewInMemoryStore()
	engine := timers.NewService(log, store, registry)
	gw := NewWSGateway(log, registry, engine, resolver)

	return gatewayFixture{gw: gw, registry: registry, engine: engine, store: store}
}

func startGatewayServer(t *testing.T, gw *WSGateway) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.Handle("/ws", gw)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func dialSync(t *testing.T, baseHTTPURL, bearerToken string) (*websocket.Conn, *http.Response, error) {
	t.Helper()

	u, err := url.Parse(baseHTTPURL)
	if err != nil {
		t.Fatalf("url.Parse: %v", err)
	}
	u.Scheme = "ws"
	u.Path = "/ws"

	h := http.Header{}
	if strings.TrimSpace(bearerToken) != "" {
		h.Set("Authorization", "Bearer "+bearerToken)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return websocket.Dial(ctx, u.String(), &websocket.DialOptions{
		Subprotocols: []string{wsSubprotocolV1},
		HTTPHeader:   h,
	})
}

func writeSyncEnvelope(t *testing.T, conn *websocket.Conn, env v1.Envelope) {
	t.Helper()
	b, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, b); err != nil {
		t.Fatalf("conn.Write: %v", err)
	}
}

func readSyncEnvelope(t *testing.T, conn *websocket.Conn) v1.Envelope {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, b, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("conn.Read: %v", err)
	}
	var env v1.Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	return env
}

func readUntilType(t *testing.T, conn *websocket.Conn, typ string, maxReads int) v1.Envelope {
	t.Helper()
	if maxReads <= 0 {
		maxReads = 1
	}
	for i := 0; i < maxReads; i++ {
		env := readSyncEnvelope(t, conn)
		if env.Type == typ {
			return env
		}
	}
	t.Fatalf("did not receive envelope type %q", typ)
	return v1.Envelope{}
}

func mustJSONRaw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	return b
}

func TestWSGateway_MissingTokenRejected(t *testing.T) {
	fx := newGatewayFixture(t, &fakeResolver{tokens: map[string]identity.User{}})
	ts := startGatewayServer(t, fx.gw)

	_, resp, err := dialSync(t, ts.URL, "")
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err == nil {
		t.Fatalf("expected unauthorized handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("expected 401, got status=%d err=%v", status, err)
	}
	if got := fx.registry.Connections("user-1"); got != 0 {
		t.Fatalf("rejected handshake must not register connections, got %d", got)
	}
}

func TestWSGateway_InvalidTokenRejected(t *testing.T) {
	fx := newGatewayFixture(t, &fakeResolver{tokens: map[string]identity.User{}})
	ts := startGatewayServer(t, fx.gw)

	_, resp, err := dialSync(t, ts.URL, "not-a-valid-token")
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err == nil {
		t.Fatalf("expected unauthorized handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("expected 401, got status=%d err=%v", status, err)
	}
}

func TestWSGateway_ValidatorUnavailableFailsClosed(t *testing.T) {
	fx := newGatewayFixture(t, &fakeResolver{err: errors.New("store down")})
	ts := startGatewayServer(t, fx.gw)

	_, resp, err := dialSync(t, ts.URL, "some-token")
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err == nil {
		t.Fatalf("expected handshake failure when validator is down")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("expected 401, got status=%d err=%v", status, err)
	}
}

func TestWSGateway_InitialStatePush(t *testing.T) {
	resolver := &fakeResolver{tokens: map[string]identity.User{
		"token-1": {ID: "user-1", Username: "ada"},
	}}
	fx := newGatewayFixture(t, resolver)

	// Pre-existing state must arrive in the initial push.
	if _, err := fx.store.Insert(context.Background(), "user-1", "existing work", time.Now().UTC()); err != nil {
		t.Fatalf("seed timer: %v", err)
	}

	ts := startGatewayServer(t, fx.gw)
	conn, resp, err := dialSync(t, ts.URL, "token-1")
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("authorized dial failed: %v", err)
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") }()

	env := readUntilType(t, conn, v1.TypeAllTimers, 2)
	var p v1.AllTimersPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		t.Fatalf("decode all_timers: %v", err)
	}
	if p.Seq == 0 {
		t.Fatalf("initial push must carry a sequence number")
	}
	if len(p.ActiveTimers) != 1 || p.ActiveTimers[0].Description != "existing work" {
		t.Fatalf("unexpected initial snapshot: %+v", p)
	}
	if len(p.ClosedTimers) != 0 {
		t.Fatalf("expected no closed timers, got %d", len(p.ClosedTimers))
	}
}

func TestWSGateway_CreateTimerBroadcastsToAllConnections(t *testing.T) {
	resolver := &fakeResolver{tokens: map[string]identity.User{
		"token-1": {ID: "user-1", Username: "ada"},
	}}
	fx := newGatewayFixture(t, resolver)
	ts := startGatewayServer(t, fx.gw)

	connA, _, err := dialSync(t, ts.URL, "token-1")
	if err != nil {
		t.Fatalf("dial A: %v", err)
	}
	defer func() { _ = connA.Close(websocket.StatusNormalClosure, "bye") }()
	_ = readUntilType(t, connA, v1.TypeAllTimers, 2)

	connB, _, err := dialSync(t, ts.URL, "token-1")
	if err != nil {
		t.Fatalf("dial B: %v", err)
	}
	defer func() { _ = connB.Close(websocket.StatusNormalClosure, "bye") }()
	_ = readUntilType(t, connB, v1.TypeAllTimers, 2)

	writeSyncEnvelope(t, connA, v1.Envelope{
		V:       v1.Version,
		Type:    v1.TypeCreateTimer,
		ID:      "create-1",
		TS:      time.Now().UTC(),
		Payload: mustJSONRaw(t, v1.CreateTimerPayload{Description: "deep work"}),
	})

	for name, conn := range map[string]*websocket.Conn{"A": connA, "B": connB} {
		env := readUntilType(t, conn, v1.TypeAllTimers, 3)
		var p v1.AllTimersPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			t.Fatalf("conn %s decode: %v", name, err)
		}
		if len(p.ActiveTimers) != 1 || p.ActiveTimers[0].Description != "deep work" {
			t.Fatalf("conn %s unexpected snapshot: %+v", name, p)
		}
	}
}

func TestWSGateway_StopTimerMovesToClosed(t *testing.T) {
	resolver := &fakeResolver{tokens: map[string]identity.User{
		"token-1": {ID: "user-1", Username: "ada"},
	}}
	fx := newGatewayFixture(t, resolver)
	ts := startGatewayServer(t, fx.gw)

	conn, _, err := dialSync(t, ts.URL, "token-1")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") }()
	_ = readUntilType(t, conn, v1.TypeAllTimers, 2)

	writeSyncEnvelope(t, conn, v1.Envelope{
		V:       v1.Version,
		Type:    v1.TypeCreateTimer,
		ID:      "create-1",
		TS:      time.Now().UTC(),
		Payload: mustJSONRaw(t, v1.CreateTimerPayload{Description: "focus"}),
	})
	created := readUntilType(t, conn, v1.TypeAllTimers, 3)
	var createdP v1.AllTimersPayload
	if err := json.Unmarshal(created.Payload, &createdP); err != nil {
		t.Fatalf("decode created snapshot: %v", err)
	}
	if len(createdP.ActiveTimers) != 1 {
		t.Fatalf("expected one active timer, got %d", len(createdP.ActiveTimers))
	}
	timerID := createdP.ActiveTimers[0].ID

	writeSyncEnvelope(t, conn, v1.Envelope{
		V:       v1.Version,
		Type:    v1.TypeStopTimer,
		ID:      "stop-1",
		TS:      time.Now().UTC(),
		Payload: mustJSONRaw(t, v1.StopTimerPayload{ID: timerID}),
	})
	stopped := readUntilType(t, conn, v1.TypeAllTimers, 3)
	var stoppedP v1.AllTimersPayload
	if err := json.Unmarshal(stopped.Payload, &stoppedP); err != nil {
		t.Fatalf("decode stopped snapshot: %v", err)
	}
	if len(stoppedP.ActiveTimers) != 0 || len(stoppedP.ClosedTimers) != 1 {
		t.Fatalf("unexpected snapshot after stop: %+v", stoppedP)
	}
	closed := stoppedP.ClosedTimers[0]
	if closed.ID != timerID || closed.End == nil || closed.DurationMS == nil {
		t.Fatalf("closed timer missing end/duration: %+v", closed)
	}
	if stoppedP.Seq <= createdP.Seq {
		t.Fatalf("stop snapshot must supersede create snapshot: %d <= %d", stoppedP.Seq, createdP.Seq)
	}
}

func TestWSGateway_StopUnknownTimerSendsErrorAndKeepsConnection(t *testing.T) {
	resolver := &fakeResolver{tokens: map[string]identity.User{
		"token-1": {ID: "user-1", Username: "ada"},
	}}
	fx := newGatewayFixture(t, resolver)
	ts := startGatewayServer(t, fx.gw)

	conn, _, err := dialSync(t, ts.URL, "token-1")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") }()
	_ = readUntilType(t, conn, v1.TypeAllTimers, 2)

	writeSyncEnvelope(t, conn, v1.Envelope{
		V:       v1.Version,
		Type:    v1.TypeStopTimer,
		ID:      "stop-unknown",
		TS:      time.Now().UTC(),
		Payload: mustJSONRaw(t, v1.StopTimerPayload{ID: 4242}),
	})

	errEnv := readUntilType(t, conn, v1.TypeError, 2)
	var errP v1.ErrorPayload
	if err := json.Unmarshal(errEnv.Payload, &errP); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	if errP.Code != "timer_not_found" {
		t.Fatalf("expected code timer_not_found, got %q", errP.Code)
	}

	// Connection survives: a valid command still works.
	writeSyncEnvelope(t, conn, v1.Envelope{
		V:       v1.Version,
		Type:    v1.TypeCreateTimer,
		ID:      "create-after-error",
		TS:      time.Now().UTC(),
		Payload: mustJSONRaw(t, v1.CreateTimerPayload{Description: "still here"}),
	})
	_ = readUntilType(t, conn, v1.TypeAllTimers, 3)
}

func TestWSGateway_UndecodableFrameClosesWithProtocolError(t *testing.T) {
	resolver := &fakeResolver{tokens: map[string]identity.User{
		"token-1": {ID: "user-1", Username: "ada"},
	}}
	fx := newGatewayFixture(t, resolver)
	ts := startGatewayServer(t, fx.gw)

	conn, _, err := dialSync(t, ts.URL, "token-1")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") }()
	_ = readUntilType(t, conn, v1.TypeAllTimers, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, []byte("{not json")); err != nil {
		t.Fatalf("write garbage: %v", err)
	}

	readCtx, readCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer readCancel()
	for {
		_, _, err := conn.Read(readCtx)
		if err != nil {
			if got := websocket.CloseStatus(err); got != websocket.StatusProtocolError {
				t.Fatalf("expected protocol error close, got status=%v err=%v", got, err)
			}
			return
		}
	}
}

func TestWSGateway_InvalidEnvelopeKeepsConnection(t *testing.T) {
	resolver := &fakeResolver{tokens: map[string]identity.User{
		"token-1": {ID: "user-1", Username: "ada"},
	}}
	fx := newGatewayFixture(t, resolver)
	ts := startGatewayServer(t, fx.gw)

	conn, _, err := dialSync(t, ts.URL, "token-1")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") }()
	_ = readUntilType(t, conn, v1.TypeAllTimers, 2)

	// Valid JSON, unknown type: error envelope, no close.
	writeSyncEnvelope(t, conn, v1.Envelope{
		V:    v1.Version,
		Type: "frobnicate",
		ID:   "bad-1",
		TS:   time.Now().UTC(),
	})
	errEnv := readUntilType(t, conn, v1.TypeError, 2)
	var errP v1.ErrorPayload
	if err := json.Unmarshal(errEnv.Payload, &errP); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	if errP.Code != "bad_envelope" {
		t.Fatalf("expected code bad_envelope, got %q", errP.Code)
	}
}
