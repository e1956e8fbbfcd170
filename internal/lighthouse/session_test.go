package lighthouse

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/houseflow/houseflow/internal/logging"
	"github.com/houseflow/houseflow/internal/registry"
	"github.com/houseflow/houseflow/internal/telemetry"
)

var upgrader = websocket.Upgrader{}

func testConfig() Config {
	return Config{PingInterval: time.Second, PongTimeout: time.Second}
}

// newTestServer upgrades every request into a Session and runs it for
// deviceID, returning the server, the session's registry, and the
// client-side *websocket.Conn playing the device role.
func newTestServer(t *testing.T, deviceID string) (*httptest.Server, *registry.Registry, *websocket.Conn) {
	t.Helper()

	reg := registry.New()
	logger := logging.Default()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade error: %v", err)
			return
		}
		sess := New(deviceID, conn, testConfig(), reg, (*telemetry.Recorder)(nil), logger)
		go sess.Run(context.Background())
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientConn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	t.Cleanup(func() { clientConn.Close() })

	return srv, reg, clientConn
}

func waitForSession(t *testing.T, reg *registry.Registry, deviceID string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := reg.Get(deviceID); ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("session never registered")
}

func TestSession_ExecuteRoundTrip(t *testing.T) {
	_, reg, clientConn := newTestServer(t, "dev-1")
	waitForSession(t, reg, "dev-1")

	// Play the device: echo back an ExecuteResponse for whatever request
	// arrives, mirroring the FrameID.
	go func() {
		_, data, err := clientConn.ReadMessage()
		if err != nil {
			return
		}
		var req Frame
		if err := json.Unmarshal(data, &req); err != nil {
			return
		}
		reply := Frame{ID: req.ID, Kind: KindExecuteResponse, Status: StatusSuccess, State: json.RawMessage(`{"on":true}`)}
		out, _ := json.Marshal(reply)
		clientConn.WriteMessage(websocket.TextMessage, out)
	}()

	handle, _ := reg.Get("dev-1")
	sess := handle.(*Session)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	reply, err := sess.Execute(ctx, CommandOnOff, json.RawMessage(`{"on":true}`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if reply.Status != StatusSuccess {
		t.Errorf("reply.Status = %q, want success", reply.Status)
	}
}

func TestSession_ExecuteTimeout(t *testing.T) {
	_, reg, _ := newTestServer(t, "dev-2")
	waitForSession(t, reg, "dev-2")

	handle, _ := reg.Get("dev-2")
	sess := handle.(*Session)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := sess.Execute(ctx, CommandOnOff, nil)
	if err == nil {
		t.Fatal("Execute() should time out when the device never replies")
	}

	sess.pendingMu.Lock()
	n := len(sess.pending)
	sess.pendingMu.Unlock()
	if n != 0 {
		t.Errorf("pending table should be empty after timeout cleanup, has %d entries", n)
	}
}

func TestSession_CloseFailsPendingSlots(t *testing.T) {
	_, reg, clientConn := newTestServer(t, "dev-3")
	waitForSession(t, reg, "dev-3")

	handle, _ := reg.Get("dev-3")
	sess := handle.(*Session)

	errCh := make(chan error, 1)
	go func() {
		_, err := sess.Execute(context.Background(), CommandOnOff, nil)
		errCh <- err
	}()

	time.Sleep(50 * time.Millisecond)
	clientConn.Close()

	select {
	case err := <-errCh:
		if err != ErrConnectionClosed {
			t.Errorf("Execute() error = %v, want ErrConnectionClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Execute() never returned after connection close")
	}

	if _, ok := reg.Get("dev-3"); ok {
		t.Error("session should be removed from the registry after teardown")
	}
}
