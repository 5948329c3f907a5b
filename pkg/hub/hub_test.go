package hub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-facefilter/internal/log"
)

type written struct {
	kind int
	data []byte
}

// fakeConn blocks reads until closed and records writes.
type fakeConn struct {
	mu     sync.Mutex
	writes []written
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{closed: make(chan struct{})}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	<-f.closed
	return 0, nil, errors.New("closed")
}

func (f *fakeConn) WriteMessage(kind int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, written{kind: kind, data: data})
	return nil
}

func (f *fakeConn) SetReadLimit(int64)                {}
func (f *fakeConn) SetReadDeadline(time.Time) error   { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error  { return nil }
func (f *fakeConn) SetPongHandler(func(string) error) {}

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) messages(kind int) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, w := range f.writes {
		if w.kind == kind {
			out = append(out, string(w.data))
		}
	}
	return out
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	h := New("test", log.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	waitFor(t, "hub running", h.IsRunning)
	t.Cleanup(cancel)
	return h, cancel
}

func TestHub_BroadcastReachesClients(t *testing.T) {
	h, _ := startHub(t)

	a, b := newFakeConn(), newFakeConn()
	go NewClient(h, a, NewJSONMessage([]byte(`{"hello":true}`))).Run()
	go NewClient(h, b).Run()
	waitFor(t, "two clients", func() bool { return h.ClientCount() == 2 })

	if err := h.BroadcastJSON(map[string]int{"n": 1}); err != nil {
		t.Fatalf("BroadcastJSON: %v", err)
	}
	h.BroadcastBinary([]byte{0xff, 0xd8})

	waitFor(t, "messages delivered", func() bool {
		return len(a.messages(websocket.TextMessage)) == 2 && len(b.messages(websocket.BinaryMessage)) == 1
	})

	text := a.messages(websocket.TextMessage)
	if text[0] != `{"hello":true}` || text[1] != `{"n":1}` {
		t.Errorf("client a text: got %v", text)
	}
	if got := b.messages(websocket.TextMessage); len(got) != 1 || got[0] != `{"n":1}` {
		t.Errorf("client b text: got %v", got)
	}
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	h, _ := startHub(t)

	conn := newFakeConn()
	go NewClient(h, conn).Run()
	waitFor(t, "client registered", func() bool { return h.ClientCount() == 1 })

	conn.Close()
	waitFor(t, "client removed", func() bool { return h.ClientCount() == 0 })
}

func TestHub_StopDisconnectsClients(t *testing.T) {
	h, cancel := startHub(t)

	conn := newFakeConn()
	go NewClient(h, conn).Run()
	waitFor(t, "client registered", func() bool { return h.ClientCount() == 1 })

	cancel()
	<-h.Done()
	if h.IsRunning() {
		t.Error("hub should report stopped")
	}
	waitFor(t, "close frame", func() bool { return len(conn.messages(websocket.CloseMessage)) == 1 })

	if c := NewClient(h, newFakeConn()); c != nil {
		t.Error("NewClient on a stopped hub should return nil")
	}
}
