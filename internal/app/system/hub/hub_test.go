package hub

import (
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
	err    error
}

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	f.frames = append(f.frames, cp)
	return nil
}

func (f *fakeConn) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func TestGetOrCreateRoom_Reuses(t *testing.T) {
	h := New(zap.NewNop())

	a := h.GetOrCreateRoom("req-1")
	b := h.GetOrCreateRoom("req-1")
	if a != b {
		t.Error("expected the same room for the same request id")
	}
	if h.GetOrCreateRoom("req-2") == a {
		t.Error("expected a distinct room per request id")
	}
}

func TestBroadcast_ReachesAllClients(t *testing.T) {
	h := New(zap.NewNop())
	room := h.GetOrCreateRoom("req-1")

	parent := &fakeConn{}
	teacher := &fakeConn{}
	room.AddClient(&Client{Conn: parent, UserID: "p1", Role: "parent"})
	room.AddClient(&Client{Conn: teacher, UserID: "t1", Role: "teacher"})

	h.Broadcast("req-1", Event{Type: "message", Sender: "p1"})

	if parent.count() != 1 || teacher.count() != 1 {
		t.Errorf("frames: parent=%d teacher=%d, want 1 each", parent.count(), teacher.count())
	}

	var ev Event
	if err := json.Unmarshal(parent.frames[0], &ev); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	if ev.Type != "message" || ev.Sender != "p1" {
		t.Errorf("frame = %+v", ev)
	}
}

func TestBroadcastFrom_SkipsSender(t *testing.T) {
	h := New(zap.NewNop())
	room := h.GetOrCreateRoom("req-1")

	sender := &fakeConn{}
	other := &fakeConn{}
	room.AddClient(&Client{Conn: sender, UserID: "p1"})
	room.AddClient(&Client{Conn: other, UserID: "t1"})

	room.BroadcastFrom(sender, []byte(`{"type":"typing"}`), zap.NewNop())

	if sender.count() != 0 {
		t.Errorf("sender received %d frames, want 0", sender.count())
	}
	if other.count() != 1 {
		t.Errorf("other received %d frames, want 1", other.count())
	}
}

func TestBroadcast_FailedWriteDoesNotBlockOthers(t *testing.T) {
	h := New(zap.NewNop())
	room := h.GetOrCreateRoom("req-1")

	broken := &fakeConn{err: errors.New("connection reset")}
	healthy := &fakeConn{}
	room.AddClient(&Client{Conn: broken, UserID: "p1"})
	room.AddClient(&Client{Conn: healthy, UserID: "t1"})

	h.Broadcast("req-1", Event{Type: "message"})

	if healthy.count() != 1 {
		t.Errorf("healthy client received %d frames, want 1", healthy.count())
	}
}

func TestBroadcast_MissingRoomIsNoop(t *testing.T) {
	h := New(zap.NewNop())
	h.Broadcast("req-nobody", Event{Type: "message"})
}

func TestRemoveRoomIfEmpty(t *testing.T) {
	h := New(zap.NewNop())
	room := h.GetOrCreateRoom("req-1")

	c := &fakeConn{}
	room.AddClient(&Client{Conn: c, UserID: "p1"})

	h.RemoveRoomIfEmpty("req-1")
	if h.Room("req-1") == nil {
		t.Fatal("room with a client must not be removed")
	}

	room.RemoveClient(c)
	h.RemoveRoomIfEmpty("req-1")
	if h.Room("req-1") != nil {
		t.Error("empty room should have been removed")
	}
}

// overlapConn trips a flag if two goroutines are ever inside WriteMessage
// at the same time, which is exactly what *websocket.Conn forbids.
type overlapConn struct {
	active  int32
	overlap int32
}

func (c *overlapConn) WriteMessage(_ int, _ []byte) error {
	if atomic.AddInt32(&c.active, 1) != 1 {
		atomic.StoreInt32(&c.overlap, 1)
	}
	time.Sleep(time.Millisecond)
	atomic.AddInt32(&c.active, -1)
	return nil
}

func TestSend_SerializesWithBroadcast(t *testing.T) {
	h := New(zap.NewNop())
	room := h.GetOrCreateRoom("req-1")

	conn := &overlapConn{}
	client := &Client{Conn: conn, UserID: "p1"}
	room.AddClient(client)
	room.AddClient(&Client{Conn: &fakeConn{}, UserID: "t1"})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := client.Send([]byte(`{"type":"reject"}`)); err != nil {
				t.Errorf("Send: %v", err)
			}
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Broadcast("req-1", Event{Type: "message", Sender: "t1"})
		}()
	}
	wg.Wait()

	if atomic.LoadInt32(&conn.overlap) != 0 {
		t.Error("direct Send and broadcast wrote the connection concurrently")
	}
}

func TestRoom_ConcurrentJoinLeave(t *testing.T) {
	h := New(zap.NewNop())
	room := h.GetOrCreateRoom("req-1")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := &fakeConn{}
			room.AddClient(&Client{Conn: c, UserID: "u"})
			h.Broadcast("req-1", Event{Type: "message"})
			room.RemoveClient(c)
		}()
	}
	wg.Wait()

	if room.ClientCount() != 0 {
		t.Errorf("ClientCount: got %d, want 0", room.ClientCount())
	}
}
