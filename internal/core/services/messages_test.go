package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/Team-Zemo/omninet-core-sub000/internal/app/registry"
	"github.com/Team-Zemo/omninet-core-sub000/internal/core/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type msgFixture struct {
	svc      *MessageService
	users    *fakeUserRepo
	contacts *fakeContactRepo
	repo     *fakeMessageRepo
	presence *fakePresence
	relay    *fakeRelay
	queue    *fakeQueue
	cache    *fakeCache
}

func newMsgFixture(online ...string) *msgFixture {
	f := &msgFixture{
		users:    newFakeUserRepo("alice", "bob"),
		contacts: newFakeContactRepo(),
		repo:     newFakeMessageRepo(),
		presence: newFakePresence(online...),
		relay:    newFakeRelay(),
		queue:    newFakeQueue(),
		cache:    newFakeCache(),
	}
	f.svc = NewMessageService(discardLogger(), f.users, f.contacts, f.repo, f.presence, f.relay, f.queue, f.cache, fakeTx{})
	return f
}

func TestSendOnlineDeliversLive(t *testing.T) {
	f := newMsgFixture("bob")
	ctx := context.Background()

	msg, err := f.svc.Send(ctx, "alice", SendMessageDTO{ReceiverID: "bob", Content: "hi"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.Status != domain.StatusDelivered {
		t.Fatalf("status = %s, want DELIVERED", msg.Status)
	}
	if msg.Seq == 0 {
		t.Fatal("seq not assigned")
	}
	if got := len(f.relay.eventsFor("bob")); got != 1 {
		t.Fatalf("receiver pushes = %d, want 1", got)
	}
	if got := len(f.relay.eventsFor("alice")); got != 1 {
		t.Fatalf("sender echoes = %d, want 1", got)
	}
	if f.queue.depth("bob") != 0 {
		t.Fatal("live message must not be enqueued")
	}
	for _, pair := range [][2]string{{"alice", "bob"}, {"bob", "alice"}} {
		ok, _ := f.contacts.IsContact(ctx, pair[0], pair[1])
		if !ok {
			t.Fatalf("missing contact edge %s -> %s", pair[0], pair[1])
		}
	}
}

func TestSendOfflineEnqueuesPending(t *testing.T) {
	f := newMsgFixture()
	ctx := context.Background()

	msg, err := f.svc.Send(ctx, "alice", SendMessageDTO{ReceiverID: "bob", Content: "hi"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.Status != domain.StatusPending {
		t.Fatalf("status = %s, want PENDING", msg.Status)
	}
	if f.queue.depth("bob") != 1 {
		t.Fatalf("queue depth = %d, want 1", f.queue.depth("bob"))
	}
	if got := len(f.relay.eventsFor("bob")); got != 0 {
		t.Fatalf("offline receiver got %d live pushes", got)
	}
	if got := len(f.relay.eventsFor("alice")); got != 1 {
		t.Fatalf("sender echoes = %d, want 1", got)
	}
}

func TestSendUnknownReceiverFails(t *testing.T) {
	f := newMsgFixture()

	_, err := f.svc.Send(context.Background(), "alice", SendMessageDTO{ReceiverID: "ghost", Content: "hi"})
	if err != domain.ErrUserNotFound {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
	if len(f.repo.msgs) != 0 {
		t.Fatal("nothing should be persisted")
	}
}

func TestSendInvalidatesPreviewCache(t *testing.T) {
	f := newMsgFixture("bob")
	ctx := context.Background()
	_ = f.cache.Set(ctx, "alice", []byte("[]"), 0)
	_ = f.cache.Set(ctx, "bob", []byte("[]"), 0)

	if _, err := f.svc.Send(ctx, "alice", SendMessageDTO{ReceiverID: "bob", Content: "hi"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	for _, owner := range []string{"alice", "bob"} {
		if _, hit, _ := f.cache.Get(ctx, owner); hit {
			t.Fatalf("cache entry for %s not invalidated", owner)
		}
	}
}

func TestDeliverPendingOnConnectFlushesQueue(t *testing.T) {
	f := newMsgFixture()
	ctx := context.Background()

	first, _ := f.svc.Send(ctx, "alice", SendMessageDTO{ReceiverID: "bob", Content: "one"})
	second, _ := f.svc.Send(ctx, "alice", SendMessageDTO{ReceiverID: "bob", Content: "two"})

	c := &fakeClient{userID: "bob"}
	if err := f.svc.DeliverPendingOnConnect(ctx, "bob", c); err != nil {
		t.Fatalf("deliver pending: %v", err)
	}
	frames := c.sentFrames()
	if len(frames) != 2 {
		t.Fatalf("frames = %d, want 2", len(frames))
	}
	var prev int64
	for _, raw := range frames {
		var event domain.MessageEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			t.Fatalf("unmarshal frame: %v", err)
		}
		if event.Status != domain.StatusDelivered {
			t.Fatalf("frame status = %s, want DELIVERED", event.Status)
		}
		if event.Seq <= prev {
			t.Fatalf("frames out of send order: seq %d after %d", event.Seq, prev)
		}
		prev = event.Seq
	}
	for _, m := range []*domain.Message{first, second} {
		if got := f.repo.statusOf(m.ID); got != domain.StatusDelivered {
			t.Fatalf("message %s status = %s, want DELIVERED", m.ID, got)
		}
	}
	if f.queue.depth("bob") != 0 {
		t.Fatal("queue not drained")
	}

	// Reconnect delivers nothing twice.
	c2 := &fakeClient{userID: "bob"}
	if err := f.svc.DeliverPendingOnConnect(ctx, "bob", c2); err != nil {
		t.Fatalf("second deliver pending: %v", err)
	}
	if got := len(c2.sentFrames()); got != 0 {
		t.Fatalf("redelivered %d frames after flush", got)
	}
}

func TestDeliverPendingCoversMissedEnqueue(t *testing.T) {
	f := newMsgFixture()
	ctx := context.Background()

	// A PENDING row with no queued payload, as left behind by a failed
	// enqueue.
	msg := domain.NewMessage("alice", "bob", "lost")
	if _, err := f.repo.Save(ctx, msg); err != nil {
		t.Fatalf("save: %v", err)
	}

	c := &fakeClient{userID: "bob"}
	if err := f.svc.DeliverPendingOnConnect(ctx, "bob", c); err != nil {
		t.Fatalf("deliver pending: %v", err)
	}
	if got := len(c.sentFrames()); got != 1 {
		t.Fatalf("frames = %d, want 1", got)
	}
	if got := f.repo.statusOf(msg.ID); got != domain.StatusDelivered {
		t.Fatalf("status = %s, want DELIVERED", got)
	}
}

// Drives the connect sequence the websocket handler runs (drain onto the
// handle, register, drain again) against the live hub, with a send racing
// into the gap between the first drain and the registration. Everything
// queued before the connect event must reach the client before anything
// sent after it.
func TestConnectSequenceKeepsQueuedAheadOfLive(t *testing.T) {
	hub := registry.NewRegistry(discardLogger())
	users := newFakeUserRepo("alice", "bob")
	repo := newFakeMessageRepo()
	queue := newFakeQueue()
	svc := NewMessageService(discardLogger(), users, newFakeContactRepo(), repo, hub, hub, queue, newFakeCache(), fakeTx{})
	ctx := context.Background()

	if _, err := svc.Send(ctx, "alice", SendMessageDTO{ReceiverID: "bob", Content: "queued"}); err != nil {
		t.Fatalf("offline send: %v", err)
	}

	c := &fakeClient{userID: "bob"}
	if err := svc.DeliverPendingOnConnect(ctx, "bob", c); err != nil {
		t.Fatalf("first drain: %v", err)
	}
	// Lands between the first drain and the registration: bob still reads
	// as offline, so it goes through the queue, not past it.
	if _, err := svc.Send(ctx, "alice", SendMessageDTO{ReceiverID: "bob", Content: "raced"}); err != nil {
		t.Fatalf("racing send: %v", err)
	}
	hub.Connect("bob", c)
	if err := svc.DeliverPendingOnConnect(ctx, "bob", c); err != nil {
		t.Fatalf("second drain: %v", err)
	}

	if _, err := svc.Send(ctx, "alice", SendMessageDTO{ReceiverID: "bob", Content: "live"}); err != nil {
		t.Fatalf("live send: %v", err)
	}

	frames := c.sentFrames()
	want := []string{"queued", "raced", "live"}
	if len(frames) != len(want) {
		t.Fatalf("frames = %d, want %d", len(frames), len(want))
	}
	for i, raw := range frames {
		var event domain.MessageEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			t.Fatalf("unmarshal frame %d: %v", i, err)
		}
		if event.Content != want[i] {
			t.Fatalf("frame %d = %q, want %q", i, event.Content, want[i])
		}
	}
}

func TestMarkReadOnlyFlipsIncoming(t *testing.T) {
	f := newMsgFixture()
	ctx := context.Background()

	in, _ := f.svc.Send(ctx, "alice", SendMessageDTO{ReceiverID: "bob", Content: "to bob"})
	out, _ := f.svc.Send(ctx, "bob", SendMessageDTO{ReceiverID: "alice", Content: "to alice"})

	count, err := f.svc.MarkRead(ctx, "bob", "alice")
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
	if got := f.repo.statusOf(in.ID); got != domain.StatusRead {
		t.Fatalf("incoming status = %s, want READ", got)
	}
	if got := f.repo.statusOf(out.ID); got == domain.StatusRead {
		t.Fatal("outgoing message must not be flipped by the receiver's read")
	}

	// The sender gets exactly one receipt, and only when rows changed.
	receipts := 0
	for _, e := range f.relay.eventsFor("alice") {
		if _, ok := e.(domain.ReadReceiptEvent); ok {
			receipts++
		}
	}
	if receipts != 1 {
		t.Fatalf("receipts = %d, want 1", receipts)
	}
	count, err = f.svc.MarkRead(ctx, "bob", "alice")
	if err != nil || count != 0 {
		t.Fatalf("second mark read = (%d, %v), want (0, nil)", count, err)
	}
	receipts = 0
	for _, e := range f.relay.eventsFor("alice") {
		if _, ok := e.(domain.ReadReceiptEvent); ok {
			receipts++
		}
	}
	if receipts != 1 {
		t.Fatalf("no-op mark read must not emit a receipt, got %d", receipts)
	}
}

func TestHistoryPaginates(t *testing.T) {
	f := newMsgFixture()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := f.svc.Send(ctx, "alice", SendMessageDTO{ReceiverID: "bob", Content: "m"}); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}

	seen := make(map[int64]bool)
	var lastSeq int64 = 1 << 62
	wantMore := []bool{true, true, false}
	for page := 0; page < 3; page++ {
		msgs, hasMore, err := f.svc.History(ctx, "bob", "alice", page, 2)
		if err != nil {
			t.Fatalf("history page %d: %v", page, err)
		}
		if hasMore != wantMore[page] {
			t.Fatalf("page %d hasMore = %v, want %v", page, hasMore, wantMore[page])
		}
		for _, m := range msgs {
			if m.Seq >= lastSeq {
				t.Fatalf("page %d not reverse-chronological: seq %d after %d", page, m.Seq, lastSeq)
			}
			lastSeq = m.Seq
			if seen[m.Seq] {
				t.Fatalf("seq %d returned twice", m.Seq)
			}
			seen[m.Seq] = true
		}
	}
	if len(seen) != 5 {
		t.Fatalf("pages covered %d messages, want 5", len(seen))
	}
}
