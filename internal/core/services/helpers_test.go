package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Team-Zemo/omninet-core-sub000/internal/core/contracts"
	"github.com/Team-Zemo/omninet-core-sub000/internal/core/domain"

	"github.com/google/uuid"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newFakeUserRepo(ids ...string) *fakeUserRepo {
	f := &fakeUserRepo{users: make(map[string]*domain.User)}
	for _, id := range ids {
		f.users[id] = &domain.User{ID: id, CreatedAt: time.Now()}
	}
	return f
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeUserRepo) UpsertUser(_ context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	u := &domain.User{ID: id, CreatedAt: time.Now()}
	f.users[id] = u
	return u, nil
}

func (f *fakeUserRepo) DeleteUser(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(f.users, id)
	return nil
}

type edge struct{ owner, contact string }

type fakeContactRepo struct {
	mu    sync.Mutex
	edges map[edge]time.Time
}

func newFakeContactRepo() *fakeContactRepo {
	return &fakeContactRepo{edges: make(map[edge]time.Time)}
}

func (f *fakeContactRepo) EnsureBidirectional(_ context.Context, a, b string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range []edge{{a, b}, {b, a}} {
		if _, ok := f.edges[e]; !ok {
			f.edges[e] = time.Now()
		}
	}
	return nil
}

func (f *fakeContactRepo) IsContact(_ context.Context, owner, contact string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.edges[edge{owner, contact}]
	return ok, nil
}

func (f *fakeContactRepo) TouchLastActivity(_ context.Context, a, b string, when time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range []edge{{a, b}, {b, a}} {
		if _, ok := f.edges[e]; ok {
			f.edges[e] = when
		}
	}
	return nil
}

func (f *fakeContactRepo) ListPreviews(_ context.Context, owner string) ([]domain.ContactPreview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ContactPreview
	for e, at := range f.edges {
		if e.owner == owner {
			out = append(out, domain.ContactPreview{ContactID: e.contact, LastMessageAt: at})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContactID < out[j].ContactID })
	return out, nil
}

type fakeMessageRepo struct {
	mu      sync.Mutex
	msgs    []*domain.Message
	nextSeq int64
}

func newFakeMessageRepo() *fakeMessageRepo { return &fakeMessageRepo{} }

func (f *fakeMessageRepo) Save(_ context.Context, msg *domain.Message) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextSeq++
	cp := *msg
	cp.Seq = f.nextSeq
	f.msgs = append(f.msgs, &cp)
	return f.nextSeq, nil
}

func (f *fakeMessageRepo) MarkDelivered(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.msgs {
		if m.ID == id && m.Status == domain.StatusPending {
			m.Status = domain.StatusDelivered
		}
	}
	return nil
}

func (f *fakeMessageRepo) MarkConversationRead(_ context.Context, sender, receiver string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, m := range f.msgs {
		if m.SenderID == sender && m.ReceiverID == receiver && m.Status != domain.StatusRead {
			m.Status = domain.StatusRead
			n++
		}
	}
	return n, nil
}

func (f *fakeMessageRepo) ListConversation(_ context.Context, a, b string, page, size int) ([]domain.Message, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var conv []*domain.Message
	for _, m := range f.msgs {
		if (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a) {
			conv = append(conv, m)
		}
	}
	sort.SliceStable(conv, func(i, j int) bool {
		if conv[i].CreatedAt.Equal(conv[j].CreatedAt) {
			return conv[i].Seq > conv[j].Seq
		}
		return conv[i].CreatedAt.After(conv[j].CreatedAt)
	})
	start := page * size
	if start >= len(conv) {
		return nil, false, nil
	}
	end := start + size
	hasMore := end < len(conv)
	if end > len(conv) {
		end = len(conv)
	}
	out := make([]domain.Message, 0, end-start)
	for _, m := range conv[start:end] {
		out = append(out, *m)
	}
	return out, hasMore, nil
}

func (f *fakeMessageRepo) ListPendingForReceiver(_ context.Context, receiver string) ([]domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Message
	for _, m := range f.msgs {
		if m.ReceiverID == receiver && m.Status == domain.StatusPending {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeMessageRepo) statusOf(id uuid.UUID) domain.MessageStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.msgs {
		if m.ID == id {
			return m.Status
		}
	}
	return ""
}

type fakeCallRepo struct {
	mu             sync.Mutex
	calls          map[uuid.UUID]*domain.CallSession
	failNextUpdate error
}

func newFakeCallRepo() *fakeCallRepo {
	return &fakeCallRepo{calls: make(map[uuid.UUID]*domain.CallSession)}
}

func (f *fakeCallRepo) Create(_ context.Context, call *domain.CallSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *call
	f.calls[call.ID] = &cp
	return nil
}

func (f *fakeCallRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.CallSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.calls[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, domain.ErrCallNotFound
}

func (f *fakeCallRepo) UpdateState(
	_ context.Context,
	id uuid.UUID,
	expected []domain.CallState,
	next domain.CallState,
	answerSDP, reason string,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNextUpdate != nil {
		err := f.failNextUpdate
		f.failNextUpdate = nil
		return err
	}
	c, ok := f.calls[id]
	if !ok {
		return domain.ErrCallNotFound
	}
	allowed := false
	for _, s := range expected {
		if c.State == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return domain.ErrInvalidCallState
	}
	c.State = next
	if answerSDP != "" {
		c.AnswerSDP = answerSDP
	}
	if reason != "" {
		c.Reason = reason
	}
	if next.IsTerminal() {
		now := time.Now()
		c.EndedAt = &now
	}
	return nil
}

func (f *fakeCallRepo) ListStaleUnanswered(_ context.Context, cutoff time.Time) ([]domain.CallSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.CallSession
	for _, c := range f.calls {
		if (c.State == domain.CallInitiating || c.State == domain.CallRinging) && c.StartedAt.Before(cutoff) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeCallRepo) ListActive(_ context.Context) ([]domain.CallSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.CallSession
	for _, c := range f.calls {
		if !c.State.IsTerminal() {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeCallRepo) stateOf(id uuid.UUID) domain.CallState {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.calls[id]; ok {
		return c.State
	}
	return ""
}

type fakePresence struct {
	mu     sync.Mutex
	online map[string]bool
}

func newFakePresence(online ...string) *fakePresence {
	f := &fakePresence{online: make(map[string]bool)}
	for _, u := range online {
		f.online[u] = true
	}
	return f
}

func (f *fakePresence) Connect(userID string, _ contracts.Client) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.online[userID] = true
}

func (f *fakePresence) Disconnect(c contracts.Client) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.online, c.UserID())
}

func (f *fakePresence) IsOnline(userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.online[userID]
}

type fakeRelay struct {
	mu     sync.Mutex
	events map[string][]any
}

func newFakeRelay() *fakeRelay { return &fakeRelay{events: make(map[string][]any)} }

func (f *fakeRelay) Publish(_ context.Context, userID string, event any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[userID] = append(f.events[userID], event)
	return nil
}

func (f *fakeRelay) eventsFor(userID string) []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]any(nil), f.events[userID]...)
}

type fakeQueue struct {
	mu sync.Mutex
	q  map[string][][]byte
}

func newFakeQueue() *fakeQueue { return &fakeQueue{q: make(map[string][][]byte)} }

func (f *fakeQueue) Enqueue(_ context.Context, recipient string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.q[recipient] = append(f.q[recipient], payload)
	return nil
}

func (f *fakeQueue) Drain(_ context.Context, recipient string) ([][]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.q[recipient]
	delete(f.q, recipient)
	return out, nil
}

func (f *fakeQueue) depth(recipient string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.q[recipient])
}

type fakeCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
	hits int
}

func newFakeCache() *fakeCache { return &fakeCache{data: make(map[string][]byte)} }

func (f *fakeCache) Get(_ context.Context, owner string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.data[owner]
	if ok {
		f.hits++
	}
	return raw, ok, nil
}

func (f *fakeCache) Set(_ context.Context, owner string, payload []byte, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[owner] = payload
	f.sets++
	return nil
}

func (f *fakeCache) Invalidate(_ context.Context, owners ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range owners {
		delete(f.data, o)
	}
	return nil
}

type fakeVerifier struct {
	sent  []string
	valid bool
}

func (f *fakeVerifier) SendOTP(_ context.Context, email string) error {
	f.sent = append(f.sent, email)
	return nil
}

func (f *fakeVerifier) VerifyOTP(context.Context, string, string) (bool, error) {
	return f.valid, nil
}

type fakeTx struct{}

func (fakeTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeClient struct {
	mu     sync.Mutex
	userID string
	sent   [][]byte
	closed bool
}

func (c *fakeClient) UserID() string { return c.userID }

func (c *fakeClient) Send(_ context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, data)
	return nil
}

func (c *fakeClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeClient) sentFrames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.sent...)
}
