package app

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"

	"private_chat_service/internal/chat/domain"
	errprocess "private_chat_service/pkg/err"

	"github.com/stretchr/testify/mock"
)

// memMessageRepo in-memory MessageRepository with the same CAS contract as the mongo one
type memMessageRepo struct {
	mu   sync.Mutex
	msgs map[string]*domain.Message

	// conflicts 下一次 Update 前先偷偷改版本的次數
	conflicts   int
	updateCalls int
	createErr   error
}

func newMemMessageRepo() *memMessageRepo {
	return &memMessageRepo{msgs: make(map[string]*domain.Message)}
}

func (r *memMessageRepo) Create(_ context.Context, m *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.msgs[m.ID] = m.Clone()
	return nil
}

func (r *memMessageRepo) FindByID(_ context.Context, id string) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.msgs[id]
	if !ok {
		return nil, errprocess.Wrapf(domain.ErrNotFound, "message %s not found", id)
	}
	return m.Clone(), nil
}

func (r *memMessageRepo) Update(_ context.Context, m *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateCalls++

	cur, ok := r.msgs[m.ID]
	if !ok {
		return errprocess.Wrapf(domain.ErrNotFound, "message %s not found", m.ID)
	}
	if r.conflicts > 0 {
		r.conflicts--
		cur.Version++
	}
	if cur.Version != m.Version {
		return errprocess.Wrapf(domain.ErrVersionConflict, "message %s version %d", m.ID, m.Version)
	}
	m.Version++
	r.msgs[m.ID] = m.Clone()
	return nil
}

func (r *memMessageRepo) all() []*domain.Message {
	out := make([]*domain.Message, 0, len(r.msgs))
	for _, m := range r.msgs {
		out = append(out, m.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].SequenceNumber < out[j].SequenceNumber
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func inPair(m *domain.Message, a, b string) bool {
	return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
}

func (r *memMessageRepo) FindConversation(_ context.Context, viewer, other string) ([]*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Message
	for _, m := range r.all() {
		if inPair(m, viewer, other) && !m.DeletedFor(viewer) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memMessageRepo) SearchConversation(_ context.Context, viewer, other, query string) ([]*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Message
	all := r.all()
	for i := len(all) - 1; i >= 0; i-- {
		m := all[i]
		if !inPair(m, viewer, other) || m.DeletedFor(viewer) || m.DeletedForEveryone() {
			continue
		}
		text := ""
		switch c := m.Content.(type) {
		case domain.PlaintextContent:
			text = c.Text
		case domain.AttachmentContent:
			text = c.Caption
		default:
			continue
		}
		if strings.Contains(strings.ToLower(text), strings.ToLower(query)) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memMessageRepo) FindByParty(_ context.Context, viewer string) ([]*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Message
	all := r.all()
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].IsParty(viewer) && !all[i].DeletedFor(viewer) {
			out = append(out, all[i])
		}
	}
	return out, nil
}

func (r *memMessageRepo) EnsureIndexes(context.Context) error { return nil }

// memUserRepo in-memory UserRepository
type memUserRepo struct {
	mu       sync.Mutex
	profiles map[string]*domain.UserProfile
	pins     map[string][]string
	removed  []string
}

func newMemUserRepo(profiles ...domain.UserProfile) *memUserRepo {
	r := &memUserRepo{profiles: make(map[string]*domain.UserProfile), pins: make(map[string][]string)}
	for i := range profiles {
		p := profiles[i]
		r.profiles[p.ID] = &p
	}
	return r
}

func (r *memUserRepo) copyOf(p *domain.UserProfile) *domain.UserProfile {
	c := *p
	c.BlockedUsers = append([]string{}, p.BlockedUsers...)
	c.PushTokens = append([]string(nil), p.PushTokens...)
	return &c
}

func (r *memUserRepo) AutoMigrate() error { return nil }

func (r *memUserRepo) UpsertProfile(_ context.Context, p *domain.UserProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.profiles[p.ID]; ok {
		cur.FullName, cur.ProfilePic = p.FullName, p.ProfilePic
		return nil
	}
	r.profiles[p.ID] = r.copyOf(p)
	return nil
}

func (r *memUserRepo) FindProfile(_ context.Context, userID string) (*domain.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[userID]
	if !ok {
		return nil, errprocess.Wrapf(domain.ErrNotFound, "user %s not found", userID)
	}
	return r.copyOf(p), nil
}

func (r *memUserRepo) FindProfiles(_ context.Context, userIDs []string) (map[string]*domain.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]*domain.UserProfile)
	for _, id := range userIDs {
		if p, ok := r.profiles[id]; ok {
			out[id] = r.copyOf(p)
		}
	}
	return out, nil
}

func (r *memUserRepo) Block(_ context.Context, userID, blockedID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.profiles[userID]
	for _, b := range p.BlockedUsers {
		if b == blockedID {
			return nil
		}
	}
	p.BlockedUsers = append(p.BlockedUsers, blockedID)
	return nil
}

func (r *memUserRepo) Unblock(_ context.Context, userID, blockedID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.profiles[userID]
	out := p.BlockedUsers[:0]
	for _, b := range p.BlockedUsers {
		if b != blockedID {
			out = append(out, b)
		}
	}
	p.BlockedUsers = out
	return nil
}

func (r *memUserRepo) ListContacts(_ context.Context, viewerID string) ([]domain.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.UserProfile{}
	for id, p := range r.profiles {
		if id == viewerID || p.HasBlocked(viewerID) {
			continue
		}
		out = append(out, domain.UserProfile{ID: p.ID, FullName: p.FullName, ProfilePic: p.ProfilePic, BlockedUsers: []string{}})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FullName == out[j].FullName {
			return out[i].ID < out[j].ID
		}
		return out[i].FullName < out[j].FullName
	})
	return out, nil
}

func (r *memUserRepo) Pin(_ context.Context, userID, pinnedID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.pins[userID] {
		if id == pinnedID {
			return nil
		}
	}
	r.pins[userID] = append(r.pins[userID], pinnedID)
	return nil
}

func (r *memUserRepo) Unpin(_ context.Context, userID, pinnedID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []string{}
	for _, id := range r.pins[userID] {
		if id != pinnedID {
			out = append(out, id)
		}
	}
	r.pins[userID] = out
	return nil
}

func (r *memUserRepo) ListPinned(_ context.Context, userID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.pins[userID]...), nil
}

func (r *memUserRepo) AddPushToken(_ context.Context, userID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.profiles[userID]
	p.PushTokens = append(p.PushTokens, token)
	return nil
}

func (r *memUserRepo) RemovePushToken(_ context.Context, userID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, token)
	p, ok := r.profiles[userID]
	if !ok {
		return nil
	}
	out := p.PushTokens[:0]
	for _, t := range p.PushTokens {
		if t != token {
			out = append(out, t)
		}
	}
	p.PushTokens = out
	return nil
}

// memSeqRepo per conversation counter
type memSeqRepo struct {
	mu  sync.Mutex
	seq map[string]int64
}

func newMemSeqRepo() *memSeqRepo {
	return &memSeqRepo{seq: make(map[string]int64)}
}

func (r *memSeqRepo) Next(_ context.Context, conversationID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq[conversationID]++
	return r.seq[conversationID], nil
}

// MockPushRepository Mock PushRepository
type MockPushRepository struct {
	mock.Mock
}

// Send moke push send
func (m *MockPushRepository) Send(ctx context.Context, n domain.PushNotification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// MockJournalRepository Mock JournalRepository
type MockJournalRepository struct {
	mock.Mock
}

// Append moke journal append
func (m *MockJournalRepository) Append(ctx context.Context, entry domain.JournalEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// Close moke journal close
func (m *MockJournalRepository) Close() error {
	return m.Called().Error(0)
}

// MockAttachmentRepository Mock AttachmentRepository
type MockAttachmentRepository struct {
	mock.Mock
}

// Upload moke upload
func (m *MockAttachmentRepository) Upload(ctx context.Context, fileName, mimeType string, r io.Reader, size int64) (string, error) {
	args := m.Called(ctx, fileName, mimeType, r, size)
	return args.String(0), args.Error(1)
}

// Owns moke owns
func (m *MockAttachmentRepository) Owns(rawURL string) bool {
	return m.Called(rawURL).Bool(0)
}

// recordingConn Connection that keeps every frame
type recordingConn struct {
	mu     sync.Mutex
	frames []domain.WSResponse
	closed bool
	full   bool
}

func (c *recordingConn) Send(resp domain.WSResponse) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full || c.closed {
		return false
	}
	c.frames = append(c.frames, resp)
	return true
}

func (c *recordingConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *recordingConn) events(event domain.Event) []domain.WSResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.WSResponse
	for _, f := range c.frames {
		if f.Action == string(event) {
			out = append(out, f)
		}
	}
	return out
}

func (c *recordingConn) actions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.frames))
	for _, f := range c.frames {
		out = append(out, f.Action)
	}
	return out
}

func (c *recordingConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
