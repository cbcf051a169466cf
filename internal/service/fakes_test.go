package service

import (
	"context"
	"sync"
	"time"

	"github.com/manutd22/newlife/internal/domain"
)

// memStore is an in-memory stand-in for the repository layer. It mirrors the
// store contracts exactly, including the duplicate-key behavior the services
// rely on, and serializes everything behind one mutex so the concurrency
// tests exercise the services' semantics rather than map races.
type memStore struct {
	mu          sync.Mutex
	users       map[int64]*domain.User
	codes       map[string]*domain.ReferralCode
	edges       map[int64]*domain.ReferralEdge
	pending     map[string]pendingToken
	quests      map[int64]*domain.Quest
	completions map[completionKey]*domain.QuestCompletion
	entries     map[string]*domain.LedgerEntry

	created int // users created by Upsert
}

type pendingToken struct {
	token    string
	storedAt time.Time
}

type completionKey struct {
	userID  int64
	questID int64
}

func newMemStore() *memStore {
	return &memStore{
		users:       make(map[int64]*domain.User),
		codes:       make(map[string]*domain.ReferralCode),
		edges:       make(map[int64]*domain.ReferralEdge),
		pending:     make(map[string]pendingToken),
		quests:      make(map[int64]*domain.Quest),
		completions: make(map[completionKey]*domain.QuestCompletion),
		entries:     make(map[string]*domain.LedgerEntry),
	}
}

func (m *memStore) addUser(id int64, name string) *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &domain.User{ID: id, FirstName: name, CreatedAt: time.Now()}
	m.users[id] = u
	return u
}

func (m *memStore) addQuest(q domain.Quest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quests[q.ID] = &q
}

// UserStore

func (m *memStore) Upsert(ctx context.Context, id *domain.VerifiedIdentity) (*domain.User, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id.UserID]; ok {
		u.FirstName = id.FirstName
		u.LastName = id.LastName
		u.Username = id.Username
		u.UpdatedAt = time.Now()
		copied := *u
		return &copied, false, nil
	}
	u := &domain.User{
		ID:        id.UserID,
		FirstName: id.FirstName,
		LastName:  id.LastName,
		Username:  id.Username,
		CreatedAt: time.Now(),
	}
	m.users[id.UserID] = u
	m.created++
	copied := *u
	return &copied, true, nil
}

func (m *memStore) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *memStore) SetWallet(ctx context.Context, id int64, address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.WalletAddress = &address
	return nil
}

func (m *memStore) Leaderboard(ctx context.Context, limit int) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var users []domain.User
	for _, u := range m.users {
		users = append(users, *u)
	}
	for i := 0; i < len(users); i++ {
		for j := i + 1; j < len(users); j++ {
			if users[j].Balance > users[i].Balance {
				users[i], users[j] = users[j], users[i]
			}
		}
	}
	if len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

// CodeStore

func (m *memStore) Get(ctx context.Context, code string) (*domain.ReferralCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.codes[code]
	if !ok {
		return nil, domain.ErrCodeNotFound
	}
	copied := *c
	return &copied, nil
}

func (m *memStore) GetActive(ctx context.Context, ownerID int64) (*domain.ReferralCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.codes {
		if c.OwnerID == ownerID && c.Active {
			copied := *c
			return &copied, nil
		}
	}
	return nil, nil
}

// Issue mirrors the one-active-per-owner constraint: when an active code
// already exists, the caller lost the race and gets that code back.
func (m *memStore) Issue(ctx context.Context, ownerID int64, code string) (*domain.ReferralCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.codes {
		if c.OwnerID == ownerID && c.Active {
			copied := *c
			return &copied, nil
		}
	}
	c := &domain.ReferralCode{Code: code, OwnerID: ownerID, Active: true, CreatedAt: time.Now()}
	m.codes[code] = c
	copied := *c
	return &copied, nil
}

func (m *memStore) Rotate(ctx context.Context, ownerID int64, code string) (*domain.ReferralCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.codes {
		if c.OwnerID == ownerID && c.Active {
			c.Active = false
		}
	}
	c := &domain.ReferralCode{Code: code, OwnerID: ownerID, Active: true, CreatedAt: time.Now()}
	m.codes[code] = c
	copied := *c
	return &copied, nil
}

func (m *memStore) Revoke(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.codes[code]
	if !ok || c.RevokedAt != nil {
		return domain.ErrCodeNotFound
	}
	now := time.Now()
	c.RevokedAt = &now
	c.Active = false
	return nil
}

// EdgeStore

func (m *memStore) CreateEdge(ctx context.Context, referrerID, refereeID int64) (*domain.ReferralEdge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.edges[refereeID]; ok {
		return nil, domain.ErrDuplicateEdge
	}
	e := &domain.ReferralEdge{RefereeID: refereeID, ReferrerID: referrerID, CreatedAt: time.Now()}
	m.edges[refereeID] = e
	copied := *e
	return &copied, nil
}

func (m *memStore) GetEdge(ctx context.Context, refereeID int64) (*domain.ReferralEdge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.edges[refereeID]
	if !ok {
		return nil, nil
	}
	copied := *e
	return &copied, nil
}

func (m *memStore) CountByReferrer(ctx context.Context, referrerID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.edges {
		if e.ReferrerID == referrerID {
			n++
		}
	}
	return n, nil
}

func (m *memStore) ListReferees(ctx context.Context, referrerID int64) ([]domain.Friend, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var friends []domain.Friend
	for _, e := range m.edges {
		if e.ReferrerID != referrerID {
			continue
		}
		f := domain.Friend{UserID: e.RefereeID, InvitedAt: e.CreatedAt}
		if u, ok := m.users[e.RefereeID]; ok {
			f.FirstName = u.FirstName
			f.Username = u.Username
		}
		friends = append(friends, f)
	}
	return friends, nil
}

// PendingStore. Wrapped in its own type because its Get signature collides
// with CodeStore's.

type fakePending struct {
	m *memStore
}

func (f *fakePending) Put(ctx context.Context, deviceID, token string) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	f.m.pending[deviceID] = pendingToken{token: token, storedAt: time.Now()}
	return nil
}

func (f *fakePending) Get(ctx context.Context, deviceID string) (string, time.Time, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	p, ok := f.m.pending[deviceID]
	if !ok {
		return "", time.Time{}, nil
	}
	return p.token, p.storedAt, nil
}

func (f *fakePending) Clear(ctx context.Context, deviceID string) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	delete(f.m.pending, deviceID)
	return nil
}

// QuestStore. Wrapped for the same reason: GetByID collides with UserStore's.

type fakeQuests struct {
	m *memStore
}

func (f *fakeQuests) GetByID(ctx context.Context, id int64) (*domain.Quest, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	q, ok := f.m.quests[id]
	if !ok {
		return nil, domain.ErrQuestNotFound
	}
	copied := *q
	return &copied, nil
}

func (f *fakeQuests) ListIncomplete(ctx context.Context, userID int64) ([]domain.Quest, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	var quests []domain.Quest
	for _, q := range f.m.quests {
		if !q.Enabled {
			continue
		}
		if _, done := f.m.completions[completionKey{userID, q.ID}]; done {
			continue
		}
		quests = append(quests, *q)
	}
	return quests, nil
}

func (f *fakeQuests) HasCompletion(ctx context.Context, userID, questID int64) (bool, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	_, ok := f.m.completions[completionKey{userID, questID}]
	return ok, nil
}

func (f *fakeQuests) CreateCompletion(ctx context.Context, userID, questID int64) (*domain.QuestCompletion, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	key := completionKey{userID, questID}
	if _, ok := f.m.completions[key]; ok {
		return nil, domain.ErrAlreadyCompleted
	}
	c := &domain.QuestCompletion{UserID: userID, QuestID: questID, CompletedAt: time.Now()}
	f.m.completions[key] = c
	copied := *c
	return &copied, nil
}

// LedgerStore

func (m *memStore) Apply(ctx context.Context, e *domain.LedgerEntry) (*domain.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.entries[e.SourceEventID]; ok {
		copied := *existing
		return &copied, domain.ErrDuplicateEvent
	}
	u, ok := m.users[e.UserID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if u.Balance+e.Amount < 0 {
		return nil, domain.ErrNegativeBalance
	}
	u.Balance += e.Amount
	applied := *e
	applied.AppliedAt = time.Now()
	m.entries[e.SourceEventID] = &applied
	copied := applied
	return &copied, nil
}

func (m *memStore) Balance(ctx context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return 0, domain.ErrUserNotFound
	}
	return u.Balance, nil
}

func (m *memStore) ListByUser(ctx context.Context, userID int64) ([]domain.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var entries []domain.LedgerEntry
	for _, e := range m.entries {
		if e.UserID == userID {
			entries = append(entries, *e)
		}
	}
	return entries, nil
}
