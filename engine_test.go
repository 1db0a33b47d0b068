package authcore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// memoryRepository is an in-memory UserRepository with the same
// compare-and-set contract as the real adapters. conflictInjections
// makes the next n updates fail with ErrVersionConflict to exercise the
// engine's retry loop.
type memoryRepository struct {
	mu                 sync.Mutex
	byIdentity         map[string]*Account
	idToIdentity       map[string]string
	conflictInjections int
	updates            int
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		byIdentity:   make(map[string]*Account),
		idToIdentity: make(map[string]string),
	}
}

func (r *memoryRepository) FindByIdentity(_ context.Context, identity string) (*Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	acct, ok := r.byIdentity[identity]
	if !ok {
		return nil, ErrUserNotFound
	}
	return acct.Clone(), nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (*Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity, ok := r.idToIdentity[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return r.byIdentity[identity].Clone(), nil
}

func (r *memoryRepository) Create(_ context.Context, account *Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byIdentity[account.Identity]; ok {
		return ErrAccountExists
	}
	account.Version = 1
	r.byIdentity[account.Identity] = account.Clone()
	r.idToIdentity[account.ID] = account.Identity
	return nil
}

func (r *memoryRepository) Update(_ context.Context, account *Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byIdentity[account.Identity]
	if !ok {
		return ErrUserNotFound
	}
	if r.conflictInjections > 0 {
		r.conflictInjections--
		return ErrVersionConflict
	}
	if stored.Version != account.Version {
		return ErrVersionConflict
	}

	account.Version++
	r.byIdentity[account.Identity] = account.Clone()
	r.updates++
	return nil
}

func (r *memoryRepository) get(t *testing.T, identity string) *Account {
	t.Helper()

	r.mu.Lock()
	defer r.mu.Unlock()

	acct, ok := r.byIdentity[identity]
	if !ok {
		t.Fatalf("account %q not in repository", identity)
	}
	return acct.Clone()
}

// recorderDispatcher records every dispatched notification and can be
// told to fail the next sends.
type recorderDispatcher struct {
	mu       sync.Mutex
	sent     []Notification
	failNext int
}

func (d *recorderDispatcher) Send(_ context.Context, msg Notification) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.failNext > 0 {
		d.failNext--
		return errors.New("smtp unavailable")
	}
	d.sent = append(d.sent, msg)
	return nil
}

func (d *recorderDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sent)
}

func (d *recorderDispatcher) last(t *testing.T) Notification {
	t.Helper()

	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.sent) == 0 {
		t.Fatal("no notifications dispatched")
	}
	return d.sent[len(d.sent)-1]
}

// testClock is a settable time source.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, time.March, 10, 9, 30, 0, 0, time.Local)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *testClock) Set(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = at
}

func lifecycleTestConfig() Config {
	cfg := defaultConfig()
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.KeyLength = 16
	return cfg
}

func newLifecycleEngine(t *testing.T, mutate func(cfg *Config)) (*Engine, *memoryRepository, *recorderDispatcher, *testClock) {
	t.Helper()

	cfg := lifecycleTestConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	repo := newMemoryRepository()
	dispatcher := &recorderDispatcher{}
	clock := newTestClock()

	engine, err := New().
		WithConfig(cfg).
		WithUserRepository(repo).
		WithDispatcher(dispatcher).
		WithClock(clock.Now).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	return engine, repo, dispatcher, clock
}

func registerTestAccount(t *testing.T, engine *Engine, repo *memoryRepository, identity string) *Account {
	t.Helper()

	if _, err := engine.Register(context.Background(), identity, "Test User", "correct-password-123"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return repo.get(t, identity)
}

func verifyTestAccount(t *testing.T, engine *Engine, repo *memoryRepository, identity string) {
	t.Helper()

	acct := repo.get(t, identity)
	if acct.EmailVerificationCode == nil {
		t.Fatal("no verification code outstanding")
	}
	if err := engine.VerifyEmail(context.Background(), identity, *acct.EmailVerificationCode); err != nil {
		t.Fatalf("VerifyEmail failed: %v", err)
	}
}
