package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/password"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testEmail    = "a@x.com"
	testPassword = "Abcdef12"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// countingPolicy is the real policy at bcrypt.MinCost that also counts the
// expensive calls.
type countingPolicy struct {
	*password.Policy
	hashes  atomic.Int32
	dummies atomic.Int32
}

func newCountingPolicy() *countingPolicy {
	return &countingPolicy{Policy: password.New(8, 20, bcrypt.MinCost)}
}

func (p *countingPolicy) Hash(pw string) (string, error) {
	p.hashes.Add(1)
	return p.Policy.Hash(pw)
}

func (p *countingPolicy) VerifyDummy(pw string) {
	p.dummies.Add(1)
	p.Policy.VerifyDummy(pw)
}

type resetCall struct {
	email     string
	token     string
	expiresAt time.Time
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []resetCall
	err   error
}

func (n *recordingNotifier) NotifyPasswordReset(_ context.Context, email, token string, expiresAt time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, resetCall{email: email, token: token, expiresAt: expiresAt})
	return n.err
}

func (n *recordingNotifier) last(t *testing.T) resetCall {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.calls)
	return n.calls[len(n.calls)-1]
}

// stubManager serves a fixed set of repositories, which lets a test put a
// failing repository in front of the services.
type stubManager struct {
	repos repomanager.Repositories
}

func (m *stubManager) RunMigrations(context.Context) error             { return nil }
func (m *stubManager) Repositories() repomanager.Repositories          { return m.repos }
func (m *stubManager) Close() error                                    { return nil }
func (m *stubManager) WithTx(ctx context.Context, fn repomanager.TxFunc) error { return fn(ctx, m.repos) }

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:                    "test-secret",
		AccessTokenValidityDuration:  15 * time.Minute,
		RefreshTokenValidityDuration: 7 * 24 * time.Hour,
		ResetTokenValidityDuration:   time.Hour,
		HashCost:                     10,
		MinPasswordLength:            8,
		MaxPasswordLength:            20,
		MaxLoginAttempts:             5,
		LockDuration:                 30 * time.Minute,
	}
}

type fixture struct {
	rm       repomanager.RepositoryManager
	auth     *AuthService
	users    *UserService
	clock    *fakeClock
	policy   *countingPolicy
	notifier *recordingNotifier
}

func newFixture(t *testing.T, mutate ...func(*config.Config)) *fixture {
	t.Helper()
	return newFixtureWith(t, repomanager.NewMemoryRepositoryManager(), mutate...)
}

func newFixtureWith(t *testing.T, rm repomanager.RepositoryManager, mutate ...func(*config.Config)) *fixture {
	t.Helper()
	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}

	f := &fixture{
		rm:       rm,
		clock:    newFakeClock(),
		policy:   newCountingPolicy(),
		notifier: &recordingNotifier{},
	}
	opts := []Option{
		WithClock(f.clock.Now),
		WithPasswordPolicy(f.policy),
		WithResetNotifier(f.notifier),
	}
	f.auth = NewAuthService(rm, cfg, logging.Nop(), opts...)
	f.users = NewUserService(rm, cfg, logging.Nop(), opts...)
	return f
}

func (f *fixture) register(t *testing.T, email, pw string) AuthData {
	t.Helper()
	res, err := f.auth.Register(context.Background(), RegisterRequest{Email: email, Password: pw})
	require.NoError(t, err)
	require.Equal(t, CodeOK, res.Code, res.Message)
	return res.Data
}

func (f *fixture) login(t *testing.T, email, pw string) Result[AuthData] {
	t.Helper()
	res, err := f.auth.Login(context.Background(), LoginRequest{Email: email, Password: pw})
	require.NoError(t, err)
	return res
}
