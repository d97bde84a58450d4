package auth

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"service-template/internal/config"
	domainUser "service-template/internal/domain/user"
	"service-template/internal/logger"
	"service-template/internal/token"
	"service-template/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	logger.Logger = zap.NewNop()
	zap.ReplaceGlobals(logger.Logger)
	os.Exit(m.Run())
}

// fakeClock is a settable clock shared by the service and its codec.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domainUser.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*domainUser.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, u *domainUser.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return domainUser.ErrUserAlreadyExists
		}
	}
	u.ID = uuid.New()
	copied := *u
	r.users[u.ID] = &copied
	return nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domainUser.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, domainUser.ErrUserNotFound
}

func (r *fakeUserRepo) GetByID(_ context.Context, userID uuid.UUID) (*domainUser.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, domainUser.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) GetAll(_ context.Context) ([]*domainUser.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	users := make([]*domainUser.User, 0, len(r.users))
	for _, u := range r.users {
		copied := *u
		users = append(users, &copied)
	}
	return users, nil
}

func (r *fakeUserRepo) UpdatePassword(_ context.Context, userID uuid.UUID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return domainUser.ErrUserNotFound
	}
	u.PasswordHashed = passwordHash
	return nil
}

func (r *fakeUserRepo) setActive(userID uuid.UUID, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok {
		u.IsActive = active
	}
}

type fakeRoleRepo struct {
	mu     sync.Mutex
	roles  map[uuid.UUID]*domainUser.Role
	direct map[uuid.UUID][]uuid.UUID
}

func newFakeRoleRepo() *fakeRoleRepo {
	return &fakeRoleRepo{
		roles:  make(map[uuid.UUID]*domainUser.Role),
		direct: make(map[uuid.UUID][]uuid.UUID),
	}
}

func (r *fakeRoleRepo) addRole(name string, parent *uuid.UUID) uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := uuid.New()
	r.roles[id] = &domainUser.Role{ID: id, Name: name, ParentRoleID: parent}
	return id
}

func (r *fakeRoleRepo) setParent(roleID uuid.UUID, parent uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roles[roleID].ParentRoleID = &parent
}

func (r *fakeRoleRepo) assign(userID uuid.UUID, roleIDs ...uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.direct[userID] = append(r.direct[userID], roleIDs...)
}

func (r *fakeRoleRepo) ListDirectRoles(_ context.Context, userID uuid.UUID) ([]*domainUser.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var roles []*domainUser.Role
	for _, id := range r.direct[userID] {
		copied := *r.roles[id]
		roles = append(roles, &copied)
	}
	return roles, nil
}

func (r *fakeRoleRepo) GetByID(_ context.Context, roleID uuid.UUID) (*domainUser.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.roles[roleID]
	if !ok {
		return nil, domainUser.ErrRoleNotFound
	}
	copied := *role
	return &copied, nil
}

// fakeResetRepo backs reset tokens with an in-memory map. Consume is a
// mutex-guarded compare-and-set mirroring the conditional UPDATE the real
// repository issues. With serveStale set, GetByToken reports the token as
// unused even after consumption, reproducing two requests that both read the
// row before either writes.
type fakeResetRepo struct {
	mu         sync.Mutex
	tokens     map[uuid.UUID]*domainUser.PasswordResetToken
	users      *fakeUserRepo
	serveStale bool
}

func newFakeResetRepo(users *fakeUserRepo) *fakeResetRepo {
	return &fakeResetRepo{
		tokens: make(map[uuid.UUID]*domainUser.PasswordResetToken),
		users:  users,
	}
}

func (r *fakeResetRepo) Create(_ context.Context, t *domainUser.PasswordResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.ID = uuid.New()
	copied := *t
	r.tokens[t.ID] = &copied
	return nil
}

func (r *fakeResetRepo) GetByToken(_ context.Context, raw string) (*domainUser.PasswordResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.Token == raw {
			copied := *t
			if r.serveStale {
				copied.Used = false
			}
			return &copied, nil
		}
	}
	return nil, domainUser.ErrResetTokenNotFound
}

func (r *fakeResetRepo) Consume(ctx context.Context, tokenID uuid.UUID, userID uuid.UUID, passwordHash string) error {
	r.mu.Lock()
	t, ok := r.tokens[tokenID]
	if !ok {
		r.mu.Unlock()
		return domainUser.ErrResetTokenNotFound
	}
	if t.Used {
		r.mu.Unlock()
		return domainUser.ErrResetTokenConsumed
	}
	t.Used = true
	r.mu.Unlock()

	return r.users.UpdatePassword(ctx, userID, passwordHash)
}

func (r *fakeResetRepo) DeactivateExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, t := range r.tokens {
		if t.Active && !now.Before(t.ExpiresAt) {
			t.Active = false
			count++
		}
	}
	return count, nil
}

func (r *fakeResetRepo) lastToken() *domainUser.PasswordResetToken {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *domainUser.PasswordResetToken
	for _, t := range r.tokens {
		if latest == nil || t.CreatedAt.After(latest.CreatedAt) {
			latest = t
		}
	}
	if latest == nil {
		return nil
	}
	copied := *latest
	return &copied
}

func (r *fakeResetRepo) setActive(tokenID uuid.UUID, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tokens[tokenID]; ok {
		t.Active = active
	}
}

type testEnv struct {
	service *Service
	clock   *fakeClock
	users   *fakeUserRepo
	roles   *fakeRoleRepo
	resets  *fakeResetRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	users := newFakeUserRepo()
	roles := newFakeRoleRepo()
	resets := newFakeResetRepo(users)

	cfg := &config.Config{
		Server: config.ServerConfig{EnableRegistration: true},
		JWT: config.JWTConfig{
			Secret:           "test-secret",
			AccessTTLMinutes: 15,
			RefreshTTLDays:   7,
		},
		Reset: config.ResetConfig{WindowMinutes: 60},
	}

	codec := token.NewCodecWithClock([]byte(cfg.JWT.Secret), clock.Now)
	service := NewService(users, roles, resets, codec, cfg)
	service.now = clock.Now

	return &testEnv{
		service: service,
		clock:   clock,
		users:   users,
		roles:   roles,
		resets:  resets,
	}
}

func (e *testEnv) mustCreateUser(t *testing.T, email, password string) *domainUser.User {
	t.Helper()

	hash, err := utils.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	u := &domainUser.User{
		Email:          email,
		PasswordHashed: hash,
		IsActive:       true,
		CreatedAt:      e.clock.Now(),
		UpdatedAt:      e.clock.Now(),
	}
	if err := e.users.Create(context.Background(), u); err != nil {
		t.Fatalf("Create user: %v", err)
	}
	return u
}
