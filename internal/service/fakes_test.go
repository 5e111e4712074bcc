package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/fxrumble/identity-service/internal/domain"
	"github.com/fxrumble/identity-service/internal/mailer"
	"github.com/fxrumble/identity-service/internal/repository"
	"github.com/fxrumble/identity-service/internal/utils"
)

const testJWTSecret = "test-secret-key-that-is-at-least-32-characters-long"

// fakeUserRepo is an in-memory UserRepository. All operations hold a single
// mutex, so the consume methods are atomic the same way the SQL conditional
// updates are.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User

	// createHook runs once inside the next Create call, before any state
	// change. Used to simulate losing a creation race.
	createHook func()
	createErr  error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	return &c
}

func (f *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	// The hook runs unlocked so it can plant state through the normal repo
	// methods, simulating a concurrent winner.
	if f.createHook != nil {
		hook := f.createHook
		f.createHook = nil
		hook()
	}
	if f.createErr != nil {
		err := f.createErr
		f.createErr = nil
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if user.Email != "" {
		for _, u := range f.users {
			if u.Email == user.Email {
				return repository.ErrDuplicateEmail
			}
		}
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}

	f.users[user.ID] = cloneUser(user)
	return nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if u, ok := f.users[id]; ok {
		return cloneUser(u), nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored, ok := f.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Email = user.Email
	stored.FirstName = user.FirstName
	stored.LastName = user.LastName
	stored.AboutMe = user.AboutMe
	stored.UpdatedAt = time.Now()
	return nil
}

func (f *fakeUserRepo) UpdatePhoto(_ context.Context, userID, photoID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored, ok := f.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.PhotoID = &photoID
	stored.UpdatedAt = time.Now()
	return nil
}

func (f *fakeUserRepo) SetResetToken(_ context.Context, email, token string, expires time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.Email == email {
			u.ResetPasswordToken = &token
			u.ResetPasswordExpires = &expires
			u.UpdatedAt = time.Now()
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeUserRepo) ConsumeVerificationToken(_ context.Context, token string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.VerificationToken != nil && *u.VerificationToken == token {
			u.IsVerified = true
			u.VerificationToken = nil
			u.UpdatedAt = time.Now()
			return cloneUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserRepo) ConsumeResetToken(_ context.Context, token, passwordHash string, now time.Time) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.ResetPasswordToken != nil && *u.ResetPasswordToken == token &&
			u.ResetPasswordExpires != nil && u.ResetPasswordExpires.After(now) {
			u.PasswordHash = passwordHash
			u.ResetPasswordToken = nil
			u.ResetPasswordExpires = nil
			u.UpdatedAt = time.Now()
			return cloneUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users)
}

// fakeLinkRepo is an in-memory ProviderLinkRepository
type fakeLinkRepo struct {
	mu    sync.Mutex
	links []*domain.ProviderLink

	createHook func()
	createErr  error
}

func newFakeLinkRepo() *fakeLinkRepo {
	return &fakeLinkRepo{}
}

func (f *fakeLinkRepo) Create(_ context.Context, link *domain.ProviderLink) error {
	if f.createHook != nil {
		hook := f.createHook
		f.createHook = nil
		hook()
	}
	if f.createErr != nil {
		err := f.createErr
		f.createErr = nil
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, l := range f.links {
		if l.Provider == link.Provider && l.ProviderID == link.ProviderID {
			return repository.ErrDuplicateProviderLink
		}
	}

	if link.ID == "" {
		link.ID = uuid.New().String()
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now()
	}

	stored := *link
	f.links = append(f.links, &stored)
	return nil
}

func (f *fakeLinkRepo) GetByProvider(_ context.Context, provider domain.Provider, providerID string) (*domain.ProviderLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, l := range f.links {
		if l.Provider == provider && l.ProviderID == providerID {
			stored := *l
			return &stored, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeLinkRepo) GetByUserID(_ context.Context, userID string) ([]*domain.ProviderLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*domain.ProviderLink
	for _, l := range f.links {
		if l.UserID == userID {
			stored := *l
			out = append(out, &stored)
		}
	}
	return out, nil
}

func (f *fakeLinkRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.links)
}

// insert bypasses the duplicate check; used by race hooks to plant the
// winner's state.
func (f *fakeLinkRepo) insert(link *domain.ProviderLink) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if link.ID == "" {
		link.ID = uuid.New().String()
	}
	stored := *link
	f.links = append(f.links, &stored)
}

type sentMail struct {
	kind string
	to   string
	link string
}

// fakeMailer records sends; safe for the fire-and-forget goroutines
type fakeMailer struct {
	mu   sync.Mutex
	mail []sentMail
}

var _ mailer.Mailer = (*fakeMailer)(nil)

func (m *fakeMailer) SendVerificationEmail(_ context.Context, to, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mail = append(m.mail, sentMail{kind: "verification", to: to, link: link})
	return nil
}

func (m *fakeMailer) SendPasswordResetEmail(_ context.Context, to, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mail = append(m.mail, sentMail{kind: "reset", to: to, link: link})
	return nil
}

func (m *fakeMailer) sent() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sentMail, len(m.mail))
	copy(out, m.mail)
	return out
}

type testEnv struct {
	svc    AuthService
	users  *fakeUserRepo
	links  *fakeLinkRepo
	mail   *fakeMailer
	linker *IdentityLinker
}

func newTestEnv() *testEnv {
	users := newFakeUserRepo()
	links := newFakeLinkRepo()
	mail := &fakeMailer{}
	logger := zap.NewNop()

	linker := NewIdentityLinker(users, links, bcrypt.MinCost, logger)
	jwtManager := utils.NewJWTManager(testJWTSecret, time.Hour)

	svc := NewAuthService(users, linker, jwtManager, mail, logger, bcrypt.MinCost, Links{
		APIBaseURL:  "http://localhost:8080",
		FrontendURL: "http://localhost:3000",
	})

	return &testEnv{svc: svc, users: users, links: links, mail: mail, linker: linker}
}
