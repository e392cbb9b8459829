package service

import (
	"context"
	"net/url"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/personality-predictor/backend/internal/model"
	"github.com/personality-predictor/backend/pkg/oauth"
)

// memUserStore mirrors the conditional-update semantics of the gorm
// repository in memory.
type memUserStore struct {
	mu     sync.Mutex
	users  map[uint]*model.User
	nextID uint
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[uint]*model.User), nextID: 1}
}

func clone(u *model.User) *model.User {
	c := *u
	return &c
}

func (m *memUserStore) GetByID(ctx context.Context, id uint) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return clone(u), nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memUserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return clone(u), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memUserStore) FindByEmailOrProvider(ctx context.Context, email, provider, providerID string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var byEmail *model.User
	for _, u := range m.users {
		if u.ProviderID(provider) == providerID {
			return clone(u), nil
		}
		if u.Email == email {
			byEmail = u
		}
	}
	if byEmail != nil {
		return clone(byEmail), nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memUserStore) Create(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	user.ID = m.nextID
	m.nextID++
	if user.TokenVersion == 0 {
		user.TokenVersion = 1
	}
	m.users[user.ID] = clone(user)
	return nil
}

func (m *memUserStore) LinkProvider(ctx context.Context, id uint, provider, providerID, picture string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.ProviderID(provider) != "" {
		return gorm.ErrRecordNotFound
	}
	pid := providerID
	switch provider {
	case "google":
		u.GoogleID = &pid
	case "facebook":
		u.FacebookID = &pid
	}
	if u.ProfilePic == "" {
		u.ProfilePic = picture
	}
	return nil
}

func (m *memUserStore) UpdateLastLogin(ctx context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		now := time.Now()
		u.LastLogin = &now
	}
	return nil
}

func (m *memUserStore) SetVerificationToken(ctx context.Context, id uint, tokenHash string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.VerificationToken, u.VerificationTokenExpires = &tokenHash, &expiresAt
	return nil
}

func (m *memUserStore) SetResetToken(ctx context.Context, id uint, tokenHash string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.ResetPasswordToken, u.ResetPasswordExpires = &tokenHash, &expiresAt
	return nil
}

func (m *memUserStore) ConsumeVerificationToken(ctx context.Context, email, tokenHash string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email && u.VerificationToken != nil && *u.VerificationToken == tokenHash &&
			u.VerificationTokenExpires != nil && u.VerificationTokenExpires.After(now) {
			u.IsVerified = true
			u.VerificationToken, u.VerificationTokenExpires = nil, nil
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *memUserStore) ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) (uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ResetPasswordToken != nil && *u.ResetPasswordToken == tokenHash &&
			u.ResetPasswordExpires != nil && u.ResetPasswordExpires.After(now) {
			u.Password = passwordHash
			u.ResetPasswordToken, u.ResetPasswordExpires = nil, nil
			u.TokenVersion++
			return u.ID, nil
		}
	}
	return 0, gorm.ErrRecordNotFound
}

type sentMail struct {
	kind  string
	to    string
	token string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeMailer) SendPasswordReset(ctx context.Context, to, rawToken string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{kind: "reset", to: to, token: rawToken})
	return nil
}

func (f *fakeMailer) SendVerification(ctx context.Context, to, name, rawToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{kind: "verify", to: to, token: rawToken})
	return nil
}

func (f *fakeMailer) last(kind string) (sentMail, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if f.sent[i].kind == kind {
			return f.sent[i], true
		}
	}
	return sentMail{}, false
}

type fakeProvider struct {
	name     string
	identity *oauth.Identity
	err      error
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) GetLoginURL(state string) string {
	return "https://provider.example/auth?" + url.Values{"state": {state}}.Encode()
}

func (p *fakeProvider) ExchangeCode(ctx context.Context, code string) (*oauth.Identity, error) {
	if p.err != nil {
		return nil, p.err
	}
	id := *p.identity
	id.Provider = p.name
	return &id, nil
}
