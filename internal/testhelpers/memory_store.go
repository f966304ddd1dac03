// Package testhelpers provides in-memory implementations of the repository
// interfaces for unit tests. Each Store method holds a single mutex, so the
// conditional updates behave atomically like their SQL counterparts.
package testhelpers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/roll-social-network/roll-social-network/internal/models"
	"github.com/roll-social-network/roll-social-network/internal/repositories"
	"github.com/roll-social-network/roll-social-network/internal/utils"
)

// ErrInjected is what a Store returns once FailNext has been armed.
var ErrInjected = errors.New("injected store failure")

type rateCounter struct {
	count     int
	expiresAt time.Time
}

// Store backs every repository interface with maps.
type Store struct {
	mu sync.Mutex

	users      map[uuid.UUID]*models.User
	byPhone    map[string]uuid.UUID
	codes      map[uuid.UUID]*models.VerificationCode
	codeOrder  []uuid.UUID
	secrets    map[uuid.UUID]*models.OTPSecret // keyed by user ID
	sites      map[int]*models.Site
	rateLimits map[string]*rateCounter
	failNext   bool

	// Now drives created_at stamps and rate limit windows.
	Now func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:      map[uuid.UUID]*models.User{},
		byPhone:    map[string]uuid.UUID{},
		codes:      map[uuid.UUID]*models.VerificationCode{},
		secrets:    map[uuid.UUID]*models.OTPSecret{},
		sites:      map[int]*models.Site{},
		rateLimits: map[string]*rateCounter{},
		Now:        time.Now,
	}
}

// FailNext makes the next store call return ErrInjected.
func (s *Store) FailNext() {
	s.mu.Lock()
	s.failNext = true
	s.mu.Unlock()
}

// takeFailure consumes an armed failure. Callers hold mu.
func (s *Store) takeFailure() error {
	if s.failNext {
		s.failNext = false
		return ErrInjected
	}
	return nil
}

func (s *Store) Users() repositories.UserRepository { return userStore{s} }
func (s *Store) Codes() repositories.VerificationCodeRepository { return codeStore{s} }
func (s *Store) OTPSecrets() repositories.OTPSecretRepository { return secretStore{s} }
func (s *Store) Sites() repositories.SiteRepository { return siteStore{s} }
func (s *Store) RateLimits() repositories.RateLimitRepository { return rateLimitStore{s} }

// AddSite seeds a tenant.
func (s *Store) AddSite(site models.Site) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sites[site.ID] = &site
}

// SetUserActive flips the is_active flag of a stored user.
func (s *Store) SetUserActive(id uuid.UUID, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		u.IsActive = active
	}
}

// UpdateCode overwrites a stored code (e.g. to age it or exhaust it).
func (s *Store) UpdateCode(rec models.VerificationCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.codes[rec.ID]; ok {
		s.codes[rec.ID] = &rec
	}
}

// UserCount is the number of stored users.
func (s *Store) UserCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// ----------------------------------------------------------------------
// users
// ----------------------------------------------------------------------

type userStore struct{ s *Store }

func (r userStore) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFailure(); err != nil {
		return nil, err
	}
	if u, ok := r.s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (r userStore) GetByPhoneNumber(_ context.Context, phoneNumber string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFailure(); err != nil {
		return nil, err
	}
	if id, ok := r.s.byPhone[phoneNumber]; ok {
		cp := *r.s.users[id]
		return &cp, nil
	}
	return nil, nil
}

func (r userStore) GetOrCreate(_ context.Context, phoneNumber string) (*models.User, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFailure(); err != nil {
		return nil, false, err
	}
	if id, ok := r.s.byPhone[phoneNumber]; ok {
		cp := *r.s.users[id]
		return &cp, false, nil
	}
	u := &models.User{ID: uuid.New(), PhoneNumber: phoneNumber, IsActive: true, CreatedAt: r.s.Now()}
	r.s.users[u.ID] = u
	r.s.byPhone[phoneNumber] = u.ID
	cp := *u
	return &cp, true, nil
}

// ----------------------------------------------------------------------
// verification codes
// ----------------------------------------------------------------------

type codeStore struct{ s *Store }

func (r codeStore) withPhone(rec *models.VerificationCode) *models.VerificationCode {
	cp := *rec
	if u, ok := r.s.users[rec.UserID]; ok {
		cp.PhoneNumber = u.PhoneNumber
	}
	return &cp
}

func (r codeStore) Create(_ context.Context, rec *models.VerificationCode) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFailure(); err != nil {
		return err
	}
	if _, ok := r.s.users[rec.UserID]; !ok {
		return fmt.Errorf("verification code references unknown user %s", rec.UserID)
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.CreatedAt = r.s.Now()
	cp := *rec
	r.s.codes[rec.ID] = &cp
	r.s.codeOrder = append(r.s.codeOrder, rec.ID)
	return nil
}

func (r codeStore) GetByID(_ context.Context, id uuid.UUID) (*models.VerificationCode, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFailure(); err != nil {
		return nil, err
	}
	if rec, ok := r.s.codes[id]; ok {
		return r.withPhone(rec), nil
	}
	return nil, nil
}

func (r codeStore) FindLive(_ context.Context, userID uuid.UUID, code string, now time.Time) (*models.VerificationCode, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFailure(); err != nil {
		return nil, err
	}
	for i := len(r.s.codeOrder) - 1; i >= 0; i-- {
		rec := r.s.codes[r.s.codeOrder[i]]
		if rec.UserID == userID && rec.Code == code && rec.IsLive(now) {
			return r.withPhone(rec), nil
		}
	}
	return nil, nil
}

func (r codeStore) DecrementLiveAttempts(_ context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFailure(); err != nil {
		return 0, err
	}
	var n int64
	for _, rec := range r.s.codes {
		if rec.UserID == userID && rec.IsLive(now) {
			rec.Attempts--
			n++
		}
	}
	return n, nil
}

func (r codeStore) ListByUser(_ context.Context, userID uuid.UUID) ([]*models.VerificationCode, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFailure(); err != nil {
		return nil, err
	}
	var out []*models.VerificationCode
	for _, id := range r.s.codeOrder {
		if rec := r.s.codes[id]; rec.UserID == userID {
			out = append(out, r.withPhone(rec))
		}
	}
	return out, nil
}

// ----------------------------------------------------------------------
// otp secrets
// ----------------------------------------------------------------------

type secretStore struct{ s *Store }

func (r secretStore) Create(_ context.Context, secret *models.OTPSecret) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFailure(); err != nil {
		return err
	}
	if _, exists := r.s.secrets[secret.UserID]; exists {
		return fmt.Errorf("%w: user %s", repositories.ErrOTPSecretExists, secret.UserID)
	}
	if secret.ID == uuid.Nil {
		secret.ID = uuid.New()
	}
	secret.CreatedAt = r.s.Now()
	cp := *secret
	r.s.secrets[secret.UserID] = &cp
	return nil
}

func (r secretStore) GetByUserID(_ context.Context, userID uuid.UUID) (*models.OTPSecret, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFailure(); err != nil {
		return nil, err
	}
	if s, ok := r.s.secrets[userID]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (r secretStore) MarkValid(_ context.Context, id uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFailure(); err != nil {
		return err
	}
	for _, s := range r.s.secrets {
		if s.ID == id {
			stamp := at
			s.ValidAt = &stamp
			return nil
		}
	}
	return utils.ErrNoRowsUpdated
}

func (r secretStore) HasValidByPhoneNumber(_ context.Context, phoneNumber string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFailure(); err != nil {
		return false, err
	}
	id, ok := r.s.byPhone[phoneNumber]
	if !ok {
		return false, nil
	}
	s, ok := r.s.secrets[id]
	return ok && s.ValidAt != nil, nil
}

// ----------------------------------------------------------------------
// sites
// ----------------------------------------------------------------------

type siteStore struct{ s *Store }

func (r siteStore) GetByID(_ context.Context, id int) (*models.Site, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFailure(); err != nil {
		return nil, err
	}
	if site, ok := r.s.sites[id]; ok {
		cp := *site
		return &cp, nil
	}
	return nil, nil
}

// ----------------------------------------------------------------------
// rate limits
// ----------------------------------------------------------------------

type rateLimitStore struct{ s *Store }

func (r rateLimitStore) IncrementAndCheck(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFailure(); err != nil {
		return false, err
	}
	now := r.s.Now()
	c, ok := r.s.rateLimits[key]
	if !ok || c.expiresAt.Before(now) {
		c = &rateCounter{expiresAt: now.Add(window)}
		r.s.rateLimits[key] = c
	}
	c.count++
	return c.count <= limit, nil
}

func (r rateLimitStore) CleanupExpired(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFailure(); err != nil {
		return 0, err
	}
	now := r.s.Now()
	var n int64
	for k, c := range r.s.rateLimits {
		if c.expiresAt.Before(now) {
			delete(r.s.rateLimits, k)
			n++
		}
	}
	return n, nil
}

// RateLimitKeys lists the live counter keys, sorted.
func (s *Store) RateLimitKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.rateLimits))
	for k := range s.rateLimits {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
