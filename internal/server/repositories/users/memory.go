package users

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/google/uuid"
)

// MemoryRepository keeps users in process memory. Every mutator runs under
// one mutex, which gives the same per-user atomicity as the SQL updates.
type MemoryRepository struct {
	mu      sync.Mutex
	byID    map[string]*models.User
	byEmail map[string]string
	now     func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[string]*models.User),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

func (r *MemoryRepository) Create(_ context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := models.NormalizeEmail(user.Email)
	if _, ok := r.byEmail[email]; ok {
		return nil, common.ErrorAlreadyExists
	}

	now := r.now()
	stored := *user
	stored.ID = uuid.NewString()
	stored.Email = email
	stored.IsActive = true
	stored.IsLocked = false
	stored.LockUntil = nil
	stored.LoginAttempts = 0
	stored.CreatedAt = now
	stored.UpdatedAt = now

	r.byID[stored.ID] = &stored
	r.byEmail[email] = stored.ID

	out := stored
	return &out, nil
}

func (r *MemoryRepository) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byEmail[models.NormalizeEmail(email)]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return copyUser(r.byID[id]), nil
}

func (r *MemoryRepository) GetUserByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return copyUser(u), nil
}

func (r *MemoryRepository) Update(_ context.Context, id string, upd models.UserUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	if upd.IsEmpty() {
		return nil
	}

	if upd.Email != nil {
		email := models.NormalizeEmail(*upd.Email)
		if owner, taken := r.byEmail[email]; taken && owner != id {
			return common.ErrorAlreadyExists
		}
		delete(r.byEmail, u.Email)
		r.byEmail[email] = id
		upd.Email = &email
	}

	u.Apply(upd)
	u.UpdatedAt = r.now()
	return nil
}

func (r *MemoryRepository) RecordFailedLogin(_ context.Context, id string, threshold int, lockUntil time.Time) (models.LoginFailure, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return models.LoginFailure{}, common.ErrorNotFound
	}
	if u.IsLocked {
		return models.LoginFailure{}, common.ErrorAlreadyLocked
	}

	u.UpdatedAt = r.now()
	if u.LoginAttempts+1 >= threshold {
		until := lockUntil
		u.IsLocked = true
		u.LockUntil = &until
		u.LoginAttempts = 0
		return models.LoginFailure{Locked: true, LockUntil: &until}, nil
	}

	u.LoginAttempts++
	return models.LoginFailure{Attempts: u.LoginAttempts}, nil
}

func (r *MemoryRepository) ResetLoginAttempts(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.LoginAttempts = 0
	u.UpdatedAt = r.now()
	return nil
}

func (r *MemoryRepository) Unlock(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.IsLocked = false
	u.LockUntil = nil
	u.LoginAttempts = 0
	u.UpdatedAt = r.now()
	return nil
}

func copyUser(u *models.User) *models.User {
	out := *u
	if u.LockUntil != nil {
		t := *u.LockUntil
		out.LockUntil = &t
	}
	if u.LastLoginAt != nil {
		t := *u.LastLoginAt
		out.LastLoginAt = &t
	}
	return &out
}
