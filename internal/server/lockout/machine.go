// Package lockout implements the per-user login lockout state machine.
//
// A user is either Active or Locked. Failed verifications while Active
// increment a stored counter; the failure that reaches the threshold locks
// the account until now+lock duration. A locked account rejects attempts up
// to and including its lockUntil instant and is unlocked by the first
// attempt strictly after it. There is no background scheduler: all state
// lives on the user record and changes only through Store.
package lockout

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

type State string

const (
	StateActive State = "active"
	StateLocked State = "locked"
)

// StateOf reports the stored state of u without regard to the clock.
func StateOf(u *models.User) State {
	if u.IsLocked {
		return StateLocked
	}
	return StateActive
}

// Store holds the counters. RecordFailedLogin must increment and lock in
// one atomic step.
type Store interface {
	RecordFailedLogin(ctx context.Context, id string, threshold int, lockUntil time.Time) (models.LoginFailure, error)
	ResetLoginAttempts(ctx context.Context, id string) error
	Unlock(ctx context.Context, id string) error
}

type Machine struct {
	store        Store
	maxAttempts  int
	lockDuration time.Duration
	now          func() time.Time
}

type Option func(*Machine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

func New(store Store, maxAttempts int, lockDuration time.Duration, opts ...Option) *Machine {
	m := &Machine{
		store:        store,
		maxAttempts:  maxAttempts,
		lockDuration: lockDuration,
		now:          time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Admit decides whether a login attempt on u may proceed to password
// verification. An expired lock is cleared in the store and on u.
func (m *Machine) Admit(ctx context.Context, u *models.User) error {
	if !u.IsLocked {
		return nil
	}

	if u.LockUntil == nil {
		return common.NewError(common.ErrAccountStillLocked,
			"Account is locked. Please contact support to unlock it.", nil)
	}

	now := m.now()
	if !now.After(*u.LockUntil) {
		minutes := RemainingMinutes(*u.LockUntil, now)
		return common.NewError(common.ErrAccountStillLocked,
			fmt.Sprintf("Account is temporarily locked. Please try again in %d minutes.", minutes),
			map[string]any{"remainingMinutes": minutes, "lockUntil": *u.LockUntil})
	}

	if err := m.store.Unlock(ctx, u.ID); err != nil {
		return fmt.Errorf("unlock expired lock: %w", err)
	}
	u.IsLocked = false
	u.LockUntil = nil
	u.LoginAttempts = 0
	return nil
}

// RecordFailure registers one failed verification and returns the domain
// outcome: InvalidCredentials with the attempts left, or AccountLocked when
// this failure reached the threshold. Only store failures are returned as
// plain errors.
func (m *Machine) RecordFailure(ctx context.Context, u *models.User) error {
	lockUntil := m.now().Add(m.lockDuration)

	res, err := m.store.RecordFailedLogin(ctx, u.ID, m.maxAttempts, lockUntil)
	if errors.Is(err, common.ErrorAlreadyLocked) {
		// a concurrent attempt locked the account first
		return m.lockedError(lockUntil)
	}
	if err != nil {
		return fmt.Errorf("record failed login: %w", err)
	}

	if res.Locked {
		u.IsLocked = true
		u.LockUntil = res.LockUntil
		u.LoginAttempts = 0
		until := lockUntil
		if res.LockUntil != nil {
			until = *res.LockUntil
		}
		return m.lockedError(until)
	}

	u.LoginAttempts = res.Attempts
	remaining := m.maxAttempts - res.Attempts
	if remaining < 0 {
		remaining = 0
	}
	return common.NewError(common.ErrInvalidCredentials,
		fmt.Sprintf("Invalid credentials. %d attempts remaining.", remaining),
		map[string]any{"remainingAttempts": remaining})
}

func (m *Machine) lockedError(until time.Time) error {
	minutes := int(m.lockDuration / time.Minute)
	return common.NewError(common.ErrAccountLocked,
		fmt.Sprintf("Too many failed login attempts. Account is locked for %d minutes.", minutes),
		map[string]any{"lockMinutes": minutes, "lockUntil": until})
}

// RecordSuccess resets the failed-login counter.
func (m *Machine) RecordSuccess(ctx context.Context, u *models.User) error {
	if err := m.store.ResetLoginAttempts(ctx, u.ID); err != nil {
		return fmt.Errorf("reset login attempts: %w", err)
	}
	u.LoginAttempts = 0
	return nil
}

// RemainingMinutes is the whole number of minutes, rounded up and at least
// one, until lockUntil.
func RemainingMinutes(lockUntil, now time.Time) int {
	minutes := int(math.Ceil(lockUntil.Sub(now).Minutes()))
	if minutes < 1 {
		return 1
	}
	return minutes
}
