// Package repomanager bundles the repositories behind one handle that can
// also run schema migrations and transactional units of work.
package repomanager

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/resettokens"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/users"
)

// Repositories is one consistent set of stores, either bound to the pool or
// to a single transaction.
type Repositories struct {
	Users         users.Repository
	RefreshTokens refreshtokens.Repository
	ResetTokens   resettokens.Repository
}

// TxFunc is a unit of work over transaction-bound repositories.
type TxFunc func(ctx context.Context, r Repositories) error

type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Repositories() Repositories

	// WithTx runs fn against repositories sharing one transaction; fn's
	// error rolls it back.
	WithTx(ctx context.Context, fn TxFunc) error

	Close() error
}
