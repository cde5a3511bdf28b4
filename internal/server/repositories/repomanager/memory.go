package repomanager

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/resettokens"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/users"
)

// MemoryRepositoryManager serves the in-memory repositories. WithTx runs fn
// directly: each repository call is atomic on its own, but a failing fn does
// not undo earlier calls.
type MemoryRepositoryManager struct {
	repos Repositories
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{repos: Repositories{
		Users:         users.NewMemoryRepository(),
		RefreshTokens: refreshtokens.NewMemoryRepository(),
		ResetTokens:   resettokens.NewMemoryRepository(),
	}}
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context) error { return nil }

func (m *MemoryRepositoryManager) Repositories() Repositories { return m.repos }

func (m *MemoryRepositoryManager) WithTx(ctx context.Context, fn TxFunc) error {
	return fn(ctx, m.repos)
}

func (m *MemoryRepositoryManager) Close() error { return nil }
