package repository

import (
	"github.com/fxrumble/identity-service/pkg/database"
)

// Repositories holds all repository interfaces
type Repositories struct {
	User         UserRepository
	ProviderLink ProviderLinkRepository
}

// NewRepositories creates all repositories
func NewRepositories(db *database.Postgres) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		ProviderLink: NewProviderLinkRepository(db),
	}
}
