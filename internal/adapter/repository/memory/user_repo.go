package memory

import (
	"context"

	"github.com/iho/merchledger/internal/domain"
	"github.com/iho/merchledger/internal/usecase"
)

// UserRepository implements usecase.UserRepository.
type UserRepository struct {
	store *Store
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(store *Store) *UserRepository {
	return &UserRepository{store: store}
}

// CreateTx stages a new user in tx. A username claimed by a concurrent
// transaction is reported by Commit.
func (r *UserRepository) CreateTx(ctx context.Context, tx usecase.Transaction, user *domain.User) error {
	t, err := asWriteTx(tx)
	if err != nil {
		return err
	}

	err = r.store.read(nil, func() error {
		if _, taken := r.store.users[user.Username]; taken {
			return domain.ErrUsernameTaken
		}

		return nil
	})
	if err != nil {
		return err
	}

	u := *user
	t.users = append(t.users, &u)

	return nil
}

// GetByUsername retrieves a user by username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user *domain.User

	err := r.store.read(nil, func() error {
		u, ok := r.store.users[username]
		if !ok {
			return domain.ErrUserNotFound
		}

		cp := *u
		user = &cp

		return nil
	})

	return user, err
}
