package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/iho/merchledger/internal/domain"
)

// AuthUseCase authenticates users and registers unknown usernames on first login.
type AuthUseCase struct {
	txManager       TransactionManager
	userRepo        UserRepository
	accountRepo     AccountRepository
	outboxRepo      OutboxRepository
	hasher          PasswordHasher
	tokens          TokenIssuer
	idGen           IDGenerator
	metrics         MetricsRecorder
	startingBalance int64
}

// AuthUseCaseConfig holds dependencies for AuthUseCase.
type AuthUseCaseConfig struct {
	TxManager       TransactionManager
	UserRepo        UserRepository
	AccountRepo     AccountRepository
	OutboxRepo      OutboxRepository
	Hasher          PasswordHasher
	Tokens          TokenIssuer
	IDGen           IDGenerator
	Metrics         MetricsRecorder
	StartingBalance int64
}

// NewAuthUseCase creates a new AuthUseCase.
func NewAuthUseCase(cfg AuthUseCaseConfig) *AuthUseCase {
	if cfg.Metrics == nil {
		cfg.Metrics = nopMetrics{}
	}

	if cfg.StartingBalance <= 0 {
		cfg.StartingBalance = domain.StartingBalance
	}

	return &AuthUseCase{
		txManager:       cfg.TxManager,
		userRepo:        cfg.UserRepo,
		accountRepo:     cfg.AccountRepo,
		outboxRepo:      cfg.OutboxRepo,
		hasher:          cfg.Hasher,
		tokens:          cfg.Tokens,
		idGen:           cfg.IDGen,
		metrics:         cfg.Metrics,
		startingBalance: cfg.StartingBalance,
	}
}

// AuthResult is the outcome of a successful authentication.
type AuthResult struct {
	Account *domain.Account
	Token   string
	Created bool
}

// Authenticate verifies the password of an existing user, or registers the
// username with a fresh account when it is unknown.
func (uc *AuthUseCase) Authenticate(ctx context.Context, username, password string) (*AuthResult, error) {
	if username == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	if err := domain.ValidateUsername(username); err != nil {
		return nil, err
	}

	if err := domain.ValidatePassword(password); err != nil {
		return nil, err
	}

	user, err := uc.userRepo.GetByUsername(ctx, username)
	switch {
	case err == nil:
		return uc.login(ctx, user, password)
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, err
	}

	account, err := uc.register(ctx, username, password)
	if errors.Is(err, domain.ErrUsernameTaken) {
		// Lost a concurrent registration race; the winner's password decides.
		user, err = uc.userRepo.GetByUsername(ctx, username)
		if err != nil {
			return nil, err
		}

		return uc.login(ctx, user, password)
	}

	if err != nil {
		return nil, err
	}

	token, err := uc.tokens.Generate(account.ID, account.Username)
	if err != nil {
		return nil, err
	}

	return &AuthResult{Account: account, Token: token, Created: true}, nil
}

func (uc *AuthUseCase) login(ctx context.Context, user *domain.User, password string) (*AuthResult, error) {
	if err := uc.hasher.Verify(user.HashedPassword, password); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	account, err := uc.accountRepo.GetByID(ctx, nil, user.ID)
	if err != nil {
		return nil, err
	}

	token, err := uc.tokens.Generate(account.ID, account.Username)
	if err != nil {
		return nil, err
	}

	return &AuthResult{Account: account, Token: token}, nil
}

func (uc *AuthUseCase) register(ctx context.Context, username, password string) (*domain.Account, error) {
	hashed, err := uc.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()

	account := &domain.Account{
		ID:        uc.idGen.Generate(),
		Username:  username,
		Balance:   uc.startingBalance,
		CreatedAt: now,
		UpdatedAt: now,
	}

	user := &domain.User{
		ID:             account.ID,
		Username:       username,
		HashedPassword: hashed,
		CreatedAt:      now,
	}

	if err := uc.userRepo.CreateTx(ctx, tx, user); err != nil {
		return nil, err
	}

	if err := uc.accountRepo.CreateTx(ctx, tx, account); err != nil {
		return nil, err
	}

	if err := uc.outboxRepo.Create(ctx, tx, domain.NewAccountCreatedEvent(uc.idGen.Generate(), account)); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	uc.metrics.ObserveAccountCreated()

	return account, nil
}
