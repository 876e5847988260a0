package postgres_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/iho/merchledger/internal/adapter/repository/postgres"
	"github.com/iho/merchledger/internal/domain"
	"github.com/iho/merchledger/internal/infrastructure/catalog"
	"github.com/iho/merchledger/internal/infrastructure/idgen"
	infrapg "github.com/iho/merchledger/internal/infrastructure/postgres"
	"github.com/iho/merchledger/internal/usecase"
)

const migrationsPath = "../../../../migrations"

func setupDatabase(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()

	pg, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("merchledger"),
		tcpostgres.WithUsername("ledger"),
		tcpostgres.WithPassword("ledger"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, pg)
	require.NoError(t, err)

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, infrapg.RunMigrations(connStr, migrationsPath, zerolog.Nop()))

	pool, err := infrapg.NewPoolWithConfig(ctx, infrapg.PoolConfig{
		DatabaseURL:    connStr,
		MaxConns:       20,
		ConnectTimeout: 30 * time.Second,
		Logger:         zerolog.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

type pgLedger struct {
	auth     *usecase.AuthUseCase
	ledger   *usecase.LedgerUseCase
	accounts *usecase.AccountUseCase
	recon    *usecase.ReconciliationUseCase
}

type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "h:" + p, nil }
func (plainHasher) Verify(h, p string) error {
	if h != "h:"+p {
		return errors.New("mismatch")
	}
	return nil
}

type staticTokens struct{}

func (staticTokens) Generate(accountID, _ string) (string, error) { return "token-" + accountID, nil }

func newPgLedger(pool *pgxpool.Pool) *pgLedger {
	txm := postgres.NewTxManager(pool)
	accountRepo := postgres.NewAccountRepository(pool)
	transferRepo := postgres.NewTransferRepository(pool)
	purchaseRepo := postgres.NewPurchaseRepository(pool)
	outboxRepo := postgres.NewOutboxRepository(pool)
	idGen := idgen.NewULIDGenerator()

	return &pgLedger{
		auth: usecase.NewAuthUseCase(usecase.AuthUseCaseConfig{
			TxManager:   txm,
			UserRepo:    postgres.NewUserRepository(pool),
			AccountRepo: accountRepo,
			OutboxRepo:  outboxRepo,
			Hasher:      plainHasher{},
			Tokens:      staticTokens{},
			IDGen:       idGen,
		}),
		ledger:   usecase.NewLedgerUseCase(txm, accountRepo, transferRepo, purchaseRepo, outboxRepo, catalog.MustDefault(), idGen, nil),
		accounts: usecase.NewAccountUseCase(txm, accountRepo, transferRepo, purchaseRepo),
		recon:    usecase.NewReconciliationUseCase(txm, accountRepo, purchaseRepo, domain.StartingBalance),
	}
}

func (l *pgLedger) register(t *testing.T, username string) *domain.Account {
	t.Helper()

	res, err := l.auth.Authenticate(context.Background(), username, "password")
	require.NoError(t, err)

	return res.Account
}

func TestPostgresLedger(t *testing.T) {
	pool := setupDatabase(t)
	l := newPgLedger(pool)
	ctx := context.Background()

	alice := l.register(t, "alice")
	bob := l.register(t, "bob")

	t.Run("login returns same account", func(t *testing.T) {
		res, err := l.auth.Authenticate(ctx, "alice", "password")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, res.Account.ID)
		assert.False(t, res.Created)

		_, err = l.auth.Authenticate(ctx, "alice", "wrong")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("transfer and purchase", func(t *testing.T) {
		_, err := l.ledger.SendCoins(ctx, alice.ID, "bob", 100)
		require.NoError(t, err)

		_, err = l.ledger.Purchase(ctx, usecase.PurchaseInput{AccountID: bob.ID, Item: "cup"})
		require.NoError(t, err)

		aliceSummary, err := l.accounts.Summarize(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(900), aliceSummary.Balance)
		assert.Equal(t, []domain.SentCoins{{ToAccountID: bob.ID, ToUsername: "bob", Amount: 100}}, aliceSummary.History.Sent)

		bobSummary, err := l.accounts.Summarize(ctx, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1080), bobSummary.Balance)
		assert.Equal(t, []domain.InventoryItem{{Item: "cup", Quantity: 1}}, bobSummary.Inventory)
		assert.Equal(t, []domain.ReceivedCoins{{FromAccountID: alice.ID, FromUsername: "alice", Amount: 100}}, bobSummary.History.Received)
	})

	t.Run("rejections leave no trace", func(t *testing.T) {
		before, err := l.accounts.Summarize(ctx, alice.ID)
		require.NoError(t, err)

		_, err = l.ledger.SendCoins(ctx, alice.ID, "bob", 100000)
		assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

		_, err = l.ledger.Purchase(ctx, usecase.PurchaseInput{AccountID: alice.ID, Item: "yacht"})
		assert.ErrorIs(t, err, domain.ErrItemNotFound)

		after, err := l.accounts.Summarize(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("opposite transfers under load stay consistent", func(t *testing.T) {
		var (
			wg     sync.WaitGroup
			failed atomic.Int32
		)

		retrier := postgres.NewRetrier(zerolog.Nop())

		for i := 0; i < 50; i++ {
			wg.Add(2)

			go func() {
				defer wg.Done()
				if err := retrier.Retry(ctx, func() error {
					_, err := l.ledger.Transfer(ctx, usecase.TransferInput{FromAccountID: alice.ID, ToAccountID: bob.ID, Amount: 3})
					return err
				}); err != nil {
					failed.Add(1)
				}
			}()

			go func() {
				defer wg.Done()
				if err := retrier.Retry(ctx, func() error {
					_, err := l.ledger.Transfer(ctx, usecase.TransferInput{FromAccountID: bob.ID, ToAccountID: alice.ID, Amount: 2})
					return err
				}); err != nil {
					failed.Add(1)
				}
			}()
		}

		wg.Wait()
		assert.Zero(t, failed.Load())

		report, err := l.recon.CheckConsistency(ctx)
		require.NoError(t, err)
		assert.True(t, report.Consistent, "%+v", report)
		assert.Equal(t, int64(2), report.Accounts)
		assert.Equal(t, int64(20), report.TotalSpent)
	})

	t.Run("outbox holds one event per operation", func(t *testing.T) {
		events, err := postgres.NewOutboxRepository(pool).GetUnpublished(ctx, 1000)
		require.NoError(t, err)

		// two registrations, one send, one purchase, one hundred transfers
		assert.Len(t, events, 104)
	})
}

func TestPostgresConcurrentPurchaseExactlyOneSucceeds(t *testing.T) {
	pool := setupDatabase(t)
	l := newPgLedger(pool)
	ctx := context.Background()

	alice := l.register(t, "alice")

	_, err := l.ledger.Transfer(ctx, usecase.TransferInput{FromAccountID: alice.ID, ToAccountID: l.register(t, "bob").ID, Amount: 500})
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
	)

	for i := 0; i < 2; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if _, err := l.ledger.Purchase(ctx, usecase.PurchaseInput{AccountID: alice.ID, Item: "pink-hoody"}); err == nil {
				succeeded.Add(1)
			} else if !errors.Is(err, domain.ErrInsufficientFunds) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())

	account, err := postgres.NewAccountRepository(pool).GetByID(ctx, nil, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, account.Balance)
}
