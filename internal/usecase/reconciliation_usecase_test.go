package usecase_test

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/iho/merchledger/internal/usecase"
	"github.com/iho/merchledger/internal/usecase/mocks"
)

func TestReconciliationUseCase_CheckConsistency(t *testing.T) {
	tests := []struct {
		name           string
		accounts       int64
		total          int64
		negative       int64
		spent          int64
		wantConsistent bool
		wantExpected   int64
	}{
		{
			name:           "balanced after purchases",
			accounts:       3,
			total:          2970,
			spent:          30,
			wantConsistent: true,
			wantExpected:   2970,
		},
		{
			name:           "coins created from nowhere",
			accounts:       2,
			total:          2100,
			wantConsistent: false,
			wantExpected:   2000,
		},
		{
			name:           "negative account",
			accounts:       2,
			total:          2000,
			negative:       1,
			wantConsistent: false,
			wantExpected:   2000,
		},
		{
			name:           "empty ledger",
			wantConsistent: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			txMgr := mocks.NewMockTransactionManager(ctrl)
			tx := mocks.NewMockTransaction(ctrl)
			accounts := mocks.NewMockAccountRepository(ctrl)
			purchases := mocks.NewMockPurchaseRepository(ctrl)

			txMgr.EXPECT().Snapshot(gomock.Any()).Return(tx, nil)
			tx.EXPECT().Commit(gomock.Any()).Return(nil)
			tx.EXPECT().Rollback(gomock.Any()).Return(nil).AnyTimes()
			accounts.EXPECT().Totals(gomock.Any(), tx).Return(tt.accounts, tt.total, tt.negative, nil)
			purchases.EXPECT().SumPrices(gomock.Any(), tx).Return(tt.spent, nil)

			uc := usecase.NewReconciliationUseCase(txMgr, accounts, purchases, 1000)

			report, err := uc.CheckConsistency(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if report.Consistent != tt.wantConsistent {
				t.Errorf("Consistent = %v, want %v (%+v)", report.Consistent, tt.wantConsistent, report)
			}

			if report.ExpectedBalance != tt.wantExpected {
				t.Errorf("ExpectedBalance = %d, want %d", report.ExpectedBalance, tt.wantExpected)
			}
		})
	}
}

func TestReconciliationUseCase_CheckConsistencyRepoError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	txMgr := mocks.NewMockTransactionManager(ctrl)
	tx := mocks.NewMockTransaction(ctrl)
	accounts := mocks.NewMockAccountRepository(ctrl)
	dbErr := errors.New("db down")

	txMgr.EXPECT().Snapshot(gomock.Any()).Return(tx, nil)
	tx.EXPECT().Rollback(gomock.Any()).Return(nil)
	accounts.EXPECT().Totals(gomock.Any(), tx).Return(int64(0), int64(0), int64(0), dbErr)

	uc := usecase.NewReconciliationUseCase(txMgr, accounts, mocks.NewMockPurchaseRepository(ctrl), 1000)

	if _, err := uc.CheckConsistency(context.Background()); !errors.Is(err, dbErr) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}
