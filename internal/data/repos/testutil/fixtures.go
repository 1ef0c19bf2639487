package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thecmdrunner/swiftube-backend/internal/domain"
)

func SeedCustomer(tb testing.TB, ctx context.Context, tx *gorm.DB, free, paid int) *domain.Customer {
	tb.Helper()
	c := &domain.Customer{
		UserID:             "user-" + uuid.NewString(),
		InitialFreeCredits: free,
		Credits:            paid,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed customer: %v", err)
	}
	return c
}

func SeedVideoJob(tb testing.TB, ctx context.Context, tx *gorm.DB, userID string, status domain.VideoStatus) *domain.VideoJob {
	tb.Helper()
	j := domain.NewVideoJob(uuid.NewString(), userID, "Explain photosynthesis", "", domain.CreditFree)
	j.Status = status
	if err := tx.WithContext(ctx).Create(j).Error; err != nil {
		tb.Fatalf("seed video job: %v", err)
	}
	return j
}
