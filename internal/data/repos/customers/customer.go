package customers

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/thecmdrunner/swiftube-backend/internal/domain"
	"github.com/thecmdrunner/swiftube-backend/internal/platform/dbctx"
	"github.com/thecmdrunner/swiftube-backend/internal/platform/logger"
)

var ErrNotFound = errors.New("customer not found")

type CustomerRepo interface {
	GetByUserID(dbc dbctx.Context, userID string) (*domain.Customer, error)
	// CreateIfMissing inserts c unless a row for c.UserID exists. The bool is
	// true when this call created the row.
	CreateIfMissing(dbc dbctx.Context, c *domain.Customer) (bool, error)
	// UpdateWithVersion writes the counters of c only if the stored version
	// still equals expectedVersion, and bumps the version on success.
	UpdateWithVersion(dbc dbctx.Context, c *domain.Customer, expectedVersion int) (bool, error)
}

type customerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCustomerRepo(db *gorm.DB, baseLog *logger.Logger) CustomerRepo {
	return &customerRepo{
		db:  db,
		log: baseLog.With("repo", "CustomerRepo"),
	}
}

func (r *customerRepo) GetByUserID(dbc dbctx.Context, userID string) (*domain.Customer, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == "" {
		return nil, ErrNotFound
	}
	var c domain.Customer
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Limit(1).
		Find(&c).Error; err != nil {
		return nil, err
	}
	if c.UserID == "" {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (r *customerRepo) CreateIfMissing(dbc dbctx.Context, c *domain.Customer) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if c == nil || c.UserID == "" {
		return false, errors.New("customer requires a user id")
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	res := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(c)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *customerRepo) UpdateWithVersion(dbc dbctx.Context, c *domain.Customer, expectedVersion int) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if c == nil || c.UserID == "" {
		return false, nil
	}
	now := time.Now().UTC()
	res := transaction.WithContext(dbc.Ctx).
		Model(&domain.Customer{}).
		Where("user_id = ? AND version = ?", c.UserID, expectedVersion).
		Updates(map[string]interface{}{
			"red_flags":            c.RedFlags,
			"is_banned":            c.IsBanned,
			"initial_free_credits": c.InitialFreeCredits,
			"credits":              c.Credits,
			"videos_created":       c.VideosCreated,
			"version":              expectedVersion + 1,
			"updated_at":           now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	c.Version = expectedVersion + 1
	c.UpdatedAt = now
	return true, nil
}
