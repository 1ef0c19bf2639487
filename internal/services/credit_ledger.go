package services

import (
	"errors"
	"fmt"

	"github.com/thecmdrunner/swiftube-backend/internal/clients/redis"
	"github.com/thecmdrunner/swiftube-backend/internal/data/repos"
	"github.com/thecmdrunner/swiftube-backend/internal/domain"
	"github.com/thecmdrunner/swiftube-backend/internal/platform/dbctx"
	"github.com/thecmdrunner/swiftube-backend/internal/platform/logger"
)

const maxLedgerWriteAttempts = 3

// ErrLedgerContention means every conditional write lost to a concurrent one.
var ErrLedgerContention = errors.New("customer record changed concurrently, try again")

type CreditLedger interface {
	// EnsureCustomer loads the customer, creating it with the new-user free
	// credit grant on first sight.
	EnsureCustomer(dbc dbctx.Context, userID string) (*domain.Customer, error)
	// Admit spends one credit for videoID. Denials are AdmissionDenied
	// PipelineErrors wrapping ErrInsufficientCredits or ErrCustomerBanned.
	Admit(dbc dbctx.Context, videoID, userID string) (domain.CreditType, error)
	Ban(dbc dbctx.Context, userID string) error
	RecordRedFlag(dbc dbctx.Context, userID string) error
}

type creditLedger struct {
	log                *logger.Logger
	customers          repos.CustomerRepo
	settings           redis.Store
	creditsForNewUsers int
}

// NewCreditLedger takes an optional settings store; without one, or when it
// fails, new users get defaultNewUserCredits.
func NewCreditLedger(baseLog *logger.Logger, customers repos.CustomerRepo, settings redis.Store, defaultNewUserCredits int) CreditLedger {
	return &creditLedger{
		log:                baseLog.With("service", "CreditLedger"),
		customers:          customers,
		settings:           settings,
		creditsForNewUsers: defaultNewUserCredits,
	}
}

func (l *creditLedger) EnsureCustomer(dbc dbctx.Context, userID string) (*domain.Customer, error) {
	c, err := l.customers.GetByUserID(dbc, userID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, repos.ErrCustomerNotFound) {
		return nil, fmt.Errorf("load customer: %w", err)
	}

	grant := l.newUserGrant(dbc)
	created, err := l.customers.CreateIfMissing(dbc, &domain.Customer{
		UserID:             userID,
		InitialFreeCredits: grant,
	})
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	if created {
		l.log.Info("created customer", "user_id", userID, "free_credits", grant)
		if l.settings != nil && grant > 0 {
			if remaining, err := l.settings.ReduceTotalCreditsAllotted(dbc.Ctx, grant); err != nil {
				l.log.Warn("could not reduce total credits allotted", "error", err)
			} else {
				l.log.Debug("total credits allotted reduced", "remaining", remaining)
			}
		}
	}
	return l.customers.GetByUserID(dbc, userID)
}

func (l *creditLedger) newUserGrant(dbc dbctx.Context) int {
	if l.settings == nil {
		return l.creditsForNewUsers
	}
	meta, err := l.settings.GeneralMetadata(dbc.Ctx)
	if err != nil {
		l.log.Warn("general metadata unavailable, using default grant", "error", err)
		return l.creditsForNewUsers
	}
	if meta.CreditsForNewUsers <= 0 {
		return l.creditsForNewUsers
	}
	return meta.CreditsForNewUsers
}

func (l *creditLedger) Admit(dbc dbctx.Context, videoID, userID string) (domain.CreditType, error) {
	var credit domain.CreditType
	err := l.mutate(dbc, userID, func(c *domain.Customer) error {
		if !c.CanCreateVideo() {
			return denial(c)
		}
		ct, ok := c.ConsumeCredit(videoID)
		if !ok {
			return denial(c)
		}
		credit = ct
		return nil
	})
	if err != nil {
		return "", err
	}
	l.log.Info("admitted video", "user_id", userID, "video_id", videoID, "credit", credit)
	return credit, nil
}

func (l *creditLedger) Ban(dbc dbctx.Context, userID string) error {
	return l.mutate(dbc, userID, func(c *domain.Customer) error {
		c.IsBanned = true
		return nil
	})
}

func (l *creditLedger) RecordRedFlag(dbc dbctx.Context, userID string) error {
	return l.mutate(dbc, userID, func(c *domain.Customer) error {
		c.RedFlags++
		return nil
	})
}

// mutate runs a read-modify-write on the customer row guarded by its version,
// re-reading and re-applying fn when another writer got there first.
func (l *creditLedger) mutate(dbc dbctx.Context, userID string, fn func(c *domain.Customer) error) error {
	for attempt := 1; attempt <= maxLedgerWriteAttempts; attempt++ {
		c, err := l.customers.GetByUserID(dbc, userID)
		if errors.Is(err, repos.ErrCustomerNotFound) {
			return &domain.PipelineError{Kind: domain.KindAdmissionDenied, Err: err}
		}
		if err != nil {
			return fmt.Errorf("load customer: %w", err)
		}
		expected := c.Version
		if err := fn(c); err != nil {
			return err
		}
		ok, err := l.customers.UpdateWithVersion(dbc, c, expected)
		if err != nil {
			return fmt.Errorf("write customer: %w", err)
		}
		if ok {
			return nil
		}
		l.log.Debug("customer version conflict", "user_id", userID, "attempt", attempt)
	}
	return ErrLedgerContention
}

func denial(c *domain.Customer) error {
	cause := domain.ErrInsufficientCredits
	if c.IsBanned {
		cause = domain.ErrCustomerBanned
	}
	return &domain.PipelineError{Kind: domain.KindAdmissionDenied, Err: cause}
}
