package services

import (
	"context"
	"errors"
	"testing"

	"github.com/thecmdrunner/swiftube-backend/internal/clients/redis"
	"github.com/thecmdrunner/swiftube-backend/internal/data/repos"
	"github.com/thecmdrunner/swiftube-backend/internal/data/repos/testutil"
	"github.com/thecmdrunner/swiftube-backend/internal/domain"
	"github.com/thecmdrunner/swiftube-backend/internal/platform/dbctx"
)

func newLedger(t *testing.T, settings redis.Store) (CreditLedger, repos.CustomerRepo, dbctx.Context) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	customers := repos.NewCustomerRepo(db, log)
	return NewCreditLedger(log, customers, settings, 2), customers, dbctx.Background(context.Background())
}

func TestAdmitConsumesFreeBeforePaid(t *testing.T) {
	cases := []struct {
		name               string
		free, paid         int
		banned             bool
		wantCredit         domain.CreditType
		wantFree, wantPaid int
		wantErr            error
	}{
		{name: "free first", free: 2, paid: 0, wantCredit: domain.CreditFree, wantFree: 1, wantPaid: 0},
		{name: "paid when free gone", free: 0, paid: 1, wantCredit: domain.CreditPaid, wantFree: 0, wantPaid: 0},
		{name: "free even with paid", free: 1, paid: 5, wantCredit: domain.CreditFree, wantFree: 0, wantPaid: 5},
		{name: "no credits", free: 0, paid: 0, wantErr: domain.ErrInsufficientCredits, wantFree: 0, wantPaid: 0},
		{name: "no credits and banned", free: 0, paid: 0, banned: true, wantErr: domain.ErrCustomerBanned},
		{name: "banned with credits", free: 3, paid: 3, banned: true, wantErr: domain.ErrCustomerBanned, wantFree: 3, wantPaid: 3},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ledger, customers, dbc := newLedger(t, nil)
			if _, err := customers.CreateIfMissing(dbc, &domain.Customer{
				UserID: "u", InitialFreeCredits: tc.free, Credits: tc.paid, IsBanned: tc.banned,
			}); err != nil {
				t.Fatalf("seed: %v", err)
			}

			credit, err := ledger.Admit(dbc, "vid-1", "u")
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) || domain.KindOf(err) != domain.KindAdmissionDenied {
					t.Fatalf("want denial %v, got %v", tc.wantErr, err)
				}
			} else if err != nil || credit != tc.wantCredit {
				t.Fatalf("Admit: credit=%q err=%v", credit, err)
			}

			c, _ := customers.GetByUserID(dbc, "u")
			if tc.banned {
				return
			}
			if c.InitialFreeCredits != tc.wantFree || c.Credits != tc.wantPaid {
				t.Fatalf("balances: free=%d paid=%d", c.InitialFreeCredits, c.Credits)
			}
			if tc.wantErr == nil && (len(c.VideosCreated) != 1 || c.VideosCreated[0].VideoID != "vid-1") {
				t.Fatalf("videos created: %+v", c.VideosCreated)
			}
		})
	}
}

func TestEnsureCustomerUsesRemoteGrant(t *testing.T) {
	settings := &fakeSettings{meta: redis.GeneralMetadata{CreditsForNewUsers: 4, TotalCreditsAllotted: 100}}
	ledger, _, dbc := newLedger(t, settings)

	c, err := ledger.EnsureCustomer(dbc, "new-user")
	if err != nil {
		t.Fatalf("EnsureCustomer: %v", err)
	}
	if c.InitialFreeCredits != 4 || c.Credits != 0 {
		t.Fatalf("new customer: %+v", c)
	}
	if settings.reducedBy != 4 {
		t.Fatalf("total allotted reduced by %d", settings.reducedBy)
	}

	if _, err := ledger.EnsureCustomer(dbc, "new-user"); err != nil {
		t.Fatalf("EnsureCustomer again: %v", err)
	}
	if settings.reducedBy != 4 {
		t.Fatalf("existing customer should not be granted again")
	}
}

func TestEnsureCustomerFallsBackToDefaultGrant(t *testing.T) {
	settings := &fakeSettings{err: errors.New("redis down")}
	ledger, _, dbc := newLedger(t, settings)

	c, err := ledger.EnsureCustomer(dbc, "u")
	if err != nil {
		t.Fatalf("EnsureCustomer: %v", err)
	}
	if c.InitialFreeCredits != 2 {
		t.Fatalf("default grant: %d", c.InitialFreeCredits)
	}
}

func TestBanAndRedFlag(t *testing.T) {
	ledger, _, dbc := newLedger(t, nil)
	if _, err := ledger.EnsureCustomer(dbc, "u"); err != nil {
		t.Fatalf("EnsureCustomer: %v", err)
	}
	if err := ledger.RecordRedFlag(dbc, "u"); err != nil {
		t.Fatalf("RecordRedFlag: %v", err)
	}
	if err := ledger.Ban(dbc, "u"); err != nil {
		t.Fatalf("Ban: %v", err)
	}
	c, _ := ledger.EnsureCustomer(dbc, "u")
	if !c.IsBanned || c.RedFlags != 1 || c.Version != 2 {
		t.Fatalf("customer: %+v", c)
	}
	if _, err := ledger.Admit(dbc, "vid", "u"); !errors.Is(err, domain.ErrCustomerBanned) {
		t.Fatalf("banned admit: %v", err)
	}
}

type conflictingRepo struct {
	repos.CustomerRepo
	conflicts int
}

func (r *conflictingRepo) UpdateWithVersion(dbc dbctx.Context, c *domain.Customer, expected int) (bool, error) {
	if r.conflicts > 0 {
		r.conflicts--
		return false, nil
	}
	return r.CustomerRepo.UpdateWithVersion(dbc, c, expected)
}

func TestAdmitRetriesVersionConflicts(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	dbc := dbctx.Background(context.Background())
	base := repos.NewCustomerRepo(db, log)
	if _, err := base.CreateIfMissing(dbc, &domain.Customer{UserID: "u", InitialFreeCredits: 1}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	repo := &conflictingRepo{CustomerRepo: base, conflicts: 2}
	ledger := NewCreditLedger(log, repo, nil, 2)
	if _, err := ledger.Admit(dbc, "vid", "u"); err != nil {
		t.Fatalf("Admit after 2 conflicts: %v", err)
	}

	repo.conflicts = 3
	if err := ledger.Ban(dbc, "u"); !errors.Is(err, ErrLedgerContention) {
		t.Fatalf("want ErrLedgerContention, got %v", err)
	}
}
