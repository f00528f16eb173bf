package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/aarondl/null/v8"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"freeflow/internal/dto"
	"freeflow/internal/repositories"
	"freeflow/internal/resources"
	"freeflow/pkg/constants"
	apperrors "freeflow/pkg/errors"
)

func TestCalculateFees(t *testing.T) {
	svc := &EscrowService{}

	tests := []struct {
		name     string
		amount   string
		method   string
		platform string
		payment  string
		total    string
		net      string
	}{
		{"stripe", "1000", "stripe", "30.00", "29.00", "109.00", "891.00"},
		{"paypal", "1000", "paypal", "30.00", "34.90", "114.90", "885.10"},
		{"bank transfer", "2500", "bank_transfer", "75.00", "25.00", "150.00", "2350.00"},
		{"crypto rounds to cents", "333.33", "crypto", "10.00", "5.00", "65.00", "268.33"},
		{"unknown method uses default", "100", "barter", "3.00", "2.00", "55.00", "45.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fees, err := svc.CalculateFees(decimal.RequireFromString(tt.amount), tt.method)
			require.NoError(t, err)
			assert.Equal(t, tt.platform, fees.PlatformFee.StringFixed(2))
			assert.Equal(t, tt.payment, fees.PaymentFee.StringFixed(2))
			assert.Equal(t, "50.00", fees.WithdrawalFee.StringFixed(2))
			assert.Equal(t, tt.total, fees.TotalFees.StringFixed(2))
			assert.Equal(t, tt.net, fees.NetAmount.StringFixed(2))
		})
	}

	_, err := svc.CalculateFees(decimal.Zero, "stripe")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

type EscrowServiceSuite struct {
	suite.Suite
	repo      *fakeRecordRepo
	tx        *fakeTxManager
	publisher *fakePublisher
	svc       *EscrowService
	owner     uuid.UUID
	ctx       context.Context
}

func TestEscrowServiceSuite(t *testing.T) {
	suite.Run(t, new(EscrowServiceSuite))
}

func (s *EscrowServiceSuite) SetupTest() {
	s.repo = newFakeRecordRepo()
	s.tx = &fakeTxManager{}
	s.publisher = &fakePublisher{}

	svc, err := NewEscrowService(s.tx, resources.DefaultRegistry(), s.repo, nil, s.publisher, zap.NewNop())
	s.Require().NoError(err)
	s.svc = svc
	s.owner = uuid.New()
	s.ctx = authed(s.owner)
}

func (s *EscrowServiceSuite) newDeposit(milestones ...dto.CreateMilestoneDTO) *dto.EscrowDepositDetailDTO {
	detail, err := s.svc.CreateDeposit(s.ctx, dto.CreateEscrowDepositDTO{
		ProjectTitle:       "Website redesign",
		ClientName:         "Acme",
		ClientEmail:        "Billing@Acme.io",
		Amount:             decimal.NewFromInt(1000),
		Currency:           "USD",
		PaymentMethod:      "stripe",
		CompletionPassword: "release123",
		Milestones:         milestones,
	})
	s.Require().NoError(err)
	return detail
}

func (s *EscrowServiceSuite) activate(id string) {
	_, err := s.svc.UpdateStatus(s.ctx, id, dto.UpdateEscrowStatusDTO{Status: constants.EscrowStatusActive})
	s.Require().NoError(err)
}

func (s *EscrowServiceSuite) TestCreateDeposit() {
	detail := s.newDeposit(
		dto.CreateMilestoneDTO{Title: "Design", Amount: decimal.NewFromInt(400), Percentage: 40, DueDate: null.StringFrom("2026-11-01")},
		dto.CreateMilestoneDTO{Title: "Build", Amount: decimal.NewFromInt(600), Percentage: 60},
	)

	s.Equal(1, s.tx.calls)
	s.Equal(constants.EscrowStatusPending, detail.Deposit.String("status"))
	s.Equal("billing@acme.io", detail.Deposit.String("client_email"))
	s.Equal(s.owner.String(), detail.Deposit.String("user_id"))
	s.NotContains(detail.Deposit, "completion_password")

	raw := s.repo.raw(s.svc.deposits, detail.Deposit.ID())
	hash := raw.String("completion_password")
	s.NotEqual("release123", hash)
	s.NoError(bcrypt.CompareHashAndPassword([]byte(hash), []byte("release123")))

	s.Equal("109.00", detail.Fees.Decimal("total_fees").StringFixed(2))
	s.Equal(detail.Deposit.ID(), detail.Fees.String("deposit_id"))

	s.Require().Len(detail.Milestones, 2)
	for _, m := range detail.Milestones {
		s.Equal(constants.MilestoneStatusPending, m.String("status"))
		s.Equal(detail.Deposit.ID(), m.String("deposit_id"))
	}
	due, ok := detail.Milestones[0].Time("due_date")
	s.True(ok)
	s.Equal("2026-11-01", due.Format("2006-01-02"))

	s.Equal([]string{
		"escrow_deposits:INSERT",
		"escrow_fees:INSERT",
		"escrow_milestones:INSERT",
		"escrow_milestones:INSERT",
	}, s.publisher.actions())
}

func (s *EscrowServiceSuite) TestGetDeposit() {
	created := s.newDeposit(dto.CreateMilestoneDTO{Title: "Design", Amount: decimal.NewFromInt(1000), Percentage: 100})

	detail, err := s.svc.GetDeposit(s.ctx, created.Deposit.ID())
	s.Require().NoError(err)
	s.Equal(created.Deposit.ID(), detail.Deposit.ID())
	s.NotNil(detail.Fees)
	s.Len(detail.Milestones, 1)

	_, err = s.svc.GetDeposit(authed(uuid.New()), created.Deposit.ID())
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *EscrowServiceSuite) TestStatusTransitions() {
	id := s.newDeposit().Deposit.ID()

	_, err := s.svc.UpdateStatus(s.ctx, id, dto.UpdateEscrowStatusDTO{Status: constants.EscrowStatusReleased})
	s.ErrorIs(err, apperrors.ErrValidation)

	_, err = s.svc.UpdateStatus(s.ctx, id, dto.UpdateEscrowStatusDTO{Status: constants.EscrowStatusPending})
	s.ErrorIs(err, apperrors.ErrValidation)

	s.activate(id)
	disputed, err := s.svc.UpdateStatus(s.ctx, id, dto.UpdateEscrowStatusDTO{
		Status: constants.EscrowStatusDisputed,
		Reason: null.StringFrom("late delivery"),
	})
	s.Require().NoError(err)
	s.Equal("late delivery", disputed.String("dispute_reason"))

	cancelled, err := s.svc.UpdateStatus(s.ctx, id, dto.UpdateEscrowStatusDTO{Status: constants.EscrowStatusCancelled})
	s.Require().NoError(err)
	_, stamped := cancelled.Time("cancelled_at")
	s.True(stamped)

	_, err = s.svc.UpdateStatus(s.ctx, id, dto.UpdateEscrowStatusDTO{Status: constants.EscrowStatusActive})
	s.ErrorIs(err, apperrors.ErrValidation, "cancelled is terminal")
}

func (s *EscrowServiceSuite) TestStatusUpdateCannotReleaseFunds() {
	for _, from := range []string{constants.EscrowStatusActive, constants.EscrowStatusDisputed, constants.EscrowStatusCompleted} {
		s.Run(from, func() {
			id := s.newDeposit().Deposit.ID()
			s.activate(id)
			if from != constants.EscrowStatusActive {
				_, err := s.svc.UpdateStatus(s.ctx, id, dto.UpdateEscrowStatusDTO{Status: from})
				s.Require().NoError(err)
			}

			_, err := s.svc.UpdateStatus(s.ctx, id, dto.UpdateEscrowStatusDTO{Status: constants.EscrowStatusReleased})
			s.ErrorIs(err, apperrors.ErrValidation)

			raw := s.repo.raw(s.svc.deposits, id)
			s.Equal(from, raw.String("status"))
			s.Nil(raw["released_at"])
			txs, err := s.repo.FindAll(s.ctx, nil, s.svc.transactions, repositories.OwnedBy(s.owner).WithEq("deposit_id", id))
			s.Require().NoError(err)
			s.Empty(txs, "no release ledger row")
		})
	}
}

func (s *EscrowServiceSuite) TestReleaseFunds() {
	id := s.newDeposit().Deposit.ID()

	_, err := s.svc.ReleaseFunds(s.ctx, id, dto.ReleaseFundsDTO{CompletionPassword: "release123"})
	s.ErrorIs(err, apperrors.ErrValidation, "pending deposits cannot be released")

	s.activate(id)

	_, err = s.svc.ReleaseFunds(s.ctx, id, dto.ReleaseFundsDTO{CompletionPassword: "wrong-pass1"})
	status, code, msg := apperrors.Classify(err)
	s.Equal(http.StatusForbidden, status)
	s.Equal(apperrors.CodeForbidden, code)
	s.Equal("invalid completion password", msg)

	_, err = s.svc.ReleaseFunds(authed(uuid.New()), id, dto.ReleaseFundsDTO{CompletionPassword: "release123"})
	s.ErrorIs(err, apperrors.ErrNotFound)

	result, err := s.svc.ReleaseFunds(s.ctx, id, dto.ReleaseFundsDTO{CompletionPassword: "release123"})
	s.Require().NoError(err)
	s.Equal(constants.EscrowStatusReleased, result.Deposit.String("status"))
	_, released := result.Deposit.Time("released_at")
	s.True(released)

	tx := result.Transaction
	s.Equal(constants.EscrowTransactionRelease, tx.String("type"))
	s.Equal(constants.EscrowTransactionStatusCompleted, tx.String("status"))
	s.Equal("1000.00", tx.Decimal("amount").StringFixed(2))
	s.Equal("109.00", tx.Decimal("fees").StringFixed(2))
	s.Equal("891.00", tx.Decimal("net_amount").StringFixed(2))

	_, err = s.svc.ReleaseFunds(s.ctx, id, dto.ReleaseFundsDTO{CompletionPassword: "release123"})
	s.ErrorIs(err, apperrors.ErrValidation, "already released")

	s.Contains(s.repo.txOps(), "find_all:escrow_fees", "fees are read inside the release transaction")
}

func (s *EscrowServiceSuite) TestMilestoneApprovalUpdatesProgress() {
	detail := s.newDeposit(
		dto.CreateMilestoneDTO{Title: "Design", Amount: decimal.NewFromInt(400), Percentage: 40},
		dto.CreateMilestoneDTO{Title: "Build", Amount: decimal.NewFromInt(600), Percentage: 70},
	)
	first, second := detail.Milestones[0].ID(), detail.Milestones[1].ID()

	_, err := s.svc.ApproveMilestone(s.ctx, first, dto.ApproveMilestoneDTO{})
	s.ErrorIs(err, apperrors.ErrValidation, "pending milestones cannot be approved")

	completed, err := s.svc.CompleteMilestone(s.ctx, first, dto.CompleteMilestoneDTO{Deliverables: []string{"mockups.fig"}})
	s.Require().NoError(err)
	s.Equal(constants.MilestoneStatusCompleted, completed.String("status"))

	approved, err := s.svc.ApproveMilestone(s.ctx, first, dto.ApproveMilestoneDTO{Notes: null.StringFrom("great")})
	s.Require().NoError(err)
	s.Equal(constants.MilestoneStatusApproved, approved.String("status"))
	s.Equal("great", approved.String("approval_notes"))

	deposit, err := s.svc.GetDeposit(s.ctx, detail.Deposit.ID())
	s.Require().NoError(err)
	s.EqualValues(40, deposit.Deposit.Int("progress_percentage"))

	_, err = s.svc.CompleteMilestone(s.ctx, second, dto.CompleteMilestoneDTO{})
	s.Require().NoError(err)
	_, err = s.svc.ApproveMilestone(s.ctx, second, dto.ApproveMilestoneDTO{})
	s.Require().NoError(err)

	deposit, err = s.svc.GetDeposit(s.ctx, detail.Deposit.ID())
	s.Require().NoError(err)
	s.EqualValues(100, deposit.Deposit.Int("progress_percentage"), "progress is capped")
}

func (s *EscrowServiceSuite) TestMilestoneApprovalIsOneTransaction() {
	detail := s.newDeposit(dto.CreateMilestoneDTO{Title: "Design", Amount: decimal.NewFromInt(1000), Percentage: 100})
	id := detail.Milestones[0].ID()
	_, err := s.svc.CompleteMilestone(s.ctx, id, dto.CompleteMilestoneDTO{})
	s.Require().NoError(err)

	s.repo.inTx = nil
	_, err = s.svc.ApproveMilestone(s.ctx, id, dto.ApproveMilestoneDTO{})
	s.Require().NoError(err)
	s.Equal([]string{
		"find:escrow_milestones",
		"update:escrow_milestones",
		"find:escrow_deposits",
		"sum:escrow_milestones",
		"update:escrow_deposits",
	}, s.repo.txOps())

	last := s.publisher.events[len(s.publisher.events)-1]
	s.Equal("escrow_deposits", last.Resource)
	s.Require().NotNil(last.Previous)
	s.EqualValues(0, last.Previous.Int("progress_percentage"))
	s.EqualValues(100, last.Record.Int("progress_percentage"))
}

func (s *EscrowServiceSuite) TestMilestoneApprovalFailureReportsNoChange() {
	detail := s.newDeposit(dto.CreateMilestoneDTO{Title: "Design", Amount: decimal.NewFromInt(1000), Percentage: 100})
	id := detail.Milestones[0].ID()
	_, err := s.svc.CompleteMilestone(s.ctx, id, dto.CompleteMilestoneDTO{})
	s.Require().NoError(err)
	published := len(s.publisher.actions())

	s.repo.failOn = "sum:escrow_milestones"
	_, err = s.svc.ApproveMilestone(s.ctx, id, dto.ApproveMilestoneDTO{})
	s.ErrorIs(err, apperrors.ErrDatabase)
	s.Len(s.publisher.actions(), published, "nothing is announced when the transaction fails")
}

func (s *EscrowServiceSuite) TestRejectMilestone() {
	detail := s.newDeposit(dto.CreateMilestoneDTO{Title: "Design", Amount: decimal.NewFromInt(1000), Percentage: 100})
	id := detail.Milestones[0].ID()

	_, err := s.svc.RejectMilestone(s.ctx, id, dto.RejectMilestoneDTO{Reason: "   "})
	s.ErrorIs(err, apperrors.ErrValidation)

	_, err = s.svc.RejectMilestone(s.ctx, id, dto.RejectMilestoneDTO{Reason: "missing assets"})
	s.ErrorIs(err, apperrors.ErrValidation, "pending milestones cannot be rejected")

	_, err = s.svc.CompleteMilestone(s.ctx, id, dto.CompleteMilestoneDTO{})
	s.Require().NoError(err)
	rejected, err := s.svc.RejectMilestone(s.ctx, id, dto.RejectMilestoneDTO{Reason: "missing assets"})
	s.Require().NoError(err)
	s.Equal(constants.MilestoneStatusRejected, rejected.String("status"))
	s.Equal("missing assets", rejected.String("rejection_reason"))
}

func (s *EscrowServiceSuite) TestStatusCountsAndTotal() {
	s.newDeposit()
	s.activate(s.newDeposit().Deposit.ID())

	counts, err := s.svc.StatusCounts(s.ctx)
	s.Require().NoError(err)
	s.Len(counts, len(constants.EscrowStatuses))
	s.EqualValues(1, counts[constants.EscrowStatusPending])
	s.EqualValues(1, counts[constants.EscrowStatusActive])
	s.EqualValues(0, counts[constants.EscrowStatusRefunded])

	total, err := s.svc.TotalValue(s.ctx)
	s.Require().NoError(err)
	s.Equal("2000.00", total.Total.StringFixed(2))

	other, err := s.svc.TotalValue(authed(uuid.New()))
	s.Require().NoError(err)
	s.True(other.Total.IsZero())
}
