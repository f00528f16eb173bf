package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aarondl/null/v8"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"freeflow/internal/dto"
	"freeflow/internal/entities"
	"freeflow/internal/events"
	"freeflow/internal/repositories"
	"freeflow/internal/resources"
	"freeflow/pkg/constants"
	apperrors "freeflow/pkg/errors"
	"freeflow/pkg/types"
	"freeflow/pkg/utils"
)

const (
	resourceEscrowDeposits     = "escrow_deposits"
	resourceEscrowMilestones   = "escrow_milestones"
	resourceEscrowTransactions = "escrow_transactions"
	resourceEscrowFees         = "escrow_fees"
)

var (
	platformFeePercentage = decimal.NewFromInt(3)
	withdrawalFee         = decimal.NewFromInt(50)
	defaultPaymentPercent = decimal.NewFromInt(2)

	paymentFeePercentages = map[string]decimal.Decimal{
		"stripe":        decimal.RequireFromString("2.9"),
		"credit_card":   decimal.RequireFromString("2.9"),
		"paypal":        decimal.RequireFromString("3.49"),
		"bank_transfer": decimal.NewFromInt(1),
		"wire_transfer": decimal.NewFromInt(1),
		"crypto":        decimal.RequireFromString("1.5"),
	}

	hundred = decimal.NewFromInt(100)
)

// escrowTransitions lists the statuses UpdateStatus may move a deposit to.
// released is only reachable through ReleaseFunds.
var escrowTransitions = map[string][]string{
	constants.EscrowStatusPending:  {constants.EscrowStatusActive, constants.EscrowStatusCancelled},
	constants.EscrowStatusActive:   {constants.EscrowStatusCompleted, constants.EscrowStatusDisputed, constants.EscrowStatusCancelled},
	constants.EscrowStatusDisputed: {constants.EscrowStatusActive, constants.EscrowStatusRefunded, constants.EscrowStatusCancelled},
}

var escrowStatusStamps = map[string]string{
	constants.EscrowStatusCompleted: "completed_at",
	constants.EscrowStatusCancelled: "cancelled_at",
}

type EscrowServiceInterface interface {
	CalculateFees(amount decimal.Decimal, paymentMethod string) (*dto.EscrowFeesDTO, error)
	CreateDeposit(ctx context.Context, d dto.CreateEscrowDepositDTO) (*dto.EscrowDepositDetailDTO, error)
	GetDeposit(ctx context.Context, id string) (*dto.EscrowDepositDetailDTO, error)
	UpdateStatus(ctx context.Context, id string, d dto.UpdateEscrowStatusDTO) (entities.Record, error)
	ReleaseFunds(ctx context.Context, id string, d dto.ReleaseFundsDTO) (*dto.ReleaseResultDTO, error)
	CompleteMilestone(ctx context.Context, id string, d dto.CompleteMilestoneDTO) (entities.Record, error)
	ApproveMilestone(ctx context.Context, id string, d dto.ApproveMilestoneDTO) (entities.Record, error)
	RejectMilestone(ctx context.Context, id string, d dto.RejectMilestoneDTO) (entities.Record, error)
	StatusCounts(ctx context.Context) (map[string]int64, error)
	TotalValue(ctx context.Context) (*dto.EscrowTotalDTO, error)
}

type EscrowService struct {
	*BaseService
	txManager    repositories.TxManagerInterface
	repo         repositories.RecordRepositoryInterface
	changes      *recordChanges
	deposits     *resources.Definition
	milestones   *resources.Definition
	transactions *resources.Definition
	fees         *resources.Definition
}

func NewEscrowService(
	txManager repositories.TxManagerInterface,
	registry *resources.Registry,
	repo repositories.RecordRepositoryInterface,
	cache repositories.CacheRepositoryInterface,
	publisher EventPublisher,
	logger *zap.Logger,
) (*EscrowService, error) {
	s := &EscrowService{
		BaseService: NewBaseService(cache, logger),
		txManager:   txManager,
		repo:        repo,
	}
	s.changes = newRecordChanges(s.BaseService, publisher)

	for name, dst := range map[string]**resources.Definition{
		resourceEscrowDeposits:     &s.deposits,
		resourceEscrowMilestones:   &s.milestones,
		resourceEscrowTransactions: &s.transactions,
		resourceEscrowFees:         &s.fees,
	} {
		def, err := registry.Get(name)
		if err != nil {
			return nil, fmt.Errorf("escrow service: %w", err)
		}
		*dst = def
	}
	return s, nil
}

// CalculateFees returns the fee breakdown for an amount. Every fee is
// rounded to cents.
func (s *EscrowService) CalculateFees(amount decimal.Decimal, paymentMethod string) (*dto.EscrowFeesDTO, error) {
	if !amount.IsPositive() {
		return nil, apperrors.NewInvalidInputError("amount must be greater than zero")
	}
	paymentPercentage, ok := paymentFeePercentages[paymentMethod]
	if !ok {
		paymentPercentage = defaultPaymentPercent
	}

	platformFee := amount.Mul(platformFeePercentage).Div(hundred).Round(2)
	paymentFee := amount.Mul(paymentPercentage).Div(hundred).Round(2)
	total := platformFee.Add(paymentFee).Add(withdrawalFee)

	return &dto.EscrowFeesDTO{
		Amount:             amount,
		PlatformFee:        platformFee,
		PlatformPercentage: platformFeePercentage,
		PaymentFee:         paymentFee,
		PaymentPercentage:  paymentPercentage,
		WithdrawalFee:      withdrawalFee,
		TotalFees:          total,
		NetAmount:          amount.Sub(total),
	}, nil
}

func (s *EscrowService) CreateDeposit(ctx context.Context, d dto.CreateEscrowDepositDTO) (*dto.EscrowDepositDetailDTO, error) {
	userID, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	fees, err := s.CalculateFees(d.Amount, d.PaymentMethod)
	if err != nil {
		return nil, err
	}
	hashed, err := utils.HashSecret(d.CompletionPassword)
	if err != nil {
		return nil, err
	}

	owner := userID.String()
	depositID := uuid.NewString()
	deposit := map[string]interface{}{
		resources.ColumnID:     depositID,
		s.deposits.OwnerColumn: owner,
		"project_title":        d.ProjectTitle,
		"project_description":  nullableString(d.ProjectDescription),
		"client_name":          d.ClientName,
		"client_email":         strings.ToLower(d.ClientEmail),
		"client_id":            nullableString(d.ClientID),
		"amount":               d.Amount,
		"currency":             d.Currency,
		"payment_method":       d.PaymentMethod,
		"completion_password":  hashed,
		"notes":                nullableString(d.Notes),
		"status":               constants.EscrowStatusPending,
		"progress_percentage":  0,
	}

	result := &dto.EscrowDepositDetailDTO{}
	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		created, err := s.repo.Create(ctx, tx, s.deposits, deposit)
		if err != nil {
			return err
		}
		result.Deposit = created

		result.Fees, err = s.repo.Create(ctx, tx, s.fees, map[string]interface{}{
			resources.ColumnID:    uuid.NewString(),
			s.fees.OwnerColumn:    owner,
			"deposit_id":          depositID,
			"platform_fee":        fees.PlatformFee,
			"platform_percentage": fees.PlatformPercentage,
			"payment_fee":         fees.PaymentFee,
			"payment_percentage":  fees.PaymentPercentage,
			"withdrawal_fee":      fees.WithdrawalFee,
			"total_fees":          fees.TotalFees,
			"currency":            d.Currency,
		})
		if err != nil {
			return err
		}

		result.Milestones = make([]entities.Record, 0, len(d.Milestones))
		for _, m := range d.Milestones {
			values := map[string]interface{}{
				resources.ColumnID:       uuid.NewString(),
				s.milestones.OwnerColumn: owner,
				"deposit_id":             depositID,
				"title":                  m.Title,
				"description":            nullableString(m.Description),
				"amount":                 m.Amount,
				"percentage":             int64(m.Percentage),
				"status":                 constants.MilestoneStatusPending,
				"deliverables":           nonNilStrings(m.Deliverables),
			}
			if m.DueDate.Valid {
				due, err := s.milestones.Coerce("due_date", m.DueDate.String)
				if err != nil {
					return err
				}
				values["due_date"] = due
			}
			milestone, err := s.repo.Create(ctx, tx, s.milestones, values)
			if err != nil {
				return err
			}
			result.Milestones = append(result.Milestones, milestone)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("create escrow deposit failed", zap.String("user_id", owner), zap.Error(err))
		return nil, err
	}

	s.logger.Info("escrow deposit created",
		zap.String("id", depositID),
		zap.String("amount", d.Amount.String()),
		zap.Int("milestones", len(result.Milestones)),
	)
	s.changes.notify(ctx, s.deposits.Name, events.ActionInsert, userID, result.Deposit, nil)
	s.changes.notify(ctx, s.fees.Name, events.ActionInsert, userID, result.Fees, nil)
	for _, m := range result.Milestones {
		s.changes.notify(ctx, s.milestones.Name, events.ActionInsert, userID, m, nil)
	}
	return result, nil
}

func (s *EscrowService) GetDeposit(ctx context.Context, id string) (*dto.EscrowDepositDetailDTO, error) {
	userID, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateID(id); err != nil {
		return nil, err
	}
	scope := repositories.OwnedBy(userID)

	deposit, err := s.repo.FindByID(ctx, nil, s.deposits, scope, id, false)
	if err != nil {
		return nil, err
	}
	fees, err := s.depositFees(ctx, nil, scope, id)
	if err != nil {
		return nil, err
	}
	milestones, err := s.repo.FindAll(ctx, nil, s.milestones, scope.WithEq("deposit_id", id))
	if err != nil {
		return nil, err
	}
	return &dto.EscrowDepositDetailDTO{Deposit: deposit, Fees: fees, Milestones: milestones}, nil
}

// depositFees returns the fee row of a deposit, or nil when there is none.
func (s *EscrowService) depositFees(ctx context.Context, tx pgx.Tx, scope repositories.Scope, depositID string) (entities.Record, error) {
	rows, err := s.repo.FindAll(ctx, tx, s.fees, scope.WithEq("deposit_id", depositID))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func canTransition(from, to string) bool {
	for _, next := range escrowTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s *EscrowService) UpdateStatus(ctx context.Context, id string, d dto.UpdateEscrowStatusDTO) (entities.Record, error) {
	userID, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateID(id); err != nil {
		return nil, err
	}
	scope := repositories.OwnedBy(userID)

	var previous, updated entities.Record
	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		current, err := s.repo.FindByID(ctx, tx, s.deposits, scope, id, true)
		if err != nil {
			return err
		}
		previous = current

		from := current.String("status")
		if from == d.Status {
			return apperrors.NewInvalidInputError("deposit is already %s", from)
		}
		if d.Status == constants.EscrowStatusReleased {
			return apperrors.NewInvalidInputError("funds are released with the completion password through the release endpoint")
		}
		if !canTransition(from, d.Status) {
			return apperrors.NewInvalidInputError("cannot change deposit status from %s to %s", from, d.Status)
		}

		values := map[string]interface{}{"status": d.Status}
		if col, ok := escrowStatusStamps[d.Status]; ok {
			values[col] = s.changes.now().UTC()
		}
		if d.Status == constants.EscrowStatusDisputed && d.Reason.Valid {
			values["dispute_reason"] = d.Reason.String
		}
		updated, err = s.repo.Update(ctx, tx, s.deposits, scope, id, values)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("escrow status changed",
		zap.String("id", id),
		zap.String("from", previous.String("status")),
		zap.String("to", d.Status),
	)
	s.changes.notify(ctx, s.deposits.Name, events.ActionUpdate, userID, updated, previous)
	return updated, nil
}

// ReleaseFunds verifies the completion password and releases an active
// deposit, recording a completed release transaction.
func (s *EscrowService) ReleaseFunds(ctx context.Context, id string, d dto.ReleaseFundsDTO) (*dto.ReleaseResultDTO, error) {
	userID, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateID(id); err != nil {
		return nil, err
	}
	scope := repositories.OwnedBy(userID)

	var previous entities.Record
	result := &dto.ReleaseResultDTO{}
	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		deposit, err := s.repo.FindByID(ctx, tx, s.deposits, scope, id, true)
		if err != nil {
			return err
		}
		previous = deposit

		hashed, err := s.repo.FindColumn(ctx, tx, s.deposits, scope, id, "completion_password")
		if err != nil {
			return err
		}
		hash, _ := hashed.(string)
		if !utils.SecretMatches(hash, d.CompletionPassword) {
			return apperrors.NewHttpError(http.StatusForbidden, "invalid completion password", apperrors.ErrForbidden,
				map[string]interface{}{"deposit_id": id})
		}
		if deposit.String("status") != constants.EscrowStatusActive {
			return apperrors.NewInvalidInputError("deposit must be active to release funds")
		}

		now := s.changes.now().UTC()
		result.Deposit, err = s.repo.Update(ctx, tx, s.deposits, scope, id, map[string]interface{}{
			"status":      constants.EscrowStatusReleased,
			"released_at": now,
		})
		if err != nil {
			return err
		}

		amount := deposit.Decimal("amount")
		fees := decimal.Zero
		feeRow, err := s.depositFees(ctx, tx, scope, id)
		if err != nil {
			return err
		}
		if feeRow != nil {
			fees = feeRow.Decimal("total_fees")
		}

		result.Transaction, err = s.repo.Create(ctx, tx, s.transactions, map[string]interface{}{
			resources.ColumnID:         uuid.NewString(),
			s.transactions.OwnerColumn: userID.String(),
			"deposit_id":               id,
			"type":                     constants.EscrowTransactionRelease,
			"amount":                   amount,
			"fees":                     fees,
			"net_amount":               amount.Sub(fees),
			"currency":                 deposit.String("currency"),
			"payment_method":           deposit.String("payment_method"),
			"status":                   constants.EscrowTransactionStatusCompleted,
			"description":              "Funds released from escrow",
			"completed_at":             now,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrForbidden) {
			s.logger.Warn("escrow release rejected", zap.String("id", id), zap.String("user_id", userID.String()))
		}
		return nil, err
	}

	s.logger.Info("escrow funds released", zap.String("id", id), zap.String("transaction_id", result.Transaction.ID()))
	s.changes.notify(ctx, s.deposits.Name, events.ActionUpdate, userID, result.Deposit, previous)
	s.changes.notify(ctx, s.transactions.Name, events.ActionInsert, userID, result.Transaction, nil)
	return result, nil
}

// updateMilestone moves a milestone to status when its current status is one
// of allowed. The status guard is repeated in the update so a concurrent
// change surfaces as a conflict. then runs in the same transaction.
func (s *EscrowService) updateMilestone(
	ctx context.Context,
	userID uuid.UUID,
	id, status string,
	allowed []string,
	values map[string]interface{},
	then func(tx pgx.Tx, updated entities.Record) error,
) (entities.Record, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	scope := repositories.OwnedBy(userID)

	var current, updated entities.Record
	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		var err error
		current, err = s.repo.FindByID(ctx, tx, s.milestones, scope, id, false)
		if err != nil {
			return err
		}
		from := current.String("status")
		if !containsString(allowed, from) {
			return apperrors.NewInvalidInputError("cannot move milestone from %s to %s", from, status)
		}

		values["status"] = status
		guarded := scope
		guarded.Where = []types.Condition{{Column: "status", Operator: types.OpIn, Value: strings.Join(allowed, ",")}}
		updated, err = s.repo.Update(ctx, tx, s.milestones, guarded, id, values)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return fmt.Errorf("milestone %s changed concurrently: %w", id, apperrors.ErrConflict)
			}
			return err
		}
		if then != nil {
			return then(tx, updated)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.changes.notify(ctx, s.milestones.Name, events.ActionUpdate, userID, updated, current)
	return updated, nil
}

func (s *EscrowService) CompleteMilestone(ctx context.Context, id string, d dto.CompleteMilestoneDTO) (entities.Record, error) {
	userID, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	values := map[string]interface{}{"completed_at": s.changes.now().UTC()}
	if d.Deliverables != nil {
		values["deliverables"] = d.Deliverables
	}
	return s.updateMilestone(ctx, userID, id, constants.MilestoneStatusCompleted,
		[]string{constants.MilestoneStatusPending, constants.MilestoneStatusInProgress}, values, nil)
}

// ApproveMilestone approves a completed milestone and recomputes the
// deposit progress from the approved percentages in the same transaction.
func (s *EscrowService) ApproveMilestone(ctx context.Context, id string, d dto.ApproveMilestoneDTO) (entities.Record, error) {
	userID, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	var previousDeposit, deposit entities.Record
	updated, err := s.updateMilestone(ctx, userID, id, constants.MilestoneStatusApproved,
		[]string{constants.MilestoneStatusCompleted},
		map[string]interface{}{
			"approved_at":    s.changes.now().UTC(),
			"approval_notes": nullableString(d.Notes),
		},
		func(tx pgx.Tx, milestone entities.Record) error {
			var err error
			previousDeposit, deposit, err = s.refreshProgress(ctx, tx, userID, milestone.String("deposit_id"))
			return err
		})
	if err != nil {
		return nil, err
	}
	s.changes.notify(ctx, s.deposits.Name, events.ActionUpdate, userID, deposit, previousDeposit)
	return updated, nil
}

func (s *EscrowService) RejectMilestone(ctx context.Context, id string, d dto.RejectMilestoneDTO) (entities.Record, error) {
	userID, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(d.Reason) == "" {
		return nil, apperrors.NewInvalidInputError("rejection reason is required")
	}
	return s.updateMilestone(ctx, userID, id, constants.MilestoneStatusRejected,
		[]string{constants.MilestoneStatusCompleted, constants.MilestoneStatusInProgress},
		map[string]interface{}{
			"rejected_at":      s.changes.now().UTC(),
			"rejection_reason": d.Reason,
		}, nil)
}

// refreshProgress locks the deposit row, so concurrent approvals on one
// deposit sum the approved percentages one after the other.
func (s *EscrowService) refreshProgress(ctx context.Context, tx pgx.Tx, userID uuid.UUID, depositID string) (entities.Record, entities.Record, error) {
	scope := repositories.OwnedBy(userID)
	previous, err := s.repo.FindByID(ctx, tx, s.deposits, scope, depositID, true)
	if err != nil {
		return nil, nil, err
	}

	approved := scope.
		WithEq("deposit_id", depositID).
		WithEq("status", constants.MilestoneStatusApproved)
	sums, err := s.repo.SumBy(ctx, tx, s.milestones, approved, "percentage", "")
	if err != nil {
		return nil, nil, err
	}
	progress := sums["total"].IntPart()
	if progress > 100 {
		progress = 100
	}

	updated, err := s.repo.Update(ctx, tx, s.deposits, scope, depositID,
		map[string]interface{}{"progress_percentage": progress})
	if err != nil {
		return nil, nil, err
	}
	return previous, updated, nil
}

// StatusCounts reports every deposit status, zero when unused.
func (s *EscrowService) StatusCounts(ctx context.Context) (map[string]int64, error) {
	userID, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.repo.CountBy(ctx, s.deposits, repositories.OwnedBy(userID), "status")
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(constants.EscrowStatuses))
	for _, status := range constants.EscrowStatuses {
		out[status] = counts[status]
	}
	return out, nil
}

func (s *EscrowService) TotalValue(ctx context.Context) (*dto.EscrowTotalDTO, error) {
	userID, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	sums, err := s.repo.SumBy(ctx, nil, s.deposits, repositories.OwnedBy(userID), "amount", "")
	if err != nil {
		return nil, err
	}
	return &dto.EscrowTotalDTO{Total: sums["total"]}, nil
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func nullableString(v null.String) interface{} {
	if !v.Valid {
		return nil
	}
	return v.String
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

var _ EscrowServiceInterface = (*EscrowService)(nil)
