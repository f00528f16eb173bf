package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
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
)

const (
	resourceInvoices = "invoices"

	invoicePaymentTerm = 14 * 24 * time.Hour
)

type InvoiceServiceInterface interface {
	Create(ctx context.Context, d dto.CreateInvoiceDTO) (entities.Record, error)
	Send(ctx context.Context, id string) (entities.Record, error)
	MarkPaid(ctx context.Context, id string) (entities.Record, error)
	Summary(ctx context.Context) (*dto.InvoiceSummaryDTO, error)
	SweepOverdue(ctx context.Context) (int, error)
}

type InvoiceService struct {
	*BaseService
	repo     repositories.RecordRepositoryInterface
	changes  *recordChanges
	invoices *resources.Definition
}

func NewInvoiceService(
	registry *resources.Registry,
	repo repositories.RecordRepositoryInterface,
	cache repositories.CacheRepositoryInterface,
	publisher EventPublisher,
	logger *zap.Logger,
) (*InvoiceService, error) {
	def, err := registry.Get(resourceInvoices)
	if err != nil {
		return nil, fmt.Errorf("invoice service: %w", err)
	}
	base := NewBaseService(cache, logger)
	return &InvoiceService{
		BaseService: base,
		repo:        repo,
		changes:     newRecordChanges(base, publisher),
		invoices:    def,
	}, nil
}

// CalculateInvoiceTotals prices the line items in place and returns the
// invoice totals. Amounts are rounded half-up to cents.
func CalculateInvoiceTotals(items []dto.InvoiceItemDTO, taxRate, discount decimal.Decimal) (dto.InvoiceTotalsDTO, error) {
	if len(items) == 0 {
		return dto.InvoiceTotalsDTO{}, apperrors.NewInvalidInputError("an invoice needs at least one item")
	}
	if taxRate.IsNegative() || taxRate.GreaterThan(hundred) {
		return dto.InvoiceTotalsDTO{}, apperrors.NewInvalidInputError("tax rate must be between 0 and 100")
	}
	if discount.IsNegative() {
		return dto.InvoiceTotalsDTO{}, apperrors.NewInvalidInputError("discount cannot be negative")
	}

	subtotal := decimal.Zero
	for i := range items {
		item := &items[i]
		if !item.Quantity.IsPositive() {
			return dto.InvoiceTotalsDTO{}, apperrors.NewInvalidInputError("item %d: quantity must be greater than zero", i+1)
		}
		if item.Rate.IsNegative() {
			return dto.InvoiceTotalsDTO{}, apperrors.NewInvalidInputError("item %d: rate cannot be negative", i+1)
		}
		item.Amount = item.Quantity.Mul(item.Rate).Round(2)
		subtotal = subtotal.Add(item.Amount)
	}

	tax := subtotal.Mul(taxRate).Div(hundred).Round(2)
	discount = discount.Round(2)
	total := subtotal.Add(tax).Sub(discount)
	if total.IsNegative() {
		return dto.InvoiceTotalsDTO{}, apperrors.NewInvalidInputError("discount exceeds the invoice amount")
	}
	return dto.InvoiceTotalsDTO{Subtotal: subtotal, TaxAmount: tax, Discount: discount, Total: total}, nil
}

// newInvoiceNumber renders INV-YYYYMM-XXXXXXXX.
func newInvoiceNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("INV-%s-%s", now.Format("200601"), suffix)
}

func (s *InvoiceService) Create(ctx context.Context, d dto.CreateInvoiceDTO) (entities.Record, error) {
	userID, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	totals, err := CalculateInvoiceTotals(d.Items, d.TaxRate, d.Discount)
	if err != nil {
		return nil, err
	}
	items, err := json.Marshal(d.Items)
	if err != nil {
		return nil, fmt.Errorf("encode invoice items: %w", err)
	}

	now := s.changes.now().UTC()
	issue := now.Truncate(24 * time.Hour)
	if d.IssueDate.Valid {
		if issue, err = parseDate("issue_date", d.IssueDate.String); err != nil {
			return nil, err
		}
	}
	due := issue.Add(invoicePaymentTerm)
	if d.DueDate.Valid {
		if due, err = parseDate("due_date", d.DueDate.String); err != nil {
			return nil, err
		}
	}
	if due.Before(issue) {
		return nil, apperrors.NewInvalidInputError("due date is before the issue date")
	}

	values := map[string]interface{}{
		resources.ColumnID:     uuid.NewString(),
		s.invoices.OwnerColumn: userID.String(),
		"invoice_number":       newInvoiceNumber(now),
		"client_name":          d.ClientName,
		"client_email":         nullableString(d.ClientEmail),
		"client_id":            nullableString(d.ClientID),
		"project_id":           nullableString(d.ProjectID),
		"currency":             d.Currency,
		"status":               constants.InvoiceStatusDraft,
		"items":                json.RawMessage(items),
		"subtotal":             totals.Subtotal,
		"tax_rate":             d.TaxRate,
		"tax_amount":           totals.TaxAmount,
		"discount":             totals.Discount,
		"total_amount":         totals.Total,
		"issue_date":           issue,
		"due_date":             due,
		"notes":                nullableString(d.Notes),
	}

	record, err := s.repo.Create(ctx, nil, s.invoices, values)
	if err != nil {
		s.logger.Error("create invoice failed", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, err
	}
	s.logger.Info("invoice created",
		zap.String("id", record.ID()),
		zap.String("number", record.String("invoice_number")),
		zap.String("total", totals.Total.String()),
	)
	s.changes.notify(ctx, s.invoices.Name, events.ActionInsert, userID, record, nil)
	return record, nil
}

func parseDate(column, value string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, apperrors.NewInvalidInputError("%s must be a date (YYYY-MM-DD)", column)
	}
	return t, nil
}

// transition moves one invoice of the caller to a new status.
func (s *InvoiceService) transition(ctx context.Context, id string, check func(status string) error, values map[string]interface{}) (entities.Record, error) {
	userID, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateID(id); err != nil {
		return nil, err
	}
	scope := repositories.OwnedBy(userID)

	current, err := s.repo.FindByID(ctx, nil, s.invoices, scope, id, false)
	if err != nil {
		return nil, err
	}
	if err := check(current.String("status")); err != nil {
		return nil, err
	}

	guarded := scope.WithEq("status", current.String("status"))
	updated, err := s.repo.Update(ctx, nil, s.invoices, guarded, id, values)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("invoice %s changed concurrently: %w", id, apperrors.ErrConflict)
		}
		return nil, err
	}
	s.changes.notify(ctx, s.invoices.Name, events.ActionUpdate, userID, updated, current)
	return updated, nil
}

func (s *InvoiceService) Send(ctx context.Context, id string) (entities.Record, error) {
	return s.transition(ctx, id, func(status string) error {
		if status != constants.InvoiceStatusDraft {
			return apperrors.NewInvalidInputError("only draft invoices can be sent, invoice is %s", status)
		}
		return nil
	}, map[string]interface{}{
		"status":  constants.InvoiceStatusSent,
		"sent_at": s.changes.now().UTC(),
	})
}

func (s *InvoiceService) MarkPaid(ctx context.Context, id string) (entities.Record, error) {
	return s.transition(ctx, id, func(status string) error {
		switch status {
		case constants.InvoiceStatusPaid:
			return fmt.Errorf("invoice %s is already paid: %w", id, apperrors.ErrConflict)
		case constants.InvoiceStatusCancelled:
			return apperrors.NewInvalidInputError("cancelled invoices cannot be paid")
		}
		return nil
	}, map[string]interface{}{
		"status":  constants.InvoiceStatusPaid,
		"paid_at": s.changes.now().UTC(),
	})
}

// Summary totals the caller's invoices by status.
func (s *InvoiceService) Summary(ctx context.Context) (*dto.InvoiceSummaryDTO, error) {
	userID, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	scope := repositories.OwnedBy(userID)

	sums, err := s.repo.SumBy(ctx, nil, s.invoices, scope, "total_amount", "status")
	if err != nil {
		return nil, err
	}
	counts, err := s.repo.CountBy(ctx, s.invoices, scope, "status")
	if err != nil {
		return nil, err
	}

	summary := &dto.InvoiceSummaryDTO{
		ByStatus: make(map[string]decimal.Decimal),
		Counts:   make(map[string]int64),
		Total:    decimal.Zero,
	}
	for _, status := range []string{
		constants.InvoiceStatusDraft,
		constants.InvoiceStatusSent,
		constants.InvoiceStatusPaid,
		constants.InvoiceStatusOverdue,
		constants.InvoiceStatusCancelled,
	} {
		summary.ByStatus[status] = sums[status]
		summary.Counts[status] = counts[status]
	}
	for status, sum := range sums {
		summary.ByStatus[status] = sum
		summary.Total = summary.Total.Add(sum)
	}
	for status, n := range counts {
		summary.Counts[status] = n
	}
	return summary, nil
}

// SweepOverdue marks every sent invoice whose due date has passed as
// overdue. It runs without a caller and touches all owners.
func (s *InvoiceService) SweepOverdue(ctx context.Context) (int, error) {
	today := s.changes.now().UTC().Format("2006-01-02")
	scope := repositories.Scope{
		Where: []types.Condition{
			{Column: "status", Operator: types.OpEq, Value: constants.InvoiceStatusSent},
			{Column: "due_date", Operator: types.OpLt, Value: today},
		},
	}

	updated, err := s.repo.UpdateWhere(ctx, nil, s.invoices, scope, map[string]interface{}{
		"status": constants.InvoiceStatusOverdue,
	})
	if err != nil {
		s.logger.Error("overdue sweep failed", zap.Error(err))
		return 0, err
	}

	for _, record := range updated {
		owner, err := uuid.Parse(record.String(s.invoices.OwnerColumn))
		if err != nil {
			s.logger.Warn("overdue invoice without owner", zap.String("id", record.ID()))
			continue
		}
		previous := make(entities.Record, len(record))
		for k, v := range record {
			previous[k] = v
		}
		previous["status"] = constants.InvoiceStatusSent
		s.changes.notify(ctx, s.invoices.Name, events.ActionUpdate, owner, record, previous)
	}
	if len(updated) > 0 {
		s.logger.Info("invoices marked overdue", zap.Int("count", len(updated)), zap.String("before", today))
	}
	return len(updated), nil
}

var _ InvoiceServiceInterface = (*InvoiceService)(nil)
