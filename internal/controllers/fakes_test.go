package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"freeflow/internal/dto"
	"freeflow/internal/entities"
	"freeflow/internal/resources"
	apperrors "freeflow/pkg/errors"
	"freeflow/pkg/types"
	"freeflow/pkg/validation"
)

type fakeRecords struct {
	lastResource string
	lastID       string
	lastFilter   types.Filter
	lastPayload  map[string]interface{}
	record       entities.Record
	list         *dto.ListResult
	err          error
}

func (f *fakeRecords) Catalog() []resources.Meta {
	return []resources.Meta{{Name: "projects"}}
}

func (f *fakeRecords) List(_ context.Context, resource string, filter types.Filter) (*dto.ListResult, error) {
	f.lastResource, f.lastFilter = resource, filter
	return f.list, f.err
}

func (f *fakeRecords) Get(_ context.Context, resource, id string) (entities.Record, error) {
	f.lastResource, f.lastID = resource, id
	return f.record, f.err
}

func (f *fakeRecords) Create(_ context.Context, resource string, payload map[string]interface{}) (entities.Record, error) {
	f.lastResource, f.lastPayload = resource, payload
	return f.record, f.err
}

func (f *fakeRecords) Update(_ context.Context, resource, id string, patch map[string]interface{}) (entities.Record, error) {
	f.lastResource, f.lastID, f.lastPayload = resource, id, patch
	return f.record, f.err
}

func (f *fakeRecords) Delete(_ context.Context, resource, id string) (entities.Record, error) {
	f.lastResource, f.lastID = resource, id
	return f.record, f.err
}

func (f *fakeRecords) Restore(_ context.Context, resource, id string) (entities.Record, error) {
	f.lastResource, f.lastID = resource, id
	return f.record, f.err
}

func (f *fakeRecords) Stats(_ context.Context, resource, column string) (*dto.RecordStats, error) {
	f.lastResource = resource
	if f.err != nil {
		return nil, f.err
	}
	return &dto.RecordStats{Column: column, Counts: map[string]int64{"active": 2}, Total: 2}, nil
}

type fakeExports struct {
	err error
}

func (f *fakeExports) Export(_ context.Context, resource string, _ types.Filter) (*excelize.File, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	wb := excelize.NewFile()
	if err := wb.SetSheetRow("Sheet1", "A1", &[]interface{}{"id", "title"}); err != nil {
		return nil, "", err
	}
	return wb, resource + "_2026-03-10.xlsx", nil
}

type fakeEscrow struct {
	created       *dto.CreateEscrowDepositDTO
	released      string
	statusUpdates []string
	err           error
}

func (f *fakeEscrow) CalculateFees(amount decimal.Decimal, _ string) (*dto.EscrowFeesDTO, error) {
	return &dto.EscrowFeesDTO{Amount: amount, NetAmount: amount}, f.err
}

func (f *fakeEscrow) CreateDeposit(_ context.Context, d dto.CreateEscrowDepositDTO) (*dto.EscrowDepositDetailDTO, error) {
	f.created = &d
	if f.err != nil {
		return nil, f.err
	}
	return &dto.EscrowDepositDetailDTO{Deposit: entities.Record{"id": "dep-1"}, Milestones: []entities.Record{}}, nil
}

func (f *fakeEscrow) GetDeposit(_ context.Context, id string) (*dto.EscrowDepositDetailDTO, error) {
	return &dto.EscrowDepositDetailDTO{Deposit: entities.Record{"id": id}}, f.err
}

func (f *fakeEscrow) UpdateStatus(_ context.Context, id string, d dto.UpdateEscrowStatusDTO) (entities.Record, error) {
	f.statusUpdates = append(f.statusUpdates, d.Status)
	return entities.Record{"id": id, "status": d.Status}, f.err
}

func (f *fakeEscrow) ReleaseFunds(_ context.Context, id string, _ dto.ReleaseFundsDTO) (*dto.ReleaseResultDTO, error) {
	f.released = id
	if f.err != nil {
		return nil, f.err
	}
	return &dto.ReleaseResultDTO{Deposit: entities.Record{"id": id, "status": "released"}}, nil
}

func (f *fakeEscrow) CompleteMilestone(_ context.Context, id string, _ dto.CompleteMilestoneDTO) (entities.Record, error) {
	return entities.Record{"id": id, "status": "completed"}, f.err
}

func (f *fakeEscrow) ApproveMilestone(_ context.Context, id string, _ dto.ApproveMilestoneDTO) (entities.Record, error) {
	return entities.Record{"id": id, "status": "approved"}, f.err
}

func (f *fakeEscrow) RejectMilestone(_ context.Context, id string, _ dto.RejectMilestoneDTO) (entities.Record, error) {
	return entities.Record{"id": id, "status": "rejected"}, f.err
}

func (f *fakeEscrow) StatusCounts(context.Context) (map[string]int64, error) {
	return map[string]int64{"pending": 1, "active": 0}, f.err
}

func (f *fakeEscrow) TotalValue(context.Context) (*dto.EscrowTotalDTO, error) {
	return &dto.EscrowTotalDTO{Total: decimal.RequireFromString("1500.50")}, f.err
}

type fakeInvoices struct {
	created *dto.CreateInvoiceDTO
	err     error
}

func (f *fakeInvoices) Create(_ context.Context, d dto.CreateInvoiceDTO) (entities.Record, error) {
	f.created = &d
	return entities.Record{"id": "inv-1", "status": "draft"}, f.err
}

func (f *fakeInvoices) Send(_ context.Context, id string) (entities.Record, error) {
	return entities.Record{"id": id, "status": "sent"}, f.err
}

func (f *fakeInvoices) MarkPaid(_ context.Context, id string) (entities.Record, error) {
	return entities.Record{"id": id, "status": "paid"}, f.err
}

func (f *fakeInvoices) Summary(context.Context) (*dto.InvoiceSummaryDTO, error) {
	return &dto.InvoiceSummaryDTO{Counts: map[string]int64{"draft": 1}}, f.err
}

func (f *fakeInvoices) SweepOverdue(context.Context) (int, error) { return 0, f.err }

type fakeNotifications struct {
	marked int
	err    error
}

func (f *fakeNotifications) Notify(context.Context, uuid.UUID, dto.NotificationDTO) (entities.Record, error) {
	return nil, f.err
}

func (f *fakeNotifications) MarkAllRead(context.Context) (int, error) {
	return f.marked, f.err
}

var errBoom = apperrors.NewHttpError(http.StatusInternalServerError, "boom", nil, nil)

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = validation.New()
	return e
}

// call runs one request against a handler bound to path.
func call(t *testing.T, method, path, target, body string, h echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := newEcho()
	e.Add(method, path, h)

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    apperrors.Code  `json:"code"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}
