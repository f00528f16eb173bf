package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	internaldto "freeflow/internal/dto"
	"freeflow/internal/entities"
	"freeflow/pkg/metrics"
)

type fakeInvoices struct {
	swept int
	err   error
	calls int
}

func (f *fakeInvoices) Create(context.Context, internaldto.CreateInvoiceDTO) (entities.Record, error) {
	return nil, nil
}
func (f *fakeInvoices) Send(context.Context, string) (entities.Record, error)     { return nil, nil }
func (f *fakeInvoices) MarkPaid(context.Context, string) (entities.Record, error) { return nil, nil }
func (f *fakeInvoices) Summary(context.Context) (*internaldto.InvoiceSummaryDTO, error) {
	return nil, nil
}

func (f *fakeInvoices) SweepOverdue(ctx context.Context) (int, error) {
	f.calls++
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("expected a deadline")
	}
	return f.swept, f.err
}

type countingSweeper struct{ n int }

func (s *countingSweeper) Sweep() { s.n++ }

func runs(t *testing.T, job, outcome string) float64 {
	t.Helper()
	var m dto.Metric
	c, err := metrics.JobRunsCounter.GetMetricWithLabelValues(job, outcome)
	require.NoError(t, err)
	require.NoError(t, c.(prometheus.Metric).Write(&m))
	return m.GetCounter().GetValue()
}

func TestOverdueInvoicesJob(t *testing.T) {
	s := NewScheduler(context.Background(), zap.NewNop())
	invoices := &fakeInvoices{swept: 2}
	job := OverdueInvoices("@hourly", invoices, zap.NewNop())

	before := runs(t, OverdueInvoicesJob, outcomeSuccess)
	require.NoError(t, s.RunNow(job))
	assert.Equal(t, 1, invoices.calls)
	assert.Equal(t, before+1, runs(t, OverdueInvoicesJob, outcomeSuccess))

	invoices.err = errors.New("db down")
	failedBefore := runs(t, OverdueInvoicesJob, outcomeFailure)
	assert.Error(t, s.RunNow(job))
	assert.Equal(t, failedBefore+1, runs(t, OverdueInvoicesJob, outcomeFailure))
}

func TestPresenceSweepJob(t *testing.T) {
	sweeper := &countingSweeper{}
	job := PresenceSweep(15*time.Second, sweeper)
	assert.Equal(t, "@every 15s", job.Spec)

	s := NewScheduler(context.Background(), zap.NewNop())
	require.NoError(t, s.RunNow(job))
	assert.Equal(t, 1, sweeper.n)
}

func TestScheduler_AddRejectsBadSpec(t *testing.T) {
	s := NewScheduler(context.Background(), zap.NewNop())

	err := s.Add(Job{Name: "broken", Spec: "every tuesday", Run: func(context.Context) error { return nil }})
	assert.ErrorContains(t, err, "broken")

	require.NoError(t, s.Add(PresenceSweep(time.Minute, &countingSweeper{})))
	s.Start()
	s.Shutdown()
}
