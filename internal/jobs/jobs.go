package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"freeflow/internal/services"
)

const (
	OverdueInvoicesJob = "overdue-invoices"
	PresenceSweepJob   = "presence-sweep"
)

// Sweeper is the part of the presence registry the sweep job needs.
type Sweeper interface {
	Sweep()
}

// OverdueInvoices marks sent invoices past their due date as overdue.
func OverdueInvoices(spec string, invoices services.InvoiceServiceInterface, logger *zap.Logger) Job {
	return Job{
		Name:    OverdueInvoicesJob,
		Spec:    spec,
		Timeout: 5 * time.Minute,
		Run: func(ctx context.Context) error {
			n, err := invoices.SweepOverdue(ctx)
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("invoices marked overdue", zap.Int("count", n))
			}
			return nil
		},
	}
}

// PresenceSweep applies the idle and outdated timeouts to presence rooms.
func PresenceSweep(interval time.Duration, rooms Sweeper) Job {
	return Job{
		Name: PresenceSweepJob,
		Spec: "@every " + interval.String(),
		Run: func(context.Context) error {
			rooms.Sweep()
			return nil
		},
	}
}
