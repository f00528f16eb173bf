// Package seeders fills a workspace with realistic demo data through the
// same services the HTTP API uses, so every seeded row also goes through
// validation, ownership and change events.
package seeders

import (
	"context"
	"fmt"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"freeflow/internal/dto"
	"freeflow/internal/entities"
	"freeflow/internal/services"
	"freeflow/pkg/utils"
	"freeflow/pkg/validation"
)

// DemoCompletionPassword releases every seeded escrow deposit.
const DemoCompletionPassword = "release2024"

var (
	projectStatuses  = []string{"planning", "active", "on_hold", "completed"}
	priorities       = []string{"low", "medium", "high", "urgent"}
	taskStatuses     = []string{"todo", "in_progress", "review", "done"}
	clientStatuses   = []string{"lead", "active", "inactive"}
	expenseKinds     = []string{"software", "hardware", "travel", "office", "marketing"}
	paymentMethods   = []string{"stripe", "paypal", "bank_transfer", "wire_transfer"}
	projectSegments  = []string{"web", "mobile", "design", "consulting", "content"}
	demoCurrency     = "USD"
	demoProjectSpan  = 90 * 24 * time.Hour
	demoTimeEntryGap = 3 * time.Hour
)

// Counts sizes a demo workspace.
type Counts struct {
	Clients           int
	ProjectsPerClient int
	TasksPerProject   int
	Expenses          int
	Invoices          int
	Deposits          int
}

// DefaultCounts is a small workspace that still fills every dashboard.
func DefaultCounts() Counts {
	return Counts{Clients: 4, ProjectsPerClient: 2, TasksPerProject: 5, Expenses: 8, Invoices: 4, Deposits: 2}
}

// Summary reports how many rows were created per resource.
type Summary map[string]int

type Seeder struct {
	records  services.RecordServiceInterface
	invoices services.InvoiceServiceInterface
	escrow   services.EscrowServiceInterface
	validate *validation.CustomValidator
	faker    *gofakeit.Faker
	logger   *zap.Logger
	now      func() time.Time
}

// NewSeeder returns a seeder whose output is fully determined by seed.
func NewSeeder(
	records services.RecordServiceInterface,
	invoices services.InvoiceServiceInterface,
	escrow services.EscrowServiceInterface,
	seed uint64,
	logger *zap.Logger,
) *Seeder {
	return &Seeder{
		records:  records,
		invoices: invoices,
		escrow:   escrow,
		validate: validation.New(),
		faker:    gofakeit.New(seed),
		logger:   logger,
		now:      time.Now,
	}
}

// Run creates the demo workspace for owner.
func (s *Seeder) Run(ctx context.Context, owner dto.UserClaims, counts Counts) (Summary, error) {
	ctx = utils.WithClaims(ctx, &owner)
	summary := make(Summary)

	s.logger.Info("seeding demo workspace",
		zap.String("user_id", owner.UserID.String()),
		zap.Int("clients", counts.Clients),
	)

	var (
		clients    []entities.Record
		projectIDs []string
	)
	for i := 0; i < counts.Clients; i++ {
		client, err := s.records.Create(ctx, "clients", s.client())
		if err != nil {
			return summary, fmt.Errorf("seed client: %w", err)
		}
		summary["clients"]++
		clients = append(clients, client)

		for j := 0; j < counts.ProjectsPerClient; j++ {
			project, err := s.records.Create(ctx, "projects", s.project(client.ID()))
			if err != nil {
				return summary, fmt.Errorf("seed project: %w", err)
			}
			summary["projects"]++
			projectIDs = append(projectIDs, project.ID())

			if err := s.seedTasks(ctx, project.ID(), counts.TasksPerProject, summary); err != nil {
				return summary, err
			}
		}
	}

	for i := 0; i < counts.Invoices && len(clients) > 0; i++ {
		if err := s.seedInvoice(ctx, clients[i%len(clients)], i, summary); err != nil {
			return summary, err
		}
	}

	for i := 0; i < counts.Expenses; i++ {
		var projectID string
		if len(projectIDs) > 0 {
			projectID = projectIDs[i%len(projectIDs)]
		}
		if _, err := s.records.Create(ctx, "expenses", s.expense(projectID)); err != nil {
			return summary, fmt.Errorf("seed expense: %w", err)
		}
		summary["expenses"]++
	}

	for i := 0; i < counts.Deposits; i++ {
		d := s.deposit()
		if err := s.validate.Validate(d); err != nil {
			return summary, fmt.Errorf("seed escrow deposit: %w", err)
		}
		detail, err := s.escrow.CreateDeposit(ctx, d)
		if err != nil {
			return summary, fmt.Errorf("seed escrow deposit: %w", err)
		}
		summary["escrow_deposits"]++
		summary["escrow_milestones"] += len(detail.Milestones)
	}

	s.logger.Info("demo workspace seeded", zap.Any("summary", summary))
	return summary, nil
}

func (s *Seeder) seedTasks(ctx context.Context, projectID string, n int, summary Summary) error {
	for k := 0; k < n; k++ {
		task, err := s.records.Create(ctx, "tasks", s.task(projectID, k))
		if err != nil {
			return fmt.Errorf("seed task: %w", err)
		}
		summary["tasks"]++

		if task.String("status") == "todo" {
			continue
		}
		if _, err := s.records.Create(ctx, "time_entries", s.timeEntry(projectID, task.ID())); err != nil {
			return fmt.Errorf("seed time entry: %w", err)
		}
		summary["time_entries"]++
	}
	return nil
}

// seedInvoice walks every third invoice through sent and paid so the
// summary endpoint has something in each bucket.
func (s *Seeder) seedInvoice(ctx context.Context, client entities.Record, n int, summary Summary) error {
	d := s.invoice(client.ID(), client.String("name"), client.String("email"))
	if err := s.validate.Validate(d); err != nil {
		return fmt.Errorf("seed invoice: %w", err)
	}
	invoice, err := s.invoices.Create(ctx, d)
	if err != nil {
		return fmt.Errorf("seed invoice: %w", err)
	}
	summary["invoices"]++

	if n%3 == 0 {
		return nil
	}
	if _, err := s.invoices.Send(ctx, invoice.ID()); err != nil {
		return fmt.Errorf("send seeded invoice: %w", err)
	}
	if n%3 == 2 {
		if _, err := s.invoices.MarkPaid(ctx, invoice.ID()); err != nil {
			return fmt.Errorf("pay seeded invoice: %w", err)
		}
	}
	return nil
}

func (s *Seeder) client() map[string]interface{} {
	f := s.faker
	return map[string]interface{}{
		"name":    f.Name(),
		"email":   f.Email(),
		"phone":   f.Phone(),
		"company": f.Company(),
		"status":  f.RandomString(clientStatuses),
		"website": f.URL(),
		"address": f.Address().Address,
		"tags":    []string{f.BuzzWord()},
	}
}

func (s *Seeder) project(clientID string) map[string]interface{} {
	f := s.faker
	start := s.now().Add(-time.Duration(f.Number(0, 60)) * 24 * time.Hour)
	budget := decimal.NewFromInt(int64(f.Number(20, 400) * 100))
	progress := f.Number(0, 100)
	return map[string]interface{}{
		"title":       fmt.Sprintf("%s %s", f.Company(), f.RandomString(projectSegments)),
		"description": f.Sentence(12),
		"status":      f.RandomString(projectStatuses),
		"priority":    f.RandomString(priorities),
		"category":    f.RandomString(projectSegments),
		"client_id":   clientID,
		"budget":      budget,
		"spent":       budget.Mul(decimal.NewFromInt(int64(progress))).Div(decimal.NewFromInt(100)).Round(2),
		"progress":    progress,
		"start_date":  start,
		"end_date":    start.Add(demoProjectSpan),
		"tags":        []string{f.BuzzWord(), f.BuzzWord()},
	}
}

func (s *Seeder) task(projectID string, position int) map[string]interface{} {
	f := s.faker
	estimate := f.Number(1, 16)
	status := f.RandomString(taskStatuses)
	values := map[string]interface{}{
		"title":           f.Sentence(4),
		"description":     f.Sentence(10),
		"status":          status,
		"priority":        f.RandomString(priorities),
		"assignee":        f.Name(),
		"project_id":      projectID,
		"due_date":        s.now().Add(time.Duration(f.Number(1, 30)) * 24 * time.Hour),
		"estimated_hours": estimate,
		"position":        position,
		"labels":          []string{f.Word()},
	}
	if status == "done" {
		values["actual_hours"] = estimate + f.Number(-1, 3)
		values["completed_at"] = s.now().Add(-time.Duration(f.Number(1, 72)) * time.Hour)
	}
	return values
}

func (s *Seeder) timeEntry(projectID, taskID string) map[string]interface{} {
	f := s.faker
	minutes := f.Number(15, 240)
	started := s.now().Add(-time.Duration(f.Number(1, 14))*24*time.Hour - demoTimeEntryGap)
	return map[string]interface{}{
		"project_id":       projectID,
		"task_id":          taskID,
		"description":      f.Sentence(6),
		"started_at":       started,
		"ended_at":         started.Add(time.Duration(minutes) * time.Minute),
		"duration_minutes": minutes,
		"billable":         f.Bool(),
		"hourly_rate":      decimal.NewFromInt(int64(f.Number(40, 150))),
	}
}

func (s *Seeder) expense(projectID string) map[string]interface{} {
	f := s.faker
	values := map[string]interface{}{
		"title":        f.Sentence(3),
		"category":     f.RandomString(expenseKinds),
		"vendor":       f.Company(),
		"status":       "recorded",
		"currency":     demoCurrency,
		"amount":       decimal.NewFromFloat(f.Price(5, 900)).Round(2),
		"expense_date": s.now().Add(-time.Duration(f.Number(0, 45)) * 24 * time.Hour),
		"billable":     f.Bool(),
	}
	if projectID != "" {
		values["project_id"] = projectID
	}
	return values
}

func (s *Seeder) invoice(clientID, name, email string) dto.CreateInvoiceDTO {
	f := s.faker
	items := make([]dto.InvoiceItemDTO, f.Number(1, 3))
	for i := range items {
		items[i] = dto.InvoiceItemDTO{
			Description: f.Sentence(5),
			Quantity:    decimal.NewFromInt(int64(f.Number(1, 20))),
			Rate:        decimal.NewFromFloat(f.Price(25, 150)).Round(2),
		}
	}
	issued := s.now().UTC().Add(-time.Duration(f.Number(0, 30)) * 24 * time.Hour)
	return dto.CreateInvoiceDTO{
		ClientName:  name,
		ClientEmail: null.NewString(email, email != ""),
		ClientID:    null.StringFrom(clientID),
		Currency:    demoCurrency,
		Items:       items,
		TaxRate:     decimal.NewFromInt(int64(f.RandomInt([]int{0, 5, 10, 16}))),
		IssueDate:   null.StringFrom(issued.Format(time.DateOnly)),
		Notes:       null.StringFrom(f.Sentence(8)),
	}
}

func (s *Seeder) deposit() dto.CreateEscrowDepositDTO {
	f := s.faker
	amount := decimal.NewFromInt(int64(f.Number(10, 80) * 100))
	half := amount.Div(decimal.NewFromInt(2)).Round(2)
	due := s.now().UTC().Add(time.Duration(f.Number(7, 21)) * 24 * time.Hour)
	return dto.CreateEscrowDepositDTO{
		ProjectTitle:       fmt.Sprintf("%s %s", f.Company(), f.RandomString(projectSegments)),
		ProjectDescription: null.StringFrom(f.Sentence(12)),
		ClientName:         f.Name(),
		ClientEmail:        f.Email(),
		Amount:             amount,
		Currency:           demoCurrency,
		PaymentMethod:      f.RandomString(paymentMethods),
		CompletionPassword: DemoCompletionPassword,
		Milestones: []dto.CreateMilestoneDTO{
			{
				Title:        "Discovery and design",
				Amount:       half,
				Percentage:   50,
				DueDate:      null.StringFrom(due.Format(time.DateOnly)),
				Deliverables: []string{f.Sentence(3)},
			},
			{
				Title:        "Delivery",
				Amount:       amount.Sub(half),
				Percentage:   50,
				DueDate:      null.StringFrom(due.Add(demoProjectSpan / 3).Format(time.DateOnly)),
				Deliverables: []string{f.Sentence(3)},
			},
		},
	}
}
