package dto

import (
	"github.com/aarondl/null/v8"
	"github.com/shopspring/decimal"
)

type InvoiceItemDTO struct {
	Description string          `json:"description" validate:"required,max=500"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
	Amount      decimal.Decimal `json:"amount"`
}

type CreateInvoiceDTO struct {
	ClientName  string           `json:"client_name" validate:"required,max=200"`
	ClientEmail null.String      `json:"client_email" validate:"omitempty,email"`
	ClientID    null.String      `json:"client_id" validate:"omitempty,uuid"`
	ProjectID   null.String      `json:"project_id" validate:"omitempty,uuid"`
	Currency    string           `json:"currency" validate:"required,currency_code"`
	Items       []InvoiceItemDTO `json:"items" validate:"required,min=1,dive"`
	TaxRate     decimal.Decimal  `json:"tax_rate"`
	Discount    decimal.Decimal  `json:"discount"`
	IssueDate   null.String      `json:"issue_date" validate:"omitempty,datetime=2006-01-02"`
	DueDate     null.String      `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	Notes       null.String      `json:"notes" validate:"omitempty,max=5000"`
}

type InvoiceTotalsDTO struct {
	Subtotal  decimal.Decimal `json:"subtotal"`
	TaxAmount decimal.Decimal `json:"tax_amount"`
	Discount  decimal.Decimal `json:"discount"`
	Total     decimal.Decimal `json:"total"`
}

type InvoiceSummaryDTO struct {
	ByStatus map[string]decimal.Decimal `json:"by_status"`
	Counts   map[string]int64           `json:"counts"`
	Total    decimal.Decimal            `json:"total"`
}
