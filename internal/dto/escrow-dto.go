package dto

import (
	"github.com/aarondl/null/v8"
	"github.com/shopspring/decimal"

	"freeflow/internal/entities"
)

type CreateMilestoneDTO struct {
	Title        string          `json:"title" validate:"required,max=200"`
	Description  null.String     `json:"description" validate:"omitempty,max=2000"`
	Amount       decimal.Decimal `json:"amount"`
	Percentage   int             `json:"percentage" validate:"min=0,max=100"`
	DueDate      null.String     `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	Deliverables []string        `json:"deliverables" validate:"omitempty,dive,required"`
}

type CreateEscrowDepositDTO struct {
	ProjectTitle       string               `json:"project_title" validate:"required,max=200"`
	ProjectDescription null.String          `json:"project_description" validate:"omitempty,max=5000"`
	ClientName         string               `json:"client_name" validate:"required,max=200"`
	ClientEmail        string               `json:"client_email" validate:"required,email"`
	ClientID           null.String          `json:"client_id" validate:"omitempty,uuid"`
	Amount             decimal.Decimal      `json:"amount"`
	Currency           string               `json:"currency" validate:"required,currency_code"`
	PaymentMethod      string               `json:"payment_method" validate:"required,oneof=stripe paypal bank_transfer crypto wire_transfer credit_card"`
	CompletionPassword string               `json:"completion_password" validate:"required,completion_password"`
	Notes              null.String          `json:"notes" validate:"omitempty,max=5000"`
	Milestones         []CreateMilestoneDTO `json:"milestones" validate:"omitempty,dive"`
}

type ReleaseFundsDTO struct {
	CompletionPassword string `json:"completion_password" validate:"required"`
}

type UpdateEscrowStatusDTO struct {
	Status string      `json:"status" validate:"required,oneof=pending active completed disputed refunded cancelled"`
	Reason null.String `json:"reason" validate:"omitempty,max=2000"`
}

type ApproveMilestoneDTO struct {
	Notes null.String `json:"notes" validate:"omitempty,max=2000"`
}

type RejectMilestoneDTO struct {
	Reason string `json:"reason" validate:"required,max=2000"`
}

// EscrowFeesDTO is the fee breakdown for an amount and payment method.
type EscrowFeesDTO struct {
	Amount             decimal.Decimal `json:"amount"`
	PlatformFee        decimal.Decimal `json:"platform_fee"`
	PlatformPercentage decimal.Decimal `json:"platform_percentage"`
	PaymentFee         decimal.Decimal `json:"payment_fee"`
	PaymentPercentage  decimal.Decimal `json:"payment_percentage"`
	WithdrawalFee      decimal.Decimal `json:"withdrawal_fee"`
	TotalFees          decimal.Decimal `json:"total_fees"`
	NetAmount          decimal.Decimal `json:"net_amount"`
}

type EscrowDepositDetailDTO struct {
	Deposit    entities.Record   `json:"deposit"`
	Fees       entities.Record   `json:"fees,omitempty"`
	Milestones []entities.Record `json:"milestones"`
}

type ReleaseResultDTO struct {
	Deposit     entities.Record `json:"deposit"`
	Transaction entities.Record `json:"transaction"`
}

type EscrowTotalDTO struct {
	Total decimal.Decimal `json:"total"`
}

type CompleteMilestoneDTO struct {
	Deliverables []string `json:"deliverables" validate:"omitempty,dive,required"`
}
