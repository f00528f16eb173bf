package dto

import "github.com/google/uuid"

// UserClaims is the authenticated caller, available in the request context.
type UserClaims struct {
	UserID uuid.UUID
	Email  string
	Name   string
}
