package domain

import (
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is a known buyer or ticket holder
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// RoleCustomer is the role of self-registered buyers
const RoleCustomer = "customer"

// NewUser validates and builds a customer account
func NewUser(email, name string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil || strings.ContainsAny(email, " <>") {
		return nil, ErrInvalidEmail
	}
	return &User{
		ID:        uuid.New().String(),
		Email:     email,
		Name:      strings.TrimSpace(name),
		Role:      RoleCustomer,
		CreatedAt: time.Now().UTC(),
	}, nil
}
