package sales

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the state of a sale.
type Status string

const (
	StatusCompleted Status = "COMPLETED"
	StatusCanceled  Status = "CANCELED"
)

// Valid reports whether s is a status a sale can be set to.
func (s Status) Valid() bool {
	return s == StatusCompleted || s == StatusCanceled
}

// Label returns the status text shown in the sales table.
func (s Status) Label() string {
	if s == StatusCompleted {
		return "Completa"
	}
	return "Cancelada"
}

// Toggled returns the status the "change status" action moves a sale to.
func (s Status) Toggled() Status {
	if s == StatusCompleted {
		return StatusCanceled
	}
	return StatusCompleted
}

// Customer is the buyer embedded in a sale.
type Customer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
}

// FullName joins the customer's names.
func (c Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Sale represents a sales transaction in the system.
type Sale struct {
	ID       int64           `json:"id"`
	Customer Customer        `json:"customer"`
	SaleDate time.Time       `json:"sale_date"`
	Total    decimal.Decimal `json:"total"`
	Status   Status          `json:"status"`
}

// Receipt is the printable summary of one sale.
type Receipt struct {
	SaleID      int64     `json:"sale_id"`
	Customer    string    `json:"customer"`
	Date        string    `json:"date"`
	Total       string    `json:"total"`
	Status      Status    `json:"status"`
	StatusLabel string    `json:"status_label"`
	IssuedAt    time.Time `json:"issued_at"`
}
