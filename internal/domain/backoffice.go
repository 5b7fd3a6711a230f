package domain

import (
	"time"

	"github.com/google/uuid"
)

type PayableStatus string

const (
	PayableStatusPending   PayableStatus = "pending"
	PayableStatusPaid      PayableStatus = "paid"
	PayableStatusOverdue   PayableStatus = "overdue"
	PayableStatusCancelled PayableStatus = "cancelled"
)

func (s PayableStatus) IsValid() bool {
	switch s {
	case PayableStatusPending, PayableStatusPaid, PayableStatusOverdue, PayableStatusCancelled:
		return true
	}
	return false
}

type AccountPayable struct {
	ID          uuid.UUID
	Description string
	Supplier    string
	Category    string
	Amount      int64
	DueDate     time.Time
	Status      PayableStatus
	PaidAt      *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type EmployeeStatus string

const (
	EmployeeStatusActive   EmployeeStatus = "active"
	EmployeeStatusInactive EmployeeStatus = "inactive"
)

type CltEmployee struct {
	ID            uuid.UUID
	Name          string
	CPF           string
	Role          string
	Salary        int64
	AdmissionDate time.Time
	PaymentDay    int
	Status        EmployeeStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type ServiceProvider struct {
	ID            uuid.UUID
	Name          string
	Document      string
	Service       string
	MonthlyAmount int64
	PaymentDay    int
	Status        EmployeeStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Boleto struct {
	ID          uuid.UUID
	Payer       string
	Description string
	Amount      int64
	DueDate     time.Time
	Status      PayableStatus
	Barcode     string
	PaidAt      *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
