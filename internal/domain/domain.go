package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrEmployeeNotFound is returned by readers when no employee matches the lookup.
var ErrEmployeeNotFound = errors.New("employee not found")

// --- Model types ---

// Organization is the tenant: the unit of data isolation and broadcast scoping.
type Organization struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	Nature    string    `db:"nature"`
	Country   string    `db:"country"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// CompensatesPrivately reports whether the organization pays its own staff.
// Salary data is withheld from aggregate records for every other nature.
func (o Organization) CompensatesPrivately() bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(o.Nature)), "private")
}

type Employee struct {
	ID             uuid.UUID      `db:"id"`
	OrganizationID uuid.UUID      `db:"organization_id"`
	UserID         uuid.UUID      `db:"user_id"`
	Title          string         `db:"title"`
	FirstName      string         `db:"first_name"`
	MiddleName     string         `db:"middle_name"`
	LastName       string         `db:"last_name"`
	Gender         string         `db:"gender"`
	DateOfBirth    *time.Time     `db:"date_of_birth"`
	MaritalStatus  string         `db:"marital_status"`
	Email          string         `db:"email"`
	ContactInfo    string         `db:"contact_info"`
	HireDate       *time.Time     `db:"hire_date"`
	IsActive       bool           `db:"is_active"`
	RankID         *uuid.UUID     `db:"rank_id"`
	DepartmentID   *uuid.UUID     `db:"department_id"`
	EmployeeTypeID *uuid.UUID     `db:"employee_type_id"`
	CustomData     map[string]any `db:"custom_data"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

type AcademicQualification struct {
	ID           uuid.UUID  `db:"id"`
	EmployeeID   uuid.UUID  `db:"employee_id"`
	Degree       string     `db:"degree"`
	Institution  string     `db:"institution"`
	YearObtained string     `db:"year_obtained"`
	Details      string     `db:"details"`
	AwardedAt    *time.Time `db:"awarded_at"`
}

type ProfessionalQualification struct {
	ID            uuid.UUID  `db:"id"`
	EmployeeID    uuid.UUID  `db:"employee_id"`
	Qualification string     `db:"qualification_name"`
	Institution   string     `db:"institution"`
	LicenseNumber string     `db:"license_number"`
	YearObtained  string     `db:"year_obtained"`
	ValidUntil    *time.Time `db:"valid_until"`
}

type EmploymentHistory struct {
	ID         uuid.UUID  `db:"id"`
	EmployeeID uuid.UUID  `db:"employee_id"`
	Company    string     `db:"company"`
	JobTitle   string     `db:"job_title"`
	StartDate  *time.Time `db:"start_date"`
	EndDate    *time.Time `db:"end_date"`
	Details    string     `db:"details"`
}

type EmergencyContact struct {
	ID         uuid.UUID `db:"id"`
	EmployeeID uuid.UUID `db:"employee_id"`
	Name       string    `db:"name"`
	Relation   string    `db:"relation"`
	Phone      string    `db:"phone"`
	Address    string    `db:"address"`
}

type NextOfKin struct {
	ID         uuid.UUID `db:"id"`
	EmployeeID uuid.UUID `db:"employee_id"`
	Name       string    `db:"name"`
	Relation   string    `db:"relation"`
	Phone      string    `db:"phone"`
	Address    string    `db:"address"`
}

type PaymentDetail struct {
	ID                  uuid.UUID `db:"id"`
	EmployeeID          uuid.UUID `db:"employee_id"`
	PaymentMode         string    `db:"payment_mode"`
	BankName            string    `db:"bank_name"`
	AccountNumber       string    `db:"account_number"`
	MobileMoneyProvider string    `db:"mobile_money_provider"`
	WalletNumber        string    `db:"wallet_number"`
	IsVerified          bool      `db:"is_verified"`
}

type Promotion struct {
	ID            uuid.UUID  `db:"id"`
	EmployeeID    uuid.UUID  `db:"employee_id"`
	FromRank      string     `db:"from_rank"`
	ToRank        string     `db:"to_rank"`
	EffectiveDate *time.Time `db:"effective_date"`
	Status        string     `db:"status"`
}

type SalaryPayment struct {
	ID          uuid.UUID  `db:"id"`
	EmployeeID  uuid.UUID  `db:"employee_id"`
	Amount      float64    `db:"amount"`
	Currency    string     `db:"currency"`
	PaymentDate *time.Time `db:"payment_date"`
	Status      string     `db:"status"`
}

// EmployeeDynamicField is a free-form per-employee custom attribute created at
// runtime by tenant administrators.
type EmployeeDynamicField struct {
	ID         uuid.UUID `db:"id"`
	EmployeeID uuid.UUID `db:"employee_id"`
	FieldName  string    `db:"field_name"`
	FieldValue string    `db:"field_value"`
}

type Rank struct {
	ID   uuid.UUID `db:"id"`
	Name string    `db:"name"`
}

type Department struct {
	ID       uuid.UUID  `db:"id"`
	Name     string     `db:"name"`
	BranchID *uuid.UUID `db:"branch_id"`
}

type Branch struct {
	ID       uuid.UUID `db:"id"`
	Name     string    `db:"name"`
	Location string    `db:"location"`
}

type EmployeeType struct {
	ID   uuid.UUID `db:"id"`
	Name string    `db:"type_name"`
}

// --- Aggregate fetch result ---

// EmployeeBundle is everything needed to assemble one aggregate employee
// record, fetched in a single round trip. Read-only by convention.
type EmployeeBundle struct {
	Employee                   Employee
	Organization               Organization
	Rank                       *Rank
	Department                 *Department
	Branch                     *Branch
	EmployeeType               *EmployeeType
	AcademicQualifications     []AcademicQualification
	ProfessionalQualifications []ProfessionalQualification
	EmploymentHistory          []EmploymentHistory
	EmergencyContacts          []EmergencyContact
	NextOfKin                  []NextOfKin
	PaymentDetails             []PaymentDetail
	Promotions                 []Promotion
	SalaryPayments             []SalaryPayment
	DynamicFields              []EmployeeDynamicField
}

// --- Wire types ---

// Document is the nested aggregate employee record keyed by logical category.
// Categories the employee has no data for are omitted entirely.
type Document map[string]any

// Envelope is the wire-level wrapper sent on every realtime channel.
type Envelope struct {
	Type       string   `json:"type"`
	Payload    Document `json:"payload"`
	EmployeeID string   `json:"employee_id"`
}

// --- Interfaces ---

// EmployeeReader abstracts the persistence queries the realtime core needs.
type EmployeeReader interface {
	// GetBundle eagerly fetches an employee and all related collections.
	GetBundle(ctx context.Context, employeeID uuid.UUID) (*EmployeeBundle, error)
	// GetEmployeeOrg resolves the owning tenant of an employee.
	GetEmployeeOrg(ctx context.Context, employeeID uuid.UUID) (uuid.UUID, error)
	// GetEmployeeByUser maps an authenticated user to their employee record.
	GetEmployeeByUser(ctx context.Context, orgID, userID uuid.UUID) (uuid.UUID, error)
}

// Broadcaster is the delivery surface of the connection registry.
type Broadcaster interface {
	Broadcast(orgID uuid.UUID, message []byte)
	SendToUser(orgID, userID uuid.UUID, message []byte)
}
