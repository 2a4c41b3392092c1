package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/SamTugah-KACE/staged-staff-records-backend-sub001/internal/domain"
)

// employeeColumns must match the db tags on domain.Employee; rows are
// collected with pgx.RowToStructByName.
const employeeColumns = `id, organization_id, user_id, title, first_name, middle_name, last_name,
	gender, date_of_birth, marital_status, email, contact_info, hire_date, is_active,
	rank_id, department_id, employee_type_id, custom_data, created_at, updated_at`

// EmployeeRepo implements domain.EmployeeReader backed by PostgreSQL.
type EmployeeRepo struct {
	db Querier
}

func NewEmployeeRepo(db Querier) *EmployeeRepo {
	return &EmployeeRepo{db: db}
}

// GetBundle fetches an employee and every related collection in one batched
// round trip. Returns domain.ErrEmployeeNotFound when the employee is missing.
func (r *EmployeeRepo) GetBundle(ctx context.Context, employeeID uuid.UUID) (*domain.EmployeeBundle, error) {
	b := &pgx.Batch{}
	b.Queue(`SELECT `+employeeColumns+` FROM employees WHERE id = $1`, employeeID)
	b.Queue(`SELECT o.id, o.name, o.nature, o.country, o.is_active, o.created_at, o.updated_at
		FROM organizations o JOIN employees e ON e.organization_id = o.id WHERE e.id = $1`, employeeID)
	b.Queue(`SELECT r.id, r.name
		FROM ranks r JOIN employees e ON e.rank_id = r.id WHERE e.id = $1`, employeeID)
	b.Queue(`SELECT d.id, d.name, d.branch_id
		FROM departments d JOIN employees e ON e.department_id = d.id WHERE e.id = $1`, employeeID)
	b.Queue(`SELECT b.id, b.name, b.location
		FROM branches b
		JOIN departments d ON d.branch_id = b.id
		JOIN employees e ON e.department_id = d.id WHERE e.id = $1`, employeeID)
	b.Queue(`SELECT t.id, t.type_name
		FROM employee_types t JOIN employees e ON e.employee_type_id = t.id WHERE e.id = $1`, employeeID)
	b.Queue(`SELECT id, employee_id, degree, institution, year_obtained, details, awarded_at
		FROM academic_qualifications WHERE employee_id = $1 ORDER BY year_obtained`, employeeID)
	b.Queue(`SELECT id, employee_id, qualification_name, institution, license_number, year_obtained, valid_until
		FROM professional_qualifications WHERE employee_id = $1 ORDER BY year_obtained`, employeeID)
	b.Queue(`SELECT id, employee_id, company, job_title, start_date, end_date, details
		FROM employment_histories WHERE employee_id = $1 ORDER BY start_date`, employeeID)
	b.Queue(`SELECT id, employee_id, name, relation, phone, address
		FROM emergency_contacts WHERE employee_id = $1 ORDER BY name`, employeeID)
	b.Queue(`SELECT id, employee_id, name, relation, phone, address
		FROM next_of_kins WHERE employee_id = $1 ORDER BY name`, employeeID)
	b.Queue(`SELECT id, employee_id, payment_mode, bank_name, account_number, mobile_money_provider, wallet_number, is_verified
		FROM payment_details WHERE employee_id = $1`, employeeID)
	b.Queue(`SELECT id, employee_id, from_rank, to_rank, effective_date, status
		FROM promotions WHERE employee_id = $1 ORDER BY effective_date`, employeeID)
	b.Queue(`SELECT id, employee_id, amount, currency, payment_date, status
		FROM salary_payments WHERE employee_id = $1 ORDER BY payment_date DESC`, employeeID)
	b.Queue(`SELECT id, employee_id, field_name, field_value
		FROM employee_dynamic_fields WHERE employee_id = $1 ORDER BY field_name`, employeeID)

	br := r.db.SendBatch(ctx, b)
	defer br.Close()

	var bundle domain.EmployeeBundle
	var err error

	bundle.Employee, err = collectOne[domain.Employee](br)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrEmployeeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch employee: %w", err)
	}

	bundle.Organization, err = collectOne[domain.Organization](br)
	if err != nil {
		return nil, fmt.Errorf("fetch organization: %w", err)
	}

	if bundle.Rank, err = collectOptional[domain.Rank](br); err != nil {
		return nil, fmt.Errorf("fetch rank: %w", err)
	}
	if bundle.Department, err = collectOptional[domain.Department](br); err != nil {
		return nil, fmt.Errorf("fetch department: %w", err)
	}
	if bundle.Branch, err = collectOptional[domain.Branch](br); err != nil {
		return nil, fmt.Errorf("fetch branch: %w", err)
	}
	if bundle.EmployeeType, err = collectOptional[domain.EmployeeType](br); err != nil {
		return nil, fmt.Errorf("fetch employee type: %w", err)
	}

	if bundle.AcademicQualifications, err = collectMany[domain.AcademicQualification](br); err != nil {
		return nil, fmt.Errorf("fetch academic qualifications: %w", err)
	}
	if bundle.ProfessionalQualifications, err = collectMany[domain.ProfessionalQualification](br); err != nil {
		return nil, fmt.Errorf("fetch professional qualifications: %w", err)
	}
	if bundle.EmploymentHistory, err = collectMany[domain.EmploymentHistory](br); err != nil {
		return nil, fmt.Errorf("fetch employment history: %w", err)
	}
	if bundle.EmergencyContacts, err = collectMany[domain.EmergencyContact](br); err != nil {
		return nil, fmt.Errorf("fetch emergency contacts: %w", err)
	}
	if bundle.NextOfKin, err = collectMany[domain.NextOfKin](br); err != nil {
		return nil, fmt.Errorf("fetch next of kin: %w", err)
	}
	if bundle.PaymentDetails, err = collectMany[domain.PaymentDetail](br); err != nil {
		return nil, fmt.Errorf("fetch payment details: %w", err)
	}
	if bundle.Promotions, err = collectMany[domain.Promotion](br); err != nil {
		return nil, fmt.Errorf("fetch promotions: %w", err)
	}
	if bundle.SalaryPayments, err = collectMany[domain.SalaryPayment](br); err != nil {
		return nil, fmt.Errorf("fetch salary payments: %w", err)
	}
	if bundle.DynamicFields, err = collectMany[domain.EmployeeDynamicField](br); err != nil {
		return nil, fmt.Errorf("fetch dynamic fields: %w", err)
	}

	return &bundle, nil
}

func (r *EmployeeRepo) GetEmployeeOrg(ctx context.Context, employeeID uuid.UUID) (uuid.UUID, error) {
	var orgID uuid.UUID
	err := r.db.QueryRow(ctx, `SELECT organization_id FROM employees WHERE id = $1`, employeeID).Scan(&orgID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, domain.ErrEmployeeNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("resolve employee organization: %w", err)
	}
	return orgID, nil
}

func (r *EmployeeRepo) GetEmployeeByUser(ctx context.Context, orgID, userID uuid.UUID) (uuid.UUID, error) {
	var employeeID uuid.UUID
	err := r.db.QueryRow(ctx,
		`SELECT id FROM employees WHERE organization_id = $1 AND user_id = $2`, orgID, userID).Scan(&employeeID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, domain.ErrEmployeeNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("resolve employee by user: %w", err)
	}
	return employeeID, nil
}

func collectOne[T any](br pgx.BatchResults) (T, error) {
	rows, err := br.Query()
	if err != nil {
		var zero T
		return zero, err
	}
	return pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[T])
}

// collectOptional maps an absent row to nil rather than an error.
func collectOptional[T any](br pgx.BatchResults) (*T, error) {
	rows, err := br.Query()
	if err != nil {
		return nil, err
	}
	v, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[T])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return v, err
}

func collectMany[T any](br pgx.BatchResults) ([]T, error) {
	rows, err := br.Query()
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[T])
}
