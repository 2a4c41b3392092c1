package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SamTugah-KACE/staged-staff-records-backend-sub001/internal/domain"
)

var (
	employeeCols     = []string{"id", "organization_id", "user_id", "title", "first_name", "middle_name", "last_name", "gender", "date_of_birth", "marital_status", "email", "contact_info", "hire_date", "is_active", "rank_id", "department_id", "employee_type_id", "custom_data", "created_at", "updated_at"}
	organizationCols = []string{"id", "name", "nature", "country", "is_active", "created_at", "updated_at"}
	rankCols         = []string{"id", "name"}
	departmentCols   = []string{"id", "name", "branch_id"}
	branchCols       = []string{"id", "name", "location"}
	employeeTypeCols = []string{"id", "type_name"}
	academicCols     = []string{"id", "employee_id", "degree", "institution", "year_obtained", "details", "awarded_at"}
	professionalCols = []string{"id", "employee_id", "qualification_name", "institution", "license_number", "year_obtained", "valid_until"}
	historyCols      = []string{"id", "employee_id", "company", "job_title", "start_date", "end_date", "details"}
	contactCols      = []string{"id", "employee_id", "name", "relation", "phone", "address"}
	paymentCols      = []string{"id", "employee_id", "payment_mode", "bank_name", "account_number", "mobile_money_provider", "wallet_number", "is_verified"}
	promotionCols    = []string{"id", "employee_id", "from_rank", "to_rank", "effective_date", "status"}
	salaryCols       = []string{"id", "employee_id", "amount", "currency", "payment_date", "status"}
	dynamicCols      = []string{"id", "employee_id", "field_name", "field_value"}
)

// expectBundleBatch registers the full batch expectation in queue order,
// starting from a populated employee row and letting the caller override
// the related result sets it cares about.
func expectBundleBatch(mock pgxmock.PgxPoolIface, employeeRows *pgxmock.Rows, overrides map[string]*pgxmock.Rows) {
	related := []struct {
		pattern string
		cols    []string
	}{
		{"FROM organizations", organizationCols},
		{"FROM ranks", rankCols},
		{"FROM departments", departmentCols},
		{"FROM branches", branchCols},
		{"FROM employee_types", employeeTypeCols},
		{"FROM academic_qualifications", academicCols},
		{"FROM professional_qualifications", professionalCols},
		{"FROM employment_histories", historyCols},
		{"FROM emergency_contacts", contactCols},
		{"FROM next_of_kins", contactCols},
		{"FROM payment_details", paymentCols},
		{"FROM promotions", promotionCols},
		{"FROM salary_payments", salaryCols},
		{"FROM employee_dynamic_fields", dynamicCols},
	}

	eb := mock.ExpectBatch()
	eb.ExpectQuery("FROM employees WHERE id").WithArgs(pgxmock.AnyArg()).WillReturnRows(employeeRows)
	for _, r := range related {
		rows, ok := overrides[r.pattern]
		if !ok {
			rows = pgxmock.NewRows(r.cols)
		}
		eb.ExpectQuery(r.pattern).WithArgs(pgxmock.AnyArg()).WillReturnRows(rows)
	}
}

func employeeRow(employeeID, orgID, userID uuid.UUID, now time.Time) *pgxmock.Rows {
	return pgxmock.NewRows(employeeCols).AddRow(
		employeeID, orgID, userID, "Dr.", "Akosua", "", "Mensah", "Female",
		(*time.Time)(nil), "Married", "akosua@example.com", "+233201234567",
		(*time.Time)(nil), true, (*uuid.UUID)(nil), (*uuid.UUID)(nil), (*uuid.UUID)(nil),
		map[string]any{"staff_no": "GH-001"}, now, now,
	)
}

func TestEmployeeRepo_GetBundle_FullRecord(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEmployeeRepo(mock)

	employeeID := uuid.New()
	orgID := uuid.New()
	userID := uuid.New()
	rankID := uuid.New()
	now := time.Now().UTC()
	paid := now.AddDate(0, -1, 0)

	overrides := map[string]*pgxmock.Rows{
		"FROM organizations": pgxmock.NewRows(organizationCols).
			AddRow(orgID, "Acme Holdings", "Private Limited", "Ghana", true, now, now),
		"FROM ranks": pgxmock.NewRows(rankCols).
			AddRow(rankID, "Senior Officer"),
		"FROM academic_qualifications": pgxmock.NewRows(academicCols).
			AddRow(uuid.New(), employeeID, "BSc Computer Science", "KNUST", "2015", "", (*time.Time)(nil)),
		"FROM salary_payments": pgxmock.NewRows(salaryCols).
			AddRow(uuid.New(), employeeID, 4200.50, "GHS", &paid, "paid"),
		"FROM employee_dynamic_fields": pgxmock.NewRows(dynamicCols).
			AddRow(uuid.New(), employeeID, "shirt_size", "L"),
	}
	expectBundleBatch(mock, employeeRow(employeeID, orgID, userID, now), overrides)

	bundle, err := repo.GetBundle(context.Background(), employeeID)
	require.NoError(t, err)

	assert.Equal(t, employeeID, bundle.Employee.ID)
	assert.Equal(t, "Akosua", bundle.Employee.FirstName)
	assert.Equal(t, "GH-001", bundle.Employee.CustomData["staff_no"])
	assert.Equal(t, "Private Limited", bundle.Organization.Nature)
	require.NotNil(t, bundle.Rank)
	assert.Equal(t, "Senior Officer", bundle.Rank.Name)
	assert.Nil(t, bundle.Department)
	assert.Nil(t, bundle.Branch)
	assert.Nil(t, bundle.EmployeeType)
	require.Len(t, bundle.AcademicQualifications, 1)
	assert.Equal(t, "BSc Computer Science", bundle.AcademicQualifications[0].Degree)
	require.Len(t, bundle.SalaryPayments, 1)
	assert.Equal(t, 4200.50, bundle.SalaryPayments[0].Amount)
	require.Len(t, bundle.DynamicFields, 1)
	assert.Equal(t, "shirt_size", bundle.DynamicFields[0].FieldName)
	assert.Empty(t, bundle.Promotions)
	assert.Empty(t, bundle.NextOfKin)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEmployeeRepo_GetBundle_NotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEmployeeRepo(mock)

	// The employee query comes back empty; remaining batch results go unread.
	expectBundleBatch(mock, pgxmock.NewRows(employeeCols), nil)

	_, err = repo.GetBundle(context.Background(), uuid.New())
	require.ErrorIs(t, err, domain.ErrEmployeeNotFound)
}

func TestEmployeeRepo_GetEmployeeOrg(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEmployeeRepo(mock)

	employeeID := uuid.New()
	orgID := uuid.New()

	mock.ExpectQuery("SELECT organization_id FROM employees").
		WithArgs(employeeID).
		WillReturnRows(pgxmock.NewRows([]string{"organization_id"}).AddRow(orgID))

	got, err := repo.GetEmployeeOrg(context.Background(), employeeID)
	require.NoError(t, err)
	assert.Equal(t, orgID, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEmployeeRepo_GetEmployeeOrg_NotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEmployeeRepo(mock)

	mock.ExpectQuery("SELECT organization_id FROM employees").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"organization_id"}))

	_, err = repo.GetEmployeeOrg(context.Background(), uuid.New())
	require.ErrorIs(t, err, domain.ErrEmployeeNotFound)
}

func TestEmployeeRepo_GetEmployeeByUser(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEmployeeRepo(mock)

	orgID := uuid.New()
	userID := uuid.New()
	employeeID := uuid.New()

	mock.ExpectQuery("SELECT id FROM employees WHERE organization_id").
		WithArgs(orgID, userID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(employeeID))

	got, err := repo.GetEmployeeByUser(context.Background(), orgID, userID)
	require.NoError(t, err)
	assert.Equal(t, employeeID, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEmployeeRepo_GetEmployeeByUser_NoEmployeeRecord(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEmployeeRepo(mock)

	mock.ExpectQuery("SELECT id FROM employees WHERE organization_id").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	_, err = repo.GetEmployeeByUser(context.Background(), uuid.New(), uuid.New())
	require.ErrorIs(t, err, domain.ErrEmployeeNotFound)
}

func TestEmployeeRepo_GetEmployeeOrg_QueryError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEmployeeRepo(mock)

	boom := errors.New("connection reset")
	mock.ExpectQuery("SELECT organization_id FROM employees").
		WithArgs(pgxmock.AnyArg()).
		WillReturnError(boom)

	_, err = repo.GetEmployeeOrg(context.Background(), uuid.New())
	require.ErrorIs(t, err, boom)
}
