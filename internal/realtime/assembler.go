package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/SamTugah-KACE/staged-staff-records-backend-sub001/internal/domain"
	"github.com/SamTugah-KACE/staged-staff-records-backend-sub001/internal/metrics"
)

// Assembler rebuilds the full nested employee document from current database
// state. The document is ephemeral: rebuilt completely on every broadcast,
// never cached, never persisted.
type Assembler struct {
	reader domain.EmployeeReader
	clock  clockwork.Clock
}

func NewAssembler(reader domain.EmployeeReader, clock clockwork.Clock) *Assembler {
	return &Assembler{reader: reader, clock: clock}
}

// Assemble fetches the employee and all related collections and produces the
// nested document keyed by logical category. Salary payments are withheld
// entirely unless the organization compensates its staff privately.
func (a *Assembler) Assemble(ctx context.Context, employeeID uuid.UUID) (domain.Document, error) {
	start := a.clock.Now()

	bundle, err := a.reader.GetBundle(ctx, employeeID)
	if err != nil {
		metrics.AggregationFailuresTotal.Inc()
		slog.Error("Aggregate record assembly failed",
			"employee_id", employeeID.String(),
			"error", err,
		)
		return nil, fmt.Errorf("assemble employee %s: %w", employeeID, err)
	}

	doc := buildDocument(bundle)
	metrics.AggregationDuration.Observe(a.clock.Since(start).Seconds())
	return doc, nil
}

func buildDocument(b *domain.EmployeeBundle) domain.Document {
	emp := b.Employee

	doc := domain.Document{
		"bio_data": map[string]any{
			"id":             emp.ID.String(),
			"title":          emp.Title,
			"first_name":     emp.FirstName,
			"middle_name":    emp.MiddleName,
			"last_name":      emp.LastName,
			"gender":         emp.Gender,
			"date_of_birth":  dateString(emp.DateOfBirth),
			"marital_status": emp.MaritalStatus,
			"email":          emp.Email,
			"contact_info":   emp.ContactInfo,
			"is_active":      emp.IsActive,
			"created_at":     timeString(emp.CreatedAt),
			"updated_at":     timeString(emp.UpdatedAt),
		},
		"qualifications": map[string]any{
			"academic":     academicDocs(b.AcademicQualifications),
			"professional": professionalDocs(b.ProfessionalQualifications),
		},
		"employment_details": employmentDetails(b),
		"role":               roleDoc(b),
		"payment_details":    paymentDocs(b.PaymentDetails),
		"promotions":         promotionDocs(b.Promotions),
		"next_of_kin":        kinDocs(b.NextOfKin),
		"emergency_contacts": contactDocs(b.EmergencyContacts),
		"employment_history": historyDocs(b.EmploymentHistory),
		"others":             othersDoc(emp, b.DynamicFields),
	}

	if b.Organization.CompensatesPrivately() {
		doc["salary_payments"] = salaryDocs(b.SalaryPayments)
	}

	return doc
}

func employmentDetails(b *domain.EmployeeBundle) map[string]any {
	details := map[string]any{
		"hire_date": dateString(b.Employee.HireDate),
		"is_active": b.Employee.IsActive,
	}
	if b.EmployeeType != nil {
		details["employee_type"] = b.EmployeeType.Name
	}
	return details
}

func roleDoc(b *domain.EmployeeBundle) map[string]any {
	role := map[string]any{}
	if b.Rank != nil {
		role["rank"] = b.Rank.Name
	}
	if b.Department != nil {
		dept := map[string]any{"name": b.Department.Name}
		if b.Branch != nil {
			dept["branch"] = map[string]any{
				"name":     b.Branch.Name,
				"location": b.Branch.Location,
			}
		}
		role["department"] = dept
	}
	return role
}

func academicDocs(qs []domain.AcademicQualification) []map[string]any {
	out := make([]map[string]any, 0, len(qs))
	for _, q := range qs {
		out = append(out, map[string]any{
			"id":            q.ID.String(),
			"degree":        q.Degree,
			"institution":   q.Institution,
			"year_obtained": q.YearObtained,
			"details":       q.Details,
			"awarded_at":    dateString(q.AwardedAt),
		})
	}
	return out
}

func professionalDocs(qs []domain.ProfessionalQualification) []map[string]any {
	out := make([]map[string]any, 0, len(qs))
	for _, q := range qs {
		out = append(out, map[string]any{
			"id":             q.ID.String(),
			"qualification":  q.Qualification,
			"institution":    q.Institution,
			"license_number": q.LicenseNumber,
			"year_obtained":  q.YearObtained,
			"valid_until":    dateString(q.ValidUntil),
		})
	}
	return out
}

func historyDocs(hs []domain.EmploymentHistory) []map[string]any {
	out := make([]map[string]any, 0, len(hs))
	for _, h := range hs {
		out = append(out, map[string]any{
			"id":         h.ID.String(),
			"company":    h.Company,
			"job_title":  h.JobTitle,
			"start_date": dateString(h.StartDate),
			"end_date":   dateString(h.EndDate),
			"details":    h.Details,
		})
	}
	return out
}

func contactDocs(cs []domain.EmergencyContact) []map[string]any {
	out := make([]map[string]any, 0, len(cs))
	for _, c := range cs {
		out = append(out, map[string]any{
			"id":       c.ID.String(),
			"name":     c.Name,
			"relation": c.Relation,
			"phone":    c.Phone,
			"address":  c.Address,
		})
	}
	return out
}

func kinDocs(ks []domain.NextOfKin) []map[string]any {
	out := make([]map[string]any, 0, len(ks))
	for _, k := range ks {
		out = append(out, map[string]any{
			"id":       k.ID.String(),
			"name":     k.Name,
			"relation": k.Relation,
			"phone":    k.Phone,
			"address":  k.Address,
		})
	}
	return out
}

func paymentDocs(ps []domain.PaymentDetail) []map[string]any {
	out := make([]map[string]any, 0, len(ps))
	for _, p := range ps {
		out = append(out, map[string]any{
			"id":                    p.ID.String(),
			"payment_mode":          p.PaymentMode,
			"bank_name":             p.BankName,
			"account_number":        p.AccountNumber,
			"mobile_money_provider": p.MobileMoneyProvider,
			"wallet_number":         p.WalletNumber,
			"is_verified":           p.IsVerified,
		})
	}
	return out
}

func promotionDocs(ps []domain.Promotion) []map[string]any {
	out := make([]map[string]any, 0, len(ps))
	for _, p := range ps {
		out = append(out, map[string]any{
			"id":             p.ID.String(),
			"from_rank":      p.FromRank,
			"to_rank":        p.ToRank,
			"effective_date": dateString(p.EffectiveDate),
			"status":         p.Status,
		})
	}
	return out
}

func salaryDocs(ss []domain.SalaryPayment) []map[string]any {
	out := make([]map[string]any, 0, len(ss))
	for _, s := range ss {
		out = append(out, map[string]any{
			"id":           s.ID.String(),
			"amount":       s.Amount,
			"currency":     s.Currency,
			"payment_date": dateString(s.PaymentDate),
			"status":       s.Status,
		})
	}
	return out
}

// othersDoc merges schema-level custom data with per-employee dynamic fields
// into one free-form bucket. Dynamic fields win on name collision.
func othersDoc(emp domain.Employee, fields []domain.EmployeeDynamicField) map[string]any {
	others := make(map[string]any, len(emp.CustomData)+len(fields))
	for k, v := range emp.CustomData {
		others[k] = v
	}
	for _, f := range fields {
		others[f.FieldName] = f.FieldValue
	}
	return others
}

// dateString renders a date as an ISO-8601 string, or nil when absent.
func dateString(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format("2006-01-02")
}

// timeString renders a timestamp as an RFC 3339 string in UTC.
func timeString(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
