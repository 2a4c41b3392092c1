package realtime

import (
	"context"
	"fmt"
	"reflect"

	"github.com/google/uuid"

	"github.com/SamTugah-KACE/staged-staff-records-backend-sub001/internal/domain"
)

// Resolution identifies the employee and tenant that own a mutation.
type Resolution struct {
	EmployeeID uuid.UUID
	OrgID      uuid.UUID
}

// Strategy resolves the owning employee and tenant from a mutated entity.
// One strategy is bound per entity type when the resolver is constructed;
// nothing is inferred from the entity at runtime.
type Strategy interface {
	resolve(ctx context.Context, entity any, reader domain.EmployeeReader) (Resolution, error)
}

// DirectEmployee reads both identifiers straight off the employee entity.
type DirectEmployee struct{}

func (DirectEmployee) resolve(_ context.Context, entity any, _ domain.EmployeeReader) (Resolution, error) {
	switch e := entity.(type) {
	case *domain.Employee:
		return Resolution{EmployeeID: e.ID, OrgID: e.OrganizationID}, nil
	case domain.Employee:
		return Resolution{EmployeeID: e.ID, OrgID: e.OrganizationID}, nil
	}
	return Resolution{}, fmt.Errorf("entity is not an employee")
}

// ForeignKeyLookup extracts an employee foreign key from the entity and
// resolves the tenant with a lookup query against the employee table.
type ForeignKeyLookup struct {
	EmployeeID func(entity any) (uuid.UUID, bool)
}

func (f ForeignKeyLookup) resolve(ctx context.Context, entity any, reader domain.EmployeeReader) (Resolution, error) {
	employeeID, ok := f.EmployeeID(entity)
	if !ok || employeeID == uuid.Nil {
		return Resolution{}, fmt.Errorf("entity has no employee foreign key")
	}
	orgID, err := reader.GetEmployeeOrg(ctx, employeeID)
	if err != nil {
		return Resolution{}, fmt.Errorf("look up tenant for employee %s: %w", employeeID, err)
	}
	return Resolution{EmployeeID: employeeID, OrgID: orgID}, nil
}

// RelationshipLookup reads both identifiers off an eagerly loaded owning
// employee carried by the entity itself, avoiding an extra query.
type RelationshipLookup struct {
	Owner func(entity any) (*domain.Employee, bool)
}

func (r RelationshipLookup) resolve(_ context.Context, entity any, _ domain.EmployeeReader) (Resolution, error) {
	owner, ok := r.Owner(entity)
	if !ok || owner == nil {
		return Resolution{}, fmt.Errorf("entity carries no owning employee")
	}
	return Resolution{EmployeeID: owner.ID, OrgID: owner.OrganizationID}, nil
}

// Resolver maps entity types to resolution strategies.
type Resolver struct {
	reader     domain.EmployeeReader
	strategies map[reflect.Type]Strategy
}

func NewResolver(reader domain.EmployeeReader) *Resolver {
	return &Resolver{
		reader:     reader,
		strategies: make(map[reflect.Type]Strategy),
	}
}

// On binds a strategy to the concrete type of the given prototype entity.
func (r *Resolver) On(prototype any, s Strategy) *Resolver {
	r.strategies[reflect.TypeOf(prototype)] = s
	return r
}

// Resolve determines the owning employee and tenant of a mutation. An entity
// type without a bound strategy, or a strategy that cannot extract both
// identifiers, yields an error; callers drop the event and record it.
func (r *Resolver) Resolve(ctx context.Context, m Mutation) (Resolution, error) {
	if m.Entity == nil {
		return Resolution{}, fmt.Errorf("mutation carries no entity")
	}
	s, ok := r.strategies[reflect.TypeOf(m.Entity)]
	if !ok {
		return Resolution{}, fmt.Errorf("no resolution strategy for %T", m.Entity)
	}
	return s.resolve(ctx, m.Entity, r.reader)
}

// EntityName returns a short label for a mutated entity, used in logs and
// metric labels.
func EntityName(entity any) string {
	if entity == nil {
		return "nil"
	}
	t := reflect.TypeOf(entity)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

// DefaultResolver binds the strategies for every tracked entity type.
func DefaultResolver(reader domain.EmployeeReader) *Resolver {
	return NewResolver(reader).
		On(&domain.Employee{}, DirectEmployee{}).
		On(&domain.AcademicQualification{}, ForeignKeyLookup{EmployeeID: func(e any) (uuid.UUID, bool) {
			v, ok := e.(*domain.AcademicQualification)
			if !ok {
				return uuid.Nil, false
			}
			return v.EmployeeID, true
		}}).
		On(&domain.ProfessionalQualification{}, ForeignKeyLookup{EmployeeID: func(e any) (uuid.UUID, bool) {
			v, ok := e.(*domain.ProfessionalQualification)
			if !ok {
				return uuid.Nil, false
			}
			return v.EmployeeID, true
		}}).
		On(&domain.EmploymentHistory{}, ForeignKeyLookup{EmployeeID: func(e any) (uuid.UUID, bool) {
			v, ok := e.(*domain.EmploymentHistory)
			if !ok {
				return uuid.Nil, false
			}
			return v.EmployeeID, true
		}}).
		On(&domain.EmergencyContact{}, ForeignKeyLookup{EmployeeID: func(e any) (uuid.UUID, bool) {
			v, ok := e.(*domain.EmergencyContact)
			if !ok {
				return uuid.Nil, false
			}
			return v.EmployeeID, true
		}}).
		On(&domain.NextOfKin{}, ForeignKeyLookup{EmployeeID: func(e any) (uuid.UUID, bool) {
			v, ok := e.(*domain.NextOfKin)
			if !ok {
				return uuid.Nil, false
			}
			return v.EmployeeID, true
		}}).
		On(&domain.PaymentDetail{}, ForeignKeyLookup{EmployeeID: func(e any) (uuid.UUID, bool) {
			v, ok := e.(*domain.PaymentDetail)
			if !ok {
				return uuid.Nil, false
			}
			return v.EmployeeID, true
		}}).
		On(&domain.Promotion{}, ForeignKeyLookup{EmployeeID: func(e any) (uuid.UUID, bool) {
			v, ok := e.(*domain.Promotion)
			if !ok {
				return uuid.Nil, false
			}
			return v.EmployeeID, true
		}}).
		On(&domain.SalaryPayment{}, ForeignKeyLookup{EmployeeID: func(e any) (uuid.UUID, bool) {
			v, ok := e.(*domain.SalaryPayment)
			if !ok {
				return uuid.Nil, false
			}
			return v.EmployeeID, true
		}}).
		On(&domain.EmployeeDynamicField{}, ForeignKeyLookup{EmployeeID: func(e any) (uuid.UUID, bool) {
			v, ok := e.(*domain.EmployeeDynamicField)
			if !ok {
				return uuid.Nil, false
			}
			return v.EmployeeID, true
		}})
}
