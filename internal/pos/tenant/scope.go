// Package tenant resolves which company namespace the queries of a session
// are bound to. A Scope fails closed: no handle is handed out until a
// company the user belongs to has been resolved.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"

	e "github.com/gartstein/pdv/internal/pos/errors"
	"github.com/gartstein/pdv/internal/pos/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// State of a Scope.
type State int

const (
	Uninitialized State = iota
	Resolving
	Resolved
	Failed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Resolving:
		return "resolving"
	case Resolved:
		return "resolved"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var identifier = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// ValidIdentifier reports whether name can be used as a schema or table
// name. Only lower case names are accepted so quoted and unquoted SQL agree.
func ValidIdentifier(name string) bool {
	return identifier.MatchString(name)
}

// Directory answers membership and company lookups.
type Directory interface {
	MembershipsForUser(ctx context.Context, userID string) ([]models.Membership, error)
	HasMembership(ctx context.Context, userID string, companyID uuid.UUID) (bool, error)
	GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error)
	CompaniesForUser(ctx context.Context, userID string) ([]models.Company, error)
}

// Tables opens query handles on schema qualified table names.
type Tables interface {
	Table(ctx context.Context, qualified string) *gorm.DB
}

// Binding pins the namespace that was active when it was taken.
type Binding struct {
	CompanyID  uuid.UUID
	Schema     string
	generation uint64
}

// Qualify returns table prefixed with the bound schema.
func (b Binding) Qualify(table string) string {
	return b.Schema + "." + table
}

// Table is a single-use query handle bound to one scoped table.
type Table struct {
	*gorm.DB
	Binding Binding
}

// Status is a snapshot of a Scope.
type Status struct {
	State       State
	CompanyID   uuid.UUID
	CompanyName string
	Schema      string
	// Err is the reason of the last failed resolution.
	Err error
}

// Scope is the tenant scope of one user session.
type Scope struct {
	userID string
	dir    Directory
	tables Tables
	logger *zap.Logger

	mu      sync.RWMutex
	state   State
	company models.Company
	prev    *models.Company
	err     error
	// generation numbers resolutions; bound is the generation bindings
	// carry. A failed switch restores the company without moving bound.
	generation uint64
	bound      uint64
}

// NewScope returns an uninitialized scope for userID.
func NewScope(userID string, dir Directory, tables Tables, logger *zap.Logger) *Scope {
	return &Scope{
		userID: userID,
		dir:    dir,
		tables: tables,
		logger: logger.Named("tenant_scope").With(zap.String("user_id", userID)),
	}
}

// UserID returns the session user.
func (s *Scope) UserID() string {
	return s.userID
}

// Initialize resolves the first company the user is a member of.
// ErrNoMembership is a normal outcome for users not linked to any company.
func (s *Scope) Initialize(ctx context.Context) error {
	gen := s.begin()
	company, err := s.defaultCompany(ctx)
	return s.finish(gen, company, err)
}

// SwitchCompany resolves companyID after checking the user is a member.
// On failure a previously resolved company stays active.
func (s *Scope) SwitchCompany(ctx context.Context, companyID uuid.UUID) error {
	if companyID == uuid.Nil {
		return fmt.Errorf("%w: company id required", e.ErrInvalidInput)
	}

	s.mu.RLock()
	same := s.state == Resolved && s.company.ID == companyID
	s.mu.RUnlock()
	if same {
		return nil
	}

	gen := s.begin()
	company, err := s.memberCompany(ctx, companyID)
	return s.finish(gen, company, err)
}

// ScopedTable returns a handle on name inside the resolved schema.
func (s *Scope) ScopedTable(ctx context.Context, name string) (*Table, error) {
	if !ValidIdentifier(name) {
		return nil, fmt.Errorf("%w: table name %q", e.ErrInvalidInput, name)
	}
	b, err := s.Binding()
	if err != nil {
		return nil, err
	}
	return &Table{DB: s.tables.Table(ctx, b.Qualify(name)), Binding: b}, nil
}

// Binding returns the active namespace or ErrUninitialized.
func (s *Scope) Binding() (Binding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state != Resolved {
		return Binding{}, fmt.Errorf("%w: scope is %s", e.ErrUninitialized, s.state)
	}
	return Binding{
		CompanyID:  s.company.ID,
		Schema:     s.company.Schema,
		generation: s.bound,
	}, nil
}

// IsCurrent reports whether b is still the active binding.
func (s *Scope) IsCurrent(b Binding) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == Resolved && s.bound == b.generation
}

// Check returns ErrStaleScope when b is no longer active.
func (s *Scope) Check(b Binding) error {
	if !s.IsCurrent(b) {
		return e.ErrStaleScope
	}
	return nil
}

// ListAvailableCompanies returns the companies of the user whatever the
// scope state is.
func (s *Scope) ListAvailableCompanies(ctx context.Context) ([]models.Company, error) {
	companies, err := s.dir.CompaniesForUser(ctx, s.userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	return companies, nil
}

// Status returns a snapshot of the scope.
func (s *Scope) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{State: s.state, Err: s.err}
	if s.state == Resolved {
		st.CompanyID = s.company.ID
		st.CompanyName = s.company.Name
		st.Schema = s.company.Schema
	}
	return st
}

// Reset drops the resolved company. Outstanding bindings become stale.
func (s *Scope) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = Uninitialized
	s.company = models.Company{}
	s.prev = nil
	s.err = nil
	s.generation++
	s.bound = s.generation
}

func (s *Scope) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Resolved:
		prev := s.company
		s.prev = &prev
	case Resolving:
		// keep the company saved by the resolution in flight
	default:
		s.prev = nil
	}
	s.state = Resolving
	s.err = nil
	s.generation++
	return s.generation
}

func (s *Scope) finish(gen uint64, company *models.Company, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != gen {
		s.logger.Debug("Discarding superseded resolution", zap.Error(err))
		if err != nil {
			return err
		}
		return e.ErrStaleScope
	}

	if err != nil {
		if s.prev != nil {
			s.company = *s.prev
			s.prev = nil
			s.state = Resolved
			s.logger.Warn("Company switch failed, keeping current company",
				zap.Error(err),
				zap.String("company_id", s.company.ID.String()),
			)
			return err
		}
		s.state = Failed
		s.company = models.Company{}
		s.err = err
		s.logger.Warn("Company scope resolution failed", zap.Error(err))
		return err
	}

	s.company = *company
	s.prev = nil
	s.state = Resolved
	s.bound = gen
	s.logger.Info("Company scope resolved",
		zap.String("company_id", company.ID.String()),
		zap.String("schema", company.Schema),
	)
	return nil
}

func (s *Scope) defaultCompany(ctx context.Context) (*models.Company, error) {
	memberships, err := s.dir.MembershipsForUser(ctx, s.userID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up memberships: %w", err)
	}
	if len(memberships) == 0 {
		return nil, e.ErrNoMembership
	}
	return s.lookupCompany(ctx, memberships[0].CompanyID)
}

func (s *Scope) memberCompany(ctx context.Context, companyID uuid.UUID) (*models.Company, error) {
	member, err := s.dir.HasMembership(ctx, s.userID, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if !member {
		return nil, fmt.Errorf("%w: %s", e.ErrNotMember, companyID)
	}
	return s.lookupCompany(ctx, companyID)
}

func (s *Scope) lookupCompany(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	company, err := s.dir.GetCompany(ctx, id)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, fmt.Errorf("%w: company %s", e.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	if company.Schema == "" || !ValidIdentifier(company.Schema) {
		return nil, fmt.Errorf("%w: %s", e.ErrNoSchema, company.Name)
	}
	return company, nil
}
