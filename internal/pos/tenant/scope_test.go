package tenant

import (
	"context"
	"errors"
	"testing"
	"time"

	e "github.com/gartstein/pdv/internal/pos/errors"
	"github.com/gartstein/pdv/internal/pos/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

// mockDirectory implements Directory with func fields.
type mockDirectory struct {
	membershipsForUser func(context.Context, string) ([]models.Membership, error)
	hasMembership      func(context.Context, string, uuid.UUID) (bool, error)
	getCompany         func(context.Context, uuid.UUID) (*models.Company, error)
	companiesForUser   func(context.Context, string) ([]models.Company, error)
}

func (m *mockDirectory) MembershipsForUser(ctx context.Context, userID string) ([]models.Membership, error) {
	return m.membershipsForUser(ctx, userID)
}

func (m *mockDirectory) HasMembership(ctx context.Context, userID string, companyID uuid.UUID) (bool, error) {
	return m.hasMembership(ctx, userID, companyID)
}

func (m *mockDirectory) GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	return m.getCompany(ctx, id)
}

func (m *mockDirectory) CompaniesForUser(ctx context.Context, userID string) ([]models.Company, error) {
	return m.companiesForUser(ctx, userID)
}

// recordingTables remembers the qualified names it was asked for.
type recordingTables struct {
	names []string
}

func (r *recordingTables) Table(_ context.Context, qualified string) *gorm.DB {
	r.names = append(r.names, qualified)
	return nil
}

const testUser = "user-1"

var (
	storeA = models.Company{ID: uuid.New(), Name: "Loja A", CNPJ: "11222333000181", Schema: "loja_a"}
	storeB = models.Company{ID: uuid.New(), Name: "Loja B", CNPJ: "11222333000262", Schema: "loja_b"}
)

// directoryFor builds a directory where testUser belongs to members.
func directoryFor(companies []models.Company, members ...models.Company) *mockDirectory {
	return &mockDirectory{
		membershipsForUser: func(_ context.Context, userID string) ([]models.Membership, error) {
			var out []models.Membership
			for _, c := range members {
				out = append(out, models.Membership{UserID: userID, CompanyID: c.ID})
			}
			return out, nil
		},
		hasMembership: func(_ context.Context, _ string, id uuid.UUID) (bool, error) {
			for _, c := range members {
				if c.ID == id {
					return true, nil
				}
			}
			return false, nil
		},
		getCompany: func(_ context.Context, id uuid.UUID) (*models.Company, error) {
			for _, c := range companies {
				if c.ID == id {
					company := c
					return &company, nil
				}
			}
			return nil, e.ErrNotFound
		},
		companiesForUser: func(_ context.Context, _ string) ([]models.Company, error) {
			return members, nil
		},
	}
}

func TestScope_ScopedTableBeforeResolution(t *testing.T) {
	tables := &recordingTables{}
	scope := NewScope(testUser, directoryFor(nil), tables, zaptest.NewLogger(t))

	handle, err := scope.ScopedTable(context.Background(), "produtos")
	assert.Nil(t, handle)
	assert.ErrorIs(t, err, e.ErrUninitialized)
	assert.Empty(t, tables.names, "no handle may be opened without a resolved scope")
	assert.Equal(t, Uninitialized, scope.Status().State)
}

func TestScope_Initialize(t *testing.T) {
	noSchema := models.Company{ID: uuid.New(), Name: "Sem Schema"}

	tests := []struct {
		name        string
		dir         *mockDirectory
		wantErr     error
		wantState   State
		wantCompany uuid.UUID
	}{
		{
			name:        "first membership resolved",
			dir:         directoryFor([]models.Company{storeA, storeB}, storeA, storeB),
			wantState:   Resolved,
			wantCompany: storeA.ID,
		},
		{
			name:      "no membership",
			dir:       directoryFor([]models.Company{storeA}),
			wantErr:   e.ErrNoMembership,
			wantState: Failed,
		},
		{
			name:      "company without schema",
			dir:       directoryFor([]models.Company{noSchema}, noSchema),
			wantErr:   e.ErrNoSchema,
			wantState: Failed,
		},
		{
			name: "lookup error",
			dir: &mockDirectory{
				membershipsForUser: func(context.Context, string) ([]models.Membership, error) {
					return nil, errors.New("connection refused")
				},
			},
			wantState: Failed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scope := NewScope(testUser, tt.dir, &recordingTables{}, zaptest.NewLogger(t))
			err := scope.Initialize(context.Background())

			status := scope.Status()
			assert.Equal(t, tt.wantState, status.State)
			if tt.wantState == Resolved {
				require.NoError(t, err)
				assert.Equal(t, tt.wantCompany, status.CompanyID)
				return
			}
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Equal(t, err, status.Err)
		})
	}
}

func TestScope_ScopedTableAfterResolution(t *testing.T) {
	tables := &recordingTables{}
	scope := NewScope(testUser, directoryFor([]models.Company{storeA}, storeA), tables, zaptest.NewLogger(t))
	require.NoError(t, scope.Initialize(context.Background()))

	handle, err := scope.ScopedTable(context.Background(), "produtos")
	require.NoError(t, err)
	assert.Equal(t, []string{"loja_a.produtos"}, tables.names)
	assert.Equal(t, storeA.ID, handle.Binding.CompanyID)
	assert.True(t, scope.IsCurrent(handle.Binding))

	_, err = scope.ScopedTable(context.Background(), "produtos; drop table vendas")
	assert.ErrorIs(t, err, e.ErrInvalidInput)
}

func TestScope_SwitchCompany(t *testing.T) {
	outsider := models.Company{ID: uuid.New(), Name: "Outra", Schema: "outra"}
	companies := []models.Company{storeA, storeB, outsider}

	t.Run("non member keeps previous scope", func(t *testing.T) {
		scope := NewScope(testUser, directoryFor(companies, storeA, storeB), &recordingTables{}, zaptest.NewLogger(t))
		require.NoError(t, scope.Initialize(context.Background()))
		before := scope.Status()
		b, err := scope.Binding()
		require.NoError(t, err)

		err = scope.SwitchCompany(context.Background(), outsider.ID)
		assert.ErrorIs(t, err, e.ErrNotMember)

		after := scope.Status()
		assert.Equal(t, Resolved, after.State)
		assert.Equal(t, before.CompanyID, after.CompanyID)
		assert.Equal(t, before.Schema, after.Schema)
		assert.True(t, scope.IsCurrent(b), "binding taken before the failed switch is still current")
		assert.NoError(t, scope.Check(b))

		require.NoError(t, scope.SwitchCompany(context.Background(), storeB.ID))
		assert.False(t, scope.IsCurrent(b))
	})

	t.Run("failed switch after superseded one keeps bindings", func(t *testing.T) {
		dir := directoryFor(companies, storeA, storeB)
		entered := make(chan struct{})
		release := make(chan struct{})
		member := dir.hasMembership
		dir.hasMembership = func(ctx context.Context, userID string, id uuid.UUID) (bool, error) {
			if id == storeB.ID {
				close(entered)
				<-release
			}
			return member(ctx, userID, id)
		}
		scope := NewScope(testUser, dir, &recordingTables{}, zaptest.NewLogger(t))
		require.NoError(t, scope.Initialize(context.Background()))
		b, err := scope.Binding()
		require.NoError(t, err)

		done := make(chan error, 1)
		go func() {
			done <- scope.SwitchCompany(context.Background(), storeB.ID)
		}()
		<-entered

		assert.ErrorIs(t, scope.SwitchCompany(context.Background(), outsider.ID), e.ErrNotMember)
		close(release)
		assert.ErrorIs(t, <-done, e.ErrStaleScope)

		assert.Equal(t, storeA.ID, scope.Status().CompanyID)
		assert.True(t, scope.IsCurrent(b))
	})

	t.Run("non member without previous scope fails", func(t *testing.T) {
		scope := NewScope(testUser, directoryFor(companies, storeA), &recordingTables{}, zaptest.NewLogger(t))

		err := scope.SwitchCompany(context.Background(), outsider.ID)
		assert.ErrorIs(t, err, e.ErrNotMember)
		assert.Equal(t, Failed, scope.Status().State)

		// Failed is recoverable.
		require.NoError(t, scope.SwitchCompany(context.Background(), storeA.ID))
		assert.Equal(t, Resolved, scope.Status().State)
	})

	t.Run("switch invalidates earlier bindings", func(t *testing.T) {
		scope := NewScope(testUser, directoryFor(companies, storeA, storeB), &recordingTables{}, zaptest.NewLogger(t))
		require.NoError(t, scope.Initialize(context.Background()))
		old, err := scope.Binding()
		require.NoError(t, err)

		require.NoError(t, scope.SwitchCompany(context.Background(), storeB.ID))

		assert.False(t, scope.IsCurrent(old))
		assert.ErrorIs(t, scope.Check(old), e.ErrStaleScope)
		current, err := scope.Binding()
		require.NoError(t, err)
		assert.Equal(t, "loja_b", current.Schema)
		assert.Equal(t, "loja_b.vendas", current.Qualify("vendas"))
	})

	t.Run("same company is a no-op", func(t *testing.T) {
		scope := NewScope(testUser, directoryFor(companies, storeA), &recordingTables{}, zaptest.NewLogger(t))
		require.NoError(t, scope.Initialize(context.Background()))
		b, err := scope.Binding()
		require.NoError(t, err)

		require.NoError(t, scope.SwitchCompany(context.Background(), storeA.ID))
		assert.True(t, scope.IsCurrent(b))
	})

	t.Run("nil id rejected", func(t *testing.T) {
		scope := NewScope(testUser, directoryFor(companies), &recordingTables{}, zaptest.NewLogger(t))
		assert.ErrorIs(t, scope.SwitchCompany(context.Background(), uuid.Nil), e.ErrInvalidInput)
		assert.Equal(t, Uninitialized, scope.Status().State)
	})
}

func TestScope_Reset(t *testing.T) {
	scope := NewScope(testUser, directoryFor([]models.Company{storeA}, storeA), &recordingTables{}, zaptest.NewLogger(t))
	require.NoError(t, scope.Initialize(context.Background()))
	b, err := scope.Binding()
	require.NoError(t, err)

	scope.Reset()

	assert.Equal(t, Uninitialized, scope.Status().State)
	assert.False(t, scope.IsCurrent(b))
	_, err = scope.ScopedTable(context.Background(), "vendas")
	assert.ErrorIs(t, err, e.ErrUninitialized)
}

func TestScope_SupersededResolutionIsDiscarded(t *testing.T) {
	dir := directoryFor([]models.Company{storeA}, storeA)
	entered := make(chan struct{})
	release := make(chan struct{})
	member := dir.hasMembership
	dir.hasMembership = func(ctx context.Context, userID string, id uuid.UUID) (bool, error) {
		close(entered)
		<-release
		return member(ctx, userID, id)
	}
	scope := NewScope(testUser, dir, &recordingTables{}, zaptest.NewLogger(t))

	done := make(chan error, 1)
	go func() {
		done <- scope.SwitchCompany(context.Background(), storeA.ID)
	}()

	<-entered
	assert.Equal(t, Resolving, scope.Status().State)
	_, err := scope.Binding()
	assert.ErrorIs(t, err, e.ErrUninitialized, "no binding while resolving")

	scope.Reset()
	close(release)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, e.ErrStaleScope)
	case <-time.After(2 * time.Second):
		t.Fatal("switch did not return")
	}
	assert.Equal(t, Uninitialized, scope.Status().State)
}

func TestScope_ListAvailableCompanies(t *testing.T) {
	scope := NewScope(testUser, directoryFor([]models.Company{storeA, storeB}, storeA, storeB), &recordingTables{}, zaptest.NewLogger(t))

	companies, err := scope.ListAvailableCompanies(context.Background())
	require.NoError(t, err)
	assert.Len(t, companies, 2)
	assert.Equal(t, Uninitialized, scope.Status().State, "listing does not resolve")
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry(directoryFor([]models.Company{storeA}, storeA), &recordingTables{}, zaptest.NewLogger(t))

	scope := registry.Scope(testUser)
	assert.Same(t, scope, registry.Scope(testUser))
	require.NoError(t, scope.Initialize(context.Background()))

	registry.Close(testUser)

	_, ok := registry.Lookup(testUser)
	assert.False(t, ok)
	assert.Equal(t, Uninitialized, scope.Status().State, "closed scope is reset")
	assert.NotSame(t, scope, registry.Scope(testUser))
}

func TestValidIdentifier(t *testing.T) {
	assert.True(t, ValidIdentifier("loja_a"))
	assert.True(t, ValidIdentifier("_x1"))
	assert.False(t, ValidIdentifier(""))
	assert.False(t, ValidIdentifier("1abc"))
	assert.False(t, ValidIdentifier("a.b"))
	assert.False(t, ValidIdentifier(`a"b`))
	assert.False(t, ValidIdentifier("Loja_A"))
}
