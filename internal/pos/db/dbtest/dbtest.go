// Package dbtest opens throwaway repositories for tests.
package dbtest

import (
	"context"
	"testing"

	"github.com/gartstein/pdv/internal/pos/db"
	"github.com/gartstein/pdv/internal/pos/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

// New returns a repository on an in-memory SQLite database. A single
// connection is used so attached company schemas stay visible.
func New(t *testing.T) *db.Repository {
	t.Helper()

	repo, err := db.Open(sqlite.Open(":memory:"), 1)
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

// Company creates a company with a provisioned schema and makes userID a
// member of it.
func Company(t *testing.T, repo *db.Repository, userID, name, cnpj, schema string) models.Company {
	t.Helper()
	ctx := context.Background()

	company := models.Company{CNPJ: cnpj, Name: name, Schema: schema}
	require.NoError(t, repo.CreateCompany(ctx, &company))
	require.NoError(t, repo.ProvisionSchema(ctx, schema))
	if userID != "" {
		require.NoError(t, repo.AddMembership(ctx, userID, company.ID))
	}
	return company
}
