package handlers

import (
	"context"
	"testing"

	"github.com/gartstein/pdv/internal/pos/auth"
	"github.com/gartstein/pdv/internal/pos/controller"
	"github.com/gartstein/pdv/internal/pos/db/dbtest"
	"github.com/gartstein/pdv/internal/pos/models"
	"github.com/gartstein/pdv/internal/pos/sale"
	"github.com/gartstein/pdv/internal/pos/tenant"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	alice     = "alice"
	bob       = "bob"
	jwtSecret = "test-secret"
)

type fixture struct {
	handler *POSHandler
	storeA  models.Company
	storeB  models.Company
}

// newFixture serves a real service over SQLite. alice belongs to two
// stores, bob to none.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := dbtest.New(t)
	logger := zaptest.NewLogger(t)

	service := controller.NewPOSService(
		repo,
		tenant.NewRegistry(repo, repo, logger),
		sale.NewSubmitter(repo, logger),
		nil,
		logger,
	)
	return &fixture{
		handler: NewPOSHandler(service, logger),
		storeA:  dbtest.Company(t, repo, alice, "Loja A", "11222333000181", "loja_a"),
		storeB:  dbtest.Company(t, repo, alice, "Loja B", "11222333000262", "loja_b"),
	}
}

func asUser(userID string) context.Context {
	return auth.WithClaims(context.Background(), jwt.MapClaims{"sub": userID})
}

func req(t *testing.T, m map[string]interface{}) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func field(s *structpb.Struct, path ...string) *structpb.Value {
	v := structpb.NewStructValue(s)
	for _, key := range path {
		v = v.GetStructValue().GetFields()[key]
	}
	return v
}

func str(s *structpb.Struct, path ...string) string {
	return field(s, path...).GetStringValue()
}
