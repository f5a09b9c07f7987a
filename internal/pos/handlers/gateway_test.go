package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gartstein/pdv/internal/pos/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gatewayClient struct {
	t       *testing.T
	handler http.Handler
	token   string
}

func (c *gatewayClient) do(method, path, body string) (int, map[string]interface{}) {
	c.t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		r.Header.Set("Authorization", "Bearer "+c.token)
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, r)

	var out map[string]interface{}
	require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

func newGatewayClient(t *testing.T, userID string) (*fixture, *gatewayClient) {
	t.Helper()
	f := newFixture(t)
	mux, err := NewGatewayMux(f.handler)
	require.NoError(t, err)

	token, err := auth.GenerateToken(userID, jwtSecret)
	require.NoError(t, err)
	return f, &gatewayClient{t: t, handler: auth.HTTPMiddleware(mux, jwtSecret), token: token}
}

func TestGateway_Routes(t *testing.T) {
	_, c := newGatewayClient(t, alice)

	code, out := c.do(http.MethodPost, "/v1/scope/initialize", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "resolved", out["state"])

	code, out = c.do(http.MethodPost, "/v1/catalog/products", `{"name":"Café","price":"4.5","stock":3}`)
	require.Equal(t, http.StatusOK, code)
	item := out["item"].(map[string]interface{})
	assert.Equal(t, "4.50", item["price"])
	id := item["id"].(string)

	code, out = c.do(http.MethodPatch, "/v1/catalog/products/"+id, `{"stock":5}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(5), out["item"].(map[string]interface{})["stock"])

	code, out = c.do(http.MethodGet, "/v1/catalog/products?q=CAF", "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, out["items"], 1)

	code, out = c.do(http.MethodPost, "/v1/drafts", "")
	require.Equal(t, http.StatusOK, code)
	draftID := out["draft"].(map[string]interface{})["id"].(string)

	code, _ = c.do(http.MethodPost, "/v1/drafts/"+draftID+"/items", `{"ref_kind":"produto","ref_id":"`+id+`"}`)
	require.Equal(t, http.StatusOK, code)

	code, out = c.do(http.MethodPatch, "/v1/drafts/"+draftID+"/items/0", `{"quantity":2}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "9.00", out["draft"].(map[string]interface{})["total"])

	code, _ = c.do(http.MethodPatch, "/v1/drafts/"+draftID, `{"client":"Ana","seller":"Rui"}`)
	require.Equal(t, http.StatusOK, code)

	code, out = c.do(http.MethodPost, "/v1/drafts/"+draftID+"/submit", "")
	require.Equal(t, http.StatusOK, code)
	saleID := out["sale"].(map[string]interface{})["id"].(string)

	code, out = c.do(http.MethodGet, "/v1/sales?today=true", "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, out["sales"], 1)

	code, _ = c.do(http.MethodDelete, "/v1/sales/"+saleID, "")
	require.Equal(t, http.StatusOK, code)

	code, _ = c.do(http.MethodGet, "/v1/sales/"+saleID, "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestGateway_Errors(t *testing.T) {
	_, c := newGatewayClient(t, bob)

	code, out := c.do(http.MethodPost, "/v1/scope/initialize", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, out["selection_required"])

	code, _ = c.do(http.MethodGet, "/v1/catalog/products", "")
	assert.Equal(t, http.StatusBadRequest, code, "FailedPrecondition renders as 400")

	code, _ = c.do(http.MethodGet, "/v1/catalog/widgets", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = c.do(http.MethodPost, "/v1/companies", `{"name":"Loja C","cnpj":"123"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, out = c.do(http.MethodPost, "/v1/companies", `{"name":"Loja C","cnpj":"11.222.333/0003-43"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "empresa_11222333000343", out["company"].(map[string]interface{})["schema"])

	code, _ = c.do(http.MethodPost, "/v1/companies", `{"name":"Loja D","cnpj":"11222333000343"}`)
	assert.Equal(t, http.StatusConflict, code)

	code, _ = c.do(http.MethodPost, "/v1/drafts", "{not json")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestGateway_RequiresToken(t *testing.T) {
	_, c := newGatewayClient(t, alice)
	c.token = ""

	r := httptest.NewRequest(http.MethodGet, "/v1/scope", nil)
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
