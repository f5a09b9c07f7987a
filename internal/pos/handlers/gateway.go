package handlers

import (
	"errors"
	"io"
	"net/http"

	posv1 "github.com/gartstein/pdv/api/posv1"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// route binds an HTTP method and path template to a service method. Path
// parameters and the query names in query are copied into the request.
type route struct {
	verb    string
	pattern string
	method  string
	query   map[string]string
}

var routes = []route{
	{http.MethodPost, "/v1/scope/initialize", posv1.MethodInitializeScope, nil},
	{http.MethodPost, "/v1/scope/switch", posv1.MethodSwitchCompany, nil},
	{http.MethodGet, "/v1/scope", posv1.MethodGetScope, nil},
	{http.MethodGet, "/v1/companies", posv1.MethodListCompanies, nil},
	{http.MethodPost, "/v1/companies", posv1.MethodCreateCompany, nil},
	{http.MethodPost, "/v1/signout", posv1.MethodSignOut, nil},

	{http.MethodGet, "/v1/catalog/{kind}", posv1.MethodListCatalog, map[string]string{"q": "term"}},
	{http.MethodPost, "/v1/catalog/{kind}", posv1.MethodCreateCatalogItem, nil},
	{http.MethodGet, "/v1/catalog/{kind}/{id}", posv1.MethodGetCatalogItem, nil},
	{http.MethodPatch, "/v1/catalog/{kind}/{id}", posv1.MethodUpdateCatalogItem, nil},
	{http.MethodDelete, "/v1/catalog/{kind}/{id}", posv1.MethodDeleteCatalogItem, nil},

	{http.MethodPost, "/v1/drafts", posv1.MethodCreateDraft, nil},
	{http.MethodGet, "/v1/drafts/{draft_id}", posv1.MethodGetDraft, nil},
	{http.MethodPatch, "/v1/drafts/{draft_id}", posv1.MethodUpdateDraft, nil},
	{http.MethodDelete, "/v1/drafts/{draft_id}", posv1.MethodDeleteDraft, nil},
	{http.MethodPost, "/v1/drafts/{draft_id}/items", posv1.MethodAddDraftItem, nil},
	{http.MethodPatch, "/v1/drafts/{draft_id}/items/{index}", posv1.MethodUpdateDraftItem, nil},
	{http.MethodDelete, "/v1/drafts/{draft_id}/items/{index}", posv1.MethodRemoveDraftItem, nil},
	{http.MethodPost, "/v1/drafts/{draft_id}/submit", posv1.MethodSubmitDraft, nil},
	{http.MethodPost, "/v1/sales/{sale_id}/edit", posv1.MethodEditSale, nil},

	{http.MethodGet, "/v1/sales", posv1.MethodListSales, map[string]string{"today": "today"}},
	{http.MethodGet, "/v1/sales/{sale_id}", posv1.MethodGetSale, nil},
	{http.MethodDelete, "/v1/sales/{sale_id}", posv1.MethodDeleteSale, nil},
}

// NewGatewayMux serves the REST routes of the POS service by calling h in
// process. Callers are expected to authenticate requests before the mux.
func NewGatewayMux(h posv1.POSServiceServer) (*runtime.ServeMux, error) {
	mux := runtime.NewServeMux()
	for _, rt := range routes {
		if err := mux.HandlePath(rt.verb, rt.pattern, gatewayHandler(mux, h, rt)); err != nil {
			return nil, err
		}
	}
	return mux, nil
}

func gatewayHandler(mux *runtime.ServeMux, h posv1.POSServiceServer, rt route) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
		ctx := r.Context()
		inbound, outbound := runtime.MarshalerForRequest(mux, r)

		req := &structpb.Struct{}
		if r.Body != nil && r.Method != http.MethodGet && r.Method != http.MethodDelete {
			if err := inbound.NewDecoder(r.Body).Decode(req); err != nil && !errors.Is(err, io.EOF) {
				runtime.HTTPError(ctx, mux, outbound, w, r, status.Errorf(codes.InvalidArgument, "invalid body: %v", err))
				return
			}
		}
		if req.Fields == nil {
			req.Fields = map[string]*structpb.Value{}
		}
		for key, value := range pathParams {
			req.Fields[key] = structpb.NewStringValue(value)
		}
		for param, key := range rt.query {
			if v := r.URL.Query().Get(param); v != "" {
				req.Fields[key] = structpb.NewStringValue(v)
			}
		}

		resp, err := h.Call(ctx, rt.method, req)
		if err != nil {
			runtime.HTTPError(ctx, mux, outbound, w, r, err)
			return
		}

		buf, err := outbound.Marshal(resp)
		if err != nil {
			runtime.HTTPError(ctx, mux, outbound, w, r, status.Errorf(codes.Internal, "failed to marshal response: %v", err))
			return
		}
		w.Header().Set("Content-Type", outbound.ContentType(resp))
		_, _ = w.Write(buf)
	}
}
