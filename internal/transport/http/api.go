package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	grpcTransport "ensname/internal/transport/grpc"
)

// api maps REST routes onto the gRPC server methods.
type api struct {
	srv *grpcTransport.Server
	mux *runtime.ServeMux
	obs grpcTransport.RequestObserver
}

type route struct {
	method  string
	pattern string
	name    string
	call    func(ctx context.Context, r *http.Request, params map[string]string) (any, error)
}

func (a *api) routes() []route {
	return []route{
		{http.MethodGet, "/api/v1/namehash", "Namehash", func(ctx context.Context, r *http.Request, _ map[string]string) (any, error) {
			return a.srv.Namehash(ctx, &grpcTransport.NamehashRequest{Name: r.URL.Query().Get("name")})
		}},
		{http.MethodGet, "/api/v1/namehash/{name}", "Namehash", func(ctx context.Context, _ *http.Request, p map[string]string) (any, error) {
			return a.srv.Namehash(ctx, &grpcTransport.NamehashRequest{Name: p["name"]})
		}},
		{http.MethodGet, "/api/v1/labelhash/{label}", "LabelHash", func(ctx context.Context, _ *http.Request, p map[string]string) (any, error) {
			return a.srv.LabelHash(ctx, &grpcTransport.LabelHashRequest{Label: p["label"]})
		}},
		{http.MethodGet, "/api/v1/validate/{label}", "Validate", func(ctx context.Context, _ *http.Request, p map[string]string) (any, error) {
			return a.srv.Validate(ctx, &grpcTransport.ValidateRequest{Label: p["label"]})
		}},
		{http.MethodPost, "/api/v1/validate", "Validate", func(ctx context.Context, r *http.Request, _ map[string]string) (any, error) {
			var req grpcTransport.ValidateRequest
			if err := a.decode(r, &req); err != nil {
				return nil, err
			}
			return a.srv.Validate(ctx, &req)
		}},
		{http.MethodGet, "/api/v1/preflight/{label}", "Preflight", func(ctx context.Context, _ *http.Request, p map[string]string) (any, error) {
			return a.srv.Preflight(ctx, &grpcTransport.PreflightRequest{Label: p["label"]})
		}},
		{http.MethodGet, "/api/v1/names/{name}", "Lookup", func(ctx context.Context, _ *http.Request, p map[string]string) (any, error) {
			return a.srv.Lookup(ctx, &grpcTransport.LookupRequest{Name: p["name"]})
		}},
		{http.MethodGet, "/api/v1/reverse/{address}", "Reverse", func(ctx context.Context, _ *http.Request, p map[string]string) (any, error) {
			return a.srv.Reverse(ctx, &grpcTransport.ReverseRequest{Address: p["address"]})
		}},
		{http.MethodPost, "/api/v1/tx/{kind}", "BuildTx", func(ctx context.Context, r *http.Request, p map[string]string) (any, error) {
			var req grpcTransport.BuildTxRequest
			if err := a.decode(r, &req); err != nil {
				return nil, err
			}
			req.Kind = p["kind"]
			return a.srv.BuildTx(ctx, &req)
		}},
	}
}

func (a *api) register() error {
	for _, rt := range a.routes() {
		if err := a.mux.HandlePath(rt.method, rt.pattern, a.handler(rt)); err != nil {
			return err
		}
	}
	return nil
}

func (a *api) handler(rt route) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			if a.obs != nil {
				a.obs.ObserveRequest("http", rt.name, strconv.Itoa(ww.Status()), time.Since(start))
			}
		}()

		ctx := r.Context()
		_, outbound := runtime.MarshalerForRequest(a.mux, r)

		resp, err := rt.call(ctx, r, params)
		if err != nil {
			runtime.HTTPError(ctx, a.mux, outbound, ww, r, err)
			return
		}

		buf, err := outbound.Marshal(resp)
		if err != nil {
			runtime.HTTPError(ctx, a.mux, outbound, ww, r, err)
			return
		}
		ww.Header().Set("Content-Type", outbound.ContentType(resp))
		ww.WriteHeader(http.StatusOK)
		_, _ = ww.Write(buf)
	}
}

func (a *api) decode(r *http.Request, v any) error {
	inbound, _ := runtime.MarshalerForRequest(a.mux, r)
	if err := inbound.NewDecoder(r.Body).Decode(v); err != nil {
		return status.Errorf(codes.InvalidArgument, "decode request body: %v", err)
	}
	return nil
}
