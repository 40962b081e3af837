package grpc

import (
	"context"
	"errors"
	"net"
	"path"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"ensname/internal/domain"
	"ensname/internal/names"
	"ensname/internal/registry"
)

// NameService is what the transport needs from the name service.
type NameService interface {
	Namehash(ctx context.Context, raw string) (names.HashResult, error)
	LabelHash(label string) domain.NodeHash
	ValidateValue(v any) domain.ValidationResult
	Preflight(ctx context.Context, label string) (names.Preflight, error)
	Lookup(ctx context.Context, name string) (registry.Record, error)
	Reverse(ctx context.Context, address string) (string, error)
	BuildTx(ctx context.Context, p names.TxParams) (names.TxResult, error)
}

// RequestObserver records finished requests; *metrics.Metrics implements it.
type RequestObserver interface {
	ObserveRequest(transport, method, code string, d time.Duration)
}

type Server struct {
	svc NameService
}

func NewServer(svc NameService) *Server {
	return &Server{svc: svc}
}

func (s *Server) Namehash(ctx context.Context, req *NamehashRequest) (*NamehashResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	res, err := s.svc.Namehash(ctx, req.Name)
	if err != nil {
		return nil, toStatus(err)
	}
	return &NamehashResponse{Name: res.Name, Labels: res.Labels, Node: res.Node.Hex()}, nil
}

func (s *Server) LabelHash(ctx context.Context, req *LabelHashRequest) (*LabelHashResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return &LabelHashResponse{Label: req.Label, Hash: s.svc.LabelHash(req.Label).Hex()}, nil
}

func (s *Server) Validate(ctx context.Context, req *ValidateRequest) (*ValidateResponse, error) {
	res := s.svc.ValidateValue(req.Label)
	return &res, nil
}

func (s *Server) Preflight(ctx context.Context, req *PreflightRequest) (*PreflightResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	p, err := s.svc.Preflight(ctx, req.Label)
	if err != nil {
		return nil, toStatus(err)
	}
	return &p, nil
}

func (s *Server) Lookup(ctx context.Context, req *LookupRequest) (*LookupResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	rec, err := s.svc.Lookup(ctx, req.Name)
	if err != nil {
		return nil, toStatus(err)
	}
	return &rec, nil
}

func (s *Server) Reverse(ctx context.Context, req *ReverseRequest) (*ReverseResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	name, err := s.svc.Reverse(ctx, req.Address)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ReverseResponse{Address: req.Address, Name: name}, nil
}

func (s *Server) BuildTx(ctx context.Context, req *BuildTxRequest) (*BuildTxResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	res, err := s.svc.BuildTx(ctx, names.TxParams{
		Kind:     req.Kind,
		Name:     req.Name,
		Resolver: req.Resolver,
		Address:  req.Address,
		Key:      req.Key,
		Value:    req.Value,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &res, nil
}

// toStatus maps service errors onto gRPC codes. Unclassified errors come
// from the JSON-RPC upstream.
func toStatus(err error) error {
	switch {
	case errors.Is(err, names.ErrInvalidName), errors.Is(err, names.ErrInvalidAddress), errors.Is(err, names.ErrInvalidTx):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, names.ErrRegistryUnavailable):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, registry.ErrNoResolver), errors.Is(err, registry.ErrReverseMismatch):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Unavailable, err.Error())
	}
}

// UnaryInterceptor logs and measures every call.
func UnaryInterceptor(log *zap.Logger, obs RequestObserver) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		elapsed := time.Since(start)

		code := status.Code(err)
		method := path.Base(info.FullMethod)
		if obs != nil {
			obs.ObserveRequest("grpc", method, code.String(), elapsed)
		}

		fields := []zap.Field{
			zap.String("method", method),
			zap.String("code", code.String()),
			zap.Duration("elapsed", elapsed),
		}
		switch code {
		case codes.OK, codes.InvalidArgument, codes.NotFound, codes.FailedPrecondition:
			log.Debug("grpc call", fields...)
		default:
			log.Warn("grpc call failed", append(fields, zap.Error(err))...)
		}
		return resp, err
	}
}

// NewGRPCServer builds a grpc.Server serving NameService.
func NewGRPCServer(svc NameService, log *zap.Logger, obs RequestObserver) *grpc.Server {
	s := grpc.NewServer(grpc.UnaryInterceptor(UnaryInterceptor(log, obs)))
	RegisterNameServiceServer(s, NewServer(svc))
	reflection.Register(s)
	return s
}

// RunGRPCServer starts a gRPC server on the given address and
// shuts it down gracefully when the context is canceled.
func RunGRPCServer(ctx context.Context, addr string, svc NameService, log *zap.Logger, obs RequestObserver) error {
	if addr == "" {
		addr = ":9090"
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	s := NewGRPCServer(svc, log, obs)

	// Stop the server once the context is done (SIGTERM, timeout, etc.).
	go func() {
		<-ctx.Done()
		s.GracefulStop()
	}()

	log.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
	if err := s.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}
