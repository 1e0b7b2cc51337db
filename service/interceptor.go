package service

import (
	"context"
	"log/slog"
	"path"
	"time"

	slogcontext "github.com/veqryn/slog-context"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"ocm.software/open-component-model/managerproxy/metrics"
)

// UnaryInterceptors returns the interceptors every call of the service must pass.
// The first one stores a logger for the call in the context, the second one records metrics.
func (s *Service) UnaryInterceptors() []grpc.UnaryServerInterceptor {
	return []grpc.UnaryServerInterceptor{
		s.loggingInterceptor,
		metricsInterceptor,
	}
}

func (s *Service) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	method := path.Base(info.FullMethod)
	logger := s.opts.Logger.With(slog.String("method", method))
	ctx = slogcontext.NewCtx(ctx, logger)

	logger.DebugContext(ctx, "handling call")
	resp, err := handler(ctx, req)
	logger.DebugContext(ctx, "handled call", "code", status.Code(err).String())
	return resp, err
}

func metricsInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	method := path.Base(info.FullMethod)
	start := time.Now()
	resp, err := handler(ctx, req)
	metrics.SetDurationObserver(CallDurationHistogram.WithLabelValues(method), start)
	CallsCounterTotal.WithLabelValues(method, status.Code(err).String()).Inc()
	return resp, err
}
