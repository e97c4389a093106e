package grpc

import (
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"liyu1981.xyz/speaker-energy-service/pkg/common"
	"liyu1981.xyz/speaker-energy-service/pkg/energy"
)

type EnergyServer struct {
	Energy   *energy.Energy
	Limiters *energy.SpeakerLimiters
}

func logger() *zap.Logger {
	return common.GetLoggerWith(common.LoggerNameGrpcServer)
}

func (s *EnergyServer) GetLimiter(speakerID uint) *rate.Limiter {
	if s.Limiters == nil {
		return nil
	} else {
		return s.Limiters.GetLimiter(speakerID)
	}
}

func (s *EnergyServer) CheckSpeakerLimiter(speakerID uint) bool {
	limiter := s.GetLimiter(speakerID)
	if limiter == nil {
		return true
	}
	return limiter.Allow()
}

// NewServer builds a gRPC server with the telemetry service, the standard
// health service and the per-speaker limiter on telemetry calls.
func (s *EnergyServer) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	interceptor := s.CreateRateLimitInterceptor([]any{
		&TelemetryRequest{},
	})
	server := grpc.NewServer(append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(metricsInterceptor, interceptor)}, opts...)...)

	RegisterTelemetryServiceServer(server, s)

	healthServer := health.NewServer()
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthServer)

	return server
}
