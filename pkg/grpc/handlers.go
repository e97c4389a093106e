package grpc

import (
	"context"
	"fmt"

	z "github.com/Oudwins/zog"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"liyu1981.xyz/speaker-energy-service/pkg/energy"
	"liyu1981.xyz/speaker-energy-service/pkg/models"
)

var okStatus = &StatusResponse{Success: true, Message: "OK"}

func validationError(issues any) error {
	return status.Errorf(codes.InvalidArgument, "validation error: %v", issues)
}

// toStatus maps a core error to a gRPC status. Internal failures are logged
// and answered without detail.
func toStatus(method string, err error) error {
	switch energy.ErrorKind(err) {
	case energy.ErrNotFound:
		return status.Error(codes.NotFound, err.Error())
	case energy.ErrBadRequest:
		return status.Error(codes.FailedPrecondition, err.Error())
	case energy.ErrConflict:
		return status.Error(codes.AlreadyExists, err.Error())
	default:
		logger().Error("Request failed", zap.String("method", method), zap.Error(err))
		return status.Error(codes.Internal, "internal error")
	}
}

var startSessionValidator = z.Struct(z.Shape{
	"SpeakerId":                z.Int64().Required().GTE(1),
	"UserId":                   z.Int64().Required().GTE(1),
	"InitialBatteryPercentage": z.Ptr(z.Float64().GTE(0).LTE(100)),
})

func (s *EnergyServer) StartSession(ctx context.Context, req *StartSessionRequest) (*StartSessionResponse, error) {
	if issues := startSessionValidator.Validate(req); issues != nil {
		return nil, validationError(issues)
	}

	result, err := s.Energy.Session.Start(ctx, energy.StartRequest{
		SpeakerID:                uint(req.SpeakerId),
		UserID:                   uint(req.UserId),
		InitialBatteryPercentage: req.InitialBatteryPercentage,
		Mode:                     req.Mode,
	})
	if err != nil {
		return nil, toStatus("StartSession", err)
	}

	return &StartSessionResponse{
		Status:    okStatus,
		SessionId: result.SessionID,
		StartTime: result.StartTime,
	}, nil
}

var telemetryValidator = z.Struct(z.Shape{
	"SessionId":               z.Int64().Required().GTE(1),
	"SpeakerId":               z.Int64().Required().GTE(1),
	"Timestamp":               z.Float64().GTE(0),
	"CurrentMA":               z.Float64().GTE(0),
	"VoltageV":                z.Float64().GTE(0),
	"PowerMW":                 z.Float64().GTE(0),
	"BatteryRemainingPercent": z.Float64().GTE(0).LTE(100),
	"TotalConsumedMAh":        z.Float64().GTE(0),
	"SampleIndex":             z.Int64().GTE(0),
})

func (s *EnergyServer) PostTelemetry(ctx context.Context, req *TelemetryRequest) (*TelemetryResponse, error) {
	if issues := telemetryValidator.Validate(req); issues != nil {
		return nil, validationError(issues)
	}

	sample := &energy.TelemetrySample{
		SessionID:               uint(req.SessionId),
		SpeakerID:               uint(req.SpeakerId),
		Timestamp:               req.Timestamp,
		CurrentMA:               req.CurrentMA,
		VoltageV:                req.VoltageV,
		PowerMW:                 req.PowerMW,
		BatteryRemainingPercent: req.BatteryRemainingPercent,
		TotalConsumedMAh:        req.TotalConsumedMAh,
		SampleIndex:             int(req.SampleIndex),
		AvgCurrentMA:            req.AvgCurrentMA,
		AvgVoltageV:             req.AvgVoltageV,
		AvgPowerMW:              req.AvgPowerMW,
		PeakPowerMW:             req.PeakPowerMW,
	}
	if err := s.Energy.Session.IngestTelemetry(ctx, sample); err != nil {
		return nil, toStatus("PostTelemetry", err)
	}

	return &TelemetryResponse{Status: okStatus}, nil
}

var endSessionValidator = z.Struct(z.Shape{
	"SessionId":              z.Int64().Required().GTE(1),
	"FinalBatteryPercentage": z.Ptr(z.Float64().GTE(0).LTE(100)).NotNil(),
})

func (s *EnergyServer) EndSession(ctx context.Context, req *EndSessionRequest) (*EndSessionResponse, error) {
	if issues := endSessionValidator.Validate(req); issues != nil {
		return nil, validationError(issues)
	}

	var summary *models.DeviceSummary
	if req.Summary != nil {
		summary = &models.DeviceSummary{
			TotalMeasurementsSent:   req.Summary.TotalMeasurementsSent,
			TotalConsumedMAh:        req.Summary.TotalConsumedMAh,
			ReportedDurationSeconds: req.Summary.SessionDurationSeconds,
			AvgCurrentMA:            req.Summary.AvgCurrentMA,
			AvgVoltageV:             req.Summary.AvgVoltageV,
			AvgPowerMW:              req.Summary.AvgPowerMW,
			PeakPowerMW:             req.Summary.PeakPowerMW,
			Mode:                    req.Summary.Mode,
		}
	}

	result, err := s.Energy.Session.End(ctx, uint(req.SessionId), energy.EndRequest{
		FinalBatteryPercentage: *req.FinalBatteryPercentage,
		Summary:                summary,
	})
	if err != nil {
		return nil, toStatus("EndSession", err)
	}

	resp := &EndSessionResponse{
		Status:          okStatus,
		DurationMinutes: result.DurationMinutes,
		BatteryConsumed: result.BatteryConsumed,
		Statistics:      result.Statistics,
	}
	if result.History != nil {
		resp.HistoryId = result.History.ID
	}
	return resp, nil
}

func (s *EnergyServer) PostLimiter(ctx context.Context, req *PostLimiterRequest) (*PostLimiterResponse, error) {
	var speakerValidator = z.Int64().Required().GTE(1)
	if err := speakerValidator.Validate(&req.SpeakerId); err != nil {
		return &PostLimiterResponse{Status: &StatusResponse{Success: false, Message: fmt.Sprintf("validation error: %v", err)}}, nil
	}

	var rateValidator = z.Float64().Required()
	if err := rateValidator.Validate(&req.SpeakerRate); err != nil {
		return &PostLimiterResponse{Status: &StatusResponse{Success: false, Message: fmt.Sprintf("validation error: %v", err)}}, nil
	}

	var burstValidator = z.Int32().Required()
	if err := burstValidator.Validate(&req.SpeakerBurst); err != nil {
		return &PostLimiterResponse{Status: &StatusResponse{Success: false, Message: fmt.Sprintf("validation error: %v", err)}}, nil
	}

	if s.Limiters == nil {
		return &PostLimiterResponse{
			Status: &StatusResponse{
				Success: false,
				Message: "Limiters are not used. No effect.",
			},
		}, nil
	}

	s.Limiters.SetLimiter(uint(req.SpeakerId), rate.Limit(req.SpeakerRate), int(req.SpeakerBurst))
	return &PostLimiterResponse{Status: okStatus}, nil
}
