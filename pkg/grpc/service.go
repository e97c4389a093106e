package grpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"liyu1981.xyz/speaker-energy-service/pkg/energy"
)

const ServiceName = "speakerenergy.v1.TelemetryService"

type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// StartSessionRequest leaves InitialBatteryPercentage nil when the device
// has no reading of its own.
type StartSessionRequest struct {
	SpeakerId                int64    `json:"speakerId"`
	UserId                   int64    `json:"userId"`
	InitialBatteryPercentage *float64 `json:"initialBatteryPercentage,omitempty"`
	Mode                     string   `json:"mode,omitempty"`
}

func (r *StartSessionRequest) GetSpeakerId() uint { return uint(r.SpeakerId) }

type StartSessionResponse struct {
	Status    *StatusResponse `json:"status"`
	SessionId uint            `json:"sessionId"`
	StartTime time.Time       `json:"startTime"`
}

// TelemetryRequest mirrors the REST monitor-data body.
type TelemetryRequest struct {
	SessionId               int64   `json:"sessionId"`
	SpeakerId               int64   `json:"speakerId"`
	Timestamp               float64 `json:"timestamp"`
	CurrentMA               float64 `json:"current_mA"`
	VoltageV                float64 `json:"voltage_V"`
	PowerMW                 float64 `json:"power_mW"`
	BatteryRemainingPercent float64 `json:"battery_remaining_percent"`
	TotalConsumedMAh        float64 `json:"total_consumed_mAh"`
	SampleIndex             int64   `json:"sample_index"`
	AvgCurrentMA            float64 `json:"avgCurrent_mA"`
	AvgVoltageV             float64 `json:"avgVoltage_V"`
	AvgPowerMW              float64 `json:"avgPower_mW"`
	PeakPowerMW             float64 `json:"peakPower_mW"`
}

func (r *TelemetryRequest) GetSpeakerId() uint { return uint(r.SpeakerId) }

type TelemetryResponse struct {
	Status *StatusResponse `json:"status"`
}

type EndSessionRequest struct {
	SessionId              int64    `json:"sessionId"`
	FinalBatteryPercentage *float64 `json:"finalBatteryPercentage"`
	// Summary is the device's own end-of-session counters, optional
	Summary *DeviceSummary `json:"esp32Summary,omitempty"`
}

type DeviceSummary struct {
	TotalMeasurementsSent  int     `json:"totalMeasurementsSent"`
	TotalConsumedMAh       float64 `json:"totalConsumed_mAh"`
	SessionDurationSeconds int     `json:"sessionDurationSeconds"`
	AvgCurrentMA           float64 `json:"avgCurrent_mA"`
	AvgVoltageV            float64 `json:"avgVoltage_V"`
	AvgPowerMW             float64 `json:"avgPower_mW"`
	PeakPowerMW            float64 `json:"peakPower_mW"`
	Mode                   string  `json:"mode,omitempty"`
}

type EndSessionResponse struct {
	Status          *StatusResponse    `json:"status"`
	HistoryId       uint               `json:"historyId"`
	DurationMinutes int                `json:"durationMinutes"`
	BatteryConsumed float64            `json:"batteryConsumed"`
	Statistics      *energy.Statistics `json:"statistics"`
}

type PostLimiterRequest struct {
	SpeakerId    int64   `json:"speakerId"`
	SpeakerRate  float64 `json:"speakerRate"`
	SpeakerBurst int32   `json:"speakerBurst"`
}

type PostLimiterResponse struct {
	Status *StatusResponse `json:"status"`
}

// TelemetryServiceServer is the device-facing RPC surface.
type TelemetryServiceServer interface {
	StartSession(context.Context, *StartSessionRequest) (*StartSessionResponse, error)
	PostTelemetry(context.Context, *TelemetryRequest) (*TelemetryResponse, error)
	EndSession(context.Context, *EndSessionRequest) (*EndSessionResponse, error)
	PostLimiter(context.Context, *PostLimiterRequest) (*PostLimiterResponse, error)
}

func unaryHandler[Req any, Resp any](method string, call func(TelemetryServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(TelemetryServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + method,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(TelemetryServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var TelemetryServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TelemetryServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("StartSession", TelemetryServiceServer.StartSession),
		unaryHandler("PostTelemetry", TelemetryServiceServer.PostTelemetry),
		unaryHandler("EndSession", TelemetryServiceServer.EndSession),
		unaryHandler("PostLimiter", TelemetryServiceServer.PostLimiter),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "speakerenergy/v1/telemetry.proto",
}

func RegisterTelemetryServiceServer(s grpc.ServiceRegistrar, srv TelemetryServiceServer) {
	s.RegisterService(&TelemetryServiceDesc, srv)
}

// TelemetryServiceClient calls the service with the JSON codec.
type TelemetryServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewTelemetryServiceClient(cc grpc.ClientConnInterface) *TelemetryServiceClient {
	return &TelemetryServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *TelemetryServiceClient) StartSession(ctx context.Context, in *StartSessionRequest, opts ...grpc.CallOption) (*StartSessionResponse, error) {
	return invoke[StartSessionResponse](ctx, c.cc, "StartSession", in, opts)
}

func (c *TelemetryServiceClient) PostTelemetry(ctx context.Context, in *TelemetryRequest, opts ...grpc.CallOption) (*TelemetryResponse, error) {
	return invoke[TelemetryResponse](ctx, c.cc, "PostTelemetry", in, opts)
}

func (c *TelemetryServiceClient) EndSession(ctx context.Context, in *EndSessionRequest, opts ...grpc.CallOption) (*EndSessionResponse, error) {
	return invoke[EndSessionResponse](ctx, c.cc, "EndSession", in, opts)
}

func (c *TelemetryServiceClient) PostLimiter(ctx context.Context, in *PostLimiterRequest, opts ...grpc.CallOption) (*PostLimiterResponse, error) {
	return invoke[PostLimiterResponse](ctx, c.cc, "PostLimiter", in, opts)
}
