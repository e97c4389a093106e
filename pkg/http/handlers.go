package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	z "github.com/Oudwins/zog"
	"github.com/Oudwins/zog/zhttp"
	"liyu1981.xyz/speaker-energy-service/pkg/energy"
	"liyu1981.xyz/speaker-energy-service/pkg/models"
)

type MonitorDataRequest struct {
	SessionID               int     `json:"sessionId" zog:"sessionId"`
	SpeakerID               int     `json:"speakerId" zog:"speakerId"`
	Timestamp               float64 `json:"timestamp" zog:"timestamp"`
	CurrentMA               float64 `json:"current_mA" zog:"current_mA"`
	VoltageV                float64 `json:"voltage_V" zog:"voltage_V"`
	PowerMW                 float64 `json:"power_mW" zog:"power_mW"`
	BatteryRemainingPercent float64 `json:"battery_remaining_percent" zog:"battery_remaining_percent"`
	TotalConsumedMAh        float64 `json:"total_consumed_mAh" zog:"total_consumed_mAh"`
	SampleIndex             int     `json:"sample_index" zog:"sample_index"`
	AvgCurrentMA            float64 `json:"avgCurrent_mA" zog:"avgCurrent_mA"`
	AvgVoltageV             float64 `json:"avgVoltage_V" zog:"avgVoltage_V"`
	AvgPowerMW              float64 `json:"avgPower_mW" zog:"avgPower_mW"`
	PeakPowerMW             float64 `json:"peakPower_mW" zog:"peakPower_mW"`
}

var monitorDataRequestSchema = z.Struct(z.Shape{
	"SessionID":               z.Int().Required().GTE(1),
	"SpeakerID":               z.Int().Required().GTE(1),
	"Timestamp":               z.Float64().GTE(0),
	"CurrentMA":               z.Float64().GTE(0),
	"VoltageV":                z.Float64().GTE(0),
	"PowerMW":                 z.Float64().GTE(0),
	"BatteryRemainingPercent": z.Float64().GTE(0).LTE(100),
	"TotalConsumedMAh":        z.Float64().GTE(0),
	"SampleIndex":             z.Int().GTE(0),
	"AvgCurrentMA":            z.Float64().GTE(0),
	"AvgVoltageV":             z.Float64().GTE(0),
	"AvgPowerMW":              z.Float64().GTE(0),
	"PeakPowerMW":             z.Float64().GTE(0),
})

func (r *MonitorDataRequest) sample() *energy.TelemetrySample {
	return &energy.TelemetrySample{
		SessionID:               uint(r.SessionID),
		SpeakerID:               uint(r.SpeakerID),
		Timestamp:               r.Timestamp,
		CurrentMA:               r.CurrentMA,
		VoltageV:                r.VoltageV,
		PowerMW:                 r.PowerMW,
		BatteryRemainingPercent: r.BatteryRemainingPercent,
		TotalConsumedMAh:        r.TotalConsumedMAh,
		SampleIndex:             r.SampleIndex,
		AvgCurrentMA:            r.AvgCurrentMA,
		AvgVoltageV:             r.AvgVoltageV,
		AvgPowerMW:              r.AvgPowerMW,
		PeakPowerMW:             r.PeakPowerMW,
	}
}

func (rs *RestfulServer) PostMonitorData(c *gin.Context) {
	var req MonitorDataRequest
	if issues := monitorDataRequestSchema.Parse(zhttp.Request(c.Request), &req); issues != nil {
		rs.failValidation(c, issues)
		return
	}

	if !rs.allowSpeaker(c, uint(req.SpeakerID)) {
		return
	}

	if err := rs.Energy.Session.IngestTelemetry(c.Request.Context(), req.sample()); err != nil {
		rs.failWith(c, err)
		return
	}

	rs.respond(c, http.StatusOK, nil, "Monitor data cached successfully")
}

type BatteryReportRequest struct {
	SpeakerID               int     `json:"speaker_id" zog:"speaker_id"`
	UsageSessionID          int     `json:"usage_session_id" zog:"usage_session_id"`
	Timestamp               float64 `json:"timestamp" zog:"timestamp"`
	CurrentMA               float64 `json:"current_mA" zog:"current_mA"`
	VoltageV                float64 `json:"voltage_V" zog:"voltage_V"`
	PowerMW                 float64 `json:"power_mW" zog:"power_mW"`
	BatteryRemainingPercent float64 `json:"battery_remaining_percent" zog:"battery_remaining_percent"`
	TotalConsumedMAh        float64 `json:"total_consumed_mAh" zog:"total_consumed_mAh"`
	SampleIndex             int     `json:"sample_index" zog:"sample_index"`
}

var batteryReportRequestSchema = z.Struct(z.Shape{
	"SpeakerID":               z.Int().Required().GTE(1),
	"UsageSessionID":          z.Int().GTE(0),
	"Timestamp":               z.Float64().GTE(0),
	"CurrentMA":               z.Float64().GTE(0),
	"VoltageV":                z.Float64().GTE(0),
	"PowerMW":                 z.Float64().GTE(0),
	"BatteryRemainingPercent": z.Float64().GTE(0).LTE(100),
	"TotalConsumedMAh":        z.Float64().GTE(0),
	"SampleIndex":             z.Int().GTE(0),
})

func (rs *RestfulServer) PostBatteryReport(c *gin.Context) {
	var req BatteryReportRequest
	if issues := batteryReportRequestSchema.Parse(zhttp.Request(c.Request), &req); issues != nil {
		rs.failValidation(c, issues)
		return
	}

	if !rs.allowSpeaker(c, uint(req.SpeakerID)) {
		return
	}

	speaker, err := rs.Energy.Session.ReportBattery(c.Request.Context(), &energy.BatteryReport{
		SpeakerID:               uint(req.SpeakerID),
		UsageSessionID:          uint(req.UsageSessionID),
		Timestamp:               req.Timestamp,
		CurrentMA:               req.CurrentMA,
		VoltageV:                req.VoltageV,
		PowerMW:                 req.PowerMW,
		BatteryRemainingPercent: req.BatteryRemainingPercent,
		TotalConsumedMAh:        req.TotalConsumedMAh,
		SampleIndex:             req.SampleIndex,
	})
	if err != nil {
		rs.failWith(c, err)
		return
	}

	rs.respond(c, http.StatusOK, speaker, "Battery updated successfully")
}

type StartSessionRequest struct {
	SpeakerID                int      `json:"speakerId" zog:"speakerId"`
	UserID                   int      `json:"userId" zog:"userId"`
	InitialBatteryPercentage *float64 `json:"initialBatteryPercentage" zog:"initialBatteryPercentage"`
	Mode                     string   `json:"mode" zog:"mode"`
}

var startSessionRequestSchema = z.Struct(z.Shape{
	"SpeakerID":                z.Int().Required().GTE(1),
	"UserID":                   z.Int().Required().GTE(1),
	"InitialBatteryPercentage": z.Ptr(z.Float64().GTE(0).LTE(100)),
	"Mode":                     z.String(),
})

func (rs *RestfulServer) StartSession(c *gin.Context) {
	var req StartSessionRequest
	if issues := startSessionRequestSchema.Parse(zhttp.Request(c.Request), &req); issues != nil {
		rs.failValidation(c, issues)
		return
	}

	result, err := rs.Energy.Session.Start(c.Request.Context(), energy.StartRequest{
		SpeakerID:                uint(req.SpeakerID),
		UserID:                   uint(req.UserID),
		InitialBatteryPercentage: req.InitialBatteryPercentage,
		Mode:                     req.Mode,
	})
	if err != nil {
		rs.failWith(c, err)
		return
	}

	rs.respond(c, http.StatusCreated, result, "Session started successfully")
}

// EndSessionRequest carries the device's end-of-session summary flattened
// next to the final battery reading.
type EndSessionRequest struct {
	FinalBatteryPercentage *float64 `json:"finalBatteryPercentage" zog:"finalBatteryPercentage"`
	TotalMeasurementsSent  int      `json:"totalMeasurementsSent" zog:"totalMeasurementsSent"`
	TotalConsumedMAh       float64  `json:"totalConsumed_mAh" zog:"totalConsumed_mAh"`
	SessionDurationSeconds int      `json:"sessionDurationSeconds" zog:"sessionDurationSeconds"`
	AvgCurrentMA           float64  `json:"avgCurrent_mA" zog:"avgCurrent_mA"`
	AvgVoltageV            float64  `json:"avgVoltage_V" zog:"avgVoltage_V"`
	AvgPowerMW             float64  `json:"avgPower_mW" zog:"avgPower_mW"`
	PeakPowerMW            float64  `json:"peakPower_mW" zog:"peakPower_mW"`
	Mode                   string   `json:"mode" zog:"mode"`
}

var endSessionRequestSchema = z.Struct(z.Shape{
	"FinalBatteryPercentage": z.Ptr(z.Float64().GTE(0).LTE(100)).NotNil(),
	"TotalMeasurementsSent":  z.Int().GTE(0),
	"TotalConsumedMAh":       z.Float64().GTE(0),
	"SessionDurationSeconds": z.Int().GTE(0),
	"AvgCurrentMA":           z.Float64().GTE(0),
	"AvgVoltageV":            z.Float64().GTE(0),
	"AvgPowerMW":             z.Float64().GTE(0),
	"PeakPowerMW":            z.Float64().GTE(0),
	"Mode":                   z.String(),
})

// summary is nil when the device sent no counters, which lets the core
// fall back to the cache snapshot.
func (r *EndSessionRequest) summary() *models.DeviceSummary {
	if r.TotalMeasurementsSent == 0 && r.SessionDurationSeconds == 0 && r.TotalConsumedMAh == 0 {
		return nil
	}
	return &models.DeviceSummary{
		TotalMeasurementsSent:   r.TotalMeasurementsSent,
		TotalConsumedMAh:        r.TotalConsumedMAh,
		ReportedDurationSeconds: r.SessionDurationSeconds,
		AvgCurrentMA:            r.AvgCurrentMA,
		AvgVoltageV:             r.AvgVoltageV,
		AvgPowerMW:              r.AvgPowerMW,
		PeakPowerMW:             r.PeakPowerMW,
		Mode:                    r.Mode,
	}
}

func (rs *RestfulServer) EndSession(c *gin.Context) {
	sessionID, ok := rs.idParam(c, "sessionId")
	if !ok {
		return
	}

	var req EndSessionRequest
	if issues := endSessionRequestSchema.Parse(zhttp.Request(c.Request), &req); issues != nil {
		rs.failValidation(c, issues)
		return
	}

	result, err := rs.Energy.Session.End(c.Request.Context(), sessionID, energy.EndRequest{
		FinalBatteryPercentage: *req.FinalBatteryPercentage,
		Summary:                req.summary(),
	})
	if err != nil {
		rs.failWith(c, err)
		return
	}

	rs.respond(c, http.StatusOK, result, "Session ended successfully and saved to history")
}

func (rs *RestfulServer) GetRealtimeData(c *gin.Context) {
	sessionID, ok := rs.idParam(c, "sessionId")
	if !ok {
		return
	}

	view, err := rs.Energy.Cache.Read(c.Request.Context(), sessionID)
	if err != nil {
		rs.failWith(c, err)
		return
	}

	rs.respond(c, http.StatusOK, view, "")
}

func (rs *RestfulServer) GetSessionStats(c *gin.Context) {
	sessionID, ok := rs.idParam(c, "sessionId")
	if !ok {
		return
	}

	stats, err := rs.Energy.Statistics.ForSession(c.Request.Context(), sessionID)
	if err != nil {
		rs.failWith(c, err)
		return
	}

	rs.respond(c, http.StatusOK, stats, "")
}

func (rs *RestfulServer) GetSession(c *gin.Context) {
	sessionID, ok := rs.idParam(c, "sessionId")
	if !ok {
		return
	}

	session, err := rs.Energy.Session.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		rs.failWith(c, err)
		return
	}

	rs.respond(c, http.StatusOK, session, "")
}

func (rs *RestfulServer) GetActiveSession(c *gin.Context) {
	speakerID, ok := rs.idParam(c, "speakerId")
	if !ok {
		return
	}

	session, err := rs.Energy.Session.GetActiveSession(c.Request.Context(), speakerID)
	if err != nil {
		rs.failWith(c, err)
		return
	}

	rs.respond(c, http.StatusOK, gin.H{
		"hasActiveSession": session != nil,
		"session":          session,
	}, "")
}

func (rs *RestfulServer) GetCacheInfo(c *gin.Context) {
	info, err := rs.Energy.Cache.Info(c.Request.Context())
	if err != nil {
		rs.failWith(c, err)
		return
	}

	rs.respond(c, http.StatusOK, info, "")
}

func (rs *RestfulServer) HasCache(c *gin.Context) {
	sessionID, ok := rs.idParam(c, "sessionId")
	if !ok {
		return
	}

	has, err := rs.Energy.Cache.Has(c.Request.Context(), sessionID)
	if err != nil {
		rs.failWith(c, err)
		return
	}

	rs.respond(c, http.StatusOK, gin.H{"hasCache": has, "sessionId": sessionID}, "")
}

func connected(err error, up, down string) string {
	if err != nil {
		return down
	}
	return up
}

func (rs *RestfulServer) Health(c *gin.Context) {
	ctx := c.Request.Context()
	dbErr := rs.Energy.Gateway.Ping(ctx)
	cacheErr := rs.Energy.Cache.Ping(ctx)

	status := "healthy"
	if dbErr != nil || cacheErr != nil {
		status = "degraded"
	}

	rs.respond(c, http.StatusOK, gin.H{
		"status": status,
		"services": gin.H{
			"database": connected(dbErr, "connected", "disconnected"),
			"cache":    connected(cacheErr, "active", "inactive"),
		},
	}, "")
}

func (rs *RestfulServer) Ping(c *gin.Context) {
	rs.respond(c, http.StatusOK, gin.H{"policy": rs.Energy.Policy.Name()}, "Energy service is running")
}

func (rs *RestfulServer) SystemStats(c *gin.Context) {
	ctx := c.Request.Context()

	info, err := rs.Energy.Cache.Info(ctx)
	if err != nil {
		rs.failWith(c, err)
		return
	}

	rs.respond(c, http.StatusOK, gin.H{
		"activeSessions": info.TotalSessions,
		"sessions":       info.Sessions,
		"cacheBackend":   info.Backend,
		"database":       connected(rs.Energy.Gateway.Ping(ctx), "healthy", "unhealthy"),
		"cache":          connected(rs.Energy.Cache.Ping(ctx), "healthy", "unhealthy"),
		"policy":         rs.Energy.Policy.Name(),
	}, "")
}

func (rs *RestfulServer) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
