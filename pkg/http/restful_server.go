package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"liyu1981.xyz/speaker-energy-service/pkg/common"
	"liyu1981.xyz/speaker-energy-service/pkg/energy"
	"liyu1981.xyz/speaker-energy-service/pkg/metrics"
)

type RestfulServer struct {
	Server   *gin.Engine
	Energy   *energy.Energy
	Limiters *energy.SpeakerLimiters
	// Hub serves dashboard WebSocket connections on /ws when set
	Hub http.Handler
	// Auth guards the maintenance routes; nil leaves them open
	Auth *AdminAuth
}

func logger() *zap.Logger {
	return common.GetLoggerWith(common.LoggerNameRestfulServer)
}

func maintenanceLogger() *zap.Logger {
	return common.GetLoggerWith(
		common.LoggerNameRestfulServer,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryMaintenance),
	)
}

func (rs *RestfulServer) GetLimiter(speakerID uint) *rate.Limiter {
	if rs.Limiters == nil {
		return nil
	} else {
		return rs.Limiters.GetLimiter(speakerID)
	}
}

func (rs *RestfulServer) CheckSpeakerLimiter(speakerID uint) bool {
	limiter := rs.GetLimiter(speakerID)
	if limiter == nil {
		return true
	}
	return limiter.Allow()
}

func (rs *RestfulServer) SetLimiter(speakerID uint, speakerRate float64, speakerBurst int) {
	if rs.Limiters == nil {
		return
	}
	rs.Limiters.SetLimiter(speakerID, rate.Limit(speakerRate), speakerBurst)
}

// allowSpeaker answers 429 when the speaker is over its ingestion rate
func (rs *RestfulServer) allowSpeaker(c *gin.Context, speakerID uint) bool {
	if rs.CheckSpeakerLimiter(speakerID) {
		return true
	}
	metrics.RateLimitedTotal.WithLabelValues("http").Inc()
	rs.fail(c, http.StatusTooManyRequests, &apiError{Kind: "rate_limited", Message: "too many requests for speaker " + strconv.FormatUint(uint64(speakerID), 10)})
	return false
}

func (rs *RestfulServer) adminGuard() gin.HandlerFunc {
	if rs.Auth == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return rs.Auth.Middleware(rs)
}

func (rs *RestfulServer) Setup() {
	rs.Server.Use(requestID(), requestMetrics())

	rs.Server.GET("/healthz", rs.HealthCheck)
	rs.Server.GET("/metrics", gin.WrapH(metrics.Handler()))
	if rs.Hub != nil {
		rs.Server.GET("/ws", gin.WrapH(rs.Hub))
	}

	api := rs.Server.Group("/api/energy")
	{
		// device
		api.POST("/monitor-data", rs.PostMonitorData)
		api.POST("/realtime-data", rs.PostBatteryReport)
		api.POST("/start-session", rs.StartSession)
		api.POST("/end-session/:sessionId", rs.EndSession)

		// dashboard
		api.GET("/realtime-data/:sessionId", rs.GetRealtimeData)
		api.GET("/session-stats/:sessionId", rs.GetSessionStats)
		api.GET("/session/:sessionId", rs.GetSession)
		api.GET("/active-session/speaker/:speakerId", rs.GetActiveSession)
		api.GET("/cache-info", rs.GetCacheInfo)
		api.GET("/has-cache/:sessionId", rs.HasCache)
		api.GET("/health", rs.Health)
		api.GET("/ping", rs.Ping)
		api.GET("/system-stats", rs.SystemStats)
		api.GET("/history", rs.GetAllHistory)
		api.GET("/history/speaker/:speakerId", rs.GetSpeakerHistory)
		api.GET("/battery/stats", rs.GetBatteryStats)
	}

	admin := rs.Server.Group("/api", rs.adminGuard())
	{
		admin.POST("/energy/cleanup-cache", rs.CleanupCache)
		admin.POST("/energy/reset-cache/:sessionId", rs.ResetCache)
		admin.POST("/energy/force-end-all", rs.ForceEndAll)
		admin.POST("/energy/reconcile-history", rs.ReconcileHistory)
		admin.POST("/speakers/:speakerId/force-shutdown", rs.ForceShutdown)
		admin.POST("/speakers/:speakerId/limiter", rs.PostLimiter)
	}
}

func paramID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, errInvalidID
	}
	return uint(id), nil
}

// idParam writes a 400 and returns false when the path id is not a positive integer
func (rs *RestfulServer) idParam(c *gin.Context, name string) (uint, bool) {
	id, err := paramID(c, name)
	if err != nil {
		rs.fail(c, http.StatusBadRequest, &apiError{Kind: "bad_request", Message: name + " must be a positive integer"})
		return 0, false
	}
	return id, true
}
