package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	z "github.com/Oudwins/zog"
	"github.com/Oudwins/zog/zhttp"
)

func principal(c *gin.Context) zap.Field {
	return zap.String("principal", c.GetString(contextKeyPrincipal))
}

func (rs *RestfulServer) CleanupCache(c *gin.Context) {
	removed, err := rs.Energy.Cache.SweepInactive(c.Request.Context())
	if err != nil {
		rs.failWith(c, err)
		return
	}

	maintenanceLogger().Info("Cache cleanup", principal(c), zap.Int("removed", removed))
	rs.respond(c, http.StatusOK, gin.H{"removed": removed}, "Inactive cache cleaned up")
}

// ResetCache rebuilds one session's entry from the database
func (rs *RestfulServer) ResetCache(c *gin.Context) {
	sessionID, ok := rs.idParam(c, "sessionId")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if _, err := rs.Energy.Cache.Clear(ctx, sessionID); err != nil {
		rs.failWith(c, err)
		return
	}
	if err := rs.Energy.Cache.Initialize(ctx, sessionID); err != nil {
		rs.failWith(c, err)
		return
	}

	maintenanceLogger().Info("Cache reset", principal(c), zap.Uint("sessionId", sessionID))
	rs.respond(c, http.StatusOK, gin.H{"sessionId": sessionID}, "Cache reset successfully")
}

func (rs *RestfulServer) ForceEndAll(c *gin.Context) {
	result, err := rs.Energy.Session.ForceEndAll(c.Request.Context())
	if err != nil {
		rs.failWith(c, err)
		return
	}

	maintenanceLogger().Warn("Force ended all sessions", principal(c), zap.Int("terminated", result.TerminatedSessions))
	rs.respond(c, http.StatusOK, result, "All active sessions terminated")
}

func (rs *RestfulServer) ReconcileHistory(c *gin.Context) {
	written, err := rs.Energy.History.Backfill(c.Request.Context())
	if err != nil {
		rs.failWith(c, err)
		return
	}

	maintenanceLogger().Info("History reconciled", principal(c), zap.Int("written", written))
	rs.respond(c, http.StatusOK, gin.H{"written": written}, "History reconciled")
}

func (rs *RestfulServer) ForceShutdown(c *gin.Context) {
	speakerID, ok := rs.idParam(c, "speakerId")
	if !ok {
		return
	}

	result, err := rs.Energy.Session.ForceShutdown(c.Request.Context(), speakerID)
	if err != nil {
		rs.failWith(c, err)
		return
	}

	maintenanceLogger().Warn("Speaker force shutdown", principal(c), zap.Uint("speakerId", speakerID), zap.Int("terminated", result.TerminatedSessions))
	rs.respond(c, http.StatusOK, result, "Speaker shut down")
}

type LimiterRequest struct {
	Rate  float64 `json:"rate"`
	Burst int     `json:"burst"`
}

var limiterRequestSchema = z.Struct(z.Shape{
	"rate":  z.Float64().Required(),
	"burst": z.Int().Required(),
})

func (rs *RestfulServer) PostLimiter(c *gin.Context) {
	speakerID, ok := rs.idParam(c, "speakerId")
	if !ok {
		return
	}

	var req LimiterRequest
	if issues := limiterRequestSchema.Parse(zhttp.Request(c.Request), &req); issues != nil {
		rs.failValidation(c, issues)
		return
	}

	rs.SetLimiter(speakerID, req.Rate, req.Burst)

	maintenanceLogger().Info("Limiter updated", principal(c), zap.Uint("speakerId", speakerID), zap.Float64("rate", req.Rate), zap.Int("burst", req.Burst))
	rs.respond(c, http.StatusOK, nil, "")
}
