package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	z "github.com/Oudwins/zog"
	"github.com/Oudwins/zog/zhttp"
	"liyu1981.xyz/speaker-energy-service/pkg/energy"
)

type HistoryPageRequest struct {
	Page  int `zog:"page"`
	Limit int `zog:"limit"`
}

var historyPageRequestSchema = z.Struct(z.Shape{
	"Page":  z.Int().Default(1).GTE(1),
	"Limit": z.Int().Default(energy.DefaultHistoryLimit).GTE(1).LTE(energy.MaxHistoryLimit),
})

func (rs *RestfulServer) listHistory(c *gin.Context, speakerID uint) {
	var req HistoryPageRequest
	if issues := historyPageRequestSchema.Parse(zhttp.Request(c.Request), &req); issues != nil {
		rs.failValidation(c, issues)
		return
	}

	page, err := rs.Energy.ListHistory(c.Request.Context(), speakerID, req.Page, req.Limit)
	if err != nil {
		rs.failWith(c, err)
		return
	}

	rs.respond(c, http.StatusOK, page, "")
}

func (rs *RestfulServer) GetAllHistory(c *gin.Context) {
	rs.listHistory(c, 0)
}

func (rs *RestfulServer) GetSpeakerHistory(c *gin.Context) {
	speakerID, ok := rs.idParam(c, "speakerId")
	if !ok {
		return
	}
	rs.listHistory(c, speakerID)
}

func (rs *RestfulServer) GetBatteryStats(c *gin.Context) {
	stats, err := rs.Energy.BatteryStats(c.Request.Context())
	if err != nil {
		rs.failWith(c, err)
		return
	}

	rs.respond(c, http.StatusOK, stats, "")
}
