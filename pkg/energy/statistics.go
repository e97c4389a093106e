package energy

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
	"liyu1981.xyz/speaker-energy-service/pkg/common"
	"liyu1981.xyz/speaker-energy-service/pkg/models"
)

type StatisticsSource string

const (
	SourceCache        StatisticsSource = "cache"
	SourceMeasurements StatisticsSource = "measurements"
	SourceMetadata     StatisticsSource = "metadata"
	SourceDevice       StatisticsSource = "device"
)

// Statistics has the same shape whichever data produced it. Averages are in
// A, V and W; totals in Ah, Vh and Wh.
type Statistics struct {
	AvgAmpereHours         float64          `json:"avgAmpereHours"`
	AvgVoltageHours        float64          `json:"avgVoltageHours"`
	AvgWattsHours          float64          `json:"avgWattsHours"`
	TotalAmpereHours       float64          `json:"totalAmpereHours"`
	TotalVoltageHours      float64          `json:"totalVoltageHours"`
	TotalWattsHours        float64          `json:"totalWattsHours"`
	MeasurementCount       int              `json:"measurementCount"`
	DurationMinutes        int              `json:"durationMinutes"`
	AvgMeasurementInterval float64          `json:"avgMeasurementInterval"`
	Source                 StatisticsSource `json:"source"`
}

func statisticsLogger() *zap.Logger {
	return common.GetLoggerWith(
		common.LoggerNameEnergyCore,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryStatistics),
	)
}

// statsFromCache trusts the device's running averages. Totals integrate them
// over the device-reported elapsed seconds, except Ah which is the device's
// own consumption counter.
func (e *Energy) statsFromCache(entry *CacheEntry) *Statistics {
	seconds := entry.Statistics.DurationSeconds
	hours := seconds / 3600
	count := entry.Statistics.MeasurementCount

	avgA := entry.Statistics.AvgCurrentMA / 1000
	avgV := entry.Statistics.AvgVoltageV
	avgW := entry.Statistics.AvgPowerMW / 1000

	stats := &Statistics{
		AvgAmpereHours:    avgA,
		AvgVoltageHours:   avgV,
		AvgWattsHours:     avgW,
		TotalAmpereHours:  entry.LatestData.TotalConsumedMAh / 1000,
		TotalVoltageHours: avgV * hours,
		TotalWattsHours:   avgW * hours,
		MeasurementCount:  count,
		DurationMinutes:   int(seconds / 60),
		Source:            SourceCache,
	}
	if count > 0 {
		stats.AvgMeasurementInterval = seconds / float64(count)
	}
	return stats
}

func (e *Energy) statsFromDeviceSummary(summary *models.DeviceSummary, elapsed time.Duration) *Statistics {
	stats := &Statistics{
		DurationMinutes: wholeMinutes(elapsed),
		Source:          SourceDevice,
	}
	if summary == nil {
		return stats
	}

	hours := elapsed.Hours()
	if hours < 0 {
		hours = 0
	}

	avgA := summary.AvgCurrentMA / 1000
	avgW := summary.AvgPowerMW / 1000

	stats.AvgAmpereHours = avgA
	stats.AvgVoltageHours = summary.AvgVoltageV
	stats.AvgWattsHours = avgW
	stats.TotalAmpereHours = summary.TotalConsumedMAh / 1000
	stats.TotalVoltageHours = summary.AvgVoltageV * hours
	stats.TotalWattsHours = avgW * hours
	stats.MeasurementCount = summary.TotalMeasurementsSent
	if summary.TotalMeasurementsSent > 0 {
		stats.AvgMeasurementInterval = float64(summary.ReportedDurationSeconds) / float64(summary.TotalMeasurementsSent)
	}
	return stats
}

func (e *Energy) statsFromMetadata(session *models.UsageSession) *Statistics {
	stats := &Statistics{
		DurationMinutes: e.sessionMinutes(session),
		Source:          SourceMetadata,
	}

	md := session.Metadata
	if md == nil {
		return stats
	}

	stats.AvgAmpereHours = md.AvgCurrentMA / 1000
	stats.AvgVoltageHours = md.AvgVoltageV
	stats.AvgWattsHours = md.AvgPowerMW / 1000
	stats.TotalAmpereHours = md.TotalAmpereHours
	stats.TotalVoltageHours = md.TotalVoltageHours
	stats.TotalWattsHours = md.TotalWattsHours
	stats.MeasurementCount = md.TotalMeasurementsSent
	if md.ActualDurationMinutes > 0 {
		stats.DurationMinutes = md.ActualDurationMinutes
	}
	if md.TotalMeasurementsSent > 0 {
		stats.AvgMeasurementInterval = float64(md.ReportedDurationSeconds) / float64(md.TotalMeasurementsSent)
	}
	return stats
}

// statsFromMeasurements sums the integrated rows for the totals. Each row
// covers one nominal sample interval, so the per-row mean divided by that
// interval gives the average reading.
func (e *Energy) statsFromMeasurements(session *models.UsageSession, rows []models.EnergyMeasurement) *Statistics {
	stats := &Statistics{
		DurationMinutes: e.sessionMinutes(session),
		Source:          SourceMeasurements,
	}
	if len(rows) == 0 {
		return stats
	}

	sorted := make([]models.EnergyMeasurement, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RecordedAt.Before(sorted[j].RecordedAt)
	})

	sum := func(pick func(models.EnergyMeasurement) float64) float64 {
		return common.Reducer(common.Mapper(sorted, pick), func(acc float64, v float64) float64 {
			return acc + v
		}, 0)
	}

	n := float64(len(sorted))
	stats.TotalAmpereHours = sum(func(m models.EnergyMeasurement) float64 { return m.AmpereHours })
	stats.TotalVoltageHours = sum(func(m models.EnergyMeasurement) float64 { return m.VoltageHours })
	stats.TotalWattsHours = sum(func(m models.EnergyMeasurement) float64 { return m.WattsHours })
	stats.MeasurementCount = len(sorted)

	intervalHours := e.Options.SampleInterval.Hours()
	if intervalHours <= 0 {
		intervalHours = DefaultOptions().SampleInterval.Hours()
	}
	stats.AvgAmpereHours = stats.TotalAmpereHours / n / intervalHours
	stats.AvgVoltageHours = stats.TotalVoltageHours / n / intervalHours
	stats.AvgWattsHours = stats.TotalWattsHours / n / intervalHours

	if len(sorted) >= 2 {
		span := sorted[len(sorted)-1].RecordedAt.Sub(sorted[0].RecordedAt)
		stats.AvgMeasurementInterval = span.Seconds() / float64(len(sorted)-1)
	}
	return stats
}

func (e *Energy) sessionMinutes(session *models.UsageSession) int {
	end := e.clock().Now()
	if session.EndTime != nil {
		end = *session.EndTime
	}
	return wholeMinutes(end.Sub(session.StartTime))
}

// statsForSession picks the mode from what is available: the live cache for
// an ACTIVE session, then measurement rows, then stored metadata.
func (e *Energy) statsForSession(ctx context.Context, sessionID uint) (*Statistics, error) {
	logger := statisticsLogger()

	session, err := e.Gateway.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.Status == models.SessionStatusActive {
		entry, err := e.Cache.Get(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			return e.Statistics.FromCache(entry), nil
		}
	}

	rows, err := e.Gateway.ListMeasurements(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		return e.Statistics.FromMeasurements(session, rows), nil
	}

	logger.Debug("Statistics from session metadata", zap.Uint("sessionId", sessionID), zap.String("status", string(session.Status)))
	return e.Statistics.FromMetadata(session), nil
}

type IStatisticsImpl struct {
	energy *Energy
}

func (is *IStatisticsImpl) ForSession(ctx context.Context, sessionID uint) (*Statistics, error) {
	return is.energy.statsForSession(ctx, sessionID)
}

func (is *IStatisticsImpl) FromCache(entry *CacheEntry) *Statistics {
	return is.energy.statsFromCache(entry)
}

func (is *IStatisticsImpl) FromDeviceSummary(summary *models.DeviceSummary, elapsed time.Duration) *Statistics {
	return is.energy.statsFromDeviceSummary(summary, elapsed)
}

func (is *IStatisticsImpl) FromMetadata(session *models.UsageSession) *Statistics {
	return is.energy.statsFromMetadata(session)
}

func (is *IStatisticsImpl) FromMeasurements(session *models.UsageSession, rows []models.EnergyMeasurement) *Statistics {
	return is.energy.statsFromMeasurements(session, rows)
}

func (e *Energy) GetIStatistics() IStatistics {
	return &IStatisticsImpl{energy: e}
}
