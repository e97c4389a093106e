package energy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"
	"liyu1981.xyz/speaker-energy-service/pkg/common"
	"liyu1981.xyz/speaker-energy-service/pkg/kv"
	"liyu1981.xyz/speaker-energy-service/pkg/metrics"
	"liyu1981.xyz/speaker-energy-service/pkg/models"
)

// TelemetrySample is one periodic reading pushed by the ESP32 while a
// session is active. Averages are the device's running values.
type TelemetrySample struct {
	SessionID               uint    `json:"sessionId"`
	SpeakerID               uint    `json:"speakerId"`
	Timestamp               float64 `json:"timestamp"`
	CurrentMA               float64 `json:"current_mA"`
	VoltageV                float64 `json:"voltage_V"`
	PowerMW                 float64 `json:"power_mW"`
	BatteryRemainingPercent float64 `json:"battery_remaining_percent"`
	TotalConsumedMAh        float64 `json:"total_consumed_mAh"`
	SampleIndex             int     `json:"sample_index"`
	AvgCurrentMA            float64 `json:"avgCurrent_mA"`
	AvgVoltageV             float64 `json:"avgVoltage_V"`
	AvgPowerMW              float64 `json:"avgPower_mW"`
	PeakPowerMW             float64 `json:"peakPower_mW"`
}

type LatestData struct {
	Timestamp               float64 `json:"timestamp"`
	CurrentMA               float64 `json:"current_mA"`
	VoltageV                float64 `json:"voltage_V"`
	PowerMW                 float64 `json:"power_mW"`
	BatteryRemainingPercent float64 `json:"battery_remaining_percent"`
	TotalConsumedMAh        float64 `json:"total_consumed_mAh"`
	SampleIndex             int     `json:"sample_index"`
}

type RunningStatistics struct {
	AvgCurrentMA     float64 `json:"avgCurrent_mA"`
	AvgVoltageV      float64 `json:"avgVoltage_V"`
	AvgPowerMW       float64 `json:"avgPower_mW"`
	PeakPowerMW      float64 `json:"peakPower_mW"`
	MeasurementCount int     `json:"measurementCount"`
	TotalConsumedMAh float64 `json:"totalConsumed_mAh"`
	DurationSeconds  float64 `json:"durationSeconds"`
}

// CacheEntry is the live snapshot kept for an ACTIVE session. It is only
// ever derived from the database plus telemetry and can be rebuilt.
type CacheEntry struct {
	SessionID                uint                 `json:"sessionId"`
	SpeakerID                uint                 `json:"speakerId"`
	SpeakerName              string               `json:"speakerName"`
	UserID                   uint                 `json:"userId"`
	Status                   models.SessionStatus `json:"status"`
	StartTime                time.Time            `json:"startTime"`
	DurationMinutes          int                  `json:"durationMinutes"`
	InitialBatteryPercentage float64              `json:"initialBatteryPercentage"`
	LatestData               LatestData           `json:"latestData"`
	Statistics               RunningStatistics    `json:"statistics"`
	LastUpdated              time.Time            `json:"lastUpdated"`
	Created                  time.Time            `json:"created"`
}

type RealtimeView struct {
	CacheEntry
	HasRealtimeData bool `json:"hasRealtimeData"`
}

type CacheSessionInfo struct {
	SessionID        uint      `json:"sessionId"`
	SpeakerID        uint      `json:"speakerId"`
	MeasurementCount int       `json:"measurementCount"`
	BatteryPercent   float64   `json:"batteryPercent"`
	LastUpdated      time.Time `json:"lastUpdated"`
}

type CacheInfo struct {
	Backend       string             `json:"backend"`
	TotalSessions int                `json:"totalSessions"`
	Sessions      []CacheSessionInfo `json:"sessions"`
}

func cacheKey(sessionID uint) string {
	return strconv.FormatUint(uint64(sessionID), 10)
}

func cacheLogger() *zap.Logger {
	return common.GetLoggerWith(
		common.LoggerNameEnergyCore,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryCache),
	)
}

func (e *Energy) loadEntry(ctx context.Context, sessionID uint) (*CacheEntry, error) {
	raw, err := e.Store.Get(ctx, cacheKey(sessionID))
	if err != nil {
		return nil, err
	}
	var entry CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("decode cache entry %d: %w", sessionID, err)
	}
	return &entry, nil
}

func (e *Energy) saveEntry(ctx context.Context, entry *CacheEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry %d: %w", entry.SessionID, err)
	}
	return e.Store.Set(ctx, cacheKey(entry.SessionID), raw)
}

// buildEntry returns nil when the session is unknown or no longer ACTIVE.
func (e *Energy) buildEntry(ctx context.Context, sessionID uint) (*CacheEntry, error) {
	session, err := e.Gateway.GetSession(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionStatusActive {
		return nil, nil
	}

	now := e.clock().Now()
	speakerName := session.SpeakerName
	if speakerName == "" && session.Speaker != nil {
		speakerName = session.Speaker.Name
	}

	return &CacheEntry{
		SessionID:                session.ID,
		SpeakerID:                session.SpeakerID,
		SpeakerName:              speakerName,
		UserID:                   session.UserID,
		Status:                   session.Status,
		StartTime:                session.StartTime,
		DurationMinutes:          wholeMinutes(now.Sub(session.StartTime)),
		InitialBatteryPercentage: session.InitialBatteryPercentage,
		LatestData: LatestData{
			BatteryRemainingPercent: session.InitialBatteryPercentage,
		},
		LastUpdated: now,
		Created:     now,
	}, nil
}

func (e *Energy) cacheInitialize(ctx context.Context, sessionID uint) error {
	logger := cacheLogger()

	unlock := e.locksForCache().Lock(sessionID)
	defer unlock()

	entry, err := e.buildEntry(ctx, sessionID)
	if err != nil {
		return err
	}
	if entry == nil {
		logger.Info("Skipped cache init for inactive session", zap.Uint("sessionId", sessionID))
		return nil
	}

	existed, err := e.hasEntry(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := e.saveEntry(ctx, entry); err != nil {
		return err
	}
	if !existed {
		metrics.RealtimeCacheEntries.Inc()
	}

	logger.Info("Cache entry initialized", zap.Uint("sessionId", sessionID), zap.Uint("speakerId", entry.SpeakerID))
	return nil
}

func (e *Energy) cacheUpdate(ctx context.Context, sample *TelemetrySample) (bool, error) {
	logger := cacheLogger()

	unlock := e.locksForCache().Lock(sample.SessionID)
	defer unlock()

	entry, err := e.loadEntry(ctx, sample.SessionID)
	if errors.Is(err, kv.ErrNotFound) {
		logger.Warn("Cache entry missing, initializing from database", zap.Uint("sessionId", sample.SessionID))

		entry, err = e.buildEntry(ctx, sample.SessionID)
		if err != nil {
			return false, err
		}
		if entry == nil {
			logger.Warn("Dropped telemetry for unknown or inactive session", zap.Uint("sessionId", sample.SessionID))
			return false, nil
		}
		metrics.RealtimeCacheEntries.Inc()
	} else if err != nil {
		return false, err
	}

	now := e.clock().Now()
	entry.DurationMinutes = wholeMinutes(now.Sub(entry.StartTime))
	entry.LatestData = LatestData{
		Timestamp:               sample.Timestamp,
		CurrentMA:               sample.CurrentMA,
		VoltageV:                sample.VoltageV,
		PowerMW:                 sample.PowerMW,
		BatteryRemainingPercent: sample.BatteryRemainingPercent,
		TotalConsumedMAh:        sample.TotalConsumedMAh,
		SampleIndex:             sample.SampleIndex,
	}
	entry.Statistics = RunningStatistics{
		AvgCurrentMA:     sample.AvgCurrentMA,
		AvgVoltageV:      sample.AvgVoltageV,
		AvgPowerMW:       sample.AvgPowerMW,
		PeakPowerMW:      sample.PeakPowerMW,
		MeasurementCount: sample.SampleIndex,
		TotalConsumedMAh: sample.TotalConsumedMAh,
		DurationSeconds:  sample.Timestamp,
	}
	entry.LastUpdated = now

	if err := e.saveEntry(ctx, entry); err != nil {
		return false, err
	}

	logger.Debug("Cache entry updated",
		zap.Uint("sessionId", sample.SessionID),
		zap.Int("sampleIndex", sample.SampleIndex),
		zap.Float64("battery", sample.BatteryRemainingPercent),
	)
	return true, nil
}

func (e *Energy) cacheGet(ctx context.Context, sessionID uint) (*CacheEntry, error) {
	entry, err := e.loadEntry(ctx, sessionID)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	return entry, err
}

// cacheRead falls back to a zeroed view built from the session row when no
// telemetry has been cached. Unknown sessions are ErrNotFound.
func (e *Energy) cacheRead(ctx context.Context, sessionID uint) (*RealtimeView, error) {
	entry, err := e.cacheGet(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if entry != nil {
		return &RealtimeView{CacheEntry: *entry, HasRealtimeData: true}, nil
	}

	session, err := e.Gateway.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	now := e.clock().Now()
	end := now
	if session.EndTime != nil {
		end = *session.EndTime
	}
	minutes := wholeMinutes(end.Sub(session.StartTime))

	battery := session.InitialBatteryPercentage
	speakerName := session.SpeakerName
	if session.Speaker != nil {
		battery = session.Speaker.BatteryPercentage
		if speakerName == "" {
			speakerName = session.Speaker.Name
		}
	}

	return &RealtimeView{
		CacheEntry: CacheEntry{
			SessionID:                session.ID,
			SpeakerID:                session.SpeakerID,
			SpeakerName:              speakerName,
			UserID:                   session.UserID,
			Status:                   session.Status,
			StartTime:                session.StartTime,
			DurationMinutes:          minutes,
			InitialBatteryPercentage: session.InitialBatteryPercentage,
			LatestData: LatestData{
				BatteryRemainingPercent: battery,
			},
			Statistics: RunningStatistics{
				DurationSeconds: float64(minutes * 60),
			},
			LastUpdated: now,
			Created:     now,
		},
		HasRealtimeData: false,
	}, nil
}

func (e *Energy) cacheClear(ctx context.Context, sessionID uint) (bool, error) {
	unlock := e.locksForCache().Lock(sessionID)
	defer unlock()

	deleted, err := e.Store.Delete(ctx, cacheKey(sessionID))
	if err != nil {
		return false, err
	}
	if deleted {
		metrics.RealtimeCacheEntries.Dec()
		cacheLogger().Info("Cache entry cleared", zap.Uint("sessionId", sessionID))
	}
	return deleted, nil
}

func (e *Energy) hasEntry(ctx context.Context, sessionID uint) (bool, error) {
	_, err := e.Store.Get(ctx, cacheKey(sessionID))
	if errors.Is(err, kv.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (e *Energy) cacheSweepInactive(ctx context.Context) (int, error) {
	logger := cacheLogger()

	keys, err := e.Store.Keys(ctx)
	if err != nil {
		return 0, err
	}
	activeIDs, err := e.Gateway.ListActiveSessionIDs(ctx)
	if err != nil {
		return 0, err
	}

	active := make(map[string]struct{}, len(activeIDs))
	for _, id := range activeIDs {
		active[cacheKey(id)] = struct{}{}
	}

	removed := 0
	for _, key := range keys {
		if _, ok := active[key]; ok {
			continue
		}
		var deleted bool
		if id, perr := strconv.ParseUint(key, 10, 64); perr == nil {
			deleted, err = e.cacheClear(ctx, uint(id))
		} else {
			deleted, err = e.Store.Delete(ctx, key)
		}
		if err != nil {
			return removed, err
		}
		if deleted {
			removed++
		}
	}

	metrics.CacheSweepRemovedTotal.Add(float64(removed))
	logger.Info("Swept inactive cache entries", zap.Int("removed", removed), zap.Int("scanned", len(keys)))
	return removed, nil
}

func (e *Energy) cacheInfo(ctx context.Context) (*CacheInfo, error) {
	keys, err := e.Store.Keys(ctx)
	if err != nil {
		return nil, err
	}

	info := &CacheInfo{Backend: e.Store.Name(), Sessions: []CacheSessionInfo{}}
	for _, key := range keys {
		id, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			continue
		}
		entry, err := e.cacheGet(ctx, uint(id))
		if err != nil {
			return nil, err
		}
		if entry == nil {
			continue
		}
		info.Sessions = append(info.Sessions, CacheSessionInfo{
			SessionID:        entry.SessionID,
			SpeakerID:        entry.SpeakerID,
			MeasurementCount: entry.Statistics.MeasurementCount,
			BatteryPercent:   entry.LatestData.BatteryRemainingPercent,
			LastUpdated:      entry.LastUpdated,
		})
	}
	sort.Slice(info.Sessions, func(i, j int) bool {
		return info.Sessions[i].SessionID < info.Sessions[j].SessionID
	})
	info.TotalSessions = len(info.Sessions)

	metrics.RealtimeCacheEntries.Set(float64(info.TotalSessions))
	return info, nil
}

func wholeMinutes(d time.Duration) int {
	if d < 0 {
		return 0
	}
	return int(d / time.Minute)
}

type IRealtimeCacheImpl struct {
	energy *Energy
}

func (ic *IRealtimeCacheImpl) Initialize(ctx context.Context, sessionID uint) error {
	return ic.energy.cacheInitialize(ctx, sessionID)
}

func (ic *IRealtimeCacheImpl) Update(ctx context.Context, sample *TelemetrySample) (bool, error) {
	return ic.energy.cacheUpdate(ctx, sample)
}

func (ic *IRealtimeCacheImpl) Get(ctx context.Context, sessionID uint) (*CacheEntry, error) {
	return ic.energy.cacheGet(ctx, sessionID)
}

func (ic *IRealtimeCacheImpl) Read(ctx context.Context, sessionID uint) (*RealtimeView, error) {
	return ic.energy.cacheRead(ctx, sessionID)
}

func (ic *IRealtimeCacheImpl) Clear(ctx context.Context, sessionID uint) (bool, error) {
	return ic.energy.cacheClear(ctx, sessionID)
}

func (ic *IRealtimeCacheImpl) Has(ctx context.Context, sessionID uint) (bool, error) {
	return ic.energy.hasEntry(ctx, sessionID)
}

func (ic *IRealtimeCacheImpl) SweepInactive(ctx context.Context) (int, error) {
	return ic.energy.cacheSweepInactive(ctx)
}

func (ic *IRealtimeCacheImpl) Info(ctx context.Context) (*CacheInfo, error) {
	return ic.energy.cacheInfo(ctx)
}

func (ic *IRealtimeCacheImpl) Ping(ctx context.Context) error {
	return ic.energy.Store.Ping(ctx)
}

func (e *Energy) GetIRealtimeCache() IRealtimeCache {
	return &IRealtimeCacheImpl{energy: e}
}
