package energy

import (
	"context"

	"liyu1981.xyz/speaker-energy-service/pkg/models"
)

type BatteryLevel string

const (
	BatteryHigh     BatteryLevel = "high"
	BatteryMedium   BatteryLevel = "medium"
	BatteryLow      BatteryLevel = "low"
	BatteryCritical BatteryLevel = "critical"
)

// ClassifyBattery buckets a percentage: above 60 is high, above 30 medium,
// above 10 low, anything else critical.
func ClassifyBattery(percent float64) BatteryLevel {
	switch {
	case percent > 60:
		return BatteryHigh
	case percent > 30:
		return BatteryMedium
	case percent > 10:
		return BatteryLow
	default:
		return BatteryCritical
	}
}

type SpeakerBattery struct {
	ID                uint         `json:"id"`
	Name              string       `json:"name"`
	Position          string       `json:"position"`
	State             bool         `json:"state"`
	BatteryPercentage float64      `json:"batteryPercentage"`
	BatteryStatus     BatteryLevel `json:"batteryStatus"`
}

type BatteryStats struct {
	Total          int                  `json:"total"`
	Online         int                  `json:"online"`
	Offline        int                  `json:"offline"`
	BatteryLevels  map[BatteryLevel]int `json:"batteryLevels"`
	AverageBattery float64              `json:"averageBattery"`
	Speakers       []SpeakerBattery     `json:"speakers"`
}

// BatteryStats summarizes the persisted battery level of every speaker.
// Online means the speaker has an ACTIVE session.
func (e *Energy) BatteryStats(ctx context.Context) (*BatteryStats, error) {
	speakers, err := e.Gateway.ListSpeakers(ctx)
	if err != nil {
		return nil, err
	}

	stats := &BatteryStats{
		Total: len(speakers),
		BatteryLevels: map[BatteryLevel]int{
			BatteryHigh:     0,
			BatteryMedium:   0,
			BatteryLow:      0,
			BatteryCritical: 0,
		},
		Speakers: make([]SpeakerBattery, 0, len(speakers)),
	}

	var sum float64
	for _, s := range speakers {
		level := ClassifyBattery(s.BatteryPercentage)
		stats.BatteryLevels[level]++
		if s.State {
			stats.Online++
		}
		sum += s.BatteryPercentage
		stats.Speakers = append(stats.Speakers, speakerBattery(s, level))
	}
	stats.Offline = stats.Total - stats.Online
	if stats.Total > 0 {
		stats.AverageBattery = sum / float64(stats.Total)
	}
	return stats, nil
}

func speakerBattery(s models.Speaker, level BatteryLevel) SpeakerBattery {
	return SpeakerBattery{
		ID:                s.ID,
		Name:              s.Name,
		Position:          s.Position,
		State:             s.State,
		BatteryPercentage: s.BatteryPercentage,
		BatteryStatus:     level,
	}
}
