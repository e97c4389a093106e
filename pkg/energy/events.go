package energy

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	EventSessionStarted = "session-started"
	EventSessionEnded   = "session-ended"
)

func MeasurementEvent(speakerID uint) string {
	return fmt.Sprintf("measurement-%d", speakerID)
}

type Event struct {
	Name      string    `json:"event"`
	SpeakerID uint      `json:"speakerId"`
	SessionID uint      `json:"sessionId"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error {
	return nil
}

// Publishers fans an event out to every publisher and joins their errors.
type Publishers []IEventPublisher

func (p Publishers) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, pub := range p {
		if pub == nil {
			continue
		}
		if err := pub.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
