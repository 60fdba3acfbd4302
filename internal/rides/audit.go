package rides

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"ridehail/internal/events"
	"ridehail/internal/observability"
)

// CompletionAudit is the consumer side of the ride journal: it records
// completed rides for settlement. The lifecycle publishes to the
// ride.completed topic; a subscriber feeds each entry through
// HandleMessage.
type CompletionAudit struct {
	log *slog.Logger
}

func NewCompletionAudit(log *slog.Logger) *CompletionAudit {
	if log == nil {
		log = slog.Default()
	}
	return &CompletionAudit{log: log}
}

// HandleMessage decodes one journal entry. Malformed entries are
// rejected so the subscriber can log and move on.
func (a *CompletionAudit) HandleMessage(msg []byte) error {
	var s events.RideSummary
	if err := json.Unmarshal(msg, &s); err != nil {
		return fmt.Errorf("decode ride summary: %w", err)
	}
	if s.ID == "" {
		return fmt.Errorf("ride summary missing id")
	}
	observability.RidesSettled.Inc()
	a.log.Info("ride settled",
		"ride_id", s.ID, "driver_id", s.DriverID, "fare", s.FareRupees, "distance_km", s.DistanceKm)
	return nil
}
