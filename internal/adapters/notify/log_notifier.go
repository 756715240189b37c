// Package notify holds Notifier implementations. The core computes alert
// conditions; anything user-facing lives behind this boundary.
package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/atvirokodosprendimai/rostersync/internal/core/domain"
)

// LogNotifier records alerts in the structured log, the default sink when no
// UI collaborator has registered a richer one.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, alert domain.Alert) error {
	n.log.Info().
		Str("kind", string(alert.Kind)).
		Str("title", alert.Title).
		Str("body", alert.Body).
		Int("subjects", len(alert.SubjectIDs)).
		Msg("alert")
	return nil
}
