// README: Quote aggregate and status definitions.
package quote

import (
	"time"

	"coachquote/internal/modules/fleet"
	"coachquote/internal/modules/pricing"
	"coachquote/internal/types"
)

type Status string

const (
	StatusNone     Status = "none"
	StatusDraft    Status = "draft"
	StatusSent     Status = "sent"
	StatusAccepted Status = "accepted"
	StatusDeclined Status = "declined"
	StatusExpired  Status = "expired"
)

// Request is what the client asked for, kept verbatim next to the computed price.
type Request struct {
	Origin         string              `json:"origin,omitempty"`
	Destination    string              `json:"destination,omitempty"`
	Trip           pricing.TripRequest `json:"trip"`
	PassengerCount int                 `json:"passenger_count"`
	DepartureDept  string              `json:"departure_dept"`
	ArrivalDept    string              `json:"arrival_dept"`
	CountryCode    string              `json:"country_code"`
}

type Quote struct {
	ID               types.ID         `json:"id"`
	ClientID         types.ID         `json:"client_id"`
	CreatedBy        types.ID         `json:"created_by"`
	Status           Status           `json:"status"`
	StatusVersion    int              `json:"status_version"`
	Request          Request          `json:"request"`
	Trip             pricing.TripInfo `json:"trip"`
	Pricing          pricing.Result   `json:"pricing"`
	Fleet            fleet.Allocation `json:"fleet"`
	RateTableVersion string           `json:"rate_table_version"`
	// NeedsReview marks quotes priced with the off-grid fallback.
	NeedsReview bool       `json:"needs_review"`
	CreatedAt   time.Time  `json:"created_at"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`
	ExpiresAt   time.Time  `json:"expires_at"`
}

// Expired reports whether the validity window has passed, whatever the stored status.
func (q *Quote) Expired(now time.Time) bool {
	return !now.Before(q.ExpiresAt)
}

type Event struct {
	ID         int64
	QuoteID    types.ID
	FromStatus Status
	ToStatus   Status
	ActorType  string
	ActorID    *types.ID
	CreatedAt  time.Time
}

// AllowedTransitions represents the quote state flow (diagram) as code.
var AllowedTransitions = map[Status][]Status{
	StatusDraft: {StatusSent, StatusExpired},
	StatusSent:  {StatusAccepted, StatusDeclined, StatusExpired},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}
