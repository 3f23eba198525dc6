// README: Quote service prices requests, persists them and drives the status flow.
package quote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"coachquote/internal/maps"
	"coachquote/internal/modules/pricing"
	"coachquote/internal/types"
)

var (
	ErrInvalidState       = errors.New("invalid state transition")
	ErrNotFound           = errors.New("quote not found")
	ErrConflict           = errors.New("quote state conflict")
	ErrBadRequest         = errors.New("bad request")
	ErrExpired            = errors.New("quote expired")
	ErrNeedsReview        = errors.New("quote priced off-grid; review required before sending")
	ErrRoutingUnavailable = errors.New("routing unavailable; distance and drive time required")
)

type Pricer interface {
	Estimate(ctx context.Context, req pricing.EstimateRequest) (pricing.Estimate, error)
}

type Router interface {
	Estimate(ctx context.Context, origin, destination string) (maps.Route, error)
}

// Repository is the persistence the service needs; *Store implements it.
type Repository interface {
	Create(ctx context.Context, q *Quote) error
	Get(ctx context.Context, id types.ID) (*Quote, error)
	UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int) (bool, error)
	AppendEvent(ctx context.Context, e *Event) error
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*Quote, error)
}

type Recorder interface {
	QuoteTransition(status string)
}

type Config struct {
	Validity   time.Duration
	ExpiryTick time.Duration
}

type Service struct {
	store   Repository
	pricer  Pricer
	router  Router
	cfg     Config
	metrics Recorder
	logger  *zap.Logger
	now     func() time.Time
}

// NewService wires the quote flow. router and metrics may be nil.
func NewService(store Repository, pricer Pricer, router Router, cfg Config, metrics Recorder, logger *zap.Logger) *Service {
	if cfg.Validity <= 0 {
		cfg.Validity = 30 * 24 * time.Hour
	}
	if cfg.ExpiryTick <= 0 {
		cfg.ExpiryTick = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, pricer: pricer, router: router, cfg: cfg, metrics: metrics, logger: logger, now: time.Now}
}

type CreateCommand struct {
	ClientID  types.ID
	CreatedBy types.ID
	Request   Request
}

type SendCommand struct {
	QuoteID types.ID
	ActorID types.ID
	// Reviewed confirms a salesperson checked an off-grid price.
	Reviewed bool
}

type DecideCommand struct {
	QuoteID types.ID
	ActorID types.ID
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Quote, error) {
	if cmd.ClientID == "" {
		return nil, fmt.Errorf("%w: client_id required", ErrBadRequest)
	}
	req := cmd.Request
	if err := s.route(ctx, &req); err != nil {
		return nil, err
	}

	est, err := s.pricer.Estimate(ctx, pricing.EstimateRequest{
		Trip:           req.Trip,
		PassengerCount: req.PassengerCount,
		DepartureDept:  req.DepartureDept,
		ArrivalDept:    req.ArrivalDept,
		CountryCode:    req.CountryCode,
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	q := &Quote{
		ID:               types.NewID(),
		ClientID:         cmd.ClientID,
		CreatedBy:        cmd.CreatedBy,
		Status:           StatusDraft,
		Request:          req,
		Trip:             est.Trip,
		Pricing:          est.Pricing,
		Fleet:            est.Fleet,
		RateTableVersion: est.RateTableVersion,
		NeedsReview:      est.Pricing.OffGridFallbackUsed,
		CreatedAt:        now,
		ExpiresAt:        now.Add(s.cfg.Validity),
	}
	if err := s.store.Create(ctx, q); err != nil {
		return nil, err
	}
	s.appendEvent(ctx, q.ID, StatusNone, StatusDraft, "sales", actor(cmd.CreatedBy), now)
	s.record(StatusDraft)
	return q, nil
}

// route fills distance and drive time from the router when only addresses were given.
// Round trips drive the route twice; distance stays the one-way figure the grids use.
func (s *Service) route(ctx context.Context, req *Request) error {
	if req.Trip.DistanceKm > 0 {
		return nil
	}
	if strings.TrimSpace(req.Origin) == "" || strings.TrimSpace(req.Destination) == "" {
		return nil
	}
	if s.router == nil {
		return ErrRoutingUnavailable
	}
	r, err := s.router.Estimate(ctx, req.Origin, req.Destination)
	if err != nil {
		return fmt.Errorf("route %q -> %q: %w", req.Origin, req.Destination, err)
	}
	req.Trip.DistanceKm = r.DistanceKm
	if req.Trip.DriveMinutes == 0 {
		req.Trip.DriveMinutes = r.DriveMinutes
		if req.Trip.RoundTrip {
			req.Trip.DriveMinutes *= 2
		}
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Quote, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) Send(ctx context.Context, cmd SendCommand) (*Quote, error) {
	q, err := s.store.Get(ctx, cmd.QuoteID)
	if err != nil {
		return nil, err
	}
	if q.NeedsReview && !cmd.Reviewed {
		return nil, ErrNeedsReview
	}
	return s.transition(ctx, q, StatusSent, "sales", actor(cmd.ActorID))
}

func (s *Service) Accept(ctx context.Context, cmd DecideCommand) (*Quote, error) {
	return s.decide(ctx, cmd, StatusAccepted)
}

func (s *Service) Decline(ctx context.Context, cmd DecideCommand) (*Quote, error) {
	return s.decide(ctx, cmd, StatusDeclined)
}

// decide records the client's answer. An answer arriving after the validity window
// expires the quote instead.
func (s *Service) decide(ctx context.Context, cmd DecideCommand, to Status) (*Quote, error) {
	q, err := s.store.Get(ctx, cmd.QuoteID)
	if err != nil {
		return nil, err
	}
	if q.Status == StatusSent && q.Expired(s.now()) {
		if _, err := s.transition(ctx, q, StatusExpired, "system", nil); err != nil && !errors.Is(err, ErrConflict) {
			return nil, err
		}
		return nil, ErrExpired
	}
	return s.transition(ctx, q, to, "client", actor(cmd.ActorID))
}

func (s *Service) transition(ctx context.Context, q *Quote, to Status, actorType string, actorID *types.ID) (*Quote, error) {
	if !CanTransition(q.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidState, q.Status, to)
	}
	ok, err := s.store.UpdateStatus(ctx, q.ID, q.Status, to, q.StatusVersion)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	now := s.now()
	from := q.Status
	q.Status = to
	q.StatusVersion++
	switch to {
	case StatusSent:
		q.SentAt = &now
	case StatusAccepted, StatusDeclined, StatusExpired:
		q.DecidedAt = &now
	}
	s.appendEvent(ctx, q.ID, from, to, actorType, actorID, now)
	s.record(to)
	return q, nil
}

// ExpireDue expires every open quote past its validity and returns how many it moved.
func (s *Service) ExpireDue(ctx context.Context) (int, error) {
	const batch = 100
	expired := 0
	for {
		due, err := s.store.ListExpired(ctx, s.now(), batch)
		if err != nil {
			return expired, err
		}
		moved := 0
		for _, q := range due {
			_, err := s.transition(ctx, q, StatusExpired, "system", nil)
			switch {
			case err == nil:
				moved++
			case errors.Is(err, ErrConflict):
				// someone decided it in between; the next listing skips it
			default:
				return expired + moved, err
			}
		}
		expired += moved
		if len(due) < batch || moved == 0 {
			return expired, nil
		}
	}
}

func (s *Service) RunExpiryMonitor(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.ExpiryTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.ExpireDue(ctx)
			if err != nil {
				s.logger.Error("expire quotes", zap.Error(err), zap.Int("expired", n))
				continue
			}
			if n > 0 {
				s.logger.Info("quotes expired", zap.Int("count", n))
			}
		}
	}
}

func (s *Service) appendEvent(ctx context.Context, id types.ID, from, to Status, actorType string, actorID *types.ID, at time.Time) {
	err := s.store.AppendEvent(ctx, &Event{
		QuoteID:    id,
		FromStatus: from,
		ToStatus:   to,
		ActorType:  actorType,
		ActorID:    actorID,
		CreatedAt:  at,
	})
	if err != nil {
		s.logger.Warn("append quote event", zap.Error(err), zap.String("quote_id", string(id)), zap.String("to", string(to)))
	}
}

func (s *Service) record(to Status) {
	if s.metrics != nil {
		s.metrics.QuoteTransition(string(to))
	}
}

func actor(id types.ID) *types.ID {
	if id == "" {
		return nil
	}
	return &id
}
