package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"leadpipe_backend/internal/audit/repository"
	"leadpipe_backend/internal/audit/transport"
	"leadpipe_backend/internal/events"
	"leadpipe_backend/platform/apperr"
	"leadpipe_backend/platform/logger"
	"leadpipe_backend/platform/pagestate"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
	dateLayout      = "2006-01-02"
)

type Service struct {
	store repository.Store
	log   *logger.Logger
	now   func() time.Time
}

func New(store repository.Store, log *logger.Logger) *Service {
	return &Service{
		store: store,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Record persists one performed action. The event timestamp wins over the
// write time so queued records keep their request ordering.
func (s *Service) Record(ctx context.Context, e events.ActionPerformed) error {
	createdAt := e.Timestamp
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	entry := repository.Entry{
		ID:             uuid.New(),
		OrganizationID: e.OrganizationID,
		EntityType:     e.EntityType,
		EntityID:       e.EntityID,
		Action:         e.Action,
		Details:        e.Metadata,
		IP:             e.IP,
		UserAgent:      e.UserAgent,
		CreatedAt:      createdAt.UTC().Truncate(time.Microsecond),
	}
	if e.ActorID != uuid.Nil {
		actor := e.ActorID
		entry.UserID = &actor
	}

	if err := s.store.Insert(ctx, entry); err != nil {
		return apperr.Internal("failed to record audit entry", err)
	}
	return nil
}

// List returns the organization's audit trail, newest first.
func (s *Service) List(ctx context.Context, organizationID uuid.UUID, req transport.ListAuditRequest) (transport.ListAuditResponse, error) {
	from, err := parseBound(req.From, false)
	if err != nil {
		return transport.ListAuditResponse{}, apperr.Validation("from must be RFC3339 or YYYY-MM-DD")
	}
	to, err := parseBound(req.To, true)
	if err != nil {
		return transport.ListAuditResponse{}, apperr.Validation("to must be RFC3339 or YYYY-MM-DD")
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return transport.ListAuditResponse{}, apperr.Validation("to must not be before from")
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	page, err := s.store.List(ctx, organizationID, repository.Filter{
		From:       from,
		To:         to,
		EntityType: strings.TrimSpace(req.EntityType),
		Limit:      limit,
		PageState:  req.PageState,
	})
	if errors.Is(err, pagestate.ErrInvalid) {
		return transport.ListAuditResponse{}, apperr.Validation("invalid pageState")
	}
	if err != nil {
		return transport.ListAuditResponse{}, apperr.Internal("failed to list audit entries", err)
	}

	items := make([]transport.EntryResponse, 0, len(page.Items))
	for _, e := range page.Items {
		items = append(items, toResponse(e))
	}
	resp := transport.ListAuditResponse{Items: items}
	if page.Next != "" {
		next := page.Next
		resp.PageState = &next
	}
	return resp, nil
}

// parseBound accepts RFC3339 timestamps or plain dates. A plain upper bound
// covers the whole day.
func parseBound(value string, upper bool) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, err
	}
	if upper {
		t = t.Add(24*time.Hour - time.Microsecond)
	}
	return t, nil
}

func toResponse(e repository.Entry) transport.EntryResponse {
	return transport.EntryResponse{
		ID:             e.ID,
		OrganizationID: e.OrganizationID,
		UserID:         e.UserID,
		EntityType:     e.EntityType,
		EntityID:       optional(e.EntityID),
		Action:         e.Action,
		Details:        e.Details,
		IP:             optional(e.IP),
		UserAgent:      optional(e.UserAgent),
		CreatedAt:      e.CreatedAt,
	}
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
