package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"leadpipe_backend/internal/activities/repository"
	"leadpipe_backend/internal/activities/transport"
	"leadpipe_backend/platform/apperr"
	"leadpipe_backend/platform/logger"
	"leadpipe_backend/platform/pagestate"
	"leadpipe_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// LeadChecker reports whether a lead exists in an organization.
type LeadChecker interface {
	Exists(ctx context.Context, organizationID, leadID uuid.UUID) (bool, error)
}

type Service struct {
	store repository.Store
	leads LeadChecker
	log   *logger.Logger
	now   func() time.Time
}

func New(store repository.Store, leads LeadChecker, log *logger.Logger) *Service {
	return &Service{
		store: store,
		leads: leads,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Create logs an activity against a lead of the caller's organization.
func (s *Service) Create(ctx context.Context, organizationID, leadID, actorID uuid.UUID, req transport.CreateActivityRequest) (transport.ActivityResponse, error) {
	if err := s.requireLead(ctx, organizationID, leadID); err != nil {
		return transport.ActivityResponse{}, err
	}
	if len(req.Details) > 0 && !json.Valid(req.Details) {
		return transport.ActivityResponse{}, apperr.Validation("details must be valid JSON")
	}

	activity := repository.Activity{
		ID:             uuid.New(),
		OrganizationID: organizationID,
		LeadID:         leadID,
		Type:           req.Type,
		Description:    sanitize.Text(req.Description),
		Details:        req.Details,
		CreatedBy:      actorID,
		CreatedAt:      s.now().Truncate(time.Microsecond),
	}
	if string(activity.Details) == "null" {
		activity.Details = nil
	}

	if err := s.store.Insert(ctx, activity); err != nil {
		return transport.ActivityResponse{}, apperr.Internal("failed to create activity", err)
	}
	return toResponse(activity), nil
}

// List pages a lead's activities, newest first.
func (s *Service) List(ctx context.Context, organizationID, leadID uuid.UUID, req transport.ListActivitiesRequest) (transport.ActivityListResponse, error) {
	if err := s.requireLead(ctx, organizationID, leadID); err != nil {
		return transport.ActivityListResponse{}, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	page, err := s.store.List(ctx, organizationID, leadID, limit, req.PageState)
	if errors.Is(err, pagestate.ErrInvalid) {
		return transport.ActivityListResponse{}, apperr.Validation("invalid pageState")
	}
	if err != nil {
		return transport.ActivityListResponse{}, apperr.Internal("failed to list activities", err)
	}

	items := make([]transport.ActivityResponse, 0, len(page.Items))
	for _, a := range page.Items {
		items = append(items, toResponse(a))
	}
	resp := transport.ActivityListResponse{Items: items}
	if page.Next != "" {
		next := page.Next
		resp.PageState = &next
	}
	return resp, nil
}

func (s *Service) requireLead(ctx context.Context, organizationID, leadID uuid.UUID) error {
	exists, err := s.leads.Exists(ctx, organizationID, leadID)
	if err != nil {
		return err
	}
	if !exists {
		return apperr.NotFound("lead not found")
	}
	return nil
}

func toResponse(a repository.Activity) transport.ActivityResponse {
	return transport.ActivityResponse{
		ID:             a.ID,
		OrganizationID: a.OrganizationID,
		LeadID:         a.LeadID,
		Type:           a.Type,
		Description:    a.Description,
		Details:        a.Details,
		CreatedBy:      a.CreatedBy,
		CreatedAt:      a.CreatedAt,
	}
}
