// Package management handles lead CRUD.
// Other packages own the hard parts: indexing keeps the lookup tables in
// step, transition runs stage changes and query serves listings.
package management

import (
	"context"
	"errors"
	"strings"
	"time"

	"leadpipe_backend/internal/leads/indexing"
	"leadpipe_backend/internal/leads/ports"
	"leadpipe_backend/internal/leads/query"
	"leadpipe_backend/internal/leads/repository"
	"leadpipe_backend/internal/leads/transition"
	"leadpipe_backend/internal/leads/transport"
	"leadpipe_backend/platform/apperr"
	"leadpipe_backend/platform/logger"
	"leadpipe_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	msgLeadNotFound = "lead not found"
	msgStageMissing = "stage does not exist"
)

// Service provides lead management operations.
type Service struct {
	repo         repository.LeadsRepository
	index        *indexing.Maintainer
	orchestrator *transition.Orchestrator
	router       *query.Router
	stages       ports.StageReader
	reporter     ports.Reporter
	log          *logger.Logger
	now          func() time.Time
}

// New creates a new lead management service.
func New(repo repository.LeadsRepository, index *indexing.Maintainer, orchestrator *transition.Orchestrator, router *query.Router, stages ports.StageReader, reporter ports.Reporter, log *logger.Logger) *Service {
	return &Service{
		repo:         repo,
		index:        index,
		orchestrator: orchestrator,
		router:       router,
		stages:       stages,
		reporter:     reporter,
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// timestamp is truncated to the store's microsecond precision so index
// deletes can match created_at exactly.
func (s *Service) timestamp() time.Time {
	return s.now().Truncate(time.Microsecond)
}

// Create inserts the primary row, then its index and reporting rows.
func (s *Service) Create(ctx context.Context, organizationID, actorID uuid.UUID, req transport.CreateLeadRequest) (transport.LeadResponse, error) {
	if req.StageID != nil {
		if err := s.requireStage(ctx, organizationID, *req.StageID); err != nil {
			return transport.LeadResponse{}, err
		}
	}

	owner := req.OwnerID
	if owner == nil {
		owner = &actorID
	}

	now := s.timestamp()
	lead := repository.Lead{
		ID:             uuid.New(),
		OrganizationID: organizationID,
		FirstName:      trimmed(req.FirstName),
		LastName:       trimmed(req.LastName),
		Email:          lowerTrimmed(req.Email),
		Phone:          normalizedPhone(req.Phone),
		Company:        trimmed(req.Company),
		Title:          trimmed(req.Title),
		Source:         trimmed(req.Source),
		StageID:        req.StageID,
		Status:         trimmed(req.Status),
		AssignedTo:     req.AssignedTo,
		OwnerID:        owner,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(ctx, lead); err != nil {
		return transport.LeadResponse{}, apperr.Internal("failed to create lead", err)
	}

	_ = s.index.Reindex(ctx, organizationID, lead.ID, indexing.Snapshot{CreatedAt: now}, indexing.SnapshotOf(lead))
	s.addReportRows(ctx, lead)

	return ToLeadResponse(lead), nil
}

// GetByID returns a lead of the caller's organization.
func (s *Service) GetByID(ctx context.Context, organizationID, id uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.load(ctx, organizationID, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return ToLeadResponse(lead), nil
}

// Update applies a partial update. Plain fields are written directly and
// the lookup tables diffed; a changed stage_id is handed to the
// transition orchestrator so it gets a journey entry and day bucket row.
func (s *Service) Update(ctx context.Context, organizationID, id, actorID uuid.UUID, req transport.UpdateLeadRequest) (transport.LeadResponse, error) {
	existing, err := s.load(ctx, organizationID, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	var targetStage *uuid.UUID
	if req.StageID.Set {
		if req.StageID.Value == nil {
			return transport.LeadResponse{}, apperr.Validation("stage_id cannot be cleared")
		}
		if existing.StageID == nil || *existing.StageID != *req.StageID.Value {
			if err := s.requireStage(ctx, organizationID, *req.StageID.Value); err != nil {
				return transport.LeadResponse{}, err
			}
			targetStage = req.StageID.Value
		}
	}

	params := repository.UpdateLeadParams{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Email:         lowerTrimmedKeepEmpty(req.Email),
		Phone:         normalizedPhoneKeepEmpty(req.Phone),
		Company:       req.Company,
		Title:         req.Title,
		Source:        req.Source,
		Status:        req.Status.Value,
		StatusSet:     req.Status.Set,
		AssignedTo:    req.AssignedTo.Value,
		AssignedToSet: req.AssignedTo.Set,
		OwnerID:       req.OwnerID.Value,
		OwnerIDSet:    req.OwnerID.Set,
		UpdatedAt:     s.timestamp(),
	}

	updated := existing
	if !params.IsEmpty() {
		updated, err = s.repo.Update(ctx, organizationID, id, params)
		if errors.Is(err, repository.ErrNotFound) {
			return transport.LeadResponse{}, apperr.NotFound(msgLeadNotFound)
		}
		if err != nil {
			return transport.LeadResponse{}, apperr.Internal("failed to update lead", err)
		}

		_ = s.index.Reindex(ctx, organizationID, id, indexing.SnapshotOf(existing), indexing.SnapshotOf(updated))
		s.moveOwnerRow(ctx, existing, updated)
	}

	if targetStage != nil {
		updated, err = s.orchestrator.Transition(ctx, organizationID, id, *targetStage, actorID, nil)
		if err != nil {
			return transport.LeadResponse{}, err
		}
	}

	return ToLeadResponse(updated), nil
}

// Delete removes a lead and, read-before-delete, every index and reporting
// row derived from its values at that moment. Deleting a missing lead is a
// no-op.
func (s *Service) Delete(ctx context.Context, organizationID, id uuid.UUID) error {
	existing, err := s.repo.GetByID(ctx, organizationID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return apperr.Internal("failed to load lead", err)
	}

	if err := s.repo.Delete(ctx, organizationID, id); err != nil {
		return apperr.Internal("failed to delete lead", err)
	}

	_ = s.index.Remove(ctx, organizationID, id, indexing.SnapshotOf(existing))
	s.removeReportRows(ctx, existing)
	return nil
}

// List pages leads through the query router.
func (s *Service) List(ctx context.Context, organizationID uuid.UUID, req transport.ListLeadsRequest) (transport.LeadListResponse, error) {
	filter := query.Filter{Status: strings.TrimSpace(req.Status), Q: req.Q}
	if req.AssignedTo != "" {
		parsed, err := uuid.Parse(req.AssignedTo)
		if err != nil {
			return transport.LeadListResponse{}, apperr.Validation("assigned_to must be a uuid")
		}
		filter.AssignedTo = &parsed
	}
	if req.StageID != "" {
		parsed, err := uuid.Parse(req.StageID)
		if err != nil {
			return transport.LeadListResponse{}, apperr.Validation("stage_id must be a uuid")
		}
		filter.StageID = &parsed
	}

	result, err := s.router.List(ctx, organizationID, query.Params{
		Filter:    filter,
		Limit:     req.Limit,
		PageState: repository.PageState(req.PageState),
	})
	if err != nil {
		return transport.LeadListResponse{}, err
	}

	items := make([]transport.LeadResponse, 0, len(result.Items))
	for _, lead := range result.Items {
		items = append(items, ToLeadResponse(lead))
	}
	resp := transport.LeadListResponse{Items: items}
	if result.PageState != "" {
		state := string(result.PageState)
		resp.PageState = &state
	}
	return resp, nil
}

// Transition moves a lead to another stage.
func (s *Service) Transition(ctx context.Context, organizationID, id, actorID uuid.UUID, req transport.TransitionRequest) (transport.LeadResponse, error) {
	lead, err := s.orchestrator.Transition(ctx, organizationID, id, req.ToStageID, actorID, sanitize.Optional(req.Notes))
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return ToLeadResponse(lead), nil
}

// Journey lists a lead's stage history, newest first.
func (s *Service) Journey(ctx context.Context, organizationID, id uuid.UUID) (transport.JourneyResponse, error) {
	entries, err := s.orchestrator.Journey(ctx, organizationID, id)
	if err != nil {
		return transport.JourneyResponse{}, err
	}
	return toJourneyResponse(entries), nil
}

// Exists reports whether a lead exists in the organization.
func (s *Service) Exists(ctx context.Context, organizationID, id uuid.UUID) (bool, error) {
	_, err := s.repo.GetByID(ctx, organizationID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Internal("failed to load lead", err)
	}
	return true, nil
}

// Repair re-inserts the index and reporting rows for a lead's current
// values. Rows for older values are left for read-side filtering. The
// returned error joins every failed write so callers can retry.
func (s *Service) Repair(ctx context.Context, organizationID, id uuid.UUID) error {
	lead, err := s.repo.GetByID(ctx, organizationID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return apperr.Internal("failed to load lead", err)
	}

	var errs []error
	if err := s.index.Ensure(ctx, organizationID, id, indexing.SnapshotOf(lead)); err != nil {
		errs = append(errs, err)
	}
	if lead.StageID != nil {
		if err := s.reporter.AddToStage(ctx, organizationID, *lead.StageID, id, lead.CreatedAt); err != nil {
			errs = append(errs, err)
		}
	}
	if lead.OwnerID != nil {
		if err := s.reporter.AddToOwner(ctx, organizationID, *lead.OwnerID, id, lead.CreatedAt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ListIDs pages the ids of every lead in an organization.
func (s *Service) ListIDs(ctx context.Context, organizationID uuid.UUID, limit int, state string) ([]uuid.UUID, string, error) {
	page, err := s.repo.ListIDs(ctx, organizationID, repository.PageRequest{Limit: limit, State: repository.PageState(state)})
	if errors.Is(err, repository.ErrInvalidPageState) {
		return nil, "", apperr.Validation("invalid pageState")
	}
	if err != nil {
		return nil, "", apperr.Internal("failed to list leads", err)
	}
	return page.IDs, string(page.Next), nil
}

func (s *Service) load(ctx context.Context, organizationID, id uuid.UUID) (repository.Lead, error) {
	lead, err := s.repo.GetByID(ctx, organizationID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Lead{}, apperr.NotFound(msgLeadNotFound)
	}
	if err != nil {
		return repository.Lead{}, apperr.Internal("failed to load lead", err)
	}
	return lead, nil
}

func (s *Service) requireStage(ctx context.Context, organizationID, stageID uuid.UUID) error {
	exists, err := s.stages.StageExists(ctx, organizationID, stageID)
	if err != nil {
		return apperr.Internal("failed to load stage", err)
	}
	if !exists {
		return apperr.InvalidStage(msgStageMissing)
	}
	return nil
}
