// Package service holds the stage pipeline rules. A stage can be deleted
// only when no lead references it and it is not final.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"leadpipe_backend/internal/stages/repository"
	"leadpipe_backend/internal/stages/transport"
	"leadpipe_backend/platform/apperr"
	"leadpipe_backend/platform/logger"
	"leadpipe_backend/platform/sanitize"

	"github.com/google/uuid"
)

const msgStageNotFound = "stage not found"

// LeadUsageChecker reports whether any lead still references a stage.
// The leads module provides it after construction.
type LeadUsageChecker interface {
	StageInUse(ctx context.Context, organizationID, stageID uuid.UUID) (bool, error)
}

// Service provides business logic for stages.
type Service struct {
	repo  repository.Repository
	usage LeadUsageChecker
	log   *logger.Logger
	now   func() time.Time
}

// New creates a new stages service.
func New(repo repository.Repository, log *logger.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// SetLeadUsageChecker injects the lead lookup used to guard deletes.
func (s *Service) SetLeadUsageChecker(usage LeadUsageChecker) {
	s.usage = usage
}

func (s *Service) Create(ctx context.Context, organizationID uuid.UUID, req transport.CreateStageRequest) (transport.StageResponse, error) {
	now := s.now().Truncate(time.Microsecond)
	stage := repository.Stage{
		ID:             uuid.New(),
		OrganizationID: organizationID,
		Name:           strings.TrimSpace(req.Name),
		Description:    sanitize.Optional(req.Description),
		IsFinal:        req.IsFinal,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if req.Order != nil {
		stage.Order = *req.Order
	}

	if err := s.repo.Create(ctx, stage); err != nil {
		return transport.StageResponse{}, apperr.Internal("failed to create stage", err)
	}

	s.log.WithContext(ctx).Info("stage created", "stageId", stage.ID, "name", stage.Name)
	return toResponse(stage), nil
}

func (s *Service) GetByID(ctx context.Context, organizationID, id uuid.UUID) (transport.StageResponse, error) {
	stage, err := s.repo.GetByID(ctx, organizationID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.StageResponse{}, apperr.NotFound(msgStageNotFound)
	}
	if err != nil {
		return transport.StageResponse{}, apperr.Internal("failed to load stage", err)
	}
	return toResponse(stage), nil
}

func (s *Service) List(ctx context.Context, organizationID uuid.UUID) (transport.StageListResponse, error) {
	stages, err := s.repo.List(ctx, organizationID)
	if err != nil {
		return transport.StageListResponse{}, apperr.Internal("failed to list stages", err)
	}
	items := make([]transport.StageResponse, 0, len(stages))
	for _, stage := range stages {
		items = append(items, toResponse(stage))
	}
	return transport.StageListResponse{Items: items}, nil
}

func (s *Service) Update(ctx context.Context, organizationID, id uuid.UUID, req transport.UpdateStageRequest) (transport.StageResponse, error) {
	params := repository.UpdateParams{
		IsFinal:   req.IsFinal,
		Order:     req.Order,
		UpdatedAt: s.now().Truncate(time.Microsecond),
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		params.Name = &name
	}
	if req.Description != nil {
		description := sanitize.Text(*req.Description)
		params.Description = &description
	}

	stage, err := s.repo.Update(ctx, organizationID, id, params)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.StageResponse{}, apperr.NotFound(msgStageNotFound)
	}
	if err != nil {
		return transport.StageResponse{}, apperr.Internal("failed to update stage", err)
	}
	return toResponse(stage), nil
}

// Delete removes a stage. A stage referenced by a lead, or marked final,
// is refused with StageInUse. Deleting a missing stage is a no-op.
func (s *Service) Delete(ctx context.Context, organizationID, id uuid.UUID) error {
	if s.usage != nil {
		inUse, err := s.usage.StageInUse(ctx, organizationID, id)
		if err != nil {
			return apperr.Internal("failed to check stage usage", err)
		}
		if inUse {
			return apperr.StageInUse("cannot delete stage that has leads assigned to it")
		}
	}

	stage, err := s.repo.GetByID(ctx, organizationID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return apperr.Internal("failed to load stage", err)
	}
	if stage.IsFinal {
		return apperr.StageInUse("cannot delete final stage")
	}

	if err := s.repo.Delete(ctx, organizationID, id); err != nil {
		return apperr.Internal("failed to delete stage", err)
	}
	s.log.WithContext(ctx).Info("stage deleted", "stageId", id)
	return nil
}

// StageExists reports whether a stage exists in the organization.
func (s *Service) StageExists(ctx context.Context, organizationID, id uuid.UUID) (bool, error) {
	return s.repo.Exists(ctx, organizationID, id)
}

// StageIDs returns the ids of every stage of the organization in pipeline order.
func (s *Service) StageIDs(ctx context.Context, organizationID uuid.UUID) ([]uuid.UUID, error) {
	stages, err := s.repo.List(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(stages))
	for _, stage := range stages {
		ids = append(ids, stage.ID)
	}
	return ids, nil
}

// Seed creates the stages whose names the organization does not have yet.
// It returns how many were created.
func (s *Service) Seed(ctx context.Context, organizationID uuid.UUID, defs []transport.CreateStageRequest) (int, error) {
	existing, err := s.repo.List(ctx, organizationID)
	if err != nil {
		return 0, apperr.Internal("failed to list stages", err)
	}
	names := make(map[string]struct{}, len(existing))
	for _, stage := range existing {
		names[strings.ToLower(stage.Name)] = struct{}{}
	}

	created := 0
	for i, def := range defs {
		key := strings.ToLower(strings.TrimSpace(def.Name))
		if _, ok := names[key]; ok || key == "" {
			continue
		}
		if def.Order == nil {
			order := i
			def.Order = &order
		}
		if _, err := s.Create(ctx, organizationID, def); err != nil {
			return created, err
		}
		names[key] = struct{}{}
		created++
	}
	return created, nil
}

func toResponse(s repository.Stage) transport.StageResponse {
	return transport.StageResponse{
		ID:             s.ID,
		OrganizationID: s.OrganizationID,
		Name:           s.Name,
		Description:    s.Description,
		IsFinal:        s.IsFinal,
		Order:          s.Order,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}
