// Package transition moves leads between pipeline stages.
//
// The only checks are that the lead and the target stage exist in the
// caller's organization. Final stages are not terminal here: is_final only
// guards stage deletion.
package transition

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadpipe_backend/internal/leads/indexing"
	"leadpipe_backend/internal/leads/ports"
	"leadpipe_backend/internal/leads/repository"
	"leadpipe_backend/platform/apperr"
	"leadpipe_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// JourneyLimit caps how many journey entries are returned for one lead.
const JourneyLimit = 50

// LeadStore is the slice of the primary store the orchestrator needs.
type LeadStore interface {
	GetByID(ctx context.Context, organizationID, id uuid.UUID) (repository.Lead, error)
	UpdateStage(ctx context.Context, organizationID, id, stageID uuid.UUID) (repository.Lead, error)
}

// StageIndexer swaps the by-stage lookup row.
type StageIndexer interface {
	ReindexTable(ctx context.Context, table repository.IndexTable, organizationID, leadID uuid.UUID, createdAt time.Time, previous, next string) error
}

// Orchestrator runs stage transitions.
type Orchestrator struct {
	leads    LeadStore
	journey  repository.JourneyStore
	stages   ports.StageReader
	index    StageIndexer
	reporter ports.Reporter
	log      *logger.Logger
	now      func() time.Time
}

func New(leads LeadStore, journey repository.JourneyStore, stages ports.StageReader, index StageIndexer, reporter ports.Reporter, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		leads:    leads,
		journey:  journey,
		stages:   stages,
		index:    index,
		reporter: reporter,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Transition moves a lead to toStageID.
//
//  1. load the lead (NotFound)
//  2. check the target stage (InvalidStage)
//  3. append the journey entry; this is the only secondary write whose
//     failure aborts the transition
//  4. swap the stage index row and stage reporting row, and append the
//     day bucket row, in parallel and best-effort
//  5. write the new stage_id to the primary row
//
// Nothing is compensated when a later step fails.
func (o *Orchestrator) Transition(ctx context.Context, organizationID, leadID, toStageID, actorID uuid.UUID, notes *string) (repository.Lead, error) {
	lead, err := o.leads.GetByID(ctx, organizationID, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return repository.Lead{}, apperr.Internal("failed to load lead", err)
	}

	exists, err := o.stages.StageExists(ctx, organizationID, toStageID)
	if err != nil {
		return repository.Lead{}, apperr.Internal("failed to load stage", err)
	}
	if !exists {
		return repository.Lead{}, apperr.InvalidStage("target stage does not exist")
	}

	changedAt := o.now().Truncate(time.Microsecond)
	entry := repository.JourneyEntry{
		OrganizationID: organizationID,
		LeadID:         leadID,
		TransitionID:   transitionID(leadID, changedAt),
		FromStageID:    lead.StageID,
		ToStageID:      toStageID,
		ChangedBy:      actorID,
		Notes:          notes,
		ChangedAt:      changedAt,
	}
	if err := o.journey.AppendJourney(ctx, entry); err != nil {
		return repository.Lead{}, apperr.Internal("failed to record stage transition", err)
	}

	o.applySideEffects(ctx, lead, toStageID, changedAt)

	updated, err := o.leads.UpdateStage(ctx, organizationID, leadID, toStageID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return repository.Lead{}, apperr.Internal("failed to update lead stage", err)
	}
	return updated, nil
}

func (o *Orchestrator) applySideEffects(ctx context.Context, lead repository.Lead, toStageID uuid.UUID, changedAt time.Time) {
	log := o.log.WithContext(ctx)
	org := lead.OrganizationID

	var from uuid.UUID
	previous := ""
	if lead.StageID != nil {
		from = *lead.StageID
		previous = from.String()
	}
	moved := previous != toStageID.String()

	var g errgroup.Group
	if moved {
		g.Go(func() error {
			// Failures are logged by the maintainer.
			_ = o.index.ReindexTable(ctx, repository.IndexByStage, org, lead.ID, lead.CreatedAt, previous, toStageID.String())
			return nil
		})
		g.Go(func() error {
			if previous != "" {
				if err := o.reporter.RemoveFromStage(ctx, org, from, lead.ID, lead.CreatedAt); err != nil {
					log.IndexWriteFailed("report_stage", "delete", lead.ID.String(), err)
				}
			}
			if err := o.reporter.AddToStage(ctx, org, toStageID, lead.ID, lead.CreatedAt); err != nil {
				log.IndexWriteFailed("report_stage", "insert", lead.ID.String(), err)
			}
			return nil
		})
	}
	g.Go(func() error {
		if err := o.reporter.RecordTransition(ctx, org, lead.ID, toStageID, changedAt); err != nil {
			log.IndexWriteFailed("report_day", "insert", lead.ID.String(), err)
		}
		return nil
	})
	_ = g.Wait()
}

// Journey lists a lead's transitions newest first.
func (o *Orchestrator) Journey(ctx context.Context, organizationID, leadID uuid.UUID) ([]repository.JourneyEntry, error) {
	entries, err := o.journey.ListJourney(ctx, organizationID, leadID, JourneyLimit)
	if err != nil {
		return nil, apperr.Internal("failed to load journey", err)
	}
	return entries, nil
}

var _ StageIndexer = (*indexing.Maintainer)(nil)

// transitionID is <leadId>_<unixMicros>_<random>. The random part keeps two
// transitions of one lead in the same microsecond from sharing a key.
func transitionID(leadID uuid.UUID, changedAt time.Time) string {
	return fmt.Sprintf("%s_%d_%s", leadID, changedAt.UnixMicro(), uuid.NewString())
}
