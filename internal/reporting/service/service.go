// Package service turns reporting partitions into report responses.
// Counts are approximate under concurrent writes; nothing here locks.
package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"leadpipe_backend/internal/reporting/repository"
	"leadpipe_backend/internal/reporting/transport"
	"leadpipe_backend/platform/apperr"
	"leadpipe_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	dateLayout    = "2006-01-02"
	maxFunnelDays = 366
)

// Store is the read side of the reporting partitions.
type Store interface {
	CountByStage(ctx context.Context, org, stageID uuid.UUID) (int64, error)
	CountByOwner(ctx context.Context, org, ownerID uuid.UUID) (int64, error)
	OwnerIDs(ctx context.Context, org uuid.UUID) ([]uuid.UUID, error)
	JourneysInRange(ctx context.Context, org uuid.UUID, from, to time.Time) ([]repository.DayBucketRow, error)
}

// StageLister lists an organization's stages in pipeline order.
type StageLister interface {
	StageIDs(ctx context.Context, org uuid.UUID) ([]uuid.UUID, error)
}

// Service builds reports.
type Service struct {
	store  Store
	stages StageLister
	log    *logger.Logger
}

// New creates a reporting service.
func New(store Store, stages StageLister, log *logger.Logger) *Service {
	return &Service{store: store, stages: stages, log: log}
}

// LeadsByStage counts each requested stage partition, sorted by count
// descending. Without stage ids every stage of the organization is counted.
func (s *Service) LeadsByStage(ctx context.Context, org uuid.UUID, req transport.LeadsByStageRequest) (transport.StageCountResponse, error) {
	ids, err := s.stageIDs(ctx, org, req.StageIDs)
	if err != nil {
		return transport.StageCountResponse{}, err
	}

	items := make([]transport.StageCount, 0, len(ids))
	for _, id := range ids {
		n, err := s.store.CountByStage(ctx, org, id)
		if err != nil {
			return transport.StageCountResponse{}, apperr.Internal("failed to count leads by stage", err)
		}
		items = append(items, transport.StageCount{StageID: id, Count: n})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Count > items[j].Count })
	return transport.StageCountResponse{Items: items}, nil
}

// LeadsByOwner counts every owner partition that still holds rows, sorted
// by count descending, then owner id.
func (s *Service) LeadsByOwner(ctx context.Context, org uuid.UUID) (transport.OwnerCountResponse, error) {
	owners, err := s.store.OwnerIDs(ctx, org)
	if err != nil {
		return transport.OwnerCountResponse{}, apperr.Internal("failed to list owners", err)
	}

	items := make([]transport.OwnerCount, 0, len(owners))
	for _, owner := range owners {
		n, err := s.store.CountByOwner(ctx, org, owner)
		if err != nil {
			return transport.OwnerCountResponse{}, apperr.Internal("failed to count leads by owner", err)
		}
		if n == 0 {
			continue
		}
		items = append(items, transport.OwnerCount{OwnerID: owner, Count: n})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count != items[j].Count {
			return items[i].Count > items[j].Count
		}
		return items[i].OwnerID.String() < items[j].OwnerID.String()
	})
	return transport.OwnerCountResponse{Items: items}, nil
}

// Funnel counts transitions per target stage over the inclusive day range.
// Grouping happens here, in memory, over every day bucket row.
func (s *Service) Funnel(ctx context.Context, org uuid.UUID, req transport.FunnelRequest) (transport.StageCountResponse, error) {
	from, to, err := parseRange(req.From, req.To)
	if err != nil {
		return transport.StageCountResponse{}, err
	}

	rows, err := s.store.JourneysInRange(ctx, org, from, to)
	if err != nil {
		return transport.StageCountResponse{}, apperr.Internal("failed to read transitions", err)
	}

	counts := make(map[uuid.UUID]int64)
	for _, row := range rows {
		counts[row.ToStageID]++
	}
	items := make([]transport.StageCount, 0, len(counts))
	for stage, n := range counts {
		items = append(items, transport.StageCount{StageID: stage, Count: n})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count != items[j].Count {
			return items[i].Count > items[j].Count
		}
		return items[i].StageID.String() < items[j].StageID.String()
	})
	return transport.StageCountResponse{Items: items}, nil
}

func (s *Service) stageIDs(ctx context.Context, org uuid.UUID, raw string) ([]uuid.UUID, error) {
	if strings.TrimSpace(raw) == "" {
		ids, err := s.stages.StageIDs(ctx, org)
		if err != nil {
			return nil, apperr.Internal("failed to list stages", err)
		}
		return ids, nil
	}

	seen := make(map[uuid.UUID]struct{})
	ids := make([]uuid.UUID, 0)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := uuid.Parse(part)
		if err != nil {
			return nil, apperr.Validation("stage_ids must be a comma separated list of uuids")
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseRange(rawFrom, rawTo string) (time.Time, time.Time, error) {
	if rawFrom == "" || rawTo == "" {
		return time.Time{}, time.Time{}, apperr.Validation("from and to are required")
	}
	from, err := time.Parse(dateLayout, rawFrom)
	if err != nil {
		return time.Time{}, time.Time{}, apperr.Validation("from must be YYYY-MM-DD")
	}
	to, err := time.Parse(dateLayout, rawTo)
	if err != nil {
		return time.Time{}, time.Time{}, apperr.Validation("to must be YYYY-MM-DD")
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, apperr.Validation("to must not be before from")
	}
	if days := int(to.Sub(from).Hours()/24) + 1; days > maxFunnelDays {
		return time.Time{}, time.Time{}, apperr.Validation("range must not exceed 366 days")
	}
	return from, to, nil
}
