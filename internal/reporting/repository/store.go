// Package repository keeps the reporting partitions in Redis. Stage and
// owner partitions are sets whose cardinality is the count; day buckets
// are lists with one JSON row per transition.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const dayLayout = "20060102"

// DayBucketRow is one transition recorded in a day bucket.
type DayBucketRow struct {
	ID        uuid.UUID `json:"id"`
	LeadID    uuid.UUID `json:"lead_id"`
	ToStageID uuid.UUID `json:"to_stage_id"`
	ChangedAt time.Time `json:"changed_at"`
}

// Store implements the reporting partitions on a go-redis client.
type Store struct {
	rdb redis.Cmdable
}

// New creates a reporting store.
func New(rdb redis.Cmdable) *Store {
	return &Store{rdb: rdb}
}

func stageKey(org, stage uuid.UUID) string {
	return fmt.Sprintf("rpt:stage:%s:%s", org, stage)
}

func ownerKey(org, owner uuid.UUID) string {
	return fmt.Sprintf("rpt:owner:%s:%s", org, owner)
}

func ownersKey(org uuid.UUID) string {
	return fmt.Sprintf("rpt:owners:%s", org)
}

func dayKey(org uuid.UUID, day time.Time) string {
	return fmt.Sprintf("rpt:day:%s:%s", org, day.UTC().Format(dayLayout))
}

// member is the clustering key of a reporting row.
func member(leadID uuid.UUID, createdAt time.Time) string {
	return strconv.FormatInt(createdAt.UnixMicro(), 10) + ":" + leadID.String()
}

func (s *Store) AddToStage(ctx context.Context, org, stageID, leadID uuid.UUID, createdAt time.Time) error {
	if err := s.rdb.SAdd(ctx, stageKey(org, stageID), member(leadID, createdAt)).Err(); err != nil {
		return fmt.Errorf("add stage report row: %w", err)
	}
	return nil
}

func (s *Store) RemoveFromStage(ctx context.Context, org, stageID, leadID uuid.UUID, createdAt time.Time) error {
	if err := s.rdb.SRem(ctx, stageKey(org, stageID), member(leadID, createdAt)).Err(); err != nil {
		return fmt.Errorf("remove stage report row: %w", err)
	}
	return nil
}

// AddToOwner inserts the owner row and remembers the owner id so the
// owner report can enumerate partitions.
func (s *Store) AddToOwner(ctx context.Context, org, ownerID, leadID uuid.UUID, createdAt time.Time) error {
	_, err := s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.SAdd(ctx, ownerKey(org, ownerID), member(leadID, createdAt))
		p.SAdd(ctx, ownersKey(org), ownerID.String())
		return nil
	})
	if err != nil {
		return fmt.Errorf("add owner report row: %w", err)
	}
	return nil
}

func (s *Store) RemoveFromOwner(ctx context.Context, org, ownerID, leadID uuid.UUID, createdAt time.Time) error {
	if err := s.rdb.SRem(ctx, ownerKey(org, ownerID), member(leadID, createdAt)).Err(); err != nil {
		return fmt.Errorf("remove owner report row: %w", err)
	}
	return nil
}

// RecordTransition appends a row to the bucket of the day the transition
// happened, in UTC.
func (s *Store) RecordTransition(ctx context.Context, org, leadID, toStageID uuid.UUID, changedAt time.Time) error {
	payload, err := json.Marshal(DayBucketRow{
		ID:        uuid.New(),
		LeadID:    leadID,
		ToStageID: toStageID,
		ChangedAt: changedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal day bucket row: %w", err)
	}
	if err := s.rdb.RPush(ctx, dayKey(org, changedAt), payload).Err(); err != nil {
		return fmt.Errorf("record transition: %w", err)
	}
	return nil
}

func (s *Store) CountByStage(ctx context.Context, org, stageID uuid.UUID) (int64, error) {
	n, err := s.rdb.SCard(ctx, stageKey(org, stageID)).Result()
	if err != nil {
		return 0, fmt.Errorf("count stage partition: %w", err)
	}
	return n, nil
}

func (s *Store) CountByOwner(ctx context.Context, org, ownerID uuid.UUID) (int64, error) {
	n, err := s.rdb.SCard(ctx, ownerKey(org, ownerID)).Result()
	if err != nil {
		return 0, fmt.Errorf("count owner partition: %w", err)
	}
	return n, nil
}

// OwnerIDs lists every owner that ever had a reporting row.
func (s *Store) OwnerIDs(ctx context.Context, org uuid.UUID) ([]uuid.UUID, error) {
	raw, err := s.rdb.SMembers(ctx, ownersKey(org)).Result()
	if err != nil {
		return nil, fmt.Errorf("list owners: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(raw))
	for _, value := range raw {
		id, err := uuid.Parse(value)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// JourneysInRange reads every day bucket in the inclusive [from, to] range.
// Rows come back in day order, then insertion order.
func (s *Store) JourneysInRange(ctx context.Context, org uuid.UUID, from, to time.Time) ([]DayBucketRow, error) {
	start := truncateDay(from)
	end := truncateDay(to)

	cmds, err := s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
			p.LRange(ctx, dayKey(org, day), 0, -1)
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("read day buckets: %w", err)
	}

	rows := make([]DayBucketRow, 0)
	for _, cmd := range cmds {
		values, err := cmd.(*redis.StringSliceCmd).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("read day bucket: %w", err)
		}
		for _, value := range values {
			var row DayBucketRow
			if err := json.Unmarshal([]byte(value), &row); err != nil {
				return nil, fmt.Errorf("decode day bucket row: %w", err)
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
