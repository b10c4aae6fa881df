// Package query answers filtered lead listings from the lookup tables.
//
// Index rows can lag or duplicate the primary row, so every hydrated lead is
// checked against the requested predicates again and dropped when it no
// longer matches or no longer exists. The free-text predicate only filters
// the current page; leads further down are found on later pages.
package query

import (
	"context"
	"errors"
	"strings"

	"leadpipe_backend/internal/leads/repository"
	"leadpipe_backend/platform/apperr"
	"leadpipe_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
)

// Filter selects leads. Zero values are ignored.
type Filter struct {
	AssignedTo *uuid.UUID
	StageID    *uuid.UUID
	Status     string
	Q          string
}

// Params is one page request.
type Params struct {
	Filter
	Limit     int
	PageState repository.PageState
}

// Result is one page of hydrated leads. PageState is empty on the last page.
// Items may be shorter than the limit even when more pages follow.
type Result struct {
	Items     []repository.Lead
	PageState repository.PageState
}

// Config bounds paging and hydration fan-out.
type Config interface {
	GetLeadsDefaultPageSize() int
	GetLeadsMaxPageSize() int
	GetHydrationConcurrency() int
}

// Store is the read side the router drives.
type Store interface {
	repository.LeadReader
	repository.IndexReader
}

// Router plans and executes lead listings.
type Router struct {
	store       Store
	defaultSize int
	maxSize     int
	concurrency int
	log         *logger.Logger
}

func New(store Store, cfg Config, log *logger.Logger) *Router {
	concurrency := cfg.GetHydrationConcurrency()
	if concurrency < 1 {
		concurrency = 1
	}
	return &Router{
		store:       store,
		defaultSize: cfg.GetLeadsDefaultPageSize(),
		maxSize:     cfg.GetLeadsMaxPageSize(),
		concurrency: concurrency,
		log:         log,
	}
}

// Plan names the table that drives paging and the partition value in it.
type Plan struct {
	Table repository.IndexTable
	Value string
}

// Primary reports whether the plan scans the primary table.
func (p Plan) Primary() bool { return p.Table == "" }

// PlanFor picks the driving table: assignee, then stage, then status,
// falling back to the primary table when no indexed filter is present.
func PlanFor(f Filter) Plan {
	switch {
	case f.AssignedTo != nil:
		return Plan{Table: repository.IndexByAssigned, Value: f.AssignedTo.String()}
	case f.StageID != nil:
		return Plan{Table: repository.IndexByStage, Value: f.StageID.String()}
	case f.Status != "":
		return Plan{Table: repository.IndexByStatus, Value: f.Status}
	default:
		return Plan{}
	}
}

// List returns one page of leads matching params.
func (r *Router) List(ctx context.Context, organizationID uuid.UUID, params Params) (Result, error) {
	page := repository.PageRequest{Limit: r.pageSize(params.Limit), State: params.PageState}
	plan := PlanFor(params.Filter)

	var (
		ids repository.IDPage
		err error
	)
	if plan.Primary() {
		ids, err = r.store.ListIDs(ctx, organizationID, page)
	} else {
		ids, err = r.store.ListIndexIDs(ctx, plan.Table, organizationID, plan.Value, page)
	}
	if errors.Is(err, repository.ErrInvalidPageState) {
		return Result{}, apperr.Validation("invalid pageState for this query")
	}
	if err != nil {
		return Result{}, apperr.Internal("failed to list leads", err)
	}

	leads, err := r.hydrate(ctx, organizationID, ids.IDs)
	if err != nil {
		return Result{}, apperr.Internal("failed to load leads", err)
	}

	matches := newMatcher(params.Filter)
	items := make([]repository.Lead, 0, len(leads))
	seen := make(map[uuid.UUID]struct{}, len(leads))
	for _, lead := range leads {
		if _, dup := seen[lead.ID]; dup {
			continue
		}
		seen[lead.ID] = struct{}{}
		if matches(lead) {
			items = append(items, lead)
		}
	}

	if dropped := len(ids.IDs) - len(leads); dropped > 0 {
		r.log.WithContext(ctx).Debug("dropped missing leads during hydration", "table", string(plan.Table), "count", dropped)
	}

	return Result{Items: items, PageState: ids.Next}, nil
}

func (r *Router) pageSize(requested int) int {
	if requested <= 0 {
		return r.defaultSize
	}
	if requested > r.maxSize {
		return r.maxSize
	}
	return requested
}

// hydrate loads ids concurrently and keeps their order. Ids whose primary
// row is gone are skipped.
func (r *Router) hydrate(ctx context.Context, organizationID uuid.UUID, ids []uuid.UUID) ([]repository.Lead, error) {
	slots := make([]*repository.Lead, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			lead, err := r.store.GetByID(gctx, organizationID, id)
			if errors.Is(err, repository.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			slots[i] = &lead
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]repository.Lead, 0, len(ids))
	for _, lead := range slots {
		if lead != nil {
			out = append(out, *lead)
		}
	}
	return out, nil
}

// newMatcher checks a hydrated lead against every supplied predicate.
func newMatcher(f Filter) func(repository.Lead) bool {
	caser := cases.Fold()
	needle := ""
	if q := strings.TrimSpace(f.Q); q != "" {
		needle = caser.String(q)
	}

	return func(lead repository.Lead) bool {
		if f.AssignedTo != nil && (lead.AssignedTo == nil || *lead.AssignedTo != *f.AssignedTo) {
			return false
		}
		if f.StageID != nil && (lead.StageID == nil || *lead.StageID != *f.StageID) {
			return false
		}
		if f.Status != "" && (lead.Status == nil || *lead.Status != f.Status) {
			return false
		}
		if needle == "" {
			return true
		}
		for _, field := range []*string{lead.FirstName, lead.LastName, lead.Email} {
			if field != nil && strings.HasPrefix(caser.String(*field), needle) {
				return true
			}
		}
		return false
	}
}
