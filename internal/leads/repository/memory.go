package repository

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Operation names accepted by Memory.FailOn.
const (
	OpCreate        = "create"
	OpGetByID       = "get"
	OpUpdate        = "update"
	OpUpdateStage   = "update_stage"
	OpDelete        = "delete"
	OpInsertIndex   = "insert_index"
	OpDeleteIndex   = "delete_index"
	OpListIndex     = "list_index"
	OpAppendJourney = "append_journey"
)

type memIndexRow struct {
	createdAt time.Time
	id        uuid.UUID
}

// Memory is an in-process LeadsRepository with the same ordering and page
// state behaviour as the pgx store. Faults can be injected per operation,
// optionally narrowed to one index table, to exercise partial failures.
type Memory struct {
	mu      sync.Mutex
	leads   map[uuid.UUID]map[uuid.UUID]Lead
	index   map[string]map[memIndexRow]struct{}
	journey map[uuid.UUID]map[uuid.UUID][]JourneyEntry
	faults  map[string]error
	calls   map[string]int
}

func NewMemory() *Memory {
	return &Memory{
		leads:   make(map[uuid.UUID]map[uuid.UUID]Lead),
		index:   make(map[string]map[memIndexRow]struct{}),
		journey: make(map[uuid.UUID]map[uuid.UUID][]JourneyEntry),
		faults:  make(map[string]error),
		calls:   make(map[string]int),
	}
}

// FailOn makes op return err until cleared with a nil err. For index
// operations, op may be suffixed with ":"+table to fail a single table.
func (m *Memory) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.faults, op)
		return
	}
	m.faults[op] = err
}

// Calls returns how many times op was attempted, including failed attempts.
func (m *Memory) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *Memory) hit(op string, table IndexTable) error {
	m.calls[op]++
	if table != "" {
		m.calls[op+":"+string(table)]++
		if err := m.faults[op+":"+string(table)]; err != nil {
			return err
		}
	}
	return m.faults[op]
}

func indexPartition(table IndexTable, organizationID uuid.UUID, value string) string {
	return string(table) + "|" + partitionKey(organizationID, value)
}

func (m *Memory) Create(_ context.Context, lead Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit(OpCreate, ""); err != nil {
		return err
	}
	org := m.leads[lead.OrganizationID]
	if org == nil {
		org = make(map[uuid.UUID]Lead)
		m.leads[lead.OrganizationID] = org
	}
	org[lead.ID] = lead
	return nil
}

func (m *Memory) GetByID(_ context.Context, organizationID, id uuid.UUID) (Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit(OpGetByID, ""); err != nil {
		return Lead{}, err
	}
	lead, ok := m.leads[organizationID][id]
	if !ok {
		return Lead{}, ErrNotFound
	}
	return lead, nil
}

func (m *Memory) Update(_ context.Context, organizationID, id uuid.UUID, params UpdateLeadParams) (Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit(OpUpdate, ""); err != nil {
		return Lead{}, err
	}
	lead, ok := m.leads[organizationID][id]
	if !ok {
		return Lead{}, ErrNotFound
	}
	if params.IsEmpty() {
		return lead, nil
	}

	setText := func(dst **string, src *string) {
		if src != nil {
			*dst = nullIfEmpty(src)
		}
	}
	setText(&lead.FirstName, params.FirstName)
	setText(&lead.LastName, params.LastName)
	setText(&lead.Email, params.Email)
	setText(&lead.Phone, params.Phone)
	setText(&lead.Company, params.Company)
	setText(&lead.Title, params.Title)
	setText(&lead.Source, params.Source)
	if params.StatusSet {
		lead.Status = nullIfEmpty(params.Status)
	}
	if params.AssignedToSet {
		lead.AssignedTo = params.AssignedTo
	}
	if params.OwnerIDSet {
		lead.OwnerID = params.OwnerID
	}
	lead.UpdatedAt = params.UpdatedAt

	m.leads[organizationID][id] = lead
	return lead, nil
}

func (m *Memory) UpdateStage(_ context.Context, organizationID, id, stageID uuid.UUID) (Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit(OpUpdateStage, ""); err != nil {
		return Lead{}, err
	}
	lead, ok := m.leads[organizationID][id]
	if !ok {
		return Lead{}, ErrNotFound
	}
	lead.StageID = &stageID
	lead.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
	m.leads[organizationID][id] = lead
	return lead, nil
}

func (m *Memory) Delete(_ context.Context, organizationID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit(OpDelete, ""); err != nil {
		return err
	}
	delete(m.leads[organizationID], id)
	return nil
}

func (m *Memory) ListIDs(_ context.Context, organizationID uuid.UUID, page PageRequest) (IDPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	partition := partitionKey(organizationID, "")
	pos, hasPos, err := decodePageState(page.State, primaryTable, partition)
	if err != nil {
		return IDPage{}, err
	}

	ids := make([]uuid.UUID, 0, len(m.leads[organizationID]))
	for id := range m.leads[organizationID] {
		ids = append(ids, id)
	}
	// Postgres orders uuid columns bytewise.
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })

	positions := make([]position, 0, page.Limit+1)
	for _, id := range ids {
		if hasPos && bytes.Compare(id[:], pos.id[:]) <= 0 {
			continue
		}
		positions = append(positions, position{id: id})
		if len(positions) > page.Limit {
			break
		}
	}
	return buildPage(positions, page.Limit, primaryTable, partition), nil
}

func (m *Memory) ExistsInStage(_ context.Context, organizationID, stageID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, lead := range m.leads[organizationID] {
		if lead.StageID != nil && *lead.StageID == stageID {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) InsertIndexRow(_ context.Context, key IndexKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := validTable(key.Table); err != nil {
		return err
	}
	if err := m.hit(OpInsertIndex, key.Table); err != nil {
		return err
	}
	p := indexPartition(key.Table, key.OrganizationID, key.Value)
	rows := m.index[p]
	if rows == nil {
		rows = make(map[memIndexRow]struct{})
		m.index[p] = rows
	}
	rows[memIndexRow{createdAt: key.CreatedAt.UTC(), id: key.LeadID}] = struct{}{}
	return nil
}

func (m *Memory) DeleteIndexRow(_ context.Context, key IndexKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := validTable(key.Table); err != nil {
		return err
	}
	if err := m.hit(OpDeleteIndex, key.Table); err != nil {
		return err
	}
	delete(m.index[indexPartition(key.Table, key.OrganizationID, key.Value)], memIndexRow{createdAt: key.CreatedAt.UTC(), id: key.LeadID})
	return nil
}

func (m *Memory) ListIndexIDs(_ context.Context, table IndexTable, organizationID uuid.UUID, value string, page PageRequest) (IDPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := validTable(table); err != nil {
		return IDPage{}, err
	}
	if err := m.hit(OpListIndex, table); err != nil {
		return IDPage{}, err
	}

	partition := partitionKey(organizationID, value)
	pos, hasPos, err := decodePageState(page.State, string(table), partition)
	if err != nil {
		return IDPage{}, err
	}

	rows := make([]memIndexRow, 0, len(m.index[indexPartition(table, organizationID, value)]))
	for row := range m.index[indexPartition(table, organizationID, value)] {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rowAfter(rows[i], rows[j]) })

	positions := make([]position, 0, page.Limit+1)
	for _, row := range rows {
		if hasPos && !rowAfter(memIndexRow{createdAt: pos.createdAt, id: pos.id}, row) {
			continue
		}
		positions = append(positions, position{createdAt: row.createdAt, id: row.id})
		if len(positions) > page.Limit {
			break
		}
	}
	return buildPage(positions, page.Limit, string(table), partition), nil
}

// rowAfter reports whether b sorts after a in (created_at DESC, id DESC) order.
func rowAfter(a, b memIndexRow) bool {
	if !a.createdAt.Equal(b.createdAt) {
		return b.createdAt.Before(a.createdAt)
	}
	return bytes.Compare(b.id[:], a.id[:]) < 0
}

// IndexedIDs lists every lead id in one index partition, newest first.
func (m *Memory) IndexedIDs(table IndexTable, organizationID uuid.UUID, value string) []uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := make([]memIndexRow, 0)
	for row := range m.index[indexPartition(table, organizationID, value)] {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rowAfter(rows[i], rows[j]) })
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.id)
	}
	return ids
}

// IndexRowCount counts the index rows of a lead across all partitions of table.
func (m *Memory) IndexRowCount(table IndexTable, leadID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	prefix := string(table) + "|"
	for p, rows := range m.index {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		for row := range rows {
			if row.id == leadID {
				count++
			}
		}
	}
	return count
}

func (m *Memory) AppendJourney(_ context.Context, entry JourneyEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit(OpAppendJourney, ""); err != nil {
		return err
	}
	org := m.journey[entry.OrganizationID]
	if org == nil {
		org = make(map[uuid.UUID][]JourneyEntry)
		m.journey[entry.OrganizationID] = org
	}
	for _, existing := range org[entry.LeadID] {
		if existing.TransitionID == entry.TransitionID {
			return ErrDuplicateTransition
		}
	}
	org[entry.LeadID] = append(org[entry.LeadID], entry)
	return nil
}

func (m *Memory) ListJourney(_ context.Context, organizationID, leadID uuid.UUID, limit int) ([]JourneyEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := append([]JourneyEntry(nil), m.journey[organizationID][leadID]...)
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].ChangedAt.Equal(entries[j].ChangedAt) {
			return entries[i].ChangedAt.After(entries[j].ChangedAt)
		}
		return entries[i].TransitionID > entries[j].TransitionID
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
