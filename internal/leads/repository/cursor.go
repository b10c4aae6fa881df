package repository

import (
	"time"

	"leadpipe_backend/platform/pagestate"

	"github.com/google/uuid"
)

// ErrInvalidPageState is returned when a page state is malformed or was
// produced by a different table or partition than the one being read.
var ErrInvalidPageState = pagestate.ErrInvalid

// PageState is an opaque continuation token. Callers must hand it back
// unmodified.
type PageState string

const primaryTable = "leads"

type position struct {
	createdAt time.Time
	id        uuid.UUID
}

func partitionKey(organizationID uuid.UUID, value string) string {
	return pagestate.Partition(organizationID, value)
}

func encodePageState(table, partition string, pos position) PageState {
	return PageState(pagestate.Encode(table, partition, pagestate.Position{CreatedAt: pos.createdAt, ID: pos.id}))
}

func decodePageState(state PageState, table, partition string) (position, bool, error) {
	pos, ok, err := pagestate.Decode(string(state), table, partition)
	if err != nil || !ok {
		return position{}, ok, err
	}
	return position{createdAt: pos.CreatedAt, id: pos.ID}, true, nil
}
