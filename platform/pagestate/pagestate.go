// Package pagestate encodes opaque keyset continuation tokens. A token is
// bound to the table and partition it was produced for, so a token carried
// over to another filter is rejected instead of silently skipping rows.
package pagestate

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrInvalid is returned for malformed tokens and for tokens produced by a
// different table or partition.
var ErrInvalid = errors.New("invalid page state")

// Position is the clustering key of the last row of a page.
type Position struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

type payload struct {
	Table     string    `json:"t"`
	Partition string    `json:"p"`
	CreatedAt int64     `json:"c,omitempty"`
	ID        uuid.UUID `json:"i"`
}

// Partition joins an organization and an optional partition value.
func Partition(organizationID uuid.UUID, value string) string {
	if value == "" {
		return organizationID.String()
	}
	return organizationID.String() + "/" + value
}

// Encode returns the token for the page that starts after pos.
func Encode(table, partition string, pos Position) string {
	p := payload{Table: table, Partition: partition, ID: pos.ID}
	if !pos.CreatedAt.IsZero() {
		p.CreatedAt = pos.CreatedAt.UnixMicro()
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

// Decode returns the position after which the next page starts. An empty
// token means "from the beginning" and yields ok=false.
func Decode(state, table, partition string) (pos Position, ok bool, err error) {
	if state == "" {
		return Position{}, false, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(state)
	if err != nil {
		return Position{}, false, ErrInvalid
	}
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Position{}, false, ErrInvalid
	}
	if p.Table != table || p.Partition != partition || p.ID == uuid.Nil {
		return Position{}, false, ErrInvalid
	}

	pos.ID = p.ID
	if p.CreatedAt != 0 {
		pos.CreatedAt = time.UnixMicro(p.CreatedAt).UTC()
	}
	return pos, true, nil
}
