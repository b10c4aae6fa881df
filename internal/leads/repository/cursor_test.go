package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestPageStateRoundTripsPosition(t *testing.T) {
	org := uuid.New()
	partition := partitionKey(org, "open")
	pos := position{createdAt: time.Date(2026, 3, 1, 10, 0, 0, 123000, time.UTC), id: uuid.New()}

	state := encodePageState(string(IndexByStatus), partition, pos)
	if state == "" {
		t.Fatal("expected non-empty page state")
	}

	got, ok, err := decodePageState(state, string(IndexByStatus), partition)
	if err != nil || !ok {
		t.Fatalf("decode: ok=%v err=%v", ok, err)
	}
	if got.id != pos.id || !got.createdAt.Equal(pos.createdAt) {
		t.Fatalf("expected %+v, got %+v", pos, got)
	}
}

func TestPageStateIsBoundToTableAndPartition(t *testing.T) {
	org := uuid.New()
	state := encodePageState(string(IndexByStatus), partitionKey(org, "open"), position{id: uuid.New()})

	cases := []struct {
		name      string
		table     string
		partition string
	}{
		{"other table", string(IndexByAssigned), partitionKey(org, "open")},
		{"other value", string(IndexByStatus), partitionKey(org, "won")},
		{"other org", string(IndexByStatus), partitionKey(uuid.New(), "open")},
		{"primary table", primaryTable, partitionKey(org, "")},
	}
	for _, tc := range cases {
		if _, _, err := decodePageState(state, tc.table, tc.partition); !errors.Is(err, ErrInvalidPageState) {
			t.Errorf("%s: expected ErrInvalidPageState, got %v", tc.name, err)
		}
	}

	if _, _, err := decodePageState("not base64!", primaryTable, partitionKey(org, "")); !errors.Is(err, ErrInvalidPageState) {
		t.Fatalf("expected ErrInvalidPageState for garbage, got %v", err)
	}
}

func TestEmptyPageStateStartsFromBeginning(t *testing.T) {
	_, ok, err := decodePageState("", primaryTable, "x")
	if err != nil || ok {
		t.Fatalf("expected start position, got ok=%v err=%v", ok, err)
	}
}
