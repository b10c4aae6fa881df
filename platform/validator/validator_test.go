package validator

import (
	"testing"

	"leadpipe_backend/platform/apperr"
)

type transitionBody struct {
	ToStageID string `json:"to_stage_id" validate:"required,uuid"`
	Notes     string `json:"notes" validate:"max=10"`
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	err := Struct(transitionBody{ToStageID: "nope", Notes: "far too long for this"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	details, ok := err.(*apperr.Error).Details.([]FieldError)
	if !ok || len(details) != 2 {
		t.Fatalf("expected two field errors, got %#v", err.(*apperr.Error).Details)
	}
	if details[0].Field != "to_stage_id" || details[0].Rule != "uuid" {
		t.Fatalf("unexpected first detail %+v", details[0])
	}
	if details[1].Field != "notes" || details[1].Rule != "max" {
		t.Fatalf("unexpected second detail %+v", details[1])
	}
}

func TestStructAcceptsValidInput(t *testing.T) {
	if err := Struct(transitionBody{ToStageID: "5b8f8a52-7c1f-4b8e-9d3a-2f0a6f0c1e11"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
