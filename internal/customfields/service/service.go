// Package service validates custom field definitions and the values stored
// against leads.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"leadpipe_backend/internal/customfields/repository"
	"leadpipe_backend/internal/customfields/transport"
	"leadpipe_backend/platform/apperr"
	"leadpipe_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	EntityLead = "lead"

	TypeText     = "text"
	TypeNumber   = "number"
	TypeDate     = "date"
	TypeDropdown = "dropdown"
	TypeCheckbox = "checkbox"
)

const msgDefinitionNotFound = "custom field definition not found"

// LeadChecker reports whether a lead exists in an organization.
type LeadChecker interface {
	Exists(ctx context.Context, organizationID, leadID uuid.UUID) (bool, error)
}

type Service struct {
	store repository.Store
	leads LeadChecker
	log   *logger.Logger
	now   func() time.Time
}

func New(store repository.Store, leads LeadChecker, log *logger.Logger) *Service {
	return &Service{
		store: store,
		leads: leads,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) CreateDefinition(ctx context.Context, organizationID uuid.UUID, req transport.CreateDefinitionRequest) (transport.DefinitionResponse, error) {
	options := cleanOptions(req.Options)
	if err := checkOptions(req.Type, options); err != nil {
		return transport.DefinitionResponse{}, err
	}

	now := s.now().Truncate(time.Microsecond)
	def := repository.Definition{
		ID:             uuid.New(),
		OrganizationID: organizationID,
		EntityType:     req.EntityType,
		Name:           strings.TrimSpace(req.Name),
		Type:           req.Type,
		IsRequired:     req.IsRequired,
		Options:        options,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.CreateDefinition(ctx, def); err != nil {
		return transport.DefinitionResponse{}, apperr.Internal("failed to create custom field", err)
	}
	return toResponse(def), nil
}

func (s *Service) ListDefinitions(ctx context.Context, organizationID uuid.UUID, entityType string) (transport.DefinitionListResponse, error) {
	if entityType == "" {
		entityType = EntityLead
	}
	defs, err := s.store.ListDefinitions(ctx, organizationID, entityType)
	if err != nil {
		return transport.DefinitionListResponse{}, apperr.Internal("failed to list custom fields", err)
	}
	items := make([]transport.DefinitionResponse, 0, len(defs))
	for _, d := range defs {
		items = append(items, toResponse(d))
	}
	return transport.DefinitionListResponse{Items: items}, nil
}

// UpdateDefinition patches a definition. The resulting type and options
// must still be consistent, so a dropdown never ends up without options.
func (s *Service) UpdateDefinition(ctx context.Context, organizationID, id uuid.UUID, req transport.UpdateDefinitionRequest) (transport.DefinitionResponse, error) {
	current, err := s.store.GetDefinition(ctx, organizationID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.DefinitionResponse{}, apperr.NotFound(msgDefinitionNotFound)
	}
	if err != nil {
		return transport.DefinitionResponse{}, apperr.Internal("failed to load custom field", err)
	}

	params := repository.UpdateParams{
		Type:       req.Type,
		IsRequired: req.IsRequired,
		UpdatedAt:  s.now().Truncate(time.Microsecond),
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		params.Name = &name
	}

	effectiveType, effectiveOptions := current.Type, current.Options
	if req.Type != nil {
		effectiveType = *req.Type
	}
	if req.Options != nil {
		options := cleanOptions(*req.Options)
		params.Options = &options
		effectiveOptions = options
	}
	if err := checkOptions(effectiveType, effectiveOptions); err != nil {
		return transport.DefinitionResponse{}, err
	}

	updated, err := s.store.UpdateDefinition(ctx, organizationID, id, params)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.DefinitionResponse{}, apperr.NotFound(msgDefinitionNotFound)
	}
	if err != nil {
		return transport.DefinitionResponse{}, apperr.Internal("failed to update custom field", err)
	}
	return toResponse(updated), nil
}

func (s *Service) DeleteDefinition(ctx context.Context, organizationID, id uuid.UUID) error {
	if err := s.store.DeleteDefinition(ctx, organizationID, id); err != nil {
		return apperr.Internal("failed to delete custom field", err)
	}
	return nil
}

// PutLeadValues validates values against the organization's lead
// definitions and writes each one. Keys are definition ids.
func (s *Service) PutLeadValues(ctx context.Context, organizationID, leadID uuid.UUID, req transport.ValuesRequest) error {
	if err := s.requireLead(ctx, organizationID, leadID); err != nil {
		return err
	}

	defs, err := s.store.ListDefinitions(ctx, organizationID, EntityLead)
	if err != nil {
		return apperr.Internal("failed to load custom fields", err)
	}
	byID := make(map[uuid.UUID]repository.Definition, len(defs))
	for _, d := range defs {
		byID[d.ID] = d
	}

	values := make(map[uuid.UUID]json.RawMessage, len(req))
	for key, raw := range req {
		id, err := uuid.Parse(key)
		if err != nil {
			return apperr.Validation(fmt.Sprintf("unknown custom field %q", key))
		}
		def, ok := byID[id]
		if !ok {
			return apperr.Validation(fmt.Sprintf("unknown custom field %q", key))
		}
		if err := CheckValue(def, raw); err != nil {
			return err
		}
		values[id] = raw
	}
	for _, def := range defs {
		if !def.IsRequired {
			continue
		}
		if raw, ok := values[def.ID]; !ok || isNull(raw) {
			return apperr.Validation("missing required field: " + def.Name)
		}
	}

	updatedAt := s.now().Truncate(time.Microsecond)
	for id, raw := range values {
		if err := s.store.UpsertValue(ctx, organizationID, leadID, id, raw, updatedAt); err != nil {
			return apperr.Internal("failed to save custom field value", err)
		}
	}
	return nil
}

func (s *Service) GetLeadValues(ctx context.Context, organizationID, leadID uuid.UUID) (transport.ValuesResponse, error) {
	if err := s.requireLead(ctx, organizationID, leadID); err != nil {
		return transport.ValuesResponse{}, err
	}
	values, err := s.store.ListValues(ctx, organizationID, leadID)
	if err != nil {
		return transport.ValuesResponse{}, apperr.Internal("failed to load custom field values", err)
	}
	out := make(map[string]json.RawMessage, len(values))
	for id, raw := range values {
		out[id.String()] = raw
	}
	return transport.ValuesResponse{Values: out}, nil
}

// CheckValue validates one raw JSON value against its definition. Null is
// accepted here; required fields are checked separately.
func CheckValue(def repository.Definition, raw json.RawMessage) error {
	if isNull(raw) {
		return nil
	}
	invalid := func(what string) error {
		return apperr.Validation(fmt.Sprintf("field %s must be %s", def.Name, what))
	}

	switch def.Type {
	case TypeText:
		var v string
		if json.Unmarshal(raw, &v) != nil {
			return invalid("a string")
		}
	case TypeNumber:
		var v float64
		if json.Unmarshal(raw, &v) != nil {
			return invalid("a number")
		}
	case TypeCheckbox:
		var v bool
		if json.Unmarshal(raw, &v) != nil {
			return invalid("a boolean")
		}
	case TypeDate:
		var v string
		if json.Unmarshal(raw, &v) != nil || !isDate(v) {
			return invalid("an ISO date")
		}
	case TypeDropdown:
		var v string
		if json.Unmarshal(raw, &v) != nil || !slices.Contains(def.Options, v) {
			return invalid("one of " + strings.Join(def.Options, ", "))
		}
	default:
		return apperr.Validation("unsupported field type for " + def.Name)
	}
	return nil
}

func (s *Service) requireLead(ctx context.Context, organizationID, leadID uuid.UUID) error {
	exists, err := s.leads.Exists(ctx, organizationID, leadID)
	if err != nil {
		return err
	}
	if !exists {
		return apperr.NotFound("lead not found")
	}
	return nil
}

func checkOptions(fieldType string, options []string) error {
	if fieldType == TypeDropdown && len(options) == 0 {
		return apperr.Validation("dropdown field requires non-empty options")
	}
	return nil
}

func cleanOptions(options []string) []string {
	out := make([]string, 0, len(options))
	for _, o := range options {
		o = strings.TrimSpace(o)
		if o != "" && !slices.Contains(out, o) {
			out = append(out, o)
		}
	}
	return out
}

func isDate(v string) bool {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if _, err := time.Parse(layout, v); err == nil {
			return true
		}
	}
	return false
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func toResponse(d repository.Definition) transport.DefinitionResponse {
	options := d.Options
	if options == nil {
		options = []string{}
	}
	return transport.DefinitionResponse{
		ID:             d.ID,
		OrganizationID: d.OrganizationID,
		EntityType:     d.EntityType,
		Name:           d.Name,
		Type:           d.Type,
		IsRequired:     d.IsRequired,
		Options:        options,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}
