package transport

import "github.com/google/uuid"

// LeadsByStageRequest is bound from the query string. stage_ids is a comma
// separated list; empty means every stage of the organization.
type LeadsByStageRequest struct {
	StageIDs string `form:"stage_ids"`
}

// FunnelRequest is bound from the query string. Dates are YYYY-MM-DD.
type FunnelRequest struct {
	From string `form:"from"`
	To   string `form:"to"`
}

type StageCount struct {
	StageID uuid.UUID `json:"stage_id"`
	Count   int64     `json:"count"`
}

type OwnerCount struct {
	OwnerID uuid.UUID `json:"owner_id"`
	Count   int64     `json:"count"`
}

type StageCountResponse struct {
	Items []StageCount `json:"items"`
}

type OwnerCountResponse struct {
	Items []OwnerCount `json:"items"`
}
