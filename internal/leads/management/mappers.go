package management

import (
	"leadpipe_backend/internal/leads/repository"
	"leadpipe_backend/internal/leads/transport"
)

// ToLeadResponse converts a repository lead to its API shape.
func ToLeadResponse(lead repository.Lead) transport.LeadResponse {
	return transport.LeadResponse{
		ID:             lead.ID,
		OrganizationID: lead.OrganizationID,
		FirstName:      lead.FirstName,
		LastName:       lead.LastName,
		Email:          lead.Email,
		Phone:          lead.Phone,
		Company:        lead.Company,
		Title:          lead.Title,
		Source:         lead.Source,
		StageID:        lead.StageID,
		Status:         lead.Status,
		AssignedTo:     lead.AssignedTo,
		OwnerID:        lead.OwnerID,
		CreatedAt:      lead.CreatedAt,
		UpdatedAt:      lead.UpdatedAt,
	}
}

func toJourneyResponse(entries []repository.JourneyEntry) transport.JourneyResponse {
	items := make([]transport.JourneyEntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, transport.JourneyEntryResponse{
			TransitionID: e.TransitionID,
			LeadID:       e.LeadID,
			FromStageID:  e.FromStageID,
			ToStageID:    e.ToStageID,
			ChangedBy:    e.ChangedBy,
			Notes:        e.Notes,
			ChangedAt:    e.ChangedAt,
		})
	}
	return transport.JourneyResponse{Items: items}
}
