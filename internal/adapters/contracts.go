package adapters

import (
	activitiesservice "leadpipe_backend/internal/activities/service"
	"leadpipe_backend/internal/audit"
	auditservice "leadpipe_backend/internal/audit/service"
	customfieldsservice "leadpipe_backend/internal/customfields/service"
	"leadpipe_backend/internal/leads/management"
	"leadpipe_backend/internal/leads/ports"
	leadsrepo "leadpipe_backend/internal/leads/repository"
	reportingrepo "leadpipe_backend/internal/reporting/repository"
	reportingservice "leadpipe_backend/internal/reporting/service"
	"leadpipe_backend/internal/scheduler"
	stagesservice "leadpipe_backend/internal/stages/service"
)

// Cross-module wiring done in cmd/ relies on these shapes lining up.
var (
	_ ports.Reporter                  = (*reportingrepo.Store)(nil)
	_ ports.StageReader               = (*stagesservice.Service)(nil)
	_ reportingservice.StageLister    = (*stagesservice.Service)(nil)
	_ stagesservice.LeadUsageChecker  = (*StageUsage)(nil)
	_ LeadStageIndex                  = (*leadsrepo.Repository)(nil)
	_ activitiesservice.LeadChecker   = (*management.Service)(nil)
	_ customfieldsservice.LeadChecker = (*management.Service)(nil)
	_ audit.Queue                     = (*scheduler.Client)(nil)
	_ scheduler.AuditRecorder         = (*auditservice.Service)(nil)
	_ scheduler.LeadRepairer          = (*management.Service)(nil)
)
