// Package health reports store readiness for the health endpoint.
package health

import "context"

// Status represents the aggregated health status.
type Status string

// Health statuses.
const (
	Healthy   Status = "ok"
	Unhealthy Status = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]string
}

// Service coordinates health checks.
type Service struct {
	db DBPinger
}

// New creates a health service.
func New(db DBPinger) *Service {
	return &Service{db: db}
}

// Check pings the store and aggregates the outcome.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]string)
	status := Healthy

	if err := s.db.Ping(ctx); err != nil {
		checks["database"] = err.Error()
		status = Unhealthy
	} else {
		checks["database"] = "ok"
	}

	return Report{Status: status, Checks: checks}
}
