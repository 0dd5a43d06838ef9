package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates search cannot be served.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status  Status
	Checks  map[string]CheckResult
	Records int
}

// Service coordinates health checks.
type Service struct {
	history DBPinger
	index   IndexSource
}

// New creates a Service. history can be nil.
func New(index IndexSource, history DBPinger) *Service {
	return &Service{index: index, history: history}
}

// Check runs health checks against all components.
// A broken index makes the service unhealthy; a failing history store only degrades it.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	status := Healthy

	records := 0
	snap := s.index.Current()
	if snap == nil || snap.Index == nil || snap.Index.Size() != snap.Len() {
		checks["index"] = CheckError
		status = Unhealthy
	} else {
		checks["index"] = CheckOK
		records = snap.Len()
	}

	if s.history != nil {
		if err := s.history.Ping(ctx); err != nil {
			checks["history"] = CheckError
			if status == Healthy {
				status = Degraded
			}
		} else {
			checks["history"] = CheckOK
		}
	}

	return Report{Status: status, Checks: checks, Records: records}
}
