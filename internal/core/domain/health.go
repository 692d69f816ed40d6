package domain

// HealthState summarises backend availability.
type HealthState string

const (
	// HealthHealthy means all backend services report healthy.
	HealthHealthy HealthState = "healthy"

	// HealthDegraded means at least one backend service is impaired.
	HealthDegraded HealthState = "degraded"

	// HealthUnreachable means the health probe itself failed.
	HealthUnreachable HealthState = "unreachable"

	// HealthUnknown means no probe has completed yet, or the backend
	// reported a state outside the known vocabulary.
	HealthUnknown HealthState = "unknown"
)

// HealthStatus is the result of a health probe. Purely informational:
// it never affects query submission.
type HealthStatus struct {
	// State is the summarised availability.
	State HealthState

	// Services maps backend service names to their reported status.
	Services map[string]string

	// Version is the backend version string, when reported.
	Version string
}
