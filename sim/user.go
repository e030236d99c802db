package sim

// User identifies a tenant of the inference service. Identity is the
// fairness key every scheduler's per-user counters are keyed by.
type User struct {
	ID       string
	Priority float64 // positive weight, default 1.0
}

// NewUser creates a User with the default priority of 1.0.
func NewUser(id string) *User {
	return &User{ID: id, Priority: 1.0}
}
