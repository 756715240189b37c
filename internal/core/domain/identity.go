package domain

// Identity is the optional human identity attached to audit entries.
// It has no authentication semantics; local CRUD works without it.
type Identity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Zero reports whether no identity has been configured yet.
func (i Identity) Zero() bool {
	return i.Name == "" && i.Email == ""
}

// Operation modes, persisted in the settings store.
const (
	ModeProduction = "PRODUCTION"
	ModeSandbox    = "SANDBOX"
)
