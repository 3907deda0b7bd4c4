package giveaway

// Requirements restricts who may enter a giveaway.
type Requirements struct {
	// RoleID, when set, must be held by the entrant.
	RoleID string `json:"role_id,omitempty"`
}

// Satisfied reports whether a member holding roles may enter.
func (r *Requirements) Satisfied(roles []string) bool {
	if r == nil || r.RoleID == "" {
		return true
	}
	for _, role := range roles {
		if role == r.RoleID {
			return true
		}
	}
	return false
}
