package rbac

// HasPermission reports whether the identity's role grants the exact
// (action, subject) pair. There are no wildcard or hierarchy rules: a
// grant matches only when both the action and the subject are equal
// after normalisation.
//
// A nil identity, a missing role, or an empty permission set all yield
// false. HasPermission never fails and touches no shared state, so it is
// safe to call from templates and guards alike, concurrently.
func HasPermission(identity *Identity, action, subject string) bool {
	if identity == nil || identity.Role == nil {
		return false
	}
	action = normalize(action)
	subject = normalize(subject)
	if action == "" || subject == "" {
		return false
	}
	for _, p := range identity.Role.Permissions {
		if p.Action == action && p.Subject == subject {
			return true
		}
	}
	return false
}
