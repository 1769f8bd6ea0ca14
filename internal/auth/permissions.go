package auth

import (
	"transferdesk/internal/tracking"
	dErrors "transferdesk/pkg/domainerrors"
)

// transitionGrant says whether a role may drive a record to a target status
// and whether doing so needs a freshly verified credential.
type transitionGrant struct {
	allowed            bool
	requiresCredential bool
}

// transitionPermissions is the fixed capability table keyed by (role,
// target status). read_only has no entries; terminal targets require a
// credential check regardless of role, owner included.
var transitionPermissions = buildTransitionPermissions()

func buildTransitionPermissions() map[Role]map[tracking.Status]transitionGrant {
	targets := []tracking.Status{
		tracking.StatusSubmitted,
		tracking.StatusPendingReview,
		tracking.StatusPendingClient,
		tracking.StatusPendingDelivering,
		tracking.StatusPendingReceiving,
		tracking.StatusCompleted,
		tracking.StatusRejected,
		tracking.StatusCancelled,
	}

	table := make(map[Role]map[tracking.Status]transitionGrant)
	for _, role := range []Role{RoleFull, RoleOwner} {
		grants := make(map[tracking.Status]transitionGrant, len(targets))
		for _, target := range targets {
			grants[target] = transitionGrant{
				allowed:            true,
				requiresCredential: target.Terminal(),
			}
		}
		table[role] = grants
	}
	return table
}

// AuthorizeTransition checks the actor against the permission table for the
// given target status.
func AuthorizeTransition(actor Actor, target tracking.Status) error {
	grant, ok := transitionPermissions[actor.Role][target]
	if !ok || !grant.allowed {
		return dErrors.New(dErrors.CodeUnauthorized, "role lacks permission for this transition")
	}
	if grant.requiresCredential && !actor.CredentialVerified {
		return dErrors.New(dErrors.CodeCredentialRequired, "terminal transitions require a freshly verified credential")
	}
	return nil
}

// CanWrite reports whether the actor's role permits creating records.
func CanWrite(actor Actor) bool {
	return actor.Role == RoleFull || actor.Role == RoleOwner
}
