// Package guard decides, per navigation, whether a route may render. It is
// a pure function of the session snapshot, connectivity, and the route
// class; it never mutates session state.
package guard

import "github.com/Pery99/billpay/session"

// RouteClass classifies the navigation target.
type RouteClass int

const (
	// RoutePublic requires no authentication.
	RoutePublic RouteClass = iota
	// RouteProtected requires a valid token.
	RouteProtected
	// RouteAdmin requires a valid token and the admin role.
	RouteAdmin
)

// Action is what the caller should do with the navigation.
type Action int

const (
	// Allow renders the target route.
	Allow Action = iota
	// RedirectLogin sends the user to the login screen.
	RedirectLogin
	// RedirectHome sends the user away from a route they may not see.
	RedirectHome
	// ShowLoading renders a blocking loading indicator while the profile
	// fetch is in flight.
	ShowLoading
	// ShowError renders a retry screen instead of the target.
	ShowError
)

func (a Action) String() string {
	switch a {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect-login"
	case RedirectHome:
		return "redirect-home"
	case ShowLoading:
		return "show-loading"
	case ShowError:
		return "show-error"
	}
	return "unknown"
}

// Decision is the outcome of one guard evaluation. OfflineNotice asks the
// caller to overlay a disconnected notice with a retry affordance on top of
// whatever renders; it never forces logout.
type Decision struct {
	Action        Action
	OfflineNotice bool
	Reason        string
}

// Decide evaluates one navigation. Admin routes consult the cached role
// only until the authoritative profile has loaded; once it has, the cache
// is never trusted over it.
func Decide(snap session.Snapshot, online bool, route RouteClass) Decision {
	offline := !online

	if route == RoutePublic {
		return Decision{Action: Allow, OfflineNotice: offline}
	}

	if !snap.TokenPresent {
		return Decision{Action: RedirectLogin, Reason: "authentication required"}
	}

	// With a token but no connectivity, render what we can rather than
	// destroying a session the backend never rejected. Admin routes still
	// require the best locally known role.
	if offline {
		if route == RouteAdmin && !localAdminHint(snap) {
			return Decision{Action: RedirectHome, OfflineNotice: true, Reason: "admin role required"}
		}
		return Decision{Action: Allow, OfflineNotice: true}
	}

	profilePending := snap.State == session.StateProfileLoading || snap.NeedsProfile()

	if route == RouteAdmin {
		if snap.User != nil {
			// Authoritative profile loaded: the cached role no longer counts.
			if !snap.User.IsAdmin() {
				return Decision{Action: RedirectHome, Reason: "admin role required"}
			}
			return Decision{Action: Allow}
		}
		if profilePending {
			// Fast path: honor the cached hint until the profile loads,
			// then reconcile on the next evaluation.
			if snap.CachedRole != "admin" {
				return Decision{Action: RedirectHome, Reason: "admin role required"}
			}
			return Decision{Action: Allow}
		}
		// Fetch concluded without a profile; fail closed.
		return Decision{Action: RedirectHome, Reason: "admin role unverified"}
	}

	if profilePending {
		return Decision{Action: ShowLoading}
	}

	if snap.State == session.StateError && snap.ErrorKind != session.ErrorNetwork {
		return Decision{Action: ShowError, Reason: snap.LastError}
	}

	return Decision{Action: Allow}
}

// localAdminHint is the best admin evidence available without the backend:
// the loaded profile when present, the cached role otherwise.
func localAdminHint(snap session.Snapshot) bool {
	if snap.User != nil {
		return snap.User.IsAdmin()
	}
	return snap.CachedRole == "admin"
}
