package domain

// PrincipalKind tags the shape of a Principal.
type PrincipalKind int

const (
	// PrincipalNone is the zero value: no authenticated caller.
	PrincipalNone PrincipalKind = iota
	// PrincipalLight is built from verified token claims alone.
	PrincipalLight
	// PrincipalFull is backed by a user record loaded during the request.
	PrincipalFull
)

func (k PrincipalKind) String() string {
	switch k {
	case PrincipalLight:
		return "light"
	case PrincipalFull:
		return "full"
	default:
		return "none"
	}
}

// Principal is the authenticated caller of a single request. It is built once
// per request and never persisted.
type Principal struct {
	kind      PrincipalKind
	subjectID UserID
	login     string
	user      User
}

// LightPrincipal builds a principal from token claims without a store lookup.
func LightPrincipal(id UserID, login string) Principal {
	return Principal{kind: PrincipalLight, subjectID: id, login: login}
}

// FullPrincipal builds a principal backed by a freshly loaded user.
func FullPrincipal(u User) Principal {
	return Principal{kind: PrincipalFull, subjectID: u.ID, login: u.Login, user: u}
}

func (p Principal) Kind() PrincipalKind { return p.kind }

func (p Principal) SubjectID() UserID { return p.subjectID }

func (p Principal) Login() string { return p.login }

// IsAuthenticated reports whether p carries an identity.
func (p Principal) IsAuthenticated() bool { return p.kind != PrincipalNone }

// Full returns the backing user record. ok is false for light and empty principals.
func (p Principal) Full() (User, bool) {
	if p.kind != PrincipalFull {
		return User{}, false
	}
	return p.user, true
}
