package domain

// Requirement is the access level an operation demands.
type Requirement string

const (
	RequirePublic        Requirement = "public"
	RequireAuthenticated Requirement = "authenticated"
	// RequireOwner demands an authenticated identity whose id equals the target owner id.
	RequireOwner Requirement = "owner"
)

// DenyReason explains a denied decision.
type DenyReason string

const (
	ReasonNone DenyReason = ""
	// ReasonUnauthorized means no identity was resolved (HTTP 401).
	ReasonUnauthorized DenyReason = "unauthorized"
	// ReasonForbidden means an identity was resolved but may not act on the target (HTTP 403).
	ReasonForbidden DenyReason = "forbidden"
)

// Input is what a policy decision is made from.
type Input struct {
	Requirement Requirement
	// IdentityID is empty when the request carries no verified identity.
	IdentityID string
	// TargetID is the owner id of the resource for RequireOwner.
	TargetID string
}

// Decision is derived per request and never persisted.
type Decision struct {
	Allow  bool
	Reason DenyReason
}

// Allowed returns an allowing decision.
func Allowed() Decision { return Decision{Allow: true} }

// Denied returns a denying decision with reason.
func Denied(reason DenyReason) Decision { return Decision{Reason: reason} }

// Operation names an API operation for authorization purposes.
type Operation string

const (
	OpRegister      Operation = "auth.register"
	OpLogin         Operation = "auth.login"
	OpProfileList   Operation = "profile.list"
	OpProfileGet    Operation = "profile.get"
	OpProfileMe     Operation = "profile.me"
	OpProfileOwn    Operation = "profile.get_own"
	OpProfileUpdate Operation = "profile.update"
	OpProfileDelete Operation = "profile.delete"
	OpServiceList   Operation = "service.list"
	OpServiceGet    Operation = "service.get"
	OpServiceCreate Operation = "service.create"
	OpServiceUpdate Operation = "service.update"
	OpServiceDelete Operation = "service.delete"
)

// Reads are public and mutations need any authenticated identity; only reading your own
// profile checks ownership.
var requirements = map[Operation]Requirement{
	OpRegister:      RequirePublic,
	OpLogin:         RequirePublic,
	OpProfileList:   RequirePublic,
	OpProfileGet:    RequirePublic,
	OpProfileMe:     RequireOwner,
	OpProfileOwn:    RequireOwner,
	OpProfileUpdate: RequireAuthenticated,
	OpProfileDelete: RequireAuthenticated,
	OpServiceList:   RequirePublic,
	OpServiceGet:    RequirePublic,
	OpServiceCreate: RequireAuthenticated,
	OpServiceUpdate: RequireAuthenticated,
	OpServiceDelete: RequireAuthenticated,
}

// RequirementFor returns the access level of op. Unknown operations require authentication.
func RequirementFor(op Operation) Requirement {
	if r, ok := requirements[op]; ok {
		return r
	}
	return RequireAuthenticated
}
