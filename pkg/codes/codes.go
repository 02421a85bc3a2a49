// Package codes holds the closed table of terminate/error reasons sent to
// client sessions. New reasons are added here, never constructed at call
// sites.
package codes

// Reason is a stable machine code plus a human-readable message.
type Reason struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var (
	TerminatedBlocked    = Reason{"TERMINATED_BLOCKED", "this device has been blocked by an administrator"}
	TerminatedArchived   = Reason{"TERMINATED_ARCHIVED", "this device has been archived by an administrator"}
	TerminatedDeleted    = Reason{"TERMINATED_DELETED", "this device has been deleted"}
	TerminatedRekeyed    = Reason{"TERMINATED_REKEYED", "this device's credentials were rotated; reconnect to re-register"}
	TerminatedOrgDeleted = Reason{"TERMINATED_ORG_DELETED", "the owning organization no longer exists"}
	TerminatedInactive   = Reason{"TERMINATED_INACTIVE", "this device was marked inactive"}
	ClientBlocked        = Reason{"CLIENT_BLOCKED", "client is blocked and may not connect"}
	ClientNotApproved    = Reason{"CLIENT_NOT_APPROVED", "client has not been approved yet"}
	OrgNotFound          = Reason{"ORG_NOT_FOUND", "organization not found"}
	SiteNotFound         = Reason{"SITE_NOT_FOUND", "site not found"}
	ConfigInvalid        = Reason{"CONFIG_INVALID", "configuration request was malformed"}
)

// All lists every defined reason; used for validation and docs.
var All = []Reason{
	TerminatedBlocked,
	TerminatedArchived,
	TerminatedDeleted,
	TerminatedRekeyed,
	TerminatedOrgDeleted,
	TerminatedInactive,
	ClientBlocked,
	ClientNotApproved,
	OrgNotFound,
	SiteNotFound,
	ConfigInvalid,
}
