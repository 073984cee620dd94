// Package transport declares the per-village gateway surface described
// in spec §6. No HTTP framework is wired here: bindings (REST, gRPC, an
// in-process test double) are a caller's choice, so this package is
// narrowed to the interface shape and the value types its methods
// exchange, letting request/response binding be decided later without
// touching the admission, policy, or feed logic underneath it.
package transport

import (
	"context"

	"xdao.co/villages/admission"
	"xdao.co/villages/audit"
	"xdao.co/villages/bundle"
	"xdao.co/villages/policyfeed"
	"xdao.co/villages/policyupdate"
)

// UpdatesPage is the response shape for the cursor-paginated updates
// listing.
type UpdatesPage struct {
	Items      []policyupdate.Update `json:"items"`
	NextCursor string                `json:"next_cursor"`
	Cursor     string                `json:"cursor"`
	Since      string                `json:"since"`
	Limit      int                   `json:"limit"`
	VillageID  string                `json:"village_id"`
}

// Principal is the authenticated caller of a bearer-gated endpoint,
// resolved from village.Authorize before a gateway method runs.
type Principal struct {
	MemberID string
	Role     string
}

// VillageGateway is one method per HTTP row in spec §6. villageID has
// already been validated against ^[A-Za-z0-9_-]+$ by the caller; rate
// limiting (per village_id, client_key) and capability checks
// (pull/push/manage) are likewise the caller's responsibility before
// invoking these methods — this interface is the post-authorization,
// post-rate-limit request surface.
type VillageGateway interface {
	// LatestPolicy returns the most recently stored update, or
	// (zero, false, nil) if the village has no policy yet.
	LatestPolicy(ctx context.Context, villageID string) (policyupdate.Update, bool, error)

	// UpdatesSince returns every update strictly after since
	// (a policy_hash), oldest first.
	UpdatesSince(ctx context.Context, villageID, since string) ([]policyupdate.Update, error)

	// UpdatesPage returns a cursor page of updates; limit must lie in
	// [policyfeed.MinPageLimit, policyfeed.MaxPageLimit].
	UpdatesPage(ctx context.Context, villageID, since, cursor string, limit int) (UpdatesPage, error)

	// Manifest returns the signed feed manifest for villageID.
	Manifest(ctx context.Context, villageID string) (policyfeed.Manifest, error)

	// SubmitPolicy validates quorum under the village's current policy,
	// stores the update, and applies it as the new current snapshot.
	SubmitPolicy(ctx context.Context, villageID string, caller Principal, update policyupdate.Update) error

	// LatestClaims returns the most recently accepted bundle for
	// villageID, or (zero, false, nil) if none has been ingested.
	LatestClaims(ctx context.Context, villageID string, caller Principal) (bundle.Bundle, bool, error)

	// Inbox runs b through the admission pipeline (§4.5) and reports
	// the resulting outcome.
	Inbox(ctx context.Context, villageID string, caller Principal, b bundle.Bundle) (admission.Outcome, error)

	// TransparencyLog returns up to limit (clamped to [1, 5000]) most
	// recent transparency log entries for villageID.
	TransparencyLog(ctx context.Context, villageID string, limit int) ([]audit.TransparencyEntry, error)

	// AuditExport renders the shared audit log filtered to villageID in
	// format, optionally signed with the node key.
	AuditExport(ctx context.Context, villageID string, format audit.ExportFormat, sign bool) (audit.ExportResult, error)
}
