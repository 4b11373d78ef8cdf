package security

import (
	"log/slog"

	"github.com/khaliloulah1/securelife/internal/domain"
)

// Ownership is resolved by owner id on every contract kind.

func (p *AccessPolicy) decideOwnership(principal *domain.Principal, target *domain.Contract) Decision {
	if target.OwnedBy(principal.ID) {
		return allow()
	}
	p.logger.Debug("resource access denied",
		slog.Int64("principal_id", principal.ID),
		slog.Int64("contract_id", target.ID),
		slog.Int64("owner_id", target.OwnerID),
	)
	return deny("this contract does not belong to you")
}

// Scope returns the owner id every list or search must be restricted to.
// ok is false when the principal sees all contracts.
func (p *AccessPolicy) Scope(principal *domain.Principal) (ownerID int64, ok bool) {
	if principal != nil && principal.Role == domain.RoleHolder {
		return principal.ID, true
	}
	return 0, false
}
