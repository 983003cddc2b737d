package service

import "github.com/ironbark-dev/ironbark/internal/identity/domain"

// AuthoritiesClaim is the claim name carrying the principal's authority set.
const AuthoritiesClaim = "authorities"

// IssuanceContext is an in-flight token issuance: the claim map about to be
// signed plus the authenticated principal, when there is one.
type IssuanceContext struct {
	Principal *domain.Principal
	Claims    map[string]any
}

// CustomizeClaims shapes what an issued token attests: if the issuance
// carries a principal with a non-empty authority set, the "authorities"
// claim is attached; otherwise the context is left untouched. Pure and
// deterministic.
func CustomizeClaims(ic *IssuanceContext) {
	if ic == nil || ic.Principal == nil || len(ic.Principal.Authorities) == 0 {
		return
	}
	ic.Claims[AuthoritiesClaim] = ic.Principal.Authorities
}
