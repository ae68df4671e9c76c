package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/jrsteele09/go-session-server/identity"
)

// EligibilityFunc decides whether an authenticated identity may be issued its first
// session. It returns a human readable reason when it rejects.
type EligibilityFunc func(ctx context.Context, ident *identity.UpstreamIdentity) (ok bool, reason string)

// AffiliationEligibility admits identities whose affiliation matches one of allowed,
// ignoring surrounding whitespace and case.
func AffiliationEligibility(allowed ...string) EligibilityFunc {
	set := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		if a = normalizeAffiliation(a); a != "" {
			set[a] = struct{}{}
		}
	}
	return func(_ context.Context, ident *identity.UpstreamIdentity) (bool, string) {
		if ident == nil {
			return false, NotEligibleErr.Error()
		}
		if _, ok := set[normalizeAffiliation(ident.Affiliation)]; ok {
			return true, ""
		}
		return false, fmt.Sprintf("%s: affiliation %q", NotEligibleErr, strings.TrimSpace(ident.Affiliation))
	}
}

func normalizeAffiliation(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
