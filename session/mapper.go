package session

import (
	scriptengine "github.com/scripthost/script-engine"
	"github.com/scripthost/script-engine/errors"
	"github.com/scripthost/script-engine/identity"
	"github.com/scripthost/script-engine/region"
)

// newMapper binds a symbol mapper to one submission's collectibility.
//
// Ordinary external references pass through unchanged. A generated identity
// referenced from a reclaimable submission is a fatal internal-consistency
// violation: upstream collectibility policy is supposed to prevent it, and
// emitting a dangling reference would be worse than aborting. A generated
// identity referenced from a persistent submission is redirected to the
// persistent region's primary container unless it already names a
// registered fallback.
func newMapper(alloc *identity.Allocator, per *region.Persistent, collectible bool) scriptengine.Mapper {
	return func(logical string) (string, error) {
		if !alloc.Owns(logical) {
			return logical, nil
		}

		// Owned names must be well-formed; anything else means an
		// external reference was allowed to alias the namespace.
		if err := alloc.Verify(logical); err != nil {
			return "", err
		}

		if collectible {
			return "", errors.Internal(errors.PhaseBuild,
				"reclaimable submission references generated identity %s", logical)
		}

		if per.ContainsFallback(identity.SimpleName(logical)) {
			// Already names a resolvable fallback container.
			return logical, nil
		}
		return per.ContainerIdentity(), nil
	}
}
