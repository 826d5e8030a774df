// Package identity allocates the generated names that keep engine-emitted
// code containers apart from user-supplied module references.
//
// Every engine instance owns a process-unique prefix; submission and
// container names are derived from it. The prefix begins with a marker that
// is not legal in user module identities, so a plain prefix check is the
// sole admission test for "does this name belong to an engine".
package identity

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/scripthost/script-engine/errors"
)

// Marker starts every generated prefix. User module identities never begin
// with '$', so nothing outside this package can legitimately alias it.
const Marker = "$frag-"

// Container identity suffixes, fixed per region variant.
const (
	ReclaimableSuffix = "#CD"
	PersistentSuffix  = "#UD"
)

const typeNameBase = "Submission#"

var (
	saltOnce      sync.Once
	processSalt   string
	prefixCounter atomic.Uint64
)

// salt is generated once and shared by every engine in the process.
func salt() string {
	saltOnce.Do(func() {
		processSalt = strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	})
	return processSalt
}

// NewPrefix returns a prefix unique for the life of the process, even across
// concurrently constructed engine instances.
func NewPrefix() string {
	n := prefixCounter.Add(1)
	return Marker + salt() + "-" + utoa(n)
}

// Allocator issues generated names for one engine instance.
// Safe for concurrent use.
type Allocator struct {
	prefix string
	next   atomic.Uint64
}

// NewAllocator creates an allocator with a fresh process-unique prefix.
func NewAllocator() *Allocator {
	return &Allocator{prefix: NewPrefix()}
}

// Prefix returns the engine's generated-name prefix.
func (a *Allocator) Prefix() string {
	return a.prefix
}

// Next atomically advances the submission counter and derives the
// submission's assembly and type names from the new id.
func (a *Allocator) Next() (id uint64, assemblyName, typeName string) {
	id = a.next.Add(1)
	return id, a.prefix + "#" + utoa(id), typeNameBase + utoa(id)
}

// Owns reports whether name falls inside this engine's generated namespace.
// This is the admission test used by every resolution query: anything
// outside the prefix is "not mine" regardless of further state.
func (a *Allocator) Owns(name string) bool {
	return strings.HasPrefix(name, a.prefix)
}

// ContainerIdentity returns the identity of the region container for the
// given collectibility.
func (a *Allocator) ContainerIdentity(collectible bool) string {
	if collectible {
		return a.prefix + ReclaimableSuffix
	}
	return a.prefix + PersistentSuffix
}

// Verify fails fast when a name claims this engine's prefix without being a
// well-formed generated identity. Upstream configuration is supposed to make
// this impossible; reaching it means an external reference was allowed to
// alias the generated namespace.
func (a *Allocator) Verify(name string) error {
	if !a.Owns(name) {
		return nil
	}
	rest := name[len(a.prefix):]
	switch rest {
	case ReclaimableSuffix, PersistentSuffix:
		return nil
	}
	if len(rest) > 1 && rest[0] == '#' && allDigits(rest[1:]) {
		return nil
	}
	return errors.Collision(errors.PhaseNaming, name)
}

// SubmissionID extracts the submission id from a generated assembly name.
func (a *Allocator) SubmissionID(name string) (uint64, bool) {
	if !a.Owns(name) {
		return 0, false
	}
	rest := name[len(a.prefix):]
	if len(rest) < 2 || rest[0] != '#' || !allDigits(rest[1:]) {
		return 0, false
	}
	var id uint64
	for i := 1; i < len(rest); i++ {
		id = id*10 + uint64(rest[i]-'0')
	}
	return id, true
}

// SimpleName strips a version qualifier ("name@1.2.0" -> "name") from a
// requested identity. Fallback containers cross-reference each other by
// simple name only.
func SimpleName(name string) string {
	if i := strings.IndexByte(name, '@'); i >= 0 {
		return name[:i]
	}
	return name
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}

func utoa(n uint64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
