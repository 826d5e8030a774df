// Package region owns the physical destinations for emitted code.
//
// # Main Types
//
//   - Container: the lazily created code destination of one region
//   - Reclaimable: region whose code the host may reclaim
//   - Persistent: region that keeps code for the session, plus a registry
//     of fallback containers for fragments the primary container cannot hold
//   - Hook: the host runtime's module-resolution subscriber list
//
// # Thread Safety
//
// All types in this package are safe for concurrent use. Resolution
// callbacks arrive on arbitrary goroutines, concurrently with builds.
//
// # Resolution Order
//
//  1. Prefix admission check (lock-free rejection of foreign names)
//  2. The region's own container identity
//  3. Persistent only: fallback simple-name lookup, gated on the requester
//     being the primary container or a registered fallback
//  4. nil ("not mine") so other hook subscribers get a chance
package region
