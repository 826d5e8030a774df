// Package session is the high-level API for hosting incrementally compiled
// script submissions.
//
// # Main Types
//
//   - Session: one engine instance — generated namespace, two code regions,
//     diagnostic channel, emission backend
//   - Policy: where a submission's code lives (reclaimable or persistent)
//
// # Thread Safety
//
// Session is safe for concurrent use. The typical interactive loop builds
// one submission at a time, but concurrent builds must not corrupt naming
// or region state.
//
// # Example
//
//	sess, _ := session.New(ctx, session.DefaultOptions())
//	defer sess.Close(ctx)
//
//	sub := sess.NewSubmission(payload, session.PolicyPersistent)
//	callable, err := sess.Build(ctx, sub)
//	if callable != nil {
//	    results, _ := callable(ctx, nil)
//	}
package session
