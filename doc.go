// Package scriptengine provides the dynamic code-module manager of an
// interactive, incremental compilation engine.
//
// Each compiled user fragment (a "submission") is placed into a code
// container owned by one of two regions, named under a process-unique
// generated namespace, and exposed to the host runtime's module-resolution
// hook so later submissions can reference it.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	scriptengine/        Root package with collaborator interfaces
//	├── session/         High-level API: Session, Builder, symbol mapping
//	├── engine/          wazero-backed emission backend
//	├── region/          Code containers, regions, fallback registry, hook
//	├── identity/        Generated-name allocation and admission checks
//	└── errors/          Structured error types for debugging
//
// # Quick Start
//
// Build and run one submission:
//
//	sess, err := session.New(ctx, session.DefaultOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sess.Close(ctx)
//
//	callable, err := sess.Build(ctx, payload, session.Persistent)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if callable != nil {
//	    result, _ := callable(ctx, nil)
//	    fmt.Println(result)
//	}
//
// A nil callable with a nil error means the submission produced diagnostics
// and nothing runnable; inspect sess.Diagnostics().
//
// # Regions
//
// A submission is placed by collectibility policy. Reclaimable submissions
// go into a container whose code can be dropped once the host releases all
// references to it. Persistent submissions share one container for the life
// of the session; fragments the backend cannot place there become fallback
// containers registered under their own simple names.
//
// # Thread Safety
//
// Session, the regions, and the resolution hook are safe for concurrent use.
// The interactive loop is typically single-threaded, but resolution queries
// arrive on arbitrary goroutines.
package scriptengine
