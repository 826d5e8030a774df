// Package engine provides the wazero-backed emission backend.
//
// The backend treats a submission's payload as a core WebAssembly module:
// it maps the submission's cross-references through the supplied symbol
// mapper, verifies each mapped identity is loadable, compiles and
// instantiates the payload in a shared wazero runtime, and returns the
// exported entry function as the submission's entry point.
//
// A fragment that declares its own module name cannot be placed under the
// region container's identity; the backend instantiates it under its own
// name and returns it as a fallback image for the persistent region to
// register.
package engine
