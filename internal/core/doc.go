// Package core provides the business logic of the D21 startup directory.
//
// This package holds all domain rules independent of any transport. It can be
// used by the HTTP server, the operator CLI, or tests without modification.
//
// # Architecture
//
//   - Service: the entry point for every action. It depends on a [Store] for
//     persistence and on optional collaborators (image rehosting, geocoding,
//     reference-data cache) supplied as options.
//   - Access guard: [Service.CheckDirectoryAccess] decides whether a user owns
//     a directory. Every owner-scoped action runs it before writing.
//   - Mutations: create, update, delete and visibility actions take raw form
//     values and coerce them field by field (see validation.go).
//   - Queries: filtered, sorted listings paged by [PageSize].
//   - Submission hub: new submissions are fanned out to live subscribers.
//   - Audit: every successful mutation is recorded with a severity.
//
// # Error Handling
//
// Every action returns either its result or an [*ActionError] carrying an
// [ErrorKind] and a fixed message. Transport layers render errors only through
// [SanitizeErrorContext] or [MapError], so raw driver or network messages never
// reach a client.
//
// # Visibility
//
// Startups are always created hidden (pending approval). Public queries only
// return visible startups; the owner's submissions view returns both.
package core
