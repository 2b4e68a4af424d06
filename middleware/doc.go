// Package middleware exposes HTTP middleware adapters for role-gated
// authorization built on top of authcore.Engine validation.
//
// # Guards
//
//   - [Guard] — gates a handler at an explicit minimum role.
//   - [RequireUser], [RequireManager], [RequireAdmin] — fixed-tier shorthands.
//
// Each guard reads the Authorization header, calls Engine.Authorize, and
// injects validated claims into the request context.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself — all decisions are delegated to
// Engine.Authorize.
package middleware
