// Package storefront implements the trust and lifecycle core of the
// storefront: session-token authentication, the email verification workflow,
// the order payment state machine, and the append-only audit trail that
// binds privileged changes to the actor who made them.
//
// Sessions:
//   - TokenService signs and validates HS256 session tokens carrying the
//     principal id and role. SessionGuard turns validated claims into a
//     resolved *User and is the single place the blacklist flag is enforced,
//     so every protected route rejects suspended principals regardless of
//     token validity.
//
// Email verification:
//   - Verification tokens are 256-bit single-use values with a 24 hour
//     window. Issuing a new token supersedes any outstanding one; consumption
//     happens in a single guarded UPDATE so a token can never be redeemed
//     twice.
//
// Orders:
//   - OrderLifecycle owns the payment sub-state (pending -> paid | failed)
//     and advances fulfillment from created to processing when payment lands.
//     The paid transition is a compare-and-swap at the store, which makes
//     replayed payment callbacks a no-op and keeps paid_at write-once.
//
// Audit:
//   - AuditTrail records privileged changes best-effort. Writes are detached
//     from the triggering operation and their failures are reported on a
//     diagnostic channel, never to the caller.
package storefront
