// Package auth is the authentication and authorization core of the starter
// template: password, magic-link, and OAuth sign-in, name-based roles, signed
// session tokens, and server-side route guards.
//
// Sign-in flow:
//   - Every sign-in attempt runs through the SignInGate state machine before a
//     token is minted. Non-OAuth attempts pass through untouched; OAuth
//     attempts are linked to a local user by email and receive first-touch
//     bookkeeping (default role, profile backfill). Store failures during that
//     bookkeeping never block a legitimate sign-in; they surface on
//     GateResult.RoleAssignmentWarning instead.
//
// Roles:
//   - Authorization is purely name-based. A user holds zero or more roles via
//     the user_roles join table, and the "user" and "admin" roles are
//     system-protected. Route guards check membership against the role store
//     on every request, so an admin revoking a role locks the subject out of
//     guarded routes immediately. There is no hierarchy and no scopes.
//
// Tokens and sessions:
//   - TokenClaims (HS256 JWT) carry user id, role names, email, and display
//     name. Claims are rebuilt on sign-in only; ProjectSession copies them
//     onto the per-request SessionObject. The role names on the token are a
//     snapshot for display and diagnostics, not the source of truth for
//     guard decisions.
package auth
