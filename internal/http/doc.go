// Package http provides HTTP handlers and middleware for the scheduler API.
//
// The router exposes the following endpoints:
//   - POST /api/register: self-service sign up. Body: {"email","password","name"}.
//     New accounts start with the "new" role.
//   - POST /api/auth/login: issues a session token. Body: {"email","password"}.
//     Response: {"token","expires_at","user"} with the token also surfaced via the
//     `X-Session-Token` header and a `session_token` cookie.
//   - POST /api/auth/logout, POST /api/auth/refresh, GET /api/auth/session: revoke,
//     rotate or inspect the current session.
//   - GET|POST /api/availabilities, GET /api/availabilities/all,
//     PATCH|DELETE /api/availabilities/{id}, GET /api/availabilities/{id}/occurrences
//     and POST /api/schedule (validation only) exchange the `availabilityDTO`
//     payload defined in availability_handler.go.
//   - GET|POST /api/sessions, GET|PATCH|DELETE /api/sessions/{id},
//     GET /api/sessions/{id}/available-players and GET /api/next-session exchange
//     the `sessionDTO` payload defined in session_handler.go.
//   - GET /api/calendar: calendar events for a window, one month by default.
//   - GET /api/users, PATCH|DELETE /api/users/{id}: administrator user management.
//   - GET /healthz and GET /metrics for operators.
//
// Every route other than registration, login, health and metrics requires a
// session token sent as a Bearer header, the `session_token` cookie or the
// `X-Session-Token` header. Errors use the body
// {"error_code","message","errors"}.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
