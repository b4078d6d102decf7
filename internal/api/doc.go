// Package api serves the platform over HTTP with echo.
//
// Routes live under /api/v1 and answer with the envelope
// {"success": bool, "data": ..., "error": "..."}. Callers are identified by
// the X-User-ID and X-User-Role headers of the authenticating gateway; write
// routes reject anonymous requests with 401 and admin routes require the
// ADMIN role. POST /api/v1/posts/sync takes a bearer token instead and is
// only registered when one is configured.
//
// Domain errors map onto status codes in errorStatus: not found 404,
// forbidden 403, invalid input 400, version conflict 409, tombstoned 410.
package api
