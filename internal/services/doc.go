// Package services wraps the vendor's REST endpoints behind the [Gateway]
// interface.
//
// The [SpotifyClient] is a thin, retry-aware HTTP client: it attaches bearer
// tokens from a [TokenProvider], forces one token refresh on 401, honors
// rate-limit hints on 429, maps the no-active-device responses to a distinct
// sentinel, and retries transient network failures with bounded exponential
// backoff. Authentication itself lives in the auth package; this package only
// consumes tokens.
package services
