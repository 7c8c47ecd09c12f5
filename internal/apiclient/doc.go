// Package apiclient is the JSON REST client for the collaboration backend.
//
// Every request carries a bearer token from an oauth2.TokenSource, usually
// FileTokenSource reading the token persisted by the login flow. Requests
// are paced by a client-side rate limiter. Any non-2xx response becomes an
// *APIError.
package apiclient
