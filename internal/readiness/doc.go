// Package readiness polls the backend's health endpoint until it answers.
//
// The prober issues GET requests at a fixed interval (500ms by default) and
// stops at the first 200 response. Any other status and any transport error,
// including "connection refused" while the backend is still booting, count as
// "not ready yet". Running out of time is a normal outcome (TimedOut), not an
// error: the caller decides whether to carry on in a degraded state.
package readiness
