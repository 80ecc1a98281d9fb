// Package relay provides a composable request-processing pipeline for
// network clients.
//
// The central types are [Handler], the unit of execution, and [Policy], a
// wrapper that adds cross-cutting behavior (retry, circuit breaking,
// throttling, response caching) around a terminal Transport without
// coupling to any wire protocol. Policies compose with [Chain] following
// the onion model: the first policy's pre-logic runs first and its
// post-logic runs last.
package relay
