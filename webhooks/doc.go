// Package webhooks turns raw provider callbacks into normalized inbound
// messages.
//
// Dispatch is a three stage pipeline: resolve the handler, verify the payload,
// parse it. Each stage short-circuits, every outcome maps to exactly one
// response shape, and identical inputs always yield identical responses.
package webhooks
