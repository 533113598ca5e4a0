// Package core contains the canonical SMS domain contracts and entities: the
// normalized message model, the provider registry, the error taxonomy, and the
// shared configuration surface. Feature packages (webhooks, ratelimit,
// providers, store) depend on this package; core must not depend on any of
// them.
package core
