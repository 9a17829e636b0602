/*
Package ports defines the driven ports (interfaces) of the request-integrity engine.

These interfaces decouple the composer and the validator from storage backends,
configuration sources, and the editable-value policy.

# Key Interfaces

  - PageStore: persists Pages keyed by name within a scope (a session, or the application).
  - CookieStore: keeps the cookie fingerprint captured at response time.
  - DistributedLocker: coordinates writers of shared pages across replicas.
  - Config: the read-only configuration surface.
  - EditablePolicy: checks values of user-editable fields.
  - Composer: the capability every state-encoding strategy implements.
  - MetricsRecorder: receives compose and validation events.
*/
package ports
