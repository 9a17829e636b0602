/*
Package domain contains the passive records of the request-integrity engine.

It defines what a rendered response exposed to the client and nothing else: no I/O,
no persistence, no HTTP. Every other package (composer, validator, stores) builds on
these types.

# Key Entities

  - Parameter: a named, ordered collection of values a State exposed for one field.
  - State: one protected target (a link or a form) with its Parameters.
  - Page: one rendered view and every State it exposed, plus the per-render token.
  - StateID: the composite identifier "<page>-<state>-<token>" sent to the client.
  - Reason: the taxonomy of validation failures.

Insertion order is significant everywhere: the position of a value inside a Parameter
is its confidential index, so Parameters keep their values in a slice, and States keep
their Parameters in a slice with a name index on the side.
*/
package domain
