// Package core defines the shared domain model of the simulation engine:
// scheduled and active actions, deferred messages, per-round actor state,
// the public round transcript, the simulation aggregate, the error
// taxonomy, and the persistence boundary (Store). All other packages
// depend on core; core depends on nothing but identifiers.
package core
