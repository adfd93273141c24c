// Package model defines the data structures shared across the adapter:
// stream descriptors as returned by the extractor, their classified
// projections, merge pairs, download tasks with their state machine, and
// playlist entries. JSON tags describe the contract with the host app.
package model
