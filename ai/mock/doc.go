// Package mock provides test doubles for the ai package interfaces.
//
// The doubles default to deterministic behavior so tests can assert on
// stable outputs, and expose function fields for injecting custom
// behavior per test.
package mock
