// Package testutil contains helpers used across tests to build and inspect
// turn event streams. It is not intended for production usage.
package testutil
