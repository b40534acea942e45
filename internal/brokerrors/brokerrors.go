// Package brokerrors defines sentinel errors for the broker's error
// taxonomy (spec §7: configuration, transport, protocol, capacity,
// inconsistency, notifier), in the same wrapped-sentinel style as
// pkg/common/error_registry.go, scoped to this domain. Most of §7 is
// handled by logging-and-continuing rather than returning an error
// value at all; these sentinels cover the paths that do propagate one,
// chiefly configuration loading.
package brokerrors

import "errors"

var (
	// ErrConfigInvalid marks a configuration document that fails schema
	// or required-field validation. Fatal at startup (spec §7
	// "Configuration").
	ErrConfigInvalid = errors.New("brokerrors: invalid configuration")

	// ErrConfigNotFound marks a missing configuration file.
	ErrConfigNotFound = errors.New("brokerrors: configuration file not found")

	// ErrBindFailed marks a failure to bind one of the router sockets
	// (clients, workers) during wiring. The monitor socket dials in the
	// background and never reports this.
	ErrBindFailed = errors.New("brokerrors: failed to open transport socket")

	// ErrUnknownWorker marks an operation referencing a worker identity
	// absent from the registry; callers log and drop rather than
	// returning this to an outer caller, but it remains available for
	// tests that want to assert on the condition directly.
	ErrUnknownWorker = errors.New("brokerrors: unknown worker identity")
)
