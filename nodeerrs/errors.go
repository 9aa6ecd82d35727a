// Package nodeerrs implements the node's error taxonomy (spec.md §7): a
// small set of typed errors so callers can distinguish "retry at next
// iteration" from "this stream is unusable" from "this block is fatal"
// using errors.As/errors.Is, instead of inspecting error strings.
package nodeerrs

import "fmt"

// ConfigError wraps a failure to load or validate configuration.
type ConfigError struct{ Cause error }

func (e *ConfigError) Error() string { return fmt.Sprintf("config error: %v", e.Cause) }
func (e *ConfigError) Unwrap() error { return e.Cause }

// DaTransient wraps a DA submission/read failure. The sequencer's
// submission path retries it at the next grouping-heuristic pass; the node
// driver's writer and consumer loops return it, which stops the driver.
type DaTransient struct{ Cause error }

func (e *DaTransient) Error() string { return fmt.Sprintf("da transient error: %v", e.Cause) }
func (e *DaTransient) Unwrap() error { return e.Cause }

// DaFatal wraps a failure that makes the DA stream unusable; the full-node
// driver exits and the node must be restarted (spec.md §4.4).
type DaFatal struct{ Cause error }

func (e *DaFatal) Error() string { return fmt.Sprintf("da fatal error: %v", e.Cause) }
func (e *DaFatal) Unwrap() error { return e.Cause }

// EncodingError wraps a malformed or wrong-variant blob; the DA stream
// consumer returns it rather than skipping the blob, which stops the
// driver (spec.md §4.4, §7).
type EncodingError struct{ Cause error }

func (e *EncodingError) Error() string { return fmt.Sprintf("encoding error: %v", e.Cause) }
func (e *EncodingError) Unwrap() error { return e.Cause }

// ExecutorError wraps an executor failure; fatal for the current block,
// the driver exits (spec.md §4.7).
type ExecutorError struct{ Cause error }

func (e *ExecutorError) Error() string { return fmt.Sprintf("executor error: %v", e.Cause) }
func (e *ExecutorError) Unwrap() error { return e.Cause }

// SettlementTransient wraps an L1 dial, submission or subscription
// failure. EthClient returns it to its caller without retrying.
type SettlementTransient struct{ Cause error }

func (e *SettlementTransient) Error() string {
	return fmt.Sprintf("settlement transient error: %v", e.Cause)
}
func (e *SettlementTransient) Unwrap() error { return e.Cause }

// SettlementRejection is observable only via the commitment event stream
// (a Rejected event), never returned as an error (spec.md §7). It exists
// here so RejectionPolicy can wrap it uniformly when PolicyHalt converts a
// rejection into a driver-terminating error.
type SettlementRejection struct {
	Height uint64
	Reason string
}

func (e *SettlementRejection) Error() string {
	return fmt.Sprintf("settlement rejected height %d: %s", e.Height, e.Reason)
}

// Oversize marks an item that exceeded the DA store's blob-size ceiling
// even after every retry/split attempt the grouping heuristic stack
// allows for.
type Oversize struct{ Weight, Capacity int }

func (e *Oversize) Error() string {
	return fmt.Sprintf("oversize: weight %d exceeds capacity %d", e.Weight, e.Capacity)
}
