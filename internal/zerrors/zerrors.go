// Package zerrors defines the error taxonomy named in the design's
// error-handling section: SourceOpenError is fatal to a run,
// PacketDecodeError and DetectorInputError are recovered locally, and
// ConfigError is fatal at analyzer construction.
//
// Call sites wrap the underlying cause with github.com/pkg/errors, the
// same wrapping convention the teacher uses around its own decoder
// errors (errors.Wrap(ErrInvalidDecoder, name)).
package zerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// SourceOpenError indicates the capture file could not be opened or its
// format could not be recognized. Fatal to the run.
type SourceOpenError struct {
	Path string
	Err  error
}

func (e *SourceOpenError) Error() string {
	return fmt.Sprintf("open capture %q: %v", e.Path, e.Err)
}

func (e *SourceOpenError) Unwrap() error { return e.Err }

// NewSourceOpenError wraps err as a SourceOpenError for path.
func NewSourceOpenError(path string, err error) error {
	return &SourceOpenError{Path: path, Err: errors.Wrap(err, "source open")}
}

// PacketDecodeError indicates a single packet could not be decoded or
// timestamped. Recovered locally by the streamer: logged, then skipped.
type PacketDecodeError struct {
	Index int
	Err   error
}

func (e *PacketDecodeError) Error() string {
	return fmt.Sprintf("decode packet #%d: %v", e.Index, e.Err)
}

func (e *PacketDecodeError) Unwrap() error { return e.Err }

// NewPacketDecodeError wraps err as a PacketDecodeError for the packet
// at the given file-order index.
func NewPacketDecodeError(index int, err error) error {
	return &PacketDecodeError{Index: index, Err: errors.Wrap(err, "packet decode")}
}

// DetectorInputError indicates evidence fields required for a
// detection path were missing. Recovered locally: the detection is not
// emitted.
type DetectorInputError struct {
	Detector string
	Field    string
}

func (e *DetectorInputError) Error() string {
	return fmt.Sprintf("detector %s: missing evidence field %q", e.Detector, e.Field)
}

// NewDetectorInputError builds a DetectorInputError for detector/field.
func NewDetectorInputError(detector, field string) error {
	return &DetectorInputError{Detector: detector, Field: field}
}

// ConfigError indicates an unknown engine id or an out-of-range
// parameter. Fatal at analyzer construction.
type ConfigError struct {
	EngineID string
	Reason   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: engine %q: %s", e.EngineID, e.Reason)
}

// NewConfigError builds a ConfigError for the named engine/reason.
func NewConfigError(engineID, reason string) error {
	return &ConfigError{EngineID: engineID, Reason: reason}
}
