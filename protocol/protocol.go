package protocol

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-version"
)

// supportedRange is the range of event stream protocol versions this step
// can consume.
var supportedRange = version.MustConstraints(version.NewConstraint(">= 1.0.0, < 2.0.0"))

// ErrMissingVersion means the stream did not advertise a protocol version.
// Callers may log it and continue, assuming the current major version.
var ErrMissingVersion = errors.New("the event stream did not advertise a protocol version")

// Validator checks the protocol version advertised by a run start event.
type Validator interface {
	Validate(protocolVersion string) error
}

type validator struct{}

// NewValidator ...
func NewValidator() Validator {
	return validator{}
}

func (validator) Validate(protocolVersion string) error {
	if protocolVersion == "" {
		return ErrMissingVersion
	}

	v, err := version.NewVersion(protocolVersion)
	if err != nil {
		return fmt.Errorf("invalid protocol version %q: %w", protocolVersion, err)
	}
	if !supportedRange.Check(v) {
		return fmt.Errorf("unsupported protocol version %s, supported versions: %s", v, supportedRange)
	}
	return nil
}
