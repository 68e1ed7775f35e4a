package modem

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfigurationMissing means no usable modem endpoint could be selected.
	ErrConfigurationMissing = errors.New("modem: configuration missing")
	// ErrCapabilityMissing means the device API no longer offers an expected
	// operation. It is not retriable.
	ErrCapabilityMissing = errors.New("modem: capability missing")
	// ErrCommunication means a timeout or transport fault talking to the device.
	ErrCommunication = errors.New("modem: communication failure")
)

// ConfigurationError reports a failed endpoint selection.
type ConfigurationError struct {
	Reason         string
	AvailableHosts []string
}

func (e *ConfigurationError) Error() string {
	if len(e.AvailableHosts) == 0 {
		return e.Reason
	}
	return fmt.Sprintf("%s. Available hosts: [%s]", e.Reason, strings.Join(e.AvailableHosts, ", "))
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfigurationMissing }

// CapabilityError reports that the device does not implement Op.
type CapabilityError struct {
	Op  string
	Err error
}

func (e *CapabilityError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("modem: %s is not supported by this device; the modem API may be incompatible", e.Op)
	}
	return fmt.Sprintf("modem: %s API mismatch detected: %v", e.Op, e.Err)
}

func (e *CapabilityError) Unwrap() error { return e.Err }

func (e *CapabilityError) Is(target error) bool { return target == ErrCapabilityMissing }

// DeleteFailure records one failed id of a batch deletion.
type DeleteFailure struct {
	SMSID int
	Err   error
}

// CommunicationError reports a runtime fault. SMSID is set for single
// deletions, Failures for a batch where every attempt failed.
type CommunicationError struct {
	Host     string
	Op       string
	SMSID    *int
	Timeout  bool
	Failures []DeleteFailure
	Err      error
}

func (e *CommunicationError) Error() string {
	var b strings.Builder
	switch {
	case e.Timeout:
		fmt.Fprintf(&b, "modem: timeout during %s with modem at %s", e.Op, e.Host)
	case len(e.Failures) > 0:
		fmt.Fprintf(&b, "modem: failed to delete any SMS on %s", e.Host)
	case e.SMSID != nil:
		fmt.Fprintf(&b, "modem: failed to delete SMS %d on %s", *e.SMSID, e.Host)
	default:
		fmt.Fprintf(&b, "modem: %s failed on %s", e.Op, e.Host)
	}
	if len(e.Failures) > 0 {
		b.WriteString(". Errors: ")
		for i, f := range e.Failures {
			if i > 0 {
				b.WriteString("; ")
			}
			fmt.Fprintf(&b, "%d: %v", f.SMSID, f.Err)
		}
		return b.String()
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *CommunicationError) Unwrap() error { return e.Err }

func (e *CommunicationError) Is(target error) bool { return target == ErrCommunication }
