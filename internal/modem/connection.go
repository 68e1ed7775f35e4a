package modem

import (
	"context"
	"errors"
	"log/slog"
	"net"

	"lte-sms-manager/internal/domain"
)

const (
	OpListMessages  = "list_messages"
	OpDeleteMessage = "delete_message"
)

// Lister is the device operation that returns the raw inbox.
type Lister interface {
	ListSMS(ctx context.Context) ([]domain.Record, error)
}

// Deleter is the device operation that removes one message.
type Deleter interface {
	DeleteSMS(ctx context.Context, id int) error
}

// Device is the full capability the manager expects from a modem.
type Device interface {
	Lister
	Deleter
}

// Connection adapts a device of unknown vintage to a stable contract. The
// device is probed for each capability at call time so that a build which
// dropped an operation fails with a CapabilityError instead of a transport
// error.
type Connection struct {
	host   string
	device any
	logger *slog.Logger
}

// NewConnection wraps device for the modem at host.
func NewConnection(host string, device any, logger *slog.Logger) (*Connection, error) {
	if device == nil {
		return nil, errors.New("modem: device must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Connection{host: host, device: device, logger: logger}, nil
}

// Host returns the endpoint identifier of the wrapped modem.
func (c *Connection) Host() string { return c.host }

// ListMessages fetches a fresh inbox snapshot. Records that cannot be turned
// into a Message are logged and skipped.
func (c *Connection) ListMessages(ctx context.Context) ([]domain.Message, error) {
	lister, ok := c.device.(Lister)
	if !ok {
		return nil, &CapabilityError{Op: OpListMessages}
	}

	raw, err := lister.ListSMS(ctx)
	if err != nil {
		return nil, c.classify(OpListMessages, nil, err)
	}

	msgs := make([]domain.Message, 0, len(raw))
	for _, rec := range raw {
		msg, err := domain.NewMessage(rec)
		if err != nil {
			c.logger.Warn("skipping unparsable SMS record", "host", c.host, "record", rec, "err", err)
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// DeleteMessage removes a single message by id.
func (c *Connection) DeleteMessage(ctx context.Context, id int) error {
	deleter, ok := c.device.(Deleter)
	if !ok {
		return &CapabilityError{Op: OpDeleteMessage}
	}
	if err := deleter.DeleteSMS(ctx, id); err != nil {
		return c.classify(OpDeleteMessage, &id, err)
	}
	return nil
}

// DeleteBatch attempts every id in order and returns how many were deleted.
// It only fails when ids is non-empty and no deletion succeeded; partial
// failures are logged and callers compare the count against len(ids).
func (c *Connection) DeleteBatch(ctx context.Context, ids []int) (int, error) {
	deleted := 0
	var failures []DeleteFailure

	for _, id := range ids {
		var err error
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		} else {
			err = c.DeleteMessage(ctx, id)
		}
		if err != nil {
			failures = append(failures, DeleteFailure{SMSID: id, Err: err})
			c.logger.Warn("failed to delete SMS", "host", c.host, "sms_id", id, "err", err)
			continue
		}
		deleted++
	}

	if len(failures) > 0 && deleted == 0 {
		return 0, &CommunicationError{
			Host:     c.host,
			Op:       "delete_batch",
			Failures: failures,
			Err:      failures[0].Err,
		}
	}
	if len(failures) > 0 {
		c.logger.Warn("partial SMS deletion",
			"host", c.host,
			"succeeded", deleted,
			"failed", len(failures),
			"failed_ids", failedIDs(failures),
		)
	}
	return deleted, nil
}

// classify keeps capability errors reported by the device itself and turns
// everything else into a CommunicationError.
func (c *Connection) classify(op string, id *int, err error) error {
	if errors.Is(err, ErrCapabilityMissing) {
		var capErr *CapabilityError
		if errors.As(err, &capErr) {
			return capErr
		}
		return &CapabilityError{Op: op, Err: err}
	}
	return &CommunicationError{
		Host:    c.host,
		Op:      op,
		SMSID:   id,
		Timeout: isTimeout(err),
		Err:     err,
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func failedIDs(failures []DeleteFailure) []int {
	ids := make([]int, len(failures))
	for i, f := range failures {
		ids[i] = f.SMSID
	}
	return ids
}
