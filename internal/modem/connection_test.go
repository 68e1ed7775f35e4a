package modem

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"lte-sms-manager/internal/domain"
)

// fakeDevice implements Device. Deletions of ids in failIDs return an error.
type fakeDevice struct {
	records []domain.Record
	listErr error
	failIDs map[int]error
	deleted []int
	calls   []int
}

func (f *fakeDevice) ListSMS(_ context.Context) ([]domain.Record, error) {
	return f.records, f.listErr
}

func (f *fakeDevice) DeleteSMS(_ context.Context, id int) error {
	f.calls = append(f.calls, id)
	if err, ok := f.failIDs[id]; ok {
		return err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

// listOnly is a device build that dropped deletion.
type listOnly struct{}

func (listOnly) ListSMS(_ context.Context) ([]domain.Record, error) { return nil, nil }

// deleteOnly is a device build that dropped listing.
type deleteOnly struct{}

func (deleteOnly) DeleteSMS(_ context.Context, _ int) error { return nil }

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func newTestConnection(t *testing.T, device any) (*Connection, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	c, err := NewConnection("192.168.5.1", device, logger)
	require.NoError(t, err)
	return c, &buf
}

func TestNewConnection_NilDevice(t *testing.T) {
	_, err := NewConnection("h", nil, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "must not be nil")
}

func TestListMessages_HappyPath(t *testing.T) {
	dev := &fakeDevice{records: []domain.Record{
		{"id": 1, "sender": "Orange", "message": "promo", "timestamp": "2024-01-01T00:00:00Z"},
		{"id": 2, "sender": "Dad"},
	}}
	c, _ := newTestConnection(t, dev)

	msgs, err := c.ListMessages(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "Orange", msgs[0].Sender)
	require.Equal(t, "Dad", msgs[1].Sender)
	require.Nil(t, msgs[1].Timestamp)
}

func TestListMessages_SkipsMalformedRecords(t *testing.T) {
	dev := &fakeDevice{records: []domain.Record{
		{"id": "not-a-number", "sender": "x"},
		{"id": 5, "sender": "ok"},
		nil,
	}}
	c, logs := newTestConnection(t, dev)

	msgs, err := c.ListMessages(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, 5, msgs[0].ID)
	require.Equal(t, 2, strings.Count(logs.String(), `msg="skipping unparsable SMS record"`))
}

func TestListMessages_CapabilityMissing(t *testing.T) {
	c, _ := newTestConnection(t, deleteOnly{})

	_, err := c.ListMessages(context.Background())
	require.ErrorIs(t, err, ErrCapabilityMissing)
	var capErr *CapabilityError
	require.ErrorAs(t, err, &capErr)
	require.Equal(t, OpListMessages, capErr.Op)
}

func TestListMessages_DeviceReportsCapabilityMissing(t *testing.T) {
	dev := &fakeDevice{listErr: fmt.Errorf("netgear: model.json has no sms section: %w", ErrCapabilityMissing)}
	c, _ := newTestConnection(t, dev)

	_, err := c.ListMessages(context.Background())
	require.ErrorIs(t, err, ErrCapabilityMissing)
	require.NotErrorIs(t, err, ErrCommunication)
}

func TestListMessages_CommunicationFailure(t *testing.T) {
	dev := &fakeDevice{listErr: errors.New("connection refused")}
	c, _ := newTestConnection(t, dev)

	_, err := c.ListMessages(context.Background())
	require.ErrorIs(t, err, ErrCommunication)
	var commErr *CommunicationError
	require.ErrorAs(t, err, &commErr)
	require.Equal(t, "192.168.5.1", commErr.Host)
	require.False(t, commErr.Timeout)
	require.Contains(t, err.Error(), "192.168.5.1")
	require.Contains(t, err.Error(), "connection refused")
}

func TestListMessages_Timeout(t *testing.T) {
	for _, cause := range []error{context.DeadlineExceeded, timeoutErr{}} {
		dev := &fakeDevice{listErr: cause}
		c, _ := newTestConnection(t, dev)

		_, err := c.ListMessages(context.Background())
		var commErr *CommunicationError
		require.ErrorAs(t, err, &commErr)
		require.True(t, commErr.Timeout)
		require.Contains(t, err.Error(), "timeout")
	}
}

func TestDeleteMessage_CapabilityMissing(t *testing.T) {
	c, _ := newTestConnection(t, listOnly{})

	err := c.DeleteMessage(context.Background(), 1)
	require.ErrorIs(t, err, ErrCapabilityMissing)
}

func TestDeleteMessage_CarriesID(t *testing.T) {
	dev := &fakeDevice{failIDs: map[int]error{9: errors.New("boom")}}
	c, _ := newTestConnection(t, dev)

	err := c.DeleteMessage(context.Background(), 9)
	var commErr *CommunicationError
	require.ErrorAs(t, err, &commErr)
	require.NotNil(t, commErr.SMSID)
	require.Equal(t, 9, *commErr.SMSID)
	require.Contains(t, err.Error(), "SMS 9")
}

func TestDeleteBatch_Empty(t *testing.T) {
	dev := &fakeDevice{}
	c, _ := newTestConnection(t, dev)

	n, err := c.DeleteBatch(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 0, n)
	require.Empty(t, dev.calls)
}

func TestDeleteBatch_AllSucceed(t *testing.T) {
	dev := &fakeDevice{}
	c, logs := newTestConnection(t, dev)

	n, err := c.DeleteBatch(context.Background(), []int{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, []int{1, 2, 3}, dev.deleted)
	require.Empty(t, logs.String())
}

func TestDeleteBatch_PartialFailure(t *testing.T) {
	dev := &fakeDevice{failIDs: map[int]error{2: errors.New("busy")}}
	c, logs := newTestConnection(t, dev)

	n, err := c.DeleteBatch(context.Background(), []int{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, []int{1, 2, 3}, dev.calls, "batch must not short-circuit")
	require.Equal(t, 1, strings.Count(logs.String(), `msg="failed to delete SMS"`))
	require.Contains(t, logs.String(), "partial SMS deletion")
}

func TestDeleteBatch_AllFail(t *testing.T) {
	dev := &fakeDevice{failIDs: map[int]error{
		1: errors.New("busy"),
		2: errors.New("gone"),
	}}
	c, _ := newTestConnection(t, dev)

	n, err := c.DeleteBatch(context.Background(), []int{1, 2})
	require.Equal(t, 0, n)
	require.ErrorIs(t, err, ErrCommunication)
	var commErr *CommunicationError
	require.ErrorAs(t, err, &commErr)
	require.Len(t, commErr.Failures, 2)
	require.Equal(t, 1, commErr.Failures[0].SMSID)
	require.Equal(t, 2, commErr.Failures[1].SMSID)
	require.Contains(t, err.Error(), "failed to delete any SMS")
	require.Contains(t, err.Error(), "gone")
}

func TestDeleteBatch_CancelledContext(t *testing.T) {
	dev := &fakeDevice{}
	c, _ := newTestConnection(t, dev)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.DeleteBatch(ctx, []int{1, 2})
	require.ErrorIs(t, err, ErrCommunication)
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, dev.calls)
}
