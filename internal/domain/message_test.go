package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewMessage_HappyPath(t *testing.T) {
	msg, err := NewMessage(Record{
		"id":        float64(7),
		"sender":    "+15551234",
		"message":   "hello",
		"timestamp": "2024-03-01T10:00:00Z",
	})
	require.NoError(t, err)
	require.Equal(t, 7, msg.ID)
	require.Equal(t, "+15551234", msg.Sender)
	require.Equal(t, "hello", msg.Body)
	require.NotNil(t, msg.Timestamp)
	require.Equal(t, "2024-03-01T10:00:00Z", *msg.Timestamp)
}

func TestNewMessage_DefaultsForMissingFields(t *testing.T) {
	msg, err := NewMessage(Record{"id": "3"})
	require.NoError(t, err)
	require.Equal(t, 3, msg.ID)
	require.Equal(t, "Unknown", msg.Sender)
	require.Equal(t, "", msg.Body)
	require.Nil(t, msg.Timestamp)
}

func TestNewMessage_DefaultsForIncompatibleTypes(t *testing.T) {
	msg, err := NewMessage(Record{
		"id":        json.Number("12"),
		"sender":    []string{"nope"},
		"message":   map[string]any{"x": 1},
		"timestamp": 12345,
	})
	require.NoError(t, err)
	require.Equal(t, 12, msg.ID)
	require.Equal(t, "Unknown", msg.Sender)
	require.Equal(t, "", msg.Body)
	require.Nil(t, msg.Timestamp)
}

func TestNewMessage_NumericSender(t *testing.T) {
	msg, err := NewMessage(Record{"id": 1, "sender": float64(5551234)})
	require.NoError(t, err)
	require.Equal(t, "5551234", msg.Sender)
}

func TestNewMessage_TimeValueTimestamp(t *testing.T) {
	ts := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	msg, err := NewMessage(Record{"id": 1, "timestamp": ts})
	require.NoError(t, err)
	require.Equal(t, "2024-05-06T07:08:09Z", *msg.Timestamp)
}

func TestNewMessage_InvalidID(t *testing.T) {
	cases := []struct {
		name string
		rec  Record
	}{
		{name: "nil record", rec: nil},
		{name: "missing", rec: Record{"sender": "a"}},
		{name: "fractional", rec: Record{"id": 1.5}},
		{name: "negative", rec: Record{"id": -4}},
		{name: "garbage string", rec: Record{"id": "abc"}},
		{name: "bool", rec: Record{"id": true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewMessage(tc.rec)
			require.Error(t, err)
		})
	}
}

func TestToRecord(t *testing.T) {
	ts := "2024-01-01T00:00:00"
	rec := Message{ID: 4, Sender: "Dad", Body: "hi", Timestamp: &ts}.ToRecord()
	require.Equal(t, Record{"id": 4, "sender": "Dad", "message": "hi", "timestamp": ts}, rec)

	rec = Message{ID: 5, Sender: "x"}.ToRecord()
	require.Nil(t, rec["timestamp"])
	require.Contains(t, rec, "timestamp")
}

func TestMessageJSON_UsesRecordKeys(t *testing.T) {
	raw, err := json.Marshal(Message{ID: 1, Sender: "a", Body: "b"})
	require.NoError(t, err)
	require.JSONEq(t, `{"id":1,"sender":"a","message":"b","timestamp":null}`, string(raw))
}

func TestWhitelist(t *testing.T) {
	w := NewWhitelist("b", "", "a", "b")
	require.Len(t, w, 2)
	require.True(t, w.Has("a"))
	require.False(t, w.Has("A"))
	require.Equal(t, []string{"a", "b"}, w.Sorted())

	var empty Whitelist
	require.False(t, empty.Has("a"))
	require.Empty(t, empty.Sorted())
}

func TestCleanupData_OmitsMessagesWhenEmpty(t *testing.T) {
	data := CleanupData(CleanupResult{Host: "h", WhitelistUsed: NewWhitelist("z"), DryRun: true})
	require.NotContains(t, data, AttrMessages)
	require.Equal(t, 0, data[AttrCountDeleted])
	require.Equal(t, []string{"z"}, data[AttrWhitelist])

	data = CleanupData(CleanupResult{Host: "h", CountDeleted: 2, DeletedIDs: []int{1, 3}})
	require.Equal(t, []int{1, 3}, data[AttrMessages])
}
