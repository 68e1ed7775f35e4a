package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	defaultSender = "Unknown"
	defaultBody   = ""
)

// Record is the transport-neutral shape of one inbox message: field name to
// primitive value. Records coming from a device are untrusted.
type Record map[string]any

// Message is a single SMS in a modem inbox snapshot.
type Message struct {
	ID        int     `json:"id"`
	Sender    string  `json:"sender"`
	Body      string  `json:"message"`
	Timestamp *string `json:"timestamp"`
}

// NewMessage builds a Message from an untrusted device record. Only a missing
// or invalid id is an error; every other field degrades to a default.
func NewMessage(rec Record) (Message, error) {
	if rec == nil {
		return Message{}, errors.New("domain: nil message record")
	}
	id, err := recordID(rec["id"])
	if err != nil {
		return Message{}, err
	}
	msg := Message{
		ID:     id,
		Sender: stringField(rec, "sender", defaultSender),
		Body:   stringField(rec, "message", defaultBody),
	}
	if ts, ok := timestampField(rec["timestamp"]); ok {
		msg.Timestamp = &ts
	}
	return msg, nil
}

// ToRecord returns the message as a Record suitable for event payloads and
// JSON export.
func (m Message) ToRecord() Record {
	rec := Record{
		"id":        m.ID,
		"sender":    m.Sender,
		"message":   m.Body,
		"timestamp": nil,
	}
	if m.Timestamp != nil {
		rec["timestamp"] = *m.Timestamp
	}
	return rec
}

// Records converts a snapshot to its record form, preserving order.
func Records(msgs []Message) []Record {
	out := make([]Record, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ToRecord())
	}
	return out
}

func recordID(v any) (int, error) {
	switch id := v.(type) {
	case nil:
		return 0, errors.New("domain: message id is missing")
	case int:
		return checkID(int64(id))
	case int32:
		return checkID(int64(id))
	case int64:
		return checkID(id)
	case float64:
		if id != math.Trunc(id) || math.IsInf(id, 0) {
			return 0, fmt.Errorf("domain: message id %v is not an integer", id)
		}
		return checkID(int64(id))
	case json.Number:
		n, err := id.Int64()
		if err != nil {
			return 0, fmt.Errorf("domain: message id %q: %w", id.String(), err)
		}
		return checkID(n)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("domain: message id %q: %w", id, err)
		}
		return checkID(n)
	default:
		return 0, fmt.Errorf("domain: message id has unsupported type %T", v)
	}
}

func checkID(n int64) (int, error) {
	if n < 0 || n > math.MaxInt32 {
		return 0, fmt.Errorf("domain: message id %d out of range", n)
	}
	return int(n), nil
}

// stringField accepts strings and numbers (senders are often bare phone
// numbers); anything else falls back to def.
func stringField(rec Record, key, def string) string {
	switch v := rec[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return def
	}
}

func timestampField(v any) (string, bool) {
	switch ts := v.(type) {
	case string:
		if strings.TrimSpace(ts) == "" {
			return "", false
		}
		return ts, true
	case time.Time:
		if ts.IsZero() {
			return "", false
		}
		return ts.Format(time.RFC3339), true
	default:
		return "", false
	}
}
