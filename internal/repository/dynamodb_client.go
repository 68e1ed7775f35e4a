package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"lte-sms-manager/internal/domain"
)

const (
	skPrefixEvt       = "EVT#"
	skMeta            = "META#"
	defaultTTL        = 30 * 24 * time.Hour
	defaultEventLimit = 20

	// sortKeyLayout is fixed width so sort keys compare in time order.
	sortKeyLayout = "2006-01-02T15:04:05.000000000Z"
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Client wraps a DynamoDB table holding published modem events.
type Client struct {
	api       dynamodbAPI
	tableName string
	ttl       time.Duration
}

// New creates a new repository Client. A non-positive ttl selects 30 days.
func New(api dynamodbAPI, tableName string, ttl time.Duration) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Client{api: api, tableName: tableName, ttl: ttl}, nil
}

// hostPK returns the DynamoDB partition key for a modem host.
func hostPK(host string) string {
	return "HOST#" + host
}

// evtSK orders events by time; the id breaks ties within the same instant.
func evtSK(ts time.Time, id string) string {
	return skPrefixEvt + ts.UTC().Format(sortKeyLayout) + "#" + id
}

// Publish stores the event and refreshes the host's activity record in one
// transaction.
func (c *Client) Publish(ctx context.Context, evt domain.Event) error {
	if evt.ID == "" || evt.Type == "" {
		return errors.New("repository: Publish: event id and type are required")
	}
	if evt.Host == "" {
		return errors.New("repository: Publish: event host is required")
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}

	item, err := eventItem(evt, c.expiry(evt.OccurredAt))
	if err != nil {
		return fmt.Errorf("repository: Publish: %w", err)
	}

	_, err = c.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           aws.String(c.tableName),
					Item:                item,
					ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
				},
			},
			{
				Put: &types.Put{
					TableName: aws.String(c.tableName),
					Item:      activityItem(evt, c.expiry(evt.OccurredAt)),
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("repository: Publish: %w", err)
	}
	return nil
}

// RecentEvents returns up to limit events for host, newest first.
func (c *Client) RecentEvents(ctx context.Context, host string, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = defaultEventLimit
	}

	out, err := c.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: hostPK(host)},
			":prefix": &types.AttributeValueMemberS{Value: skPrefixEvt},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, fmt.Errorf("repository: RecentEvents query: %w", err)
	}

	evts := make([]domain.Event, 0, len(out.Items))
	for _, item := range out.Items {
		evt, err := itemToEvent(item)
		if err != nil {
			return nil, fmt.Errorf("repository: RecentEvents unmarshal: %w", err)
		}
		evts = append(evts, evt)
	}
	return evts, nil
}

// LastActivity returns the activity record for host, or nil when nothing
// was ever published for it.
func (c *Client) LastActivity(ctx context.Context, host string) (*domain.HostActivity, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: hostPK(host)},
			"SK": &types.AttributeValueMemberS{Value: skMeta},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("repository: LastActivity get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return nil, nil
	}

	act, err := itemToActivity(host, out.Item)
	if err != nil {
		return nil, fmt.Errorf("repository: LastActivity decode: %w", err)
	}
	return &act, nil
}

func (c *Client) expiry(from time.Time) int64 {
	return from.Add(c.ttl).Unix()
}

func eventItem(evt domain.Event, ttl int64) (map[string]types.AttributeValue, error) {
	payload, err := json.Marshal(evt.Data)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return map[string]types.AttributeValue{
		"PK":         &types.AttributeValueMemberS{Value: hostPK(evt.Host)},
		"SK":         &types.AttributeValueMemberS{Value: evtSK(evt.OccurredAt, evt.ID)},
		"eventId":    &types.AttributeValueMemberS{Value: evt.ID},
		"eventType":  &types.AttributeValueMemberS{Value: evt.Type},
		"host":       &types.AttributeValueMemberS{Value: evt.Host},
		"payload":    &types.AttributeValueMemberS{Value: string(payload)},
		"occurredAt": &types.AttributeValueMemberS{Value: evt.OccurredAt.UTC().Format(time.RFC3339Nano)},
		"ttl":        &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", ttl)},
	}, nil
}

func activityItem(evt domain.Event, ttl int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":            &types.AttributeValueMemberS{Value: hostPK(evt.Host)},
		"SK":            &types.AttributeValueMemberS{Value: skMeta},
		"lastEventId":   &types.AttributeValueMemberS{Value: evt.ID},
		"lastEventType": &types.AttributeValueMemberS{Value: evt.Type},
		"lastEventAt":   &types.AttributeValueMemberS{Value: evt.OccurredAt.UTC().Format(time.RFC3339Nano)},
		"ttl":           &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", ttl)},
	}
}

// itemToEvent converts a DynamoDB attribute map to an Event.
func itemToEvent(item map[string]types.AttributeValue) (domain.Event, error) {
	id, err := strAttr(item, "eventId")
	if err != nil {
		return domain.Event{}, err
	}
	typ, err := strAttr(item, "eventType")
	if err != nil {
		return domain.Event{}, err
	}
	host, err := strAttr(item, "host")
	if err != nil {
		return domain.Event{}, err
	}
	occurred, err := timeAttr(item, "occurredAt")
	if err != nil {
		return domain.Event{}, err
	}

	evt := domain.Event{ID: id, Type: typ, Host: host, OccurredAt: occurred}
	if raw, _ := strAttr(item, "payload"); raw != "" { // allow empty
		if err := json.Unmarshal([]byte(raw), &evt.Data); err != nil {
			return domain.Event{}, fmt.Errorf("repository: decode payload: %w", err)
		}
	}
	return evt, nil
}

func itemToActivity(host string, item map[string]types.AttributeValue) (domain.HostActivity, error) {
	id, err := strAttr(item, "lastEventId")
	if err != nil {
		return domain.HostActivity{}, err
	}
	typ, err := strAttr(item, "lastEventType")
	if err != nil {
		return domain.HostActivity{}, err
	}
	at, err := timeAttr(item, "lastEventAt")
	if err != nil {
		return domain.HostActivity{}, err
	}
	return domain.HostActivity{Host: host, LastEventID: id, LastEventType: typ, LastEventAt: at}, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func timeAttr(item map[string]types.AttributeValue, key string) (time.Time, error) {
	s, err := strAttr(item, key)
	if err != nil {
		return time.Time{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return ts, nil
}
