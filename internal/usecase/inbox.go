package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"lte-sms-manager/internal/cleanup"
	"lte-sms-manager/internal/domain"
	"lte-sms-manager/internal/modem"
	"lte-sms-manager/internal/whitelist"
)

const defaultRecentEvents = 20

type SettingsLoader interface {
	Load(ctx context.Context) (map[string]string, error)
}

type Publisher interface {
	Publish(ctx context.Context, evt domain.Event) error
}

type EventReader interface {
	RecentEvents(ctx context.Context, host string, limit int) ([]domain.Event, error)
	LastActivity(ctx context.Context, host string) (*domain.HostActivity, error)
}

type InboxService struct {
	registry  *modem.Registry
	settings  SettingsLoader
	publisher Publisher
	events    EventReader
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*InboxService)

// WithEventReader enables RecentEvents.
func WithEventReader(r EventReader) Option {
	return func(s *InboxService) {
		s.events = r
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *InboxService) {
		if now != nil {
			s.now = now
		}
	}
}

type InboxOutput struct {
	Host     string          `json:"host"`
	Messages []domain.Record `json:"messages"`
}

type DeleteSMSInput struct {
	Host string
	IDs  []int
}

type DeleteSMSOutput struct {
	Host      string `json:"host"`
	Requested int    `json:"requested"`
	Deleted   int    `json:"count_deleted"`
}

// CleanupInput carries the per-call policy. Nil fields take the defaults
// (24 messages, no age limit, dry run).
type CleanupInput struct {
	Host        string
	RetainCount *int
	RetainDays  *int
	Whitelist   []string
	DryRun      *bool
}

type RecentEventsOutput struct {
	Host         string               `json:"host"`
	LastActivity *domain.HostActivity `json:"last_activity"`
	Events       []domain.Event       `json:"events"`
}

func NewInboxService(registry *modem.Registry, settings SettingsLoader, publisher Publisher, logger *slog.Logger, opts ...Option) (*InboxService, error) {
	if registry == nil {
		return nil, errors.New("usecase: modem registry must not be nil")
	}
	if settings == nil {
		return nil, errors.New("usecase: settings loader must not be nil")
	}
	if publisher == nil {
		return nil, errors.New("usecase: publisher must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &InboxService{
		registry:  registry,
		settings:  settings,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ListInbox fetches the inbox and publishes it as an inbox listed event.
func (s *InboxService) ListInbox(ctx context.Context, host string) (InboxOutput, error) {
	resolved, msgs, err := s.fetchInbox(ctx, host, "list_inbox")
	if err != nil {
		return InboxOutput{}, err
	}

	s.logger.Info("listed SMS inbox", "host", resolved, "messages", len(msgs))
	if err := s.publish(ctx, domain.EventInboxListed, resolved, domain.InboxListedData(resolved, msgs)); err != nil {
		return InboxOutput{}, err
	}
	return InboxOutput{Host: resolved, Messages: domain.Records(msgs)}, nil
}

// GetInboxJSON fetches the inbox and returns it without publishing.
func (s *InboxService) GetInboxJSON(ctx context.Context, host string) (InboxOutput, error) {
	resolved, msgs, err := s.fetchInbox(ctx, host, "get_inbox_json")
	if err != nil {
		return InboxOutput{}, err
	}
	return InboxOutput{Host: resolved, Messages: domain.Records(msgs)}, nil
}

// DeleteSMS deletes the given ids. Partial failures are logged by the modem
// connection and reported through the returned count.
func (s *InboxService) DeleteSMS(ctx context.Context, in DeleteSMSInput) (DeleteSMSOutput, error) {
	if len(in.IDs) == 0 {
		return DeleteSMSOutput{}, newError(ErrorInvalidInput, "sms_id_required", nil)
	}
	for _, id := range in.IDs {
		if id < 0 {
			return DeleteSMSOutput{}, newError(ErrorInvalidInput, "negative_sms_id", nil)
		}
	}

	conn, err := s.connect(in.Host)
	if err != nil {
		return DeleteSMSOutput{}, err
	}

	s.logger.Info("deleting SMS", "host", conn.Host(), "count", len(in.IDs))
	deleted, err := conn.DeleteBatch(ctx, in.IDs)
	if err != nil {
		return DeleteSMSOutput{}, s.fail("delete_sms", conn.Host(), modemError("delete_error", err))
	}
	s.logger.Info("deleted SMS", "host", conn.Host(), "count_deleted", deleted)

	return DeleteSMSOutput{Host: conn.Host(), Requested: len(in.IDs), Deleted: deleted}, nil
}

// CleanupInbox applies the retention policy to the inbox. In dry run the
// selected ids are only reported.
func (s *InboxService) CleanupInbox(ctx context.Context, in CleanupInput) (domain.CleanupResult, error) {
	policy, err := cleanupPolicy(in)
	if err != nil {
		return domain.CleanupResult{}, err
	}

	conn, err := s.connect(in.Host)
	if err != nil {
		return domain.CleanupResult{}, err
	}
	host := conn.Host()

	settings, err := s.settings.Load(ctx)
	if err != nil {
		return domain.CleanupResult{}, s.fail("cleanup_inbox", host, newError(ErrorInternal, "settings_load_error", err))
	}
	wl := whitelist.FromSettings(settings, in.Whitelist)

	s.logger.Info("fetching SMS inbox for cleanup", "host", host)
	msgs, err := conn.ListMessages(ctx)
	if err != nil {
		return domain.CleanupResult{}, s.fail("cleanup_inbox", host, modemError("list_error", err))
	}

	sel := cleanup.Select(msgs, wl, policy, s.now())
	res := domain.CleanupResult{
		Host:          host,
		DeletedIDs:    sel.Delete,
		WhitelistUsed: wl,
		DryRun:        policy.DryRun,
	}

	switch {
	case len(sel.Delete) == 0:
		s.logger.Info("no messages to delete after applying cleanup policy", "host", host)
	case policy.DryRun:
		res.CountDeleted = len(sel.Delete)
		s.logger.Info("dry run cleanup", "host", host, "would_delete", res.CountDeleted)
	default:
		deleted, err := conn.DeleteBatch(ctx, sel.Delete)
		if err != nil {
			return domain.CleanupResult{}, s.fail("cleanup_inbox", host, modemError("delete_error", err))
		}
		res.CountDeleted = deleted
		s.logger.Info("cleanup deleted messages", "host", host, "count_deleted", deleted, "selected", len(sel.Delete))
	}

	if err := s.publish(ctx, domain.EventCleanupComplete, host, domain.CleanupData(res)); err != nil {
		return domain.CleanupResult{}, err
	}
	return res, nil
}

// Modems lists the configured modems that have a device attached.
func (s *InboxService) Modems() []modem.Info {
	return s.registry.Live()
}

// RecentEvents returns the newest published events for a modem along with
// its activity record.
func (s *InboxService) RecentEvents(ctx context.Context, host string, limit int) (RecentEventsOutput, error) {
	if s.events == nil {
		return RecentEventsOutput{}, newError(ErrorInternal, "events_unavailable", nil)
	}
	if limit < 0 {
		return RecentEventsOutput{}, newError(ErrorInvalidInput, "negative_limit", nil)
	}
	if limit == 0 {
		limit = defaultRecentEvents
	}

	ep, err := s.registry.Resolve(host)
	if err != nil {
		return RecentEventsOutput{}, s.fail("recent_events", host, modemError("configuration_missing", err))
	}

	evts, err := s.events.RecentEvents(ctx, ep.Host, limit)
	if err != nil {
		return RecentEventsOutput{}, newError(ErrorInternal, "events_query_error", err)
	}
	act, err := s.events.LastActivity(ctx, ep.Host)
	if err != nil {
		return RecentEventsOutput{}, newError(ErrorInternal, "events_query_error", err)
	}
	return RecentEventsOutput{Host: ep.Host, LastActivity: act, Events: evts}, nil
}

func (s *InboxService) fetchInbox(ctx context.Context, host, op string) (string, []domain.Message, error) {
	conn, err := s.connect(host)
	if err != nil {
		return "", nil, err
	}

	msgs, err := conn.ListMessages(ctx)
	if err != nil {
		return "", nil, s.fail(op, conn.Host(), modemError("list_error", err))
	}
	return conn.Host(), msgs, nil
}

func (s *InboxService) connect(host string) (*modem.Connection, error) {
	ep, err := s.registry.Resolve(host)
	if err != nil {
		return nil, s.fail("resolve_modem", host, modemError("configuration_missing", err))
	}
	conn, err := modem.NewConnection(ep.Host, ep.Device, s.logger)
	if err != nil {
		return nil, newError(ErrorInternal, "connection_error", err)
	}
	return conn, nil
}

func (s *InboxService) publish(ctx context.Context, typ, host string, data map[string]any) error {
	evt := domain.Event{
		ID:         newUUID(),
		Type:       typ,
		Host:       host,
		Data:       data,
		OccurredAt: s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Error("failed to publish event", "type", typ, "host", host, "err", err)
		return newError(ErrorInternal, "publish_error", err)
	}
	return nil
}

// fail logs err at the level its class deserves and returns it.
func (s *InboxService) fail(op, host string, err *Error) *Error {
	switch err.Code {
	case ErrorCommunicationFailure:
		s.logger.Warn("modem communication error", "op", op, "host", host, "err", err.Err)
	case ErrorConfigurationMissing:
		s.logger.Error("configuration error", "op", op, "host", host, "err", err.Err)
	case ErrorCapabilityMissing:
		s.logger.Error("API compatibility error", "op", op, "host", host, "err", err.Err)
	default:
		s.logger.Error("unexpected error", "op", op, "host", host, "reason", err.Reason, "err", err.Err)
	}
	return err
}

func cleanupPolicy(in CleanupInput) (domain.CleanupPolicy, error) {
	policy := domain.DefaultCleanupPolicy()
	if in.RetainCount != nil {
		if *in.RetainCount < 0 {
			return policy, newError(ErrorInvalidInput, "negative_retain_count", nil)
		}
		policy.RetainCount = *in.RetainCount
	}
	if in.RetainDays != nil {
		if *in.RetainDays < 0 {
			return policy, newError(ErrorInvalidInput, "negative_retain_days", nil)
		}
		policy.RetainDays = *in.RetainDays
	}
	if in.DryRun != nil {
		policy.DryRun = *in.DryRun
	}
	return policy, nil
}

var newUUID = func() string {
	return uuid.NewString()
}
