package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"

	"lte-sms-manager/internal/domain"
	"lte-sms-manager/internal/modem"
	"lte-sms-manager/internal/usecase"
)

type stubUseCase struct {
	inbox   usecase.InboxOutput
	deleted usecase.DeleteSMSOutput
	cleanup domain.CleanupResult
	recent  usecase.RecentEventsOutput
	modems  []modem.Info
	err     error

	host      string
	listed    bool
	deleteIn  usecase.DeleteSMSInput
	cleanupIn usecase.CleanupInput
	limit     int
}

func (s *stubUseCase) ListInbox(_ context.Context, host string) (usecase.InboxOutput, error) {
	s.host = host
	s.listed = true
	return s.inbox, s.err
}

func (s *stubUseCase) GetInboxJSON(_ context.Context, host string) (usecase.InboxOutput, error) {
	s.host = host
	return s.inbox, s.err
}

func (s *stubUseCase) DeleteSMS(_ context.Context, in usecase.DeleteSMSInput) (usecase.DeleteSMSOutput, error) {
	s.deleteIn = in
	return s.deleted, s.err
}

func (s *stubUseCase) CleanupInbox(_ context.Context, in usecase.CleanupInput) (domain.CleanupResult, error) {
	s.cleanupIn = in
	return s.cleanup, s.err
}

func (s *stubUseCase) Modems() []modem.Info {
	return s.modems
}

func (s *stubUseCase) RecentEvents(_ context.Context, host string, limit int) (usecase.RecentEventsOutput, error) {
	s.host = host
	s.limit = limit
	return s.recent, s.err
}

func makeEvent(method, path, body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: method,
		Path:       path,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       body,
	}
}

func parseBody[T any](t *testing.T, body string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	return v
}

func mustHandler(t *testing.T, uc InboxUseCase) *Handler {
	t.Helper()
	h, err := NewHandler(uc)
	require.NoError(t, err)
	return h
}

func TestNewHandler_ValidatesDependency(t *testing.T) {
	_, err := NewHandler(nil)
	require.Error(t, err)
}

func TestHandle_ListInbox(t *testing.T) {
	uc := &stubUseCase{inbox: usecase.InboxOutput{
		Host:     "192.168.5.1",
		Messages: []domain.Record{{"id": 1, "sender": "Dad", "message": "hi", "timestamp": nil}},
	}}
	h := mustHandler(t, uc)

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, "/list_inbox", `{"host":"192.168.5.1"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, uc.listed)
	require.Equal(t, "192.168.5.1", uc.host)
	require.JSONEq(t, `{"host":"192.168.5.1","messages":[{"id":1,"sender":"Dad","message":"hi","timestamp":null}]}`, resp.Body)
	require.NotEmpty(t, resp.Headers["X-Correlation-Id"])
}

func TestHandle_ListInboxEmptyBody(t *testing.T) {
	uc := &stubUseCase{}
	h := mustHandler(t, uc)

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, "/list_inbox/", ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "", uc.host)
}

func TestHandle_GetInboxJSONFromQuery(t *testing.T) {
	uc := &stubUseCase{}
	h := mustHandler(t, uc)

	event := makeEvent(http.MethodGet, "/get_inbox_json", "")
	event.QueryStringParameters = map[string]string{"host": "10.0.0.1"}
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "10.0.0.1", uc.host)
	require.False(t, uc.listed)
}

func TestHandle_DeleteSMSAcceptsIntOrList(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []int
	}{
		{name: "single", body: `{"sms_id":7}`, want: []int{7}},
		{name: "list", body: `{"host":"h","sms_id":[1,2,3]}`, want: []int{1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := &stubUseCase{deleted: usecase.DeleteSMSOutput{Deleted: len(tt.want)}}
			h := mustHandler(t, uc)
			resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, "/delete_sms", tt.body))
			require.NoError(t, err)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			require.Equal(t, tt.want, uc.deleteIn.IDs)
		})
	}
}

func TestHandle_DeleteSMSRejectsBadID(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "string", body: `{"sms_id":"seven"}`},
		{name: "null", body: `{"sms_id":null}`},
		{name: "null in list", body: `{"sms_id":[null]}`},
		{name: "null among ids", body: `{"sms_id":[4,null]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := &stubUseCase{}
			h := mustHandler(t, uc)
			resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, "/delete_sms", tt.body))
			require.NoError(t, err)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			require.Nil(t, uc.deleteIn.IDs, "use case must not be called")

			out := parseBody[errorResponse](t, resp.Body)
			require.Equal(t, string(usecase.ErrorInvalidInput), out.Error)
			require.Contains(t, out.Message, "sms_id")
		})
	}
}

func TestHandle_CleanupInboxWhitelistNull(t *testing.T) {
	uc := &stubUseCase{}
	h := mustHandler(t, uc)

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, "/cleanup_inbox", `{"whitelist":null}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, uc.cleanupIn.Whitelist)

	resp, err = h.Handle(context.Background(), makeEvent(http.MethodPost, "/cleanup_inbox", `{"whitelist":["Bank",null]}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandle_CleanupInbox(t *testing.T) {
	uc := &stubUseCase{cleanup: domain.CleanupResult{
		Host:          "h",
		CountDeleted:  2,
		DeletedIDs:    []int{3, 1},
		WhitelistUsed: domain.NewWhitelist("Dad"),
		DryRun:        true,
	}}
	h := mustHandler(t, uc)

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, "/cleanup_inbox",
		`{"retain_count":1,"retain_days":null,"whitelist":"Dad","dry_run":true}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Equal(t, 1, *uc.cleanupIn.RetainCount)
	require.Nil(t, uc.cleanupIn.RetainDays)
	require.Equal(t, []string{"Dad"}, uc.cleanupIn.Whitelist)
	require.True(t, *uc.cleanupIn.DryRun)
	require.JSONEq(t, `{"host":"h","count_deleted":2,"messages":[3,1],"whitelist":["Dad"],"dry_run":true}`, resp.Body)
}

func TestHandle_CleanupInboxDefaults(t *testing.T) {
	uc := &stubUseCase{cleanup: domain.CleanupResult{Host: "h", WhitelistUsed: domain.NewWhitelist()}}
	h := mustHandler(t, uc)

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, "/cleanup_inbox", `{}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Nil(t, uc.cleanupIn.RetainCount)
	require.Nil(t, uc.cleanupIn.DryRun)
	require.JSONEq(t, `{"host":"h","count_deleted":0,"whitelist":[],"dry_run":false}`, resp.Body)
}

func TestHandle_Modems(t *testing.T) {
	uc := &stubUseCase{modems: []modem.Info{{Host: "a", Title: "Kitchen"}}}
	h := mustHandler(t, uc)

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodGet, "/modems", ""))
	require.NoError(t, err)
	require.JSONEq(t, `{"modems":[{"host":"a","title":"Kitchen"}]}`, resp.Body)
}

func TestHandle_Events(t *testing.T) {
	uc := &stubUseCase{recent: usecase.RecentEventsOutput{Host: "a"}}
	h := mustHandler(t, uc)

	event := makeEvent(http.MethodGet, "/events", "")
	event.QueryStringParameters = map[string]string{"host": "a", "limit": "5"}
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "a", uc.host)
	require.Equal(t, 5, uc.limit)

	event.QueryStringParameters["limit"] = "many"
	resp, err = h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandle_RoutingErrors(t *testing.T) {
	h := mustHandler(t, &stubUseCase{})

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, "/nope", ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, codeNotFound, parseBody[errorResponse](t, resp.Body).Error)

	resp, err = h.Handle(context.Background(), makeEvent(http.MethodGet, "/delete_sms", ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHandle_InvalidBody(t *testing.T) {
	for _, path := range []string{"/cleanup_inbox", "/get_inbox_json", "/events"} {
		t.Run(path, func(t *testing.T) {
			uc := &stubUseCase{}
			h := mustHandler(t, uc)

			resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, path, `not-json`))
			require.NoError(t, err)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)

			out := parseBody[errorResponse](t, resp.Body)
			require.Equal(t, string(usecase.ErrorInvalidInput), out.Error)
			require.Empty(t, uc.host)
		})
	}
}

func TestHandle_MapsUseCaseErrors(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{name: "invalid input", err: &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "negative_retain_count"}, status: http.StatusBadRequest, code: string(usecase.ErrorInvalidInput), message: "negative_retain_count"},
		{name: "configuration missing", err: &usecase.Error{Code: usecase.ErrorConfigurationMissing, Reason: "configuration_missing", Err: &modem.ConfigurationError{Reason: "no Netgear LTE modem found at x", AvailableHosts: []string{"a"}}}, status: http.StatusBadRequest, code: string(usecase.ErrorConfigurationMissing), message: "no Netgear LTE modem found at x. Available hosts: [a]"},
		{name: "capability missing", err: &usecase.Error{Code: usecase.ErrorCapabilityMissing, Reason: "list_error", Err: errors.New("no sms section")}, status: http.StatusNotImplemented, code: string(usecase.ErrorCapabilityMissing), message: "no sms section"},
		{name: "communication", err: &usecase.Error{Code: usecase.ErrorCommunicationFailure, Reason: "list_error", Err: errors.New("timeout")}, status: http.StatusBadGateway, code: string(usecase.ErrorCommunicationFailure), message: "timeout"},
		{name: "internal", err: &usecase.Error{Code: usecase.ErrorInternal, Reason: "publish_error"}, status: http.StatusInternalServerError, code: string(usecase.ErrorInternal), message: "publish_error"},
		{name: "unexpected", err: errors.New("boom"), status: http.StatusInternalServerError, code: string(usecase.ErrorInternal), message: "internal error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := mustHandler(t, &stubUseCase{err: tc.err})

			resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, "/list_inbox", `{}`))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)

			out := parseBody[errorResponse](t, resp.Body)
			require.Equal(t, tc.code, out.Error)
			require.Equal(t, tc.message, out.Message)
		})
	}
}

func TestHandle_UsesProvidedCorrelationID_CaseInsensitive(t *testing.T) {
	h := mustHandler(t, &stubUseCase{})

	event := makeEvent(http.MethodGet, "/modems", "")
	event.Headers["x-correlation-id"] = "corr-123"
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, "corr-123", resp.Headers["X-Correlation-Id"])
}

func TestHandle_GeneratesCorrelationID(t *testing.T) {
	orig := newCorrelationID
	newCorrelationID = func() string { return "generated" }
	t.Cleanup(func() { newCorrelationID = orig })

	h := mustHandler(t, &stubUseCase{})
	resp, err := h.Handle(context.Background(), makeEvent(http.MethodGet, "/modems", ""))
	require.NoError(t, err)
	require.Equal(t, "generated", resp.Headers["X-Correlation-Id"])
}
