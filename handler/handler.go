package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"lte-sms-manager/internal/domain"
	"lte-sms-manager/internal/modem"
	"lte-sms-manager/internal/usecase"
)

const (
	correlationHeader = "X-Correlation-Id"
	codeNotFound      = "NOT_FOUND"
	codeNotAllowed    = "METHOD_NOT_ALLOWED"
)

// InboxUseCase is the command surface served over API Gateway.
type InboxUseCase interface {
	ListInbox(ctx context.Context, host string) (usecase.InboxOutput, error)
	GetInboxJSON(ctx context.Context, host string) (usecase.InboxOutput, error)
	DeleteSMS(ctx context.Context, in usecase.DeleteSMSInput) (usecase.DeleteSMSOutput, error)
	CleanupInbox(ctx context.Context, in usecase.CleanupInput) (domain.CleanupResult, error)
	Modems() []modem.Info
	RecentEvents(ctx context.Context, host string, limit int) (usecase.RecentEventsOutput, error)
}

type Handler struct {
	uc InboxUseCase
}

type hostRequest struct {
	Host string `json:"host"`
}

type deleteRequest struct {
	Host  string `json:"host"`
	SMSID smsIDs `json:"sms_id"`
}

type cleanupRequest struct {
	Host        string     `json:"host"`
	RetainCount *int       `json:"retain_count"`
	RetainDays  *int       `json:"retain_days"`
	Whitelist   stringList `json:"whitelist"`
	DryRun      *bool      `json:"dry_run"`
}

type modemsResponse struct {
	Modems []modem.Info `json:"modems"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

var jsonNull = []byte("null")

// smsIDs accepts a single id or a list of ids. null is rejected so it can
// never decode to id 0.
type smsIDs []int

func (s *smsIDs) UnmarshalJSON(b []byte) error {
	errInvalid := errors.New("sms_id must be an integer or a list of integers")
	if bytes.Equal(bytes.TrimSpace(b), jsonNull) {
		return errInvalid
	}

	var one int
	if err := json.Unmarshal(b, &one); err == nil {
		*s = smsIDs{one}
		return nil
	}
	var many []*int
	if err := json.Unmarshal(b, &many); err != nil {
		return errInvalid
	}
	ids := make(smsIDs, 0, len(many))
	for _, id := range many {
		if id == nil {
			return errInvalid
		}
		ids = append(ids, *id)
	}
	*s = ids
	return nil
}

// stringList accepts a single string or a list of strings. null means no
// entries.
type stringList []string

func (l *stringList) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), jsonNull) {
		*l = nil
		return nil
	}
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*l = stringList{one}
		return nil
	}
	errInvalid := errors.New("whitelist must be a string or a list of strings")
	var many []*string
	if err := json.Unmarshal(b, &many); err != nil {
		return errInvalid
	}
	out := make(stringList, 0, len(many))
	for _, v := range many {
		if v == nil {
			return errInvalid
		}
		out = append(out, *v)
	}
	*l = out
	return nil
}

func NewHandler(uc InboxUseCase) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: use case must not be nil")
	}
	return &Handler{uc: uc}, nil
}

// Handle routes an API Gateway request to the matching inbox command.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := correlationID(req.Headers)
	path := strings.TrimRight(req.Path, "/")

	var (
		body any
		err  error
	)
	switch path {
	case "/list_inbox":
		body, err = h.post(req, func() (any, error) {
			var in hostRequest
			if err := decode(req.Body, &in); err != nil {
				return nil, err
			}
			return h.uc.ListInbox(ctx, in.Host)
		})
	case "/get_inbox_json":
		body, err = h.read(req, func() (any, error) {
			host, err := requestHost(req)
			if err != nil {
				return nil, err
			}
			return h.uc.GetInboxJSON(ctx, host)
		})
	case "/delete_sms":
		body, err = h.post(req, func() (any, error) {
			var in deleteRequest
			if err := decode(req.Body, &in); err != nil {
				return nil, err
			}
			return h.uc.DeleteSMS(ctx, usecase.DeleteSMSInput{Host: in.Host, IDs: in.SMSID})
		})
	case "/cleanup_inbox":
		body, err = h.post(req, func() (any, error) {
			var in cleanupRequest
			if err := decode(req.Body, &in); err != nil {
				return nil, err
			}
			res, err := h.uc.CleanupInbox(ctx, usecase.CleanupInput{
				Host:        in.Host,
				RetainCount: in.RetainCount,
				RetainDays:  in.RetainDays,
				Whitelist:   in.Whitelist,
				DryRun:      in.DryRun,
			})
			if err != nil {
				return nil, err
			}
			return domain.CleanupData(res), nil
		})
	case "/modems":
		body, err = h.read(req, func() (any, error) {
			return modemsResponse{Modems: h.uc.Modems()}, nil
		})
	case "/events":
		body, err = h.read(req, func() (any, error) {
			limit := 0
			if raw := req.QueryStringParameters["limit"]; raw != "" {
				n, err := strconv.Atoi(raw)
				if err != nil {
					return nil, &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "invalid_limit", Err: fmt.Errorf("limit must be an integer, got %q", raw)}
				}
				limit = n
			}
			host, err := requestHost(req)
			if err != nil {
				return nil, err
			}
			return h.uc.RecentEvents(ctx, host, limit)
		})
	default:
		return jsonResponse(http.StatusNotFound, corrID, errorResponse{
			Error:   codeNotFound,
			Message: fmt.Sprintf("no route for %s", req.Path),
		}), nil
	}

	if err != nil {
		return errorToResponse(corrID, path, err), nil
	}
	return jsonResponse(http.StatusOK, corrID, body), nil
}

var errMethodNotAllowed = errors.New("method not allowed")

func (h *Handler) post(req events.APIGatewayProxyRequest, fn func() (any, error)) (any, error) {
	if req.HTTPMethod != http.MethodPost {
		return nil, errMethodNotAllowed
	}
	return fn()
}

func (h *Handler) read(req events.APIGatewayProxyRequest, fn func() (any, error)) (any, error) {
	if req.HTTPMethod != http.MethodGet && req.HTTPMethod != http.MethodPost {
		return nil, errMethodNotAllowed
	}
	return fn()
}

func decode(body string, v any) error {
	if strings.TrimSpace(body) == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "invalid_body", Err: err}
	}
	return nil
}

// requestHost reads host from the query string, falling back to a JSON body.
func requestHost(req events.APIGatewayProxyRequest) (string, error) {
	if host := req.QueryStringParameters["host"]; host != "" {
		return host, nil
	}
	var in hostRequest
	if err := decode(req.Body, &in); err != nil {
		return "", err
	}
	return in.Host, nil
}

func errorToResponse(corrID, path string, err error) events.APIGatewayProxyResponse {
	if errors.Is(err, errMethodNotAllowed) {
		return jsonResponse(http.StatusMethodNotAllowed, corrID, errorResponse{Error: codeNotAllowed, Message: err.Error()})
	}

	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		slog.Error("unexpected handler error", "path", path, "correlation_id", corrID, "err", err)
		return jsonResponse(http.StatusInternalServerError, corrID, errorResponse{
			Error:   string(usecase.ErrorInternal),
			Message: "internal error",
		})
	}

	status := http.StatusInternalServerError
	switch ucErr.Code {
	case usecase.ErrorInvalidInput, usecase.ErrorConfigurationMissing:
		status = http.StatusBadRequest
	case usecase.ErrorCapabilityMissing:
		status = http.StatusNotImplemented
	case usecase.ErrorCommunicationFailure:
		status = http.StatusBadGateway
	}

	msg := ucErr.Reason
	if ucErr.Err != nil {
		msg = ucErr.Err.Error()
	}
	if status >= http.StatusInternalServerError {
		slog.Warn("request failed", "path", path, "correlation_id", corrID, "code", ucErr.Code, "reason", ucErr.Reason, "err", ucErr.Err)
	}
	return jsonResponse(status, corrID, errorResponse{Error: string(ucErr.Code), Message: msg})
}

func jsonResponse(status int, corrID string, body any) events.APIGatewayProxyResponse {
	raw, err := json.Marshal(body)
	if err != nil {
		status = http.StatusInternalServerError
		raw = []byte(`{"error":"INTERNAL_ERROR","message":"failed to encode response"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: corrID,
		},
		Body: string(raw),
	}
}

func correlationID(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, correlationHeader) && v != "" {
			return v
		}
	}
	return newCorrelationID()
}

var newCorrelationID = func() string {
	return uuid.NewString()
}
