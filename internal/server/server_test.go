package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/gglounge/internal/branchcontext"
	"github.com/smallbiznis/gglounge/internal/loyalty"
	"github.com/smallbiznis/gglounge/internal/payment"
	"github.com/smallbiznis/gglounge/internal/pricing"
	sessiondomain "github.com/smallbiznis/gglounge/internal/session/domain"
	"github.com/smallbiznis/gglounge/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessionService struct {
	create func(ctx context.Context, req sessiondomain.CreateSessionRequest) (*sessiondomain.Session, error)
	close  func(ctx context.Context, id string, req sessiondomain.CloseSessionRequest) (*sessiondomain.Session, error)
	get    func(ctx context.Context, id string) (*sessiondomain.Session, error)
}

func (f *fakeSessionService) CreateSession(ctx context.Context, req sessiondomain.CreateSessionRequest) (*sessiondomain.Session, error) {
	return f.create(ctx, req)
}

func (f *fakeSessionService) ExtendSession(context.Context, string, sessiondomain.ExtendSessionRequest) (*sessiondomain.Session, error) {
	return nil, sessiondomain.ErrNotExtendable
}

func (f *fakeSessionService) AddSnacksToSession(context.Context, string, sessiondomain.AddSnacksRequest) (*sessiondomain.Session, error) {
	return nil, fmt.Errorf("%w: %w", sessiondomain.ErrValidation, fmt.Errorf("%w: Chips has 2 left", sessiondomain.ErrInsufficientStock))
}

func (f *fakeSessionService) CloseSession(ctx context.Context, id string, req sessiondomain.CloseSessionRequest) (*sessiondomain.Session, error) {
	return f.close(ctx, id, req)
}

func (f *fakeSessionService) GetSession(ctx context.Context, id string) (*sessiondomain.Session, error) {
	return f.get(ctx, id)
}

func (f *fakeSessionService) ListSessions(context.Context, sessiondomain.ListSessionsRequest) ([]*sessiondomain.Session, error) {
	return []*sessiondomain.Session{}, nil
}

func (f *fakeSessionService) RetryPending(ctx context.Context, id string) (*sessiondomain.Session, error) {
	return f.get(ctx, id)
}

func newTestRouter(svc sessiondomain.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandlingMiddleware())

	server := &Server{engine: router, sessionSvc: svc}
	server.registerAPIRoutes()
	server.registerFallback()
	return router
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderBranch, "42")
	req.Header.Set(HeaderOperator, "op-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func errorType(t *testing.T, payload map[string]any) string {
	t.Helper()
	errPayload, ok := payload["error"].(map[string]any)
	require.True(t, ok, "missing error payload: %v", payload)
	return errPayload["type"].(string)
}

func TestCreateSessionPassesBranchAndOperator(t *testing.T) {
	var gotBranch snowflake.ID
	var gotOperator string
	svc := &fakeSessionService{
		create: func(ctx context.Context, req sessiondomain.CreateSessionRequest) (*sessiondomain.Session, error) {
			gotBranch, _ = branchcontext.BranchIDFromContext(ctx)
			gotOperator = branchcontext.OperatorFromContext(ctx)
			assert.Equal(t, "7", req.DeviceID)
			assert.True(t, req.Duration.Equal(decimal.NewFromInt(90)))
			return &sessiondomain.Session{ID: 99, Status: sessiondomain.SessionStatusActive}, nil
		},
	}

	rec, body := doJSON(t, newTestRouter(svc), http.MethodPost, "/api/sessions", map[string]any{
		"device_id":     "7",
		"customer_id":   "8",
		"game_id":       "9",
		"player_count":  2,
		"duration":      90,
		"duration_unit": "minutes",
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, snowflake.ID(42), gotBranch)
	assert.Equal(t, "op-1", gotOperator)
	data := body["data"].(map[string]any)
	assert.Equal(t, "Active", data["status"])
}

func TestMissingBranchHeaderIsRejected(t *testing.T) {
	router := newTestRouter(&fakeSessionService{})

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "validation_error", errorType(t, body))
}

func TestMalformedBodyIsInvalidRequest(t *testing.T) {
	router := newTestRouter(&fakeSessionService{})

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/1/close", bytes.NewBufferString("{"))
	req.Header.Set(HeaderBranch, "42")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCloseErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"mismatch", payment.ErrPaymentMismatch, http.StatusUnprocessableEntity, "payment_mismatch"},
		{"wallet", payment.ErrInsufficientWalletBalance, http.StatusUnprocessableEntity, "insufficient_wallet_balance"},
		{"redemption", loyalty.ErrRedemptionExceedsCeiling, http.StatusUnprocessableEntity, "redemption_exceeds_ceiling"},
		{"closed", sessiondomain.ErrSessionClosed, http.StatusConflict, "conflict"},
		{"missing config", pricing.ErrConfigurationMissing, http.StatusPreconditionFailed, "configuration_missing"},
		{"not found", sessiondomain.ErrSessionNotFound, http.StatusNotFound, "not_found"},
		{"field validation", &validation.Error{Fields: []validation.FieldError{{Field: "payment_mode", Rule: "required"}}}, http.StatusBadRequest, "validation_error"},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeSessionService{
				close: func(context.Context, string, sessiondomain.CloseSessionRequest) (*sessiondomain.Session, error) {
					return nil, tc.err
				},
			}
			rec, body := doJSON(t, newTestRouter(svc), http.MethodPost, "/api/sessions/1/close", map[string]any{
				"payment_mode": "Cash",
			})
			require.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.Equal(t, tc.kind, errorType(t, body))
		})
	}
}

func TestWrappedValidationErrorExposesDomainCode(t *testing.T) {
	rec, body := doJSON(t, newTestRouter(&fakeSessionService{}), http.MethodPost, "/api/sessions/1/snacks", map[string]any{
		"snacks": []map[string]any{{"snack_id": "3", "quantity": 5}},
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	errs := body["error"].(map[string]any)["errors"].([]any)
	require.Len(t, errs, 1)
	first := errs[0].(map[string]any)
	assert.Equal(t, "insufficient_stock", first["code"])
	assert.Equal(t, "Chips has 2 left", first["message"])
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	rec, body := doJSON(t, newTestRouter(&fakeSessionService{}), http.MethodGet, "/api/nope", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errorType(t, body))
}

func TestClassifyErrorForLog(t *testing.T) {
	kind, code := classifyErrorForLog(fmt.Errorf("%w: %w", validation.ErrValidation, pricing.ErrInvalidDuration))
	assert.Equal(t, "validation_error", kind)
	assert.Equal(t, "invalid_duration", code)

	kind, code = classifyErrorForLog(fmt.Errorf("boom"))
	assert.Equal(t, "internal_error", kind)
	assert.Equal(t, "unhandled", code)

	kind, code = classifyErrorForLog(nil)
	assert.Empty(t, kind)
	assert.Empty(t, code)
}
