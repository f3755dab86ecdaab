package gateway_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"docufind/internal/payments/gateway"
)

type fakeMoMo struct {
	tokenCalls    atomic.Int32
	tokenStatus   int
	payStatus     int
	statusBody    string
	statusCode    int
	delay         time.Duration
	lastPayBody   map[string]any
	lastRefID     string
	lastAuthz     string
	lastSubKey    string
	lastTargetEnv string
}

func (f *fakeMoMo) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /collection/token/", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		user, key, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "api-user", user)
		assert.Equal(t, "api-key", key)
		assert.Equal(t, "sub-key", r.Header.Get("Ocp-Apim-Subscription-Key"))
		if f.tokenStatus != 0 {
			w.WriteHeader(f.tokenStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"tok-1","token_type":"access_token","expires_in":3600}`)
	})
	mux.HandleFunc("POST /collection/v1_0/requesttopay", func(w http.ResponseWriter, r *http.Request) {
		f.lastAuthz = r.Header.Get("Authorization")
		f.lastRefID = r.Header.Get("X-Reference-Id")
		f.lastSubKey = r.Header.Get("Ocp-Apim-Subscription-Key")
		f.lastTargetEnv = r.Header.Get("X-Target-Environment")
		f.lastPayBody = map[string]any{}
		_ = json.NewDecoder(r.Body).Decode(&f.lastPayBody)
		if f.delay > 0 {
			time.Sleep(f.delay)
		}
		w.WriteHeader(f.payStatus)
	})
	mux.HandleFunc("GET /collection/v1_0/requesttopay/{ref}", func(w http.ResponseWriter, r *http.Request) {
		f.lastRefID = r.PathValue("ref")
		if f.statusCode != 0 && f.statusCode != http.StatusOK {
			w.WriteHeader(f.statusCode)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, f.statusBody)
	})
	return mux
}

type MoMoSuite struct {
	suite.Suite
	fake   *fakeMoMo
	server *httptest.Server
	client *gateway.MoMo
}

func TestMoMoSuite(t *testing.T) {
	suite.Run(t, new(MoMoSuite))
}

func (s *MoMoSuite) SetupTest() {
	s.fake = &fakeMoMo{payStatus: http.StatusAccepted}
	s.server = httptest.NewServer(s.fake.handler(s.T()))
	s.T().Cleanup(s.server.Close)
	s.client = gateway.NewMoMo(gateway.MoMoConfig{
		BaseURL:           s.server.URL + "/",
		SubscriptionKey:   "sub-key",
		APIUser:           "api-user",
		APIKey:            "api-key",
		TargetEnvironment: "sandbox",
		Timeout:           200 * time.Millisecond,
	}, gateway.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func (s *MoMoSuite) pay() error {
	return s.client.RequestToPay(context.Background(), gateway.PayRequest{
		ReferenceID:  "ref-1",
		ExternalID:   "pay-1",
		PayerPhone:   "250788000000",
		Amount:       2000,
		Currency:     "RWF",
		PayerMessage: "DocuFind contact access",
		PayeeNote:    "DocuFind contact access fee",
	})
}

func (s *MoMoSuite) TestRequestToPayAccepted() {
	s.Require().NoError(s.pay())

	s.Equal("Bearer tok-1", s.fake.lastAuthz)
	s.Equal("ref-1", s.fake.lastRefID)
	s.Equal("sub-key", s.fake.lastSubKey)
	s.Equal("sandbox", s.fake.lastTargetEnv)
	s.Equal("2000", s.fake.lastPayBody["amount"])
	s.Equal("RWF", s.fake.lastPayBody["currency"])
	payer := s.fake.lastPayBody["payer"].(map[string]any)
	s.Equal("MSISDN", payer["partyIdType"])
	s.Equal("250788000000", payer["partyId"])
}

func (s *MoMoSuite) TestAccessTokenIsCached() {
	s.Require().NoError(s.pay())
	s.Require().NoError(s.pay())
	s.Equal(int32(1), s.fake.tokenCalls.Load())
}

func (s *MoMoSuite) TestRequestToPayFailuresAreCategorized() {
	cases := []struct {
		name      string
		status    int
		category  gateway.Category
		retryable bool
	}{
		{"duplicate reference", http.StatusConflict, gateway.CategoryRejected, false},
		{"bad payer", http.StatusBadRequest, gateway.CategoryRejected, false},
		{"provider down", http.StatusServiceUnavailable, gateway.CategoryOutage, true},
		{"throttled", http.StatusTooManyRequests, gateway.CategoryRateLimited, true},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.fake.payStatus = tc.status
			err := s.pay()
			s.Require().Error(err)
			s.Equal(tc.category, gateway.CategoryOf(err))
			s.Equal(tc.retryable, gateway.IsRetryable(err))
		})
	}
}

func (s *MoMoSuite) TestTimeoutIsRetryable() {
	s.fake.delay = 500 * time.Millisecond
	err := s.pay()
	s.Require().Error(err)
	s.Equal(gateway.CategoryTimeout, gateway.CategoryOf(err))
	s.True(gateway.IsRetryable(err))
}

func (s *MoMoSuite) TestTokenFailureIsAuth() {
	s.fake.tokenStatus = http.StatusUnauthorized
	err := s.pay()
	s.Require().Error(err)
	s.Equal(gateway.CategoryAuth, gateway.CategoryOf(err))
	s.False(gateway.IsRetryable(err))
}

func (s *MoMoSuite) TestStatus() {
	cases := []struct {
		body   string
		status gateway.Status
		tx     string
		reason string
	}{
		{`{"status":"SUCCESSFUL","financialTransactionId":"fx-9"}`, gateway.StatusSuccessful, "fx-9", ""},
		{`{"status":"PENDING"}`, gateway.StatusPending, "", ""},
		{`{"status":"FAILED","reason":"APPROVAL_REJECTED"}`, gateway.StatusFailed, "", "APPROVAL_REJECTED"},
		{`{"status":"REJECTED","reason":{"code":"PAYER_NOT_FOUND","message":"no such payer"}}`, gateway.StatusFailed, "", "PAYER_NOT_FOUND"},
	}
	for _, tc := range cases {
		s.Run(tc.body, func() {
			s.fake.statusBody = tc.body
			res, err := s.client.Status(context.Background(), "ref 1")
			s.Require().NoError(err)
			s.Equal(tc.status, res.Status)
			s.Equal(tc.tx, res.TransactionID)
			s.Equal(tc.reason, res.Reason)
			s.Equal("ref 1", s.fake.lastRefID)
		})
	}
}

func (s *MoMoSuite) TestStatusUnknownValue() {
	s.fake.statusBody = `{"status":"WHATEVER"}`
	_, err := s.client.Status(context.Background(), "ref-1")
	s.Require().Error(err)
	s.Equal(gateway.CategoryBadData, gateway.CategoryOf(err))
}

func (s *MoMoSuite) TestStatusNotFound() {
	s.fake.statusCode = http.StatusNotFound
	_, err := s.client.Status(context.Background(), "missing")
	s.Require().Error(err)
	s.Equal(gateway.CategoryNotFound, gateway.CategoryOf(err))
}

func TestUnreachableGatewayIsTransport(t *testing.T) {
	client := gateway.NewMoMo(gateway.MoMoConfig{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})
	err := client.RequestToPay(context.Background(), gateway.PayRequest{ReferenceID: "r", PayerPhone: "1", Amount: 1})
	require.Error(t, err)
	assert.True(t, gateway.IsRetryable(err))
	assert.True(t, strings.Contains(err.Error(), "request_to_pay"))
}
