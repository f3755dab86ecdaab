package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"docufind/internal/payments/handler/mocks"
	"docufind/internal/payments/models"
	"docufind/internal/payments/service"
	recmodels "docufind/internal/records/models"
	id "docufind/pkg/domain"
	dErrors "docufind/pkg/domain-errors"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service
type PaymentHandlerSuite struct {
	suite.Suite
	router  chi.Router
	service *mocks.MockService
}

func TestPaymentHandlerSuite(t *testing.T) {
	suite.Run(t, new(PaymentHandlerSuite))
}

func (s *PaymentHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.T().Cleanup(ctrl.Finish)
	s.service = mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.router = chi.NewRouter()
	New(s.service, logger).Register(s.router)
}

func (s *PaymentHandlerSuite) do(method, target string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.T(), err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (s *PaymentHandlerSuite) TestRequestContactAccess() {
	reportID := id.NewRecordID()
	pid := id.NewPaymentID()

	s.Run("accepted", func() {
		s.service.EXPECT().RequestContactAccess(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, req service.ContactAccessRequest) (*service.PaymentStarted, error) {
				assert.Equal(s.T(), "250788123456", req.Phone)
				assert.Equal(s.T(), reportID, req.Subject().ID)
				return &service.PaymentStarted{PaymentID: pid, Status: models.StatusPending, Amount: 2000, Currency: "RWF"}, nil
			})
		w := s.do(http.MethodPost, "/payment/request", map[string]string{
			"phone_number": "0788123456",
			"report_type":  "found",
			"report_id":    reportID.String(),
			"user_email":   "seeker@example.com",
		})
		s.Require().Equal(http.StatusOK, w.Code)
		resp := decode(s.T(), w)
		s.Equal(true, resp["success"])
		s.Equal(pid.String(), resp["payment_id"])
		s.Equal(float64(2000), resp["amount"])
		s.Equal("PENDING", resp["status"])
	})

	s.Run("outcome unknown keeps the payment id", func() {
		s.service.EXPECT().RequestContactAccess(gomock.Any(), gomock.Any()).
			Return(&service.PaymentStarted{PaymentID: pid, Status: models.StatusPending, Amount: 2000, Currency: "RWF", Retryable: true}, nil)
		w := s.do(http.MethodPost, "/payment/request", map[string]string{
			"phone_number": "0788123456",
			"report_type":  "found",
			"report_id":    reportID.String(),
			"user_email":   "seeker@example.com",
		})
		s.Require().Equal(http.StatusOK, w.Code)
		resp := decode(s.T(), w)
		s.Equal(pid.String(), resp["payment_id"])
		s.Equal("PENDING", resp["status"])
		s.Equal(true, resp["retryable"])
	})

	s.Run("missing phone never reaches the service", func() {
		w := s.do(http.MethodPost, "/payment/request", map[string]string{
			"report_type": "found",
			"report_id":   reportID.String(),
			"user_email":  "seeker@example.com",
		})
		s.Equal(http.StatusBadRequest, w.Code)
		s.Equal("validation_error", decode(s.T(), w)["error"])
	})

	s.Run("rejected by provider", func() {
		s.service.EXPECT().RequestContactAccess(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodePaymentRejected, "payment was rejected"))
		w := s.do(http.MethodPost, "/payment/request", map[string]string{
			"phone_number": "0788123456",
			"report_type":  "found",
			"report_id":    reportID.String(),
			"user_email":   "seeker@example.com",
		})
		s.Equal(http.StatusPaymentRequired, w.Code)
	})

	s.Run("provider unavailable", func() {
		s.service.EXPECT().RequestContactAccess(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeGatewayUnavailable, "try again"))
		w := s.do(http.MethodPost, "/payment/request", map[string]string{
			"phone_number": "0788123456",
			"report_type":  "lost",
			"report_id":    reportID.String(),
			"user_email":   "seeker@example.com",
		})
		s.Equal(http.StatusServiceUnavailable, w.Code)
	})
}

func (s *PaymentHandlerSuite) TestContactAccessStatus() {
	pid := id.NewPaymentID()

	s.Run("paid", func() {
		expires := time.Date(2026, 6, 2, 12, 0, 0, 0, time.UTC)
		s.service.EXPECT().CheckContactAccess(gomock.Any(), pid).Return(&service.AccessStatus{
			PaymentID:        pid,
			Status:           models.StatusSuccessful,
			Paid:             true,
			Contact:          &recmodels.ContactView{FullName: "Good Finder", Phone: "250788000002"},
			Receipt:          "receipt-token",
			ReceiptExpiresAt: expires,
		}, nil)
		w := s.do(http.MethodGet, "/payment/status/"+pid.String(), nil)
		s.Require().Equal(http.StatusOK, w.Code)
		resp := decode(s.T(), w)
		s.Equal(true, resp["paid"])
		s.Equal("receipt-token", resp["receipt"])
		s.Equal("Good Finder", resp["contact"].(map[string]any)["full_name"])
	})

	s.Run("pending and retryable", func() {
		s.service.EXPECT().CheckContactAccess(gomock.Any(), pid).Return(&service.AccessStatus{
			PaymentID: pid,
			Status:    models.StatusPending,
			Retryable: true,
		}, nil)
		w := s.do(http.MethodGet, "/payment/status/"+pid.String(), nil)
		s.Require().Equal(http.StatusOK, w.Code)
		resp := decode(s.T(), w)
		s.Equal(false, resp["paid"])
		s.Equal(true, resp["retryable"])
		s.NotContains(resp, "contact")
		s.NotContains(resp, "receipt_expires_at")
	})

	s.Run("malformed id", func() {
		w := s.do(http.MethodGet, "/payment/status/not-a-uuid", nil)
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("unknown payment", func() {
		s.service.EXPECT().CheckContactAccess(gomock.Any(), pid).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "payment not found"))
		w := s.do(http.MethodGet, "/payment/status/"+pid.String(), nil)
		s.Equal(http.StatusNotFound, w.Code)
	})
}

func (s *PaymentHandlerSuite) TestReveal() {
	subject := recmodels.Ref{Kind: id.RecordKindFound, ID: id.NewRecordID()}

	s.Run("valid receipt", func() {
		s.service.EXPECT().RevealContact(gomock.Any(), "receipt-token").Return(&service.Disclosure{
			Subject: subject,
			Contact: recmodels.ContactView{FullName: "Good Finder", Phone: "250788000002"},
		}, nil)
		w := s.do(http.MethodPost, "/payment/reveal", map[string]string{"receipt": " receipt-token "})
		s.Require().Equal(http.StatusOK, w.Code)
		resp := decode(s.T(), w)
		s.Equal("found", resp["report_type"])
		s.Equal(subject.ID.String(), resp["report_id"])
	})

	s.Run("empty receipt", func() {
		w := s.do(http.MethodPost, "/payment/reveal", map[string]string{"receipt": ""})
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("forged receipt", func() {
		s.service.EXPECT().RevealContact(gomock.Any(), "forged").
			Return(nil, dErrors.New(dErrors.CodeForbidden, "receipt is not valid"))
		w := s.do(http.MethodPost, "/payment/reveal", map[string]string{"receipt": "forged"})
		s.Equal(http.StatusForbidden, w.Code)
	})
}

func (s *PaymentHandlerSuite) TestPremium() {
	recordID := id.NewRecordID()
	pid := id.NewPaymentID()

	s.Run("upgrade", func() {
		s.service.EXPECT().UpgradeToPremium(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, req service.PremiumRequest) (*service.PaymentStarted, error) {
				assert.Equal(s.T(), recordID, req.Record().ID)
				assert.Equal(s.T(), id.RecordKindLost, req.Record().Kind)
				return &service.PaymentStarted{PaymentID: pid, Status: models.StatusPending, Amount: 500, Currency: "RWF"}, nil
			})
		w := s.do(http.MethodPost, "/premium/upgrade", map[string]string{
			"lost_doc_id":        recordID.String(),
			"verification_input": "Jane Doe",
			"phone_number":       "250788000001",
		})
		s.Require().Equal(http.StatusOK, w.Code)
		s.Equal(float64(500), decode(s.T(), w)["amount"])
	})

	s.Run("already featured", func() {
		s.service.EXPECT().UpgradeToPremium(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeConflict, "listing is already featured"))
		w := s.do(http.MethodPost, "/premium/upgrade", map[string]string{
			"lost_doc_id":        recordID.String(),
			"verification_input": "Jane Doe",
			"phone_number":       "250788000001",
		})
		s.Equal(http.StatusConflict, w.Code)
	})

	s.Run("status", func() {
		expires := time.Date(2026, 6, 8, 12, 0, 0, 0, time.UTC)
		s.service.EXPECT().CheckPremium(gomock.Any(), pid).Return(&service.PremiumStatus{
			PaymentID:        pid,
			Status:           models.StatusSuccessful,
			Paid:             true,
			PremiumExpiresAt: &expires,
		}, nil)
		w := s.do(http.MethodGet, "/premium/status/"+pid.String(), nil)
		s.Require().Equal(http.StatusOK, w.Code)
		resp := decode(s.T(), w)
		s.Equal(true, resp["paid"])
		s.Equal("2026-06-08T12:00:00Z", resp["premium_expires_at"])
	})
}
