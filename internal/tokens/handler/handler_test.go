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

	recmodels "docufind/internal/records/models"
	"docufind/internal/tokens/handler/mocks"
	"docufind/internal/tokens/models"
	"docufind/internal/tokens/service"
	id "docufind/pkg/domain"
	dErrors "docufind/pkg/domain-errors"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service
type TokenHandlerSuite struct {
	suite.Suite
	router  chi.Router
	service *mocks.MockService
}

func TestTokenHandlerSuite(t *testing.T) {
	suite.Run(t, new(TokenHandlerSuite))
}

func (s *TokenHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.T().Cleanup(ctrl.Finish)
	s.service = mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.router = chi.NewRouter()
	New(s.service, logger).Register(s.router)
}

func (s *TokenHandlerSuite) do(method, target string, body any) *httptest.ResponseRecorder {
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

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp["error"]
}

func (s *TokenHandlerSuite) TestStartClaim() {
	reportID := id.NewRecordID()

	s.Run("valid request", func() {
		s.service.EXPECT().StartClaim(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, req service.StartClaimRequest) (*service.ClaimStarted, error) {
				assert.Equal(s.T(), "me@example.com", req.Email)
				assert.Equal(s.T(), reportID, req.Subject().ID)
				return &service.ClaimStarted{ExpiresAt: time.Now()}, nil
			})
		w := s.do(http.MethodPost, "/claims/start", map[string]string{
			"report_type":   "found",
			"report_id":     reportID.String(),
			"contact_email": "Me <me@example.com>",
		})
		assert.Equal(s.T(), http.StatusOK, w.Code)
	})

	s.Run("invalid email never reaches the service", func() {
		w := s.do(http.MethodPost, "/claims/start", map[string]string{
			"report_type":   "found",
			"report_id":     reportID.String(),
			"contact_email": "not-an-email",
		})
		assert.Equal(s.T(), http.StatusBadRequest, w.Code)
		assert.Equal(s.T(), "validation_error", decodeError(s.T(), w))
	})

	s.Run("document number mismatch", func() {
		s.service.EXPECT().StartClaim(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeForbidden, "document number does not match our records"))
		w := s.do(http.MethodPost, "/claims/start", map[string]string{
			"report_type":     "lost",
			"report_id":       reportID.String(),
			"contact_email":   "me@example.com",
			"document_number": "nope",
		})
		assert.Equal(s.T(), http.StatusForbidden, w.Code)
	})
}

func (s *TokenHandlerSuite) TestVerifyClaimStatusCodes() {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"unknown token", dErrors.New(dErrors.CodeNotFound, "token not found"), http.StatusNotFound},
		{"expired token", dErrors.New(dErrors.CodeExpired, "token expired"), http.StatusGone},
		{"wrong purpose", dErrors.New(dErrors.CodeForbidden, "token not valid"), http.StatusForbidden},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.service.EXPECT().VerifyClaim(gomock.Any(), "tok").Return(nil, tc.err)
			w := s.do(http.MethodPost, "/claims/verify", map[string]string{"token": "tok"})
			assert.Equal(s.T(), tc.status, w.Code)
		})
	}

	s.Run("missing token", func() {
		w := s.do(http.MethodPost, "/claims/verify", map[string]string{"token": " "})
		assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	})
}

func (s *TokenHandlerSuite) TestLinkOpenOnlyPreviews() {
	ref := recmodels.Ref{Kind: id.RecordKindFound, ID: id.NewRecordID()}
	expires := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

	s.Run("claim link", func() {
		s.service.EXPECT().Inspect(gomock.Any(), "tok", models.PurposeClaimVerification).
			Return(&service.TokenPreview{Purpose: models.PurposeClaimVerification, Subject: ref, ExpiresAt: expires}, nil)
		w := s.do(http.MethodGet, "/claims/verify?token=tok", nil)
		require.Equal(s.T(), http.StatusOK, w.Code)

		var resp map[string]any
		require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(s.T(), true, resp["valid"])
		assert.Equal(s.T(), ref.ID.String(), resp["report_id"])
		assert.NotContains(s.T(), resp, "record")
	})

	s.Run("removal link", func() {
		s.service.EXPECT().Inspect(gomock.Any(), "rm", models.PurposeRemovalConfirmation).
			Return(nil, dErrors.New(dErrors.CodeExpired, "token expired"))
		w := s.do(http.MethodGet, "/documents/confirm-removal?token=rm", nil)
		assert.Equal(s.T(), http.StatusGone, w.Code)
	})

	s.Run("missing token", func() {
		w := s.do(http.MethodGet, "/documents/confirm-removal", nil)
		assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	})
}

func (s *TokenHandlerSuite) TestVerifyClaimReturnsUnmaskedRecord() {
	s.service.EXPECT().VerifyClaim(gomock.Any(), "tok").Return(&service.ClaimResult{
		Record: recmodels.VerifiedView{
			Name:           "Jane Doe",
			DocumentNumber: "1199880012345678",
			Contact:        &recmodels.ContactView{FullName: "Finder", Phone: "0788000000"},
		},
		ImageToken: "img",
	}, nil)

	w := s.do(http.MethodPost, "/claims/verify", map[string]string{"token": "tok"})
	require.Equal(s.T(), http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	record := resp["record"].(map[string]any)
	assert.Equal(s.T(), "1199880012345678", record["document_number"])
	assert.Equal(s.T(), "0788000000", record["contact"].(map[string]any)["phone"])
	assert.Equal(s.T(), "img", resp["image_token"])
}

func (s *TokenHandlerSuite) TestProtectedImage() {
	reportID := id.NewRecordID()
	subject := recmodels.Ref{Kind: id.RecordKindFound, ID: reportID}

	s.service.EXPECT().ProtectedImage(gomock.Any(), "img", subject).
		Return(&service.ImageAccess{URL: "https://s3/original.jpg"}, nil)
	w := s.do(http.MethodGet, "/protected-image?report_type=found&report_id="+reportID.String()+"&token=img&redirect=true", nil)
	assert.Equal(s.T(), http.StatusFound, w.Code)
	assert.Equal(s.T(), "https://s3/original.jpg", w.Header().Get("Location"))

	w = s.do(http.MethodGet, "/protected-image?report_type=found&token=img", nil)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

func (s *TokenHandlerSuite) TestRequestRemoval() {
	reportID := id.NewRecordID()
	subject := recmodels.Ref{Kind: id.RecordKindLost, ID: reportID}

	s.service.EXPECT().RequestRemoval(gomock.Any(), subject, "Jane Doe", id.RemovalReasonFound).Return(nil)
	w := s.do(http.MethodPost, "/documents/lost/"+reportID.String()+"/request-removal", map[string]string{
		"verification_input": " Jane Doe ",
		"reason":             "found",
	})
	assert.Equal(s.T(), http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/documents/lost/"+reportID.String()+"/request-removal", map[string]string{
		"verification_input": "Jane Doe",
		"reason":             "BORED",
	})
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/documents/stolen/"+reportID.String()+"/request-removal", map[string]string{
		"verification_input": "Jane Doe",
		"reason":             "FOUND",
	})
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

func (s *TokenHandlerSuite) TestConfirmRemoval() {
	ref := recmodels.Ref{Kind: id.RecordKindFound, ID: id.NewRecordID()}
	s.service.EXPECT().ConfirmRemoval(gomock.Any(), "rm").Return(&ref, nil)
	w := s.do(http.MethodPost, "/documents/confirm-removal", map[string]string{"token": "rm"})
	require.Equal(s.T(), http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), true, resp["success"])
	assert.Equal(s.T(), ref.ID.String(), resp["report_id"])

	s.service.EXPECT().ConfirmRemoval(gomock.Any(), "used").Return(nil, dErrors.New(dErrors.CodeAlreadyUsed, "token already used"))
	w = s.do(http.MethodPost, "/documents/confirm-removal", map[string]string{"token": "used"})
	assert.Equal(s.T(), http.StatusConflict, w.Code)
	assert.Equal(s.T(), "already_used", decodeError(s.T(), w))
}
