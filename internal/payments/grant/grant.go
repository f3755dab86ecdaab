// Package grant signs and verifies contact-access receipts. A receipt lets the
// payer see the contact again without another gateway round trip.
package grant

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"docufind/internal/payments/models"
	recmodels "docufind/internal/records/models"
	id "docufind/pkg/domain"
	dErrors "docufind/pkg/domain-errors"
)

const (
	defaultIssuer   = "docufind"
	defaultAudience = "docufind-contact-access"
)

// Claims are the receipt contents.
type Claims struct {
	PaymentID  string `json:"payment_id"`
	ReportType string `json:"report_type"`
	ReportID   string `json:"report_id"`
	Email      string `json:"email"`
	jwt.RegisteredClaims
}

// Report parses the report the receipt is for.
func (c *Claims) Report() (recmodels.Ref, error) {
	return recmodels.ParseRef(c.ReportType, c.ReportID)
}

// Payment parses the payment the receipt is for.
func (c *Claims) Payment() (id.PaymentID, error) {
	return id.ParsePaymentID(c.PaymentID)
}

// Signer issues HS256 receipts.
type Signer struct {
	signingKey []byte
	issuer     string
	audience   string
	ttl        time.Duration
}

func NewSigner(signingKey string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Signer{
		signingKey: []byte(signingKey),
		issuer:     defaultIssuer,
		audience:   defaultAudience,
		ttl:        ttl,
	}
}

// Issue signs a receipt for a granted access.
func (s *Signer) Issue(g *models.AccessGrant, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		PaymentID:  g.PaymentID.String(),
		ReportType: g.Subject.Kind.String(),
		ReportID:   g.Subject.ID.String(),
		Email:      g.RequesterEmail,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			Subject:   g.Subject.String(),
			ID:        g.ID.String(),
		},
	})
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign receipt")
	}
	return signed, expiresAt, nil
}

// Verify checks signature, issuer, audience and expiry as of now.
func (s *Signer) Verify(receipt string, now time.Time) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(receipt, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeExpired, "receipt has expired")
		}
		return nil, dErrors.New(dErrors.CodeForbidden, "invalid receipt")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeForbidden, "invalid receipt")
	}
	return claims, nil
}
