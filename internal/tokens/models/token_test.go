package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	recmodels "docufind/internal/records/models"
	id "docufind/pkg/domain"
	dErrors "docufind/pkg/domain-errors"
	"docufind/pkg/testutil"
)

func TestValidateExpiryBoundary(t *testing.T) {
	subject := recmodels.Ref{Kind: id.RecordKindFound, ID: id.NewRecordID()}
	expiry := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tok := &Token{Purpose: PurposeClaimVerification, Subject: subject, ExpiresAt: expiry}
	expect := ExpectPurpose(PurposeClaimVerification)

	assert.NoError(t, tok.Validate(expect, expiry.Add(-time.Second)))
	assert.NoError(t, tok.Validate(expect, expiry), "the expiry instant is still valid")
	assert.True(t, dErrors.HasCode(tok.Validate(expect, expiry.Add(time.Second)), dErrors.CodeExpired))
}

func TestValidateScope(t *testing.T) {
	subject := recmodels.Ref{Kind: id.RecordKindFound, ID: id.NewRecordID()}
	other := recmodels.Ref{Kind: id.RecordKindFound, ID: id.NewRecordID()}
	now := time.Now()
	tok := &Token{Purpose: PurposeImageAccess, Subject: subject, ExpiresAt: now.Add(time.Hour)}

	t.Run("wrong purpose", func(t *testing.T) {
		err := tok.Validate(ExpectPurpose(PurposeClaimVerification), now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})
	t.Run("wrong subject", func(t *testing.T) {
		err := tok.Validate(ExpectScoped(PurposeImageAccess, other), now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})
	t.Run("scope checked before expiry", func(t *testing.T) {
		err := tok.Validate(ExpectScoped(PurposeImageAccess, other), now.Add(2*time.Hour))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})
	t.Run("matching subject", func(t *testing.T) {
		assert.NoError(t, tok.Validate(ExpectScoped(PurposeImageAccess, subject), now))
	})
}

func TestValidateConsumed(t *testing.T) {
	now := time.Now()
	expect := ExpectPurpose(PurposeRemovalConfirmation)

	testutil.Given(t, "an unexpired removal token", func(t *testing.T) {
		tok := &Token{Purpose: PurposeRemovalConfirmation, ExpiresAt: now.Add(time.Hour)}
		require.NoError(t, tok.Validate(expect, now))

		testutil.When(t, "it is consumed", func(t *testing.T) {
			tok.MarkConsumed(now)

			testutil.Then(t, "a second use is rejected as already used", func(t *testing.T) {
				assert.True(t, dErrors.HasCode(tok.Validate(expect, now), dErrors.CodeAlreadyUsed))
			})
			testutil.Then(t, "use after expiry still reports already used", func(t *testing.T) {
				assert.True(t, dErrors.HasCode(tok.Validate(expect, now.Add(2*time.Hour)), dErrors.CodeAlreadyUsed))
			})
		})
	})
}

func TestPayloadRoundTripKeepsVariant(t *testing.T) {
	raw, err := EncodePayload(RemovalPayload{Reason: id.RemovalReasonDuplicate})
	require.NoError(t, err)

	decoded, err := DecodePayload(PurposeRemovalConfirmation, raw)
	require.NoError(t, err)
	tok := &Token{Payload: decoded}
	assert.Equal(t, id.RemovalReasonDuplicate, tok.RemovalReason())

	_, err = DecodePayload(Purpose("bogus"), raw)
	assert.Error(t, err)
}

func TestSecretsAreUniqueAndHashStable(t *testing.T) {
	a, err := GenerateSecret()
	require.NoError(t, err)
	b, err := GenerateSecret()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Equal(t, HashSecret(a), HashSecret(a))
	assert.Len(t, HashSecret(a), 64)
	assert.NotEqual(t, a, HashSecret(a))
}

func TestTTLsFallBackToDefaults(t *testing.T) {
	ttls := TTLs{PurposeClaimVerification: time.Hour}
	assert.Equal(t, time.Hour, ttls.For(PurposeClaimVerification))
	assert.Equal(t, 24*time.Hour, ttls.For(PurposeRemovalConfirmation))
	assert.True(t, PurposeClaimVerification.DeletedOnUse())
	assert.False(t, PurposeRemovalConfirmation.DeletedOnUse())
}
