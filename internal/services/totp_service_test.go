package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"dress-rental/internal/apperr"
	"dress-rental/internal/models"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTOTPSetupAndEnable(t *testing.T) {
	repo := newMemUsers()
	require.NoError(t, repo.Create(context.Background(), &models.User{Username: "admin", IsActive: true}))
	svc := NewTOTPService(repo, nil)
	ctx := context.Background()

	assert.Error(t, svc.Enable(ctx, 1, "123456"), "no secret yet")

	setup, err := svc.Setup(ctx, 1)
	require.NoError(t, err)
	assert.NotEmpty(t, setup.Secret)
	assert.True(t, strings.HasPrefix(setup.QRCode, "data:image/png;base64,"))
	assert.Equal(t, totpIssuer, setup.Issuer)
	assert.False(t, repo.byID[1].TOTPEnabled)

	err = svc.Enable(ctx, 1, "000000")
	assert.Equal(t, apperr.CodeInvalidTOTP, apperr.CodeOf(err))

	code, err := totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, svc.Enable(ctx, 1, code))
	assert.True(t, repo.byID[1].TOTPEnabled)

	err = svc.Disable(ctx, 1, "")
	assert.Equal(t, apperr.CodeInvalidTOTP, apperr.CodeOf(err))
	require.NoError(t, svc.Disable(ctx, 1, code))
	assert.False(t, repo.byID[1].TOTPEnabled)
	assert.Empty(t, repo.byID[1].TOTPSecret)

	// already off
	assert.NoError(t, svc.Disable(ctx, 1, ""))

	_, err = svc.Setup(ctx, 404)
	assert.Equal(t, apperr.CodeUserNotFound, apperr.CodeOf(err))
}

func TestValidTOTP(t *testing.T) {
	key, err := totp.Generate(totp.GenerateOpts{Issuer: totpIssuer, AccountName: "x"})
	require.NoError(t, err)
	code, err := totp.GenerateCode(key.Secret(), time.Now())
	require.NoError(t, err)

	assert.True(t, ValidTOTP(key.Secret(), " "+code+" "))
	assert.False(t, ValidTOTP("", code))
	assert.False(t, ValidTOTP(key.Secret(), ""))
}
