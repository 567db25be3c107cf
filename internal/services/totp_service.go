package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"
	"log"
	"strings"

	"dress-rental/internal/apperr"
	"dress-rental/internal/models"
	"dress-rental/internal/repositories"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const totpIssuer = "DressRental"

// TOTPStore persists the per-user 2FA secret
type TOTPStore interface {
	Get(ctx context.Context, id int) (*models.User, error)
	SetTOTPSecret(ctx context.Context, id int, secret string) error
	EnableTOTP(ctx context.Context, id int) error
	DisableTOTP(ctx context.Context, id int) error
}

type TOTPService struct {
	Users    TOTPStore
	Activity ActivityRecorder
}

func NewTOTPService(users TOTPStore, activity ActivityRecorder) *TOTPService {
	if activity == nil {
		activity = nopRecorder{}
	}
	return &TOTPService{Users: users, Activity: activity}
}

func (s *TOTPService) user(ctx context.Context, id int) (*models.User, error) {
	u, err := s.Users.Get(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperr.NotFound(apperr.CodeUserNotFound, fmt.Sprintf("user %d not found", id))
	}
	return u, apperr.Persistence("get user", err)
}

// Setup issues a fresh secret and its QR code. 2FA stays off until Enable
// confirms a code generated from the new secret.
func (s *TOTPService) Setup(ctx context.Context, userID int) (*models.TOTPSetupResponse, error) {
	u, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: u.Username,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("generate totp key: %w", err)
	}
	if err := s.Users.SetTOTPSecret(ctx, userID, key.Secret()); err != nil {
		return nil, apperr.Persistence("store totp secret", err)
	}

	img, err := key.Image(200, 200)
	if err != nil {
		return nil, fmt.Errorf("render totp qr: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode totp qr: %w", err)
	}

	return &models.TOTPSetupResponse{
		Secret:      key.Secret(),
		QRCode:      "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
		Issuer:      totpIssuer,
		AccountName: u.Username,
	}, nil
}

func (s *TOTPService) Enable(ctx context.Context, userID int, code string) error {
	u, err := s.user(ctx, userID)
	if err != nil {
		return err
	}
	if u.TOTPSecret == "" {
		return invalid("start 2FA setup before enabling it")
	}
	if !ValidTOTP(u.TOTPSecret, code) {
		return apperr.Validation(apperr.CodeInvalidTOTP, "invalid authentication code")
	}
	if err := s.Users.EnableTOTP(ctx, userID); err != nil {
		return apperr.Persistence("enable totp", err)
	}
	log.Printf("[Auth] 2FA enabled for user %d", userID)
	s.Activity.Record(ctx, models.ActionUpdate, "users", userID, "2FA enabled")
	return nil
}

func (s *TOTPService) Disable(ctx context.Context, userID int, code string) error {
	u, err := s.user(ctx, userID)
	if err != nil {
		return err
	}
	if !u.TOTPEnabled {
		return nil
	}
	if !ValidTOTP(u.TOTPSecret, code) {
		return apperr.Validation(apperr.CodeInvalidTOTP, "invalid authentication code")
	}
	if err := s.Users.DisableTOTP(ctx, userID); err != nil {
		return apperr.Persistence("disable totp", err)
	}
	log.Printf("[Auth] 2FA disabled for user %d", userID)
	s.Activity.Record(ctx, models.ActionUpdate, "users", userID, "2FA disabled")
	return nil
}

func ValidTOTP(secret, code string) bool {
	code = strings.TrimSpace(code)
	return secret != "" && code != "" && totp.Validate(code, secret)
}
