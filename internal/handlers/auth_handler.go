package handlers

import (
	"net/http"

	"dress-rental/internal/auth"
	"dress-rental/internal/models"
	"dress-rental/internal/services"
	"dress-rental/pkg/utils"
)

type AuthHandler struct {
	Service *services.UserService
	TOTP    *services.TOTPService
}

func NewAuthHandler(s *services.UserService, totp *services.TOTPService) *AuthHandler {
	return &AuthHandler{Service: s, TOTP: totp}
}

// Login handles user authentication
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := utils.Decode(r, &req); err != nil {
		utils.Error(w, err)
		return
	}

	authResp, err := h.Service.Login(r.Context(), &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, authResp)
}

// Logout records the event; tokens are stateless and expire on their own
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.Service.Logout(r.Context())
	utils.JSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// Me returns the operator behind the token
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFrom(r.Context())
	user, err := h.Service.GetUser(r.Context(), sess.UserID)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, user)
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req models.ChangePasswordRequest
	if err := utils.Decode(r, &req); err != nil {
		utils.Error(w, err)
		return
	}

	sess := auth.SessionFrom(r.Context())
	if err := h.Service.ChangePassword(r.Context(), sess.UserID, &req); err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"message": "password changed"})
}

// SetupTOTP issues a fresh secret and QR code; 2FA stays off until enabled
func (h *AuthHandler) SetupTOTP(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFrom(r.Context())
	setup, err := h.TOTP.Setup(r.Context(), sess.UserID)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, setup)
}

func (h *AuthHandler) EnableTOTP(w http.ResponseWriter, r *http.Request) {
	var req models.TOTPCodeRequest
	if err := utils.Decode(r, &req); err != nil {
		utils.Error(w, err)
		return
	}

	sess := auth.SessionFrom(r.Context())
	if err := h.TOTP.Enable(r.Context(), sess.UserID, req.Code); err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]bool{"totp_enabled": true})
}

func (h *AuthHandler) DisableTOTP(w http.ResponseWriter, r *http.Request) {
	var req models.TOTPCodeRequest
	if err := utils.Decode(r, &req); err != nil {
		utils.Error(w, err)
		return
	}

	sess := auth.SessionFrom(r.Context())
	if err := h.TOTP.Disable(r.Context(), sess.UserID, req.Code); err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]bool{"totp_enabled": false})
}
