package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"

	authcore "github.com/raymandgroup/authcore"
)

const maxBodyBytes = 1 << 20

type msgResponse struct {
	Msg string `json:"msg"`
}

type cooldownResponse struct {
	Msg       string `json:"msg"`
	Remaining int64  `json:"remaining"`
}

type existsResponse struct {
	Msg        string `json:"msg"`
	IsVerified bool   `json:"isVerified"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, msgResponse{Msg: "Malformed request body"})
		return false
	}
	return true
}

// writeError maps engine errors onto the HTTP surface. Wrong and
// expired codes share one message so the response never reveals which
// check failed; cooldowns carry the remaining wait in whole seconds.
func writeError(w http.ResponseWriter, logger *slog.Logger, r *http.Request, err error) {
	var cooldown *authcore.CooldownError
	if errors.As(err, &cooldown) {
		remaining := int64(math.Ceil(cooldown.Remaining.Seconds()))
		writeJSON(w, http.StatusTooManyRequests, cooldownResponse{
			Msg:       cooldownMessage(cooldown),
			Remaining: remaining,
		})
		return
	}

	var exists *authcore.AccountExistsError
	if errors.As(err, &exists) {
		writeJSON(w, http.StatusBadRequest, existsResponse{
			Msg:        "User already exists",
			IsVerified: exists.Verified,
		})
		return
	}

	var delivery *authcore.DeliveryError
	if errors.As(err, &delivery) {
		logger.Error("notification dispatch failed",
			slog.String("path", r.URL.Path),
			slog.String("kind", string(delivery.Kind)),
			slog.Any("err", delivery.Err))
		writeJSON(w, http.StatusBadGateway, msgResponse{
			Msg: "Failed to send email. Your request was recorded, use the resend endpoint to retry delivery.",
		})
		return
	}

	switch {
	case errors.Is(err, authcore.ErrValidation):
		writeJSON(w, http.StatusBadRequest, msgResponse{Msg: "Invalid input"})
	case errors.Is(err, authcore.ErrCodeInvalid):
		writeJSON(w, http.StatusBadRequest, msgResponse{Msg: "Invalid or expired code"})
	case errors.Is(err, authcore.ErrInvalidCredentials):
		writeJSON(w, http.StatusBadRequest, msgResponse{Msg: "Invalid credentials"})
	case errors.Is(err, authcore.ErrAlreadyVerified):
		writeJSON(w, http.StatusBadRequest, msgResponse{Msg: "Email is already verified"})
	case errors.Is(err, authcore.ErrPasswordReuse):
		writeJSON(w, http.StatusBadRequest, msgResponse{Msg: "New password cannot be the same as the last password"})
	case errors.Is(err, authcore.ErrAccountUnverified):
		writeJSON(w, http.StatusUnauthorized, msgResponse{Msg: "Email not verified"})
	case errors.Is(err, authcore.ErrTokenInvalid):
		writeJSON(w, http.StatusUnauthorized, msgResponse{Msg: "Invalid or expired token"})
	case errors.Is(err, authcore.ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, msgResponse{Msg: "User not found"})
	default:
		logger.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, msgResponse{Msg: "Internal server error"})
	}
}

func cooldownMessage(err *authcore.CooldownError) string {
	switch {
	case errors.Is(err.Reason, authcore.ErrChallengeOutstanding):
		return "A login code was already sent. If you did not get a code, you can resend it."
	case errors.Is(err.Reason, authcore.ErrResetQuotaExceeded):
		return "Daily password reset limit reached. Try again tomorrow."
	default:
		return "Please wait before requesting again."
	}
}
