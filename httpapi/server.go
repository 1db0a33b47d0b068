// Package httpapi is the JSON HTTP surface over the lifecycle engine:
// the /auth endpoints, the contact and cooperation forms, health and
// metrics.
package httpapi

import (
	"log/slog"
	"net/http"

	authcore "github.com/raymandgroup/authcore"
	"github.com/raymandgroup/authcore/middleware"
)

// Server defines a public type used by authcore APIs.
//
// Server instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Server struct {
	engine     *authcore.Engine
	dispatcher authcore.NotificationDispatcher
	logger     *slog.Logger
}

// NewServer describes the newserver operation and its observable behavior.
//
// NewServer may return an error when input validation, dependency calls, or security checks fail.
// NewServer does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewServer(engine *authcore.Engine, dispatcher authcore.NotificationDispatcher, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{engine: engine, dispatcher: dispatcher, logger: logger}
}

// Handler describes the handler operation and its observable behavior.
//
// Handler may return an error when input validation, dependency calls, or security checks fail.
// Handler does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("POST /auth/verify-email", s.handleVerifyEmail)
	mux.HandleFunc("POST /auth/resend-code", s.handleResendCode)
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("POST /auth/verify-2fa", s.handleVerify2FA)
	mux.HandleFunc("POST /auth/resend-2fa", s.handleResend2FA)
	mux.HandleFunc("POST /auth/forgot-password", s.handleForgotPassword)
	mux.HandleFunc("POST /auth/reset-password", s.handleResetPassword)

	guard := middleware.Guard(s.engine)
	mux.Handle("GET /auth/profile", guard(http.HandlerFunc(s.handleProfile)))

	mux.HandleFunc("POST /contact", s.handleContact)
	mux.HandleFunc("POST /cooperation-form", s.handleCooperation)

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	return mux
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	_, err := s.engine.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		writeError(w, s.logger, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, msgResponse{Msg: "User registered. Please verify your email."})
}

type codeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.engine.VerifyEmail(r.Context(), req.Email, req.Code); err != nil {
		writeError(w, s.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msgResponse{Msg: "Email verified successfully"})
}

type emailRequest struct {
	Email string `json:"email"`
}

func (s *Server) handleResendCode(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.engine.ResendVerification(r.Context(), req.Email); err != nil {
		writeError(w, s.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msgResponse{Msg: "New verification code sent."})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.engine.Login(r.Context(), req.Email, req.Password); err != nil {
		writeError(w, s.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msgResponse{Msg: "2FA code sent to your email. Please verify to continue."})
}

type loginResponse struct {
	Msg       string `json:"msg"`
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expiresIn"`
}

func (s *Server) handleVerify2FA(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := s.engine.ConfirmLogin(r.Context(), req.Email, req.Code)
	if err != nil {
		writeError(w, s.logger, r, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Msg:       "Login successful",
		Token:     result.AccessToken,
		ExpiresIn: int64(result.ExpiresIn.Seconds()),
	})
}

func (s *Server) handleResend2FA(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.engine.ResendChallenge(r.Context(), req.Email); err != nil {
		writeError(w, s.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msgResponse{Msg: "New 2FA code sent to your email."})
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.engine.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeError(w, s.logger, r, err)
		return
	}
	// Uniform reply for known and unknown identities.
	writeJSON(w, http.StatusOK, msgResponse{Msg: "If that account exists, a reset link is on its way."})
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.engine.RedeemPasswordReset(r.Context(), req.Email, req.Token, req.NewPassword); err != nil {
		writeError(w, s.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msgResponse{Msg: "Password reset successful"})
}

type profileResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	IsVerified bool   `json:"isVerified"`
	CreatedAt  string `json:"createdAt"`
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	account, ok := middleware.AccountFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, msgResponse{Msg: "Unauthorized"})
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{
		ID:         account.ID,
		Name:       account.DisplayName,
		Email:      account.Identity,
		IsVerified: account.Verified,
		CreatedAt:  account.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, msgResponse{Msg: "ok"})
}
