package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/houseflow/houseflow/internal/auth"
	"github.com/houseflow/houseflow/internal/clerk"
	"github.com/houseflow/houseflow/internal/codec"
	"github.com/houseflow/houseflow/internal/database"
)

// loginRequest is the body for both steps of login. VerificationCode is
// nil on step 1 (request a code) and set on step 2 (redeem it).
type loginRequest struct {
	Email            string  `json:"email"`
	VerificationCode *string `json:"verification_code"`
}

// tokenPairResponse is returned by login step 2 and register.
type tokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.Email == "" {
		writeBadRequest(w, "email is required")
		return
	}

	user, err := s.db.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		writeInternalError(w, "looking up user failed")
		return
	}

	if req.VerificationCode == nil {
		s.handleLoginStepOne(w, r, user)
		return
	}
	s.handleLoginStepTwo(w, r, user, *req.VerificationCode)
}

// handleLoginStepOne issues a fresh verification code and hands it to the
// mailer.
func (s *Server) handleLoginStepOne(w http.ResponseWriter, r *http.Request, user *auth.User) {
	code, err := s.clerk.Issue(user.ID)
	if err != nil {
		if errors.Is(err, clerk.ErrTooManyRequests) {
			writeTooManyRequests(w, "too many verification code requests")
			return
		}
		writeInternalError(w, "issuing verification code failed")
		return
	}

	if err := s.mailer.Send(r.Context(), user.Email, code); err != nil {
		s.logger.Error("mailer delivery failed", "email", user.Email, "error", err)
		writeInternalError(w, "delivering verification code failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "verification_code_sent"})
}

// handleLoginStepTwo redeems the verification code and mints a token pair.
func (s *Server) handleLoginStepTwo(w http.ResponseWriter, r *http.Request, user *auth.User, code string) {
	userID, ok := s.clerk.Get(code)
	if !ok {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidVerification, "invalid or expired verification code")
		return
	}
	if userID != user.ID {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidVerification, "user-id doesn't match")
		return
	}

	pair, err := s.issueTokenPair(r.Context(), user.ID)
	if err != nil {
		writeInternalError(w, "issuing tokens failed")
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// registerRequest is the body for account creation.
type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeBadRequest(w, "email and password are required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeInternalError(w, "hashing password failed")
		return
	}

	user, err := s.db.CreateUser(r.Context(), req.Email, hash)
	if err != nil {
		if errors.Is(err, database.ErrConflict) {
			writeConflict(w, ErrCodeConflict, "email already registered")
			return
		}
		writeInternalError(w, "creating user failed")
		return
	}

	pair, err := s.issueTokenPair(r.Context(), user.ID)
	if err != nil {
		writeInternalError(w, "issuing tokens failed")
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// logoutRequest carries the refresh token to revoke.
type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	claims, err := s.refreshCodec.Decode(req.RefreshToken)
	if err != nil {
		writeUnauthorized(w, "invalid or expired refresh token")
		return
	}

	// Removing an unknown tid is success-idempotent: a prior logout and
	// an expired-and-swept entry both look the same to the caller.
	if err := s.store.Remove(r.Context(), claims.TokenID); err != nil {
		writeInternalError(w, "revoking refresh token failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// tokenRefreshResponse is returned by token_refresh.
type tokenRefreshResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func (s *Server) handleTokenRefresh(w http.ResponseWriter, r *http.Request) {
	refreshToken, ok := refreshTokenFromRequest(r)
	if !ok {
		writeBadRequest(w, "refresh_token is required")
		return
	}

	claims, err := s.refreshCodec.Decode(refreshToken)
	if err != nil {
		writeUnauthorized(w, "invalid or expired refresh token")
		return
	}

	exists, err := s.store.Exists(r.Context(), claims.TokenID)
	if err != nil {
		writeInternalError(w, "checking refresh token failed")
		return
	}
	if !exists {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidGrant, "refresh token has been revoked")
		return
	}

	accessToken, err := s.accessCodec.New(claims.Subject, "")
	if err != nil {
		writeInternalError(w, "minting access token failed")
		return
	}

	writeJSON(w, http.StatusOK, tokenRefreshResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(codec.AccessTokenTTL.Seconds()),
	})
}

// refreshTokenFromRequest reads the refresh token from either a JSON body
// or a form-encoded one; the latter is kept for compatibility with older
// clients of the token-exchange endpoint.
func refreshTokenFromRequest(r *http.Request) (string, bool) {
	if r.Header.Get("Content-Type") == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			return "", false
		}
		token := r.PostForm.Get("refresh_token")
		return token, token != ""
	}

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", false
	}
	return req.RefreshToken, req.RefreshToken != ""
}

// issueTokenPair mints a fresh refresh+access token pair and records the
// refresh token's id in the store, shared by login step 2 and register.
func (s *Server) issueTokenPair(ctx context.Context, userID string) (tokenPairResponse, error) {
	tid, err := randomTokenID()
	if err != nil {
		return tokenPairResponse{}, err
	}

	if err := s.store.Add(ctx, tid, time.Now().Add(codec.RefreshTokenTTL)); err != nil {
		return tokenPairResponse{}, err
	}

	refreshToken, err := s.refreshCodec.New(userID, tid)
	if err != nil {
		return tokenPairResponse{}, err
	}
	accessToken, err := s.accessCodec.New(userID, "")
	if err != nil {
		return tokenPairResponse{}, err
	}

	return tokenPairResponse{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

const tokenIDBytes = 16

func randomTokenID() (string, error) {
	b := make([]byte, tokenIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
