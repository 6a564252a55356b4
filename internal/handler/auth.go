package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/andikarp/bus-ticketing/internal/config"
	"github.com/andikarp/bus-ticketing/internal/metrics"
	"github.com/andikarp/bus-ticketing/internal/otp"
	"github.com/andikarp/bus-ticketing/internal/queue"
	"github.com/andikarp/bus-ticketing/internal/repository"
	"github.com/andikarp/bus-ticketing/internal/utils"
)

// AuthHandler bundles dependencies for registration, login and the OTP
// verification endpoints.  An account never receives a session token
// before it is verified; login against an unverified account signals
// "verification required" instead of failing outright, so the client can
// route to the OTP step without re-registering.
type AuthHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type verifyReq struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}
type resendReq struct {
	Email string `json:"email"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

// issueOTP generates and stores a fresh code for the user and hands it to
// the notification queue.  The caller has already run the state-machine
// check (Issue or Resend).
func (h *AuthHandler) issueOTP(ctx context.Context, userID uint64, email string, iss otp.Issuance) error {
	if err := h.Users.StoreOTP(ctx, userID, iss.Code, iss.IssuedAt, iss.ResendAfter); err != nil {
		return err
	}
	metrics.OTPIssuedTotal.Inc()
	// Delivery is external; a broker hiccup must not fail the request.
	if err := queue.PublishOTPIssued(ctx, queue.OTPIssuedEvent{
		Email:       email,
		Code:        iss.Code,
		IssuedAt:    iss.IssuedAt.UTC().Format(time.RFC3339),
		ResendAfter: iss.ResendAfter.UTC().Format(time.RFC3339),
	}); err != nil {
		zap.L().Warn("otp event publish failed", zap.String("email", email), zap.Error(err))
	}
	return nil
}

// Register creates an unverified account and issues the first OTP.  The
// response carries no session tokens; those come after verification.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Email, req.Password, h.Cfg.BcryptCost)
	if err != nil {
		if err == repository.ErrEmailExists {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	iss, err := otp.Issue(otp.State{}, time.Now().UTC(), h.Cfg.OTPCooldown)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue otp failed"})
	}
	if err := h.issueOTP(ctx, uid, req.Email, iss); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "store otp failed"})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"user":                  userPart{ID: uid, Email: req.Email},
		"verification_required": true,
		"resend_after_seconds":  int(h.Cfg.OTPCooldown / time.Second),
	})
}

// Login verifies credentials.  A verified account receives a token pair;
// an unverified one gets 403 with its email echoed back so the client can
// continue to the OTP step.  If no code is pending, a fresh one is issued
// on this path.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	if !u.IsVerified {
		if u.OTPCode == nil {
			if iss, issErr := otp.Issue(otp.State{}, time.Now().UTC(), h.Cfg.OTPCooldown); issErr == nil {
				_ = h.issueOTP(ctx, u.ID, u.Email, iss)
			}
		}
		return c.JSON(http.StatusForbidden, echo.Map{
			"error":                 "verification required",
			"verification_required": true,
			"email":                 u.Email,
		})
	}

	return h.respondWithTokens(c, ctx, u.ID, u.Email, http.StatusOK)
}

// VerifyOTP checks the submitted code against the pending one and, on
// success, marks the account verified and issues the first session.
func (h *AuthHandler) VerifyOTP(c echo.Context) error {
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Code = strings.TrimSpace(req.Code)
	if req.Email == "" || req.Code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/code required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "account not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	st := stateFromUser(u.IsVerified, u.OTPCode, u.OTPIssuedAt, u.OTPResendAfter)
	if err := otp.Verify(st, req.Code, time.Now().UTC(), h.Cfg.OTPTTL); err != nil {
		switch err {
		case otp.ErrAlreadyVerified:
			return c.JSON(http.StatusConflict, echo.Map{"error": "already verified"})
		case otp.ErrExpired:
			return c.JSON(http.StatusGone, echo.Map{"error": "otp expired"})
		case otp.ErrInvalidCode, otp.ErrNotPending:
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid otp"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "verify failed"})
		}
	}

	if err := h.Users.MarkVerified(ctx, u.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	metrics.OTPVerifiedTotal.Inc()
	zap.L().Info("account verified", zap.String("email", u.Email))

	return h.respondWithTokens(c, ctx, u.ID, u.Email, http.StatusOK)
}

// ResendOTP re-issues a code once the cooldown has elapsed.  Before that
// it answers 429 with the authoritative remaining seconds; whatever
// countdown the client shows is advisory only.
func (h *AuthHandler) ResendOTP(c echo.Context) error {
	var req resendReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "account not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	now := time.Now().UTC()
	st := stateFromUser(u.IsVerified, u.OTPCode, u.OTPIssuedAt, u.OTPResendAfter)
	iss, err := otp.Resend(st, now, h.Cfg.OTPCooldown)
	if err != nil {
		switch err {
		case otp.ErrAlreadyVerified:
			return c.JSON(http.StatusConflict, echo.Map{"error": "already verified"})
		case otp.ErrCooldownActive:
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":       "cooldown active",
				"retry_after": otp.ResendRemaining(st, now),
			})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "resend failed"})
		}
	}
	if err := h.issueOTP(ctx, u.ID, u.Email, iss); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "store otp failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"resend_after_seconds": int(h.Cfg.OTPCooldown / time.Second),
	})
}

// Refresh validates a refresh token by hash, revokes it and issues a new
// pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	_ = h.Tokens.RevokeByHash(ctx, hash)

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	return h.respondWithTokens(c, ctx, u.ID, u.Email, http.StatusOK)
}

// Logout revokes the presented refresh token.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user": userPart{ID: u.ID, Email: u.Email}})
}

// respondWithTokens issues an access/refresh pair and writes the auth
// response.
func (h *AuthHandler) respondWithTokens(c echo.Context, ctx context.Context, userID uint64, email string, status int) error {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, userID, email, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue refresh failed"})
	}
	if err := h.Tokens.StoreRefresh(ctx, userID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save refresh failed"})
	}
	return c.JSON(status, authResp{
		User:    userPart{ID: userID, Email: email},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	})
}

// stateFromUser maps the nullable OTP columns of a user row onto the
// state-machine snapshot.
func stateFromUser(verified bool, code *string, issuedAt, resendAfter *time.Time) otp.State {
	st := otp.State{Verified: verified}
	if code != nil {
		st.Code = *code
	}
	if issuedAt != nil {
		st.IssuedAt = *issuedAt
	}
	if resendAfter != nil {
		st.ResendAfter = *resendAfter
	}
	return st
}
