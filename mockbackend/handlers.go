package mockbackend

import (
	"net/http"

	apperrors "github.com/jrsteele09/wydely-client/internal/errors"
)

type signupRequest struct {
	Name         string `json:"name" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required"`
	BusinessName string `json:"businessName" validate:"required"`
	Phone        string `json:"phone"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type verifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required"`
}

type otpChallenge struct {
	Email     string `json:"email"`
	Message   string `json:"message"`
	ExpiresIn int    `json:"expiresIn"`
}

type loginResponse struct {
	RequiresOTP bool   `json:"requiresOtp"`
	Message     string `json:"message,omitempty"`
	issuedSession
}

func (b *Backend) handleSignup(w http.ResponseWriter, r *http.Request) {
	req, ok := bindAndValidate[signupRequest](w, r)
	if !ok {
		return
	}
	if err := ValidatePasswordStrength(req.Password); err != nil {
		renderError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := b.CreateUser(req.Name, req.Email, req.Password, req.BusinessName, false); err != nil {
		if apperrors.Is(err, apperrors.ErrUserExists) {
			renderError(w, http.StatusConflict, "An account with this email already exists")
			return
		}
		b.logger.Error().Err(err).Msg("signup failed")
		renderError(w, http.StatusInternalServerError, "Something went wrong, please try again")
		return
	}

	ttl := b.sendOTP(req.Email)
	renderData(w, http.StatusCreated, otpChallenge{
		Email:     normalizeEmail(req.Email),
		Message:   "We sent a verification code to your email",
		ExpiresIn: int(ttl.Seconds()),
	})
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := bindAndValidate[loginRequest](w, r)
	if !ok {
		return
	}

	user, err := b.users.GetByEmail(req.Email)
	if err != nil || !CheckPasswordHash(req.Password, user.PasswordHash) {
		renderError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	if !user.Verified {
		b.sendOTP(user.Email)
		renderData(w, http.StatusOK, loginResponse{
			RequiresOTP: true,
			Message:     "Please verify your email to continue",
			issuedSession: issuedSession{
				Email: user.Email,
			},
		})
		return
	}

	issued, err := b.startSession(user)
	if err != nil {
		b.logger.Error().Err(err).Msg("login failed")
		renderError(w, http.StatusInternalServerError, "Something went wrong, please try again")
		return
	}
	renderData(w, http.StatusOK, loginResponse{issuedSession: issued})
}

func (b *Backend) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	req, ok := bindAndValidate[verifyOTPRequest](w, r)
	if !ok {
		return
	}

	if !b.consumeOTP(req.Email, req.OTP) {
		renderError(w, http.StatusUnauthorized, "Invalid or expired code")
		return
	}
	user, err := b.users.GetByEmail(req.Email)
	if err != nil {
		renderError(w, http.StatusUnauthorized, "Invalid or expired code")
		return
	}
	if err := b.users.SetVerified(user.Email, true); err != nil {
		b.logger.Error().Err(err).Msg("verify failed")
		renderError(w, http.StatusInternalServerError, "Something went wrong, please try again")
		return
	}

	issued, err := b.startSession(user)
	if err != nil {
		b.logger.Error().Err(err).Msg("verify failed")
		renderError(w, http.StatusInternalServerError, "Something went wrong, please try again")
		return
	}
	renderData(w, http.StatusOK, issued)
}

func (b *Backend) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())
	user, err := b.users.GetByID(claims.Subject)
	if err != nil {
		renderError(w, http.StatusUnauthorized, "Please log in to continue")
		return
	}
	renderData(w, http.StatusOK, user)
}

func (b *Backend) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())
	b.endSession(claims.SessionID)
	renderData(w, http.StatusOK, struct{}{})
}
