package transport

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"marketplace/internal/middleware"
	"marketplace/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const refreshTokenCookie = "refresh_token"

// RegisterVendorRequest represents the vendor sign-up payload
type RegisterVendorRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Username        string `json:"username" validate:"required,min=3,max=150"`
	Password        string `json:"password" validate:"required,min=8"`
	BusinessName    string `json:"business_name" validate:"required,max=255"`
	BusinessAddress string `json:"business_address" validate:"max=1000"`
}

// RegisterCustomerRequest represents the customer sign-up payload
type RegisterCustomerRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Username        string `json:"username" validate:"required,min=3,max=150"`
	Password        string `json:"password" validate:"required,min=8"`
	ShippingAddress string `json:"shipping_address" validate:"max=1000"`
}

// LoginRequest accepts a username or an email as login
type LoginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest represents the token refresh request payload
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         UserResponse `json:"user"`
}

// RefreshResponse represents the token refresh response
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
}

// UserHandler handles HTTP requests for registration and sessions
type UserHandler struct {
	userService   service.UserService
	tokens        service.TokenConfig
	secureCookies bool
	logger        *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService service.UserService, tokens service.TokenConfig, secureCookies bool, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService:   userService,
		tokens:        tokens,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// RegisterRoutes registers all auth routes
func (h *UserHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register/vendor", h.RegisterVendor)
		r.Post("/register/customer", h.RegisterCustomer)
		r.Post("/token", h.Login)
		r.Post("/token/refresh", h.RefreshToken)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Post("/logout", h.Logout)
			r.Get("/profile", h.GetProfile)
		})
	})
}

// RegisterVendor handles vendor registration
func (h *UserHandler) RegisterVendor(w http.ResponseWriter, r *http.Request) {
	var req RegisterVendorRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Vendor registration validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	user, err := h.userService.RegisterVendor(r.Context(), service.RegisterVendorInput{
		Email:           req.Email,
		Username:        req.Username,
		Password:        req.Password,
		BusinessName:    req.BusinessName,
		BusinessAddress: req.BusinessAddress,
	})
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}

	middleware.RespondWithMessage(w, http.StatusCreated, "vendor registered successfully", toUserResponse(user))
}

// RegisterCustomer handles customer registration
func (h *UserHandler) RegisterCustomer(w http.ResponseWriter, r *http.Request) {
	var req RegisterCustomerRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Customer registration validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	user, err := h.userService.RegisterCustomer(r.Context(), service.RegisterCustomerInput{
		Email:           req.Email,
		Username:        req.Username,
		Password:        req.Password,
		ShippingAddress: req.ShippingAddress,
	})
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}

	middleware.RespondWithMessage(w, http.StatusCreated, "customer registered successfully", toUserResponse(user))
}

// Login handles user authentication
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Login validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	accessToken, refreshToken, user, err := h.userService.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		h.logger.Debug("Login failed", zap.Error(err))
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}

	h.setCookie(w, middleware.AccessTokenCookie, accessToken, h.tokens.AccessExpiry)
	h.setCookie(w, refreshTokenCookie, refreshToken, h.tokens.RefreshExpiry)

	h.logger.Info("User logged in", zap.String("user_id", user.ID.String()))
	middleware.RespondWithJSON(w, http.StatusOK, LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         toUserResponse(user),
	})
}

// Logout revokes the refresh token from the body or cookie and clears the
// session cookies. Without any refresh token every session of the caller
// is revoked.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}

	refreshToken, err := h.refreshTokenFrom(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if refreshToken != "" {
		err = h.userService.Logout(r.Context(), refreshToken)
	} else {
		err = h.userService.LogoutAll(r.Context(), caller.UserID)
	}
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}

	h.clearCookie(w, middleware.AccessTokenCookie)
	h.clearCookie(w, refreshTokenCookie)

	h.logger.Info("User logged out", zap.String("user_id", caller.UserID.String()))
	middleware.RespondWithMessage(w, http.StatusOK, "logged out successfully", nil)
}

// RefreshToken handles token refresh
func (h *UserHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	refreshToken, err := h.refreshTokenFrom(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if refreshToken == "" {
		middleware.RespondWithValidationErrors(w, []middleware.ValidationError{
			{Field: "RefreshToken", Message: "This field is required"},
		})
		return
	}

	accessToken, err := h.userService.RefreshToken(r.Context(), refreshToken)
	if err != nil {
		h.logger.Debug("Token refresh failed", zap.Error(err))
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}

	h.setCookie(w, middleware.AccessTokenCookie, accessToken, h.tokens.AccessExpiry)
	middleware.RespondWithJSON(w, http.StatusOK, RefreshResponse{AccessToken: accessToken})
}

// GetProfile returns the caller with its vendor or customer profile
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}

	profile, err := h.userService.GetProfile(r.Context(), caller.UserID)
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ProfileResponse{
		User:     toUserResponse(profile.User),
		Vendor:   profile.Vendor,
		Customer: profile.Customer,
	})
}

// refreshTokenFrom reads the refresh token from an optional JSON body,
// falling back to the refresh token cookie
func (h *UserHandler) refreshTokenFrom(r *http.Request) (string, error) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	if req.RefreshToken != "" {
		return req.RefreshToken, nil
	}
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil {
		return cookie.Value, nil
	}
	return "", nil
}

func (h *UserHandler) setCookie(w http.ResponseWriter, name, value string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *UserHandler) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
