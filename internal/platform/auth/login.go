package auth

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
}

// Authenticator checks staff credentials and issues tokens.
type Authenticator struct {
	users  UserStore
	tokens *TokenIssuer

	dummyOnce sync.Once
	dummyHash []byte
}

func NewAuthenticator(users UserStore, tokens *TokenIssuer) *Authenticator {
	return &Authenticator{users: users, tokens: tokens}
}

// Login returns a token for valid credentials and ErrInvalidLogin otherwise,
// without revealing whether the username exists.
func (a *Authenticator) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	u, err := a.users.GetByUsername(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		// Spend the same bcrypt work as a real comparison.
		bcrypt.CompareHashAndPassword(a.dummy(), []byte(password))
		return "", time.Time{}, ErrInvalidLogin
	}
	if err != nil {
		return "", time.Time{}, err
	}
	if !CheckPassword(u.PasswordHash, password) {
		return "", time.Time{}, ErrInvalidLogin
	}
	return a.tokens.Issue(u.ID, u.Username)
}

func (a *Authenticator) dummy() []byte {
	a.dummyOnce.Do(func() {
		a.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcryptCost)
	})
	return a.dummyHash
}

// LoginHandler serves POST /api/login.
type LoginHandler struct {
	auth   *Authenticator
	logger zerolog.Logger
}

func NewLoginHandler(auth *Authenticator, logger zerolog.Logger) *LoginHandler {
	return &LoginHandler{auth: auth, logger: logger}
}

func (h *LoginHandler) RegisterRoutes(api *echo.Group) {
	api.POST("/login", h.Login)
}

func (h *LoginHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Username == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username and password are required")
	}

	token, exp, err := h.auth.Login(c.Request().Context(), req.Username, req.Password)
	if errors.Is(err, ErrInvalidLogin) {
		h.logger.Info().Str("username", req.Username).Msg("login failed")
		return echo.NewHTTPError(http.StatusUnauthorized, ErrInvalidLogin.Error())
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("login")
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	return c.JSON(http.StatusOK, loginResponse{Token: token, ExpiresAt: exp, Username: req.Username})
}
