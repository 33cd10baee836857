package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"mabletask/telemetry/models"
	"mabletask/telemetry/store"
	"mabletask/telemetry/telemetry"
	"mabletask/telemetry/utils"
)

// AuthHandlers authenticates storefront users. Outcome events (login,
// login_failed) originate here; the request-shaped events (login_attempt,
// register_attempt, logout) come from the activity middleware.
type AuthHandlers struct {
	userStore *store.UserStore
	recorder  *telemetry.Recorder
	logger    *slog.Logger
}

func NewAuthHandlers(userStore *store.UserStore, recorder *telemetry.Recorder, logger *slog.Logger) *AuthHandlers {
	return &AuthHandlers{
		userStore: userStore,
		recorder:  recorder,
		logger:    logger.With("module", "auth"),
	}
}

func (h *AuthHandlers) Signup(c *gin.Context) {
	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	_, err := h.userStore.GetUserByEmail(c.Request.Context(), req.Email)
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "User with this email already exists"})
		return
	}
	if err.Error() != fmt.Sprintf("user with email '%s' not found", req.Email) {
		h.logger.Error("signup email lookup failed", "email", req.Email, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check user existence"})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("password hash failed", "email", req.Email, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
		return
	}

	user, err := h.userStore.CreateUser(c.Request.Context(), req.Email, hashedPassword)
	if err != nil {
		h.logger.Error("user creation failed", "email", req.Email, "error", err.Error())
		if err.Error() == fmt.Sprintf("user with email '%s' already exists", req.Email) {
			c.JSON(http.StatusConflict, gin.H{"error": "User with this email already exists"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register user"})
		}
		return
	}

	h.logger.Info("user registered", "user_id", user.ID, "email", user.Email)
	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully", "user_email": user.Email})
}

// Login authenticates the user and issues a JWT cookie, recording login or
// login_failed by outcome.
func (h *AuthHandlers) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	user, err := h.userStore.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		h.emit(c, models.ActivityEvent{
			EventType: models.EventLoginFailed,
			Payload: models.LoginFailedPayload{
				UsernameAttempt: req.Email,
				Reason:          "invalid_credentials",
			},
		})
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword(user.HashedPassword, []byte(req.Password)); err != nil {
		h.emit(c, models.ActivityEvent{
			EventType: models.EventLoginFailed,
			Payload: models.LoginFailedPayload{
				UsernameAttempt: req.Email,
				Reason:          "invalid_credentials",
			},
		})
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	tokenString, err := utils.GenerateJWT(user)
	if err != nil {
		h.logger.Error("JWT generation failed", "user_id", user.ID, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate authentication token"})
		return
	}

	c.SetCookie("jwt_token", tokenString, int(24*time.Hour/time.Second), "/", "", false, true)

	h.emit(c, models.ActivityEvent{
		EventType: models.EventLogin,
		UserID:    &user.ID,
		Payload: models.LoginPayload{RequestInfo: models.RequestInfo{
			Endpoint:       "auth.login",
			Method:         http.MethodPost,
			Path:           c.Request.URL.Path,
			ResponseStatus: http.StatusOK,
		}},
	})

	h.logger.Info("user logged in", "user_id", user.ID, "email", user.Email)
	c.JSON(http.StatusOK, gin.H{
		"message":    "Login successful",
		"user_email": user.Email,
	})
}

func (h *AuthHandlers) Logout(c *gin.Context) {
	c.SetCookie("jwt_token", "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// emit fills the envelope from the request and records the event with the
// usual log-and-continue policy.
func (h *AuthHandlers) emit(c *gin.Context, ev models.ActivityEvent) {
	ev.Timestamp = time.Now()
	ev.SessionID = requestSessionID(c)
	ev.IPAddress = c.ClientIP()
	ev.UserAgent = c.Request.UserAgent()

	if err := h.recorder.Record(c.Request.Context(), ev); err != nil {
		h.logger.Error("failed to record auth event", "event_type", ev.EventType, "error", err.Error())
	}
}
