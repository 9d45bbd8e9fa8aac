package account

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/smarttraffic/core/internal/config"
	"github.com/smarttraffic/core/internal/middleware"
	"github.com/smarttraffic/core/internal/models"
	jwtpkg "github.com/smarttraffic/core/internal/pkg/jwt"
	redisc "github.com/smarttraffic/core/internal/pkg/redis"
	"github.com/smarttraffic/core/internal/pkg/response"
	sessionpkg "github.com/smarttraffic/core/internal/pkg/session"
	"github.com/smarttraffic/core/internal/repo"
)

var ErrEmailTaken = errors.New("email already registered")

type RegisterDTO struct {
	Name      string   `json:"name"      binding:"required,min=2"`
	Email     string   `json:"email"     binding:"required,email"`
	Password  string   `json:"password"  binding:"required,min=6"`
	Role      string   `json:"role"      binding:"required,oneof=OWNER GENERATOR"`
	Interests []string `json:"interests"`
}

type LoginDTO struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateInterestsDTO struct {
	Interests []string `json:"interests" binding:"required"`
}

type authResponse struct {
	Token string            `json:"token"`
	User  models.PublicUser `json:"user"`
}

// WeeklyRewards is the hook the login path uses to settle an overdue
// leaderboard period before the user sees their balances.
type WeeklyRewards interface {
	CheckAndRun(ctx context.Context) error
}

type Service struct {
	users   *repo.Users
	rds     *redisc.Client
	economy config.EconomyConfig
	rewards WeeklyRewards
}

func NewService(users *repo.Users, rds *redisc.Client, economy config.EconomyConfig, rewards WeeklyRewards) *Service {
	return &Service{users: users, rds: rds, economy: economy, rewards: rewards}
}

// Register creates a user with the starting balances. Email is the unique
// handle; a duplicate registration fails before any write.
func (s *Service) Register(ctx context.Context, dto *RegisterDTO) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(dto.Email))
	existing, err := s.users.ByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := models.User{
		ID:              models.NewID(),
		Name:            strings.TrimSpace(dto.Name),
		Email:           email,
		PasswordHash:    string(hash),
		Role:            models.Role(dto.Role),
		Credits:         s.economy.StartingCredits,
		Points:          0,
		PointMultiplier: 1.0,
		StreakDays:      0,
		Interests:       dto.Interests,
		ReferralCode:    newReferralCode(),
		CreatedAt:       time.Now(),
	}
	if err := s.users.Append(ctx, u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Login verifies credentials, settles any overdue weekly rewards, then
// opens a session and issues its token.
func (s *Service) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	u, err := s.users.ByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return "", nil, err
	}
	if u == nil {
		return "", nil, fmt.Errorf("user not found")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", nil, fmt.Errorf("wrong password")
	}

	if s.rewards != nil {
		if err := s.rewards.CheckAndRun(ctx); err != nil {
			return "", nil, fmt.Errorf("weekly rewards check: %w", err)
		}
		// Re-read: the reward run may have changed this user's balances.
		if fresh, err := s.users.ByID(ctx, u.ID); err == nil && fresh != nil {
			u = fresh
		}
	}

	sess, err := sessionpkg.Create(ctx, s.rds, u.ID)
	if err != nil {
		return "", nil, err
	}
	token, err := jwtpkg.Sign(u.ID, sess.ID, sessionpkg.TTL)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// Logout revokes the active session.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	return sessionpkg.Revoke(ctx, s.rds, sessionID)
}

// Me returns the caller's current account state.
func (s *Service) Me(ctx context.Context, userID string) (*models.User, error) {
	return s.users.ByID(ctx, userID)
}

// UpdateInterests replaces the generator affinity profile.
func (s *Service) UpdateInterests(ctx context.Context, userID string, interests []string) (*models.User, error) {
	return s.users.Mutate(ctx, userID, func(u *models.User) {
		u.Interests = interests
	})
}

func newReferralCode() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "st-" + models.NewID()[:8]
	}
	return "st-" + hex.EncodeToString(b)
}

type Handler struct {
	svc *Service
	rds *redisc.Client
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc, rds: svc.rds} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	a := rg.Group("/accounts")

	a.POST("/register", h.register)
	a.POST("/login", h.login)
	a.POST("/logout", authMW, h.logout)
	a.GET("/me", authMW, h.me)
	a.PATCH("/me/interests", authMW, h.updateInterests)
}

func (h *Handler) register(c *gin.Context) {
	var dto RegisterDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.svc.Register(c.Request.Context(), &dto)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			response.Conflict(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Created(c, u.Public())
}

func (h *Handler) login(c *gin.Context) {
	var dto LoginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	token, u, err := h.svc.Login(c.Request.Context(), dto.Email, dto.Password)
	if err != nil {
		response.UnprocessableEntity(c, err.Error())
		return
	}
	response.OK(c, authResponse{Token: token, User: u.Public()})
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.svc.Logout(c.Request.Context(), middleware.CurrentSessionID(c)); err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) me(c *gin.Context) {
	u, err := h.svc.Me(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if u == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, u.Public())
}

func (h *Handler) updateInterests(c *gin.Context) {
	var dto UpdateInterestsDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.svc.UpdateInterests(c.Request.Context(), middleware.CurrentUserID(c), dto.Interests)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if u == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, u.Public())
}
