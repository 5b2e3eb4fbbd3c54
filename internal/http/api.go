package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"player-manager/internal/auth"
	"player-manager/internal/domain"
	"player-manager/internal/service"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	users   service.UserService
	players service.PlayerService
	tokens  auth.TokenService
	logger  *logrus.Logger
}

func NewHandler(users service.UserService, players service.PlayerService, tokens auth.TokenService, logger *logrus.Logger) *Handler {
	return &Handler{
		users:   users,
		players: players,
		tokens:  tokens,
		logger:  logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())

	router.POST("/signup", h.signup)
	router.POST("/token", h.token)
	router.POST("/logout", h.logout)
	router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
	})

	players := router.Group("/players")
	players.Use(h.requireAuth())
	{
		players.POST("/", h.createPlayer)
		players.GET("/", h.listPlayers)
		players.GET("/search", h.searchPlayers)
		players.POST("/upload-csv", h.uploadPlayersCSV)
		players.GET("/:id", h.getPlayer)
		players.PUT("/:id", h.updatePlayer)
		players.DELETE("/:id", h.deletePlayer)
	}
}

type signupRequest struct {
	Email    string `json:"email" binding:"required"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenRequest struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

type createPlayerRequest struct {
	Name         string `json:"name" binding:"required"`
	Position     string `json:"position"`
	Team         string `json:"team"`
	Age          int    `json:"age" binding:"required,gt=0"`
	JerseyNumber int    `json:"jersey_number" binding:"required,gt=0"`
}

type updatePlayerRequest struct {
	Name         *string `json:"name"`
	Position     *string `json:"position"`
	Team         *string `json:"team"`
	Age          *int    `json:"age"`
	JerseyNumber *int    `json:"jersey_number"`
}

func (h *Handler) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Signup(c.Request.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, userToResponse(user))
}

func (h *Handler) token(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}

func (h *Handler) logout(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return
	}

	if err := h.tokens.Revoke(c.Request.Context(), token); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "successfully logged out"})
}

func (h *Handler) createPlayer(c *gin.Context) {
	var req createPlayerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	player, err := h.players.Create(c.Request.Context(), currentIdentity(c).UserID, service.PlayerInput{
		Name:         req.Name,
		Position:     req.Position,
		Team:         req.Team,
		Age:          req.Age,
		JerseyNumber: req.JerseyNumber,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, playerToResponse(*player))
}

func (h *Handler) listPlayers(c *gin.Context) {
	players, err := h.players.List(c.Request.Context(), currentIdentity(c).UserID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, playersToResponse(players))
}

func (h *Handler) searchPlayers(c *gin.Context) {
	players, err := h.players.SearchByName(c.Request.Context(), currentIdentity(c).UserID, c.Query("name"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if len(players) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no players found with the given name"})
		return
	}

	c.JSON(http.StatusOK, playersToResponse(players))
}

func (h *Handler) uploadPlayersCSV(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "CSV file is required"})
		return
	}
	if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".csv") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only CSV files are allowed"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read uploaded file"})
		return
	}
	defer file.Close()

	players, err := h.players.ImportCSV(c.Request.Context(), currentIdentity(c).UserID, file)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, playersToResponse(players))
}

func (h *Handler) getPlayer(c *gin.Context) {
	id, ok := playerID(c)
	if !ok {
		return
	}

	player, err := h.players.Get(c.Request.Context(), currentIdentity(c).UserID, id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, playerToResponse(*player))
}

func (h *Handler) updatePlayer(c *gin.Context) {
	id, ok := playerID(c)
	if !ok {
		return
	}

	var req updatePlayerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	player, err := h.players.Update(c.Request.Context(), currentIdentity(c).UserID, id, domain.PlayerPatch{
		Name:         req.Name,
		Position:     req.Position,
		Team:         req.Team,
		Age:          req.Age,
		JerseyNumber: req.JerseyNumber,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, playerToResponse(*player))
}

func (h *Handler) deletePlayer(c *gin.Context) {
	id, ok := playerID(c)
	if !ok {
		return
	}

	if err := h.players.Delete(c.Request.Context(), currentIdentity(c).UserID, id); err != nil {
		h.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func playerID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid player id"})
		return 0, false
	}
	return id, true
}

// abortWithError ends middleware processing with the status writeError maps
// the error to.
func (h *Handler) abortWithError(c *gin.Context, err error) {
	h.writeError(c, err)
	c.Abort()
}

// writeError maps domain errors onto HTTP statuses. Unexpected failures are
// logged and surfaced as a generic 500.
func (h *Handler) writeError(c *gin.Context, err error) {
	var validationErr *domain.ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
	case errors.Is(err, domain.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "incorrect username or password"})
	case errors.Is(err, domain.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
	case errors.Is(err, domain.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "email or username already registered"})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "player not found"})
	default:
		h.logger.WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

type UserResponse struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type PlayerResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Position     string `json:"position"`
	Team         string `json:"team"`
	Age          int    `json:"age"`
	JerseyNumber int    `json:"jersey_number"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

func userToResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Username:  user.Username,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	}
}

func playerToResponse(player domain.Player) PlayerResponse {
	return PlayerResponse{
		ID:           player.ID,
		Name:         player.Name,
		Position:     player.Position,
		Team:         player.Team,
		Age:          player.Age,
		JerseyNumber: player.JerseyNumber,
		CreatedAt:    player.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    player.UpdatedAt.Format(time.RFC3339),
	}
}

func playersToResponse(players []domain.Player) []PlayerResponse {
	resp := make([]PlayerResponse, len(players))
	for i := range players {
		resp[i] = playerToResponse(players[i])
	}
	return resp
}
