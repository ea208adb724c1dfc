package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/security"
)

// GamesHandler serves the REST side of the game lifecycle.
type GamesHandler struct {
	service *app.GameService
	tokens  *security.HostTokens
	logger  *zap.Logger
}

func NewGamesHandler(service *app.GameService, tokens *security.HostTokens, logger *zap.Logger) *GamesHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GamesHandler{service: service, tokens: tokens, logger: logger}
}

type createGameRequest struct {
	QuizID string `json:"quizId" binding:"required"`
}

type createGameResponse struct {
	PIN       string `json:"pin"`
	GameID    string `json:"gameId"`
	HostToken string `json:"hostToken,omitempty"`
}

type checkGameResponse struct {
	Exists      bool   `json:"exists"`
	QuizTitle   string `json:"quizTitle,omitempty"`
	PlayerCount int    `json:"playerCount"`
}

// Create handles POST /api/games.
func (h *GamesHandler) Create(c *gin.Context) {
	var req createGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quizId is required", "code": domain.CodeOf(domain.ErrInvalidPayload)})
		return
	}

	info, err := h.service.CreateGame(c.Request.Context(), req.QuizID)
	if err != nil {
		h.fail(c, err)
		return
	}

	var token string
	if h.tokens != nil {
		token, err = h.tokens.Issue(info.PIN, info.GameID)
		if err != nil {
			h.fail(c, err)
			return
		}
	}
	c.JSON(http.StatusCreated, createGameResponse{PIN: info.PIN, GameID: info.GameID, HostToken: token})
}

// Check handles GET /api/games/:pin.
func (h *GamesHandler) Check(c *gin.Context) {
	info, err := h.service.Check(c.Param("pin"))
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, checkGameResponse{Exists: false})
	case errors.Is(err, domain.ErrAlreadyStarted):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": domain.CodeOf(err)})
	case err != nil:
		h.fail(c, err)
	default:
		c.JSON(http.StatusOK, checkGameResponse{Exists: true, QuizTitle: info.QuizTitle, PlayerCount: info.PlayerCount})
	}
}

// Results handles GET /api/games/:pin/results.
func (h *GamesHandler) Results(c *gin.Context) {
	board, err := h.service.Results(c.Param("pin"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, board)
}

func (h *GamesHandler) fail(c *gin.Context, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": domain.CodeOf(err)})
}

func statusOf(err error) int {
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindProtocol:
		return http.StatusBadRequest
	case domain.KindTerminal:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}
