package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Atubu88/quiz/internal/services"
)

type QuizHandler struct {
	quizzes *services.QuizService
}

func NewQuizHandler(quizzes *services.QuizService) *QuizHandler {
	return &QuizHandler{quizzes: quizzes}
}

// Categories lists active categories for the quiz picker.
func (h *QuizHandler) Categories(c *gin.Context) {
	categories, err := h.quizzes.Categories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

// List returns active quizzes, optionally narrowed to a category.
func (h *QuizHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	if raw := c.Query("category_id"); raw != "" {
		categoryID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "некорректный идентификатор категории"})
			return
		}
		quizzes, err := h.quizzes.QuizzesByCategory(ctx, categoryID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, quizzes)
		return
	}

	quizzes, err := h.quizzes.ActiveQuizzes(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quizzes)
}
