package services

import (
	"context"
	"net/url"

	"go.uber.org/zap"

	"github.com/Atubu88/quiz/internal/models"
	"github.com/Atubu88/quiz/internal/supabase"
)

// QuizService reads quiz content: categories, quizzes and full question
// sets with options embedded in one round trip.
type QuizService struct {
	db  *supabase.Client
	log *zap.Logger
}

func NewQuizService(db *supabase.Client, log *zap.Logger) *QuizService {
	return &QuizService{db: db, log: log}
}

// Categories returns active categories ordered by name.
func (s *QuizService) Categories(ctx context.Context) ([]models.Category, error) {
	params := url.Values{}
	params.Set("is_active", supabase.Eq(true))
	params.Set("order", "name.asc")

	var categories []models.Category
	if err := s.db.Select(ctx, "categories", params, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// QuizzesByCategory returns every quiz in the category, inactive ones
// included so the bot can render them locked.
func (s *QuizService) QuizzesByCategory(ctx context.Context, categoryID int64) ([]models.Quiz, error) {
	params := url.Values{}
	params.Set("category_id", supabase.Eq(categoryID))
	params.Set("order", "id.asc")

	var quizzes []models.Quiz
	if err := s.db.Select(ctx, "quizzes", params, &quizzes); err != nil {
		return nil, err
	}
	return quizzes, nil
}

// GetQuiz loads the quiz with questions and options embedded.
func (s *QuizService) GetQuiz(ctx context.Context, quizID int64) (*models.Quiz, error) {
	params := url.Values{}
	params.Set("id", supabase.Eq(quizID))
	params.Set("select", "*,questions(*,options(*))")

	var quiz models.Quiz
	found, err := s.db.SelectOne(ctx, "quizzes", params, &quiz)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrQuizNotFound
	}

	for i := range quiz.Questions {
		if _, ok := quiz.Questions[i].CorrectOption(); !ok {
			s.log.Warn("question has no correct option",
				zap.Int64("quiz_id", quizID),
				zap.Int64("question_id", quiz.Questions[i].ID),
			)
		}
	}
	return &quiz, nil
}

// GetMatchingQuiz loads a pair-matching quiz with its pairs.
func (s *QuizService) GetMatchingQuiz(ctx context.Context, quizID int64) (*models.MatchingQuiz, error) {
	params := url.Values{}
	params.Set("id", supabase.Eq(quizID))

	var quiz models.MatchingQuiz
	found, err := s.db.SelectOne(ctx, "matching_quizzes", params, &quiz)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrQuizNotFound
	}
	return &quiz, nil
}

// ActiveQuizzes returns every active quiz regardless of category.
func (s *QuizService) ActiveQuizzes(ctx context.Context) ([]models.Quiz, error) {
	params := url.Values{}
	params.Set("is_active", supabase.Eq(true))
	params.Set("order", "id.asc")

	var quizzes []models.Quiz
	if err := s.db.Select(ctx, "quizzes", params, &quizzes); err != nil {
		return nil, err
	}
	return quizzes, nil
}
