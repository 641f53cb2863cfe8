package services

import "errors"

// Sentinel errors returned by the service layer. Handlers map them to
// HTTP statuses; anything else is a 500 or an upstream storage error.
var (
	ErrInvalidSignature   = errors.New("недействительные данные авторизации")
	ErrUserNotFound       = errors.New("пользователь не найден")
	ErrTeamNotFound       = errors.New("команда не найдена")
	ErrTeamCodeNotFound   = errors.New("команда с таким кодом не найдена")
	ErrAlreadyInTeam      = errors.New("вы уже состоите в команде")
	ErrNotCaptain         = errors.New("только капитан может выполнить это действие")
	ErrCaptainCannotLeave = errors.New("капитан не может покинуть команду, только распустить её")
	ErrQuizNotFound       = errors.New("викторина не найдена")
	ErrNoActiveQuiz       = errors.New("у команды нет выбранной викторины")
	ErrCodeGeneration     = errors.New("не удалось сгенерировать уникальный код команды")
)
