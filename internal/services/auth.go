package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/Atubu88/quiz/internal/models"
	"github.com/Atubu88/quiz/internal/supabase"
)

const tokenTTL = 30 * 24 * time.Hour

// AuthService validates Telegram-signed payloads and issues session tokens.
type AuthService struct {
	db        *supabase.Client
	botToken  string
	jwtSecret []byte
	log       *zap.Logger
}

func NewAuthService(db *supabase.Client, botToken, jwtSecret string, log *zap.Logger) *AuthService {
	return &AuthService{db: db, botToken: botToken, jwtSecret: []byte(jwtSecret), log: log}
}

// ValidateInitData checks the signature of a Mini App initData string and
// returns the embedded user. The secret key is HMAC-SHA256 over the bot
// token with the literal key "WebAppData".
func (s *AuthService) ValidateInitData(initData string) (*models.TelegramUser, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte("WebAppData"))
	mac.Write([]byte(s.botToken))
	secret := mac.Sum(nil)

	return s.verify(values, secret)
}

// ValidateLoginWidget checks a Login Widget payload. Here the secret key is
// a plain SHA-256 of the bot token.
func (s *AuthService) ValidateLoginWidget(data url.Values) (*models.TelegramUser, error) {
	secret := sha256.Sum256([]byte(s.botToken))
	return s.verify(data, secret[:])
}

func (s *AuthService) verify(values url.Values, secret []byte) (*models.TelegramUser, error) {
	gotHash := values.Get("hash")
	if gotHash == "" {
		return nil, ErrInvalidSignature
	}
	values.Del("hash")

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+values.Get(k))
	}
	checkString := strings.Join(pairs, "\n")

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(checkString))
	wantHash := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(wantHash), []byte(gotHash)) {
		return nil, ErrInvalidSignature
	}

	var user models.TelegramUser
	if raw := values.Get("user"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			return nil, ErrInvalidSignature
		}
	} else {
		// Login Widget puts the fields at the top level.
		user.FirstName = values.Get("first_name")
		user.LastName = values.Get("last_name")
		user.Username = values.Get("username")
		fmt.Sscanf(values.Get("id"), "%d", &user.ID)
	}
	if user.ID == 0 {
		return nil, ErrInvalidSignature
	}
	return &user, nil
}

// GetOrCreateUser looks the Telegram user up by telegram_id, creating the
// row on first sight.
func (s *AuthService) GetOrCreateUser(ctx context.Context, tg *models.TelegramUser) (*models.User, error) {
	params := url.Values{}
	params.Set("telegram_id", supabase.Eq(tg.ID))

	var user models.User
	found, err := s.db.SelectOne(ctx, "users", params, &user)
	if err != nil {
		return nil, err
	}
	if found {
		return &user, nil
	}

	payload := map[string]interface{}{
		"telegram_id": tg.ID,
		"username":    tg.Username,
		"first_name":  tg.FirstName,
		"last_name":   tg.LastName,
	}
	var created []models.User
	if err := s.db.Insert(ctx, "users", payload, &created); err != nil {
		return nil, err
	}
	if len(created) == 0 {
		return nil, ErrUserNotFound
	}
	s.log.Info("new user registered", zap.Int64("telegram_id", tg.ID))
	return &created[0], nil
}

// GetUserByTelegramID fetches an existing user row.
func (s *AuthService) GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	params := url.Values{}
	params.Set("telegram_id", supabase.Eq(telegramID))

	var user models.User
	found, err := s.db.SelectOne(ctx, "users", params, &user)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrUserNotFound
	}
	return &user, nil
}

// GenerateToken issues a signed session token for the user.
func (s *AuthService) GenerateToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id":     user.ID,
		"telegram_id": user.TelegramID,
		"exp":         time.Now().Add(tokenTTL).Unix(),
		"iat":         time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ParseToken validates a session token and returns the user and telegram ids.
func (s *AuthService) ParseToken(tokenString string) (userID, telegramID int64, err error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return 0, 0, ErrInvalidSignature
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, 0, ErrInvalidSignature
	}
	uid, ok := claims["user_id"].(float64)
	if !ok {
		return 0, 0, ErrInvalidSignature
	}
	tid, _ := claims["telegram_id"].(float64)
	return int64(uid), int64(tid), nil
}
