package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Atubu88/quiz/internal/models"
)

const testBotToken = "123456:TEST-TOKEN"

func signValues(values url.Values, secret []byte) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+values.Get(k))
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(strings.Join(pairs, "\n")))
	return hex.EncodeToString(mac.Sum(nil))
}

func webAppSecret(botToken string) []byte {
	mac := hmac.New(sha256.New, []byte("WebAppData"))
	mac.Write([]byte(botToken))
	return mac.Sum(nil)
}

func TestValidateInitData(t *testing.T) {
	svc := NewAuthService(nil, testBotToken, "secret", zap.NewNop())

	values := url.Values{}
	values.Set("auth_date", "1700000000")
	values.Set("query_id", "AAE")
	values.Set("user", `{"id":42,"first_name":"Иван","username":"ivan"}`)
	values.Set("hash", signValues(values, webAppSecret(testBotToken)))

	user, err := svc.ValidateInitData(values.Encode())
	require.NoError(t, err)
	assert.Equal(t, int64(42), user.ID)
	assert.Equal(t, "ivan", user.Username)
	assert.Equal(t, "Иван", user.FirstName)
}

func TestValidateInitDataRejectsTampering(t *testing.T) {
	svc := NewAuthService(nil, testBotToken, "secret", zap.NewNop())

	values := url.Values{}
	values.Set("auth_date", "1700000000")
	values.Set("user", `{"id":42,"first_name":"Иван"}`)
	values.Set("hash", signValues(values, webAppSecret(testBotToken)))

	// Swap the user after signing.
	values.Set("user", `{"id":999,"first_name":"Мallory"}`)

	_, err := svc.ValidateInitData(values.Encode())
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestValidateInitDataMissingHash(t *testing.T) {
	svc := NewAuthService(nil, testBotToken, "secret", zap.NewNop())
	_, err := svc.ValidateInitData("auth_date=1700000000")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestValidateLoginWidget(t *testing.T) {
	svc := NewAuthService(nil, testBotToken, "secret", zap.NewNop())

	secret := sha256.Sum256([]byte(testBotToken))
	values := url.Values{}
	values.Set("id", "42")
	values.Set("first_name", "Иван")
	values.Set("username", "ivan")
	values.Set("auth_date", "1700000000")
	values.Set("hash", signValues(values, secret[:]))

	user, err := svc.ValidateLoginWidget(values)
	require.NoError(t, err)
	assert.Equal(t, int64(42), user.ID)
	assert.Equal(t, "ivan", user.Username)
}

func TestTokenRoundTrip(t *testing.T) {
	svc := NewAuthService(nil, testBotToken, "jwt-secret", zap.NewNop())

	token, err := svc.GenerateToken(&models.User{ID: 5, TelegramID: 42})
	require.NoError(t, err)

	userID, telegramID, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(5), userID)
	assert.Equal(t, int64(42), telegramID)
}

func TestParseTokenWrongSecret(t *testing.T) {
	issuer := NewAuthService(nil, testBotToken, "jwt-secret", zap.NewNop())
	verifier := NewAuthService(nil, testBotToken, "other-secret", zap.NewNop())

	token, err := issuer.GenerateToken(&models.User{ID: 5, TelegramID: 42})
	require.NoError(t, err)

	_, _, err = verifier.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}
