package jwtPkg

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secretKey = "TEST_JWT_SECRET"

func TestSignAndParseVerificationToken(t *testing.T) {
	t.Setenv(secretKey, "s3cret")

	raw, exp, err := Sign(map[string]interface{}{
		"verification_id": "01HX",
		"steps":           4,
	}, time.Minute, secretKey)
	require.NoError(t, err)
	assert.Greater(t, exp, time.Now().Unix())

	token, err := Parse(raw, secretKey)
	require.NoError(t, err)

	claims, err := VerificationClaims(token)
	require.NoError(t, err)
	assert.Equal(t, "01HX", claims.VerificationID)
	assert.Equal(t, 4, claims.Steps)
	assert.Equal(t, exp, claims.ExpiresAt.Unix())
}

func TestSignWithoutSecret(t *testing.T) {
	t.Setenv(secretKey, "")
	_, _, err := Sign(nil, time.Minute, secretKey)
	assert.ErrorIs(t, err, ErrSecretNotSet)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	t.Setenv(secretKey, "s3cret")
	raw, _, err := Sign(map[string]interface{}{"verification_id": "x", "steps": 1}, -time.Minute, secretKey)
	require.NoError(t, err)

	_, err = Parse(raw, secretKey)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	t.Setenv(secretKey, "one")
	raw, _, err := Sign(map[string]interface{}{"verification_id": "x", "steps": 1}, time.Minute, secretKey)
	require.NoError(t, err)

	t.Setenv(secretKey, "two")
	_, err = Parse(raw, secretKey)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestVerificationClaimsRequiresFields(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"steps": 2.0})
	_, err := VerificationClaims(token)
	assert.ErrorIs(t, err, ErrInvalidClaims)
}

func TestVerifyTokenHeader(t *testing.T) {
	t.Setenv(secretKey, "s3cret")
	raw, _, err := Sign(map[string]interface{}{"verification_id": "abc", "steps": 2}, time.Minute, secretKey)
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		if _, err := VerifyTokenHeader(c, secretKey); err != nil {
			return c.SendStatus(fiber.StatusUnauthorized)
		}
		return c.SendStatus(fiber.StatusOK)
	})

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer " + raw, fiber.StatusOK},
		{"missing", "", fiber.StatusUnauthorized},
		{"no bearer prefix", raw, fiber.StatusUnauthorized},
		{"garbage", "Bearer not-a-token", fiber.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}
