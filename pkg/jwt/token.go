package jwtPkg

import (
	"PoseLogin/internal/entity"
	"errors"
	"fmt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"os"
	"strings"
	"time"
)

const (
	AccessTokenSecret = "JWT_ACCESS_TOKEN_SECRET"
	LocalsKey         = "verification"
)

var (
	ErrSecretNotSet  = errors.New("jwt secret not configured")
	ErrMissingHeader = errors.New("empty Authorization header")
	ErrInvalidHeader = errors.New("invalid Authorization format")
	ErrInvalidClaims = errors.New("token claims are missing required fields")
)

// Sign issues an HS256 token holding data plus an exp claim. The secret is
// read from secretEnvKey.
func Sign(data map[string]interface{}, expiresIn time.Duration, secretEnvKey string) (string, int64, error) {
	expiredAt := time.Now().Add(expiresIn).Unix()

	secret := os.Getenv(secretEnvKey)
	if secret == "" {
		return "", 0, fmt.Errorf("%w: %s not set", ErrSecretNotSet, secretEnvKey)
	}

	claims := jwt.MapClaims{}
	for k, v := range data {
		claims[k] = v
	}
	claims["exp"] = expiredAt

	logrus.WithField("claims", claims).Debug("Creating token with claims")

	to := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, err := to.SignedString([]byte(secret))
	if err != nil {
		logrus.WithError(err).Error("Failed to sign token")
		return "", 0, err
	}

	return token, expiredAt, nil
}

// Parse verifies signature and expiry of a raw token.
func Parse(raw string, secretEnvKey string) (*jwt.Token, error) {
	secret := os.Getenv(secretEnvKey)
	if secret == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrSecretNotSet, secretEnvKey)
	}

	return jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
}

func VerifyTokenHeader(c *fiber.Ctx, secretEnvKey string) (*jwt.Token, error) {
	log := logrus.WithField("func", "VerifyTokenHeader")

	header := c.Get("Authorization")
	if header == "" {
		return nil, ErrMissingHeader
	}

	accessToken, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return nil, ErrInvalidHeader
	}

	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return nil, ErrInvalidHeader
	}

	token, err := Parse(accessToken, secretEnvKey)
	if err != nil {
		log.WithError(err).Warn("Failed to parse JWT token")
		return nil, err
	}

	log.Debug("Token successfully verified")
	return token, nil
}

// VerificationClaims extracts the liveness claims from a verified token.
func VerificationClaims(token *jwt.Token) (entity.VerificationClaims, error) {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return entity.VerificationClaims{}, ErrInvalidClaims
	}

	id, ok := claims["verification_id"].(string)
	if !ok || id == "" {
		return entity.VerificationClaims{}, ErrInvalidClaims
	}

	steps, ok := claims["steps"].(float64)
	if !ok {
		return entity.VerificationClaims{}, ErrInvalidClaims
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return entity.VerificationClaims{}, ErrInvalidClaims
	}

	return entity.VerificationClaims{
		VerificationID: id,
		Steps:          int(steps),
		ExpiresAt:      exp.Time,
	}, nil
}

func GetVerificationClaims(c *fiber.Ctx) (entity.VerificationClaims, error) {
	claims, ok := c.Locals(LocalsKey).(entity.VerificationClaims)
	if !ok {
		return entity.VerificationClaims{}, fiber.ErrUnauthorized
	}
	return claims, nil
}
