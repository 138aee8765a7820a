package api

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	apperrors "github.com/gmsas95/medreminder/internal/errors"
)

func (s *Server) authMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		auth := c.Get("Authorization")
		if auth == "" {
			return c.Status(401).JSON(fiber.Map{"error": "missing authorization header", "code": apperrors.ErrUnauthorized.Code})
		}

		if !s.validToken(strings.TrimPrefix(auth, "Bearer ")) {
			return c.Status(401).JSON(fiber.Map{"error": "invalid token", "code": apperrors.ErrUnauthorized.Code})
		}

		return c.Next()
	}
}

func (s *Server) validToken(tokenString string) bool {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.config.Security.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	return err == nil && token.Valid
}

// websocketUpgrade only lets authenticated upgrade requests through. The
// token travels in the query string since browsers cannot set headers on
// websocket requests.
func (s *Server) websocketUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		token := c.Query("token")
		if token == "" {
			token = strings.TrimPrefix(c.Get("Authorization"), "Bearer ")
		}
		if !s.validToken(token) {
			return c.Status(401).JSON(fiber.Map{"error": "invalid token", "code": apperrors.ErrUnauthorized.Code})
		}
		return c.Next()
	}
}

func (s *Server) metricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		s.metrics.RecordHTTPRequest(c.Method(), c.Response().StatusCode(), time.Since(start))
		return err
	}
}

// writeError maps an error to a status from its AppError code
func (s *Server) writeError(c *fiber.Ctx, err error) error {
	code := apperrors.GetCode(err)

	status := fiber.StatusInternalServerError
	switch code {
	case apperrors.ErrInvalidMedicine.Code,
		apperrors.ErrInvalidTime.Code,
		apperrors.ErrInvalidProfile.Code,
		apperrors.ErrBadRequest.Code:
		status = fiber.StatusBadRequest
	case apperrors.ErrMedicineNotFound.Code, apperrors.ErrNotFound.Code:
		status = fiber.StatusNotFound
	case apperrors.ErrUnauthorized.Code:
		status = fiber.StatusUnauthorized
	case apperrors.ErrForbidden.Code:
		status = fiber.StatusForbidden
	case apperrors.ErrRegistryFailure.Code:
		status = fiber.StatusBadGateway
	}

	if status == fiber.StatusInternalServerError {
		s.logger.Error("Request failed",
			zap.String("path", c.Path()),
			zap.Error(err))
		return c.Status(status).JSON(fiber.Map{"error": "internal error", "code": code})
	}

	msg := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	return c.Status(status).JSON(fiber.Map{"error": msg, "code": code})
}
