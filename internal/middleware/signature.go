package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// ValidateSignature verifies the X-Hub-Signature-256 header Meta attaches
// to webhook deliveries: "sha256=" followed by the hex HMAC-SHA256 of the
// raw request body keyed with the app secret.
func ValidateSignature(appSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("X-Hub-Signature-256")
		if header == "" {
			log.Warn().Msg("webhook delivery missing signature header")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing signature",
			})
		}

		provided := strings.TrimPrefix(header, "sha256=")
		mac := hmac.New(sha256.New, []byte(appSecret))
		mac.Write(c.Body())
		expected := hex.EncodeToString(mac.Sum(nil))

		if !hmac.Equal([]byte(provided), []byte(expected)) {
			log.Warn().Msg("webhook delivery with invalid signature")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid signature",
			})
		}

		return c.Next()
	}
}
