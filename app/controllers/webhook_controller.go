package controllers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/synergychantilly/cgresbox-backend/internal/pkg/database"
	"github.com/synergychantilly/cgresbox-backend/internal/pkg/docseal"
	"github.com/synergychantilly/cgresbox-backend/internal/pkg/env"
)

// HandleDocusealWebhook receives submission events from the signing
// provider. The ledger entry is written before anything else, and every
// path short of a persistence failure acknowledges with 2xx so the
// provider does not retry events we have already stored.
func HandleDocusealWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	eventID := firstHeaderValue(c, "X-Docuseal-Event-ID", "X-Request-ID")
	signature := strings.TrimSpace(c.Get("X-Docuseal-Signature"))
	secret := env.GetEnv("DOCUSEAL_WEBHOOK_SECRET", "")

	svc := docseal.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	signatureValid := docseal.VerifyWebhookSignature(rawBody, signature, secret)
	outcome, err := svc.ProcessWebhook(ctx, rawBody, eventID, signatureValid)
	if err != nil {
		fiberlog.Errorf("[webhook] ledger append failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}
	if outcome.Duplicate {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
	}
	if !signatureValid {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	}
	if outcome.Unresolved {
		// Recorded for operator review; acknowledged so the provider
		// stops retrying a delivery we cannot match yet.
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "unmatched": true})
	}
	if outcome.Ignored {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "ignored": true})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "applied": outcome.Applied})
}

func firstHeaderValue(c *fiber.Ctx, keys ...string) string {
	for _, k := range keys {
		v := strings.TrimSpace(c.Get(k))
		if v != "" {
			return v
		}
	}
	return ""
}
