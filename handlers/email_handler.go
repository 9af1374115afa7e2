package handlers

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"email-scanner/models"
	"email-scanner/services"
)

// EmailHandler serves the scan, stats and email-list endpoints. The scanner
// and the scan store are injected so the pipeline is mockable.
type EmailHandler struct {
	scanner   services.EmailScanner
	scans     services.ScanStore
	maxEmails int
}

func NewEmailHandler(scanner services.EmailScanner, scans services.ScanStore, maxEmails int) *EmailHandler {
	return &EmailHandler{
		scanner:   scanner,
		scans:     scans,
		maxEmails: maxEmails,
	}
}

// ScanEmails runs the full scan pipeline for the authenticated user and
// replaces their stored scan result. An empty mailbox returns a zero summary
// and leaves any previous result untouched.
func (h *EmailHandler) ScanEmails(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Not authenticated",
		})
	}

	slog.Info("Scanning emails", "userID", userID.Hex())

	outcome, err := h.scanner.Scan(c.Context(), h.maxEmails)
	if err != nil {
		slog.Error("Scan failed", "error", err, "userID", userID.Hex())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if outcome.TotalEmails == 0 {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"total_emails":     0,
			"spam_count":       0,
			"legitimate_count": 0,
			"message":          outcome.Message,
		})
	}

	result := &models.ScanResult{
		UserID:             userID,
		ScanTime:           time.Now().UTC(),
		TotalEmails:        outcome.TotalEmails,
		SpamCount:          outcome.SpamCount,
		LegitimateCount:    outcome.LegitimateCount,
		SpamPercentage:     outcome.SpamPercentage,
		AvgSpamConfidence:  outcome.AvgSpamConfidence,
		AvgLegitConfidence: outcome.AvgLegitConfidence,
		SpamEmails:         outcome.SpamEmails,
		LegitimateEmails:   outcome.LegitimateEmails,
	}

	if err := h.scans.Replace(c.Context(), userID, result); err != nil {
		slog.Error("Failed to store scan result", "error", err, "userID", userID.Hex())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	slog.Info("Scan stored",
		"userID", userID.Hex(),
		"total", outcome.TotalEmails,
		"spam", outcome.SpamCount,
	)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"total_emails":     outcome.TotalEmails,
		"spam_count":       outcome.SpamCount,
		"legitimate_count": outcome.LegitimateCount,
		"message":          outcome.Message,
	})
}

// GetStats returns the latest scan aggregates, or all zeros when the user has
// never scanned. Absence of data is not an error.
func (h *EmailHandler) GetStats(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Not authenticated",
		})
	}

	scan, err := h.scans.Latest(c.Context(), userID)
	if err != nil {
		slog.Error("Failed to get stats", "error", err, "userID", userID.Hex())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if scan == nil {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"total_emails":         0,
			"spam_count":           0,
			"legitimate_count":     0,
			"spam_percentage":      0,
			"avg_spam_confidence":  0,
			"avg_legit_confidence": 0,
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"total_emails":         scan.TotalEmails,
		"spam_count":           scan.SpamCount,
		"legitimate_count":     scan.LegitimateCount,
		"spam_percentage":      scan.SpamPercentage,
		"avg_spam_confidence":  scan.AvgSpamConfidence,
		"avg_legit_confidence": scan.AvgLegitConfidence,
	})
}

// GetEmails returns the spam or legitimate list from the latest scan. Any
// other email type is a 400; the check runs after authentication.
func (h *EmailHandler) GetEmails(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Not authenticated",
		})
	}

	emailType := c.Params("emailType")
	if emailType != "spam" && emailType != "legitimate" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": `Invalid email type. Use "spam" or "legitimate".`,
		})
	}

	scan, err := h.scans.Latest(c.Context(), userID)
	if err != nil {
		slog.Error("Failed to get emails", "error", err, "userID", userID.Hex())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if scan == nil {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"emails": []models.ClassifiedEmail{},
		})
	}

	emails := scan.LegitimateEmails
	if emailType == "spam" {
		emails = scan.SpamEmails
	}
	if emails == nil {
		emails = []models.ClassifiedEmail{}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"emails": emails,
	})
}

func currentUserID(c *fiber.Ctx) (primitive.ObjectID, error) {
	userID, _ := c.Locals("user_id").(string)
	return primitive.ObjectIDFromHex(userID)
}
