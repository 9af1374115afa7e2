package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"

	"email-scanner/models"
)

const (
	classifyWorkers      = 4
	subjectPreviewLength = 100
	contentPreviewLength = 200
)

// ScanOutcome is the aggregated result of one scan. Persistence is left to
// the caller: an empty mailbox never touches the store.
type ScanOutcome struct {
	TotalEmails        int
	SpamCount          int
	LegitimateCount    int
	SpamPercentage     float64
	AvgSpamConfidence  float64
	AvgLegitConfidence float64
	SpamEmails         []models.ClassifiedEmail
	LegitimateEmails   []models.ClassifiedEmail
	Message            string
}

// EmailScanner runs a full scan of the user's mailbox.
type EmailScanner interface {
	Scan(ctx context.Context, maxMessages int) (*ScanOutcome, error)
}

// Scanner orchestrates the pipeline: fetch, extract, classify, aggregate.
type Scanner struct {
	mailbox    MailboxClient
	classifier *Classifier
}

func NewScanner(mailbox MailboxClient, classifier *Classifier) *Scanner {
	return &Scanner{mailbox: mailbox, classifier: classifier}
}

// Scan fetches up to maxMessages messages and classifies each one. Fetch
// failures abort the scan; classification failures never do, a bad message
// degrades to a not-spam verdict inside the classifier. Classification runs
// on a bounded worker pool and results keep fetch order.
func (s *Scanner) Scan(ctx context.Context, maxMessages int) (*ScanOutcome, error) {
	rawMessages, err := s.mailbox.FetchMessages(ctx, maxMessages)
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	if len(rawMessages) == 0 {
		slog.Info("No emails to scan")
		return &ScanOutcome{
			SpamEmails:       []models.ClassifiedEmail{},
			LegitimateEmails: []models.ClassifiedEmail{},
			Message:          "No emails found",
		}, nil
	}

	slog.Info("Classifying emails", "count", len(rawMessages))

	classified := make([]models.ClassifiedEmail, len(rawMessages))
	group := &errgroup.Group{}
	group.SetLimit(classifyWorkers)
	for i, raw := range rawMessages {
		i, raw := i, raw
		group.Go(func() error {
			extracted := ExtractMessage(raw.Raw)
			prediction := s.classifier.Classify(extracted.FullText())
			classified[i] = buildClassifiedEmail(raw.ID, extracted, prediction)
			return nil
		})
	}
	// Classification never errors, Wait only synchronizes the pool.
	_ = group.Wait()

	outcome := aggregate(classified)
	slog.Info("Scan complete",
		"total", outcome.TotalEmails,
		"spam", outcome.SpamCount,
		"legitimate", outcome.LegitimateCount,
	)

	return outcome, nil
}

func buildClassifiedEmail(id string, extracted ExtractedEmail, prediction Prediction) models.ClassifiedEmail {
	preview := extracted.Body
	if len([]rune(preview)) > contentPreviewLength {
		preview = string([]rune(preview)[:contentPreviewLength]) + "..."
	}

	classification := "✅ LEGITIMATE"
	if prediction.IsSpam {
		classification = "🚨 SPAM"
	}

	return models.ClassifiedEmail{
		EmailID:               id,
		Subject:               truncateRunes(extracted.Subject, subjectPreviewLength),
		Sender:                extracted.Sender,
		Date:                  extracted.Date,
		Content:               preview,
		Preview:               preview,
		IsSpam:                prediction.IsSpam,
		Confidence:            prediction.Confidence,
		SpamProbability:       prediction.SpamProbability,
		LegitimateProbability: prediction.LegitimateProbability,
		Analysis:              prediction.Analysis,
		Classification:        classification,
	}
}

func aggregate(classified []models.ClassifiedEmail) *ScanOutcome {
	spam := []models.ClassifiedEmail{}
	legit := []models.ClassifiedEmail{}
	var spamConfidence, legitConfidence float64

	for _, email := range classified {
		if email.IsSpam {
			spam = append(spam, email)
			spamConfidence += email.Confidence
		} else {
			legit = append(legit, email)
			legitConfidence += email.Confidence
		}
	}

	total := len(classified)
	outcome := &ScanOutcome{
		TotalEmails:      total,
		SpamCount:        len(spam),
		LegitimateCount:  len(legit),
		SpamEmails:       spam,
		LegitimateEmails: legit,
		Message:          fmt.Sprintf("Successfully scanned %d emails", total),
	}

	if total > 0 {
		outcome.SpamPercentage = math.Round(float64(len(spam))/float64(total)*100*100) / 100
	}
	if len(spam) > 0 {
		outcome.AvgSpamConfidence = spamConfidence / float64(len(spam))
	}
	if len(legit) > 0 {
		outcome.AvgLegitConfidence = legitConfidence / float64(len(legit))
	}

	return outcome
}
