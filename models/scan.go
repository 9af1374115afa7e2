package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ClassifiedEmail is one scanned message with its classification verdict.
type ClassifiedEmail struct {
	EmailID               string  `bson:"email_id" json:"email_id"`
	Subject               string  `bson:"subject" json:"subject"`
	Sender                string  `bson:"sender" json:"sender"`
	Date                  string  `bson:"date" json:"date"`
	Content               string  `bson:"content" json:"content"`
	Preview               string  `bson:"preview" json:"preview"`
	IsSpam                bool    `bson:"is_spam" json:"is_spam"`
	Confidence            float64 `bson:"confidence" json:"confidence"`
	SpamProbability       float64 `bson:"spam_probability" json:"spam_probability"`
	LegitimateProbability float64 `bson:"legitimate_probability" json:"legitimate_probability"`
	Analysis              string  `bson:"analysis" json:"analysis"`
	Classification        string  `bson:"classification" json:"classification"`
}

// ScanResult holds the latest scan for a user. At most one document per user:
// each scan deletes prior results before inserting the new one.
type ScanResult struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID             primitive.ObjectID `bson:"user_id" json:"user_id"`
	ScanTime           time.Time          `bson:"scan_time" json:"scan_time"`
	TotalEmails        int                `bson:"total_emails" json:"total_emails"`
	SpamCount          int                `bson:"spam_count" json:"spam_count"`
	LegitimateCount    int                `bson:"legitimate_count" json:"legitimate_count"`
	SpamPercentage     float64            `bson:"spam_percentage" json:"spam_percentage"`
	AvgSpamConfidence  float64            `bson:"avg_spam_confidence" json:"avg_spam_confidence"`
	AvgLegitConfidence float64            `bson:"avg_legit_confidence" json:"avg_legit_confidence"`
	SpamEmails         []ClassifiedEmail  `bson:"spam_emails" json:"spam_emails"`
	LegitimateEmails   []ClassifiedEmail  `bson:"legitimate_emails" json:"legitimate_emails"`
}
