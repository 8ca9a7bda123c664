package parser

import (
	"regexp"

	"github.com/insightdelivered/sms-transaction-parser/internal/models"
)

// Axis Bank alerts. Multi-line SMS bodies arrive flattened to one line.
//
// Typical layouts:
//
//	INR 500.00 debited A/c no. XX1234 12-08-24, 10:11:12 UPI/P2M/423456789012/SWIGGY Not you? SMS BLOCKUPI
//	Spent INR 1,299.00 Axis Bank Card no. XX1234 12-08-24 10:11:12 IST AMAZON Avl Limit: INR 50,000.00
var (
	axisMerchantPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bupi/p2[am]/\d+/([^/]+?)(?:\s+not\b|\s+avl\b|\s+-|[./]|$)`),
		regexp.MustCompile(`(?i)\bcard\s+no\.?\s*[x*]*\d{3,4}\s+\S+\s+\S+\s+(?:ist\s+)?(.+?)\s+avl\b`),
	}

	axisUPIRef = regexp.MustCompile(`(?i)\bupi/p2[am]/(\d{6,})/`)

	axisCreditCard = regexp.MustCompile(`(?i)\bspent\b.*\baxis\s+bank\s+card\b.*\bavl\.?\s*(?:lmt|limit)\b`)
)

func axisRules() *Rules {
	return &Rules{
		Bank:   "Axis Bank",
		Method: "axis",
		Suppress: append(append([]*regexp.Regexp{}, preNotificationPatterns...),
			cardBillReceivedPatterns...),
		Merchant: func(body string, _ models.Direction) string {
			return merchantFrom(body, axisMerchantPatterns)
		},
		Reference: func(body string) string {
			if m := axisUPIRef.FindStringSubmatch(body); m != nil {
				return m[1]
			}
			return ""
		},
		CreditCard: axisCreditCard.MatchString,
	}
}
