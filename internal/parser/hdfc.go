package parser

import (
	"regexp"

	"github.com/insightdelivered/sms-transaction-parser/internal/models"
)

// HDFC Bank alerts.
//
// Typical layouts:
//
//	Sent Rs.500.00 From HDFC Bank A/C *1234 To SWIGGY On 12/08/24 Ref 423456789012 Not You?
//	Rs.1500 spent on HDFC Bank Card x1234 at AMAZON on 2024-08-12:10:11:12
//	Update! INR 25,000.00 deposited in HDFC Bank A/c XX1234 on 01-AUG-24 for SALARY AUG 2024.Avl bal INR 1,05,000.00
var (
	hdfcSalary = regexp.MustCompile(`(?i)\b(?:salary|sal\s+credit)\b`)

	hdfcMerchantPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bto\s+(.+?)\s+on\s+\d`),
		regexp.MustCompile(`(?i)\bat\s+(.+?)\s+on\s+\d`),
		regexp.MustCompile(`(?i)\b(?:linked\s+to\s+)?(?:mobile|vpa)\s+\S+\s*\(([^)]{2,60})\)`),
	}

	hdfcCreditCard = regexp.MustCompile(`(?i)\b(?:spent|purchase|charged|txn)\b.*\bhdfc\s+bank\s+credit\s+card\b`)
)

func hdfcRules() *Rules {
	return &Rules{
		Bank:   "HDFC Bank",
		Method: "hdfc",
		Suppress: append(append([]*regexp.Regexp{}, preNotificationPatterns...),
			cardBillReceivedPatterns...),
		Merchant: func(body string, dir models.Direction) string {
			if dir == models.Credit && hdfcSalary.MatchString(body) {
				return "SALARY"
			}
			return merchantFrom(body, hdfcMerchantPatterns)
		},
		CreditCard: func(body string) bool {
			return hdfcCreditCard.MatchString(body) && !cardBillDebit.MatchString(body)
		},
	}
}
