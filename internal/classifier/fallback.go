package classifier

import (
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/sms-transaction-parser/internal/models"
	"github.com/insightdelivered/sms-transaction-parser/internal/parser"
)

// Analysis sources.
const (
	SourceModel = "model"
	SourceRegex = "regex"
)

// Analysis is the classifier's view of one message.
type Analysis struct {
	IsTransactional     bool             `json:"isTransactional"`
	Confidence          float64          `json:"confidence"`
	Merchant            string           `json:"merchant,omitempty"`
	Amount              *decimal.Decimal `json:"amount,omitempty"`
	ChannelHint         models.Channel   `json:"channelHint,omitempty"`
	Direction           models.Direction `json:"direction,omitempty"`
	DirectionConfidence float64          `json:"directionConfidence"`
	TypeText            string           `json:"typeText,omitempty"`
	Source              string           `json:"source"`
}

// Fallback analyses body with the regex pattern library alone.
func Fallback(body string) Analysis {
	body = parser.NormalizeBody(body)
	an := Analysis{
		Merchant:    parser.ExtractMerchant(body),
		ChannelHint: parser.DetectChannel(body),
		Direction:   parser.DetectDirection(body),
		Source:      SourceRegex,
	}

	amount, hasAmount := parser.ExtractAmount(body)
	if hasAmount {
		an.Amount = &amount
	}

	keywords := parser.LooksTransactional(body)
	score := 0.0
	if keywords {
		score += 0.3
	}
	if hasAmount {
		score += 0.3
	}
	if an.Direction != "" {
		score += 0.2
	}
	if parser.FindReference(body) != "" {
		score += 0.1
	}
	if parser.HasAccountTail(body) {
		score += 0.1
	}
	an.Confidence = min(score, 0.95)
	an.IsTransactional = keywords && hasAmount && an.Direction != ""

	an.DirectionConfidence = directionConfidence(body, an.Direction)
	return an
}

func directionConfidence(body string, dir models.Direction) float64 {
	if dir == "" {
		return 0
	}
	debits, credits := parser.CountDirectionCues(body)
	total := debits + credits
	if total == 0 {
		// decided by a structural pattern such as a card bill payment
		return 0.6
	}
	win := debits
	if dir == models.Credit {
		win = credits
	}
	return 0.5 + 0.45*float64(win)/float64(total)
}
