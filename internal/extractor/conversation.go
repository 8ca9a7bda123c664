package extractor

import (
	"fmt"
	"strings"

	"github.com/insightdelivered/sms-transaction-parser/internal/models"
)

// ParseConversation reads a plain-text conversation dump made of blocks:
//
//	From: VM-HDFCBK
//	Date: 2024-08-12 10:11
//	Rs.500 debited from A/c XX1234 ...
//
// Body lines run until the next From: line. Blocks without a sender or a
// readable date are skipped.
func ParseConversation(text string) ([]models.RawMessage, error) {
	var (
		msgs  []models.RawMessage
		cur   *models.RawMessage
		body  []string
		dated bool
	)
	flush := func() {
		if cur != nil && cur.Sender != "" && dated {
			cur.Body = strings.TrimSpace(strings.Join(body, " "))
			if cur.Body != "" {
				msgs = append(msgs, *cur)
			}
		}
		cur, body, dated = nil, nil, false
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case hasField(line, "from:"):
			flush()
			cur = &models.RawMessage{Sender: fieldValue(line)}
		case cur != nil && !dated && hasField(line, "date:"):
			ts, err := ParseTimestamp(fieldValue(line))
			if err == nil {
				cur.TimestampMillis = ts
				dated = true
			}
		case cur != nil && line != "":
			body = append(body, line)
		}
	}
	flush()

	if len(msgs) == 0 && strings.TrimSpace(text) != "" {
		return nil, fmt.Errorf("no From:/Date: message blocks found")
	}
	return msgs, nil
}

func hasField(line, name string) bool {
	return len(line) >= len(name) && strings.EqualFold(line[:len(name)], name)
}

func fieldValue(line string) string {
	_, v, _ := strings.Cut(line, ":")
	return strings.TrimSpace(v)
}
