package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/sms-transaction-parser/internal/models"
)

// ist is the zone message timestamps are rendered in.
var ist = time.FixedZone("IST", 5*60*60+30*60)

// CSVWriter renders transaction records as CSV.
type CSVWriter struct {
	// IncludeHeader writes the summary as "# " metadata rows before the table.
	IncludeHeader bool
}

// Write writes records in CSV format to out. sum may be nil when
// IncludeHeader is false.
func (w *CSVWriter) Write(out io.Writer, records []models.TransactionRecord, sum *models.Summary) error {
	writer := csv.NewWriter(out)

	if w.IncludeHeader && sum != nil {
		meta := [][]string{
			{"# Total Credit", formatAmount(sum.TotalCredit)},
			{"# Total Debit", formatAmount(sum.TotalDebit)},
			{"# Net", formatAmount(sum.Net)},
			{"# Counted", strconv.Itoa(sum.Count)},
			{"# Excluded", strconv.Itoa(sum.Excluded)},
		}
		if err := writer.WriteAll(meta); err != nil {
			return fmt.Errorf("failed to write CSV metadata: %w", err)
		}
	}

	header := []string{"ID", "Date", "Sender", "Type", "Amount", "Merchant", "Channel", "Account", "Bank", "Reference", "Balance", "Excluded"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, rec := range records {
		balance := ""
		if rec.BalanceAfter != nil {
			balance = formatAmount(*rec.BalanceAfter)
		}
		row := []string{
			rec.ID,
			formatTimestamp(rec.TimestampMillis),
			rec.Sender,
			rec.Type,
			formatAmount(rec.Amount),
			rec.Merchant,
			string(rec.Channel),
			rec.AccountTail,
			rec.BankName,
			rec.ReferenceID,
			balance,
			strconv.FormatBool(rec.Excluded),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

func formatTimestamp(ms int64) string {
	if ms <= 0 {
		return ""
	}
	return time.UnixMilli(ms).In(ist).Format("2006-01-02 15:04:05")
}
