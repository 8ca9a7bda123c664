// Package extractor reads SMS exports into raw messages.
package extractor

import (
	"encoding/csv"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/insightdelivered/sms-transaction-parser/internal/models"
)

// ErrUnsupportedFormat is returned for files whose extension has no reader.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// ExtractMessages reads an export file and returns its messages ordered by
// timestamp. The format is chosen by file extension.
func ExtractMessages(path string) ([]models.RawMessage, error) {
	var (
		msgs []models.RawMessage
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		msgs, err = readFile(path, ReadCSV)
	case ".xml":
		msgs, err = readFile(path, ReadBackupXML)
	case ".txt":
		msgs, err = readFile(path, func(r io.Reader) ([]models.RawMessage, error) {
			data, err := io.ReadAll(r)
			if err != nil {
				return nil, err
			}
			return ParseConversation(string(data))
		})
	case ".pdf":
		msgs, err = ExtractPDF(path)
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].TimestampMillis < msgs[j].TimestampMillis })
	return msgs, nil
}

func readFile(path string, read func(io.Reader) ([]models.RawMessage, error)) ([]models.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return read(f)
}

// ReadCSV reads sender,body,timestamp rows. A header row is skipped when its
// timestamp column is not a number. Timestamps are epoch milliseconds or one
// of the layouts accepted by ParseTimestamp.
func ReadCSV(r io.Reader) ([]models.RawMessage, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var msgs []models.RawMessage
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(rec) < 3 {
			return nil, fmt.Errorf("line %d: want 3 columns, got %d", line, len(rec))
		}
		ts, err := ParseTimestamp(rec[2])
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		msgs = append(msgs, models.RawMessage{
			Sender:          strings.TrimSpace(rec[0]),
			Body:            rec[1],
			TimestampMillis: ts,
		})
	}
	return msgs, nil
}

// backupSMS is one <sms> element of an SMS Backup & Restore file.
type backupSMS struct {
	Address string `xml:"address,attr"`
	Body    string `xml:"body,attr"`
	Date    int64  `xml:"date,attr"`
	Type    int    `xml:"type,attr"`
}

// inboxType marks received messages; sent and draft messages are skipped.
const inboxType = 1

// ReadBackupXML reads an SMS Backup & Restore XML export, keeping received
// messages only.
func ReadBackupXML(r io.Reader) ([]models.RawMessage, error) {
	var doc struct {
		SMS []backupSMS `xml:"sms"`
	}
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding backup xml: %w", err)
	}
	msgs := make([]models.RawMessage, 0, len(doc.SMS))
	for _, s := range doc.SMS {
		if s.Type != inboxType {
			continue
		}
		msgs = append(msgs, models.RawMessage{
			Sender:          strings.TrimSpace(s.Address),
			Body:            s.Body,
			TimestampMillis: s.Date,
		})
	}
	return msgs, nil
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02-Jan-2006 15:04",
	"02 Jan 2006 15:04",
	"Jan 2, 2006 3:04:05 PM",
	"Jan 2, 2006 3:04 PM",
}

// ParseTimestamp accepts epoch milliseconds or a date-time in one of the
// common export layouts. Layouts without a zone are read as IST.
func ParseTimestamp(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, ist); err == nil {
			return t.UnixMilli(), nil
		}
	}
	return 0, fmt.Errorf("unrecognised timestamp %q", s)
}

var ist = time.FixedZone("IST", 5*60*60+30*60)
