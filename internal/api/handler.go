package api

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/sms-transaction-parser/internal/extractor"
	"github.com/insightdelivered/sms-transaction-parser/internal/models"
	"github.com/insightdelivered/sms-transaction-parser/internal/pipeline"
	"github.com/insightdelivered/sms-transaction-parser/internal/writer"
)

// Version is reported by the health endpoint.
const Version = "2.0.0"

// maxUpload bounds export uploads.
const maxUpload = 32 << 20

// ParseResponse is the JSON response from /api/parse.
type ParseResponse struct {
	Rejected    bool                      `json:"rejected"`
	Transaction *models.ParsedTransaction `json:"transaction,omitempty"`
}

// IngestResponse is the JSON response from /api/messages.
type IngestResponse struct {
	Success    bool              `json:"success"`
	Results    []pipeline.Result `json:"results"`
	Inserted   int               `json:"inserted"`
	Duplicates int               `json:"duplicates"`
	Rejected   int               `json:"rejected"`
	Paired     int               `json:"paired"`
}

// ManualRequest is the body of POST /api/transactions.
type ManualRequest struct {
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Merchant    string          `json:"merchant"`
	Channel     string          `json:"channel"`
	AccountTail string          `json:"accountTail"`
	Note        string          `json:"note"`
	Timestamp   int64           `json:"timestamp"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Handler holds the HTTP handlers for the API.
type Handler struct {
	Pipeline *pipeline.Pipeline
	Workers  int
	Log      zerolog.Logger
}

// NewApp builds a fiber app with panic recovery, CORS and the API routes.
func NewApp(h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit:    maxUpload,
		ErrorHandler: h.handleError,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}))
	h.RegisterRoutes(app)
	return app
}

// RegisterRoutes sets up the API routes.
func (h *Handler) RegisterRoutes(r fiber.Router) {
	api := r.Group("/api")
	api.Get("/health", HandleHealth)
	api.Post("/parse", h.handleParse)
	api.Post("/analyze", h.handleAnalyze)
	api.Post("/messages", h.handleMessages)
	api.Get("/transactions", h.handleTransactions)
	api.Post("/transactions", h.handleManual)
	api.Get("/summary", h.handleSummary)
}

// HandleHealth reports liveness.
func HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"engine":  "fiber",
		"version": Version,
	})
}

func (h *Handler) handleParse(c *fiber.Ctx) error {
	var msg models.RawMessage
	if err := c.BodyParser(&msg); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid message: %v", err))
	}
	txn := h.Pipeline.Parse(c.UserContext(), msg.Sender, msg.Body, msg.TimestampMillis)
	return c.JSON(ParseResponse{Rejected: txn == nil, Transaction: txn})
}

func (h *Handler) handleAnalyze(c *fiber.Ctx) error {
	var req struct {
		Body string `json:"body"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
	}
	return c.JSON(h.Pipeline.Analyze(c.UserContext(), req.Body))
}

// handleMessages ingests a JSON array of messages or an uploaded export file
// (form field "file").
func (h *Handler) handleMessages(c *fiber.Ctx) error {
	msgs, err := h.readMessages(c)
	if err != nil {
		return err
	}

	results, err := h.Pipeline.ProcessBatch(c.UserContext(), msgs, h.Workers)
	if err != nil {
		h.Log.Error().Err(err).Int("messages", len(msgs)).Msg("ingest failed")
		return fiber.NewError(fiber.StatusInternalServerError, "failed to store transactions")
	}

	resp := IngestResponse{Success: true, Results: results}
	for _, res := range results {
		switch {
		case res.Rejected():
			resp.Rejected++
		case res.Duplicate:
			resp.Duplicates++
		default:
			resp.Inserted++
		}
		if res.PairedWith != "" {
			resp.Paired++
		}
	}
	if resp.Results == nil {
		resp.Results = []pipeline.Result{}
	}
	return c.JSON(resp)
}

func (h *Handler) readMessages(c *fiber.Ctx) ([]models.RawMessage, error) {
	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		var msgs []models.RawMessage
		if err := c.BodyParser(&msgs); err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid messages: %v", err))
		}
		return msgs, nil
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "No file uploaded. Use form field 'file'.")
	}
	dir, err := os.MkdirTemp("", "sms-export-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "export"+strings.ToLower(filepath.Ext(fh.Filename)))
	if err := c.SaveFile(fh, path); err != nil {
		return nil, fmt.Errorf("saving upload: %w", err)
	}
	msgs, err := extractor.ExtractMessages(path)
	if errors.Is(err, extractor.ErrUnsupportedFormat) {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Only CSV, XML, TXT and PDF exports are supported.")
	}
	if err != nil {
		return nil, fiber.NewError(fiber.StatusUnprocessableEntity, fmt.Sprintf("export extraction failed: %v", err))
	}
	return msgs, nil
}

// handleTransactions lists stored records in a time range, as JSON or, with
// format=csv, as a CSV report.
func (h *Handler) handleTransactions(c *fiber.Ctx) error {
	from, to, err := parseRange(c)
	if err != nil {
		return err
	}
	records, err := h.Pipeline.Store().Range(c.UserContext(), from, to)
	if err != nil {
		return fmt.Errorf("querying transactions: %w", err)
	}

	if c.Query("format") == "csv" {
		sum := pipeline.Summarize(records)
		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		w := &writer.CSVWriter{IncludeHeader: c.Query("header") != "false"}
		return w.Write(c, records, &sum)
	}
	if records == nil {
		records = []models.TransactionRecord{}
	}
	return c.JSON(records)
}

func (h *Handler) handleSummary(c *fiber.Ctx) error {
	from, to, err := parseRange(c)
	if err != nil {
		return err
	}
	records, err := h.Pipeline.Store().Range(c.UserContext(), from, to)
	if err != nil {
		return fmt.Errorf("querying transactions: %w", err)
	}
	return c.JSON(pipeline.Summarize(records))
}

func (h *Handler) handleManual(c *fiber.Ctx) error {
	var req ManualRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid record: %v", err))
	}
	channel := models.ChannelOther
	if req.Channel != "" {
		ch, ok := models.ParseChannel(strings.ToUpper(req.Channel))
		if !ok {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("unknown channel %q", req.Channel))
		}
		channel = ch
	}

	rec, inserted, err := h.Pipeline.AddManual(c.UserContext(), models.TransactionRecord{
		Type:            strings.ToUpper(req.Type),
		Amount:          req.Amount,
		Merchant:        req.Merchant,
		Channel:         channel,
		AccountTail:     req.AccountTail,
		Body:            req.Note,
		TimestampMillis: req.Timestamp,
	})
	if errors.Is(err, pipeline.ErrInvalidManual) {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err != nil {
		return err
	}
	if !inserted {
		return fiber.NewError(fiber.StatusConflict, "duplicate manual record")
	}
	return c.Status(fiber.StatusCreated).JSON(rec)
}

// parseRange reads the optional from/to epoch-millisecond query parameters.
func parseRange(c *fiber.Ctx) (from, to int64, err error) {
	parse := func(key string) (int64, error) {
		v := c.Query(key)
		if v == "" {
			return 0, nil
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("%s must be epoch milliseconds", key))
		}
		return n, nil
	}
	if from, err = parse("from"); err != nil {
		return 0, 0, err
	}
	if to, err = parse("to"); err != nil {
		return 0, 0, err
	}
	return from, to, nil
}

func (h *Handler) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	} else {
		h.Log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	}
	return c.Status(code).JSON(errorResponse{Success: false, Error: msg})
}
