package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"moomoney/internal/core"
	"moomoney/internal/ledger"
	"moomoney/internal/workbook"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Response encoding failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps ledger errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrExpenseNotFound), errors.Is(err, ledger.ErrArchiveNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrNoRolloverPending):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrUnknownTheme), errors.Is(err, ledger.ErrEmptyCategory):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeLedgerError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	o := s.tracker.Overview(r.URL.Query().Get("category"))
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	e, err := s.tracker.AddExpense(r.Context())
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

type expensePatchRequest struct {
	Item           *string  `json:"item"`
	Category       *string  `json:"category"`
	Amount         *string  `json:"amount"`
	Qty            *float64 `json:"qty"`
	Unit           *string  `json:"unit"`
	CustomCategory *bool    `json:"custom_category"`
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req expensePatchRequest
	if !decodeBody(w, r, &req) {
		return
	}

	e, err := s.tracker.UpdateExpense(r.Context(), id, ledger.ExpensePatch{
		Item:           req.Item,
		Category:       req.Category,
		AmountRaw:      req.Amount,
		Qty:            req.Qty,
		Unit:           req.Unit,
		CustomCategory: req.CustomCategory,
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleSetExpenseDate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Date string `json:"date"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date: "+req.Date)
		return
	}

	e, pending, err := s.tracker.SetExpenseDate(r.Context(), id, date)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	if pending != nil {
		// Held for confirmation; nothing applied yet.
		writeJSON(w, http.StatusAccepted, map[string]any{"pending": pending})
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleSmartItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	e, err := s.tracker.SmartParseItem(r.Context(), id, req.Text)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.tracker.DeleteExpense(r.Context(), id); err != nil {
		writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount string `json:"amount"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	amount, err := s.tracker.SetBudget(r.Context(), req.Amount)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]core.Money{"budget": amount})
}

func (s *Server) handleSetCategoryBudget(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount string `json:"amount"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	amount, err := s.tracker.SetCategoryBudget(r.Context(), r.PathValue("name"), req.Amount)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]core.Money{"budget": amount})
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.tracker.AddCategory(r.Context(), strings.TrimSpace(req.Name)); err != nil {
		writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleTrackCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.TrackCategory(r.Context(), r.PathValue("name")); err != nil {
		writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUntrackCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.UntrackCategory(r.Context(), r.PathValue("name")); err != nil {
		writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListArchives(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.Archives())
}

func (s *Server) handleOpenArchive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	arch, err := s.tracker.OpenArchive(id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, arch)
}

func (s *Server) handleCloseArchive(w http.ResponseWriter, _ *http.Request) {
	s.tracker.CloseArchive()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteArchive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.tracker.DeleteArchive(r.Context(), id); err != nil {
		writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRolloverCheck(w http.ResponseWriter, r *http.Request) {
	prompt := s.tracker.CheckCalendarDrift(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"drift": prompt})
}

func (s *Server) handleRolloverConfirm(w http.ResponseWriter, r *http.Request) {
	arch, err := s.tracker.ConfirmRollover(r.Context())
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, arch)
}

func (s *Server) handleRolloverDecline(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.DeclineRollover(r.Context()); err != nil {
		writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleManualRolloverConfirm(w http.ResponseWriter, r *http.Request) {
	arch, err := s.tracker.ConfirmManualRollover(r.Context())
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, arch)
}

func (s *Server) handleManualRolloverCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.CancelManualRollover(); err != nil {
		writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetCutoffDay(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Day int `json:"day"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	day := s.tracker.SetCutoffDay(r.Context(), req.Day)
	writeJSON(w, http.StatusOK, map[string]int{"cutoff_day": day})
}

func (s *Server) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Theme string `json:"theme"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.tracker.SetTheme(r.Context(), req.Theme); err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"theme": req.Theme})
}

// handleImport accepts a multipart upload under "file". The whole file is
// parsed before anything is applied: a structurally broken file fails with
// 400 and the ledger is untouched.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxImportBytes)
	if err := r.ParseMultipartForm(s.maxImportBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid upload: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	var (
		rows    []ledger.ImportRow
		dropped int
	)
	switch ext := strings.ToLower(filepath.Ext(header.Filename)); ext {
	case ".xlsx":
		rows, dropped, err = workbook.ParseXLSX(file)
	case ".csv":
		rows, dropped, err = workbook.ParseCSV(file)
	default:
		writeError(w, http.StatusBadRequest, "unsupported file type: "+ext)
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "parse failed: "+err.Error())
		return
	}

	report, err := s.tracker.Import(r.Context(), rows)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	report.Dropped = dropped
	writeJSON(w, http.StatusOK, report)
}

// handleExport downloads the viewed bucket as xlsx (default) or csv.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	o := s.tracker.Overview("")
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "xlsx"
	}

	filename := fmt.Sprintf("moomoney-%s.%s", o.MonthKey, format)
	switch format {
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
		if err := workbook.ExportXLSX(w, o); err != nil {
			slog.ErrorContext(r.Context(), "Export failed", "format", format, "error", err)
		}
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
		if err := workbook.ExportCSV(w, o); err != nil {
			slog.ErrorContext(r.Context(), "Export failed", "format", format, "error", err)
		}
	default:
		writeError(w, http.StatusBadRequest, "unsupported format: "+format)
	}
}
