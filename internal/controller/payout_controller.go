package controller

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	domainErrors "github.com/staffdesk/hradmin/internal/domain/errors"
	"github.com/staffdesk/hradmin/internal/middleware"
	"github.com/staffdesk/hradmin/internal/pipeline"
	"github.com/staffdesk/hradmin/internal/service"
)

const defaultUploadName = "upload.csv"

type PayoutController struct {
	payouts        *service.PayoutService
	maxUploadBytes int64
	now            func() time.Time
}

func NewPayoutController(payouts *service.PayoutService, maxUploadBytes int64) *PayoutController {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 5 << 20
	}
	return &PayoutController{payouts: payouts, maxUploadBytes: maxUploadBytes, now: time.Now}
}

// ManualPayout handles POST /api/v1/payouts
func (h *PayoutController) ManualPayout(w http.ResponseWriter, r *http.Request) {
	var req ManualPayoutRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.payouts.ManualPayout(r.Context(), service.ManualPayoutRequest{
		EmployeeID: req.EmployeeID,
		Amount:     req.Amount.String(),
		Currency:   req.Currency,
		Medium:     req.Medium,
		Date:       req.Date,
		Note:       req.Note,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromManualPayout(result))
}

// SubmitBatch handles POST /api/v1/payouts/batches. The file arrives either as
// the "file" part of a multipart form or as a raw text/csv body.
func (h *PayoutController) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	fileName, csv, err := h.readUpload(r)
	if err != nil {
		writeError(w, err)
		return
	}

	adminID, _ := middleware.GetAdminID(r.Context())
	batch, err := h.payouts.SubmitBatch(r.Context(), service.SubmitBatchRequest{
		FileName:    fileName,
		CSV:         csv,
		Medium:      r.FormValue("medium"),
		Date:        r.FormValue("date"),
		SubmittedBy: adminID,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, FromBatch(batch))
}

func (h *PayoutController) readUpload(r *http.Request) (string, string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
			return "", "", uploadError(err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return "", "", domainErrors.NewValidationError("file", "a CSV file is required")
		}
		defer file.Close()

		if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
			return "", "", domainErrors.NewValidationError("file", "only .csv files are accepted")
		}
		data, err := io.ReadAll(file)
		if err != nil {
			return "", "", uploadError(err)
		}
		return header.Filename, string(data), nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return "", "", uploadError(err)
	}
	name := r.URL.Query().Get("file_name")
	if name == "" {
		name = defaultUploadName
	}
	return name, string(data), nil
}

func uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return domainErrors.NewValidationError("file", fmt.Sprintf("file exceeds %d bytes", tooLarge.Limit))
	}
	return domainErrors.NewValidationError("file", "unreadable upload: "+err.Error())
}

// ListBatches handles GET /api/v1/payouts/batches?status=&page=&limit=
func (h *PayoutController) ListBatches(w http.ResponseWriter, r *http.Request) {
	result, err := h.payouts.ListBatches(r.Context(), r.URL.Query().Get("status"), queryInt(r, "page", 1), queryInt(r, "limit", 20))
	if err != nil {
		writeError(w, err)
		return
	}

	resp := BatchListResponse{
		Batches:    make([]*BatchResponse, 0, len(result.Batches)),
		Pagination: FromPage(result.Page),
	}
	for _, b := range result.Batches {
		resp.Batches = append(resp.Batches, FromBatch(b))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetBatch handles GET /api/v1/payouts/batches/{id}
func (h *PayoutController) GetBatch(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid batch ID", Code: "invalid_id"})
		return
	}

	b, err := h.payouts.GetBatch(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FromBatch(b))
}

// GetBatchRows handles GET /api/v1/payouts/batches/{id}/rows
func (h *PayoutController) GetBatchRows(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid batch ID", Code: "invalid_id"})
		return
	}

	rows, err := h.payouts.GetBatchRows(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]RowResultResponse, 0, len(rows))
	for _, row := range rows {
		resp = append(resp, FromRowResult(row))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Template handles GET /api/v1/payouts/template
func (h *PayoutController) Template(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="payout_template.csv"`)
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, pipeline.Template(h.now()))
}
