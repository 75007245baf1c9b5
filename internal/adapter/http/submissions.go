package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/couchcryptid/forecast-submission-gateway/internal/forecast"
	"github.com/couchcryptid/forecast-submission-gateway/internal/ncfile"
	"github.com/couchcryptid/forecast-submission-gateway/internal/registry"
	"github.com/couchcryptid/forecast-submission-gateway/internal/submission"
)

var validate = validator.New()

// Submitter accepts decoded submissions.
type Submitter interface {
	Submit(ctx context.Context, req submission.Request) (submission.Receipt, error)
}

// uploadForm holds the multipart fields sent with the file. Values are
// checked for presence here; their content is the validator's job.
type uploadForm struct {
	Variable  string `validate:"required"`
	StartDate string `validate:"required"`
	Period    string `validate:"required"`
	Team      string `validate:"required,max=64,excludesall=/\\"`
	Model     string `validate:"required,max=64,excludesall=/\\"`
}

const multipartMemory = 32 << 20

type submissionHandler struct {
	svc      Submitter
	maxBytes int64
	logger   *slog.Logger
}

func (h *submissionHandler) create(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	w.Header().Set("X-Request-ID", requestID)
	logger := h.logger.With("request_id", requestID)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", fmt.Errorf("upload exceeds %d bytes", h.maxBytes))
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("parse multipart form: %w", err))
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck // temp file cleanup

	form := uploadForm{
		Variable:  r.FormValue("variable"),
		StartDate: r.FormValue("fc_start_date"),
		Period:    r.FormValue("period"),
		Team:      r.FormValue("teamname"),
		Model:     r.FormValue("modelname"),
	}
	if err := validate.Struct(form); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	grid, err := readGrid(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	// Form values are text; json.Number lets numeric periods coerce the same
	// way they do from JSON.
	period, err := forecast.ParsePeriodCode(json.Number(form.Period))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, forecast.Reason(err), err)
		return
	}

	receipt, err := h.svc.Submit(r.Context(), submission.Request{
		Submission: forecast.Submission{
			Variable:  form.Variable,
			StartDate: form.StartDate,
			Period:    period,
			Team:      form.Team,
			Model:     form.Model,
		},
		Grid: grid,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, receipt)
	case forecast.IsRejection(err):
		writeError(w, http.StatusUnprocessableEntity, forecast.Reason(err), err)
	case errors.Is(err, registry.ErrNotRegistered):
		writeError(w, http.StatusForbidden, "not_registered", err)
	case errors.Is(err, submission.ErrArchive):
		logger.Error("archive upload failed", "error", err)
		writeError(w, http.StatusBadGateway, "archive_unavailable", err)
	default:
		logger.Error("submission failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", errors.New("internal error"))
	}
}

func readGrid(r *http.Request) (*forecast.Grid, error) {
	f, _, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("read file part: %w", err)
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read file part: %w", err)
	}
	g, err := ncfile.Decode(b)
	if err != nil {
		return nil, fmt.Errorf("file is not a readable netCDF forecast: %w", err)
	}
	return g, nil
}
