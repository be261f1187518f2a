package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JonMunkholm/taxref/internal/logging"
	"github.com/JonMunkholm/taxref/internal/validation"
)

// handleValidate decodes an uploaded workbook and validates it against a
// rule set. The decode and validation pass hold an upload slot.
// POST /api/v1/validate/{rule_id}
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "rule_id")

	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		if !isTooLarge(err) {
			err = fmt.Errorf("%w: %v", errMalformedRequest, err)
		}
		respondError(w, r, err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer file.Close()

	ctx := logging.WithContextFields(r.Context(), "upload_id", uuid.NewString())
	logging.FromContext(ctx).Info("upload received",
		"rule_id", ruleID,
		"file", header.Filename,
		"size", header.Size,
	)

	var result *validation.Result
	err = s.limiter.Do(ctx, func(ctx context.Context) error {
		table, err := s.reader.Read(ctx, header.Filename, file)
		if err != nil {
			return err
		}
		result, err = s.engine.Validate(ctx, table, ruleID)
		return err
	})
	if err != nil {
		respondError(w, r.WithContext(ctx), err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// isTooLarge reports whether err came from the MaxBytesReader limit. The
// multipart parser does not always wrap it.
func isTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large")
}
