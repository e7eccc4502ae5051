package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/csrf"

	"github.com/asaneep/send-mail-ses/internal/adapters/email"
	"github.com/asaneep/send-mail-ses/internal/adapters/settings"
	"github.com/asaneep/send-mail-ses/internal/application/listutil"
	"github.com/asaneep/send-mail-ses/internal/application/orchestrators"
	"github.com/asaneep/send-mail-ses/internal/config"
	"github.com/asaneep/send-mail-ses/internal/domain/job"
	"github.com/asaneep/send-mail-ses/internal/domain/message"
)

// maxUploadBytes caps the multipart form size for sends.
const maxUploadBytes = 32 << 20

// notConfiguredMessage is shown when no provider credentials are available.
const notConfiguredMessage = "AWS credentials not configured. Please go to Settings and configure your AWS credentials."

// displayDateLayout is the timestamp format shown in history listings.
const displayDateLayout = "2006-01-02 15:04:05"

// writeJSON writes v as the response body. Every API response, including
// failures, is HTTP 200 with a status field; the client switches on that.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response_encode_failed", "error", err)
	}
}

// writeError writes the error envelope with a user-facing message.
func writeError(w http.ResponseWriter, msg string) {
	writeJSON(w, map[string]any{"status": "error", "message": msg})
}

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	writeError(w, "internal server error")
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// resolveConfig loads stored settings and layers the environment on top.
func resolveConfig() (config.Config, error) {
	s, err := stores.SettingsStore.Load()
	if err != nil {
		return config.Config{}, err
	}
	return config.Resolve(s)
}

// handleCSRFToken hands the SPA a token for subsequent POSTs.
func handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"status": "success", "token": csrf.Token(r)})
}

// handleSend accepts the compose form and dispatches synchronously.
// The response carries the aggregate status and per-recipient details.
func handleSend(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, "invalid form data")
		return
	}

	cfg, err := resolveConfig()
	if err != nil {
		internalError(w, err)
		return
	}
	if !cfg.Configured() {
		writeError(w, notConfiguredMessage)
		return
	}
	transport, err := newSender(cfg)
	if err != nil {
		internalError(w, err)
		return
	}

	input := orchestrators.SendEmailInput{
		Sender:     strings.TrimSpace(r.FormValue("sender")),
		Subject:    strings.TrimSpace(r.FormValue("subject")),
		Message:    r.FormValue("message"),
		Format:     r.FormValue("messageFormat"),
		Recipients: r.FormValue("recipients"),
	}
	if input.Format == "" {
		input.Format = message.FormatHTML
	}

	if r.FormValue("recipientType") == "file" {
		file, _, err := r.FormFile("recipientFile")
		if err != nil {
			writeError(w, "Recipient file upload failed")
			return
		}
		defer file.Close()
		input.RecipientFile = file
	}

	attachments, err := readAttachments(r)
	if err != nil {
		internalError(w, err)
		return
	}
	input.Attachments = attachments

	// Dispatch must run to completion and reach a terminal job status even
	// if the client disconnects mid-batch.
	ctx := context.WithoutCancel(r.Context())
	result, err := orchestrators.ExecuteSendEmail(ctx, input, orchestrators.SendEmailDeps{
		Jobs:                stores.JobStore,
		Transport:           transport,
		BatchSize:           cfg.BatchSize,
		DelayBetweenBatches: cfg.Delay(),
	})
	if err != nil {
		writeError(w, err.Error())
		return
	}

	writeJSON(w, map[string]any{
		"status":  result.Status,
		"message": result.Message(),
		"jobId":   result.JobID,
		"details": result.Details,
	})
}

// readAttachments collects the uploaded attachment parts.
func readAttachments(r *http.Request) ([]email.Attachment, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	var out []email.Attachment
	for _, header := range r.MultipartForm.File["attachments"] {
		f, err := header.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		out = append(out, email.Attachment{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return out, nil
}

// historyEntry is one row of the history listing.
type historyEntry struct {
	ID         int64  `json:"id"`
	Date       string `json:"date"`
	Sender     string `json:"sender"`
	Subject    string `json:"subject"`
	Recipients string `json:"recipients"`
	Status     string `json:"status"`
}

// handleHistory lists past sends, newest first, ten per page.
func handleHistory(w http.ResponseWriter, r *http.Request) {
	page := listutil.ParsePage(r.URL.Query())
	jobs, info, err := stores.JobStore.List(r.Context(), page)
	if err != nil {
		internalError(w, err)
		return
	}

	entries := make([]historyEntry, 0, len(jobs))
	for _, j := range jobs {
		entries = append(entries, historyEntry{
			ID:         j.ID,
			Date:       j.CreatedAt.Format(displayDateLayout),
			Sender:     j.Sender,
			Subject:    j.Subject,
			Recipients: j.Recipients,
			Status:     j.Status,
		})
	}
	writeJSON(w, map[string]any{
		"status":     "success",
		"history":    entries,
		"pagination": info,
		"page":       info.Page,
		"totalPages": info.TotalPages,
		"totalCount": info.Total,
	})
}

// handleEmailDetails returns a single send including message body and
// per-recipient results.
func handleEmailDetails(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, "Invalid email ID")
		return
	}

	j, err := stores.JobStore.GetByID(r.Context(), id)
	if errors.Is(err, job.ErrNotFound) {
		writeError(w, "Email not found")
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}

	details := j.Details
	if details == nil {
		details = []job.RecipientResult{}
	}
	writeJSON(w, map[string]any{
		"status": "success",
		"details": map[string]any{
			"id":         j.ID,
			"date":       j.CreatedAt.Format(displayDateLayout),
			"sender":     j.Sender,
			"subject":    j.Subject,
			"recipients": j.Recipients,
			"message":    j.Message,
			"status":     j.Status,
			"details":    details,
		},
	})
}

// handleResend clones a past send into a new pending job and queues it
// for background dispatch.
func handleResend(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.FormValue("id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, "Invalid email ID")
		return
	}

	cfg, err := resolveConfig()
	if err != nil {
		internalError(w, err)
		return
	}
	if !cfg.Configured() {
		writeError(w, notConfiguredMessage)
		return
	}

	result, err := orchestrators.ExecuteResendEmail(r.Context(), orchestrators.ResendEmailInput{JobID: id}, orchestrators.ResendEmailDeps{
		Jobs:  stores.JobStore,
		Queue: dispatchQueue,
	})
	if errors.Is(err, job.ErrNotFound) {
		writeError(w, "Email not found")
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}

	writeJSON(w, map[string]any{
		"status":  "success",
		"message": orchestrators.ResendMessage,
		"emailId": result.JobID,
		"taskId":  result.TaskID,
	})
}

// handleGetSettings returns the stored settings with the secret masked.
func handleGetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := stores.SettingsStore.Load()
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, map[string]any{
		"status": "success",
		"settings": map[string]any{
			"awsRegion":           s.AWSRegion,
			"awsAccessKey":        s.AWSAccessKey,
			"awsSecretKey":        s.MaskedSecret(),
			"batchSize":           s.BatchSize,
			"delayBetweenBatches": s.DelayBetweenBatches,
		},
	})
}

// handleSaveSettings validates and persists submitted settings. A masked
// or empty secret keeps the one already stored.
func handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var submitted settings.Settings
	if err := strictDecode(r, &submitted); err != nil {
		writeError(w, "invalid settings payload")
		return
	}

	if submitted.AWSSecretKey == "" || strings.Contains(submitted.AWSSecretKey, "*") {
		current, err := stores.SettingsStore.Load()
		if err != nil {
			internalError(w, err)
			return
		}
		submitted.AWSSecretKey = current.AWSSecretKey
	}

	if err := stores.SettingsStore.Save(submitted); err != nil {
		writeError(w, err.Error())
		return
	}
	slog.Info("settings_saved", "region", submitted.AWSRegion, "batch_size", submitted.BatchSize)
	writeJSON(w, map[string]any{"status": "success", "message": "Settings saved successfully"})
}
