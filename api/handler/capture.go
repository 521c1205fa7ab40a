package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/use-agent/pagesnap/capture"
	"github.com/use-agent/pagesnap/models"
	"github.com/use-agent/pagesnap/webhook"
)

// Capturer runs one capture. *capture.Pipeline is the production implementation.
type Capturer interface {
	Capture(ctx context.Context, req *models.CaptureRequest) (*capture.Result, error)
}

// CaptureOptions configures the capture handler.
type CaptureOptions struct {
	// OutputDir is where every snapshot is written. Clients choose only
	// the file name.
	OutputDir string

	// WebhookSecret signs webhook payloads when non-empty.
	WebhookSecret string
}

// Capture returns a handler for POST /api/v1/capture.
//
// Orchestration flow:
//  1. Parse & validate request. Defaults are left to the pipeline.
//  2. Take a capture slot or answer 429 CAPTURE_BUSY.
//  3. Run the capture pipeline with its own browser session.
//  4. Notify the webhook, if any, and respond.
func Capture(cp Capturer, slots *Slots, opts CaptureOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()
		captureID := uuid.NewString()

		// ── 1. Parse request ────────────────────────────────────────
		var req models.CaptureRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, captureID, models.NewCaptureError(models.ErrCodeInvalidInput, err.Error(), nil), models.TimingInfo{})
			return
		}
		req.OutputDir = opts.OutputDir

		// ── 2. Slot ─────────────────────────────────────────────────
		if !slots.TryAcquire() {
			respondError(c, captureID, models.NewCaptureError(
				models.ErrCodeBusy,
				"all capture slots are in use, retry later",
				nil,
			), models.TimingInfo{})
			return
		}
		defer slots.Release()

		// ── 3. Capture ──────────────────────────────────────────────
		res, err := cp.Capture(c.Request.Context(), &req)
		if err != nil {
			slog.Warn("capture failed",
				"capture_id", captureID,
				"url", req.URL,
				"code", models.CodeOf(err),
				"error", err,
			)
			notify(req.WebhookURL, opts.WebhookSecret, webhook.EventSnapshotFailed, captureID, map[string]any{
				"url":  req.URL,
				"code": models.CodeOf(err),
			})
			respondError(c, captureID, err, models.TimingInfo{
				TotalMs: time.Since(totalStart).Milliseconds(),
			})
			return
		}

		// ── 4. Respond ──────────────────────────────────────────────
		resp := models.CaptureResponse{
			Success:    true,
			CaptureID:  captureID,
			Path:       res.Path,
			Bytes:      res.Bytes,
			SHA256:     res.SHA256,
			StatusCode: res.StatusCode,
			FinalURL:   res.FinalURL,
			Title:      res.Title,
			FixedPath:  res.FixedPath,
			Findings:   res.Findings,
			Timing: models.TimingInfo{
				TotalMs:      time.Since(totalStart).Milliseconds(),
				LaunchMs:     res.Launch.Milliseconds(),
				NavigationMs: res.Navigation.Milliseconds(),
				ExtractionMs: res.Extraction.Milliseconds(),
				WriteMs:      res.Write.Milliseconds(),
			},
		}
		if req.ReturnContent {
			resp.Content = res.Content
		}
		notify(req.WebhookURL, opts.WebhookSecret, webhook.EventSnapshotSaved, captureID, map[string]any{
			"url":    req.URL,
			"path":   res.Path,
			"bytes":  res.Bytes,
			"sha256": res.SHA256,
			"fixed":  res.FixedPath,
		})

		c.JSON(http.StatusOK, resp)
	}
}

func notify(url, secret, eventType, captureID string, data map[string]any) {
	if url == "" {
		return
	}
	webhook.DeliverAsync(url, secret, webhook.NewEvent(eventType, captureID, data))
}
