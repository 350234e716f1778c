package controller

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/adapter/http/models"
	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/commons"
	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/logger"
	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/usecase/service_interfaces"
)

const signatureHeader = "Webhook-Signature"

// WebhookController receives capture-system events and hands confirmed
// captures to the settlement path. Signature verification happens here, at
// the boundary; nothing past this controller sees an unverified payload.
type WebhookController struct {
	settlementService service_interfaces.SettlementService
	webhookSecret     string
}

func NewWebhookController(settlementService service_interfaces.SettlementService, webhookSecret string) *WebhookController {
	return &WebhookController{
		settlementService: settlementService,
		webhookSecret:     webhookSecret,
	}
}

func (c *WebhookController) RegisterRoutes(mux *http.ServeMux, _ func(http.Handler) http.Handler) {
	// Webhooks authenticate with the shared-secret signature, not basic auth.
	mux.Handle("/webhooks/capture", http.HandlerFunc(c.handleCaptureEvent))
}

func (c *WebhookController) handleCaptureEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, commons.ErrorResponse[models.WebhookAck]("method not allowed"))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, commons.ErrorResponse[models.WebhookAck]("invalid request body", err.Error()))
		return
	}

	if !c.signatureValid(r.Header.Get(signatureHeader), body) {
		logger.Info("webhook signature verification failed", logger.Fields{
			"path": r.URL.Path,
		})
		writeJSON(w, http.StatusBadRequest, commons.ErrorResponse[models.WebhookAck]("signature verification failed"))
		return
	}

	var event models.CaptureEvent
	if err := json.Unmarshal(body, &event); err != nil {
		writeJSON(w, http.StatusBadRequest, commons.ErrorResponse[models.WebhookAck]("invalid request body", err.Error()))
		return
	}

	if event.Type != models.EventTypeCaptureSucceeded {
		// Not ours; acknowledge so the sender stops redelivering.
		writeJSON(w, http.StatusOK, commons.SuccessResponse("event ignored", models.WebhookAck{Received: true}))
		return
	}

	if err := event.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, commons.ErrorResponse[models.WebhookAck]("validation failed", err.Error()))
		return
	}

	if err := c.settlementService.HandleCaptureSucceeded(r.Context(), event.ToSourceTransaction()); err != nil {
		logger.Error("webhook settlement trigger failed", err, logger.Fields{
			"sourceId": event.Data.Object.ID,
		})
		writeJSON(w, http.StatusInternalServerError, commons.ErrorResponse[models.WebhookAck]("failed to process event"))
		return
	}

	writeJSON(w, http.StatusOK, commons.SuccessResponse("event processed", models.WebhookAck{Received: true}))
}

func (c *WebhookController) signatureValid(signature string, body []byte) bool {
	if c.webhookSecret == "" || signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
