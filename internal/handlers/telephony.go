package handlers

import (
	"net/http"
	"strings"

	"github.com/aawaaz/complaint-server/internal/services"
	"github.com/aawaaz/complaint-server/internal/telephony"
	"go.uber.org/zap"
)

const maxWebhookBytes = 64 << 10

// TelephonyHandler receives the call gateway webhooks for phone verification
type TelephonyHandler struct {
	verification *services.VerificationService
	authToken    string
	baseURL      string
	logger       *zap.SugaredLogger
}

// NewTelephonyHandler creates a webhook handler. An empty authToken
// disables signature checks.
func NewTelephonyHandler(verification *services.VerificationService, authToken, baseURL string, logger *zap.SugaredLogger) *TelephonyHandler {
	return &TelephonyHandler{
		verification: verification,
		authToken:    authToken,
		baseURL:      strings.TrimRight(baseURL, "/"),
		logger:       logger,
	}
}

func respondTwiML(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// verify parses the form and checks the gateway signature
func (h *TelephonyHandler) verify(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBytes)
	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid form body")
		return false
	}
	if h.authToken == "" {
		return true
	}
	if !telephony.ValidSignature(h.authToken, h.baseURL+r.URL.RequestURI(), r.PostForm, r.Header.Get("X-Twilio-Signature")) {
		h.logger.Warnw("Rejected unsigned telephony webhook", "path", r.URL.Path)
		respondError(w, http.StatusForbidden, "Invalid signature")
		return false
	}
	return true
}

// Voice handles POST /api/telephony/voice/{id}
func (h *TelephonyHandler) Voice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok || !h.verify(w, r) {
		return
	}
	respondTwiML(w, telephony.VerificationPrompt(h.verification.GatherURL(id)))
}

// Gather handles POST /api/telephony/gather/{id}
func (h *TelephonyHandler) Gather(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok || !h.verify(w, r) {
		return
	}
	out, err := h.verification.HandleDigits(r.Context(), id, r.PostFormValue("Digits"))
	if err != nil {
		h.logger.Errorw("Failed to apply verification digits", "complaint_id", id, "error", err)
		respondTwiML(w, telephony.Message("Sorry, we could not process your response. Goodbye."))
		return
	}
	respondTwiML(w, telephony.Message(out.Reply))
}

// Status handles POST /api/telephony/status/{id}
func (h *TelephonyHandler) Status(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok || !h.verify(w, r) {
		return
	}
	callStatus := r.PostFormValue("CallStatus")
	if _, err := h.verification.HandleCallStatus(r.Context(), id, callStatus); err != nil {
		h.logger.Errorw("Failed to apply call status", "complaint_id", id, "call_status", callStatus, "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}
