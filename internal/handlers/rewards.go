package handlers

import (
	"net/http"

	"github.com/aawaaz/complaint-server/internal/services"
	"go.uber.org/zap"
)

// RewardHandler serves the points catalogue for citizens
type RewardHandler struct {
	rewards *services.RewardService
	logger  *zap.SugaredLogger
}

// NewRewardHandler creates a reward handler
func NewRewardHandler(rewards *services.RewardService, logger *zap.SugaredLogger) *RewardHandler {
	return &RewardHandler{rewards: rewards, logger: logger}
}

// List handles GET /api/rewards
func (h *RewardHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.rewards.ListRewards(r.Context(), true)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// Redeem handles POST /api/rewards/redeem/{rewardId}
func (h *RewardHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	rewardID, ok := pathID(w, r, "rewardId")
	if !ok {
		return
	}
	var req struct {
		DeliveryAddress string `json:"deliveryAddress"`
		ContactPhone    string `json:"contactPhone"`
		Notes           string `json:"notes"`
		SendEmail       *bool  `json:"sendEmail"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	red, user, err := h.rewards.Redeem(r.Context(), p.ID, rewardID, services.RedeemRequest{
		DeliveryAddress: req.DeliveryAddress,
		ContactPhone:    req.ContactPhone,
		Notes:           req.Notes,
		SendEmail:       req.SendEmail,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":         "Reward redeemed",
		"redemption":      red,
		"remainingPoints": user.Points,
	})
}

// Redemptions handles GET /api/rewards/redemptions
func (h *RewardHandler) Redemptions(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	list, err := h.rewards.Redemptions(r.Context(), p.ID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// Points handles GET /api/users/points
func (h *RewardHandler) Points(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	user, err := h.rewards.Balance(r.Context(), p.ID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"points":  user.Points,
		"history": user.PointsHistory,
	})
}
