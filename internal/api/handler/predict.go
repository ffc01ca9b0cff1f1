package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/PhilippCounter/DestinyWeb/internal/api/respond"
	"github.com/PhilippCounter/DestinyWeb/internal/config"
	"github.com/PhilippCounter/DestinyWeb/internal/predict"
)

// predictRequest carries the two team rosters for a prediction.
type predictRequest struct {
	Teams [][]predict.PlayerRef `json:"teams"`
}

// loadModel returns the trained model, reading the snapshot once.
func (h *Handler) loadModel() (*predict.Model, error) {
	h.modelMu.Lock()
	defer h.modelMu.Unlock()
	if h.model != nil {
		return h.model, nil
	}
	m, err := predict.Load(h.cfg.ModelPath())
	if err != nil {
		return nil, err
	}
	h.model = m
	return m, nil
}

// PredictOutcome predicts team one's win probability from the two rosters'
// account-wide PvP aggregates.
// @Summary Predict match outcome
// @Accept json
// @Tags predict
// @Produce json
// @Param request body predictRequest true "Two team rosters"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Failure 503 {object} respond.ErrorResponse
// @Router /predict [post]
func (h *Handler) PredictOutcome(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "Request body must be JSON")
		return
	}
	if len(req.Teams) != predict.TeamCount {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_TEAMS",
			fmt.Sprintf("exactly %d teams are required", predict.TeamCount))
		return
	}

	model, err := h.loadModel()
	if err != nil {
		h.logger.Error("model unavailable", "error", err)
		respond.WriteError(w, http.StatusServiceUnavailable, "NO_MODEL",
			"No trained model snapshot available")
		return
	}

	var teams [predict.TeamCount][]predict.PlayerRef
	copy(teams[:], req.Teams)

	features, err := predict.BuildFeatures(r.Context(), h.stats, teams, h.logger)
	if err != nil {
		h.logger.Error("feature build failed", "error", err)
		respond.WriteError(w, http.StatusBadGateway, "UPSTREAM_ERROR", "Feature build failed")
		return
	}

	p, err := model.Predict(features)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "PREDICT_ERROR", "Prediction failed")
		return
	}

	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"probability": p,
		"percent":     fmt.Sprintf("%.2f", p*100),
		"verdict":     predict.Verdict(p),
	})
}

// trainRequest selects the reference player whose history seeds the
// training set. All fields are optional.
type trainRequest struct {
	MembershipType int    `json:"membershipType"`
	MembershipID   string `json:"membershipId"`
	CharacterID    string `json:"characterId"`
	Mode           int    `json:"mode"`
	Count          int    `json:"count"`
	Epochs         int    `json:"epochs"`
}

// TrainModel regenerates the training dataset and refits the model.
// Rejected outright unless the special-endpoint allow-flag is set.
// @Summary Train prediction model
// @Accept json
// @Tags predict
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} respond.ErrorResponse
// @Failure 502 {object} respond.ErrorResponse
// @Router /train [post]
func (h *Handler) TrainModel(w http.ResponseWriter, r *http.Request) {
	if !h.cfg.AllowSpecialEndpoints {
		respond.WriteError(w, http.StatusForbidden, "NOT_ALLOWED",
			"Administrative endpoints are disabled")
		return
	}

	var req trainRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.Mode == 0 {
		req.Mode = config.ModeTrialsOfOsiris
	}
	if req.Count == 0 {
		req.Count = 200
	}

	opts := predict.DefaultTrainOptions()
	if req.Epochs > 0 {
		opts.Epochs = req.Epochs
	}

	// An existing dataset file is reused; regenerating it costs one
	// upstream call per match and participant.
	samples, err := predict.LoadDataset(h.cfg.DatasetPath())
	if err != nil {
		samples, err = predict.BuildDataset(r.Context(), h.stats, predict.DatasetOptions{
			MembershipType: req.MembershipType,
			MembershipID:   req.MembershipID,
			CharacterID:    req.CharacterID,
			Mode:           req.Mode,
			Count:          req.Count,
		}, h.logger)
		if err != nil {
			h.logger.Error("dataset build failed", "error", err)
			respond.WriteError(w, http.StatusBadGateway, "UPSTREAM_ERROR", "Dataset build failed")
			return
		}
		if err := predict.SaveDataset(h.cfg.DatasetPath(), samples); err != nil {
			h.logger.Warn("dataset save failed", "error", err)
		}
	}

	model, loss, err := predict.Train(samples, opts)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "TRAIN_ERROR", err.Error())
		return
	}
	if err := model.Save(h.cfg.ModelPath()); err != nil {
		h.logger.Error("model save failed", "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "SAVE_ERROR", "Model save failed")
		return
	}

	h.modelMu.Lock()
	h.model = model
	h.modelMu.Unlock()

	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"samples": len(samples),
		"epochs":  opts.Epochs,
		"loss":    loss,
	})
}
