package handlers

import (
	"errors"
	"net/http"

	"github.com/diewo77/mindfuly/httpx"
	"github.com/diewo77/mindfuly/internal/policy"
	"github.com/diewo77/mindfuly/internal/repository"
	"github.com/diewo77/mindfuly/validation"
	"github.com/gorilla/mux"
)

const (
	maxListLimit         = 100
	maxRunningMeansLimit = 365
)

type MoodHandler struct {
	*identity
	moods *repository.MoodRepository
}

func NewMoodHandler(ids *identity, moods *repository.MoodRepository) *MoodHandler {
	return &MoodHandler{identity: ids, moods: moods}
}

func (h *MoodHandler) Routes(r *mux.Router) {
	r.HandleFunc("/log", h.Create).Methods(http.MethodPost)
	r.HandleFunc("/log/latest", h.EditLatest).Methods(http.MethodPatch)
	r.HandleFunc("/logs/{username}", h.List).Methods(http.MethodGet)
	r.HandleFunc("/logs/{username}", h.Clear).Methods(http.MethodDelete)
	r.HandleFunc("/stats/{username}", h.Stats).Methods(http.MethodGet)
	r.HandleFunc("/stats/{username}/weather", h.WeatherStats).Methods(http.MethodGet)
	r.HandleFunc("/stats/{username}/weekly", h.WeeklyStats).Methods(http.MethodGet)
	r.HandleFunc("/running-means/{username}", h.RunningMeans).Methods(http.MethodGet)
}

// Scores are pointers so a missing field can be told apart from zero.
type createLogRequest struct {
	Username    string  `json:"username"`
	MoodValue   *int    `json:"mood_value"`
	EnergyLevel *int    `json:"energy_level"`
	Notes       *string `json:"notes"`
	Weather     *string `json:"weather"`
}

type editLogRequest struct {
	Username    string  `json:"username"`
	MoodValue   *int    `json:"mood_value"`
	EnergyLevel *int    `json:"energy_level"`
	Notes       *string `json:"notes"`
}

func (h *MoodHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in createLogRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		badRequest(w, err)
		return
	}
	v := validation.Violations{}
	validation.Required("username", in.Username, v)
	if in.MoodValue == nil {
		v["mood_value"] = "required"
	}
	if in.EnergyLevel == nil {
		v["energy_level"] = "required"
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation failed", v)
		return
	}

	user := h.owned(w, r, in.Username, policy.ActionCreate)
	if user == nil {
		return
	}
	log, err := h.moods.CreateLog(r.Context(), repository.NewMoodLog{
		UserID:      user.ID,
		MoodValue:   *in.MoodValue,
		EnergyLevel: *in.EnergyLevel,
		Notes:       in.Notes,
		Weather:     in.Weather,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, log)
}

func (h *MoodHandler) EditLatest(w http.ResponseWriter, r *http.Request) {
	var in editLogRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		badRequest(w, err)
		return
	}
	v := validation.Violations{}
	validation.Required("username", in.Username, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation failed", v)
		return
	}

	user := h.owned(w, r, in.Username, policy.ActionUpdate)
	if user == nil {
		return
	}
	log, err := h.moods.EditMostRecentLog(r.Context(), user.ID, repository.MoodLogPatch{
		MoodValue:   in.MoodValue,
		EnergyLevel: in.EnergyLevel,
		Notes:       in.Notes,
	})
	if errors.Is(err, repository.ErrNotFound) {
		httpx.JSONError(w, http.StatusNotFound, "No mood logs found", nil)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, log)
}

func (h *MoodHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := httpx.QueryInt(r, "limit", repository.DefaultListLimit, 1, maxListLimit)
	if err != nil {
		badRequest(w, err)
		return
	}
	user := h.owned(w, r, mux.Vars(r)["username"], policy.ActionView)
	if user == nil {
		return
	}
	logs, err := h.moods.ListLogs(r.Context(), user.ID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list(logs))
}

type statsResponse struct {
	AverageMood   float64 `json:"average_mood"`
	AverageEnergy float64 `json:"average_energy"`
	TotalLogs     int64   `json:"total_logs"`
}

func (h *MoodHandler) Stats(w http.ResponseWriter, r *http.Request) {
	user := h.owned(w, r, mux.Vars(r)["username"], policy.ActionView)
	if user == nil {
		return
	}
	s, err := h.moods.BasicStats(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, statsResponse{AverageMood: s.AvgMood, AverageEnergy: s.AvgEnergy, TotalLogs: s.TotalLogs})
}

func (h *MoodHandler) WeatherStats(w http.ResponseWriter, r *http.Request) {
	user := h.owned(w, r, mux.Vars(r)["username"], policy.ActionView)
	if user == nil {
		return
	}
	stats, err := h.moods.WeatherStats(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list(stats))
}

func (h *MoodHandler) WeeklyStats(w http.ResponseWriter, r *http.Request) {
	user := h.owned(w, r, mux.Vars(r)["username"], policy.ActionView)
	if user == nil {
		return
	}
	stats, err := h.moods.WeeklyStats(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

func (h *MoodHandler) RunningMeans(w http.ResponseWriter, r *http.Request) {
	limit, err := httpx.QueryInt(r, "limit", repository.DefaultRunningMeansLimit, 1, maxRunningMeansLimit)
	if err != nil {
		badRequest(w, err)
		return
	}
	user := h.owned(w, r, mux.Vars(r)["username"], policy.ActionView)
	if user == nil {
		return
	}
	means, err := h.moods.RunningMeans(r.Context(), user.ID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list(means))
}

func (h *MoodHandler) Clear(w http.ResponseWriter, r *http.Request) {
	user := h.owned(w, r, mux.Vars(r)["username"], policy.ActionDelete)
	if user == nil {
		return
	}
	if err := h.moods.ClearLogs(r.Context(), user.ID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
