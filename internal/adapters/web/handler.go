// Package web exposes the weighing service to station front-ends as a small
// JSON API. All business logic stays behind app.WeighingService.
package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"weighbridge-station/internal/app"
	"weighbridge-station/internal/core"
)

// Scale is the live link state the API surfaces to front-ends.
// *weighbridge.Manager satisfies it.
type Scale interface {
	LastReading() (core.WeightReading, bool)
	Stable() bool
	AtZero() bool
	Simulated() bool
	RequireZeroConfirm() bool
	ConfirmZero() error
}

type Handler struct {
	svc   app.WeighingService
	scale Scale
}

// NewHandler wires the router.
func NewHandler(svc app.WeighingService, scale Scale) http.Handler {
	h := &Handler{svc: svc, scale: scale}

	r := chi.NewRouter()
	r.Get("/api/health", h.health)
	r.Get("/api/scale", h.scaleStatus)
	r.Post("/api/scale/confirm-zero", h.confirmZero)
	r.Post("/api/weigh", h.weigh)
	r.Post("/api/dockets/{id}/cancel", h.cancelDocket)
	r.Get("/api/open-docket", h.openDocket)
	return r
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// scaleStatus reports the current link state: last reading, stability, zero
// and whether the simulation is feeding the link. Front-ends poll it or
// subscribe to the websocket feed instead.
func (h *Handler) scaleStatus(w http.ResponseWriter, _ *http.Request) {
	status := map[string]any{
		"stable":               h.scale.Stable(),
		"zero":                 h.scale.AtZero(),
		"simulated":            h.scale.Simulated(),
		"require_zero_confirm": h.scale.RequireZeroConfirm(),
	}
	if reading, ok := h.scale.LastReading(); ok {
		status["reading"] = reading
	}
	writeJSON(w, status)
}

func (h *Handler) confirmZero(w http.ResponseWriter, _ *http.Request) {
	if err := h.scale.ConfirmZero(); err != nil {
		writeError(w, err.Error(), "ZERO_NOT_CONFIRMED", http.StatusConflict, nil)
		return
	}
	writeJSON(w, map[string]string{"status": "zero confirmed"})
}

// weighPayload is the wire form of a WeighRequest. The tare override travels
// as a string so clients never round it through a float.
type weighPayload struct {
	Rego                  string             `json:"rego"`
	Mode                  string             `json:"mode"`
	TareOverride          string             `json:"tare_override,omitempty"`
	SourceSiteCode        string             `json:"source_site_code,omitempty"`
	DestSiteCode          string             `json:"dest_site_code,omitempty"`
	ItemCode              string             `json:"item_code,omitempty"`
	CustomerCode          string             `json:"customer_code,omitempty"`
	TransportCode         string             `json:"transport_code,omitempty"`
	DriverCode            string             `json:"driver_code,omitempty"`
	Remarks               string             `json:"remarks,omitempty"`
	CreateVehicle         *newVehiclePayload `json:"create_vehicle,omitempty"`
	AcknowledgeInProgress bool               `json:"acknowledge_in_progress,omitempty"`
}

type newVehiclePayload struct {
	TareWeight string `json:"tare_weight"`
	MaxWeight  string `json:"max_weight"`
}

func (h *Handler) weigh(w http.ResponseWriter, r *http.Request) {
	var payload weighPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, "invalid request body", "BAD_REQUEST", http.StatusBadRequest, nil)
		return
	}

	req := app.WeighRequest{
		Rego:                  payload.Rego,
		Mode:                  core.WeighingMode(payload.Mode),
		SourceSiteCode:        payload.SourceSiteCode,
		DestSiteCode:          payload.DestSiteCode,
		ItemCode:              payload.ItemCode,
		CustomerCode:          payload.CustomerCode,
		TransportCode:         payload.TransportCode,
		DriverCode:            payload.DriverCode,
		Remarks:               payload.Remarks,
		AcknowledgeInProgress: payload.AcknowledgeInProgress,
	}
	if payload.TareOverride != "" {
		tare, err := decimal.NewFromString(payload.TareOverride)
		if err != nil {
			writeError(w, "invalid tare override", "BAD_REQUEST", http.StatusBadRequest, nil)
			return
		}
		req.TareOverride = &tare
	}
	if payload.CreateVehicle != nil {
		input := core.VehicleInput{}
		if v, err := decimal.NewFromString(payload.CreateVehicle.TareWeight); err == nil {
			input.TareWeight = v
		}
		if v, err := decimal.NewFromString(payload.CreateVehicle.MaxWeight); err == nil {
			input.MaxWeight = v
		}
		req.CreateVehicle = &input
	}

	result, err := h.svc.Weigh(r.Context(), req)
	if err != nil {
		h.writeWeighError(w, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) writeWeighError(w http.ResponseWriter, err error) {
	var validationErr *app.ValidationError
	if errors.As(err, &validationErr) {
		writeError(w, err.Error(), "VALIDATION_FAILED", http.StatusUnprocessableEntity, validationErr.Issues)
		return
	}
	var inProgressErr *app.InProgressError
	if errors.As(err, &inProgressErr) {
		writeError(w, err.Error(), "DOCKET_IN_PROGRESS", http.StatusConflict, inProgressErr.Docket)
		return
	}
	if errors.Is(err, core.ErrVehicleNotFound) {
		writeError(w, err.Error(), "VEHICLE_NOT_FOUND", http.StatusNotFound, nil)
		return
	}
	writeError(w, err.Error(), "INTERNAL", http.StatusInternalServerError, nil)
}

func (h *Handler) cancelDocket(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "invalid docket id", "BAD_REQUEST", http.StatusBadRequest, nil)
		return
	}

	docket, err := h.svc.CancelDocket(r.Context(), id)
	if err != nil {
		var transitionErr *core.TransitionError
		if errors.As(err, &transitionErr) {
			writeError(w, err.Error(), "ILLEGAL_TRANSITION", http.StatusConflict, nil)
			return
		}
		writeError(w, err.Error(), "INTERNAL", http.StatusInternalServerError, nil)
		return
	}
	writeJSON(w, docket)
}

func (h *Handler) openDocket(w http.ResponseWriter, r *http.Request) {
	rego := r.URL.Query().Get("rego")
	if rego == "" {
		writeError(w, "rego query parameter is required", "BAD_REQUEST", http.StatusBadRequest, nil)
		return
	}

	docket, err := h.svc.OpenDocket(r.Context(), rego)
	if err != nil {
		writeError(w, err.Error(), "INTERNAL", http.StatusInternalServerError, nil)
		return
	}
	writeJSON(w, docket)
}
