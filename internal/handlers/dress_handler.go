package handlers

import (
	"net/http"

	"dress-rental/internal/models"
	"dress-rental/internal/services"
	"dress-rental/pkg/utils"

	"github.com/gorilla/mux"
)

type DressHandler struct {
	Service *services.DressService
	Rentals *services.RentalService
}

func NewDressHandler(s *services.DressService, rentals *services.RentalService) *DressHandler {
	return &DressHandler{Service: s, Rentals: rentals}
}

func (h *DressHandler) CreateDress(w http.ResponseWriter, r *http.Request) {
	var req models.CreateDressRequest
	if err := utils.Decode(r, &req); err != nil {
		utils.Error(w, err)
		return
	}

	dress, err := h.Service.CreateDress(r.Context(), &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, dress)
}

func (h *DressHandler) GetDress(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, err)
		return
	}

	dress, err := h.Service.GetDress(r.Context(), id)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, dress)
}

// ListDresses returns the catalogue; ?available=true narrows it to Available dresses
func (h *DressHandler) ListDresses(w http.ResponseWriter, r *http.Request) {
	var (
		dresses []*models.Dress
		err     error
	)
	if r.URL.Query().Get("available") == "true" {
		dresses, err = h.Service.ListAvailableDresses(r.Context())
	} else {
		dresses, err = h.Service.ListDresses(r.Context())
	}
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, dresses)
}

func (h *DressHandler) ListAvailable(w http.ResponseWriter, r *http.Request) {
	dresses, err := h.Service.ListAvailableDresses(r.Context())
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, dresses)
}

func (h *DressHandler) SearchDresses(w http.ResponseWriter, r *http.Request) {
	dresses, err := h.Service.SearchDresses(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, dresses)
}

func (h *DressHandler) ListByCategory(w http.ResponseWriter, r *http.Request) {
	dresses, err := h.Service.ListByCategory(r.Context(), mux.Vars(r)["category"])
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, dresses)
}

func (h *DressHandler) UpdateDress(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, err)
		return
	}

	var req models.UpdateDressRequest
	if err := utils.Decode(r, &req); err != nil {
		utils.Error(w, err)
		return
	}

	dress, err := h.Service.UpdateDress(r.Context(), id, &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, dress)
}

func (h *DressHandler) UpdateAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, err)
		return
	}

	var req models.UpdateAvailabilityRequest
	if err := utils.Decode(r, &req); err != nil {
		utils.Error(w, err)
		return
	}

	if err := h.Service.UpdateAvailability(r.Context(), id, req.Status); err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]any{"id": id, "availability_status": req.Status})
}

func (h *DressHandler) DeleteDress(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, err)
		return
	}

	if err := h.Service.DeleteDress(r.Context(), id); err != nil {
		utils.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LowStock lists dresses at or below ?threshold=, or the configured threshold
func (h *DressHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	threshold, err := queryInt(r, "threshold")
	if err != nil {
		utils.Error(w, err)
		return
	}

	items, err := h.Service.LowStock(r.Context(), threshold)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, items)
}

// CheckAvailability answers GET /api/dresses/{id}/availability?start=&end=
func (h *DressHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, err)
		return
	}

	q := r.URL.Query()
	resp, err := h.Rentals.CheckAvailability(r.Context(), id, q.Get("start"), q.Get("end"))
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, resp)
}
