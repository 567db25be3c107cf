package handlers

import (
	"net/http"

	"dress-rental/internal/models"
	"dress-rental/internal/services"
	"dress-rental/pkg/utils"
)

type RentalHandler struct {
	Service *services.RentalService
}

func NewRentalHandler(s *services.RentalService) *RentalHandler {
	return &RentalHandler{Service: s}
}

func (h *RentalHandler) CreateRental(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRentalRequest
	if err := utils.Decode(r, &req); err != nil {
		utils.Error(w, err)
		return
	}

	rental, err := h.Service.CreateRental(r.Context(), &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, rental)
}

func (h *RentalHandler) GetRental(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, err)
		return
	}

	rental, err := h.Service.GetRental(r.Context(), id)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, rental)
}

func (h *RentalHandler) ListRentals(w http.ResponseWriter, r *http.Request) {
	rentals, err := h.Service.ListRentals(r.Context())
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, rentals)
}

func (h *RentalHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	rentals, err := h.Service.ListActiveRentals(r.Context())
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, rentals)
}

func (h *RentalHandler) ListOverdue(w http.ResponseWriter, r *http.Request) {
	rentals, err := h.Service.ListOverdueRentals(r.Context())
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, rentals)
}

func (h *RentalHandler) ListByCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, err)
		return
	}

	rentals, err := h.Service.ListRentalsByCustomer(r.Context(), customerID)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, rentals)
}

func (h *RentalHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, err)
		return
	}

	items, err := h.Service.ListRentalItems(r.Context(), id)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, items)
}

// ReturnRental closes a rental. The body is optional; without a
// return_date the return is dated today.
func (h *RentalHandler) ReturnRental(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, err)
		return
	}

	var req models.ReturnRentalRequest
	if err := utils.DecodeOptional(r, &req); err != nil {
		utils.Error(w, err)
		return
	}

	rental, err := h.Service.ReturnRental(r.Context(), id, req.ReturnDate)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, rental)
}

// LateFee previews the fee an Active rental would owe if returned today
func (h *RentalHandler) LateFee(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, err)
		return
	}

	fee, err := h.Service.PreviewLateFee(r.Context(), id)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, fee)
}

// CalculateLateFee stores today's fee on an Active rental
func (h *RentalHandler) CalculateLateFee(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, err)
		return
	}

	fee, err := h.Service.CalculateLateFee(r.Context(), id)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, fee)
}
