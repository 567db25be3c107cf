package handlers

import (
	"fmt"
	"net/http"

	"dress-rental/internal/models"
	"dress-rental/internal/services"
	"dress-rental/pkg/utils"
)

type PaymentHandler struct {
	Service *services.PaymentService
	Online  *services.OnlinePaymentService
}

func NewPaymentHandler(s *services.PaymentService, online *services.OnlinePaymentService) *PaymentHandler {
	return &PaymentHandler{Service: s, Online: online}
}

func (h *PaymentHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePaymentRequest
	if err := utils.Decode(r, &req); err != nil {
		utils.Error(w, err)
		return
	}

	payment, err := h.Service.RecordPayment(r.Context(), &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, payment)
}

func (h *PaymentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.Service.ListPayments(r.Context())
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, payments)
}

func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, err)
		return
	}

	payment, err := h.Service.GetPayment(r.Context(), id)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, payment)
}

// ListByRental returns the rental's payments newest first
func (h *PaymentHandler) ListByRental(w http.ResponseWriter, r *http.Request) {
	rentalID, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, err)
		return
	}

	payments, err := h.Service.ListByRental(r.Context(), rentalID)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, payments)
}

// RentalSummary reports paid, balance and whether the rental is settled
func (h *PaymentHandler) RentalSummary(w http.ResponseWriter, r *http.Request) {
	rentalID, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, err)
		return
	}

	summary, err := h.Service.Summary(r.Context(), rentalID)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, summary)
}

func (h *PaymentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, err)
		return
	}

	var req models.UpdatePaymentStatusRequest
	if err := utils.Decode(r, &req); err != nil {
		utils.Error(w, err)
		return
	}

	if err := h.Service.UpdatePaymentStatus(r.Context(), id, req.Status); err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]any{"id": id, "status": req.Status})
}

// Receipt serves the receipt PDF, or its data with ?format=json
func (h *PaymentHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, err)
		return
	}

	if r.URL.Query().Get("format") == services.FormatJSON {
		rec, err := h.Service.Receipt(r.Context(), id)
		if err != nil {
			utils.Error(w, err)
			return
		}
		utils.JSON(w, http.StatusOK, rec)
		return
	}

	pdf, err := h.Service.ReceiptPDF(r.Context(), id)
	if err != nil {
		utils.Error(w, err)
		return
	}
	attachment(w, services.ContentType(services.FormatPDF), fmt.Sprintf("receipt_%d.pdf", id), pdf)
}

func (h *PaymentHandler) CreateOnlineOrder(w http.ResponseWriter, r *http.Request) {
	var req models.CreateOnlineOrderRequest
	if err := utils.Decode(r, &req); err != nil {
		utils.Error(w, err)
		return
	}

	order, err := h.Online.CreateOrder(r.Context(), &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, order)
}

// VerifyOnlinePayment confirms a checkout callback and records the payment
func (h *PaymentHandler) VerifyOnlinePayment(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyOnlinePaymentRequest
	if err := utils.Decode(r, &req); err != nil {
		utils.Error(w, err)
		return
	}

	payment, err := h.Online.VerifyPayment(r.Context(), &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, payment)
}

func (h *PaymentHandler) ListOnlineTransactions(w http.ResponseWriter, r *http.Request) {
	rentalID, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, err)
		return
	}

	txs, err := h.Online.ListByRental(r.Context(), rentalID)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, txs)
}
