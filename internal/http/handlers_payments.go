package httpapi

import (
	"net/http"

	"github.com/example/voyya/internal/models"
	"github.com/example/voyya/internal/service"
)

type createPaymentMethodRequest struct {
	PaymentType string  `json:"paymentType" validate:"required,oneof=card wallet bank_transfer"`
	CardLast4   *string `json:"cardLast4" validate:"omitempty,len=4,numeric"`
	CardBrand   *string `json:"cardBrand" validate:"omitempty,max=20"`
	IsDefault   bool    `json:"isDefault"`
}

type updatePaymentMethodRequest struct {
	IsDefault *bool `json:"isDefault"`
	IsActive  *bool `json:"isActive"`
}

func (s *Server) handleListPaymentMethods(w http.ResponseWriter, r *http.Request) {
	methods, err := s.svc.PaymentMethods.List(r.Context(), currentUser(r).ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, methods)
}

func (s *Server) handleDefaultPaymentMethod(w http.ResponseWriter, r *http.Request) {
	pm, err := s.svc.PaymentMethods.Default(r.Context(), currentUser(r).ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pm)
}

func (s *Server) handleCreatePaymentMethod(w http.ResponseWriter, r *http.Request) {
	var req createPaymentMethodRequest
	if !s.decode(w, r, &req) {
		return
	}
	pm, err := s.svc.PaymentMethods.Create(r.Context(), currentUser(r).ID, service.PaymentMethodInput{
		PaymentType: models.PaymentType(req.PaymentType),
		CardLast4:   req.CardLast4,
		CardBrand:   req.CardBrand,
		IsDefault:   req.IsDefault,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, pm)
}

func (s *Server) handleUpdatePaymentMethod(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid payment method id")
		return
	}
	var req updatePaymentMethodRequest
	if !s.decode(w, r, &req) {
		return
	}
	pm, err := s.svc.PaymentMethods.Update(r.Context(), currentUser(r).ID, id, models.PaymentMethodUpdate{
		IsDefault: req.IsDefault,
		IsActive:  req.IsActive,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pm)
}
