package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"fatura/internal/api"
)

// Cards

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	views, err := s.ledger.ListCards(r.Context(), currentSession(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	cards := make([]api.CardDetails, 0, len(views))
	for _, v := range views {
		cards = append(cards, cardDetails(v))
	}
	NewJSONResponse().Body(cards).Write(w)
}

func decodeCard(w http.ResponseWriter, r *http.Request) (api.CardRequest, error) {
	var req api.CardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return req, err
	}
	req.Bank = sanitizeInput(req.Bank)
	req.Nickname = sanitizeInput(req.Nickname)
	req.EndNumbers = sanitizeInput(req.EndNumbers)
	return req, nil
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCard(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	userID := currentSession(r).UserID
	card, err := s.ledger.CreateCard(r.Context(), userID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.ledger.GetCard(r.Context(), userID, card.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(cardDetails(view)).Write(w)
}

func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.ledger.GetCard(r.Context(), currentSession(r).UserID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(cardDetails(view)).Write(w)
}

func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	req, err := decodeCard(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	userID := currentSession(r).UserID
	if _, err := s.ledger.UpdateCard(r.Context(), userID, id, req); err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.ledger.GetCard(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(cardDetails(view)).Write(w)
}

// Purchases

func decodePurchase(w http.ResponseWriter, r *http.Request) (api.PurchaseRequest, error) {
	var req api.PurchaseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return req, err
	}
	req.Description = sanitizeInput(req.Description)
	req.Category = sanitizeInput(req.Category)
	return req, nil
}

func (s *Server) handleCreatePurchase(w http.ResponseWriter, r *http.Request) {
	req, err := decodePurchase(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.ledger.CreatePurchase(r.Context(), currentSession(r).UserID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(purchaseDetails(view)).Write(w)
}

func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req api.SubscriptionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.Description = sanitizeInput(req.Description)
	req.Category = sanitizeInput(req.Category)

	view, err := s.ledger.CreateSubscription(r.Context(), currentSession(r).UserID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(purchaseDetails(view)).Write(w)
}

func (s *Server) handleGetPurchase(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.ledger.GetPurchase(r.Context(), currentSession(r).UserID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(purchaseDetails(view)).Write(w)
}

func (s *Server) handleUpdatePurchase(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	req, err := decodePurchase(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.ledger.UpdatePurchase(r.Context(), currentSession(r).UserID, id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(purchaseDetails(view)).Write(w)
}

func (s *Server) handleDeletePurchase(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.ledger.DeletePurchase(r.Context(), currentSession(r).UserID, id); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// Invoices

func (s *Server) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.ledger.GetInvoice(r.Context(), currentSession(r).UserID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(invoiceDetails(view)).Write(w)
}

func (s *Server) handleCurrentInvoice(w http.ResponseWriter, r *http.Request) {
	cardID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.ledger.CurrentInvoice(r.Context(), currentSession(r).UserID, cardID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(invoiceDetails(view)).Write(w)
}

func (s *Server) handleUpdateEstimate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req api.EstimateLimitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	inv, err := s.ledger.UpdateEstimateLimit(r.Context(), currentSession(r).UserID, id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(invoiceStatusResponse(inv)).Write(w)
}

func (s *Server) handleChangeStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	inv, err := s.ledger.ChangeInvoiceStatus(r.Context(), currentSession(r).UserID, id, chi.URLParam(r, "status"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(invoiceStatusResponse(inv)).Write(w)
}
