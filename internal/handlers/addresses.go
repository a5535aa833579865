package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/tumbiko/Pluto-shopping-store/models"
)

func (h *Handler) CreateAddress(w http.ResponseWriter, r *http.Request) {
	var address models.Address
	if err := json.NewDecoder(r.Body).Decode(&address); err != nil {
		h.Logger.Errorw("error decoding address", "error", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if address.Phone == "" {
		http.Error(w, "missing phone", http.StatusBadRequest)
		return
	}

	address.ID = uuid.New().String()
	address.UserID = r.Header.Get("UserID")
	address.CreatedAt = time.Now()

	if address.OperatorRefID == "" {
		refID, err := h.Provider.ResolveOperatorRefID(r.Context(), address.Operator, address.Phone)
		if err != nil {
			// Best effort: an unreachable operator list should not block
			// saving the address.
			h.Logger.Warnw("error resolving operator for address", "error", err)
		}
		address.OperatorRefID = refID
	}

	if address.IsDefault {
		if err := h.Database.UnsetOtherDefaults(address.UserID, address.ID); err != nil {
			h.Logger.Warnw("error unsetting other default addresses", "error", err)
		}
	}

	if err := h.Database.CreateAddress(address); err != nil {
		h.Logger.Errorw("error creating address", "error", err)
		http.Error(w, "failed to add address", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, address)
}

func (h *Handler) GetAddresses(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("UserID")

	addresses, err := h.Database.GetAddresses(userID)
	if err != nil {
		h.Logger.Errorw("error fetching addresses", "error", err)
		http.Error(w, "failed to fetch addresses", http.StatusInternalServerError)
		return
	}
	if addresses == nil {
		addresses = []*models.Address{}
	}

	h.writeJSON(w, http.StatusOK, addresses)
}

type addressUpdates struct {
	FirstName     *string `json:"firstName"`
	LastName      *string `json:"lastName"`
	Email         *string `json:"email"`
	Phone         *string `json:"phone"`
	Operator      *string `json:"operator"`
	OperatorRefID *string `json:"operatorRefId"`
	AddressLine   *string `json:"address"`
	City          *string `json:"city"`
	State         *string `json:"state"`
	Zip           *string `json:"zip"`
	IsDefault     *bool   `json:"default"`
}

type updateAddressRequest struct {
	ID      string         `json:"id"`
	Updates addressUpdates `json:"updates"`
}

func (h *Handler) UpdateAddress(w http.ResponseWriter, r *http.Request) {
	var req updateAddressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Errorw("error decoding address update", "error", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.ID == "" {
		http.Error(w, "missing id", http.StatusBadRequest)
		return
	}

	userID := r.Header.Get("UserID")
	existing, err := h.Database.GetAddressByID(req.ID)
	if err != nil {
		h.Logger.Errorw("error fetching address", "id", req.ID, "error", err)
		http.Error(w, "failed to update address", http.StatusInternalServerError)
		return
	}
	if existing == nil || existing.UserID != userID {
		http.Error(w, "address not found", http.StatusNotFound)
		return
	}

	applyAddressUpdates(existing, req.Updates)

	if req.Updates.Operator != nil && req.Updates.OperatorRefID == nil {
		refID, err := h.Provider.ResolveOperatorRefID(r.Context(), existing.Operator, existing.Phone)
		if err != nil {
			h.Logger.Warnw("error resolving operator for address", "error", err)
		} else if refID != "" {
			existing.OperatorRefID = refID
		}
	}

	if existing.IsDefault {
		if err = h.Database.UnsetOtherDefaults(userID, existing.ID); err != nil {
			h.Logger.Warnw("error unsetting other default addresses", "error", err)
		}
	}

	if err = h.Database.UpdateAddress(*existing); err != nil {
		h.Logger.Errorw("error updating address", "id", req.ID, "error", err)
		http.Error(w, "failed to update address", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, existing)
}

func (h *Handler) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "missing id query param", http.StatusBadRequest)
		return
	}

	userID := r.Header.Get("UserID")
	existing, err := h.Database.GetAddressByID(id)
	if err != nil {
		h.Logger.Errorw("error fetching address", "id", id, "error", err)
		http.Error(w, "failed to delete address", http.StatusInternalServerError)
		return
	}
	if existing == nil || existing.UserID != userID {
		http.Error(w, "address not found", http.StatusNotFound)
		return
	}

	if err = h.Database.DeleteAddress(id); err != nil {
		h.Logger.Errorw("error deleting address", "id", id, "error", err)
		http.Error(w, "failed to delete address", http.StatusInternalServerError)
		return
	}

	h.writeStatusMessage(w, http.StatusOK, "success", id)
}

func applyAddressUpdates(address *models.Address, updates addressUpdates) {
	if updates.FirstName != nil {
		address.FirstName = *updates.FirstName
	}
	if updates.LastName != nil {
		address.LastName = *updates.LastName
	}
	if updates.Email != nil {
		address.Email = *updates.Email
	}
	if updates.Phone != nil {
		address.Phone = *updates.Phone
	}
	if updates.Operator != nil {
		address.Operator = *updates.Operator
	}
	if updates.OperatorRefID != nil {
		address.OperatorRefID = *updates.OperatorRefID
	}
	if updates.AddressLine != nil {
		address.AddressLine = *updates.AddressLine
	}
	if updates.City != nil {
		address.City = *updates.City
	}
	if updates.State != nil {
		address.State = *updates.State
	}
	if updates.Zip != nil {
		address.Zip = *updates.Zip
	}
	if updates.IsDefault != nil {
		address.IsDefault = *updates.IsDefault
	}
}
