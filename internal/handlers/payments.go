package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tumbiko/Pluto-shopping-store/internal/provider"
	"github.com/tumbiko/Pluto-shopping-store/internal/reconcile"
	"github.com/tumbiko/Pluto-shopping-store/internal/signature"
	"github.com/tumbiko/Pluto-shopping-store/models"
)

type initializeItem struct {
	ProductRef string `json:"productRef"`
	Quantity   int    `json:"quantity"`
}

type initializeRequest struct {
	Mobile        string           `json:"mobile"`
	Operator      string           `json:"operator"`
	OperatorRefID string           `json:"operatorRefId"`
	Amount        decimal.Decimal  `json:"amount"`
	Currency      string           `json:"currency"`
	Email         string           `json:"email"`
	FirstName     string           `json:"firstName"`
	LastName      string           `json:"lastName"`
	TxRef         string           `json:"txRef"`
	Items         []initializeItem `json:"items"`
}

type initializeResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
	ChargeID string `json:"charge_id"`
	TxRef    string `json:"tx_ref"`
}

func (h *Handler) InitializePayment(w http.ResponseWriter, r *http.Request) {
	var req initializeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Errorw("error decoding initialize request", "error", err)
		h.writeStatusMessage(w, http.StatusBadRequest, "failed", "invalid request body")
		return
	}

	if req.Mobile == "" || !req.Amount.IsPositive() {
		h.writeStatusMessage(w, http.StatusBadRequest, "failed", "missing required fields")
		return
	}

	operatorRefID := req.OperatorRefID
	if operatorRefID == "" {
		resolved, err := h.Provider.ResolveOperatorRefID(r.Context(), req.Operator, req.Mobile)
		if err != nil {
			h.handleProviderError(w, err, "could not fetch operators")
			return
		}
		operatorRefID = resolved
	}
	if operatorRefID == "" {
		h.writeStatusMessage(w, http.StatusBadRequest, "failed", "unsupported operator")
		return
	}

	txRef := req.TxRef
	if txRef == "" {
		txRef = fmt.Sprintf("txn_%d", time.Now().UnixNano())
	}
	currency := req.Currency
	if currency == "" {
		currency = "MWK"
	}

	order := models.Order{
		OrderReference: txRef,
		UserID:         r.Header.Get("UserID"),
		Status:         models.OrderPending,
		Amount:         req.Amount,
		Currency:       currency,
		Email:          req.Email,
		CustomerName:   strings.TrimSpace(req.FirstName + " " + req.LastName),
		Mobile:         req.Mobile,
	}
	for _, item := range req.Items {
		order.LineItems = append(order.LineItems, models.LineItem{ProductRef: item.ProductRef, Quantity: item.Quantity})
	}

	if err := h.Database.CreateOrder(order); err != nil {
		if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
			h.writeStatusMessage(w, http.StatusConflict, "failed", "order reference already exists")
			return
		}
		h.Logger.Errorw("error creating order", "error", err)
		h.writeStatusMessage(w, http.StatusInternalServerError, "failed", "internal server error")
		return
	}

	result, err := h.Provider.InitializeCharge(r.Context(), models.ChargeRequest{
		Mobile:        req.Mobile,
		OperatorRefID: operatorRefID,
		Amount:        req.Amount,
		Currency:      currency,
		Email:         req.Email,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		TxRef:         txRef,
	})
	if err != nil {
		if ferr := h.Database.MarkOrderFailed(txRef); ferr != nil {
			h.Logger.Warnw("error marking order failed after initialize error", "reference", txRef, "error", ferr)
		}
		h.handleProviderError(w, err, "payment initiation failed")
		return
	}

	// The charge id is persisted right away so it becomes the canonical key.
	// If this write fails the order is still reachable by tx_ref and the
	// lazy-create path at verify time recovers, so the charge is not lost.
	if err = h.Database.SetOrderInitialized(txRef, result.ChargeID); err != nil {
		h.Logger.Warnw("error recording charge id on order", "reference", txRef, "error", err)
	}

	h.writeJSON(w, http.StatusOK, initializeResponse{
		Status:   "success",
		ChargeID: result.ChargeID,
		TxRef:    txRef,
	})
}

type operatorInfo struct {
	Name string `json:"name"`
}

type verifyResponseData struct {
	ChargeID           string          `json:"charge_id"`
	RefID              string          `json:"ref_id"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency"`
	Mobile             string          `json:"mobile"`
	MobileMoney        operatorInfo    `json:"mobile_money"`
	TransactionCharges decimal.Decimal `json:"transaction_charges"`
	Email              string          `json:"email"`
	CompletedAt        string          `json:"completed_at,omitempty"`
}

type verifyResponse struct {
	Status  string             `json:"status"`
	Message string             `json:"message,omitempty"`
	Data    verifyResponseData `json:"data"`
}

// VerifyPayment is the browser-facing poll endpoint. A success response
// implies reconciliation already ran, so the client may trust that order and
// stock state are updated. Transient verify failures come back as "pending"
// so the client keeps polling instead of treating a blip as a hard failure.
func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	chargeID := r.URL.Query().Get("charge_id")
	reference := r.URL.Query().Get("reference")

	if chargeID == "" && reference == "" {
		h.writeStatusMessage(w, http.StatusBadRequest, "failed", "missing charge_id or reference")
		return
	}

	if chargeID == "" {
		order, err := h.Database.GetOrderByReference(reference)
		if err != nil {
			h.Logger.Errorw("error looking up order", "reference", reference, "error", err)
			h.writeStatusMessage(w, http.StatusInternalServerError, "failed", "internal server error")
			return
		}
		if order == nil || order.ChargeID == "" {
			h.writeJSON(w, http.StatusOK, verifyResponse{Status: models.TxPending.String(), Message: "charge not initialized yet"})
			return
		}
		chargeID = order.ChargeID
	}

	tx, err := h.Provider.VerifyCharge(r.Context(), chargeID)
	if err != nil {
		if errors.Is(err, provider.ErrNoSecretKey) {
			h.Logger.Error(err)
			h.writeStatusMessage(w, http.StatusInternalServerError, "failed", err.Error())
			return
		}
		h.Logger.Warnw("error verifying charge, reporting pending", "charge_id", chargeID, "error", err)
		h.writeJSON(w, http.StatusOK, verifyResponse{Status: models.TxPending.String(), Message: "verify error"})
		return
	}

	if tx.TxRef == "" {
		tx.TxRef = reference
	}

	if _, err = h.Reconciler.Reconcile(*tx); err != nil {
		if errors.Is(err, reconcile.ErrMissingReference) {
			h.writeStatusMessage(w, http.StatusBadRequest, "failed", err.Error())
			return
		}
		h.Logger.Errorw("error reconciling order", "charge_id", chargeID, "error", err)
		h.writeStatusMessage(w, http.StatusInternalServerError, "failed", "failed to update order")
		return
	}

	data := verifyResponseData{
		ChargeID:           tx.ChargeID,
		RefID:              tx.RefID,
		Amount:             tx.Amount,
		Currency:           tx.Currency,
		Mobile:             tx.Mobile,
		MobileMoney:        operatorInfo{Name: tx.OperatorName},
		TransactionCharges: tx.TransactionCharges,
		Email:              tx.Email,
	}
	if tx.CompletedAt != nil {
		data.CompletedAt = tx.CompletedAt.Format(time.RFC3339)
	}

	h.writeJSON(w, http.StatusOK, verifyResponse{Status: tx.Status.String(), Data: data})
}

type webhookKeys struct {
	ID        string `json:"id"`
	ChargeID  string `json:"charge_id"`
	TxRef     string `json:"tx_ref"`
	Reference string `json:"reference"`
}

type webhookBody struct {
	webhookKeys
	Order *webhookKeys `json:"order"`
	Data  *webhookKeys `json:"data"`
}

func (k webhookKeys) chargeID() string {
	if k.ChargeID != "" {
		return k.ChargeID
	}
	return k.ID
}

func (k webhookKeys) txRef() string {
	if k.TxRef != "" {
		return k.TxRef
	}
	return k.Reference
}

type webhookResponse struct {
	Received bool             `json:"received"`
	Result   reconcile.Result `json:"result"`
}

// Webhook handles provider-pushed payment events. The webhook's own status
// claim is never trusted: after the signature check the charge is verified
// against the provider before reconciliation runs. 5xx answers trigger
// provider-side redelivery, 4xx answers stop it.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		h.Logger.Errorw("error reading webhook body", "error", err)
		h.writeStatusMessage(w, http.StatusBadRequest, "failed", "unreadable body")
		return
	}

	secret := h.Config.ProviderWebhookSecret
	if secret == "" {
		h.Logger.Error("PROVIDER_WEBHOOK_SECRET is not set")
		h.writeStatusMessage(w, http.StatusInternalServerError, "failed", "PROVIDER_WEBHOOK_SECRET is not set")
		return
	}

	sig := r.Header.Get("Signature")
	legacySig := r.Header.Get("X-Webhook-Signature")
	switch {
	case sig != "":
		if !signature.Verify(rawBody, sig, secret) {
			h.Logger.Warn("invalid webhook signature")
			h.writeStatusMessage(w, http.StatusBadRequest, "failed", "invalid signature")
			return
		}
	case legacySig != "":
		// Older provider deliveries send the shared secret itself instead of
		// an HMAC digest.
		if subtle.ConstantTimeCompare([]byte(legacySig), []byte(secret)) != 1 {
			h.Logger.Warn("invalid legacy webhook signature")
			h.writeStatusMessage(w, http.StatusBadRequest, "failed", "invalid signature")
			return
		}
	default:
		h.writeStatusMessage(w, http.StatusBadRequest, "failed", "missing signature")
		return
	}

	var body webhookBody
	if err = json.Unmarshal(rawBody, &body); err != nil {
		h.Logger.Errorw("error parsing webhook payload", "error", err)
		h.writeStatusMessage(w, http.StatusBadRequest, "failed", "invalid JSON payload")
		return
	}

	chargeID, txRef := extractWebhookIdentity(body)
	if chargeID == "" && txRef == "" {
		h.writeStatusMessage(w, http.StatusBadRequest, "failed", "missing charge_id or reference in payload")
		return
	}

	if chargeID == "" {
		order, err := h.Database.GetOrderByReference(txRef)
		if err != nil {
			h.Logger.Errorw("error looking up order", "reference", txRef, "error", err)
			h.writeStatusMessage(w, http.StatusInternalServerError, "failed", "internal server error")
			return
		}
		if order == nil || order.ChargeID == "" {
			h.writeStatusMessage(w, http.StatusBadRequest, "failed", "no charge id known for reference")
			return
		}
		chargeID = order.ChargeID
	}

	tx, err := h.Provider.VerifyCharge(r.Context(), chargeID)
	if err != nil {
		if errors.Is(err, provider.ErrNoSecretKey) {
			h.Logger.Error(err)
			h.writeStatusMessage(w, http.StatusInternalServerError, "failed", err.Error())
			return
		}
		h.Logger.Errorw("error verifying charge for webhook", "charge_id", chargeID, "error", err)
		h.writeStatusMessage(w, http.StatusInternalServerError, "failed", "failed to verify transaction")
		return
	}

	if tx.Status != models.TxSuccess {
		h.writeStatusMessage(w, http.StatusBadRequest, "failed", "transaction not successful")
		return
	}

	if tx.TxRef == "" {
		tx.TxRef = txRef
	}

	result, err := h.Reconciler.Reconcile(*tx)
	if err != nil {
		if errors.Is(err, reconcile.ErrMissingReference) {
			h.writeStatusMessage(w, http.StatusBadRequest, "failed", err.Error())
			return
		}
		h.Logger.Errorw("error reconciling order from webhook", "charge_id", chargeID, "error", err)
		h.writeStatusMessage(w, http.StatusInternalServerError, "failed", "failed to create or update order")
		return
	}

	h.writeJSON(w, http.StatusOK, webhookResponse{Received: true, Result: result})
}

func extractWebhookIdentity(body webhookBody) (chargeID, txRef string) {
	sources := []webhookKeys{body.webhookKeys}
	if body.Order != nil {
		sources = append([]webhookKeys{*body.Order}, sources...)
	}
	if body.Data != nil {
		sources = append([]webhookKeys{*body.Data}, sources...)
	}
	for _, s := range sources {
		if chargeID == "" {
			chargeID = s.chargeID()
		}
		if txRef == "" {
			txRef = s.txRef()
		}
	}
	return chargeID, txRef
}

type operatorsResponse struct {
	Status string            `json:"status"`
	Data   []models.Operator `json:"data"`
}

func (h *Handler) ListOperators(w http.ResponseWriter, r *http.Request) {
	operators, err := h.Provider.ListOperators(r.Context())
	if err != nil {
		h.handleProviderError(w, err, "failed to fetch operators")
		return
	}

	h.writeJSON(w, http.StatusOK, operatorsResponse{Status: "success", Data: operators})
}

func (h *Handler) handleProviderError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, provider.ErrNoSecretKey) {
		h.Logger.Error(err)
		h.writeStatusMessage(w, http.StatusInternalServerError, "failed", err.Error())
		return
	}

	var perr *provider.Error
	if errors.As(err, &perr) {
		h.Logger.Errorw("provider error", "status", perr.StatusCode, "body", perr.Body)
		h.writeStatusMessage(w, http.StatusBadGateway, "failed", message)
		return
	}

	h.Logger.Errorw("provider request failed", "error", err)
	h.writeStatusMessage(w, http.StatusBadGateway, "failed", message)
}
