package db

import (
	"github.com/tumbiko/Pluto-shopping-store/models"
)

type Database interface {
	CreateOrder(order models.Order) error
	GetOrderByReference(reference string) (*models.Order, error)
	GetOrderByChargeID(chargeID string) (*models.Order, error)
	SetOrderInitialized(reference string, chargeID string) error
	MarkOrderPaid(reference string, patch models.PaidPatch) error
	MarkOrderFailed(reference string) error
	ClaimStockApplication(reference string) (bool, error)
	GetOrderItems(reference string) ([]models.LineItem, error)

	AdjustProductStock(productRef string, quantity int) error

	CreateAddress(address models.Address) error
	GetAddresses(userID string) ([]*models.Address, error)
	GetAddressByID(id string) (*models.Address, error)
	UpdateAddress(address models.Address) error
	DeleteAddress(id string) error
	UnsetOtherDefaults(userID string, keepID string) error

	Close() error
}
