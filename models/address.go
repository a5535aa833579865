package models

import "time"

type Address struct {
	ID            string    `json:"_id"`
	UserID        string    `json:"userId"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	Operator      string    `json:"operator"`
	OperatorRefID string    `json:"operatorRefId"`
	AddressLine   string    `json:"address"`
	City          string    `json:"city"`
	State         string    `json:"state"`
	Zip           string    `json:"zip"`
	IsDefault     bool      `json:"default"`
	CreatedAt     time.Time `json:"createdAt"`
}
