package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/tumbiko/Pluto-shopping-store/models"
)

var addressColumns = []string{
	"id", "user_id", "first_name", "last_name", "email", "phone", "operator",
	"operator_ref_id", "address", "city", "state", "zip", "is_default", "created_at",
}

func TestCreateAddress(t *testing.T) {
	t.Run("DefaultUnsetsOthersFirst", func(t *testing.T) {
		h, mock, closeDB := newTestHandler(t, "http://localhost")
		defer closeDB()

		mock.ExpectExec(`UPDATE addresses SET is_default = FALSE`).
			WithArgs("user_1", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO addresses`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		body := `{"firstName":"Takondwa","lastName":"Phiri","phone":"0991234567",
			"operator":"airtel","operatorRefId":"ref_airtel","address":"Area 47","city":"Lilongwe",
			"default":true}`
		req := httptest.NewRequest(http.MethodPost, "/api/addresses", bytes.NewBufferString(body))
		req.Header.Set("UserID", "user_1")

		rr := httptest.NewRecorder()
		h.CreateAddress(rr, req)

		if rr.Code != http.StatusCreated {
			t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rr.Code, rr.Body.String())
		}
		var created models.Address
		if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		assert.Equal(t, "user_1", created.UserID)
		assert.NotEmpty(t, created.ID)
		assert.True(t, created.IsDefault)

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("not all mock expectations were met: %v", err)
		}
	})

	t.Run("MissingPhone", func(t *testing.T) {
		h, _, closeDB := newTestHandler(t, "http://localhost")
		defer closeDB()

		req := httptest.NewRequest(http.MethodPost, "/api/addresses", bytes.NewBufferString(`{"city":"Blantyre"}`))
		req.Header.Set("UserID", "user_1")

		rr := httptest.NewRecorder()
		h.CreateAddress(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestGetAddresses(t *testing.T) {
	h, mock, closeDB := newTestHandler(t, "http://localhost")
	defer closeDB()

	mock.ExpectQuery(`FROM addresses`).
		WithArgs("user_1").
		WillReturnRows(sqlmock.NewRows(addressColumns).
			AddRow("addr_1", "user_1", "Takondwa", "Phiri", "", "0991234567", "airtel",
				"ref_airtel", "Area 47", "Lilongwe", "", "", true, time.Now()))

	req := httptest.NewRequest(http.MethodGet, "/api/addresses", nil)
	req.Header.Set("UserID", "user_1")

	rr := httptest.NewRecorder()
	h.GetAddresses(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var addresses []models.Address
	if err := json.Unmarshal(rr.Body.Bytes(), &addresses); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	assert.Len(t, addresses, 1)
	assert.Equal(t, "addr_1", addresses[0].ID)
}

func TestUpdateAddress(t *testing.T) {
	t.Run("SetDefault", func(t *testing.T) {
		h, mock, closeDB := newTestHandler(t, "http://localhost")
		defer closeDB()

		mock.ExpectQuery(`FROM addresses`).
			WithArgs("addr_2").
			WillReturnRows(sqlmock.NewRows(addressColumns).
				AddRow("addr_2", "user_1", "Takondwa", "Phiri", "", "0991234567", "airtel",
					"ref_airtel", "Area 47", "Lilongwe", "", "", false, time.Now()))
		mock.ExpectExec(`UPDATE addresses SET is_default = FALSE`).
			WithArgs("user_1", "addr_2").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE addresses SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		body := `{"id":"addr_2","updates":{"default":true}}`
		req := httptest.NewRequest(http.MethodPatch, "/api/addresses", bytes.NewBufferString(body))
		req.Header.Set("UserID", "user_1")

		rr := httptest.NewRecorder()
		h.UpdateAddress(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("not all mock expectations were met: %v", err)
		}
	})

	t.Run("ForeignAddressNotFound", func(t *testing.T) {
		h, mock, closeDB := newTestHandler(t, "http://localhost")
		defer closeDB()

		mock.ExpectQuery(`FROM addresses`).
			WithArgs("addr_3").
			WillReturnRows(sqlmock.NewRows(addressColumns).
				AddRow("addr_3", "someone_else", "", "", "", "0991234567", "",
					"", "", "", "", "", false, time.Now()))

		body := `{"id":"addr_3","updates":{"city":"Zomba"}}`
		req := httptest.NewRequest(http.MethodPatch, "/api/addresses", bytes.NewBufferString(body))
		req.Header.Set("UserID", "user_1")

		rr := httptest.NewRecorder()
		h.UpdateAddress(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestDeleteAddress(t *testing.T) {
	h, mock, closeDB := newTestHandler(t, "http://localhost")
	defer closeDB()

	mock.ExpectQuery(`FROM addresses`).
		WithArgs("addr_1").
		WillReturnRows(sqlmock.NewRows(addressColumns).
			AddRow("addr_1", "user_1", "", "", "", "0991234567", "",
				"", "", "", "", "", false, time.Now()))
	mock.ExpectExec(`DELETE FROM addresses`).
		WithArgs("addr_1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	req := httptest.NewRequest(http.MethodDelete, "/api/addresses?id=addr_1", nil)
	req.Header.Set("UserID", "user_1")

	rr := httptest.NewRecorder()
	h.DeleteAddress(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("not all mock expectations were met: %v", err)
	}
}
