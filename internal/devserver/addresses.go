package devserver

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/tiendashop/storefront-go/internal/domain"
)

func (s *Server) handleListAddresses(w http.ResponseWriter, r *http.Request, user *storedUser) {
	list, err := s.store.AddressesByUser(r.Context(), user.ID)
	if err != nil {
		s.logger.Error("address list failed", "error", err, "user_id", user.ID)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if list == nil {
		list = []domain.Address{}
	}
	// This resource wraps under its own name, not data.
	s.writeJSON(w, http.StatusOK, map[string]any{"addresses": list})
}

func validateAddress(a domain.Address) map[string][]string {
	fields := map[string][]string{}
	if a.Street == "" {
		fields["street"] = []string{"is required"}
	}
	if a.City == "" {
		fields["city"] = []string{"is required"}
	}
	if a.Province == "" {
		fields["province"] = []string{"is required"}
	}
	if a.PostalCode == "" {
		fields["postal_code"] = []string{"is required"}
	}
	if a.Country == "" {
		fields["country"] = []string{"is required"}
	}
	return fields
}

func (s *Server) handleCreateAddress(w http.ResponseWriter, r *http.Request, user *storedUser) {
	var address domain.Address
	if err := decodeBody(r, &address); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if fields := validateAddress(address); len(fields) > 0 {
		s.writeValidation(w, fields)
		return
	}

	created, err := s.store.CreateAddress(r.Context(), user.ID, address)
	if err != nil {
		s.logger.Error("address creation failed", "error", err, "user_id", user.ID)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]any{"address": created})
}

func (s *Server) handleUpdateAddress(w http.ResponseWriter, r *http.Request, user *storedUser) {
	var address domain.Address
	if err := decodeBody(r, &address); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	address.ID = r.PathValue("id")

	if fields := validateAddress(address); len(fields) > 0 {
		s.writeValidation(w, fields)
		return
	}

	updated, err := s.store.UpdateAddress(r.Context(), user.ID, address)
	if err != nil {
		s.logger.Error("address update failed", "error", err, "user_id", user.ID)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if updated == nil {
		s.writeError(w, http.StatusNotFound, "address not found")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"address": updated})
}

func (s *Server) handleDeleteAddress(w http.ResponseWriter, r *http.Request, user *storedUser) {
	if err := s.store.DeleteAddress(r.Context(), user.ID, r.PathValue("id")); err != nil {
		s.logger.Error("address deletion failed", "error", err, "user_id", user.ID)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleSetDefaultAddress(w http.ResponseWriter, r *http.Request, user *storedUser) {
	err := s.store.SetDefaultAddress(r.Context(), user.ID, r.PathValue("id"))
	if errors.Is(err, sql.ErrNoRows) {
		s.writeError(w, http.StatusNotFound, "address not found")
		return
	}
	if err != nil {
		s.logger.Error("set default failed", "error", err, "user_id", user.ID)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "default set"})
}
