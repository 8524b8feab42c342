package devserver

import (
	"net/http"
	"time"

	"github.com/tiendashop/storefront-go/internal/domain"
)

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.store.Products(r.Context(), r.URL.Query().Get("categoria"))
	if err != nil {
		s.logger.Error("product list failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"data": products})
}

func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	product, err := s.store.ProductByID(r.Context(), r.PathValue("id"))
	if err != nil {
		s.logger.Error("product fetch failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if product == nil {
		s.writeError(w, http.StatusNotFound, "product not found")
		return
	}
	s.writeJSON(w, http.StatusOK, product)
}

func (s *Server) handleReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := s.store.ReviewsByProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		s.logger.Error("review list failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if reviews == nil {
		reviews = []domain.Review{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"reviews": reviews})
}

type createReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request, user *storedUser) {
	var req createReviewRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Rating < 1 || req.Rating > 5 {
		s.writeValidation(w, map[string][]string{"rating": {"must be between 1 and 5"}})
		return
	}

	review := domain.Review{
		ProductID: r.PathValue("id"),
		UserID:    user.ID,
		Rating:    req.Rating,
		Comment:   req.Comment,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.store.CreateReview(r.Context(), &review); err != nil {
		s.logger.Error("review creation failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]any{"review": review})
}

func (s *Server) handleDeleteReview(w http.ResponseWriter, r *http.Request, user *storedUser) {
	err := s.store.DeleteReview(r.Context(), user.ID, r.PathValue("id"), r.PathValue("reviewId"))
	if err != nil {
		s.logger.Error("review deletion failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
