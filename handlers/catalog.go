package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"aniview/models"
	"aniview/services/catalog"
)

type catalogService interface {
	Top(ctx context.Context, page int) ([]models.Anime, *models.Pagination, error)
	Search(ctx context.Context, query string, page int) ([]models.Anime, *models.Pagination, error)
	ByID(ctx context.Context, id string) (*models.Anime, error)
}

var _ catalogService = (*catalog.Client)(nil)

// CatalogHandler proxies catalog reads so the browser never talks to the
// third-party API directly.
type CatalogHandler struct {
	catalog catalogService
}

// NewCatalogHandler creates a catalog handler.
func NewCatalogHandler(svc catalogService) *CatalogHandler {
	return &CatalogHandler{catalog: svc}
}

// Register attaches the catalog routes to the router.
func (h *CatalogHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/catalog/top", h.HandleTop).Methods(http.MethodGet)
	r.HandleFunc("/api/catalog/search", h.HandleSearch).Methods(http.MethodGet)
	r.HandleFunc("/api/catalog/anime/{id}", h.HandleByID).Methods(http.MethodGet)
}

type listResponse struct {
	Data       []models.Anime     `json:"data"`
	Pagination *models.Pagination `json:"pagination,omitempty"`
}

// HandleTop returns a page of popular anime.
func (h *CatalogHandler) HandleTop(w http.ResponseWriter, r *http.Request) {
	items, pagination, err := h.catalog.Top(r.Context(), pageParam(r))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Data: items, Pagination: pagination})
}

// HandleSearch returns anime matching the q parameter.
func (h *CatalogHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}

	items, pagination, err := h.catalog.Search(r.Context(), query, pageParam(r))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Data: items, Pagination: pagination})
}

// HandleByID returns a single catalog entry.
func (h *CatalogHandler) HandleByID(w http.ResponseWriter, r *http.Request) {
	anime, err := h.catalog.ByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, anime)
}

func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}
