package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"aniview/models"
	"aniview/services/catalog"
)

type fakeCatalog struct {
	items      []models.Anime
	pagination *models.Pagination
	anime      *models.Anime
	err        error

	lastQuery string
	lastPage  int
	lastID    string
}

func (f *fakeCatalog) Top(ctx context.Context, page int) ([]models.Anime, *models.Pagination, error) {
	f.lastPage = page
	return f.items, f.pagination, f.err
}

func (f *fakeCatalog) Search(ctx context.Context, query string, page int) ([]models.Anime, *models.Pagination, error) {
	f.lastQuery = query
	f.lastPage = page
	return f.items, f.pagination, f.err
}

func (f *fakeCatalog) ByID(ctx context.Context, id string) (*models.Anime, error) {
	f.lastID = id
	return f.anime, f.err
}

func catalogRouter(svc *fakeCatalog) *mux.Router {
	r := mux.NewRouter()
	NewCatalogHandler(svc).Register(r)
	return r
}

func TestTopDefaultsToFirstPage(t *testing.T) {
	svc := &fakeCatalog{
		items:      []models.Anime{{MalID: 1, Title: "Monster"}},
		pagination: &models.Pagination{CurrentPage: 1, HasNextPage: true},
	}
	router := catalogRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/catalog/top", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if svc.lastPage != 1 {
		t.Fatalf("expected page 1, got %d", svc.lastPage)
	}
	var resp listResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Data) != 1 || resp.Data[0].Title != "Monster" {
		t.Fatalf("unexpected payload %+v", resp)
	}
}

func TestTopParsesPageParam(t *testing.T) {
	svc := &fakeCatalog{}
	router := catalogRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/catalog/top?page=3", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if svc.lastPage != 3 {
		t.Fatalf("expected page 3, got %d", svc.lastPage)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	svc := &fakeCatalog{}
	router := catalogRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/catalog/search", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestSearchForwardsQuery(t *testing.T) {
	svc := &fakeCatalog{}
	router := catalogRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/catalog/search?q=naruto&page=2", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if svc.lastQuery != "naruto" || svc.lastPage != 2 {
		t.Fatalf("unexpected call q=%q page=%d", svc.lastQuery, svc.lastPage)
	}
}

func TestByIDMapsNotFound(t *testing.T) {
	svc := &fakeCatalog{err: catalog.ErrNotFound}
	router := catalogRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/catalog/anime/999", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
	if svc.lastID != "999" {
		t.Fatalf("expected id 999, got %q", svc.lastID)
	}
}
