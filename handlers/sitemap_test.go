package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func TestSitemap(t *testing.T) {
	db := freshDB()
	h := &SitemapHandler{DB: db, Site: testSite, Logger: zap.NewNop()}
	r := gin.New()
	r.GET("/sitemap.xml", h.Sitemap)

	cat := seedCategory(db, "Tech Gifts", nil)
	prod := seedProduct(db, "Smart Mug", cat.ID, "60.00")
	hidden := seedProduct(db, "Hidden Mug", cat.ID, "60.00")
	db.Model(&hidden).Update("is_active", false)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/sitemap.xml", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/xml") {
		t.Errorf("expected xml content type, got %s", ct)
	}

	body := w.Body.String()
	for _, want := range []string{
		"<loc>https://megiftpacks.com</loc>",
		"<loc>https://megiftpacks.com/category/tech-gifts</loc>",
		"<loc>https://megiftpacks.com/product/smart-mug/" + prod.ID.String() + "</loc>",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("sitemap missing %s", want)
		}
	}
	if strings.Contains(body, hidden.ID.String()) {
		t.Error("inactive products must not be listed")
	}
}

func TestRobots(t *testing.T) {
	h := &SitemapHandler{Site: testSite, Logger: zap.NewNop()}
	r := gin.New()
	r.GET("/robots.txt", h.Robots)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/robots.txt", nil))
	if !strings.Contains(w.Body.String(), "Sitemap: https://megiftpacks.com/sitemap.xml") {
		t.Errorf("unexpected robots.txt: %s", w.Body.String())
	}
}
