//go:build integration

package integration

import (
	"net/http"
	"testing"
)

const mat = "0b6f8a52-7c1e-4d4a-9a3f-1f2e3d4c5b07"

func TestListProducts(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)

	body := decodeJSON[envelope[[]productResponse]](t, resp)
	if !body.Success {
		t.Fatalf("expected success, got %q", body.Message)
	}
	if len(body.Data) < seededProducts {
		t.Fatalf("expected at least %d products, got %d", seededProducts, len(body.Data))
	}
}

func TestGetProduct(t *testing.T) {
	resp := doGet(t, "/api/products/"+mat)
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)

	p := decodeJSON[envelope[productResponse]](t, resp).Data
	if p.Name != "Yoga Mat" {
		t.Errorf("name: got %q, want %q", p.Name, "Yoga Mat")
	}
	if p.Price != 35 {
		t.Errorf("price: got %v, want 35", p.Price)
	}
	if p.Category != "Sports" {
		t.Errorf("category: got %q, want Sports", p.Category)
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	resp := doGet(t, "/api/products/00000000-0000-0000-0000-000000000000")
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusNotFound)

	body := decodeJSON[envelope[any]](t, resp)
	if body.Success {
		t.Error("expected success=false")
	}
	if body.Message != "Product not found" {
		t.Errorf("message: got %q", body.Message)
	}
}

func TestProductLifecycle(t *testing.T) {
	create := map[string]any{
		"name":        "Trail Running Shoes",
		"description": "Grippy outsole for muddy trails.",
		"price":       "89.90",
		"category":    "Sports",
		"stock":       5,
	}

	resp := doPost(t, "/api/products", create)
	resp.Body.Close()
	expectStatus(t, resp, http.StatusUnauthorized)

	resp = doAdmin(t, http.MethodPost, "/api/products", create)
	expectStatus(t, resp, http.StatusCreated)
	created := decodeJSON[envelope[productResponse]](t, resp).Data
	resp.Body.Close()
	if created.ID == "" {
		t.Fatal("created product has no id")
	}

	resp = doAdmin(t, http.MethodPut, "/api/products/"+created.ID, map[string]any{"stock": 12})
	expectStatus(t, resp, http.StatusOK)
	updated := decodeJSON[envelope[productResponse]](t, resp).Data
	resp.Body.Close()
	if updated.Stock != 12 || updated.Name != create["name"] {
		t.Errorf("update: got %+v", updated)
	}

	resp = doAdmin(t, http.MethodDelete, "/api/products/"+created.ID, nil)
	resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)

	resp = doGet(t, "/api/products/"+created.ID)
	resp.Body.Close()
	expectStatus(t, resp, http.StatusNotFound)
}
