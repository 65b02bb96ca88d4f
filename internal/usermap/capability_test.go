//go:build linux

package usermap

import "testing"

func TestRecommendReturnsUsableMapper(t *testing.T) {
	m, err := Recommend(1000, 1000)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if m == nil {
		t.Fatal("Recommend returned nil mapper")
	}
	if !m.UIDMapped(0) {
		t.Error("recommended mapper should map uid 0 (builder invariant)")
	}
}
