package redact

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/redacter/dlpcopy/internal/model"
)

func TestHttpPiiRedactMasksReturnedSpans(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req httpPiiRequest
		json.NewDecoder(r.Body).Decode(&req)
		begin, end := 7, 11
		json.NewEncoder(w).Encode([]httpPiiEntity{{EntityType: "NAME", Start: &begin, End: &end}})
	}))
	defer srv.Close()

	backend := NewHttpPii(srv.Client(), srv.URL, "en", nil)
	item := model.RedacterDataItem{Content: model.RedacterDataItemContent{Kind: model.KindText, Text: "Hello, John"}}
	out, err := backend.Redact(context.Background(), item)
	if err != nil {
		t.Fatal(err)
	}
	if out.Content.Text != "Hello, XXXX" {
		t.Fatalf("got %q", out.Content.Text)
	}
}

func TestHttpPiiRedactSupportTextOnly(t *testing.T) {
	backend := NewHttpPii(nil, "http://example", "en", nil)
	support, err := backend.RedactSupport(context.Background(), model.FileSystemRef{MediaType: "text/plain"})
	if err != nil {
		t.Fatal(err)
	}
	if support != model.Supported {
		t.Fatalf("expected supported for text/plain")
	}
	support, err = backend.RedactSupport(context.Background(), model.FileSystemRef{MediaType: "image/png"})
	if err != nil {
		t.Fatal(err)
	}
	if support != model.Unsupported {
		t.Fatalf("expected unsupported for image/png")
	}
}

func TestHttpPiiDenyListFiltersEntityType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		begin, end := 0, 5
		json.NewEncoder(w).Encode([]httpPiiEntity{{EntityType: "DRIVER_ID", Start: &begin, End: &end}})
	}))
	defer srv.Close()

	backend := NewHttpPii(srv.Client(), srv.URL, "en", nil)
	item := model.RedacterDataItem{Content: model.RedacterDataItemContent{Kind: model.KindText, Text: "ABCDE fg"}}
	out, err := backend.Redact(context.Background(), item)
	if err != nil {
		t.Fatal(err)
	}
	if out.Content.Text != item.Content.Text {
		t.Fatalf("expected denied entity type to leave text unchanged, got %q", out.Content.Text)
	}
}
