package main

import (
	"net/http"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func Test_application_notFound(t *testing.T) {
	ctx := t.Context()
	server, _ := startServer(t, backend(assessmentReply, planReply, http.StatusOK))
	client := server.Client()

	tests := []struct {
		name string
		path string
	}{
		{name: "nonexistent path", path: "/nonexistent"},
		{name: "directory traversal", path: "/../go.mod"},
		{name: "unknown workout", path: "/workouts/00000000-0000-0000-0000-000000000000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := client.Get(ctx, tt.path)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusNotFound {
				t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
			}
			doc, err := goquery.NewDocumentFromReader(resp.Body)
			if err != nil {
				t.Fatalf("Failed to parse 404 document: %v", err)
			}
			if got := doc.Find("h1").First().Text(); !strings.Contains(got, "404") {
				t.Errorf("title = %q, want it to contain 404", got)
			}
			if got := doc.Find("h2").First().Text(); !strings.Contains(got, "Page Not Found") {
				t.Errorf("subtitle = %q, want Page Not Found", got)
			}
			if got := doc.Find("main a[href='/']").Text(); !strings.Contains(got, "Go Home") {
				t.Errorf("home link = %q, want Go Home", got)
			}
		})
	}
}
