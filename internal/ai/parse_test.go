package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseJSON(t *testing.T) {
	type page struct {
		Title    string   `json:"title"`
		Keywords []string `json:"keywords"`
	}

	tests := []struct {
		name    string
		text    string
		want    string
		wantErr bool
	}{
		{"bare object", `{"title":"Limo","keywords":["a"]}`, "Limo", false},
		{"code fence", "```json\n{\"title\":\"Fenced\"}\n```", "Fenced", false},
		{"prose around", "Here you go:\n{\"title\":\"Wrapped\"}\nThanks!", "Wrapped", false},
		{"no json", "TITLE: plain sections", "", true},
		{"broken json", `{"title": }`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p page
			err := ParseJSON(tt.text, &p)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseJSON: %v", err)
			}
			if p.Title != tt.want {
				t.Errorf("title: got %q, want %q", p.Title, tt.want)
			}
		})
	}
}

func TestEstimateTokens(t *testing.T) {
	for text, want := range map[string]int{"": 0, "a": 1, "abcd": 1, "abcde": 2} {
		if got := EstimateTokens(text); got != want {
			t.Errorf("EstimateTokens(%q): got %d, want %d", text, got, want)
		}
	}
}

func TestFetchImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/png":
			w.Header().Set("Content-Type", "image/png; charset=binary")
			w.Write([]byte("png-bytes"))
		case "/untyped":
			w.Header()["Content-Type"] = nil
			w.Write([]byte{0xff, 0xd8})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	img, err := FetchImage(context.Background(), srv.Client(), srv.URL+"/png")
	if err != nil {
		t.Fatalf("FetchImage: %v", err)
	}
	if img.MimeType != "image/png" || string(img.Data) != "png-bytes" {
		t.Errorf("image: %+v", img)
	}

	img, err = FetchImage(context.Background(), srv.Client(), srv.URL+"/untyped")
	if err != nil {
		t.Fatalf("FetchImage untyped: %v", err)
	}
	if img.MimeType != "image/jpeg" {
		t.Errorf("default mime: got %q", img.MimeType)
	}

	if _, err := FetchImage(context.Background(), srv.Client(), srv.URL+"/missing"); err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("missing image: got %v", err)
	}
}

func TestGenerateWithImageURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/webp")
		w.Write([]byte("webp"))
	}))
	defer srv.Close()

	mock := &mockProvider{name: "test", response: "skyline at dusk"}
	reg := &Registry{providers: map[string]Provider{"test": mock}, active: "test"}

	out, err := reg.GenerateWithImageURL(context.Background(), Request{Prompt: "describe"}, srv.URL)
	if err != nil {
		t.Fatalf("GenerateWithImageURL: %v", err)
	}
	if out != "skyline at dusk" {
		t.Errorf("got %q", out)
	}
	if mock.lastReq.Image == nil || mock.lastReq.Image.MimeType != "image/webp" || string(mock.lastReq.Image.Data) != "webp" {
		t.Errorf("image not attached: %+v", mock.lastReq.Image)
	}
}
