package headers

import (
	"strings"
	"testing"
)

func TestBuild_SetsIdentityAndOrigin(t *testing.T) {
	InitProfilePool(4)

	h := Build("https://shop.example", "12345")

	if h.Get("User-Agent") == "" {
		t.Error("expected a user agent")
	}
	if got := h.Get("Origin"); got != "https://shop.example" {
		t.Errorf("origin = %q", got)
	}
	want := "https://shop.example/catalog/product/view/id/12345"
	if got := h.Get("Referer"); got != want {
		t.Errorf("referer = %q, want %q", got, want)
	}
	if h.Get("Accept") == "" || h.Get("Accept-Language") == "" {
		t.Error("expected accept headers")
	}
}

func TestBuild_ClientHintsMatchBrowser(t *testing.T) {
	InitProfilePool(32)

	for i := 0; i < 32; i++ {
		h := Build("https://shop.example", "1")
		isChrome := strings.Contains(h.Get("User-Agent"), "Chrome/")
		hasHints := h.Get("Sec-CH-UA") != ""
		if isChrome != hasHints {
			t.Fatalf("client hints must track the browser family: ua=%q sec-ch-ua=%q",
				h.Get("User-Agent"), h.Get("Sec-CH-UA"))
		}
	}
}

func TestResetProfilePool_ServesFreshProfiles(t *testing.T) {
	InitProfilePool(4)
	ResetProfilePool()

	// An emptied pool regenerates on demand.
	h := Build("https://shop.example", "12345")
	if h.Get("User-Agent") == "" {
		t.Error("expected a user agent after a pool reset")
	}
}
