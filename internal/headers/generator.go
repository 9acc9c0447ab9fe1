// Package headers generates browser-like request headers for shop API calls.
// Profiles are pre-generated into a pool so per-request header construction
// stays cheap during a sweep.
package headers

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"

	http "github.com/bogdanfinn/fhttp"
)

type viewport struct {
	Width      int
	Height     int
	PixelRatio float64
}

type Profile struct {
	ua           string
	secCHUA      string
	viewport     viewport
	acceptIdx    int
	langIdx      int
	encIdx       int
	cacheIdx     int
	viewportProb []float64
}

var (
	acceptOpts = []string{
		"application/json",
		"application/json, text/plain, */*",
		"application/json, text/javascript, */*; q=0.01",
	}
	encOpts = []string{
		"gzip, deflate, br",
		"gzip, deflate, br, zstd",
		"br, gzip, deflate",
	}
	langOpts = []string{
		"de-DE,de;q=0.9,en;q=0.8",
		"de-DE,de;q=0.9",
		"de,en-US;q=0.9,en;q=0.8",
		"en-US,en;q=0.9,de;q=0.8",
		"de-AT,de;q=0.9,en;q=0.8",
	}
	cacheOpts = []string{
		"max-age=0",
		"no-cache",
		"",
	}

	headerOrder = []string{
		"Accept",
		"Accept-Language",
		"Accept-Encoding",
		"User-Agent",
		"Sec-CH-UA",
		"Sec-CH-UA-Mobile",
		"Sec-CH-UA-Platform",
		"Sec-Fetch-Site",
		"Sec-Fetch-Mode",
		"Sec-Fetch-Dest",
		"Sec-CH-Viewport-Width",
		"Sec-CH-Viewport-Height",
		"Sec-CH-DPR",
		"Cache-Control",
		"Origin",
		"Referer",
		"Authorization",
		"Cookie",
		"Priority",
	}
)

var profilePool = sync.Pool{
	New: func() interface{} {
		return generateProfile()
	},
}

func generateRandomViewport() viewport {
	w := rand.Intn(640) + 1280
	h := rand.Intn(360) + 720
	dprChoices := []float64{1, 1.25, 1.5, 2}
	return viewport{Width: w, Height: h, PixelRatio: dprChoices[rand.Intn(len(dprChoices))]}
}

func generateRandomUA() string {
	switch rand.Intn(3) {
	case 0: // Windows Chrome
		maj := rand.Intn(11) + 130
		return fmt.Sprintf(
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 "+
				"(KHTML, like Gecko) Chrome/%d.0.%d.0 Safari/537.36",
			maj, rand.Intn(9000)+1000,
		)
	case 1: // macOS Chrome
		maj := rand.Intn(11) + 130
		return fmt.Sprintf(
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_%d) AppleWebKit/537.36 "+
				"(KHTML, like Gecko) Chrome/%d.0.%d.0 Safari/537.36",
			rand.Intn(8), maj, rand.Intn(9000)+1000,
		)
	default: // Windows Firefox
		maj := rand.Intn(16) + 120
		return fmt.Sprintf(
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:%d.0) Gecko/20100101 Firefox/%d.0",
			maj, maj,
		)
	}
}

func generateSecCHUA(ua string) string {
	const fallback = "136.0.0.0"
	ver := fallback
	if idx := strings.Index(ua, "Chrome/"); idx != -1 {
		rest := ua[idx+7:]
		if j := strings.Index(rest, " "); j != -1 {
			ver = rest[:j]
		} else {
			ver = rest
		}
	}
	return fmt.Sprintf(
		`"Not:A-Brand";v="24", "Chromium";v="%s", "Google Chrome";v="%s"`,
		ver, ver,
	)
}

func generateProfile() Profile {
	ua := generateRandomUA()

	viewportProbs := make([]float64, 3)
	for i := range viewportProbs {
		viewportProbs[i] = rand.Float64()
	}

	return Profile{
		ua:           ua,
		secCHUA:      generateSecCHUA(ua),
		viewport:     generateRandomViewport(),
		acceptIdx:    rand.Intn(len(acceptOpts)),
		langIdx:      rand.Intn(len(langOpts)),
		encIdx:       rand.Intn(len(encOpts)),
		cacheIdx:     rand.Intn(len(cacheOpts)),
		viewportProb: viewportProbs,
	}
}

// Build assembles headers for a shop API request, with Origin/Referer derived
// from the storefront base URL and product id.
func Build(baseURL, productID string) http.Header {
	profile := profilePool.Get().(Profile)
	defer profilePool.Put(profile)

	isChrome := strings.Contains(profile.ua, "Chrome/")

	h := http.Header{}
	h.Set("Accept", acceptOpts[profile.acceptIdx])
	h.Set("Accept-Language", langOpts[profile.langIdx])
	h.Set("Accept-Encoding", encOpts[profile.encIdx])
	h.Set("User-Agent", profile.ua)
	if isChrome {
		h.Set("Sec-CH-UA", profile.secCHUA)
		h.Set("Sec-CH-UA-Mobile", "?0")
		if strings.Contains(profile.ua, "Macintosh") {
			h.Set("Sec-CH-UA-Platform", `"macOS"`)
		} else {
			h.Set("Sec-CH-UA-Platform", `"Windows"`)
		}
	}
	h.Set("Origin", baseURL)
	h.Set("Referer", fmt.Sprintf("%s/catalog/product/view/id/%s", baseURL, productID))
	h.Set("Sec-Fetch-Site", "same-origin")
	h.Set("Sec-Fetch-Mode", "cors")
	h.Set("Sec-Fetch-Dest", "empty")
	h.Set("Priority", "u=1,i")

	if cc := cacheOpts[profile.cacheIdx]; cc != "" {
		h.Set("Cache-Control", cc)
	}

	if isChrome {
		if profile.viewportProb[0] < 0.7 {
			h.Set("Sec-CH-Viewport-Width", strconv.Itoa(profile.viewport.Width))
		}
		if profile.viewportProb[1] < 0.7 {
			h.Set("Sec-CH-Viewport-Height", strconv.Itoa(profile.viewport.Height))
		}
		if profile.viewportProb[2] < 0.7 {
			h.Set("Sec-CH-DPR", fmt.Sprintf("%.2g", profile.viewport.PixelRatio))
		}
	}

	h[http.HeaderOrderKey] = headerOrder

	return h
}

// InitProfilePool pre-generates count header profiles.
func InitProfilePool(count int) {
	profiles := make([]interface{}, count)
	for i := 0; i < count; i++ {
		profiles[i] = generateProfile()
	}
	for _, profile := range profiles {
		profilePool.Put(profile)
	}
}

// ResetProfilePool discards all cached profiles.
func ResetProfilePool() {
	profilePool = sync.Pool{New: func() interface{} { return generateProfile() }}
}
