package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// ImageHandler proxies poster images with a disk cache so browsers never hit
// the provider's CDN directly.
type ImageHandler struct {
	cacheDir   string
	httpc      *http.Client
	mu         sync.RWMutex
	inProgress map[string]chan struct{} // Prevent duplicate fetches
}

// NewImageHandler creates a new image proxy handler.
func NewImageHandler(cacheDir string) *ImageHandler {
	imgCacheDir := filepath.Join(cacheDir, "images")
	if err := os.MkdirAll(imgCacheDir, 0o755); err != nil {
		log.Printf("[ImageProxy] Warning: could not create cache dir %s: %v", imgCacheDir, err)
	}

	return &ImageHandler{
		cacheDir: imgCacheDir,
		httpc: &http.Client{
			Timeout: 30 * time.Second,
		},
		inProgress: make(map[string]chan struct{}),
	}
}

// Proxy serves ?url= images, restricted to the TMDB image CDN. The content
// type is sniffed from the bytes rather than trusted from the upstream
// response.
func (h *ImageHandler) Proxy(w http.ResponseWriter, r *http.Request) {
	sourceURL := r.URL.Query().Get("url")
	if sourceURL == "" {
		writeJSONError(w, "url parameter required", http.StatusBadRequest)
		return
	}
	if !strings.HasPrefix(sourceURL, "https://image.tmdb.org/") {
		writeJSONError(w, "URL not allowed", http.StatusForbidden)
		return
	}

	cacheKey := h.cacheKey(sourceURL)
	cachePath := filepath.Join(h.cacheDir, cacheKey)

	if h.serveCached(w, cachePath, "HIT") {
		return
	}

	// Collapse concurrent fetches of the same image into one request.
	h.mu.Lock()
	if ch, exists := h.inProgress[cacheKey]; exists {
		h.mu.Unlock()
		<-ch
		if h.serveCached(w, cachePath, "HIT") {
			return
		}
		writeJSONError(w, "failed to load image", http.StatusBadGateway)
		return
	}
	ch := make(chan struct{})
	h.inProgress[cacheKey] = ch
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.inProgress, cacheKey)
		close(ch)
		h.mu.Unlock()
	}()

	resp, err := h.httpc.Get(sourceURL)
	if err != nil {
		log.Printf("[ImageProxy] Fetch error for %s: %v", sourceURL, err)
		writeJSONError(w, "failed to fetch image", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[ImageProxy] Fetch returned %d for %s", resp.StatusCode, sourceURL)
		writeJSONError(w, "image source error", http.StatusBadGateway)
		return
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		writeJSONError(w, "failed to read image", http.StatusBadGateway)
		return
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		log.Printf("[ImageProxy] Non-image payload (%s) from %s", mtype, sourceURL)
		writeJSONError(w, "upstream did not return an image", http.StatusBadGateway)
		return
	}

	// Cache best effort; still serve on cache failure.
	tmpPath := cachePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err == nil {
		if err := os.Rename(tmpPath, cachePath); err != nil {
			os.Remove(tmpPath)
		}
	}

	w.Header().Set("Content-Type", mtype.String())
	w.Header().Set("Cache-Control", "public, max-age=2592000") // 30 days
	w.Header().Set("X-Cache", "MISS")
	w.Write(data)
}

func (h *ImageHandler) serveCached(w http.ResponseWriter, cachePath, cacheState string) bool {
	data, err := os.ReadFile(cachePath)
	if err != nil {
		return false
	}
	w.Header().Set("Content-Type", mimetype.Detect(data).String())
	w.Header().Set("Cache-Control", "public, max-age=2592000")
	w.Header().Set("X-Cache", cacheState)
	w.Write(data)
	return true
}

func (h *ImageHandler) cacheKey(url string) string {
	hash := sha256.Sum256([]byte(url))
	return hex.EncodeToString(hash[:16])
}

// Options handles CORS preflight
func (h *ImageHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
