package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/Chandru0712/SelfieBooth/internal/booth"
	"github.com/Chandru0712/SelfieBooth/internal/camera"
	"github.com/Chandru0712/SelfieBooth/internal/debug"
	"github.com/Chandru0712/SelfieBooth/internal/frames"
	"github.com/Chandru0712/SelfieBooth/internal/logic/compose"
	"github.com/Chandru0712/SelfieBooth/internal/store"
)

// CameraControl is the slice of the camera manager the handlers need.
// *camera.Manager satisfies this.
type CameraControl interface {
	PreviewFrame(lastSeen uint64) (image.Image, uint64, bool)
	PreviewProxyURL() (string, bool)
	SwitchDevice(ctx context.Context, deviceID int) (camera.Source, error)
	State() camera.State
	LastError() error
}

// CaptureRequest is the body of POST /capture and POST /countdown.
type CaptureRequest struct {
	SessionID string  `json:"session_id"`
	Zoom      float64 `json:"zoom"`
	Filter    string  `json:"filter"`
	FrameID   string  `json:"frame_id"`
	Seconds   int     `json:"seconds"` // countdown only
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Booth    *booth.Booth
	Camera   CameraControl
	Catalog  *frames.Catalog
	Records  *store.Store
	Hub      *Hub
	staticFS fs.FS

	DefaultCountdown int
}

func NewHandlers(b *booth.Booth, cam CameraControl, catalog *frames.Catalog, records *store.Store, hub *Hub, staticFS fs.FS, defaultCountdown int) *Handlers {
	return &Handlers{
		Booth:            b,
		Camera:           cam,
		Catalog:          catalog,
		Records:          records,
		Hub:              hub,
		staticFS:         staticFS,
		DefaultCountdown: defaultCountdown,
	}
}

// ServeIndex serves the kiosk HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandleHealth handles GET /healthz.
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// HandleCapture handles POST /capture: one synchronous capture.
func (h *Handlers) HandleCapture(w http.ResponseWriter, r *http.Request) {
	var req CaptureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}

	photo, err := h.Booth.Snap(r.Context(), booth.SnapRequest{
		SessionID: req.SessionID,
		Zoom:      req.Zoom,
		Filter:    compose.Filter(req.Filter),
		FrameID:   req.FrameID,
	})
	if err != nil {
		writeCaptureError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, photo)
}

// HandleCountdown handles POST /countdown: ticks are broadcast over the
// hub, the shot fires at zero. Responds 202 immediately; the kiosk UI
// follows along on the websocket.
func (h *Handlers) HandleCountdown(w http.ResponseWriter, r *http.Request) {
	var req CaptureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}
	if h.Booth.Busy() {
		http.Error(w, "capture already in progress", http.StatusConflict)
		return
	}
	seconds := req.Seconds
	if seconds <= 0 {
		seconds = h.DefaultCountdown
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(seconds)*time.Second+30*time.Second)
		defer cancel()
		if _, err := h.Booth.Countdown(ctx, seconds, booth.SnapRequest{
			SessionID: req.SessionID,
			Zoom:      req.Zoom,
			Filter:    compose.Filter(req.Filter),
			FrameID:   req.FrameID,
		}); err != nil {
			debug.Error(fmt.Errorf("countdown capture: %w", err))
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]any{"status": "started", "seconds": seconds})
}

// HandlePreview handles GET /preview. A local source is streamed as
// MJPEG from the in-memory frame buffer; a remote source's preview
// stream is proxied straight through so the phone is the only encoder.
func (h *Handlers) HandlePreview(w http.ResponseWriter, r *http.Request) {
	if proxyURL, ok := h.Camera.PreviewProxyURL(); ok {
		h.proxyPreview(w, r, proxyURL)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")

	var lastSeen uint64
	ticker := time.NewTicker(40 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		img, seq, ok := h.Camera.PreviewFrame(lastSeen)
		if !ok {
			continue
		}
		lastSeen = seq

		if err := writeMJPEGPart(w, img); err != nil {
			return
		}
		flusher.Flush()
	}
}

func (h *Handlers) proxyPreview(w http.ResponseWriter, r *http.Request, url string) {
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, url, nil)
	if err != nil {
		http.Error(w, "preview unavailable", http.StatusBadGateway)
		return
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		http.Error(w, "preview unavailable", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

func writeMJPEGPart(w io.Writer, img image.Image) error {
	if _, err := fmt.Fprint(w, "--frame\r\nContent-Type: image/jpeg\r\n\r\n"); err != nil {
		return err
	}
	if err := jpeg.Encode(w, img, &jpeg.Options{Quality: 80}); err != nil {
		return err
	}
	_, err := fmt.Fprint(w, "\r\n")
	return err
}

// HandleFrames handles GET /frames?category=. Every listing ends with
// the no-frame choice.
func (h *Handlers) HandleFrames(w http.ResponseWriter, r *http.Request) {
	cat := frames.Category(r.URL.Query().Get("category"))
	if cat == "" {
		cat = frames.CategoryChildren
	}
	if !cat.Valid() {
		http.Error(w, "unknown category", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.Catalog.List(cat))
}

// HandleFrameImage handles GET /frames/{category}/{name}/image and
// serves the frame artwork file itself.
func (h *Handlers) HandleFrameImage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("category") + "/" + r.PathValue("name")
	asset, ok := h.Catalog.Get(id)
	if !ok || asset.Path == "" {
		http.Error(w, "unknown frame", http.StatusNotFound)
		return
	}
	http.ServeFile(w, r, asset.Path)
}

// HandleCreateSession handles POST /sessions.
func (h *Handlers) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if !frames.Category(req.Category).Valid() {
		http.Error(w, "unknown category", http.StatusBadRequest)
		return
	}

	session, err := h.Records.CreateSession(req.Category)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

// HandleSessions handles GET /sessions?limit=&offset=.
func (h *Handlers) HandleSessions(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	sessions, err := h.Records.Sessions(limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

// HandleSessionPhotos handles GET /sessions/{id}/photos.
func (h *Handlers) HandleSessionPhotos(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := h.Records.Session(id); err != nil {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	photos, err := h.Records.Photos(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, photos)
}

// HandlePhotoImage handles GET /photos/{id}/image as a download.
func (h *Handlers) HandlePhotoImage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	payload, err := h.Records.PhotoPayload(id)
	if err != nil {
		http.Error(w, "unknown photo", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", `attachment; filename="selfie-`+id+`.png"`)
	w.Write(payload)
}

// HandlePhotoThumb handles GET /photos/{id}/thumb.
func (h *Handlers) HandlePhotoThumb(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	thumb, err := h.Records.PhotoThumb(id)
	if err != nil {
		http.Error(w, "no thumbnail", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Write(thumb)
}

// HandleDeletePhoto handles DELETE /photos/{id}.
func (h *Handlers) HandleDeletePhoto(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := h.Records.Photo(id); err != nil {
		http.Error(w, "unknown photo", http.StatusNotFound)
		return
	}
	if err := h.Records.DeletePhoto(id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleStats handles GET /stats: storage totals plus camera state.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Records.StorageStats()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	payload := map[string]any{
		"sessions":     stats.SessionCount,
		"photos":       stats.PhotoCount,
		"total_bytes":  stats.TotalBytes,
		"camera_state": h.Camera.State().String(),
		"ws_clients":   h.Hub.ClientCount(),
	}
	if err := h.Camera.LastError(); err != nil {
		payload["camera_error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, payload)
}

// HandleSwitchDevice handles POST /camera/device: hot-swap the local
// webcam. Rejected outright in remote mode.
func (h *Handlers) HandleSwitchDevice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DeviceID int `json:"device_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	if _, err := h.Camera.SwitchDevice(r.Context(), req.DeviceID); err != nil {
		if errors.Is(err, camera.ErrRemoteMode) {
			http.Error(w, "device switching is not available for a remote camera", http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"device_id": req.DeviceID})
}

func writeCaptureError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booth.ErrCaptureBusy):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, compose.ErrBadOptions):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, compose.ErrSourceUnavailable):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
