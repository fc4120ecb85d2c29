// Package httpapi exposes the bundle server's REST surface.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	app "github.com/Ablestor/bundle-electron-updates-server/internal/app"
	"github.com/Ablestor/bundle-electron-updates-server/internal/app/domain/asset"
	"github.com/Ablestor/bundle-electron-updates-server/internal/app/domain/manifest"
	"github.com/Ablestor/bundle-electron-updates-server/internal/app/metrics"
	"github.com/Ablestor/bundle-electron-updates-server/internal/app/services/distribution"
	"github.com/Ablestor/bundle-electron-updates-server/internal/app/services/manifests"
	"github.com/Ablestor/bundle-electron-updates-server/internal/app/services/registry"
	"github.com/Ablestor/bundle-electron-updates-server/internal/app/services/resolution"
	"github.com/Ablestor/bundle-electron-updates-server/internal/app/storage"
	"github.com/Ablestor/bundle-electron-updates-server/pkg/logger"
)

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app *app.Application
	log *logger.Logger
}

// NewHandler returns a router exposing the REST API, metrics and health
// endpoints.
func NewHandler(application *app.Application, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	h := &handler{app: application, log: log}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/assets", h.registerAsset).Methods(http.MethodPost)
	api.HandleFunc("/assets/{id}", h.getAsset).Methods(http.MethodGet)

	api.HandleFunc("/manifests", h.createManifest).Methods(http.MethodPost)
	api.HandleFunc("/manifests/uuid/{uuid}", h.getManifestByUUID).Methods(http.MethodGet)
	api.HandleFunc("/manifests/{id}", h.getManifest).Methods(http.MethodGet)
	api.HandleFunc("/manifests/{id}", h.deleteManifest).Methods(http.MethodDelete)
	api.HandleFunc("/manifests/{id}/assets", h.listManifestAssets).Methods(http.MethodGet)
	api.HandleFunc("/manifests/{id}/assets/{assetID}/download", h.downloadAsset).Methods(http.MethodGet)

	api.HandleFunc("/channels/{channel}/latest", h.latest).Methods(http.MethodGet)
	api.HandleFunc("/channels/{channel}/check", h.checkForUpdate).Methods(http.MethodGet)

	limiter := rate.NewLimiter(rate.Limit(defaultRequestsPerSecond), defaultBurst)
	return metrics.InstrumentHandler(withRateLimit(limiter, withLogging(log, r)))
}

const (
	defaultRequestsPerSecond = 50
	defaultBurst             = 100
)

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) registerAsset(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Locator   string `json:"locator"`
		Backend   string `json:"backend"`
		Kind      string `json:"kind"`
		SHA256    string `json:"sha256"`
		SizeBytes int64  `json:"size_bytes"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	a, err := h.app.Registry.Register(r.Context(), payload.Locator,
		asset.Backend(payload.Backend), asset.Kind(payload.Kind),
		payload.SHA256, payload.SizeBytes)
	if err != nil {
		writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *handler) getAsset(w http.ResponseWriter, r *http.Request) {
	a, err := h.app.Registry.Resolve(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err, http.StatusNotFound), err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *handler) createManifest(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Platform         string                     `json:"platform"`
		Bundler          string                     `json:"bundler"`
		Channel          string                     `json:"channel"`
		Version          string                     `json:"version"`
		Federation       manifest.FederationConfig  `json:"federation"`
		TypeIndexAssetID string                     `json:"type_index_asset_id"`
		Assets           []manifest.AssetRef        `json:"assets"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	m, err := h.app.Manifests.Create(r.Context(), manifests.Draft{
		Platform:         manifest.Platform(payload.Platform),
		Bundler:          manifest.Bundler(payload.Bundler),
		Channel:          payload.Channel,
		Version:          payload.Version,
		Federation:       payload.Federation,
		TypeIndexAssetID: payload.TypeIndexAssetID,
		Assets:           payload.Assets,
	})
	if err != nil {
		writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *handler) getManifest(w http.ResponseWriter, r *http.Request) {
	m, err := h.app.Manifests.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err, http.StatusNotFound), err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *handler) getManifestByUUID(w http.ResponseWriter, r *http.Request) {
	m, err := h.app.Manifests.GetByUUID(r.Context(), mux.Vars(r)["uuid"])
	if err != nil {
		writeError(w, statusFor(err, http.StatusNotFound), err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *handler) deleteManifest(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Manifests.SoftDelete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) listManifestAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.app.Manifests.Assets(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err, http.StatusNotFound), err)
		return
	}
	writeJSON(w, http.StatusOK, assets)
}

func (h *handler) latest(w http.ResponseWriter, r *http.Request) {
	platform := manifest.Platform(r.URL.Query().Get("platform"))
	channel := mux.Vars(r)["channel"]

	m, err := h.app.Resolution.GetLatest(r.Context(), platform, channel)
	if err != nil {
		writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *handler) checkForUpdate(w http.ResponseWriter, r *http.Request) {
	platform := manifest.Platform(r.URL.Query().Get("platform"))
	channel := mux.Vars(r)["channel"]
	version := r.URL.Query().Get("version")

	d, err := h.app.Resolution.CheckForUpdate(r.Context(), platform, channel, version)
	if err != nil {
		writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// downloadAsset resolves an asset that belongs to the manifest into a
// fetchable location. Backends that redirect get a 302; inline backends
// return the location in the body.
func (h *handler) downloadAsset(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	manifestID, assetID := vars["id"], vars["assetID"]

	assetList, err := h.app.Manifests.Assets(r.Context(), manifestID)
	if err != nil {
		writeError(w, statusFor(err, http.StatusNotFound), err)
		return
	}

	var target *asset.Asset
	for i := range assetList {
		if assetList[i].ID == assetID {
			target = &assetList[i]
			break
		}
	}
	if target == nil {
		writeError(w, http.StatusNotFound,
			errors.New("asset does not belong to manifest"))
		return
	}

	loc, err := h.app.Distribution.Locate(r.Context(), *target)
	if err != nil {
		writeError(w, statusFor(err, http.StatusBadGateway), err)
		return
	}

	if loc.Redirect {
		http.Redirect(w, r, loc.URL, http.StatusFound)
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

// statusFor maps service errors onto HTTP statuses. fallback covers errors
// outside the shared taxonomy.
func statusFor(err error, fallback int) int {
	switch {
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, resolution.ErrNoManifestAvailable):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrConflict),
		errors.Is(err, registry.ErrImmutable):
		return http.StatusConflict
	case errors.Is(err, manifests.ErrInvalidReference):
		return http.StatusUnprocessableEntity
	case errors.Is(err, manifest.ErrMalformedVersion):
		return http.StatusBadRequest
	case errors.Is(err, distribution.ErrBackendUnavailable):
		return http.StatusBadGateway
	default:
		return fallback
	}
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
