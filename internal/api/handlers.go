package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/arijanluiken/overlap/internal/calculator"
	"github.com/arijanluiken/overlap/internal/dataset"
	"github.com/arijanluiken/overlap/internal/indicator"
	"github.com/arijanluiken/overlap/internal/metrics"
	"github.com/arijanluiken/overlap/internal/script"
	"github.com/arijanluiken/overlap/pkg/database"
	"github.com/arijanluiken/overlap/pkg/overlap"
)

const maxBodyBytes = 32 << 20

// Version is reported by the health endpoint.
var Version = "dev"

// Response helpers
func (a *APIActor) writeJSON(w http.ResponseWriter, data interface{}) {
	a.writeJSONStatus(w, http.StatusOK, data)
}

func (a *APIActor) writeJSONStatus(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		a.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func (a *APIActor) writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// fail maps domain errors onto status codes.
func (a *APIActor) fail(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		a.logger.Error().Err(err).Int("status", code).Msg("Request failed")
	}
	a.writeError(w, err.Error(), code)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, overlap.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, indicator.ErrUnknownIndicator),
		errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, overlap.ErrLengthMismatch),
		errors.Is(err, overlap.ErrInvalidParameter),
		errors.Is(err, indicator.ErrNoInput),
		errors.Is(err, indicator.ErrInvalidParams),
		errors.Is(err, dataset.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, errUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decode(r *http.Request, w http.ResponseWriter, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// Basic handlers
func (a *APIActor) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":      "ok",
		"timestamp":   time.Now().Format(time.RFC3339),
		"version":     Version,
		"indicators":  len(a.deps.Registry.Names()),
		"calculators": len(a.deps.Calculators),
	}
	if a.deps.DB != nil {
		health["schema_version"] = a.deps.DB.Version()
	}
	a.writeJSON(w, health)
}

func (a *APIActor) handleListIndicators(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, map[string]interface{}{
		"indicators": a.deps.Registry.Describe(),
		"defaults":   a.deps.Registry.Defaults(),
	})
}

func (a *APIActor) handleCompute(w http.ResponseWriter, r *http.Request) {
	var req indicator.Request
	if err := decode(r, w, &req); err != nil {
		a.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	req.Indicator = chi.URLParam(r, "name")

	if _, ok := a.deps.Registry.Lookup(req.Indicator); !ok {
		a.fail(w, fmt.Errorf("%s: %w", req.Indicator, indicator.ErrUnknownIndicator))
		return
	}

	resp, err := a.ask(a.nextCalculator(), calculator.ComputeMsg{Request: req})
	if err != nil {
		a.fail(w, err)
		return
	}
	a.writeJSON(w, resp)
}

func (a *APIActor) handleBatch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Requests []indicator.Request `json:"requests"`
	}
	if err := decode(r, w, &body); err != nil {
		a.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(body.Requests) == 0 {
		a.writeError(w, "requests must not be empty", http.StatusBadRequest)
		return
	}

	resp, err := a.ask(a.nextCalculator(), calculator.BatchMsg{Requests: body.Requests})
	if err != nil {
		a.fail(w, err)
		return
	}
	a.writeJSON(w, map[string]interface{}{"results": resp})
}

func (a *APIActor) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	resp, err := a.ask(a.deps.Datasets, dataset.ListDatasetsMsg{})
	if err != nil {
		a.fail(w, err)
		return
	}
	a.writeJSON(w, map[string]interface{}{"datasets": resp})
}

func (a *APIActor) handleSaveDataset(w http.ResponseWriter, r *http.Request) {
	var ds database.Dataset
	if err := decode(r, w, &ds); err != nil {
		a.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := a.ask(a.deps.Datasets, dataset.SaveDatasetMsg{Dataset: &ds})
	if err != nil {
		a.fail(w, err)
		return
	}
	a.writeJSONStatus(w, http.StatusCreated, resp)
}

func (a *APIActor) handleImportDataset(w http.ResponseWriter, r *http.Request) {
	var msg dataset.ImportDatasetMsg
	if err := decode(r, w, &msg); err != nil {
		a.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	a.logger.Info().
		Str("exchange", msg.Exchange).
		Str("symbol", msg.Symbol).
		Str("interval", msg.Interval).
		Msg("Importing dataset")

	resp, err := a.ask(a.deps.Datasets, msg)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.writeJSONStatus(w, http.StatusCreated, resp)
}

func (a *APIActor) handleGetDataset(w http.ResponseWriter, r *http.Request) {
	resp, err := a.ask(a.deps.Datasets, dataset.GetDatasetMsg{Name: chi.URLParam(r, "name")})
	if err != nil {
		a.fail(w, err)
		return
	}
	a.writeJSON(w, resp)
}

func (a *APIActor) handleDeleteDataset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, err := a.ask(a.deps.Datasets, dataset.DeleteDatasetMsg{Name: name}); err != nil {
		a.fail(w, err)
		return
	}
	a.writeJSON(w, map[string]string{"deleted": name})
}

func (a *APIActor) handleListComputations(w http.ResponseWriter, r *http.Request) {
	if a.deps.DB == nil {
		a.fail(w, errUnavailable)
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			a.writeError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	list, err := a.deps.DB.ListComputations(r.URL.Query().Get("indicator"), limit)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.writeJSON(w, map[string]interface{}{"computations": list})
}

func (a *APIActor) handleListScripts(w http.ResponseWriter, r *http.Request) {
	if a.deps.Scripts == nil {
		a.fail(w, errUnavailable)
		return
	}
	names, err := a.deps.Scripts.List()
	if err != nil {
		a.fail(w, err)
		return
	}
	a.writeJSON(w, map[string]interface{}{"scripts": names})
}

type scriptRequest struct {
	Name    string                 `json:"name"`
	Source  string                 `json:"source,omitempty"`
	Dataset string                 `json:"dataset,omitempty"`
	Open    []float64              `json:"open,omitempty"`
	High    []float64              `json:"high,omitempty"`
	Low     []float64              `json:"low,omitempty"`
	Close   []float64              `json:"close,omitempty"`
	Volume  []float64              `json:"volume,omitempty"`
	Config  map[string]interface{} `json:"config,omitempty"`
}

func (a *APIActor) handleRunScript(w http.ResponseWriter, r *http.Request) {
	if a.deps.Scripts == nil {
		a.fail(w, errUnavailable)
		return
	}

	var req scriptRequest
	if err := decode(r, w, &req); err != nil {
		a.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		req.Name = "inline"
	}

	data := script.Data{
		Open:   req.Open,
		High:   req.High,
		Low:    req.Low,
		Close:  req.Close,
		Volume: req.Volume,
		Config: req.Config,
	}
	if req.Dataset != "" {
		ds, err := askFor[*database.Dataset](a, a.deps.Datasets, dataset.GetDatasetMsg{Name: req.Dataset})
		if err != nil {
			a.fail(w, err)
			return
		}
		data.High, data.Low, data.Close, data.Volume = ds.Series()
		data.Open = make([]float64, len(ds.Candles))
		for i, c := range ds.Candles {
			data.Open[i] = c.Open
		}
	}

	var (
		out map[string][]float64
		err error
	)
	if req.Source != "" {
		out, err = a.deps.Scripts.Run(r.Context(), req.Name, req.Source, data)
	} else {
		out, err = a.deps.Scripts.RunFile(r.Context(), req.Name, data)
	}
	metrics.ObserveScript(err)
	if err != nil {
		code := statusFor(err)
		if code == http.StatusInternalServerError {
			code = http.StatusBadRequest
		}
		a.writeError(w, err.Error(), code)
		return
	}

	a.writeJSON(w, indicator.Result{
		Indicator: req.Name,
		Length:    len(data.Close),
		Outputs:   out,
	})
}

type wsRequest struct {
	ID string `json:"id,omitempty"`
	indicator.Request
}

type wsReply struct {
	ID     string            `json:"id,omitempty"`
	Type   string            `json:"type"`
	Result *indicator.Result `json:"result,omitempty"`
	Error  string            `json:"error,omitempty"`
	Status int               `json:"status,omitempty"`
}

// handleWebSocket treats every text frame as a compute request and answers
// each with a result or error frame.
func (a *APIActor) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := a.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	a.logger.Info().Str("remote", r.RemoteAddr).Msg("WebSocket connection established")

	for {
		_, p, err := conn.ReadMessage()
		if err != nil {
			a.logger.Debug().Err(err).Msg("WebSocket read error")
			break
		}

		reply := a.computeFrame(p)
		if err := conn.WriteJSON(reply); err != nil {
			a.logger.Debug().Err(err).Msg("WebSocket write error")
			break
		}
	}

	a.logger.Info().Str("remote", r.RemoteAddr).Msg("WebSocket connection closed")
}

func (a *APIActor) computeFrame(p []byte) wsReply {
	var req wsRequest
	if err := json.Unmarshal(p, &req); err != nil {
		return wsReply{Type: "error", Error: "invalid JSON: " + err.Error(), Status: http.StatusBadRequest}
	}

	res, err := askFor[*indicator.Result](a, a.nextCalculator(), calculator.ComputeMsg{Request: req.Request})
	if err != nil {
		return wsReply{ID: req.ID, Type: "error", Error: err.Error(), Status: statusFor(err)}
	}
	return wsReply{ID: req.ID, Type: "result", Result: res}
}
