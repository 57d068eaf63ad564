package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"pipeline-dashboard-go/internal/backend"
	"pipeline-dashboard-go/internal/dispatcher"
	"pipeline-dashboard-go/internal/filter"
	"pipeline-dashboard-go/internal/models"
	"pipeline-dashboard-go/internal/normalize"

	"go.uber.org/zap"
)

// PipelinesResponse is the structure for the /api/pipelines endpoint.
type PipelinesResponse struct {
	Pipelines []normalize.PipelineView `json:"pipelines"`
	Options   filter.Options           `json:"options"`
	Message   string                   `json:"message,omitempty"`
}

// ErrorResponse is returned for requests that could not be served.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

// HealthHandler reports that the server is up.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parseToggle reads the facet query parameters. Absent parameters leave
// their facet unchanged.
func parseToggle(r *http.Request) (filter.Toggle, error) {
	var t filter.Toggle
	q := r.URL.Query()
	for name, dst := range map[string]**bool{
		"live":    &t.Live,
		"test":    &t.Test,
		"active":  &t.Active,
		"stopped": &t.Stopped,
	} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return t, errors.New("invalid value for " + name)
		}
		*dst = &v
	}
	return t, nil
}

// PipelinesHandler returns the visible pipelines, active ones first. Facets
// given in the query apply to this request only; the saved options are
// changed through OptionsHandler.
func (s *Server) PipelinesHandler(w http.ResponseWriter, r *http.Request) {
	toggle, err := parseToggle(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	options := s.engine.Options()
	var visible []int64
	if toggle == (filter.Toggle{}) {
		visible = s.engine.Visible()
	} else {
		options = options.Apply(toggle)
		visible = filter.Pipelines(s.store.Pipelines(), options)
	}

	byID := s.store.PipelinesByID()
	pnl := normalize.PipelinesPnL(byID, s.store.Trades())
	now := s.now()

	resp := PipelinesResponse{Options: options, Pipelines: []normalize.PipelineView{}}
	for _, id := range visible {
		p, ok := byID[id]
		if !ok {
			continue
		}
		resp.Pipelines = append(resp.Pipelines, s.pipelineView(p, pnl, now))
	}
	if len(resp.Pipelines) == 0 {
		resp.Message = filter.EmptyMessage
	}
	writeJSON(w, http.StatusOK, resp)
}

// OptionsHandler returns the saved facet options.
func (s *Server) OptionsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Options())
}

// ToggleOptionsHandler changes the saved facet options. Fields absent from
// the body are left unchanged.
func (s *Server) ToggleOptionsHandler(w http.ResponseWriter, r *http.Request) {
	var toggle filter.Toggle
	if err := json.NewDecoder(r.Body).Decode(&toggle); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Toggle(toggle))
}

// PipelineHandler returns a single pipeline.
func (s *Server) PipelineHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid pipeline id")
		return
	}
	p, ok := s.store.Pipeline(id)
	if !ok {
		writeError(w, http.StatusNotFound, "pipeline not found")
		return
	}
	pnl := normalize.PipelinesPnL(map[int64]models.Pipeline{id: p}, s.store.Trades())
	writeJSON(w, http.StatusOK, s.pipelineView(p, pnl, s.now()))
}

func (s *Server) pipelineView(p models.Pipeline, pnl map[int64]normalize.PipelinePnL, now time.Time) normalize.PipelineView {
	v := normalize.ViewPipeline(p, now)
	if result, ok := pnl[p.ID]; ok {
		v.PnL = result
	} else {
		v.PnL.Color = normalize.Neutral
	}
	if pos, ok := s.store.Position(p.ID); ok {
		v.Position = &pos.Position
	}
	return v
}

// TradesHandler returns the known trades, most recent first. A page above 1
// is loaded from the backend before responding.
func (s *Server) TradesHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			writeError(w, http.StatusBadRequest, "invalid page")
			return
		}
		if page > 1 {
			if err := s.pager.RefreshTrades(r.Context(), page); err != nil {
				s.logger.Error("Failed to load trades page", zap.Int("page", page), zap.Error(err))
				writeError(w, http.StatusBadGateway, dispatcher.UnreachableMessage)
				return
			}
		}
	}

	var pipelineID int64
	if raw := q.Get("pipelineId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid pipelineId")
			return
		}
		pipelineID = id
	}

	prices := s.store.Prices()
	now := s.now()
	views := []normalize.TradeView{}
	for _, t := range s.store.Trades() {
		if pipelineID != 0 && t.PipelineID != pipelineID {
			continue
		}
		views = append(views, normalize.ViewTrade(t, prices, now))
	}
	writeJSON(w, http.StatusOK, views)
}

// PositionsHandler returns the positions joined with their pipelines.
func (s *Server) PositionsHandler(w http.ResponseWriter, r *http.Request) {
	byID := s.store.PipelinesByID()
	views := []normalize.PositionView{}
	for _, pos := range s.store.Positions() {
		var owner *models.Pipeline
		if p, ok := byID[pos.PipelineID]; ok {
			owner = &p
		}
		views = append(views, normalize.ViewPosition(pos, owner))
	}
	writeJSON(w, http.StatusOK, views)
}

// BalancesHandler returns the live and test account balances.
func (s *Server) BalancesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Balances())
}

// MetricsHandler returns the backend pipeline metrics unchanged.
func (s *Server) MetricsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Metrics())
}

// ResourcesHandler returns the option names of every loaded resource.
func (s *Server) ResourcesHandler(w http.ResponseWriter, r *http.Request) {
	resources := s.store.Resources()
	out := make(map[string][]string, len(resources))
	for kind := range resources {
		out[kind] = resources.Options(kind)
	}
	writeJSON(w, http.StatusOK, out)
}

// MessageHandler returns the current status message.
func (s *Server) MessageHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.messages.Current())
}

// StatisticsHandler returns trade statistics for the last 24 hours and all
// time.
func (s *Server) StatisticsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, normalize.TradeStatistics(s.store.Trades(), s.now()))
}

// StartHandler starts a new pipeline.
func (s *Server) StartHandler(w http.ResponseWriter, r *http.Request) {
	var params models.PipelineParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	resp, err := s.commands.Start(r.Context(), params)
	s.writeCommand(w, resp, err)
}

// EditHandler edits a stopped pipeline.
func (s *Server) EditHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid pipeline id")
		return
	}
	var params models.PipelineParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	resp, err := s.commands.Edit(r.Context(), id, params)
	s.writeCommand(w, resp, err)
}

// StopHandler stops a pipeline.
func (s *Server) StopHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid pipeline id")
		return
	}
	resp, err := s.commands.Stop(r.Context(), id)
	s.writeCommand(w, resp, err)
}

// DeleteHandler deletes a pipeline.
func (s *Server) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid pipeline id")
		return
	}
	resp, err := s.commands.Delete(r.Context(), id)
	s.writeCommand(w, resp, err)
}

// writeCommand maps a command outcome to a response. Business rejections are
// reported with 200 and success=false in the body.
func (s *Server) writeCommand(w http.ResponseWriter, resp *models.CommandResponse, err error) {
	switch {
	case errors.Is(err, dispatcher.ErrInvalidCommand):
		writeJSON(w, http.StatusBadRequest, models.CommandResponse{Message: err.Error()})
	case errors.Is(err, backend.ErrTransport):
		writeJSON(w, http.StatusBadGateway, models.CommandResponse{Message: dispatcher.UnreachableMessage})
	case err != nil:
		s.logger.Error("Command failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.CommandResponse{Message: err.Error()})
	default:
		writeJSON(w, http.StatusOK, resp)
	}
}
