// Package api exposes the schedule editing operations over HTTP. Every
// mutating handler delegates to the app service, which owns locking and
// persistence; handlers only translate JSON.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/mikermcconnell/BusScheduler-sub001/app"
	"github.com/mikermcconnell/BusScheduler-sub001/core/lifecycle"
	"github.com/mikermcconnell/BusScheduler-sub001/core/model"
	"github.com/mikermcconnell/BusScheduler-sub001/infra/logger"
	"github.com/mikermcconnell/BusScheduler-sub001/pkg/export"
)

// Server routes schedule editing requests to the service.
type Server struct {
	svc    *app.Service
	log    logger.Logger
	router *httprouter.Router
}

// NewServer builds the HTTP surface for the given service.
func NewServer(svc *app.Service, log logger.Logger) *Server {
	if log == nil {
		log = logger.NopLogger{}
	}
	s := &Server{svc: svc, log: log, router: httprouter.New()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.GET("/healthz", s.handleHealth)
	s.router.GET("/schedule", s.handleGetSchedule)
	s.router.GET("/schedule/export", s.handleExport)
	s.router.GET("/schedule/band", s.handleClassifyBand)

	s.router.POST("/schedule/trips", s.handleAddTrip)
	s.router.DELETE("/schedule/trips/:trip", s.handleDeleteTrip)
	s.router.POST("/schedule/trips/:trip/recovery", s.handleRecoveryEdit)
	s.router.POST("/schedule/trips/:trip/end", s.handleEndTrip)
	s.router.POST("/schedule/trips/:trip/restore", s.handleRestoreTrip)

	s.router.POST("/schedule/bands/:band/template", s.handleApplyTemplate)
	s.router.POST("/schedule/bands/:band/target-percentage", s.handleTargetPercentage)

	s.router.POST("/schedule/blocks/reassign", s.handleReassignBlocks)
	s.router.POST("/schedule/tail-recovery", s.handleEnforceTailRecovery)
}

// Handler returns the routable HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe blocks serving the API on addr.
func (s *Server) ListenAndServe(addr string, readTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: readTimeout,
	}
	s.log.Infof("API listening on %s", addr)
	return srv.ListenAndServe()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetSchedule(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, s.svc.Schedule())
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	sched := s.svc.Schedule()
	switch format := r.URL.Query().Get("format"); format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		if err := export.WriteCSV(w, sched); err != nil {
			s.log.Errorf("csv export: %v", err)
		}
	case "", "json":
		w.Header().Set("Content-Type", "application/json")
		if err := export.WriteJSON(w, sched); err != nil {
			s.log.Errorf("json export: %v", err)
		}
	default:
		writeError(w, http.StatusBadRequest, "unsupported format "+format)
	}
}

func (s *Server) handleClassifyBand(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	departure := r.URL.Query().Get("departure")
	if departure == "" {
		writeError(w, http.StatusBadRequest, "departure query parameter is required")
		return
	}
	bandName := s.svc.ClassifyServiceBand(departure)
	writeJSON(w, http.StatusOK, map[string]string{"departure": departure, "service_band": string(bandName)})
}

type recoveryEditRequest struct {
	TimepointID string `json:"timepoint_id"`
	Minutes     int    `json:"minutes"`
}

func (s *Server) handleRecoveryEdit(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	trip, ok := tripParam(w, ps)
	if !ok {
		return
	}
	var req recoveryEditRequest
	if !decode(w, r, &req) {
		return
	}
	if req.TimepointID == "" {
		writeError(w, http.StatusBadRequest, "timepoint_id is required")
		return
	}
	if req.Minutes < 0 {
		writeError(w, http.StatusBadRequest, "minutes must not be negative")
		return
	}
	next, err := s.svc.ApplyRecoveryEdit(r.Context(), trip, req.TimepointID, req.Minutes)
	s.respond(w, next, err)
}

type endTripRequest struct {
	TimepointIndex int `json:"timepoint_index"`
}

func (s *Server) handleEndTrip(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	trip, ok := tripParam(w, ps)
	if !ok {
		return
	}
	var req endTripRequest
	if !decode(w, r, &req) {
		return
	}
	next, err := s.svc.EndTrip(r.Context(), trip, req.TimepointIndex)
	s.respond(w, next, err)
}

func (s *Server) handleRestoreTrip(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	trip, ok := tripParam(w, ps)
	if !ok {
		return
	}
	next, err := s.svc.RestoreTrip(r.Context(), trip)
	s.respond(w, next, err)
}

func (s *Server) handleDeleteTrip(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	trip, ok := tripParam(w, ps)
	if !ok {
		return
	}
	next, err := s.svc.DeleteTrip(r.Context(), trip)
	s.respond(w, next, err)
}

type addTripRequest struct {
	Mode             string `json:"mode"`
	AnchorTripNumber int    `json:"anchor_trip_number"`
	StartTime        string `json:"start_time,omitempty"`
	EndTime          string `json:"end_time,omitempty"`
	ServiceBand      string `json:"service_band,omitempty"`
}

func (s *Server) handleAddTrip(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req addTripRequest
	if !decode(w, r, &req) {
		return
	}
	mode := lifecycle.AddMode(req.Mode)
	switch mode {
	case lifecycle.AddAfterLast, lifecycle.AddEarly, lifecycle.AddMidRoute:
	default:
		writeError(w, http.StatusBadRequest, "unknown add mode "+req.Mode)
		return
	}
	next, err := s.svc.AddTrip(r.Context(), lifecycle.AddTripRequest{
		Mode:             mode,
		AnchorTripNumber: req.AnchorTripNumber,
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		ServiceBand:      model.ServiceBandName(req.ServiceBand),
	})
	s.respond(w, next, err)
}

type templateRequest struct {
	Template []int `json:"template"`
}

func (s *Server) handleApplyTemplate(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req templateRequest
	if !decode(w, r, &req) {
		return
	}
	for _, v := range req.Template {
		if v < 0 {
			writeError(w, http.StatusBadRequest, "template values must not be negative")
			return
		}
	}
	next, err := s.svc.ApplyRecoveryTemplate(r.Context(), model.ServiceBandName(ps.ByName("band")), req.Template)
	s.respond(w, next, err)
}

type targetPercentageRequest struct {
	Percentage float64 `json:"percentage"`
}

type targetPercentageResponse struct {
	Template []int          `json:"template"`
	Schedule model.Schedule `json:"schedule"`
}

func (s *Server) handleTargetPercentage(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req targetPercentageRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Percentage < 0 {
		writeError(w, http.StatusBadRequest, "percentage must not be negative")
		return
	}
	next, tmpl, err := s.svc.ApplyTargetRecoveryPercentage(r.Context(), model.ServiceBandName(ps.ByName("band")), req.Percentage)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, targetPercentageResponse{Template: tmpl, Schedule: next})
}

type reassignResponse struct {
	Warnings []string       `json:"warnings"`
	Schedule model.Schedule `json:"schedule"`
}

func (s *Server) handleReassignBlocks(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	next, warnings, err := s.svc.ReassignBlocksIfNeeded(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if warnings == nil {
		warnings = []string{}
	}
	writeJSON(w, http.StatusOK, reassignResponse{Warnings: warnings, Schedule: next})
}

func (s *Server) handleEnforceTailRecovery(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	next, err := s.svc.EnforceTailRecoveryRules(r.Context())
	s.respond(w, next, err)
}

func (s *Server) respond(w http.ResponseWriter, next model.Schedule, err error) {
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, next)
}

func tripParam(w http.ResponseWriter, ps httprouter.Params) (int, bool) {
	trip, err := strconv.Atoi(ps.ByName("trip"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "trip number must be an integer")
		return 0, false
	}
	return trip, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
