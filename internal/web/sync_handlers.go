package web

import (
	"encoding/json"
	"net/http"
	"time"

	"timely/internal/apperr"
	"timely/internal/output"
	"timely/internal/store"
	"timely/internal/sync"
)

// handlePush ingests one pushed batch: upsert the device identity, resolve
// category names against the hub's own tables, then merge each event. The
// accepted/duplicate counters only move after the corresponding write
// committed, so a mid-batch failure aborts the request without reporting
// events the hub never stored.
func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req sync.PushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, output.Failure(apperr.Wrap(apperr.CodeSync, err, "decode push request")))
		return
	}
	if req.Device.ID == "" {
		respondJSON(w, http.StatusBadRequest, output.Failure(apperr.New(apperr.CodeSync, "push request missing device id")))
		return
	}

	if err := s.devices.UpsertRemote(ctx, req.Device.ID, req.Device.Name, req.Device.Platform); err != nil {
		respondError(w, err)
		return
	}

	var ack sync.PushResponse
	for _, e := range req.Events {
		var categoryID *int64
		if e.CategoryName != nil {
			// a name unknown to this hub is fine, the event just
			// lands uncategorized
			cat, err := s.cats.GetByName(ctx, *e.CategoryName)
			if err != nil {
				respondError(w, err)
				return
			}
			if cat != nil {
				categoryID = &cat.ID
			}
		}

		accepted, err := s.events.Merge(ctx, store.RemoteEvent{
			DeviceID:   req.Device.ID,
			Timestamp:  e.Timestamp,
			Duration:   e.Duration,
			App:        e.App,
			Title:      e.Title,
			URL:        e.URL,
			URLDomain:  e.URLDomain,
			CategoryID: categoryID,
			IsAFK:      e.IsAFK,
		})
		if err != nil {
			respondError(w, apperr.Wrap(apperr.CodeDB, err, "merge pushed event"))
			return
		}
		if accepted {
			ack.Accepted++
		} else {
			ack.Duplicates++
		}
	}

	s.log.Info("ingested push",
		"device", req.Device.Name, "events", len(req.Events),
		"accepted", ack.Accepted, "duplicates", ack.Duplicates)
	respondData(w, ack)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req sync.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, output.Failure(apperr.Wrap(apperr.CodeSync, err, "decode register request")))
		return
	}
	if req.DeviceID == "" {
		respondJSON(w, http.StatusBadRequest, output.Failure(apperr.New(apperr.CodeSync, "register request missing device id")))
		return
	}

	if err := s.devices.UpsertRemote(ctx, req.DeviceID, req.Name, req.Platform); err != nil {
		respondError(w, err)
		return
	}

	s.log.Info("registered device", "device", req.Name, "id", req.DeviceID)
	respondData(w, sync.RegisterResponse{DeviceID: req.DeviceID, Name: req.Name, Registered: true})
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	counts, err := s.devices.ListWithEventCounts(ctx)
	if err != nil {
		respondError(w, err)
		return
	}
	total, err := s.devices.TotalEventCount(ctx)
	if err != nil {
		respondError(w, err)
		return
	}

	resp := sync.StatusResponse{TotalEvents: total, Devices: []sync.DeviceStatus{}}
	for _, d := range counts {
		resp.Devices = append(resp.Devices, sync.DeviceStatus{
			ID:         d.Device.ID,
			Name:       d.Device.Name,
			Platform:   d.Device.Platform,
			LastSync:   d.Device.LastSync.UTC().Format(time.RFC3339),
			EventCount: d.EventCount,
		})
	}
	respondData(w, resp)
}
