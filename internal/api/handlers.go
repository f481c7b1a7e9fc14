package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"notice_relay/internal/domain"
)

const (
	defaultLatestLimit = 10
	maxLatestLimit     = 100
)

type sourceView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Kind     string `json:"kind"`
	Policy   string `json:"policy"`
	Interval string `json:"interval,omitempty"`
}

type subscribeRequest struct {
	DisplayName string `json:"display_name"`
	OwningGroup string `json:"owning_group"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status.States())
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	list := s.sources.List()
	out := make([]sourceView, 0, len(list))
	for _, src := range list {
		v := sourceView{
			ID:     src.ID,
			Name:   src.DisplayName,
			URL:    src.OriginURL,
			Kind:   string(src.Kind),
			Policy: string(src.Policy),
		}
		if src.Interval > 0 {
			v.Interval = src.Interval.String()
		}
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.sources.Refresh(r.Context()); err != nil {
		s.logger.Error("manual refresh failed", "error", err)
		writeError(w, http.StatusBadGateway, "refresh failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"sources": len(s.sources.List())})
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.sources.Get(id); err != nil {
		writeError(w, http.StatusNotFound, domain.ErrSourceNotFound.Error())
		return
	}

	limit := defaultLatestLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxLatestLimit)
	}

	notices, err := s.history.QueryRecent(r.Context(), id, limit)
	if err != nil {
		s.storageFailure(w, "query latest", err)
		return
	}
	if notices == nil {
		notices = []domain.Notice{}
	}
	writeJSON(w, http.StatusOK, notices)
}

func (s *Server) handleSubscribers(w http.ResponseWriter, r *http.Request) {
	src, err := s.sources.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, domain.ErrSourceNotFound.Error())
		return
	}

	dests, err := s.destinations.SubscribersOf(r.Context(), src.ID)
	if err != nil {
		s.storageFailure(w, "list subscribers", err)
		return
	}
	if dests == nil {
		dests = []domain.Destination{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"source": src.ID, "name": src.DisplayName, "subscribers": dests})
}

func (s *Server) handleSubscriptions(w http.ResponseWriter, r *http.Request) {
	kind, id, ok := destinationParams(w, r)
	if !ok {
		return
	}

	sources, err := s.destinations.SubscriptionsOf(r.Context(), kind, id)
	if err != nil {
		s.storageFailure(w, "list subscriptions", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"kind": kind, "id": id, "sources": sources})
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	kind, id, ok := destinationParams(w, r)
	if !ok {
		return
	}
	sourceID := chi.URLParam(r, "source")
	src, err := s.sources.Get(sourceID)
	if err != nil {
		writeError(w, http.StatusNotFound, domain.ErrSourceNotFound.Error())
		return
	}

	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	dest := domain.Destination{
		ID:          id,
		Kind:        kind,
		DisplayName: req.DisplayName,
		OwningGroup: req.OwningGroup,
	}
	added, err := s.destinations.Subscribe(r.Context(), dest, src.ID)
	if err != nil {
		s.storageFailure(w, "subscribe", err)
		return
	}

	status := http.StatusOK
	if added {
		status = http.StatusCreated
		s.logger.Info("subscribed", "destination", id, "kind", kind, "source", src.ID)
	}
	writeJSON(w, status, map[string]any{"source": src.ID, "name": src.DisplayName, "subscribed": true, "at": time.Now().UTC()})
}

func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	kind, id, ok := destinationParams(w, r)
	if !ok {
		return
	}
	// Rows for sources dropped from the catalog can still be removed.
	sourceID := chi.URLParam(r, "source")

	removed, err := s.destinations.Unsubscribe(r.Context(), kind, id, sourceID)
	if err != nil {
		s.storageFailure(w, "unsubscribe", err)
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "not subscribed")
		return
	}
	s.logger.Info("unsubscribed", "destination", id, "kind", kind, "source", sourceID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) storageFailure(w http.ResponseWriter, op string, err error) {
	s.logger.Error(op+" failed", "error", err)
	writeError(w, http.StatusServiceUnavailable, "storage unavailable")
}

func destinationParams(w http.ResponseWriter, r *http.Request) (domain.DestinationKind, string, bool) {
	kind := domain.DestinationKind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		writeError(w, http.StatusBadRequest, domain.ErrInvalidKind.Error())
		return "", "", false
	}
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing destination id")
		return "", "", false
	}
	return kind, id, true
}
