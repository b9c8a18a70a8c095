package kujo

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"sync"

	"github.com/Masterminds/sprig/v3"
	"github.com/r3labs/sse/v2"
	"go.uber.org/zap"
	. "nyiyui.ca/hato/tegata"
	"nyiyui.ca/hato/tegata/config"
	"nyiyui.ca/hato/tegata/dim"
	"nyiyui.ca/hato/tegata/export"
	"nyiyui.ca/hato/tegata/render"
	"nyiyui.ca/hato/tegata/store"
)

//go:embed index.html
var templates embed.FS

const snapshotStream = "snapshot"

type Server struct {
	st   *store.Store
	conf config.Config
	dims dim.Dimensions
	s    *sse.Server
	t    *template.Template
	sm   *http.ServeMux

	// seqsLock is held from the sequence check until the touches are
	// applied, so each client's lists reach the store in order.
	seqsLock sync.Mutex
	seqs     map[string]uint64
}

func NewServer(st *store.Store, conf config.Config) (*Server, error) {
	dims, err := conf.Dimensions()
	if err != nil {
		return nil, err
	}
	t, err := template.New("index").Funcs(sprig.FuncMap()).ParseFS(templates, "index.html")
	if err != nil {
		return nil, err
	}
	s := &Server{
		st:   st,
		conf: conf,
		dims: dims,
		s:    sse.New(),
		t:    t,
		sm:   http.NewServeMux(),
		seqs: map[string]uint64{},
	}
	s.s.AutoReplay = false
	s.s.CreateStream(snapshotStream)
	s.sm.HandleFunc("GET /{$}", s.handleIndex)
	s.sm.HandleFunc("GET /config", s.handleConfig)
	s.sm.HandleFunc("GET /state", s.handleState)
	s.sm.HandleFunc("GET /export", s.handleExport)
	s.sm.HandleFunc("POST /touches", s.handleTouches)
	s.sm.HandleFunc("POST /reset", s.handleReset)
	s.sm.Handle("GET /events", s.s)
	return s, nil
}

func (s *Server) Handler() http.Handler { return s.sm }

// Snapshot is what the snapshot stream carries.
type Snapshot struct {
	State State  `json:"state"`
	SVG   string `json:"svg"`
}

// Forward publishes every state change on the snapshot stream until ctx is done.
func (s *Server) Forward(ctx context.Context) error {
	ch := make(chan State, 16)
	s.st.Subscribe("kujo", ch)
	defer s.st.Unsubscribe(ch)
	defer s.s.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case state := <-ch:
			data, err := json.Marshal(Snapshot{State: state, SVG: render.SVG(state, s.conf.Style())})
			if err != nil {
				zap.S().Warnw("kujo: marshal snapshot", "err", err)
				continue
			}
			s.s.TryPublish(snapshotStream, &sse.Event{Data: data})
		}
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	state, err := s.st.Snapshot(r.Context())
	if err != nil {
		s.storeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = s.t.ExecuteTemplate(w, "index.html", map[string]interface{}{
		"conf":   s.conf,
		"stream": snapshotStream,
		// render.SVG only emits numbers and fixed markup.
		"svg": template.HTML(render.SVG(state, s.conf.Style())),
	})
	if err != nil {
		zap.S().Errorw("kujo: render index", "err", err)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.S().Warnw("kujo: write json", "err", err)
	}
}

func (s *Server) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrClosed) {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.conf)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	state, err := s.st.Snapshot(r.Context())
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, state)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	state, err := s.st.Snapshot(r.Context())
	if err != nil {
		s.storeError(w, err)
		return
	}
	data, err := export.Marshal(state, s.conf.Export())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename+`"`)
	w.Write(data)
}

// touchesRequest carries the full contact list of one touch event.
// Seq, when set, numbers the requests of one Client; a request whose Seq is
// not above the last one applied for that Client is rejected.
type touchesRequest struct {
	Client  string           `json:"client,omitempty"`
	Seq     uint64           `json:"seq,omitempty"`
	Touches []dim.PixelPoint `json:"touches"`
}

func (s *Server) handleTouches(w http.ResponseWriter, r *http.Request) {
	var req touchesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "parse body: "+err.Error(), http.StatusBadRequest)
		return
	}
	s.seqsLock.Lock()
	defer s.seqsLock.Unlock()
	if req.Seq != 0 {
		if last := s.seqs[req.Client]; req.Seq <= last {
			zap.S().Debugw("kujo: stale touches", "client", req.Client, "seq", req.Seq, "last", last)
			http.Error(w, "stale touches", http.StatusConflict)
			return
		}
		s.seqs[req.Client] = req.Seq
	}
	if err := s.st.SetTouches(r.Context(), s.dims.Points(req.Touches)); err != nil {
		s.storeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type resetRequest struct {
	Confirm bool `json:"confirm"`
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "parse body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if !req.Confirm {
		http.Error(w, "reset not confirmed", http.StatusBadRequest)
		return
	}
	if err := s.st.Reset(r.Context()); err != nil {
		s.storeError(w, err)
		return
	}
	zap.S().Infow("kujo: reset")
	w.WriteHeader(http.StatusNoContent)
}
