package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"HaikuCurator/internal/service/curator"
)

// Server презентационная граница: JSON API поверх контроллера плюс
// websocket-лента снимков состояния, по которой UI перерисовывается.
type Server struct {
	srv     *http.Server
	curator *curator.Curator
	logger  *zap.SugaredLogger
	running atomic.Bool

	upgrader websocket.Upgrader

	connMu sync.Mutex
	conns  map[*websocket.Conn]struct{}
}

func New(bindAddr string, cu *curator.Curator, logger *zap.SugaredLogger) *Server {
	if bindAddr == "" {
		bindAddr = "127.0.0.1:8080"
	}
	s := &Server{
		curator: cu,
		logger:  logger,
		conns:   map[*websocket.Conn]struct{}{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Единственный пользователь — локальный UI
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("POST /api/discover", s.handleDiscover)
	mux.HandleFunc("POST /api/reflect", s.handleReflect)
	mux.HandleFunc("POST /api/respond", s.handleRespond)
	mux.HandleFunc("POST /api/conversations/new", s.handleNewConversation)
	mux.HandleFunc("POST /api/conversations/select", s.handleSelectConversation)
	mux.HandleFunc("POST /api/theme/toggle", s.handleToggleTheme)
	mux.HandleFunc("GET /api/ws", s.handleWS)

	s.srv = &http.Server{
		Addr:              bindAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Поиск экспоната ждёт два внешних API, пишем ответ только после него
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start запускает сервер и рассылку снимков; завершается по отмене ctx.
func (s *Server) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return nil
	}
	go s.broadcastLoop(ctx)
	go func() {
		s.logger.Infow("HTTP server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) && err != nil {
			s.logger.Errorw("HTTP server stopped with error", "error", err)
		} else {
			s.logger.Infow("HTTP server stopped")
		}
	}()
	go func() {
		<-ctx.Done()
		_ = s.Stop(context.WithoutCancel(ctx))
	}()
	return nil
}

// Stop останавливает сервер с грейсфул-таймаутом.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeoutCause(ctx, 5*time.Second, errors.New("server shutdown timeout"))
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warnw("graceful shutdown error", "error", err)
		return s.srv.Close()
	}
	return nil
}

// broadcastLoop слушает сигналы контроллера и рассылает свежий снимок
// всем подключённым websocket-клиентам.
func (s *Server) broadcastLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.curator.NotifyCh():
		}
		snap := s.curator.Snapshot()
		s.connMu.Lock()
		for conn := range s.conns {
			if err := conn.WriteJSON(snap); err != nil {
				s.logger.Warnw("Не удалось отправить снимок, закрываем соединение", "error", err)
				_ = conn.Close()
				delete(s.conns, conn)
			}
		}
		s.connMu.Unlock()
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnw("websocket upgrade failed", "error", err)
		return
	}
	// Первый снимок — сразу при подключении, до регистрации в рассылке,
	// чтобы не было двух одновременных писателей в одно соединение.
	if err := conn.WriteJSON(s.curator.Snapshot()); err != nil {
		_ = conn.Close()
		return
	}
	s.connMu.Lock()
	s.conns[conn] = struct{}{}
	s.connMu.Unlock()

	// Читатель нужен только чтобы заметить закрытие со стороны клиента.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.connMu.Lock()
				delete(s.conns, conn)
				s.connMu.Unlock()
				_ = conn.Close()
				return
			}
		}
	}()
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	s.writeSnapshot(w)
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	err := s.curator.DiscoverArtwork(r.Context())
	s.finishCommand(w, err)
}

func (s *Server) handleReflect(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	err := s.curator.SubmitReflection(r.Context(), body.Text)
	s.finishCommand(w, err)
}

func (s *Server) handleRespond(w http.ResponseWriter, _ *http.Request) {
	s.finishCommand(w, s.curator.ShowInput())
}

func (s *Server) handleNewConversation(w http.ResponseWriter, _ *http.Request) {
	s.finishCommand(w, s.curator.StartNewConversation(false))
}

func (s *Server) handleSelectConversation(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	s.finishCommand(w, s.curator.SelectConversation(body.ID))
}

func (s *Server) handleToggleTheme(w http.ResponseWriter, _ *http.Request) {
	s.curator.ToggleTheme()
	s.writeSnapshot(w)
}

// finishCommand переводит ошибки контроллера в HTTP-статусы. Сбои внешних
// сервисов уже поглощены машиной состояний (баннер + хайку-заглушка),
// поэтому для них отдаём обычный снимок.
func (s *Server) finishCommand(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		s.writeSnapshot(w)
	case errors.Is(err, curator.ErrBusy):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, curator.ErrEmptyReflection),
		errors.Is(err, curator.ErrNoArtwork),
		errors.Is(err, curator.ErrConversationState):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, curator.ErrUnknownConversation):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		s.writeSnapshot(w)
	}
}

func (s *Server) writeSnapshot(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.curator.Snapshot()); err != nil {
		s.logger.Warnw("Не удалось сериализовать снимок", "error", err)
	}
}
