package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Parth-Sharma-Dev/smartshopping/internal/config"
	"github.com/Parth-Sharma-Dev/smartshopping/internal/game"
	"github.com/Parth-Sharma-Dev/smartshopping/internal/ws"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/crypto/bcrypt"
)

const adminTokenTTL = 12 * time.Hour

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Observers connect from the game frontend on another origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Server struct {
	cfg  config.APIConfig
	log  *slog.Logger
	game *game.Service
	hub  *ws.Hub
	mux  *chi.Mux

	adminHash []byte

	tokenMu sync.Mutex
	tokens  map[string]time.Time
}

func New(cfg config.APIConfig, logger *slog.Logger, gameSvc *game.Service, hub *ws.Hub) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:       cfg,
		log:       logger,
		game:      gameSvc,
		hub:       hub,
		mux:       chi.NewRouter(),
		adminHash: hash,
		tokens:    make(map[string]time.Time),
	}
	s.routes()
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Get("/ws", s.handleSocket)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		r.Post("/register", s.handleRegister)
		r.Get("/me/{user_id}", s.handleGetUser)
		r.Get("/items", s.handleListItems)
		r.Get("/leaderboard", s.handleLeaderboard)
		r.Post("/buy", s.handleBuy)

		r.Post("/admin/login", s.handleAdminLogin)
		r.Post("/admin/logout", s.handleAdminLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.adminMiddleware)
			r.Get("/admin/state", s.handleAdminState)
			r.Post("/admin/start-game", s.handleStartGame)
			r.Post("/admin/stop-game", s.handleStopGame)
			r.Post("/admin/reset-game", s.handleResetGame)
			r.Patch("/admin/update-item/{id}", s.handleUpdateItem)
		})
	})
}

// handleSocket upgrades the connection and parks it in the hub until the
// read side fails. Observers never send meaningful messages; the read
// loop exists only to detect disconnects.
func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", "err", err)
		return
	}
	s.hub.Register(conn)
	defer func() {
		s.hub.Unregister(conn)
		_ = conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username   string `json:"username"`
		RollNumber string `json:"roll_number"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	user, err := s.game.Register(r.Context(), in.Username, in.RollNumber)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	user, err := s.game.GetUser(r.Context(), userID.String())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.game.ListItems(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := s.game.Leaderboard(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	var in struct {
		UserID string `json:"user_id"`
		ItemID int64  `json:"item_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID, err := uuid.Parse(strings.TrimSpace(in.UserID))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	result, err := s.game.Purchase(r.Context(), userID.String(), in.ItemID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := bcrypt.CompareHashAndPassword(s.adminHash, []byte(in.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	token := uuid.NewString()
	s.tokenMu.Lock()
	s.tokens[token] = time.Now().Add(adminTokenTTL)
	s.tokenMu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"token": token})
}

func (s *Server) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r.Header.Get("Authorization"))
	if token != "" {
		s.tokenMu.Lock()
		delete(s.tokens, token)
		s.tokenMu.Unlock()
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) adminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" || !s.validAdminToken(token) {
			writeError(w, http.StatusUnauthorized, "admin token required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) validAdminToken(token string) bool {
	s.tokenMu.Lock()
	defer s.tokenMu.Unlock()
	expires, ok := s.tokens[token]
	if !ok {
		return false
	}
	if time.Now().After(expires) {
		delete(s.tokens, token)
		return false
	}
	return true
}

func (s *Server) handleAdminState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.game.SessionSnapshot())
}

func (s *Server) handleStartGame(w http.ResponseWriter, r *http.Request) {
	if err := s.game.StartRound(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.game.SessionSnapshot())
}

func (s *Server) handleStopGame(w http.ResponseWriter, r *http.Request) {
	result, err := s.game.StopRound(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleResetGame(w http.ResponseWriter, r *http.Request) {
	topN := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("top_n")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "top_n must be a non-negative integer")
			return
		}
		topN = n
	}
	result, err := s.game.ResetRound(r.Context(), topN)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	var patch game.ItemPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	item, err := s.game.UpdateItem(r.Context(), itemID, patch)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrItemNotFound), errors.Is(err, game.ErrUserNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, game.ErrSessionInactive),
		errors.Is(err, game.ErrOutOfStock),
		errors.Is(err, game.ErrAlreadyFinished),
		errors.Is(err, game.ErrInsufficientBal),
		errors.Is(err, game.ErrOwnershipCap),
		errors.Is(err, game.ErrInvalidUsername):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, game.ErrUsernameTaken),
		errors.Is(err, game.ErrRoundActive),
		errors.Is(err, game.ErrRoundNotActive),
		errors.Is(err, game.ErrRoundInProgress),
		errors.Is(err, game.ErrTxAborted):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
