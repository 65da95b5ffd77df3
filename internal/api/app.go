package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/roomly/roomly-server/internal/assets"
	"github.com/roomly/roomly-server/internal/auth"
	"github.com/roomly/roomly-server/internal/config"
	"github.com/roomly/roomly-server/internal/database"
	"github.com/roomly/roomly-server/internal/server"
	"github.com/roomly/roomly-server/internal/types"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ChatService is the chat behaviour the REST handlers need.
type ChatService interface {
	FindOrCreateChat(ctx context.Context, userA, userB int) (types.Chat, error)
	ListChats(ctx context.Context, userId int) ([]types.ChatSummary, error)
	AppendMessage(ctx context.Context, chatId, senderId int, content string, typ types.MessageType) (types.Message, error)
	ListMessages(ctx context.Context, chatId, requesterId int) ([]types.Message, error)
	MarkRead(ctx context.Context, chatId, readerId int, now time.Time) (int, error)
	ChatParticipant(ctx context.Context, chatId, userId int) error
}

type RoomlyApp struct {
	log            *log.Logger
	db             database.Repository
	chats          ChatService
	cs             *server.ChatServer
	verifier       *auth.Verifier
	store          assets.Store
	tokenTTL       time.Duration
	allowedOrigins []string
	mux            *http.Server
}

func NewRoomlyApp(
	mux *http.ServeMux,
	logger *log.Logger,
	cs *server.ChatServer,
	chats ChatService,
	db database.Repository,
	store assets.Store,
	cfg *config.Config,
) *RoomlyApp {
	s := &RoomlyApp{
		log:            logger,
		db:             db,
		chats:          chats,
		cs:             cs,
		verifier:       auth.NewVerifier(cfg.SigningKey),
		store:          store,
		tokenTTL:       cfg.TokenTTL,
		allowedOrigins: cfg.AllowedOrigins,
	}
	if s.tokenTTL <= 0 {
		s.tokenTTL = defaultJwtExpiration
	}

	mux.HandleFunc("GET /healthz", s.healthCheck)

	mux.HandleFunc("POST /api/auth/register", s.createAccount)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("GET /api/auth/logout", s.authMiddleware(s.logout))

	mux.HandleFunc("GET /api/users/me", s.authMiddleware(s.currentAccount))
	mux.HandleFunc("PUT /api/users/me", s.authMiddleware(s.updateAccount))
	mux.HandleFunc("GET /api/users/{id}", s.authMiddleware(s.getAccount))
	mux.HandleFunc("GET /api/users", s.authMiddleware(s.searchAccounts))

	mux.HandleFunc("POST /api/chats/init", s.authMiddleware(s.initChat))
	mux.HandleFunc("GET /api/chats", s.authMiddleware(s.listChats))
	mux.HandleFunc("GET /api/chats/{chatId}/messages", s.authMiddleware(s.getMessages))
	mux.HandleFunc("POST /api/chats/send", s.authMiddleware(s.sendMessage))

	mux.HandleFunc("POST /api/messages/file", s.authMiddleware(s.uploadFile))
	mux.HandleFunc("PUT /api/messages/{chatId}/read", s.authMiddleware(s.markRead))
	mux.HandleFunc("GET /api/messages/{chatId}", s.authMiddleware(s.getMessages))

	mux.HandleFunc("GET /ws", s.serveWs)

	if ds, ok := store.(*assets.DiskStore); ok {
		prefix := strings.TrimSuffix(cfg.Assets.BaseURL, "/") + "/"
		if strings.HasPrefix(prefix, "/") {
			mux.Handle("GET "+prefix, http.StripPrefix(prefix, http.FileServer(http.Dir(ds.Dir()))))
		}
	}

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", "Authorization"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)
	h = otelhttp.NewHandler(h, "roomly")

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mux = srv
	return s
}

func (s *RoomlyApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *RoomlyApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}

func (s *RoomlyApp) writeJson(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

// writeError sends the client the response for err. The detail of
// unclassified errors is logged and never written.
func (s *RoomlyApp) writeError(w http.ResponseWriter, r *http.Request, err error) {
	errResp := errorFor(err)
	if errResp.StatusCode == http.StatusInternalServerError {
		s.log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
	}
	s.writeJson(w, errResp.StatusCode, errResp)
}

func (s *RoomlyApp) healthCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		s.log.Printf("health check: %v", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
