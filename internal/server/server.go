package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/fernwood/starquest/internal/assistant"
	"github.com/fernwood/starquest/internal/auth"
	"github.com/fernwood/starquest/internal/goal"
	"github.com/fernwood/starquest/internal/handler"
	"github.com/fernwood/starquest/internal/leaderboard"
	"github.com/fernwood/starquest/internal/media"
	"github.com/fernwood/starquest/internal/middleware"
	"github.com/fernwood/starquest/internal/model"
	"github.com/fernwood/starquest/internal/period"
	"github.com/fernwood/starquest/internal/push"
	"github.com/fernwood/starquest/internal/store"
	ws "github.com/fernwood/starquest/internal/websocket"
)

// Config carries everything the server needs beyond the database handle.
type Config struct {
	JWTSecret    string
	TokenTTL     time.Duration
	Push         push.Config
	S3           media.S3Config
	OpenAIAPIKey string
	OpenAIModel  string
}

type Server struct {
	db           *sql.DB
	hub          *ws.Hub
	tokens       *auth.TokenIssuer
	authH        *handler.AuthHandler
	memberH      *handler.MemberHandler
	familyH      *handler.FamilyHandler
	goalH        *handler.GoalHandler
	boardH       *handler.LeaderboardHandler
	achievementH *handler.AchievementHandler
	journalH     *handler.JournalHandler
	drawingH     *handler.DrawingHandler
	assistantH   *handler.AssistantHandler
	pushH        *handler.PushHandler
	familyStore  *store.FamilyStore
	rateLimiter  *middleware.RateLimiter
	logger       *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger)

	memberStore := store.NewMemberStore(db)
	familyStore := store.NewFamilyStore(db)
	goalStore := store.NewGoalStore(db)
	achievementStore := store.NewAchievementStore(db)
	journalStore := store.NewJournalStore(db)
	drawingStore := store.NewDrawingStore(db)
	pushStore := store.NewPushStore(db)

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	engine := goal.NewEngine(goalStore, memberStore, familyStore, achievementStore, logger.With("component", "goal"))
	boards := leaderboard.New(store.LeaderboardSource{Members: memberStore, Families: familyStore})

	// Push is optional; without VAPID keys the notifier sends nowhere.
	var pushSvc *push.Service
	var pushH *handler.PushHandler
	var notifier *push.Notifier
	if cfg.Push.VAPIDPublicKey != "" && cfg.Push.VAPIDPrivateKey != "" {
		pushSvc = push.NewService(cfg.Push.VAPIDPublicKey, cfg.Push.VAPIDPrivateKey)
		notifier = push.NewNotifier(pushSvc, pushStore, logger)
	} else {
		notifier = push.NewNotifier(noopSender{}, pushStore, logger)
	}
	pushH = handler.NewPushHandler(pushStore, pushSvc, logger)

	// Drawing storage is optional in the same way.
	var storage *media.Storage
	if cfg.S3.Bucket != "" && cfg.S3.AccessKey != "" && cfg.S3.SecretKey != "" {
		storage = media.NewStorage(cfg.S3)
	}

	var helper *assistant.Assistant
	if cfg.OpenAIAPIKey != "" {
		helper = assistant.New(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	}

	return &Server{
		db:           db,
		hub:          hub,
		tokens:       tokens,
		authH:        handler.NewAuthHandler(memberStore, tokens, logger),
		memberH:      handler.NewMemberHandler(memberStore, logger),
		familyH:      handler.NewFamilyHandler(familyStore, memberStore, engine, tokens, logger),
		goalH:        handler.NewGoalHandler(goalStore, engine, hub, notifier, logger),
		boardH:       handler.NewLeaderboardHandler(boards, logger),
		achievementH: handler.NewAchievementHandler(achievementStore, logger),
		journalH:     handler.NewJournalHandler(journalStore, logger),
		drawingH:     handler.NewDrawingHandler(drawingStore, storage, logger),
		assistantH:   handler.NewAssistantHandler(helper, logger),
		pushH:        pushH,
		familyStore:  familyStore,
		rateLimiter:  middleware.NewRateLimiter(),
		logger:       logger,
	}
}

// PeriodStore returns the store the reset scheduler runs against.
func (s *Server) PeriodStore() period.Store {
	return s.familyStore
}

// Hub returns the WebSocket hub so background jobs can push events.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// AnnounceCounterReset tells every connected client that a period's
// counters were zeroed so leaderboards refetch.
func (s *Server) AnnounceCounterReset(p period.Period, families int64) {
	s.hub.BroadcastAll(ws.Message{
		Type: ws.EventCounterReset,
		Extra: map[string]any{
			"period":   string(p),
			"families": families,
		},
	})
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /api/auth/register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /api/auth/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes — wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.tokens)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Member routes
	mux.HandleFunc("GET /api/members/me", s.memberH.Me)
	mux.HandleFunc("PUT /api/members/me", s.memberH.Update)
	mux.HandleFunc("GET /api/members/{id}", s.memberH.Get)

	// Family routes
	mux.HandleFunc("POST /api/families", s.familyH.Create)
	mux.HandleFunc("GET /api/families/mine", s.familyH.Get)
	mux.HandleFunc("POST /api/families/{id}/join", s.familyH.Join)
	mux.HandleFunc("POST /api/families/leave", s.familyH.Leave)

	// Goal routes
	mux.HandleFunc("POST /api/goals", s.goalH.Create)
	mux.HandleFunc("GET /api/goals", s.goalH.List)
	mux.HandleFunc("GET /api/goals/{id}", s.goalH.Get)
	mux.HandleFunc("DELETE /api/goals/{id}", s.goalH.Delete)
	mux.HandleFunc("POST /api/goals/{id}/tasks", s.goalH.AddTask)
	mux.HandleFunc("POST /api/goals/{id}/tasks/{task_id}/complete", s.goalH.CompleteTask)

	// Leaderboards
	mux.HandleFunc("GET /api/leaderboard/family", s.boardH.FamilyMembers)
	mux.HandleFunc("GET /api/leaderboard/families", s.boardH.Families)

	// Achievements
	mux.HandleFunc("GET /api/achievements", s.achievementH.List)
	mux.HandleFunc("GET /api/achievements/mine", s.achievementH.Mine)
	mux.Handle("POST /api/achievements", middleware.RequireParent(http.HandlerFunc(s.achievementH.Create)))

	// Journal
	mux.HandleFunc("POST /api/journal", s.journalH.Create)
	mux.HandleFunc("GET /api/journal", s.journalH.List)
	mux.HandleFunc("PUT /api/journal/{id}", s.journalH.Update)
	mux.HandleFunc("DELETE /api/journal/{id}", s.journalH.Delete)

	// Drawings
	mux.HandleFunc("POST /api/drawings", s.drawingH.Upload)
	mux.HandleFunc("GET /api/drawings", s.drawingH.List)
	mux.HandleFunc("GET /api/drawings/{id}/image", s.drawingH.Image)
	mux.HandleFunc("DELETE /api/drawings/{id}", s.drawingH.Delete)

	// Assistant
	mux.HandleFunc("POST /api/assistant/suggest-goal", s.assistantH.SuggestGoal)
	mux.HandleFunc("POST /api/assistant/chat", s.assistantH.Chat)

	// Push notifications
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)
	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("POST /api/push/unsubscribe", s.pushH.Unsubscribe)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))
}

// noopSender stands in when VAPID keys are absent.
type noopSender struct{}

func (noopSender) Send(*model.PushSubscription, push.Payload) error { return nil }
