package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/kestrelhouse/chorekeep/internal/auth"
	"github.com/kestrelhouse/chorekeep/internal/backup"
	"github.com/kestrelhouse/chorekeep/internal/config"
	"github.com/kestrelhouse/chorekeep/internal/coordinator"
	"github.com/kestrelhouse/chorekeep/internal/dashboard"
	"github.com/kestrelhouse/chorekeep/internal/handler"
	"github.com/kestrelhouse/chorekeep/internal/history"
	"github.com/kestrelhouse/chorekeep/internal/middleware"
	"github.com/kestrelhouse/chorekeep/internal/notify"
	"github.com/kestrelhouse/chorekeep/internal/store"
	ws "github.com/kestrelhouse/chorekeep/internal/websocket"
)

// Server owns the HTTP surface and the background components. Construction
// wires everything; Start/Stop manage the component lifecycles.
type Server struct {
	cfg   *config.Config
	store *store.Store
	hub   *ws.Hub

	coord      *coordinator.Coordinator
	scheduler  *coordinator.Scheduler
	dispatcher *notify.Dispatcher
	backupMgr  *backup.Manager
	fetcher    *dashboard.Fetcher

	kidH         *handler.KidHandler
	choreH       *handler.ChoreHandler
	rewardH      *handler.RewardHandler
	pointsH      *handler.PointsHandler
	goalH        *handler.GoalHandler
	parentH      *handler.ParentHandler
	backupH      *handler.BackupHandler
	historyH     *handler.HistoryHandler
	pushH        *handler.PushHandler
	dashboardH   *handler.DashboardHandler
	diagnosticsH *handler.DiagnosticsHandler

	tokens      *auth.Tokens
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

// New wires a server from its stores and configuration. version is the
// build version reported by diagnostics.
func New(cfg *config.Config, st *store.Store, hist *history.Store, version string, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))
	tokens := auth.NewTokens(cfg.AuthSecret)

	pushSvc := notify.NewService(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.PushSubscriber)
	dispatcher := notify.NewDispatcher(pushSvc, st, logger.With("component", "notify"))

	coord := coordinator.New(st, hist, hub, dispatcher, logger.With("component", "coordinator"))
	scheduler := coordinator.NewScheduler(coord, cfg.SweepInterval, logger)

	backupMgr := backup.NewManager(backup.Config{
		Enabled:       cfg.Backup.Enabled,
		Interval:      cfg.Backup.Interval,
		Passphrase:    cfg.Backup.Passphrase,
		KeepScheduled: cfg.Backup.KeepScheduled,
		KeepManual:    cfg.Backup.KeepManual,
		S3: backup.S3Config{
			Bucket:    cfg.Backup.S3Bucket,
			Region:    cfg.Backup.S3Region,
			Endpoint:  cfg.Backup.S3Endpoint,
			AccessKey: cfg.Backup.S3AccessKey,
			SecretKey: cfg.Backup.S3SecretKey,
		},
	}, st, func(s backup.Status) {
		hub.Broadcast(ws.Event{
			Type: "backup_status",
			Extra: map[string]any{
				"state":       string(s.State),
				"in_progress": s.InProgress,
				"error":       s.Error,
			},
		})
	}, logger.With("component", "backup"))

	fetcher := dashboard.NewFetcher(dashboard.Config{TemplateURL: cfg.DashboardTemplateURL})

	return &Server{
		cfg:        cfg,
		store:      st,
		hub:        hub,
		coord:      coord,
		scheduler:  scheduler,
		dispatcher: dispatcher,
		backupMgr:  backupMgr,
		fetcher:    fetcher,

		kidH:         handler.NewKidHandler(coord, logger.With("component", "kid")),
		choreH:       handler.NewChoreHandler(coord, logger.With("component", "chore")),
		rewardH:      handler.NewRewardHandler(coord, logger.With("component", "reward")),
		pointsH:      handler.NewPointsHandler(coord, logger.With("component", "points")),
		goalH:        handler.NewGoalHandler(coord, logger.With("component", "goal")),
		parentH:      handler.NewParentHandler(coord, tokens, logger.With("component", "parent")),
		backupH:      handler.NewBackupHandler(st, backupMgr, logger.With("component", "backup_handler")),
		historyH:     handler.NewHistoryHandler(hist, logger.With("component", "history")),
		pushH:        handler.NewPushHandler(st, pushSvc, logger.With("component", "push")),
		dashboardH:   handler.NewDashboardHandler(fetcher, logger.With("component", "dashboard_handler")),
		diagnosticsH: handler.NewDiagnosticsHandler(coord, cfg, version, logger.With("component", "diagnostics")),

		tokens:      tokens,
		rateLimiter: middleware.NewRateLimiter(),
		logger:      logger,
	}
}

// Start launches the background components.
func (s *Server) Start(ctx context.Context) {
	s.scheduler.Start(ctx)
	s.backupMgr.Start(ctx)
	s.fetcher.Start(ctx)
}

// Stop shuts the background components down in reverse order of Start,
// draining the notify queue last so in-flight pushes complete.
func (s *Server) Stop() {
	s.fetcher.Stop()
	s.backupMgr.Stop()
	s.scheduler.Stop()
	s.dispatcher.Close()
}

// Coordinator exposes the coordinator for startup tasks (catch-up sweeps).
func (s *Server) Coordinator() *coordinator.Coordinator {
	return s.coord
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Router builds the HTTP handler. Kid-facing routes (reads, claims,
// redemptions) are open on the local network; everything that approves,
// configures or destroys requires a parent token.
func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.HandleFunc("POST /api/auth/login", s.rateLimitedHandler(s.parentH.Login))
	outerMux.HandleFunc("GET /ws", ws.Handler(s.hub, s.logger.With("component", "websocket")))

	// Kid-facing reads
	outerMux.HandleFunc("GET /api/kids", s.kidH.List)
	outerMux.HandleFunc("GET /api/kids/{id}", s.kidH.Get)
	outerMux.HandleFunc("GET /api/kids/{id}/stats", s.kidH.Stats)
	outerMux.HandleFunc("GET /api/chores", s.choreH.List)
	outerMux.HandleFunc("GET /api/chores/{id}", s.choreH.Get)
	outerMux.HandleFunc("GET /api/rewards", s.rewardH.List)
	outerMux.HandleFunc("GET /api/badges", s.goalH.ListBadges)
	outerMux.HandleFunc("GET /api/achievements", s.goalH.ListAchievements)
	outerMux.HandleFunc("GET /api/challenges", s.goalH.ListChallenges)
	outerMux.HandleFunc("GET /api/parents", s.parentH.List)
	outerMux.HandleFunc("GET /api/dashboard/template", s.dashboardH.Template)

	// Kid-facing actions
	outerMux.HandleFunc("POST /api/chores/{id}/claim", s.choreH.Claim)
	outerMux.HandleFunc("POST /api/rewards/{id}/redeem", s.rewardH.Redeem)

	// Push subscription management is open so kid devices can register.
	outerMux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)
	outerMux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	outerMux.HandleFunc("POST /api/push/unsubscribe", s.pushH.Unsubscribe)

	protectedMux := http.NewServeMux()
	s.registerParentRoutes(protectedMux)

	authMiddleware := middleware.RequireParent(s.tokens)
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

func (s *Server) registerParentRoutes(mux *http.ServeMux) {
	// Kids
	mux.HandleFunc("POST /api/kids", s.kidH.Create)
	mux.HandleFunc("PUT /api/kids/{id}", s.kidH.Update)
	mux.HandleFunc("DELETE /api/kids/{id}", s.kidH.Delete)

	// Chore definitions and the approval side of the lifecycle
	mux.HandleFunc("POST /api/chores", s.choreH.Create)
	mux.HandleFunc("PUT /api/chores/{id}", s.choreH.Update)
	mux.HandleFunc("DELETE /api/chores/{id}", s.choreH.Delete)
	mux.HandleFunc("POST /api/chores/{id}/approve", s.choreH.Approve)
	mux.HandleFunc("POST /api/chores/{id}/disapprove", s.choreH.Disapprove)

	// Rewards
	mux.HandleFunc("POST /api/rewards", s.rewardH.Create)
	mux.HandleFunc("PUT /api/rewards/{id}", s.rewardH.Update)
	mux.HandleFunc("DELETE /api/rewards/{id}", s.rewardH.Delete)
	mux.HandleFunc("POST /api/rewards/{id}/approve", s.rewardH.Approve)
	mux.HandleFunc("POST /api/rewards/{id}/disapprove", s.rewardH.Disapprove)

	// Penalties and bonuses
	mux.HandleFunc("GET /api/penalties", s.pointsH.ListPenalties)
	mux.HandleFunc("POST /api/penalties", s.pointsH.CreatePenalty)
	mux.HandleFunc("PUT /api/penalties/{id}", s.pointsH.UpdatePenalty)
	mux.HandleFunc("DELETE /api/penalties/{id}", s.pointsH.DeletePenalty)
	mux.HandleFunc("POST /api/penalties/{id}/apply", s.pointsH.ApplyPenalty)
	mux.HandleFunc("GET /api/bonuses", s.pointsH.ListBonuses)
	mux.HandleFunc("POST /api/bonuses", s.pointsH.CreateBonus)
	mux.HandleFunc("PUT /api/bonuses/{id}", s.pointsH.UpdateBonus)
	mux.HandleFunc("DELETE /api/bonuses/{id}", s.pointsH.DeleteBonus)
	mux.HandleFunc("POST /api/bonuses/{id}/apply", s.pointsH.ApplyBonus)

	// Badges, achievements, challenges
	mux.HandleFunc("POST /api/badges", s.goalH.CreateBadge)
	mux.HandleFunc("PUT /api/badges/{id}", s.goalH.UpdateBadge)
	mux.HandleFunc("DELETE /api/badges/{id}", s.goalH.DeleteBadge)
	mux.HandleFunc("POST /api/achievements", s.goalH.CreateAchievement)
	mux.HandleFunc("PUT /api/achievements/{id}", s.goalH.UpdateAchievement)
	mux.HandleFunc("DELETE /api/achievements/{id}", s.goalH.DeleteAchievement)
	mux.HandleFunc("POST /api/challenges", s.goalH.CreateChallenge)
	mux.HandleFunc("PUT /api/challenges/{id}", s.goalH.UpdateChallenge)
	mux.HandleFunc("DELETE /api/challenges/{id}", s.goalH.DeleteChallenge)

	// Parents
	mux.HandleFunc("POST /api/parents", s.parentH.Create)
	mux.HandleFunc("PUT /api/parents/{id}", s.parentH.Update)
	mux.HandleFunc("DELETE /api/parents/{id}", s.parentH.Delete)

	// Backups
	mux.HandleFunc("GET /api/backups", s.backupH.List)
	mux.HandleFunc("POST /api/backups", s.backupH.Create)
	mux.HandleFunc("GET /api/backups/status", s.backupH.Status)
	mux.HandleFunc("POST /api/backups/restore", s.backupH.Restore)

	// History
	mux.HandleFunc("GET /api/history", s.historyH.List)
	mux.HandleFunc("GET /api/history/summary", s.historyH.Summary)

	// Dashboard template refresh
	mux.HandleFunc("POST /api/dashboard/template/refresh", s.dashboardH.Refresh)

	// Diagnostics and admin
	mux.HandleFunc("GET /api/diagnostics", s.diagnosticsH.Export)
	mux.HandleFunc("GET /api/notifications", s.diagnosticsH.Notifications)
	mux.HandleFunc("POST /api/admin/reset", s.diagnosticsH.Reset)
}
