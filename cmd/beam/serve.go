package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/tTomeRr/Beam/internal/auth"
	database "github.com/tTomeRr/Beam/internal/db"
	"github.com/tTomeRr/Beam/internal/finance/interfaces"
)

type Response struct {
	Message string `json:"message"`
}

type Server struct {
	router          *http.ServeMux
	categoryHandler *interfaces.CategoryHandler
	jwtManager      auth.JWTManagerInterface
	dbService       *database.DBService
}

func NewServer(categoryHandler *interfaces.CategoryHandler, jwtManager auth.JWTManagerInterface, dbService *database.DBService) *Server {
	return &Server{
		categoryHandler: categoryHandler,
		jwtManager:      jwtManager,
		dbService:       dbService,
		router:          http.NewServeMux(),
	}
}

func serveCmd() *cobra.Command {
	var owners []int64

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the seed scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.ValidateServer(); err != nil {
				return err
			}
			ctx := cmd.Context()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.dbService != nil {
				if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
					return err
				}
			}
			a.registerOwners(owners)

			jwtManager, err := auth.NewJWTManager(cfg.JWTSecret)
			if err != nil {
				return err
			}

			categoryHandler := interfaces.NewCategoryHandler(a.service, interfaces.RespondJSON, interfaces.RespondError, slog.Default())
			server := NewServer(categoryHandler, jwtManager, a.dbService)
			server.RegisterRoutes()

			slog.Info("checking default categories for existing users")
			if _, err := a.seeder.SeedForAllUsers(ctx); err != nil {
				slog.Error("startup seed run finished with errors", "error", err)
			}

			scheduler, err := StartSeedScheduler(ctx, a.seeder, cfg.SeedSchedule)
			if err != nil {
				return fmt.Errorf("scheduler didn't start: %w", err)
			}
			defer func() {
				<-scheduler.Stop().Done()
			}()

			return server.ListenAndServe(ctx, fmt.Sprintf(":%d", cfg.Port))
		},
	}

	cmd.Flags().Int64SliceVar(&owners, "owner", nil, "account ids to register with the memory backend (repeatable)")
	return cmd
}

// ListenAndServe runs the server until ctx is cancelled, then drains in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           loggingMiddleware(s.router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		level := slog.LevelInfo
		if rec.status >= http.StatusInternalServerError {
			level = slog.LevelError
		} else if rec.status >= http.StatusBadRequest {
			level = slog.LevelWarn
		}
		slog.Log(r.Context(), level, "request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

func notFoundHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(Response{Message: "Path not found"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ready"}
	code := http.StatusOK
	if s.dbService != nil {
		health := s.dbService.Health(r.Context())
		status["database"] = health["status"]
		if health["status"] != "up" {
			status["status"] = "unavailable"
			code = http.StatusServiceUnavailable
		}
	}
	interfaces.RespondJSON(w, code, status)
}

func (s *Server) RegisterRoutes() {
	protect := auth.JWTAccessTokenMiddleware(s.jwtManager)

	publicRoutes := http.NewServeMux()
	publicRoutes.Handle("GET /api/ready", http.HandlerFunc(s.handleReady))

	protectedRoutes := http.NewServeMux()
	protectedRoutes.Handle("GET /api/protected/categories",
		protect(http.HandlerFunc(s.categoryHandler.GetCategories)))

	protectedRoutes.Handle("GET /api/protected/categories/tree",
		protect(http.HandlerFunc(s.categoryHandler.GetCategoryTree)))

	protectedRoutes.Handle("GET /api/protected/categories/{categoryID}/subcategories",
		protect(http.HandlerFunc(s.categoryHandler.GetSubcategories)))

	protectedRoutes.Handle("POST /api/protected/categories",
		protect(http.HandlerFunc(s.categoryHandler.CreateCategory)))

	protectedRoutes.Handle("PUT /api/protected/categories/{categoryID}",
		protect(http.HandlerFunc(s.categoryHandler.UpdateCategory)))

	protectedRoutes.Handle("DELETE /api/protected/categories/{categoryID}",
		protect(http.HandlerFunc(s.categoryHandler.DeleteCategory)))

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/api/", publicRoutes)
	mainRouter.Handle("/api/protected/", protectedRoutes)
	mainRouter.Handle("/", http.HandlerFunc(notFoundHandler))

	s.router = mainRouter
}
