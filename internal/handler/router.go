package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/mangashelf/internal/middleware"
	"github.com/hitoshi/mangashelf/internal/model"
)

// HealthChecker はヘルスチェックでDB疎通を確認するためのインターフェース。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker      HealthChecker
	TokenValidator     middleware.TokenValidator
	CORSAllowedOrigins []string
	RateLimiter        *middleware.RateLimiter
	Metrics            middleware.StatusRecorder
	MetricsHandler     http.Handler
	Logger             *slog.Logger

	AuthService        AuthServiceInterface
	MangaService       MangaServiceInterface
	ChapterService     ChapterServiceInterface
	CommentService     CommentServiceInterface
	BookmarkService    BookmarkServiceInterface
	HistoryService     HistoryServiceInterface
	RatingService      RatingServiceInterface
	ViewService        ViewServiceInterface
	UserService        UserServiceInterface
	AdminService       AdminServiceInterface
	ContributorService ContributorServiceInterface
	CatalogService     CatalogServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → RequestID → RealIP → SecurityHeaders → CORS → Metrics → Identity → Logging → RateLimit
//
// 認証必須のグループではさらにAuth → RequireRolesを適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigins))
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}
	r.Use(middleware.NewIdentityMiddleware(deps.TokenValidator))
	r.Use(middleware.NewLoggingMiddleware(logger))

	r.Get("/health", healthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	authHandler := NewAuthHandler(deps.AuthService)
	mangaHandler := NewMangaHandler(deps.MangaService)
	chapterHandler := NewChapterHandler(deps.ChapterService)
	commentHandler := NewCommentHandler(deps.CommentService)
	libraryHandler := NewLibraryHandler(deps.BookmarkService, deps.HistoryService, deps.RatingService)
	viewHandler := NewViewHandler(deps.ViewService)
	userHandler := NewUserHandler(deps.UserService)
	adminHandler := NewAdminHandler(deps.AdminService)
	contributorHandler := NewContributorHandler(deps.ContributorService)
	catalogHandler := NewCatalogHandler(deps.CatalogService)

	requireAuth := middleware.NewAuthMiddleware(deps.TokenValidator)
	editors := middleware.RequireRoles(model.RoleContributor, model.RoleAdmin)
	admins := middleware.RequireRoles(model.RoleAdmin)

	r.Route("/api", func(r chi.Router) {
		// 認証ルートは専用のより厳しいレート制限を適用する
		r.Route("/auth", func(r chi.Router) {
			r.Use(deps.RateLimiter.AuthMiddleware())
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.With(requireAuth).Get("/profile", authHandler.Profile)
		})

		r.Group(func(r chi.Router) {
			r.Use(deps.RateLimiter.GeneralMiddleware())

			r.Get("/genres", mangaHandler.Genres)

			r.Route("/manga", func(r chi.Router) {
				r.Get("/", mangaHandler.List)
				r.Get("/search", mangaHandler.Search)
				r.Get("/mangadex/{id}", mangaHandler.GetByExternalID)
				r.Get("/{id}", mangaHandler.Get)
				r.Get("/{id}/chapters", mangaHandler.Chapters)

				r.With(requireAuth, editors).Post("/", mangaHandler.Create)
				r.With(requireAuth, editors).Patch("/{id}", mangaHandler.Update)
				r.With(requireAuth, admins).Delete("/{id}", mangaHandler.Delete)
			})

			r.Route("/chapters", func(r chi.Router) {
				r.Get("/manga/{mangaId}", chapterHandler.ListByManga)
				r.Get("/id/{id}", chapterHandler.Get)

				r.With(requireAuth, editors).Post("/{mangaId}", chapterHandler.Create)
				r.With(requireAuth, editors).Patch("/{id}", chapterHandler.Update)
				r.With(requireAuth, editors).Delete("/{id}", chapterHandler.Delete)
			})

			r.Route("/comments", func(r chi.Router) {
				r.Get("/id/{id}", commentHandler.Get)
				r.Get("/{mangaId}", commentHandler.ListByManga)

				r.With(requireAuth).Post("/{mangaId}", commentHandler.Create)
				r.With(requireAuth).Delete("/{id}", commentHandler.Delete)
				r.With(requireAuth, admins).Patch("/{id}/toggle-hidden", commentHandler.ToggleHidden)
			})

			r.Route("/ratings", func(r chi.Router) {
				r.Get("/{mangaId}", libraryHandler.ListRatings)
				r.Get("/{mangaId}/average", libraryHandler.AverageRating)

				r.With(requireAuth).Post("/{mangaId}", libraryHandler.UpsertRating)
				r.With(requireAuth).Get("/{mangaId}/user", libraryHandler.UserRating)
				r.With(requireAuth).Delete("/{mangaId}", libraryHandler.DeleteRating)
			})

			r.Route("/views", func(r chi.Router) {
				r.Get("/chapter/{id}", viewHandler.ChapterCount)
				r.Get("/manga/{id}", viewHandler.MangaCount)
				r.Get("/top/chapters/{mangaId}", viewHandler.TopChapters)
				r.Get("/top/manga", viewHandler.TopManga)

				r.With(requireAuth).Post("/", viewHandler.Record)
			})

			r.Route("/catalog", func(r chi.Router) {
				r.Get("/manga", catalogHandler.Search)
				r.Get("/manga/{id}", catalogHandler.GetManga)
				r.Get("/manga/{id}/aggregate", catalogHandler.Aggregate)
				r.Get("/at-home/{chapterId}", catalogHandler.AtHomeServer)
				r.Get("/tags", catalogHandler.Tags)
			})

			// --- 認証が必要なルート ---
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)

				r.Route("/bookmarks", func(r chi.Router) {
					r.Post("/", libraryHandler.CreateBookmark)
					r.Get("/", libraryHandler.ListBookmarks)
					r.Get("/ids", libraryHandler.BookmarkIDs)
					r.Get("/{mangaId}", libraryHandler.BookmarkStatus)
					r.Delete("/{mangaId}", libraryHandler.DeleteBookmark)
				})

				r.Route("/history", func(r chi.Router) {
					r.Post("/", libraryHandler.UpsertHistory)
					r.Get("/", libraryHandler.ListHistory)
					r.Get("/{mangaId}", libraryHandler.GetHistory)
					r.Delete("/{mangaId}", libraryHandler.DeleteHistory)
				})

				r.Route("/users", func(r chi.Router) {
					r.With(admins).Get("/", userHandler.List)
					r.Get("/profile/me", userHandler.Me)
					r.Get("/{id}", userHandler.Get)
				})

				r.Route("/admin", func(r chi.Router) {
					r.Use(admins)

					r.Get("/users", adminHandler.ListUsers)
					r.Put("/users/{id}", adminHandler.UpdateUser)
					r.Patch("/users/{id}", adminHandler.UpdateUser)
					r.Delete("/users/{id}", adminHandler.DeleteUser)

					r.Get("/comments", adminHandler.ListComments)
					r.Post("/comments/{id}/approve", adminHandler.ApproveComment)
					r.Delete("/comments/{id}", adminHandler.DeleteComment)

					r.Get("/manga", adminHandler.ListManga)
					r.Get("/manga/internal", adminHandler.ListManga)
					r.Delete("/manga/{id}", adminHandler.DeleteManga)
					r.Delete("/manga/internal/{id}", adminHandler.DeleteManga)
					r.Delete("/chapters/{id}", adminHandler.DeleteChapter)
				})

				r.Route("/contributor/manga", func(r chi.Router) {
					r.Use(editors)

					r.Get("/", contributorHandler.ListManga)
					r.Post("/", contributorHandler.CreateManga)

					r.Route("/{mangaId}", func(r chi.Router) {
						r.Get("/", contributorHandler.GetManga)
						r.Put("/", contributorHandler.UpdateManga)
						r.Patch("/", contributorHandler.UpdateManga)
						r.Delete("/", contributorHandler.DeleteManga)

						r.Get("/chapters", contributorHandler.ListChapters)
						r.Post("/chapters", contributorHandler.AddChapter)
						r.Put("/chapters/{chapterId}", contributorHandler.UpdateChapter)
						r.Patch("/chapters/{chapterId}", contributorHandler.UpdateChapter)
						r.Delete("/chapters/{chapterId}", contributorHandler.DeleteChapter)

						r.Get("/comments", contributorHandler.ListComments)
						r.Delete("/comments/{commentId}", contributorHandler.DeleteComment)
					})
				})
			})
		})
	})

	return r
}

// healthHandler はDB疎通を確認し、結果をJSONで返すハンドラーを返す。
// GET /health
func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
			defer cancel()
			if err := checker.PingContext(ctx); err != nil {
				slog.Warn("health check failed", slog.String("error", err.Error()))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
