package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/mangashelf/internal/admin"
	"github.com/hitoshi/mangashelf/internal/auth"
	"github.com/hitoshi/mangashelf/internal/catalog"
	"github.com/hitoshi/mangashelf/internal/chapter"
	"github.com/hitoshi/mangashelf/internal/comment"
	"github.com/hitoshi/mangashelf/internal/config"
	"github.com/hitoshi/mangashelf/internal/contributor"
	"github.com/hitoshi/mangashelf/internal/database"
	"github.com/hitoshi/mangashelf/internal/handler"
	"github.com/hitoshi/mangashelf/internal/library"
	"github.com/hitoshi/mangashelf/internal/logger"
	"github.com/hitoshi/mangashelf/internal/manga"
	"github.com/hitoshi/mangashelf/internal/metrics"
	"github.com/hitoshi/mangashelf/internal/middleware"
	"github.com/hitoshi/mangashelf/internal/repository"
	"github.com/hitoshi/mangashelf/internal/security"
	"github.com/hitoshi/mangashelf/internal/seed"
	"github.com/hitoshi/mangashelf/internal/user"
	"github.com/hitoshi/mangashelf/internal/view"
	"github.com/hitoshi/mangashelf/internal/worker/cleanup"
)

const (
	// shutdownTimeout はグレースフルシャットダウンの待ち時間。
	shutdownTimeout = 30 * time.Second
	// cleanupInterval は孤立プレースホルダー削除ジョブの実行間隔。
	cleanupInterval = 24 * time.Hour
	// dbPingTimeout は起動時のDB疎通確認のタイムアウト。
	dbPingTimeout = 5 * time.Second
)

// ErrMissingSeedFile はseedコマンドにファイルパスが指定されていない場合のエラー。
var ErrMissingSeedFile = errors.New("usage: mangashelf seed <file.yaml>")

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定に従ってログレベルを確定する
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "3001"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandSeed:
		if len(args) < 2 {
			return ErrMissingSeedFile
		}
		return runSeed(cfg, args[1])
	default:
		return runServe(cfg)
	}
}

// services はHTTPサーバーとワーカーが共有するドメインサービス一式。
type services struct {
	auth        *auth.Service
	manga       *manga.Service
	chapter     *chapter.Service
	comment     *comment.Service
	bookmark    *library.BookmarkService
	history     *library.HistoryService
	rating      *library.RatingService
	view        *view.Service
	user        *user.Service
	admin       *admin.Service
	contributor *contributor.Service
	catalog     *catalog.Client
}

// buildServices はリポジトリからドメインサービスまでを組み立てる。
func buildServices(cfg *config.Config, repos *repository.Repositories, collector *metrics.Collector, log *slog.Logger) *services {
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewContentSanitizer()

	catalogClient := catalog.NewClient(
		ssrfGuard.NewSafeClient(cfg.CatalogTimeout, catalog.MaxResponseSize),
		cfg.CatalogBaseURL,
		cfg.CatalogRatePerSec,
		collector,
		log,
	)

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	authService := auth.NewService(repos.Users, tokens, auth.ServiceConfig{BcryptCost: cfg.BcryptCost}, collector, log)

	mangaService := manga.NewService(repos.Manga, repos.Genres, repos.Chapters, sanitizer, ssrfGuard, catalogClient, log)
	chapterService := chapter.NewService(repos.Chapters, repos.Manga, log)
	commentService := comment.NewService(repos.Comments, mangaService, sanitizer, log)

	return &services{
		auth:        authService,
		manga:       mangaService,
		chapter:     chapterService,
		comment:     commentService,
		bookmark:    library.NewBookmarkService(repos.Bookmarks, mangaService, log),
		history:     library.NewHistoryService(repos.Histories, mangaService),
		rating:      library.NewRatingService(repos.Ratings, mangaService, sanitizer),
		view:        view.NewService(repos.Views, repos.Chapters, repos.Manga, collector, log),
		user:        user.NewService(repos.Users),
		admin:       admin.NewService(repos.Users, repos.Manga, commentService, chapterService, cfg.PageDefaultLimit, log),
		contributor: contributor.NewService(mangaService, chapterService, commentService),
		catalog:     catalogClient,
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL, database.DefaultPoolConfig())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := database.Ping(context.Background(), db, dbPingTimeout); err != nil {
		return err
	}

	slog.Info("database connection established")

	// 2. メトリクスの初期化
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	// 3. リポジトリとドメインサービスの初期化
	log := slog.Default()
	svc := buildServices(cfg, repository.NewRepositories(db), collector, log)

	// 4. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitAuth))
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		HealthChecker:      db,
		TokenValidator:     svc.auth,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        rateLimiter,
		Metrics:            collector,
		MetricsHandler:     metrics.Handler(registry),
		Logger:             log,

		AuthService:        svc.auth,
		MangaService:       svc.manga,
		ChapterService:     svc.chapter,
		CommentService:     svc.comment,
		BookmarkService:    svc.bookmark,
		HistoryService:     svc.history,
		RatingService:      svc.rating,
		ViewService:        svc.view,
		UserService:        svc.user,
		AdminService:       svc.admin,
		ContributorService: svc.contributor,
		CatalogService:     svc.catalog,
	})

	// 5. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serverErr:
		return fmt.Errorf("server listen error: %w", err)
	}
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// カタログメタデータ同期と孤立プレースホルダーの削除をバックグラウンドで実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := database.Ping(context.Background(), db, dbPingTimeout); err != nil {
		return err
	}

	slog.Info("database connection established (worker)")

	log := slog.Default()
	collector := metrics.NewCollector(prometheus.NewRegistry())

	// 2. カタログ同期ジョブの初期化
	ssrfGuard := security.NewSSRFGuard()
	catalogClient := catalog.NewClient(
		ssrfGuard.NewSafeClient(cfg.CatalogTimeout, catalog.MaxResponseSize),
		cfg.CatalogBaseURL,
		cfg.CatalogRatePerSec,
		collector,
		log,
	)
	syncConfig := catalog.DefaultSyncConfig()
	syncConfig.Interval = cfg.CatalogSyncInterval
	syncConfig.TTL = cfg.CatalogSyncTTL
	syncConfig.MaxCallsPerCycle = cfg.CatalogMaxCallsPerCycle
	syncJob := catalog.NewSyncJob(repository.NewPostgresMangaRepo(db), catalogClient, collector, log, syncConfig)

	// 3. クリーンアップジョブの初期化
	cleanupJob := cleanup.NewCleanupJob(db, log)
	cleanupJob.RetentionDays = cfg.OrphanRetentionDays

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("catalog_sync_interval", cfg.CatalogSyncInterval),
		slog.Int("orphan_retention_days", cfg.OrphanRetentionDays),
	)

	// クリーンアップジョブを日次でバックグラウンド実行
	go cleanupJob.Start(ctx, cleanupInterval)

	// カタログ同期ジョブをメインgoroutineで実行（ブロッキング）
	syncJob.Start(ctx)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runSeed はYAMLフィクスチャを読み込み、ジャンルとアカウントを投入する。
// 既存のデータはスキップするため、何度実行しても結果は同じになる。
func runSeed(cfg *config.Config, path string) error {
	db, err := database.Open(cfg.DatabaseURL, database.DefaultPoolConfig())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := database.Ping(ctx, db, dbPingTimeout); err != nil {
		return err
	}

	loader := seed.NewLoader(
		repository.NewPostgresGenreRepo(db),
		repository.NewPostgresUserRepo(db),
		cfg.BcryptCost,
		slog.Default(),
	)
	result, err := loader.LoadFile(ctx, path)
	if err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}

	slog.Info("seed completed",
		slog.String("file", path),
		slog.Int("genres", result.Genres),
		slog.Int("users_created", result.UsersCreated),
		slog.Int("users_skipped", result.UsersSkipped),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.Redacted()
}
