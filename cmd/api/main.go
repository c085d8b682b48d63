package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/account"
	accountrepo "github.com/ovaphlow/pitchfork/service-community-go/internal/account/repo"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/account/sweeper"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/auth"
	authrepo "github.com/ovaphlow/pitchfork/service-community-go/internal/auth/repo"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/board"
	boardrepo "github.com/ovaphlow/pitchfork/service-community-go/internal/board/repo"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/boardtype"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/comment"
	commentrepo "github.com/ovaphlow/pitchfork/service-community-go/internal/comment/repo"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/config"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/like"
	likerepo "github.com/ovaphlow/pitchfork/service-community-go/internal/like/repo"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/linkpreview"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/notification"
	notificationrepo "github.com/ovaphlow/pitchfork/service-community-go/internal/notification/repo"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/oauth"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/router"
	"github.com/ovaphlow/pitchfork/service-community-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-community-go/pkg/utilities"
)

type tableEnsurer interface {
	EnsureTable(ctx context.Context) error
}

func main() {
	// also loads .env
	cfg := config.Load()

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting service-community-go")

	db, err := database.Connect(database.ConfigFromEnv())
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	accounts := accountrepo.NewAccountRepo(db)
	refresh := authrepo.NewRefreshRepo(db)
	posts := boardrepo.NewPostRepo(db)
	comments := commentrepo.NewCommentRepo(db)
	likes := likerepo.NewLikeRepo(db)
	notifications := notificationrepo.NewNotificationRepo(db)

	// tables only reference themselves, so order is free
	setupCtx, cancelSetup := context.WithTimeout(context.Background(), 30*time.Second)
	for _, t := range []tableEnsurer{accounts, refresh, posts, comments, likes, notifications} {
		if err := t.EnsureTable(setupCtx); err != nil {
			cancelSetup()
			sugar.Fatalf("ensure table: %v", err)
		}
	}
	cancelSetup()

	rdb := newRedis(cfg.RedisURL, sugar)
	defer rdb.Close()

	ids, err := utilities.NewSnowflakeGenerator(cfg.SnowflakeNode)
	if err != nil {
		sugar.Fatalf("snowflake: %v", err)
	}

	tokens, err := auth.NewTokenService(refresh, cfg.Issuer, cfg.AccessTTL, cfg.RefreshTTL)
	if err != nil {
		sugar.Fatalf("token service: %v", err)
	}
	accountSvc := account.NewAccountService(accounts, tokens, nil, cfg.DeletionGraceDays, sugar)
	boardSvc := board.NewBoardService(posts, sugar)
	notificationSvc := notification.NewNotificationService(notifications, notification.NewRedisPublisher(rdb), ids, sugar)
	commentSvc := comment.NewCommentService(comments, boardSvc, notificationSvc, ids, sugar)

	targets := map[like.Target]like.TargetStore{like.TargetComment: commentSvc}
	boardHandlers := map[boardtype.Type]*board.Handler{}
	for _, t := range boardtype.All {
		targets[like.BoardTarget(t)] = boardSvc.LikeTarget(t)
		boardHandlers[t] = board.NewHandler(boardSvc, t, sugar)
	}
	likeSvc, err := like.NewLikeService(likes, targets, notificationSvc, sugar)
	if err != nil {
		sugar.Fatalf("like service: %v", err)
	}

	gh := oauth.NewGithubClient(oauth.GithubConfig{
		ClientID:     cfg.GithubClientID,
		ClientSecret: cfg.GithubClientSecret,
		RedirectURL:  cfg.GithubRedirectURL,
		Timeout:      cfg.GithubTimeout,
	})
	if !gh.Enabled() {
		sugar.Warn("github oauth not configured")
	}
	oauthSvc := oauth.NewService(gh, accountSvc, sugar)

	stopSweep, err := sweeper.New(accounts, tokens, sugar).Start(cfg.DeletionCron)
	if err != nil {
		sugar.Fatalf("deletion sweep: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler := router.RegisterRoutes(router.Deps{
		Logger:       sugar,
		Tokens:       tokens,
		LoadSubject:  accountSvc.LoadSubject,
		Auth:         auth.NewHandler(tokens, accountSvc.LoadSubject, sugar),
		Accounts:     account.NewHandler(accountSvc, sugar),
		OAuth:        oauth.NewHandler(oauthSvc, sugar),
		Boards:       boardHandlers,
		Comments:     comment.NewHandler(commentSvc, sugar),
		Likes:        like.NewHandler(likeSvc, sugar),
		Notification: notification.NewHandler(notificationSvc, sugar),
		LinkPreview:  linkpreview.NewHandler(linkpreview.NewFetcher(cfg.LinkPreviewTimeout), sugar),
	})
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()
	sugar.Infow("service is running", "addr", cfg.Addr)

	<-ctx.Done()

	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}
	// waits for a running sweep
	stopSweep()

	sugar.Info("goodbye")
}

// newRedis connects to redis. The service still starts without it; only
// realtime notification delivery is affected.
func newRedis(url string, logger *zap.SugaredLogger) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		logger.Fatalf("redis url: %v", err)
	}
	rdb := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warnw("redis ping failed", "err", err)
	}
	return rdb
}
