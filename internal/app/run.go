package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/petervdpas/goopchat/internal/api"
	"github.com/petervdpas/goopchat/internal/call"
	"github.com/petervdpas/goopchat/internal/config"
	"github.com/petervdpas/goopchat/internal/identity"
	"github.com/petervdpas/goopchat/internal/metrics"
	"github.com/petervdpas/goopchat/internal/storage"
	"github.com/petervdpas/goopchat/internal/transport"
	"github.com/petervdpas/goopchat/internal/util"
)

type Options struct {
	Dir     string
	CfgPath string
	Cfg     config.Config
	In      io.Reader
	Out     io.Writer
}

// Run wires the client together and drives the line REPL until the input
// ends, /quit is entered or ctx is cancelled.
func Run(ctx context.Context, opt Options) error {
	logBuf := NewLogBuffer(800)
	log.SetOutput(logBuf)

	cfg := opt.Cfg
	env, err := config.LoadEnv(opt.Dir)
	if err != nil {
		return err
	}
	if err := env.Apply(&cfg); err != nil {
		return fmt.Errorf("env overrides: %w", err)
	}

	me, err := loadIdentity(opt.Dir, cfg.Identity)
	if err != nil {
		return err
	}
	if me.Expired(time.Now()) {
		log.Printf("WARNING: session token expired at %s", me.ExpiresAt.Format(time.RFC3339))
	}
	logBanner(opt.Dir, opt.CfgPath, me.DisplayName())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// ── Local cache (optional)
	var cache Cache
	if cfg.Storage.DBPath != "" {
		db, err := storage.Open(util.ResolvePath(opt.Dir, cfg.Storage.DBPath))
		if err != nil {
			return fmt.Errorf("open cache: %w", err)
		}
		defer db.Close()
		log.Printf("📦 Channel cache: %s", db.Path())
		cache = db
	}

	// ── Server collaborators
	rest := api.NewClient(cfg.Server.APIURL, me.Token, cfg.Server.Timeout())
	ws := transport.New(transport.Options{
		URL:          cfg.Server.SocketURL,
		Token:        me.Token,
		ReconnectMin: time.Duration(cfg.Server.ReconnectMinSec) * time.Second,
		ReconnectMax: time.Duration(cfg.Server.ReconnectMaxSec) * time.Second,
	})
	defer ws.Close()

	// ── Calls
	pion, err := call.NewPion(call.PeerConfig{
		ICEServers:          cfg.Call.ICEServers,
		DisconnectedTimeout: time.Duration(cfg.Call.DisconnectedTimeoutSec) * time.Second,
		FailedTimeout:       time.Duration(cfg.Call.FailedTimeoutSec) * time.Second,
		KeepAliveInterval:   time.Duration(cfg.Call.KeepAliveSec) * time.Second,
		GatherTimeout:       time.Duration(cfg.Call.GatherTimeoutSec) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("webrtc: %w", err)
	}
	calls := call.New(ws, pion, pion, me.UserID, me.DisplayName())
	defer calls.Close()

	coord := NewCoordinator(Deps{
		Identity:  me,
		Transport: ws,
		API:       rest,
		Cache:     cache,
		Calls:     calls,
		PageSize:  cfg.Chat.PageSize,
		TypingTTL: cfg.Chat.TypingTTL(),
	})

	// ── Hot reload of the chat section
	if opt.CfgPath != "" {
		w, err := config.Watch(opt.CfgPath, func(c config.Chat) {
			coord.Presence().SetTTL(c.TypingTTL())
		})
		if err != nil {
			log.Printf("WARNING: config watcher: %v", err)
		} else {
			defer w.Close()
		}
	}

	// ── Metrics + logs endpoint (optional)
	if cfg.Metrics.HTTPAddr != "" {
		addr, url := NormalizeLocalAddr(cfg.Metrics.HTTPAddr)
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		mux.HandleFunc("/logs", logBuf.ServeLogsJSON)
		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("METRICS: %v", err)
			}
		}()
		defer func() {
			sctx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer scancel()
			_ = srv.Shutdown(sctx)
		}()
		log.Printf("📊 Metrics: %s/metrics", url)
	}

	// Subscribe before the transport dials so the first connect is seen.
	events, unsubscribe := ws.Subscribe()
	defer unsubscribe()
	coordDone := make(chan struct{})
	go func() {
		defer close(coordDone)
		_ = coord.Serve(ctx, events)
	}()
	go func() {
		_ = ws.Run(ctx)
	}()

	if _, err := coord.ListChannels(ctx); err != nil {
		log.Printf("COORD: %v", err)
	}
	if ch, ok, err := coord.RestoreLastChannel(ctx); ok {
		log.Printf("COORD: restored #%s", ch.Name)
		if err != nil {
			log.Printf("COORD: %v", err)
		}
	}

	r := newREPL(coord, logBuf, opt.In, opt.Out)
	err = r.run(ctx)
	cancel()
	<-coordDone
	return err
}

// loadIdentity reads the session token from config or the token file.
func loadIdentity(dir string, cfg config.Identity) (identity.Identity, error) {
	token := cfg.Token
	if token == "" && cfg.TokenFile != "" {
		t, err := util.ReadSecretFile(util.ResolvePath(dir, cfg.TokenFile))
		if err != nil {
			return identity.Identity{}, fmt.Errorf("read token file: %w", err)
		}
		token = t
	}
	return identity.FromToken(token)
}
