package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/juanfu7467v/consulta-pe-wa-bot/internal/admin"
	"github.com/juanfu7467v/consulta-pe-wa-bot/internal/config"
	"github.com/juanfu7467v/consulta-pe-wa-bot/internal/dispatch"
	ihttp "github.com/juanfu7467v/consulta-pe-wa-bot/internal/http"
	"github.com/juanfu7467v/consulta-pe-wa-bot/internal/llm"
	. "github.com/juanfu7467v/consulta-pe-wa-bot/internal/logging"
	"github.com/juanfu7467v/consulta-pe-wa-bot/internal/pacer"
	"github.com/juanfu7467v/consulta-pe-wa-bot/internal/resolver"
	"github.com/juanfu7467v/consulta-pe-wa-bot/internal/session"
	"github.com/juanfu7467v/consulta-pe-wa-bot/internal/settings"
	"github.com/juanfu7467v/consulta-pe-wa-bot/internal/wa"
)

const version = "1.0.0"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("wabot %s\n", version)
		return
	}

	Init(&Config{Level: LevelInfo})

	cfg, err := config.Load()
	if err != nil {
		L_fatal("failed to load config: %v", err)
	}
	SetLevel(cfg.LogLevelValue())

	L_info("wabot %s starting", version)

	store := settings.NewStore(cfg.SessionsDir)
	registry := session.NewRegistry(store)

	chain := llm.NewChain(&cfg.Backends)
	res := resolver.New(resolver.NewMatcher(rand.NewSource(time.Now().UnixNano())), chain)

	dispatcher := dispatch.NewDispatcher(res, pacer.New(), dispatch.NewGuard(nil))
	adminRouter := admin.NewRouter(registry, cfg.AdminJID)
	manager := wa.NewManager(cfg, registry, dispatcher, adminRouter)

	manager.RestoreSessions()

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           ihttp.NewRouter(manager, registry),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		L_info("http: listening", "addr", cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			L_fatal("http server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	L_info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		L_warn("http shutdown incomplete", "error", err)
	}
	manager.Shutdown()

	L_info("wabot stopped")
}
