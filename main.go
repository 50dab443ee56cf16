package main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"arenasync/server"
)

// ArenaSync 入口：主机模式启动 HTTP + WebSocket 服务并持有权威会话；
// 观察者模式拨号接入主机，维护只读镜像
func main() {
	var (
		addr      string
		mode      string
		hostURL   string
		sessionID string
		player    string
		variant   string
	)
	flag.StringVar(&addr, "addr", ":8080", "server listen address, e.g. :8080")
	flag.StringVar(&mode, "mode", "host", "host | observer")
	flag.StringVar(&hostURL, "host", "ws://localhost:8080/ws", "host ws url (observer mode)")
	flag.StringVar(&sessionID, "session", "session-1", "session id")
	flag.StringVar(&player, "player", "observer", "participant name (observer mode)")
	flag.StringVar(&variant, "variant", "none", "character variant: none|scout|tank|medic")
	flag.Parse()

	cfg := server.LoadConfig()
	if err := server.InitLogger(cfg.LogFile, cfg.LogDebug); err != nil {
		panic(err)
	}
	defer server.SyncLogger()

	if mode == "observer" {
		runObserver(hostURL, sessionID, player, variant)
		return
	}

	sm := server.GetSessionManager()
	sm.Configure(cfg)
	// 先预创建一个默认会话，便于快速试跑
	_ = sm.GetOrCreateSession(sessionID)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", server.HandleWS)
	// 管理与监控接口
	mux.HandleFunc("/admin/config", server.HandleAdminConfig)
	mux.HandleFunc("/metrics", server.HandleMetrics)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		server.Log.Infof("ArenaSync host listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			server.Log.Fatalf("listen: %v", err)
		}
	}()

	// 优雅退出（Ctrl+C）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	server.Log.Info("Shutting down...")
}

// runObserver 观察者进程：接入主机后跟随权威事件维护镜像，直到断线或退出
func runObserver(hostURL, sessionID, player, variant string) {
	link, err := server.DialHost(hostURL, sessionID, player, server.VariantFromString(variant))
	if err != nil {
		server.Log.Fatalf("connect: %v", err)
	}
	defer link.Close()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		server.Log.Info("observer exiting")
	case <-link.Done():
		server.Log.Warn("host link closed")
	}
}
