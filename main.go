package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wfunc/ludoserver/broadcast"
	"github.com/wfunc/ludoserver/config"
	"github.com/wfunc/ludoserver/logger"
	"github.com/wfunc/ludoserver/monitor"
	"github.com/wfunc/ludoserver/persistence"
	"github.com/wfunc/ludoserver/room"
	"github.com/wfunc/ludoserver/rpc"
	"github.com/wfunc/ludoserver/server"
	"github.com/wfunc/ludoserver/services"
	"github.com/wfunc/ludoserver/session"
	"github.com/wfunc/ludoserver/timer"
)

const gaugeInterval = 5 * time.Second

func main() {
	configPath := flag.String("config", ".", "directory containing config.yaml")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	// Initialize logger
	logger.Init(cfg.Log.Level)
	defer logger.Sync()

	// Initialize Database
	db, err := persistence.Open(cfg.Database)
	if err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Log.Infof("Database ready (driver=%s).", cfg.Database.Driver)

	identity := services.NewIdentityService(db, cfg.Auth.Secret, cfg.Auth.SessionTTL, cfg.Auth.BcryptCost)
	players := services.NewPlayerService(db)

	timers := timer.NewTimerManager()
	defer timers.Stop()

	mon := monitor.NewMonitor(cfg.Monitor.Namespace)
	sessions := session.NewManager()
	broadcaster := broadcast.NewRoomBroadcaster(sessions)

	rooms := room.NewRoomManager(room.Options{
		Broadcaster:   broadcaster,
		Recorder:      players,
		Scheduler:     timers,
		Observer:      mon,
		ForfeitDelay:  cfg.Game.ForfeitDelay,
		MaxPlayers:    cfg.Game.MaxPlayers,
		ChatHistory:   cfg.Chat.History,
		ChatTail:      cfg.Chat.Tail,
		ChatMaxLength: cfg.Chat.MaxLength,
	})
	defer rooms.Close()

	// 定期刷新在线人数和房间数
	timers.AddTimer(gaugeInterval, gaugeInterval, func() {
		mon.SetActiveRooms(rooms.RoomCount())
		mon.SetOnlinePlayers(sessions.Count())
	})

	// Initialize Game Server
	gameServer := server.NewGameServer(server.Options{
		Addr:     cfg.Server.HTTPAddress,
		Rooms:    rooms,
		Sessions: sessions,
		Identity: identity,
		Players:  players,
		Monitor:  mon,
	})

	rpcServer, err := rpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to listen for RPC: %v", err)
	}
	if err := rpcServer.Register(rpc.NewGameService(players, rooms, broadcaster)); err != nil {
		logger.Log.Fatalf("Failed to register RPC service: %v", err)
	}
	go rpcServer.Start()
	defer rpcServer.Stop()

	health, err := rpc.NewHealthServer(cfg.Server.GRPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to listen for health checks: %v", err)
	}
	go health.Start()
	defer health.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- gameServer.Start()
	}()
	health.SetServing(true)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Log.Infof("Received %s, shutting down", sig)
	case err := <-errCh:
		if err != nil {
			logger.Log.Errorf("Game server stopped: %v", err)
		}
	}

	health.SetServing(false)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := gameServer.Shutdown(ctx); err != nil {
		logger.Log.Errorf("Shutdown error: %v", err)
	}
	logger.Log.Info("Server stopped.")
}
