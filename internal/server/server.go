package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/berfenger/sungrow2venus/internal/adapter/bus"
	"github.com/berfenger/sungrow2venus/internal/config"

	"github.com/asynkron/protoactor-go/actor"
	_ "github.com/joho/godotenv/autoload"
)

const REQUEST_TIMEOUT = 10 * time.Second

type Server struct {
	port        uint
	httpLog     bool
	rootContext *actor.RootContext
	masterActor *actor.PID
	memory      *bus.MemoryBus
}

func NewServer(cfg config.Config, rootContext *actor.RootContext, masterActor *actor.PID, memory *bus.MemoryBus) *http.Server {
	NewServer := &Server{
		port:        cfg.Port,
		rootContext: rootContext,
		masterActor: masterActor,
		memory:      memory,
		httpLog:     cfg.HttpLog,
	}

	// Declare Server config
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", NewServer.port),
		Handler:      NewServer.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return server
}
