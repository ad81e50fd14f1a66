package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"zapflow/app/client/whatsapp"
	"zapflow/app/config"
	"zapflow/app/server"
	"zapflow/app/service/conversation"
	"zapflow/app/service/engine"
	"zapflow/app/service/queue"
	"zapflow/app/service/session"
	"zapflow/app/service/tool"
	"zapflow/app/util/mylog"

	"github.com/gofiber/fiber/v2/log"
	"github.com/samber/do"
)

func main() {
	di := do.New()
	defer di.Shutdown()
	defer log.Info("Waiting for services to finish...")

	mylog.Preinit()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	do.ProvideValue(di, appCtx)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	do.ProvideValue(di, cfg)

	if err = mylog.Init(cfg); err != nil {
		log.Fatalf("logging init failed: %v", err)
	}

	do.Provide(di, whatsapp.NewClient)
	do.Provide(di, func(di *do.Injector) (session.Store, error) {
		return session.New(di)
	})
	do.Provide(di, tool.New)
	do.Provide(di, conversation.New)
	do.Provide(di, queue.New)
	do.Provide(di, engine.New)
	do.Provide(di, server.New)

	slog.Info("Service started", "instance", cfg.WhatsApp.Instance)

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt)
		<-sigint

		log.Info("Shutting down...")

		cancel()
	}()

	go do.MustInvoke[*engine.Service](di).Run(appCtx)

	go func() {
		if err := do.MustInvoke[*server.Server](di).Run(); err != nil {
			log.Fatalf("server failed: %v", err)
		}
	}()

	<-appCtx.Done()
}
