package main

import (
	"flag"
	"log"

	"github.com/kataras/iris/v12"
	"go.uber.org/zap"

	"github.com/DmitriyRebrykov/BlockWear/internal/config"
	"github.com/DmitriyRebrykov/BlockWear/internal/logger"
	"github.com/DmitriyRebrykov/BlockWear/internal/server"
)

func main() {
	var (
		configPath = flag.String("config", "", "配置文件路径，留空使用默认配置")
		debug      = flag.Bool("debug", false, "开发模式日志")
	)
	flag.Parse()

	if err := logger.Init(*debug); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zap.L().Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		zap.L().Fatal("load config failed", zap.Error(err))
	}

	app := iris.New()
	server.RegisterRoutes(app, cfg)

	addr := cfg.Server.Addr()
	zap.L().Info("web server listening", zap.String("addr", addr))
	if err := app.Run(iris.Addr(addr)); err != nil {
		zap.L().Fatal("web server exited", zap.Error(err))
	}
}
