package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"

	_ "github.com/lib/pq"
	"github.com/pressly/goose"
	"go.uber.org/zap"

	"github.com/d60-Lab/gin-blog/config"
	"github.com/d60-Lab/gin-blog/pkg/logger"
)

// 用法: migrate [-dir migrations] up|down|status|version|redo|reset
func main() {
	dir := flag.String("dir", "migrations", "goose 迁移目录")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-dir migrations] <up|down|status|version|redo|reset>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		panic(err)
	}
	defer logger.Sync()

	// 手写迁移只面向 postgres；sqlite/mysql 使用 gorm AutoMigrate
	if cfg.Database.Driver != "postgres" {
		logger.L().Fatal("sql migrations require the postgres driver", zap.String("driver", cfg.Database.Driver))
	}

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		logger.L().Fatal("open postgres", zap.Error(err))
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.L().Fatal("ping postgres", zap.Error(err))
	}

	if err := goose.SetDialect("postgres"); err != nil {
		logger.L().Fatal("goose dialect", zap.Error(err))
	}
	command := flag.Arg(0)
	if err := goose.Run(command, db, *dir, flag.Args()[1:]...); err != nil {
		logger.L().Fatal("goose "+command, zap.Error(err))
	}
	logger.Info("migration finished", zap.String("command", command), zap.String("dir", *dir))
}
