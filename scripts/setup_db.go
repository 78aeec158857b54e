package main

import (
	"flag"
	"fmt"
	"net/url"
	"os"

	"sales-tracker-backend/pkg/config"
	"sales-tracker-backend/pkg/database"
	"sales-tracker-backend/pkg/utils"
)

func main() {
	action := flag.String("action", "up", "migration action: up, down or version")
	dsnFlag := flag.String("dsn", "", "PostgreSQL DSN (defaults to POSTGRES_DSN)")
	flag.Parse()

	cfg := config.LoadConfig()
	logger := utils.NewLogger(cfg)

	// 从命令行参数或环境变量获取数据库连接字符串
	dsn := *dsnFlag
	if dsn == "" {
		dsn = cfg.PostgresDSN
	}
	if dsn == "" {
		logger.Fatal("POSTGRES_DSN or -dsn is required")
	}

	logger.WithField("dsn", maskPassword(dsn)).Info("connecting to database")

	switch *action {
	case "up":
		if err := database.MigrateUp(dsn, logger); err != nil {
			logger.WithError(err).Fatal("migration failed")
		}
	case "down":
		if err := database.MigrateDown(dsn, logger); err != nil {
			logger.WithError(err).Fatal("rollback failed")
		}
	case "version":
		version, dirty, err := database.MigrationVersion(dsn, logger)
		if err != nil {
			logger.WithError(err).Fatal("failed to read migration version")
		}
		fmt.Fprintf(os.Stdout, "version=%d dirty=%t\n", version, dirty)
	default:
		logger.Fatalf("unknown action %q", *action)
	}
}

// maskPassword 隐藏连接字符串中的密码
func maskPassword(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "****")
	}
	return u.String()
}
