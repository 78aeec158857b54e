package utils

import (
	"os"

	"github.com/sirupsen/logrus"
	"sales-tracker-backend/pkg/config"
)

// NewLogger 根据环境创建日志器：生产环境输出 JSON，开发环境输出文本
func NewLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if cfg.IsProduction() {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	logger.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logger.SetLevel(logrus.DebugLevel)
	}

	return logger
}
