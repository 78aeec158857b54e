package database

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DatabasePool caches one store per process for serverless warm starts
type DatabasePool struct {
	instance DatabaseInterface
	config   DatabaseConfig
	mu       sync.RWMutex
	created  time.Time
	lastUsed time.Time
}

var (
	globalPool *DatabasePool
	poolMutex  sync.Mutex
)

// GetDatabase 获取进程级共享的数据库实例
//
// The first call opens the store and later calls return it. The store's own
// connection pool (database/sql) handles reconnects, so the cache never
// rebuilds it. Asking for a different configuration is an error.
func GetDatabase(config DatabaseConfig, logger logrus.FieldLogger) (DatabaseInterface, error) {
	poolMutex.Lock()
	defer poolMutex.Unlock()

	if globalPool != nil {
		if globalPool.config != config {
			return nil, fmt.Errorf("database already initialized with driver %q", globalPool.config.Driver)
		}
		globalPool.mu.Lock()
		globalPool.lastUsed = time.Now()
		globalPool.mu.Unlock()
		logger.Debug("reusing existing database connection")
		return globalPool.instance, nil
	}

	logger.Info("creating new database connection pool")
	instance, err := NewDatabase(config, logger)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	globalPool = &DatabasePool{
		instance: instance,
		config:   config,
		created:  now,
		lastUsed: now,
	}
	return instance, nil
}

// GetConnectionStats 获取连接池统计信息
func GetConnectionStats() map[string]interface{} {
	poolMutex.Lock()
	defer poolMutex.Unlock()

	if globalPool == nil {
		return map[string]interface{}{
			"status":    "no_connection",
			"last_used": nil,
		}
	}

	globalPool.mu.RLock()
	lastUsed := globalPool.lastUsed
	globalPool.mu.RUnlock()

	return map[string]interface{}{
		"status":    "connected",
		"driver":    globalPool.config.Driver,
		"created":   globalPool.created.Format(time.RFC3339),
		"last_used": lastUsed.Format(time.RFC3339),
		"uptime":    time.Since(globalPool.created).String(),
	}
}

// resetPool drops the cached instance; used by tests
func resetPool() {
	poolMutex.Lock()
	defer poolMutex.Unlock()
	if globalPool != nil && globalPool.instance != nil {
		globalPool.instance.Close()
	}
	globalPool = nil
}
