package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/crateship/crateship/internal/config"
)

// CleanupManager prunes stale entries from the shared cache directory:
// cargo registry/git caches for toolchains not used recently and cached
// image source checkouts.
type CleanupManager struct {
	config *config.AppConfig
	logger *zap.Logger
}

func NewCleanupManager(cfg *config.AppConfig, logger *zap.Logger) *CleanupManager {
	return &CleanupManager{config: cfg, logger: logger}
}

// CleanupOldCaches removes top-level cache entries untouched for longer
// than maxAge. A zero maxAge uses the configured default.
func (cm *CleanupManager) CleanupOldCaches(maxAge time.Duration) error {
	if maxAge == 0 {
		maxAge = cm.config.Clean.MaxAge
	}

	entries, err := os.ReadDir(cm.config.CacheDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read cache directory: %w", err)
	}

	now := time.Now()
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			cm.logger.Warn("failed to stat cache entry",
				zap.String("dir", entry.Name()),
				zap.Error(err))
			continue
		}

		if now.Sub(info.ModTime()) > maxAge {
			path := filepath.Join(cm.config.CacheDir, entry.Name())
			cm.logger.Info("removing stale cache entry", zap.String("path", path))
			if err := os.RemoveAll(path); err != nil {
				return fmt.Errorf("failed to remove %s: %w", path, err)
			}
		}
	}

	return nil
}
