package db

import (
	"github.com/marche241/storefront-gateway/pkg/kvstore"
	"github.com/marche241/storefront-gateway/pkg/logger"
)

// Migrate creates the tables the gateway owns. Carts, orders and shops live
// in the Marché241 API; only visitor key-value entries are stored here.
func Migrate() error {
	logger.Info("Running database migrations...")

	if err := DB.AutoMigrate(&kvstore.Entry{}); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	logger.Info("Database migrations completed")
	return nil
}
