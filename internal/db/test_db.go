package db

import (
	"fmt"
	"log"

	"github.com/hairpin-store/hairpin-backend/internal/app/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB creates an in-memory SQLite database for testing with the
// built-in roles seeded. The pool is pinned to one connection so every
// goroutine in a test sees the same in-memory database.
func SetupTestDB() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get test database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if _, err := autoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate test database: %w", err)
	}

	if err := seedRoles(db); err != nil {
		return nil, fmt.Errorf("failed to seed test roles: %w", err)
	}

	return db, nil
}

// CleanupTestDB cleans up the test database
func CleanupTestDB(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Failed to get DB instance: %v", err)
		return
	}
	sqlDB.Close()
}

// TruncateAllTables removes all data from tables, keeping the seeded roles.
func TruncateAllTables(db *gorm.DB) error {
	tables := []string{"order_items", "orders", "cart_items", "carts", "product_images", "products", "user_roles", "users"}
	for _, table := range tables {
		if err := db.Exec(fmt.Sprintf("DELETE FROM %s", table)).Error; err != nil {
			return err
		}
	}
	return nil
}

// SeedAdministrator creates a user holding the Administrator role. Tests use
// it to build last-administrator scenarios.
func SeedAdministrator(db *gorm.DB, email string) (*model.User, error) {
	user := &model.User{Email: email, PasswordHash: "hash", Name: email}
	if err := db.Create(user).Error; err != nil {
		return nil, err
	}
	var role model.Role
	if err := db.Where("normalized_name = ?", model.NormalizeRoleName(model.RoleAdministrator)).First(&role).Error; err != nil {
		return nil, err
	}
	if err := db.Create(&model.UserRole{UserID: user.ID, RoleID: role.ID}).Error; err != nil {
		return nil, err
	}
	return user, nil
}
