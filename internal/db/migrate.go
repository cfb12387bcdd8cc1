package db

import (
	"errors"

	"github.com/hairpin-store/hairpin-backend/config"
	"github.com/hairpin-store/hairpin-backend/internal/app/model"
	"github.com/hairpin-store/hairpin-backend/pkg/logger"
	"github.com/hairpin-store/hairpin-backend/pkg/util"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var seedRoleNames = []string{model.RoleAdministrator, model.RoleCustomer, model.RoleManager}

// Migrate runs database migrations
func Migrate() error {
	logger.Info("Running database migrations...")

	count, err := autoMigrate(DB)
	if err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": count,
	})
	return nil
}

func autoMigrate(db *gorm.DB) (int, error) {
	if err := db.SetupJoinTable(&model.User{}, "Roles", &model.UserRole{}); err != nil {
		return 0, err
	}

	models := []interface{}{
		&model.User{},
		&model.Role{},
		&model.UserRole{},
		&model.Product{},
		&model.ProductImage{},
		&model.Cart{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderItem{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		return 0, err
	}
	return len(models), nil
}

// Seed creates the built-in roles, the bootstrap Administrator and a starter
// catalog when the products table is empty.
func Seed(admin *config.AdminConfig) error {
	logger.Info("Seeding initial data...")

	if err := seedRoles(DB); err != nil {
		logger.Error("Failed to seed roles", err)
		return err
	}
	if err := seedAdministrator(DB, admin); err != nil {
		logger.Error("Failed to seed administrator", err, map[string]interface{}{
			"email": admin.Email,
		})
		return err
	}
	if err := seedProducts(DB); err != nil {
		logger.Error("Failed to seed products", err)
		return err
	}

	logger.Info("Initial data seeded successfully")
	return nil
}

func seedRoles(db *gorm.DB) error {
	for _, name := range seedRoleNames {
		role := model.Role{Name: name, NormalizedName: model.NormalizeRoleName(name)}
		if err := db.Where("normalized_name = ?", role.NormalizedName).FirstOrCreate(&role).Error; err != nil {
			return err
		}
	}
	return nil
}

func seedAdministrator(db *gorm.DB, admin *config.AdminConfig) error {
	if admin == nil || admin.Email == "" {
		return nil
	}

	var role model.Role
	if err := db.Where("normalized_name = ?", model.NormalizeRoleName(model.RoleAdministrator)).First(&role).Error; err != nil {
		return err
	}

	var user model.User
	err := db.Where("email = ?", admin.Email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		hash, err := util.HashPassword(admin.Password)
		if err != nil {
			return err
		}
		user = model.User{Email: admin.Email, PasswordHash: hash, Name: admin.Name}
		if err := db.Create(&user).Error; err != nil {
			return err
		}
		logger.Info("Bootstrap administrator created", map[string]interface{}{
			"user_id": user.ID,
			"email":   user.Email,
		})
	} else if err != nil {
		return err
	}

	link := model.UserRole{UserID: user.ID, RoleID: role.ID}
	return db.Where(&link).FirstOrCreate(&link).Error
}

func seedProducts(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.Product{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		logger.Info("Products already seeded, skipping...", map[string]interface{}{
			"existing_count": count,
		})
		return nil
	}

	products := []model.Product{
		{SKU: "BP-BLACK-50", Name: "Classic Black Bobby Pins - 50 Pack", Description: "Essential black bobby pins for everyday styling.", Price: decimal.RequireFromString("8.99"), StockQuantity: 150, Material: "Metal", Color: "Black", Size: "Small", Style: "Bobby Pin"},
		{SKU: "BP-GOLD-25", Name: "Gold Bobby Pins - 25 Pack", Description: "Gold-toned bobby pins with a rust-resistant coating.", Price: decimal.RequireFromString("12.49"), StockQuantity: 75, Material: "Metal", Color: "Gold", Size: "Small", Style: "Bobby Pin"},
		{SKU: "CL-PEARL-01", Name: "Pearl Hair Clip", Description: "Faux pearl barrette for formal updos.", Price: decimal.RequireFromString("15.00"), StockQuantity: 40, Material: "Pearl", Color: "White", Size: "Medium", Style: "Barrette"},
		{SKU: "CL-TORT-02", Name: "Tortoiseshell Claw Clip", Description: "Large claw clip that holds thick hair all day.", Price: decimal.RequireFromString("11.25"), StockQuantity: 8, Material: "Acetate", Color: "Brown", Size: "Large", Style: "Claw Clip"},
		{SKU: "HB-VELVET-03", Name: "Velvet Headband", Description: "Padded velvet headband.", Price: decimal.RequireFromString("18.75"), StockQuantity: 25, Material: "Velvet", Color: "Burgundy", Size: "One Size", Style: "Headband"},
	}

	for i := range products {
		products[i].IsActive = true
		products[i].Images = []model.ProductImage{{
			ImageURL:  "/images/products/" + products[i].SKU + ".jpg",
			AltText:   products[i].Name,
			IsPrimary: true,
		}}
		if err := db.Create(&products[i]).Error; err != nil {
			logger.Error("Failed to create product", err, map[string]interface{}{
				"sku": products[i].SKU,
			})
			return err
		}
	}

	logger.Info("Products seeded successfully", map[string]interface{}{
		"total_records": len(products),
	})
	return nil
}
