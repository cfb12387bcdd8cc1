package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/hairpin-store/hairpin-backend/config"
	"github.com/hairpin-store/hairpin-backend/internal/app/repository"
	"github.com/hairpin-store/hairpin-backend/internal/app/service"
	"github.com/hairpin-store/hairpin-backend/internal/db"
	"github.com/hairpin-store/hairpin-backend/pkg/logger"
	"go.uber.org/multierr"
)

// Imports a product workbook (the layout of the admin export) into the
// catalog, upserting by SKU.
func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run cmd/seed/main.go <xlsx_file_path>")
	}
	filePath := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.Initialize(logger.Config{Level: "info", Format: "console", EnableColor: true})

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	file, err := os.Open(filePath)
	if err != nil {
		log.Fatal("Failed to open XLSX:", err)
	}
	defer file.Close()

	fmt.Printf("Reading XLSX file: %s\n", filePath)
	fmt.Print("Existing SKUs will be updated (stock is left unchanged). Proceed? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" && confirm != "y" {
		fmt.Println("Import cancelled.")
		return
	}

	productService := service.NewProductService(db.GetDB(), repository.NewProductRepository(db.GetDB()), nil)
	result, err := productService.ImportProducts(context.Background(), file)
	if err != nil {
		log.Fatal("Import aborted:", err)
	}

	for _, rowErr := range multierr.Errors(result.Errors) {
		fmt.Printf("  skipped: %v\n", rowErr)
	}
	fmt.Println("Import completed!")
	fmt.Printf("Created: %d, Updated: %d, Skipped: %d\n", result.Created, result.Updated, result.Skipped)
}
