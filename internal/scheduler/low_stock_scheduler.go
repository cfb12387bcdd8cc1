package scheduler

import (
	"context"
	"time"

	"github.com/hairpin-store/hairpin-backend/internal/app/service"
	"github.com/hairpin-store/hairpin-backend/pkg/logger"
	"github.com/hairpin-store/hairpin-backend/pkg/metrics"
	"github.com/robfig/cron/v3"
)

const (
	DefaultLowStockSpec = "0 * * * *"
	checkTimeout        = 30 * time.Second
)

// LowStockScheduler periodically counts active products at or below the
// threshold, logs them and publishes the count as a gauge.
type LowStockScheduler struct {
	cron           *cron.Cron
	spec           string
	threshold      int
	productService service.ProductService
	metrics        *metrics.Metrics
}

// NewLowStockScheduler creates the scheduler. m may be nil.
func NewLowStockScheduler(productService service.ProductService, m *metrics.Metrics, spec string, threshold int) *LowStockScheduler {
	if spec == "" {
		spec = DefaultLowStockSpec
	}
	return &LowStockScheduler{
		cron:           cron.New(),
		spec:           spec,
		threshold:      threshold,
		productService: productService,
		metrics:        m,
	}
}

// Start registers the check and starts the cron runner
func (s *LowStockScheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
		defer cancel()
		if _, err := s.RunOnce(ctx); err != nil {
			logger.Error("Scheduled low stock check failed", err)
		}
	})
	if err != nil {
		logger.Error("Failed to add cron job for low stock check", err, map[string]interface{}{
			"spec": s.spec,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Low stock scheduler started", map[string]interface{}{
		"spec":      s.spec,
		"threshold": s.threshold,
	})
	return nil
}

// RunOnce performs a single check and returns the low stock products.
func (s *LowStockScheduler) RunOnce(ctx context.Context) ([]string, error) {
	products, err := s.productService.ListLowStock(ctx, s.threshold)
	if err != nil {
		return nil, err
	}

	s.metrics.SetLowStock(len(products))

	skus := make([]string, 0, len(products))
	for _, p := range products {
		skus = append(skus, p.SKU)
	}
	if len(skus) > 0 {
		logger.Warn("Products at or below low stock threshold", map[string]interface{}{
			"threshold": s.threshold,
			"count":     len(skus),
			"skus":      skus,
		})
	} else {
		logger.Debug("No low stock products", map[string]interface{}{
			"threshold": s.threshold,
		})
	}
	return skus, nil
}

// Stop waits for a running check to finish
func (s *LowStockScheduler) Stop() {
	logger.Info("Stopping low stock scheduler...")
	<-s.cron.Stop().Done()
	logger.Info("Low stock scheduler stopped")
}
