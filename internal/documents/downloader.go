// Package documents downloads and stores the order documents referenced
// by case records.
package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"gorm.io/gorm"

	"github.com/casepulse/casepulse/internal/database"
	"github.com/casepulse/casepulse/pkg/logger"
)

// ErrNoDocument means the order has no document reference to fetch.
var ErrNoDocument = errors.New("order has no document reference")

// Downloader fetches order documents over plain HTTP and records their
// local paths.
type Downloader struct {
	db        *gorm.DB
	log       *logger.Logger
	dir       string
	userAgent string
	client    *http.Client
}

func New(db *gorm.DB, dir, userAgent string, log *logger.Logger) *Downloader {
	return &Downloader{
		db:        db,
		log:       log,
		dir:       dir,
		userAgent: userAgent,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Ensure returns the order with its document present on disk,
// downloading it on first access.
func (d *Downloader) Ensure(ctx context.Context, orderID uint) (*database.Order, error) {
	var order database.Order
	err := d.db.First(&order, orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("order %d: %w", orderID, gorm.ErrRecordNotFound)
	}
	if err != nil {
		return nil, err
	}

	if order.Downloaded && order.LocalPath != "" {
		if _, statErr := os.Stat(order.LocalPath); statErr == nil {
			return &order, nil
		}
		// File went missing underneath us; fetch again.
		order.Downloaded = false
	}

	if order.DocumentURL == "" {
		return nil, ErrNoDocument
	}

	localPath, err := d.download(ctx, &order)
	if err != nil {
		return nil, err
	}

	order.LocalPath = localPath
	order.Downloaded = true
	if err := d.db.Save(&order).Error; err != nil {
		return nil, fmt.Errorf("failed to record download for order %d: %w", orderID, err)
	}

	return &order, nil
}

func (d *Downloader) download(ctx context.Context, order *database.Order) (string, error) {
	now := time.Now()
	dirPath := filepath.Join(d.dir,
		fmt.Sprintf("%d", now.Year()),
		fmt.Sprintf("%02d", now.Month()))
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create document directory: %w", err)
	}

	filename := fmt.Sprintf("order_%d_%s.pdf", order.ID, order.OrderDate.Format("20060102"))
	fullPath := filepath.Join(dirPath, filename)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, order.DocumentURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("document download returned %s", resp.Status)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	size, err := io.Copy(file, resp.Body)
	if err != nil {
		os.Remove(fullPath)
		return "", fmt.Errorf("failed to save document: %w", err)
	}

	d.log.Info("Document downloaded", "order_id", order.ID, "size", size, "path", fullPath)
	return fullPath, nil
}
