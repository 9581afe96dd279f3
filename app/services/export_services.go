package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/shashiranjanraj/kashvi-shop/app/models"
	"github.com/shashiranjanraj/kashvi-shop/app/repositories"
	"github.com/shashiranjanraj/kashvi-shop/pkg/logger"
	"github.com/shashiranjanraj/kashvi-shop/pkg/orm"
	"github.com/shashiranjanraj/kashvi-shop/pkg/storage"
	"github.com/tealeg/xlsx"
)

// ExportResult describes a written export file.
type ExportResult struct {
	Path   string
	URL    string
	Orders int
}

// OrderExporter writes orders to an xlsx workbook on a storage disk: one
// "Orders" sheet with a row per order and one "Items" sheet with a row per
// order line.
type OrderExporter struct {
	orders *repositories.OrderRepository
	disk   storage.Disk
}

func NewOrderExporter(db *orm.Query, disk storage.Disk) *OrderExporter {
	return &OrderExporter{orders: repositories.NewOrderRepository(db), disk: disk}
}

// Export writes every order created at or after since.
func (e *OrderExporter) Export(ctx context.Context, since time.Time) (ExportResult, error) {
	orders, err := e.orders.Since(ctx, since)
	if err != nil {
		return ExportResult{}, wrapDB("export: load orders", err)
	}

	data, err := OrdersWorkbook(orders)
	if err != nil {
		return ExportResult{}, fmt.Errorf("export: build workbook: %w", err)
	}

	path := fmt.Sprintf("exports/orders-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	if err := e.disk.Put(ctx, path, data); err != nil {
		return ExportResult{}, fmt.Errorf("export: write %s: %w", path, err)
	}

	logger.WithCtx(ctx).Info("export: orders written", "path", path, "orders", len(orders))
	return ExportResult{Path: path, URL: e.disk.URL(path), Orders: len(orders)}, nil
}

// OrdersWorkbook renders orders as an xlsx file.
func OrdersWorkbook(orders []models.Order) ([]byte, error) {
	file := xlsx.NewFile()

	summary, err := file.AddSheet("Orders")
	if err != nil {
		return nil, err
	}
	header(summary, "Order ID", "User ID", "Status", "Total", "Lines", "Created At")

	lines, err := file.AddSheet("Items")
	if err != nil {
		return nil, err
	}
	header(lines, "Order ID", "Product ID", "Product", "Unit Price", "Quantity", "Line Total")

	for _, o := range orders {
		row := summary.AddRow()
		row.AddCell().SetString(o.ID)
		row.AddCell().SetValue(o.UserID)
		row.AddCell().SetString(o.Status)
		row.AddCell().SetValue(o.TotalPrice)
		row.AddCell().SetValue(len(o.Items))
		row.AddCell().SetString(o.CreatedAt.UTC().Format(time.RFC3339))

		for _, it := range o.Items {
			r := lines.AddRow()
			r.AddCell().SetString(o.ID)
			if it.ProductID != nil {
				r.AddCell().SetValue(*it.ProductID)
			} else {
				r.AddCell().SetString("")
			}
			r.AddCell().SetString(it.ProductName)
			r.AddCell().SetValue(it.UnitPrice)
			r.AddCell().SetValue(it.Quantity)
			r.AddCell().SetValue(it.LineTotal)
		}
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func header(sheet *xlsx.Sheet, titles ...string) {
	row := sheet.AddRow()
	for _, t := range titles {
		row.AddCell().SetString(t)
	}
}
