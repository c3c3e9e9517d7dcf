package cron

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/dropsaas/shopify-bridge/internal/orders"
	"github.com/dropsaas/shopify-bridge/pkg/logger"
	"github.com/dropsaas/shopify-bridge/pkg/metrics"
)

const (
	shipmentReconcileJobName = "shipment-reconcile"
	defaultReconcileBatch    = 200
)

type ShipmentReconcileJobParams struct {
	Logger    *logger.Logger
	DB        txRunner
	Orders    orders.Repository
	Metrics   *metrics.CronJobMetrics
	BatchSize int
}

// NewShipmentReconcileJob creates the Unfulfilled shipment of every order
// that lacks one. Each order is repaired in its own transaction.
func NewShipmentReconcileJob(params ShipmentReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultReconcileBatch
	}
	return &shipmentReconcileJob{
		logg:    params.Logger,
		db:      params.DB,
		orders:  params.Orders,
		metrics: params.Metrics,
		batch:   batch,
	}, nil
}

type shipmentReconcileJob struct {
	logg    *logger.Logger
	db      txRunner
	orders  orders.Repository
	metrics *metrics.CronJobMetrics
	batch   int
}

func (j *shipmentReconcileJob) Name() string { return shipmentReconcileJobName }

func (j *shipmentReconcileJob) Run(ctx context.Context) error {
	orphans, err := j.orders.ListWithoutShipment(ctx, j.batch)
	if err != nil {
		return fmt.Errorf("list orders without shipment: %w", err)
	}

	var (
		created int64
		errs    error
	)
	for _, order := range orphans {
		orderID := order.ID
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			ok, err := j.orders.WithTx(tx).EnsureShipment(ctx, orderID)
			if err != nil {
				return err
			}
			if ok {
				created++
			}
			return nil
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", orderID, err))
		}
	}

	j.metrics.AddAffected(j.Name(), created)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"orphans":           len(orphans),
		"shipments_created": created,
		"failures":          len(multierr.Errors(errs)),
	})
	j.logg.Info(logCtx, "shipment reconcile complete")
	return errs
}
