package controller

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-billing/app/factory"
	"github.com/vibast-solutions/ms-go-billing/app/mapper"
	"github.com/vibast-solutions/ms-go-billing/app/service"
	"github.com/vibast-solutions/ms-go-billing/app/types"
	"github.com/vibast-solutions/ms-go-billing/config"
)

type BatchController struct {
	billingService *service.BillingService
	billingCfg     config.BillingConfig
	logger         logrus.FieldLogger
}

func NewBatchController(billingService *service.BillingService, billingCfg config.BillingConfig) *BatchController {
	return &BatchController{
		billingService: billingService,
		billingCfg:     billingCfg,
		logger:         factory.NewModuleLogger("billing-controller"),
	}
}

func (c *BatchController) requestLogger(ctx echo.Context) logrus.FieldLogger {
	return factory.LoggerWithContext(c.logger, ctx)
}

func (c *BatchController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *BatchController) UploadBatch(ctx echo.Context) error {
	req, err := types.NewUploadBatchRequestFromContext(ctx, c.billingCfg.MaxUploadBytes)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	batch, detection, err := c.billingService.CreateBatch(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrInvalidUpload):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		default:
			c.requestLogger(ctx).WithError(err).Error("Upload batch failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusCreated, mapper.DetectionToUploadResponse(batch, detection))
}

func (c *BatchController) ListBatches(ctx echo.Context) error {
	req, err := types.NewListBatchesRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	items, err := c.billingService.ListBatches(ctx.Request().Context(), req)
	if err != nil {
		c.requestLogger(ctx).WithError(err).Error("List batches failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, mapper.BatchesToListResponse(items))
}

func (c *BatchController) GetBatch(ctx echo.Context) error {
	req, err := types.NewGetBatchRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.billingService.GetBatch(ctx.Request().Context(), req.GetId())
	if err != nil {
		if errors.Is(err, service.ErrBatchNotFound) {
			return c.writeError(ctx, http.StatusNotFound, "batch not found")
		}
		c.requestLogger(ctx).WithError(err).Error("Get batch failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, mapper.BatchToStatusResponse(item))
}

func (c *BatchController) StartBatch(ctx echo.Context) error {
	req, err := types.NewStartBatchRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.billingService.StartBatch(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBatchNotFound):
			return c.writeError(ctx, http.StatusNotFound, "batch not found")
		case errors.Is(err, service.ErrInvalidRecordLimit):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrBatchConflict):
			return c.writeError(ctx, http.StatusConflict, err.Error())
		default:
			c.requestLogger(ctx).WithError(err).Error("Start batch failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, mapper.BatchToStatusResponse(item))
}

func (c *BatchController) SyncBatch(ctx echo.Context) error {
	req, err := types.NewGetBatchRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.billingService.SyncBatch(ctx.Request().Context(), req.GetId())
	if err != nil {
		var verification *service.VerificationRequiredError
		switch {
		case errors.Is(err, service.ErrBatchNotFound):
			return c.writeError(ctx, http.StatusNotFound, "batch not found")
		case errors.Is(err, service.ErrDuplicateSync):
			return ctx.JSON(http.StatusConflict, &types.DuplicateSyncResponse{
				Duplicate: true,
				Error:     "billing sync already in progress",
			})
		case errors.As(err, &verification):
			return ctx.JSON(http.StatusUnprocessableEntity, &types.VerificationRequiredResponse{
				VopRequired: true,
				VopVerified: verification.Verified,
				VopPending:  verification.Pending,
				Error:       err.Error(),
			})
		default:
			c.requestLogger(ctx).WithError(err).Error("Sync batch failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &types.SyncBatchResponse{
		Eligible: result.Eligible,
		Queued:   result.Queued,
	})
}

func (c *BatchController) VerifyDebtor(ctx echo.Context) error {
	req, err := types.NewVerifyDebtorRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	if err := c.billingService.VerifyDebtor(ctx.Request().Context(), req); err != nil {
		switch {
		case errors.Is(err, service.ErrBatchNotFound):
			return c.writeError(ctx, http.StatusNotFound, "batch not found")
		case errors.Is(err, service.ErrDebtorNotFound):
			return c.writeError(ctx, http.StatusNotFound, "debtor not found")
		default:
			c.requestLogger(ctx).WithError(err).Error("Verify debtor failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &types.MessageResponse{Message: "Debtor verification recorded"})
}

func (c *BatchController) DownloadArtifact(ctx echo.Context) error {
	req, err := types.NewGetBatchRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	reader, filename, err := c.billingService.DownloadArtifact(ctx.Request().Context(), req.GetId())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBatchNotFound):
			return c.writeError(ctx, http.StatusNotFound, "batch not found")
		case errors.Is(err, service.ErrArtifactNotFound):
			return c.writeError(ctx, http.StatusNotFound, "artifact not available")
		default:
			c.requestLogger(ctx).WithError(err).Error("Download artifact failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}
	defer reader.Close()

	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return ctx.Stream(http.StatusOK, "text/csv", reader)
}

func (c *BatchController) ReconcileChargebacks(ctx echo.Context) error {
	req, err := types.NewGetBatchRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	removed, err := c.billingService.ReconcileChargebacks(ctx.Request().Context(), req.GetId())
	if err != nil {
		if errors.Is(err, service.ErrBatchNotFound) {
			return c.writeError(ctx, http.StatusNotFound, "batch not found")
		}
		c.requestLogger(ctx).WithError(err).Error("Reconcile chargebacks failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.ReconcileChargebacksResponse{Removed: removed})
}

func (c *BatchController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
