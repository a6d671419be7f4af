package mapper

import (
	"github.com/vibast-solutions/ms-go-billing/app/csvmap"
	"github.com/vibast-solutions/ms-go-billing/app/entity"
	"github.com/vibast-solutions/ms-go-billing/app/service"
	"github.com/vibast-solutions/ms-go-billing/app/types"
)

func BatchToStatusResponse(item *entity.Batch) *types.BatchStatusResponse {
	if item == nil {
		return nil
	}

	progress := service.BatchProgress(item)

	return &types.BatchStatusResponse{
		Id:             item.ID,
		Status:         entity.BatchStatusLabel(item.Status),
		Total:          progress.Total,
		Processed:      progress.Processed,
		Percentage:     progress.Percentage,
		RecordLimit:    progress.RecordLimit,
		EffectiveLimit: progress.EffectiveLimit,
	}
}

func BatchesToListResponse(items []*entity.Batch) *types.ListBatchesResponse {
	batches := make([]*types.BatchStatusResponse, 0, len(items))
	for _, item := range items {
		batches = append(batches, BatchToStatusResponse(item))
	}
	return &types.ListBatchesResponse{Batches: batches}
}

func DetectionToUploadResponse(batch *entity.Batch, detection *csvmap.Detection) *types.UploadBatchResponse {
	if batch == nil || detection == nil {
		return nil
	}

	return &types.UploadBatchResponse{
		BatchId:      batch.ID,
		TotalRecords: batch.TotalRecords,
		ColumnMapping: &types.ColumnMappingResponse{
			HasHeader: detection.Mapping.HasHeader,
			Iban:      int32(detection.Mapping.IBANColumn),
			FirstName: columnIndex(detection.Mapping.FirstNameColumn),
			LastName:  columnIndex(detection.Mapping.LastNameColumn),
			Bic:       columnIndex(detection.Mapping.BICColumn),
		},
		Preview: detection.Preview,
	}
}

func columnIndex(column *int) *int32 {
	if column == nil {
		return nil
	}
	v := int32(*column)
	return &v
}
