package types

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/vibast-solutions/ms-go-billing/app/entity"
)

type HealthResponse struct {
	Status string `json:"status"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// DuplicateSyncResponse rejects a sync while another one holds the batch
// lock.
type DuplicateSyncResponse struct {
	Duplicate bool   `json:"duplicate"`
	Error     string `json:"error"`
}

// VerificationRequiredResponse rejects a sync with the exact verified/pending
// candidate split when the VOP gate is open.
type VerificationRequiredResponse struct {
	VopRequired bool   `json:"vop_required"`
	VopVerified int32  `json:"vop_verified"`
	VopPending  int32  `json:"vop_pending"`
	Error       string `json:"error"`
}

type ColumnMappingResponse struct {
	HasHeader bool   `json:"has_header"`
	Iban      int32  `json:"iban"`
	FirstName *int32 `json:"first_name"`
	LastName  *int32 `json:"last_name"`
	Bic       *int32 `json:"bic"`
}

type UploadBatchResponse struct {
	BatchId       uint64                 `json:"batch_id"`
	TotalRecords  int32                  `json:"total_records"`
	ColumnMapping *ColumnMappingResponse `json:"column_mapping"`
	Preview       [][]string             `json:"preview"`
}

type BatchStatusResponse struct {
	Id             uint64  `json:"id"`
	Status         string  `json:"status"`
	Total          int32   `json:"total"`
	Processed      int32   `json:"processed"`
	Percentage     float64 `json:"percentage"`
	RecordLimit    *int32  `json:"record_limit"`
	EffectiveLimit int32   `json:"effective_limit"`
}

type ListBatchesResponse struct {
	Batches []*BatchStatusResponse `json:"batches"`
}

type SyncBatchResponse struct {
	Eligible int32 `json:"eligible"`
	Queued   bool  `json:"queued"`
}

type ReconcileChargebacksResponse struct {
	Removed int64 `json:"removed"`
}

type UploadBatchRequest struct {
	CallerService string
	Filename      string
	Content       string
}

func (r *UploadBatchRequest) GetCallerService() string {
	if r == nil {
		return ""
	}
	return r.CallerService
}

func (r *UploadBatchRequest) GetFilename() string {
	if r == nil {
		return ""
	}
	return r.Filename
}

func (r *UploadBatchRequest) GetContent() string {
	if r == nil {
		return ""
	}
	return r.Content
}

// NewUploadBatchRequestFromContext reads a multipart upload (field "file"),
// falling back to the raw request body with a filename query parameter.
// A maxBytes of zero or less means no size limit.
func NewUploadBatchRequestFromContext(ctx echo.Context, maxBytes int64) (*UploadBatchRequest, error) {
	req := &UploadBatchRequest{
		CallerService: strings.TrimSpace(ctx.FormValue("caller_service")),
	}

	if fileHeader, err := ctx.FormFile("file"); err == nil {
		if maxBytes > 0 && fileHeader.Size > maxBytes {
			return nil, errors.New("file exceeds the maximum upload size")
		}
		src, err := fileHeader.Open()
		if err != nil {
			return nil, err
		}
		defer src.Close()

		data, err := readBounded(src, maxBytes)
		if err != nil {
			return nil, err
		}

		req.Filename = strings.TrimSpace(fileHeader.Filename)
		req.Content = string(data)
		return req, nil
	}

	data, err := readBounded(ctx.Request().Body, maxBytes)
	if err != nil {
		return nil, err
	}

	req.Filename = strings.TrimSpace(ctx.QueryParam("filename"))
	req.Content = string(data)
	if req.CallerService == "" {
		req.CallerService = strings.TrimSpace(ctx.QueryParam("caller_service"))
	}
	return req, nil
}

func readBounded(r io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, errors.New("file exceeds the maximum upload size")
	}
	return data, nil
}

func (r *UploadBatchRequest) Validate() error {
	if strings.TrimSpace(r.GetCallerService()) == "" {
		return errors.New("caller_service is required")
	}
	if strings.TrimSpace(r.GetFilename()) == "" {
		return errors.New("filename is required")
	}
	if strings.TrimSpace(r.GetContent()) == "" {
		return errors.New("file content is required")
	}
	return nil
}

type GetBatchRequest struct {
	Id uint64
}

func (r *GetBatchRequest) GetId() uint64 {
	if r == nil {
		return 0
	}
	return r.Id
}

func NewGetBatchRequestFromContext(ctx echo.Context) (*GetBatchRequest, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return nil, err
	}
	return &GetBatchRequest{Id: id}, nil
}

func (r *GetBatchRequest) Validate() error {
	if r.GetId() == 0 {
		return errors.New("invalid batch id")
	}
	return nil
}

type StartBatchRequest struct {
	Id          uint64 `json:"-"`
	RecordLimit *int32 `json:"record_limit"`
}

func (r *StartBatchRequest) GetId() uint64 {
	if r == nil {
		return 0
	}
	return r.Id
}

func (r *StartBatchRequest) GetHasRecordLimit() bool {
	return r != nil && r.RecordLimit != nil
}

func (r *StartBatchRequest) GetRecordLimit() int32 {
	if r == nil || r.RecordLimit == nil {
		return 0
	}
	return *r.RecordLimit
}

func NewStartBatchRequestFromContext(ctx echo.Context) (*StartBatchRequest, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return nil, err
	}

	var body StartBatchRequest
	if err = ctx.Bind(&body); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	body.Id = id

	return &body, nil
}

func (r *StartBatchRequest) Validate() error {
	if r.GetId() == 0 {
		return errors.New("invalid batch id")
	}
	return nil
}

type VerifyDebtorRequest struct {
	Id       uint64 `json:"-"`
	DebtorId uint64 `json:"-"`
	Outcome  string `json:"outcome"`
}

func (r *VerifyDebtorRequest) GetId() uint64 {
	if r == nil {
		return 0
	}
	return r.Id
}

func (r *VerifyDebtorRequest) GetDebtorId() uint64 {
	if r == nil {
		return 0
	}
	return r.DebtorId
}

func (r *VerifyDebtorRequest) GetOutcome() string {
	if r == nil {
		return ""
	}
	return r.Outcome
}

func NewVerifyDebtorRequestFromContext(ctx echo.Context) (*VerifyDebtorRequest, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return nil, err
	}
	debtorID, err := strconv.ParseUint(ctx.Param("debtor_id"), 10, 64)
	if err != nil {
		return nil, err
	}

	var body VerifyDebtorRequest
	if err = ctx.Bind(&body); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	body.Id = id
	body.DebtorId = debtorID

	return &body, nil
}

func (r *VerifyDebtorRequest) Validate() error {
	if r.GetId() == 0 || r.GetDebtorId() == 0 {
		return errors.New("invalid batch or debtor id")
	}
	return nil
}

type ListBatchesRequest struct {
	CallerService string
	HasStatus     bool
	Status        int32
	Limit         int32
	Offset        int32
}

func (r *ListBatchesRequest) GetCallerService() string {
	if r == nil {
		return ""
	}
	return r.CallerService
}

func (r *ListBatchesRequest) GetHasStatus() bool {
	return r != nil && r.HasStatus
}

func (r *ListBatchesRequest) GetStatus() int32 {
	if r == nil {
		return 0
	}
	return r.Status
}

func (r *ListBatchesRequest) GetLimit() int32 {
	if r == nil {
		return 0
	}
	return r.Limit
}

func (r *ListBatchesRequest) GetOffset() int32 {
	if r == nil {
		return 0
	}
	return r.Offset
}

func NewListBatchesRequestFromContext(ctx echo.Context) (*ListBatchesRequest, error) {
	req := &ListBatchesRequest{
		CallerService: strings.TrimSpace(ctx.QueryParam("caller_service")),
		Limit:         100,
		Offset:        0,
	}

	statusRaw := strings.TrimSpace(strings.ToLower(ctx.QueryParam("status")))
	if statusRaw != "" {
		status, err := batchStatusFromLabel(statusRaw)
		if err != nil {
			return nil, err
		}
		req.HasStatus = true
		req.Status = status
	}

	if limitRaw := strings.TrimSpace(ctx.QueryParam("limit")); limitRaw != "" {
		limit, err := strconv.ParseInt(limitRaw, 10, 32)
		if err != nil {
			return nil, err
		}
		req.Limit = int32(limit)
	}

	if offsetRaw := strings.TrimSpace(ctx.QueryParam("offset")); offsetRaw != "" {
		offset, err := strconv.ParseInt(offsetRaw, 10, 32)
		if err != nil {
			return nil, err
		}
		req.Offset = int32(offset)
	}

	return req, nil
}

func (r *ListBatchesRequest) Validate() error {
	if r.GetLimit() <= 0 || r.GetLimit() > 500 {
		return errors.New("limit must be between 1 and 500")
	}
	if r.GetOffset() < 0 {
		return errors.New("offset must be >= 0")
	}
	return nil
}

func batchStatusFromLabel(label string) (int32, error) {
	switch label {
	case "pending":
		return entity.BatchStatusPending, nil
	case "processing":
		return entity.BatchStatusProcessing, nil
	case "completed":
		return entity.BatchStatusCompleted, nil
	case "failed":
		return entity.BatchStatusFailed, nil
	default:
		return 0, errors.New("invalid status")
	}
}
