package types

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/vibast-solutions/ms-go-billing/app/entity"
)

func newMultipartUpload(t *testing.T, callerService, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("caller_service", callerService); err != nil {
		t.Fatalf("write field failed: %v", err)
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file failed: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write part failed: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer failed: %v", err)
	}
	return body, writer.FormDataContentType()
}

func TestNewUploadBatchRequestFromContextMultipart(t *testing.T) {
	e := echo.New()
	body, contentType := newMultipartUpload(t, "dunning-service", "debtors.csv", "a,b,c\n")
	req := httptest.NewRequest("POST", "/batches", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	parsed, err := NewUploadBatchRequestFromContext(ctx, 1024)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if parsed.GetCallerService() != "dunning-service" {
		t.Fatalf("unexpected caller service: %q", parsed.GetCallerService())
	}
	if parsed.GetFilename() != "debtors.csv" || parsed.GetContent() != "a,b,c\n" {
		t.Fatalf("unexpected parsed upload: %+v", parsed)
	}
	if err := parsed.Validate(); err != nil {
		t.Fatalf("expected valid upload, got %v", err)
	}
}

func TestNewUploadBatchRequestFromContextRawBody(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("POST", "/batches?filename=debtors.csv&caller_service=dunning-service", bytes.NewBufferString("a,b,c\n"))
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	parsed, err := NewUploadBatchRequestFromContext(ctx, 1024)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if parsed.GetFilename() != "debtors.csv" || parsed.GetContent() != "a,b,c\n" {
		t.Fatalf("unexpected parsed upload: %+v", parsed)
	}
	if parsed.GetCallerService() != "dunning-service" {
		t.Fatalf("unexpected caller service: %q", parsed.GetCallerService())
	}
}

func TestNewUploadBatchRequestFromContextEnforcesSizeLimit(t *testing.T) {
	e := echo.New()
	body, contentType := newMultipartUpload(t, "dunning-service", "debtors.csv", "0123456789")
	req := httptest.NewRequest("POST", "/batches", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	if _, err := NewUploadBatchRequestFromContext(ctx, 5); err == nil {
		t.Fatal("expected size limit error")
	}
}

func TestNewUploadBatchRequestFromContextUnlimited(t *testing.T) {
	content := "first_name,last_name,iban\nJohn,Doe,DE89370400440532013000\n"
	e := echo.New()
	req := httptest.NewRequest("POST", "/batches?filename=debtors.csv&caller_service=dunning-service", bytes.NewBufferString(content))
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	parsed, err := NewUploadBatchRequestFromContext(ctx, 0)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if parsed.GetContent() != content {
		t.Fatalf("content truncated: got %d bytes %q, want %d bytes", len(parsed.GetContent()), parsed.GetContent(), len(content))
	}

	body, contentType := newMultipartUpload(t, "dunning-service", "debtors.csv", content)
	req = httptest.NewRequest("POST", "/batches", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	ctx = e.NewContext(req, httptest.NewRecorder())

	parsed, err = NewUploadBatchRequestFromContext(ctx, 0)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if parsed.GetContent() != content {
		t.Fatalf("multipart content truncated: got %d bytes, want %d bytes", len(parsed.GetContent()), len(content))
	}
}

func TestUploadBatchValidate(t *testing.T) {
	req := &UploadBatchRequest{}
	if err := req.Validate(); err == nil {
		t.Fatal("expected caller_service validation error")
	}

	req.CallerService = "dunning-service"
	if err := req.Validate(); err == nil {
		t.Fatal("expected filename validation error")
	}

	req.Filename = "debtors.csv"
	if err := req.Validate(); err == nil {
		t.Fatal("expected content validation error")
	}

	req.Content = "a,b\n"
	if err := req.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
}

func TestNewStartBatchRequestFromContext(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("POST", "/batches/7/start", bytes.NewBufferString(`{"record_limit":50}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("id")
	ctx.SetParamValues("7")

	parsed, err := NewStartBatchRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if parsed.GetId() != 7 {
		t.Fatalf("unexpected id: %d", parsed.GetId())
	}
	if !parsed.GetHasRecordLimit() || parsed.GetRecordLimit() != 50 {
		t.Fatalf("unexpected record limit: %+v", parsed)
	}
}

func TestNewStartBatchRequestFromContextEmptyBody(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("POST", "/batches/7/start", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("id")
	ctx.SetParamValues("7")

	parsed, err := NewStartBatchRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if parsed.GetHasRecordLimit() {
		t.Fatal("expected no record limit")
	}
	if err := parsed.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
}

func TestNewStartBatchRequestFromContextBadID(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("POST", "/batches/abc/start", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("id")
	ctx.SetParamValues("abc")

	if _, err := NewStartBatchRequestFromContext(ctx); err == nil {
		t.Fatal("expected id parse error")
	}
}

func TestNewListBatchesRequestFromContext(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("GET", "/batches?status=processing&caller_service=dunning-service&limit=20&offset=3", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	parsed, err := NewListBatchesRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !parsed.GetHasStatus() || parsed.GetStatus() != entity.BatchStatusProcessing {
		t.Fatalf("unexpected status parse: %+v", parsed)
	}
	if parsed.GetCallerService() != "dunning-service" {
		t.Fatalf("unexpected caller service: %q", parsed.GetCallerService())
	}
	if parsed.GetLimit() != 20 || parsed.GetOffset() != 3 {
		t.Fatalf("unexpected paging: %+v", parsed)
	}
	if err := parsed.Validate(); err != nil {
		t.Fatalf("expected valid list request, got %v", err)
	}
}

func TestNewListBatchesRequestFromContextInvalidStatus(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("GET", "/batches?status=bogus", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	if _, err := NewListBatchesRequestFromContext(ctx); err == nil {
		t.Fatal("expected status parse error")
	}
}

func TestNewListBatchesRequestFromContextDefaultLimit(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("GET", "/batches", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	parsed, err := NewListBatchesRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if parsed.GetLimit() != 100 || parsed.GetOffset() != 0 {
		t.Fatalf("unexpected defaults: %+v", parsed)
	}
	if err := parsed.Validate(); err != nil {
		t.Fatalf("expected valid list request, got %v", err)
	}
}

func TestListBatchesValidateRejectsBadPaging(t *testing.T) {
	cases := []struct {
		name   string
		limit  int32
		offset int32
	}{
		{name: "zero limit", limit: 0, offset: 0},
		{name: "negative limit", limit: -1, offset: 0},
		{name: "limit over cap", limit: 501, offset: 0},
		{name: "negative offset", limit: 100, offset: -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := &ListBatchesRequest{Limit: tc.limit, Offset: tc.offset}
			if err := req.Validate(); err == nil {
				t.Fatalf("expected validation error for limit=%d offset=%d", tc.limit, tc.offset)
			}
			if req.GetLimit() != tc.limit {
				t.Fatalf("validation must not rewrite the limit, got %d", req.GetLimit())
			}
		})
	}
}

func TestGetBatchRequestValidate(t *testing.T) {
	req := &GetBatchRequest{}
	if err := req.Validate(); err == nil {
		t.Fatal("expected id validation error")
	}
	req.Id = 3
	if err := req.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
}

func TestNilSafeGetters(t *testing.T) {
	var upload *UploadBatchRequest
	if upload.GetCallerService() != "" || upload.GetFilename() != "" || upload.GetContent() != "" {
		t.Fatal("nil upload request getters must return zero values")
	}

	var start *StartBatchRequest
	if start.GetId() != 0 || start.GetHasRecordLimit() || start.GetRecordLimit() != 0 {
		t.Fatal("nil start request getters must return zero values")
	}

	var list *ListBatchesRequest
	if list.GetLimit() != 0 || list.GetHasStatus() {
		t.Fatal("nil list request getters must return zero values")
	}
}
