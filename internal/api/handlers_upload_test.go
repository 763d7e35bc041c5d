package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taxi-insights/backend/internal/intake"
	"github.com/taxi-insights/backend/internal/models"
	"github.com/taxi-insights/backend/internal/testutil"
)

const sampleCSV = "id,vendor_id,pickup_datetime\nid0001,1,2016-03-14 17:24:55\n"

func (s *testServer) upload(t *testing.T, field, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, field, filename, content)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	return s.do(req)
}

func TestHandleUpload(t *testing.T) {
	srv := newTestServer(t, false)

	rec := srv.upload(t, "file", "train.csv", []byte(sampleCSV))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var receipt models.JobReceipt
	decodeJSON(t, rec, &receipt)
	assert.Equal(t, intake.UploadedMessage, receipt.Message)
	assert.True(t, strings.HasSuffix(receipt.Key, "_train.csv"), receipt.Key)
	assert.NotEmpty(t, receipt.MessageID)

	data, ok := srv.store.Object(testBucket, receipt.Key)
	require.True(t, ok)
	assert.Equal(t, sampleCSV, string(data))

	msgs := srv.queue.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, testQueue, msgs[0].Target)

	var job models.JobMessage
	require.NoError(t, json.Unmarshal(msgs[0].Body, &job))
	assert.Equal(t, models.JobMessage{Key: receipt.Key, Bucket: testBucket, GroupTag: models.JobGroupTag}, job)
}

func TestHandleUpload_SanitizesFilename(t *testing.T) {
	srv := newTestServer(t, false)

	rec := srv.upload(t, "file", "../../etc/my trips.csv", []byte(sampleCSV))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var receipt models.JobReceipt
	decodeJSON(t, rec, &receipt)
	assert.True(t, strings.HasSuffix(receipt.Key, "_my_trips.csv"), receipt.Key)
	assert.NotContains(t, receipt.Key, "/")
}

func TestHandleUpload_Rejected(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		filename string
		wantErr  string
	}{
		{"no file part", "", "", "No file part in the request"},
		{"wrong field name", "upload", "train.csv", "No file part in the request"},
		{"empty filename", "file", "", "No file selected"},
		{"unusable filename", "file", "../..", "Filename contains no usable characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, false)

			rec := srv.upload(t, tt.field, tt.filename, []byte(sampleCSV))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantErr, errorMessage(t, rec))
			assert.Empty(t, srv.store.PutKeys())
			assert.Empty(t, srv.queue.Messages())
		})
	}
}

func TestHandleUpload_StoreFailure(t *testing.T) {
	srv := newTestServer(t, false)
	srv.store.PutErr = errors.New("AccessDenied: bucket policy")

	rec := srv.upload(t, "file", "train.csv", []byte(sampleCSV))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "AccessDenied: bucket policy", errorMessage(t, rec))
	assert.Empty(t, srv.queue.Messages(), "no job is queued when the store rejects the object")
}

func TestHandleUpload_QueueFailure(t *testing.T) {
	srv := newTestServer(t, false)
	srv.queue.SendErr = errors.New("queue does not exist")

	rec := srv.upload(t, "file", "train.csv", []byte(sampleCSV))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "queue does not exist", errorMessage(t, rec))

	// The object stays behind.
	assert.Len(t, srv.store.PutKeys(), 1)
}

func TestHandleTriggerJob(t *testing.T) {
	srv := newTestServer(t, false)

	first := srv.postJSON("/trigger_job", `{"s3_key":"abc_train.csv"}`)
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	second := srv.postJSON("/trigger_job", `{"s3_key":"abc_train.csv"}`)
	require.Equal(t, http.StatusOK, second.Code)

	var r1, r2 models.JobReceipt
	decodeJSON(t, first, &r1)
	decodeJSON(t, second, &r2)

	assert.Equal(t, intake.TriggeredMessage, r1.Message)
	assert.Equal(t, "abc_train.csv", r1.Key)
	assert.NotEqual(t, r1.MessageID, r2.MessageID)

	msgs := srv.queue.Messages()
	require.Len(t, msgs, 2)
	assert.NotEqual(t, msgs[0].DeduplicationID, msgs[1].DeduplicationID)
}

func TestHandleTriggerJob_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"malformed json", `{"s3_key":`, "Request body must be a JSON object with an s3_key"},
		{"not an object", `["abc"]`, "Request body must be a JSON object with an s3_key"},
		{"missing key", `{}`, "s3_key is required"},
		{"blank key", `{"s3_key":"   "}`, "s3_key is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, false)

			rec := srv.postJSON("/trigger_job", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantErr, errorMessage(t, rec))
			assert.Empty(t, srv.queue.Messages())
		})
	}
}

func TestHandleTriggerJob_VerifiedKeys(t *testing.T) {
	store := testutil.NewMockStore()
	store.AddObject(testBucket, "known.csv", []byte(sampleCSV))
	sender := testutil.NewMockQueue()

	svc := intake.NewService(store, sender, intake.Config{
		Bucket:            testBucket,
		QueueTarget:       testQueue,
		VerifyTriggerKeys: true,
	}, nil)
	h := NewIntakeHandler(svc)

	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	e.POST("/trigger_job", h.HandleTriggerJob)

	tests := []struct {
		key        string
		wantStatus int
	}{
		{"known.csv", http.StatusOK},
		{"missing.csv", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/trigger_job", strings.NewReader(`{"s3_key":"`+tt.key+`"}`))
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantStatus == http.StatusNotFound {
				assert.Contains(t, errorMessage(t, rec), "missing.csv")
			}
		})
	}
	assert.Len(t, sender.Messages(), 1)
}
