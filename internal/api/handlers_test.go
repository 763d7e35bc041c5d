package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/stretchr/testify/require"
	"github.com/taxi-insights/backend/internal/database"
	"github.com/taxi-insights/backend/internal/graph"
	"github.com/taxi-insights/backend/internal/intake"
	"github.com/taxi-insights/backend/internal/testutil"
	"github.com/taxi-insights/backend/internal/trips"
)

const (
	testBucket = "nyc-taxi-raw"
	testQueue  = "https://sqs.ap-south-1.amazonaws.com/123456789012/etl-jobs.fifo"
)

// testServer wires the full route table over an in-memory database and
// in-memory store and queue fakes.
type testServer struct {
	e     *echo.Echo
	db    *database.DB
	store *testutil.MockStore
	queue *testutil.MockQueue
}

func newTestServer(t *testing.T, seed bool) *testServer {
	t.Helper()

	db := testutil.NewTestDB(t)
	if seed {
		vendors, sample := testutil.SampleTrips()
		testutil.InsertVendors(t, db, vendors...)
		testutil.InsertTrips(t, db, sample...)
	}

	repo := trips.NewRepository(db.Dialect)
	schema, err := graph.NewSchema(repo)
	require.NoError(t, err)

	quiet := log.New("test")
	quiet.SetOutput(io.Discard)

	store := testutil.NewMockStore()
	sender := testutil.NewMockQueue()
	svc := intake.NewService(store, sender, intake.Config{Bucket: testBucket, QueueTarget: testQueue}, quiet)

	e := echo.New()
	e.Logger.SetOutput(io.Discard)
	e.HTTPErrorHandler = ErrorHandler

	handlers := NewHandlers(&Dependencies{
		DB:      db.DB,
		Repo:    repo,
		Intake:  svc,
		Graph:   schema,
		Version: "test",
	})
	RegisterRoutes(e, handlers, db.DB)

	return &testServer{e: e, db: db, store: store, queue: sender}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) get(path string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	return s.do(req)
}

func (s *testServer) postJSON(path string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return s.do(req)
}

// multipartBody builds a form with one file part. An empty field name
// produces a form with no file part at all.
func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	if field != "" {
		part, err := writer.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	} else {
		require.NoError(t, writer.WriteField("note", "no file here"))
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	decodeJSON(t, rec, &body)
	return body["error"]
}
