package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DevDeskHQ/devdesk_api/internal/models"
	"github.com/DevDeskHQ/devdesk_api/internal/repository"
	"github.com/DevDeskHQ/devdesk_api/internal/service"
)

// scriptedGenerator feeds canned fragments (and optionally a terminal error)
// through the TextGenerator seam.
type scriptedGenerator struct {
	fragments []string
	err       error
}

func (g *scriptedGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	return strings.Join(g.fragments, ""), g.err
}

func (g *scriptedGenerator) GenerateStream(ctx context.Context, system, prompt string) (<-chan string, <-chan error) {
	textChan := make(chan string, len(g.fragments))
	errChan := make(chan error, 1)
	go func() {
		defer close(textChan)
		defer close(errChan)
		for _, frag := range g.fragments {
			textChan <- frag
		}
		if g.err != nil {
			errChan <- g.err
		}
	}()
	return textChan, errChan
}

func newStreamRouter(t *testing.T, gen service.TextGenerator) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	activity := service.NewActivityService(repository.NewActivityRepository(sqlxDB), nil, nil)
	h := NewDocumentHandler(service.NewDocumentService(gen), activity)

	router := gin.New()
	router.POST("/v1/documents/refine/stream",
		func(c *gin.Context) {
			c.Set("user", &models.User{ID: 1, Name: "Admin", Role: models.RoleAdmin})
		},
		h.Stream,
	)
	return router, mock
}

func postStream(t *testing.T, router *gin.Engine) *httptest.ResponseRecorder {
	t.Helper()
	body := `{"kind":"skill","name":"helper","description":"a helper"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/documents/refine/stream", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeEvents(t *testing.T, body string) []StreamEvent {
	t.Helper()
	var events []StreamEvent
	for _, line := range strings.Split(body, "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev StreamEvent
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
		events = append(events, ev)
	}
	return events
}

func TestDocumentStreamRelaysChunksAndCompletes(t *testing.T) {
	gen := &scriptedGenerator{fragments: []string{"```\n", "# Helper", "\n```"}}
	router, mock := newStreamRouter(t, gen)

	mock.ExpectQuery(`INSERT INTO activity_logs`).
		WithArgs(1, "Admin", "refine_document", sqlmock.AnyArg(), "info").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, time.Now()))

	rec := postStream(t, router)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	events := decodeEvents(t, rec.Body.String())
	require.Len(t, events, 4)
	for i, want := range []string{"```\n", "# Helper", "\n```"} {
		assert.Equal(t, "chunk", events[i].Type)
		assert.Equal(t, want, events[i].Text)
	}

	// The terminal event carries the assembled, fence-stripped document.
	final := events[3]
	assert.Equal(t, "complete", final.Type)
	assert.Equal(t, "# Helper", final.Text)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentStreamDeliversProviderErrorInStream(t *testing.T) {
	gen := &scriptedGenerator{
		fragments: []string{"partial "},
		err:       errors.New("overloaded"),
	}
	router, mock := newStreamRouter(t, gen)

	rec := postStream(t, router)

	// The status is committed at 200 before the failure; the error arrives as
	// an event inside the stream instead.
	assert.Equal(t, http.StatusOK, rec.Code)

	events := decodeEvents(t, rec.Body.String())
	require.Len(t, events, 2)
	assert.Equal(t, "chunk", events[0].Type)
	assert.Equal(t, "error", events[1].Type)
	assert.NotEmpty(t, events[1].Message)
	for _, ev := range events {
		assert.NotEqual(t, "complete", ev.Type)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentStreamRejectsInvalidBody(t *testing.T) {
	router, mock := newStreamRouter(t, &scriptedGenerator{})

	req := httptest.NewRequest(http.MethodPost, "/v1/documents/refine/stream", strings.NewReader(`{"kind":"poem"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
	assert.NoError(t, mock.ExpectationsWereMet())
}
