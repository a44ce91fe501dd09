package handler

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayushsaklani-min/Prediction-market/internal/domain"
)

type stubBlobReader struct {
	objects map[string][]byte
}

func (s *stubBlobReader) Get(_ context.Context, path string) (io.ReadCloser, error) {
	body, ok := s.objects[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

func archiveMarketID(b byte) domain.MarketID {
	var id domain.MarketID
	id[31] = b
	return id
}

func newArchiveHandlerTest(objects map[string][]byte) *ArchiveHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewArchiveHandler(&stubBlobReader{objects: objects}, logger)
}

func serveArchive(h http.HandlerFunc, id string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.SetPathValue("id", id)
	w := httptest.NewRecorder()
	h(w, r)
	return w
}

func TestArchiveHandler_GetTrades(t *testing.T) {
	id := archiveMarketID(1)
	journal := []byte(`{"id":"t1"}` + "\n" + `{"id":"t2"}` + "\n")
	h := newArchiveHandlerTest(map[string][]byte{
		domain.SettlementTradesPath(id): journal,
	})

	w := serveArchive(h.GetTrades, id.String())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/x-ndjson", w.Header().Get("Content-Type"))
	assert.Equal(t, journal, w.Body.Bytes())
}

func TestArchiveHandler_GetResolution(t *testing.T) {
	id := archiveMarketID(2)
	record := []byte(`{"outcome":{"result":"yes"}}`)
	h := newArchiveHandlerTest(map[string][]byte{
		domain.SettlementResolutionPath(id): record,
	})

	w := serveArchive(h.GetResolution, id.String())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, record, w.Body.Bytes())
}

func TestArchiveHandler_NotArchived(t *testing.T) {
	h := newArchiveHandlerTest(nil)

	w := serveArchive(h.GetTrades, archiveMarketID(9).String())
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestArchiveHandler_BadMarketID(t *testing.T) {
	h := newArchiveHandlerTest(nil)

	w := serveArchive(h.GetResolution, "not-a-market")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
