package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"translation-dispatch/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTranslations struct {
	translated []*domain.Task
	records    map[string]*domain.DecodeRecord
	err        error
}

func (s *stubTranslations) Translate(_ context.Context, task *domain.Task) (domain.Histories, error) {
	if s.err != nil {
		return nil, s.err
	}
	task.ID = "generated"
	s.translated = append(s.translated, task)
	histories := make(domain.Histories, len(task.Sentences))
	for i, sentence := range task.Sentences {
		histories[i] = domain.History{SentenceID: sentence.ID, Translation: strings.ToUpper(sentence.Text), ModelID: task.TaskID}
	}
	return histories, nil
}

func (s *stubTranslations) Submit(_ context.Context, task *domain.Task) (*domain.DecodeRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	if task.ID == "" {
		task.ID = "queued-1"
	}
	record := domain.NewDecodeRecord(task, time.Now())
	s.records[record.ID] = record
	return record, nil
}

func (s *stubTranslations) GetRecord(_ context.Context, id string) (*domain.DecodeRecord, error) {
	record, ok := s.records[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return record, nil
}

func (s *stubTranslations) ListRecords(_ context.Context, page, pageSize int) ([]*domain.DecodeRecord, error) {
	return []*domain.DecodeRecord{{ID: fmt.Sprintf("page-%d-size-%d", page, pageSize)}}, nil
}

type stubModels struct {
	models map[int64]*domain.Model
	err    error
}

func (s *stubModels) Publish(_ context.Context, model *domain.Model) error {
	if s.err != nil {
		return s.err
	}
	s.models[model.ID] = model
	return nil
}

func (s *stubModels) Get(_ context.Context, id int64) (*domain.Model, error) {
	model, ok := s.models[id]
	if !ok {
		return nil, domain.ErrModelNotFound
	}
	return model, nil
}

func (s *stubModels) List(context.Context) ([]*domain.Model, error) {
	out := make([]*domain.Model, 0, len(s.models))
	for _, m := range s.models {
		out = append(out, m)
	}
	return out, nil
}

func (s *stubModels) Delete(_ context.Context, id int64) error {
	if _, ok := s.models[id]; !ok {
		return domain.ErrModelNotFound
	}
	delete(s.models, id)
	return nil
}

func newTestMux(translations *stubTranslations, models *stubModels) *http.ServeMux {
	logger := slog.New(slog.DiscardHandler)
	mux := http.NewServeMux()
	NewTranslateHandler(translations, logger).RegisterRoutes(mux)
	NewModelHandler(models, logger).RegisterRoutes(mux)
	return mux
}

func do(mux http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestTranslateHandler_Translate(t *testing.T) {
	translations := &stubTranslations{records: map[string]*domain.DecodeRecord{}}
	mux := newTestMux(translations, &stubModels{})

	rec := do(mux, http.MethodPost, "/translate", `{"task_id":7,"sentences":["hello world","bye"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp TranslateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "generated", resp.ID)
	assert.Equal(t, int64(7), resp.TaskID)
	require.Len(t, resp.Histories, 2)
	assert.Equal(t, "HELLO WORLD", resp.Histories[0].Translation)
	assert.Equal(t, 1, resp.Histories[1].SentenceID)
}

func TestTranslateHandler_Validation(t *testing.T) {
	mux := newTestMux(&stubTranslations{records: map[string]*domain.DecodeRecord{}}, &stubModels{})

	tests := []struct {
		name string
		body string
	}{
		{"empty batch", `{"task_id":7,"sentences":[]}`},
		{"missing sentences", `{"task_id":7}`},
		{"blank sentence", `{"task_id":7,"sentences":["ok",""]}`},
		{"negative task id", `{"task_id":-1,"sentences":["x"]}`},
		{"not json", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(mux, http.MethodPost, "/translate", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestTranslateHandler_ErrorStatuses(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrNoWorkers, http.StatusServiceUnavailable},
		{domain.ErrEngineUnavailable, http.StatusUnprocessableEntity},
		{domain.ErrInvalidTask, http.StatusBadRequest},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{domain.ErrDecodeFailed, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			mux := newTestMux(&stubTranslations{err: tt.err}, &stubModels{})
			rec := do(mux, http.MethodPost, "/translate", `{"task_id":1,"sentences":["x"]}`)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestTranslateHandler_SubmitAndGet(t *testing.T) {
	mux := newTestMux(&stubTranslations{records: map[string]*domain.DecodeRecord{}}, &stubModels{})

	rec := do(mux, http.MethodPost, "/tasks", `{"id":"job-9","task_id":3,"sentences":["a","b"]}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "/tasks/job-9", rec.Header().Get("Location"))

	rec = do(mux, http.MethodGet, "/tasks/job-9", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var record domain.DecodeRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &record))
	assert.Equal(t, domain.RecordStatusQueued, record.Status)
	assert.Equal(t, 2, record.SentenceCount)

	rec = do(mux, http.MethodGet, "/tasks/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTranslateHandler_ListPaging(t *testing.T) {
	mux := newTestMux(&stubTranslations{records: map[string]*domain.DecodeRecord{}}, &stubModels{})

	rec := do(mux, http.MethodGet, "/tasks?page=2&pageSize=500", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "page-2-size-20")
}

const validModel = `{"name":"en-es","lexicon":{"hello":[{"target":"hola","prob":0.9}]},"unknown_log_prob":-10,"max_sentence_length":50}`

func TestModelHandler_Lifecycle(t *testing.T) {
	models := &stubModels{models: map[int64]*domain.Model{}}
	mux := newTestMux(&stubTranslations{}, models)

	rec := do(mux, http.MethodPut, "/models/7", validModel)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, models.models, int64(7))
	assert.Equal(t, "hola", models.models[7].Lexicon["hello"][0].Target)

	rec = do(mux, http.MethodGet, "/models/7", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(mux, http.MethodGet, "/models", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []domain.Model
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = do(mux, http.MethodDelete, "/models/7", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(mux, http.MethodGet, "/models/7", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestModelHandler_Validation(t *testing.T) {
	mux := newTestMux(&stubTranslations{}, &stubModels{models: map[int64]*domain.Model{}})

	tests := []struct {
		name   string
		target string
		body   string
	}{
		{"bad id", "/models/abc", validModel},
		{"negative id", "/models/-1", validModel},
		{"probability above one", "/models/1", `{"name":"m","lexicon":{"a":[{"target":"b","prob":1.5}]},"unknown_log_prob":-1,"max_sentence_length":5}`},
		{"no candidates", "/models/1", `{"name":"m","lexicon":{"a":[]},"unknown_log_prob":-1,"max_sentence_length":5}`},
		{"positive unknown penalty", "/models/1", `{"name":"m","lexicon":{"a":[{"target":"b","prob":0.5}]},"unknown_log_prob":1,"max_sentence_length":5}`},
		{"empty lexicon", "/models/1", `{"name":"m","lexicon":{},"unknown_log_prob":-1,"max_sentence_length":5}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(mux, http.MethodPut, tt.target, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestModelHandler_PublishConflict(t *testing.T) {
	mux := newTestMux(&stubTranslations{}, &stubModels{models: map[int64]*domain.Model{}, err: domain.ErrLockNotAcquired})

	rec := do(mux, http.MethodPut, "/models/1", validModel)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandlers_RejectOversizedBody(t *testing.T) {
	translations := &stubTranslations{records: map[string]*domain.DecodeRecord{}}
	models := &stubModels{models: map[int64]*domain.Model{}}
	mux := newTestMux(translations, models)
	huge := strings.Repeat("a", maxBodyBytes)

	tests := []struct {
		name   string
		method string
		target string
		body   string
	}{
		{"translate", http.MethodPost, "/translate", `{"task_id":7,"sentences":["` + huge + `"]}`},
		{"submit", http.MethodPost, "/tasks", `{"task_id":7,"sentences":["` + huge + `"]}`},
		{"publish model", http.MethodPut, "/models/1", `{"name":"` + huge + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(mux, tt.method, tt.target, tt.body)
			assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		})
	}
	assert.Empty(t, translations.translated)
	assert.Empty(t, translations.records)
	assert.Empty(t, models.models)
}
