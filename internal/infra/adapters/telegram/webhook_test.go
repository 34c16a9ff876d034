//go:build !integration

package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"lingua-telegram/internal/infra/worker"
)

// inlineSubmitter runs tasks synchronously, or refuses them with Err.
type inlineSubmitter struct{ Err error }

func (s *inlineSubmitter) Submit(task worker.Task) error {
	if s.Err != nil {
		return s.Err
	}
	return task(context.Background())
}

const sampleUpdate = `{"update_id":77,"message":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"},"from":{"id":42,"is_bot":false,"first_name":"A"},"text":"hi"}}`

func TestWebhookHandler(t *testing.T) {
	cases := []struct {
		name       string
		method     string
		secret     string
		body       string
		submitErr  error
		wantStatus int
		wantIDs    []int
	}{
		{"accepted", http.MethodPost, "s3cret", sampleUpdate, nil, http.StatusOK, []int{77}},
		{"wrong secret", http.MethodPost, "nope", sampleUpdate, nil, http.StatusForbidden, nil},
		{"missing secret", http.MethodPost, "", sampleUpdate, nil, http.StatusForbidden, nil},
		{"bad json", http.MethodPost, "s3cret", "{", nil, http.StatusBadRequest, nil},
		{"queue full", http.MethodPost, "s3cret", sampleUpdate, worker.ErrQueueFull, http.StatusServiceUnavailable, nil},
		{"get", http.MethodGet, "s3cret", "", nil, http.StatusMethodNotAllowed, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := &recordingHandler{}
			wh := NewWebhookHandler("s3cret", h, &inlineSubmitter{Err: tc.submitErr}, testLogger())

			req := httptest.NewRequest(tc.method, "/telegram/webhook", strings.NewReader(tc.body))
			if tc.secret != "" {
				req.Header.Set(SecretHeader, tc.secret)
			}
			rec := httptest.NewRecorder()
			wh.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if got := h.ids(); !reflect.DeepEqual(got, tc.wantIDs) {
				t.Errorf("handled = %v, want %v", got, tc.wantIDs)
			}
		})
	}
}

func TestWebhookHandler_NoSecretConfigured(t *testing.T) {
	h := &recordingHandler{}
	wh := NewWebhookHandler("", h, &inlineSubmitter{}, testLogger())

	rec := httptest.NewRecorder()
	wh.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(sampleUpdate)))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}
