package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/arkstore/catalog-module/internal/delivery"
	"github.com/arkstore/catalog-module/internal/service"
)

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
		wantErr    bool
	}{
		{"дефолты", "", 100, 0, false},
		{"явные значения", "limit=50&offset=200", 50, 200, false},
		{"нижняя граница limit", "limit=1", 1, 0, false},
		{"верхняя граница limit", "limit=1000", 1000, 0, false},
		{"limit ноль отклоняется", "limit=0", 0, 0, true},
		{"limit сверх максимума отклоняется", "limit=1001", 0, 0, true},
		{"отрицательный limit отклоняется", "limit=-5", 0, 0, true},
		{"limit не число", "limit=abc", 0, 0, true},
		{"отрицательный offset отклоняется", "offset=-1", 0, 0, true},
		{"offset не число", "offset=1.5", 0, 0, true},
		{"offset ноль валиден", "offset=0", 100, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/v1/entities?"+tt.query, nil)
			limit, offset, err := parsePagination(r)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("ожидалась ошибка для %q", tt.query)
				}
				return
			}
			if err != nil {
				t.Fatalf("parsePagination: %v", err)
			}
			if limit != tt.wantLimit || offset != tt.wantOffset {
				t.Errorf("ожидалось (%d, %d), получено (%d, %d)",
					tt.wantLimit, tt.wantOffset, limit, offset)
			}
		})
	}
}

func TestSplitCSV(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b ", []string{"a", "b"}},
		{"a,,b", []string{"a", "b"}},
		{"", []string{}},
		{"https://schema.org/MediaObject", []string{"https://schema.org/MediaObject"}},
	}

	for _, tt := range tests {
		if got := splitCSV(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitCSV(%q) = %v, ожидалось %v", tt.in, got, tt.want)
		}
	}
}

func TestPathID(t *testing.T) {
	// Идентификаторы каталога — URI, в пути они percent-encoded.
	newRequest := func(rawParam string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/entity/x", nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", rawParam)
		return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}

	id, err := pathID(newRequest("arcp%3A%2F%2Fname%2Ccorpus%2Fitem%2F1"))
	if err != nil {
		t.Fatalf("pathID: %v", err)
	}
	if id != "arcp://name,corpus/item/1" {
		t.Errorf("неверное декодирование: %q", id)
	}

	if _, err := pathID(newRequest("")); err == nil {
		t.Error("пустой идентификатор должен отклоняться")
	}
	if _, err := pathID(newRequest("%zz")); err == nil {
		t.Error("битая percent-последовательность должна отклоняться")
	}
}

func TestHandleServiceError(t *testing.T) {
	h := &APIHandler{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{
			name:        "запись не найдена",
			err:         service.ErrNotFound,
			wantStatus:  http.StatusNotFound,
			wantCode:    "NOT_FOUND",
			wantMessage: "Запись не найдена",
		},
		{
			name:        "закрытая лицензия",
			err:         fmt.Errorf("контент файла arcp://name,corpus/closed: %w", service.ErrForbidden),
			wantStatus:  http.StatusForbidden,
			wantCode:    "FORBIDDEN",
			wantMessage: "Доступ к контенту запрещён",
		},
		{
			name:        "контент недоступен",
			err:         errors.Join(delivery.ErrUnavailable, errors.New("дериват не сгенерирован")),
			wantStatus:  http.StatusNotFound,
			wantCode:    "NOT_FOUND",
			wantMessage: "Контент недоступен",
		},
		{
			name:        "внутренняя ошибка не утекает клиенту",
			err:         errors.New("пароль БД неверен"),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    "INTERNAL_ERROR",
			wantMessage: "Внутренняя ошибка сервера",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.handleServiceError(rec, tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("ожидался статус %d, получен %d", tt.wantStatus, rec.Code)
			}

			var body struct {
				Error struct {
					Code    string `json:"code"`
					Message string `json:"message"`
				} `json:"error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("тело не JSON: %v", err)
			}
			if body.Error.Code != tt.wantCode {
				t.Errorf("ожидался код %q, получен %q", tt.wantCode, body.Error.Code)
			}
			if body.Error.Message != tt.wantMessage {
				t.Errorf("ожидалось сообщение %q, получено %q", tt.wantMessage, body.Error.Message)
			}
		})
	}
}

func TestHandleServiceErrorDevMode(t *testing.T) {
	h := &APIHandler{
		devErrors: true,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	rec := httptest.NewRecorder()
	h.handleServiceError(rec, errors.New("подробности сбоя"))

	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("тело не JSON: %v", err)
	}
	if body.Error.Message != "подробности сбоя" {
		t.Errorf("в dev-режиме текст ошибки отдаётся клиенту: %q", body.Error.Message)
	}
}
