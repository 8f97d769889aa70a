package delivery

// negotiator.go — перевод FileResult в поведение на проводе.

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Заголовок offload для reverse proxy (nginx internal redirect).
const accelHeader = "X-Accel-Redirect"

// Prometheus-метрики отдачи контента.
var (
	deliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cm_deliveries_total",
		Help: "Общее количество отдач контента (по варианту результата).",
	}, []string{"variant"})

	deliveryBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cm_delivery_bytes_total",
		Help: "Общее количество байт, переданных процессом приложения.",
	})
)

// Options — параметры отдачи для конкретного запроса.
type Options struct {
	// NoRedirect — клиент не умеет redirects (media players):
	// вместо 302 вернуть 200 с {"location": url}.
	NoRedirect bool
	// Download — download-endpoint: выставлять Content-Disposition.
	// Metadata-endpoints диспозицию не трогают.
	Download bool
	// Disposition — inline или attachment (по умолчанию attachment).
	Disposition string
	// Filename — переопределение имени файла; пустая строка — имя записи.
	Filename string
}

// Negotiator — негоциатор отдачи контента.
type Negotiator struct {
	logger *slog.Logger
}

// NewNegotiator создаёт негоциатор.
func NewNegotiator(logger *slog.Logger) *Negotiator {
	return &Negotiator{
		logger: logger.With(slog.String("component", "delivery")),
	}
}

// WriteResult переводит FileResult в HTTP-ответ.
// Гарантирует закрытие потока/дескриптора на каждом пути выхода.
func (n *Negotiator) WriteResult(w http.ResponseWriter, r *http.Request, result FileResult, opts Options) error {
	switch res := result.(type) {
	case Redirect:
		return n.writeRedirect(w, res, opts)
	case Stream:
		return n.writeStream(w, res, opts)
	case FilePath:
		return n.writeFilePath(w, r, res, opts)
	default:
		return fmt.Errorf("неизвестный вариант FileResult: %T", result)
	}
}

// WriteMetadata выставляет заголовки метаданных без тела (HEAD и
// metadata-endpoints).
func (n *Negotiator) WriteMetadata(w http.ResponseWriter, meta *Metadata) {
	setMetaHeaders(w, *meta)
	w.WriteHeader(http.StatusOK)
}

// writeRedirect — вариант Redirect: 302 + Location, либо 200 с URL в теле
// при NoRedirect.
func (n *Negotiator) writeRedirect(w http.ResponseWriter, res Redirect, opts Options) error {
	deliveriesTotal.WithLabelValues("redirect").Inc()

	if opts.NoRedirect {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		return json.NewEncoder(w).Encode(map[string]string{"location": res.URL})
	}

	w.Header().Set("Location", res.URL)
	w.WriteHeader(http.StatusFound)
	return nil
}

// writeStream — вариант Stream: заголовки + копирование потока.
// Body закрывается всегда, включая ошибку копирования и обрыв клиента.
func (n *Negotiator) writeStream(w http.ResponseWriter, res Stream, opts Options) error {
	defer res.Body.Close()
	deliveriesTotal.WithLabelValues("stream").Inc()

	setMetaHeaders(w, res.Meta)
	setDisposition(w, opts)
	w.WriteHeader(http.StatusOK)

	written, err := io.Copy(w, res.Body)
	deliveryBytesTotal.Add(float64(written))
	if err != nil {
		// Заголовки уже отправлены — клиенту ошибку не вернуть, логируем.
		n.logger.Error("Ошибка streaming отдачи",
			slog.Int64("bytes_written", written),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// writeFilePath — вариант FilePath.
// При непустом AccelPath — только заголовки плюс offload-заголовок,
// пустое тело: байты передаёт frontend reverse proxy.
// Иначе файл открывается и отдаётся через http.ServeContent
// (Range requests, If-None-Match — бесплатно).
func (n *Negotiator) writeFilePath(w http.ResponseWriter, r *http.Request, res FilePath, opts Options) error {
	if res.AccelPath != "" {
		deliveriesTotal.WithLabelValues("accel").Inc()

		setMetaHeaders(w, res.Meta)
		setDisposition(w, opts)
		w.Header().Set(accelHeader, res.AccelPath)
		w.WriteHeader(http.StatusOK)
		return nil
	}

	deliveriesTotal.WithLabelValues("file").Inc()

	file, err := os.Open(res.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: файл отсутствует на диске", ErrUnavailable)
		}
		return fmt.Errorf("открытие файла %s: %w", res.Path, err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat файла %s: %w", res.Path, err)
	}

	if res.Meta.ContentType != "" {
		w.Header().Set("Content-Type", res.Meta.ContentType)
	}
	if res.Meta.ETag != "" {
		w.Header().Set("ETag", strconv.Quote(res.Meta.ETag))
	}
	setDisposition(w, opts)

	name := opts.Filename
	if name == "" {
		name = stat.Name()
	}
	http.ServeContent(w, r, name, stat.ModTime(), file)
	deliveryBytesTotal.Add(float64(stat.Size()))
	return nil
}

// setMetaHeaders выставляет заголовки контента из метаданных.
func setMetaHeaders(w http.ResponseWriter, meta Metadata) {
	if meta.ContentType != "" {
		w.Header().Set("Content-Type", meta.ContentType)
	}
	if meta.ContentLength >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(meta.ContentLength, 10))
	}
	if meta.ETag != "" {
		w.Header().Set("ETag", strconv.Quote(meta.ETag))
	}
	if meta.LastModified != nil {
		w.Header().Set("Last-Modified", meta.LastModified.UTC().Format(http.TimeFormat))
	}
}

// setDisposition выставляет Content-Disposition только для download.
func setDisposition(w http.ResponseWriter, opts Options) {
	if !opts.Download {
		return
	}
	disposition := opts.Disposition
	if disposition != "inline" {
		disposition = "attachment"
	}
	params := map[string]string{}
	if opts.Filename != "" {
		params["filename"] = opts.Filename
	}
	w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, params))
}
