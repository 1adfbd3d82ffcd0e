package ingress

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/kbukum/transcriber/cache"
	"github.com/kbukum/transcriber/dispatch"
	apperrors "github.com/kbukum/transcriber/errors"
	"github.com/kbukum/transcriber/httpclient"
	"github.com/kbukum/transcriber/logger"
	"github.com/kbukum/transcriber/storage"
	"github.com/kbukum/transcriber/task"
	"github.com/kbukum/transcriber/util"
)

// MaxUploadBytes caps source audio from every path.
const MaxUploadBytes int64 = 100 << 20

// Default names for sources that carry no usable file name.
const (
	DefaultUploadName = "uploaded_audio.wav"
	DefaultURLName    = "downloaded_audio.wav"
	DefaultObjectName = "s3_audio.wav"
)

// AcceptedTypes are the audio content types accepted for upload.
var AcceptedTypes = []string{"audio/wav", "audio/x-wav"}

// Fetcher acquires source audio into the cache.
type Fetcher struct {
	cache   *cache.Cache
	client  *httpclient.Client
	objects storage.Storage
	log     *logger.Logger
}

// New creates a Fetcher. objects may be nil when object storage is not
// configured; FetchObject then refuses with NotImplemented.
func New(c *cache.Cache, client *httpclient.Client, objects storage.Storage, log *logger.Logger) *Fetcher {
	return &Fetcher{cache: c, client: client, objects: objects, log: log.WithComponent("ingress")}
}

// CheckUploadType rejects a declared upload content type that is not WAV.
func CheckUploadType(contentType string) error {
	mt, _, err := mime.ParseMediaType(contentType)
	if err == nil {
		for _, t := range AcceptedTypes {
			if strings.EqualFold(mt, t) {
				return nil
			}
		}
	}
	return apperrors.UnsupportedMediaType(contentType, AcceptedTypes...).
		WithDetail("reason", "Only WAV files are accepted.")
}

// Upload saves an uploaded body.
func (f *Fetcher) Upload(body io.Reader, filename string) dispatch.AcquireFunc {
	return func(_ context.Context, taskID string) (dispatch.Source, error) {
		name := util.SanitizeFilename(filename, DefaultUploadName)
		src, err := f.save(taskID, name, body)
		if err != nil {
			return dispatch.Source{}, f.saveError(taskID, err)
		}
		return src, nil
	}
}

// FetchURL downloads rawURL. The response is accepted when its content type
// is WAV or the URL itself ends in .wav.
func (f *Fetcher) FetchURL(rawURL string) dispatch.AcquireFunc {
	return func(ctx context.Context, taskID string) (dispatch.Source, error) {
		log := f.log.WithTask(taskID)
		resp, err := f.client.Stream(ctx, httpclient.Request{Method: http.MethodGet, Path: rawURL})
		if err != nil {
			log.Warn("remote audio download failed", logger.Fields("url", rawURL, logger.FieldError, err.Error()))
			return dispatch.Source{}, urlError(rawURL, err)
		}
		defer resp.Close()

		ct := strings.ToLower(resp.Header.Get("Content-Type"))
		if !isWAVType(ct) && !strings.HasSuffix(strings.ToLower(rawURL), ".wav") {
			return dispatch.Source{}, apperrors.UnsupportedMediaType(ct, AcceptedTypes...).
				WithDetail("reason", "URL does not end with .wav. Only WAV audio is supported.")
		}

		name := util.SanitizeFilename(lastSegment(rawURL), DefaultURLName)
		src, err := f.save(taskID, name, resp.Body)
		switch {
		case errors.Is(err, errReadSource):
			log.Warn("remote audio download interrupted", logger.Fields("url", rawURL, logger.FieldError, err.Error()))
			return dispatch.Source{}, urlError(rawURL, httpclient.Classify(ctx, err))
		case err != nil:
			return dispatch.Source{}, f.saveError(taskID, err)
		}
		return src, nil
	}
}

// FetchObject copies key from object storage.
func (f *Fetcher) FetchObject(key string) dispatch.AcquireFunc {
	return func(ctx context.Context, taskID string) (dispatch.Source, error) {
		if f.objects == nil {
			return dispatch.Source{}, apperrors.NotImplemented("S3 storage")
		}
		if !strings.HasSuffix(strings.ToLower(key), ".wav") {
			return dispatch.Source{}, apperrors.UnsupportedMediaType(key, AcceptedTypes...).
				WithDetail("reason", "S3 input path must end with .wav extension.")
		}
		rc, err := f.objects.Download(ctx, key)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return dispatch.Source{}, apperrors.NotFound("object", key)
		case err != nil:
			f.log.WithTask(taskID).Warn("object download failed", logger.Fields("key", key, logger.FieldError, err.Error()))
			return dispatch.Source{}, apperrors.SourceUnavailable("object storage", err)
		}
		defer rc.Close()

		name := util.SanitizeFilename(storage.BaseName(key), DefaultObjectName)
		src, err := f.save(taskID, name, rc)
		switch {
		case errors.Is(err, errReadSource):
			return dispatch.Source{}, apperrors.SourceUnavailable("object storage", err)
		case err != nil:
			return dispatch.Source{}, f.saveError(taskID, err)
		}
		return src, nil
	}
}

// errReadSource marks a failure reading the source stream, as opposed to
// writing the cache.
var errReadSource = errors.New("ingress: reading source")

type sourceReader struct{ r io.Reader }

func (s sourceReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && err != io.EOF {
		err = fmt.Errorf("%w: %w", errReadSource, err)
	}
	return n, err
}

func (f *Fetcher) save(taskID, name string, r io.Reader) (dispatch.Source, error) {
	rel := task.SourcePath(taskID, name)
	if _, err := f.cache.Save(rel, sourceReader{r}, MaxUploadBytes); err != nil {
		return dispatch.Source{}, err
	}
	return dispatch.Source{Path: rel, Name: name}, nil
}

func (f *Fetcher) saveError(taskID string, err error) *apperrors.AppError {
	if errors.Is(err, cache.ErrTooLarge) {
		return apperrors.PayloadTooLarge(MaxUploadBytes)
	}
	f.log.WithTask(taskID).Error("could not save source audio", logger.Fields(logger.FieldError, err.Error()))
	return apperrors.Internal(err).WithDetail("reason", "Could not save source audio.")
}

func isWAVType(ct string) bool {
	for _, t := range AcceptedTypes {
		if strings.Contains(ct, t) {
			return true
		}
	}
	return false
}

// lastSegment is everything after the final '/', query included.
func lastSegment(rawURL string) string {
	if i := strings.LastIndex(rawURL, "/"); i >= 0 {
		return rawURL[i+1:]
	}
	return rawURL
}

func urlError(rawURL string, err error) *apperrors.AppError {
	if httpclient.IsTimeout(err) {
		return timeoutError(rawURL, err)
	}
	ae := apperrors.SourceUnavailable("URL", err).WithDetail("url", rawURL)
	if status := httpclient.StatusCode(err); status > 0 {
		ae.WithDetail("upstream_status", status)
	}
	return ae
}

func timeoutError(rawURL string, err error) *apperrors.AppError {
	return apperrors.SourceTimedOut("URL", err).WithDetail("url", rawURL)
}
