package api

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/transcriber/dispatch"
	apperrors "github.com/kbukum/transcriber/errors"
	"github.com/kbukum/transcriber/gateway"
	"github.com/kbukum/transcriber/ingress"
	"github.com/kbukum/transcriber/logger"
	"github.com/kbukum/transcriber/server"
	"github.com/kbukum/transcriber/task"
	"github.com/kbukum/transcriber/validation"
)

const maxClientIDLength = 256

// Handler serves the task routes.
type Handler struct {
	dispatcher *dispatch.Dispatcher
	gateway    *gateway.Gateway
	ingress    *ingress.Fetcher
	log        *logger.Logger
}

// New creates a Handler.
func New(d *dispatch.Dispatcher, g *gateway.Gateway, in *ingress.Fetcher, log *logger.Logger) *Handler {
	return &Handler{dispatcher: d, gateway: g, ingress: in, log: log.WithComponent("api")}
}

// Register mounts the routes on r.
func (h *Handler) Register(r gin.IRouter) {
	r.POST("/transcribe", h.transcribeUpload)
	r.POST("/transcribe_url", h.transcribeURL)
	r.POST("/transcribe_s3", h.transcribeS3)
	r.GET("/status/:task_id", h.status)
	r.GET("/download/:task_id", h.download)
	r.DELETE("/release/:task_id", h.release)
	r.GET("/queue", h.queue)
	r.GET("/debug/task/:task_id", h.debug)
}

// owner returns the Client-Id header; empty means a privileged caller.
func owner(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(ClientIDHeader))
}

// requireClient returns the Client-Id header, which ingress requires.
func requireClient(c *gin.Context) (string, error) {
	id := owner(c)
	err := validation.New().
		Required(ClientIDHeader, id).
		MaxLength(ClientIDHeader, id, maxClientIDLength).
		Validate()
	return id, err
}

func (h *Handler) transcribeUpload(c *gin.Context) {
	clientID, err := requireClient(c)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		server.RespondWithError(c, formError(err))
		return
	}
	if fh.Size > ingress.MaxUploadBytes {
		server.RespondWithError(c, apperrors.PayloadTooLarge(ingress.MaxUploadBytes))
		return
	}
	if err := ingress.CheckUploadType(fh.Header.Get("Content-Type")); err != nil {
		server.RespondWithError(c, err)
		return
	}
	f, err := fh.Open()
	if err != nil {
		server.RespondWithError(c, apperrors.Internal(err).WithDetail("reason", "Could not read uploaded file."))
		return
	}
	defer f.Close()

	h.dispatch(c, dispatch.Request{
		Type:             task.TypeFileUpload,
		ClientID:         clientID,
		ResultsPath:      c.PostForm("s3_path"),
		OriginalFilename: fh.Filename,
	}, h.ingress.Upload(f, fh.Filename))
}

func (h *Handler) transcribeURL(c *gin.Context) {
	clientID, err := requireClient(c)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	var req TranscribeURLRequest
	if err := bindJSON(c, &req); err != nil {
		server.RespondWithError(c, err)
		return
	}
	h.dispatch(c, dispatch.Request{
		Type:        task.TypeURLDownload,
		ClientID:    clientID,
		ResultsPath: req.S3Path,
		OriginalURL: req.URL,
	}, h.ingress.FetchURL(req.URL))
}

func (h *Handler) transcribeS3(c *gin.Context) {
	clientID, err := requireClient(c)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	var req TranscribeS3Request
	if err := bindJSON(c, &req); err != nil {
		server.RespondWithError(c, err)
		return
	}
	h.dispatch(c, dispatch.Request{
		Type:                task.TypeS3Download,
		ClientID:            clientID,
		ResultsPath:         req.S3Path,
		OriginalS3InputPath: req.S3InputPath,
	}, h.ingress.FetchObject(req.S3InputPath))
}

func (h *Handler) dispatch(c *gin.Context, req dispatch.Request, acquire dispatch.AcquireFunc) {
	id, err := h.dispatcher.CreateAndDispatch(c.Request.Context(), req, acquire)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondAccepted(c, TaskAccepted{TaskID: id, Message: "Task accepted for transcription."})
}

func (h *Handler) status(c *gin.Context) {
	rec, err := h.gateway.Status(c.Request.Context(), c.Param("task_id"), owner(c))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, StatusResponse{TaskID: rec.TaskID, Status: rec.Status, Details: rec})
}

func (h *Handler) download(c *gin.Context) {
	raw := c.Query("fmt")
	format, err := task.ParseFormat(raw)
	if err != nil {
		server.RespondWithError(c, validation.New().
			OneOf("fmt", raw, []string{string(task.FormatJSON), string(task.FormatMarkdown)}).
			Validate())
		return
	}

	art, err := h.gateway.Artifact(c.Request.Context(), c.Param("task_id"), owner(c), format)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	defer art.Body.Close()

	c.DataFromReader(http.StatusOK, art.Size, art.ContentType, art.Body, map[string]string{
		"Content-Disposition": `attachment; filename="` + art.Name + `"`,
		"Last-Modified":       art.ModTime.UTC().Format(http.TimeFormat),
	})
}

func (h *Handler) release(c *gin.Context) {
	id := c.Param("task_id")
	report, err := h.gateway.Release(c.Request.Context(), id, owner(c))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, ReleaseResponse{TaskID: id, ReleaseReport: report})
}

func (h *Handler) queue(c *gin.Context) {
	stats, err := h.gateway.QueueStats(c.Request.Context())
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, stats)
}

func (h *Handler) debug(c *gin.Context) {
	info, err := h.gateway.Debug(c.Request.Context(), c.Param("task_id"), owner(c))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, info)
}

// bindJSON decodes and validates a request body.
func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return apperrors.Validation("Request body must be valid JSON.").WithCause(err)
	}
	return validation.Validate(dst)
}

// formError maps a failed multipart read onto the error taxonomy.
func formError(err error) error {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return apperrors.PayloadTooLarge(ingress.MaxUploadBytes)
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, multipart.ErrMessageTooLarge):
		return apperrors.MissingField("file")
	default:
		return apperrors.Validation("Request must be multipart/form-data with a file field.").WithCause(err)
	}
}
