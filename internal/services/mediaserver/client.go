package mediaserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"fieldsync/internal/config"
	"fieldsync/internal/queue"
	"fieldsync/internal/services"
)

const userAgent = "Fieldsync-Go/0.1.0"

const component = "mediaserver"

// UploadResult carries the server's acknowledgement of a stored item.
type UploadResult struct {
	RemoteID string
}

// Uploader is the surface the sync orchestrator depends on.
type Uploader interface {
	Upload(ctx context.Context, item *queue.Item) (UploadResult, error)
}

// Client uploads queued captures to the media server over HTTPS.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewClient builds a Client from the server configuration.
func NewClient(cfg *config.Config) *Client {
	timeout := time.Duration(cfg.Server.UploadTimeout) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.Server.BaseURL, "/"),
		token:   cfg.Server.APIToken,
		client:  &http.Client{Timeout: timeout},
	}
}

type uploadResponse struct {
	ID string `json:"id"`
}

// Upload streams the item's payload and metadata to the server as one
// multipart request. The returned error classifies the failure; callers use
// services.IsPermanent to decide between retry and dead-lettering.
func (c *Client) Upload(ctx context.Context, item *queue.Item) (UploadResult, error) {
	if item == nil {
		return UploadResult{}, services.Wrap(services.ErrValidation, component, "upload", "item is nil", nil)
	}

	payload, err := os.Open(item.PayloadPath)
	if err != nil {
		return UploadResult{}, services.Wrap(services.ErrValidation, component, "upload",
			fmt.Sprintf("open payload for item %d", item.ID), err)
	}
	defer payload.Close()

	body, contentType := multipartBody(item, payload)
	endpoint := fmt.Sprintf("%s/api/v1/projects/%s/media", c.baseURL, url.PathEscape(item.ProjectID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return UploadResult{}, services.Wrap(services.ErrTransient, component, "upload", "build request", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", contentType)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return UploadResult{}, services.Wrap(services.ErrTimeout, component, "upload",
				fmt.Sprintf("upload item %d timed out", item.ID), err)
		}
		return UploadResult{}, services.Wrap(services.ErrTransient, component, "upload",
			fmt.Sprintf("upload item %d", item.ID), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var decoded uploadResponse
		if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&decoded); err != nil && !errors.Is(err, io.EOF) {
			return UploadResult{}, services.Wrap(services.ErrTransient, component, "upload",
				"decode upload response", err)
		}
		return UploadResult{RemoteID: strings.TrimSpace(decoded.ID)}, nil
	}

	snippet := readBodySnippet(resp.Body)
	return UploadResult{}, classifyStatus(resp.StatusCode, item.ID, snippet)
}

func classifyStatus(status int, itemID int64, snippet string) error {
	message := fmt.Sprintf("server returned %d for item %d", status, itemID)
	if snippet != "" {
		message = fmt.Sprintf("%s: %s", message, snippet)
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return services.Wrap(services.ErrConfiguration, component, "upload", message, nil)
	case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests:
		return services.Wrap(services.ErrTransient, component, "upload", message, nil)
	case status >= 400 && status < 500:
		return services.Wrap(services.ErrValidation, component, "upload", message, nil)
	default:
		return services.Wrap(services.ErrTransient, component, "upload", message, nil)
	}
}

func readBodySnippet(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, 2048))
	return strings.TrimSpace(string(data))
}

// multipartBody assembles the upload request body as a stream so large video
// payloads never sit fully in memory.
func multipartBody(item *queue.Item, payload io.Reader) (io.Reader, string) {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		err := writeParts(writer, item, payload)
		if closeErr := writer.Close(); err == nil {
			err = closeErr
		}
		pw.CloseWithError(err)
	}()

	return pr, writer.FormDataContentType()
}

func writeParts(writer *multipart.Writer, item *queue.Item, payload io.Reader) error {
	fields := map[string]string{
		"project_id":    item.ProjectID,
		"activity_type": item.ActivityType,
		"location":      item.Location,
		"notes":         item.Notes,
		"media_kind":    string(item.MediaKind),
		"source_name":   item.SourceName,
		"content_type":  item.ContentType,
		"checksum":      item.Checksum,
		"captured_at":   item.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if item.Latitude != nil {
		fields["latitude"] = strconv.FormatFloat(*item.Latitude, 'f', -1, 64)
	}
	if item.Longitude != nil {
		fields["longitude"] = strconv.FormatFloat(*item.Longitude, 'f', -1, 64)
	}
	if len(item.Tags) > 0 {
		encoded, err := json.Marshal(item.Tags)
		if err != nil {
			return fmt.Errorf("marshal tags: %w", err)
		}
		fields["tags"] = string(encoded)
	}

	for name, value := range fields {
		if value == "" {
			continue
		}
		if err := writer.WriteField(name, value); err != nil {
			return fmt.Errorf("write field %s: %w", name, err)
		}
	}

	fileName := item.SourceName
	if fileName == "" {
		fileName = "capture"
	}
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, payload); err != nil {
		return fmt.Errorf("stream payload: %w", err)
	}
	return nil
}
