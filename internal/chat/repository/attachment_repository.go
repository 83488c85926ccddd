package repository

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"private_chat_service/internal/chat/domain"
	"private_chat_service/pkg/database"
	errprocess "private_chat_service/pkg/err"

	"github.com/google/uuid"
)

const (
	presignExpiry = 7 * 24 * time.Hour
	objectPrefix  = "chat/"
)

// AttachmentRepository stores upload bytes, returns a reachable URL
type AttachmentRepository interface {
	Upload(ctx context.Context, fileName, mimeType string, r io.Reader, size int64) (string, error)
	// Owns rawURL points at an object this repository stored
	Owns(rawURL string) bool
}

type minioAttachmentRepository struct {
	client        *database.MinIOClient
	publicBaseURL string
}

// NewMinIOAttachmentRepository create AttachmentRepository, empty publicBaseURL falls back to presigned urls
func NewMinIOAttachmentRepository(client *database.MinIOClient, publicBaseURL string) AttachmentRepository {
	return &minioAttachmentRepository{client: client, publicBaseURL: strings.TrimRight(publicBaseURL, "/")}
}

// ObjectName chat/<yyyy-mm>/<uuid><ext>
func ObjectName(fileName string, now time.Time) string {
	return fmt.Sprintf("%s%s/%s%s", objectPrefix, now.Format("2006-01"), uuid.New().String(), strings.ToLower(filepath.Ext(fileName)))
}

func (r *minioAttachmentRepository) Upload(ctx context.Context, fileName, mimeType string, body io.Reader, size int64) (string, error) {
	object := ObjectName(fileName, time.Now())
	if err := r.client.UploadReader(ctx, object, body, size, mimeType); err != nil {
		return "", errprocess.WithCause(domain.ErrStorage, "upload attachment", err)
	}

	if r.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", r.publicBaseURL, r.client.BucketName, object), nil
	}
	u, err := r.client.PresignGetURL(ctx, object, presignExpiry)
	if err != nil {
		return "", errprocess.WithCause(domain.ErrStorage, "presign attachment", err)
	}
	return u, nil
}

func (r *minioAttachmentRepository) Owns(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path != path.Clean(u.Path) {
		return false
	}
	prefix := "/" + r.client.BucketName + "/" + objectPrefix

	if r.publicBaseURL != "" {
		base, err := url.Parse(r.publicBaseURL)
		if err != nil {
			return false
		}
		return u.Scheme == base.Scheme && u.Host == base.Host && strings.HasPrefix(u.Path, base.Path+prefix)
	}
	// presigned, path style on the minio endpoint
	return u.Host == r.client.Endpoint && strings.HasPrefix(u.Path, prefix)
}
