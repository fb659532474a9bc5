package gdrive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const fileFields = "id, name, mimeType, modifiedTime, size"

// Files is the part of the Drive files API the adapter needs.
type Files interface {
	// Find returns the first non-trashed file called name, or nil.
	Find(ctx context.Context, name string) (*drive.File, error)
	Get(ctx context.Context, id string) (*drive.File, error)
	Create(ctx context.Context, name string, content []byte) (*drive.File, error)
	Update(ctx context.Context, id string, content []byte) (*drive.File, error)
	Download(ctx context.Context, id string) ([]byte, error)
}

// serviceFiles implements Files on top of a real drive.Service.
type serviceFiles struct {
	service *drive.Service
}

// NewServiceFiles creates a Drive service using an authenticated client.
func NewServiceFiles(ctx context.Context, client *http.Client) (Files, error) {
	srv, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Drive client: %w", err)
	}
	return &serviceFiles{service: srv}, nil
}

func (s *serviceFiles) Find(ctx context.Context, name string) (*drive.File, error) {
	q := fmt.Sprintf("name = '%s' and trashed = false", strings.ReplaceAll(name, "'", `\'`))
	r, err := s.service.Files.List().
		Q(q).
		Spaces("drive").
		PageSize(1).
		Fields(googleapi.Field("files(" + fileFields + ")")).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to search for %s: %w", name, err)
	}
	if len(r.Files) == 0 {
		return nil, nil
	}
	return r.Files[0], nil
}

func (s *serviceFiles) Get(ctx context.Context, id string) (*drive.File, error) {
	f, err := s.service.Files.Get(id).Fields(fileFields).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to get file metadata: %w", err)
	}
	return f, nil
}

func (s *serviceFiles) Create(ctx context.Context, name string, content []byte) (*drive.File, error) {
	f := &drive.File{Name: name, MimeType: mimeJSON}
	res, err := s.service.Files.Create(f).
		Media(bytes.NewReader(content), googleapi.ContentType(mimeJSON)).
		Fields(fileFields).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to create file: %w", err)
	}
	return res, nil
}

func (s *serviceFiles) Update(ctx context.Context, id string, content []byte) (*drive.File, error) {
	res, err := s.service.Files.Update(id, &drive.File{}).
		Media(bytes.NewReader(content), googleapi.ContentType(mimeJSON)).
		Fields(fileFields).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to update file: %w", err)
	}
	return res, nil
}

func (s *serviceFiles) Download(ctx context.Context, id string) ([]byte, error) {
	resp, err := s.service.Files.Get(id).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("unable to download file: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to read file content: %w", err)
	}
	return content, nil
}

func isNotFound(err error) bool {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return gErr.Code == http.StatusNotFound
	}
	return false
}
