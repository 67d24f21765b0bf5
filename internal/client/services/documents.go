package services

import (
	"context"
	"io"
	"net/http"

	"staffdesk/internal/api"
	"staffdesk/internal/client"
	"staffdesk/internal/models"
)

type DocumentFilter struct {
	EmployeeID string
	Status     string
	Type       string
}

// DocumentUpload describes one file to attach. EmployeeID is honoured for
// admins only.
type DocumentUpload struct {
	Type       string
	Name       string
	EmployeeID string
	FileName   string
	Content    io.Reader
}

func (u DocumentUpload) Validate() error {
	ch := checks{}
	ch.required("type", u.Type, "Document type is required")
	ch.required("file", u.FileName, "File is required")
	if u.Content == nil {
		ch.add("file", "File is required")
	}
	return ch.err()
}

type Documents struct{ c *client.Client }

const documentsPath = "/documents"

func (s *Documents) List(ctx context.Context, f DocumentFilter) (*api.Envelope[[]models.Document], error) {
	return get[[]models.Document](ctx, s.c, documentsPath,
		values("employeeId", f.EmployeeID, "status", f.Status, "type", f.Type))
}

func (s *Documents) Get(ctx context.Context, id string) (*api.Envelope[models.Document], error) {
	return get[models.Document](ctx, s.c, idPath(documentsPath, id), nil)
}

func (s *Documents) Upload(ctx context.Context, u DocumentUpload) (*api.Envelope[models.Document], error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}
	var env api.Envelope[models.Document]
	fields := map[string]string{"type": u.Type, "name": u.Name, "employeeId": u.EmployeeID}
	file := client.FilePart{Field: "file", FileName: u.FileName, Content: u.Content}
	if err := s.c.Upload(ctx, documentsPath, fields, file, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

func (s *Documents) Verify(ctx context.Context, id, status string) (*api.Envelope[models.Document], error) {
	ch := checks{}
	ch.required("status", status, "Status is required")
	ch.oneOf("status", status, models.DocumentVerified, models.DocumentRejected)
	if err := ch.err(); err != nil {
		return nil, err
	}
	return call[models.Document](ctx, s.c, http.MethodPut, idPath(documentsPath, id)+"/verify", nil, map[string]string{"status": status})
}

func (s *Documents) Delete(ctx context.Context, id string) (*api.Envelope[Deleted], error) {
	return call[Deleted](ctx, s.c, http.MethodDelete, idPath(documentsPath, id), nil, nil)
}
