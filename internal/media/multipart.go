package media

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
)

// MultipartResolver resolves handles to files uploaded in one multipart form.
type MultipartResolver struct {
	files map[Handle]*multipart.FileHeader
}

// NewMultipartResolver issues one handle per file, in upload order.
func NewMultipartResolver(files []*multipart.FileHeader) (*MultipartResolver, []Handle) {
	r := &MultipartResolver{files: make(map[Handle]*multipart.FileHeader, len(files))}
	handles := make([]Handle, 0, len(files))
	for i, fh := range files {
		h := Handle(fmt.Sprintf("upload/%d/%s", i, fh.Filename))
		r.files[h] = fh
		handles = append(handles, h)
	}
	return r, handles
}

// Resolve reads the uploaded file behind h.
func (r *MultipartResolver) Resolve(ctx context.Context, h Handle) ([]byte, error) {
	fh, ok := r.files[h]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownHandle, h)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("media.MultipartResolver.Resolve: open: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("media.MultipartResolver.Resolve: read: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return data, nil
}
