package client

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/Fwea-Go/remix-exp/pkg/api"
)

// UploadForm describes one track upload.
type UploadForm struct {
	Bank string
	Name string
}

// Upload streams the file at path to the server.
func Upload(ctx context.Context, form UploadForm, path, token string) (*api.UploadResponse, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeForm(writer, form, file, filepath.Base(path)))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, BaseURL+"/storage/upload", pr)
	if err != nil {
		pr.Close()
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var out api.UploadResponse
	if err := do(req, token, http.StatusCreated, &out); err != nil {
		pr.Close()
		return nil, err
	}
	return &out, nil
}

func writeForm(w *multipart.Writer, form UploadForm, r io.Reader, filename string) error {
	if form.Bank != "" {
		if err := w.WriteField("bank", form.Bank); err != nil {
			return err
		}
	}
	if form.Name != "" {
		if err := w.WriteField("name", form.Name); err != nil {
			return err
		}
	}
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return err
	}
	return w.Close()
}

// Library lists the tracks in both banks.
func Library(ctx context.Context, token string) (*api.LibraryResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, BaseURL+"/storage/list", nil)
	if err != nil {
		return nil, err
	}
	var out api.LibraryResponse
	if err := do(req, token, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
