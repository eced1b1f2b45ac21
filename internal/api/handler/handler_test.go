package handler

import (
	"bytes"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/veerdrishti/veerdrishti/internal/api/middleware"
)

// testLogger returns a logger that discards all output
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(testLogger()),
	})
}

// createMultipartRequest builds a register-face upload. Empty fields are omitted.
func createMultipartRequest(id, category string, image []byte) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if id != "" {
		_ = writer.WriteField("id", id)
	}
	if category != "" {
		_ = writer.WriteField("category", category)
	}
	if image != nil {
		part, _ := writer.CreateFormFile("file", "face.png")
		_, _ = part.Write(image)
	}

	_ = writer.Close()
	return body, writer.FormDataContentType()
}

func readBody(resp *http.Response) []byte {
	b, _ := io.ReadAll(resp.Body)
	return b
}
