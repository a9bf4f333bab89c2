package form

import (
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Attachment is an uploaded file held in memory so it can be forwarded.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Attachments reads every file posted under field. A missing field yields
// no attachments and no error.
func Attachments(c *fiber.Ctx, field string) ([]Attachment, error) {
	if !isMultipart(c) {
		return nil, nil
	}
	mf, err := c.MultipartForm()
	if err != nil {
		return nil, fmt.Errorf("read multipart form: %w", err)
	}
	var out []Attachment
	for _, fh := range mf.File[field] {
		a, err := readAttachment(fh)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm)
}

func readAttachment(fh *multipart.FileHeader) (Attachment, error) {
	f, err := fh.Open()
	if err != nil {
		return Attachment{}, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return Attachment{}, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	return Attachment{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Content:     b,
	}, nil
}
