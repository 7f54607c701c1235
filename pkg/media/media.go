// Package media stores uploaded post images. Keys are relative paths such as
// "posts/<uuid>.png" and are what the posts table keeps in its image column.
package media

import (
	"bufio"
	"context"
	"errors"
	"io"
	"path"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// ErrNotImage is returned when the uploaded bytes are not an accepted image type.
var ErrNotImage = errors.New("upload is not an image")

// Upload is a single file taken from a multipart form. Keys and content types
// derive from the bytes alone.
type Upload struct {
	Body io.Reader
}

// Store persists uploads and resolves their public URL.
type Store interface {
	Save(ctx context.Context, dir string, up *Upload) (key string, err error)
	URL(key string) string
}

// sniffLen matches the mimetype default read limit.
const sniffLen = 3072

// extByType is the allowlist of accepted image types. The stored extension
// always comes from here, never from the client's filename.
var extByType = map[string]string{
	"image/png":              ".png",
	"image/vnd.mozilla.apng": ".png",
	"image/jpeg":             ".jpg",
	"image/gif":              ".gif",
	"image/webp":             ".webp",
	"image/bmp":              ".bmp",
}

// sniff peeks at the head of the body without consuming it and returns the
// detected content type together with a reader that replays the whole body.
func sniff(r io.Reader) (string, io.Reader, error) {
	br := bufio.NewReaderSize(r, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return "", nil, err
	}
	ct := mimetype.Detect(head).String()
	if _, ok := extByType[ct]; !ok {
		return "", nil, ErrNotImage
	}
	return ct, br, nil
}

// newKey picks a collision-free name for an allowlisted content type.
func newKey(dir, contentType string) string {
	return path.Join(dir, uuid.NewString()+extByType[contentType])
}
