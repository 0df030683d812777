package datauri

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrTooLarge  = errors.New("image too large")
	ErrNotImage  = errors.New("file is not an image")
	ErrEmpty     = errors.New("file is empty")
	ErrMalformed = errors.New("malformed data uri")
)

// Encoder はアップロードされた画像を data URI 文字列にする。
// MIMEは拡張子やContent-Typeではなく中身から判定する。
type Encoder struct {
	MaxBytes int64
}

func NewEncoder(maxBytes int64) *Encoder {
	return &Encoder{MaxBytes: maxBytes}
}

func (e *Encoder) Encode(r io.Reader) (string, error) {
	raw, err := io.ReadAll(io.LimitReader(r, e.MaxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if len(raw) == 0 {
		return "", ErrEmpty
	}
	if int64(len(raw)) > e.MaxBytes {
		return "", ErrTooLarge
	}

	mt := mimetype.Detect(raw)
	mime := mt.String()
	if !strings.HasPrefix(mime, "image/") {
		return "", ErrNotImage
	}
	// "image/svg+xml; charset=utf-8" などのパラメータは落とす
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}

	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(raw), nil
}

// Decode は Encode の逆。画像の data URI からMIMEと中身を取り出す。
func Decode(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, ErrMalformed
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrMalformed
	}
	mime, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, ErrMalformed
	}
	if !strings.HasPrefix(mime, "image/") {
		return "", nil, ErrNotImage
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return mime, raw, nil
}
