package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/roomly/roomly-server/internal/types"
	"github.com/teris-io/shortid"
)

// MaxUploadSize is the largest attachment accepted, in bytes.
const MaxUploadSize = 10 << 20

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrTooLarge        = errors.New("file too large")
)

// allowedTypes lists the attachment content types accepted for chat uploads.
var allowedTypes = []string{
	"image/jpeg",
	"image/png",
	"application/pdf",
	"video/mp4",
	"video/quicktime",
	"audio/mpeg",
	"audio/wav",
	"audio/mp4",
}

// Asset is a stored attachment.
type Asset struct {
	URL         string
	Kind        types.MessageType
	ContentType string
	Size        int64
}

type Store interface {
	Save(ctx context.Context, r io.Reader) (Asset, error)
}

// KindFor maps a content type onto the message type used for it.
func KindFor(contentType string) types.MessageType {
	ct, _, _ := strings.Cut(strings.ToLower(contentType), ";")
	switch {
	case strings.HasPrefix(ct, "image/"):
		return types.MessageImage
	case ct == "application/pdf":
		return types.MessageDocument
	case strings.HasPrefix(ct, "video/"):
		return types.MessageVideo
	case strings.HasPrefix(ct, "audio/"):
		return types.MessageAudio
	default:
		return types.MessageFile
	}
}

// upload is a validated attachment held in memory, ready to be written.
type upload struct {
	name        string
	data        []byte
	contentType string
}

// prepare reads at most MaxUploadSize bytes from r, detects the content
// type from the bytes themselves and picks a unique object name. The
// client never names the stored object.
func prepare(r io.Reader) (*upload, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) > MaxUploadSize {
		return nil, ErrTooLarge
	}

	mtype := mimetype.Detect(data)
	if !allowed(mtype) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mtype.String())
	}

	id, err := shortid.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate name: %w", err)
	}

	ct, _, _ := strings.Cut(mtype.String(), ";")
	return &upload{
		name:        id + mtype.Extension(),
		data:        data,
		contentType: ct,
	}, nil
}

func allowed(mtype *mimetype.MIME) bool {
	for _, t := range allowedTypes {
		if mtype.Is(t) {
			return true
		}
	}
	return false
}

func (u *upload) asset(url string) Asset {
	return Asset{
		URL:         url,
		Kind:        KindFor(u.contentType),
		ContentType: u.contentType,
		Size:        int64(len(u.data)),
	}
}
