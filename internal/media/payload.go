package media

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	// ErrEmptyPayload means the picked item resolved to zero bytes.
	ErrEmptyPayload = errors.New("empty photo payload")
	// ErrTooLarge means the payload exceeds Options.MaxBytes.
	ErrTooLarge = errors.New("photo payload too large")
	// ErrNotImage means the payload does not sniff as any image type.
	ErrNotImage = errors.New("photo payload is not an image")
	// ErrResolverPanic means the Resolver panicked for this item.
	ErrResolverPanic = errors.New("photo resolver panicked")
	// ErrUnknownHandle means the Resolver did not issue this handle.
	ErrUnknownHandle = errors.New("unknown photo handle")
)

// checkPayload rejects payloads that cannot be shown as a photo.
func checkPayload(data []byte, maxBytes int64) error {
	if len(data) == 0 {
		return ErrEmptyPayload
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, len(data), maxBytes)
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return fmt.Errorf("%w: detected %s", ErrNotImage, mt.String())
	}
	return nil
}

// DetectType returns the sniffed MIME type of a payload, e.g. "image/png".
func DetectType(data []byte) string {
	return mimetype.Detect(data).String()
}
