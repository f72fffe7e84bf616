package processor

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrGatewayUnavailable matches every *GatewayError.
	ErrGatewayUnavailable = errors.New("gateway unavailable")
	// ErrEmptyTranscript means transcription succeeded but produced no text.
	ErrEmptyTranscript = errors.New("transcript is empty")
	ErrEmptyUpload     = errors.New("uploaded file is empty")
	ErrUnsupportedType = errors.New("unsupported audio format")
)

// GatewayError wraps a failed call to an external gateway.
type GatewayError struct {
	Gateway string
	Err     error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s gateway unavailable: %v", e.Gateway, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

func (e *GatewayError) Is(target error) bool { return target == ErrGatewayUnavailable }

// SupportedFormats lists the accepted upload extensions.
var SupportedFormats = []string{"mp3", "wav", "m4a", "mp4"}

// CheckFormat validates an upload's file extension.
func CheckFormat(filename string) error {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	for _, f := range SupportedFormats {
		if ext == f {
			return nil
		}
	}
	return fmt.Errorf("%w: %q (accepted: %s)", ErrUnsupportedType, filepath.Base(filename), strings.Join(SupportedFormats, ", "))
}
