package errs

import (
	"errors"
	"fmt"
	"net"
)

var (
	ErrMissingConfig = errors.New("config is missing")
	// ErrTypeMismatch is returned when a packet is replaced by one of another concrete type.
	ErrTypeMismatch = errors.New("packet type mismatch")
	// ErrUnknownPacketType is returned for packet classes without a registered packet type.
	ErrUnknownPacketType = errors.New("unknown packet type")
)

// SilentError is an error wrapper type that silences an
// error and only logs them in the debug log.
//
// It is usually used to prevent spamming the default
// log when clients send invalid packets which cannot be read.
type SilentError struct{ error }

func (e *SilentError) Error() string {
	return e.error.Error()
}

func NewSilentErr(format string, a ...any) error {
	return &SilentError{fmt.Errorf(format, a...)}
}

func WrapSilent(wrappedErr error) error {
	return &SilentError{wrappedErr}
}

func (e *SilentError) Unwrap() error { return e.error }

// IsSilent reports whether err or any error it wraps is a SilentError.
func IsSilent(err error) bool {
	var s *SilentError
	return errors.As(err, &s)
}

// see https://github.com/golang/go/issues/4373 for details
func IsConnClosedErr(err error) bool {
	return err != nil &&
		(errors.Is(err, net.ErrClosed) ||
			err.Error() == "use of closed network connection" ||
			err.Error() == "read: connection reset by peer")
}
