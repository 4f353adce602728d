package buffer

import (
	"errors"
	"fmt"

	"github.com/qail-io/qail-go/codes"
	qailerr "github.com/qail-io/qail-go/errors"
)

// ErrMissingNul is returned when a string field of a backend message carries
// no NUL terminator. The frame cannot be decoded any further.
var ErrMissingNul = errors.New("string field is missing its NUL terminator")

// ErrShortMessage is returned when a message payload ends before the field
// being decoded, indicating a length header that disagrees with the payload.
var ErrShortMessage = errors.New("message payload ends before the requested field")

// ErrOversizedMessage is returned when a backend frame announces a length
// beyond the configured maximum, or a negative one. Matching this sentinel
// with errors.Is also matches the [OversizedMessage] carrying the sizes.
var ErrOversizedMessage = errors.New("message length exceeds the configured maximum")

// Backend framing failures leave the stream at an unknown byte boundary, so
// every error below carries a fatal severity: the connection owning the
// reader is expected to close.

func newMissingNul() error {
	return qailerr.WithSeverity(qailerr.WithCode(ErrMissingNul, codes.ProtocolViolation), qailerr.LevelFatal)
}

func newShortMessage(need, have int) error {
	err := fmt.Errorf("%w: need %d bytes, %d remain", ErrShortMessage, need, have)
	return qailerr.WithSeverity(qailerr.WithCode(err, codes.ProtocolViolation), qailerr.LevelFatal)
}

func newOversizedMessage(limit, size int) error {
	err := &OversizedMessage{Size: size, Limit: limit}
	return qailerr.WithSeverity(qailerr.WithCode(err, codes.ProgramLimitExceeded), qailerr.LevelFatal)
}

// OversizedMessage reports a frame whose announced length cannot be buffered.
// The announced size and the configured limit are kept so callers deciding
// whether to slurp-and-discard know how many bytes remain on the wire.
type OversizedMessage struct {
	Size  int
	Limit int
}

func (err *OversizedMessage) Error() string {
	return fmt.Sprintf("message of %d bytes exceeds the maximum of %d", err.Size, err.Limit)
}

func (err *OversizedMessage) Unwrap() error {
	return ErrOversizedMessage
}

// UnwrapOversized attempts to unwrap the given error chain as an
// [OversizedMessage]. A boolean is returned indicating whether the sizes were
// found.
func UnwrapOversized(err error) (*OversizedMessage, bool) {
	var oversized *OversizedMessage
	return oversized, errors.As(err, &oversized)
}
