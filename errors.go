package quire

import (
	"errors"
	"fmt"

	"github.com/quireader/quire/document"
	"github.com/quireader/quire/mailbox"
	"github.com/quireader/quire/pagecache"
)

var (
	// ErrClosed is returned when submitting commands into a closed session
	// or sender.
	ErrClosed = errors.New("quire: session closed")

	// ErrPageUnavailable indicates a page number outside the document's
	// range or a page the renderer could not produce.
	ErrPageUnavailable = errors.New("quire: page unavailable")
)

// translateError unifies subpackage errors at the API boundary so callers
// only match against the quire sentinels.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, mailbox.ErrSenderClosed) {
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}

	var pu *pagecache.ErrPageUnavailable
	if errors.As(err, &pu) {
		return fmt.Errorf("%w: %w", ErrPageUnavailable, err)
	}
	if errors.Is(err, document.ErrPageNotFound) {
		return fmt.Errorf("%w: %w", ErrPageUnavailable, err)
	}

	return err
}
