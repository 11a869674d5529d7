package passage

import "errors"

var (
	// ErrInvalidRange reports a range that is reversed or outside its book.
	ErrInvalidRange = errors.New("invalid range")
	// ErrInvalidCount reports a read count below 1.
	ErrInvalidCount = errors.New("invalid read count")
	// ErrInvalidDate reports an unparseable date or one after today.
	ErrInvalidDate = errors.New("invalid date")
	// ErrUnknownBook reports a book name the canon does not list.
	ErrUnknownBook = errors.New("unknown book")
	// ErrMalformedState reports saved progress that cannot be loaded as is.
	ErrMalformedState = errors.New("malformed persisted state")
)
