package utils

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidRange marks a Range header that is malformed or cannot be
// satisfied against the resource size. Callers answer 416.
var ErrInvalidRange = errors.New("invalid range")

// ByteRange is an inclusive byte range [Start, End] within a resource.
type ByteRange struct {
	Start int64
	End   int64
}

// Length returns the number of bytes the range covers.
func (r ByteRange) Length() int64 {
	return r.End - r.Start + 1
}

// ContentRange renders the Content-Range header value for a 206 response.
func (r ByteRange) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, size)
}

// UnsatisfiedContentRange renders the Content-Range header value for a 416 response.
func UnsatisfiedContentRange(size int64) string {
	return fmt.Sprintf("bytes */%d", size)
}

// ParseByteRange parses a "Range: bytes=start-end" header against a resource
// of the given size.
//
// Only the first range clause of a multi-range request is honored; the rest
// are ignored. Open-ended ranges ("bytes=start-") run to the last byte, and
// suffix ranges ("bytes=-n") cover the final n bytes. An end past the last
// byte is clamped. Non-numeric values, start > end, and start beyond the
// resource yield ErrInvalidRange.
func ParseByteRange(header string, size int64) (ByteRange, error) {
	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return ByteRange{}, ErrInvalidRange
	}
	clause := strings.TrimPrefix(header, prefix)
	// Multi-range: keep the first clause only.
	if i := strings.IndexByte(clause, ','); i >= 0 {
		clause = clause[:i]
	}

	startStr, endStr, ok := strings.Cut(strings.TrimSpace(clause), "-")
	if !ok {
		return ByteRange{}, ErrInvalidRange
	}
	startStr = strings.TrimSpace(startStr)
	endStr = strings.TrimSpace(endStr)

	if startStr == "" {
		// Suffix range: the last n bytes.
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || n <= 0 {
			return ByteRange{}, ErrInvalidRange
		}
		if n > size {
			n = size
		}
		return ByteRange{Start: size - n, End: size - 1}, nil
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 || start >= size {
		return ByteRange{}, ErrInvalidRange
	}

	end := size - 1
	if endStr != "" {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil || end < start {
			return ByteRange{}, ErrInvalidRange
		}
		if end > size-1 {
			end = size - 1
		}
	}
	return ByteRange{Start: start, End: end}, nil
}
