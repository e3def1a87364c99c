package stream

import (
	"encoding/hex"
	"fmt"
)

// InvalidFormatError means the HMAC prefix of a protected stream is
// missing, truncated, or does not match the payload.
type InvalidFormatError struct {
	ID  []byte
	Msg string
}

func (e *InvalidFormatError) Error() string {
	return fmt.Sprintf("invalid format for file %s: %s", shortID(e.ID), e.Msg)
}

// CorruptedMetaDataError means a per-block IV/tag record or the header
// record is missing or short.
type CorruptedMetaDataError struct {
	ID  []byte
	Msg string
}

func (e *CorruptedMetaDataError) Error() string {
	return fmt.Sprintf("corrupted metadata for file %s: %s", shortID(e.ID), e.Msg)
}

// MessageVerificationError means AES-GCM tag verification failed for
// the block starting at Offset (plaintext offset).
type MessageVerificationError struct {
	ID     []byte
	Offset int64
}

func (e *MessageVerificationError) Error() string {
	return fmt.Sprintf("message verification failed for file %s at offset %d", shortID(e.ID), e.Offset)
}

// StreamTooLongError means an operation addressed a block past the
// maximum block number.
type StreamTooLongError struct {
	Max       int64
	Requested int64
}

func (e *StreamTooLongError) Error() string {
	return fmt.Sprintf("stream too long: requested size %d exceeds maximum %d", e.Requested, e.Max)
}

// InvalidArgumentError reports a caller error such as an oversized
// header write.
type InvalidArgumentError struct {
	Msg string
}

func (e *InvalidArgumentError) Error() string {
	return e.Msg
}

// IOError wraps a host I/O failure from an underlying byte-stream.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

func shortID(id []byte) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return hex.EncodeToString(id)
}
