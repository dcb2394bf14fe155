package ingest

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Deeksh1tha/Energy-Audit/pkg/registry"
)

// MaxFrame bounds one batch payload.
const MaxFrame = 1 << 20

// Batch is what one push connection delivers.
type Batch []registry.Target

// Validate rejects empty service names and non-positive pids.
func (b Batch) Validate() error {
	for i, t := range b {
		if t.Service == "" {
			return fmt.Errorf("%w: entry %d: empty service", ErrDecode, i)
		}
		if t.PID <= 0 {
			return fmt.Errorf("%w: entry %d: invalid pid %d", ErrDecode, i, t.PID)
		}
	}
	return nil
}

// Encode writes b as one frame: a 4-byte big-endian length followed by a
// JSON array of {"service", "pid"} objects.
func Encode(w io.Writer, b Batch) error {
	if b == nil {
		b = Batch{}
	}
	body, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("ingest: encode: %w", err)
	}
	if len(body) > MaxFrame {
		return fmt.Errorf("%w: %d bytes", ErrBatchTooLarge, len(body))
	}
	var buf bytes.Buffer
	buf.Grow(4 + len(body))
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(body)))
	buf.Write(body)
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("ingest: write frame: %w", err)
	}
	return nil
}

// Decode reads exactly one frame. Any failure returns no batch at all.
func Decode(r io.Reader) (Batch, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, short(err)
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n > MaxFrame {
		return nil, fmt.Errorf("%w: %d bytes", ErrBatchTooLarge, n)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, short(err)
	}

	var b Batch
	if err := json.Unmarshal(body, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// short maps any read failure (EOF mid-frame, deadline, reset) to ErrShortRead.
func short(err error) error { return fmt.Errorf("%w: %v", ErrShortRead, err) }
