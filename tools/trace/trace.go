// Package trace stores the serial transfers between the console and the
// adapter in a binary log and decodes them back into packets.
//
// A trace is a sequence of fixed size records.  Each record carries a CRC-8
// over its contents so a truncated or damaged trace is detected on reading.
package trace

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/sigurn/crc8"

	"github.com/clktmr/mobile/drivers/mobile/simulator"
	"github.com/clktmr/mobile/gba/serial"
)

const recordSize = 14

var table = crc8.MakeTable(crc8.CRC8)

var ErrChecksum = errors.New("record checksum mismatch")

// Record is a single serial transfer.
type Record = simulator.Exchange

// Writer appends records to a trace.
type Writer struct {
	w   io.Writer
	buf [recordSize]byte
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (w *Writer) Write(r Record) error {
	b := w.buf[:0]
	b = binary.BigEndian.AppendUint32(b, uint32(r.Frame))
	b = append(b, byte(r.Width.Bytes()))
	b = binary.BigEndian.AppendUint32(b, r.Console)
	b = binary.BigEndian.AppendUint32(b, r.Adapter)
	b = append(b, crc8.Checksum(b, table))
	_, err := w.w.Write(b)
	return err
}

// Reader reads the records of a trace.
type Reader struct {
	r   io.Reader
	buf [recordSize]byte
	n   int
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Read returns the next record.  It returns io.EOF at the end of the trace
// and io.ErrUnexpectedEOF if the trace ends within a record.
func (r *Reader) Read() (Record, error) {
	b := r.buf[:]
	if _, err := io.ReadFull(r.r, b); err != nil {
		return Record{}, err
	}
	r.n++
	if crc8.Checksum(b[:recordSize-1], table) != b[recordSize-1] {
		return Record{}, fmt.Errorf("record %d: %w", r.n, ErrChecksum)
	}
	rec := Record{
		Frame:   int(binary.BigEndian.Uint32(b[0:])),
		Width:   serial.Width8,
		Console: binary.BigEndian.Uint32(b[5:]),
		Adapter: binary.BigEndian.Uint32(b[9:]),
	}
	switch b[4] {
	case 1:
	case 4:
		rec.Width = serial.Width32
	default:
		return Record{}, fmt.Errorf("record %d: invalid width %d", r.n, b[4])
	}
	return rec, nil
}

// ReadAll returns all records of a trace.
func ReadAll(r io.Reader) ([]Record, error) {
	var recs []Record
	tr := NewReader(r)
	for {
		rec, err := tr.Read()
		if err == io.EOF {
			return recs, nil
		}
		if err != nil {
			return recs, err
		}
		recs = append(recs, rec)
	}
}

// Format returns a line describing r.
func Format(r Record) string {
	if r.Width == serial.Width32 {
		return fmt.Sprintf("%6d  0x%08x  0x%08x", r.Frame, r.Console, r.Adapter)
	}
	return fmt.Sprintf("%6d  0x%02x        0x%02x", r.Frame, r.Console, r.Adapter)
}
