package queue

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/kocayinsec/network-automation-sender/model"
)

// snapshotMagic is the fixed 8-byte header every snapshot file starts with.
var snapshotMagic = [8]byte{'Q', 'U', 'E', 'U', 'E', '1', 0, 0}

// ErrCorruptSnapshot is returned by Restore when the magic header does not
// match or an entry's payload fails to decode.
var ErrCorruptSnapshot = fmt.Errorf("queue: corrupt snapshot")

// snapshotPayload holds the variable-length fields of a descriptor,
// encoded with msgpack -- a real self-describing binary codec -- inside
// the fixed-width envelope the wire format mandates.
type snapshotPayload struct {
	Method           string
	URL              string
	Header           map[string][]string
	Body             []byte
	Tags             map[string]string
	CacheKeyOverride string
	TimeoutNanos     int64
	MaxRetries       *int
}

// Snapshot serializes every pending entry to the wire format described in
// the external interfaces section: magic header, uint32 entry count, then
// entries concatenated. Ordering within the byte stream is unspecified;
// only round-trip equality of the entry set is guaranteed.
func (q *PriorityQueue) Snapshot() ([]byte, error) {
	q.mu.Lock()
	entries := make([]*model.QueueEntry, 0, q.size)
	for p := 0; p < model.NumBands; p++ {
		entries = append(entries, q.bands[p]...)
	}
	q.mu.Unlock()

	var buf bytes.Buffer
	buf.Write(snapshotMagic[:])

	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], uint32(len(entries)))
	buf.Write(countBuf[:])

	for _, e := range entries {
		if err := writeEntry(&buf, e); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func writeEntry(w io.Writer, e *model.QueueEntry) error {
	payload := snapshotPayload{
		Method:           string(e.Descriptor.Method),
		URL:              e.Descriptor.URL,
		Header:           map[string][]string(e.Descriptor.Header),
		Body:             e.Descriptor.Body,
		Tags:             e.Descriptor.Tags,
		CacheKeyOverride: e.Descriptor.CacheKeyOverride,
		TimeoutNanos:     int64(e.Descriptor.Timeout),
		MaxRetries:       e.Descriptor.MaxRetries,
	}
	payloadBytes, err := msgpack.Marshal(&payload)
	if err != nil {
		return err
	}

	var fixed bytes.Buffer
	idBytes := e.Descriptor.ID
	fixed.Write(idBytes[:])
	writeInt64(&fixed, e.Descriptor.SubmittedAt.UnixNano())
	fixed.WriteByte(byte(e.Descriptor.Priority))
	writeUint32(&fixed, uint32(e.Attempt))
	writeInt64(&fixed, e.NextEligibleAt.UnixNano())
	writeInt64(&fixed, e.ExpiresAt.UnixNano())
	writeUint64(&fixed, e.Sequence)
	writeUint32(&fixed, uint32(len(payloadBytes)))

	if _, err := w.Write(fixed.Bytes()); err != nil {
		return err
	}
	_, err = w.Write(payloadBytes)
	return err
}

// Restore replaces the queue's contents with the entries encoded in data.
// A corrupted snapshot (bad magic, truncated read, or payload decode
// failure) returns ErrCorruptSnapshot without modifying the queue;
// dispatch.Coordinator then renames the file aside and starts with an
// empty queue.
func (q *PriorityQueue) Restore(data []byte) error {
	if len(data) < 12 || !bytes.Equal(data[:8], snapshotMagic[:]) {
		return ErrCorruptSnapshot
	}
	count := binary.BigEndian.Uint32(data[8:12])
	r := bytes.NewReader(data[12:])

	entries := make([]*model.QueueEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		entry, err := readEntry(r)
		if err != nil {
			return ErrCorruptSnapshot
		}
		entries = append(entries, entry)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	for p := 0; p < model.NumBands; p++ {
		q.bands[p] = q.bands[p][:0]
	}
	q.size = 0
	var maxSeq uint64
	for _, e := range entries {
		q.bands[e.Descriptor.Priority] = append(q.bands[e.Descriptor.Priority], e)
		q.size++
		if e.Sequence > maxSeq {
			maxSeq = e.Sequence
		}
	}
	for p := 0; p < model.NumBands; p++ {
		heapInit(&q.bands[p])
	}
	if maxSeq > q.seq {
		q.seq = maxSeq
	}
	return nil
}

func readEntry(r *bytes.Reader) (*model.QueueEntry, error) {
	var id uuid.UUID
	if _, err := io.ReadFull(r, id[:]); err != nil {
		return nil, err
	}
	submittedNanos, err := readInt64(r)
	if err != nil {
		return nil, err
	}
	priorityByte, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	attempt, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	nextNanos, err := readInt64(r)
	if err != nil {
		return nil, err
	}
	expiryNanos, err := readInt64(r)
	if err != nil {
		return nil, err
	}
	sequence, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	payloadLen, err := readUint32(r)
	if err != nil {
		return nil, err
	}

	payloadBytes := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payloadBytes); err != nil {
		return nil, err
	}
	var payload snapshotPayload
	if err := msgpack.Unmarshal(payloadBytes, &payload); err != nil {
		return nil, err
	}

	descriptor := model.RequestDescriptor{
		ID:               id,
		Method:           model.Method(payload.Method),
		URL:              payload.URL,
		Header:           http.Header(payload.Header),
		Body:             payload.Body,
		Tags:             payload.Tags,
		CacheKeyOverride: payload.CacheKeyOverride,
		Timeout:          time.Duration(payload.TimeoutNanos),
		MaxRetries:       payload.MaxRetries,
		Priority:         model.Priority(priorityByte),
		SubmittedAt:      time.Unix(0, submittedNanos).UTC(),
	}

	return &model.QueueEntry{
		Descriptor:     descriptor,
		Sequence:       sequence,
		Attempt:        int(attempt),
		NextEligibleAt: time.Unix(0, nextNanos).UTC(),
		ExpiresAt:      time.Unix(0, expiryNanos).UTC(),
	}, nil
}

func writeInt64(w io.Writer, v int64) { var b [8]byte; binary.BigEndian.PutUint64(b[:], uint64(v)); w.Write(b[:]) }
func writeUint32(w io.Writer, v uint32) { var b [4]byte; binary.BigEndian.PutUint32(b[:], v); w.Write(b[:]) }
func writeUint64(w io.Writer, v uint64) { var b [8]byte; binary.BigEndian.PutUint64(b[:], v); w.Write(b[:]) }

func readInt64(r io.Reader) (int64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b[:])), nil
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func readUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b[:]), nil
}
