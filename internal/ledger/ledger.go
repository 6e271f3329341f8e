package ledger

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"
)

const (
	recordVersion1  = 1
	lockoutVersion1 = 1
)

// ErrCorrupt is returned when a persisted blob cannot be decoded.
var ErrCorrupt = errors.New("ledger record corrupt")

// Record counts consecutive failures since the last reset.
// A zero Count is never persisted: absence means zero.
type Record struct {
	Count         int
	LastAttemptAt time.Time
}

// IsZero reports whether the record carries no failures.
func (r Record) IsZero() bool {
	return r.Count <= 0
}

// Next returns the record after one more failure at now.
func (r Record) Next(now time.Time) Record {
	count := r.Count
	if count < 0 {
		count = 0
	}
	return Record{Count: count + 1, LastAttemptAt: now}
}

// Stale reports whether the last failure is at least window old.
func (r Record) Stale(now time.Time, window time.Duration) bool {
	if r.IsZero() || window <= 0 {
		return false
	}
	return !now.Before(r.LastAttemptAt.Add(window))
}

// Lockout marks an action as blocked until UnlocksAt.
type Lockout struct {
	UnlocksAt time.Time
}

// Active reports whether the lockout still blocks at now.
func (l Lockout) Active(now time.Time) bool {
	return now.Before(l.UnlocksAt)
}

// Remaining returns the time left until UnlocksAt, floored at zero.
func (l Lockout) Remaining(now time.Time) time.Duration {
	d := l.UnlocksAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

func EncodeRecord(r Record) ([]byte, error) {
	if r.Count < 0 || r.Count > 0xFFFF {
		return nil, errors.New("ledger count out of range")
	}
	var buf bytes.Buffer
	buf.WriteByte(recordVersion1)
	if err := binary.Write(&buf, binary.BigEndian, uint16(r.Count)); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, ceilMillis(r.LastAttemptAt)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodeRecord(data []byte) (Record, error) {
	reader := bytes.NewReader(data)
	version, err := reader.ReadByte()
	if err != nil || version != recordVersion1 {
		return Record{}, ErrCorrupt
	}
	var (
		count uint16
		ms    int64
	)
	if err := binary.Read(reader, binary.BigEndian, &count); err != nil {
		return Record{}, ErrCorrupt
	}
	if err := binary.Read(reader, binary.BigEndian, &ms); err != nil {
		return Record{}, ErrCorrupt
	}
	if reader.Len() != 0 {
		return Record{}, ErrCorrupt
	}
	return Record{Count: int(count), LastAttemptAt: time.UnixMilli(ms)}, nil
}

func EncodeLockout(l Lockout) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(lockoutVersion1)
	if err := binary.Write(&buf, binary.BigEndian, ceilMillis(l.UnlocksAt)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodeLockout(data []byte) (Lockout, error) {
	reader := bytes.NewReader(data)
	version, err := reader.ReadByte()
	if err != nil || version != lockoutVersion1 {
		return Lockout{}, ErrCorrupt
	}
	var ms int64
	if err := binary.Read(reader, binary.BigEndian, &ms); err != nil {
		return Lockout{}, ErrCorrupt
	}
	if reader.Len() != 0 {
		return Lockout{}, ErrCorrupt
	}
	return Lockout{UnlocksAt: time.UnixMilli(ms)}, nil
}

// ceilMillis rounds up so a decoded instant is never earlier than the encoded one.
func ceilMillis(t time.Time) int64 {
	ms := t.UnixMilli()
	if t.Sub(time.UnixMilli(ms)) > 0 {
		ms++
	}
	return ms
}
