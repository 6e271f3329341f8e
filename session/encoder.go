package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"time"
)

const credentialFormatVersion1 = 1

// ErrCorrupt is returned when a persisted credential cannot be decoded.
var ErrCorrupt = errors.New("session credential corrupt")

// Encode serializes c as: version, token, id, first name, last name, email, role
// (each uint16-length prefixed), issued-at epoch milliseconds.
func Encode(c *Credential) ([]byte, error) {
	if c == nil {
		return nil, errors.New("nil credential")
	}
	var buf bytes.Buffer
	buf.WriteByte(credentialFormatVersion1)

	fields := []string{c.Token, c.User.ID, c.User.FirstName, c.User.LastName, c.User.Email, c.User.Role}
	for _, f := range fields {
		if len(f) > 65535 {
			return nil, errors.New("session field too long")
		}
		if err := binary.Write(&buf, binary.BigEndian, uint16(len(f))); err != nil {
			return nil, err
		}
		buf.WriteString(f)
	}

	if err := binary.Write(&buf, binary.BigEndian, c.IssuedAt.UnixMilli()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses a blob produced by [Encode].
func Decode(data []byte) (*Credential, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, ErrCorrupt
	}
	if version != credentialFormatVersion1 {
		return nil, ErrCorrupt
	}

	var fields [6]string
	for i := range fields {
		var n uint16
		if err := binary.Read(reader, binary.BigEndian, &n); err != nil {
			return nil, ErrCorrupt
		}
		b := make([]byte, n)
		if _, err := io.ReadFull(reader, b); err != nil {
			return nil, ErrCorrupt
		}
		fields[i] = string(b)
	}

	var issued int64
	if err := binary.Read(reader, binary.BigEndian, &issued); err != nil {
		return nil, ErrCorrupt
	}
	if reader.Len() != 0 {
		return nil, ErrCorrupt
	}

	return &Credential{
		Token: fields[0],
		User: User{
			ID:        fields[1],
			FirstName: fields[2],
			LastName:  fields[3],
			Email:     fields[4],
			Role:      fields[5],
		},
		IssuedAt: time.UnixMilli(issued),
	}, nil
}
