package dispatch

import (
	"github.com/golang/snappy"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/yndnr/zonemesh-go/internal/core/domain"
)

// Kind distinguishes the frames exchanged between dispatchers.
type Kind uint8

// Frame kinds.
const (
	KindMessage  Kind = 1
	KindRequest  Kind = 2
	KindResponse Kind = 3
)

// Envelope field numbers.
const (
	fieldKind    protowire.Number = 1
	fieldID      protowire.Number = 2
	fieldFrom    protowire.Number = 3
	fieldPayload protowire.Number = 4
	fieldError   protowire.Number = 5
	fieldFlags   protowire.Number = 6
)

const flagSnappy uint64 = 1 << 0

// Envelope wraps a payload with routing and correlation data.
type Envelope struct {
	Kind    Kind
	ID      string
	From    string
	Payload []byte
	// Error is set on responses whose request handler failed.
	Error string
}

// Encode serializes e. Payloads of at least compressThreshold bytes are
// snappy-compressed; a threshold <= 0 disables compression.
func (e *Envelope) Encode(compressThreshold int) []byte {
	payload := e.Payload
	var flags uint64
	if compressThreshold > 0 && len(payload) >= compressThreshold {
		payload = snappy.Encode(nil, payload)
		flags |= flagSnappy
	}

	b := make([]byte, 0, len(payload)+len(e.ID)+len(e.From)+len(e.Error)+16)
	b = protowire.AppendTag(b, fieldKind, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(e.Kind))
	if e.ID != "" {
		b = protowire.AppendTag(b, fieldID, protowire.BytesType)
		b = protowire.AppendString(b, e.ID)
	}
	if e.From != "" {
		b = protowire.AppendTag(b, fieldFrom, protowire.BytesType)
		b = protowire.AppendString(b, e.From)
	}
	if len(payload) > 0 {
		b = protowire.AppendTag(b, fieldPayload, protowire.BytesType)
		b = protowire.AppendBytes(b, payload)
	}
	if e.Error != "" {
		b = protowire.AppendTag(b, fieldError, protowire.BytesType)
		b = protowire.AppendString(b, e.Error)
	}
	if flags != 0 {
		b = protowire.AppendTag(b, fieldFlags, protowire.VarintType)
		b = protowire.AppendVarint(b, flags)
	}
	return b
}

// DecodeEnvelope parses a frame produced by Encode. Unknown fields are
// skipped.
func DecodeEnvelope(b []byte) (*Envelope, error) {
	e := &Envelope{}
	var flags uint64

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, malformed(n)
		}
		b = b[n:]

		switch {
		case num == fieldKind && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, malformed(n)
			}
			e.Kind = Kind(v)
			b = b[n:]
		case num == fieldFlags && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, malformed(n)
			}
			flags = v
			b = b[n:]
		case (num == fieldID || num == fieldFrom || num == fieldError) && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, malformed(n)
			}
			switch num {
			case fieldID:
				e.ID = v
			case fieldFrom:
				e.From = v
			default:
				e.Error = v
			}
			b = b[n:]
		case num == fieldPayload && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, malformed(n)
			}
			e.Payload = append([]byte(nil), v...)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, malformed(n)
			}
			b = b[n:]
		}
	}

	switch e.Kind {
	case KindMessage, KindRequest, KindResponse:
	default:
		return nil, domain.ErrMalformedMessage.WithDetailsf("unknown frame kind %d", e.Kind)
	}

	if flags&flagSnappy != 0 {
		out, err := snappy.Decode(nil, e.Payload)
		if err != nil {
			return nil, domain.ErrMalformedMessage.WithDetails("payload could not be decompressed").WithCause(err)
		}
		e.Payload = out
	}
	return e, nil
}

func malformed(n int) error {
	return domain.ErrMalformedMessage.WithCause(protowire.ParseError(n))
}
