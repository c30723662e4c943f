package gossip

import (
	"cmp"
	"slices"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/yndnr/zonemesh-go/internal/core/domain"
)

const metaFieldJoinedAt protowire.Number = 1

// nodeMeta is gossiped with every node. Join time orders members by
// seniority identically on every node.
type nodeMeta struct {
	JoinedAt int64 // unix nanoseconds
}

func (m nodeMeta) encode() []byte {
	var b []byte
	b = protowire.AppendTag(b, metaFieldJoinedAt, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.JoinedAt))
	return b
}

func decodeMeta(b []byte) (nodeMeta, error) {
	var m nodeMeta
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nodeMeta{}, domain.ErrMalformedMessage.WithDetails("node meta tag").WithCause(protowire.ParseError(n))
		}
		b = b[n:]
		if num == metaFieldJoinedAt && typ == protowire.VarintType {
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nodeMeta{}, domain.ErrMalformedMessage.WithDetails("node meta joined_at").WithCause(protowire.ParseError(n))
			}
			m.JoinedAt = int64(v)
			b = b[n:]
			continue
		}
		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return nodeMeta{}, domain.ErrMalformedMessage.WithDetails("node meta field").WithCause(protowire.ParseError(n))
		}
		b = b[n:]
	}
	return m, nil
}

type member struct {
	name string
	meta nodeMeta
}

// seniorityOrder sorts members oldest first; ties break on name.
func seniorityOrder(members []member) []string {
	sorted := slices.Clone(members)
	slices.SortFunc(sorted, func(a, b member) int {
		if c := cmp.Compare(a.meta.JoinedAt, b.meta.JoinedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.name, b.name)
	})
	names := make([]string, len(sorted))
	for i, m := range sorted {
		names[i] = m.name
	}
	return names
}
