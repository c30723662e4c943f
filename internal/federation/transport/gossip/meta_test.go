package gossip

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/yndnr/zonemesh-go/internal/core/domain"
)

func TestNodeMeta_RoundTrip(t *testing.T) {
	in := nodeMeta{JoinedAt: 1_700_000_000_123_456_789}

	out, err := decodeMeta(in.encode())
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestNodeMeta_Empty(t *testing.T) {
	out, err := decodeMeta(nil)
	require.NoError(t, err)
	assert.Zero(t, out.JoinedAt)
}

func TestNodeMeta_SkipsUnknownFields(t *testing.T) {
	b := nodeMeta{JoinedAt: 42}.encode()
	b = protowire.AppendTag(b, 9, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte("future"))

	out, err := decodeMeta(b)
	require.NoError(t, err)
	assert.Equal(t, int64(42), out.JoinedAt)
}

func TestNodeMeta_Malformed(t *testing.T) {
	_, err := decodeMeta([]byte{0x08})
	assert.ErrorIs(t, err, domain.ErrMalformedMessage)
}

func TestSeniorityOrder(t *testing.T) {
	members := []member{
		{name: "c", meta: nodeMeta{JoinedAt: 30}},
		{name: "b", meta: nodeMeta{JoinedAt: 10}},
		{name: "a", meta: nodeMeta{JoinedAt: 10}},
		{name: "d", meta: nodeMeta{JoinedAt: 20}},
	}

	assert.Equal(t, []string{"a", "b", "d", "c"}, seniorityOrder(members))
	assert.Equal(t, "c", members[0].name, "input must not be reordered")
}

func TestSlogWriter_InfersLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	w := &slogWriter{logger: logger}

	_, _ = w.Write([]byte("[DEBUG] memberlist: probing\n"))
	_, _ = w.Write([]byte("[WARN]  memberlist: refuting suspect\n"))
	_, _ = w.Write([]byte("[ERROR] memberlist: failed\n"))

	out := buf.String()
	assert.NotContains(t, out, "probing")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "level=ERROR")
}
