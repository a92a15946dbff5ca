package notify

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_DropsOldest(t *testing.T) {
	b := NewBuffer(2)
	ctx := context.Background()
	b.Notify(ctx, Info, "one")
	b.Notify(ctx, Success, "two")
	b.Notify(ctx, Error, "three")

	got := b.Drain()
	require.Len(t, got, 2)
	assert.Equal(t, "two", got[0].Message)
	assert.Equal(t, Error, got[1].Level)
	assert.Empty(t, b.Drain())
}

func TestMulti_FansOut(t *testing.T) {
	var buf bytes.Buffer
	rec := &Recorder{}
	m := Multi{rec, NewLog(slog.New(slog.NewJSONHandler(&buf, nil)))}

	m.Notify(context.Background(), Error, "boom")

	assert.Equal(t, Notice{Level: Error, Message: "boom"}, rec.Last())
	assert.Contains(t, buf.String(), `"message":"boom"`)
	assert.Contains(t, buf.String(), `"level":"WARN"`)
}

func TestWriter_PrintsLevelAndMessage(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Notify(context.Background(), Success, "Successfully submitted!")
	w.Notify(context.Background(), Error, "Failed to submit links. Please try again.")

	assert.Equal(t, "[success] Successfully submitted!\n[error] Failed to submit links. Please try again.\n", buf.String())
}
