package journal

import (
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"github.com/webitel/message-wall/internal/domain/model"
)

func TestJournal_TailNewestFirst(t *testing.T) {
	req := require.New(t)
	j := New(3, nil)

	_, ok := j.Last()
	req.False(ok)
	req.Empty(j.Tail(10))

	for i := range 5 {
		j.Append(model.LogNewMessage, fmt.Sprintf("m%d", i), nil)
	}

	// Then only the 3 most recent survive, newest first
	req.Equal(3, j.Len())
	tail := j.Tail(10)
	req.Len(tail, 3)
	req.Equal("m4", tail[0].Message)
	req.Equal("m3", tail[1].Message)
	req.Equal("m2", tail[2].Message)

	req.Len(j.Tail(2), 2)
	req.Len(j.Tail(0), 3)

	last, ok := j.Last()
	req.True(ok)
	req.Equal("m4", last.Message)
}

func TestJournal_AppendStampsEntries(t *testing.T) {
	req := require.New(t)
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	j := New(0, clockwork.NewFakeClockAt(at))

	entry := j.Append(model.LogApprove, "approved", map[string]any{"id": int64(7)})
	req.Equal(at, entry.Timestamp)
	req.Equal(model.LogApprove, entry.Type)
	req.Equal(int64(7), entry.Data["id"])

	entry = j.Append(model.LogClearAll, "cleared", nil)
	req.NotNil(entry.Data)

	for range DefaultCapacity + 10 {
		j.Append(model.LogConnection, "c", nil)
	}
	req.Equal(DefaultCapacity, j.Len())
}
