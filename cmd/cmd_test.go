package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webitel/message-wall/config"
	"github.com/webitel/message-wall/internal/domain/model"
	"github.com/webitel/message-wall/internal/handler/rest"
	"go.uber.org/fx"
)

func TestAdminClient(t *testing.T) {
	req := require.New(t)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(rest.AdminKeyHeader) != "k" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "unauthorized"})
			return
		}
		switch r.URL.Path {
		case "/api/admin/status":
			_ = json.NewEncoder(w).Encode(model.WallStatus{ActiveConnections: 3, TotalMessages: 7, LastActivity: &at})
		case "/api/admin/logs":
			assert.Equal(t, "5", r.URL.Query().Get("limit"))
			_ = json.NewEncoder(w).Encode([]model.LogEntry{{Type: model.LogApprove, Message: "message approved", Timestamp: at}})
		case "/api/admin/messages/pending":
			_ = json.NewEncoder(w).Encode(model.PendingList{Count: 2})
		}
	}))
	t.Cleanup(srv.Close)

	client := NewAdminClient(srv.URL+"/", "k")

	status, err := client.Status(context.Background())
	req.NoError(err)
	req.Equal(3, status.ActiveConnections)
	req.Equal(7, status.TotalMessages)

	logs, err := client.Logs(context.Background(), 5)
	req.NoError(err)
	req.Len(logs, 1)
	req.Equal(model.LogApprove, logs[0].Type)

	pending, err := client.Pending(context.Background())
	req.NoError(err)
	req.Equal(2, pending.Count)

	_, err = NewAdminClient(srv.URL, "wrong").Status(context.Background())
	req.ErrorContains(err, "unauthorized")
}

func TestRenderLogs(t *testing.T) {
	var buf bytes.Buffer
	err := RenderLogs(&buf, []model.LogEntry{{
		Type:      model.LogDelete,
		Message:   "message deleted",
		Data:      map[string]any{"section": "section1", "id": 4},
		Timestamp: time.Now(),
	}})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "delete")
	assert.Contains(t, out, "message deleted")
	assert.Contains(t, out, "id=4 section=section1")
}

func TestDashboardUpdate(t *testing.T) {
	d := &dashboard{}
	d.summary, d.sections, d.logs = newWidgets()

	d.update(model.WallStatus{
		ActiveConnections: 2,
		TotalMessages:     3,
		MessagesBySection: map[model.SectionKey]int{"section2": 1, "section1": 2},
		ConnectionsByRole: map[model.ClientRole]int{model.RoleDisplay: 1, model.RoleAdmin: 1},
	}, model.PendingList{Count: 1}, []model.LogEntry{{Type: model.LogConnection, Message: "client connected"}}, nil)

	assert.Contains(t, d.summary.Text, "Connections: 2")
	assert.Contains(t, d.summary.Text, "Pending:     1")
	assert.Equal(t, []string{"section1", "section2"}, d.sections.Labels)
	assert.Equal(t, []float64{2, 1}, d.sections.Data)
	assert.Len(t, d.logs.Rows, 2)
}

func TestOptions_GraphIsComplete(t *testing.T) {
	cfg, err := config.LoadConfig("", nil)
	require.NoError(t, err)
	require.NoError(t, fx.ValidateApp(Options(cfg), fx.NopLogger))
}
