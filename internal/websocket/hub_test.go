package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ikkim/telecom-settlement-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T, origins []string, job *model.RecalculationJob) (*Hub, string, context.CancelFunc) {
	t.Helper()
	hub := NewHub(origins)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := hub.Upgrade(w, r)
		if err != nil {
			return
		}
		client, err := hub.NewClient(conn, 1, job)
		if err != nil {
			conn.Close()
			return
		}
		hub.Register(client)
		go client.WritePump()
		go client.ReadPump()
	}))
	t.Cleanup(func() {
		cancel()
		server.Close()
	})

	return hub, "ws" + strings.TrimPrefix(server.URL, "http"), cancel
}

func readProgress(t *testing.T, conn *websocket.Conn) JobProgress {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg JobProgress
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHub_StreamsJobProgress(t *testing.T) {
	job := &model.RecalculationJob{ID: uuid.New(), DealerCode: "D001", Status: model.JobStatusPending}
	hub, url, cancel := startHub(t, []string{"*"}, job)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// 연결 직후 현재 상태
	first := readProgress(t, conn)
	assert.Equal(t, MessageTypeJobProgress, first.Type)
	assert.Equal(t, model.JobStatusPending, first.Job.Status)

	require.Eventually(t, func() bool { return hub.Subscribers(job.ID) == 1 }, 2*time.Second, 10*time.Millisecond)

	running := *job
	running.Status = model.JobStatusRunning
	running.Processed = 3
	running.LastSaleID = 42
	hub.PublishJobProgress(&running)

	update := readProgress(t, conn)
	assert.Equal(t, model.JobStatusRunning, update.Job.Status)
	assert.Equal(t, 3, update.Job.Processed)
	assert.Equal(t, uint(42), update.Job.LastSaleID)

	// 다른 작업의 진행 상황은 받지 않는다
	other := &model.RecalculationJob{ID: uuid.New(), Status: model.JobStatusRunning}
	hub.PublishJobProgress(other)
	completed := running
	completed.Status = model.JobStatusCompleted
	hub.PublishJobProgress(&completed)

	last := readProgress(t, conn)
	assert.Equal(t, job.ID, last.Job.ID)
	assert.Equal(t, model.JobStatusCompleted, last.Job.Status)

	// 허브 종료 시 연결도 닫힌다
	cancel()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}

func TestHub_UnregistersClosedClient(t *testing.T) {
	job := &model.RecalculationJob{ID: uuid.New(), Status: model.JobStatusRunning}
	hub, url, _ := startHub(t, []string{"*"}, job)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	readProgress(t, conn)
	require.Eventually(t, func() bool { return hub.Subscribers(job.ID) == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Subscribers(job.ID) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_RejectsUnknownOrigin(t *testing.T) {
	job := &model.RecalculationJob{ID: uuid.New(), Status: model.JobStatusPending}
	_, url, _ := startHub(t, []string{"https://erp.example.com"}, job)

	header := http.Header{}
	header.Set("Origin", "https://other.example.com")
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "https://erp.example.com")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	conn.Close()
}

func TestHub_PublishWithoutSubscribers(t *testing.T) {
	hub := NewHub(nil)
	job := &model.RecalculationJob{ID: uuid.New()}

	// Run이 없어 버퍼가 가득 차도 막히지 않는다
	for i := 0; i < 2000; i++ {
		hub.PublishJobProgress(job)
	}
	assert.Equal(t, 0, hub.Subscribers(job.ID))
}

func TestHub_RegisterAndUnregisterAfterStop(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	select {
	case <-hub.Stopped():
	default:
		t.Fatal("hub not marked stopped")
	}

	job := &model.RecalculationJob{ID: uuid.New()}
	client := &Client{Hub: hub, JobID: job.ID, Send: make(chan []byte, sendBufferSize)}

	finished := make(chan struct{})
	go func() {
		// 수신자가 없어도 막히지 않아야 한다
		for i := 0; i < 1000; i++ {
			hub.Unregister(client)
		}
		hub.Register(client)
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("register/unregister blocked after hub stopped")
	}

	// 멈춘 허브에 등록하면 Send가 닫혀 WritePump가 끝난다
	_, ok := <-client.Send
	assert.False(t, ok)
	assert.Equal(t, 0, hub.Subscribers(job.ID))
}
