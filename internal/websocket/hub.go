package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ikkim/telecom-settlement-backend/internal/app/model"
	"github.com/ikkim/telecom-settlement-backend/pkg/logger"
)

const (
	MessageTypeJobProgress = "job_progress"

	sendBufferSize = 64
)

// JobProgress 구독자에게 보내는 메시지
type JobProgress struct {
	Type string                  `json:"type"`
	Job  *model.RecalculationJob `json:"job"`
}

// Client 재계산 작업 하나를 구독하는 연결
type Client struct {
	Hub    *Hub
	Conn   *Conn
	UserID uint
	JobID  uuid.UUID
	Send   chan []byte
}

// Hub 작업별 구독자 관리
type Hub struct {
	// 작업 ID → 구독 중인 클라이언트
	rooms map[uuid.UUID]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage

	upgrader websocket.Upgrader

	// Run 종료 후 등록/해제 요청이 막히지 않게 한다
	done     chan struct{}
	doneOnce sync.Once

	mu sync.RWMutex
}

// BroadcastMessage 브로드캐스트 메시지
type BroadcastMessage struct {
	JobID   uuid.UUID
	Message []byte
}

// NewHub allowedOrigins에 "*"가 있으면 모든 Origin 허용
func NewHub(allowedOrigins []string) *Hub {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}

	return &Hub{
		rooms: make(map[uuid.UUID]map[*Client]bool),
		// 버퍼가 없어야 Run 종료 후의 요청이 done 쪽으로 빠진다
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage, 1024),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// 브라우저 외 클라이언트는 Origin을 보내지 않는다
				return origin == "" || origins["*"] || origins[origin]
			},
		},
	}
}

// Run ctx가 끝날 때까지 등록/해제/브로드캐스트를 처리한다
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.doneOnce.Do(func() { close(h.done) })
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			if _, ok := h.rooms[client.JobID]; !ok {
				h.rooms[client.JobID] = make(map[*Client]bool)
			}
			h.rooms[client.JobID][client] = true
			subscribers := len(h.rooms[client.JobID])
			h.mu.Unlock()
			logger.Info("Job progress subscriber registered", map[string]interface{}{
				"user_id":     client.UserID,
				"job_id":      client.JobID.String(),
				"subscribers": subscribers,
			})

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.JobID]; ok && clients[client] {
				delete(clients, client)
				if len(clients) == 0 {
					delete(h.rooms, client.JobID)
				}
				close(client.Send)
			}
			h.mu.Unlock()
			logger.Debug("Job progress subscriber unregistered", map[string]interface{}{
				"user_id": client.UserID,
				"job_id":  client.JobID.String(),
			})

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.rooms[message.JobID] {
				select {
				case client.Send <- message.Message:
				default:
					// 느린 구독자는 끊는다
					go h.Unregister(client)
					logger.Warn("Subscriber send buffer full, disconnecting", map[string]interface{}{
						"user_id": client.UserID,
						"job_id":  message.JobID.String(),
					})
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for jobID, clients := range h.rooms {
		for client := range clients {
			close(client.Send)
		}
		delete(h.rooms, jobID)
	}
}

// Upgrade HTTP 요청을 WebSocket 연결로 전환
func (h *Hub) Upgrade(w http.ResponseWriter, r *http.Request) (*Conn, error) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return &Conn{Conn: conn}, nil
}

// NewClient Send 버퍼에 현재 작업 상태를 먼저 넣어 둔다
func (h *Hub) NewClient(conn *Conn, userID uint, job *model.RecalculationJob) (*Client, error) {
	data, err := encodeProgress(job)
	if err != nil {
		return nil, err
	}

	client := &Client{
		Hub:    h,
		Conn:   conn,
		UserID: userID,
		JobID:  job.ID,
		Send:   make(chan []byte, sendBufferSize),
	}
	client.Send <- data
	return client, nil
}

// PublishJobProgress 작업 스냅샷을 구독자에게 보낸다. 채널이 가득 차면 버린다.
func (h *Hub) PublishJobProgress(job *model.RecalculationJob) {
	data, err := encodeProgress(job)
	if err != nil {
		logger.Error("Failed to marshal job progress", err, map[string]interface{}{
			"job_id": job.ID.String(),
		})
		return
	}

	select {
	case h.broadcast <- &BroadcastMessage{JobID: job.ID, Message: data}:
	default:
		logger.Warn("Broadcast channel full, progress dropped", map[string]interface{}{
			"job_id": job.ID.String(),
		})
	}
}

func encodeProgress(job *model.RecalculationJob) ([]byte, error) {
	return json.Marshal(JobProgress{Type: MessageTypeJobProgress, Job: job})
}

// Register 클라이언트 등록. 허브가 이미 멈췄으면 Send를 닫아 WritePump를 끝낸다.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

// Unregister 클라이언트 등록 해제. 허브가 멈춘 뒤에는 closeAll이 이미 정리했다.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Stopped Run이 끝나면 닫힌다
func (h *Hub) Stopped() <-chan struct{} {
	return h.done
}

// Subscribers 작업을 구독 중인 연결 수
func (h *Hub) Subscribers(jobID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[jobID])
}
