package server

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ClientConn 负责发送（写）事件到参与者的轻量包装
// send 通道永不关闭，Close 只关 done：关闭后的 Enqueue 静默丢弃，不会 panic
type ClientConn struct {
	ws        *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewClientConn(ws *websocket.Conn) *ClientConn {
	return &ClientConn{
		ws:   ws,
		send: make(chan []byte, 64),
		done: make(chan struct{}),
	}
}

// Enqueue 将要下发的事件压入队列（非阻塞，满或已关闭则丢弃保实时性）
func (c *ClientConn) Enqueue(b []byte) {
	select {
	case <-c.done:
		// 连接已关闭，丢弃
	case c.send <- b:
	default:
		// 丢弃：避免慢连接背压阻塞 Tick
	}
}

// Close 关闭底层连接并结束写协程（幂等）
func (c *ClientConn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.ws != nil {
			_ = c.ws.Close()
		}
	})
}

// writePump 独立协程，从 send 队列写出到 WS
func (c *ClientConn) writePump() {
	defer c.ws.Close()
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}

// readPump 读取参与者的变更请求并转交会话网关
// 模拟延迟/丢包在这里按连接串行施加，同一请求方的先后次序不会被打乱
func (c *ClientConn) readPump(session *Session, player string) {
	defer c.ws.Close()
	// 读泵退出时，请求在 Tick 协程中移除该参与者及其名下实体
	defer session.RequestLeave(player)
	c.ws.SetReadLimit(1 << 20) // 1MB
	_ = c.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.ws.SetPongHandler(func(string) error {
		_ = c.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		var msg RequestMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			continue
		}
		if msg.Type != "request" {
			continue
		}
		if p := session.dropProb(); p > 0 && rand.Float64() < p {
			session.metrics.IncDropsSimulated()
			continue
		}
		if max := int(session.simulateDelayMaxMs.Load()); max > 0 {
			min := int(session.simulateDelayMinMs.Load())
			if min > max {
				min = max
			}
			d := min + rand.Intn(max-min+1)
			time.Sleep(time.Duration(d) * time.Millisecond)
		}
		session.EnqueueRequest(requestFromMessage(player, msg))
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 演示环境：允许所有来源（生产环境需严格限制）
		return true
	},
}

// HandleWS WebSocket 接入：?session=session-1&player=alice&variant=scout
func HandleWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		sessionID = "session-1"
	}
	player := r.URL.Query().Get("player")
	if player == "" {
		http.Error(w, "missing player query", http.StatusBadRequest)
		return
	}
	variant := VariantFromString(r.URL.Query().Get("variant"))

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		Log.Warnf("upgrade error: %v", err)
		return
	}

	sm := GetSessionManager()
	session := sm.GetOrCreateSession(sessionID)

	client := NewClientConn(ws)
	go client.writePump()
	// Join 在 Tick 协程中 spawn 该参与者名下的实体并补发快照
	session.Join(player, SpawnSeed{Name: player, Variant: variant}, client)
	go client.readPump(session, player)
}

// HostLink 观察者进程到权威的单一链路：读泵喂镜像，写泵回传请求
// send 通道永不关闭，Close 后的 SendRequest 静默丢弃
type HostLink struct {
	ws        *websocket.Conn
	send      chan []byte
	mirror    *Mirror
	done      chan struct{} // 读泵退出时关闭
	closed    chan struct{} // Close 时关闭
	closeOnce sync.Once
}

// DialHost 观察者拨号接入权威；base 形如 ws://host:8080/ws
func DialHost(base, sessionID, player string, variant Variant) (*HostLink, error) {
	u := fmt.Sprintf("%s?session=%s&player=%s&variant=%s", base,
		url.QueryEscape(sessionID), url.QueryEscape(player), url.QueryEscape(variantName(variant)))
	ws, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		return nil, fmt.Errorf("dial host: %w", err)
	}
	l := &HostLink{
		ws:     ws,
		send:   make(chan []byte, 64),
		done:   make(chan struct{}),
		closed: make(chan struct{}),
	}
	l.mirror = NewMirror(l)
	go l.writePump()
	go l.readPump()
	Log.Infof("connected to host %s as %s", base, player)
	return l, nil
}

// Mirror 本链路维护的只读镜像
func (l *HostLink) Mirror() *Mirror { return l.mirror }

// Done 链路断开时关闭
func (l *HostLink) Done() <-chan struct{} { return l.done }

// SendRequest 回传一条变更请求（非阻塞，发后不理）
func (l *HostLink) SendRequest(msg RequestMessage) {
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case <-l.closed:
	case l.send <- b:
	default:
	}
}

func (l *HostLink) writePump() {
	defer l.ws.Close()
	for {
		select {
		case <-l.closed:
			return
		case msg := <-l.send:
			_ = l.ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := l.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}

// readPump 按到达顺序把权威事件套用到镜像（传输层保证有序可靠）
func (l *HostLink) readPump() {
	defer close(l.done)
	defer l.ws.Close()
	for {
		_, payload, err := l.ws.ReadMessage()
		if err != nil {
			return
		}
		var ev EventMessage
		if err := json.Unmarshal(payload, &ev); err != nil {
			continue
		}
		l.mirror.Apply(ev)
	}
}

// Close 主动断开链路（幂等）
func (l *HostLink) Close() {
	l.closeOnce.Do(func() {
		close(l.closed)
		_ = l.ws.Close()
	})
}
