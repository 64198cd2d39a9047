package websocket

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/rajivgeraev/swapmap-api/internal/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Браузерный клиент ходит с другого origin (Telegram Mini App)
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server поднимает отдельный HTTP-сервер для WebSocket соединений.
// gorilla/websocket работает поверх net/http, поэтому live-обновления
// живут на своем порту рядом с основным API.
type Server struct {
	manager    *Manager
	jwtService *utils.JWTService
}

// NewServer создает новый экземпляр Server
func NewServer(manager *Manager, jwtService *utils.JWTService) *Server {
	return &Server{
		manager:    manager,
		jwtService: jwtService,
	}
}

// handleWS апгрейдит соединение и регистрирует клиента.
// Токен передается query-параметром, так как браузерный WebSocket
// не умеет выставлять заголовок Authorization.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	userID, err := s.jwtService.ExtractUserID(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Ошибка апгрейда WebSocket: %v", err)
		return
	}

	client := NewClient(userID, conn, s.manager)
	client.Start()
}

// ListenAndServe запускает WebSocket сервер на указанном адресе
func (s *Server) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)

	log.Printf("✅ WebSocket сервер запущен на %s", addr)
	return http.ListenAndServe(addr, mux)
}
