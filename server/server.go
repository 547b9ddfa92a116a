package server

import (
	"encoding/json"
	"net/http"
	gorpc "net/rpc"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wfunc/chemrace/broadcast"
	"github.com/wfunc/chemrace/logger"
	"github.com/wfunc/chemrace/monitor"
	"github.com/wfunc/chemrace/network"
	"github.com/wfunc/chemrace/persistence"
	"github.com/wfunc/chemrace/questions"
	"github.com/wfunc/chemrace/room"
	chemrace_rpc "github.com/wfunc/chemrace/rpc"
	"github.com/wfunc/chemrace/services"
	"github.com/wfunc/chemrace/session"
	"github.com/wfunc/chemrace/timer"
)

type GameServer struct {
	addr           string
	staticDir      string
	upgrader       websocket.Upgrader
	roomManager    *room.Manager
	sessionManager *session.Manager
	broadcaster    broadcast.Broadcaster
	recordService  *services.RecordService
	monitor        *monitor.Monitor
	timerManager   *timer.Manager
	rpcServer      *chemrace_rpc.Server
	metricsAddr    string
	shutdownChan   chan struct{}
}

// NewGameServer wires the registry, the broadcaster and the collaborators
// together. db may be nil, in which case finished games are not archived.
func NewGameServer(addr, rpcAddr, metricsAddr, staticDir string, db persistence.Database) *GameServer {
	s := &GameServer{
		addr:           addr,
		staticDir:      staticDir,
		metricsAddr:    metricsAddr,
		roomManager:    room.NewManager(questions.NewBank()),
		sessionManager: session.NewManager(),
		monitor:        monitor.NewMonitor("chemrace"),
		timerManager:   timer.NewManager(),
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}

	// 初始化广播器
	s.broadcaster = broadcast.NewRoomBroadcaster(s.roomManager, s.sessionManager)
	s.roomManager.SetBroadcaster(s.broadcaster)

	// 初始化游戏存档
	if db != nil {
		s.recordService = services.NewRecordService(db)
		s.roomManager.SetRecorder(s.recordService)
	}

	// 初始化RPC服务器
	rpcServer, err := chemrace_rpc.NewServer(rpcAddr)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	s.rpcServer = rpcServer

	// 注册RPC服务
	adminService := chemrace_rpc.NewAdminService(s, s.recordService)
	gorpc.Register(adminService)

	return s
}

// RoomCount implements rpc.StatusProvider.
func (s *GameServer) RoomCount() int {
	return s.roomManager.Count()
}

// ConnectionCount implements rpc.StatusProvider.
func (s *GameServer) ConnectionCount() int {
	return s.sessionManager.Count()
}

func (s *GameServer) Start() error {
	go s.rpcServer.Start()
	s.monitor.StartServer(s.metricsAddr)

	// 定时刷新房间指标
	s.timerManager.Schedule(0, 5*time.Second, func() {
		s.monitor.SetActiveRooms(s.roomManager.Count())
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/", http.FileServer(http.Dir(s.staticDir)))

	logger.Log.Infof("Game server listening on %s", s.addr)
	return http.ListenAndServe(s.addr, mux)
}

func (s *GameServer) Shutdown() {
	close(s.shutdownChan)
	s.timerManager.Stop()
	s.rpcServer.Stop()
}

// handleHealth is the liveness endpoint.
func (s *GameServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"rooms":   s.roomManager.Count(),
		"players": s.sessionManager.Count(),
	})
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *GameServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	sess := session.NewSession(uuid.New().String(), wsConn)
	s.sessionManager.Add(sess)
	s.monitor.IncConnectedPlayers()

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	sess.Send(network.EventConnectionConfirmed, map[string]string{
		"connectionId": sess.GetID(),
		"message":      "Connected to ChemRace server",
	})

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		s.handleDisconnect(sess)
		s.monitor.DecConnectedPlayers()
		wsConn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			event, err := wsConn.ReadEvent()
			if err != nil {
				return
			}
			s.handleEvent(sess, event)
		}
	}
}

// handleDisconnect tears down both halves of the registry for one
// connection: the room membership first, then the connection mapping.
func (s *GameServer) handleDisconnect(sess *session.Session) {
	if roomCode, playerName, ok := s.sessionManager.Resolve(sess.GetID()); ok {
		_, deleted := s.roomManager.HandleDeparture(roomCode, sess.GetID())
		if deleted {
			logger.Log.Infof("Room %s deleted (empty)", roomCode)
		} else {
			logger.Log.Infof("%s left room %s", playerName, roomCode)
		}
	}
	s.sessionManager.Remove(sess.GetID())
}

func (s *GameServer) handleEvent(sess *session.Session, event *network.Event) {
	start := time.Now()
	s.monitor.IncEventsReceived()
	defer func() {
		s.monitor.ObserveEventLatency(time.Since(start))
	}()

	switch event.Name {
	case network.EventCreateRoom:
		s.handleCreateRoom(sess, event.Data)
	case network.EventJoinRoom:
		s.handleJoinRoom(sess, event.Data)
	case network.EventStartGame:
		s.handleStartGame(sess, event.Data)
	case network.EventRequestQuestion:
		s.handleRequestQuestion(sess, event.Data)
	case network.EventSubmitAnswer:
		s.handleSubmitAnswer(sess, event.Data)
	case network.EventNextRound:
		s.handleNextRound(sess, event.Data)
	case network.EventPlayerReady:
		s.handlePlayerReady(sess, event.Data)
	case network.EventGetRooms:
		s.handleGetRooms(sess)
	default:
		logger.Log.Infof("Unknown event type: %s", event.Name)
	}
}

// sendError reports a failed precondition to the originating connection only.
func (s *GameServer) sendError(sess *session.Session, err error) {
	sess.Send(network.EventError, map[string]string{"message": err.Error()})
}

type createRoomRequest struct {
	PlayerName string `json:"playerName"`
	Difficulty string `json:"difficulty"`
}

func (s *GameServer) handleCreateRoom(sess *session.Session, data json.RawMessage) {
	var req createRoomRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}

	_, snap := s.roomManager.CreateRoom(sess.GetID(), req.PlayerName, req.Difficulty)
	sess.Bind(snap.Code, req.PlayerName)

	logger.Log.Infof("Room %s created by %s", snap.Code, req.PlayerName)

	sess.Send(network.EventRoomCreated, map[string]interface{}{
		"roomCode": snap.Code,
		"room":     snap,
	})
}

type joinRoomRequest struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
}

func (s *GameServer) handleJoinRoom(sess *session.Session, data json.RawMessage) {
	var req joinRoomRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}

	snap, player, err := s.roomManager.JoinRoom(req.RoomCode, sess.GetID(), req.PlayerName)
	if err != nil {
		s.sendError(sess, err)
		return
	}
	sess.Bind(snap.Code, req.PlayerName)

	logger.Log.Infof("%s joined room %s", req.PlayerName, snap.Code)

	s.broadcaster.BroadcastToRoom(snap.Code, network.EventPlayerJoined, map[string]interface{}{
		"player": player,
		"room":   snap,
	})
	sess.Send(network.EventJoinedRoom, map[string]interface{}{"room": snap})
}

type roomScopedRequest struct {
	RoomCode string `json:"roomCode"`
}

func (s *GameServer) handleStartGame(sess *session.Session, data json.RawMessage) {
	var req roomScopedRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}

	r, exists := s.roomManager.GetRoom(req.RoomCode)
	if !exists {
		s.sendError(sess, room.ErrRoomNotFound)
		return
	}

	if err := r.Start(sess.GetID()); err != nil {
		s.sendError(sess, err)
		return
	}
	logger.Log.Infof("Game started in room %s", req.RoomCode)
}

func (s *GameServer) handleRequestQuestion(sess *session.Session, data json.RawMessage) {
	var req roomScopedRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}

	r, exists := s.roomManager.GetRoom(req.RoomCode)
	if !exists {
		return
	}
	r.BeginRound()
}

type submitAnswerRequest struct {
	RoomCode  string  `json:"roomCode"`
	IsCorrect bool    `json:"isCorrect"`
	TimeTaken float64 `json:"timeTaken"`
	Points    int     `json:"points"`
}

func (s *GameServer) handleSubmitAnswer(sess *session.Session, data json.RawMessage) {
	var req submitAnswerRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}

	r, exists := s.roomManager.GetRoom(req.RoomCode)
	if !exists {
		return
	}
	r.SubmitAnswer(sess.GetID(), req.IsCorrect, req.TimeTaken, req.Points)
}

func (s *GameServer) handleNextRound(sess *session.Session, data json.RawMessage) {
	var req roomScopedRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}

	r, exists := s.roomManager.GetRoom(req.RoomCode)
	if !exists {
		return
	}
	r.AdvanceRound(sess.GetID())
}

func (s *GameServer) handlePlayerReady(sess *session.Session, data json.RawMessage) {
	var req roomScopedRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}

	r, exists := s.roomManager.GetRoom(req.RoomCode)
	if !exists {
		return
	}
	r.MarkReady(sess.GetID())
}

func (s *GameServer) handleGetRooms(sess *session.Session) {
	sess.Send(network.EventRoomsList, map[string]interface{}{
		"rooms": s.roomManager.ListWaiting(),
	})
}
