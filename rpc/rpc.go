package rpc

import (
	"errors"
	"net"
	"net/rpc"
	"time"

	"github.com/wfunc/chemrace/logger"
	"github.com/wfunc/chemrace/models"
	"github.com/wfunc/chemrace/services"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
}

// NewServer creates a new RPC server.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Check if the error is due to the listener being closed.
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// StatusProvider is the view of the live server the admin service reports on.
type StatusProvider interface {
	RoomCount() int
	ConnectionCount() int
}

// AdminService exposes operational queries over net/rpc.
type AdminService struct {
	provider StatusProvider
	records  *services.RecordService
	started  time.Time
}

// NewAdminService creates the RPC-facing admin service. records may be nil
// when the game archive is disabled.
func NewAdminService(provider StatusProvider, records *services.RecordService) *AdminService {
	return &AdminService{
		provider: provider,
		records:  records,
		started:  time.Now(),
	}
}

type StatusArgs struct{}

type StatusReply struct {
	Status          string
	RoomCount       int
	ConnectionCount int
	UptimeSeconds   float64
}

// Status reports liveness counters. net/rpc signature: exported method,
// pointer reply, error return.
func (a *AdminService) Status(args *StatusArgs, reply *StatusReply) error {
	reply.Status = "ok"
	reply.RoomCount = a.provider.RoomCount()
	reply.ConnectionCount = a.provider.ConnectionCount()
	reply.UptimeSeconds = time.Since(a.started).Seconds()
	return nil
}

type RecentGamesArgs struct {
	Limit int
}

type RecentGamesReply struct {
	Games []models.GameRecord
}

var errArchiveDisabled = errors.New("game archive is disabled")

// RecentGames returns the most recently archived games.
func (a *AdminService) RecentGames(args *RecentGamesArgs, reply *RecentGamesReply) error {
	if a.records == nil {
		return errArchiveDisabled
	}

	limit := args.Limit
	if limit <= 0 {
		limit = 10
	}

	games, err := a.records.RecentGames(limit)
	if err != nil {
		return err
	}
	reply.Games = games
	return nil
}
