package server

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/rs/zerolog"

	"casino-engine/models"
)

// TCPServer speaks newline-delimited JSON commands on the admin port.
type TCPServer struct {
	address  string
	listener net.Listener
	handler  *CommandHandler
	logger   zerolog.Logger

	mu       sync.Mutex
	conns    map[net.Conn]struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
	ready    chan struct{}
}

func NewTCPServer(address string, handler *CommandHandler, logger zerolog.Logger) *TCPServer {
	return &TCPServer{
		address: address,
		handler: handler,
		logger:  logger.With().Str("component", "admin").Logger(),
		conns:   make(map[net.Conn]struct{}),
		ready:   make(chan struct{}),
	}
}

// Start listens and serves until Stop. It returns nil after a clean stop.
func (s *TCPServer) Start() error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to start admin server: %w", err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	close(s.ready)
	s.logger.Info().Str("addr", listener.Addr().String()).Msg("Admin server listening")

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Warn().Err(err).Msg("Error accepting connection")
			continue
		}

		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

// Addr blocks until the listener is bound and returns its address.
func (s *TCPServer) Addr() net.Addr {
	<-s.ready
	return s.listener.Addr()
}

func (s *TCPServer) handleConnection(conn net.Conn) {
	logger := s.logger.With().Str("remote", conn.RemoteAddr().String()).Logger()
	defer func() {
		conn.Close()
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		s.wg.Done()
		logger.Debug().Msg("Admin client disconnected")
	}()
	logger.Debug().Msg("Admin client connected")

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		var cmd models.Command
		if err := json.Unmarshal(scanner.Bytes(), &cmd); err != nil {
			s.sendResponse(conn, models.Response{Success: false, Error: fmt.Sprintf("invalid JSON: %v", err)})
			continue
		}

		response := s.handler.Handle(cmd)
		logger.Info().Str("command", cmd.Command).Bool("success", response.Success).Str("error", response.Error).Msg("Admin command")
		if err := s.sendResponse(conn, response); err != nil {
			logger.Warn().Err(err).Msg("Error writing response")
			return
		}
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		logger.Warn().Err(err).Msg("Scanner error")
	}
}

func (s *TCPServer) sendResponse(conn net.Conn, response models.Response) error {
	data, err := json.Marshal(response)
	if err != nil {
		data, _ = json.Marshal(models.Response{Success: false, Error: "failed to encode response"})
	}
	_, err = conn.Write(append(data, '\n'))
	return err
}

// Stop closes the listener and every open connection, then waits for the handlers.
func (s *TCPServer) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		if s.listener != nil {
			s.listener.Close()
		}
		for conn := range s.conns {
			conn.Close()
		}
		s.mu.Unlock()
		s.wg.Wait()
	})
}
