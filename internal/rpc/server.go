// Package rpc serves one editing session as Content-Length framed JSON-RPC
// 2.0 over a byte stream, usually stdio.
package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"vellum/internal/config"
	"vellum/internal/diag"
	"vellum/internal/session"
)

var (
	// ErrExit signals a graceful shutdown after receiving "exit".
	ErrExit = errors.New("rpc exit")
	// ErrExitWithoutShutdown signals an "exit" without a preceding "shutdown".
	ErrExitWithoutShutdown = errors.New("rpc exit without shutdown")

	errInvalidParams  = errors.New("invalid params")
	errNotInitialized = errors.New("session not initialized")
)

const (
	codeMethodNotFound   = -32601
	codeInvalidParams    = -32602
	codeNotInitialized   = -32002
	codeHostError        = -32000
	logNotificationTopic = "session/log"
)

// Options configures a Server.
type Options struct {
	// Config is applied to the session created by "initialize".
	Config config.Config
	Slog   *slog.Logger
	// Now supplies the simulated current time for compile requests that
	// carry none. Nil leaves the date unset.
	Now func() string
}

// Server handles requests for a single session, one at a time.
type Server struct {
	in     *bufio.Reader
	out    *bufio.Writer
	sendMu sync.Mutex

	opts Options
	log  *slog.Logger

	sess              *session.Session
	shutdownRequested bool
}

var _ diag.Logger = (*Server)(nil)

// NewServer constructs a server reading requests from in and writing
// responses and notifications to out.
func NewServer(in io.Reader, out io.Writer, opts Options) *Server {
	log := opts.Slog
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		in:   bufio.NewReader(in),
		out:  bufio.NewWriter(out),
		opts: opts,
		log:  log,
	}
}

// Run serves requests until exit, end of input or cancellation of ctx.
func (s *Server) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		payload, err := readMessage(s.in)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		var msg rpcMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.log.Warn("failed to parse message", "err", err)
			continue
		}
		if msg.Method == "" {
			continue
		}
		if err := s.handleMessage(ctx, &msg); err != nil {
			return err
		}
	}
}

func (s *Server) handleMessage(ctx context.Context, msg *rpcMessage) error {
	switch msg.Method {
	case "initialize":
		result, err := s.handleInitialize(msg.Params)
		return s.reply(msg, result, err)
	case "initialized":
		return nil
	case "shutdown":
		s.shutdownRequested = true
		return s.sendResponse(msg.ID, nil)
	case "exit":
		if s.shutdownRequested {
			return ErrExit
		}
		return ErrExitWithoutShutdown
	}

	handler, ok := sessionMethods[msg.Method]
	if !ok {
		if len(msg.ID) > 0 {
			return s.sendError(msg.ID, rpcError{Code: codeMethodNotFound, Message: "method not found"})
		}
		return nil
	}
	if s.sess == nil {
		return s.reply(msg, nil, errNotInitialized)
	}
	result, err := handler(ctx, s, msg.Params)
	return s.reply(msg, result, err)
}

// reply answers a request. Notifications get no answer; a failed
// notification is only logged.
func (s *Server) reply(msg *rpcMessage, result any, err error) error {
	if len(msg.ID) == 0 {
		if err != nil {
			s.log.Warn("notification failed", "method", msg.Method, "err", err)
		}
		return nil
	}
	if err != nil {
		return s.sendError(msg.ID, toRPCError(err))
	}
	return s.sendResponse(msg.ID, result)
}

func decodeParams(raw json.RawMessage, into any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("%w: %v", errInvalidParams, err)
	}
	return nil
}

func (s *Server) sendResponse(id json.RawMessage, result any) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result":  result,
	}
	return s.send(msg)
}

func (s *Server) sendError(id json.RawMessage, e rpcError) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error":   e,
	}
	return s.send(msg)
}

func (s *Server) notify(method string, params any) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
	}
	return s.send(msg)
}

func (s *Server) send(msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if err := writeMessage(s.out, payload); err != nil {
		return err
	}
	return s.out.Flush()
}

// Note, Warning and Error push session log entries to the client as
// notifications, ahead of the response of the request that caused them.
func (s *Server) Note(msg string) {
	s.pushLog(logParams{Kind: diag.KindNote.String(), Message: msg})
}

func (s *Server) Warning(msg string, loc diag.Location, hints []string) {
	s.pushLog(located(diag.KindWarning, msg, loc, hints))
}

func (s *Server) Error(msg string, loc diag.Location, hints []string) {
	s.pushLog(located(diag.KindError, msg, loc, hints))
}

func located(kind diag.Kind, msg string, loc diag.Location, hints []string) logParams {
	p := logParams{Kind: kind.String(), Message: msg, Hints: hints}
	if loc.Known() {
		p.File = loc.File
		p.Start = &linePos{Line: loc.Start.Line, Column: loc.Start.Column}
		p.End = &linePos{Line: loc.End.Line, Column: loc.End.Column}
	}
	return p
}

func (s *Server) pushLog(p logParams) {
	if err := s.notify(logNotificationTopic, p); err != nil {
		s.log.Warn("failed to send log notification", "err", err)
	}
}
