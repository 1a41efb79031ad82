// Package ingest is the TCP line-ingest collaborator described in
// spec.md §6: it accumulates plaintext from a connection until the
// peer closes, then forwards the whole block to the log as one
// atomic append.
package ingest

import (
	"bytes"
	"io"
	"log"
	"net"

	carbonlog "carbonpool/internal/log"
)

// DefaultMaxBlockBytes bounds how much a single connection may
// accumulate before ingest gives up on it, matching
// original_source/carbonpool/app.py's 4 MiB cap.
const DefaultMaxBlockBytes = 4096 * 1024

// Server accepts plaintext metric lines over TCP and appends each
// connection's accumulated bytes to Log as a single block.
type Server struct {
	Log           *carbonlog.Log
	MaxBlockBytes int64
}

// NewServer returns a Server with the default accumulation cap.
func NewServer(l *carbonlog.Log) *Server {
	return &Server{Log: l, MaxBlockBytes: DefaultMaxBlockBytes}
}

// ListenAndServe accepts connections on addr until the listener is
// closed or an Accept error occurs.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	defer ln.Close()

	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	block, err := s.accumulate(conn)
	if err != nil {
		log.Printf("ingest: %s: %v", conn.RemoteAddr(), err)
		return
	}

	if !bytes.ContainsRune(block, '\n') {
		log.Printf("ingest: %s: rejected block with no newline", conn.RemoteAddr())
		return
	}

	ok, err := s.Log.Append(block)
	if err != nil {
		log.Printf("ingest: %s: append: %v", conn.RemoteAddr(), err)
		return
	}
	if !ok {
		log.Printf("ingest: %s: rejected oversize block (%d bytes)", conn.RemoteAddr(), len(block))
	}
}

// accumulate reads until the peer closes the connection or the block
// would exceed MaxBlockBytes.
func (s *Server) accumulate(conn net.Conn) ([]byte, error) {
	limit := s.MaxBlockBytes
	if limit <= 0 {
		limit = DefaultMaxBlockBytes
	}

	var buf bytes.Buffer
	chunk := make([]byte, 4096)
	for {
		n, err := conn.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			if int64(buf.Len()) > limit {
				return nil, errBlockTooLarge
			}
		}
		if err == io.EOF {
			return buf.Bytes(), nil
		}
		if err != nil {
			return nil, err
		}
	}
}
