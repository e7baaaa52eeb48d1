package protocol

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	internalErrors "github.com/gcbaptista/mention-index/internal/errors"
	"github.com/gcbaptista/mention-index/internal/logging"
	"github.com/gcbaptista/mention-index/services"
)

// StdioServer exchanges newline-delimited JSON messages over a pair of streams.
// Each input line is one message; each response is written as one line, in input order.
type StdioServer struct {
	dispatcher services.Dispatcher
	log        *logrus.Entry
}

// NewStdioServer creates a server that forwards every decoded message to dispatcher.
func NewStdioServer(dispatcher services.Dispatcher, log *logrus.Entry) *StdioServer {
	if log == nil {
		log = logging.Discard()
	}
	return &StdioServer{dispatcher: dispatcher, log: log}
}

// Serve reads messages from r until EOF and writes responses to w. Lines that cannot be
// decoded and messages of unknown type produce no output.
//
// Reading is not interruptible: a cancelled ctx is noticed at the next line.
func (s *StdioServer) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	reader := bufio.NewReader(r)
	writer := bufio.NewWriter(w)
	lineNumber := 0

	for {
		line, readErr := reader.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			lineNumber++
			if err := s.handleLine(ctx, lineNumber, line, writer); err != nil {
				return err
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				s.log.Infof("Input closed after %d messages", lineNumber)
				return nil
			}
			return fmt.Errorf("failed to read message: %w", readErr)
		}
	}
}

func (s *StdioServer) handleLine(ctx context.Context, lineNumber int, line []byte, writer *bufio.Writer) error {
	req, err := Decode(line)
	if err != nil {
		s.log.Debugf("Dropping line %d: %v", lineNumber, err)
		return nil
	}

	resp, ok, err := s.dispatcher.Submit(ctx, req)
	if err != nil {
		if errors.Is(err, internalErrors.ErrEngineStopped) || ctx.Err() != nil {
			return err
		}
		s.log.Warnf("Failed to process %s message on line %d: %v", req.Type, lineNumber, err)
		return nil
	}
	if !ok {
		s.log.Debugf("Dropping line %d: unknown message type %q", lineNumber, req.Type)
		return nil
	}

	data, err := Encode(resp)
	if err != nil {
		s.log.Errorf("Failed to encode %s response: %v", resp.Type, err)
		return nil
	}
	if _, err := writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return nil
}
