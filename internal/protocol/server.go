package protocol

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mathieufro/strobe-vision/internal/pipeline"
	"github.com/mathieufro/strobe-vision/internal/vision"
)

// DefaultMaxLineBytes bounds one request line. It must exceed the pipeline's
// 50 MiB payload limit so oversized payloads still arrive and get a proper
// error response instead of breaking the channel.
const DefaultMaxLineBytes = 64 * 1024 * 1024

// Server reads requests line by line from an input channel and writes one
// response per line to an output channel. Requests are processed strictly
// one at a time: model loading and inference for a line complete before the
// next line is read.
type Server struct {
	pipe    *pipeline.Pipeline
	models  *vision.Manager
	log     *logrus.Logger
	maxLine int
}

// New creates a Server over the given pipeline and backend manager.
// maxLineBytes <= 0 selects DefaultMaxLineBytes.
func New(pipe *pipeline.Pipeline, models *vision.Manager, log *logrus.Logger, maxLineBytes int) *Server {
	if maxLineBytes <= 0 {
		maxLineBytes = DefaultMaxLineBytes
	}
	return &Server{pipe: pipe, models: models, log: log, maxLine: maxLineBytes}
}

// Run serves requests until the input channel is closed, then returns. Empty
// lines are ignored. Each response is encoded and written immediately, so a
// caller reading line-by-line never blocks on a buffered reply.
//
// Lines beyond the size cap are drained and answered with an error response
// rather than failing the channel: one oversized request must never
// terminate the process.
func (s *Server) Run(r io.Reader, w io.Writer) error {
	reader := bufio.NewReaderSize(r, 64*1024)
	encoder := json.NewEncoder(w)

	for {
		line, tooLong, err := readLine(reader, s.maxLine)

		var resp interface{}
		if tooLong {
			resp = newErrorResponse(unknownID,
				fmt.Sprintf("Request too large: line exceeds %d byte limit", s.maxLine))
		} else if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			resp = s.handleLine(trimmed)
		}
		if resp != nil {
			if err := encoder.Encode(resp); err != nil {
				return fmt.Errorf("failed to write response: %w", err)
			}
		}

		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("request channel error: %w", err)
		}
	}
}

// readLine reads one newline-terminated line, keeping at most max bytes.
// A longer line is drained through its terminator and reported as tooLong
// with no content. A non-empty line at EOF is still returned.
func readLine(r *bufio.Reader, max int) (line []byte, tooLong bool, err error) {
	for {
		chunk, err := r.ReadSlice('\n')
		if !tooLong {
			if len(line)+len(chunk) > max {
				tooLong = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}
		if err == nil {
			return line, tooLong, nil
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		return line, tooLong, err
	}
}

// handleLine dispatches one request and always produces exactly one
// response. Panics anywhere below this frame are converted to error
// responses — a single bad request must never take the process down.
func (s *Server) handleLine(line []byte) (resp interface{}) {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return newErrorResponse(unknownID, fmt.Sprintf("Invalid JSON: %v", err))
	}

	id := req.ID
	if id == "" {
		id = unknownID
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.WithField("id", id).Errorf("panic during dispatch: %v", r)
			resp = newErrorResponse(id, fmt.Sprintf("internal error: %v", r))
		}
	}()

	switch req.Type {
	case "ping":
		// Never forces model loading; reports state as-is.
		return newPongResponse(id, s.models.Loaded(), s.models.Device())

	case "detect":
		return s.handleDetect(id, &req)

	default:
		return newErrorResponse(id, fmt.Sprintf("Unknown request type: %s", req.Type))
	}
}

func (s *Server) handleDetect(id string, req *Request) interface{} {
	parsed, err := parseDetectRequest(req)
	if err != nil {
		return newErrorResponse(id, err.Error())
	}

	start := time.Now()
	elements, err := s.pipe.Detect(parsed.Image, parsed.ConfidenceThreshold, parsed.IoUThreshold)
	if err != nil {
		s.log.WithField("id", id).WithError(err).Warn("detect request failed")
		return newErrorResponse(id, err.Error())
	}

	return newResultResponse(id, elements, time.Since(start).Milliseconds())
}
