package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// ExecutionResult is what a code run produced. When the execution backend is
// unreachable the engine still answers with a typed failure result instead
// of dropping the request.
type ExecutionResult struct {
	Success  bool   `json:"success"`
	Output   string `json:"output,omitempty"`
	Error    string `json:"error,omitempty"`
	TimeMS   int64  `json:"execution_time_ms"`
	MemoryKB int64  `json:"memory_used_kb,omitempty"`
}

// Executor runs code out of process. The engine never executes code itself.
type Executor interface {
	Execute(ctx context.Context, language, code string) ExecutionResult
}

// HTTPExecutionService calls an external execution backend over HTTP.
type HTTPExecutionService struct {
	endpoint string
	client   *http.Client
}

func NewHTTPExecutionService(endpoint string, timeout time.Duration) *HTTPExecutionService {
	if endpoint == "" {
		panic("endpoint cannot be empty for HTTPExecutionService")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPExecutionService{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type executeRequest struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

// Execute posts the code to the backend and returns its result. Backend
// failures come back as a failed ExecutionResult; there is no retry.
func (s *HTTPExecutionService) Execute(ctx context.Context, language, code string) ExecutionResult {
	logCtx := logrus.WithFields(logrus.Fields{"component": "execution", "language": language})
	started := time.Now()

	body, err := json.Marshal(executeRequest{Language: language, Code: code})
	if err != nil {
		logCtx.WithError(err).Error("Failed to marshal execution request")
		return failedResult("execution request could not be encoded", started)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		logCtx.WithError(err).Error("Failed to build execution request")
		return failedResult("execution request could not be built", started)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		logCtx.WithError(err).Warn("Execution backend unreachable")
		return failedResult("execution service unavailable", started)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logCtx.Warnf("Execution backend returned status %d", resp.StatusCode)
		return failedResult(fmt.Sprintf("execution service returned status %d", resp.StatusCode), started)
	}

	var result ExecutionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		logCtx.WithError(err).Warn("Failed to decode execution response")
		return failedResult("execution service returned an unreadable response", started)
	}
	if result.TimeMS == 0 {
		result.TimeMS = time.Since(started).Milliseconds()
	}
	return result
}

func failedResult(msg string, started time.Time) ExecutionResult {
	return ExecutionResult{
		Success: false,
		Error:   msg,
		TimeMS:  time.Since(started).Milliseconds(),
	}
}
