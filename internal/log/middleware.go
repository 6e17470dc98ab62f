// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"log/slog"
	"time"
)

// Invocation describes one registered-component call made on behalf of
// a workflow step: the registry namespace, the component name, and the
// operation requested of it (empty for components without operations).
type Invocation struct {
	Namespace string
	Component string
	Operation string
}

// LogInvocationStart records a component call at debug level.
func LogInvocationStart(logger *slog.Logger, inv Invocation) {
	if logger == nil {
		return
	}
	logger.Debug("component call",
		slog.String("namespace", inv.Namespace),
		slog.String("component", inv.Component),
		slog.String("operation", inv.Operation),
	)
}

// LogInvocationEnd records a completed component call. Successes log
// at debug level with the duration; failures log at error level with
// the error message.
func LogInvocationEnd(logger *slog.Logger, inv Invocation, duration time.Duration, err error) {
	if logger == nil {
		return
	}
	attrs := []any{
		slog.String("namespace", inv.Namespace),
		slog.String("component", inv.Component),
		slog.String("operation", inv.Operation),
		slog.Int64("duration_ms", duration.Milliseconds()),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		logger.Error("component call failed", attrs...)
		return
	}
	logger.Debug("component call completed", attrs...)
}

// InvocationMiddleware wraps component calls with start/end logging
// and duration measurement.
type InvocationMiddleware struct {
	logger *slog.Logger
}

// NewInvocationMiddleware creates an invocation middleware. A nil
// logger disables all output without disabling the wrapped call.
func NewInvocationMiddleware(logger *slog.Logger) *InvocationMiddleware {
	return &InvocationMiddleware{logger: logger}
}

// Handler runs handler with start/end logging.
func (m *InvocationMiddleware) Handler(inv Invocation, handler func() error) error {
	LogInvocationStart(m.logger, inv)
	start := time.Now()
	err := handler()
	LogInvocationEnd(m.logger, inv, time.Since(start), err)
	return err
}

// HandlerWithResult runs handler with start/end logging, passing the
// handler's result through untouched.
func (m *InvocationMiddleware) HandlerWithResult(inv Invocation, handler func() (map[string]interface{}, error)) (map[string]interface{}, error) {
	LogInvocationStart(m.logger, inv)
	start := time.Now()
	result, err := handler()
	LogInvocationEnd(m.logger, inv, time.Since(start), err)
	return result, err
}
