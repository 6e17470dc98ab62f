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

package run

import (
	"context"

	ilog "github.com/windlass-dev/windlass/internal/log"
	"github.com/windlass-dev/windlass/pkg/workflow"
)

// loggingLookup decorates a ComponentLookup so every action the
// executor resolves logs its invocations through the invocation
// middleware. Other namespaces pass through untouched.
type loggingLookup struct {
	inner workflow.ComponentLookup
	mw    *ilog.InvocationMiddleware
}

func newLoggingLookup(inner workflow.ComponentLookup, mw *ilog.InvocationMiddleware) workflow.ComponentLookup {
	return &loggingLookup{inner: inner, mw: mw}
}

func (l *loggingLookup) Lookup(namespace, name string) (interface{}, error) {
	v, err := l.inner.Lookup(namespace, name)
	if err != nil || namespace != "actions" {
		return v, err
	}
	action, ok := v.(workflow.Action)
	if !ok {
		return v, nil
	}
	return loggedAction{name: name, inner: action, mw: l.mw}, nil
}

func (l *loggingLookup) Has(namespace, name string) bool {
	return l.inner.Has(namespace, name)
}

type loggedAction struct {
	name  string
	inner workflow.Action
	mw    *ilog.InvocationMiddleware
}

func (a loggedAction) Execute(ctx context.Context, operation string, inputs map[string]interface{}) (map[string]interface{}, error) {
	inv := ilog.Invocation{Namespace: "actions", Component: a.name, Operation: operation}
	return a.mw.HandlerWithResult(inv, func() (map[string]interface{}, error) {
		return a.inner.Execute(ctx, operation, inputs)
	})
}
