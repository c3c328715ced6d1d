/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"log/slog"

	applog "peplanner/internal/log"
)

// Notifier shows user-facing messages. Implementations must be safe to call from any
// goroutine; export results arrive from a worker.
type Notifier interface {
	// Notice is an informational message, e.g. a guard that blocked a command.
	Notice(msg string)
	// Alert reports a failed operation.
	Alert(title string, err error)
}

// LogNotifier writes notices to the log. It is the default for headless sessions.
type LogNotifier struct{ Log *slog.Logger }

func (n LogNotifier) logger() *slog.Logger {
	if n.Log != nil {
		return n.Log
	}
	return applog.WithComponent("notify")
}

func (n LogNotifier) Notice(msg string) { n.logger().Info(msg) }

func (n LogNotifier) Alert(title string, err error) {
	n.logger().Error(title, slog.Any("err", err))
}
