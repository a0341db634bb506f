// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package synclog provides a single mutex-guarded *log.Logger shared by
// every dispatcher goroutine, the same role synced_cout.hpp's
// lock_guard-around-std::cout plays for the original tool's task-group
// workers.
package synclog

import (
	"io"
	"log"
	"sync"
)

// syncWriter serializes concurrent writes to an underlying io.Writer,
// the same guard synced_cout::print takes around every print call.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// New returns a *log.Logger safe for concurrent use by many handler
// goroutines at once, writing to w with the given prefix/flags.
func New(w io.Writer, prefix string, flag int) *log.Logger {
	return log.New(&syncWriter{w: w}, prefix, flag)
}
