// SPDX-License-Identifier: EPL-2.0

package stream

import "errors"

var (
	// ErrQueueFull is returned when the worker's job queue has no room.
	ErrQueueFull = errors.New("worker job queue full")
	// ErrWorkerClosed is returned for jobs pushed after Close.
	ErrWorkerClosed = errors.New("worker closed")
	// ErrInvalidState is returned when a source is asked to open or close
	// from the wrong state.
	ErrInvalidState = errors.New("invalid source state")
	// ErrEmptyStream is returned when a reader reports no PCM data.
	ErrEmptyStream = errors.New("stream has no data")
)
