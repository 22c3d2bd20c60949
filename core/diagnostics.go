// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"fmt"
	"sync"
)

// InfoQueue is the message queue of a driver validation layer.
// It only ever grows while a process runs.
type InfoQueue interface {
	// NumStoredMessages returns how many messages were appended so far.
	NumStoredMessages() uint64

	// Message returns the message with index i.
	Message(i uint64) (string, error)
}

// NewMessageQueue creates an empty MessageQueue.
func NewMessageQueue() *MessageQueue {
	return &MessageQueue{}
}

// MessageQueue is an append-only InfoQueue. Validation callbacks
// may run on driver threads, so it is safe for concurrent use.
type MessageQueue struct {
	mutex    sync.Mutex
	messages []string
}

// Push appends a message.
func (q *MessageQueue) Push(msg string) {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	q.messages = append(q.messages, msg)
}

// Pushf appends a formatted message.
func (q *MessageQueue) Pushf(format string, args ...interface{}) {
	q.Push(fmt.Sprintf(format, args...))
}

// NumStoredMessages implements InfoQueue.
func (q *MessageQueue) NumStoredMessages() uint64 {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return uint64(len(q.messages))
}

// Message implements InfoQueue.
func (q *MessageQueue) Message(i uint64) (string, error) {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	if i >= uint64(len(q.messages)) {
		return "", fmt.Errorf("message %d out of range (%d stored)", i, len(q.messages))
	}
	return q.messages[i], nil
}

// NewInfoCollector creates a collector over q. A nil queue gives a
// collector that never reports anything.
func NewInfoCollector(q InfoQueue) *InfoCollector {
	c := &InfoCollector{queue: q}
	c.Mark()
	return c
}

// InfoCollector slices the validation messages produced by a single
// driver call out of the process wide queue. Call Mark right before
// the call and Drain right after it.
type InfoCollector struct {
	queue InfoQueue
	next  uint64
}

// Enabled reports whether messages are being collected.
func (c *InfoCollector) Enabled() bool {
	return DiagnosticsCompiled && c != nil && c.queue != nil
}

// Mark records the current end of the queue as a checkpoint.
func (c *InfoCollector) Mark() {
	if !c.Enabled() {
		return
	}
	c.next = c.queue.NumStoredMessages()
}

// Drain returns the messages appended since the last checkpoint and
// moves the checkpoint past them.
func (c *InfoCollector) Drain() []string {
	if !c.Enabled() {
		return nil
	}
	end := c.queue.NumStoredMessages()
	var messages []string
	for i := c.next; i < end; i++ {
		msg, err := c.queue.Message(i)
		if err != nil {
			break
		}
		messages = append(messages, msg)
	}
	c.next = end
	return messages
}
