package contract

import (
	"context"
	"reflect"
)

// MessageSink is the outbound side of a connected session. Implementations
// must tolerate concurrent callers: broadcasts and direct messages reach a
// session from any number of goroutines at once.
type MessageSink interface {
	SendMessage(text string) error
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// Used for logging and supervision during worker lifecycle events, avoiding
// the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
