// Package transfermanager schedules concurrent upload/download
// transfers over a sftpcore.Client: a FIFO queue, bounded worker
// goroutines each with their own isolated session, overwrite/resume
// negotiation, cooperative pause/cancel, and per-task/global
// throughput limits.
package transfermanager

import "time"

// TaskType distinguishes an upload from a download.
type TaskType int

const (
	Upload TaskType = iota
	Download
)

func (t TaskType) String() string {
	if t == Upload {
		return "upload"
	}
	return "download"
}

// TaskStatus is a task's position in its lifecycle state machine.
type TaskStatus int

const (
	Queued TaskStatus = iota
	Running
	Paused
	Done
	Error
	Canceled
)

func (s TaskStatus) String() string {
	switch s {
	case Queued:
		return "queued"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Done:
		return "done"
	case Error:
		return "error"
	case Canceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// terminal reports whether s needs no further scheduler attention
// without user action (retry, resume).
func (s TaskStatus) terminal() bool {
	return s == Done || s == Error || s == Canceled
}

// Task is one queued or in-flight transfer. Field mutation outside the
// manager's queue mutex is undefined; callers should treat values
// returned from TasksSnapshot as a read-only copy.
type Task struct {
	ID            uint64
	CorrelationID string // stamped via google/uuid for log correlation, supplements ID
	Type          TaskType
	Src, Dst      string // for Upload, Src is local and Dst is remote; for Download, reversed

	ResumeHint     bool
	SpeedLimitKbps int

	Progress   int
	BytesDone  int64
	BytesTotal int64

	Attempts    int
	MaxAttempts int

	Status       TaskStatus
	Err          string
	FinishedAtMs int64
}

const defaultMaxAttempts = 3

func newTask(id uint64, correlationID string, typ TaskType, src, dst string) *Task {
	return &Task{
		ID:            id,
		CorrelationID: correlationID,
		Type:          typ,
		Src:           src,
		Dst:           dst,
		Status:        Queued,
		MaxAttempts:   defaultMaxAttempts,
	}
}

func (t *Task) clone() *Task {
	cp := *t
	return &cp
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// OverwriteResponse is the UI's answer to an overwrite-conflict prompt.
type OverwriteResponse int

const (
	Skip OverwriteResponse = iota
	Overwrite
	Resume
)

// LocalInfo is the local-filesystem half of an overwrite prompt; it is
// zero-valued with Exists=false when the local path is absent.
type LocalInfo struct {
	Exists  bool
	Size    int64
	ModTime time.Time
}

// OverwritePrompt is invoked from the precheck phase, on the caller's
// own thread, when the destination of a transfer already exists. It
// must execute on the UI context and blocks Schedule until it
// returns.
type OverwritePrompt func(filename string, local LocalInfo, remote RemoteInfo) OverwriteResponse

// RemoteInfo is the remote-filesystem half of an overwrite prompt.
type RemoteInfo struct {
	Exists bool
	Size   uint64
	Mtime  uint64
}
