package types

import "github.com/google/uuid"

// JobID identifies one submitted query and its pending event stream.
type JobID string

// ThreadID identifies a persistent conversation thread. Clients that do not
// supply one share DefaultThread.
type ThreadID string

// DefaultThread is used when the client omits a thread id.
const DefaultThread ThreadID = "default"

func NewJobID() JobID {
	return JobID(uuid.New().String())
}
