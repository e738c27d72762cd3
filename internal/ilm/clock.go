package ilm

import (
	"time"

	"github.com/segmentio/ksuid"
)

// Clock abstracts time retrieval so business logic is deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// IDGenerator abstracts unique ID generation so tests are deterministic.
type IDGenerator interface {
	New() string
}

// KSUIDGenerator produces time-ordered KSUIDs. Node ids sort by creation time.
type KSUIDGenerator struct{}

func (KSUIDGenerator) New() string { return ksuid.New().String() }
