package resource

// Handle is an opaque reference to a resource in a table.
// Handle 0 is reserved and always invalid.
type Handle uint32

const (
	// IndexBits is the number of low handle bits holding the slot index.
	IndexBits = 20

	// MaxSlots is the largest number of slots a table can address.
	MaxSlots = 1<<IndexBits - 1

	indexMask     = 1<<IndexBits - 1
	maxGeneration = 1<<(32-IndexBits) - 1
)

func makeHandle(slot, generation uint32) Handle {
	return Handle(generation<<IndexBits | (slot + 1))
}

// slot returns the zero-based slot index, or false for the reserved handle.
func (h Handle) slot() (uint32, bool) {
	idx := uint32(h) & indexMask
	if idx == 0 {
		return 0, false
	}
	return idx - 1, true
}

func (h Handle) generation() uint32 {
	return uint32(h) >> IndexBits
}

// EventType identifies a resource lifecycle notification.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Event represents a resource lifecycle event.
type Event struct {
	Value  any
	Handle Handle
	Parent Handle
	Type   EventType
}

// Observer receives notifications about resource lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

func (f ObserverFunc) OnResourceEvent(e Event) { f(e) }

// Dropper is optionally implemented by resource values that need cleanup.
type Dropper interface {
	Drop()
}
