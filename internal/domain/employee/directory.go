package employee

// DirectoryEntry holds the contact details a payout is addressed with.
type DirectoryEntry struct {
	Phone       string
	Email       string
	DisplayName string
}

// Directory resolves employee IDs to contact details.
type Directory interface {
	Lookup(id string) (DirectoryEntry, bool)
}

// Snapshot is an immutable copy of the directory taken at one point in time.
type Snapshot struct {
	entries map[string]DirectoryEntry
}

func NewSnapshot(employees []*Employee) *Snapshot {
	entries := make(map[string]DirectoryEntry, len(employees))
	for _, e := range employees {
		entries[e.ID] = e.Entry()
	}
	return &Snapshot{entries: entries}
}

// SnapshotOf builds a snapshot from raw entries keyed by employee ID.
func SnapshotOf(entries map[string]DirectoryEntry) *Snapshot {
	cp := make(map[string]DirectoryEntry, len(entries))
	for k, v := range entries {
		cp[k] = v
	}
	return &Snapshot{entries: cp}
}

func (s *Snapshot) Lookup(id string) (DirectoryEntry, bool) {
	e, ok := s.entries[id]
	return e, ok
}

func (s *Snapshot) Len() int {
	return len(s.entries)
}
