package main

import (
	"fmt"
	"strings"

	"github.com/staffdesk/hradmin/internal/domain/employee"
	"github.com/staffdesk/hradmin/internal/pipeline"
)

// parseDirectory reads an employee export with the header
// id,name,email,phone. Rows without an id are skipped.
func parseDirectory(text string) (*employee.Snapshot, error) {
	records := pipeline.ParseCSV(text)
	if len(records) == 0 {
		return nil, fmt.Errorf("directory file is empty")
	}

	cols := map[string]int{}
	for i, name := range records[0] {
		cols[strings.ToLower(name)] = i
	}
	for _, required := range []string{"id", "phone"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("directory file has no %q column", required)
		}
	}

	get := func(rec []string, col string) string {
		i, ok := cols[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	entries := make(map[string]employee.DirectoryEntry, len(records)-1)
	for _, rec := range records[1:] {
		id := get(rec, "id")
		if id == "" {
			continue
		}
		entries[id] = employee.DirectoryEntry{
			Phone:       get(rec, "phone"),
			Email:       get(rec, "email"),
			DisplayName: get(rec, "name"),
		}
	}
	return employee.SnapshotOf(entries), nil
}
