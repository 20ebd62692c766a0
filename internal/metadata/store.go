package metadata

import "strings"

// Store holds the loaded descriptors. It is safe for concurrent readers.
type Store struct {
	location string
	tables   []TableDescriptor
}

func NewStore(location string, tables []TableDescriptor) *Store {
	copied := make([]TableDescriptor, len(tables))
	copy(copied, tables)
	return &Store{location: location, tables: copied}
}

func (s *Store) Location() string {
	if s == nil {
		return ""
	}
	return s.location
}

// Tables returns the descriptors in load order. Callers must not mutate them.
func (s *Store) Tables() []TableDescriptor {
	if s == nil {
		return nil
	}
	return s.tables
}

func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.tables)
}

func (s *Store) Lookup(name string) (TableDescriptor, bool) {
	if s == nil {
		return TableDescriptor{}, false
	}
	for _, table := range s.tables {
		if strings.EqualFold(table.Name, name) {
			return table, true
		}
	}
	return TableDescriptor{}, false
}
