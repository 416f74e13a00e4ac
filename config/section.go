package config

import (
	"strconv"
	"strings"
)

// Section maps case-insensitive keys to ordered lists of entries
type Section struct {
	name string
	// keys keeps the first-seen spelling of every key in insertion order
	keys []string
	data map[string][]Entry
}

func newSection(name string) *Section {
	return &Section{
		name: name,
		data: make(map[string][]Entry),
	}
}

// Name returns the section name as written in the file, including any host scope
func (s *Section) Name() string {
	return s.name
}

// String returns the section header
func (s *Section) String() string {
	return "[" + s.name + "]"
}

// Keys returns the keys in insertion order
func (s *Section) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// GetAll returns every entry of key in insertion order
func (s *Section) GetAll(key string) []Entry {
	list := s.data[strings.ToLower(key)]
	out := make([]Entry, len(list))
	copy(out, list)
	return out
}

// Lookup returns the first value of key
func (s *Section) Lookup(key string) (string, bool) {
	list := s.data[strings.ToLower(key)]
	if len(list) == 0 {
		return "", false
	}
	return list[0].Value, true
}

// GetString returns the first value of key, or defaultValue when it is missing or empty
func (s *Section) GetString(key, defaultValue string) string {
	val, ok := s.Lookup(key)
	if !ok || val == "" {
		return defaultValue
	}
	return val
}

// GetBool coerces the first value of key: "0" and "false" are false, anything else is true
func (s *Section) GetBool(key string, defaultValue bool) bool {
	val, ok := s.Lookup(key)
	if !ok || val == "" {
		return defaultValue
	}
	val = strings.ToLower(val)
	return val != "0" && val != "false"
}

// GetInt coerces the first value of key to an int
func (s *Section) GetInt(key string, defaultValue int) int {
	val, ok := s.Lookup(key)
	if !ok || val == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return n
}

// GetDecimal coerces the first value of key to a float64
func (s *Section) GetDecimal(key string, defaultValue float64) float64 {
	val, ok := s.Lookup(key)
	if !ok || val == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

// Set replaces all entries of key with a single entry
func (s *Section) Set(key, value string, op Operator) {
	s.touch(key)
	s.data[strings.ToLower(key)] = []Entry{{Value: value, Op: op}}
}

// Add appends an entry to key
func (s *Section) Add(key, value string, op Operator) {
	s.touch(key)
	lk := strings.ToLower(key)
	s.data[lk] = append(s.data[lk], Entry{Value: value, Op: op})
}

// Insert places an entry at index within key's list; out-of-range indexes are clamped
func (s *Section) Insert(key, value string, index int, op Operator) {
	s.touch(key)
	lk := strings.ToLower(key)
	list := s.data[lk]
	if index < 0 {
		index = 0
	}
	if index > len(list) {
		index = len(list)
	}
	list = append(list, Entry{})
	copy(list[index+1:], list[index:])
	list[index] = Entry{Value: value, Op: op}
	s.data[lk] = list
}

// Contains reports whether any entry of key has exactly the given value
func (s *Section) Contains(key, value string) bool {
	for _, e := range s.data[strings.ToLower(key)] {
		if e.Value == value {
			return true
		}
	}
	return false
}

// Remove deletes every entry of key whose value equals value
func (s *Section) Remove(key, value string) {
	lk := strings.ToLower(key)
	list, ok := s.data[lk]
	if !ok {
		return
	}
	kept := list[:0]
	for _, e := range list {
		if e.Value != value {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		s.RemoveKey(key)
		return
	}
	s.data[lk] = kept
}

// RemoveKey deletes key and all of its entries
func (s *Section) RemoveKey(key string) {
	lk := strings.ToLower(key)
	if _, ok := s.data[lk]; !ok {
		return
	}
	delete(s.data, lk)
	for i, k := range s.keys {
		if strings.ToLower(k) == lk {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			break
		}
	}
}

// touch records key in the key order if it is new
func (s *Section) touch(key string) {
	if _, ok := s.data[strings.ToLower(key)]; !ok {
		s.keys = append(s.keys, key)
	}
}
