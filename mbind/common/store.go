package common

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// YamlStore is a small sectioned key-value file. Each Put or Delete
// rewrites the file. An empty filename keeps everything in memory.
type YamlStore struct {
	mu       sync.Mutex
	filename string
	data     map[string]map[string]interface{}
}

// OpenYamlStore loads filename. A missing file is an empty store.
func OpenYamlStore(filename string) (*YamlStore, error) {
	s := &YamlStore{
		filename: filename,
		data:     make(map[string]map[string]interface{}),
	}
	if filename == "" {
		return s, nil
	}
	if err := LoadYaml(filename, &s.data); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if s.data == nil {
		s.data = make(map[string]map[string]interface{})
	}
	return s, nil
}

// Get decodes section/key into out. Absence is reported as false, not an
// error.
func (s *YamlStore) Get(section, key string, out interface{}) (bool, error) {
	s.mu.Lock()
	v, found := s.data[section][key]
	s.mu.Unlock()
	if !found {
		return false, nil
	}
	raw, err := yaml.Marshal(v)
	if err != nil {
		return true, err
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return true, fmt.Errorf("store %s/%s: %w", section, key, err)
	}
	return true, nil
}

// Put stores value under section/key and saves
func (s *YamlStore) Put(section, key string, value interface{}) error {
	raw, err := yaml.Marshal(value)
	if err != nil {
		return err
	}
	var plain interface{}
	if err := yaml.Unmarshal(raw, &plain); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entries, found := s.data[section]
	if !found {
		entries = make(map[string]interface{})
		s.data[section] = entries
	}
	entries[key] = plain
	return s.save()
}

// Delete removes section/key and saves. Deleting a missing key is fine.
func (s *YamlStore) Delete(section, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, found := s.data[section]
	if !found {
		return nil
	}
	if _, found := entries[key]; !found {
		return nil
	}
	delete(entries, key)
	return s.save()
}

// Keys lists the keys of a section, sorted
func (s *YamlStore) Keys(section string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.data[section]))
	for k := range s.data[section] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *YamlStore) save() error {
	if s.filename == "" {
		return nil
	}
	return SaveYaml(s.filename, s.data)
}
