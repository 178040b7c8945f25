package localstore

import "sync"

// Memory — KV в памяти для тестов и dev-режима без диска.
type Memory struct {
	mu sync.Mutex
	m  map[string]string
}

func NewMemory() *Memory {
	return &Memory{m: map[string]string{}}
}

func (s *Memory) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *Memory) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}

func (s *Memory) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

func (s *Memory) Close() error { return nil }
