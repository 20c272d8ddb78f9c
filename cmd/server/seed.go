package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/iliyamo/felicity-registration/internal/model"
	"github.com/iliyamo/felicity-registration/internal/repository"
)

// seed is the layout of SEED_FILE.
type seed struct {
	Participants []model.Participant `json:"participants"`
	Events       []model.Event       `json:"events"`
}

// loadSeed fills a memory store with participants and events so that a
// local instance can take registrations without MySQL.
func loadSeed(path string, mem *repository.MemoryStore) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var s seed
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	for i := range s.Participants {
		mem.PutParticipant(&s.Participants[i])
	}
	for i := range s.Events {
		mem.PutEvent(&s.Events[i])
	}
	return nil
}
