package messages

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

type MessageText struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type Messages struct {
	ConnectionError    MessageText `json:"connection_error"`
	ConnectionExpiring MessageText `json:"connection_expiring"`
	ConnectionRevoked  MessageText `json:"connection_revoked"`
}

var (
	loaded   Messages
	loadOnce sync.Once
	loadErr  error
)

// Load reads the notifications JSON file and caches the result.
// Safe to call from multiple goroutines.
func Load(path string) (*Messages, error) {
	loadOnce.Do(func() {
		loadErr = parseFile(path, &loaded)
	})
	if loadErr != nil {
		return nil, loadErr
	}
	return &loaded, nil
}

func parseFile(path string, out *Messages) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read messages file: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse messages file: %w", err)
	}
	return nil
}
