package localstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// State holds the saved diaryctl defaults. Flags always win over these.
type State struct {
	APIBaseURL string `json:"apiBaseUrl,omitempty"`
	APIKey     string `json:"apiKey,omitempty"`
}

// Load reads the saved state. A missing file is not an error; it returns
// the zero state.
func Load() (State, error) {
	var s State

	path, err := StatePath()
	if err != nil {
		return s, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, err
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("corrupt state file %s: %w", path, err)
	}
	return s, nil
}

// Save writes the state with 0600 permissions; it may hold an API key.
func Save(s State) error {
	path, err := StatePath()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
