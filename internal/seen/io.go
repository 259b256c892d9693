package seen

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jimezsa/leadcli/internal/models"
)

// ReadLeads loads a lead history file written by WriteLeads or `search --json`.
func ReadLeads(path string) ([]models.Lead, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	leads := []models.Lead{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return leads, nil
	}
	if err := json.Unmarshal(data, &leads); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if leads == nil {
		leads = []models.Lead{}
	}
	return leads, nil
}

// ReadLeadsAllowMissing treats a missing file as an empty history.
func ReadLeadsAllowMissing(path string) ([]models.Lead, error) {
	leads, err := ReadLeads(path)
	if errors.Is(err, os.ErrNotExist) {
		return []models.Lead{}, nil
	}
	return leads, err
}

func WriteLeads(path string, leads []models.Lead) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("path is required")
	}
	if leads == nil {
		leads = []models.Lead{}
	}
	data, err := json.MarshalIndent(leads, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
