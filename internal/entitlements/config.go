package entitlements

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadPlanTable reads a plan-table override from a YAML file. Callers
// typically fall back to DefaultPlanTable() when path is empty.
func LoadPlanTable(path string) (PlanTable, error) {
	if path == "" {
		return DefaultPlanTable(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return PlanTable{}, fmt.Errorf("read plan table %s: %w", path, err)
	}
	var table PlanTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return PlanTable{}, fmt.Errorf("parse plan table %s: %w", path, err)
	}
	if table.FallbackTier == "" {
		table.FallbackTier = "starter"
	}
	if table.TrialTier == "" {
		table.TrialTier = "starter"
	}
	return table, nil
}
