// Package dataset loads gold and prediction sets from disk. Three layouts
// are accepted, chosen by file extension: a single JSON document (.json),
// one scenario per line (.jsonl), and YAML (.yaml/.yml) for hand-written
// fixtures.
package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lexeval/lexeval/internal/pkg/errors"
	"github.com/lexeval/lexeval/internal/schema"
)

// Lines in a JSONL gold file are bare GoldScenario objects; the scenario id
// lives inside the scenario block. Prediction lines need the id alongside
// the prediction body.
type predictionLine struct {
	ScenarioID        string `json:"scenario_id" yaml:"scenario_id"`
	schema.Prediction `yaml:",inline"`
}

// LoadGold loads a gold set from path.
func LoadGold(path string) (*schema.GoldSet, error) {
	switch ext(path) {
	case ".json":
		var set schema.GoldSet
		if err := decodeFile(path, &set, json.Unmarshal); err != nil {
			return nil, err
		}
		return &set, nil

	case ".yaml", ".yml":
		var set schema.GoldSet
		if err := decodeFile(path, &set, yaml.Unmarshal); err != nil {
			return nil, err
		}
		return &set, nil

	case ".jsonl":
		set := &schema.GoldSet{Scenarios: make(map[string]schema.GoldScenario)}
		err := eachLine(path, func(lineNo int, line []byte) error {
			var scenario schema.GoldScenario
			if err := json.Unmarshal(line, &scenario); err != nil {
				return errors.New(errors.CodeSchema,
					fmt.Sprintf("%s line %d: %v", filepath.Base(path), lineNo, err))
			}
			id := scenario.Scenario.ID
			if id == "" {
				return errors.New(errors.CodeSchema,
					fmt.Sprintf("%s line %d: missing scenario id", filepath.Base(path), lineNo))
			}
			if _, dup := set.Scenarios[id]; dup {
				return errors.ConsistencyError(id, "duplicate scenario in gold set")
			}
			set.Scenarios[id] = scenario
			return nil
		})
		if err != nil {
			return nil, err
		}
		return set, nil

	default:
		return nil, errors.New(errors.CodeValidation,
			fmt.Sprintf("unsupported gold set format: %s", ext(path)))
	}
}

// LoadPredictions loads a prediction set from path.
func LoadPredictions(path string) (*schema.PredictionSet, error) {
	switch ext(path) {
	case ".json":
		var set schema.PredictionSet
		if err := decodeFile(path, &set, json.Unmarshal); err != nil {
			return nil, err
		}
		return &set, nil

	case ".yaml", ".yml":
		var set schema.PredictionSet
		if err := decodeFile(path, &set, yaml.Unmarshal); err != nil {
			return nil, err
		}
		return &set, nil

	case ".jsonl":
		set := &schema.PredictionSet{Scenarios: make(map[string]schema.Prediction)}
		err := eachLine(path, func(lineNo int, line []byte) error {
			var pl predictionLine
			if err := json.Unmarshal(line, &pl); err != nil {
				return errors.New(errors.CodeSchema,
					fmt.Sprintf("%s line %d: %v", filepath.Base(path), lineNo, err))
			}
			if pl.ScenarioID == "" {
				return errors.New(errors.CodeSchema,
					fmt.Sprintf("%s line %d: missing scenario_id", filepath.Base(path), lineNo))
			}
			if _, dup := set.Scenarios[pl.ScenarioID]; dup {
				return errors.ConsistencyError(pl.ScenarioID, "duplicate scenario in prediction set")
			}
			set.Scenarios[pl.ScenarioID] = pl.Prediction
			return nil
		})
		if err != nil {
			return nil, err
		}
		return set, nil

	default:
		return nil, errors.New(errors.CodeValidation,
			fmt.Sprintf("unsupported prediction set format: %s", ext(path)))
	}
}

func ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

func decodeFile(path string, v any, unmarshal func([]byte, any) error) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(errors.CodeStorageError, "failed to read dataset", err)
	}
	if err := unmarshal(data, v); err != nil {
		return errors.New(errors.CodeSchema,
			fmt.Sprintf("%s: %v", filepath.Base(path), err))
	}
	return nil
}

// eachLine streams non-empty lines of a JSONL file through fn.
func eachLine(path string, fn func(lineNo int, line []byte) error) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrap(errors.CodeStorageError, "failed to open dataset", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	const maxScanTokenSize = 4 * 1024 * 1024
	buf := make([]byte, maxScanTokenSize)
	scanner.Buffer(buf, maxScanTokenSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := fn(lineNo, []byte(line)); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(errors.CodeStorageError, "failed to scan dataset", err)
	}
	return nil
}
