package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lexeval/lexeval/internal/pkg/errors"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

const goldJSON = `{
  "scenarios": {
    "scn_001": {
      "scenario": {"id": "scn_001", "jurisdictions": ["US-FED"], "tax_types": ["income"]},
      "retrieval": {"sections": [{"section_id": "sec_61", "grade": 3, "controlling": true, "mandatory": true}]},
      "extraction": {"sections": {"sec_61": {"spans": [{"kind": "condition", "char_start": 0, "char_end": 20, "text": "gross income means"}]}}},
      "outcome": {"jurisdictions": ["US-FED"], "tax_types": ["income"], "required_forms": ["1040"], "filing_deadline": "2026-04-15", "filing_required": true}
    }
  }
}`

func TestLoadGold_JSON(t *testing.T) {
	path := writeFile(t, "gold.json", goldJSON)

	set, err := LoadGold(path)
	if err != nil {
		t.Fatalf("LoadGold() error = %v", err)
	}

	gold, ok := set.Scenarios["scn_001"]
	if !ok {
		t.Fatal("scenario scn_001 missing")
	}
	if gold.Scenario.ID != "scn_001" {
		t.Errorf("scenario id = %q, want scn_001", gold.Scenario.ID)
	}
	if len(gold.Retrieval.Sections) != 1 || gold.Retrieval.Sections[0].Grade != 3 {
		t.Errorf("retrieval sections = %+v, want one grade-3 section", gold.Retrieval.Sections)
	}
	if gold.Outcome == nil || gold.Outcome.Deadline != "2026-04-15" {
		t.Errorf("outcome = %+v, want deadline 2026-04-15", gold.Outcome)
	}
	spans := gold.Extraction.Sections["sec_61"].Spans
	if len(spans) != 1 || spans[0].Start != 0 || spans[0].End != 20 {
		t.Errorf("spans = %+v, want [0, 20) condition span", spans)
	}
}

func TestLoadGold_JSONL(t *testing.T) {
	content := `{"scenario": {"id": "scn_001", "jurisdictions": ["US-FED"]}, "retrieval": {"sections": []}}
{"scenario": {"id": "scn_002", "jurisdictions": ["US-CA"]}, "retrieval": {"sections": []}}
`
	path := writeFile(t, "gold.jsonl", content)

	set, err := LoadGold(path)
	if err != nil {
		t.Fatalf("LoadGold() error = %v", err)
	}
	if len(set.Scenarios) != 2 {
		t.Errorf("loaded %d scenarios, want 2", len(set.Scenarios))
	}
}

func TestLoadGold_YAML(t *testing.T) {
	content := `scenarios:
  scn_001:
    scenario:
      id: scn_001
      jurisdictions: [US-FED]
      tax_types: [income]
    retrieval:
      sections:
        - section_id: sec_61
          grade: 2
`
	path := writeFile(t, "gold.yaml", content)

	set, err := LoadGold(path)
	if err != nil {
		t.Fatalf("LoadGold() error = %v", err)
	}
	if set.Scenarios["scn_001"].Retrieval.Sections[0].SectionID != "sec_61" {
		t.Errorf("yaml gold = %+v, section not loaded", set.Scenarios["scn_001"])
	}
}

func TestLoadGold_Errors(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		content  string
		wantCode string
	}{
		{
			name:     "invalid json",
			file:     "gold.json",
			content:  "{not json",
			wantCode: errors.CodeSchema,
		},
		{
			name:     "jsonl missing scenario id",
			file:     "gold.jsonl",
			content:  `{"retrieval": {"sections": []}}`,
			wantCode: errors.CodeSchema,
		},
		{
			name: "jsonl duplicate scenario",
			file: "gold.jsonl",
			content: `{"scenario": {"id": "scn_001"}}
{"scenario": {"id": "scn_001"}}`,
			wantCode: errors.CodeConsistency,
		},
		{
			name:     "unsupported extension",
			file:     "gold.csv",
			content:  "id,grade",
			wantCode: errors.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.content)
			_, err := LoadGold(path)
			if err == nil {
				t.Fatal("LoadGold() error = nil, want error")
			}
			appErr, ok := err.(*errors.AppError)
			if !ok || appErr.Code != tt.wantCode {
				t.Errorf("LoadGold() error = %v, want code %s", err, tt.wantCode)
			}
		})
	}
}

func TestLoadPredictions_JSON(t *testing.T) {
	content := `{
  "scenarios": {
    "scn_001": {
      "ranking": ["sec_61", "sec_62"],
      "extraction": {"sections": {}},
      "outcome": {"jurisdictions": ["US-FED"], "tax_types": ["income"], "required_forms": [], "filing_required": true, "confidence": 0.85}
    }
  }
}`
	path := writeFile(t, "pred.json", content)

	set, err := LoadPredictions(path)
	if err != nil {
		t.Fatalf("LoadPredictions() error = %v", err)
	}

	pred, ok := set.Scenarios["scn_001"]
	if !ok {
		t.Fatal("prediction scn_001 missing")
	}
	if len(pred.Ranking) != 2 || pred.Ranking[0] != "sec_61" {
		t.Errorf("ranking = %v, want [sec_61 sec_62]", pred.Ranking)
	}
	if pred.Outcome == nil || pred.Outcome.Confidence != 0.85 {
		t.Errorf("outcome = %+v, want confidence 0.85", pred.Outcome)
	}
}

func TestLoadPredictions_JSONL(t *testing.T) {
	content := `{"scenario_id": "scn_001", "ranking": ["sec_61"]}
{"scenario_id": "scn_002", "ranking": []}
`
	path := writeFile(t, "pred.jsonl", content)

	set, err := LoadPredictions(path)
	if err != nil {
		t.Fatalf("LoadPredictions() error = %v", err)
	}
	if len(set.Scenarios) != 2 {
		t.Fatalf("loaded %d predictions, want 2", len(set.Scenarios))
	}
	if got := set.Scenarios["scn_001"].Ranking; len(got) != 1 || got[0] != "sec_61" {
		t.Errorf("ranking = %v, want [sec_61]", got)
	}
}

func TestLoadPredictions_MissingFile(t *testing.T) {
	_, err := LoadPredictions(filepath.Join(t.TempDir(), "absent.json"))
	if err == nil {
		t.Fatal("LoadPredictions() error = nil for missing file")
	}
}
