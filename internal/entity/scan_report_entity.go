package entity

import "encoding/json"

// MaxRiskLevel is the severity at which a document is rejected outright.
const MaxRiskLevel = 3

type ScanReport struct {
	RiskLevel        int             `json:"riskLevel"`
	RiskLabel        string          `json:"riskLabel,omitempty"`
	SecurityDecision string          `json:"securityDecision,omitempty"`
	Profile          string          `json:"profile,omitempty"`
	Explanation      string          `json:"explanation,omitempty"`
	FileHash         string          `json:"fileHash,omitempty"`
	Findings         json.RawMessage `json:"findings,omitempty"`
}

func (r *ScanReport) Rejected() bool {
	return r != nil && r.RiskLevel >= MaxRiskLevel
}
