package server

import (
	"bytes"
	"encoding/json"
	"errors"

	"idp-hq/assess/pkg/evaluation"
)

// refID is a document reference that clients may send as a JSON string
// or number.
type refID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *refID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = refID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.New("id must be a string or number")
	}
	*id = refID(n.String())
	return nil
}

// submitRequest is the body of POST /api/v1/evaluations.
type submitRequest struct {
	ArtifactID refID  `json:"artifact_id"`
	ScenarioID refID  `json:"scenario_id"`
	RulePackID refID  `json:"rulepack_id"`
	WebhookURL string `json:"webhook_url"`
	Debug      bool   `json:"debug"`
}

func (r submitRequest) submission() evaluation.Submission {
	return evaluation.Submission{
		ArtifactID: string(r.ArtifactID),
		ScenarioID: string(r.ScenarioID),
		RulePackID: string(r.RulePackID),
		WebhookURL: r.WebhookURL,
		Debug:      r.Debug,
	}
}

var errEmptyBody = errors.New("request body is empty")
