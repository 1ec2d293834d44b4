package llm

import (
	"encoding/json"
	"strings"
)

// DefaultSelfScore is assumed for junior scores the model omits.
const DefaultSelfScore = 0.5

// ExtractJSON returns the substring from the first '{' to the last '}', or
// "" when there is none. It tolerates code fences and surrounding prose.
func ExtractJSON(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return ""
	}
	return raw[start : end+1]
}

// wire types accept the shapes models actually produce: probe requests as
// strings or objects, drafts as strings or {text}, scores on 0-1 or 0-100.

type wireProbeRequest struct {
	ProbeID string `json:"probe_id"`
	ID      string `json:"id"`
	Reason  string `json:"reason,omitempty"`
}

type wireDraft struct {
	Text      string   `json:"text"`
	Citations []string `json:"citations,omitempty"`
}

type wireScores struct {
	Evidence  *float64 `json:"evidence"`
	Reasoning *float64 `json:"reasoning"`
	Coverage  *float64 `json:"coverage"`
	Overall   *float64 `json:"overall"`
}

type wireJunior struct {
	Intent        string            `json:"intent"`
	ProbeRequests []json.RawMessage `json:"probe_requests"`
	DraftAnswer   json.RawMessage   `json:"draft_answer"`
	Scores        *wireScores       `json:"scores"`
	Refuse        bool              `json:"refuse"`
	RefuseReason  string            `json:"refuse_reason"`
}

type wireSenior struct {
	Verdict       string            `json:"verdict"`
	Scores        *wireScores       `json:"scores"`
	Problems      []string          `json:"problems"`
	ProbeRequests []json.RawMessage `json:"probe_requests"`
	FixedAnswer   *string           `json:"fixed_answer"`
	Text          *string           `json:"text"`
}

// DecodeJunior decodes junior output best-effort. It never fails: anything
// unreadable is left absent.
func DecodeJunior(raw string) JuniorResponse {
	var w wireJunior
	if js := ExtractJSON(raw); js != "" {
		_ = json.Unmarshal([]byte(js), &w)
	}
	resp := JuniorResponse{
		Plan: Plan{
			Intent:        w.Intent,
			ProbeRequests: decodeProbeRequests(w.ProbeRequests),
		},
		Refuse: w.Refuse,
		Reason: w.RefuseReason,
	}
	if d := decodeDraft(w.DraftAnswer); d != "" {
		resp.Draft = &d
	}
	if w.Scores != nil {
		s := w.Scores.resolve(DefaultSelfScore)
		resp.SelfScores = &s
	}
	return resp
}

// DecodeSenior decodes senior output best-effort. An unknown or missing
// verdict decodes as refuse and missing scores as zero, so an unreadable
// audit never approves anything.
func DecodeSenior(raw string) SeniorResponse {
	var w wireSenior
	if js := ExtractJSON(raw); js != "" {
		_ = json.Unmarshal([]byte(js), &w)
	}
	resp := SeniorResponse{
		Verdict:       parseVerdict(w.Verdict),
		Problems:      w.Problems,
		ProbeRequests: decodeProbeRequests(w.ProbeRequests),
		FixedAnswer:   nonEmpty(w.FixedAnswer),
		Text:          nonEmpty(w.Text),
	}
	if w.Scores != nil {
		resp.Scores = w.Scores.resolve(0)
	}
	return resp
}

func parseVerdict(s string) Verdict {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "approve", "accept", "approved":
		return VerdictApprove
	case "fix_and_accept", "fix-and-accept", "fixandaccept":
		return VerdictFixAndAccept
	case "needs_more_probes", "needs_more_checks", "needs-more-probes":
		return VerdictNeedsMoreProbes
	default:
		return VerdictRefuse
	}
}

func decodeProbeRequests(items []json.RawMessage) []string {
	var ids []string
	for _, item := range items {
		var s string
		if json.Unmarshal(item, &s) == nil {
			if s = strings.TrimSpace(s); s != "" {
				ids = append(ids, s)
			}
			continue
		}
		var pr wireProbeRequest
		if json.Unmarshal(item, &pr) == nil {
			id := pr.ProbeID
			if id == "" {
				id = pr.ID
			}
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

func decodeDraft(msg json.RawMessage) string {
	if len(msg) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(msg, &s) == nil {
		return cleanDraft(s)
	}
	var d wireDraft
	if json.Unmarshal(msg, &d) == nil {
		return cleanDraft(d.Text)
	}
	return ""
}

func cleanDraft(s string) string {
	s = strings.TrimSpace(s)
	if s == "null" {
		return ""
	}
	return s
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

func (w *wireScores) resolve(missing float64) Scores {
	pick := func(v *float64) float64 {
		if v == nil {
			return missing
		}
		return normalizeScore(*v)
	}
	return Scores{
		Evidence:  pick(w.Evidence),
		Reasoning: pick(w.Reasoning),
		Coverage:  pick(w.Coverage),
		Overall:   pick(w.Overall),
	}
}

// percentFloor is the smallest score read as a 0-100 percentage. Values
// between 1 and it are overshoot on the unit scale and clamp to 1.
const percentFloor = 2

// normalizeScore maps 0-100 percentages to [0,1] and clamps.
func normalizeScore(v float64) float64 {
	if v >= percentFloor && v <= 100 {
		v /= 100
	}
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
