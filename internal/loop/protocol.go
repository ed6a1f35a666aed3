package loop

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Protocol selects how an LLM response is parsed for control signals.
type Protocol string

const (
	ProtocolJSON    Protocol = "json"    // first line is a {"need_more","query","stop"} envelope
	ProtocolRegex   Protocol = "regex"   // a single QUERY: ... line anywhere signals a follow-up
	ProtocolPassive Protocol = "passive" // the whole response is the answer; always one iteration
)

// envelope is the parsed control signal plus the answer text that
// followed it.
type envelope struct {
	NeedMore bool
	Query    string
	Stop     bool
	Answer   string
}

var queryLinePattern = regexp.MustCompile(`(?m)^QUERY:\s*(.+)$`)

// parseEnvelope extracts the control envelope and answer from raw per
// the given protocol.
func parseEnvelope(protocol Protocol, raw string) (envelope, error) {
	switch protocol {
	case ProtocolPassive:
		return envelope{Answer: strings.TrimSpace(raw)}, nil

	case ProtocolRegex:
		m := queryLinePattern.FindStringSubmatch(raw)
		if m == nil {
			return envelope{Answer: strings.TrimSpace(raw)}, nil
		}
		answer := strings.TrimSpace(queryLinePattern.ReplaceAllString(raw, ""))
		return envelope{NeedMore: true, Query: strings.TrimSpace(m[1]), Answer: answer}, nil

	case ProtocolJSON:
		lines := strings.SplitN(raw, "\n", 2)
		var e struct {
			NeedMore bool   `json:"need_more"`
			Query    string `json:"query"`
			Stop     bool   `json:"stop"`
		}
		if err := json.Unmarshal([]byte(strings.TrimSpace(lines[0])), &e); err != nil {
			return envelope{}, fmt.Errorf("parse envelope: first line is not valid JSON: %w", err)
		}
		answer := ""
		if len(lines) > 1 {
			answer = strings.TrimSpace(lines[1])
		}
		return envelope{NeedMore: e.NeedMore, Query: e.Query, Stop: e.Stop, Answer: answer}, nil

	default:
		return envelope{}, fmt.Errorf("parse envelope: unknown protocol %q", protocol)
	}
}
