// Package types defines the value objects shared across memctl's storage,
// policy, recall, and orchestration layers.
package types

import "time"

// Tier is the lifecycle stage of a MemoryItem.
type Tier string

const (
	TierSTM Tier = "stm"
	TierMTM Tier = "mtm"
	TierLTM Tier = "ltm"
)

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	switch t {
	case TierSTM, TierMTM, TierLTM:
		return true
	}
	return false
}

// PromotionTypes are item types promoted MTM->LTM regardless of usage_count.
var PromotionTypes = map[string]bool{
	"decision":   true,
	"definition": true,
	"constraint": true,
}

// LinkType is the label on a MemoryLink.
type LinkType string

const (
	LinkSupersedes LinkType = "supersedes"
	LinkSupports   LinkType = "supports"
	LinkContradicts LinkType = "contradicts"
	LinkRefines    LinkType = "refines"
)

// EventAction is the closed set of actions recorded in MemoryEvent.
type EventAction string

const (
	EventWrite             EventAction = "write"
	EventRead              EventAction = "read"
	EventUpdate            EventAction = "update"
	EventArchive           EventAction = "archive"
	EventConsolidate       EventAction = "consolidate"
	EventSearch            EventAction = "search"
	EventLoopIter          EventAction = "loop_iter"
	EventPolicyReject      EventAction = "policy_reject"
	EventPolicyQuarantine  EventAction = "policy_quarantine"
	EventReindex           EventAction = "reindex"
	EventSync              EventAction = "sync"
)

// Provenance records where an item or proposal came from.
type Provenance struct {
	SourceKind    string `json:"source_kind"`
	SourceID      string `json:"source_id,omitempty"`
	Justification string `json:"justification,omitempty"`
	SessionID     string `json:"session_id,omitempty"`
}

// MemoryItem is the primary stored unit.
type MemoryItem struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	ContentHash string     `json:"content_hash"`
	Tier        Tier       `json:"tier"`
	Type        string     `json:"type"`
	Tags        []string   `json:"tags"`
	Scope       string     `json:"scope,omitempty"`
	Injectable  bool       `json:"injectable"`
	Archived    bool       `json:"archived"`
	UsageCount  int64      `json:"usage_count"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Provenance  Provenance `json:"provenance"`
}

// MaxContentChars is the content size cap for non-pointer types.
const MaxContentChars = 2000

// ContentLimitExempt reports whether a type is exempt from MaxContentChars.
func ContentLimitExempt(itemType string) bool {
	return itemType == "pointer"
}

// MemoryProposal is a candidate item awaiting policy evaluation.
type MemoryProposal struct {
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	Type       string     `json:"type"`
	Tags       []string   `json:"tags"`
	Scope      string     `json:"scope,omitempty"`
	Injectable bool       `json:"injectable"`
	Provenance Provenance `json:"provenance"`
	WhyStore   string     `json:"why_store"`
}

// MemoryEvent is an immutable audit record. Never mutated after insert.
type MemoryEvent struct {
	ID        int64       `json:"id"`
	Action    EventAction `json:"action"`
	ItemID    *string     `json:"item_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Detail    string      `json:"detail,omitempty"`
}

// MemoryLink is a directed, typed relationship between two items.
type MemoryLink struct {
	ID        int64    `json:"id"`
	FromID    string   `json:"from_id"`
	ToID      string   `json:"to_id"`
	Type      LinkType `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// CorpusHash is a per-ingested-file dedup row.
type CorpusHash struct {
	Hash       string   `json:"hash"`
	MountID    string   `json:"mount_id,omitempty"`
	RelPath    string   `json:"rel_path"`
	Ext        string   `json:"ext"`
	SizeBytes  int64    `json:"size_bytes"`
	MtimeEpoch int64    `json:"mtime_epoch"`
	LangHint   string   `json:"lang_hint,omitempty"`
	ItemIDs    []string `json:"item_ids"`
	Archived   bool     `json:"archived"`
}

// Mount is a registered folder, the unit of scoping and delta sync.
type Mount struct {
	ID             string   `json:"id"`
	Path           string   `json:"path"`
	DisplayName    string   `json:"display_name"`
	IgnorePatterns []string `json:"ignore_patterns"`
	LangHint       string   `json:"lang_hint,omitempty"`
}

// TokenizerMeta is the single-row table recording the bound FTS5 tokenizer.
type TokenizerMeta struct {
	Tokenizer      string    `json:"tokenizer"`
	LastReindex    time.Time `json:"last_reindex"`
	ReindexCount   int64     `json:"reindex_count"`
}

// PolicyVerdictKind is the closed set of policy outcomes.
type PolicyVerdictKind string

const (
	VerdictAccept     PolicyVerdictKind = "accept"
	VerdictQuarantine PolicyVerdictKind = "quarantine"
	VerdictReject     PolicyVerdictKind = "reject"
)

// PolicyVerdict is the outcome of evaluating a proposal or item.
type PolicyVerdict struct {
	Kind   PolicyVerdictKind `json:"kind"`
	RuleID string            `json:"rule_id,omitempty"`
	Reason string            `json:"reason"`
}

// SearchStrategy is the cascade step that produced a result set.
type SearchStrategy string

const (
	StrategyAND         SearchStrategy = "AND"
	StrategyReducedAND  SearchStrategy = "REDUCED_AND"
	StrategyPrefixAND   SearchStrategy = "PREFIX_AND"
	StrategyORFallback  SearchStrategy = "OR_FALLBACK"
	StrategyLIKE        SearchStrategy = "LIKE"
)

// SearchMeta describes how a search_fulltext call was satisfied.
type SearchMeta struct {
	Strategy        SearchStrategy `json:"strategy"`
	OriginalTerms   []string       `json:"original_terms"`
	EffectiveTerms  []string       `json:"effective_terms"`
	DroppedTerms    []string       `json:"dropped_terms,omitempty"`
	CandidateCount  int            `json:"candidate_count"`
	Rank1Score      *float64       `json:"rank1_score,omitempty"`
}

// StopCondition is the closed set of loop-controller stopping conditions.
type StopCondition string

const (
	StopLLMStop     StopCondition = "llm_stop"
	StopFixedPoint  StopCondition = "fixed_point"
	StopQueryCycle  StopCondition = "query_cycle"
	StopNoNewItems  StopCondition = "no_new_items"
	StopMaxCalls    StopCondition = "max_calls"
)
