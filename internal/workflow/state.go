// Package workflow runs one patient question through a bounded state
// machine: extract identifier and fields, route, fetch guarded records,
// summarize. Every request ends in exactly one absorbing terminal and
// uses a bounded number of state transitions, so a routing defect can
// never loop or amplify external service calls.
package workflow

import (
	"github.com/clinicops/chartquery/internal/extract"
	"github.com/clinicops/chartquery/internal/query"
	"github.com/clinicops/chartquery/internal/storage"
)

// Node names one station of the state machine.
type Node string

const (
	NodeStart            Node = "start"
	NodeExtractInfo      Node = "extract_info"
	NodeValidateAndRoute Node = "validate_and_route"
	NodeFetchData        Node = "fetch_data"
	NodeSummarize        Node = "summarize"
	NodeNoData           Node = "no_data"
)

// Terminal is an absorbing final state. Once set, the engine performs
// no further work for the request.
type Terminal string

const (
	TerminalAnswered Terminal = "answered"
	TerminalNoData   Terminal = "no_data"
	TerminalError    Terminal = "error"
)

// Fixed user-visible messages. Fault causes never reach the user; they
// go to the log under the request ID.
const (
	MessageNoIdentifierNoFields = "No relevant fields and Patient ID missing; cannot fetch data."
	MessageNoFields             = "No relevant fields extracted from the query."
	MessageNoIdentifier         = "Patient ID missing; cannot fetch data."
	MessageNoRows               = "No data found for this patient."
	MessageError                = "The request could not be completed. Please try again."
)

// DefaultMaxHops bounds the state transitions per request. Five covers
// the longest legal path exactly, so any cycle trips the bound on its
// first extra transition.
const DefaultMaxHops = 5

// State is the per-request workflow state. It is owned by exactly one
// in-flight request and discarded at completion.
type State struct {
	RequestID  string
	Question   string
	Extraction *extract.Result
	Query      *query.GuardedQuery
	Rows       []storage.RecordRow
	Message    string
	HopCount   int
	Terminal   Terminal
}

// Result is the terminal outcome handed to the presentation layer.
type Result struct {
	Terminal   Terminal `json:"terminal"`
	Message    string   `json:"message"`
	Identifier string   `json:"identifier,omitempty"`
	Fields     []string `json:"fields,omitempty"`
	QueryText  string   `json:"query_text,omitempty"`
	RowCount   int      `json:"row_count"`
	HopCount   int      `json:"hop_count"`
	RequestID  string   `json:"request_id"`
}
