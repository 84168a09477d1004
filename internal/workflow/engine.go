package workflow

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinicops/chartquery/internal/extract"
	"github.com/clinicops/chartquery/internal/logging"
	"github.com/clinicops/chartquery/internal/metrics"
	"github.com/clinicops/chartquery/internal/query"
	"github.com/clinicops/chartquery/internal/storage"
)

// Extractor produces the identifier and field set for a question.
// Faults degrade to absence inside the extractor; it never errors.
type Extractor interface {
	Extract(ctx context.Context, question string) extract.Result
}

// QueryBuilder turns a routed extraction into a guarded query.
type QueryBuilder interface {
	Build(ctx context.Context, identifier string, fields []string) (*query.GuardedQuery, error)
}

// Summarizer renders retrieved rows into narrative text.
type Summarizer interface {
	Summarize(ctx context.Context, identifier string, rows []storage.RecordRow) (string, error)
}

// step executes one node and names the next. A step that sets a
// terminal returns an empty next node; a returned error forces the
// Error terminal.
type step func(ctx context.Context, s *State) (Node, error)

// Engine drives one request through the state machine.
type Engine struct {
	extractor  Extractor
	builder    QueryBuilder
	store      storage.Repository
	summarizer Summarizer
	maxHops    int
	steps      map[Node]step
}

// NewEngine wires the workflow nodes. maxHops bounds state transitions
// per request; values below one fall back to DefaultMaxHops.
func NewEngine(
	extractor Extractor,
	builder QueryBuilder,
	store storage.Repository,
	summarizer Summarizer,
	maxHops int,
) *Engine {
	if maxHops < 1 {
		maxHops = DefaultMaxHops
	}

	e := &Engine{
		extractor:  extractor,
		builder:    builder,
		store:      store,
		summarizer: summarizer,
		maxHops:    maxHops,
	}

	e.steps = map[Node]step{
		NodeStart:            e.stepStart,
		NodeExtractInfo:      e.stepExtractInfo,
		NodeValidateAndRoute: e.stepValidateAndRoute,
		NodeFetchData:        e.stepFetchData,
		NodeSummarize:        e.stepSummarize,
		NodeNoData:           e.stepNoData,
	}

	return e
}

// Run processes one question to an absorbing terminal. The returned
// error is non-nil only when ctx ends before a terminal is reached;
// every fault inside the workflow is encoded as Terminal Error with a
// fixed message, with the cause logged under the request ID.
func (e *Engine) Run(ctx context.Context, question string) (*Result, error) {
	s := &State{
		RequestID: uuid.New().String(),
		Question:  question,
	}

	log := requestLogger(s.RequestID)
	log.Debugf("workflow started: %q", question)

	node := NodeStart

	for s.Terminal == "" {
		if err := ctx.Err(); err != nil {
			log.WithError(err).Warn("workflow abandoned before reaching a terminal")
			return nil, err
		}

		// Force Error when the next transition would exceed the cap
		if s.HopCount >= e.maxHops {
			log.Errorf("hop bound %d exceeded at node %s", e.maxHops, node)
			s.Terminal = TerminalError
			s.Message = MessageError

			break
		}

		s.HopCount++
		log.Debugf("hop %d: %s", s.HopCount, node)

		next, err := e.steps[node](ctx, s)
		if err != nil {
			log.ErrorWithErr("workflow fault at node "+string(node), err)
			s.Terminal = TerminalError
			s.Message = MessageError

			break
		}

		node = next
	}

	metrics.RequestsTotal.WithLabelValues(string(s.Terminal)).Inc()
	metrics.WorkflowHops.Observe(float64(s.HopCount))

	log.WithFields(map[string]interface{}{
		"terminal": string(s.Terminal),
		"hops":     s.HopCount,
		"rows":     len(s.Rows),
	}).Info("workflow finished")

	return newResult(s), nil
}

func (e *Engine) stepStart(_ context.Context, _ *State) (Node, error) {
	return NodeExtractInfo, nil
}

func (e *Engine) stepExtractInfo(ctx context.Context, s *State) (Node, error) {
	extraction := e.extractor.Extract(ctx, s.Question)
	s.Extraction = &extraction

	return NodeValidateAndRoute, nil
}

func (e *Engine) stepValidateAndRoute(_ context.Context, s *State) (Node, error) {
	route := DecideRoute(s.Extraction)
	if route.Proceed {
		return NodeFetchData, nil
	}

	s.Message = route.FallbackMessage()

	return NodeNoData, nil
}

func (e *Engine) stepFetchData(ctx context.Context, s *State) (Node, error) {
	guarded, err := e.builder.Build(ctx, s.Extraction.Identifier, s.Extraction.Fields)
	if err != nil {
		return "", err
	}

	s.Query = guarded

	if guarded.Rewritten {
		metrics.GuardRewritesTotal.Inc()
	}

	rows, err := e.store.FetchRecords(ctx, guarded.SQL)
	if err != nil {
		metrics.StoreQueriesTotal.WithLabelValues(metrics.StatusError).Inc()
		return "", err
	}

	metrics.StoreQueriesTotal.WithLabelValues(metrics.StatusOK).Inc()

	s.Rows = rows

	if len(rows) == 0 {
		s.Message = MessageNoRows
		return NodeNoData, nil
	}

	return NodeSummarize, nil
}

func (e *Engine) stepSummarize(ctx context.Context, s *State) (Node, error) {
	narrative, err := e.summarizer.Summarize(ctx, s.Extraction.Identifier, s.Rows)
	if err != nil {
		return "", err
	}

	s.Message = narrative
	s.Terminal = TerminalAnswered

	return "", nil
}

func (e *Engine) stepNoData(_ context.Context, s *State) (Node, error) {
	if s.Message == "" {
		s.Message = MessageNoRows
	}

	s.Terminal = TerminalNoData

	return "", nil
}

func newResult(s *State) *Result {
	result := &Result{
		Terminal:  s.Terminal,
		Message:   s.Message,
		RowCount:  len(s.Rows),
		HopCount:  s.HopCount,
		RequestID: s.RequestID,
	}

	if s.Extraction != nil {
		result.Identifier = s.Extraction.Identifier
		result.Fields = s.Extraction.Fields
	}

	if s.Query != nil {
		result.QueryText = s.Query.SQL
	}

	return result
}

// requestLogger scopes the global logger to one request, falling back
// to the basic stderr logger when nothing configured one.
func requestLogger(requestID string) *logging.Logger {
	logger := logging.GetLogger()
	if logger == nil {
		logging.SetupFallbackLogger()
		logger = logging.GetLogger()
	}

	return logger.ForRequest(requestID)
}
