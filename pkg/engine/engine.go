// Package engine implements the answer engine: the bounded plan, probe,
// draft and audit loop that turns a question into a verified FinalAnswer.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/classify"
	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/fastpath"
	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/llm"
	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/probe"
	dtrace "github.com/jjgarcianorway/anna-assistant-sub000/pkg/trace"
)

var tracer = otel.Tracer("github.com/jjgarcianorway/anna-assistant-sub000/pkg/engine")

// DefaultMaxLoops is the iteration ceiling when Options leaves it unset.
const DefaultMaxLoops = 3

// DefaultTimeout bounds one question end to end.
const DefaultTimeout = 60 * time.Second

// zeroScore is the overall score at or below which an exhausted draft is
// treated as rejected.
const zeroScore = 0.01

// ErrTimeout is returned when the orchestration deadline passes before a
// terminal outcome.
var ErrTimeout = errors.New("orchestration timed out")

// DebugConfig controls forensic capture. It is fixed for the life of the
// engine.
type DebugConfig struct {
	// Enabled attaches a DebugTrace to every FinalAnswer.
	Enabled bool
	// Writer, when set, receives a hash-chained JSONL event log.
	Writer *dtrace.Writer
	// Stream forwards model tokens to the observer as EventToken.
	Stream bool
}

// Options configures an AnswerEngine.
type Options struct {
	MaxLoops   int
	Timeout    time.Duration
	Thresholds Thresholds
	// FastPath enables single-probe answers for allow-listed questions.
	FastPath *fastpath.Matcher
	Observer Observer
	Debug    DebugConfig
	Logger   *zap.Logger
}

// AnswerEngine orchestrates the junior and senior models over catalog
// probes. It holds no per-question state and is safe for concurrent use.
type AnswerEngine struct {
	client  llm.Client
	exec    probe.Executor
	catalog *probe.Catalog
	opts    Options
	obs     Observer
	logger  *zap.Logger
}

// New creates an engine. Zero-valued options take defaults.
func New(client llm.Client, exec probe.Executor, catalog *probe.Catalog, opts Options) *AnswerEngine {
	if opts.MaxLoops <= 0 {
		opts.MaxLoops = DefaultMaxLoops
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Thresholds == (Thresholds{}) || opts.Thresholds.Validate() != nil {
		opts.Thresholds = DefaultThresholds
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	var obs Observer = NopObserver{}
	if opts.Observer != nil {
		obs = safeObserver{inner: opts.Observer, logger: opts.Logger}
	}
	return &AnswerEngine{
		client:  client,
		exec:    exec,
		catalog: catalog,
		opts:    opts,
		obs:     obs,
		logger:  opts.Logger,
	}
}

// Catalog returns the engine's probe catalog.
func (e *AnswerEngine) Catalog() *probe.Catalog { return e.catalog }

// MaxLoops returns the configured iteration ceiling.
func (e *AnswerEngine) MaxLoops() int { return e.opts.MaxLoops }

// Process answers one question. Refusals are returned as answers; the error
// is reserved for model transport failures, timeouts and cancellation.
func (e *AnswerEngine) Process(ctx context.Context, question string) (*FinalAnswer, error) {
	start := time.Now()
	runID := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()
	ctx, span := tracer.Start(ctx, "engine.Process", trace.WithAttributes(
		attribute.String("anna.run_id", runID),
		attribute.Int("anna.max_loops", e.opts.MaxLoops),
	))
	defer span.End()

	r := &run{
		e:        e,
		runID:    runID,
		question: question,
		logger:   e.logger.With(zap.String("run_id", runID)),
	}
	if e.opts.Debug.Enabled {
		r.debug = dtrace.New(runID, question)
	}
	r.record(dtrace.EventRunStart, map[string]any{"question": question, "max_loops": e.opts.MaxLoops})

	ans, err := r.process(ctx)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s: %w", ErrTimeout, e.opts.Timeout, err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		questionsTotal.WithLabelValues(string(SourceLoop), "error").Inc()
		r.record(dtrace.EventRunComplete, map[string]any{"error": err.Error()})
		return nil, err
	}

	ans.RunID = runID
	ans.Question = question
	ans.Duration = time.Since(start)
	ans.Debug = r.debug
	if ans.Problems == nil {
		ans.Problems = []string{}
	}

	outcome := "answered"
	if ans.IsRefusal {
		outcome = "refused"
	}
	questionsTotal.WithLabelValues(string(ans.Source), outcome).Inc()
	questionDuration.WithLabelValues(string(ans.Source)).Observe(ans.Duration.Seconds())
	if ans.Source == SourceLoop {
		loopIterations.Observe(float64(ans.LoopIterations))
	}
	span.SetAttributes(
		attribute.String("anna.source", string(ans.Source)),
		attribute.Bool("anna.refusal", ans.IsRefusal),
		attribute.Int("anna.iterations", ans.LoopIterations),
		attribute.Float64("anna.overall", ans.Scores.Overall),
	)
	r.record(dtrace.EventRunComplete, map[string]any{
		"refusal":    ans.IsRefusal,
		"confidence": string(ans.Confidence),
		"iterations": ans.LoopIterations,
		"citations":  len(ans.Citations),
	})
	r.emit(Event{Kind: EventFinished, Iteration: ans.LoopIterations, Message: string(ans.Confidence)})
	r.logger.Info("question processed",
		zap.String("source", string(ans.Source)),
		zap.Bool("refusal", ans.IsRefusal),
		zap.String("confidence", string(ans.Confidence)),
		zap.Int("iterations", ans.LoopIterations),
		zap.Duration("duration", ans.Duration),
	)
	return ans, nil
}

// run is the state of one Process call. It is owned by a single goroutine.
type run struct {
	e        *AnswerEngine
	runID    string
	question string
	logger   *zap.Logger
	debug    *dtrace.DebugTrace

	state    *LoopState
	evidence []probe.Evidence
	draft    string
	hasDraft bool
	// audited is the last senior score, forced to zero on refuse.
	audited    AuditScores
	hasAudit   bool
	feedback   []string
	problems   []string
	lastReason string
}

func (r *run) process(ctx context.Context) (*FinalAnswer, error) {
	cls := classify.Classify(r.question)
	r.emit(Event{Kind: EventClassified, Message: string(cls.Reason), Data: map[string]any{"confidence": cls.Confidence}})
	r.record(dtrace.EventClassified, map[string]any{"reason": string(cls.Reason), "confidence": cls.Confidence})
	if !cls.Supported() {
		ans := r.refusal(RefusalUnsupported, cls.Explanation())
		ans.Source = SourceClassifier
		return ans, nil
	}

	if m := r.e.opts.FastPath; m != nil {
		if ans := r.fastPath(ctx, m); ans != nil {
			return ans, nil
		}
	}
	return r.loop(ctx)
}

func (r *run) fastPath(ctx context.Context, m *fastpath.Matcher) *FinalAnswer {
	fa, ev, ok := m.Try(ctx, r.question, r.e.catalog, r.e.exec)
	r.countProbes(ev)
	if !ok {
		// A successful probe still counts as evidence for the loop.
		for _, e := range ev {
			if e.OK() {
				r.evidence = append(r.evidence, e)
			}
		}
		return nil
	}
	r.emit(Event{Kind: EventFastPath, Message: fa.Rule})
	r.record(dtrace.EventFastPath, map[string]any{"rule": fa.Rule, "probe": fa.Evidence.ProbeID})
	scores := llm.Uniform(fastpath.Reliability)
	return &FinalAnswer{
		Answer:     fa.Text,
		Citations:  []probe.Evidence{fa.Evidence},
		Scores:     scores,
		Confidence: r.e.opts.Thresholds.Level(scores.Overall),
		Problems:   []string{ProblemUnaudited},
		Source:     SourceFastPath,
	}
}

func (r *run) loop(ctx context.Context) (*FinalAnswer, error) {
	r.state = NewLoopState(r.e.opts.MaxLoops)
	for r.state.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ans, err := r.iterate(ctx)
		if err != nil {
			return nil, fmt.Errorf("iteration %d: %w", r.state.Iteration, err)
		}
		if ans != nil {
			r.state.Finish()
			return ans, nil
		}
	}
	return r.exhausted(), nil
}

// iterate runs one plan/probe/audit pass. A nil answer means loop again.
func (r *run) iterate(ctx context.Context) (*FinalAnswer, error) {
	it := r.state.Iteration
	ctx, span := tracer.Start(ctx, "engine.iteration", trace.WithAttributes(attribute.Int("anna.iteration", it)))
	defer span.End()
	r.emit(Event{Kind: EventIterationStart, Iteration: it})

	prompt, err := llm.PlanPrompt(llm.PlanInput{
		Question:  r.question,
		Iteration: it,
		MaxLoops:  r.state.MaxIterations,
		Probes:    llm.ProbeOptions(r.e.catalog),
		Evidence:  llm.EvidenceLines(r.evidence),
		Feedback:  r.feedback,
	})
	if err != nil {
		return nil, err
	}
	jr, raw, err := r.e.client.PlanOrDraft(ctx, prompt, r.sink())
	r.trace(it, llm.RoleJunior, prompt, raw, jr)
	if err != nil {
		llmCalls.WithLabelValues(string(llm.RoleJunior), "error").Inc()
		return nil, fmt.Errorf("junior: %w", err)
	}
	llmCalls.WithLabelValues(string(llm.RoleJunior), "ok").Inc()
	r.emit(Event{Kind: EventJuniorResponse, Iteration: it, Data: map[string]any{
		"probes": jr.Plan.ProbeRequests, "draft": jr.HasDraft(), "refuse": jr.Refuse,
	}})

	if jr.Refuse {
		if len(r.evidence) == 0 {
			reason := jr.Reason
			if reason == "" {
				reason = "The question cannot be answered from system probes."
			}
			return r.refusal(RefusalJunior, reason), nil
		}
		r.logger.Warn("junior refused with evidence present; continuing", zap.Int("iteration", it), zap.String("reason", jr.Reason))
	}

	if len(jr.Plan.ProbeRequests) > 0 {
		r.runProbes(ctx, jr.Plan.ProbeRequests, llm.RoleJunior)
		if !jr.HasDraft() {
			return nil, nil
		}
	}
	if !jr.HasDraft() {
		return nil, nil
	}
	r.draft, r.hasDraft = *jr.Draft, true

	if len(r.evidence) == 0 {
		r.emit(Event{Kind: EventAuditSkipped, Iteration: it, Message: "no evidence"})
		r.record(dtrace.EventAuditSkipped, map[string]any{"iteration": it, "reason": "no evidence"})
		return nil, nil
	}

	self := llm.Uniform(llm.DefaultSelfScore)
	if jr.SelfScores != nil {
		self = *jr.SelfScores
	}
	auditPrompt, err := llm.AuditPrompt(llm.AuditInput{
		Question:   r.question,
		Draft:      r.draft,
		Evidence:   llm.EvidenceLines(r.evidence),
		SelfScores: self,
		Probes:     llm.ProbeOptions(r.e.catalog),
	})
	if err != nil {
		return nil, err
	}
	sr, raw, err := r.e.client.Audit(ctx, auditPrompt, r.sink())
	r.trace(it, llm.RoleSenior, auditPrompt, raw, sr)
	if err != nil {
		llmCalls.WithLabelValues(string(llm.RoleSenior), "error").Inc()
		return nil, fmt.Errorf("senior: %w", err)
	}
	llmCalls.WithLabelValues(string(llm.RoleSenior), "ok").Inc()
	verdicts.WithLabelValues(string(sr.Verdict)).Inc()

	r.audited, r.hasAudit = sr.Scores, true
	r.problems = sr.Problems
	r.feedback = sr.Problems
	r.emit(Event{Kind: EventVerdict, Iteration: it, Message: string(sr.Verdict), Data: map[string]any{"overall": sr.Scores.Overall}})
	r.record(dtrace.EventVerdict, map[string]any{"iteration": it, "verdict": string(sr.Verdict), "overall": sr.Scores.Overall})
	span.SetAttributes(attribute.String("anna.verdict", string(sr.Verdict)))

	switch sr.Verdict {
	case llm.VerdictApprove, llm.VerdictFixAndAccept:
		text := r.draft
		switch {
		case sr.Text != nil:
			text = *sr.Text
		case sr.FixedAnswer != nil:
			text = *sr.FixedAnswer
		}
		return &FinalAnswer{
			Answer:         text,
			Citations:      r.citations(),
			Scores:         sr.Scores,
			Confidence:     r.e.opts.Thresholds.Level(sr.Scores.Overall),
			Verdict:        sr.Verdict,
			Problems:       sr.Problems,
			LoopIterations: it,
			Source:         SourceLoop,
		}, nil

	case llm.VerdictNeedsMoreProbes:
		if len(sr.ProbeRequests) > 0 {
			r.runProbes(ctx, sr.ProbeRequests, llm.RoleSenior)
		}
		return nil, nil

	default:
		if len(r.evidence) == 0 {
			return r.refusal(RefusalSenior, "The auditor rejected the answer and no evidence was available."), nil
		}
		r.audited = AuditScores{}
		r.record(dtrace.EventVerdict, map[string]any{"iteration": it, "verdict": string(sr.Verdict), "forced_overall": 0.0})
		if sr.FixedAnswer != nil {
			r.lastReason = *sr.FixedAnswer
		}
		return nil, nil
	}
}

// runProbes validates ids against the catalog, runs the valid ones and
// appends their evidence.
func (r *run) runProbes(ctx context.Context, requested []string, by llm.Role) {
	valid, rejected := r.e.catalog.FilterValid(requested)
	if len(rejected) > 0 {
		probesRejected.WithLabelValues(string(by)).Add(float64(len(rejected)))
		r.logger.Warn("dropping probe ids not in catalog", zap.String("requested_by", string(by)), zap.Strings("ids", rejected))
		r.emit(Event{Kind: EventProbesRejected, Iteration: r.state.Iteration, Data: map[string]any{"ids": rejected, "by": string(by)}})
		r.record(dtrace.EventProbesRejected, map[string]any{"ids": rejected, "by": string(by)})
	}
	if len(valid) == 0 {
		return
	}

	ctx, span := tracer.Start(ctx, "engine.probes", trace.WithAttributes(attribute.StringSlice("anna.probes", valid)))
	defer span.End()

	ev := r.e.exec.Execute(ctx, r.e.catalog, valid)
	r.countProbes(ev)
	r.evidence = append(r.evidence, ev...)

	statuses := make(map[string]string, len(ev))
	for _, e := range ev {
		statuses[e.ProbeID] = string(e.Status)
	}
	r.emit(Event{Kind: EventProbesExecuted, Iteration: r.state.Iteration, Data: map[string]any{"statuses": statuses, "by": string(by)}})
	r.record(dtrace.EventProbesExecuted, map[string]any{"iteration": r.state.Iteration, "statuses": statuses, "by": string(by)})
}

func (r *run) countProbes(ev []probe.Evidence) {
	for _, e := range ev {
		probeExecutions.WithLabelValues(e.ProbeID, string(e.Status)).Inc()
	}
}

// exhausted resolves a loop that used every iteration.
func (r *run) exhausted() *FinalAnswer {
	switch {
	case len(r.evidence) == 0:
		ans := r.refusal(RefusalNoEvidence, ProblemNoEvidence+".")
		ans.Problems = []string{ProblemNoEvidence, ProblemMaxLoops}
		return ans
	case !r.hasDraft:
		ans := r.refusal(RefusalNoDraft, "No answer could be drafted from the collected evidence.")
		ans.Citations = r.citations()
		ans.Problems = []string{ProblemMaxLoops}
		return ans
	case !r.hasAudit || r.audited.Overall <= zeroScore:
		reason := "The answer could not be verified."
		if r.lastReason != "" {
			reason = r.lastReason
		}
		ans := r.refusal(RefusalZeroScore, reason)
		ans.Citations = r.citations()
		ans.Problems = append(append([]string{}, r.problems...), ProblemMaxLoops)
		return ans
	}
	return &FinalAnswer{
		Answer:         r.draft + LowConfidenceDisclaimer,
		Citations:      r.citations(),
		Scores:         r.audited,
		Confidence:     r.e.opts.Thresholds.Level(r.audited.Overall),
		Problems:       append(append([]string{}, r.problems...), ProblemMaxLoops),
		LoopIterations: r.state.Iteration,
		Source:         SourceLoop,
	}
}

func (r *run) refusal(kind RefusalKind, reason string) *FinalAnswer {
	iterations := 0
	if r.state != nil {
		iterations = r.state.Iteration
	}
	return &FinalAnswer{
		Answer:         RefusalText(reason),
		IsRefusal:      true,
		Refusal:        kind,
		Citations:      r.citations(),
		Scores:         AuditScores{},
		Confidence:     Red,
		Problems:       []string{reason},
		LoopIterations: iterations,
		Source:         SourceLoop,
	}
}

func (r *run) citations() []probe.Evidence {
	return append([]probe.Evidence{}, r.evidence...)
}

func (r *run) sink() llm.Sink {
	if !r.e.opts.Debug.Stream {
		return nil
	}
	return llm.SinkFunc(func(role llm.Role, chunk string) {
		r.emit(Event{Kind: EventToken, Iteration: r.state.Iteration, Message: chunk, Data: map[string]any{"role": string(role)}})
	})
}

func (r *run) emit(ev Event) {
	ev.RunID = r.runID
	r.e.obs.OnEvent(ev)
}

// trace records one exchange in the debug trace and the JSONL log.
func (r *run) trace(it int, role llm.Role, prompt, raw string, parsed any) {
	summary, _ := json.Marshal(parsed)
	r.debug.Append(dtrace.DebugIteration{
		Iteration:     it,
		Role:          string(role),
		Prompt:        prompt,
		RawResponse:   raw,
		ParsedSummary: string(summary),
	})
	typ := dtrace.EventJuniorCall
	if role == llm.RoleSenior {
		typ = dtrace.EventSeniorCall
	}
	r.record(typ, map[string]any{
		"iteration": it,
		"prompt":    prompt,
		"raw":       raw,
		"parsed":    json.RawMessage(summary),
	})
}

// record writes to the JSONL log when one is configured. Failures are logged
// and otherwise ignored.
func (r *run) record(typ dtrace.EventType, data map[string]any) {
	w := r.e.opts.Debug.Writer
	if w == nil {
		return
	}
	if err := w.Emit(r.runID, typ, data); err != nil {
		r.logger.Warn("trace write failed", zap.String("event", string(typ)), zap.Error(err))
	}
}
