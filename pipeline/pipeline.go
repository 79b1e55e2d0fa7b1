// Package pipeline wires retrieval, prompt assembly, generation, and response
// parsing into the request-facing operations: legal Q&A, clause explanation,
// cross-border clause comparison, and NDA drafting.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/NandiniBytes/lexora-ai/index"
	"github.com/NandiniBytes/lexora-ai/llm"
	"github.com/NandiniBytes/lexora-ai/parser"
	"github.com/NandiniBytes/lexora-ai/prompts"
	"github.com/NandiniBytes/lexora-ai/records"
	"github.com/NandiniBytes/lexora-ai/retriever"
)

// NoContextMessage is returned as the answer when retrieval finds nothing.
// Callers must surface it instead of fabricating an answer.
const NoContextMessage = "No relevant documents found to answer the question."

const defaultTopK = 4

type Source struct {
	DocumentPath  string
	DocumentTitle string
	Score         float64
}

type Answer struct {
	Answer      string
	ContextUsed string
	Sources     []Source
	NoContext   bool
}

type Explanation struct {
	Explanation string
	LegalDomain string
	Degraded    bool
}

type Comparison struct {
	Country1Analysis string
	Country2Analysis string
	KeyDifferences   string
	Degraded         bool
}

type NDADraft struct {
	Draft       string
	ContextUsed string
}

type NDARequest struct {
	Party1       string
	Party2       string
	Jurisdiction string
	Purpose      string
}

// Pipeline runs one RAG flow per call. It holds no per-request state; any
// number of requests may run concurrently, bounded by the backend semaphore.
type Pipeline struct {
	retriever *retriever.Retriever
	assembler *prompts.Assembler
	client    llm.Client
	recorder  records.Recorder
	logger    *log.Logger
	topK      int
	sem       chan struct{}
}

type Options struct {
	// TopK is the number of chunks retrieved per query.
	TopK int
	// MaxConcurrent bounds simultaneous embedding/generation backend calls.
	MaxConcurrent int
}

func New(ret *retriever.Retriever, assembler *prompts.Assembler, client llm.Client, recorder records.Recorder, logger *log.Logger, opts Options) *Pipeline {
	if logger == nil {
		logger = log.Default()
	}
	if opts.TopK <= 0 {
		opts.TopK = defaultTopK
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 8
	}

	return &Pipeline{
		retriever: ret,
		assembler: assembler,
		client:    client,
		recorder:  recorder,
		logger:    logger,
		topK:      opts.TopK,
		sem:       make(chan struct{}, opts.MaxConcurrent),
	}
}

// Ask answers a legal question through the full retrieval-augmented flow and
// persists a query record on success.
func (p *Pipeline) Ask(ctx context.Context, question string) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, fmt.Errorf("question cannot be empty")
	}

	answer, err := p.answer(ctx, question)
	if err != nil {
		return Answer{}, err
	}

	p.record(ctx, records.Query{
		Question: question,
		Context:  answer.ContextUsed,
		Response: answer.Answer,
	}, records.Event{
		Type:    "legal_qa",
		Details: fmt.Sprintf("answered legal question: %s", truncate(question, 100)),
	})

	return answer, nil
}

// ExplainClause explains a contract clause in plain language. The prompt is
// enriched with a retrieval-augmented answer about similar clauses first.
func (p *Pipeline) ExplainClause(ctx context.Context, clause string) (Explanation, error) {
	clause = strings.TrimSpace(clause)
	if clause == "" {
		return Explanation{}, fmt.Errorf("clause cannot be empty")
	}

	contextQuestion := fmt.Sprintf(
		"Explain legal clauses similar to: %s What are the common interpretations and legal implications?",
		truncate(clause, 200))
	ragContext, err := p.answer(ctx, contextQuestion)
	if err != nil {
		return Explanation{}, err
	}

	prompt, err := p.assembler.Assemble(prompts.TemplateExplainer, map[string]string{
		prompts.FieldContext: ragContext.Answer,
		"clause":             clause,
	})
	if err != nil {
		return Explanation{}, err
	}

	result, err := p.generate(ctx, prompt)
	if err != nil {
		return Explanation{}, err
	}

	fields, degraded := p.parse(result, parser.Options{
		Fields:   []string{"explanation", "legal_domain"},
		Defaults: map[string]string{"legal_domain": "General Legal"},
	})
	if fields["explanation"] == "" {
		// The model ignored the requested format entirely; the raw text is
		// still a better answer than nothing.
		fields["explanation"] = strings.TrimSpace(result.Text)
	}

	p.record(ctx, records.Query{
		Question: "Clause explanation",
		Context:  clause,
		Response: fields["explanation"],
	}, records.Event{
		Type:    "clause_explanation",
		Details: fmt.Sprintf("explained clause of %d characters", len(clause)),
	})

	return Explanation{
		Explanation: fields["explanation"],
		LegalDomain: fields["legal_domain"],
		Degraded:    degraded,
	}, nil
}

// CompareClauses compares how a clause type is treated in two jurisdictions,
// retrieving context for each jurisdiction separately.
func (p *Pipeline) CompareClauses(ctx context.Context, clauseType, country1, country2 string) (Comparison, error) {
	clauseType = strings.TrimSpace(clauseType)
	if clauseType == "" {
		return Comparison{}, fmt.Errorf("clause type cannot be empty")
	}
	if strings.TrimSpace(country1) == "" || strings.TrimSpace(country2) == "" {
		return Comparison{}, fmt.Errorf("both jurisdictions are required")
	}

	context1, err := p.answer(ctx, comparisonContextQuestion(clauseType, country1))
	if err != nil {
		return Comparison{}, err
	}
	context2, err := p.answer(ctx, comparisonContextQuestion(clauseType, country2))
	if err != nil {
		return Comparison{}, err
	}

	prompt, err := p.assembler.Assemble(prompts.TemplateComparator, map[string]string{
		"clause_type": clauseType,
		"country_1":   country1,
		"country_2":   country2,
		"context_1":   context1.Answer,
		"context_2":   context2.Answer,
	})
	if err != nil {
		return Comparison{}, err
	}

	result, err := p.generate(ctx, prompt)
	if err != nil {
		return Comparison{}, err
	}

	fields, degraded := p.parse(result, parser.Options{
		Fields: []string{"country_1_analysis", "country_2_analysis", "key_differences"},
		Sections: map[string]string{
			"country_1_analysis": country1,
			"country_2_analysis": country2,
			"key_differences":    "Key Differences",
		},
		Defaults: map[string]string{
			"country_1_analysis": fmt.Sprintf("Analysis for %s based on legal documents and precedents.", country1),
			"country_2_analysis": fmt.Sprintf("Analysis for %s based on legal documents and precedents.", country2),
			"key_differences":    "Detailed comparison available in the full analysis.",
		},
	})

	p.record(ctx, records.Query{
		Question: fmt.Sprintf("Cross-border comparison: %s", clauseType),
		Context:  fmt.Sprintf("%s vs %s", country1, country2),
		Response: result.Text,
	}, records.Event{
		Type:    "clause_comparison",
		Details: fmt.Sprintf("compared %s clauses between %s and %s", clauseType, country1, country2),
	})

	return Comparison{
		Country1Analysis: fields["country_1_analysis"],
		Country2Analysis: fields["country_2_analysis"],
		KeyDifferences:   fields["key_differences"],
		Degraded:         degraded,
	}, nil
}

// GenerateNDA drafts a Non-Disclosure Agreement, grounding the draft in
// retrieved jurisdiction requirements.
func (p *Pipeline) GenerateNDA(ctx context.Context, req NDARequest) (NDADraft, error) {
	if strings.TrimSpace(req.Party1) == "" || strings.TrimSpace(req.Party2) == "" {
		return NDADraft{}, fmt.Errorf("both parties are required")
	}
	if strings.TrimSpace(req.Jurisdiction) == "" {
		return NDADraft{}, fmt.Errorf("jurisdiction is required")
	}

	contextQuestion := fmt.Sprintf(
		"What are the key requirements for Non-Disclosure Agreements in %s? Include standard clauses and legal considerations.",
		req.Jurisdiction)
	ragContext, err := p.answer(ctx, contextQuestion)
	if err != nil {
		return NDADraft{}, err
	}

	prompt, err := p.assembler.Assemble(prompts.TemplateNDA, map[string]string{
		prompts.FieldContext: ragContext.Answer,
		"party_1":            req.Party1,
		"party_2":            req.Party2,
		"jurisdiction":       req.Jurisdiction,
		"purpose":            req.Purpose,
	})
	if err != nil {
		return NDADraft{}, err
	}

	result, err := p.generate(ctx, prompt)
	if err != nil {
		return NDADraft{}, err
	}
	draft := strings.TrimSpace(result.Text)

	p.record(ctx, records.Query{
		Question: fmt.Sprintf("NDA generation for %s and %s", req.Party1, req.Party2),
		Context:  fmt.Sprintf("Jurisdiction: %s, Purpose: %s", req.Jurisdiction, req.Purpose),
		Response: draft,
	}, records.Event{
		Type:    "nda_generation",
		Details: fmt.Sprintf("generated NDA for %s and %s", req.Party1, req.Party2),
	})

	return NDADraft{Draft: draft, ContextUsed: ragContext.ContextUsed}, nil
}

// answer runs one retrieval-augmented generation round without persisting
// anything. Every failure is terminal for the request; only the LLM client's
// internal token refresh retries.
func (p *Pipeline) answer(ctx context.Context, question string) (Answer, error) {
	results, err := p.retrieve(ctx, question)
	if err != nil {
		return Answer{}, err
	}

	if len(results) == 0 {
		return Answer{Answer: NoContextMessage, NoContext: true}, nil
	}

	contextText := retriever.Context(results)

	prompt, err := p.assembler.Assemble(prompts.TemplateLegalQA, map[string]string{
		prompts.FieldContext: contextText,
		"question":           question,
	})
	if err != nil {
		return Answer{}, err
	}

	result, err := p.generate(ctx, prompt)
	if err != nil {
		return Answer{}, err
	}

	return Answer{
		Answer:      strings.TrimSpace(result.Text),
		ContextUsed: contextText,
		Sources:     sourcesFrom(results),
	}, nil
}

func (p *Pipeline) retrieve(ctx context.Context, query string) ([]index.Result, error) {
	if err := p.acquire(ctx); err != nil {
		return nil, err
	}
	defer p.release()
	return p.retriever.Retrieve(ctx, query, p.topK)
}

func (p *Pipeline) generate(ctx context.Context, prompt string) (llm.GenerationResult, error) {
	if err := p.acquire(ctx); err != nil {
		return llm.GenerationResult{}, err
	}
	defer p.release()

	result, err := p.client.Generate(ctx, prompt)
	if err != nil {
		return llm.GenerationResult{}, fmt.Errorf("generate: %w", err)
	}
	return result, nil
}

// parse unifies the two generation result shapes: structured results pass
// through with defaults applied, text results go through the layered parser.
func (p *Pipeline) parse(result llm.GenerationResult, opts parser.Options) (map[string]string, bool) {
	if result.IsStructured() {
		fields := make(map[string]string, len(opts.Fields))
		for _, field := range opts.Fields {
			if value := strings.TrimSpace(result.Structured[field]); value != "" {
				fields[field] = value
			} else if def, ok := opts.Defaults[field]; ok {
				fields[field] = def
			}
		}
		return fields, false
	}

	fields, err := parser.Parse(result.Text, opts)
	degraded := errors.Is(err, parser.ErrDegraded)
	if degraded {
		p.logger.Printf("response parsing degraded to heuristics")
	}
	return fields, degraded
}

func (p *Pipeline) acquire(ctx context.Context) error {
	select {
	case p.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pipeline) release() {
	<-p.sem
}

// record hands the finished run to the record store. Persistence failures are
// logged, never surfaced: the answer is already computed.
func (p *Pipeline) record(ctx context.Context, query records.Query, event records.Event) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.SaveQuery(ctx, query); err != nil {
		p.logger.Printf("save query record: %v", err)
	}
	if err := p.recorder.LogEvent(ctx, event); err != nil {
		p.logger.Printf("save event record: %v", err)
	}
}

func comparisonContextQuestion(clauseType, country string) string {
	return fmt.Sprintf("How are %s clauses interpreted and enforced in %s? Include legal precedents and regulations.",
		clauseType, country)
}

func sourcesFrom(results []index.Result) []Source {
	sources := make([]Source, 0, len(results))
	seen := make(map[string]struct{}, len(results))
	for _, res := range results {
		if _, ok := seen[res.Entry.DocumentPath]; ok {
			continue
		}
		seen[res.Entry.DocumentPath] = struct{}{}
		sources = append(sources, Source{
			DocumentPath:  res.Entry.DocumentPath,
			DocumentTitle: res.Entry.DocumentTitle,
			Score:         res.Score,
		})
	}
	return sources
}

// truncate shortens s to at most n runes, never cutting a character in half.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
