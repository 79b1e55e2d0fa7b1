package pipeline

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/NandiniBytes/lexora-ai/embeddings"
	"github.com/NandiniBytes/lexora-ai/index"
	"github.com/NandiniBytes/lexora-ai/llm"
	"github.com/NandiniBytes/lexora-ai/prompts"
	"github.com/NandiniBytes/lexora-ai/records"
	"github.com/NandiniBytes/lexora-ai/retriever"
)

type stubEmbedder struct {
	vectors [][]float32
}

func (s *stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return s.vectors, nil
}

var _ embeddings.Embedder = (*stubEmbedder)(nil)

type stubSearcher struct {
	results []index.Result
}

func (s *stubSearcher) Search(ctx context.Context, query []float32, k int) ([]index.Result, error) {
	return s.results, nil
}

var _ index.Searcher = (*stubSearcher)(nil)

// stubLLM replies with queued responses in order, recording every prompt.
type stubLLM struct {
	responses []llm.GenerationResult
	prompts   []string
}

func (s *stubLLM) Generate(ctx context.Context, prompt string) (llm.GenerationResult, error) {
	s.prompts = append(s.prompts, prompt)
	if len(s.responses) == 0 {
		return llm.TextResult("default response"), nil
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

var _ llm.Client = (*stubLLM)(nil)

type stubRecorder struct {
	queries []records.Query
	events  []records.Event
}

func (s *stubRecorder) SaveQuery(ctx context.Context, q records.Query) error {
	s.queries = append(s.queries, q)
	return nil
}

func (s *stubRecorder) LogEvent(ctx context.Context, e records.Event) error {
	s.events = append(s.events, e)
	return nil
}

var _ records.Recorder = (*stubRecorder)(nil)

func writeTemplates(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	templates := map[string]string{
		prompts.TemplateLegalQA:    "Context: {context}\nQuestion: {question}",
		prompts.TemplateExplainer:  "Background: {context}\nClause: {clause}",
		prompts.TemplateComparator: "Type: {clause_type}\n{country_1}: {context_1}\n{country_2}: {context_2}",
		prompts.TemplateNDA:        "Requirements: {context}\nParties: {party_1}, {party_2}\nLaw: {jurisdiction}\nPurpose: {purpose}",
	}
	for name, content := range templates {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write template %s: %v", name, err)
		}
	}
	return dir
}

func newTestPipeline(t *testing.T, searcher index.Searcher, client llm.Client, recorder records.Recorder) *Pipeline {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	ret := retriever.New(&stubEmbedder{vectors: [][]float32{{0.1, 0.2}}}, searcher, logger)
	assembler := prompts.NewAssembler(writeTemplates(t))
	return New(ret, assembler, client, recorder, logger, Options{TopK: 4, MaxConcurrent: 2})
}

func ndaChunkResults() []index.Result {
	return []index.Result{
		{Entry: index.Entry{
			ChunkID:       "ndas/sample_nda.txt:0",
			DocumentPath:  "ndas/sample_nda.txt",
			DocumentTitle: "NON-DISCLOSURE AGREEMENT",
			Text:          "Confidential Information means any non-public information.",
		}, Score: 0.92},
		{Entry: index.Entry{
			ChunkID:       "ndas/sample_nda.txt:1",
			DocumentPath:  "ndas/sample_nda.txt",
			DocumentTitle: "NON-DISCLOSURE AGREEMENT",
			Text:          "This Agreement shall be governed by the laws of the Jurisdiction.",
		}, Score: 0.81},
	}
}

func TestAskAnswersWithContextAndSources(t *testing.T) {
	client := &stubLLM{responses: []llm.GenerationResult{
		llm.TextResult("The clause defines confidential information."),
	}}
	recorder := &stubRecorder{}
	pipe := newTestPipeline(t, &stubSearcher{results: ndaChunkResults()}, client, recorder)

	answer, err := pipe.Ask(context.Background(), "What counts as confidential information?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if answer.Answer != "The clause defines confidential information." {
		t.Fatalf("unexpected answer: %q", answer.Answer)
	}
	if answer.NoContext {
		t.Fatal("expected context to be found")
	}
	if len(answer.Sources) != 1 {
		t.Fatalf("expected 1 deduplicated source, got %d", len(answer.Sources))
	}
	if answer.Sources[0].DocumentPath != "ndas/sample_nda.txt" {
		t.Fatalf("unexpected source: %q", answer.Sources[0].DocumentPath)
	}

	if len(client.prompts) != 1 {
		t.Fatalf("expected 1 generation, got %d", len(client.prompts))
	}
	if !strings.Contains(client.prompts[0], "Confidential Information means any non-public information.") {
		t.Fatalf("prompt missing retrieved context: %q", client.prompts[0])
	}
	if !strings.Contains(client.prompts[0], "What counts as confidential information?") {
		t.Fatalf("prompt missing question: %q", client.prompts[0])
	}

	if len(recorder.queries) != 1 || len(recorder.events) != 1 {
		t.Fatalf("expected 1 query and 1 event recorded, got %d and %d",
			len(recorder.queries), len(recorder.events))
	}
	if recorder.events[0].Type != "legal_qa" {
		t.Fatalf("unexpected event type %q", recorder.events[0].Type)
	}
}

func TestAskWithoutContextReturnsNoContextMessage(t *testing.T) {
	client := &stubLLM{}
	pipe := newTestPipeline(t, &stubSearcher{results: []index.Result{}}, client, nil)

	answer, err := pipe.Ask(context.Background(), "Anything about maritime law?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !answer.NoContext {
		t.Fatal("expected NoContext to be set")
	}
	if answer.Answer != NoContextMessage {
		t.Fatalf("unexpected answer: %q", answer.Answer)
	}
	if len(client.prompts) != 0 {
		t.Fatalf("expected no generation without context, got %d", len(client.prompts))
	}
}

func TestAskRejectsEmptyQuestion(t *testing.T) {
	pipe := newTestPipeline(t, &stubSearcher{}, &stubLLM{}, nil)
	if _, err := pipe.Ask(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty question")
	}
}

func TestExplainClauseParsesLabeledResponse(t *testing.T) {
	client := &stubLLM{responses: []llm.GenerationResult{
		llm.TextResult("Similar clauses impose secrecy duties."),
		llm.TextResult("Explanation: The clause defines the term and governing law.\nDomain: Contract Law"),
	}}
	pipe := newTestPipeline(t, &stubSearcher{results: ndaChunkResults()}, client, nil)

	explanation, err := pipe.ExplainClause(context.Background(), "This Agreement shall be governed by the laws of Germany.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if explanation.Explanation != "The clause defines the term and governing law." {
		t.Fatalf("unexpected explanation: %q", explanation.Explanation)
	}
	if explanation.LegalDomain != "Contract Law" {
		t.Fatalf("unexpected legal domain: %q", explanation.LegalDomain)
	}
	if !explanation.Degraded {
		t.Fatal("expected degraded flag for label-line response")
	}

	if len(client.prompts) != 2 {
		t.Fatalf("expected context round plus explainer round, got %d generations", len(client.prompts))
	}
	if !strings.Contains(client.prompts[1], "Similar clauses impose secrecy duties.") {
		t.Fatalf("explainer prompt missing nested context: %q", client.prompts[1])
	}
}

func TestExplainClauseJSONResponseIsNotDegraded(t *testing.T) {
	client := &stubLLM{responses: []llm.GenerationResult{
		llm.TextResult("context answer"),
		llm.TextResult(`{"explanation": "Limits damages.", "legal_domain": "Commercial Law"}`),
	}}
	pipe := newTestPipeline(t, &stubSearcher{results: ndaChunkResults()}, client, nil)

	explanation, err := pipe.ExplainClause(context.Background(), "liability cap clause")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if explanation.Degraded {
		t.Fatal("expected clean parse for JSON response")
	}
	if explanation.Explanation != "Limits damages." || explanation.LegalDomain != "Commercial Law" {
		t.Fatalf("unexpected fields: %q / %q", explanation.Explanation, explanation.LegalDomain)
	}
}

func TestExplainClauseFallsBackToRawText(t *testing.T) {
	client := &stubLLM{responses: []llm.GenerationResult{
		llm.TextResult("context answer"),
		llm.TextResult("Free prose without any expected structure."),
	}}
	pipe := newTestPipeline(t, &stubSearcher{results: ndaChunkResults()}, client, nil)

	explanation, err := pipe.ExplainClause(context.Background(), "some clause")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if explanation.Explanation != "Free prose without any expected structure." {
		t.Fatalf("expected raw text fallback, got %q", explanation.Explanation)
	}
	if explanation.LegalDomain != "General Legal" {
		t.Fatalf("expected default domain, got %q", explanation.LegalDomain)
	}
}

func TestExplainClauseStructuredResultPassesThrough(t *testing.T) {
	client := &stubLLM{responses: []llm.GenerationResult{
		llm.TextResult("context answer"),
		llm.StructuredResult(map[string]string{
			"explanation":  "Already structured.",
			"legal_domain": "IP Law",
		}),
	}}
	pipe := newTestPipeline(t, &stubSearcher{results: ndaChunkResults()}, client, nil)

	explanation, err := pipe.ExplainClause(context.Background(), "patent licensing clause")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if explanation.Degraded {
		t.Fatal("structured result must not be degraded")
	}
	if explanation.Explanation != "Already structured." || explanation.LegalDomain != "IP Law" {
		t.Fatalf("unexpected fields: %q / %q", explanation.Explanation, explanation.LegalDomain)
	}
}

func TestExplainClauseTruncatesLongClauseOnRuneBoundary(t *testing.T) {
	client := &stubLLM{responses: []llm.GenerationResult{
		llm.TextResult("context answer"),
		llm.TextResult("Explanation: ok.\nDomain: Contract Law"),
	}}
	pipe := newTestPipeline(t, &stubSearcher{results: ndaChunkResults()}, client, nil)

	// More than 200 runes of multibyte text; the context question embeds a
	// truncated excerpt and must stay valid UTF-8.
	clause := strings.Repeat("§", 250)
	if _, err := pipe.ExplainClause(context.Background(), clause); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !utf8.ValidString(client.prompts[0]) {
		t.Fatalf("context question is not valid UTF-8: %q", client.prompts[0])
	}
	if !strings.Contains(client.prompts[0], strings.Repeat("§", 200)+"...") {
		t.Fatalf("expected clause truncated at 200 runes, got %q", client.prompts[0])
	}
}

func TestTruncateKeepsRuneBoundaries(t *testing.T) {
	if got := truncate("ab§cd", 3); got != "ab§..." {
		t.Fatalf("unexpected truncation: %q", got)
	}
	if got := truncate("ab§", 3); got != "ab§" {
		t.Fatalf("expected short string untouched, got %q", got)
	}
	if got := truncate("§§§§", 2); !utf8.ValidString(got) {
		t.Fatalf("truncated string is not valid UTF-8: %q", got)
	}
}

func TestCompareClausesRetrievesPerJurisdiction(t *testing.T) {
	client := &stubLLM{responses: []llm.GenerationResult{
		llm.TextResult("German practice summary."),
		llm.TextResult("French practice summary."),
		llm.TextResult(`{"country_1_analysis": "Statutory regime.", "country_2_analysis": "Contractual regime.", "key_differences": "Statute vs contract."}`),
	}}
	recorder := &stubRecorder{}
	pipe := newTestPipeline(t, &stubSearcher{results: ndaChunkResults()}, client, recorder)

	comparison, err := pipe.CompareClauses(context.Background(), "confidentiality", "Germany", "France")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if comparison.Country1Analysis != "Statutory regime." {
		t.Fatalf("unexpected country 1 analysis: %q", comparison.Country1Analysis)
	}
	if comparison.Country2Analysis != "Contractual regime." {
		t.Fatalf("unexpected country 2 analysis: %q", comparison.Country2Analysis)
	}
	if comparison.KeyDifferences != "Statute vs contract." {
		t.Fatalf("unexpected key differences: %q", comparison.KeyDifferences)
	}
	if comparison.Degraded {
		t.Fatal("expected clean parse")
	}

	if len(client.prompts) != 3 {
		t.Fatalf("expected two context rounds plus comparison, got %d generations", len(client.prompts))
	}
	if !strings.Contains(client.prompts[2], "German practice summary.") ||
		!strings.Contains(client.prompts[2], "French practice summary.") {
		t.Fatalf("comparison prompt missing per-country context: %q", client.prompts[2])
	}
	if recorder.events[0].Type != "clause_comparison" {
		t.Fatalf("unexpected event type %q", recorder.events[0].Type)
	}
}

func TestCompareClausesAppliesDefaultsForUnstructuredOutput(t *testing.T) {
	client := &stubLLM{responses: []llm.GenerationResult{
		llm.TextResult("context one"),
		llm.TextResult("context two"),
		llm.TextResult("The model rambled without structure."),
	}}
	pipe := newTestPipeline(t, &stubSearcher{results: ndaChunkResults()}, client, nil)

	comparison, err := pipe.CompareClauses(context.Background(), "non-compete", "Germany", "France")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !comparison.Degraded {
		t.Fatal("expected degraded parse")
	}
	if comparison.Country1Analysis != "Analysis for Germany based on legal documents and precedents." {
		t.Fatalf("unexpected default: %q", comparison.Country1Analysis)
	}
	if comparison.KeyDifferences != "Detailed comparison available in the full analysis." {
		t.Fatalf("unexpected default: %q", comparison.KeyDifferences)
	}
}

func TestGenerateNDAGroundsDraftInJurisdiction(t *testing.T) {
	client := &stubLLM{responses: []llm.GenerationResult{
		llm.TextResult("NDAs in Germany require written form."),
		llm.TextResult("NON-DISCLOSURE AGREEMENT between Acme and Globex..."),
	}}
	recorder := &stubRecorder{}
	pipe := newTestPipeline(t, &stubSearcher{results: ndaChunkResults()}, client, recorder)

	draft, err := pipe.GenerateNDA(context.Background(), NDARequest{
		Party1:       "Acme",
		Party2:       "Globex",
		Jurisdiction: "Germany",
		Purpose:      "pilot project",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasPrefix(draft.Draft, "NON-DISCLOSURE AGREEMENT") {
		t.Fatalf("unexpected draft: %q", draft.Draft)
	}
	if !strings.Contains(client.prompts[0], "Germany") {
		t.Fatalf("context question missing jurisdiction: %q", client.prompts[0])
	}
	if !strings.Contains(client.prompts[1], "NDAs in Germany require written form.") {
		t.Fatalf("nda prompt missing retrieved requirements: %q", client.prompts[1])
	}
	if recorder.events[0].Type != "nda_generation" {
		t.Fatalf("unexpected event type %q", recorder.events[0].Type)
	}
}

func TestGenerateNDAValidatesParties(t *testing.T) {
	pipe := newTestPipeline(t, &stubSearcher{}, &stubLLM{}, nil)
	if _, err := pipe.GenerateNDA(context.Background(), NDARequest{Party1: "Acme", Jurisdiction: "Germany"}); err == nil {
		t.Fatal("expected error for missing party")
	}
	if _, err := pipe.GenerateNDA(context.Background(), NDARequest{Party1: "Acme", Party2: "Globex"}); err == nil {
		t.Fatal("expected error for missing jurisdiction")
	}
}
