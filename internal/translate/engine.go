// Package translate implements the translation engine: it turns a
// parsed subtitle document into a translated one by batching cues,
// prompting the configured LLM, parsing and cleaning its response,
// enforcing per-cue line counts, and applying RTL post-processing.
package translate

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/larkspur-labs/subproxy/internal/apperr"
	"github.com/larkspur-labs/subproxy/internal/bidi"
	"github.com/larkspur-labs/subproxy/internal/config"
	"github.com/larkspur-labs/subproxy/internal/llmclient"
	"github.com/larkspur-labs/subproxy/internal/subtitle"
	"github.com/larkspur-labs/subproxy/internal/termmap"
	"github.com/larkspur-labs/subproxy/pkg/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
)

// lineBreaker replaces embedded newlines within one cue's text before
// it is placed on the wire, so the LLM never mistakes an internal
// line break in a multi-line cue for a boundary between cues.
const lineBreaker = "||"

// cueMarker wraps each cue index so the response can be sliced back
// into per-cue translations even if the model reorders or drops
// surrounding prose.
func cueMarker(i int) string {
	return fmt.Sprintf("<<~%d~>>", i)
}

var cueMarkerPattern = regexp.MustCompile(`<<~(\d+)~>>`)

// hearingImpairedPattern matches a caption line that is nothing but a
// bracketed or parenthesized annotation, e.g. "[door creaks]" or
// "(laughs)". A cue skips translation only when every one of its
// non-empty lines matches.
var hearingImpairedPattern = regexp.MustCompile(`^\s*[\[\(][^\]\)]+[\]\)]\s*$`)

func isHearingImpaired(text string) bool {
	lines := strings.Split(text, "\n")
	matched := false
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		if !hearingImpairedPattern.MatchString(l) {
			return false
		}
		matched = true
	}
	return matched
}

// Progress is invoked as batches complete.
type Progress func(completedCues, totalCues int)

// Engine runs the full translation pipeline over a subtitle document.
type Engine struct {
	client *llmclient.Client

	// batchSize and threads are computed by autoTune on construction;
	// settings can override batchSize only.
	batchSize int
	threads   int

	skipHearingImpaired bool
}

// NewEngine builds an Engine for client, auto-tuning batch size and
// fallback fan-out from the provider (local/self-hosted vs. cloud)
// unless cfg overrides the batch size explicitly.
func NewEngine(client *llmclient.Client, cfg config.TranslateConfig) *Engine {
	batchSize, threads := autoTune(client.APIURL(), client.Model())
	if cfg.BatchSize > 0 {
		batchSize = cfg.BatchSize
	}
	return &Engine{
		client:              client,
		batchSize:           batchSize,
		threads:             threads,
		skipHearingImpaired: cfg.SkipHearingImpaired,
	}
}

// localProviderPattern matches an API URL that points at a
// local/self-hosted gateway (a loopback address, or the conventional
// Ollama port) rather than a hosted cloud endpoint.
var localProviderPattern = regexp.MustCompile(`localhost|127\.0\.0\.1|:11434|ollama`)

// autoTune picks a default batch size and fallback thread count per
// provider: local/self-hosted gateways get a smaller batch and fewer
// fallback workers than a cloud endpoint, since they tend to run on
// more constrained hardware and serialize requests internally anyway.
func autoTune(apiURL, model string) (batchSize, threads int) {
	if localProviderPattern.MatchString(strings.ToLower(apiURL)) || strings.Contains(strings.ToLower(model), "ollama") {
		return 20, 6
	}
	return 50, 8
}

// Translate runs the full pipeline: sequential batching, prompting,
// response parsing and cleaning, line-count enforcement, and RTL
// post-processing. onProgress, if non-nil, is invoked after each
// batch with the running total of translated cues. glossary is
// optional; when present, only the terms matching the batch's cues
// are sent down with each prompt so a show's character and place
// names translate the same way every time. Translation is always
// best-effort: a cue that cannot be translated, whether because the
// model dropped its marker or the fallback request itself failed,
// keeps its original text rather than aborting the whole document.
func (e *Engine) Translate(ctx context.Context, doc *subtitle.Document, target language.Tag, onProgress Progress, glossary ...termmap.TermMap) (*subtitle.Document, error) {
	if len(doc.Cues) == 0 {
		return nil, apperr.New(apperr.Empty, "subtitle has no cues to translate")
	}
	var gloss termmap.TermMap
	if len(glossary) > 0 {
		gloss = glossary[0]
	}

	translated := make([]string, len(doc.Cues))
	completed := 0

	for start := 0; start < len(doc.Cues); start += e.batchSize {
		end := min(start+e.batchSize, len(doc.Cues))
		batch := doc.Cues[start:end]

		out, err := e.translateBatch(ctx, batch, target, gloss)
		if err != nil {
			out = e.fallbackPerCue(ctx, batch, target, gloss)
		}

		for i, text := range out {
			translated[start+i] = text
		}

		completed = end
		if onProgress != nil {
			onProgress(completed, len(doc.Cues))
		}
	}

	for i, c := range doc.Cues {
		enforced := enforceLineCount(translated[i], countLines(c.Text))
		translated[i] = bidi.ProcessIfRTL(enforced, target)
	}

	return doc.WithTranslatedLines(translated)
}

// translateBatch sends one batch of cues through the marker protocol
// and returns translations in batch order. Cues matching the
// hearing-impaired pattern, when that setting is enabled, are never
// sent to the model; their original text passes straight through. A
// missing marker in an otherwise well-formed reply is tolerated: that
// cue keeps its original text. An error here (network failure, or a
// reply carrying no markers at all) triggers the caller's per-cue
// fallback path instead of retrying forever.
func (e *Engine) translateBatch(ctx context.Context, batch []subtitle.Cue, target language.Tag, glossary termmap.TermMap) ([]string, error) {
	out := make([]string, len(batch))
	var toSend []subtitle.Cue
	sendIndex := make([]int, 0, len(batch))
	for i, cue := range batch {
		if e.skipHearingImpaired && isHearingImpaired(cue.Text) {
			out[i] = cue.Text
			continue
		}
		toSend = append(toSend, cue)
		sendIndex = append(sendIndex, i)
	}
	if len(toSend) == 0 {
		return out, nil
	}

	system := buildSystemPrompt(target, matchGlossary(glossary, toSend))
	user := buildUserPrompt(toSend)

	reply, err := e.client.Chat(ctx, system, user)
	if err != nil {
		return nil, err
	}

	originals := make([]string, len(toSend))
	for i, cue := range toSend {
		originals[i] = cue.Text
	}
	parsed := parseResponse(reply, originals)
	if parsed == nil {
		return nil, apperr.New(apperr.UpstreamUnavailable, "translation response carried no recognizable cue markers")
	}
	for i, text := range parsed {
		out[sendIndex[i]] = text
	}
	return out, nil
}

// fallbackPerCue scatters each cue in the failed batch as its own
// single-cue request across a bounded pool of e.threads goroutines and
// gathers the results in order. It never fails outright: a cue whose
// individual request also errors simply keeps its original text.
func (e *Engine) fallbackPerCue(ctx context.Context, batch []subtitle.Cue, target language.Tag, glossary termmap.TermMap) []string {
	log.Warn("batch translation failed, falling back to per-cue scatter/gather for %d cues", len(batch))

	out := make([]string, len(batch))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.threads)

	for i, cue := range batch {
		i, cue := i, cue
		g.Go(func() error {
			single, err := e.translateBatch(gctx, []subtitle.Cue{cue}, target, glossary)
			if err != nil {
				log.Warn("fallback translation failed for cue %d, keeping original text: %v", cue.Index, err)
				out[i] = cue.Text
				return nil
			}
			out[i] = single[0]
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func buildSystemPrompt(target language.Tag, glossary termmap.TermMap) string {
	var b strings.Builder
	b.WriteString("You are a professional subtitle translator. Translate the numbered lines below into ")
	b.WriteString(displayName(target))
	b.WriteString(".\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("1. Each input line starts with a marker like <<~0~>>. Your output must repeat the exact same marker before the translation of that line, in the same order.\n")
	b.WriteString("2. Do not merge, split, skip, or add markers.\n")
	b.WriteString("3. The token \"" + lineBreaker + "\" marks an internal line break inside one subtitle cue; preserve it exactly where it appears.\n")
	b.WriteString("4. Output only the marked lines. Do not add greetings, explanations, or commentary.\n")
	if len(glossary) > 0 {
		b.WriteString("5. Use these fixed translations whenever the term appears, instead of improvising your own:\n")
		for source, target := range glossary {
			b.WriteString("   - \"" + source + "\" -> \"" + target + "\"\n")
		}
	}
	return b.String()
}

// matchGlossary narrows glossary to the entries that actually occur in
// this batch's cues, so the prompt only ever carries terms relevant to
// it.
func matchGlossary(glossary termmap.TermMap, batch []subtitle.Cue) termmap.TermMap {
	if len(glossary) == 0 {
		return nil
	}
	texts := make([]string, len(batch))
	for i, cue := range batch {
		texts[i] = cue.Text
	}
	return termmap.Match(glossary, texts).Matched
}

func buildUserPrompt(batch []subtitle.Cue) string {
	var b strings.Builder
	b.WriteString("[[[\n")
	for i, cue := range batch {
		text := strings.ReplaceAll(cue.Text, "\n", lineBreaker)
		b.WriteString(cueMarker(i))
		b.WriteString(text)
		b.WriteString("\n")
	}
	b.WriteString("]]]\n")
	return b.String()
}

// parseResponse extracts translations indexed by their <<~i~>> marker
// and returns one entry per position in originals, in order. A
// position whose marker is absent from the reply keeps the
// corresponding entry from originals instead of being treated as a
// parse failure. It returns nil only when the reply carries no
// recognizable markers at all, signalling to the caller that the
// whole batch should be retried through the fallback path.
func parseResponse(reply string, originals []string) []string {
	locs := cueMarkerPattern.FindAllStringSubmatchIndex(reply, -1)
	if len(locs) == 0 {
		return nil
	}

	byIndex := make(map[int]string, len(locs))
	for i, loc := range locs {
		idx, err := strconv.Atoi(reply[loc[2]:loc[3]])
		if err != nil {
			continue
		}
		bodyStart := loc[1]
		bodyEnd := len(reply)
		if i+1 < len(locs) {
			bodyEnd = locs[i+1][0]
		}
		byIndex[idx] = cleanChatter(reply[bodyStart:bodyEnd])
	}

	out := make([]string, len(originals))
	for i := range originals {
		text, ok := byIndex[i]
		if !ok {
			log.Warn("translation response missing marker for cue %d, keeping original text", i)
			out[i] = originals[i]
			continue
		}
		out[i] = strings.ReplaceAll(text, lineBreaker, "\n")
	}
	return out
}

// cleanChatter trims conversational filler a model sometimes prepends
// to an otherwise well-formed marked line, e.g. "Sure, here you go:".
func cleanChatter(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "[]")
	lowered := strings.ToLower(s)
	for _, prefix := range []string{"sure,", "here you go:", "here is the translation:", "translation:"} {
		if strings.HasPrefix(lowered, prefix) {
			s = strings.TrimSpace(s[len(prefix):])
			lowered = strings.ToLower(s)
		}
	}
	return s
}

func countLines(text string) int {
	if text == "" {
		return 1
	}
	return strings.Count(text, "\n") + 1
}

func displayName(tag language.Tag) string {
	if name := tag.String(); name != "" {
		return name
	}
	return "the target language"
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
