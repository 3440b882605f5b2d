// Package orchestrator wires the catalog, cache, translation engine,
// and translation gate together into the proxy's search/download/
// translate flow.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/abadojack/whatlanggo"
	"github.com/google/uuid"
	"github.com/larkspur-labs/subproxy/internal/apperr"
	"github.com/larkspur-labs/subproxy/internal/cache"
	"github.com/larkspur-labs/subproxy/internal/catalog"
	"github.com/larkspur-labs/subproxy/internal/progress"
	"github.com/larkspur-labs/subproxy/internal/subtitle"
	"github.com/larkspur-labs/subproxy/internal/termmap"
	"github.com/larkspur-labs/subproxy/internal/translate"
	"github.com/larkspur-labs/subproxy/pkg/log"
	"golang.org/x/text/language"
)

// Orchestrator implements the subtitle proxy's core flow: search the
// catalog, serve a cached translation when one exists, otherwise
// download the English subtitle, run it through the translation gate
// and engine, cache the result, and return it.
type Orchestrator struct {
	catalog  catalog.Client
	cache    *cache.Store
	engine   *translate.Engine
	gate     *progress.Gate
	registry *progress.Registry
}

func New(catalogClient catalog.Client, cacheStore *cache.Store, engine *translate.Engine, gate *progress.Gate, registry *progress.Registry) *Orchestrator {
	return &Orchestrator{catalog: catalogClient, cache: cacheStore, engine: engine, gate: gate, registry: registry}
}

// ProxySearch forwards a search to the catalog. Every result the
// catalog returns is an English subtitle; the proxy's contract with
// callers is that downloading any of them yields a translation into
// targetLang instead of the original English text.
func (o *Orchestrator) ProxySearch(query catalog.SearchQuery) ([]catalog.SearchResult, error) {
	return o.catalog.Search(query)
}

// IsCached reports whether fileID already has a cached translation
// for targetLang, without downloading or translating anything.
func (o *Orchestrator) IsCached(fileID string, targetLang language.Tag, format subtitle.Format) bool {
	return o.cache.IsCached(cache.NewCatalogFingerprint(fileID), targetLang, format)
}

// ProxyDownloadAndTranslate serves a cached translation if one
// exists; otherwise it downloads the English subtitle from the
// catalog, translates it under the translation gate, caches the
// result, and returns it.
func (o *Orchestrator) ProxyDownloadAndTranslate(ctx context.Context, fileID, displayName string, targetLang language.Tag) (*subtitle.Document, error) {
	fp := cache.NewCatalogFingerprint(fileID)

	if doc, ok, err := o.cache.Get(fp, targetLang, subtitle.SRT); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to read cache", err)
	} else if ok {
		return doc, nil
	}

	dl, err := o.catalog.Download(fileID)
	if err != nil {
		return nil, err
	}
	format, err := subtitle.ParseFormat(dl.Format)
	if err != nil {
		return nil, apperr.Wrap(apperr.BadInput, "catalog returned an unsupported format", err)
	}
	doc, err := subtitle.Parse(format, dl.Content)
	if err != nil {
		return nil, apperr.Wrap(apperr.BadInput, "failed to parse downloaded subtitle", err)
	}

	if err := o.cache.StoreOriginal(fp, dl.Content, cache.Metadata{FileName: displayName, FileID: fileID}); err != nil {
		log.Warn("failed to store original subtitle for %s: %v", fileID, err)
	}

	translated, err := o.runThroughGate(ctx, doc, displayName, targetLang, nil)
	if err != nil {
		return nil, err
	}

	if _, err := o.cache.Put(fp, targetLang, translated); err != nil {
		log.Error("failed to cache translation for %s: %v", fileID, err)
	}
	return translated, nil
}

// TranslateContent is the ad-hoc entrypoint: a caller hands the proxy
// raw subtitle content it never got from the catalog (an upload, a
// pasted snippet). It is fingerprinted with a non-persistent local
// sequence number and never written to the cache.
func (o *Orchestrator) TranslateContent(ctx context.Context, content []byte, format subtitle.Format, targetLang language.Tag) (*subtitle.Document, error) {
	return o.TranslateContentWithGlossary(ctx, content, format, targetLang, nil)
}

// TranslateContentWithGlossary is TranslateContent with a per-call
// glossary of fixed term translations.
func (o *Orchestrator) TranslateContentWithGlossary(ctx context.Context, content []byte, format subtitle.Format, targetLang language.Tag, glossary termmap.TermMap) (*subtitle.Document, error) {
	if err := requireEnglish(content); err != nil {
		return nil, err
	}

	doc, err := subtitle.Parse(format, content)
	if err != nil {
		return nil, apperr.Wrap(apperr.BadInput, "failed to parse subtitle content", err)
	}

	fp := cache.NewLocalFingerprint()
	return o.runThroughGate(ctx, doc, fp.Key(), targetLang, glossary)
}

// TranslateEmbeddedTrack translates a subtitle track demuxed out of a
// video container. Unlike TranslateContent, the result is cached
// under a Fingerprint derived from the video's file name and track
// index, so re-analyzing the same folder recognizes work already
// done.
func (o *Orchestrator) TranslateEmbeddedTrack(ctx context.Context, content []byte, format subtitle.Format, targetLang language.Tag, videoPath string, trackIndex int, glossary termmap.TermMap) (*subtitle.Document, error) {
	if err := requireEnglish(content); err != nil {
		return nil, err
	}

	fileName := videoPath
	fp := cache.NewEmbeddedFingerprint(fileName, trackIndex)

	if doc, ok, err := o.cache.Get(fp, targetLang, format); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to read cache", err)
	} else if ok {
		return doc, nil
	}

	doc, err := subtitle.Parse(format, content)
	if err != nil {
		return nil, apperr.Wrap(apperr.BadInput, "failed to parse extracted subtitle", err)
	}

	if err := o.cache.StoreOriginal(fp, content, cache.Metadata{FileName: fileName, VideoPath: videoPath, TrackIndex: &trackIndex}); err != nil {
		log.Warn("failed to store original subtitle for %s track %d: %v", videoPath, trackIndex, err)
	}

	translated, err := o.runThroughGate(ctx, doc, fmt.Sprintf("%s (track %d)", fileName, trackIndex), targetLang, glossary)
	if err != nil {
		return nil, err
	}

	if _, err := o.cache.Put(fp, targetLang, translated); err != nil {
		log.Error("failed to cache embedded translation for %s track %d: %v", videoPath, trackIndex, err)
	}
	return translated, nil
}

func (o *Orchestrator) runThroughGate(ctx context.Context, doc *subtitle.Document, displayName string, targetLang language.Tag, glossary termmap.TermMap) (*subtitle.Document, error) {
	jobID := uuid.NewString()
	o.registry.Register(jobID, displayName, len(doc.Cues))

	if err := o.gate.Acquire(ctx, jobID); err != nil {
		o.registry.Finish(jobID, progress.Cancelled, err)
		return nil, apperr.Wrap(apperr.Busy, "translation gate acquisition cancelled", err)
	}
	defer o.gate.Release(jobID)
	o.registry.Activate(jobID)

	translated, err := o.engine.Translate(ctx, doc, targetLang, func(completed, total int) {
		o.registry.Update(jobID, completed, total, "")
	}, glossary)
	if err != nil {
		o.registry.Finish(jobID, progress.Failed, err)
		return nil, err
	}
	o.registry.Finish(jobID, progress.Done, nil)
	return translated, nil
}

// requireEnglish rejects ad-hoc content the proxy can tell is not
// English before spending a translation call on it. Only a coarse
// language-detection pass, not a hard guarantee.
func requireEnglish(content []byte) error {
	sample := string(content)
	if len(sample) > 4000 {
		sample = sample[:4000]
	}
	detected := whatlanggo.DetectLang(sample)
	if detected.Iso6391() != "en" && detected.Iso6391() != "" {
		return apperr.New(apperr.BadInput, "ad-hoc translation requires English source content")
	}
	return nil
}
