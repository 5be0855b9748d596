// Package translate fans applied English descriptions out to the other
// configured languages. Translations go straight to their production fields;
// they carry no new facts, so they skip staging and verification.
package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
	"golang.org/x/time/rate"

	"github.com/FrankSpooren/HolidaiButler/internal/config"
	"github.com/FrankSpooren/HolidaiButler/internal/model"
	"github.com/FrankSpooren/HolidaiButler/internal/pipeline"
	"github.com/FrankSpooren/HolidaiButler/internal/store"
)

const translationSystem = `You are a professional translator for tourism content.
Translate the description exactly: no additions, no omissions, no embellishment.
Keep proper nouns, place names, and business names unchanged.
Match the tone of the original. Output only the translated text.`

// Translator fans applied descriptions out to the configured languages.
type Translator struct {
	cfg    config.TranslateConfig
	store  store.Store
	client pipeline.TextClient
}

// New creates a Translator.
func New(cfg config.TranslateConfig, st store.Store, client pipeline.TextClient) *Translator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.CallsPerSecond <= 0 {
		cfg.CallsPerSecond = 2.0
	}
	if cfg.CheckpointEvery <= 0 {
		cfg.CheckpointEvery = 25
	}
	return &Translator{cfg: cfg, store: st, client: client}
}

// Outcome summarizes one translation pass.
type Outcome struct {
	Translated int      `json:"translated"`
	Skipped    int      `json:"skipped"`
	Errors     []string `json:"errors,omitempty"`
}

// checkpoint tracks completed poi/language pairs so an interrupted pass can
// resume without re-translating.
type checkpoint struct {
	RunID string   `json:"run_id"`
	Done  []string `json:"done"`
}

func checkpointKey(runID string) string {
	return "translate:" + runID
}

func pairKey(poiID, lang string) string {
	return poiID + "/" + lang
}

// Run translates every applied description of the run into the configured
// languages. Workers run concurrently behind a shared rate limiter.
func (t *Translator) Run(ctx context.Context, runID string, resume bool) (*Outcome, error) {
	if runID == "" {
		return nil, eris.New("translate: run id required")
	}

	langs, err := t.targetLanguages()
	if err != nil {
		return nil, err
	}

	rows, err := t.store.ListStaging(ctx, store.StagingFilter{
		RunID:    runID,
		Statuses: []model.StagingStatus{model.StatusApplied},
	})
	if err != nil {
		return nil, eris.Wrap(err, "translate: list applied rows")
	}

	done := make(map[string]bool)
	if resume {
		if done, err = t.loadCheckpoint(ctx, runID); err != nil {
			return nil, err
		}
	}

	log := zap.L().With(zap.String("run_id", runID))
	log.Info("translation pass starting",
		zap.Int("pois", len(rows)),
		zap.Int("languages", len(langs)),
		zap.Int("already_done", len(done)),
	)

	limiter := rate.NewLimiter(rate.Limit(t.cfg.CallsPerSecond), 1)
	out := &Outcome{}

	// Snapshot the pending pairs before any worker starts; workers mutate
	// done, so the spawning loop must not read it once they are running.
	type pair struct {
		poiID string
		lang  targetLang
	}
	var pending []pair
	for i := range rows {
		row := &rows[i]
		for _, lang := range langs {
			if done[pairKey(row.POIID, lang.code)] {
				out.Skipped++
				continue
			}
			pending = append(pending, pair{poiID: row.POIID, lang: lang})
		}
	}

	var mu sync.Mutex
	sinceCheckpoint := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.cfg.Concurrency)

	for _, pr := range pending {
		pr := pr
		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				return eris.Wrap(err, "translate: rate limiter")
			}
			err := t.translateOne(gctx, pr.poiID, pr.lang)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				out.Errors = append(out.Errors, pairKey(pr.poiID, pr.lang.code)+": "+err.Error())
				return nil // one bad translation does not stop the pass
			}
			out.Translated++
			done[pairKey(pr.poiID, pr.lang.code)] = true
			sinceCheckpoint++
			if sinceCheckpoint >= t.cfg.CheckpointEvery {
				sinceCheckpoint = 0
				if err := t.saveCheckpoint(gctx, runID, done); err != nil {
					return err
				}
				log.Info("checkpoint written", zap.Int("done", len(done)))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		_ = t.saveCheckpoint(ctx, runID, done)
		return out, err
	}
	if err := t.saveCheckpoint(ctx, runID, done); err != nil {
		return out, err
	}

	log.Info("translation pass complete",
		zap.Int("translated", out.Translated),
		zap.Int("skipped", out.Skipped),
		zap.Int("errors", len(out.Errors)),
	)
	return out, nil
}

type targetLang struct {
	code string
	name string
}

// targetLanguages validates the configured language codes. English is the
// canonical field and is never a translation target.
func (t *Translator) targetLanguages() ([]targetLang, error) {
	var langs []targetLang
	for _, code := range t.cfg.Languages {
		if code == "en" || code == "" {
			continue
		}
		tag, err := language.Parse(code)
		if err != nil {
			return nil, eris.Wrapf(err, "translate: invalid language code %q", code)
		}
		langs = append(langs, targetLang{
			code: code,
			name: display.English.Languages().Name(tag),
		})
	}
	if len(langs) == 0 {
		return nil, eris.New("translate: no target languages configured")
	}
	return langs, nil
}

func (t *Translator) translateOne(ctx context.Context, poiID string, lang targetLang) error {
	src, err := t.store.GetProduction(ctx, poiID, model.FieldDescription)
	if err != nil {
		return eris.Wrap(err, "translate: read source")
	}
	if src == nil || src.Content == "" {
		return eris.Errorf("translate: no production description for %s", poiID)
	}

	user := fmt.Sprintf("Translate the following description into %s:\n\n%s", lang.name, src.Content)
	translated, err := t.client.Complete(ctx, pipeline.TextRequest{
		System:      translationSystem,
		User:        user,
		Temperature: 0.2,
		MaxTokens:   800,
		CacheSystem: true,
	})
	if err != nil {
		return eris.Wrapf(err, "translate: %s to %s", poiID, lang.code)
	}

	return t.store.UpsertProduction(ctx, &model.ProductionContent{
		POIID:     poiID,
		FieldName: model.TranslatedField(lang.code),
		Content:   cleanTranslation(translated),
		UpdatedAt: time.Now().UTC(),
	})
}

var markdownLink = regexp.MustCompile(`\[([^\]]+)\]\(https?://[^\)]+\)`)

// cleanTranslation strips the markup models sneak into translations despite
// the plain-text instruction: wrapping quotes, bold/italic markers, and
// markdown links, which become their anchor text.
func cleanTranslation(text string) string {
	text = strings.Trim(text, ` "'`)
	text = markdownLink.ReplaceAllString(text, "$1")
	text = strings.ReplaceAll(text, "**", "")
	text = strings.ReplaceAll(text, "*", "")
	return strings.TrimSpace(text)
}

func (t *Translator) loadCheckpoint(ctx context.Context, runID string) (map[string]bool, error) {
	done := make(map[string]bool)
	data, err := t.store.LoadCheckpoint(ctx, checkpointKey(runID))
	if err != nil {
		return nil, eris.Wrap(err, "translate: load checkpoint")
	}
	if data == nil {
		return done, nil
	}
	var cp checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, eris.Wrap(err, "translate: parse checkpoint")
	}
	for _, key := range cp.Done {
		done[key] = true
	}
	return done, nil
}

func (t *Translator) saveCheckpoint(ctx context.Context, runID string, done map[string]bool) error {
	cp := checkpoint{RunID: runID, Done: make([]string, 0, len(done))}
	for key := range done {
		cp.Done = append(cp.Done, key)
	}
	sort.Strings(cp.Done)
	data, err := json.Marshal(cp)
	if err != nil {
		return eris.Wrap(err, "translate: marshal checkpoint")
	}
	return eris.Wrap(t.store.SaveCheckpoint(ctx, checkpointKey(runID), data),
		"translate: save checkpoint")
}
