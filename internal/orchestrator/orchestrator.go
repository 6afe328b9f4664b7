// Package orchestrator coordinates explain requests end to end: cache
// lookup, credential checks, in-flight deduplication, model calls, stream
// decoding, and staleness-guarded notification.
package orchestrator

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/lingualens/lingualens/internal/cache"
	"github.com/lingualens/lingualens/internal/explain"
	"github.com/lingualens/lingualens/internal/history"
	"github.com/lingualens/lingualens/internal/llm"
	"github.com/lingualens/lingualens/internal/stream"
	"github.com/lingualens/lingualens/pkg/log"
)

// maxDeepVariants caps how many profiles a deep request is personalized for.
const maxDeepVariants = 3

// Notifier receives the asynchronous results of explain requests. Calls are
// suppressed for requests that have been superseded.
type Notifier interface {
	QuickReady(payload explain.QuickPayload, cached bool)
	DeepProgress(requestID string, partial explain.DeepPayload)
	DeepReady(payload explain.DeepPayload, cached bool)
	RequestFailed(requestID string, mode explain.Mode, reason string)
}

// NopNotifier discards every notification.
type NopNotifier struct{}

func (NopNotifier) QuickReady(explain.QuickPayload, bool)      {}
func (NopNotifier) DeepProgress(string, explain.DeepPayload)   {}
func (NopNotifier) DeepReady(explain.DeepPayload, bool)        {}
func (NopNotifier) RequestFailed(string, explain.Mode, string) {}

type profileDirectory interface {
	List() []explain.Profile
	Get(id string) (explain.Profile, bool)
}

type sourceFinder interface {
	Collect(ctx context.Context, query string) []explain.SourceReference
}

type historyRecorder interface {
	Save(ctx context.Context, entry history.Entry) (history.Entry, error)
}

// Outcome is the synchronous result of one explain call. Asynchronous
// progress still flows through the Notifier.
type Outcome struct {
	OK     bool
	Cached bool
	Quick  *explain.QuickPayload
	Deep   *explain.DeepPayload
	Err    error
}

// Orchestrator routes quick and deep explain requests. One instance serves
// the whole process; it is safe for concurrent use.
type Orchestrator struct {
	cache    *cache.Store
	source   *llm.Source
	profiles profileDirectory
	finder   sourceFinder
	history  historyRecorder
	notifier Notifier

	flight singleflight.Group
	now    func() time.Time

	mu        sync.Mutex
	currentID string
}

type Option func(*Orchestrator)

func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) {
		o.notifier = n
	}
}

func WithHistory(h historyRecorder) Option {
	return func(o *Orchestrator) {
		o.history = h
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

func New(cacheStore *cache.Store, source *llm.Source, profiles profileDirectory, finder sourceFinder, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cache:    cacheStore,
		source:   source,
		profiles: profiles,
		finder:   finder,
		notifier: NopNotifier{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Supersede marks id as the only request whose notifications may still be
// delivered. Requests for earlier subtitles keep running to completion so
// their results land in the cache, but stay silent.
func (o *Orchestrator) Supersede(id string) {
	o.mu.Lock()
	o.currentID = id
	o.mu.Unlock()
}

func (o *Orchestrator) isCurrent(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.currentID == "" || o.currentID == id
}

// CallOption adjusts a single explain call.
type CallOption func(*callSettings)

type callSettings struct {
	notifier Notifier
}

// WithCallNotifier routes this call's notifications to n instead of the
// orchestrator-wide Notifier.
func WithCallNotifier(n Notifier) CallOption {
	return func(cs *callSettings) {
		cs.notifier = n
	}
}

// CallNotifier resolves the notifier a call with opts would use, falling
// back to def when no per-call notifier is set.
func CallNotifier(def Notifier, opts ...CallOption) Notifier {
	cs := callSettings{notifier: def}
	for _, opt := range opts {
		opt(&cs)
	}
	return cs.notifier
}

func (o *Orchestrator) callSettings(opts []CallOption) callSettings {
	return callSettings{notifier: CallNotifier(o.notifier, opts...)}
}

// ExplainQuick resolves a quick explanation: cache first, then one shared
// model call per cache key. Failures are reported once via the Notifier.
func (o *Orchestrator) ExplainQuick(ctx context.Context, req explain.Request, opts ...CallOption) Outcome {
	cs := o.callSettings(opts)
	req.Languages = explain.NormalizeLanguages(req.Languages, req.SubtitleText)
	key := cache.Key(req.SubtitleText, req.ProfileID)

	if cached, err := o.cache.ReadQuick(ctx, key); err != nil {
		log.Warn("Quick cache read failed for %s: %v", key, err)
	} else if cached != nil {
		payload := *cached
		payload.RequestID = req.RequestID
		o.notifyQuick(cs, req.RequestID, payload, true)
		return Outcome{OK: true, Cached: true, Quick: &payload}
	}

	client, err := o.source.Client()
	if err != nil {
		return o.failQuick(cs, req, err)
	}

	result, err, _ := o.flight.Do("quick::"+key, func() (any, error) {
		literal, contextGloss, err := client.QuickExplain(ctx, req)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(literal) == "" && strings.TrimSpace(contextGloss) == "" {
			return nil, explain.NewError(explain.FailEmptyResult, "model returned no usable text")
		}
		payload := explain.QuickPayload{
			RequestID:  req.RequestID,
			Literal:    literal,
			Context:    contextGloss,
			Languages:  req.Languages,
			DetectedAt: o.now().UnixMilli(),
		}
		if err := o.cache.WriteQuick(ctx, key, profileIDOrDefault(req.ProfileID), &payload); err != nil {
			log.Warn("Quick cache write failed for %s: %v", key, err)
		}
		return payload, nil
	})
	if err != nil {
		return o.failQuick(cs, req, err)
	}

	payload := result.(explain.QuickPayload)
	payload.RequestID = req.RequestID
	o.notifyQuick(cs, req.RequestID, payload, false)
	return Outcome{OK: true, Quick: &payload}
}

// ExplainDeep resolves a deep explanation: cache first, then an online
// source lookup and a streamed model call decoded incrementally. Progress
// snapshots reach the Notifier only while the request is still current.
func (o *Orchestrator) ExplainDeep(ctx context.Context, req explain.Request, opts ...CallOption) Outcome {
	cs := o.callSettings(opts)
	req.Languages = explain.NormalizeLanguages(req.Languages, req.SubtitleText)
	key := cache.Key(req.SubtitleText, req.ProfileID)

	if cached, err := o.cache.ReadDeep(ctx, key); err != nil {
		log.Warn("Deep cache read failed for %s: %v", key, err)
	} else if cached != nil {
		payload := *cached
		payload.RequestID = req.RequestID
		o.notifyDeep(cs, req.RequestID, payload, true)
		return Outcome{OK: true, Cached: true, Deep: &payload}
	}

	client, err := o.source.Client()
	if err != nil {
		return o.failDeep(cs, req, err)
	}

	variants := o.deepVariants(req)
	sources := o.finder.Collect(ctx, req.SubtitleText)

	result, err, _ := o.flight.Do("deep::"+key, func() (any, error) {
		body, err := client.DeepExplainStream(ctx, req, variants, sources)
		if err != nil {
			return nil, err
		}
		defer body.Close()
		return o.consumeStream(ctx, cs, req, key, body)
	})
	if err != nil {
		return o.failDeep(cs, req, err)
	}

	payload := result.(explain.DeepPayload)
	payload.RequestID = req.RequestID
	o.notifyDeep(cs, req.RequestID, payload, false)
	o.recordHistory(ctx, req, payload)
	return Outcome{OK: true, Deep: &payload}
}

// consumeStream feeds raw chunks into the decoder and relays progress
// snapshots until the completion record arrives.
func (o *Orchestrator) consumeStream(ctx context.Context, cs callSettings, req explain.Request, key string, body io.Reader) (explain.DeepPayload, error) {
	decoder := stream.NewDecoder()
	reader := bufio.NewReader(body)
	buf := make([]byte, 4096)

	handle := func(events []stream.Event) *explain.DeepPayload {
		for _, event := range events {
			switch event.Type {
			case stream.EventProgress:
				if event.Partial != nil && o.isCurrent(req.RequestID) {
					cs.notifier.DeepProgress(req.RequestID, *event.Partial)
				}
			case stream.EventComplete:
				if event.Final != nil {
					return event.Final
				}
			}
		}
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return explain.DeepPayload{}, explain.WrapError(explain.FailNetwork, "stream cancelled", err)
		}
		n, readErr := reader.Read(buf)
		if n > 0 {
			events, err := decoder.Feed(string(buf[:n]))
			if err != nil {
				return explain.DeepPayload{}, err
			}
			if final := handle(events); final != nil {
				return o.finishDeep(ctx, req, key, *final), nil
			}
		}
		if readErr != nil {
			if readErr != io.EOF {
				return explain.DeepPayload{}, explain.WrapError(explain.FailNetwork, "stream read failed", readErr)
			}
			events, err := decoder.Close()
			if err != nil {
				return explain.DeepPayload{}, err
			}
			if final := handle(events); final != nil {
				return o.finishDeep(ctx, req, key, *final), nil
			}
			return explain.DeepPayload{}, explain.NewError(explain.FailStreamIncomplete, "stream ended without completion")
		}
	}
}

func (o *Orchestrator) finishDeep(ctx context.Context, req explain.Request, key string, payload explain.DeepPayload) explain.DeepPayload {
	if payload.GeneratedAt == 0 {
		payload.GeneratedAt = o.now().UnixMilli()
	}
	if payload.ProfileID == "" {
		payload.ProfileID = req.ProfileID
	}
	if err := o.cache.WriteDeep(ctx, key, profileIDOrDefault(req.ProfileID), &payload); err != nil {
		log.Warn("Deep cache write failed for %s: %v", key, err)
	}
	return payload
}

// deepVariants picks the profiles personalizing a deep request: the request
// profile first, then saved profiles up to the cap.
func (o *Orchestrator) deepVariants(req explain.Request) []explain.Profile {
	variants := make([]explain.Profile, 0, maxDeepVariants)
	seen := make(map[string]struct{})
	add := func(p explain.Profile) {
		if len(variants) >= maxDeepVariants {
			return
		}
		if p.ID != "" {
			if _, ok := seen[p.ID]; ok {
				return
			}
			seen[p.ID] = struct{}{}
		}
		variants = append(variants, p)
	}

	if req.Profile != nil {
		add(*req.Profile)
	} else if req.ProfileID != "" && o.profiles != nil {
		if p, ok := o.profiles.Get(req.ProfileID); ok {
			add(p)
		}
	}
	for _, p := range req.Profiles {
		add(p)
	}
	if o.profiles != nil {
		for _, p := range o.profiles.List() {
			add(p)
		}
	}
	return variants
}

func (o *Orchestrator) recordHistory(ctx context.Context, req explain.Request, payload explain.DeepPayload) {
	if o.history == nil {
		return
	}
	entry := history.Entry{
		Query:         req.SubtitleText,
		ResultSummary: payload.Background.Summary,
		ProfileID:     req.ProfileID,
		DeepResponse:  &payload,
	}
	if req.Profile != nil {
		entry.ProfileName = req.Profile.Name
	} else if req.ProfileID != "" && o.profiles != nil {
		if p, ok := o.profiles.Get(req.ProfileID); ok {
			entry.ProfileName = p.Name
		}
	}
	if _, err := o.history.Save(ctx, entry); err != nil {
		log.Warn("History save failed: %v", err)
	}
}

func (o *Orchestrator) notifyQuick(cs callSettings, requestID string, payload explain.QuickPayload, cached bool) {
	if !o.isCurrent(requestID) {
		log.Debug("Suppressing quick result for superseded request %s", requestID)
		return
	}
	cs.notifier.QuickReady(payload, cached)
}

func (o *Orchestrator) notifyDeep(cs callSettings, requestID string, payload explain.DeepPayload, cached bool) {
	if !o.isCurrent(requestID) {
		log.Debug("Suppressing deep result for superseded request %s", requestID)
		return
	}
	cs.notifier.DeepReady(payload, cached)
}

func (o *Orchestrator) failQuick(cs callSettings, req explain.Request, err error) Outcome {
	return o.fail(cs, req, explain.ModeQuick, err)
}

func (o *Orchestrator) failDeep(cs callSettings, req explain.Request, err error) Outcome {
	return o.fail(cs, req, explain.ModeDeep, err)
}

// fail reports one failure notification per request, never a retry.
func (o *Orchestrator) fail(cs callSettings, req explain.Request, mode explain.Mode, err error) Outcome {
	reason := explain.Reason(err)
	log.Warn("Explain %s request %s failed: %v", mode, req.RequestID, err)
	if o.isCurrent(req.RequestID) {
		cs.notifier.RequestFailed(req.RequestID, mode, reason)
	}
	return Outcome{Err: err}
}

func profileIDOrDefault(id string) string {
	if id == "" {
		return cache.DefaultProfileID
	}
	return id
}
