package crawler

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/remeh/sizedwaitgroup"
	"github.com/rs/zerolog/log"
	"gitlab.com/scanhound/hound"
	"go.uber.org/atomic"
)

// DefaultWorkers when New is given a non positive worker count
const DefaultWorkers = 8

var progressInterval = 3 * time.Second

// Spider crawls a site from a seed url, following in scope anchors and
// redirects, and collects the results of the response checker
type Spider struct {
	hctx         *hound.Context
	insecureVuln *hound.Vulnerability
	workers      int

	lock      sync.Mutex
	links     []string
	linkSet   map[string]struct{}
	insecure  map[string]struct{}
	scheduled map[string]struct{}
	results   []*hound.Result
	capped    bool

	queueLock sync.Mutex
	queue     []string
	notify    chan struct{}
	done      chan struct{}
	doneOnce  sync.Once

	pending     *atomic.Int64
	fetched     *atomic.Int64
	fetchErrors *atomic.Int64
}

// New spider using the fetcher, checker, reporter and link recorder of hctx
func New(hctx *hound.Context, workers int) *Spider {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	builtin := hound.DefaultCatalog().Get(hound.VulnInsecureLink)
	insecureVuln := builtin
	if hctx.Reporter != nil && hctx.Reporter.Catalog() != nil {
		// insert-or-get, a catalog without the built-ins gets the entry added
		if v, _ := hctx.Reporter.Catalog().Register(builtin); v != nil {
			insecureVuln = v
		}
	}
	return &Spider{
		hctx:         hctx,
		insecureVuln: insecureVuln,
		workers:      workers,
		pending:      atomic.NewInt64(0),
		fetched:      atomic.NewInt64(0),
		fetchErrors:  atomic.NewInt64(0),
	}
}

// Fetched pages in the last crawl
func (s *Spider) Fetched() int64 {
	return s.fetched.Load()
}

// FetchErrors in the last crawl
func (s *Spider) FetchErrors() int64 {
	return s.fetchErrors.Load()
}

func (s *Spider) reset() {
	s.lock.Lock()
	s.links = make([]string, 0)
	s.linkSet = make(map[string]struct{})
	s.insecure = make(map[string]struct{})
	s.scheduled = make(map[string]struct{})
	s.results = make([]*hound.Result, 0)
	s.capped = false
	s.lock.Unlock()

	s.queueLock.Lock()
	s.queue = make([]string, 0)
	s.queueLock.Unlock()

	s.notify = make(chan struct{}, 1)
	s.done = make(chan struct{})
	s.doneOnce = sync.Once{}
	s.pending.Store(0)
	s.fetched.Store(0)
	s.fetchErrors.Store(0)
}

// Spider the session's seed url. Returns the discovered links (the seed
// itself is not included) and the deduplicated results. If ctx is cancelled
// the partial links and results are returned along with ctx.Err().
func (s *Spider) Spider(ctx context.Context, session *hound.Session) ([]string, []*hound.Result, error) {
	s.reset()

	seeds := s.sitemapSeeds(ctx, session.URL, session.InScope)
	if len(seeds) == 0 {
		seeds = []string{session.URL}
	}
	for _, seed := range seeds {
		s.lock.Lock()
		isNew := s.markScheduled(seed)
		s.lock.Unlock()
		if isNew {
			s.enqueue(seed)
		}
	}

	s.dispatch(ctx, session)

	s.lock.Lock()
	defer s.lock.Unlock()
	links := append([]string(nil), s.links...)
	results := hound.AppendUnique(nil, s.results...)
	log.Info().Int("links", len(links)).Int("results", len(results)).
		Int64("fetched", s.fetched.Load()).Int64("errors", s.fetchErrors.Load()).Msg("Spider: completed")
	return links, results, ctx.Err()
}

// dispatch runs queued urls until there is no pending work or ctx is done
func (s *Spider) dispatch(ctx context.Context, session *hound.Session) {
	swg := sizedwaitgroup.New(s.workers)
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()
	defer swg.Wait()

	for {
		if pageURL, ok := s.dequeue(); ok {
			if ctx.Err() != nil {
				return
			}
			swg.Add()
			go func(pageURL string) {
				defer swg.Done()
				defer s.taskDone()
				defer s.recoverTask(pageURL)
				s.process(ctx, session, pageURL)
			}(pageURL)
			continue
		}

		select {
		case <-ctx.Done():
			log.Debug().Err(ctx.Err()).Msg("Spider: cancelled")
			return
		case <-s.done:
			return
		case <-s.notify:
		case <-ticker.C:
			s.queueLock.Lock()
			queued := len(s.queue)
			s.queueLock.Unlock()
			log.Debug().Int64("pending", s.pending.Load()).Int("queued", queued).
				Int64("fetched", s.fetched.Load()).Msg("Spider: task status")
		}
	}
}

func (s *Spider) enqueue(pageURL string) {
	s.pending.Inc()
	s.queueLock.Lock()
	s.queue = append(s.queue, pageURL)
	s.queueLock.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Spider) dequeue() (string, bool) {
	s.queueLock.Lock()
	defer s.queueLock.Unlock()
	if len(s.queue) == 0 {
		return "", false
	}
	pageURL := s.queue[0]
	s.queue = s.queue[1:]
	return pageURL, true
}

// recoverTask keeps a panicking page from taking down the crawl
func (s *Spider) recoverTask(pageURL string) {
	if r := recover(); r != nil {
		s.fetchErrors.Inc()
		log.Debug().Str("url", pageURL).Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Spider: task panicked, skipping page")
	}
}

func (s *Spider) taskDone() {
	if s.pending.Dec() == 0 {
		s.doneOnce.Do(func() { close(s.done) })
	}
}

// process fetches a single page, child tasks are enqueued before this task
// is marked done so pending only reaches zero once the crawl is finished
func (s *Spider) process(ctx context.Context, session *hound.Session, pageURL string) {
	resp, err := s.hctx.Fetcher.Get(ctx, pageURL)
	if err != nil {
		s.fetchErrors.Inc()
		log.Debug().Err(err).Str("url", pageURL).Msg("Spider: failed to fetch page")
		return
	}
	s.fetched.Inc()

	var doc *goquery.Document
	if resp.IsText() {
		doc, err = goquery.NewDocumentFromReader(bodyReader(resp))
		if err != nil {
			log.Debug().Err(err).Str("url", pageURL).Msg("Spider: failed to parse page")
			doc = nil
		}
	}

	results := make([]*hound.Result, 0)
	if s.hctx.Checker != nil {
		results = append(results, s.hctx.Checker.CheckResponse(s.hctx, resp, doc)...)
	}

	if doc != nil {
		if s.hctx.Reporter != nil {
			if points := FindInjectionPoints(pageURL, resp, doc); len(points) > 0 {
				s.hctx.Reporter.RegisterInjectionPoints(points)
			}
		}

		doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			if r := s.handleLink(session, pageURL, resp, href, a.Text()); r != nil {
				results = append(results, r)
			}
		})
	}

	if redirect := resp.Location(); redirect != "" {
		s.handleRedirect(session, pageURL, redirect)
	}

	s.lock.Lock()
	s.results = append(s.results, results...)
	s.lock.Unlock()
	log.Debug().Str("url", pageURL).Int("results", len(results)).Msg("Spider: task completed")
}

func (s *Spider) handleLink(session *hound.Session, pageURL string, resp *hound.Response, href, text string) *hound.Result {
	href = strings.TrimSpace(href)
	if href == "" {
		return nil
	}
	link := FixRelativeLink(href, pageURL)
	s.recordEdge(pageURL, link, false)

	if session.InScope(link) {
		s.lock.Lock()
		isNew := s.discover(link)
		s.lock.Unlock()
		if !isNew {
			return nil
		}

		ext := fileExtension(link)
		if ext == "php" && session.SetPHPPage(link) {
			log.Debug().Str("url", link).Msg("Spider: Found PHP page, setting as php_page")
		}
		if isBlacklisted(ext) {
			log.Debug().Str("url", link).Str("ext", ext).Msg("Spider: Skipping URL due to file extension")
			return nil
		}
		if isUnsafeLink(link, text) {
			log.Debug().Str("url", link).Str("text", text).Msg("Spider: Skipping unsafe URL")
			return nil
		}
		s.schedule(session, link)
		return nil
	}

	if !strings.HasPrefix(session.URL, "https://") || !strings.HasPrefix(link, "http://") {
		return nil
	}

	s.lock.Lock()
	_, reported := s.insecure[link]
	s.insecure[link] = struct{}{}
	s.lock.Unlock()
	if reported {
		return nil
	}

	ev := hound.EvidenceFromResponse(resp, map[string]interface{}{"link": link})
	return hound.ResultFromEvidence(ev, fmt.Sprintf("Insecure Link: %s links to %s", pageURL, link), s.insecureVuln)
}

func (s *Spider) handleRedirect(session *hound.Session, pageURL, redirect string) {
	s.recordEdge(pageURL, redirect, true)
	if !session.InScope(redirect) {
		log.Debug().Str("url", pageURL).Str("location", redirect).Msg("Spider: redirect out of scope")
		return
	}
	s.lock.Lock()
	s.discover(redirect)
	s.lock.Unlock()
	s.schedule(session, redirect)
}

func (s *Spider) recordEdge(from, to string, redirect bool) {
	if s.hctx.Links == nil {
		return
	}
	var err error
	if redirect {
		err = s.hctx.Links.AddRedirect(from, to)
	} else {
		err = s.hctx.Links.AddLink(from, to)
	}
	if err != nil {
		log.Debug().Err(err).Str("from", from).Str("to", to).Msg("Spider: failed to record link")
	}
}

// schedule link unless it was already scheduled or the page cap is exceeded
func (s *Spider) schedule(session *hound.Session, link string) {
	s.lock.Lock()
	if int64(len(s.links)) > session.MaxSpiderPages() {
		if !s.capped {
			log.Debug().Int64("max", session.MaxSpiderPages()).Msg("Spider: Link list exceeds max pages. Stopped gathering more links.")
		}
		s.capped = true
		s.lock.Unlock()
		return
	}
	isNew := s.markScheduled(link)
	s.lock.Unlock()

	if isNew {
		s.enqueue(link)
	}
}

// discover records link, must hold lock
func (s *Spider) discover(link string) bool {
	if _, ok := s.linkSet[link]; ok {
		return false
	}
	s.linkSet[link] = struct{}{}
	s.links = append(s.links, link)
	return true
}

// markScheduled must hold lock
func (s *Spider) markScheduled(link string) bool {
	if _, ok := s.scheduled[link]; ok {
		return false
	}
	s.scheduled[link] = struct{}{}
	return true
}
