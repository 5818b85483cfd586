// Package service is the query orchestrator: it binds filter extraction,
// mode classification, the retrieval kernel, prompt assembly, and the model
// adapters behind the engine's public operations.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"finrag/internal/answer"
	"finrag/internal/apperr"
	"finrag/internal/domain"
	"finrag/internal/format"
	"finrag/internal/history"
	"finrag/internal/kernel"
	"finrag/internal/nlp"
	"finrag/internal/prompt"
	"finrag/internal/store"
	"finrag/internal/vectorstore/memory"
)

// Config bounds the orchestrator.
type Config struct {
	Kernel          kernel.Config
	CorpusMaxDocs   int
	DefaultPageSize int
	MaxPageSize     int
	ContextBudget   int
	CacheTTL        time.Duration
}

// DefaultConfig returns the stock limits.
func DefaultConfig() Config {
	return Config{
		Kernel:          kernel.DefaultConfig(),
		CorpusMaxDocs:   500000,
		DefaultPageSize: 20,
		MaxPageSize:     100,
		CacheTTL:        30 * time.Minute,
	}
}

// Service is the user-facing entry point of the RAG engine.
type Service struct {
	stores *store.Manager
	emb    domain.Embedder
	llm    domain.LLM
	hist   history.Store
	asm    *prompt.Assembler
	log    zerolog.Logger
	cfg    Config
	cache  *queryCache
	now    func() time.Time
}

// New wires the orchestrator.
func New(stores *store.Manager, emb domain.Embedder, llmClient domain.LLM, hist history.Store, log zerolog.Logger, cfg Config) *Service {
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 20
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 100
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Minute
	}
	return &Service{
		stores: stores,
		emb:    emb,
		llm:    llmClient,
		hist:   hist,
		asm:    prompt.NewAssembler(cfg.ContextBudget),
		log:    log.With().Str("component", "service").Logger(),
		cfg:    cfg,
		cache:  newQueryCache(cfg.CacheTTL, nil),
		now:    time.Now,
	}
}

// QueryRequest carries one /query or /prompt invocation.
type QueryRequest struct {
	UserID      string
	Prompt      string
	ContextData []domain.Transaction
	Page        int
	PageSize    int
	ShowAll     *bool
	UseFullData *bool
	QueryID     string
}

// Ingest replaces the user's corpus. Embedding failures fail the whole
// ingest; the previous store stays untouched.
func (s *Service) Ingest(ctx context.Context, userID string, txns []domain.Transaction) (int, error) {
	if len(txns) > s.cfg.CorpusMaxDocs {
		return 0, apperr.Newf(apperr.CorpusTooLarge,
			"corpus of %d documents exceeds the limit of %d", len(txns), s.cfg.CorpusMaxDocs)
	}

	unlock := s.stores.IngestLock(userID)
	defer unlock()

	docs, index, err := s.buildIndex(ctx, txns)
	if err != nil {
		return 0, err
	}
	s.stores.Replace(userID, docs, index)
	s.log.Info().Str("user_id", userID).Int("documents", len(docs)).Msg("corpus replaced")
	return len(docs), nil
}

func (s *Service) buildIndex(ctx context.Context, txns []domain.Transaction) ([]domain.Document, *memory.Index, error) {
	docs := format.Documents(txns)
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	vectors, err := s.emb.EmbedDocuments(ctx, texts)
	if err != nil {
		if apperr.KindOf(err) == apperr.Internal {
			err = apperr.Wrap(apperr.UpstreamUnavailable, err, "embedding corpus failed")
		}
		return nil, nil, err
	}
	dim := s.emb.Dimension()
	if dim == 0 && len(vectors) > 0 {
		dim = len(vectors[0])
	}
	if dim == 0 {
		dim = 384
	}
	index, err := memory.NewIndex(dim)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.Internal, err, "create index")
	}
	if err := index.Add(docs, vectors); err != nil {
		return nil, nil, apperr.Wrap(apperr.Internal, err, "index corpus")
	}
	return docs, index, nil
}

// StoreStatus reports ingestion state for a user.
func (s *Service) StoreStatus(userID string) store.Status {
	return s.stores.StoreStatus(userID)
}

// History lists a user's recent interactions.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]history.Entry, error) {
	return s.hist.List(ctx, userID, limit)
}

// ClearHistory drops a user's interaction log.
func (s *Service) ClearHistory(ctx context.Context, userID string) (int64, error) {
	return s.hist.Clear(ctx, userID)
}

// TestConnection probes the LLM gateway and the embedding provider.
func (s *Service) TestConnection(ctx context.Context) (llmOK, embOK bool) {
	if _, err := s.emb.EmbedQuery(ctx, "ping"); err == nil {
		embOK = true
	}
	if pinger, ok := s.llm.(interface{ Ping(context.Context) error }); ok {
		llmOK = pinger.Ping(ctx) == nil
	} else if _, err := s.llm.Complete(ctx, []domain.Message{{Role: "user", Content: "ping"}}); err == nil {
		llmOK = true
	}
	return llmOK, embOK
}

// prepared is the synchronous front half of a query, shared by the unary
// and streaming paths.
type prepared struct {
	st       *store.UserStore
	filters  domain.FilterSpec
	lang     domain.Language
	mode     domain.QueryMode
	queryID  string
	cacheKey string
	showAll  bool
}

func (s *Service) prepare(ctx context.Context, req QueryRequest) (*prepared, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, apperr.New(apperr.EmptyPrompt, "prompt is missing or empty")
	}

	var st *store.UserStore
	if len(req.ContextData) > 0 {
		// Inline context is ingested ephemerally for this call only.
		docs, index, err := s.buildIndex(ctx, req.ContextData)
		if err != nil {
			return nil, err
		}
		now := s.now()
		st = &store.UserStore{Index: index, Documents: docs, CreatedAt: now, UpdatedAt: now}
	} else {
		var ok bool
		st, ok = s.stores.Snapshot(req.UserID)
		if !ok {
			return nil, apperr.New(apperr.NotIngested,
				"no context data ingested for this user; call /ingest first")
		}
	}

	filters := nlp.ExtractFilters(req.Prompt, s.now())
	lang := nlp.DetectLanguage(req.Prompt)
	mode := nlp.ClassifyMode(req.Prompt, filters)
	if req.UseFullData != nil {
		if *req.UseFullData {
			mode = domain.ModeSmartFull
		} else {
			mode = domain.ModeVectorSearch
		}
	}

	queryID := req.QueryID
	if queryID == "" {
		seed := req.UserID + "\x00" + req.Prompt + "\x00" + strings.Join(filters.Describe(), "|")
		queryID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String()
	}

	showAll := true
	if req.ShowAll != nil {
		showAll = *req.ShowAll
	}

	return &prepared{
		st:       st,
		filters:  filters,
		lang:     lang,
		mode:     mode,
		queryID:  queryID,
		cacheKey: fmt.Sprintf("%s|%d|%s", req.UserID, st.UpdatedAt.UnixNano(), queryID),
		showAll:  showAll,
	}, nil
}

// Query runs the unary pipeline and returns the full response.
func (s *Service) Query(ctx context.Context, req QueryRequest) (*domain.RagResponse, error) {
	p, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	log := s.log.With().Str("user_id", req.UserID).Str("query_id", p.queryID).Logger()

	// Pagination over an already-answered query reuses the cached result;
	// the model is invoked once per query, not once per page.
	if req.Page > 1 {
		if hit, ok := s.cache.get(p.cacheKey); ok {
			log.Debug().Int("page", req.Page).Msg("serving page from cache")
			return s.respond(req, p, hit), nil
		}
	}

	res, err := kernel.Run(ctx, p.mode, p.st, s.emb, req.Prompt, p.filters, s.cfg.Kernel)
	if err != nil {
		return nil, err
	}
	log.Info().Str("mode", string(p.mode)).Int("matching", res.MatchingCount).Msg("kernel done")

	var answerText string
	if p.mode == domain.ModeStatistical {
		answerText = answer.Statistical(res.Statistics, p.filters.Describe(), p.lang)
	} else {
		msgs := s.asm.Build(p.lang, req.Prompt, p.filters, res.Statistics, res.ContextDocs, p.mode)
		answerText, err = s.llm.Complete(ctx, msgs)
		if err != nil {
			return nil, err
		}
	}

	entry := cachedQuery{
		Mode:          p.mode,
		Answer:        answerText,
		Display:       res.Display,
		Filters:       p.filters.Describe(),
		Statistics:    res.Statistics,
		MatchingCount: res.MatchingCount,
	}
	s.cache.put(p.cacheKey, entry)
	s.appendHistory(req.UserID, p.queryID, req.Prompt, answerText, p.mode, res.MatchingCount)

	return s.respond(req, p, entry), nil
}

func (s *Service) respond(req QueryRequest, p *prepared, q cachedQuery) *domain.RagResponse {
	resp := &domain.RagResponse{
		QueryID:       p.queryID,
		Mode:          q.Mode,
		Answer:        q.Answer,
		MatchingCount: q.MatchingCount,
		Filters:       q.Filters,
		Statistics:    q.Statistics,
	}
	if p.showAll {
		page, pg := paginate(q.Display, req.Page, s.pageSize(req))
		resp.Transactions = page
		resp.Pagination = &pg
	}
	return resp
}

func (s *Service) pageSize(req QueryRequest) int {
	size := req.PageSize
	if size <= 0 {
		size = s.cfg.DefaultPageSize
	}
	if size > s.cfg.MaxPageSize {
		size = s.cfg.MaxPageSize
	}
	return size
}

func paginate(txns []domain.Transaction, page, size int) ([]domain.Transaction, domain.Pagination) {
	if page < 1 {
		page = 1
	}
	total := len(txns)
	totalPages := (total + size - 1) / size
	start := (page - 1) * size
	end := start + size
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	return txns[start:end], domain.Pagination{
		Page:       page,
		PageSize:   size,
		TotalItems: total,
		TotalPages: totalPages,
		HasNext:    end < total,
		HasPrev:    page > 1 && total > 0,
	}
}

// appendHistory records the interaction best-effort; failures are logged
// and swallowed, never failing the query.
func (s *Service) appendHistory(userID, queryID, prompt, answerText string, mode domain.QueryMode, matching int) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := s.hist.Append(ctx, history.Entry{
		UserID:        userID,
		QueryID:       queryID,
		Prompt:        prompt,
		Answer:        answerText,
		Mode:          string(mode),
		MatchingCount: matching,
		CreatedAt:     s.now().UTC(),
	})
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("chat history write failed")
	}
}
