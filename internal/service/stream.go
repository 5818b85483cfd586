package service

import (
	"context"

	"finrag/internal/answer"
	"finrag/internal/apperr"
	"finrag/internal/domain"
	"finrag/internal/kernel"
)

// StreamSink receives the ordered events of a streaming query. The HTTP
// layer implements it over SSE frames.
type StreamSink interface {
	Metadata(mode domain.QueryMode, matching int, filters []string) error
	Chunk(text string) error
	Final(stats *domain.Statistics, pg *domain.Pagination) error
	Done() error
	Error(kind apperr.Kind, msg string) error
}

// QueryStream runs the streaming pipeline. Classification and retrieval are
// synchronous; a metadata event precedes the first model chunk, and a final
// metadata event carries statistics and pagination. Any failure emits a
// single error event and ends the stream.
func (s *Service) QueryStream(ctx context.Context, req QueryRequest, sink StreamSink) {
	fail := func(err error) {
		_ = sink.Error(apperr.KindOf(err), apperr.Message(err))
	}

	p, err := s.prepare(ctx, req)
	if err != nil {
		fail(err)
		return
	}

	res, err := kernel.Run(ctx, p.mode, p.st, s.emb, req.Prompt, p.filters, s.cfg.Kernel)
	if err != nil {
		fail(err)
		return
	}
	if err := sink.Metadata(p.mode, res.MatchingCount, p.filters.Describe()); err != nil {
		return
	}

	var answerText string
	if p.mode == domain.ModeStatistical {
		answerText = answer.Statistical(res.Statistics, p.filters.Describe(), p.lang)
		if err := sink.Chunk(answerText); err != nil {
			return
		}
	} else {
		msgs := s.asm.Build(p.lang, req.Prompt, p.filters, res.Statistics, res.ContextDocs, p.mode)
		chunks, err := s.llm.Stream(ctx, msgs)
		if err != nil {
			fail(err)
			return
		}
		for chunk := range chunks {
			if chunk.Err != nil {
				fail(chunk.Err)
				return
			}
			answerText += chunk.Text
			if err := sink.Chunk(chunk.Text); err != nil {
				// Client went away; drain so the producer can exit.
				for range chunks {
				}
				return
			}
		}
	}

	s.cache.put(p.cacheKey, cachedQuery{
		Mode:          p.mode,
		Answer:        answerText,
		Display:       res.Display,
		Filters:       p.filters.Describe(),
		Statistics:    res.Statistics,
		MatchingCount: res.MatchingCount,
	})
	s.appendHistory(req.UserID, p.queryID, req.Prompt, answerText, p.mode, res.MatchingCount)

	var pg *domain.Pagination
	if p.showAll {
		_, page := paginate(res.Display, req.Page, s.pageSize(req))
		pg = &page
	}
	if err := sink.Final(res.Statistics, pg); err != nil {
		return
	}
	_ = sink.Done()
}
