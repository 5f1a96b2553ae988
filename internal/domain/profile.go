package domain

import (
	"context"
	"time"
)

// Span is one timed step of an attribution run
type Span struct {
	Name      string `json:"name"`
	ElapsedMs *int64 `json:"elapsedMs"`
	startTs   time.Time
}

func (s *Span) End() {
	if s.ElapsedMs == nil {
		t := time.Since(s.startTs).Milliseconds()
		s.ElapsedMs = &t
	}
}

// Profile is an ordered list of spans. Not safe for concurrent use.
type Profile struct {
	Spans   []*Span `json:"spans"`
	TotalMs *int64  `json:"totalMs"`
	startTs time.Time
}

func NewProfile() *Profile {
	return &Profile{
		Spans:   []*Span{},
		startTs: time.Now(),
	}
}

// StartSpan ends the previous span and begins a new one
func (p *Profile) StartSpan(name string) *Span {
	if len(p.Spans) > 0 {
		p.Spans[len(p.Spans)-1].End()
	}
	s := &Span{Name: name, startTs: time.Now()}
	p.Spans = append(p.Spans, s)
	return s
}

func (p *Profile) End() {
	if len(p.Spans) > 0 {
		p.Spans[len(p.Spans)-1].End()
	}
	if p.TotalMs == nil {
		t := time.Since(p.startTs).Milliseconds()
		p.TotalMs = &t
	}
}

// Timings flattens the spans into name -> elapsed ms, for logging
func (p *Profile) Timings() map[string]int64 {
	out := map[string]int64{}
	for _, s := range p.Spans {
		if s.ElapsedMs != nil {
			out[s.Name] = *s.ElapsedMs
		}
	}
	return out
}

type profileKey struct{}

func WithProfile(ctx context.Context, p *Profile) context.Context {
	return context.WithValue(ctx, profileKey{}, p)
}

// ProfileFromContext returns the caller's profile, or a fresh one when ctx
// carries none
func ProfileFromContext(ctx context.Context) *Profile {
	if p, ok := ctx.Value(profileKey{}).(*Profile); ok && p != nil {
		return p
	}
	return NewProfile()
}
