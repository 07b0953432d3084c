// Copyright 2021 The httpipe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package tracing records an OpenTelemetry span for every plan
// execution. The span starts before the first hop and ends with the
// execution; each hop, hop timeout and redirect is recorded as a span
// event, and the span context is propagated to the server in every
// hop's request headers.
package tracing

import (
	"context"
	"strconv"

	"github.com/gogama/httpipe"
	"github.com/gogama/httpipe/request"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// ScopeName is the instrumentation scope of the tracer.
const ScopeName = "github.com/gogama/httpipe/tracing"

type spanKey struct{}

type spanValue struct {
	ctx  context.Context
	span trace.Span
}

type tracer struct {
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

// Install adds tracing handlers to g.
//
// If tp is nil, the global tracer provider is used. If prop is nil, the
// global text map propagator is used.
func Install(g *httpipe.HandlerGroup, tp trace.TracerProvider, prop propagation.TextMapPropagator) {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if prop == nil {
		prop = otel.GetTextMapPropagator()
	}
	t := &tracer{
		tracer:     tp.Tracer(ScopeName),
		propagator: prop,
	}
	g.PushBack(httpipe.BeforeExecutionStart, httpipe.HandlerFunc(t.start))
	g.PushBack(httpipe.BeforeHop, httpipe.HandlerFunc(t.hop))
	g.PushBack(httpipe.AfterHopTimeout, httpipe.HandlerFunc(t.timeout))
	g.PushBack(httpipe.BeforeRedirect, httpipe.HandlerFunc(t.redirect))
	g.PushBack(httpipe.AfterExecutionEnd, httpipe.HandlerFunc(t.end))
}

func valueOf(e *request.Execution) *spanValue {
	v, _ := e.Value(spanKey{}).(*spanValue)
	return v
}

func (t *tracer) start(_ httpipe.Event, e *request.Execution) {
	ctx, span := t.tracer.Start(e.Plan.Context(), "HTTP "+e.Plan.Method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", e.Plan.Method),
			attribute.String("url.full", e.URL.String()),
			attribute.String("httpipe.execution.id", e.ID),
			attribute.Int("httpipe.max_redirects", e.Plan.MaxRedirects),
		))
	e.SetValue(spanKey{}, &spanValue{ctx: ctx, span: span})
}

func (t *tracer) hop(_ httpipe.Event, e *request.Execution) {
	v := valueOf(e)
	if v == nil {
		return
	}
	v.span.AddEvent("hop", trace.WithAttributes(
		attribute.Int("httpipe.hop", e.Hops),
		attribute.String("http.request.method", e.Request.Method),
		attribute.String("url.full", e.URL.String()),
	))
	t.propagator.Inject(v.ctx, propagation.HeaderCarrier(e.Request.Header))
}

func (t *tracer) timeout(_ httpipe.Event, e *request.Execution) {
	if v := valueOf(e); v != nil {
		v.span.AddEvent("timeout", trace.WithAttributes(attribute.Int("httpipe.hop", e.Hops)))
	}
}

func (t *tracer) redirect(_ httpipe.Event, e *request.Execution) {
	v := valueOf(e)
	if v == nil || len(e.Chain) == 0 {
		return
	}
	last := e.Chain[len(e.Chain)-1]
	v.span.AddEvent("redirect", trace.WithAttributes(
		attribute.Int("httpipe.hop", e.Hops),
		attribute.Int("http.response.status_code", last.StatusCode),
		attribute.String("http.response.header.location", last.Location),
	))
}

func (t *tracer) end(_ httpipe.Event, e *request.Execution) {
	v := valueOf(e)
	if v == nil {
		return
	}
	v.span.SetAttributes(attribute.Int("httpipe.hops", e.Hops))
	if e.Err != nil {
		v.span.RecordError(e.Err)
		v.span.SetStatus(codes.Error, request.Kind(e.Err))
	} else {
		v.span.SetAttributes(
			attribute.Int("http.response.status_code", e.StatusCode()),
			attribute.String("url.full", e.URL.String()),
		)
		if e.StatusCode() >= 400 {
			v.span.SetStatus(codes.Error, strconv.Itoa(e.StatusCode()))
		}
	}
	v.span.End()
}
