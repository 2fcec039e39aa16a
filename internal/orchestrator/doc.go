// Package orchestrator turns a validated request into per-category runs:
// each category resolves its plan, prepares every dataset in order and
// optionally exports supervisions. The dispatcher runs single-mic before
// multi-mic and always runs both.
package orchestrator
