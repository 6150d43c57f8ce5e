// Package service holds the business rules that span several tables: invoice
// totals and status, payments, basket returns and equipment servicing. Each
// multi-row operation runs in one transaction supplied by a TxRunner.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/model"
)

// TxRunner runs fn inside a database transaction, committing on nil.
type TxRunner interface {
	InTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// Publisher delivers domain events after a commit. Failures never affect
// the operation that produced the event.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}

// SettingsSource is the read-through settings fetch used for every
// recalculation.
type SettingsSource interface {
	GetTx(ctx context.Context, tx *sql.Tx) (model.Settings, error)
}

// RuleKind classifies a RuleError for transport mapping.
type RuleKind int

const (
	// KindConflict rejects an operation because of the current state.
	KindConflict RuleKind = iota
	// KindInvalid rejects the input itself.
	KindInvalid
	// KindNotFound reports referenced rows that do not exist.
	KindNotFound
)

// RuleError is a business-rule rejection. Message is written for people and
// is returned to clients unchanged.
type RuleError struct {
	Kind    RuleKind
	Code    string
	Message string
	// IDs lists offending ids when the rule concerns specific rows.
	IDs []uint64
}

func (e *RuleError) Error() string { return e.Message }

func conflict(code, format string, args ...any) *RuleError {
	return &RuleError{Kind: KindConflict, Code: code, Message: fmt.Sprintf(format, args...)}
}

func invalid(code, format string, args ...any) *RuleError {
	return &RuleError{Kind: KindInvalid, Code: code, Message: fmt.Sprintf(format, args...)}
}

func missing(code string, ids []uint64, format string, args ...any) *RuleError {
	return &RuleError{Kind: KindNotFound, Code: code, Message: fmt.Sprintf(format, args...), IDs: ids}
}

// AsRuleError unwraps err into a RuleError.
func AsRuleError(err error) (*RuleError, bool) {
	var re *RuleError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// dedupe drops zero and repeated ids, keeping first-seen order.
func dedupe(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// publish sends an event detached from the request's cancellation. A failed
// publish is logged and otherwise ignored.
func publish(ctx context.Context, p Publisher, eventType string, payload any) {
	if p == nil {
		return
	}
	if err := p.Publish(context.WithoutCancel(ctx), eventType, payload); err != nil {
		slog.Warn("event not published", "type", eventType, "err", err)
	}
}

func joinIDs(ids []uint64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(id, 10)
	}
	return strings.Join(parts, ", ")
}
