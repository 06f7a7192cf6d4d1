// Package query builds CometBFT event subscription queries.
//
// Values are never interpolated raw: composite keys are checked against the
// tag grammar, string operands may not contain quotes, and the rendered query
// is compiled by the CometBFT parser before it is handed out.
package query

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	cmtquery "github.com/cometbft/cometbft/libs/pubsub/query"
	"github.com/holiman/uint256"
)

// Event values for the tm.event key.
const (
	EventTx       = "Tx"
	EventNewBlock = "NewBlock"
)

var (
	ErrInvalidKey   = errors.New("invalid query key")
	ErrInvalidValue = errors.New("invalid query value")
)

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_\-]+(\.[A-Za-z0-9_\-]+)*$`)

// Builder accumulates conditions joined by AND. The first failure is kept
// and reported by String.
type Builder struct {
	conditions []string
	err        error
}

// New starts a query matching the given tm.event value.
func New(eventType string) *Builder {
	b := &Builder{}
	return b.Equal("tm.event", eventType)
}

// Equal adds key='value'.
func (b *Builder) Equal(key, value string) *Builder {
	if !b.checkKey(key) {
		return b
	}
	if value == "" || strings.ContainsAny(value, "'\"\\\n\r") {
		b.fail(fmt.Errorf("%w for %s: %q", ErrInvalidValue, key, value))
		return b
	}
	b.conditions = append(b.conditions, fmt.Sprintf("%s='%s'", key, value))
	return b
}

// GreaterThan adds key>n.
func (b *Builder) GreaterThan(key string, n *uint256.Int) *Builder {
	if !b.checkKey(key) {
		return b
	}
	if n == nil {
		b.fail(fmt.Errorf("%w for %s: nil number", ErrInvalidValue, key))
		return b
	}
	b.conditions = append(b.conditions, fmt.Sprintf("%s>%s", key, n.Dec()))
	return b
}

// Exists adds "key EXISTS".
func (b *Builder) Exists(key string) *Builder {
	if !b.checkKey(key) {
		return b
	}
	b.conditions = append(b.conditions, key+" EXISTS")
	return b
}

// String renders and validates the query.
func (b *Builder) String() (string, error) {
	if b.err != nil {
		return "", b.err
	}
	q := strings.Join(b.conditions, " AND ")
	if _, err := cmtquery.New(q); err != nil {
		return "", fmt.Errorf("cmtquery.New: %w", err)
	}
	return q, nil
}

func (b *Builder) checkKey(key string) bool {
	if b.err != nil {
		return false
	}
	if !keyPattern.MatchString(key) {
		b.fail(fmt.Errorf("%w: %q", ErrInvalidKey, key))
		return false
	}
	return true
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}
