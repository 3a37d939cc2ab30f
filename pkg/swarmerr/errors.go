// Package swarmerr defines the agent error taxonomy used throughout the
// swarm execution engine.
package swarmerr

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for well-known run conditions.
var (
	ErrBudgetExceeded   = errors.New("budget exceeded")
	ErrDurationExceeded = errors.New("swarm duration exceeded")
	ErrCancelled        = errors.New("run cancelled")
	ErrDeadlock         = errors.New("scheduler deadlock: no ready nodes and nothing to skip")
	ErrOrphanNode       = errors.New("orphan node: no incoming edge and not a conditional target")
	ErrUnboundedCycle   = errors.New("cycle in regular-edge subgraph without maxCycles bound")
	ErrDanglingProvider = errors.New("providerId not found in registry")
	ErrDuplicateNode    = errors.New("duplicate node id")
	ErrUnknownNode      = errors.New("unknown node id")
)

// AgentErrorType classifies why an agent invocation failed. See spec §7.
type AgentErrorType string

const (
	ErrorTimeout        AgentErrorType = "timeout"
	ErrorRateLimit      AgentErrorType = "rate_limit"
	ErrorAuth           AgentErrorType = "auth_error"
	ErrorNetwork        AgentErrorType = "network_error"
	ErrorContentFilter  AgentErrorType = "content_filter"
	ErrorBudgetExceeded AgentErrorType = "budget_exceeded"
	ErrorUnknown        AgentErrorType = "unknown"
)

// AgentError wraps a node-level failure with its classification, mirroring
// the shape of a tool/loop error: a type tag, a message, and an unwrap-able
// cause.
type AgentError struct {
	Type     AgentErrorType
	NodeID   string
	Message  string
	Cause    error
	Attempts int
}

// Error implements the error interface.
func (e *AgentError) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[agent:%s]", e.Type))
	if e.NodeID != "" {
		parts = append(parts, e.NodeID)
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, " ")
}

// Unwrap returns the underlying cause, if any.
func (e *AgentError) Unwrap() error {
	return e.Cause
}

// NewAgentError classifies cause and builds an AgentError for nodeID.
func NewAgentError(nodeID string, cause error) *AgentError {
	e := &AgentError{NodeID: nodeID, Cause: cause, Type: ErrorUnknown}
	if cause != nil {
		e.Message = cause.Error()
		e.Type = Classify(cause)
	}
	return e
}

// Classify inspects err's sentinel identity and message content to assign
// a taxonomy tag, mirroring the teacher's classifyToolError cascade.
func Classify(err error) AgentErrorType {
	if err == nil {
		return ErrorUnknown
	}
	if errors.Is(err, ErrBudgetExceeded) {
		return ErrorBudgetExceeded
	}
	if errors.Is(err, ErrCancelled) {
		return ErrorTimeout
	}

	s := strings.ToLower(err.Error())

	switch {
	case strings.Contains(s, "429"), strings.Contains(s, "rate limit"), strings.Contains(s, "rate_limit"), strings.Contains(s, "too many requests"):
		return ErrorRateLimit
	case strings.Contains(s, "401"), strings.Contains(s, "403"), strings.Contains(s, "unauthorized"), strings.Contains(s, "forbidden"), strings.Contains(s, "auth"):
		return ErrorAuth
	case strings.Contains(s, "timeout"), strings.Contains(s, "deadline exceeded"), strings.Contains(s, "context deadline"), strings.Contains(s, "aborted"), strings.Contains(s, "cancelled"), strings.Contains(s, "canceled"):
		return ErrorTimeout
	case strings.Contains(s, "content filter"), strings.Contains(s, "content_filter"), strings.Contains(s, "moderation"), strings.Contains(s, "policy violation"):
		return ErrorContentFilter
	case strings.Contains(s, "econn"), strings.Contains(s, "connection"), strings.Contains(s, "network"), strings.Contains(s, "dns"), strings.Contains(s, "unreachable"):
		return ErrorNetwork
	case strings.Contains(s, "budget"):
		return ErrorBudgetExceeded
	default:
		return ErrorUnknown
	}
}

// IsRetryable reports whether errors of this type are worth retrying.
func (t AgentErrorType) IsRetryable() bool {
	switch t {
	case ErrorTimeout, ErrorRateLimit, ErrorNetwork:
		return true
	default:
		return false
	}
}
