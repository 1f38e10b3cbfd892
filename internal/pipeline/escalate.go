// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"fmt"
	"strings"

	"github.com/pdiddy/parts-engine/pkg/types"
)

// EscalationOutcome is the policy verdict for one arbitrated pick.
type EscalationOutcome struct {
	// Escalate requests the widened similar-candidates search.
	Escalate bool

	// AcceptPick keeps the pick in the envelope as the accepted answer.
	// Escalate and AcceptPick can both be true: the similar search is then
	// supplementary, not a replacement.
	AcceptPick bool

	// DropPick removes the pick entirely (placeholder identifiers, model
	// number collisions, invalid picks with no alternates).
	DropPick bool

	// Caveat is set when an unvalidated pick is accepted anyway.
	Caveat string

	// Reason explains the verdict.
	Reason string
}

// EscalationPolicy implements the accept/escalate decision table, plus the
// forced escalations for placeholder identifiers, model number collisions,
// and weak validation scores.
type EscalationPolicy struct {
	quality                 QualityScorer
	validationMinConfidence float64
}

// NewEscalationPolicy builds a policy over the given scorer and the minimum
// validation confidence below which escalation is forced.
func NewEscalationPolicy(quality QualityScorer, validationMinConfidence float64) *EscalationPolicy {
	if quality == nil {
		quality = NewKeywordScorer()
	}
	return &EscalationPolicy{quality: quality, validationMinConfidence: validationMinConfidence}
}

// Decide applies the decision table to one pick. A nil pick always escalates.
// A nil validation means the domain does not validate (image selection); such
// picks are accepted on the arbitrator's word alone.
func (p *EscalationPolicy) Decide(q types.Query, pick *types.Candidate, validation *types.Validation, hasAlternates bool) EscalationOutcome {
	if pick == nil {
		return EscalationOutcome{
			Escalate: true,
			Reason:   "no candidate selected",
		}
	}

	// Forced escalations fire before the table: the scoring path is known
	// to be fooled by placeholders and model-number echoes. Placeholder
	// markers are a catalog-number phenomenon; URL identifiers (manual and
	// image picks) are exempt so a path segment cannot read as a marker.
	if !isURLIdentifier(pick.Identifier) && p.quality.IsPlaceholder(pick.Identifier) {
		return EscalationOutcome{
			Escalate: true,
			DropPick: true,
			Reason:   fmt.Sprintf("identifier %q is a catalog placeholder", pick.Identifier),
		}
	}
	if q.MatchesModelNumber(pick.Identifier) {
		return EscalationOutcome{
			Escalate: true,
			DropPick: true,
			Reason:   fmt.Sprintf("identifier %q echoes the equipment model number", pick.Identifier),
		}
	}

	if validation == nil {
		return EscalationOutcome{
			AcceptPick: true,
			Reason:     "accepted without independent validation",
		}
	}

	if validation.IsValid {
		out := EscalationOutcome{AcceptPick: true}
		if hasAlternates {
			out.Reason = "validated with known alternates"
		} else {
			out.Escalate = true
			out.Reason = "validated but no alternates known; similar search is supplementary"
		}
		if validation.ConfidenceScore < p.validationMinConfidence {
			out.Escalate = true
			out.Reason = fmt.Sprintf("validation confidence %.2f below %.2f",
				validation.ConfidenceScore, p.validationMinConfidence)
		}
		return out
	}

	if hasAlternates {
		return EscalationOutcome{
			AcceptPick: true,
			Caveat:     fmt.Sprintf("failed independent validation: %s", validation.Assessment),
			Reason:     "unvalidated but alternates exist; accepted with caveat",
		}
	}
	return EscalationOutcome{
		Escalate: true,
		DropPick: true,
		Reason:   fmt.Sprintf("failed independent validation with no alternates: %s", validation.Assessment),
	}
}

// isURLIdentifier reports whether the identifier is a web address rather than
// a catalog number.
func isURLIdentifier(identifier string) bool {
	return strings.HasPrefix(identifier, "http://") || strings.HasPrefix(identifier, "https://")
}
