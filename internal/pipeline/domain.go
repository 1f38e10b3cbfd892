// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/pdiddy/parts-engine/internal/airesearch"
	"github.com/pdiddy/parts-engine/internal/llm"
	"github.com/pdiddy/parts-engine/pkg/types"
)

// Descriptor parameterizes the generic pipeline for one domain: query
// construction, research prompt and field schema, candidate normalization,
// arbitration framing, and validation query. The five instances differ only
// here; the control flow is shared.
type Descriptor struct {
	// Domain tags queries and envelopes.
	Domain types.Domain

	// System is the specialist persona used for every model call in this
	// domain (research fallback, arbitration, validation).
	System string

	// Objective tells the arbitrator what a winning candidate looks like.
	Objective string

	// IdentifierKey is the JSON key for the domain's primary identifier
	// (oem_part_number, supplier_name, manual_url, provider_name, image_url).
	IdentifierKey string

	// Subject names the identifier's claimed type for validation prompts.
	Subject string

	// Images selects the image-search engine variant for the search leg.
	Images bool

	// FirstResultFallback accepts the top search result at low confidence
	// when arbitration produces nothing (image selection only).
	FirstResultFallback bool

	// BuildQuery constructs the search-leg query text. It receives a context
	// because the service-provider domain runs an industry-terms model
	// pre-pass here.
	BuildQuery func(ctx context.Context, q types.Query) string

	// SimilarQuery constructs the widened escalation query, or nil when the
	// domain does not escalate.
	SimilarQuery func(q types.Query) string

	// ValidationQuery constructs the evidence query for one identifier, or
	// nil when the domain does not validate.
	ValidationQuery func(q types.Query, identifier string) string

	// Research constructs the AI-research request.
	Research func(q types.Query) airesearch.Request

	// HitIdentifier extracts a candidate identifier from one search hit.
	HitIdentifier func(hit types.SearchHit) string

	// HitConfidence scores one search hit and returns its extra attributes.
	HitConfidence func(hit types.SearchHit) (float64, map[string]string)

	// ResearchCandidate maps a research report to zero-or-one candidate.
	ResearchCandidate func(rep types.ResearchReport) *types.Candidate

	// HasAlternates reports whether the research leg surfaced alternate
	// identifiers, which changes the escalation verdict.
	HasAlternates func(rep types.ResearchReport) bool
}

// equipmentContext renders the query for model prompts.
func equipmentContext(q types.Query) string {
	var parts []string
	if eq := q.Equipment(); eq != "" {
		parts = append(parts, eq)
	}
	if q.Year != "" {
		parts = append(parts, "("+q.Year+")")
	}
	subject := q.Description
	if subject == "" {
		subject = q.PartNumber
	}
	if subject != "" {
		if len(parts) > 0 {
			return strings.Join(parts, " ") + ": " + subject
		}
		return subject
	}
	return strings.Join(parts, " ")
}

// --- shared hit classifiers ---

var supplierKeywords = []string{"distributor", "supplier", "parts", "buy", "purchase", "inventory", "stock", "catalog"}
var providerKeywords = []string{"service", "repair", "technician", "maintenance", "installation", "certified", "authorized", "specialist"}
var manualKeywords = []string{"manual", "parts", "service", "repair", "maintenance", "pdf", "specification"}

// keywordHit reports whether any keyword appears in the hit's title, snippet,
// or URL, lowercased.
func keywordHit(hit types.SearchHit, keywords []string) bool {
	haystack := strings.ToLower(hit.Title + " " + hit.Snippet + " " + hit.URL)
	for _, kw := range keywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}

func classifiedConfidence(hit types.SearchHit, keywords []string, attr string) (float64, map[string]string) {
	if keywordHit(hit, keywords) {
		return 0.7, map[string]string{attr: "true"}
	}
	return 0.3, map[string]string{attr: "false"}
}

// partNumberPattern matches the 4-6 digit numbers most OEM catalogs use; the
// prose fallback extractor takes the first match.
var partNumberPattern = regexp.MustCompile(`\b\d{4,6}\b`)

// stringListField reads a []string-ish field from a research field map,
// tolerating both JSON strings and objects.
func stringListField(fields map[string]any, key string) []string {
	raw, _ := fields[key].([]any)
	var out []string
	for _, v := range raw {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func fieldString(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return strings.TrimSpace(s)
}

// researchCandidateFor builds the generic zero-or-one candidate mapping:
// identifier from the named key, description from the first non-empty of the
// given keys, extra attributes copied as strings.
func researchCandidateFor(identifierKey string, descriptionKeys []string, attrKeys []string) func(types.ResearchReport) *types.Candidate {
	return func(rep types.ResearchReport) *types.Candidate {
		if !rep.Succeeded {
			return nil
		}
		identifier := fieldString(rep.Fields, identifierKey)
		if identifier == "" {
			return nil
		}
		c := &types.Candidate{
			Identifier: identifier,
			Source:     types.SourceAIResearch,
			Position:   1,
			Confidence: rep.Confidence,
			SourceURLs: rep.SourceURLs,
		}
		for _, key := range descriptionKeys {
			if d := fieldString(rep.Fields, key); d != "" {
				c.Description = d
				break
			}
		}
		for _, key := range attrKeys {
			if v, ok := rep.Fields[key]; ok && v != nil {
				if c.Attrs == nil {
					c.Attrs = make(map[string]string)
				}
				c.Attrs[key] = fmt.Sprintf("%v", v)
			}
		}
		return c
	}
}

// --- part resolution ---

const partSystem = "You are an equipment parts specialist who identifies exact OEM part numbers for commercial equipment."

// PartDomain finds the OEM part number for a described component.
func PartDomain() Descriptor {
	return Descriptor{
		Domain:        types.DomainPart,
		System:        partSystem,
		Objective:     "Identify the single correct OEM part number for the described component. The part number must not be the equipment model number, and must be the requested component type, not a related assembly. Prefer manufacturer and authorized distributor sources.",
		IdentifierKey: "oem_part_number",
		Subject:       "OEM part number",
		BuildQuery: func(_ context.Context, q types.Query) string {
			return strings.TrimSpace(fmt.Sprintf("%s %s %s OEM part number", q.Equipment(), q.Year, q.Description))
		},
		SimilarQuery: func(q types.Query) string {
			return strings.TrimSpace(fmt.Sprintf("%s %s compatible alternate OEM part number replacement interchange", q.Equipment(), q.Description))
		},
		ValidationQuery: func(q types.Query, identifier string) string {
			return strings.TrimSpace(fmt.Sprintf("%q %s OEM part specifications %s", identifier, q.Equipment(), q.Description))
		},
		Research: func(q types.Query) airesearch.Request {
			prompt := fmt.Sprintf("Find the exact OEM part number for this component: %s. Equipment: %s %s. "+
				"Return a JSON object with keys: oem_part_number, manufacturer, description, "+
				"alternate_part_numbers (array), confidence (0.0-1.0), sources (array of URLs).",
				q.Description, q.Equipment(), q.Year)
			return airesearch.Request{
				System: partSystem,
				Prompt: prompt,
				Input:  fmt.Sprintf("Search the web and find the OEM part number for %q on a %s %s. %s", q.Description, q.Equipment(), q.Year, prompt),
				ExtractText: func(text string, _ []string) (map[string]any, float64) {
					if num := partNumberPattern.FindString(text); num != "" {
						return map[string]any{"oem_part_number": num, "description": truncateText(text, 200)}, 0.8
					}
					return map[string]any{"oem_part_number": nil, "description": truncateText(text, 200)}, 0.3
				},
			}
		},
		HitIdentifier: func(hit types.SearchHit) string { return hit.Title },
		HitConfidence: func(types.SearchHit) (float64, map[string]string) { return 0.5, nil },
		ResearchCandidate: researchCandidateFor("oem_part_number",
			[]string{"description"}, []string{"manufacturer", "alternate_part_numbers"}),
		HasAlternates: func(rep types.ResearchReport) bool {
			return rep.Succeeded && len(stringListField(rep.Fields, "alternate_part_numbers")) > 0
		},
	}
}

// --- supplier search ---

const supplierSystem = "You are a procurement specialist who finds authorized suppliers and distributors for commercial equipment parts."

// SupplierDomain finds the best supplier for a part.
func SupplierDomain() Descriptor {
	return Descriptor{
		Domain:        types.DomainSupplier,
		System:        supplierSystem,
		Objective:     "Identify the single best supplier currently selling this part. Prefer manufacturer and authorized distributor storefronts over marketplaces, and in-stock listings over catalogs.",
		IdentifierKey: "supplier_name",
		Subject:       "parts supplier",
		BuildQuery: func(_ context.Context, q types.Query) string {
			subject := q.PartNumber
			if subject == "" {
				subject = q.Description
			}
			query := fmt.Sprintf("%s %s supplier distributor buy purchase", subject, q.Make)
			if q.Location != "" {
				query += " " + q.Location
			}
			return strings.TrimSpace(query)
		},
		SimilarQuery: func(q types.Query) string {
			subject := q.PartNumber
			if subject == "" {
				subject = q.Description
			}
			return strings.TrimSpace(fmt.Sprintf("%s %s alternative suppliers aftermarket compatible", subject, q.Make))
		},
		ValidationQuery: func(q types.Query, identifier string) string {
			subject := q.PartNumber
			if subject == "" {
				subject = q.Description
			}
			return strings.TrimSpace(fmt.Sprintf("%q %s %s sells stock", identifier, subject, q.Make))
		},
		Research: func(q types.Query) airesearch.Request {
			subject := q.PartNumber
			if subject == "" {
				subject = q.Description
			}
			prompt := fmt.Sprintf("Find the best supplier for part %q (%s equipment). "+
				"Return a JSON object with keys: supplier_name, website, price, availability, "+
				"is_authorized (boolean), confidence (0.0-1.0), sources (array of URLs).",
				subject, q.Make)
			return airesearch.Request{
				System: supplierSystem,
				Prompt: prompt,
				Input:  fmt.Sprintf("Search the web for suppliers currently selling part %q for %s equipment. %s", subject, q.Make, prompt),
			}
		},
		HitIdentifier: func(hit types.SearchHit) string { return hit.Title },
		HitConfidence: func(hit types.SearchHit) (float64, map[string]string) {
			return classifiedConfidence(hit, supplierKeywords, "is_likely_supplier")
		},
		ResearchCandidate: researchCandidateFor("supplier_name",
			[]string{"website"}, []string{"website", "price", "availability", "is_authorized"}),
		HasAlternates: func(types.ResearchReport) bool { return false },
	}
}

// --- manual search (rank flow) ---

const manualSystem = "You are a technical documentation specialist who locates official equipment manuals."

// ManualDomain ranks manuals (PDF where possible) for the equipment.
func ManualDomain() Descriptor {
	return Descriptor{
		Domain:        types.DomainManual,
		System:        manualSystem,
		Objective:     "Rank the documents that are genuine manuals of the requested type for exactly this equipment model. Official manufacturer PDFs outrank third-party rehosts; rehosts outrank parts listings that merely mention a manual.",
		IdentifierKey: "manual_url",
		Subject:       "equipment manual",
		BuildQuery: func(_ context.Context, q types.Query) string {
			return strings.TrimSpace(fmt.Sprintf("%s %s PDF filetype:pdf", q.Equipment(), manualType(q)))
		},
		Research: func(q types.Query) airesearch.Request {
			prompt := fmt.Sprintf("Find the official %s for a %s. "+
				"Return a JSON object with keys: manual_title, manual_url, document_id, "+
				"file_format, confidence (0.0-1.0), sources (array of URLs).",
				manualType(q), q.Equipment())
			return airesearch.Request{
				System: manualSystem,
				Prompt: prompt,
				Input:  fmt.Sprintf("Search the web for the official %s for a %s equipment, preferably a PDF. %s", manualType(q), q.Equipment(), prompt),
			}
		},
		HitIdentifier: func(hit types.SearchHit) string { return hit.URL },
		HitConfidence: func(hit types.SearchHit) (float64, map[string]string) {
			conf, attrs := classifiedConfidence(hit, manualKeywords, "is_likely_manual")
			if strings.HasSuffix(strings.ToLower(hit.URL), ".pdf") {
				// A direct PDF link is strong evidence by itself.
				attrs["file_format"] = "pdf"
				conf = 0.8
			}
			return conf, attrs
		},
		ResearchCandidate: researchCandidateFor("manual_url",
			[]string{"manual_title"}, []string{"document_id", "file_format"}),
		HasAlternates: func(types.ResearchReport) bool { return false },
	}
}

func manualType(q types.Query) string {
	if q.ManualType != "" {
		return q.ManualType
	}
	return "service manual"
}

// --- service-provider search (rank flow) ---

const providerSystem = "You are a field-service coordinator who finds qualified service companies for commercial equipment."

// ProviderDomain ranks service companies. Query construction runs an
// industry-terms model pre-pass; on any failure it degrades to the plain
// "<make> <model> equipment" form.
func ProviderDomain(model llm.Completer) Descriptor {
	return Descriptor{
		Domain:        types.DomainServiceProvider,
		System:        providerSystem,
		Objective:     "Rank companies that actually perform the requested service on this equipment type. Factory-authorized and certified providers outrank general repair shops; parts sellers without a service arm do not qualify.",
		IdentifierKey: "provider_name",
		Subject:       "service provider",
		BuildQuery: func(ctx context.Context, q types.Query) string {
			terms := industryTerms(ctx, model, q)
			query := fmt.Sprintf("%s %s service technician repair maintenance authorized certified dealer", terms, serviceType(q))
			if q.Location != "" {
				query += " " + q.Location
			}
			return strings.TrimSpace(query)
		},
		Research: func(q types.Query) airesearch.Request {
			prompt := fmt.Sprintf("Find companies that provide %s service for %s equipment%s. "+
				"Return a JSON object with keys: provider_name, website, phone, services (array), "+
				"is_authorized (boolean), confidence (0.0-1.0), sources (array of URLs).",
				serviceType(q), q.Equipment(), locationSuffix(q))
			return airesearch.Request{
				System: providerSystem,
				Prompt: prompt,
				Input:  fmt.Sprintf("Search the web for %s service providers for %s equipment%s. %s", serviceType(q), q.Equipment(), locationSuffix(q), prompt),
			}
		},
		HitIdentifier: func(hit types.SearchHit) string { return hit.Title },
		HitConfidence: func(hit types.SearchHit) (float64, map[string]string) {
			return classifiedConfidence(hit, providerKeywords, "is_likely_provider")
		},
		ResearchCandidate: researchCandidateFor("provider_name",
			[]string{"website"}, []string{"website", "phone", "is_authorized"}),
		HasAlternates: func(types.ResearchReport) bool { return false },
	}
}

func serviceType(q types.Query) string {
	if q.ServiceType != "" {
		return q.ServiceType
	}
	return "repair"
}

func locationSuffix(q types.Query) string {
	if q.Location == "" {
		return ""
	}
	return " near " + q.Location
}

// industryTerms asks the model what industry the equipment belongs to and
// which terms find its service providers. The pre-pass is best-effort.
func industryTerms(ctx context.Context, model llm.Completer, q types.Query) string {
	fallback := strings.TrimSpace(q.Equipment() + " equipment")
	if model == nil {
		return fallback
	}
	prompt := fmt.Sprintf("Equipment: %s %s. Classify the industry this equipment belongs to and produce "+
		"search terms that find companies servicing it. Return a JSON object: "+
		"{\"industry\": ..., \"search_terms\": [up to 4 strings]}.", q.Equipment(), q.Description)
	reply, err := model.CompleteJSON(ctx, providerSystem, prompt)
	if err != nil {
		return fallback
	}
	var parsed struct {
		SearchTerms []string `json:"search_terms"`
	}
	if err := json.Unmarshal([]byte(reply), &parsed); err != nil || len(parsed.SearchTerms) == 0 {
		return fallback
	}
	return strings.TrimSpace(strings.Join(parsed.SearchTerms, " "))
}

// --- image selection ---

const imageSystem = "You are a product photography analyst who verifies that an image shows a specific equipment part."

// ImageDomain finds the best product photo for a part via the image-search
// engine variant. No independent validation; arbitration failure falls back
// to the first image at low confidence.
func ImageDomain() Descriptor {
	return Descriptor{
		Domain:              types.DomainImage,
		System:              imageSystem,
		Objective:           "Select the single image most likely to be an actual product photo of this part. In the analysis, state whether the image shows the actual part, whether an OEM number is visible, whether it is a product photo rather than a diagram, and what kind of site hosts it.",
		IdentifierKey:       "image_url",
		Subject:             "product image",
		Images:              true,
		FirstResultFallback: true,
		BuildQuery: func(_ context.Context, q types.Query) string {
			subject := q.PartNumber
			if subject == "" {
				subject = q.Description
			}
			return strings.TrimSpace(fmt.Sprintf("%s %s part photo", q.Make, subject))
		},
		Research: func(q types.Query) airesearch.Request {
			subject := q.PartNumber
			if subject == "" {
				subject = q.Description
			}
			prompt := fmt.Sprintf("Find a product photo of part %q for %s equipment. "+
				"Return a JSON object with keys: image_url, page_url, "+
				"confidence (0.0-1.0), sources (array of URLs).", subject, q.Make)
			return airesearch.Request{
				System: imageSystem,
				Prompt: prompt,
				Input:  fmt.Sprintf("Search the web for a product photo of part %q (%s equipment). %s", subject, q.Make, prompt),
			}
		},
		HitIdentifier: func(hit types.SearchHit) string { return hit.URL },
		HitConfidence: func(types.SearchHit) (float64, map[string]string) { return 0.5, nil },
		ResearchCandidate: researchCandidateFor("image_url",
			nil, []string{"page_url"}),
		HasAlternates: func(types.ResearchReport) bool { return false },
	}
}

func truncateText(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
