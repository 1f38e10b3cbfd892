// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import "github.com/pdiddy/parts-engine/pkg/types"

// SearchCandidates converts the search leg's raw report into normalized
// candidates. Deterministic, no network or model calls. Each hit's title and
// URL pass through unchanged into the candidate's description and source URLs.
func (d Descriptor) SearchCandidates(report types.SearchReport) []types.Candidate {
	if d.Images {
		return d.imageCandidates(report.Images)
	}
	cands := make([]types.Candidate, 0, len(report.Hits))
	for _, hit := range report.Hits {
		identifier := d.HitIdentifier(hit)
		if identifier == "" {
			continue
		}
		confidence, attrs := d.HitConfidence(hit)
		cands = append(cands, types.Candidate{
			Identifier:  identifier,
			Description: hit.Title,
			Source:      types.SourceSearchEngine,
			Position:    hit.Position,
			Confidence:  confidence,
			SourceURLs:  []string{hit.URL},
			Attrs:       attrs,
		})
	}
	return cands
}

func (d Descriptor) imageCandidates(images []types.ImageHit) []types.Candidate {
	cands := make([]types.Candidate, 0, len(images))
	for _, img := range images {
		if img.URL == "" {
			continue
		}
		attrs := map[string]string{}
		if img.Thumbnail != "" {
			attrs["thumbnail"] = img.Thumbnail
		}
		if img.Source != "" {
			attrs["source_site"] = img.Source
		}
		urls := []string{img.URL}
		if img.SourceURL != "" {
			urls = append(urls, img.SourceURL)
		}
		cands = append(cands, types.Candidate{
			Identifier:  img.URL,
			Description: img.Title,
			Source:      types.SourceSearchEngine,
			Position:    img.Position,
			Confidence:  0.5,
			SourceURLs:  urls,
			Attrs:       attrs,
		})
	}
	return cands
}

// ResearchCandidates maps the research leg to zero-or-one candidate.
func (d Descriptor) ResearchCandidates(rep types.ResearchReport) []types.Candidate {
	if d.ResearchCandidate == nil {
		return nil
	}
	c := d.ResearchCandidate(rep)
	if c == nil {
		return nil
	}
	return []types.Candidate{*c}
}
