// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pdiddy/parts-engine/internal/airesearch"
	"github.com/pdiddy/parts-engine/internal/arbiter"
	"github.com/pdiddy/parts-engine/internal/llm"
	"github.com/pdiddy/parts-engine/internal/partsdb"
	"github.com/pdiddy/parts-engine/internal/pipeline"
	"github.com/pdiddy/parts-engine/internal/resolver"
	"github.com/pdiddy/parts-engine/internal/validate"
	"github.com/pdiddy/parts-engine/internal/websearch"
	"github.com/pdiddy/parts-engine/pkg/types"
)

// serviceClients wires every pipeline component once per process. No
// package-level API clients: everything downstream receives its
// dependencies explicitly.
type serviceClients struct {
	cfg      types.Config
	search   *websearch.Client
	model    *llm.Client
	pipe     *pipeline.Pipeline
	store    *partsdb.Store
	resolver *resolver.Resolver
	domains  struct {
		part     pipeline.Descriptor
		supplier pipeline.Descriptor
		manual   pipeline.Descriptor
		provider pipeline.Descriptor
		image    pipeline.Descriptor
	}
}

// newServiceClients builds the full dependency graph. withStore controls
// whether the parts database is opened; progress receives pipeline logging.
func newServiceClients(cfg types.Config, withStore bool, progress io.Writer) (*serviceClients, error) {
	if err := requireKeys(&cfg); err != nil {
		return nil, err
	}
	if progress == nil {
		progress = os.Stderr
	}

	c := &serviceClients{cfg: cfg}
	c.search = websearch.NewClient(cfg.Search)
	c.model = llm.NewClient(cfg.AI)

	research := airesearch.New(cfg.AI, c.model.WithModel(cfg.AI.ResearchModel))
	arb := arbiter.New(c.model)
	validator := validate.New(c.search, c.model)
	c.pipe = pipeline.New(c.search, research, arb, validator,
		pipeline.NewKeywordScorer(), cfg.Pipeline, cfg.Search.MaxResults, progress)

	c.domains.part = pipeline.PartDomain()
	c.domains.supplier = pipeline.SupplierDomain()
	c.domains.manual = pipeline.ManualDomain()
	c.domains.provider = pipeline.ProviderDomain(c.model)
	c.domains.image = pipeline.ImageDomain()

	if withStore {
		store, err := partsdb.Open(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("opening parts store: %w", err)
		}
		c.store = store
	}

	var store resolver.PartStore
	if c.store != nil {
		store = c.store
	}
	c.resolver = resolver.New(store, c.pipe, validator, c.model, progress)
	return c, nil
}

// Close releases the parts store if one was opened.
func (c *serviceClients) Close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}
